package embed_test

import (
	"testing"

	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/term"
	"github.com/funvibe/egel/pkg/embed"
)

func TestMarshalRoundTrip(t *testing.T) {
	m := machine.New()
	ma := embed.New(m)

	cases := []interface{}{int64(42), 2.5, "hello", true, false, nil}
	for _, c := range cases {
		tm, err := ma.ToTerm(c)
		if err != nil {
			t.Fatalf("ToTerm(%v): %v", c, err)
		}
		back, err := ma.FromTerm(tm)
		if err != nil {
			t.Fatalf("FromTerm(%v): %v", c, err)
		}
		if back != c {
			t.Fatalf("round trip changed %v into %v", c, back)
		}
	}
}

func TestMarshalSlice(t *testing.T) {
	m := machine.New()
	ma := embed.New(m)

	tm, err := ma.ToTerm([]int{1, 2, 3})
	if err != nil {
		t.Fatalf("ToTerm: %v", err)
	}
	if got, want := term.Render(tm), "{1, 2, 3}"; got != want {
		t.Fatalf("rendered %q, want %q", got, want)
	}
	back, err := ma.FromTerm(tm)
	if err != nil {
		t.Fatalf("FromTerm: %v", err)
	}
	slice, ok := back.([]interface{})
	if !ok || len(slice) != 3 || slice[0] != int64(1) || slice[2] != int64(3) {
		t.Fatalf("round trip gave %#v", back)
	}
}

// TestBind registers a Go function as a combinator and reduces an
// application of it.
func TestBind(t *testing.T) {
	m := machine.New()
	ma := embed.New(m)

	if err := ma.Bind("Host::twice", func(n int64) int64 { return 2 * n }); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	head := term.NewCombinator(m.CombinatorStub("Host::twice"))
	result, err := term.RunToValue(m, head, []*term.Term{term.NewInt(21)}, nil)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if result.Tag != term.TagInteger || result.I != 42 {
		t.Fatalf("Host::twice 21 = %s, want 42", term.Render(result))
	}
}

func TestBindRejectsNonFunc(t *testing.T) {
	ma := embed.New(machine.New())
	if err := ma.Bind("Host::bad", 3); err == nil {
		t.Fatalf("expected an error binding a non-func")
	}
}
