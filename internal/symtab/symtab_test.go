package symtab

import (
	"testing"

	"github.com/funvibe/egel/internal/term"
)

func TestDistinguishedSymbolsPreinterned(t *testing.T) {
	tab := New()
	for i, name := range DistinguishedSymbols {
		id, ok := tab.Symbol(name)
		if !ok {
			t.Fatalf("distinguished symbol %q not interned", name)
		}
		if int(id) != i {
			t.Fatalf("symbol %q = id %d, want %d (declaration order)", name, id, i)
		}
		if got := tab.Name(id); got != name {
			t.Fatalf("Name(%d) = %q, want %q", id, got, name)
		}
	}
}

func TestInternIsIdempotent(t *testing.T) {
	tab := New()
	a := tab.Intern("foo")
	b := tab.Intern("foo")
	if a != b {
		t.Fatalf("interning %q twice gave different ids: %d != %d", "foo", a, b)
	}
	c := tab.Intern("bar")
	if c == a {
		t.Fatalf("distinct names %q and %q got the same id", "foo", "bar")
	}
}

func TestEnterDataDedupesByValue(t *testing.T) {
	tab := New()
	id1 := tab.EnterData(term.NewInt(42))
	id2 := tab.EnterData(term.NewInt(42))
	if id1 != id2 {
		t.Fatalf("two equal-valued literals got distinct data ids: %d != %d", id1, id2)
	}
	id3 := tab.EnterData(term.NewText("42"))
	if id3 == id1 {
		t.Fatalf("an integer and a text literal rendering differently collided on data id %d", id1)
	}
	if got := tab.Data(id1); got.Tag != term.TagInteger || got.I != 42 {
		t.Fatalf("Data(%d) = %s, want integer 42", id1, term.Render(got))
	}
	if tab.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tab.Len())
	}
}

func TestDataOutOfRange(t *testing.T) {
	tab := New()
	if got := tab.Data(999); got != nil {
		t.Fatalf("Data(999) = %v, want nil", got)
	}
}
