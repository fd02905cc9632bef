package term_test

import (
	"testing"

	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/term"
)

// TestSerializeRoundTrip: deserialize(serialize(t)) must equal t under
// structural equality for closed terms without opaque nodes.
func TestSerializeRoundTrip(t *testing.T) {
	m := machine.New()
	cons := m.CombinatorStub("cons")
	nilC := m.CombinatorStub("nil")
	tuple := m.CombinatorStub("tuple")

	list := term.NewArray([]*term.Term{
		term.NewCombinator(cons),
		term.NewInt(1),
		term.NewArray([]*term.Term{
			term.NewCombinator(cons),
			term.NewText("two words, \"quoted\""),
			term.NewCombinator(nilC),
		}),
	})
	cases := []*term.Term{
		term.NewInt(-42),
		term.NewFloat(2.5),
		term.NewFloat(0.1),
		term.NewChar('z'),
		term.NewText(""),
		term.NewText("line\nbreak"),
		term.NewCombinator(nilC),
		list,
		term.NewArray([]*term.Term{term.NewCombinator(tuple), term.NewInt(1), list}),
	}

	for _, tc := range cases {
		text, err := term.Serialize(tc)
		if err != nil {
			t.Fatalf("Serialize(%s): %v", term.Render(tc), err)
		}
		back, err := term.Deserialize(text, m.CombinatorStub)
		if err != nil {
			t.Fatalf("Deserialize(%q): %v", text, err)
		}
		if !term.Equal(tc, back) {
			t.Fatalf("round trip changed %s into %s (text %q)", term.Render(tc), term.Render(back), text)
		}
	}
}

// TestSerializeSharesCanonicalStubs: a deserialized constructor must be
// the machine's interned stub, not a lookalike with a foreign symbol id.
func TestSerializeSharesCanonicalStubs(t *testing.T) {
	m := machine.New()
	text, err := term.Serialize(term.NewCombinator(m.CombinatorStub("cons")))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	back, err := term.Deserialize(text, m.CombinatorStub)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if back.Comb != m.CombinatorStub("cons") {
		t.Fatalf("deserialized cons is not the canonical stub")
	}
}

// TestSerializeRejectsOpaque: live host state never serializes.
func TestSerializeRejectsOpaque(t *testing.T) {
	if _, err := term.Serialize(term.NewOpaque(struct{}{})); err == nil {
		t.Fatalf("expected an error serializing an opaque term")
	}
}
