package match_test

import (
	"testing"

	"github.com/funvibe/egel/internal/ast"
	"github.com/funvibe/egel/internal/bytecode"
	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/match"
	"github.com/funvibe/egel/internal/term"
)

// install compiles alts as a bytecode combinator named name into m and
// returns the combinator term, ready to apply.
func install(t *testing.T, m *machine.Machine, name string, arity int, alts []*ast.Alt) *term.Term {
	t.Helper()
	stub := m.CombinatorStub(name)
	stub.Kind = term.CombBytecode
	stub.Arity = arity

	c := bytecode.NewCoder(m.Symbols)
	if err := match.CompileFunction(c, m, name, arity, alts); err != nil {
		t.Fatalf("CompileFunction: %v", err)
	}
	prog, err := bytecode.FromCoder(c)
	if err != nil {
		t.Fatalf("FromCoder: %v", err)
	}
	stub.Code = prog
	return term.NewCombinator(stub)
}

func lit(s string) ast.Expr { return &ast.Lit{Kind: ast.LitText, Text: s} }

// TestGuardGatesAlternative: a failing guard must fall through to the
// next alternative even though the patterns match.
func TestGuardGatesAlternative(t *testing.T) {
	m := machine.New()
	alts := []*ast.Alt{
		{Params: []ast.Pattern{&ast.PVar{Name: "X"}}, Guard: &ast.Var{Name: "false"}, Body: lit("guarded")},
		{Params: []ast.Pattern{&ast.PVar{Name: "X"}}, Guard: &ast.Var{Name: "true"}, Body: lit("open")},
	}
	f := install(t, m, "pick", 1, alts)

	result, err := term.RunToValue(m, f, []*term.Term{term.NewInt(1)}, nil)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if result.Tag != term.TagText || result.Text != "open" {
		t.Fatalf("got %s, want \"open\"", term.Render(result))
	}
}

// TestLiteralFirstMatch: overlapping alternatives select the first, in
// source order, at the bytecode level.
func TestLiteralFirstMatch(t *testing.T) {
	m := machine.New()
	alts := []*ast.Alt{
		{Params: []ast.Pattern{&ast.PLit{Kind: ast.PLitInt, I: 0}}, Body: lit("zero")},
		{Params: []ast.Pattern{&ast.PVar{Name: "N"}}, Body: lit("other")},
	}
	f := install(t, m, "classify", 1, alts)

	result, err := term.RunToValue(m, f, []*term.Term{term.NewInt(0)}, nil)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if result.Text != "zero" {
		t.Fatalf("classify 0 = %s, want \"zero\"", term.Render(result))
	}
	result, err = term.RunToValue(m, f, []*term.Term{term.NewInt(9)}, nil)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if result.Text != "other" {
		t.Fatalf("classify 9 = %s, want \"other\"", term.Render(result))
	}
}

// TestFallThroughRaisesApplication: with no matching alternative the
// compiled fall-through must raise the original application as the
// exception payload.
func TestFallThroughRaisesApplication(t *testing.T) {
	m := machine.New()
	alts := []*ast.Alt{
		{Params: []ast.Pattern{&ast.PLit{Kind: ast.PLitInt, I: 0}}, Body: lit("zero")},
	}
	f := install(t, m, "zeroOnly", 1, alts)

	_, err := term.RunToValue(m, f, []*term.Term{term.NewInt(7)}, nil)
	exc, ok := err.(*term.UncaughtException)
	if !ok {
		t.Fatalf("expected an uncaught exception, got %v", err)
	}
	if got, want := term.Render(exc.Value), "(failure (zeroOnly 7))"; got != want {
		t.Fatalf("failure payload = %q, want %q", got, want)
	}
}

// TestTuplePattern destructures {tuple, a, b} and swaps the elements.
func TestTuplePattern(t *testing.T) {
	m := machine.New()
	alts := []*ast.Alt{
		{
			Params: []ast.Pattern{&ast.PTuple{Elems: []ast.Pattern{&ast.PVar{Name: "A"}, &ast.PVar{Name: "B"}}}},
			Body: &ast.App{
				Fun:  &ast.Var{Name: "tuple"},
				Args: []ast.Expr{&ast.Var{Name: "B"}, &ast.Var{Name: "A"}},
			},
		},
	}
	f := install(t, m, "swap", 1, alts)

	tup := term.NewArray([]*term.Term{
		term.NewCombinator(m.CombinatorStub("tuple")),
		term.NewInt(1),
		term.NewText("a"),
	})
	result, err := term.RunToValue(m, f, []*term.Term{tup}, nil)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if got, want := term.Render(result), `("a", 1)`; got != want {
		t.Fatalf("swap (1, \"a\") = %q, want %q", got, want)
	}
}

// TestConstructorPatternWildcard mixes a cons destructure with a
// wildcard tail.
func TestConstructorPatternWildcard(t *testing.T) {
	m := machine.New()
	alts := []*ast.Alt{
		{
			Params: []ast.Pattern{&ast.PCons{Name: "cons", Args: []ast.Pattern{&ast.PVar{Name: "H"}, &ast.PWildcard{}}}},
			Body:   &ast.Var{Name: "H"},
		},
		{Params: []ast.Pattern{&ast.PCons{Name: "nil"}}, Body: lit("empty")},
	}
	f := install(t, m, "head", 1, alts)

	list := term.NewArray([]*term.Term{
		term.NewCombinator(m.CombinatorStub("cons")),
		term.NewInt(42),
		term.NewCombinator(m.CombinatorStub("nil")),
	})
	result, err := term.RunToValue(m, f, []*term.Term{list}, nil)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if result.Tag != term.TagInteger || result.I != 42 {
		t.Fatalf("head {42} = %s, want 42", term.Render(result))
	}

	result, err = term.RunToValue(m, f, []*term.Term{term.NewCombinator(m.CombinatorStub("nil"))}, nil)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if result.Text != "empty" {
		t.Fatalf("head {} = %s, want \"empty\"", term.Render(result))
	}
}
