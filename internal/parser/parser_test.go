package parser

import (
	"testing"

	"github.com/funvibe/egel/internal/ast"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := ParseProgram("<test>", src)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	return prog
}

// TestBlockArmsCarryParams: every "[ pats -> body ]" arm must surface
// its patterns as Params, including multi-argument arms.
func TestBlockArmsCarryParams(t *testing.T) {
	prog := parse(t, `def map = [F nil -> nil | F (cons X XX) -> cons (F X) (map F XX)]`)
	def := prog.Decls[0].(*ast.DefDecl)
	blk := def.Alts[0].Body.(*ast.Block)
	if len(blk.Alts) != 2 {
		t.Fatalf("block has %d arms, want 2", len(blk.Alts))
	}
	for i, alt := range blk.Alts {
		if len(alt.Params) != 2 {
			t.Fatalf("arm %d has %d params, want 2", i, len(alt.Params))
		}
	}
	if _, ok := blk.Alts[1].Params[1].(*ast.PCons); !ok {
		t.Fatalf("second arm's second param is %T, want *ast.PCons", blk.Alts[1].Params[1])
	}
}

// TestWildcardParses: "_" is a wildcard pattern, not a constructor.
func TestWildcardParses(t *testing.T) {
	prog := parse(t, `def second _ Y = Y`)
	def := prog.Decls[0].(*ast.DefDecl)
	if _, ok := def.Alts[0].Params[0].(*ast.PWildcard); !ok {
		t.Fatalf("first param is %T, want *ast.PWildcard", def.Alts[0].Params[0])
	}
}

// TestValAcceptsVariableClassName: the REPL wraps expressions as
// "val Dummy = <expr>".
func TestValAcceptsVariableClassName(t *testing.T) {
	prog := parse(t, `val Dummy = 1 + 2`)
	val := prog.Decls[0].(*ast.ValDecl)
	if val.Name != "Dummy" {
		t.Fatalf("val name = %q, want Dummy", val.Name)
	}
	if _, ok := val.Body.(*ast.BinOp); !ok {
		t.Fatalf("val body is %T, want *ast.BinOp", val.Body)
	}
}

// TestOperatorPrecedenceAndSections: precedence climbs, and "(+)" names
// the operator's combinator directly.
func TestOperatorPrecedenceAndSections(t *testing.T) {
	prog := parse(t, `val x = 1 + 2 * 3`)
	top := prog.Decls[0].(*ast.ValDecl).Body.(*ast.BinOp)
	if top.Op != "+" {
		t.Fatalf("top operator = %q, want +", top.Op)
	}
	if inner, ok := top.Right.(*ast.BinOp); !ok || inner.Op != "*" {
		t.Fatalf("right operand is %#v, want the * application", top.Right)
	}

	prog = parse(t, `val plus = (+)`)
	v, ok := prog.Decls[0].(*ast.ValDecl).Body.(*ast.Var)
	if !ok || v.Name != "+" {
		t.Fatalf("(+) parsed as %#v, want Var +", prog.Decls[0].(*ast.ValDecl).Body)
	}
}

// TestDefAlternativesShareName: semicolon-joined alternatives accumulate
// under one def.
func TestDefAlternativesShareName(t *testing.T) {
	prog := parse(t, `
def fac 0 = 1;
    fac N = N * (fac (N - 1))
`)
	def := prog.Decls[0].(*ast.DefDecl)
	if def.Name != "fac" || len(def.Alts) != 2 {
		t.Fatalf("def %q with %d alts, want fac with 2", def.Name, len(def.Alts))
	}
	if _, ok := def.Alts[0].Params[0].(*ast.PLit); !ok {
		t.Fatalf("first alt's param is %T, want *ast.PLit", def.Alts[0].Params[0])
	}
}
