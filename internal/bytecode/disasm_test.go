package bytecode

import (
	"strings"
	"testing"

	"github.com/funvibe/egel/internal/symtab"
	"github.com/funvibe/egel/internal/term"
)

// buildFac assembles a tiny "fac" combinator by hand (no parser/match
// dependency): fac 0 = 1; fac n = n * fac (n - 1), so disasm_test can
// exercise Disassemble/Assemble without pulling in the whole pipeline.
func buildFac(t *testing.T, symbols *symtab.Table) (*Program, uint32) {
	t.Helper()
	facStub := &term.Combinator{Name: "fac", Kind: term.CombBytecode, Arity: 1}
	facID := symbols.EnterData(term.NewCombinator(facStub))

	c := NewCoder(symbols)
	argsReg := c.FreshRegister() // R0: args array
	nReg := c.FreshRegister()    // R1: n
	c.EmitSplit(nReg, argsReg, 0, 1)

	zeroReg := c.FreshRegister()
	c.EmitData(zeroReg, c.EnterData(term.NewInt(0)))
	testFail := c.FreshLabel()
	c.EmitTest(nReg, zeroReg)
	c.EmitFail(testFail)

	oneReg := c.FreshRegister()
	c.EmitData(oneReg, c.EnterData(term.NewInt(1)))
	c.EmitReturn(oneReg)
	c.Label(testFail)

	multReg := c.FreshRegister()
	c.EmitData(multReg, c.EnterData(term.NewCombinator(hostArith("System::*", func(a, b int64) int64 { return a * b }))))
	subReg := c.FreshRegister()
	c.EmitData(subReg, c.EnterData(term.NewCombinator(hostArith("System::-", func(a, b int64) int64 { return a - b }))))
	facReg := c.FreshRegister()
	c.EmitData(facReg, indexT(facID))

	oneReg2 := c.FreshRegister()
	c.EmitData(oneReg2, c.EnterData(term.NewInt(1)))

	start := c.FreshRegister()
	c.EmitMov(start, subReg)
	r2 := c.FreshRegister()
	c.EmitMov(r2, nReg)
	r3 := c.FreshRegister()
	c.EmitMov(r3, oneReg2)
	subSpine := c.FreshRegister()
	c.EmitArray(subSpine, start, r3)

	s2 := c.FreshRegister()
	c.EmitMov(s2, facReg)
	s3 := c.FreshRegister()
	c.EmitMov(s3, subSpine)
	facSpine := c.FreshRegister()
	c.EmitArray(facSpine, s2, s3)

	m1 := c.FreshRegister()
	c.EmitMov(m1, multReg)
	m2 := c.FreshRegister()
	c.EmitMov(m2, nReg)
	m3 := c.FreshRegister()
	c.EmitMov(m3, facSpine)
	resultSpine := c.FreshRegister()
	c.EmitArray(resultSpine, m1, m3)

	c.EmitReturn(resultSpine)

	prog, err := FromCoder(c)
	if err != nil {
		t.Fatalf("FromCoder: %v", err)
	}
	facStub.Code = prog
	return prog, facID
}

// hostArith is a working two-integer builtin for the execution tests
// below; it forces both arguments the way the real System module does.
func hostArith(name string, f func(a, b int64) int64) *term.Combinator {
	return &term.Combinator{
		Name:  name,
		Kind:  term.CombHost,
		Arity: 2,
		Host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			a, err := term.Force(ds, args[0], nil)
			if err != nil {
				return nil, err
			}
			b, err := term.Force(ds, args[1], nil)
			if err != nil {
				return nil, err
			}
			return term.NewInt(f(a.I, b.I)), nil
		},
	}
}

func TestDisassembleAssembleRoundTrip(t *testing.T) {
	symbols := symtab.New()
	prog, _ := buildFac(t, symbols)

	text := Disassemble("fac", prog, symbols)
	if !strings.Contains(text, "bytecode 01") || !strings.Contains(text, "fac") {
		t.Fatalf("disassembly missing expected header: %q", text)
	}

	name, reassembled, err := Assemble(text, symbols)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if name != "fac" {
		t.Fatalf("name = %q, want fac", name)
	}
	if len(reassembled.Code) != len(prog.Code) {
		t.Fatalf("code length changed: got %d, want %d", len(reassembled.Code), len(prog.Code))
	}

	text2 := Disassemble("fac", reassembled, symbols)
	if text != text2 {
		t.Fatalf("round trip not stable:\n--- first ---\n%s\n--- second ---\n%s", text, text2)
	}
}

// TestAssembledFacExecutes reassembles fac's disassembly and applies the
// result to 5: the reassembled combinator must compute 120 through the
// ordinary reduction machinery, not just survive a text round trip.
func TestAssembledFacExecutes(t *testing.T) {
	symbols := symtab.New()
	prog, _ := buildFac(t, symbols)

	text := Disassemble("fac", prog, symbols)
	_, reassembled, err := Assemble(text, symbols)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	fac2 := &term.Combinator{Name: "fac2", Kind: term.CombBytecode, Arity: 1, Code: reassembled}
	result, err := term.RunToValue(symbols, term.NewCombinator(fac2), []*term.Term{term.NewInt(5)}, nil)
	if err != nil {
		t.Fatalf("reducing reassembled fac 5: %v", err)
	}
	if result == nil || result.Tag != term.TagInteger || result.I != 120 {
		t.Fatalf("reassembled fac 5 = %s, want 120", term.Render(result))
	}
}

func TestAssembleBareDataDecl(t *testing.T) {
	symbols := symtab.New()
	name, prog, err := Assemble("bytecode 01\n  foo\nend\n", symbols)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if name != "foo" {
		t.Fatalf("name = %q, want foo", name)
	}
	if len(prog.Code) != 0 {
		t.Fatalf("expected an empty program for a bare data declaration, got %d bytes", len(prog.Code))
	}
}
