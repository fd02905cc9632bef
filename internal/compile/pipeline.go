package compile

import (
	"fmt"

	"github.com/funvibe/egel/internal/ast"
	"github.com/funvibe/egel/internal/bytecode"
	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/match"
	"github.com/funvibe/egel/internal/term"
)

// Unit is one compilation unit ready for DeclareData+Emit: a flat list of
// data/def/val declarations (namespaces already flattened into qualified
// names by Identify) plus whatever Lift pulled out of their bodies.
type Unit struct {
	Data []*ast.DataDecl
	Defs []*def // user-written defs/vals plus every lifted combinator
}

type def struct {
	name  string
	arity int
	alts  []*ast.Alt
}

// Dump renders every def/val/lifted combinator's post-lift alternatives
// via internal/ast's debug printer, for the CLI driver's -X flag ("AST
// after lift").
func (u *Unit) Dump() string {
	decls := make([]ast.Decl, len(u.Defs))
	for i, d := range u.Defs {
		decls[i] = &ast.DefDecl{Name: d.name, Alts: d.alts}
	}
	return ast.Dump(decls)
}

// CombinatorNames lists every def/val/lifted combinator Pipeline produced
// for this unit, in compilation order — what internal/cache keys its
// per-combinator disassembly rows on.
func (u *Unit) CombinatorNames() []string {
	names := make([]string, len(u.Defs))
	for i, d := range u.Defs {
		names[i] = d.name
	}
	return names
}

// Pipeline runs Identify, Desugar, and Lift over decls (one module's
// top-level declarations) and returns the flattened Unit DeclareData and
// Emit then consume. opens lists the namespaces this module has brought
// into unqualified scope via "using" (the module manager always includes
// "System"). known reports whether a qualified name already names an
// installed global (a builtin, or a sibling module's export) so a bare
// reference like the "+" in a BinOp can resolve to "System::+" even
// though "System::+" was never declared by this compilation unit.
func Pipeline(decls []ast.Decl, opens []string, known func(string) bool) (*Unit, error) {
	flat, scope, err := Identify(decls, opens, known)
	if err != nil {
		return nil, err
	}

	u := &Unit{}
	for _, d := range flat {
		switch dd := d.(type) {
		case *ast.DataDecl:
			u.Data = append(u.Data, dd)

		case *ast.DefDecl:
			arity := 0
			if len(dd.Alts) > 0 {
				arity = len(dd.Alts[0].Params)
			}
			lifter := NewLifter(dd.Name)
			alts := make([]*ast.Alt, len(dd.Alts))
			for i, alt := range dd.Alts {
				alts[i] = desugarThenLift(lifter, alt, scope, arity)
			}
			u.Defs = append(u.Defs, &def{name: dd.Name, arity: arity, alts: alts})
			for _, lf := range lifter.Out() {
				u.Defs = append(u.Defs, &def{name: lf.name, arity: lf.arity, alts: lf.alts})
			}

		case *ast.ValDecl:
			lifter := NewLifter(dd.Name)
			body := Desugar(dd.Body, scope)
			body = lifter.Lift(body, map[string]bool{})
			u.Defs = append(u.Defs, &def{name: dd.Name, arity: 0, alts: []*ast.Alt{{Body: body}}})
			for _, lf := range lifter.Out() {
				u.Defs = append(u.Defs, &def{name: lf.name, arity: lf.arity, alts: lf.alts})
			}
		}
	}
	return u, nil
}

func desugarThenLift(lifter *Lifter, alt *ast.Alt, scope *Scope, arity int) *ast.Alt {
	d := desugarAlt(alt, scope)
	bound := map[string]bool{}
	for _, p := range d.Params {
		collectPatternVars(p, bound)
	}
	guard := d.Guard
	if guard != nil {
		guard = lifter.Lift(guard, bound)
	}
	body := lifter.Lift(d.Body, bound)
	return &ast.Alt{Pos: d.Pos, Params: d.Params, Guard: guard, Body: body}
}

// DeclareData registers every data constructor and every def/val/lifted
// combinator's stub in m before any body compiles, so Emit's bodies can
// reference siblings (including themselves, and lifted closures still to
// come later in u.Defs) regardless of order.
func DeclareData(m *machine.Machine, u *Unit) {
	for _, dd := range u.Data {
		stub := m.CombinatorStub(dd.Name)
		stub.Kind = term.CombData
		stub.Arity = dd.Args
	}
	for _, d := range u.Defs {
		stub := m.CombinatorStub(d.name)
		stub.Kind = term.CombBytecode
		stub.Arity = d.arity
	}
}

// Emit compiles every def/val/lifted combinator's body and installs the
// resulting bytecode.Program into its already-declared stub.
func Emit(m *machine.Machine, u *Unit) error {
	for _, d := range u.Defs {
		coder := bytecode.NewCoder(m.Symbols)
		if err := match.CompileFunction(coder, m, d.name, d.arity, d.alts); err != nil {
			return fmt.Errorf("compile: %s: %w", d.name, err)
		}
		prog, err := bytecode.FromCoder(coder)
		if err != nil {
			return fmt.Errorf("compile: %s: %w", d.name, err)
		}
		stub := m.CombinatorStub(d.name)
		stub.Code = prog
	}
	return nil
}
