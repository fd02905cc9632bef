package compile

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/funvibe/egel/internal/ast"
	"github.com/funvibe/egel/internal/config"
)

// lifted is one anonymous Lambda/Block Lift pulled out to top level.
type lifted struct {
	name  string
	arity int
	alts  []*ast.Alt
}

// Lifter accumulates the combinators Lift synthesizes while walking one
// def/val body.
type Lifter struct {
	prefix string // namespace the fresh name is minted under, for readability only
	out    []lifted
}

func NewLifter(prefix string) *Lifter { return &Lifter{prefix: prefix} }

// Out returns the lifted top-level definitions collected so far.
func (l *Lifter) Out() []lifted { return l.out }

// Lift walks expr, replacing every Lambda/Block with a partial
// application of a freshly named top-level combinator closing over its
// free variables, and returns the rewritten expression. bound names the
// variables already in scope at this point (def/val parameters, enclosing
// lambda captures) so free-variable analysis can tell a reference to an
// enclosing binding from a reference to a global.
func (l *Lifter) Lift(expr ast.Expr, bound map[string]bool) ast.Expr {
	switch ex := expr.(type) {
	case *ast.Var, *ast.Lit:
		return ex

	case *ast.App:
		args := make([]ast.Expr, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = l.Lift(a, bound)
		}
		return &ast.App{Pos: ex.Pos, Fun: l.Lift(ex.Fun, bound), Args: args}

	case *ast.Lambda:
		return l.liftAlts(ex.Pos, []*ast.Alt{{Pos: ex.Pos, Params: ex.Params, Body: ex.Body}}, bound)

	case *ast.Block:
		return l.liftAlts(ex.Pos, ex.Alts, bound)

	default:
		// Identify+Desugar already eliminated every other node kind.
		return ex
	}
}

// liftAlts is the shared Lambda/Block path: both are "one anonymous
// function of N alternatives", Lambda's being the degenerate single-alt
// case. Every alt must agree on arity (match.CompileFunction enforces
// this too); free variables are computed over the union of all alts'
// bodies/guards.
func (l *Lifter) liftAlts(pos config.Position, alts []*ast.Alt, bound map[string]bool) ast.Expr {
	arity := 0
	if len(alts) > 0 {
		arity = len(alts[0].Params)
	}

	liftedAlts := make([]*ast.Alt, len(alts))
	free := map[string]bool{}
	for i, alt := range alts {
		inner := extendBound(bound, alt.Params)
		guard := alt.Guard
		if guard != nil {
			guard = l.Lift(guard, inner)
			freeVars(guard, inner, free)
		}
		body := l.Lift(alt.Body, inner)
		freeVars(body, inner, free)
		liftedAlts[i] = &ast.Alt{Pos: alt.Pos, Params: alt.Params, Guard: guard, Body: body}
	}

	freeNames := make([]string, 0, len(free))
	for n := range free {
		freeNames = append(freeNames, n)
	}

	name := fmt.Sprintf("%s$%s", l.prefix, uuid.NewString())
	captureParams := make([]ast.Pattern, len(freeNames))
	for i, n := range freeNames {
		captureParams[i] = &ast.PVar{Name: n}
	}
	finalAlts := make([]*ast.Alt, len(liftedAlts))
	for i, alt := range liftedAlts {
		finalAlts[i] = &ast.Alt{
			Pos:    alt.Pos,
			Params: append(append([]ast.Pattern{}, captureParams...), alt.Params...),
			Guard:  alt.Guard,
			Body:   alt.Body,
		}
	}
	l.out = append(l.out, lifted{name: name, arity: len(freeNames) + arity, alts: finalAlts})

	callArgs := make([]ast.Expr, len(freeNames))
	for i, n := range freeNames {
		callArgs[i] = &ast.Var{Pos: pos, Name: n}
	}
	if len(callArgs) == 0 {
		return &ast.Var{Pos: pos, Name: name}
	}
	return &ast.App{Pos: pos, Fun: &ast.Var{Pos: pos, Name: name}, Args: callArgs}
}

func extendBound(bound map[string]bool, pats []ast.Pattern) map[string]bool {
	nb := make(map[string]bool, len(bound))
	for k, v := range bound {
		nb[k] = v
	}
	for _, p := range pats {
		collectPatternVars(p, nb)
	}
	return nb
}

// freeVars collects names referenced in expr that are not in bound
// (meaning: not a local parameter/capture, so either an enclosing
// lambda's variable needing capture, or already a resolved qualified
// global, which re-adding to free is harmless — referencing a global by
// value just produces an extra, ignorable capture parameter; Identify
// already rewrote every true global reference to a "::"-qualified name,
// and those never need capturing in practice since DeclareData's stub
// lookup works regardless of arity).
func freeVars(expr ast.Expr, bound map[string]bool, out map[string]bool) {
	switch ex := expr.(type) {
	case *ast.Var:
		if !bound[ex.Name] && !isQualified(ex.Name) {
			out[ex.Name] = true
		}
	case *ast.Lit:
	case *ast.App:
		freeVars(ex.Fun, bound, out)
		for _, a := range ex.Args {
			freeVars(a, bound, out)
		}
	default:
		// Lambda/Block bodies were already lifted by the time freeVars runs
		// over their replacement (a Var/App call to the lifted name), so no
		// other node kind should reach here.
	}
}

func isQualified(name string) bool {
	for i := 0; i+1 < len(name); i++ {
		if name[i] == ':' && name[i+1] == ':' {
			return true
		}
	}
	return false
}
