package compile

import "github.com/funvibe/egel/internal/ast"

// Desugar rewrites every control-flow and literal-sugar form into Var,
// Lit, Lambda, Block, and App — the only node kinds Lift and the
// pattern-match compiler need to handle. Name resolution (Identify) must
// run first: Desugar resolves bare operator names through scope the same
// way Identify resolved variable references.
func Desugar(expr ast.Expr, scope *Scope) ast.Expr {
	switch ex := expr.(type) {
	case *ast.Var, *ast.Lit:
		return ex

	case *ast.App:
		args := make([]ast.Expr, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = Desugar(a, scope)
		}
		return &ast.App{Pos: ex.Pos, Fun: Desugar(ex.Fun, scope), Args: args}

	case *ast.BinOp:
		return &ast.App{
			Pos: ex.Pos,
			Fun: &ast.Var{Pos: ex.Pos, Name: scope.Resolve(ex.Op)},
			Args: []ast.Expr{Desugar(ex.Left, scope), Desugar(ex.Right, scope)},
		}

	case *ast.Lambda:
		return &ast.Lambda{Pos: ex.Pos, Params: ex.Params, Body: Desugar(ex.Body, scope)}

	case *ast.Block:
		alts := make([]*ast.Alt, len(ex.Alts))
		for i, alt := range ex.Alts {
			alts[i] = desugarAlt(alt, scope)
		}
		return &ast.Block{Pos: ex.Pos, Alts: alts}

	case *ast.If:
		cond := Desugar(ex.Cond, scope)
		then := Desugar(ex.Then, scope)
		els := Desugar(ex.Else, scope)
		return &ast.App{
			Pos: ex.Pos,
			Fun: &ast.Block{Pos: ex.Pos, Alts: []*ast.Alt{
				{Pos: ex.Pos, Params: []ast.Pattern{&ast.PCons{Name: "true"}}, Body: then},
				{Pos: ex.Pos, Params: []ast.Pattern{&ast.PCons{Name: "false"}}, Body: els},
			}},
			Args: []ast.Expr{cond},
		}

	case *ast.Let:
		body := Desugar(ex.Body, scope)
		for i := len(ex.Bindings) - 1; i >= 0; i-- {
			b := ex.Bindings[i]
			body = &ast.App{
				Pos: b.Pos,
				Fun: &ast.Block{Pos: b.Pos, Alts: []*ast.Alt{
					{Pos: b.Pos, Params: []ast.Pattern{b.Pattern}, Body: body},
				}},
				Args: []ast.Expr{Desugar(b.Value, scope)},
			}
		}
		return body

	case *ast.Throw:
		return &ast.App{
			Pos:  ex.Pos,
			Fun:  &ast.Var{Pos: ex.Pos, Name: scope.Resolve("System::throw")},
			Args: []ast.Expr{Desugar(ex.Value, scope)},
		}

	case *ast.Try:
		return &ast.App{
			Pos: ex.Pos,
			Fun: &ast.Var{Pos: ex.Pos, Name: scope.Resolve("System::catch")},
			Args: []ast.Expr{
				&ast.Lambda{Pos: ex.Pos, Params: nil, Body: Desugar(ex.Body, scope)},
				Desugar(ex.Handler, scope),
			},
		}

	case *ast.ListLit:
		tail := ex.Tail
		var tailExpr ast.Expr
		if tail != nil {
			tailExpr = Desugar(tail, scope)
		} else {
			tailExpr = &ast.Var{Pos: ex.Pos, Name: scope.Resolve("nil")}
		}
		for i := len(ex.Elems) - 1; i >= 0; i-- {
			tailExpr = &ast.App{
				Pos: ex.Pos,
				Fun: &ast.Var{Pos: ex.Pos, Name: scope.Resolve("cons")},
				Args: []ast.Expr{Desugar(ex.Elems[i], scope), tailExpr},
			}
		}
		return tailExpr

	case *ast.TupleLit:
		elems := make([]ast.Expr, len(ex.Elems))
		for i, e := range ex.Elems {
			elems[i] = Desugar(e, scope)
		}
		return &ast.App{Pos: ex.Pos, Fun: &ast.Var{Pos: ex.Pos, Name: scope.Resolve("tuple")}, Args: elems}

	default:
		return ex
	}
}

func desugarAlt(alt *ast.Alt, scope *Scope) *ast.Alt {
	var guard ast.Expr
	if alt.Guard != nil {
		guard = Desugar(alt.Guard, scope)
	}
	return &ast.Alt{
		Pos:    alt.Pos,
		Params: desugarPatterns(alt.Params, scope),
		Guard:  guard,
		Body:   Desugar(alt.Body, scope),
	}
}

// desugarPatterns rewrites PList into nested PCons so Lift's free-variable
// walk (which inspects patterns structurally) never has to special-case
// list sugar either; match.compilePattern performs the same rewrite
// defensively, so this is belt-and-suspenders, not load-bearing.
func desugarPatterns(pats []ast.Pattern, scope *Scope) []ast.Pattern {
	out := make([]ast.Pattern, len(pats))
	for i, p := range pats {
		out[i] = desugarPattern(p, scope)
	}
	return out
}

func desugarPattern(pat ast.Pattern, scope *Scope) ast.Pattern {
	switch p := pat.(type) {
	case *ast.PList:
		elems := make([]ast.Pattern, len(p.Elems))
		for i, e := range p.Elems {
			elems[i] = desugarPattern(e, scope)
		}
		var tail ast.Pattern
		if p.Tail != nil {
			tail = desugarPattern(p.Tail, scope)
		}
		return listPatternToCons(elems, tail)
	case *ast.PCons:
		args := make([]ast.Pattern, len(p.Args))
		for i, a := range p.Args {
			args[i] = desugarPattern(a, scope)
		}
		return &ast.PCons{Pos: p.Pos, Name: p.Name, Args: args}
	case *ast.PTuple:
		elems := make([]ast.Pattern, len(p.Elems))
		for i, e := range p.Elems {
			elems[i] = desugarPattern(e, scope)
		}
		return &ast.PTuple{Pos: p.Pos, Elems: elems}
	default:
		return pat
	}
}

func listPatternToCons(elems []ast.Pattern, tail ast.Pattern) ast.Pattern {
	if len(elems) == 0 {
		if tail != nil {
			return tail
		}
		return &ast.PCons{Name: "nil"}
	}
	return &ast.PCons{Name: "cons", Args: []ast.Pattern{elems[0], listPatternToCons(elems[1:], tail)}}
}
