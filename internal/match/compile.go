package match

import (
	"fmt"

	"github.com/funvibe/egel/internal/ast"
	"github.com/funvibe/egel/internal/bytecode"
	"github.com/funvibe/egel/internal/term"
)

// compilePattern emits the TAG/TEST/TAKEX/SPLIT sequence that checks reg
// against pat, jumping to failLabel on any mismatch, and binds pat's
// variables in e for the alternative's guard and body.
func compilePattern(c *bytecode.Coder, e *env, pat ast.Pattern, reg uint32, failLabel uint32) error {
	switch p := pat.(type) {
	case *ast.PVar:
		e.vars[p.Name] = reg
		return nil

	case *ast.PWildcard:
		return nil

	case *ast.PLit:
		litReg := c.FreshRegister()
		c.EmitData(litReg, c.EnterData(literalFromPLit(p)))
		c.EmitTest(reg, litReg)
		c.EmitFail(failLabel)
		return nil

	case *ast.PCons:
		consReg, err := compileGlobal(c, e.resolver, p.Name)
		if err != nil {
			return err
		}
		c.EmitTag(reg, consReg)
		c.EmitFail(failLabel)
		return compileSubPatterns(c, e, p.Args, reg, failLabel, false)

	case *ast.PTuple:
		tupReg, err := compileGlobal(c, e.resolver, "tuple")
		if err != nil {
			return err
		}
		c.EmitTag(reg, tupReg)
		c.EmitFail(failLabel)
		return compileSubPatterns(c, e, p.Elems, reg, failLabel, true)

	case *ast.PList:
		return compilePattern(c, e, desugarListPattern(p.Elems, p.Tail), reg, failLabel)

	default:
		return fmt.Errorf("match: unhandled pattern %T", pat)
	}
}

// compileSubPatterns destructures a constructor's (or tuple's) fields
// into fresh contiguous registers and matches each sub-pattern against
// one. Offset 1 skips the head slot. A constructor's arity is fixed, so
// TAKEX suffices; a tuple pattern names its full width, so exact means
// SPLIT — (A, B) must not match a 3-tuple.
func compileSubPatterns(c *bytecode.Coder, e *env, pats []ast.Pattern, reg uint32, failLabel uint32, exact bool) error {
	if len(pats) == 0 {
		return nil
	}
	regs := make([]uint32, len(pats))
	regs[0] = c.FreshRegister()
	for i := 1; i < len(regs); i++ {
		regs[i] = c.FreshRegister()
	}
	if exact {
		c.EmitSplit(regs[0], reg, 1, uint16(len(regs)))
	} else {
		c.EmitTakeX(regs[0], reg, 1, uint16(len(regs)))
	}
	c.EmitFail(failLabel)
	for i, sub := range pats {
		if err := compilePattern(c, e, sub, regs[i], failLabel); err != nil {
			return err
		}
	}
	return nil
}

// desugarListPattern rewrites "{p1, p2 | tail}" into the nested
// cons/nil constructor pattern it stands for, so compilePattern only ever
// has to handle PCons/PTuple for structured matches.
func desugarListPattern(elems []ast.Pattern, tail ast.Pattern) ast.Pattern {
	if len(elems) == 0 {
		if tail != nil {
			return tail
		}
		return &ast.PCons{Name: "nil"}
	}
	return &ast.PCons{
		Name: "cons",
		Args: []ast.Pattern{elems[0], desugarListPattern(elems[1:], tail)},
	}
}

func literalFromPLit(p *ast.PLit) *term.Term {
	switch p.Kind {
	case ast.PLitInt:
		return term.NewInt(p.I)
	case ast.PLitFloat:
		return term.NewFloat(p.F)
	case ast.PLitChar:
		return term.NewChar(p.Ch)
	case ast.PLitText:
		return term.NewText(p.Text)
	default:
		return term.NewText("")
	}
}

func literalFromLit(l *ast.Lit) *term.Term {
	switch l.Kind {
	case ast.LitInt:
		return term.NewInt(l.I)
	case ast.LitFloat:
		return term.NewFloat(l.F)
	case ast.LitChar:
		return term.NewChar(l.Ch)
	case ast.LitText:
		return term.NewText(l.Text)
	default:
		return term.NewText("")
	}
}

// compileExpr emits code to compute expr's value into a fresh register and
// returns it. Only Var, Lit, and App ever reach here: If/Let/Block/
// ListLit/TupleLit/BinOp/Try/Throw/Lambda are all eliminated by
// internal/compile's Desugar and Lift stages before a function body is
// handed to CompileFunction. A nested (non-tail) App is left as an
// unreduced application spine in its register — whoever next inspects it
// (a sibling TAG/TEST, or the reducer once this body RETURNs) forces it
// then, via term.Force, never here.
func compileExpr(c *bytecode.Coder, e *env, expr ast.Expr) (uint32, error) {
	switch ex := expr.(type) {
	case *ast.Var:
		if reg, ok := e.vars[ex.Name]; ok {
			return reg, nil
		}
		return compileGlobal(c, e.resolver, ex.Name)

	case *ast.Lit:
		reg := c.FreshRegister()
		c.EmitData(reg, c.EnterData(literalFromLit(ex)))
		return reg, nil

	case *ast.App:
		return compileApp(c, e, ex)

	default:
		return 0, fmt.Errorf("match: expression not lowered to Var/Lit/App: %T", expr)
	}
}

// compileApp flattens a chain of nested App nodes (explicit currying, as
// lambda lifting introduces at a lifted closure's call site: the lifted
// combinator applied to its captured free variables, itself applied to
// the original call's arguments) into one application spine. The callee
// may itself hold a partial-application spine at run time — a closure
// bound to a pattern variable — so the spine is assembled with CONCATX,
// which splices an array callee flat instead of nesting it: the built
// array's head is always the real combinator, never another array.
func compileApp(c *bytecode.Coder, e *env, ap *ast.App) (uint32, error) {
	fun, argExprs := flattenApp(ap)
	fnReg, err := compileExpr(c, e, fun)
	if err != nil {
		return 0, err
	}
	if len(argExprs) == 0 {
		return fnReg, nil
	}
	operands := make([]uint32, 0, len(argExprs))
	for _, a := range argExprs {
		r, err := compileExpr(c, e, a)
		if err != nil {
			return 0, err
		}
		operands = append(operands, r)
	}
	start := emitContiguous(c, operands)
	argsArr := c.FreshRegister()
	c.EmitArray(argsArr, start, start+uint32(len(operands))-1)
	dst := c.FreshRegister()
	c.EmitConcatX(dst, fnReg, argsArr, 0)
	return dst, nil
}

func flattenApp(ap *ast.App) (ast.Expr, []ast.Expr) {
	if inner, ok := ap.Fun.(*ast.App); ok {
		fun, args := flattenApp(inner)
		combined := make([]ast.Expr, 0, len(args)+len(ap.Args))
		combined = append(combined, args...)
		combined = append(combined, ap.Args...)
		return fun, combined
	}
	return ap.Fun, ap.Args
}

// emitContiguous copies regs into a freshly allocated contiguous block
// (ARRAY requires its source registers to be adjacent) and returns the
// first register of the block.
func emitContiguous(c *bytecode.Coder, regs []uint32) uint32 {
	start := c.FreshRegister()
	c.EmitMov(start, regs[0])
	for _, r := range regs[1:] {
		next := c.FreshRegister()
		c.EmitMov(next, r)
	}
	return start
}
