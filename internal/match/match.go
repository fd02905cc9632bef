// Package match compiles AST pattern-matching alternatives into
// bytecode, per spec §4.3: per-alternative fail labels, SPLIT/TAKEX
// destructuring, DATA+TEST/TAG+FAIL for literals and constructors,
// ARRAY+CONCATX to thread over-applied arguments, and a fall-through to
// the global fail combinator when no alternative matches.
package match

import (
	"fmt"

	"github.com/funvibe/egel/internal/ast"
	"github.com/funvibe/egel/internal/bytecode"
)

// Resolver maps a free name (a data constructor, a def/val, a lifted
// lambda, or one of the bootstrap combinators "true"/"false"/"fail") to
// the data table index of its combinator stub, for a DATA instruction.
// internal/machine.Machine implements this directly.
type Resolver interface {
	Global(name string) (id uint32, ok bool)
}

type env struct {
	vars     map[string]uint32 // local variable name -> register
	resolver Resolver
}

func newEnv(r Resolver) *env {
	return &env{vars: map[string]uint32{}, resolver: r}
}

// CompileFunction compiles a (possibly multi-alternative) function body
// of the given arity into c. name is the combinator's own qualified
// name, used by the no-match fall-through to rebuild the original
// application as the failure payload. Every alt in alts must have
// exactly arity parameters. The function's own argument array is
// expected in R[0] (internal/bytecode.Program.Run's convention).
func CompileFunction(c *bytecode.Coder, r Resolver, name string, arity int, alts []*ast.Alt) error {
	argsReg := c.FreshRegister() // R[0]: the plain argument array
	params := make([]uint32, arity)
	if arity > 0 {
		rStart := c.FreshRegister()
		params[0] = rStart
		for i := 1; i < arity; i++ {
			params[i] = c.FreshRegister()
		}
		c.EmitSplit(rStart, argsReg, 0, uint16(arity))
	}

	for i, alt := range alts {
		if len(alt.Params) != arity {
			return fmt.Errorf("match: alternative %d has %d parameters, want %d", i, len(alt.Params), arity)
		}
		nextAlt := c.FreshLabel()
		e := newEnv(r)
		for pi, pat := range alt.Params {
			if err := compilePattern(c, e, pat, params[pi], nextAlt); err != nil {
				return err
			}
		}
		if alt.Guard != nil {
			gReg, err := compileExpr(c, e, alt.Guard)
			if err != nil {
				return err
			}
			trueReg, err := compileGlobal(c, r, "true")
			if err != nil {
				return err
			}
			c.EmitTest(gReg, trueReg)
			c.EmitFail(nextAlt)
		}
		bodyReg, err := compileExpr(c, e, alt.Body)
		if err != nil {
			return err
		}
		c.EmitReturn(bodyReg)
		c.Label(nextAlt)
	}

	// Fall-through: no alternative matched. Rebuild the original
	// application (this combinator spliced back onto its argument array)
	// and return it applied to the global fail combinator, whose
	// reduction raises it as a structured match-failure exception.
	selfReg, err := compileGlobal(c, r, name)
	if err != nil {
		return err
	}
	appReg := c.FreshRegister()
	c.EmitConcatX(appReg, selfReg, argsReg, 0)
	failReg, err := compileGlobal(c, r, "fail")
	if err != nil {
		return err
	}
	failStart := c.FreshRegister()
	c.EmitMov(failStart, failReg)
	failArg := c.FreshRegister()
	c.EmitMov(failArg, appReg)
	resReg := c.FreshRegister()
	c.EmitArray(resReg, failStart, failArg)
	c.EmitReturn(resReg)
	return nil
}

// compileGlobal loads a free name's combinator stub into a fresh register.
func compileGlobal(c *bytecode.Coder, r Resolver, name string) (uint32, error) {
	id, ok := r.Global(name)
	if !ok {
		return 0, fmt.Errorf("match: %q is not a known global", name)
	}
	reg := c.FreshRegister()
	c.EmitData(reg, uint16(id))
	return reg, nil
}
