// Package builtin implements the "System" internal module: the
// arithmetic, comparison, list, text, and exception-handling combinators
// every other module gets via an implicit "using System", plus the
// domain-stack libraries SPEC_FULL.md wires in (gRPC reflection, uuid
// generation). Unlike a source module, System never goes through the
// lexer/parser/pipeline: its combinators are registered as Go-native
// CombHost stubs directly against a Machine.
package builtin

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/term"
)

// kit carries the machine's canonical distinguished combinators, so
// every builtin constructs booleans, lists, and none through the same
// interned stubs compiled code tags and tests against. A freshly minted
// Combinator would carry the wrong symbol id and defeat TAG/TEST.
type kit struct {
	tru, fls, none *term.Term
	nilC           *term.Term
	consC          *term.Combinator
}

func newKit(m *machine.Machine) *kit {
	return &kit{
		tru:   term.NewCombinator(m.CombinatorStub("true")),
		fls:   term.NewCombinator(m.CombinatorStub("false")),
		none:  term.NewCombinator(m.CombinatorStub("none")),
		nilC:  term.NewCombinator(m.CombinatorStub("nil")),
		consC: m.CombinatorStub("cons"),
	}
}

func (k *kit) boolOf(b bool) *term.Term {
	if b {
		return k.tru
	}
	return k.fls
}

// list builds a proper cons/nil list out of elems.
func (k *kit) list(elems []*term.Term) *term.Term {
	out := k.nilC
	for i := len(elems) - 1; i >= 0; i-- {
		out = term.NewArray([]*term.Term{term.NewCombinator(k.consC), elems[i], out})
	}
	return out
}

// Install registers every System:: combinator into m. Called once by the
// module manager the first time a compilation unit imports "System",
// idempotently: CombinatorStub dedups by name, so a second Install is a
// no-op beyond re-setting the same Kind/Arity/Host values.
func Install(m *machine.Machine) {
	k := newKit(m)
	for name, b := range arithmetic() {
		bind(m, name, b)
	}
	for name, b := range comparisons(k) {
		bind(m, name, b)
	}
	for name, b := range listOps(k) {
		bind(m, name, b)
	}
	for name, b := range textOps(k) {
		bind(m, name, b)
	}
	for name, b := range exceptionOps() {
		bind(m, name, b)
	}
	for name, b := range domainOps() {
		bind(m, name, b)
	}
	installGrpc(m, k)
}

type builtinDef struct {
	arity int
	host  term.HostFunc
}

func bind(m *machine.Machine, name string, b builtinDef) {
	stub := m.CombinatorStub(name)
	stub.Kind = term.CombHost
	stub.Arity = b.arity
	stub.Host = b.host
}

// force evaluates an argument to whnf before a strict primitive inspects
// it. HostFuncs receive their arguments unreduced (dispatch.go never
// forces on their behalf, same as a bytecode body's TAG/TEST), so every
// builtin that needs a concrete value forces it itself, exactly the way
// term.Force does for the bytecode interpreter.
func force(ds term.DataSource, v *term.Term) (*term.Term, error) {
	return term.Force(ds, v, nil)
}

func wrongType(name string, v *term.Term) error {
	return fmt.Errorf("%s: unexpected argument %s", name, v)
}

func arithmetic() map[string]builtinDef {
	num := func(name string, f func(a, b *term.Term) (*term.Term, error)) builtinDef {
		return builtinDef{arity: 2, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			a, err := force(ds, args[0])
			if err != nil {
				return nil, err
			}
			b, err := force(ds, args[1])
			if err != nil {
				return nil, err
			}
			return f(a, b)
		}}
	}
	arith := func(i func(a, b int64) int64, fl func(a, b float64) float64) func(a, b *term.Term) (*term.Term, error) {
		return func(a, b *term.Term) (*term.Term, error) {
			if a.Tag == term.TagFloat || b.Tag == term.TagFloat {
				return term.NewFloat(fl(asFloat(a), asFloat(b))), nil
			}
			if a.Tag != term.TagInteger || b.Tag != term.TagInteger {
				return nil, wrongType("arith", a)
			}
			return term.NewInt(i(a.I, b.I)), nil
		}
	}
	return map[string]builtinDef{
		// "+" doubles as text concatenation, same as the original's
		// overloaded addition.
		"System::+": num("System::+", func(a, b *term.Term) (*term.Term, error) {
			if a.Tag == term.TagText && b.Tag == term.TagText {
				return term.NewText(a.Text + b.Text), nil
			}
			return arith(func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })(a, b)
		}),
		"System::-": num("System::-", arith(func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })),
		"System::*": num("System::*", arith(func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })),
		"System::/": num("System::/", func(a, b *term.Term) (*term.Term, error) {
			if b.Tag == term.TagInteger && b.I == 0 {
				return nil, &term.RaiseSignal{Value: term.NewText("division by zero")}
			}
			return arith(func(a, b int64) int64 { return a / b }, func(a, b float64) float64 { return a / b })(a, b)
		}),
		"System::%": num("System::%", func(a, b *term.Term) (*term.Term, error) {
			if a.Tag != term.TagInteger || b.Tag != term.TagInteger {
				return nil, wrongType("System::%", a)
			}
			if b.I == 0 {
				return nil, &term.RaiseSignal{Value: term.NewText("division by zero")}
			}
			return term.NewInt(a.I % b.I), nil
		}),
	}
}

func asFloat(t *term.Term) float64 {
	if t.Tag == term.TagFloat {
		return t.F
	}
	return float64(t.I)
}

func comparisons(k *kit) map[string]builtinDef {
	boolOf := k.boolOf
	cmp := func(ok func(c int) bool) builtinDef {
		return builtinDef{arity: 2, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			a, err := force(ds, args[0])
			if err != nil {
				return nil, err
			}
			b, err := force(ds, args[1])
			if err != nil {
				return nil, err
			}
			return boolOf(ok(term.Compare(a, b))), nil
		}}
	}
	eq := builtinDef{arity: 2, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
		a, err := force(ds, args[0])
		if err != nil {
			return nil, err
		}
		b, err := force(ds, args[1])
		if err != nil {
			return nil, err
		}
		return boolOf(term.Equal(a, b)), nil
	}}
	return map[string]builtinDef{
		"System::==": eq,
		"System::/=": {arity: 2, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			v, err := eq.host(ds, args)
			if err != nil {
				return nil, err
			}
			return boolOf(v.Comb.Name == "false"), nil
		}},
		"System::<":  cmp(func(c int) bool { return c < 0 }),
		"System::>":  cmp(func(c int) bool { return c > 0 }),
		"System::<=": cmp(func(c int) bool { return c <= 0 }),
		"System::>=": cmp(func(c int) bool { return c >= 0 }),
	}
}

func listOps(k *kit) map[string]builtinDef {
	return map[string]builtinDef{
		"System::length": {arity: 1, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			n := int64(0)
			cur, err := force(ds, args[0])
			if err != nil {
				return nil, err
			}
			for cur != nil && cur.Tag == term.TagArray && len(cur.Arr) == 3 &&
				cur.Arr[0] != nil && cur.Arr[0].Tag == term.TagCombinator && cur.Arr[0].Comb.Name == "cons" {
				n++
				cur, err = force(ds, cur.Arr[2])
				if err != nil {
					return nil, err
				}
			}
			return term.NewInt(n), nil
		}},
		// System::to_list turns a tuple {tuple,e1,...,en} into the list
		// {e1,...,en}; a non-tuple argument (already a list, or any other
		// value) passes through unchanged.
		"System::to_list": {arity: 1, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			v, err := force(ds, args[0])
			if err != nil {
				return nil, err
			}
			if v.Tag != term.TagArray || len(v.Arr) < 1 || v.Arr[0].Tag != term.TagCombinator || v.Arr[0].Comb.Name != "tuple" {
				return v, nil
			}
			return k.list(v.Arr[1:]), nil
		}},
	}
}

func textOps(k *kit) map[string]builtinDef {
	return map[string]builtinDef{
		"System::print": {arity: 1, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			v, err := force(ds, args[0])
			if err != nil {
				return nil, err
			}
			fmt.Print(term.Render(v))
			return k.none, nil
		}},
		"System::to_text": {arity: 1, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			v, err := force(ds, args[0])
			if err != nil {
				return nil, err
			}
			return term.NewText(term.Render(v)), nil
		}},
		"System::++": {arity: 2, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			a, err := force(ds, args[0])
			if err != nil {
				return nil, err
			}
			b, err := force(ds, args[1])
			if err != nil {
				return nil, err
			}
			if a.Tag != term.TagText || b.Tag != term.TagText {
				return nil, wrongType("System::++", a)
			}
			return term.NewText(a.Text + b.Text), nil
		}},
	}
}

// exceptionOps implements System::throw and System::catch, the two
// combinators Desugar rewrites every throw/try-catch expression into.
func exceptionOps() map[string]builtinDef {
	return map[string]builtinDef{
		"System::throw": {arity: 1, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			v, err := force(ds, args[0])
			if err != nil {
				return nil, err
			}
			return nil, &term.RaiseSignal{Value: v}
		}},
		"System::catch": {arity: 2, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			body, handler := args[0], args[1]
			head, rest := spine(body)
			result, err := term.RunToValue(ds, head, rest, nil)
			if err == nil {
				return result, nil
			}
			uncaught, ok := err.(*term.UncaughtException)
			if !ok {
				return nil, err
			}
			hHead, hRest := spine(handler)
			hRest = append(append([]*term.Term{}, hRest...), uncaught.Value)
			return term.RunToValue(ds, hHead, hRest, nil)
		}},
	}
}

// spine splits a value that may be a bare combinator reference or a
// pending/partial application array into its head and argument list.
func spine(v *term.Term) (*term.Term, []*term.Term) {
	if v != nil && v.Tag == term.TagArray && len(v.Arr) > 0 {
		return v.Arr[0], v.Arr[1:]
	}
	return v, nil
}

// domainOps wires in the uuid library SPEC_FULL.md's domain table assigns
// to lambda lifting; exposing it as a callable combinator too lets Egel
// source generate its own fresh identifiers (e.g. request IDs for the
// gRPC builtins below).
func domainOps() map[string]builtinDef {
	return map[string]builtinDef{
		"System::uuid": {arity: 0, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			return term.NewText(uuid.NewString()), nil
		}},
		"System::to_upper": {arity: 1, host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			v, err := force(ds, args[0])
			if err != nil {
				return nil, err
			}
			if v.Tag != term.TagText {
				return nil, wrongType("System::to_upper", v)
			}
			return term.NewText(strings.ToUpper(v.Text)), nil
		}},
	}
}
