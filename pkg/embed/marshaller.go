// Package embed is the host-embedding surface: converting Go values to
// and from runtime terms, and binding plain Go functions as callable
// combinators, so a Go program can drive evaluations against a Machine
// without touching the compiler pipeline.
package embed

import (
	"fmt"
	"reflect"

	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/term"
)

// Marshaller converts between Go values and terms against one Machine,
// so the booleans, lists, and none it produces carry the machine's own
// interned constructor stubs — the ones compiled code tags and tests
// against.
type Marshaller struct {
	m *machine.Machine
}

func New(m *machine.Machine) *Marshaller {
	return &Marshaller{m: m}
}

// ToTerm converts a Go value into a runtime Term, narrowed to the
// concrete value kinds this term model actually has (no structs/maps —
// there is no record type, so a bound Go struct only makes sense behind
// Opaque).
func (ma *Marshaller) ToTerm(v interface{}) (*term.Term, error) {
	if v == nil {
		return term.NewCombinator(ma.m.CombinatorStub("none")), nil
	}
	switch val := v.(type) {
	case *term.Term:
		return val, nil
	case int:
		return term.NewInt(int64(val)), nil
	case int64:
		return term.NewInt(val), nil
	case float64:
		return term.NewFloat(val), nil
	case bool:
		name := "false"
		if val {
			name = "true"
		}
		return term.NewCombinator(ma.m.CombinatorStub(name)), nil
	case string:
		return term.NewText(val), nil
	case rune:
		return term.NewChar(val), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := term.NewCombinator(ma.m.CombinatorStub("nil"))
		cons := ma.m.CombinatorStub("cons")
		for i := rv.Len() - 1; i >= 0; i-- {
			el, err := ma.ToTerm(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			list = term.NewArray([]*term.Term{term.NewCombinator(cons), el, list})
		}
		return list, nil
	default:
		return term.NewOpaque(v), nil
	}
}

// FromTerm converts a runtime Term back into a Go value, forcing it to
// whnf first. Combinator/Array values outside the small set below come
// back as *term.Term unchanged, for a caller that wants to pass them on
// rather than inspect them from Go.
func (ma *Marshaller) FromTerm(t *term.Term) (interface{}, error) {
	v, err := term.Force(ma.m, t, nil)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	switch v.Tag {
	case term.TagInteger:
		return v.I, nil
	case term.TagFloat:
		return v.F, nil
	case term.TagChar:
		return v.Ch, nil
	case term.TagText:
		return v.Text, nil
	case term.TagOpaque:
		return v.Op, nil
	case term.TagCombinator:
		switch v.Comb.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "none":
			return nil, nil
		}
		return v, nil
	case term.TagArray:
		if isList(v) {
			return ma.listToSlice(v)
		}
		return v, nil
	default:
		return v, nil
	}
}

func isList(v *term.Term) bool {
	return len(v.Arr) == 3 && v.Arr[0] != nil && v.Arr[0].Tag == term.TagCombinator && v.Arr[0].Comb.Name == "cons"
}

func (ma *Marshaller) listToSlice(v *term.Term) ([]interface{}, error) {
	var out []interface{}
	cur, err := term.Force(ma.m, v, nil)
	if err != nil {
		return nil, err
	}
	for cur != nil && cur.Tag == term.TagArray && isList(cur) {
		head, err := ma.FromTerm(cur.Arr[1])
		if err != nil {
			return nil, err
		}
		out = append(out, head)
		cur, err = term.Force(ma.m, cur.Arr[2], nil)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Bind registers fn, a plain Go function, as a host combinator under
// the given qualified name: arguments marshal in with FromTerm, the
// (single) result marshals out with ToTerm. Variadics and multi-return
// functions are not supported — the term model has no built-in shape
// for them beyond an explicit tuple.
func (ma *Marshaller) Bind(name string, fn interface{}) error {
	host, arity, err := ma.wrapFunc(reflect.ValueOf(fn))
	if err != nil {
		return err
	}
	stub := ma.m.CombinatorStub(name)
	stub.Kind = term.CombHost
	stub.Arity = arity
	stub.Host = host
	return nil
}

func (ma *Marshaller) wrapFunc(fn reflect.Value) (term.HostFunc, int, error) {
	t := fn.Type()
	if t.Kind() != reflect.Func {
		return nil, 0, fmt.Errorf("embed: Bind requires a func, got %s", t.Kind())
	}
	if t.IsVariadic() || t.NumOut() > 1 {
		return nil, 0, fmt.Errorf("embed: Bind supports fixed-arity funcs with at most one result")
	}
	arity := t.NumIn()
	return func(_ term.DataSource, args []*term.Term) (*term.Term, error) {
		in := make([]reflect.Value, arity)
		for i := 0; i < arity; i++ {
			goArg, err := ma.FromTerm(args[i])
			if err != nil {
				return nil, err
			}
			if goArg == nil {
				in[i] = reflect.Zero(t.In(i))
			} else {
				in[i] = reflect.ValueOf(goArg)
			}
		}
		results := fn.Call(in)
		if len(results) == 0 {
			return term.NewCombinator(ma.m.CombinatorStub("none")), nil
		}
		return ma.ToTerm(results[0].Interface())
	}, arity, nil
}
