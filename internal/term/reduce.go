package term

import "fmt"

// This file implements the thunk-landing contract that spec §3.3/§4.1
// describe at a high level ("write rt[rti] <- R[x], return k") and that
// the original machine actually realizes by returning either a brand
// new application thunk (to keep trampolining) or a terminal value sent
// through the continuation. Two explicit, never-inferred primitives
// capture that: WriteResult for the terminal case, TailCall for the
// continue-reducing case. Land picks between them when a combinator's
// own reduction rule does not already know which applies.

// WriteResult stores value into the caller's result slot and returns
// the continuation thunk k, for the reducer to apply next.
func WriteResult(thunk, value *Term) *Term {
	rt := thunk.Arr[SlotRT]
	rti := int(thunk.Arr[SlotRTI].I)
	if rt != nil {
		rt.Set(rti, value)
	}
	return thunk.Arr[SlotK]
}

// TailCall builds a fresh thunk reusing the current thunk's rt/rti/k/exc
// slots with a new head and argument list, and returns it as the next
// step for the trampoline. O(1) Go stack regardless of chain length.
func TailCall(thunk, head *Term, args []*Term) *Term {
	return NewThunk(thunk.Arr[SlotRT], int(thunk.Arr[SlotRTI].I), thunk.Arr[SlotK], thunk.Arr[SlotExc], head, args)
}

// Raise delivers value to the thunk's exception handler. If none is
// installed, it returns an UncaughtException error for the reducer to
// surface to its caller.
func Raise(thunk, value *Term) (*Term, error) {
	exc := thunk.Arr[SlotExc]
	if exc == nil {
		return nil, &UncaughtException{Value: value}
	}
	// exc is itself a thunk-shaped array whose last argument slot is
	// reserved for the raised value.
	exc.Set(len(exc.Arr)-1, value)
	return exc, nil
}

// doneMarker is the sentinel continuation RunToValue installs at the
// root of its own nested trampoline, so it can tell when that chain has
// terminated.
var doneMarker = &Term{Tag: TagCombinator, Comb: &Combinator{Name: "<done>", Kind: CombData}}

// RunToValue synchronously drives head applied to args to completion on
// the calling goroutine, reusing the same Combinator.Reduce dispatch as
// the top-level trampoline. It is used for: strict evaluation of a
// bytecode combinator's over-application continuation, and wherever a
// host builtin needs a sub-expression's value immediately (forcing a
// strict argument, or running a try-block's guarded body). It is not
// O(1) Go stack for the nested call itself, only for the outer chain
// that invoked it -- a deliberate simplification, since every such use
// in this interpreter is shallow.
func RunToValue(ds DataSource, head *Term, args []*Term, exc *Term) (*Term, error) {
	result := NewArray(make([]*Term, 1))
	thunk := NewThunk(result, 0, doneMarker, exc, head, args)
	for {
		cur := thunk.Arr[SlotHead]
		if cur == nil || cur.Tag != TagCombinator {
			return nil, fmt.Errorf("cannot apply a non-function value")
		}
		next, err := cur.Comb.Reduce(ds, thunk)
		if err != nil {
			return nil, err
		}
		if next == nil || next == doneMarker {
			return result.Arr[0], nil
		}
		thunk = next
	}
}

// Force reduces v to weak head normal form when it is a pending
// application (a reducible combinator already holding at least its arity
// many arguments, or a bare nullary host/bytecode reference), and
// returns v unchanged otherwise — a literal, a data constructor's spine,
// or a partial application are already values. The bytecode interpreter
// calls this from TAG and TEST, the two instructions that need a
// concrete value to inspect or compare; every other register read
// (TAKEX/SPLIT on an already-built argument array) stays lazy.
func Force(ds DataSource, v *Term, exc *Term) (*Term, error) {
	if v == nil || v.norm {
		return v, nil
	}
	if v.Tag == TagCombinator && v.Comb.Kind != CombData && v.Comb.Arity == 0 {
		return RunToValue(ds, v, nil, exc)
	}
	if v.Tag != TagArray || len(v.Arr) == 0 {
		return v, nil
	}
	head := v.Arr[0]
	if head == nil || head.Tag != TagCombinator || head.Comb.Kind == CombData {
		return v, nil
	}
	if len(v.Arr)-1 < head.Comb.Arity {
		return v, nil
	}
	return RunToValue(ds, head, v.Arr[1:], exc)
}

// eagerForce drives v all the way to normal form: the head to whnf, then
// every argument of a data-constructor spine, recursively. Evaluation is
// strict, so a constructor's arguments are values by the time the spine
// lands as a result; the norm flag memoizes completion so re-landing an
// already-normal structure (a shared list tail, an interned literal)
// costs one field read instead of a walk.
func eagerForce(ds DataSource, v *Term, exc *Term) (*Term, error) {
	if v == nil || v.norm {
		return v, nil
	}
	v, err := Force(ds, v, exc)
	if err != nil {
		return nil, err
	}
	if v == nil || v.norm {
		return v, nil
	}
	if v.Tag == TagArray && len(v.Arr) > 0 {
		head := v.Arr[0]
		if head != nil && head.Tag == TagCombinator && head.Comb.Kind == CombData {
			changed := false
			elems := make([]*Term, len(v.Arr))
			elems[0] = head
			for i, a := range v.Arr[1:] {
				fa, err := eagerForce(ds, a, exc)
				if err != nil {
					return nil, err
				}
				elems[i+1] = fa
				if fa != a {
					changed = true
				}
			}
			if changed {
				v = NewArray(elems)
			}
		}
	}
	v.norm = true
	return v, nil
}

// Freeze marks t as already reduced, so Force and eager landing treat
// it as plain data from here on. Used for exception payloads that hold
// an application which must not re-reduce — the unmatched call a
// failure exception carries would otherwise raise again the moment a
// handler inspects it.
func Freeze(t *Term) *Term {
	if t != nil {
		t.norm = true
	}
	return t
}

// UncaughtException is returned by Raise when no handler is installed.
type UncaughtException struct {
	Value *Term
}

func (e *UncaughtException) Error() string {
	return "uncaught exception: " + e.Value.String()
}

// ExtendApplication flattens applying moreArgs to an already-computed
// value: if value is itself a pending application spine (head plus some
// arguments), the new arguments are appended to the existing ones
// rather than nested, mirroring how ARRAY/CONCATX keep a spine flat.
func ExtendApplication(value *Term, moreArgs []*Term) (head *Term, args []*Term) {
	if value != nil && value.Tag == TagArray && len(value.Arr) > 0 {
		if h := value.Arr[0]; h != nil && h.Tag == TagCombinator {
			combined := make([]*Term, 0, len(value.Arr)-1+len(moreArgs))
			combined = append(combined, value.Arr[1:]...)
			combined = append(combined, moreArgs...)
			return h, combined
		}
	}
	return value, moreArgs
}

// Land is the dynamic landing rule used wherever a combinator's result
// value is not statically known to be terminal or a further
// application: a bytecode RETURN register, or a host builtin's result.
// Because ARRAY/CONCATX always keep the true head in element 0 (they
// concatenate, never nest), checking that head's kind is enough to tell
// a finished value (data spine, literal, bare combinator reference)
// from a pending application that still needs reducing. A landed data
// spine has its arguments eagerly reduced first — evaluation is strict,
// so {1, f 2} lands holding f's value, never the pending application.
func Land(ds DataSource, thunk, value *Term) (*Term, error) {
	if value == nil || value.norm {
		return WriteResult(thunk, value), nil
	}
	// A bare 0-arity host/bytecode combinator reference is not itself a
	// finished value (unlike a 0-arity data constructor, e.g. true/nil):
	// it still has to run, since it already has all the arguments (zero)
	// it needs.
	if value.Tag == TagCombinator && value.Comb.Arity == 0 && value.Comb.Kind != CombData {
		return TailCall(thunk, value, nil), nil
	}
	if value.Tag != TagArray || len(value.Arr) == 0 {
		return WriteResult(thunk, value), nil
	}
	head := value.Arr[0]
	if head == nil {
		return WriteResult(thunk, value), nil
	}
	switch head.Tag {
	case TagCombinator:
		switch head.Comb.Kind {
		case CombBytecode, CombHost:
			return TailCall(thunk, head, value.Arr[1:]), nil
		default: // CombData
			forced, err := eagerForce(ds, value, thunk.Arr[SlotExc])
			if err != nil {
				if rs, ok := err.(*RaiseSignal); ok {
					return Raise(thunk, rs.Value)
				}
				return nil, err
			}
			return WriteResult(thunk, forced), nil
		}
	case TagArray:
		// Flattening in ARRAY/CONCATX should prevent this; defensive.
		return Raise(thunk, NewText("malformed application spine"))
	default:
		if len(value.Arr) > 1 {
			return Raise(thunk, NewText("cannot apply a non-function value"))
		}
		return WriteResult(thunk, value), nil
	}
}
