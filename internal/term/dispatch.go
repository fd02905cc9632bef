package term

import "fmt"

// RaiseSignal lets a HostFunc raise an arbitrary term (not just a text
// message) as an exception: returning &RaiseSignal{Value: v} as its
// error causes the reducer to deliver v itself, unmodified, to the
// installed exception handler.
type RaiseSignal struct{ Value *Term }

func (e *RaiseSignal) Error() string { return fmt.Sprintf("raise: %s", e.Value) }

// Reduce applies the combinator at the head of thunk's application one
// step, following the under/exact/over-arity discipline every
// combinator kind shares (spec §3.2's Combinator.Arity): under-arity is
// always a stable partial value, exact arity triggers the kind-specific
// computation, and over-arity computes at exact arity then tail-calls
// the result with the leftover arguments (the CONCATX/over-application
// property in spec §8).
func (c *Combinator) Reduce(ds DataSource, thunk *Term) (*Term, error) {
	args := thunk.Arr[SlotArgs:]
	head := thunk.Arr[SlotHead]
	n := len(args)

	if n < c.Arity {
		return WriteResult(thunk, partialValue(head, args)), nil
	}

	exact := args[:c.Arity]
	leftover := args[c.Arity:]

	switch c.Kind {
	case CombData:
		// A data-constructor head with any arguments is a spine: it
		// evaluates to itself, with its arguments reduced on landing.
		return Land(ds, thunk, partialValue(head, args))

	case CombHost:
		result, err := c.Host(ds, exact)
		if err != nil {
			return raiseFrom(thunk, err)
		}
		if len(leftover) == 0 {
			return Land(ds, thunk, result)
		}
		nh, nargs := ExtendApplication(result, leftover)
		return TailCall(thunk, nh, nargs), nil

	case CombBytecode:
		if len(leftover) == 0 {
			return c.Code.Run(ds, thunk)
		}
		result, err := RunToValue(ds, head, exact, thunk.Arr[SlotExc])
		if err != nil {
			return nil, err
		}
		nh, nargs := ExtendApplication(result, leftover)
		return TailCall(thunk, nh, nargs), nil

	default:
		return Raise(thunk, NewText("unknown combinator kind"))
	}
}

func partialValue(head *Term, args []*Term) *Term {
	if len(args) == 0 {
		return head
	}
	return NewArray(append([]*Term{head}, args...))
}

// raiseFrom re-raises a host builtin's error as a term. Both carrier
// types unwrap to their original value: a RaiseSignal from a direct
// raise, and an UncaughtException from a nested RunToValue chain (a
// handler that itself throws surfaces this way) — the thrown term must
// reach the next handler unchanged, never as rendered text.
func raiseFrom(thunk *Term, err error) (*Term, error) {
	switch e := err.(type) {
	case *RaiseSignal:
		return Raise(thunk, e.Value)
	case *UncaughtException:
		return Raise(thunk, e.Value)
	default:
		return Raise(thunk, NewText(err.Error()))
	}
}
