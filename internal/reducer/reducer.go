// Package reducer drives the trampolined graph-reduction loop (spec
// §4.1): one Term.Reduce (well, Combinator.Reduce) call per step, with
// cooperative tri-state cancellation and exception delivery.
package reducer

import (
	"runtime"
	"sync/atomic"

	"github.com/funvibe/egel/internal/term"
)

// State is the cooperative cancellation state a long-running reduction
// checks between steps.
type State int32

const (
	Running State = iota
	Sleeping
	Halted
)

// Reducer runs one top-level reduction to completion (or cancellation);
// Run returns the final value, or a raised, uncaught value as a
// *term.UncaughtException error.
type Reducer struct {
	state atomic.Int32
}

// New builds a Reducer in the Running state.
func New() *Reducer {
	r := &Reducer{}
	r.state.Store(int32(Running))
	return r
}

func (r *Reducer) State() State { return State(r.state.Load()) }

// Halt cooperatively stops the reduction before its next step.
func (r *Reducer) Halt() { r.state.Store(int32(Halted)) }

// Sleep/Wake pause and resume between steps; while Sleeping, Run yields
// the goroutine and checks the state again instead of taking a step.
func (r *Reducer) Sleep() { r.state.Store(int32(Sleeping)) }
func (r *Reducer) Wake()  { r.state.Store(int32(Running)) }

// CancelError is returned by Run when the reducer was halted mid-chain.
type CancelError struct{}

func (CancelError) Error() string { return "reduction halted" }

// Run reduces head (a Combinator-tagged term) applied to args to a
// final term, calling Reduce once per trampoline step. It builds its
// own single-slot result array and continuation so the chain has
// somewhere to land (spec §3.3's rt/rti/k wiring), then unwraps that
// slot once the chain terminates.
func (r *Reducer) Run(ds term.DataSource, head *term.Term, args []*term.Term) (*term.Term, error) {
	result := term.NewArray(make([]*term.Term, 1))
	done := term.NewCombinator(&term.Combinator{Name: "<done>", Kind: term.CombData, Arity: 0})
	thunk := term.NewThunk(result, 0, done, nil, head, args)

	for {
		switch r.State() {
		case Halted:
			return nil, CancelError{}
		case Sleeping:
			runtime.Gosched()
			continue
		}

		cur := thunk.Arr[term.SlotHead]
		if cur == nil || cur.Tag != term.TagCombinator {
			return nil, &term.UncaughtException{Value: term.NewText("cannot apply a non-function value")}
		}
		next, err := cur.Comb.Reduce(ds, thunk)
		if err != nil {
			if _, ok := err.(*term.UncaughtException); ok {
				return nil, err
			}
			return nil, err
		}
		if next == nil || next == done {
			return result.Arr[0], nil
		}
		thunk = next
	}
}
