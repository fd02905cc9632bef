package reducer

import (
	"testing"

	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/term"
)

// addOne is a trivial CombHost combinator with no observable side
// effects, used to check the reducer is deterministic (spec.md §8).
func addOne() *term.Combinator {
	return &term.Combinator{
		Name:  "addOne",
		Kind:  term.CombHost,
		Arity: 1,
		Host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			return term.NewInt(args[0].I + 1), nil
		},
	}
}

func TestReducerDeterminism(t *testing.T) {
	m := machine.New()
	head := term.NewCombinator(addOne())
	args := []*term.Term{term.NewInt(41)}

	r1 := New()
	res1, err := r1.Run(m, head, args)
	if err != nil {
		t.Fatalf("run 1: %v", err)
	}
	r2 := New()
	res2, err := r2.Run(m, head, args)
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if !term.Equal(res1, res2) {
		t.Fatalf("nondeterministic: %s != %s", term.Render(res1), term.Render(res2))
	}
	if res1.I != 42 {
		t.Fatalf("addOne 41 = %d, want 42", res1.I)
	}
}

func TestReducerHalt(t *testing.T) {
	// A combinator that spins by tail-calling itself forever; Halt must
	// stop the trampoline rather than loop forever.
	var self *term.Combinator
	self = &term.Combinator{Name: "spin", Kind: term.CombBytecode}
	runner := &spinRunner{}
	self.Code = runner

	r := New()
	runner.r = r
	_, err := r.Run(m(), term.NewCombinator(self), nil)
	if _, ok := err.(CancelError); !ok {
		t.Fatalf("expected CancelError, got %v", err)
	}
}

func m() *machine.Machine { return machine.New() }

// spinRunner's Run halts the reducer on its first invocation and returns
// a thunk that would otherwise tail-call forever, proving Halt is
// actually observed before another step runs.
type spinRunner struct {
	r *Reducer
}

func (s *spinRunner) Run(ds term.DataSource, thunk *term.Term) (*term.Term, error) {
	s.r.Halt()
	return thunk, nil
}

func TestReducerExceptionUncaught(t *testing.T) {
	thrower := &term.Combinator{
		Name:  "boom",
		Kind:  term.CombHost,
		Arity: 0,
		Host: func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
			return nil, &term.RaiseSignal{Value: term.NewText("boom")}
		},
	}
	r := New()
	_, err := r.Run(m(), term.NewCombinator(thrower), nil)
	exc, ok := err.(*term.UncaughtException)
	if !ok {
		t.Fatalf("expected *term.UncaughtException, got %v", err)
	}
	if exc.Value.Text != "boom" {
		t.Fatalf("exception value = %q, want %q", exc.Value.Text, "boom")
	}
}
