// Package term implements the runtime value model of the reduction
// machine: tagged terms, combinators, thunks, and the primitives a
// reducer uses to land a result or tail-call the next combinator.
//
// A Term is one of seven variants (spec §3.1): Integer, Float, Char,
// Text, Array, Combinator, Opaque. Arrays double as both data structures
// (lists, tuples, constructor applications) and thunks: the first five
// slots of a thunk array are reserved (spec §3.3) and every other array
// is a plain application spine [head, arg0, arg1, ...].
package term

import (
	"fmt"
	"math"
)

// Tag discriminates the term variants.
type Tag uint8

const (
	TagInteger Tag = iota
	TagFloat
	TagChar
	TagText
	TagArray
	TagCombinator
	TagOpaque
)

func (t Tag) String() string {
	switch t {
	case TagInteger:
		return "integer"
	case TagFloat:
		return "float"
	case TagChar:
		return "char"
	case TagText:
		return "text"
	case TagArray:
		return "array"
	case TagCombinator:
		return "combinator"
	case TagOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// CombinatorKind distinguishes the three ways a combinator reduces.
type CombinatorKind uint8

const (
	// CombData is a constructor: reducing it always yields itself
	// applied to its arguments, never anything else.
	CombData CombinatorKind = iota
	// CombHost is a Go-native builtin with a fixed arity.
	CombHost
	// CombBytecode runs an internal/bytecode program.
	CombBytecode
)

// HostFunc is the signature of a Go-native builtin. ds gives access to
// the data table for allocating results (e.g. boxing an int). args has
// exactly Combinator.Arity elements.
type HostFunc func(ds DataSource, args []*Term) (*Term, error)

// DataSource is the minimal view of the machine's data table a host
// builtin or the reducer needs: looking a literal up by its interned
// index. internal/symtab.Table implements this.
type DataSource interface {
	Data(id uint32) *Term
}

// Combinator is the symbolic identity and reduction rule for a named
// term: a data constructor, a host builtin, or a compiled bytecode
// program.
type Combinator struct {
	Symbol uint32 // interned name id, see internal/symtab
	Name   string // qualified name, for rendering/errors
	Kind   CombinatorKind
	Arity  int

	Host HostFunc // set iff Kind == CombHost
	Code CodeObject
}

// CodeObject is implemented by internal/bytecode.Program; kept as an
// interface here so internal/term has no dependency on internal/bytecode.
type CodeObject interface {
	Run(ds DataSource, thunk *Term) (*Term, error)
}

// Term is the universal runtime value. Only the field matching Tag is
// meaningful.
type Term struct {
	Tag Tag

	I    int64
	F    float64
	Ch   rune
	Text string
	Arr  []*Term
	Comb *Combinator
	Op   any // opaque payload, e.g. *os.File, net.Conn

	refs int32 // fidelity counter, see DESIGN.md
	// norm records that eager landing has fully normalized this term.
	// Monotone, write-once true; like refs it is maintained under the
	// one-reducer-per-thunk-chain discipline, not atomically.
	norm bool
}

// Thunk slot layout (spec §3.3): every thunk is an Array term whose
// first five elements are reserved.
const (
	SlotRT   = 0 // enclosing result array
	SlotRTI  = 1 // index into SlotRT to write the final value
	SlotK    = 2 // continuation thunk to return after landing a result
	SlotExc  = 3 // exception-handler thunk, or nil
	SlotHead = 4 // combinator/term currently being reduced
	SlotArgs = 5 // first argument, if any
)

func NewInt(i int64) *Term       { return &Term{Tag: TagInteger, I: i, refs: 1} }
func NewFloat(f float64) *Term   { return &Term{Tag: TagFloat, F: f, refs: 1} }
func NewChar(c rune) *Term       { return &Term{Tag: TagChar, Ch: c, refs: 1} }
func NewText(s string) *Term     { return &Term{Tag: TagText, Text: s, refs: 1} }
func NewOpaque(v any) *Term      { return &Term{Tag: TagOpaque, Op: v, refs: 1} }
func NewCombinator(c *Combinator) *Term {
	return &Term{Tag: TagCombinator, Comb: c, refs: 1}
}

// NewArray builds a plain (non-thunk) application spine or data
// structure: elems[0] is conventionally the head.
func NewArray(elems []*Term) *Term {
	return &Term{Tag: TagArray, Arr: elems, refs: 1}
}

// NewThunk assembles a thunk array from its reserved slots plus an
// application (head, args).
func NewThunk(rt *Term, rti int, k, exc, head *Term, args []*Term) *Term {
	arr := make([]*Term, SlotArgs+len(args))
	arr[SlotRT] = rt
	arr[SlotRTI] = NewInt(int64(rti))
	arr[SlotK] = k
	arr[SlotExc] = exc
	arr[SlotHead] = head
	copy(arr[SlotArgs:], args)
	return NewArray(arr)
}

// Retain/Release maintain the fidelity reference counter documented in
// SPEC_FULL.md §5. Go's GC does the actual reclaiming; this counter only
// backs the in-place Set invariant that debug builds check. No driver
// flag reports it.
func (t *Term) Retain() *Term {
	if t != nil {
		t.refs++
	}
	return t
}

func (t *Term) Release() {
	if t != nil {
		t.refs--
	}
}

// Set mutates element i of an array term in place. Used by WriteResult
// to fill a result slot, by Raise to hand the raised value to a handler
// thunk, and by the bytecode SET instruction. Panics on a shared array when built
// with the debug build tag (see term_debug.go).
func (t *Term) Set(i int, v *Term) {
	checkExclusive(t)
	t.Arr[i] = v
}

// Head returns a human name for error messages: the combinator name if
// this term is or applies one, else the tag.
func (t *Term) Head() string {
	if t == nil {
		return "nil"
	}
	switch t.Tag {
	case TagCombinator:
		return t.Comb.Name
	case TagArray:
		if len(t.Arr) > 0 && t.Arr[0] != nil {
			return t.Arr[0].Head()
		}
	}
	return t.Tag.String()
}

func (t *Term) String() string {
	switch t.Tag {
	case TagInteger:
		return fmt.Sprintf("%d", t.I)
	case TagFloat:
		return formatFloat(t.F)
	case TagChar:
		return fmt.Sprintf("%q", t.Ch)
	case TagText:
		return fmt.Sprintf("%q", t.Text)
	case TagCombinator:
		return t.Comb.Name
	case TagOpaque:
		return fmt.Sprintf("<opaque %T>", t.Op)
	case TagArray:
		return Render(t)
	}
	return "?"
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "+inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%g", f)
}
