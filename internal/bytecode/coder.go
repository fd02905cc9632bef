package bytecode

import (
	"encoding/binary"

	"github.com/funvibe/egel/internal/symtab"
	"github.com/funvibe/egel/internal/term"
)

type regT = uint32
type indexT = uint16
type labelT = uint32

// Coder assembles one combinator's bytecode body: a byte-encoded
// instruction stream plus the constants it references in the data
// table. Labels are symbolic until Relabel resolves them to absolute
// byte offsets in a single relocation pass, mirroring the teacher-style
// Coder/relabel split ported from the original's bytecode.hpp.
type Coder struct {
	Code []byte

	symbols   *symtab.Table
	nextLabel labelT
	labelPos  map[labelT]int // label id -> byte offset once placed
	fixups    []fixup        // FAIL operands awaiting relocation
	nextReg   regT
}

type fixup struct {
	pos   int // byte offset of the label operand
	label labelT
}

// NewCoder starts a fresh coder bound to a symbol/data table.
func NewCoder(symbols *symtab.Table) *Coder {
	return &Coder{symbols: symbols, labelPos: make(map[labelT]int)}
}

// FreshRegister allocates the next unused register number.
func (c *Coder) FreshRegister() regT {
	r := c.nextReg
	c.nextReg++
	return r
}

// FreshLabel allocates a new symbolic label, to be fixed with Label.
func (c *Coder) FreshLabel() labelT {
	l := c.nextLabel
	c.nextLabel++
	return l
}

// Label marks the current code position as the target of l.
func (c *Coder) Label(l labelT) {
	c.labelPos[l] = len(c.Code)
}

func (c *Coder) emitOp(op Opcode) { c.Code = append(c.Code, byte(op)) }

func (c *Coder) emitReg(r regT) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], r)
	c.Code = append(c.Code, buf[:]...)
}

func (c *Coder) emitIndex(i indexT) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], i)
	c.Code = append(c.Code, buf[:]...)
}

func (c *Coder) emitLabelPlaceholder(l labelT) {
	c.fixups = append(c.fixups, fixup{pos: len(c.Code), label: l})
	c.emitReg(0) // 4-byte placeholder, patched by Relabel
}

func (c *Coder) EmitNil(x regT) {
	c.emitOp(OpNil)
	c.emitReg(x)
}

func (c *Coder) EmitMov(x, y regT) {
	c.emitOp(OpMov)
	c.emitReg(x)
	c.emitReg(y)
}

// EmitData loads data[i] (a literal previously interned via EnterData)
// into register x.
func (c *Coder) EmitData(x regT, i indexT) {
	c.emitOp(OpData)
	c.emitReg(x)
	c.emitIndex(i)
}

// EmitSet is the destructive array update: R[x][R[y].int] <- R[z].
// Valid only on a just-built, not-yet-aliased array (the same rule as
// term.Term.Set); the compiler assembles results with ARRAY/CONCATX and
// reserves SET for hand-written or assembled code that patches a hole
// in a fresh thunk.
func (c *Coder) EmitSet(x, y, z regT) {
	c.emitOp(OpSet)
	c.emitReg(x)
	c.emitReg(y)
	c.emitReg(z)
}

// EmitTakeX requires R[y] to be an array of at least off+n elements,
// writing elements off..off+n-1 into registers rStart..rStart+n-1. On
// mismatch it sets the match-fail flag without raising. off skips a
// constructor's head slot when destructuring its arguments.
func (c *Coder) EmitTakeX(rStart, y regT, off, n indexT) {
	c.emitOp(OpTakeX)
	c.emitReg(rStart)
	c.emitReg(y)
	c.emitIndex(off)
	c.emitIndex(n)
}

// EmitSplit requires R[y] to be an array of exactly off+n elements.
func (c *Coder) EmitSplit(rStart, y regT, off, n indexT) {
	c.emitOp(OpSplit)
	c.emitReg(rStart)
	c.emitReg(y)
	c.emitIndex(off)
	c.emitIndex(n)
}

// EmitArray builds R[x] from the contiguous registers R[y]..R[z].
func (c *Coder) EmitArray(x, y, z regT) {
	c.emitOp(OpArray)
	c.emitReg(x)
	c.emitReg(y)
	c.emitReg(z)
}

// EmitConcatX builds R[x] as the concatenation of R[y] with R[z] after
// dropping i leading elements of R[z]; a non-array operand is treated
// as a virtual single-element array.
func (c *Coder) EmitConcatX(x, y, z regT, i indexT) {
	c.emitOp(OpConcatX)
	c.emitReg(x)
	c.emitReg(y)
	c.emitReg(z)
	c.emitIndex(i)
}

// EmitTest sets the match-fail flag unless R[x] and R[y] are structurally
// equal.
func (c *Coder) EmitTest(x, y regT) {
	c.emitOp(OpTest)
	c.emitReg(x)
	c.emitReg(y)
}

// EmitTag sets the match-fail flag unless R[x]'s head combinator symbol
// equals R[y]'s. The pattern compiler always pairs it with a DATA load
// of the expected constructor into y, so the persisted text form stays
// symbolic (an "o" data line) rather than baking in a process-local
// symbol id.
func (c *Coder) EmitTag(x, y regT) {
	c.emitOp(OpTag)
	c.emitReg(x)
	c.emitReg(y)
}

// EmitFail jumps to l if the match-fail flag is set, clearing it either
// way.
func (c *Coder) EmitFail(l labelT) {
	c.emitOp(OpFail)
	c.emitLabelPlaceholder(l)
}

// EmitReturn ends the combinator's body, landing R[x] via term.Land.
func (c *Coder) EmitReturn(x regT) {
	c.emitOp(OpReturn)
	c.emitReg(x)
}

// EnterData interns a literal into the shared data table, for use with
// EmitData.
func (c *Coder) EnterData(v *term.Term) indexT {
	return indexT(c.symbols.EnterData(v))
}

// Relabel performs the single relocation pass: every FAIL label operand
// is patched from a symbolic id to the absolute byte offset recorded by
// Label.
func (c *Coder) Relabel() error {
	for _, fx := range c.fixups {
		pos, ok := c.labelPos[fx.label]
		if !ok {
			return errUnresolvedLabel(fx.label)
		}
		binary.BigEndian.PutUint32(c.Code[fx.pos:fx.pos+4], uint32(pos))
	}
	c.fixups = nil
	return nil
}

type errUnresolvedLabel labelT

func (e errUnresolvedLabel) Error() string {
	return "bytecode: unresolved label"
}

// NumRegisters reports how many registers this body uses, for the
// interpreter to size its register file.
func (c *Coder) NumRegisters() int { return int(c.nextReg) }
