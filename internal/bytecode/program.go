package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/funvibe/egel/internal/term"
)

// Program is one combinator's compiled body: relocated code and the
// number of registers it needs. It implements term.CodeObject. Free
// combinator references (recursive self-calls, mutually recursive
// siblings, imported names) are never resolved here: per spec §3.4
// they are DATA instructions against the shared data table, same as
// any other literal. The data table entry is a live *term.Combinator
// stub that internal/compile's DeclareData stage registers and its Emit
// stage fills in place once the referenced body finishes compiling (see
// machine.Machine.CombinatorStub), which is what lets mutually- and
// self-recursive definitions resolve without a separate link pass.
type Program struct {
	Code    []byte
	NumRegs int
}

// FromCoder relocates and finalizes a Coder into a Program.
func FromCoder(c *Coder) (*Program, error) {
	if err := c.Relabel(); err != nil {
		return nil, err
	}
	return &Program{
		Code:    append([]byte(nil), c.Code...),
		NumRegs: c.NumRegisters(),
	}, nil
}

// registers is the per-reduction-step register file. A fast fixed-size
// array backs the common case; overflow falls back to a map, matching
// the teacher-grounded "small fast path, map overflow" Registers idiom.
type registers struct {
	fast [64]*term.Term
	over map[regT]*term.Term
}

func (r *registers) get(i regT) *term.Term {
	if i < uint32(len(r.fast)) {
		return r.fast[i]
	}
	if r.over == nil {
		return nil
	}
	return r.over[i]
}

func (r *registers) set(i regT, v *term.Term) {
	if i < uint32(len(r.fast)) {
		r.fast[i] = v
		return
	}
	if r.over == nil {
		r.over = make(map[regT]*term.Term)
	}
	r.over[i] = v
}

// Run executes the fetch-decode-dispatch loop over the 12 opcodes
// (spec §4.2), landing the final RETURN value with term.Land.
func (p *Program) Run(ds term.DataSource, thunk *term.Term) (*term.Term, error) {
	var reg registers
	// R[0] holds the plain argument array (no rt/rti/k/exc prefix), so
	// the match compiler's SPLIT/TAKEX can destructure parameters
	// directly without accounting for the reserved thunk slots.
	reg.set(0, term.NewArray(thunk.Arr[term.SlotArgs:]))
	code := p.Code
	pc := 0
	fail := false

	for {
		if pc >= len(code) {
			return nil, fmt.Errorf("bytecode: fell off the end of the program")
		}
		op := Opcode(code[pc])
		pc++
		switch op {
		case OpNil:
			x := readReg(code, &pc)
			reg.set(x, nil)

		case OpMov:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			reg.set(x, reg.get(y))

		case OpData:
			x := readReg(code, &pc)
			i := readIndex(code, &pc)
			reg.set(x, ds.Data(uint32(i)))

		case OpSet:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			z := readReg(code, &pc)
			arr := reg.get(x)
			idx := reg.get(y)
			if arr == nil || arr.Tag != term.TagArray || idx == nil || idx.Tag != term.TagInteger {
				return nil, fmt.Errorf("bytecode: SET on a non-array or non-integer index")
			}
			if int(idx.I) < 0 || int(idx.I) >= len(arr.Arr) {
				return nil, fmt.Errorf("bytecode: SET index out of range")
			}
			arr.Set(int(idx.I), reg.get(z))

		case OpTakeX:
			rStart := readReg(code, &pc)
			y := readReg(code, &pc)
			off := readIndex(code, &pc)
			n := readIndex(code, &pc)
			src := reg.get(y)
			if src == nil || src.Tag != term.TagArray || len(src.Arr) < int(off)+int(n) {
				fail = true
				break
			}
			for k := 0; k < int(n); k++ {
				reg.set(rStart+uint32(k), src.Arr[int(off)+k])
			}

		case OpSplit:
			rStart := readReg(code, &pc)
			y := readReg(code, &pc)
			off := readIndex(code, &pc)
			n := readIndex(code, &pc)
			src := reg.get(y)
			if src == nil || src.Tag != term.TagArray || len(src.Arr) != int(off)+int(n) {
				fail = true
				break
			}
			for k := 0; k < int(n); k++ {
				reg.set(rStart+uint32(k), src.Arr[int(off)+k])
			}

		case OpArray:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			z := readReg(code, &pc)
			elems := make([]*term.Term, 0, z-y+1)
			for r := y; r <= z; r++ {
				elems = append(elems, reg.get(r))
			}
			reg.set(x, term.NewArray(elems))

		case OpConcatX:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			z := readReg(code, &pc)
			i := readIndex(code, &pc)
			reg.set(x, concatX(reg.get(y), reg.get(z), int(i)))

		case OpTest:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			vx, err := term.Force(ds, reg.get(x), thunk.Arr[term.SlotExc])
			if err != nil {
				return nil, err
			}
			vy, err := term.Force(ds, reg.get(y), thunk.Arr[term.SlotExc])
			if err != nil {
				return nil, err
			}
			reg.set(x, vx)
			reg.set(y, vy)
			if !term.Equal(vx, vy) {
				fail = true
			}

		case OpTag:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			v, err := term.Force(ds, reg.get(x), thunk.Arr[term.SlotExc])
			if err != nil {
				return nil, err
			}
			reg.set(x, v)
			sx, okx := headSymbol(v)
			sy, oky := headSymbol(reg.get(y))
			if !okx || !oky || sx != sy {
				fail = true
			}

		case OpFail:
			label := readLabel(code, &pc)
			if fail {
				fail = false
				pc = int(label)
			}

		case OpReturn:
			x := readReg(code, &pc)
			return term.Land(ds, thunk, reg.get(x))

		default:
			return nil, fmt.Errorf("bytecode: unknown opcode %d", op)
		}
	}
}

func headSymbol(v *term.Term) (uint32, bool) {
	if v == nil {
		return 0, false
	}
	switch v.Tag {
	case term.TagCombinator:
		return v.Comb.Symbol, true
	case term.TagArray:
		if len(v.Arr) == 0 {
			return 0, false
		}
		return headSymbol(v.Arr[0])
	default:
		return 0, false
	}
}

// concatX implements y ++ drop(i, z), treating a non-array operand as a
// virtual single-element array, matching the original's CONCATX.
func concatX(y, z *term.Term, i int) *term.Term {
	ys := asElems(y)
	zs := asElems(z)
	if i < len(zs) {
		zs = zs[i:]
	} else {
		zs = nil
	}
	out := make([]*term.Term, 0, len(ys)+len(zs))
	out = append(out, ys...)
	out = append(out, zs...)
	return term.NewArray(out)
}

func asElems(t *term.Term) []*term.Term {
	if t == nil {
		return nil
	}
	if t.Tag == term.TagArray {
		return t.Arr
	}
	return []*term.Term{t}
}

func readReg(code []byte, pc *int) regT {
	v := binary.BigEndian.Uint32(code[*pc:])
	*pc += 4
	return v
}

func readIndex(code []byte, pc *int) indexT {
	v := binary.BigEndian.Uint16(code[*pc:])
	*pc += 2
	return v
}

func readLabel(code []byte, pc *int) labelT {
	v := binary.BigEndian.Uint32(code[*pc:])
	*pc += 4
	return v
}
