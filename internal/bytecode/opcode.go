// Package bytecode implements the 12-opcode register machine spec §4.2
// describes: a Coder for code/data emission with a single relocation
// pass, the fetch-decode-dispatch interpreter, and the disassembler/
// assembler pair for the persisted text format (spec §6).
package bytecode

// Opcode is one of the fixed 12 instructions. Operand widths are fixed:
// an opcode is 1 byte, a register is 4 bytes, a data/symbol index is 2
// bytes, and a label is 4 bytes (an absolute byte offset, after
// relocation).
type Opcode byte

const (
	OpNil Opcode = iota
	OpMov
	OpData
	OpSet
	OpTakeX
	OpSplit
	OpArray
	OpConcatX
	OpTest
	OpTag
	OpFail
	OpReturn
)

var opcodeNames = map[Opcode]string{
	OpNil:     "nil",
	OpMov:     "mov",
	OpData:    "data",
	OpSet:     "set",
	OpTakeX:   "takex",
	OpSplit:   "split",
	OpArray:   "array",
	OpConcatX: "concatx",
	OpTest:    "test",
	OpTag:     "tag",
	OpFail:    "fail",
	OpReturn:  "return",
}

var namesToOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "?"
}
