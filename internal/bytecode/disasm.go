package bytecode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/egel/internal/term"
)

// Disassemble renders p in the spec's canonical text format: a header
// naming the combinator, a code section (one instruction per line,
// hex offset + mnemonic + decimal operands, except FAIL's label, which is
// hex), a data section (one typed
// literal or combinator reference per line), and an "end" terminator.
// This is both the -B debug dump and the form internal/cache persists.
type dataLine struct {
	kind byte // i/f/c/t/o
	slot regT
	id   int
	text string
}

func Disassemble(name string, p *Program, ds term.DataSource) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "bytecode 01\n  %s\ncode\n", name)

	var dataLines []dataLine

	code := p.Code
	pc := 0
	for pc < len(code) {
		off := pc
		op := Opcode(code[pc])
		pc++
		switch op {
		case OpNil:
			x := readReg(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x nil %d\n", off, x)
		case OpMov:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x mov %d %d\n", off, x, y)
		case OpData:
			x := readReg(code, &pc)
			i := readIndex(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x data %d %d\n", off, x, i)
			dataLines = append(dataLines, renderDataLine(x, int(i), ds.Data(uint32(i))))
		case OpSet:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			z := readReg(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x set %d %d %d\n", off, x, y, z)
		case OpTakeX:
			r := readReg(code, &pc)
			y := readReg(code, &pc)
			o := readIndex(code, &pc)
			n := readIndex(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x takex %d %d %d %d\n", off, r, y, o, n)
		case OpSplit:
			r := readReg(code, &pc)
			y := readReg(code, &pc)
			o := readIndex(code, &pc)
			n := readIndex(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x split %d %d %d %d\n", off, r, y, o, n)
		case OpArray:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			z := readReg(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x array %d %d %d\n", off, x, y, z)
		case OpConcatX:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			z := readReg(code, &pc)
			i := readIndex(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x concatx %d %d %d %d\n", off, x, y, z, i)
		case OpTest:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x test %d %d\n", off, x, y)
		case OpTag:
			x := readReg(code, &pc)
			y := readReg(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x tag %d %d\n", off, x, y)
		case OpFail:
			l := readLabel(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x fail 0x%04x\n", off, l)
		case OpReturn:
			x := readReg(code, &pc)
			fmt.Fprintf(&sb, "  0x%04x return %d\n", off, x)
		default:
			fmt.Fprintf(&sb, "  0x%04x ??? %d\n", off, op)
		}
	}

	sb.WriteString("data\n")
	for _, dl := range dataLines {
		switch dl.kind {
		case 'i':
			fmt.Fprintf(&sb, "  i %d %d %s\n", dl.slot, dl.id, dl.text)
		case 'f':
			fmt.Fprintf(&sb, "  f %d %d %s\n", dl.slot, dl.id, dl.text)
		case 'c':
			fmt.Fprintf(&sb, "  c %d %d '%s'\n", dl.slot, dl.id, dl.text)
		case 't':
			fmt.Fprintf(&sb, "  t %d %d %q\n", dl.slot, dl.id, dl.text)
		case 'o':
			fmt.Fprintf(&sb, "  o %d %d %s\n", dl.slot, dl.id, dl.text)
		}
	}
	sb.WriteString("end\n")
	return sb.String()
}

func renderDataLine(slot regT, id int, v *term.Term) dataLine {
	if v == nil {
		return dataLine{kind: 'o', slot: slot, id: id, text: "?"}
	}
	switch v.Tag {
	case term.TagInteger:
		return dataLine{kind: 'i', slot: slot, id: id, text: strconv.FormatInt(v.I, 10)}
	case term.TagFloat:
		return dataLine{kind: 'f', slot: slot, id: id, text: term.Render(v)}
	case term.TagChar:
		return dataLine{kind: 'c', slot: slot, id: id, text: string(v.Ch)}
	case term.TagText:
		return dataLine{kind: 't', slot: slot, id: id, text: v.Text}
	case term.TagCombinator:
		return dataLine{kind: 'o', slot: slot, id: id, text: v.Comb.Name}
	default:
		return dataLine{kind: 'o', slot: slot, id: id, text: "?"}
	}
}
