package bytecode

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/egel/internal/symtab"
	"github.com/funvibe/egel/internal/term"
)

// Assemble parses the text format Disassemble produces back into a
// Program. It re-interns every literal (including "o" combinator
// references, which resolve through the same machine-wide data table
// DATA instructions always use) so an assembled program never aliases
// the table of whatever combinator produced the text: the
// disassemble/assemble round trip in spec §8 yields an independent but
// equivalent combinator.
func Assemble(text string, symbols *symtab.Table) (name string, prog *Program, err error) {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	section := ""
	var codeLines []string
	var dataLines []string
	maxReg := regT(0)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "bytecode "):
			section = "header"
			continue
		case strings.HasPrefix(line, "data "):
			section = "header"
			if f := strings.Fields(line); len(f) >= 3 {
				name = f[2]
			}
			continue
		case line == "code":
			section = "code"
			continue
		case line == "data":
			section = "data"
			continue
		case line == "end":
			section = ""
			continue
		}
		switch section {
		case "header":
			name = line
		case "code":
			codeLines = append(codeLines, line)
		case "data":
			dataLines = append(dataLines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return "", nil, err
	}
	if name == "" {
		return "", nil, fmt.Errorf("bytecode: missing header name")
	}

	// A "data 01 Name end" shorthand (a bare 0-ary data constructor, not
	// a bytecode body) has no code/data sections of its own.
	if len(codeLines) == 0 && len(dataLines) == 0 {
		return name, &Program{}, nil
	}

	// First pass over data lines: learn each data_id's literal value and
	// each "o" slot's referenced name, keyed by (kind, local data_id as
	// it appeared in the text).
	type dataEnt struct {
		kind byte
		text string
	}
	byID := make(map[int]dataEnt)
	for _, dl := range dataLines {
		fields := strings.Fields(dl)
		if len(fields) < 3 {
			return "", nil, fmt.Errorf("bytecode: malformed data line %q", dl)
		}
		kind := fields[0][0]
		id, err := strconv.Atoi(fields[2])
		if err != nil {
			return "", nil, fmt.Errorf("bytecode: bad data id in %q: %w", dl, err)
		}
		rest := ""
		if parts := strings.SplitN(dl, " ", 4); len(parts) == 4 {
			rest = strings.TrimSpace(parts[3])
		}
		byID[id] = dataEnt{kind: kind, text: rest}
	}

	c := NewCoder(symbols)
	dataIdxRemap := make(map[int]indexT) // original text data_id -> freshly-interned index

	for _, cl := range codeLines {
		fields := strings.Fields(cl)
		if len(fields) < 2 {
			return "", nil, fmt.Errorf("bytecode: malformed code line %q", cl)
		}
		mnemonic := fields[1]
		op, ok := namesToOpcode[mnemonic]
		if !ok {
			return "", nil, fmt.Errorf("bytecode: unknown mnemonic %q", mnemonic)
		}
		args := fields[2:]
		atoi := func(s string) int {
			v, _ := strconv.ParseInt(s, 0, 64)
			return int(v)
		}
		trackReg := func(r regT) regT {
			if r+1 > maxReg {
				maxReg = r + 1
			}
			return r
		}
		switch op {
		case OpNil:
			c.EmitNil(trackReg(regT(atoi(args[0]))))
		case OpMov:
			c.EmitMov(trackReg(regT(atoi(args[0]))), trackReg(regT(atoi(args[1]))))
		case OpData:
			x := trackReg(regT(atoi(args[0])))
			origID := atoi(args[1])
			idx, ok := dataIdxRemap[origID]
			if !ok {
				ent, ok := byID[origID]
				if !ok {
					return "", nil, fmt.Errorf("bytecode: DATA references unknown data id %d", origID)
				}
				idx = c.EnterData(literalFromEntry(ent.kind, ent.text))
				dataIdxRemap[origID] = idx
			}
			c.EmitData(x, idx)
		case OpSet:
			c.EmitSet(trackReg(regT(atoi(args[0]))), trackReg(regT(atoi(args[1]))), trackReg(regT(atoi(args[2]))))
		case OpTakeX:
			c.EmitTakeX(trackReg(regT(atoi(args[0]))), trackReg(regT(atoi(args[1]))), indexT(atoi(args[2])), indexT(atoi(args[3])))
		case OpSplit:
			c.EmitSplit(trackReg(regT(atoi(args[0]))), trackReg(regT(atoi(args[1]))), indexT(atoi(args[2])), indexT(atoi(args[3])))
		case OpArray:
			c.EmitArray(trackReg(regT(atoi(args[0]))), trackReg(regT(atoi(args[1]))), trackReg(regT(atoi(args[2]))))
		case OpConcatX:
			c.EmitConcatX(trackReg(regT(atoi(args[0]))), trackReg(regT(atoi(args[1]))), trackReg(regT(atoi(args[2]))), indexT(atoi(args[3])))
		case OpTest:
			c.EmitTest(trackReg(regT(atoi(args[0]))), trackReg(regT(atoi(args[1]))))
		case OpTag:
			c.EmitTag(trackReg(regT(atoi(args[0]))), trackReg(regT(atoi(args[1]))))
		case OpFail:
			c.Code = append(c.Code, byte(OpFail))
			var buf [4]byte
			v := uint32(atoi(args[0]))
			buf[0] = byte(v >> 24)
			buf[1] = byte(v >> 16)
			buf[2] = byte(v >> 8)
			buf[3] = byte(v)
			c.Code = append(c.Code, buf[:]...)
		case OpReturn:
			c.EmitReturn(trackReg(regT(atoi(args[0]))))
		}
	}
	c.nextReg = maxReg
	prog, err = FromCoder(c)
	if err != nil {
		return "", nil, err
	}
	return name, prog, nil
}

// literalFromEntry rebuilds the *term.Term a data line described. An "o"
// entry names a combinator rather than carrying a value inline: EnterData
// interns by rendered name, so re-assembling text that references an
// already-declared combinator (the common case — DeclareData seeds every
// top-level stub before any body is compiled) dedups against the existing
// stub instead of minting an orphan.
func literalFromEntry(kind byte, text string) *term.Term {
	switch kind {
	case 'i':
		v, _ := strconv.ParseInt(text, 10, 64)
		return term.NewInt(v)
	case 'f':
		v, _ := strconv.ParseFloat(text, 64)
		return term.NewFloat(v)
	case 'c':
		t := strings.Trim(text, "'")
		r := []rune(t)
		if len(r) == 0 {
			return term.NewChar(0)
		}
		return term.NewChar(r[0])
	case 't':
		s, _ := strconv.Unquote(text)
		return term.NewText(s)
	case 'o':
		return term.NewCombinator(&term.Combinator{Name: text})
	default:
		return term.NewText(text)
	}
}
