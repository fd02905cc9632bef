package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/funvibe/egel/internal/bytecode"
	"github.com/funvibe/egel/internal/lexer"
	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/term"
)

// dumpTokens lexes src and prints one token per line, for -T.
func dumpTokens(file, src string) {
	lx := lexer.New(file, src)
	for {
		tok, err := lx.Next()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if tok.Kind == lexer.EOF {
			return
		}
		fmt.Printf("%s %d %q\n", tok.Pos, tok.Kind, tok.Text)
	}
}

// dumpDataTable prints every entry of m's data table by index, for -D,
// followed by a human-readable total of how much of it is literal data
// (as opposed to combinator stubs).
func dumpDataTable(m *machine.Machine) {
	entries := m.Symbols.Snapshot()
	var literalBytes uint64
	for i, v := range entries {
		fmt.Printf("%d\t%s\n", i, term.Render(v))
		if v != nil && v.Tag != term.TagCombinator {
			literalBytes += uint64(len(term.Render(v)))
		}
	}
	fmt.Fprintf(os.Stderr, "# %d entries, %s of literal data\n", len(entries), humanize.Bytes(literalBytes))
}

// dumpBytecode disassembles every bytecode combinator currently in m's
// data table, for -B, and reports the total compiled code size. A
// combinator is included once even if referenced from several places,
// since the data table interns by rendered value (a combinator's name).
func dumpBytecode(m *machine.Machine) {
	var totalBytes uint64
	for _, v := range m.Symbols.Snapshot() {
		if v == nil || v.Tag != term.TagCombinator || v.Comb.Kind != term.CombBytecode {
			continue
		}
		prog, ok := v.Comb.Code.(*bytecode.Program)
		if !ok {
			continue
		}
		fmt.Print(bytecode.Disassemble(v.Comb.Name, prog, m.Symbols))
		totalBytes += uint64(len(prog.Code))
	}
	fmt.Fprintf(os.Stderr, "# %s of compiled bytecode\n", humanize.Bytes(totalBytes))
}
