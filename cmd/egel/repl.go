package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/egel/internal/ast"
	"github.com/funvibe/egel/internal/compile"
	"github.com/funvibe/egel/internal/lexer"
	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/modules"
	"github.com/funvibe/egel/internal/parser"
	"github.com/funvibe/egel/internal/reducer"
)

// session holds the state eval_line threads across REPL lines: every
// "using" seen so far, prefixed onto each subsequent line's scope
// exactly as original_source/src/eval.hpp's Eval::_usings does.
type session struct {
	m     *machine.Machine
	mgr   *modules.Manager
	red   *reducer.Reducer
	opens []string
}

func newSession(m *machine.Machine, mgr *modules.Manager, red *reducer.Reducer) *session {
	return &session{m: m, mgr: mgr, red: red, opens: []string{"System"}}
}

// runREPL is the incremental, single-line reload loop (spec §4.5's last
// paragraph): each line is parsed, compiled against the shared Machine,
// and — if it denotes a value rather than a declaration — reduced and
// printed immediately. go-isatty gates the ">> " prompt banner so piped
// input (e.g. `echo expr | egel -`) stays quiet.
func runREPL(m *machine.Machine, mgr *modules.Manager, red *reducer.Reducer) {
	s := newSession(m, mgr, red)
	if _, err := mgr.Load("", "System"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if interactive {
		fmt.Print(">> ")
	}
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			s.evalLine(line, false)
		}
		if interactive {
			fmt.Print(">> ")
		}
	}
}

// evalLine implements eval_line: parse, route by declaration kind, and
// for a bare expression, wrap it as "val Dummy = <expr>" and reduce it.
// silent suppresses printing the result (used for the "-e" flag's
// leading "using System" priming line).
func (s *session) evalLine(line string, silent bool) {
	decls, wrapped, err := parseLine(line)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	for _, d := range decls {
		switch dd := d.(type) {
		case *ast.ImportDecl:
			if _, err := s.mgr.Load("", dd.Path); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case *ast.UsingDecl:
			// "using System" is the REPL/"-e" shorthand for bringing System
			// into scope without a separate "import": load it here so its
			// combinators are installed by the time a later line resolves
			// a bare name against it.
			if _, err := s.mgr.Load("", dd.Path); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			s.opens = append(s.opens, dd.Path)
		default:
			if err := s.compileOne(d); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return
			}
		}
	}

	if !wrapped {
		return
	}
	id, ok := s.m.Global("Dummy")
	if !ok {
		return
	}
	head := s.m.Data(id)
	result, err := s.red.Run(s.m, head, nil)
	if !silent {
		printResult(s.m, result, err)
	}
}

// compileOne runs Identify/Desugar/Lift/DeclareData/Emit for a single
// declaration against the session's accumulated "using" set, reusing
// compile.Pipeline exactly as internal/modules.loadSource does for a
// whole file (spec §4.5's "incremental loading reuses the same
// algorithm with a single-file queue", here narrowed to a single line).
func (s *session) compileOne(d ast.Decl) error {
	unit, err := compile.Pipeline([]ast.Decl{d}, s.opens, func(n string) bool { _, ok := s.m.Global(n); return ok })
	if err != nil {
		return err
	}
	compile.DeclareData(s.m, unit)
	return compile.Emit(s.m, unit)
}

// parseLine parses one REPL input line. A line beginning with a
// declaration keyword (data/def/val/import/using/namespace) parses as
// ordinary declarations; anything else is an expression, wrapped as
// "val Dummy = <line>" so the existing def machinery compiles and names
// it, matching handle_expression's Dummy-combinator trick.
func parseLine(line string) (decls []ast.Decl, wrapped bool, err error) {
	if isDeclLine(line) {
		prog, err := parser.ParseProgram("<repl>", line)
		if err != nil {
			return nil, false, err
		}
		return prog.Decls, false, nil
	}
	prog, err := parser.ParseProgram("<repl>", "val Dummy = "+line)
	if err != nil {
		return nil, false, err
	}
	return prog.Decls, true, nil
}

func isDeclLine(line string) bool {
	lx := lexer.New("<repl>", line)
	tok, err := lx.Next()
	if err != nil {
		return false
	}
	switch tok.Kind {
	case lexer.KwData, lexer.KwDef, lexer.KwVal, lexer.KwImport, lexer.KwUsing, lexer.KwNamespace:
		return true
	default:
		return false
	}
}

