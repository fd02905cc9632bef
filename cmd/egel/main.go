// Command egel is the batch/interactive driver for the interpreter:
// option parsing, module loading, and the top-level "reduce main" or
// REPL loop. Mirrors the teacher's own cmd/funxy driver in spirit
// (manual os.Args parsing, no "flag" package) while following the
// option set and semantics of original_source/src/egel.cpp.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/egel/internal/ast"
	"github.com/funvibe/egel/internal/cache"
	"github.com/funvibe/egel/internal/compile"
	"github.com/funvibe/egel/internal/config"
	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/modules"
	"github.com/funvibe/egel/internal/parser"
	"github.com/funvibe/egel/internal/reducer"
	"github.com/funvibe/egel/internal/term"
)

const (
	executableName    = "egel"
	executableVersion = "0.1.1"
)

// options is every flag egel.cpp's option table recognizes, parsed
// by parseArgs before any module loads.
type options struct {
	help        bool
	version     bool
	interactive bool
	include     []string
	eval        string
	hasEval     bool
	tokens      bool
	unparse     bool
	check       bool
	dataDump    bool
	liftDump    bool
	bytecode    bool
	file        string
	args        []string
}

func main() {
	opt, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "options error, try -h.")
		os.Exit(1)
	}

	if opt.help {
		displayUsage()
		return
	}
	if opt.version {
		displayVersion()
		return
	}

	include := buildIncludePath(opt.include)

	m := machine.New()
	store := openCache()
	if store != nil {
		defer store.Close()
	}
	mgr := modules.NewManager(m, include, store)
	red := reducer.New()

	if opt.file != "" {
		if err := loadFile(m, mgr, opt); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	installArgs(m, opt.args)

	switch {
	case opt.hasEval:
		runEval(m, mgr, red, opt.eval)
	case opt.file == "" || opt.interactive:
		runREPL(m, mgr, red)
	default:
		runMain(m, red)
	}
}

// parseArgs mirrors egel.cpp's parse_options: any argument matching a
// known short or long flag consumes its following argument when the
// flag takes one; everything else is a positional (the file, then its
// own arguments).
func parseArgs(args []string) (*options, error) {
	opt := &options{}
	var positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "-h", "--help":
			opt.help = true
		case "-v", "--version":
			opt.version = true
		case "-", "--interact":
			opt.interactive = true
		case "-I", "--include":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing argument to %s", a)
			}
			i++
			opt.include = append(opt.include, args[i])
		case "-e", "--eval":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing argument to %s", a)
			}
			i++
			opt.eval = args[i]
			opt.hasEval = true
		case "-T", "--tokens":
			opt.tokens = true
		case "-U", "--unparse":
			opt.unparse = true
		case "-X", "--check":
			opt.check = true
		case "-D", "--desugar":
			opt.dataDump = true
		case "-C", "--lift":
			opt.liftDump = true
		case "-B", "--bytes":
			opt.bytecode = true
		default:
			positional = append(positional, a)
		}
	}
	if len(positional) > 0 {
		opt.file = positional[0]
		opt.args = positional[1:]
	}
	return opt, nil
}

func buildIncludePath(explicit []string) []string {
	include := append([]string{}, explicit...)
	if len(include) == 0 {
		include = append(include, ".")
	}
	if env := os.Getenv(config.IncludeEnv); env != "" {
		include = append(include, strings.Split(env, ":")...)
	} else {
		include = append(include, config.DefaultInclude...)
	}
	return include
}

// openCache opens the on-disk disassembly cache under the user's cache
// directory, degrading to no cache (store == nil) rather than failing
// the whole run when that directory isn't writable.
func openCache() *cache.Cache {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil
	}
	dir = filepath.Join(dir, "egel")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil
	}
	store, err := cache.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		return nil
	}
	return store
}

// loadFile runs any requested debug dumps against opt.file, then loads
// it (and its transitive imports) into mgr's Machine.
func loadFile(m *machine.Machine, mgr *modules.Manager, opt *options) error {
	raw, err := os.ReadFile(opt.file)
	if err != nil {
		return fmt.Errorf("egel: %s: %w", opt.file, err)
	}
	src := string(raw)

	if opt.tokens {
		dumpTokens(opt.file, src)
	}
	if opt.unparse || opt.check {
		prog, err := parser.ParseProgram(opt.file, src)
		if err != nil {
			return err
		}
		if opt.unparse {
			fmt.Print(ast.Dump(prog.Decls))
		}
		if opt.check {
			if _, err := mgr.Load(filepath.Dir(opt.file), "System"); err != nil {
				return err
			}
			unit, err := compile.Pipeline(prog.Decls, []string{"System"}, func(n string) bool { _, ok := m.Global(n); return ok })
			if err != nil {
				return err
			}
			fmt.Print(unit.Dump())
		}
	}

	dir := filepath.Dir(opt.file)
	base := stripSourceExt(filepath.Base(opt.file))
	if _, err := mgr.Load(dir, base); err != nil {
		return err
	}

	if opt.dataDump {
		dumpDataTable(m)
	}
	if opt.liftDump {
		out, err := mgr.DumpYAML()
		if err != nil {
			return err
		}
		fmt.Print(out)
	}
	if opt.bytecode {
		dumpBytecode(m)
	}
	return nil
}

// installArgs registers System::args, a nullary combinator returning the
// command line's trailing positional arguments (everything after the
// script name) as a text list, mirroring egel.cpp's argv forwarding.
func installArgs(m *machine.Machine, args []string) {
	list := term.NewCombinator(m.CombinatorStub("nil"))
	consComb := m.CombinatorStub("cons")
	for i := len(args) - 1; i >= 0; i-- {
		list = term.NewArray([]*term.Term{term.NewCombinator(consComb), term.NewText(args[i]), list})
	}
	stub := m.CombinatorStub("System::args")
	stub.Kind = term.CombHost
	stub.Arity = 0
	stub.Host = func(term.DataSource, []*term.Term) (*term.Term, error) {
		return list, nil
	}
}

func stripSourceExt(name string) string {
	name = strings.TrimSuffix(name, config.SourceExt)
	name = strings.TrimSuffix(name, config.DynamicExt)
	return name
}

// runMain reduces the "main" combinator, matching eval_main's batch
// mode: a script with no "main" simply does nothing further.
func runMain(m *machine.Machine, red *reducer.Reducer) {
	id, ok := m.Global("main")
	if !ok {
		return
	}
	head := m.Data(id)
	if head == nil || head.Tag != term.TagCombinator || head.Comb.Kind == term.CombData {
		return
	}
	result, err := red.Run(m, head, nil)
	printResult(m, result, err)
}

func runEval(m *machine.Machine, mgr *modules.Manager, red *reducer.Reducer, expr string) {
	s := newSession(m, mgr, red)
	s.evalLine("using System", true)
	s.evalLine(expr, false)
}

func printResult(m *machine.Machine, result *term.Term, err error) {
	if err != nil {
		if exc, ok := err.(*term.UncaughtException); ok {
			fmt.Printf("exception(%s)\n", term.Render(exc.Value))
			return
		}
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if result == nil {
		return
	}
	if result.Tag == term.TagCombinator && result.Comb.Name == "none" {
		return
	}
	fmt.Println(term.Render(result))
}

func displayUsage() {
	fmt.Printf("Usage: %s [options] [filename]\n", executableName)
	fmt.Println("Options:")
	rows := []struct{ short, long, arg, desc string }{
		{"-h", "--help", "", "display usage"},
		{"-v", "--version", "", "display version"},
		{"-", "--interact", "", "interactive mode (default)"},
		{"-I", "--include", "<dir>", "add include directory"},
		{"-e", "--eval", "<text>", "evaluate command"},
		{"-T", "--tokens", "", "output all tokens (debug)"},
		{"-U", "--unparse", "", "output the parse tree (debug)"},
		{"-X", "--check", "", "output analyzed tree (debug)"},
		{"-D", "--desugar", "", "output data table (debug)"},
		{"-C", "--lift", "", "output resolved module graph (debug)"},
		{"-B", "--bytes", "", "output bytecode (debug)"},
	}
	for _, r := range rows {
		fmt.Printf("\t[%s|%s]\t%-6s\t%s\n", r.short, r.long, r.arg, r.desc)
	}
}

func displayVersion() {
	fmt.Printf("%s %s\n", executableName, executableVersion)
}

