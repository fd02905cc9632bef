package modules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/funvibe/egel/internal/ast"
	"github.com/funvibe/egel/internal/builtin"
	"github.com/funvibe/egel/internal/bytecode"
	"github.com/funvibe/egel/internal/cache"
	"github.com/funvibe/egel/internal/compile"
	"github.com/funvibe/egel/internal/config"
	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/parser"
	"github.com/funvibe/egel/internal/pluginabi"
	"github.com/funvibe/egel/internal/term"
)

// Manager loads modules against a single Machine, threading the
// transitive import closure and a cycle guard through recursive Load
// calls (spec §4.5).
type Manager struct {
	m       *machine.Machine
	include []string
	store   *cache.Cache // nil disables the disassembly cache entirely

	loading map[string]bool // cycle guard, keyed by resolved identity
	order   []string        // load order, for -C's dump
}

// NewManager builds a Manager searching include (plus the importing
// file's own directory) for unqualified import paths, falling back to
// config.DefaultInclude when include is empty. store may be nil.
func NewManager(m *machine.Machine, include []string, store *cache.Cache) *Manager {
	if len(include) == 0 {
		include = config.DefaultInclude
	}
	return &Manager{m: m, include: include, store: store, loading: map[string]bool{}}
}

// Order returns every module identity loaded so far, in load-completion
// order (a dependency before its dependents) — what the -C flag renders.
func (mgr *Manager) Order() []string { return append([]string{}, mgr.order...) }

// Load resolves path relative to fromDir (the importing file's directory,
// or "" for a top-level entry point) and loads it and its transitive
// imports into the Manager's Machine, returning the cached Module on a
// repeat import of the same identity (spec §8 "Module-load idempotence").
func (mgr *Manager) Load(fromDir, path string) (*Module, error) {
	if path == "System" {
		return mgr.loadInternal()
	}

	identity, kind, fsPath, err := mgr.resolve(fromDir, path)
	if err != nil {
		return nil, err
	}
	if existing, ok := mgr.m.ModuleSlot(identity); ok {
		return existing.(*Module), nil
	}
	if mgr.loading[identity] {
		return nil, fmt.Errorf("modules: import cycle at %s", identity)
	}
	mgr.loading[identity] = true
	defer delete(mgr.loading, identity)

	var mod *Module
	switch kind {
	case KindDynamic:
		mod, err = mgr.loadDynamic(identity, fsPath)
	default:
		mod, err = mgr.loadSource(identity, fsPath)
	}
	if err != nil {
		return nil, err
	}
	mgr.m.SetModuleSlot(identity, mod)
	mgr.order = append(mgr.order, identity)
	return mod, nil
}

func (mgr *Manager) loadInternal() (*Module, error) {
	const identity = "internal:System"
	if existing, ok := mgr.m.ModuleSlot(identity); ok {
		return existing.(*Module), nil
	}
	builtin.Install(mgr.m)
	mod := &Module{Identity: identity, Kind: KindInternal}
	mgr.m.SetModuleSlot(identity, mod)
	mgr.order = append(mgr.order, identity)
	return mod, nil
}

func (mgr *Manager) loadDynamic(identity, fsPath string) (*Module, error) {
	native, err := pluginabi.OpenNative(fsPath)
	if err != nil {
		// A source-inspection failure is definitive: this is a native
		// plugin, its source is broken, and dialing it as a remote target
		// would only bury the diagnostic.
		var se *pluginabi.SourceError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("modules: %s: %w", fsPath, err)
		}
		// fsPath names a remote target (host:port) rather than a local .so.
		remote, derr := pluginabi.DialRemote(fsPath)
		if derr != nil {
			return nil, fmt.Errorf("modules: %s: neither a native plugin (%v) nor reachable as a remote module (%v)", fsPath, err, derr)
		}
		return mgr.finishDynamic(identity, nil, remote)
	}
	return mgr.finishDynamic(identity, native, nil)
}

func (mgr *Manager) finishDynamic(identity string, native *pluginabi.Native, remote *pluginabi.Remote) (*Module, error) {
	mod := &Module{Identity: identity, Kind: KindDynamic, native: native, remote: remote}

	var imports []string
	var err error
	if native != nil {
		imports, err = native.Imports()
	} else {
		imports, err = remote.Imports()
	}
	if err != nil {
		return nil, err
	}
	for _, imp := range imports {
		dep, err := mgr.Load(filepath.Dir(identity), imp)
		if err != nil {
			return nil, fmt.Errorf("modules: %s: importing %s: %w", identity, imp, err)
		}
		mod.Imports = append(mod.Imports, dep.Identity)
	}

	if native != nil {
		err = native.Exports(mgr.m)
	} else {
		err = remote.Exports()
	}
	if err != nil {
		return nil, fmt.Errorf("modules: %s: exports: %w", identity, err)
	}
	return mod, nil
}

func (mgr *Manager) loadSource(identity, fsPath string) (*Module, error) {
	raw, err := os.ReadFile(fsPath)
	if err != nil {
		return nil, fmt.Errorf("modules: reading %s: %w", fsPath, err)
	}
	src := string(raw)
	options := parseOptions(src)

	prog, err := parser.ParseProgram(fsPath, src)
	if err != nil {
		return nil, err
	}

	mod := &Module{Identity: identity, Kind: KindSource, Options: options}
	opens := []string{"System"}
	if _, err := mgr.Load(filepath.Dir(fsPath), "System"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(fsPath)
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.ImportDecl:
			dep, err := mgr.Load(dir, decl.Path)
			if err != nil {
				return nil, fmt.Errorf("modules: %s: importing %s: %w", identity, decl.Path, err)
			}
			mod.Imports = append(mod.Imports, dep.Identity)
		case *ast.UsingDecl:
			opens = append(opens, decl.Path)
		}
	}

	if !options.NoCache && mgr.store != nil {
		if _, ok, err := mgr.tryCache(identity, fsPath, prog.Decls); err != nil {
			return nil, err
		} else if ok {
			return mod, nil
		}
	}

	unit, err := compile.Pipeline(prog.Decls, opens, func(n string) bool { _, ok := mgr.m.Global(n); return ok })
	if err != nil {
		return nil, fmt.Errorf("modules: %s: %w", identity, err)
	}
	compile.DeclareData(mgr.m, unit)
	if err := compile.Emit(mgr.m, unit); err != nil {
		return nil, fmt.Errorf("modules: %s: %w", identity, err)
	}

	if !options.NoCache && mgr.store != nil {
		mgr.populateCache(identity, fsPath, unit)
	}
	return mod, nil
}

// tryCache reassembles every combinator in the module straight from the
// disassembly cache, skipping Identify/Desugar/Lift/Emit entirely, when
// the file's mtime matches what was cached. decls is still needed so the
// constructor stubs the cache never stored (cache.Entry only covers
// compiled def/val bodies) get registered too.
func (mgr *Manager) tryCache(identity, fsPath string, decls []ast.Decl) ([]cache.Entry, bool, error) {
	info, err := os.Stat(fsPath)
	if err != nil {
		return nil, false, fmt.Errorf("modules: stat %s: %w", fsPath, err)
	}
	mtime := info.ModTime().UnixNano()
	entries, ok, err := mgr.store.Lookup(fsPath, mtime)
	if err != nil || !ok {
		return nil, ok, err
	}

	for _, d := range decls {
		if dd, ok := d.(*ast.DataDecl); ok {
			stub := mgr.m.CombinatorStub(dd.Name)
			stub.Kind = term.CombData
			stub.Arity = dd.Args
		}
	}
	// Register every cached combinator's stub before reassembling any
	// body, so the "o" data entries of mutually recursive siblings
	// resolve to the canonical stubs rather than interning orphans.
	for _, e := range entries {
		stub := mgr.m.CombinatorStub(e.Name)
		stub.Kind = term.CombBytecode
		stub.Arity = e.Arity
	}
	for _, e := range entries {
		_, prog, err := cache.Reassemble(e, mgr.m.Symbols)
		if err != nil {
			return nil, false, fmt.Errorf("modules: %s: reassembling cached %s: %w", identity, e.Name, err)
		}
		mgr.m.CombinatorStub(e.Name).Code = prog
	}
	return entries, true, nil
}

func (mgr *Manager) populateCache(identity, fsPath string, unit *compile.Unit) {
	info, err := os.Stat(fsPath)
	if err != nil {
		return
	}
	mtime := info.ModTime().UnixNano()
	entries := make([]cache.Entry, 0, len(unit.CombinatorNames()))
	for _, name := range unit.CombinatorNames() {
		stub := mgr.m.CombinatorStub(name)
		prog, ok := stub.Code.(*bytecode.Program)
		if !ok {
			continue
		}
		entries = append(entries, cache.Entry{Name: name, Arity: stub.Arity, Disasm: bytecode.Disassemble(name, prog, mgr.m)})
	}
	_ = mgr.store.Store(fsPath, mtime, entries)
}

// resolve turns a source-level import path into a load identity, its
// Kind, and (for source/dynamic modules) the filesystem path to read.
// Search order: the importing file's own directory first, then each
// include directory, matching config.SourceExt before config.DynamicExt
// (a source module "shadows" a same-named dynamic one).
func (mgr *Manager) resolve(fromDir, path string) (identity string, kind Kind, fsPath string, err error) {
	if filepath.Ext(path) == config.DynamicExt {
		fs, err := mgr.find(fromDir, path, "")
		if err != nil {
			return "", 0, "", err
		}
		abs, _ := filepath.Abs(fs)
		return abs, KindDynamic, fs, nil
	}
	if fs, err := mgr.find(fromDir, path, config.SourceExt); err == nil {
		abs, _ := filepath.Abs(fs)
		return abs, KindSource, fs, nil
	}
	if fs, err := mgr.find(fromDir, path, config.DynamicExt); err == nil {
		abs, _ := filepath.Abs(fs)
		return abs, KindDynamic, fs, nil
	}
	return "", 0, "", fmt.Errorf("modules: cannot find %q (searched %s and %v)", path, fromDir, mgr.include)
}

func (mgr *Manager) find(fromDir, path, ext string) (string, error) {
	candidate := path + ext
	dirs := append([]string{fromDir}, mgr.include...)
	for _, dir := range dirs {
		full := candidate
		if !filepath.IsAbs(full) && dir != "" {
			full = filepath.Join(dir, candidate)
		}
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return full, nil
		}
	}
	return "", fmt.Errorf("not found: %s%s", path, ext)
}
