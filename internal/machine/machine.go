// Package machine bundles the symbol table, data table, and module
// registry behind a single handle, so none of the rest of the
// interpreter needs process-global state (spec §9 Design Notes).
package machine

import (
	"sync"

	"github.com/funvibe/egel/internal/symtab"
	"github.com/funvibe/egel/internal/term"
)

// Machine is the shared runtime context threaded through compilation,
// module loading, and reduction.
type Machine struct {
	Symbols *symtab.Table

	mu      sync.Mutex
	modules map[string]any         // absolute path -> *modules.Module, stored as any to avoid an import cycle
	bound   map[string]*term.Term  // qualified name -> combinator term
	globals map[string]uint32      // qualified name -> data table index of its stub
}

// New builds a fresh Machine with the distinguished symbols interned and
// their nullary data combinators registered, so "true", "false", "nil",
// "none", "cons", and "tuple" are resolvable globals from the moment a
// module starts compiling.
func New() *Machine {
	m := &Machine{
		Symbols: symtab.New(),
		modules: make(map[string]any),
		bound:   make(map[string]*term.Term),
		globals: make(map[string]uint32),
	}
	for _, d := range []struct {
		name  string
		arity int
	}{
		{"nil", 0}, {"cons", 2}, {"tuple", 0}, {"none", 0},
		{"true", 0}, {"false", 0}, {"nop", 0}, {"failure", 0},
	} {
		stub := m.CombinatorStub(d.name)
		stub.Kind = term.CombData
		stub.Arity = d.arity
	}
	m.bootstrapFail()
	return m
}

// bootstrapFail registers the "fail" combinator every compiled function's
// no-alternative-matched fallthrough applies to the original
// application: reducing it raises (failure <application>) as a
// structured exception. The carried application is frozen first — it is
// data describing the failed call, and must not re-reduce (and so
// re-raise) when a handler inspects it.
func (m *Machine) bootstrapFail() {
	failure := m.CombinatorStub("failure")
	stub := m.CombinatorStub("fail")
	stub.Kind = term.CombHost
	stub.Arity = 1
	stub.Host = func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
		payload := term.NewArray([]*term.Term{term.NewCombinator(failure), term.Freeze(args[0])})
		return nil, &term.RaiseSignal{Value: term.Freeze(payload)}
	}
}

// CombinatorStub returns the canonical, possibly still-empty *term.Combinator
// for a qualified name, creating and interning one on first reference. Every
// free combinator reference a compiled body makes — recursive self-calls,
// mutually recursive siblings, names imported from another module — goes
// through this same stub, entered once into the data table and looked up by
// data_id from then on (spec §3.4: bytecode never refers to a name
// directly). DeclareData calls this while registering a module's top-level
// names, before any body compiles, so forward and mutual references resolve
// without a separate link pass: compiling a reference to a not-yet-compiled
// sibling gets the same stub its later DeclareData call will fill in.
func (m *Machine) CombinatorStub(name string) *term.Combinator {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.globals[name]; ok {
		v := m.Symbols.Data(id)
		return v.Comb
	}
	stub := &term.Combinator{Name: name, Symbol: m.Symbols.Intern(name)}
	id := m.Symbols.EnterData(term.NewCombinator(stub))
	m.globals[name] = id
	return stub
}

// Global reports the data table index of name's stub, for the pattern-match
// compiler (internal/match.Resolver) to emit a DATA instruction against.
func (m *Machine) Global(name string) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.globals[name]
	return id, ok
}

// Data implements term.DataSource by delegating to the symbol table.
func (m *Machine) Data(id uint32) *term.Term { return m.Symbols.Data(id) }

// Bind records the runtime term for a fully-qualified combinator name,
// for lookup by the reducer or REPL.
func (m *Machine) Bind(qualifiedName string, t *term.Term) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bound[qualifiedName] = t
}

// Lookup finds a previously bound combinator term by qualified name.
func (m *Machine) Lookup(qualifiedName string) (*term.Term, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.bound[qualifiedName]
	return t, ok
}

// ModuleSlot retrieves the opaque module registry entry for an absolute
// path, used by internal/modules to store its own *Module values without
// machine importing modules (which itself depends on machine).
func (m *Machine) ModuleSlot(absPath string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.modules[absPath]
	return v, ok
}

// SetModuleSlot stores the module registry entry for an absolute path.
func (m *Machine) SetModuleSlot(absPath string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[absPath] = v
}

// Lock takes the Machine's own mutex, the one its global-name, binding
// and module-registry methods take for reads and writes alike. The
// symbol and data tables are guarded separately by symtab.Table.Mu.
func (m *Machine) Lock()   { m.mu.Lock() }
func (m *Machine) Unlock() { m.mu.Unlock() }
