// Package symtab implements the two process-wide interned tables spec
// §3.4 describes: the symbol table (name <-> id bijection) and the data
// table (append-only index -> term, with a reverse intern map so code
// emission never duplicates an identical literal constant).
package symtab

import (
	"sync"

	"github.com/funvibe/egel/internal/term"
)

// DistinguishedSymbols lists the names that must be interned, in this
// exact order, before any user module loads (spec §3.2), matching
// egel.cpp's constant symbol initialization.
var DistinguishedSymbols = []string{
	"nil", "cons", "tuple", "none", "true", "false", "int", "float", "char", "text", "object",
}

// Table owns the symbol table and the data table. Appends only; every
// method, reads included, takes Mu.
type Table struct {
	Mu sync.Mutex

	names   []string
	byName  map[string]uint32
	data    []*term.Term
	byTerm  map[string]uint32 // rendered term -> data id, reverse intern map
}

// New builds a table with the distinguished symbols pre-interned.
func New() *Table {
	t := &Table{
		byName: make(map[string]uint32),
		byTerm: make(map[string]uint32),
	}
	for _, name := range DistinguishedSymbols {
		t.Intern(name)
	}
	return t
}

// Intern returns name's id, assigning a fresh one if this is the first
// occurrence.
func (t *Table) Intern(name string) uint32 {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return t.internLocked(name)
}

func (t *Table) internLocked(name string) uint32 {
	if id, ok := t.byName[name]; ok {
		return id
	}
	id := uint32(len(t.names))
	t.names = append(t.names, name)
	t.byName[name] = id
	return id
}

// Symbol looks up an already-interned name's id.
func (t *Table) Symbol(name string) (uint32, bool) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	id, ok := t.byName[name]
	return id, ok
}

// Name returns the name for a symbol id.
func (t *Table) Name(id uint32) string {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if int(id) >= len(t.names) {
		return ""
	}
	return t.names[id]
}

// EnterData interns a literal term into the data table, returning its
// index. Identical literals (by rendered value) reuse the same index.
func (t *Table) EnterData(v *term.Term) uint32 {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	key := term.Render(v)
	if id, ok := t.byTerm[key]; ok {
		return id
	}
	id := uint32(len(t.data))
	t.data = append(t.data, v)
	t.byTerm[key] = id
	return id
}

// Data implements term.DataSource.
func (t *Table) Data(id uint32) *term.Term {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if int(id) >= len(t.data) {
		return nil
	}
	return t.data[id]
}

// Len reports the current size of the data table, for the -D debug dump.
func (t *Table) Len() int {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return len(t.data)
}

// Snapshot copies out the data table's entries in index order, for the
// -D and -B debug dumps. Not a live view.
func (t *Table) Snapshot() []*term.Term {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	out := make([]*term.Term, len(t.data))
	copy(out, t.data)
	return out
}
