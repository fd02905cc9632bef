// Package cache persists a compiled module's bytecode disassembly on
// disk, keyed by its absolute path and modification time, so the module
// manager can skip recompiling a module whose source hasn't changed
// since the last run. Backed by modernc.org/sqlite, a pure-Go driver, so
// the cache works without cgo.
package cache

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/funvibe/egel/internal/bytecode"
	"github.com/funvibe/egel/internal/symtab"
)

// Cache wraps a sqlite database storing one row per combinator a
// compiled module defines: a module of N def/val/lifted combinators
// occupies N rows sharing (path, mtime).
type Cache struct {
	db *sql.DB
}

// Entry is one compiled combinator's disassembly, as produced by
// bytecode.Disassemble and consumed by bytecode.Assemble, plus the
// arity the reducer dispatches on (the text format itself does not
// carry it).
type Entry struct {
	Name   string
	Arity  int
	Disasm string
}

// Open creates or attaches to the sqlite database at path (use ":memory:"
// for a process-local cache that never touches disk).
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS modules (
	path TEXT NOT NULL,
	mtime INTEGER NOT NULL,
	name TEXT NOT NULL,
	arity INTEGER NOT NULL,
	disasm TEXT NOT NULL,
	PRIMARY KEY (path, mtime, name)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Lookup returns every cached combinator for (path, mtime). ok is false
// if nothing is cached for that exact mtime (a stale or absent entry),
// meaning the module manager must recompile.
func (c *Cache) Lookup(path string, mtime int64) (entries []Entry, ok bool, err error) {
	rows, err := c.db.Query(`SELECT name, arity, disasm FROM modules WHERE path = ? AND mtime = ?`, path, mtime)
	if err != nil {
		return nil, false, fmt.Errorf("cache: lookup %s: %w", path, err)
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Arity, &e.Disasm); err != nil {
			return nil, false, fmt.Errorf("cache: lookup %s: %w", path, err)
		}
		entries = append(entries, e)
	}
	return entries, len(entries) > 0, rows.Err()
}

// Store replaces whatever is cached for path with entries at mtime.
func (c *Cache) Store(path string, mtime int64, entries []Entry) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("cache: store %s: %w", path, err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM modules WHERE path = ?`, path); err != nil {
		return fmt.Errorf("cache: evict %s: %w", path, err)
	}
	for _, e := range entries {
		if _, err := tx.Exec(
			`INSERT INTO modules (path, mtime, name, arity, disasm) VALUES (?, ?, ?, ?, ?)`,
			path, mtime, e.Name, e.Arity, e.Disasm,
		); err != nil {
			return fmt.Errorf("cache: store %s: %w", path, err)
		}
	}
	return tx.Commit()
}

// Reassemble turns one cached entry's disassembly text back into a
// bytecode.Program, interning its data-table entries into symbols — the
// reverse of bytecode.Disassemble, letting a cache hit skip straight
// past the whole compile pipeline (Identify/Desugar/Lift/Emit).
func Reassemble(e Entry, symbols *symtab.Table) (name string, prog *bytecode.Program, err error) {
	return bytecode.Assemble(e.Disasm, symbols)
}
