// Package modules implements the module manager (spec §4.5): resolving
// an import path to a source (.eg), internal (built-in), or dynamic
// (.ego) module, loading its transitive import closure exactly once
// each, and compiling or linking it into a shared Machine.
package modules

import "github.com/funvibe/egel/internal/pluginabi"

// Kind distinguishes the three ways a module can be loaded.
type Kind int

const (
	KindSource Kind = iota
	KindInternal
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindInternal:
		return "internal"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Module is one loaded compilation unit, kept in the Machine's module
// registry (keyed by its resolved identity) so a repeated import resolves
// to the same value instead of reloading (spec §8 "Module-load
// idempotence").
type Module struct {
	Identity string // absolute path, "internal:System", or a dynamic target
	Kind     Kind
	Imports  []string // resolved identities of every module this one imports, in source order
	Options  Options  // pragma-derived per-module settings

	native *pluginabi.Native
	remote *pluginabi.Remote
}

// Options is the property bag a module's leading pragma comments
// populate: "# pragma: key value" lines at the top of a source file,
// before any declaration.
type Options struct {
	NoCache bool // "# pragma: nocache" — never consult or populate internal/cache for this module
	Values  map[string]string
}
