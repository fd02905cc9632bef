// Package config holds build-wide constants shared across the lexer,
// parser, compiler, and module manager: file extensions, environment
// variable names, and the positional error type used for diagnostics.
package config

import "fmt"

const (
	// SourceExt is the extension for Egel source modules.
	SourceExt = ".eg"
	// DynamicExt is the extension for dynamic (native-plugin) modules,
	// loaded through internal/pluginabi instead of parsed.
	DynamicExt = ".ego"
	// IncludeEnv names the environment variable holding extra import
	// search directories, colon-separated.
	IncludeEnv = "EGEL_INCLUDE"
)

// DefaultInclude is the compiled-in fallback include path used when
// IncludeEnv is unset.
var DefaultInclude = []string{"/usr/local/lib/egel", "/usr/lib/egel"}

// Position locates a diagnostic in a source file.
type Position struct {
	File string
	Line int
	Col  int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// PositionalError is the common error type for lexer, parser, compile,
// and module diagnostics.
type PositionalError struct {
	Pos Position
	Msg string
}

func (e *PositionalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Errorf builds a PositionalError at pos.
func Errorf(pos Position, format string, args ...any) error {
	return &PositionalError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
