package pluginabi

import (
	"fmt"
	"go/types"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

// SourceError marks a definitive inspection failure: the import names a
// real native plugin whose source is broken, so falling back to the
// remote transport would only trade this diagnostic for an obscure
// dial-time one.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string { return e.Err.Error() }
func (e *SourceError) Unwrap() error { return e.Err }

// InspectSource type-checks the Go source of a native plugin and
// verifies it exports the two ABI entry points with the expected
// shapes, so a bad plugin fails with a readable diagnostic at
// load time instead of a panic inside plugin.Lookup. OpenNative runs it
// automatically when the .so ships with its source alongside.
func InspectSource(dir string) error {
	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedTypes |
			packages.NeedTypesInfo,
		Dir: dir,
		Env: append(os.Environ(), "GOWORK=off"),
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return fmt.Errorf("pluginabi: inspecting %s: %w", dir, err)
	}
	var errs []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e.Msg)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("pluginabi: %s does not type-check:\n  %s", dir, strings.Join(errs, "\n  "))
	}
	if len(pkgs) == 0 || pkgs[0].Types == nil {
		return fmt.Errorf("pluginabi: no package found in %s", dir)
	}

	scope := pkgs[0].Types.Scope()
	if err := checkEntryPoint(scope, "EgelImports", 0, 1); err != nil {
		return fmt.Errorf("pluginabi: %s: %w", dir, err)
	}
	if err := checkEntryPoint(scope, "EgelExports", 1, 1); err != nil {
		return fmt.Errorf("pluginabi: %s: %w", dir, err)
	}
	return nil
}

// checkEntryPoint verifies name is a top-level function with the given
// parameter and result counts. The exact parameter types are checked at
// Lookup time by the plugin package's own type assertion; counting here
// catches the common authoring mistakes (a method, a variable, a
// forgotten return) with a readable message.
func checkEntryPoint(scope *types.Scope, name string, params, results int) error {
	obj := scope.Lookup(name)
	if obj == nil {
		return fmt.Errorf("missing entry point %s", name)
	}
	fn, ok := obj.(*types.Func)
	if !ok {
		return fmt.Errorf("%s is %s, want a function", name, obj.Type())
	}
	sig := fn.Type().(*types.Signature)
	if sig.Params().Len() != params || sig.Results().Len() != results {
		return fmt.Errorf("%s has signature %s, want %d parameter(s) and %d result(s)", name, sig, params, results)
	}
	return nil
}

// sourceDir reports the directory holding a plugin's Go source when it
// ships next to the built .so, or "" when the plugin is binary-only.
func sourceDir(soPath string) string {
	dir := filepath.Dir(soPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".go") {
			return dir
		}
	}
	return ""
}
