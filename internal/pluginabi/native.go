// Package pluginabi implements the two ways a dynamic (.ego) module can
// satisfy Egel's plugin contract: a native Go plugin co-located as a
// .so, or a remote module reached over gRPC when co-location isn't
// possible. Both expose the same two operations: list the names a
// module wants imported into its scope, and install its exports into a
// Machine.
package pluginabi

import (
	"fmt"
	"plugin"

	"github.com/funvibe/egel/internal/machine"
)

// Native wraps a loaded .so built with -buildmode=plugin.
type Native struct {
	path string
	p    *plugin.Plugin
}

// OpenNative loads path as a Go plugin. The module manager calls this
// for every ImportDecl resolving to a file with config.DynamicExt.
// When the plugin's Go source ships alongside the .so, the source is
// inspected first (InspectSource) so ABI mistakes surface as readable
// diagnostics rather than lookup failures.
func OpenNative(path string) (*Native, error) {
	if dir := sourceDir(path); dir != "" {
		if err := InspectSource(dir); err != nil {
			return nil, &SourceError{Err: err}
		}
	}
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pluginabi: open %s: %w", path, err)
	}
	return &Native{path: path, p: p}, nil
}

// Imports returns the names the plugin wants resolvable in its own
// scope, by calling its exported EgelImports() []string symbol.
func (n *Native) Imports() ([]string, error) {
	sym, err := n.p.Lookup("EgelImports")
	if err != nil {
		return nil, fmt.Errorf("pluginabi: %s: missing EgelImports: %w", n.path, err)
	}
	fn, ok := sym.(func() []string)
	if !ok {
		return nil, fmt.Errorf("pluginabi: %s: EgelImports has the wrong signature", n.path)
	}
	return fn(), nil
}

// Exports installs the plugin's combinators into m by calling its
// exported EgelExports(*machine.Machine) error symbol — the plugin's own
// code calls m.CombinatorStub for each name it defines, exactly as
// internal/builtin.Install does for the System module.
func (n *Native) Exports(m *machine.Machine) error {
	sym, err := n.p.Lookup("EgelExports")
	if err != nil {
		return fmt.Errorf("pluginabi: %s: missing EgelExports: %w", n.path, err)
	}
	fn, ok := sym.(func(*machine.Machine) error)
	if !ok {
		return fmt.Errorf("pluginabi: %s: EgelExports has the wrong signature", n.path)
	}
	return fn(m)
}
