package modules

import "gopkg.in/yaml.v3"

// graphEntry is one module's entry in the -C debug dump: identity, kind,
// and the identities of every module it imports, in source order.
type graphEntry struct {
	Identity string   `yaml:"identity"`
	Kind     string   `yaml:"kind"`
	Imports  []string `yaml:"imports,omitempty"`
}

// DumpYAML renders the resolved transitive module graph, in load order,
// as a human-readable YAML manifest — the cmd/egel -C flag's output.
func (mgr *Manager) DumpYAML() (string, error) {
	entries := make([]graphEntry, 0, len(mgr.order))
	for _, identity := range mgr.order {
		slot, ok := mgr.m.ModuleSlot(identity)
		if !ok {
			continue
		}
		mod := slot.(*Module)
		entries = append(entries, graphEntry{
			Identity: mod.Identity,
			Kind:     mod.Kind.String(),
			Imports:  mod.Imports,
		})
	}
	out, err := yaml.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
