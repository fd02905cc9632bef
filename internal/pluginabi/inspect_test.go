package pluginabi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePlugin(t *testing.T, dir, src string) {
	t.Helper()
	gomod := "module plugintest\n\ngo 1.25\n"
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("write main.go: %v", err)
	}
}

func TestInspectSourceAcceptsWellFormedPlugin(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, `package main

func EgelImports() []string { return nil }

func EgelExports(vm any) error { return nil }
`)
	if err := InspectSource(dir); err != nil {
		t.Fatalf("InspectSource: %v", err)
	}
}

func TestInspectSourceRejectsMissingEntryPoint(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, `package main

func EgelImports() []string { return nil }
`)
	err := InspectSource(dir)
	if err == nil || !strings.Contains(err.Error(), "EgelExports") {
		t.Fatalf("expected a missing-EgelExports error, got %v", err)
	}
}

func TestInspectSourceRejectsWrongShape(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, `package main

func EgelImports(extra int) []string { return nil }

func EgelExports(vm any) error { return nil }
`)
	err := InspectSource(dir)
	if err == nil || !strings.Contains(err.Error(), "EgelImports") {
		t.Fatalf("expected a wrong-signature error for EgelImports, got %v", err)
	}
}
