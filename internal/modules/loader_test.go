package modules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/funvibe/egel/internal/cache"
	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/reducer"
	"github.com/funvibe/egel/internal/term"
)

// writeFile drops src at dir/name+".eg" and returns the base name
// (without extension) mgr.Load expects.
func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name+".eg")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return name
}

// runMain loads base (a file in dir) and its transitive imports, then
// reduces its "main" combinator to a value.
func runMain(t *testing.T, dir, base string) *term.Term {
	t.Helper()
	m := machine.New()
	mgr := NewManager(m, []string{dir}, nil)
	if _, err := mgr.Load(dir, base); err != nil {
		t.Fatalf("Load: %v", err)
	}
	id, ok := m.Global("main")
	if !ok {
		t.Fatalf("main not found")
	}
	head := m.Data(id)
	result, err := reducer.New().Run(m, head, nil)
	if err != nil {
		t.Fatalf("reduce main: %v", err)
	}
	return result
}

// TestFactorial is spec.md §8 scenario 1.
func TestFactorial(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "fac", `
import "System"

using System

def fac 0 = 1;
    fac N = N * (fac (N - 1))

def main = fac 5
`)
	result := runMain(t, dir, base)
	if result.Tag != term.TagInteger || result.I != 120 {
		t.Fatalf("fac 5 = %s, want 120", term.Render(result))
	}
}

// TestMap is spec.md §8 scenario 2.
func TestMap(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "map", `
import "System"

using System

def map F nil = nil;
    map F (cons X XX) = cons (F X) (map F XX)

def main = map [X -> X + 1] {1, 2, 3}
`)
	result := runMain(t, dir, base)
	got := term.Render(result)
	want := "{2, 3, 4}"
	if got != want {
		t.Fatalf("map result = %q, want %q", got, want)
	}
}

// TestTupleAndToList is spec.md §8 scenario 3.
func TestTupleAndToList(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "tup", `
import "System"

using System

def main = System::to_list (1, "a", 'z')
`)
	result := runMain(t, dir, base)
	if result.Tag != term.TagArray || len(result.Arr) < 1 {
		t.Fatalf("to_list result is not a list: %s", term.Render(result))
	}
	if got, want := term.Render(result), `{1, "a", 'z'}`; got != want {
		t.Fatalf("to_list (1,\"a\",'z') = %q, want %q", got, want)
	}
}

// TestTryCatch is spec.md §8 scenario 4.
func TestTryCatch(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "trycatch", `
import "System"

using System

def main = try (throw "oops") catch (\E -> "caught " + E)
`)
	result := runMain(t, dir, base)
	if result.Tag != term.TagText || result.Text != "caught oops" {
		t.Fatalf("try/catch result = %s, want \"caught oops\"", term.Render(result))
	}
}

// TestTryCatchNoThrow checks that a try block that never throws reduces
// to the same value as its body alone (spec.md §8's exception-propagation
// property).
func TestTryCatchNoThrow(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "notrow", `
import "System"

using System

def main = try (1 + 1) catch (\E -> 0)
`)
	result := runMain(t, dir, base)
	if result.Tag != term.TagInteger || result.I != 2 {
		t.Fatalf("try/catch without a throw = %s, want 2", term.Render(result))
	}
}

// TestNestedRethrow: a handler that itself throws must deliver the
// re-thrown term to the next enclosing handler unchanged, not a
// rendered-text corruption of it.
func TestNestedRethrow(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "rethrow", `
import "System"

using System

def main = try (try (throw "x") catch (\E -> throw "y")) catch (\E -> E)
`)
	result := runMain(t, dir, base)
	if result.Tag != term.TagText || result.Text != "y" {
		t.Fatalf("nested rethrow = %s, want \"y\"", term.Render(result))
	}
}

// TestArityOverApplication is spec.md §8's "arity over-application"
// property: a combinator defined with fewer parameters than it is
// applied with re-applies the leftover arguments to its result.
func TestArityOverApplication(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "over", `
import "System"

using System

def g X Y = X + Y
def f X = g X

def main = f 1 2
`)
	result := runMain(t, dir, base)
	if result.Tag != term.TagInteger || result.I != 3 {
		t.Fatalf("f 1 2 = %s, want 3", term.Render(result))
	}
}

// TestModuleIdempotenceAndTransitiveImport is spec.md §8 scenario 6:
// a module that imports B before B is seen directly still yields a
// single loaded copy of B with its exports visible.
func TestModuleIdempotenceAndTransitiveImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b", `
import "System"

using System

def helper X = X * 2
`)
	base := writeFile(t, dir, "a", `
import "System"
import "b"

using System

def main = helper 21
`)

	m := machine.New()
	mgr := NewManager(m, []string{dir}, nil)
	if _, err := mgr.Load(dir, base); err != nil {
		t.Fatalf("Load a: %v", err)
	}
	// "b" was already pulled in transitively; loading it again directly
	// must be a no-op that returns the same Module, not a second copy.
	modB1, err := mgr.Load(dir, "b")
	if err != nil {
		t.Fatalf("Load b (1st direct): %v", err)
	}
	modB2, err := mgr.Load(dir, "b")
	if err != nil {
		t.Fatalf("Load b (2nd direct): %v", err)
	}
	if modB1 != modB2 {
		t.Fatalf("reloading b produced a distinct Module")
	}

	id, ok := m.Global("main")
	if !ok {
		t.Fatalf("main not found")
	}
	result, err := reducer.New().Run(m, m.Data(id), nil)
	if err != nil {
		t.Fatalf("reduce main: %v", err)
	}
	if result.Tag != term.TagInteger || result.I != 42 {
		t.Fatalf("helper 21 = %s, want 42", term.Render(result))
	}
}

// TestDisassemblyCacheHit loads the same unchanged module twice against
// the same on-disk cache but fresh machines: the second load reassembles
// every combinator from cached disassembly text instead of recompiling,
// and the reassembled program must still compute the same result.
func TestDisassemblyCacheHit(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "fac", `
import "System"

using System

def fac 0 = 1;
    fac N = N * (fac (N - 1))

def main = fac 5
`)
	store, err := cache.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	defer store.Close()

	runWith := func(label string) *term.Term {
		m := machine.New()
		mgr := NewManager(m, []string{dir}, store)
		if _, err := mgr.Load(dir, base); err != nil {
			t.Fatalf("%s Load: %v", label, err)
		}
		id, ok := m.Global("main")
		if !ok {
			t.Fatalf("%s: main not found", label)
		}
		result, err := reducer.New().Run(m, m.Data(id), nil)
		if err != nil {
			t.Fatalf("%s reduce: %v", label, err)
		}
		return result
	}

	first := runWith("cold")
	second := runWith("cached")
	if first.Tag != term.TagInteger || first.I != 120 {
		t.Fatalf("cold run = %s, want 120", term.Render(first))
	}
	if !term.Equal(first, second) {
		t.Fatalf("cache hit changed the result: %s vs %s", term.Render(first), term.Render(second))
	}
}

// TestClosureApplication applies a combinator-held closure (a partial
// application spine bound to a pattern variable) to a further argument:
// the compiled application must splice the spine flat rather than nest
// it.
func TestClosureApplication(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "clo", `
import "System"

using System

def apply F X = F X
def add N = [M -> N + M]

def main = apply (add 1) 2
`)
	result := runMain(t, dir, base)
	if result.Tag != term.TagInteger || result.I != 3 {
		t.Fatalf("apply (add 1) 2 = %s, want 3", term.Render(result))
	}
}

// TestIfOverComparison routes a comparison result through if/then/else,
// which desugars to a match on the true/false data combinators.
func TestIfOverComparison(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "cmp", `
import "System"

using System

def max X Y = if X < Y then Y else X

def main = max 3 8
`)
	result := runMain(t, dir, base)
	if result.Tag != term.TagInteger || result.I != 8 {
		t.Fatalf("max 3 8 = %s, want 8", term.Render(result))
	}
}

// TestWildcardPattern: "_" binds nothing and matches anything.
func TestWildcardPattern(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "wild", `
import "System"

using System

def second _ Y = Y

def main = second 7 8
`)
	result := runMain(t, dir, base)
	if result.Tag != term.TagInteger || result.I != 8 {
		t.Fatalf("second 7 8 = %s, want 8", term.Render(result))
	}
}

// TestMatchFailurePayload: an unmatched call raises the original
// application, caught here by an enclosing try.
func TestMatchFailurePayload(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "failing", `
import "System"

using System

def zeroOnly 0 = "zero"

def main = try (zeroOnly 7) catch (\E -> to_text E)
`)
	result := runMain(t, dir, base)
	if result.Tag != term.TagText || result.Text != "(failure (zeroOnly 7))" {
		t.Fatalf("failure payload = %s, want \"(failure (zeroOnly 7))\"", term.Render(result))
	}
}

// TestPatternFirstMatch is spec.md §8's "pattern-match first-match"
// property: given overlapping alternatives, the first one wins.
func TestPatternFirstMatch(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "firstmatch", `
import "System"

using System

def pick N = [0 -> "zero" | M -> "other"] N

def main = pick 0
`)
	result := runMain(t, dir, base)
	if result.Tag != term.TagText || result.Text != "zero" {
		t.Fatalf("pick 0 = %s, want \"zero\"", term.Render(result))
	}
}
