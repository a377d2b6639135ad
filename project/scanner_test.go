package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vibeagent/vibe-agent/workspace"
)

// testScanner keeps the state directory outside the workspace so the
// persisted index never shows up in a rescan.
func testScanner(t *testing.T) (*Scanner, string, string) {
	t.Helper()
	dir := t.TempDir()
	stateDir := t.TempDir()
	sandbox, err := workspace.NewSandbox(dir)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	toolkit := workspace.NewToolkit(sandbox)
	return NewScanner(toolkit, stateDir, 100, nil), dir, stateDir
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanIdempotent(t *testing.T) {
	scanner, dir, _ := testScanner(t)
	writeFiles(t, dir, map[string]string{
		"app/main.py": "import os\n\ndef run():\n    return os.getcwd()\n",
		"app/util.py": "def helper():\n    pass\n",
		"README.md":   "# readme\n",
	})

	first, err := scanner.Scan(context.Background(), ScanOptions{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	second, err := scanner.Scan(context.Background(), ScanOptions{Refresh: true})
	if err != nil {
		t.Fatalf("Scan refresh: %v", err)
	}

	ignoreTime := cmpopts.IgnoreFields(Index{}, "GeneratedAt")
	if diff := cmp.Diff(first, second, ignoreTime); diff != "" {
		t.Errorf("rescans differ (-first +second):\n%s", diff)
	}
}

func TestScanRefreshStartsNewFlight(t *testing.T) {
	scanner, dir, _ := testScanner(t)
	writeFiles(t, dir, map[string]string{"a.py": "def f():\n    pass\n"})

	if _, err := scanner.Scan(context.Background(), ScanOptions{}); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	before := scanner.gen.Load()

	writeFiles(t, dir, map[string]string{"b.py": "def g():\n    pass\n"})
	idx, err := scanner.Scan(context.Background(), ScanOptions{Refresh: true})
	if err != nil {
		t.Fatalf("Scan refresh: %v", err)
	}
	// A bumped generation changes the flight key, so a refresh can never
	// join a build that started before it.
	if got := scanner.gen.Load(); got != before+1 {
		t.Errorf("generation = %d, want %d", got, before+1)
	}
	if idx.TotalFilesScanned != 2 {
		t.Errorf("refresh scanned %d files, want 2", idx.TotalFilesScanned)
	}
}

func TestScanInvariants(t *testing.T) {
	scanner, dir, _ := testScanner(t)
	writeFiles(t, dir, map[string]string{
		"app/main.py": "from app.util import helper\n\nclass Runner:\n    def go(self):\n        return helper()\n",
		"app/util.py": "def helper():\n    return 1\n",
		"data.bin":    "\x00\x01",
	})

	idx, err := scanner.Scan(context.Background(), ScanOptions{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	total := 0
	for _, count := range idx.Languages {
		total += count
	}
	if total != idx.TotalFilesScanned {
		t.Errorf("language tallies sum to %d, TotalFilesScanned = %d", total, idx.TotalFilesScanned)
	}

	known := map[string]bool{}
	for _, f := range idx.Files {
		known[f.Path] = true
	}
	for _, sym := range idx.Symbols {
		if !known[sym.Path] {
			t.Errorf("symbol %q path %q not in files", sym.Name, sym.Path)
		}
	}
	for _, use := range idx.Uses {
		if !known[use.Path] {
			t.Errorf("use %q path %q not in files", use.Name, use.Path)
		}
	}
}

func TestScanPersistsIndex(t *testing.T) {
	scanner, dir, stateDir := testScanner(t)
	writeFiles(t, dir, map[string]string{"a.py": "def f():\n    pass\n"})

	if _, err := scanner.Scan(context.Background(), ScanOptions{}); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	indexPath := filepath.Join(stateDir, "index", "project-index.json")
	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("persisted index missing: %v", err)
	}
}

func TestLookupSymbolsExactFirst(t *testing.T) {
	scanner, dir, _ := testScanner(t)
	writeFiles(t, dir, map[string]string{
		"a.py": "def run():\n    pass\n\ndef run_all():\n    pass\n\ndef dry_run():\n    pass\n",
	})

	syms, err := scanner.LookupSymbols(context.Background(), "run", LookupOptions{})
	if err != nil {
		t.Fatalf("LookupSymbols: %v", err)
	}
	if len(syms) != 3 {
		t.Fatalf("symbols = %d, want 3", len(syms))
	}
	if syms[0].Name != "run" {
		t.Errorf("exact match should sort first, got %q", syms[0].Name)
	}
}

func TestFindReferencesExact(t *testing.T) {
	scanner, dir, _ := testScanner(t)
	writeFiles(t, dir, map[string]string{
		"a.py": "def helper():\n    return 1\n",
		"b.py": "value = helper()\nother = helpers()\n",
	})

	refs, err := scanner.FindReferences(context.Background(), "helper", LookupOptions{})
	if err != nil {
		t.Fatalf("FindReferences: %v", err)
	}
	for _, ref := range refs {
		if ref.Name != "helper" {
			t.Errorf("reference %q is not an exact match", ref.Name)
		}
	}
	if len(refs) == 0 {
		t.Error("expected at least one reference from b.py")
	}
}

func TestDependencyMapSources(t *testing.T) {
	scanner, dir, _ := testScanner(t)
	writeFiles(t, dir, map[string]string{
		"package.json":     `{"dependencies": {"react": "^18.0.0"}, "devDependencies": {"vitest": "^1.0.0"}}`,
		"requirements.txt": "requests>=2.31 # http client\nflask\n",
		"pyproject.toml":   "[project]\ndependencies = [\"pydantic>=2\"]\n\n[tool.poetry.dependencies]\npython = \"^3.11\"\nrich = \"*\"\n",
	})

	deps, err := scanner.DependencyMap(context.Background())
	if err != nil {
		t.Fatalf("DependencyMap: %v", err)
	}
	if deps.Node["react"] != "^18.0.0" || deps.NodeDev["vitest"] != "^1.0.0" {
		t.Errorf("node deps = %v / %v", deps.Node, deps.NodeDev)
	}
	if deps.Python["requests"] != ">=2.31" {
		t.Errorf("requests spec = %q", deps.Python["requests"])
	}
	if deps.Python["flask"] != "unspecified" {
		t.Errorf("flask spec = %q, want unspecified", deps.Python["flask"])
	}
	if deps.Python["pydantic"] != ">=2" {
		t.Errorf("pydantic spec = %q", deps.Python["pydantic"])
	}
	if _, ok := deps.Python["python"]; ok {
		t.Error("poetry python constraint must be excluded")
	}
	if deps.Python["rich"] != "*" {
		t.Errorf("rich spec = %q", deps.Python["rich"])
	}
}
