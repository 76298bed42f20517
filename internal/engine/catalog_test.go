package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCatalog_Missing(t *testing.T) {
	catalog, err := LoadCatalog(filepath.Join(t.TempDir(), "engines.toml"))
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	// Builtins still resolve with no file present
	if _, ok := catalog.Resolve("default"); !ok {
		t.Error("builtin 'default' adapter should resolve")
	}
	if _, ok := catalog.Resolve("nope"); ok {
		t.Error("unknown adapter should not resolve")
	}
}

func TestLoadCatalog_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `version = 1

[[adapter]]
name = "pyvar"
binary = "pyvar-analyze"
args = ["--format", "json"]
version_args = ["--version"]
languages = ["python"]

[[adapter]]
name = "default"
binary = "custom-engine"
`
	catalogPath := filepath.Join(tmpDir, "engines.toml")
	if err := os.WriteFile(catalogPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	catalog, err := LoadCatalog(catalogPath)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	if len(catalog.Adapters) != 2 {
		t.Fatalf("got %d adapters, want 2", len(catalog.Adapters))
	}

	adapter, ok := catalog.Resolve("pyvar")
	if !ok {
		t.Fatal("pyvar adapter should resolve")
	}
	if adapter.Binary != "pyvar-analyze" {
		t.Errorf("Binary = %q, want %q", adapter.Binary, "pyvar-analyze")
	}
	if len(adapter.Args) != 2 || adapter.Args[0] != "--format" {
		t.Errorf("Args = %v", adapter.Args)
	}

	// Catalog entries shadow builtins of the same name
	adapter, ok = catalog.Resolve("default")
	if !ok {
		t.Fatal("default adapter should resolve")
	}
	if adapter.Binary != "custom-engine" {
		t.Errorf("catalog entry should shadow builtin, got binary %q", adapter.Binary)
	}
}

func TestLoadCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "[[adapter"},
		{"missing name", "[[adapter]]\nbinary = \"x\"\n"},
		{"missing binary", "[[adapter]]\nname = \"x\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalogPath := filepath.Join(t.TempDir(), "engines.toml")
			if err := os.WriteFile(catalogPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write catalog: %v", err)
			}

			if _, err := LoadCatalog(catalogPath); err == nil {
				t.Error("LoadCatalog() should reject invalid catalog")
			}
		})
	}
}

func TestCatalog_SaveRoundTrip(t *testing.T) {
	catalogPath := filepath.Join(t.TempDir(), "engines.toml")

	catalog := &Catalog{
		Version: 1,
		Adapters: []Adapter{
			{Name: "pyvar", Binary: "pyvar-analyze", Languages: []string{"python"}},
		},
	}
	if err := catalog.Save(catalogPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadCatalog(catalogPath)
	if err != nil {
		t.Fatalf("LoadCatalog() after save error = %v", err)
	}
	if len(loaded.Adapters) != 1 || loaded.Adapters[0].Name != "pyvar" {
		t.Errorf("round trip lost adapters: %+v", loaded.Adapters)
	}
}

func TestCatalog_Names(t *testing.T) {
	catalog := &Catalog{
		Version: 1,
		Adapters: []Adapter{
			{Name: "pyvar", Binary: "pyvar-analyze"},
			{Name: "default", Binary: "custom-engine"},
		},
	}

	names := catalog.Names()

	counts := make(map[string]int)
	for _, n := range names {
		counts[n]++
	}
	if counts["pyvar"] != 1 {
		t.Errorf("Names() = %v, want pyvar once", names)
	}
	// Shadowed builtin must not appear twice
	if counts["default"] != 1 {
		t.Errorf("Names() = %v, want default once", names)
	}
}

func TestProbe_MissingBinary(t *testing.T) {
	avail := Probe(context.Background(), Adapter{Name: "x", Binary: "varlens-definitely-not-installed-xyz"})
	if avail.Found {
		t.Error("Probe() should report a missing binary as not found")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"v1.2.3", "1.2.3"},
		{"pyvar-analyze version 0.9.1\n", "0.9.1"},
		{"weird output", "weird output"},
	}

	for _, tt := range tests {
		if got := parseVersion(tt.output); got != tt.want {
			t.Errorf("parseVersion(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}
