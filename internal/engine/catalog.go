package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// CatalogFileName is the default filename for the adapter catalog
const CatalogFileName = "engines.toml"

// versionProbeTimeout bounds the out-of-band version check only; operation
// calls carry no timeout of their own.
const versionProbeTimeout = 10 * time.Second

// Adapter describes how to invoke one analysis engine binary
type Adapter struct {
	// Name is the catalog key referenced from config (engine.adapter)
	Name string `toml:"name"`

	// Binary is the executable to invoke
	Binary string `toml:"binary"`

	// Args are placed before the operation subcommand on every call
	Args []string `toml:"args,omitempty"`

	// VersionArgs print the adapter version (for the availability probe)
	VersionArgs []string `toml:"version_args,omitempty"`

	// Languages the adapter understands, informational only
	Languages []string `toml:"languages,omitempty"`
}

// Catalog is the root structure of engines.toml
type Catalog struct {
	Version  int       `toml:"version"`
	Adapters []Adapter `toml:"adapter"`
}

// Builtins are adapters available without any engines.toml entry.
var Builtins = map[string]Adapter{
	"default": {
		Name:        "default",
		Binary:      "varlens-engine",
		VersionArgs: []string{"--version"},
	},
}

// LoadCatalog parses engines.toml from the given path. A missing file yields
// an empty catalog so builtin adapters still resolve.
func LoadCatalog(filePath string) (*Catalog, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{Version: 1}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", CatalogFileName, err)
	}

	var catalog Catalog
	if err := toml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", CatalogFileName, err)
	}

	if catalog.Version < 1 {
		catalog.Version = 1
	}

	for i, a := range catalog.Adapters {
		if a.Name == "" {
			return nil, fmt.Errorf("adapter %d in %s missing required 'name' field", i, CatalogFileName)
		}
		if a.Binary == "" {
			return nil, fmt.Errorf("adapter %q in %s missing required 'binary' field", a.Name, CatalogFileName)
		}
	}

	return &catalog, nil
}

// Save writes the catalog to the given path.
func (c *Catalog) Save(filePath string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", CatalogFileName, err)
	}
	return os.WriteFile(filePath, data, 0644)
}

// Resolve looks up an adapter by name, catalog entries first, then builtins.
func (c *Catalog) Resolve(name string) (Adapter, bool) {
	for _, a := range c.Adapters {
		if a.Name == name {
			return a, true
		}
	}
	a, ok := Builtins[name]
	return a, ok
}

// Names returns all resolvable adapter names, catalog entries first.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Adapters)+len(Builtins))
	seen := make(map[string]bool)
	for _, a := range c.Adapters {
		names = append(names, a.Name)
		seen[a.Name] = true
	}
	for name := range Builtins {
		if !seen[name] {
			names = append(names, name)
		}
	}
	return names
}

// Availability is the result of probing an adapter binary.
type Availability struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// Probe checks whether the adapter binary is installed and, when the adapter
// declares version args, what version it reports.
func Probe(ctx context.Context, adapter Adapter) Availability {
	binPath, err := exec.LookPath(adapter.Binary)
	if err != nil {
		return Availability{Found: false}
	}

	avail := Availability{Found: true, Path: binPath}

	if len(adapter.VersionArgs) > 0 {
		probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
		defer cancel()

		cmd := exec.CommandContext(probeCtx, adapter.Binary, adapter.VersionArgs...)
		output, err := cmd.Output()
		if err == nil {
			avail.Version = parseVersion(string(output))
		}
	}

	return avail
}

// parseVersion extracts a semver-looking version number from probe output.
func parseVersion(output string) string {
	re := regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)
	matches := re.FindStringSubmatch(output)
	if len(matches) >= 2 {
		return matches[1]
	}
	return strings.TrimSpace(output)
}
