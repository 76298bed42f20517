package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"varlens/internal/engine"
)

var (
	enginesForce  bool
	enginesFormat string
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "Manage the analysis engine catalog",
	Long: `Manage the engines.toml adapter catalog.

Adapters describe how to invoke analysis engine binaries. The adapter
named by engine.adapter in config serves all queries; the builtin
"default" adapter is always resolvable.

Examples:
  varlens engines init
  varlens engines list`,
}

var enginesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter engines.toml",
	RunE:  runEnginesInit,
}

var enginesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List adapters and probe their binaries",
	RunE:  runEnginesList,
}

func init() {
	enginesInitCmd.Flags().BoolVarP(&enginesForce, "force", "f", false, "Overwrite an existing engines.toml")
	enginesListCmd.Flags().StringVar(&enginesFormat, "format", "human", "Output format (json, human)")

	enginesCmd.AddCommand(enginesInitCmd)
	enginesCmd.AddCommand(enginesListCmd)
	rootCmd.AddCommand(enginesCmd)
}

func runEnginesInit(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	catalogPath := cfg.EngineCatalogPath()

	if _, err := os.Stat(catalogPath); err == nil && !enginesForce {
		fmt.Println("Engine catalog already exists.")
		fmt.Printf("Catalog at: %s\n", catalogPath)
		fmt.Println("\nRun 'varlens engines init --force' to overwrite.")
		return nil
	}

	catalog := &engine.Catalog{
		Version: 1,
		Adapters: []engine.Adapter{
			{
				Name:        "default",
				Binary:      "varlens-engine",
				VersionArgs: []string{"--version"},
			},
		},
	}

	if err := catalog.Save(catalogPath); err != nil {
		return fmt.Errorf("failed to write engine catalog: %w", err)
	}

	fmt.Printf("Engine catalog written to %s\n", catalogPath)
	fmt.Println("Edit it to point at your analyzer binaries, then select one")
	fmt.Println("via engine.adapter in config.json.")
	return nil
}

// adapterStatusCLI is one probed catalog entry for CLI output
type adapterStatusCLI struct {
	Name    string `json:"name"`
	Binary  string `json:"binary"`
	Active  bool   `json:"active"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

func runEnginesList(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	catalog, err := engine.LoadCatalog(cfg.EngineCatalogPath())
	if err != nil {
		return err
	}

	ctx := newContext()
	statuses := make([]adapterStatusCLI, 0)
	for _, name := range catalog.Names() {
		adapter, _ := catalog.Resolve(name)
		avail := engine.Probe(ctx, adapter)
		statuses = append(statuses, adapterStatusCLI{
			Name:    adapter.Name,
			Binary:  adapter.Binary,
			Active:  adapter.Name == cfg.Engine.Adapter,
			Found:   avail.Found,
			Path:    avail.Path,
			Version: avail.Version,
		})
	}

	if enginesFormat == "json" {
		printJSON(map[string]any{"adapters": statuses})
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBINARY\tSTATUS\tVERSION")
	for _, s := range statuses {
		status := "missing"
		if s.Found {
			status = "found"
		}
		name := s.Name
		if s.Active {
			name += " (active)"
		}
		version := s.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, s.Binary, status, version)
	}
	return w.Flush()
}
