package main

import (
	"os"

	"github.com/spf13/cobra"

	"varlens/internal/version"
)

var (
	// rootFlag is the CLI --root flag value
	rootFlag    string
	verboseFlag bool
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "varlens",
	Short: "varlens - variable-level code analysis over MCP",
	Long: `varlens fronts an external static-analysis engine with a command-routing
layer exposed over the Model Context Protocol. It answers variable-level
questions (definitions, callers, calls, unused variables, namespace
dependencies) with cached, truncated, schema-versioned responses.`,
	Version: version.Short(),
}

func init() {
	rootCmd.SetVersionTemplate("varlens version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "",
		"Project root containing .varlens/ (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false,
		"Suppress log output")
}

// resolveRoot determines the project root from CLI flag, env var, or cwd.
// Precedence: --root flag > VARLENS_ROOT env var > current directory.
func resolveRoot() (string, error) {
	if rootFlag != "" {
		return rootFlag, nil
	}
	if env := os.Getenv("VARLENS_ROOT"); env != "" {
		return env, nil
	}
	return os.Getwd()
}
