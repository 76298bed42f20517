package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"varlens/internal/host"
)

var (
	hostManifest string
	hostForce    bool
	hostPing     bool
	hostFormat   string
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Manage host plugin-registry integration",
	Long: `Manage the optional integration with a host plugin registry.

When a host.toml points at a host capability manifest advertising the
plugin-registry capability, 'varlens mcp' registers itself with the host
before serving. Without it, varlens serves standalone with the same
tool set.

Examples:
  varlens host init --manifest /etc/devhub/manifest.yaml
  varlens host status
  varlens host status --ping`,
}

var hostInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter host.toml",
	RunE:  runHostInit,
}

var hostStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how far host integration resolves",
	RunE:  runHostStatus,
}

func init() {
	hostInitCmd.Flags().StringVar(&hostManifest, "manifest", "", "Path to the host capability manifest (required)")
	hostInitCmd.Flags().BoolVarP(&hostForce, "force", "f", false, "Overwrite an existing host.toml")
	_ = hostInitCmd.MarkFlagRequired("manifest")

	hostStatusCmd.Flags().BoolVar(&hostPing, "ping", false, "Also ping the registry endpoint")
	hostStatusCmd.Flags().StringVar(&hostFormat, "format", "human", "Output format (json, human)")

	hostCmd.AddCommand(hostInitCmd)
	hostCmd.AddCommand(hostStatusCmd)
	rootCmd.AddCommand(hostCmd)
}

func runHostInit(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	configPath := cfg.HostConfigPath()

	if _, err := os.Stat(configPath); err == nil && !hostForce {
		fmt.Println("Host integration config already exists.")
		fmt.Printf("Config at: %s\n", configPath)
		fmt.Println("\nRun 'varlens host init --force' to overwrite.")
		return nil
	}

	integration := host.DefaultIntegrationConfig(hostManifest)
	if err := integration.Save(configPath); err != nil {
		return fmt.Errorf("failed to write host config: %w", err)
	}

	fmt.Printf("Host integration config written to %s\n", configPath)
	fmt.Println("Run 'varlens host status' to verify the manifest resolves.")
	return nil
}

func runHostStatus(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)

	status := host.Probe(cfg.HostConfigPath())

	var pingErr error
	pinged := false
	if hostPing && status.PluginRegistry {
		client, err := host.Discover(cfg.HostConfigPath(), logger)
		if err != nil {
			pingErr = err
		} else {
			pinged = true
			pingErr = client.Ping(newContext())
		}
	}

	if hostFormat == "json" {
		out := map[string]any{"status": status}
		if hostPing {
			out["pinged"] = pinged
			if pingErr != nil {
				out["pingError"] = pingErr.Error()
			}
		}
		printJSON(out)
		return nil
	}

	fmt.Println("Host integration status:")
	fmt.Println()

	if !status.ConfigFound {
		fmt.Printf("  Config:   not found (%s)\n", cfg.HostConfigPath())
		fmt.Println()
		fmt.Println("varlens will serve standalone.")
		fmt.Println("Run 'varlens host init --manifest <path>' to enable host integration.")
		return nil
	}
	fmt.Printf("  Config:   %s\n", cfg.HostConfigPath())

	if !status.ManifestFound {
		fmt.Printf("  Manifest: unreadable (%s)\n", status.ManifestError)
		fmt.Println()
		fmt.Println("varlens will serve standalone until the manifest resolves.")
		return nil
	}

	fmt.Printf("  Host:     %s\n", status.Host)
	fmt.Printf("  Registry: %s\n", valueOrDash(status.Endpoint))
	fmt.Printf("  Capabilities: %s\n", strings.Join(status.Capabilities, ", "))
	fmt.Println()

	if status.PluginRegistry {
		fmt.Println("Plugin registry available; 'varlens mcp' will attempt registration.")
	} else {
		fmt.Println("Plugin-registry capability absent; varlens will serve standalone.")
	}

	if hostPing {
		switch {
		case !status.PluginRegistry:
			fmt.Println("Ping skipped: no registry endpoint to ping.")
		case pingErr != nil:
			fmt.Printf("Ping failed: %v\n", pingErr)
		default:
			fmt.Println("Ping OK: registry endpoint is reachable.")
		}
	}
	return nil
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
