package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"varlens/internal/admin"
)

var (
	cacheAddr   string
	cacheToken  string
	cacheFormat string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the analysis cache of a running server",
	Long: `Inspect and invalidate the analysis cache of a running varlens server
through its loopback admin API.

The admin API must be enabled in config (admin.enabled) and a token
provisioned with 'varlens token new'.

Examples:
  varlens cache clear --token vl_admin_...
  VARLENS_ADMIN_TOKEN=vl_admin_... varlens cache clear
  varlens cache status`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Invalidate all cached analysis results",
	Long: `Drop every cached analysis result so the next query recomputes.

The operation is idempotent: clearing an empty cache succeeds and
reports zero invalidated entries.`,
	RunE: runCacheClear,
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache entry count of a running server",
	RunE:  runCacheStatus,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheAddr, "addr", "", "Admin API address (default from config)")
	cacheCmd.PersistentFlags().StringVar(&cacheToken, "token", "", "Admin token (or VARLENS_ADMIN_TOKEN)")
	cacheCmd.PersistentFlags().StringVar(&cacheFormat, "format", "human", "Output format (json, human)")

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	rootCmd.AddCommand(cacheCmd)
}

// adminClient builds a client for the configured admin API address.
func adminClient() *admin.Client {
	cfg := mustLoadConfig()

	addr := cacheAddr
	if addr == "" {
		addr = cfg.Admin.Addr
	}

	token := cacheToken
	if token == "" {
		token = os.Getenv("VARLENS_ADMIN_TOKEN")
	}

	return admin.NewClient(addr, token)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	client := adminClient()

	invalidated, err := client.InvalidateCache(newContext())
	if err != nil {
		return fmt.Errorf("cache clear failed (is 'varlens mcp' running with admin.enabled?): %w", err)
	}

	if cacheFormat == "json" {
		printJSON(map[string]any{"status": "ok", "invalidated": invalidated})
	} else {
		fmt.Printf("Invalidated %d cached entries.\n", invalidated)
	}
	return nil
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	client := adminClient()

	health, err := client.Health(newContext())
	if err != nil {
		return fmt.Errorf("health check failed (is 'varlens mcp' running with admin.enabled?): %w", err)
	}

	if cacheFormat == "json" {
		printJSON(health)
	} else {
		fmt.Printf("Server:        %s (v%s, up %s)\n", health.Status, health.Version, health.Uptime)
		fmt.Printf("Cache entries: %d\n", health.CacheEntries)
	}
	return nil
}
