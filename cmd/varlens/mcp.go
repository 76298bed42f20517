package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"varlens/internal/addon"
	"varlens/internal/admin"
	"varlens/internal/auth"
	"varlens/internal/config"
	"varlens/internal/dispatch"
	"varlens/internal/host"
	"varlens/internal/server"
	"varlens/internal/slogutil"
	"varlens/internal/version"
)

// metricsRetention bounds how long invocation records are kept. Old rows
// are pruned once per serve start, not on a timer.
const metricsRetention = 30 * 24 * time.Hour

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve analysis commands over MCP stdio",
	Long: `Start the Model Context Protocol (MCP) server.

The server exposes two tools over stdio:
  - code_query: run an analysis command (analyze, lint, callers, calls,
    find_var, namespace_graph, unused_vars) against the configured engine
  - clear_analysis_cache: drop all cached analysis results

Before serving, varlens attempts to register with a host plugin registry
when one is configured; if the host or its plugin-registry capability is
absent, it serves standalone with the same tool set.

This command is typically invoked by MCP clients and not directly by
users. Logs go to stderr (and the configured log file); stdout carries
the protocol.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	logger, logFile := serveLogger(cfg)
	if logFile != nil {
		defer func() { _ = logFile.Close() }()
	}

	logger.Info("starting varlens MCP server", "version", version.Short(), "root", cfg.Root)

	table, store := mustGetTable(cfg, logger)
	if store != nil {
		defer func() { _ = store.Close() }()

		if removed, err := store.Cleanup(metricsRetention); err != nil {
			logger.Warn("metrics retention sweep failed", "error", err)
		} else if removed > 0 {
			logger.Debug("pruned old invocation records", "removed", removed)
		}
	}

	manager := buildAddonManager(cfg, table, logger)

	srv := server.New(table, manager, logger)
	defer srv.Shutdown()

	if cfg.Admin.Enabled {
		adminSrv := admin.NewServer(cfg.Admin.Addr, auth.NewStore(cfg.AdminTokenFile()), table.Cache(), store, logger)
		if err := adminSrv.Start(); err != nil {
			logger.Warn("admin API unavailable", "addr", cfg.Admin.Addr, "error", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = adminSrv.Shutdown(ctx)
			}()
		}
	}

	if err := srv.Run(newContext()); err != nil {
		logger.Error("MCP server error", "error", err)
		return err
	}

	return nil
}

// buildAddonManager wires the host-registration pipeline. Host
// integration disabled, or no discoverable host.toml, leaves the
// registry nil and the pipeline falls back to standalone on its first
// step.
func buildAddonManager(cfg *config.Config, table *dispatch.Table, logger *slog.Logger) *addon.Manager {
	var registry host.Registry
	if cfg.Host.Enabled {
		client, err := host.Discover(cfg.HostConfigPath(), logger)
		if err != nil {
			logger.Debug("no host integration config, serving standalone", "error", err)
		} else {
			registry = client
		}
	}

	return addon.NewManager(addon.Config{
		Registry:     registry,
		Identity:     host.Identity{Name: "varlens", Version: version.Version},
		Capabilities: []string{server.ToolCodeQuery, server.ToolClearCache},
		Contribution: addon.Contribution{
			Target:    server.ToolCodeQuery,
			Namespace: "varlens",
			Commands:  server.CommandDescriptions(),
		},
		Cache:  table.Cache(),
		Logger: logger,
	})
}

// serveLogger builds the serve-mode logger: stderr always, teed into the
// configured log file when one is set. Stdout is never written to.
func serveLogger(cfg *config.Config) (*slog.Logger, *os.File) {
	level := logLevel(cfg)
	if cfg.Logging.File == "" {
		return slogutil.NewLogger(os.Stderr, level), nil
	}

	f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logger := slogutil.NewLogger(os.Stderr, level)
		logger.Warn("log file unavailable, logging to stderr only",
			"path", cfg.Logging.File, "error", err)
		return logger, nil
	}

	opts := &slog.HandlerOptions{Level: level}
	logger := slogutil.NewTeeLogger(
		slogutil.NewLensHandler(os.Stderr, opts),
		slogutil.NewLensHandler(f, opts),
	)
	return logger, f
}
