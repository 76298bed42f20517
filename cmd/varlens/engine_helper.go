package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"varlens/internal/cache"
	"varlens/internal/config"
	"varlens/internal/dispatch"
	"varlens/internal/engine"
	"varlens/internal/metrics"
	"varlens/internal/slogutil"
)

var (
	tableOnce   sync.Once
	sharedTable *dispatch.Table
	sharedStore *metrics.Store
	tableErr    error
)

// getTable returns a shared dispatch table wired to the configured engine.
// The table is lazily initialized on first use. The returned metrics store
// is nil when metrics are disabled or the database cannot be opened.
func getTable(cfg *config.Config, logger *slog.Logger) (*dispatch.Table, *metrics.Store, error) {
	tableOnce.Do(func() {
		eng, err := buildEngine(cfg, logger)
		if err != nil {
			tableErr = err
			return
		}

		ttl := time.Duration(cfg.Cache.AnalysisTtlSeconds) * time.Second
		c := cache.New(ttl, logger)

		if cfg.Metrics.Enabled {
			store, err := metrics.Open(cfg.MetricsDbPath(), logger)
			if err != nil {
				logger.Warn("metrics store unavailable, recording disabled", "error", err)
			} else {
				sharedStore = store
			}
		}

		sharedTable = dispatch.New(eng, c, sharedStore, logger, cfg.Results.DefaultLimit)
	})

	return sharedTable, sharedStore, tableErr
}

// mustGetTable returns the shared dispatch table or exits on error.
func mustGetTable(cfg *config.Config, logger *slog.Logger) (*dispatch.Table, *metrics.Store) {
	table, store, err := getTable(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}
	return table, store
}

// buildEngine resolves the configured adapter against the catalog and
// constructs the exec engine for it.
func buildEngine(cfg *config.Config, logger *slog.Logger) (engine.Engine, error) {
	catalog, err := engine.LoadCatalog(cfg.EngineCatalogPath())
	if err != nil {
		return nil, err
	}

	adapter, ok := catalog.Resolve(cfg.Engine.Adapter)
	if !ok {
		return nil, fmt.Errorf("unknown engine adapter %q (available: %v)",
			cfg.Engine.Adapter, catalog.Names())
	}

	binary := adapter.Binary
	if cfg.Engine.Binary != "" {
		binary = cfg.Engine.Binary
	}

	args := append(append([]string{}, adapter.Args...), cfg.Engine.Args...)

	workDir := cfg.Engine.WorkDir
	if workDir == "" {
		workDir = cfg.Root
	}

	return engine.NewExecEngine(binary, args, workDir, logger), nil
}

// mustLoadConfig loads configuration for the resolved project root or exits.
func mustLoadConfig() *config.Config {
	root, err := resolveRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// logLevel resolves the effective log level. The --verbose and --quiet flags
// override the configured level; --quiet wins when both are set.
func logLevel(cfg *config.Config) slog.Level {
	if quietFlag || verboseFlag {
		verbosity := 0
		if verboseFlag {
			verbosity = 2
		}
		return slogutil.LevelFromVerbosity(verbosity, quietFlag)
	}
	return slogutil.LevelFromString(cfg.Logging.Level)
}

// newLogger creates a stderr logger honoring the effective log level.
func newLogger(cfg *config.Config) *slog.Logger {
	return slogutil.NewLogger(os.Stderr, logLevel(cfg))
}

// printJSON outputs data as formatted JSON
func printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}
