package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"varlens/internal/bundle"
	"varlens/internal/host"
	"varlens/internal/metrics"
)

var (
	bundleOutput string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Write a diagnostics bundle",
	Long: `Collect diagnostics into a tar.gz archive for bug reports.

The bundle contains the version info, the effective configuration, the
host integration probe result, and recent invocation metrics. Secrets
are never included; the admin token file is not read.

Examples:
  varlens bundle
  varlens bundle -o /tmp/varlens-diag.tar.gz`,
	RunE: runBundle,
}

func init() {
	bundleCmd.Flags().StringVarP(&bundleOutput, "output", "o", "", "Output path (default varlens-bundle-<timestamp>.tar.gz)")
	rootCmd.AddCommand(bundleCmd)
}

func runBundle(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)

	out := bundleOutput
	if out == "" {
		out = fmt.Sprintf("varlens-bundle-%s.tar.gz", time.Now().Format("20060102-150405"))
	}

	contents := bundle.Contents{Config: cfg}

	status := host.Probe(cfg.HostConfigPath())
	contents.HostStatus = &status

	if cfg.Metrics.Enabled {
		store, err := metrics.Open(cfg.MetricsDbPath(), logger)
		if err != nil {
			logger.Warn("metrics store unavailable, bundle omits metrics", "error", err)
		} else {
			defer func() { _ = store.Close() }()
			contents.Metrics = store
		}
	}

	if err := bundle.WriteFile(out, contents); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}

	fmt.Printf("Support bundle written to %s\n", out)
	return nil
}
