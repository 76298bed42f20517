package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"varlens/internal/admin"
	"varlens/internal/metrics"
)

var (
	statsSince   time.Duration
	statsCommand string
	statsFormat  string
	statsAddr    string
	statsToken   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated invocation metrics",
	Long: `Display per-command invocation metrics from the local metrics store.

Tracks cache hit rates, failure counts, truncation frequency, and engine
latency for every analysis command. With --addr, the summary is fetched
from a running 'varlens mcp' admin API instead of the local database.

Examples:
  varlens stats                      # Last 24 hours
  varlens stats --since 168h         # Last 7 days
  varlens stats --command lint
  varlens stats --format json
  varlens stats --addr 127.0.0.1:9845`,
	Run: runStats,
}

func init() {
	statsCmd.Flags().DurationVar(&statsSince, "since", 24*time.Hour, "Aggregation window")
	statsCmd.Flags().StringVar(&statsCommand, "command", "", "Filter to one command")
	statsCmd.Flags().StringVar(&statsFormat, "format", "human", "Output format (json, human)")
	statsCmd.Flags().StringVar(&statsAddr, "addr", "", "Fetch from a running server's admin API instead")
	statsCmd.Flags().StringVar(&statsToken, "token", "", "Admin token (or VARLENS_ADMIN_TOKEN)")
	rootCmd.AddCommand(statsCmd)
}

// StatsResponseCLI contains the metrics summary for CLI output
type StatsResponseCLI struct {
	Period       string               `json:"period"`
	Since        string               `json:"since"`
	TotalRecords int64                `json:"totalRecords,omitempty"`
	OldestRecord string               `json:"oldestRecord,omitempty"`
	NewestRecord string               `json:"newestRecord,omitempty"`
	Commands     []*metrics.Aggregate `json:"commands"`
}

func runStats(cmd *cobra.Command, args []string) {
	if statsSince <= 0 {
		statsSince = 24 * time.Hour
	}

	var response StatsResponseCLI
	if statsAddr != "" {
		response = remoteStats()
	} else {
		response = localStats()
	}

	commands := response.Commands
	response.Commands = make([]*metrics.Aggregate, 0, len(commands))
	for _, agg := range commands {
		if statsCommand != "" && agg.Command != statsCommand {
			continue
		}
		response.Commands = append(response.Commands, agg)
	}
	sort.Slice(response.Commands, func(i, j int) bool {
		a, b := response.Commands[i], response.Commands[j]
		if a.Invocations != b.Invocations {
			return a.Invocations > b.Invocations
		}
		return a.Command < b.Command
	})

	if statsFormat == "json" {
		printJSON(response)
		return
	}

	fmt.Printf("Invocation metrics (%s, since %s)\n", response.Period, response.Since)
	if statsAddr == "" {
		fmt.Printf("Records: %d total", response.TotalRecords)
		if response.OldestRecord != "" {
			fmt.Printf(" (oldest %s, newest %s)", response.OldestRecord, response.NewestRecord)
		}
		fmt.Println()
	}
	fmt.Println()

	if len(response.Commands) == 0 {
		fmt.Println("No invocations recorded in this window.")
		return
	}

	fmt.Printf("  %-16s %7s %7s %6s %6s %8s %8s\n",
		"COMMAND", "RUNS", "HITS", "FAIL", "TRUNC", "HIT%", "AVG MS")
	for _, agg := range response.Commands {
		fmt.Printf("  %-16s %7d %7d %6d %6d %7.0f%% %8.1f\n",
			agg.Command, agg.Invocations, agg.CacheHits, agg.Failures,
			agg.TruncatedRuns, agg.HitRate*100, agg.AvgMs)
	}
}

// localStats reads aggregates from the on-disk metrics store.
func localStats() StatsResponseCLI {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)

	if !cfg.Metrics.Enabled {
		fmt.Fprintln(os.Stderr, "Error: metrics are disabled in config (metrics.enabled)")
		os.Exit(1)
	}

	store, err := metrics.Open(cfg.MetricsDbPath(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening metrics store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	since := time.Now().Add(-statsSince)
	aggregates, err := store.Aggregates(since)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading metrics: %v\n", err)
		os.Exit(1)
	}

	totalRecords, oldest, newest, err := store.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading metrics: %v\n", err)
		os.Exit(1)
	}

	response := StatsResponseCLI{
		Period:       fmt.Sprintf("last %s", statsSince),
		Since:        since.Format("2006-01-02 15:04:05"),
		TotalRecords: totalRecords,
		Commands:     make([]*metrics.Aggregate, 0, len(aggregates)),
	}
	if oldest != nil {
		response.OldestRecord = oldest.Format("2006-01-02 15:04:05")
	}
	if newest != nil {
		response.NewestRecord = newest.Format("2006-01-02 15:04:05")
	}
	for _, agg := range aggregates {
		response.Commands = append(response.Commands, agg)
	}
	return response
}

// remoteStats fetches the summary from a running server's admin API. The
// admin endpoint does not expose record-count totals, so only the
// per-command aggregates are filled in.
func remoteStats() StatsResponseCLI {
	token := statsToken
	if token == "" {
		token = os.Getenv("VARLENS_ADMIN_TOKEN")
	}

	client := admin.NewClient(statsAddr, token)
	summary, err := client.Summary(newContext(), statsSince)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching metrics (is 'varlens mcp' running with admin.enabled?): %v\n", err)
		os.Exit(1)
	}

	return StatsResponseCLI{
		Period:   fmt.Sprintf("last %s", statsSince),
		Since:    time.Now().Add(-statsSince).Format("2006-01-02 15:04:05"),
		Commands: summary.Commands,
	}
}
