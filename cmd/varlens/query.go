package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"varlens/internal/envelope"
	"varlens/internal/server"
)

var (
	queryPath      string
	queryFilePath  string
	queryNamespace string
	queryVarName   string
	queryLevel     string
	queryLimit     int
	queryFormat    string
)

var queryCmd = &cobra.Command{
	Use:   "query <command>",
	Short: "Run one analysis command and print the response envelope",
	Long: `Dispatch a single analysis command without an MCP client.

The output is the same schema-versioned envelope MCP clients receive,
including cache and truncation metadata.

Commands:
  analyze          Summarize definitions, usages, and namespaces for a file
  lint             List findings, optionally filtered by minimum level
  callers          List call sites that invoke a variable
  calls            List call sites a variable makes
  find_var         Locate definitions of a variable by name
  namespace_graph  Return the namespace dependency graph
  unused_vars      List variables defined but never used

Examples:
  varlens query analyze --path src/app.flux
  varlens query lint --path src --level warning --limit 50
  varlens query callers --path src --var-name handleRequest
  varlens query find_var --path src --var-name parseConfig --namespace app.config`,
	Args: cobra.ExactArgs(1),
	Run:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryPath, "path", "", "File or directory to analyze")
	queryCmd.Flags().StringVar(&queryFilePath, "file-path", "", "Alias for --path; ignored when --path is set")
	queryCmd.Flags().StringVar(&queryNamespace, "namespace", "", "Namespace filter")
	queryCmd.Flags().StringVar(&queryVarName, "var-name", "", "Variable name for callers, calls, and find_var")
	queryCmd.Flags().StringVar(&queryLevel, "level", "", "Minimum finding level for lint (info, warning, error)")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Maximum list items to return (default 200)")
	queryCmd.Flags().StringVar(&queryFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	table, _ := mustGetTable(cfg, logger)

	toolArgs := map[string]any{"command": args[0]}
	if queryPath != "" {
		toolArgs["path"] = queryPath
	}
	if queryFilePath != "" {
		toolArgs["file_path"] = queryFilePath
	}
	if queryNamespace != "" {
		toolArgs["namespace"] = queryNamespace
	}
	if queryVarName != "" {
		toolArgs["var_name"] = queryVarName
	}
	if queryLevel != "" {
		toolArgs["level"] = queryLevel
	}
	if queryLimit > 0 {
		toolArgs["limit"] = queryLimit
	}

	srv := server.New(table, nil, logger)
	text, err := srv.CallTool(newContext(), server.ToolCodeQuery, toolArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var resp envelope.Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding envelope: %v\n", err)
		os.Exit(1)
	}

	if queryFormat == "human" {
		printEnvelopeHuman(&resp)
	} else {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, []byte(text), "", "  "); err != nil {
			fmt.Println(text)
		} else {
			fmt.Println(pretty.String())
		}
	}

	if resp.IsError() {
		os.Exit(1)
	}
}

// printEnvelopeHuman renders an envelope for terminal reading. The data
// payload stays JSON; the surrounding metadata becomes a short header.
func printEnvelopeHuman(resp *envelope.Response) {
	if resp.IsError() {
		fmt.Printf("Error [%s]: %s\n", resp.Code, *resp.Error)
		if len(resp.Details) > 0 {
			detail, _ := json.MarshalIndent(resp.Details, "", "  ")
			fmt.Printf("Details: %s\n", detail)
		}
		return
	}

	fmt.Printf("Command: %s\n", resp.Command)
	if resp.Meta != nil {
		if resp.Meta.Cache != nil && resp.Meta.Cache.Hit {
			fmt.Printf("Cache:   hit (age %s)\n", resp.Meta.Cache.Age)
		} else {
			fmt.Println("Cache:   miss")
		}
		if t := resp.Meta.Truncation; t != nil && t.IsTruncated {
			fmt.Printf("Results: %d of %d (truncated)\n", t.Shown, t.Total)
		}
	}
	fmt.Println(strings.Repeat("-", 40))

	data, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", resp.Data)
	} else {
		fmt.Println(string(data))
	}

	for _, w := range resp.Warnings {
		fmt.Printf("! %s\n", w.Message)
	}
	if resp.Meta != nil && resp.Meta.DurationMs > 0 {
		fmt.Printf("\n(Query took %dms)\n", resp.Meta.DurationMs)
	}
}
