// Package server exposes the command router as an MCP stdio server.
// It owns the tool schema, converts dispatch envelopes into MCP
// content, and runs the host-registration pipeline before serving.
// Stdout belongs to the protocol; all logging goes to stderr or file.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"varlens/internal/addon"
	"varlens/internal/dispatch"
	"varlens/internal/envelope"
	"varlens/internal/version"
)

const serverName = "varlens"

// Server wraps the MCP server with varlens dispatch.
type Server struct {
	mcpServer *mcpserver.MCPServer
	table     *dispatch.Table
	manager   *addon.Manager
	logger    *slog.Logger
	tools     []string
}

// New builds the MCP server and registers its tools. The addon manager
// may be nil when host integration is disabled.
func New(table *dispatch.Table, manager *addon.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcpserver.NewMCPServer(
			serverName,
			version.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
			mcpserver.WithInstructions(serverInstructions()),
		),
		table:   table,
		manager: manager,
		logger:  logger,
	}

	s.registerTools()
	return s
}

// Tools returns the registered tool names.
func (s *Server) Tools() []string {
	names := make([]string, len(s.tools))
	copy(names, s.tools)
	return names
}

// Integrate runs the host-registration pipeline and reports the
// outcome. Without a manager the server is standalone by definition.
func (s *Server) Integrate(ctx context.Context) addon.Outcome {
	if s.manager == nil {
		return addon.OutcomeStandalone
	}
	return s.manager.Integrate(ctx)
}

// Run integrates with the host when possible, then serves MCP over
// stdio until the transport closes.
func (s *Server) Run(ctx context.Context) error {
	outcome := s.Integrate(ctx)
	s.logger.Info("serving MCP over stdio",
		"mode", outcome.String(),
		"tools", s.tools,
	)

	return mcpserver.ServeStdio(s.mcpServer)
}

// Shutdown tears down host integration. Safe to call more than once.
func (s *Server) Shutdown() {
	if s.manager != nil {
		s.manager.Shutdown()
	}
}

// CallTool dispatches a tool by name without an MCP client, returning
// the envelope JSON. The CLI query command reuses the serve path this
// way.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case ToolCodeQuery:
		resp := s.dispatchQuery(ctx, args)
		return marshalEnvelope(resp)
	case ToolClearCache:
		return marshalEnvelope(s.clearCache())
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// marshalEnvelope renders an envelope for transport.
func marshalEnvelope(resp *envelope.Response) (string, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(data), nil
}

// serverInstructions tells MCP clients how to drive the tool surface.
func serverInstructions() string {
	return `varlens routes static-analysis queries to an external engine.

Use code_query with a command name: analyze (file summary), lint
(findings, optionally filtered by level), callers / calls (call sites
for a variable), find_var (definition lookup), namespace_graph
(dependency graph), unused_vars (dead variables). Pass the target as
"path"; "file_path" is accepted as an alias. List results are capped
by "limit" (default 200) and responses carry cache and truncation
metadata under "meta". Results are cached briefly per input signature;
call clear_analysis_cache after editing files to force recomputation.`
}
