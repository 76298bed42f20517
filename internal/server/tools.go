package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"varlens/internal/dispatch"
	"varlens/internal/engine"
	"varlens/internal/envelope"
	"varlens/internal/params"
)

// Tool names exposed over MCP.
const (
	ToolCodeQuery  = "code_query"
	ToolClearCache = "clear_analysis_cache"
)

// CommandDescriptions maps each command to the description shown to
// hosts and clients.
func CommandDescriptions() map[string]string {
	return map[string]string{
		dispatch.CmdAnalyze:        "Summarize definitions, usages, namespaces, and finding counts for a file",
		dispatch.CmdLint:           "List lint findings for a file, optionally filtered by minimum level",
		dispatch.CmdCallers:        "List call sites that invoke a variable",
		dispatch.CmdCalls:          "List call sites a variable makes",
		dispatch.CmdFindVar:        "Locate definitions of a variable by name",
		dispatch.CmdNamespaceGraph: "Return the namespace dependency graph for a path",
		dispatch.CmdUnusedVars:     "List variables that are defined but never used",
	}
}

// registerTools wires the MCP tool schema to dispatch.
func (s *Server) registerTools() {
	codeQuery := mcp.NewTool(ToolCodeQuery,
		mcp.WithDescription("Run a static-analysis query against the configured engine. "+
			"List results are truncated to the limit and cached per input signature."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Analysis command to run"),
			mcp.Enum(dispatch.Commands()...),
		),
		mcp.WithString("path",
			mcp.Description("File or directory to analyze"),
		),
		mcp.WithString("file_path",
			mcp.Description("Alias for path; ignored when path is set"),
		),
		mcp.WithString("namespace",
			mcp.Description("Namespace filter for call-site and definition lookups"),
		),
		mcp.WithString("var_name",
			mcp.Description("Variable name for callers, calls, and find_var"),
		),
		mcp.WithString("level",
			mcp.Description("Minimum finding level for lint"),
			mcp.Enum(engine.Levels()...),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum list items to return (default 200)"),
		),
	)
	s.mcpServer.AddTool(codeQuery, s.handleCodeQuery)

	clearCache := mcp.NewTool(ToolClearCache,
		mcp.WithDescription("Drop every cached analysis result so the next query recomputes. Idempotent."),
	)
	s.mcpServer.AddTool(clearCache, s.handleClearCache)

	s.tools = []string{ToolCodeQuery, ToolClearCache}
}

func (s *Server) handleCodeQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp := s.dispatchQuery(ctx, req.GetArguments())
	return toolResult(resp)
}

func (s *Server) handleClearCache(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.clearCache())
}

// dispatchQuery pulls the command out of the arguments and routes the
// rest; a missing command falls through to the unknown-command path so
// the client still gets an envelope.
func (s *Server) dispatchQuery(ctx context.Context, args map[string]any) *envelope.Response {
	command, _ := args[params.KeyCommand].(string)
	return s.table.Dispatch(ctx, command, args)
}

func (s *Server) clearCache() *envelope.Response {
	dropped := s.table.Cache().InvalidateAll()
	s.logger.Info("analysis cache cleared", "droppedEntries", dropped)
	return envelope.Operational(map[string]any{
		"status":      "ok",
		"invalidated": dropped,
	})
}

// toolResult converts an envelope into MCP content. Error envelopes
// stay valid tool results with the error flag set; the transport-level
// error return is reserved for protocol failures.
func toolResult(resp *envelope.Response) (*mcp.CallToolResult, error) {
	text, err := marshalEnvelope(resp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := mcp.NewToolResultText(text)
	result.IsError = resp.IsError()
	return result, nil
}
