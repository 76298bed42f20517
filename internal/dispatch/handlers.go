package dispatch

import (
	"context"
	"fmt"

	"varlens/internal/engine"
	"varlens/internal/envelope"
	"varlens/internal/params"
	"varlens/internal/truncate"
)

// WarnLimitIgnored marks responses where an explicit limit had no effect.
const WarnLimitIgnored = "LIMIT_IGNORED"

// limitIgnoredWarning notes an explicit limit on a command whose result is
// never truncated.
func limitIgnoredWarning(req *params.Request) []envelope.Warning {
	if req.Limit <= 0 {
		return nil
	}
	return []envelope.Warning{{
		Code:    WarnLimitIgnored,
		Message: fmt.Sprintf("%s results are never truncated; limit ignored", req.Command),
	}}
}

// LintResult is the lint command payload.
type LintResult struct {
	Level     string           `json:"level,omitempty"`
	Count     int              `json:"count"`
	Truncated bool             `json:"truncated"`
	Items     []engine.Finding `json:"items"`
}

// CallSitesResult is the callers/calls command payload.
type CallSitesResult struct {
	VarName   string            `json:"varName"`
	Namespace string            `json:"namespace,omitempty"`
	Count     int               `json:"count"`
	Truncated bool              `json:"truncated"`
	Items     []engine.CallSite `json:"items"`
}

// UnusedVarsResult is the unused_vars command payload.
type UnusedVarsResult struct {
	Count     int                `json:"count"`
	Truncated bool               `json:"truncated"`
	Items     []engine.UnusedVar `json:"items"`
}

// handleAnalyze returns the full-analysis summary. The report is small by
// construction, so no truncation applies.
func (t *Table) handleAnalyze(ctx context.Context, req *params.Request) (*outcome, error) {
	if err := req.RequirePath(); err != nil {
		return nil, err
	}

	report, info, err := cachedCall(ctx, t, req, func(ctx context.Context) (*engine.AnalysisReport, error) {
		return t.engine.Analyze(ctx, req.Path)
	})
	if err != nil {
		return nil, err
	}

	return &outcome{data: report, cacheInfo: info, warnings: limitIgnoredWarning(req)}, nil
}

// handleLint returns findings bounded by the limit. Count always reflects the
// engine's full result, not the kept prefix.
func (t *Table) handleLint(ctx context.Context, req *params.Request) (*outcome, error) {
	if err := req.RequirePath(); err != nil {
		return nil, err
	}

	findings, info, err := cachedCall(ctx, t, req, func(ctx context.Context) ([]engine.Finding, error) {
		return t.engine.Lint(ctx, req.Path, req.Level)
	})
	if err != nil {
		return nil, err
	}

	bounded := truncate.Apply(findings, t.limit(req))
	return &outcome{
		data: &LintResult{
			Level:     req.Level,
			Count:     bounded.TotalCount,
			Truncated: bounded.Truncated,
			Items:     bounded.Items,
		},
		cacheInfo: info,
		shown:     len(bounded.Items),
		total:     bounded.TotalCount,
		truncated: bounded.Truncated,
	}, nil
}

// handleCallers returns the call sites referencing a variable.
func (t *Table) handleCallers(ctx context.Context, req *params.Request) (*outcome, error) {
	return t.callSites(ctx, req, t.engine.FindCallers)
}

// handleCalls returns the variables a variable references.
func (t *Table) handleCalls(ctx context.Context, req *params.Request) (*outcome, error) {
	return t.callSites(ctx, req, t.engine.FindCalls)
}

func (t *Table) callSites(ctx context.Context, req *params.Request, op func(ctx context.Context, path, namespace, varName string) ([]engine.CallSite, error)) (*outcome, error) {
	if err := req.RequirePath(); err != nil {
		return nil, err
	}
	if err := req.RequireVarName(); err != nil {
		return nil, err
	}

	sites, info, err := cachedCall(ctx, t, req, func(ctx context.Context) ([]engine.CallSite, error) {
		return op(ctx, req.Path, req.Namespace, req.VarName)
	})
	if err != nil {
		return nil, err
	}

	bounded := truncate.Apply(sites, t.limit(req))
	return &outcome{
		data: &CallSitesResult{
			VarName:   req.VarName,
			Namespace: req.Namespace,
			Count:     bounded.TotalCount,
			Truncated: bounded.Truncated,
			Items:     bounded.Items,
		},
		cacheInfo: info,
		shown:     len(bounded.Items),
		total:     bounded.TotalCount,
		truncated: bounded.Truncated,
	}, nil
}

// handleFindVar returns the engine's definition list untouched. Definition
// sets are small, so the list is passed through without truncation or
// wrapping beyond the envelope.
func (t *Table) handleFindVar(ctx context.Context, req *params.Request) (*outcome, error) {
	if err := req.RequirePath(); err != nil {
		return nil, err
	}
	if err := req.RequireVarName(); err != nil {
		return nil, err
	}

	defs, info, err := cachedCall(ctx, t, req, func(ctx context.Context) ([]engine.VarDefinition, error) {
		return t.engine.FindVar(ctx, req.Path, req.VarName, req.Namespace)
	})
	if err != nil {
		return nil, err
	}

	return &outcome{
		data:      defs,
		cacheInfo: info,
		shown:     len(defs),
		total:     len(defs),
		warnings:  limitIgnoredWarning(req),
	}, nil
}

// handleNamespaceGraph returns the namespace dependency graph. Graph size is
// bounded by the project's namespace count, so no truncation applies.
func (t *Table) handleNamespaceGraph(ctx context.Context, req *params.Request) (*outcome, error) {
	if err := req.RequirePath(); err != nil {
		return nil, err
	}

	graph, info, err := cachedCall(ctx, t, req, func(ctx context.Context) (*engine.NamespaceGraph, error) {
		return t.engine.NamespaceGraph(ctx, req.Path)
	})
	if err != nil {
		return nil, err
	}

	return &outcome{data: graph, cacheInfo: info, warnings: limitIgnoredWarning(req)}, nil
}

// handleUnusedVars returns definitions without usages, bounded by the limit.
func (t *Table) handleUnusedVars(ctx context.Context, req *params.Request) (*outcome, error) {
	if err := req.RequirePath(); err != nil {
		return nil, err
	}

	vars, info, err := cachedCall(ctx, t, req, func(ctx context.Context) ([]engine.UnusedVar, error) {
		return t.engine.UnusedVars(ctx, req.Path)
	})
	if err != nil {
		return nil, err
	}

	bounded := truncate.Apply(vars, t.limit(req))
	return &outcome{
		data: &UnusedVarsResult{
			Count:     bounded.TotalCount,
			Truncated: bounded.Truncated,
			Items:     bounded.Items,
		},
		cacheInfo: info,
		shown:     len(bounded.Items),
		total:     bounded.TotalCount,
		truncated: bounded.Truncated,
	}, nil
}
