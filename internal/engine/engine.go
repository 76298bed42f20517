package engine

import "context"

// Engine is the interface every analysis engine adapter implements.
// Operations are synchronous and potentially slow; callers are expected to
// front them with the analysis cache. Implementations must honor ctx
// cancellation but must not impose their own deadlines.
type Engine interface {
	// Analyze runs a full analysis of path and returns the summary report.
	Analyze(ctx context.Context, path string) (*AnalysisReport, error)

	// Lint returns findings at the given severity level for path.
	// Order is engine-defined and must be preserved by callers.
	Lint(ctx context.Context, path, level string) ([]Finding, error)

	// FindCallers returns the call sites that reference varName.
	FindCallers(ctx context.Context, path, namespace, varName string) ([]CallSite, error)

	// FindCalls returns the variables referenced from varName.
	FindCalls(ctx context.Context, path, namespace, varName string) ([]CallSite, error)

	// FindVar returns the definition sites of varName. Namespace narrows the
	// search when non-empty.
	FindVar(ctx context.Context, path, varName, namespace string) ([]VarDefinition, error)

	// NamespaceGraph returns the namespace dependency graph for path.
	NamespaceGraph(ctx context.Context, path string) (*NamespaceGraph, error)

	// UnusedVars returns variables defined under path but never used.
	UnusedVars(ctx context.Context, path string) ([]UnusedVar, error)
}
