// Package engine defines the boundary to the external static-analysis engine.
// The engine is an external process that understands the analyzed sources;
// varlens treats its results as opaque shapes and never interprets them beyond
// what routing and truncation require.
package engine

// Severity levels accepted by the lint operation.
const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// Levels lists the accepted lint severity levels.
func Levels() []string {
	return []string{LevelError, LevelWarning, LevelInfo}
}

// ValidLevel reports whether s is an accepted severity level.
func ValidLevel(s string) bool {
	switch s {
	case LevelError, LevelWarning, LevelInfo:
		return true
	}
	return false
}

// Finding is a single lint diagnostic from the engine.
type Finding struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
	Severity string `json:"severity"`
	Rule     string `json:"rule,omitempty"`
	Message  string `json:"message"`
	Variable string `json:"variable,omitempty"`
}

// FindingsSummary aggregates findings by severity for the analyze report.
type FindingsSummary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// AnalysisReport is the full-analysis result shape.
type AnalysisReport struct {
	Definitions     int             `json:"definitions"`
	Usages          int             `json:"usages"`
	Namespaces      []string        `json:"namespaces"`
	FindingsSummary FindingsSummary `json:"findingsSummary"`
}

// CallSite is one caller or callee reference of a variable.
type CallSite struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Namespace string `json:"namespace,omitempty"`
	Caller    string `json:"caller,omitempty"`
	Callee    string `json:"callee,omitempty"`
	Context   string `json:"context,omitempty"`
}

// VarDefinition is one definition site of a variable.
type VarDefinition struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Namespace string `json:"namespace,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Scope     string `json:"scope,omitempty"`
}

// GraphNode is a namespace in the dependency graph.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Vars  int    `json:"vars,omitempty"`
}

// GraphEdge is a directed reference between two namespaces.
type GraphEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight,omitempty"`
}

// NamespaceGraph is the namespace dependency graph result shape.
type NamespaceGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// UnusedVar is one variable defined but never used.
type UnusedVar struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Namespace string `json:"namespace,omitempty"`
}
