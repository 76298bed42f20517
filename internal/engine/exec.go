package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Operation subcommands understood by adapter binaries. Every adapter prints
// a single JSON document on stdout and diagnostics on stderr.
const (
	opAnalyze        = "analyze"
	opLint           = "lint"
	opCallers        = "callers"
	opCalls          = "calls"
	opFindVar        = "find-var"
	opNamespaceGraph = "namespace-graph"
	opUnusedVars     = "unused-vars"
)

// stderrTailLimit bounds how much engine stderr is echoed into errors.
const stderrTailLimit = 512

// ExecEngine invokes an external analysis binary, one process per operation.
// It carries no timeout of its own; cancellation comes from the caller's ctx.
type ExecEngine struct {
	binary string
	args   []string
	dir    string
	logger *slog.Logger
}

// NewExecEngine creates an engine around the given binary. Extra args are
// placed before the operation subcommand on every invocation. Dir is the
// working directory for the process ("" inherits the current one).
func NewExecEngine(binary string, args []string, dir string, logger *slog.Logger) *ExecEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecEngine{
		binary: binary,
		args:   args,
		dir:    dir,
		logger: logger,
	}
}

// Binary returns the adapter binary this engine invokes.
func (e *ExecEngine) Binary() string {
	return e.binary
}

// Analyze implements Engine.
func (e *ExecEngine) Analyze(ctx context.Context, path string) (*AnalysisReport, error) {
	var report AnalysisReport
	if err := e.run(ctx, opAnalyze, []string{path}, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Lint implements Engine.
func (e *ExecEngine) Lint(ctx context.Context, path, level string) ([]Finding, error) {
	args := []string{path}
	if level != "" {
		args = append(args, "--level", level)
	}
	var findings []Finding
	if err := e.run(ctx, opLint, args, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

// FindCallers implements Engine.
func (e *ExecEngine) FindCallers(ctx context.Context, path, namespace, varName string) ([]CallSite, error) {
	return e.callSites(ctx, opCallers, path, namespace, varName)
}

// FindCalls implements Engine.
func (e *ExecEngine) FindCalls(ctx context.Context, path, namespace, varName string) ([]CallSite, error) {
	return e.callSites(ctx, opCalls, path, namespace, varName)
}

func (e *ExecEngine) callSites(ctx context.Context, op, path, namespace, varName string) ([]CallSite, error) {
	args := []string{path, "--var", varName}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	var sites []CallSite
	if err := e.run(ctx, op, args, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// FindVar implements Engine.
func (e *ExecEngine) FindVar(ctx context.Context, path, varName, namespace string) ([]VarDefinition, error) {
	args := []string{path, "--var", varName}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	var defs []VarDefinition
	if err := e.run(ctx, opFindVar, args, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// NamespaceGraph implements Engine.
func (e *ExecEngine) NamespaceGraph(ctx context.Context, path string) (*NamespaceGraph, error) {
	var graph NamespaceGraph
	if err := e.run(ctx, opNamespaceGraph, []string{path}, &graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

// UnusedVars implements Engine.
func (e *ExecEngine) UnusedVars(ctx context.Context, path string) ([]UnusedVar, error) {
	var vars []UnusedVar
	if err := e.run(ctx, opUnusedVars, []string{path}, &vars); err != nil {
		return nil, err
	}
	return vars, nil
}

// run executes one engine operation and decodes its stdout into out.
func (e *ExecEngine) run(ctx context.Context, op string, opArgs []string, out any) error {
	argv := make([]string, 0, len(e.args)+1+len(opArgs))
	argv = append(argv, e.args...)
	argv = append(argv, op)
	argv = append(argv, opArgs...)

	cmd := exec.CommandContext(ctx, e.binary, argv...)
	cmd.Dir = e.dir

	start := time.Now()
	output, err := cmd.Output()
	elapsed := time.Since(start)

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("%s %s exited with code %d: %s",
				e.binary, op, exitErr.ExitCode(), stderrTail(exitErr.Stderr))
		}
		return fmt.Errorf("%s %s: %w", e.binary, op, err)
	}

	e.logger.Debug("engine call finished",
		"op", op,
		"binary", e.binary,
		"durationMs", elapsed.Milliseconds(),
		"bytes", len(output))

	if err := json.Unmarshal(output, out); err != nil {
		return fmt.Errorf("%s %s returned malformed output: %w", e.binary, op, err)
	}
	return nil
}

// stderrTail returns the trailing portion of engine stderr for error messages.
func stderrTail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if s == "" {
		return "(no stderr)"
	}
	if len(s) > stderrTailLimit {
		s = "..." + s[len(s)-stderrTailLimit:]
	}
	return s
}
