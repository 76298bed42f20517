// Package dispatch routes tool commands to engine operations. Every command
// flows through the same pipeline: parameter resolution, a cache-fronted
// engine call, truncation where the result is an unbounded sequence, and an
// envelope wrapping either the payload or the failure. No failure escapes
// Dispatch; the worst outcome is an error envelope.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"varlens/internal/cache"
	"varlens/internal/engine"
	"varlens/internal/envelope"
	"varlens/internal/errors"
	"varlens/internal/metrics"
	"varlens/internal/params"
	"varlens/internal/truncate"
)

// The fixed command set. Dispatch is exact-string lookup against these names;
// anything else is rejected with the sorted list of valid commands.
const (
	CmdAnalyze        = "analyze"
	CmdLint           = "lint"
	CmdCallers        = "callers"
	CmdCalls          = "calls"
	CmdFindVar        = "find_var"
	CmdNamespaceGraph = "namespace_graph"
	CmdUnusedVars     = "unused_vars"
)

// Commands returns the full command set in sorted order.
func Commands() []string {
	return []string{
		CmdAnalyze,
		CmdCallers,
		CmdCalls,
		CmdFindVar,
		CmdLint,
		CmdNamespaceGraph,
		CmdUnusedVars,
	}
}

// truncationReason is reported in truncation metadata.
const truncationReason = "limit"

// Table is the command dispatch table.
type Table struct {
	engine       engine.Engine
	cache        *cache.Cache
	store        *metrics.Store
	logger       *slog.Logger
	defaultLimit int
	handlers     map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, req *params.Request) (*outcome, error)

// outcome is what a handler produces before envelope wrapping.
type outcome struct {
	data      any
	cacheInfo cache.Info
	shown     int
	total     int
	truncated bool
	warnings  []envelope.Warning
}

// New builds the dispatch table. The metrics store may be nil; records are
// then dropped. A non-positive defaultLimit falls back to the package-wide
// default.
func New(eng engine.Engine, c *cache.Cache, store *metrics.Store, logger *slog.Logger, defaultLimit int) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	defaultLimit = truncate.Normalize(defaultLimit)

	t := &Table{
		engine:       eng,
		cache:        c,
		store:        store,
		logger:       logger,
		defaultLimit: defaultLimit,
	}
	t.handlers = map[string]handlerFunc{
		CmdAnalyze:        t.handleAnalyze,
		CmdLint:           t.handleLint,
		CmdCallers:        t.handleCallers,
		CmdCalls:          t.handleCalls,
		CmdFindVar:        t.handleFindVar,
		CmdNamespaceGraph: t.handleNamespaceGraph,
		CmdUnusedVars:     t.handleUnusedVars,
	}
	return t
}

// Cache exposes the analysis cache for administrative invalidation.
func (t *Table) Cache() *cache.Cache {
	return t.cache
}

// Dispatch routes one command invocation and always returns an envelope.
// Handler failures of any kind, panics included, become error envelopes.
func (t *Table) Dispatch(ctx context.Context, command string, args map[string]any) *envelope.Response {
	requestID := uuid.New().String()
	start := time.Now()

	handler, ok := t.handlers[command]
	if !ok {
		err := errors.NewUnknownCommand(command, Commands())
		t.logger.Warn("unknown command rejected", "command", command, "requestId", requestID)
		resp := envelope.New().Command(command).Error(err).
			WithTiming(time.Since(start)).WithRequestID(requestID).Build()
		t.record(command, requestID, nil, resp, time.Since(start))
		return resp
	}

	req, err := params.Resolve(args)
	if err == nil {
		req.Command = command
		t.logger.Debug("dispatching command",
			"command", command,
			"path", req.Path,
			"requestId", requestID)

		var out *outcome
		out, err = t.invoke(ctx, handler, req)
		if err == nil {
			elapsed := time.Since(start)
			b := envelope.New().
				Command(command).
				Data(out.data).
				WithTruncation(out.truncated, out.shown, out.total, truncationReason).
				WithCache(out.cacheInfo.Hit, out.cacheInfo.Age, out.cacheInfo.Key).
				WithTiming(elapsed).
				WithRequestID(requestID)
			for _, w := range out.warnings {
				b.WarningWithCode(w.Code, w.Message)
			}
			resp := b.Build()
			t.record(command, requestID, out, resp, elapsed)
			return resp
		}
	}

	elapsed := time.Since(start)
	t.logger.Warn("command failed",
		"command", command,
		"code", string(errors.CodeOf(err)),
		"error", err.Error(),
		"requestId", requestID)
	resp := envelope.New().Command(command).Error(err).
		WithTiming(elapsed).WithRequestID(requestID).Build()
	t.record(command, requestID, nil, resp, elapsed)
	return resp
}

// invoke runs a handler behind the failure boundary.
func (t *Table) invoke(ctx context.Context, handler handlerFunc, req *params.Request) (out *outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("handler panic recovered", "command", req.Command, "panic", fmt.Sprint(r))
			out = nil
			err = errors.NewInternal(fmt.Sprintf("handler panic: %v", r), nil)
		}
	}()
	return handler(ctx, req)
}

// record persists one invocation to the metrics store.
func (t *Table) record(command, requestID string, out *outcome, resp *envelope.Response, elapsed time.Duration) {
	if t.store == nil {
		return
	}

	inv := metrics.Invocation{
		Command:   command,
		RequestID: requestID,
		EngineMs:  elapsed.Milliseconds(),
	}
	if out != nil {
		inv.CacheHit = out.cacheInfo.Hit
		inv.TotalResults = out.total
		inv.ReturnedResults = out.shown
		inv.Truncated = out.truncated
	}
	if resp.IsError() {
		inv.Failed = true
		inv.Code = resp.Code
	}
	if data, err := json.Marshal(resp); err == nil {
		inv.ResponseBytes = len(data)
	}

	if err := t.store.RecordInvocation(inv); err != nil {
		t.logger.Warn("failed to record invocation", "command", command, "error", err.Error())
	}
}

// limit returns the effective truncation limit for a request.
func (t *Table) limit(req *params.Request) int {
	if req.Limit > 0 {
		return req.Limit
	}
	return t.defaultLimit
}

// requestKey derives the cache key from the request-affecting fields.
// The limit is deliberately absent: it only shapes post-cache truncation.
func requestKey(req *params.Request) string {
	return cache.Fingerprint(req.Command, req.Path, req.Namespace, req.VarName, req.Level)
}

// cachedCall funnels an engine operation through the cache and restores the
// concrete result type on the way out.
func cachedCall[T any](ctx context.Context, t *Table, req *params.Request, fn func(ctx context.Context) (T, error)) (T, cache.Info, error) {
	var zero T

	value, info, err := t.cache.GetOrCompute(ctx, requestKey(req), func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		if _, ok := errors.AsLensError(err); ok {
			return zero, info, err
		}
		return zero, info, errors.NewEngineFailure(req.Command, err)
	}

	typed, ok := value.(T)
	if !ok {
		return zero, info, errors.NewInternal(
			fmt.Sprintf("cache returned %T for command %q", value, req.Command), nil)
	}
	return typed, info, nil
}
