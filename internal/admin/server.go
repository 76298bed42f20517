// Package admin serves the loopback administrative API. It exists so a
// second process can clear the analysis cache or read invocation
// metrics while the MCP server owns stdio. Every endpoint except
// /health requires the admin bearer token.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"varlens/internal/auth"
	"varlens/internal/cache"
	"varlens/internal/metrics"
	"varlens/internal/version"
)

const (
	authHeader = "Authorization"
	authScheme = "Bearer "

	defaultMetricsWindow = 24 * time.Hour
)

// Server is the loopback admin HTTP server.
type Server struct {
	addr      string
	tokens    *auth.Store
	cache     *cache.Cache
	store     *metrics.Store
	logger    *slog.Logger
	startedAt time.Time

	server   *http.Server
	listener net.Listener
}

// NewServer wires an admin server. The metrics store may be nil when
// metrics are disabled.
func NewServer(addr string, tokens *auth.Store, c *cache.Cache, store *metrics.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:      addr,
		tokens:    tokens,
		cache:     c,
		store:     store,
		logger:    logger,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)

	api := http.NewServeMux()
	api.HandleFunc("/api/v1/cache/invalidate", s.handleCacheInvalidate)
	api.HandleFunc("/api/v1/metrics/summary", s.handleMetricsSummary)
	mux.Handle("/api/v1/", s.withAuth(api))

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("admin listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.startedAt = time.Now()

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("admin server error", "error", err)
		}
	}()

	s.logger.Info("admin API listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// APIResponse is the admin API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// withAuth requires a valid admin bearer token.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokens == nil || !s.tokens.Exists() {
			s.writeError(w, http.StatusUnauthorized, "TOKEN_NOT_PROVISIONED",
				"no admin token provisioned; run 'varlens token new'")
			return
		}

		header := r.Header.Get(authHeader)
		if header == "" {
			s.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing Authorization header")
			return
		}
		if !strings.HasPrefix(header, authScheme) {
			s.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid Authorization scheme, expected Bearer")
			return
		}

		token := strings.TrimPrefix(header, authScheme)
		if !s.tokens.Verify(token) {
			s.logger.Warn("admin request with invalid token",
				"path", r.URL.Path, "token", auth.MaskToken(token))
			s.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	CacheEntries int    `json:"cacheEntries"`
}

// handleHealth handles GET /health (no auth required).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := 0
	if s.cache != nil {
		entries = s.cache.Len()
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		Version:      version.Version,
		Uptime:       formatDuration(time.Since(s.startedAt)),
		CacheEntries: entries,
	})
}

// handleCacheInvalidate handles POST /api/v1/cache/invalidate.
func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dropped := 0
	if s.cache != nil {
		dropped = s.cache.InvalidateAll()
	}
	s.logger.Info("cache invalidated via admin API", "droppedEntries", dropped)

	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]any{"status": "ok", "invalidated": dropped},
	})
}

// MetricsSummary is the /api/v1/metrics/summary payload. Commands are
// ordered by invocation count, busiest first.
type MetricsSummary struct {
	Since    string               `json:"since"`
	Commands []*metrics.Aggregate `json:"commands"`
}

// handleMetricsSummary handles GET /api/v1/metrics/summary?since=24h.
func (s *Server) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "METRICS_DISABLED", "metrics store is not configured")
		return
	}

	window := defaultMetricsWindow
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "INVALID_SINCE", "since must be a positive duration like 24h")
			return
		}
		window = parsed
	}

	aggregates, err := s.store.Aggregates(time.Now().Add(-window))
	if err != nil {
		s.logger.Error("failed to aggregate metrics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "METRICS_QUERY_FAILED", err.Error())
		return
	}

	commands := make([]*metrics.Aggregate, 0, len(aggregates))
	for _, agg := range aggregates {
		commands = append(commands, agg)
	}
	sort.Slice(commands, func(i, j int) bool {
		if commands[i].Invocations != commands[j].Invocations {
			return commands[i].Invocations > commands[j].Invocations
		}
		return commands[i].Command < commands[j].Command
	})

	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: MetricsSummary{
			Since:    window.String(),
			Commands: commands,
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode admin response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	})
}

// formatDuration formats an uptime for display.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
