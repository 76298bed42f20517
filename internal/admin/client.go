package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a running admin server from another process.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient builds a client for the admin API at addr (host:port).
func NewClient(addr, token string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// rawResponse defers data decoding to the caller.
type rawResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// Health fetches /health. It needs no token.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	body, err := c.do(ctx, http.MethodGet, "/health")
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("parse health response: %w", err)
	}
	return &health, nil
}

// InvalidateCache drops every cache entry, returning how many were held.
func (c *Client) InvalidateCache(ctx context.Context) (int, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/v1/cache/invalidate")
	if err != nil {
		return 0, err
	}

	var resp rawResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parse invalidate response: %w", err)
	}
	if !resp.Success {
		return 0, responseError(resp.Error)
	}

	var data struct {
		Invalidated int `json:"invalidated"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return 0, fmt.Errorf("parse invalidate data: %w", err)
	}
	return data.Invalidated, nil
}

// Summary fetches aggregated metrics over the given window.
func (c *Client) Summary(ctx context.Context, since time.Duration) (*MetricsSummary, error) {
	path := "/api/v1/metrics/summary"
	if since > 0 {
		path += "?since=" + since.String()
	}

	body, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var resp rawResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse summary response: %w", err)
	}
	if !resp.Success {
		return nil, responseError(resp.Error)
	}

	var summary MetricsSummary
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		return nil, fmt.Errorf("parse summary data: %w", err)
	}
	return &summary, nil
}

func (c *Client) do(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(authHeader, authScheme+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("admin API unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var wrapped rawResponse
		if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil {
			return nil, fmt.Errorf("admin API: %s (%s)", wrapped.Error.Message, wrapped.Error.Code)
		}
		return nil, fmt.Errorf("admin API returned HTTP %d", resp.StatusCode)
	}

	return body, nil
}

func responseError(apiErr *APIError) error {
	if apiErr == nil {
		return fmt.Errorf("admin API reported failure")
	}
	return fmt.Errorf("admin API: %s (%s)", apiErr.Message, apiErr.Code)
}
