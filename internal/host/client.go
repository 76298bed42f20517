package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"varlens/internal/version"
)

const maxBodySize = 1 << 20

// retryConfig configures retry behavior for registry calls.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxRetries: 2,
		baseDelay:  200 * time.Millisecond,
		maxDelay:   2 * time.Second,
	}
}

// Client talks to a host plugin registry over HTTP. It implements
// Registry; capability resolution reads the loaded manifest, the
// mutating calls go to the registry endpoint.
type Client struct {
	manifest *Manifest
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

// NewClient builds a registry client from a loaded manifest.
func NewClient(manifest *Manifest, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		manifest: manifest,
		endpoint: manifest.Registry.Endpoint,
		token:    token,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Discover loads host.toml and the manifest it points at, returning a
// ready registry client. A missing or unparsable host.toml means no
// host integration is configured.
func Discover(configPath string, logger *slog.Logger) (*Client, error) {
	cfg, err := LoadIntegrationConfig(configPath)
	if err != nil {
		return nil, err
	}

	manifest, err := LoadManifest(cfg.ManifestPath)
	if err != nil {
		return nil, err
	}

	token, err := cfg.ResolveToken()
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Debug("host manifest loaded",
			"host", manifest.Host.Name,
			"capabilities", len(manifest.Capabilities),
		)
	}

	return NewClient(manifest, token, cfg.Timeout(), logger), nil
}

// Manifest returns the manifest the client was built from.
func (c *Client) Manifest() *Manifest {
	return c.manifest
}

// ResolveCapability resolves a capability against the host manifest.
func (c *Client) ResolveCapability(ctx context.Context, name string) (Handle, bool) {
	if c.manifest == nil || !c.manifest.HasCapability(name) {
		return Handle{}, false
	}
	if c.endpoint == "" {
		return Handle{}, false
	}
	return Handle{
		Capability: name,
		Endpoint:   c.endpoint,
		Host:       c.manifest.Host.Name,
	}, true
}

type registerRequest struct {
	Identity     Identity `json:"identity"`
	Capabilities []string `json:"capabilities"`
}

type initRequest struct {
	Identity Identity `json:"identity"`
}

type contributeRequest struct {
	TargetTool string            `json:"target_tool"`
	Namespace  string            `json:"namespace"`
	CommandMap map[string]string `json:"command_map"`
}

// registryResponse is the uniform response body for registry calls.
type registryResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Register announces the plugin to the host registry.
func (c *Client) Register(ctx context.Context, identity Identity, capabilities []string) error {
	return c.call(ctx, "/api/v1/plugins/register", registerRequest{
		Identity:     identity,
		Capabilities: capabilities,
	})
}

// Init asks the host to initialize the registered plugin.
func (c *Client) Init(ctx context.Context, identity Identity) error {
	return c.call(ctx, "/api/v1/plugins/init", initRequest{
		Identity: identity,
	})
}

// ContributeCommands publishes the command map under a namespace on the
// named host tool.
func (c *Client) ContributeCommands(ctx context.Context, target, namespace string, commands map[string]string) error {
	return c.call(ctx, "/api/v1/plugins/commands", contributeRequest{
		TargetTool: target,
		Namespace:  namespace,
		CommandMap: commands,
	})
}

// Ping checks that the registry endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/v1/plugins/health", nil); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// call performs a POST and checks the success flag in the response.
func (c *Client) call(ctx context.Context, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, path, data)
	if err != nil {
		return err
	}

	var resp registryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse registry response: %w", err)
	}
	if !resp.Success {
		if resp.Error != "" {
			return fmt.Errorf("registry refused %s: %s", path, resp.Error)
		}
		return fmt.Errorf("registry refused %s", path)
	}

	return nil
}

// doRequest performs an HTTP request with retry logic. Network errors
// and 5xx responses retry with exponential backoff; 4xx responses fail
// immediately.
func (c *Client) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	cfg := defaultRetryConfig()

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid registry endpoint: %w", err)
	}
	u.Path = path

	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<uint(attempt-1))
			if delay > cfg.maxDelay {
				delay = cfg.maxDelay
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}

			c.logger.Debug("retrying registry request",
				"attempt", attempt+1,
				"url", u.String(),
			)
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", version.UserAgent())
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = &RegistryError{StatusCode: resp.StatusCode, Message: string(data)}
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, &RegistryError{StatusCode: resp.StatusCode, Message: string(data)}
		}

		return data, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", cfg.maxRetries, lastErr)
}

// RegistryError is an HTTP-level error from the host registry.
type RegistryError struct {
	StatusCode int
	Message    string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry error %d: %s", e.StatusCode, e.Message)
}
