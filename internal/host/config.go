package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultTimeoutSeconds bounds registry HTTP calls. Registration runs
// once before serving, outside the command request path.
const DefaultTimeoutSeconds = 10

// IntegrationConfig is the host integration declaration stored in host.toml.
type IntegrationConfig struct {
	// ManifestPath is the location of the host's capability manifest (YAML).
	ManifestPath string `toml:"manifest_path"`

	// Token is an inline bearer token for the registry. Prefer TokenFile.
	Token string `toml:"token,omitempty"`

	// TokenFile is a file holding the bearer token; it wins over Token.
	TokenFile string `toml:"token_file,omitempty"`

	// TimeoutSeconds bounds each registry HTTP call. Zero means
	// DefaultTimeoutSeconds.
	TimeoutSeconds int `toml:"timeout_seconds,omitempty"`
}

// DefaultIntegrationConfig returns a starter config for host init.
func DefaultIntegrationConfig(manifestPath string) *IntegrationConfig {
	return &IntegrationConfig{
		ManifestPath:   manifestPath,
		TimeoutSeconds: DefaultTimeoutSeconds,
	}
}

// LoadIntegrationConfig loads host.toml from disk.
func LoadIntegrationConfig(path string) (*IntegrationConfig, error) {
	var cfg IntegrationConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse host config: %w", err)
	}

	if cfg.ManifestPath == "" {
		return nil, fmt.Errorf("host config missing manifest_path")
	}

	return &cfg, nil
}

// Save writes the config to the given path, creating parent directories.
func (c *IntegrationConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create host config: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode host config: %w", err)
	}

	return nil
}

// ResolveToken returns the bearer token, reading TokenFile when set.
func (c *IntegrationConfig) ResolveToken() (string, error) {
	if c.TokenFile != "" {
		data, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read token file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return c.Token, nil
}

// Timeout returns the effective HTTP timeout.
func (c *IntegrationConfig) Timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return DefaultTimeoutSeconds * time.Second
}
