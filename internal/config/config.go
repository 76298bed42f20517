// Package config loads and validates the varlens configuration from
// .varlens/config.json. A missing file falls back to defaults so the server
// can run without any setup.
package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ConfigDirName is the per-project state directory
const ConfigDirName = ".varlens"

// Config represents the complete varlens configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	Root    string `json:"root" mapstructure:"root"`

	Engine  EngineConfig  `json:"engine" mapstructure:"engine"`
	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Results ResultsConfig `json:"results" mapstructure:"results"`
	Host    HostConfig    `json:"host" mapstructure:"host"`
	Admin   AdminConfig   `json:"admin" mapstructure:"admin"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// EngineConfig selects and parameterizes the external analysis engine
type EngineConfig struct {
	// Adapter is the name of the adapter in engines.toml, or "default"
	Adapter string `json:"adapter" mapstructure:"adapter"`
	// Binary overrides the adapter's command when non-empty
	Binary string `json:"binary" mapstructure:"binary"`
	// Args are extra arguments placed before the operation arguments
	Args []string `json:"args" mapstructure:"args"`
	// WorkDir is the working directory for engine invocations ("" = project root)
	WorkDir string `json:"workDir" mapstructure:"workDir"`
}

// CacheConfig contains analysis cache configuration
type CacheConfig struct {
	AnalysisTtlSeconds int `json:"analysisTtlSeconds" mapstructure:"analysisTtlSeconds"`
}

// ResultsConfig bounds response payloads
type ResultsConfig struct {
	DefaultLimit int `json:"defaultLimit" mapstructure:"defaultLimit"`
}

// HostConfig controls the optional host-integration pipeline
type HostConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// ConfigPath points at host.toml; "" means <root>/.varlens/host.toml
	ConfigPath string `json:"configPath" mapstructure:"configPath"`
}

// AdminConfig controls the loopback admin API
type AdminConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
	// TokenFile stores the bcrypt hash of the admin token;
	// "" means <root>/.varlens/admin_token
	TokenFile string `json:"tokenFile" mapstructure:"tokenFile"`
}

// MetricsConfig controls the sqlite invocation metrics store
type MetricsConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// DbPath is the sqlite file; "" means <root>/.varlens/varlens.db
	DbPath string `json:"dbPath" mapstructure:"dbPath"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	// File receives a copy of serve-mode logs when non-empty
	File string `json:"file" mapstructure:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Root:    ".",
		Engine: EngineConfig{
			Adapter: "default",
		},
		Cache: CacheConfig{
			AnalysisTtlSeconds: 300,
		},
		Results: ResultsConfig{
			DefaultLimit: 200,
		},
		Host: HostConfig{
			Enabled: true,
		},
		Admin: AdminConfig{
			Enabled: false,
			Addr:    "127.0.0.1:7513",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from <root>/.varlens/config.json.
// A missing config file yields DefaultConfig with Root set.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("root", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ConfigDirName))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.Root = root
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.Root == "." || cfg.Root == "" {
		cfg.Root = root
	}

	return cfg, nil
}

// Save writes the configuration to <root>/.varlens/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ConfigDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// StateDir returns the .varlens directory under the configured root
func (c *Config) StateDir() string {
	return filepath.Join(c.Root, ConfigDirName)
}

// HostConfigPath returns the effective host.toml path
func (c *Config) HostConfigPath() string {
	if c.Host.ConfigPath != "" {
		return c.Host.ConfigPath
	}
	return filepath.Join(c.StateDir(), "host.toml")
}

// AdminTokenFile returns the effective admin token file path
func (c *Config) AdminTokenFile() string {
	if c.Admin.TokenFile != "" {
		return c.Admin.TokenFile
	}
	return filepath.Join(c.StateDir(), "admin_token")
}

// MetricsDbPath returns the effective sqlite metrics path
func (c *Config) MetricsDbPath() string {
	if c.Metrics.DbPath != "" {
		return c.Metrics.DbPath
	}
	return filepath.Join(c.StateDir(), "varlens.db")
}

// EngineCatalogPath returns the engines.toml path under the state directory
func (c *Config) EngineCatalogPath() string {
	return filepath.Join(c.StateDir(), "engines.toml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Cache.AnalysisTtlSeconds <= 0 {
		return &ConfigError{Field: "cache.analysisTtlSeconds", Message: "must be positive"}
	}
	if c.Results.DefaultLimit <= 0 {
		return &ConfigError{Field: "results.defaultLimit", Message: "must be positive"}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: "unknown level " + c.Logging.Level}
	}
	if c.Admin.Enabled {
		if _, _, err := net.SplitHostPort(c.Admin.Addr); err != nil {
			return &ConfigError{Field: "admin.addr", Message: "not a host:port address"}
		}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
