package host

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIntegrationConfig_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "host.toml")

	cfg := &IntegrationConfig{
		ManifestPath:   "/opt/devhub/manifest.yaml",
		Token:          "secret",
		TimeoutSeconds: 5,
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadIntegrationConfig(path)
	if err != nil {
		t.Fatalf("LoadIntegrationConfig() error = %v", err)
	}
	if loaded.ManifestPath != cfg.ManifestPath {
		t.Errorf("ManifestPath = %q, want %q", loaded.ManifestPath, cfg.ManifestPath)
	}
	if loaded.Token != "secret" {
		t.Errorf("Token = %q, want secret", loaded.Token)
	}
	if loaded.TimeoutSeconds != 5 {
		t.Errorf("TimeoutSeconds = %d, want 5", loaded.TimeoutSeconds)
	}
}

func TestLoadIntegrationConfig_Missing(t *testing.T) {
	_, err := LoadIntegrationConfig(filepath.Join(t.TempDir(), "host.toml"))
	if err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestLoadIntegrationConfig_NoManifestPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.toml")
	if err := os.WriteFile(path, []byte("token = \"x\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadIntegrationConfig(path); err == nil {
		t.Fatal("expected error for config without manifest_path")
	}
}

func TestIntegrationConfig_ResolveToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	if err := os.WriteFile(tokenFile, []byte("  from-file\n"), 0600); err != nil {
		t.Fatalf("failed to write token file: %v", err)
	}

	tests := []struct {
		name string
		cfg  IntegrationConfig
		want string
	}{
		{"inline token", IntegrationConfig{Token: "inline"}, "inline"},
		{"file wins over inline", IntegrationConfig{Token: "inline", TokenFile: tokenFile}, "from-file"},
		{"no token", IntegrationConfig{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ResolveToken()
			if err != nil {
				t.Fatalf("ResolveToken() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIntegrationConfig_ResolveToken_MissingFile(t *testing.T) {
	cfg := IntegrationConfig{TokenFile: filepath.Join(t.TempDir(), "absent")}
	if _, err := cfg.ResolveToken(); err == nil {
		t.Fatal("expected error for missing token file")
	}
}

func TestIntegrationConfig_Timeout(t *testing.T) {
	cfg := IntegrationConfig{}
	if got := cfg.Timeout(); got != DefaultTimeoutSeconds*time.Second {
		t.Errorf("Timeout() = %v, want default", got)
	}

	cfg.TimeoutSeconds = 3
	if got := cfg.Timeout(); got != 3*time.Second {
		t.Errorf("Timeout() = %v, want 3s", got)
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(manifestPath, []byte(sampleManifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	configPath := filepath.Join(dir, "host.toml")
	cfg := DefaultIntegrationConfig(manifestPath)
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	st := Probe(configPath)
	if !st.ConfigFound || !st.ManifestFound {
		t.Fatalf("Probe() = %+v, want config and manifest found", st)
	}
	if st.Host != "devhub" {
		t.Errorf("Host = %q, want devhub", st.Host)
	}
	if !st.PluginRegistry {
		t.Error("PluginRegistry = false, want true")
	}
	if len(st.Capabilities) != 2 {
		t.Errorf("Capabilities = %v", st.Capabilities)
	}
}

func TestProbe_MissingConfig(t *testing.T) {
	st := Probe(filepath.Join(t.TempDir(), "host.toml"))
	if st.ConfigFound {
		t.Error("ConfigFound = true, want false")
	}
	if st.ConfigError == "" {
		t.Error("ConfigError is empty, want a message")
	}
	if st.PluginRegistry {
		t.Error("PluginRegistry = true, want false")
	}
}

func TestProbe_BadManifest(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "host.toml")
	cfg := DefaultIntegrationConfig(filepath.Join(dir, "absent.yaml"))
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	st := Probe(configPath)
	if !st.ConfigFound {
		t.Error("ConfigFound = false, want true")
	}
	if st.ManifestFound {
		t.Error("ManifestFound = true, want false")
	}
	if st.ManifestError == "" {
		t.Error("ManifestError is empty, want a message")
	}
}
