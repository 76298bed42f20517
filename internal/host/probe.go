package host

// Status reports how far host integration resolves, for host status.
type Status struct {
	ConfigFound    bool     `json:"configFound"`
	ConfigError    string   `json:"configError,omitempty"`
	ManifestFound  bool     `json:"manifestFound"`
	ManifestError  string   `json:"manifestError,omitempty"`
	Host           string   `json:"host,omitempty"`
	Endpoint       string   `json:"endpoint,omitempty"`
	Capabilities   []string `json:"capabilities,omitempty"`
	PluginRegistry bool     `json:"pluginRegistry"`
}

// Probe resolves host.toml and the manifest it points at without
// touching the network, reporting how far the chain gets.
func Probe(configPath string) Status {
	var st Status

	cfg, err := LoadIntegrationConfig(configPath)
	if err != nil {
		st.ConfigError = err.Error()
		return st
	}
	st.ConfigFound = true

	manifest, err := LoadManifest(cfg.ManifestPath)
	if err != nil {
		st.ManifestError = err.Error()
		return st
	}
	st.ManifestFound = true
	st.Host = manifest.Host.Name
	st.Endpoint = manifest.Registry.Endpoint
	st.Capabilities = manifest.CapabilityNames()
	st.PluginRegistry = manifest.HasCapability(CapabilityPluginRegistry) && manifest.Registry.Endpoint != ""

	return st
}
