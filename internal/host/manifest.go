package host

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the capability manifest a host environment exports.
// Hosts write it as YAML; host.toml points at its location.
type Manifest struct {
	// Host identifies the exporting environment.
	Host HostInfo `yaml:"host"`

	// Registry is where plugin registration calls go.
	Registry RegistryInfo `yaml:"registry"`

	// Capabilities lists what the host offers.
	Capabilities []Capability `yaml:"capabilities"`
}

// HostInfo names the host environment.
type HostInfo struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
}

// RegistryInfo locates the host's plugin registry.
type RegistryInfo struct {
	// Endpoint is the registry base URL, e.g. http://127.0.0.1:9015.
	Endpoint string `yaml:"endpoint"`
}

// Capability is one advertised host capability.
type Capability struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
}

// LoadManifest reads and parses a capability manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if m.Host.Name == "" {
		return nil, fmt.Errorf("manifest missing host.name")
	}

	return &m, nil
}

// HasCapability reports whether the manifest advertises a capability.
func (m *Manifest) HasCapability(name string) bool {
	for _, c := range m.Capabilities {
		if c.Name == name {
			return true
		}
	}
	return false
}

// CapabilityNames returns the advertised capability names in manifest order.
func (m *Manifest) CapabilityNames() []string {
	names := make([]string, 0, len(m.Capabilities))
	for _, c := range m.Capabilities {
		names = append(names, c.Name)
	}
	return names
}
