// Package host integrates varlens with an optional host environment that
// exposes a plugin registry. The host exports a YAML capability manifest;
// a host.toml file points varlens at it. When the manifest advertises the
// plugin-registry capability, registration runs against the registry's
// HTTP endpoint; when anything in that chain is missing the server falls
// back to standalone operation.
package host

import "context"

// CapabilityPluginRegistry is the capability name the registration
// pipeline resolves before attempting to register.
const CapabilityPluginRegistry = "plugin-registry"

// Handle identifies a resolved host capability.
type Handle struct {
	// Capability is the resolved capability name.
	Capability string `json:"capability"`

	// Endpoint is the registry base URL for this capability.
	Endpoint string `json:"endpoint"`

	// Host is the advertising host's name from the manifest.
	Host string `json:"host"`
}

// Identity describes this plugin to the host registry.
type Identity struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Registry is the host-side plugin registry boundary. Implementations
// must treat every call as fallible; callers downgrade to standalone
// operation on any error.
type Registry interface {
	// ResolveCapability looks up a capability by name. The second
	// return is false when the host does not advertise it.
	ResolveCapability(ctx context.Context, name string) (Handle, bool)

	// Register announces the plugin identity and its capability set.
	Register(ctx context.Context, identity Identity, capabilities []string) error

	// Init asks the host to initialize the registered plugin.
	Init(ctx context.Context, identity Identity) error

	// ContributeCommands publishes the plugin's command map under a
	// namespace on the named host tool.
	ContributeCommands(ctx context.Context, target, namespace string, commands map[string]string) error
}
