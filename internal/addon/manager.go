package addon

import (
	"context"
	"log/slog"
	"sync"

	"varlens/internal/cache"
	"varlens/internal/errors"
	"varlens/internal/host"
)

// Contribution is the command map the plugin publishes to the host
// during initialization.
type Contribution struct {
	// Target is the host tool the commands attach to.
	Target string

	// Namespace prefixes the contributed commands on the host side.
	Namespace string

	// Commands maps command names to their descriptions.
	Commands map[string]string
}

// Config wires a Manager.
type Config struct {
	// Registry is the host boundary; nil means no host was discovered.
	Registry host.Registry

	// Identity announces this plugin to the host.
	Identity host.Identity

	// Capabilities is the capability set sent with registration.
	Capabilities []string

	// Contribution is published during host-side initialization.
	Contribution Contribution

	// Cache is invalidated on shutdown.
	Cache *cache.Cache

	Logger *slog.Logger
}

// Manager drives the registration pipeline and owns its state. A
// Manager is safe for concurrent use; the pipeline itself runs once
// per serve cycle.
type Manager struct {
	mu  sync.Mutex
	cfg Config

	state  State
	handle host.Handle
}

// NewManager creates a pipeline manager in the unattempted state.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{cfg: cfg, state: StateUnattempted}
}

// pipeline carries values between steps of one integration attempt.
type pipeline struct {
	handle host.Handle
}

// step is one named stage of the registration pipeline.
type step struct {
	name string
	run  func(ctx context.Context, p *pipeline) (State, error)
}

// Integrate runs the pipeline to a terminal state and reports the
// outcome. Once terminal, further calls return the decided outcome
// without touching the host again.
func (m *Manager) Integrate(ctx context.Context) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateStored:
		return OutcomeIntegrated
	case StateAborted:
		return OutcomeStandalone
	}

	steps := []step{
		{"resolve-capability", m.stepResolve},
		{"register", m.stepRegister},
		{"initialize", m.stepInitialize},
		{"store", m.stepStore},
	}

	p := &pipeline{}
	for _, s := range steps {
		next, err := s.run(ctx, p)
		if err != nil {
			m.cfg.Logger.Debug("integration step failed, falling back to standalone",
				"step", s.name,
				"state", m.state.String(),
				"error", err,
			)
			m.state = StateAborted
			return OutcomeStandalone
		}
		m.state = next
		m.cfg.Logger.Debug("integration step complete",
			"step", s.name,
			"state", next.String(),
		)
	}

	m.cfg.Logger.Info("registered with host plugin registry",
		"host", m.handle.Host,
		"capability", m.handle.Capability,
	)
	return OutcomeIntegrated
}

func (m *Manager) stepResolve(ctx context.Context, p *pipeline) (State, error) {
	if m.cfg.Registry == nil {
		return 0, errors.NewHostCapabilityAbsent("resolve-capability", nil)
	}
	handle, ok := m.cfg.Registry.ResolveCapability(ctx, host.CapabilityPluginRegistry)
	if !ok {
		return 0, errors.NewHostCapabilityAbsent("resolve-capability", nil)
	}
	p.handle = handle
	return StateDepsResolved, nil
}

func (m *Manager) stepRegister(ctx context.Context, p *pipeline) (State, error) {
	if err := m.cfg.Registry.Register(ctx, m.cfg.Identity, m.cfg.Capabilities); err != nil {
		return 0, errors.NewHostCapabilityAbsent("register", err)
	}
	return StateRegistered, nil
}

// stepInitialize runs host-side init and then contributes the command
// map; the contribution is init's payload, not a separate state.
func (m *Manager) stepInitialize(ctx context.Context, p *pipeline) (State, error) {
	if err := m.cfg.Registry.Init(ctx, m.cfg.Identity); err != nil {
		return 0, errors.NewHostCapabilityAbsent("initialize", err)
	}
	c := m.cfg.Contribution
	if len(c.Commands) > 0 {
		if err := m.cfg.Registry.ContributeCommands(ctx, c.Target, c.Namespace, c.Commands); err != nil {
			return 0, errors.NewHostCapabilityAbsent("contribute-commands", err)
		}
	}
	return StateInitialized, nil
}

func (m *Manager) stepStore(ctx context.Context, p *pipeline) (State, error) {
	m.handle = p.handle
	return StateStored, nil
}

// State returns the current pipeline state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Handle returns the stored plugin handle; the second return is false
// until the pipeline reaches the stored state.
func (m *Manager) Handle() (host.Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateStored {
		return host.Handle{}, false
	}
	return m.handle, true
}

// Shutdown tears down the integration. It is idempotent: before the
// pipeline has stored a handle it does nothing; afterwards it
// invalidates the analysis cache, clears the handle, and resets to
// unattempted. Late in-flight requests keep working against a cold
// cache.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateStored {
		return
	}

	var dropped int
	if m.cfg.Cache != nil {
		dropped = m.cfg.Cache.InvalidateAll()
	}

	m.handle = host.Handle{}
	m.state = StateUnattempted
	m.cfg.Logger.Debug("host integration shut down", "droppedEntries", dropped)
}
