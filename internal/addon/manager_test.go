package addon

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"varlens/internal/cache"
	"varlens/internal/host"
	"varlens/internal/slogutil"
)

type contributeCall struct {
	target    string
	namespace string
	commands  map[string]string
}

// fakeRegistry scripts host behavior for pipeline tests.
type fakeRegistry struct {
	resolveOK     bool
	registerErr   error
	initErr       error
	contributeErr error

	resolveCalls  int
	registerCalls int
	initCalls     int

	gotIdentity     host.Identity
	gotCapabilities []string
	contributions   []contributeCall
}

func (f *fakeRegistry) ResolveCapability(ctx context.Context, name string) (host.Handle, bool) {
	f.resolveCalls++
	if !f.resolveOK {
		return host.Handle{}, false
	}
	return host.Handle{Capability: name, Endpoint: "http://127.0.0.1:9015", Host: "devhub"}, true
}

func (f *fakeRegistry) Register(ctx context.Context, identity host.Identity, capabilities []string) error {
	f.registerCalls++
	f.gotIdentity = identity
	f.gotCapabilities = capabilities
	return f.registerErr
}

func (f *fakeRegistry) Init(ctx context.Context, identity host.Identity) error {
	f.initCalls++
	return f.initErr
}

func (f *fakeRegistry) ContributeCommands(ctx context.Context, target, namespace string, commands map[string]string) error {
	f.contributions = append(f.contributions, contributeCall{target, namespace, commands})
	return f.contributeErr
}

func testConfig(reg host.Registry, c *cache.Cache) Config {
	return Config{
		Registry:     reg,
		Identity:     host.Identity{Name: "varlens", Version: "1.2.0"},
		Capabilities: []string{"code_query", "clear_analysis_cache"},
		Contribution: Contribution{
			Target:    "code_query",
			Namespace: "varlens",
			Commands:  map[string]string{"lint": "run lint checks"},
		},
		Cache:  c,
		Logger: slogutil.NewDiscardLogger(),
	}
}

func TestIntegrate_Success(t *testing.T) {
	reg := &fakeRegistry{resolveOK: true}
	m := NewManager(testConfig(reg, nil))

	outcome := m.Integrate(context.Background())
	if outcome != OutcomeIntegrated {
		t.Fatalf("Integrate() = %v, want integrated", outcome)
	}
	if m.State() != StateStored {
		t.Errorf("State() = %v, want stored", m.State())
	}

	handle, ok := m.Handle()
	if !ok {
		t.Fatal("Handle() not available after successful pipeline")
	}
	if handle.Capability != host.CapabilityPluginRegistry {
		t.Errorf("handle capability = %q", handle.Capability)
	}
	if handle.Host != "devhub" {
		t.Errorf("handle host = %q", handle.Host)
	}

	if reg.gotIdentity.Name != "varlens" {
		t.Errorf("registered identity = %+v", reg.gotIdentity)
	}
	if len(reg.gotCapabilities) != 2 {
		t.Errorf("registered capabilities = %v", reg.gotCapabilities)
	}
	if len(reg.contributions) != 1 {
		t.Fatalf("contributions = %d, want 1", len(reg.contributions))
	}
	if got := reg.contributions[0]; got.target != "code_query" || got.namespace != "varlens" {
		t.Errorf("contribution = %+v", got)
	}
}

func TestIntegrate_CapabilityAbsent(t *testing.T) {
	reg := &fakeRegistry{resolveOK: false}
	m := NewManager(testConfig(reg, nil))

	if outcome := m.Integrate(context.Background()); outcome != OutcomeStandalone {
		t.Fatalf("Integrate() = %v, want standalone", outcome)
	}
	if m.State() != StateAborted {
		t.Errorf("State() = %v, want aborted", m.State())
	}
	if reg.registerCalls != 0 {
		t.Errorf("registerCalls = %d, want 0 after failed resolve", reg.registerCalls)
	}
	if _, ok := m.Handle(); ok {
		t.Error("Handle() available after aborted pipeline")
	}
}

func TestIntegrate_NoRegistry(t *testing.T) {
	m := NewManager(testConfig(nil, nil))
	if outcome := m.Integrate(context.Background()); outcome != OutcomeStandalone {
		t.Fatalf("Integrate() = %v, want standalone", outcome)
	}
	if m.State() != StateAborted {
		t.Errorf("State() = %v, want aborted", m.State())
	}
}

func TestIntegrate_StepFailures(t *testing.T) {
	tests := []struct {
		name string
		reg  *fakeRegistry
	}{
		{"register fails", &fakeRegistry{resolveOK: true, registerErr: fmt.Errorf("409 conflict")}},
		{"init fails", &fakeRegistry{resolveOK: true, initErr: fmt.Errorf("init timeout")}},
		{"contribute fails", &fakeRegistry{resolveOK: true, contributeErr: fmt.Errorf("bad namespace")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(testConfig(tt.reg, nil))
			if outcome := m.Integrate(context.Background()); outcome != OutcomeStandalone {
				t.Errorf("Integrate() = %v, want standalone", outcome)
			}
			if m.State() != StateAborted {
				t.Errorf("State() = %v, want aborted", m.State())
			}
		})
	}
}

func TestIntegrate_TerminalStatesStick(t *testing.T) {
	reg := &fakeRegistry{resolveOK: true}
	m := NewManager(testConfig(reg, nil))

	m.Integrate(context.Background())
	if outcome := m.Integrate(context.Background()); outcome != OutcomeIntegrated {
		t.Errorf("second Integrate() = %v, want integrated", outcome)
	}
	if reg.registerCalls != 1 {
		t.Errorf("registerCalls = %d, want 1 (no re-registration)", reg.registerCalls)
	}

	aborted := &fakeRegistry{resolveOK: false}
	m2 := NewManager(testConfig(aborted, nil))
	m2.Integrate(context.Background())
	m2.Integrate(context.Background())
	if aborted.resolveCalls != 1 {
		t.Errorf("resolveCalls = %d, want 1 (aborted is terminal)", aborted.resolveCalls)
	}
}

func TestIntegrate_Concurrent(t *testing.T) {
	reg := &fakeRegistry{resolveOK: true}
	m := NewManager(testConfig(reg, nil))

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			outcomes[n] = m.Integrate(context.Background())
		}(i)
	}
	wg.Wait()

	for i, o := range outcomes {
		if o != OutcomeIntegrated {
			t.Errorf("outcome[%d] = %v, want integrated", i, o)
		}
	}
	if reg.registerCalls != 1 {
		t.Errorf("registerCalls = %d, want 1", reg.registerCalls)
	}
}

func TestShutdown_InvalidatesCacheAndResets(t *testing.T) {
	c := cache.New(time.Minute, slogutil.NewDiscardLogger())
	_, _, err := c.GetOrCompute(context.Background(), "k1", func(ctx context.Context) (any, error) {
		return "v1", nil
	})
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("cache Len() = %d, want 1", c.Len())
	}

	reg := &fakeRegistry{resolveOK: true}
	m := NewManager(testConfig(reg, c))
	m.Integrate(context.Background())

	m.Shutdown()
	if c.Len() != 0 {
		t.Errorf("cache Len() = %d after Shutdown, want 0", c.Len())
	}
	if m.State() != StateUnattempted {
		t.Errorf("State() = %v after Shutdown, want unattempted", m.State())
	}
	if _, ok := m.Handle(); ok {
		t.Error("Handle() still available after Shutdown")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	c := cache.New(time.Minute, slogutil.NewDiscardLogger())
	reg := &fakeRegistry{resolveOK: true}
	m := NewManager(testConfig(reg, c))
	m.Integrate(context.Background())

	m.Shutdown()
	m.Shutdown()

	if m.State() != StateUnattempted {
		t.Errorf("State() = %v after double Shutdown, want unattempted", m.State())
	}
}

func TestShutdown_BeforeIntegrate(t *testing.T) {
	m := NewManager(testConfig(&fakeRegistry{}, nil))
	m.Shutdown()
	if m.State() != StateUnattempted {
		t.Errorf("State() = %v, want unattempted", m.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUnattempted, "unattempted"},
		{StateDepsResolved, "deps-resolved"},
		{StateRegistered, "registered"},
		{StateInitialized, "initialized"},
		{StateStored, "stored"},
		{StateAborted, "aborted"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}

	if !StateStored.Terminal() || !StateAborted.Terminal() {
		t.Error("stored and aborted must be terminal")
	}
	if StateRegistered.Terminal() {
		t.Error("registered must not be terminal")
	}
}
