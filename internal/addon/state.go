// Package addon runs the optional host-registration pipeline. The
// server attempts to integrate with a host plugin registry before
// serving; any failure along the way downgrades to standalone mode
// instead of surfacing to callers.
package addon

// State tracks how far the registration pipeline has advanced.
type State int

const (
	StateUnattempted State = iota
	StateDepsResolved
	StateRegistered
	StateInitialized
	StateStored
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateUnattempted:
		return "unattempted"
	case StateDepsResolved:
		return "deps-resolved"
	case StateRegistered:
		return "registered"
	case StateInitialized:
		return "initialized"
	case StateStored:
		return "stored"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the pipeline has finished, successfully or not.
func (s State) Terminal() bool {
	return s == StateStored || s == StateAborted
}

// Outcome is all callers ever see of the pipeline result.
type Outcome int

const (
	// OutcomeStandalone means the server registers its own tools.
	OutcomeStandalone Outcome = iota

	// OutcomeIntegrated means the host accepted the registration.
	OutcomeIntegrated
)

func (o Outcome) String() string {
	if o == OutcomeIntegrated {
		return "integrated"
	}
	return "standalone"
}
