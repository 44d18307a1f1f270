package health

import "fmt"

// State is the health of a module or a flow node.
//
// The zero value is [Degraded]: unknown is not an error.
type State int

const (
	// Degraded means the signal is missing, partial, or only a warning.
	Degraded State = iota

	// Healthy means the component reported a passing signal.
	Healthy

	// Failed means the component reported a failing signal.
	Failed
)

// String returns "healthy", "degraded" or "failed".
func (s State) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Failed:
		return "failed"
	default:
		return "degraded"
	}
}

// Class returns the CSS-style severity class used by renderers:
// "ok", "warn" or "bad".
func (s State) Class() string {
	switch s {
	case Healthy:
		return "ok"
	case Failed:
		return "bad"
	default:
		return "warn"
	}
}

// Label returns the human label shown next to a module.
func (s State) Label() string {
	switch s {
	case Healthy:
		return "Healthy"
	case Failed:
		return "Failed"
	default:
		return "Degraded/Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "healthy":
		*s = Healthy
	case "degraded":
		*s = Degraded
	case "failed":
		*s = Failed
	default:
		return fmt.Errorf("unknown health state %q", string(text))
	}
	return nil
}

// stateOf maps a boolean health predicate onto the module grid scale.
func stateOf(healthy bool) State {
	if healthy {
		return Healthy
	}
	return Failed
}
