package plugin

// State is the lifecycle state of a plugin instance.
type State int

const (
	// StateDiscovered - found by a scan, never activated.
	StateDiscovered State = iota

	// StateValidated - passed the compatibility and configuration gates.
	StateValidated

	// StateActivated - running and registered with the host.
	StateActivated

	// StateDeactivated - was active, cleanly stopped.
	StateDeactivated

	// StateFailed - activation failed after validation and was rolled back.
	StateFailed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateValidated:
		return "validated"
	case StateActivated:
		return "activated"
	case StateDeactivated:
		return "deactivated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
