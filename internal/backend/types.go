package backend

// State is the worker's belief about the model server, derived from its log.
type State int32

const (
	StateStarting State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Policy selects how many requests may be forwarded at once.
type Policy int

const (
	// PolicyUnrestricted forwards any number of concurrent requests.
	PolicyUnrestricted Policy = iota
	// PolicySerialized forwards one request at a time in arrival order.
	PolicySerialized
)

func (p Policy) String() string {
	if p == PolicySerialized {
		return "serialized"
	}
	return "unrestricted"
}

// Snapshot is a read-only projection of the backend state.
type Snapshot struct {
	State    State
	Pending  int64
	InFlight int64
}
