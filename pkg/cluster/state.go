package cluster

// State is the adapter lifecycle. Commands are accepted only in StateReady.
type State int

const (
	// StateUninitialized is the zero value before Init runs.
	StateUninitialized State = iota
	// StateDiscovering means seed nodes are being probed for liveness and
	// shard-assignment completeness.
	StateDiscovering
	// StateWaiting means discovery found an incomplete shard map and is
	// polling until coverage completes or the discovery timeout elapses.
	StateWaiting
	// StateConnecting means coverage is confirmed and the long-lived
	// connection is being established and stability-checked.
	StateConnecting
	// StateReady means the smoke test passed; commands are accepted.
	StateReady
	// StateDegraded means a topology change or connection loss was observed;
	// commands are refused until a reconnect succeeds.
	StateDegraded
	// StateFailed is terminal until an explicit Reconnect: initialization
	// exhausted its retry budget. The host process keeps running.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateDiscovering:
		return "discovering"
	case StateWaiting:
		return "waiting"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
