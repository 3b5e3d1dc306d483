package baseunit

// ConnectionState is the lifecycle state of a Controller.
type ConnectionState uint8

const (
	// StateDisconnected indicates the controller has not been started.
	StateDisconnected ConnectionState = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateEnumerating indicates the initial inventory walk is running.
	StateEnumerating

	// StateMonitoring is the steady state. Events flow into the device
	// registry and commands may be submitted.
	StateMonitoring

	// StateReconnecting indicates the controller is waiting out a
	// backoff delay before the next connection attempt.
	StateReconnecting

	// StateClosed is terminal. The controller cannot be restarted.
	StateClosed
)

// String returns a human-readable state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateEnumerating:
		return "ENUMERATING"
	case StateMonitoring:
		return "MONITORING"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
