package wifi

import "errors"

// Module errors.
var (
	ErrNotInitialized     = errors.New("wifi module not initialized")
	ErrAlreadyInitialized = errors.New("wifi module already initialized")
	ErrAlreadyStarted     = errors.New("wifi module already started")
	ErrClosed             = errors.New("wifi module closed")
)

// State represents the lifecycle state of the module.
type State uint8

const (
	// StateUninitialized is the zero state before Init.
	StateUninitialized State = iota

	// StateInitialized means the stack layers are up and event handlers
	// are registered.
	StateInitialized

	// StateProvisioning means the provisioning window is open and the
	// module is waiting for credentials from a companion client.
	StateProvisioning

	// StateConnecting means the station is associating with the stored
	// network.
	StateConnecting

	// StateRunning means the device holds an IP address.
	StateRunning

	// StateClosed is terminal.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitialized:
		return "Initialized"
	case StateProvisioning:
		return "Provisioning"
	case StateConnecting:
		return "Connecting"
	case StateRunning:
		return "Running"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// BitConnected is the connectivity flag raised on the module's event
// group when an IP address is obtained. It is never lowered; transient
// losses surface as events only.
const BitConnected uint32 = 1 << 0
