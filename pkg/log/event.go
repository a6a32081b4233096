package log

import (
	"time"
)

// Event is one captured provisioning event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"2,keyasint"`

	// DeviceName is the advertised device name, when known.
	DeviceName string `cbor:"3,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Stack       *StackEvent       `cbor:"4,keyasint,omitempty"`  // Raw stack notification
	StateChange *StateChangeEvent `cbor:"5,keyasint,omitempty"`  // Module state change
	Session     *SessionEvent     `cbor:"6,keyasint,omitempty"`  // Provisioning session
	Error       *ErrorEventData   `cbor:"7,keyasint,omitempty"`  // Errors at any layer
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryStack indicates a raw stack notification.
	CategoryStack Category = 0
	// CategoryState indicates a module state change.
	CategoryState Category = 1
	// CategorySession indicates a provisioning-session event.
	CategorySession Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryStack:
		return "STACK"
	case CategoryState:
		return "STATE"
	case CategorySession:
		return "SESSION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StackEvent captures a notification delivered by the wireless stack.
type StackEvent struct {
	// Namespace is the stack subsystem name (IP, WIFI, PROV).
	Namespace string `cbor:"1,keyasint"`

	// Kind is the event kind name within the namespace.
	Kind string `cbor:"2,keyasint"`

	// Addr is the acquired address for got-address events.
	Addr string `cbor:"3,keyasint,omitempty"`

	// Reason is the disconnect reason, when the stack supplies one.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures module state transitions.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// SessionEvent captures one provisioning-session step.
type SessionEvent struct {
	// Step is the session step (STARTED, SECURED, CREDENTIALS, APPLIED, FAILED, CLOSED).
	Step SessionStep `cbor:"1,keyasint"`

	// Peer identifies the provisioning peer, when the transport knows it.
	Peer string `cbor:"2,keyasint,omitempty"`
}

// SessionStep indicates a provisioning-session step.
type SessionStep uint8

const (
	// SessionStarted indicates a session was opened by a peer.
	SessionStarted SessionStep = 0
	// SessionSecured indicates the secure channel was established.
	SessionSecured SessionStep = 1
	// SessionCredentials indicates credentials were received.
	SessionCredentials SessionStep = 2
	// SessionApplied indicates credentials were stored and applied.
	SessionApplied SessionStep = 3
	// SessionFailed indicates the session failed.
	SessionFailed SessionStep = 4
	// SessionClosed indicates the session ended.
	SessionClosed SessionStep = 5
)

// String returns the session step name.
func (s SessionStep) String() string {
	switch s {
	case SessionStarted:
		return "STARTED"
	case SessionSecured:
		return "SECURED"
	case SessionCredentials:
		return "CREDENTIALS"
	case SessionApplied:
		return "APPLIED"
	case SessionFailed:
		return "FAILED"
	case SessionClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
