package provproto

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Protocol version carried in session requests.
const Version = 1

// Wire errors.
var (
	ErrInvalidMessage     = errors.New("invalid provisioning message")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

// encMode is the CBOR encoder mode for provisioning messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for provisioning messages.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical, // Deterministic key ordering
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Type identifies a provisioning message.
type Type uint8

const (
	// TypeSessionRequest opens a session (client -> device).
	TypeSessionRequest Type = 1

	// TypeSessionResponse answers a session request (device -> client).
	TypeSessionResponse Type = 2

	// TypeSessionConfirm proves the client knows the PoP (client -> device).
	TypeSessionConfirm Type = 3

	// TypeSealed carries an encrypted inner message in either direction.
	TypeSealed Type = 4
)

// String returns the message type name.
func (t Type) String() string {
	switch t {
	case TypeSessionRequest:
		return "SESSION_REQUEST"
	case TypeSessionResponse:
		return "SESSION_RESPONSE"
	case TypeSessionConfirm:
		return "SESSION_CONFIRM"
	case TypeSealed:
		return "SEALED"
	default:
		return "UNKNOWN"
	}
}

// Message is the outer provisioning envelope. Exactly one of the typed
// fields matching Type is set.
type Message struct {
	Type            Type             `cbor:"1,keyasint"`
	SessionRequest  *SessionRequest  `cbor:"2,keyasint,omitempty"`
	SessionResponse *SessionResponse `cbor:"3,keyasint,omitempty"`
	SessionConfirm  *SessionConfirm  `cbor:"4,keyasint,omitempty"`

	// Sealed is the AEAD ciphertext of an encoded inner message.
	Sealed []byte `cbor:"5,keyasint,omitempty"`
}

// SessionRequest opens a session.
type SessionRequest struct {
	// Version is the protocol version.
	Version uint8 `cbor:"1,keyasint"`

	// Security is the requested security level (0 or 1).
	Security uint8 `cbor:"2,keyasint"`

	// ClientPub is the client's X25519 public key (security 1).
	ClientPub []byte `cbor:"3,keyasint,omitempty"`
}

// SessionResponse answers a session request.
type SessionResponse struct {
	// DevicePub is the device's X25519 public key (security 1).
	DevicePub []byte `cbor:"1,keyasint,omitempty"`

	// DeviceConfirm proves the device derived the same PoP-bound key.
	DeviceConfirm []byte `cbor:"2,keyasint,omitempty"`
}

// SessionConfirm completes the handshake.
type SessionConfirm struct {
	// ClientConfirm proves the client derived the same PoP-bound key.
	ClientConfirm []byte `cbor:"1,keyasint"`
}

// InnerType identifies a message inside a sealed envelope.
type InnerType uint8

const (
	// InnerSetCredentials delivers wireless credentials (client -> device).
	InnerSetCredentials InnerType = 1

	// InnerStatus reports the device's handling of the previous inner
	// message (device -> client).
	InnerStatus InnerType = 2

	// InnerApply asks the device to store the delivered credentials and
	// close the provisioning window (client -> device).
	InnerApply InnerType = 3
)

// Inner is the plaintext carried inside a sealed envelope.
type Inner struct {
	Type InnerType `cbor:"1,keyasint"`

	// SSID and Passphrase are set for InnerSetCredentials.
	SSID       string `cbor:"2,keyasint,omitempty"`
	Passphrase string `cbor:"3,keyasint,omitempty"`

	// OK is set for InnerStatus.
	OK bool `cbor:"4,keyasint,omitempty"`

	// Detail is an optional status detail for InnerStatus.
	Detail string `cbor:"5,keyasint,omitempty"`
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// DecodeMessage decodes and validates an outer envelope.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := decMode.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch msg.Type {
	case TypeSessionRequest:
		if msg.SessionRequest == nil {
			return nil, fmt.Errorf("%w: missing session request body", ErrInvalidMessage)
		}
	case TypeSessionResponse:
		if msg.SessionResponse == nil {
			return nil, fmt.Errorf("%w: missing session response body", ErrInvalidMessage)
		}
	case TypeSessionConfirm:
		if msg.SessionConfirm == nil {
			return nil, fmt.Errorf("%w: missing session confirm body", ErrInvalidMessage)
		}
	case TypeSealed:
		if len(msg.Sealed) == 0 {
			return nil, fmt.Errorf("%w: empty sealed body", ErrInvalidMessage)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %d", ErrInvalidMessage, msg.Type)
	}
	return &msg, nil
}
