package netstack

import (
	"errors"
	"net/netip"
)

// Stack errors.
var (
	ErrNotInitialized     = errors.New("stack not initialized")
	ErrAlreadyInitialized = errors.New("stack already initialized")
	ErrNoSubscription     = errors.New("no such subscription")
	ErrNoCredentials      = errors.New("no stored credentials")
)

// Namespace identifies the stack subsystem an event originates from.
type Namespace uint8

const (
	// NamespaceIP carries IP-layer events (address acquired or lost).
	NamespaceIP Namespace = iota + 1

	// NamespaceWifi carries wireless-link events (station lifecycle).
	NamespaceWifi

	// NamespaceProv carries provisioning-session events.
	NamespaceProv
)

// String returns the namespace name.
func (n Namespace) String() string {
	switch n {
	case NamespaceIP:
		return "IP"
	case NamespaceWifi:
		return "WIFI"
	case NamespaceProv:
		return "PROV"
	default:
		return "UNKNOWN"
	}
}

// Kind identifies a specific event within a namespace.
type Kind uint8

const (
	// KindAny matches every kind when used as a subscription filter.
	KindAny Kind = 0

	// IP-layer events.
	KindGotIPv4 Kind = 1
	KindGotIPv6 Kind = 2
	KindLostIP  Kind = 3

	// Wireless-link events.
	KindStaStart        Kind = 10
	KindStaConnected    Kind = 11
	KindStaDisconnected Kind = 12

	// Provisioning events.
	KindProvStart       Kind = 20
	KindProvCredRecv    Kind = 21
	KindProvCredFail    Kind = 22
	KindProvCredSuccess Kind = 23
	KindProvEnd         Kind = 24
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "ANY"
	case KindGotIPv4:
		return "GOT_IPV4"
	case KindGotIPv6:
		return "GOT_IPV6"
	case KindLostIP:
		return "LOST_IP"
	case KindStaStart:
		return "STA_START"
	case KindStaConnected:
		return "STA_CONNECTED"
	case KindStaDisconnected:
		return "STA_DISCONNECTED"
	case KindProvStart:
		return "PROV_START"
	case KindProvCredRecv:
		return "PROV_CRED_RECV"
	case KindProvCredFail:
		return "PROV_CRED_FAIL"
	case KindProvCredSuccess:
		return "PROV_CRED_SUCCESS"
	case KindProvEnd:
		return "PROV_END"
	default:
		return "UNKNOWN"
	}
}

// Event is one notification delivered by the stack. Payload shape depends
// on Kind: IPInfo for got-address events, DisconnectInfo for
// sta-disconnected, nil otherwise.
type Event struct {
	Namespace Namespace
	Kind      Kind
	Payload   any
}

// IPInfo is the payload of KindGotIPv4 and KindGotIPv6 events.
type IPInfo struct {
	// Addr is the acquired address.
	Addr netip.Addr
}

// DisconnectInfo is the payload of KindStaDisconnected events.
type DisconnectInfo struct {
	// Reason is a stack-specific disconnect reason string.
	Reason string
}

// Mode selects the wireless operating mode.
type Mode uint8

const (
	// ModeStation joins an existing access point as a client.
	ModeStation Mode = iota + 1

	// ModeAccessPoint runs a local access point.
	ModeAccessPoint
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeStation:
		return "STATION"
	case ModeAccessPoint:
		return "ACCESS_POINT"
	default:
		return "UNKNOWN"
	}
}

// Security selects the provisioning-session security level.
type Security uint8

const (
	// Security0 is a plaintext session. Bring-up only.
	Security0 Security = iota

	// Security1 is a PoP-authenticated encrypted session.
	Security1
)

// String returns the security level name.
func (s Security) String() string {
	switch s {
	case Security0:
		return "SEC0"
	case Security1:
		return "SEC1"
	default:
		return "UNKNOWN"
	}
}

// Credentials are the wireless credentials a provisioning session
// delivers and the radio consumes. Owned by the stack; the provisioning
// module never persists them itself.
type Credentials struct {
	SSID       string `json:"ssid"`
	Passphrase string `json:"passphrase,omitempty"`
}
