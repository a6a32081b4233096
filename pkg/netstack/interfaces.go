package netstack

import "context"

// Handler receives stack events. Handlers run on the stack's dispatch
// goroutine, concurrently with the goroutine driving the provisioning
// module, and must not block.
type Handler func(Event)

// Handle identifies one subscription so it can be removed again.
type Handle uint64

// Bus is the stack's asynchronous notification surface.
type Bus interface {
	// Subscribe registers h for events in ns whose kind matches kind.
	// KindAny subscribes to the whole namespace.
	Subscribe(ns Namespace, kind Kind, h Handler) (Handle, error)

	// Unsubscribe removes a prior subscription.
	Unsubscribe(h Handle) error
}

// Netif is the network-interface layer of the stack.
type Netif interface {
	Init() error
	Deinit() error
}

// Radio is the wireless radio of the stack.
type Radio interface {
	Init() error

	// SetMode selects the operating mode. Must be called before Start.
	SetMode(m Mode) error

	// Start brings the radio up. In station mode the stack raises
	// KindStaStart once the radio is running.
	Start() error

	// Connect (re)attempts association using the stack's stored
	// credentials. Outcomes arrive as KindStaConnected or
	// KindStaDisconnected events.
	Connect() error

	Deinit() error
}

// Provisioner is the stack's provisioning manager. It owns credential
// storage and the provisioning transport; callers only open and close the
// provisioning window.
type Provisioner interface {
	Init() error

	// IsProvisioned reports whether stored credentials exist.
	IsProvisioned() (bool, error)

	// StartProvisioning opens the provisioning window: the device
	// advertises serviceName over the provisioning transport and accepts
	// sessions authenticated by pop at the given security level.
	StartProvisioning(sec Security, pop, serviceName string) error

	// Wait blocks until the provisioning window closes. It does not
	// report whether credentials were actually applied; observers that
	// care watch NamespaceProv events.
	Wait(ctx context.Context) error

	// Deinit releases the provisioning manager. Called once the
	// provisioning decision window is over, in both branches.
	Deinit() error
}

// Stack bundles the full integration surface of a wireless stack.
type Stack interface {
	Netif() Netif
	Radio() Radio
	Provisioner() Provisioner
	Bus() Bus
}
