// Package netstack defines the integration contract between the
// provisioning module and a wireless/provisioning stack.
//
// The stack is an opaque collaborator: it owns association, the
// provisioning transport and security protocol, and credential storage.
// This package only names the calls the module makes into the stack
// (netif/radio/provisioner lifecycle) and the events the stack delivers
// back (Bus), so that the same orchestration runs against the simulated
// stack (netstack/sim), a board radio (netstack/tinynet), or a vendor
// stack behind an adapter.
//
// Events are (Namespace, Kind, Payload) tuples delivered on the stack's
// own goroutine(s). Delivery order is not guaranteed; consumers handle
// each event idempotently.
package netstack
