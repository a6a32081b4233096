// Package provd is the reference provisioning manager behind the
// netstack.Provisioner contract.
//
// A Manager owns the provisioning window. While the window is open, a
// Transport (BLE GATT or mDNS-advertised LAN socket, see pkg/scheme)
// relays request frames from one companion client at a time; the Manager
// runs the provproto session over them, stores received credentials, and
// closes the window when the client applies them.
//
// Session authentication failures and credential-store failures do not
// close the window; the client may retry with a fresh session until an
// Apply succeeds or the owning module tears the Manager down.
package provd
