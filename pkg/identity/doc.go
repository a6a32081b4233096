// Package identity derives the two values a device advertises while it is
// waiting to be provisioned.
//
// # Device Name
//
// The name is "<service> <suffix>" where the suffix is 4 lowercase hex
// digits XOR-folded from the 6-byte hardware identity:
//
//	suffix[0] = id[0] ^ id[1] ^ id[2]
//	suffix[1] = id[3] ^ id[4] ^ id[5]
//
// The suffix is stable across restarts on the same hardware, so a device
// keeps its advertised name for its whole life. The fold can collide
// between two devices; the name is a human disambiguator, not a unique key.
//
// # Proof of Possession
//
// The PoP is the 8-hex-digit rendering of a 32-bit seed drawn freshly at
// construction. It is deliberately NOT stable across restarts: each boot
// opens a new provisioning window with a new code, so a code captured from
// an old QR display cannot authenticate a later session.
package identity
