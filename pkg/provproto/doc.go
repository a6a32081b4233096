// Package provproto implements the WISP provisioning session protocol.
//
// # Overview
//
// A provisioning session delivers wireless credentials from a companion
// client (typically a phone app that scanned the device's QR code) to an
// unprovisioned device, over whatever transport the device advertises
// (BLE GATT, or a LAN socket found via mDNS).
//
// # Security 1
//
// Security level 1 binds the session to the proof-of-possession code from
// the QR payload:
//
//  1. Client sends its X25519 public key.
//  2. Device replies with its public key plus a confirmation MAC.
//  3. Both sides derive keys with HKDF-SHA256 over the shared secret,
//     mixing the PoP into the derivation. A client that never saw the QR
//     code derives different keys.
//  4. Client returns its own confirmation MAC; on mismatch the device
//     rejects the session.
//  5. Credentials travel inside ChaCha20-Poly1305 sealed envelopes with
//     per-direction keys and counter nonces.
//
// The PoP is never transmitted.
//
// # Wire Format
//
// Messages are CBOR maps with integer keys, deterministic encoding, and a
// type-tagged outer envelope (see Message). Sealed envelopes carry an
// encoded Inner message: SetCredentials, Status, or Apply.
package provproto
