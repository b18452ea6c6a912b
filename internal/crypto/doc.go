// Package crypto exposes the minimal primitives used by deskbridge.
//
// Contents
//
//   - Curve25519 box key generation and symmetric key generation
//     (GenerateBoxKeyPair, RandomSymmetricKey)
//   - Ed25519 verification of detached and combined signatures
//     (VerifyEd25519, OpenSigned, SignCombined)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//   - Base64 key parsing for configuration (B64, DecodeKey32)
//
// # Notes
//
// Key material is returned in fixed-size array types defined in
// internal/domain. Callers should wipe secrets with memzero when done.
package crypto
