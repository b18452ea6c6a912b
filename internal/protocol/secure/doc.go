// Package secure implements the cryptographic session spoken with the peer.
//
// Handshake
//
//   - The peer presents a signed identity (64-byte Ed25519 signature ∥ IdPk
//     payload) carrying its Curve25519 box key. ParsePeerIdentity validates the
//     structure; a Verifier optionally checks the signature.
//   - BuildKeyExchange generates a fresh symmetric key and seals it to the
//     peer with crypto_box under an all-zero nonce. The zero nonce is only
//     sound because each ephemeral keypair performs exactly one exchange, so a
//     second call fails with ErrKeyPairReused.
//
// Stream
//
//   - Encrypt/Decrypt use secretbox with a nonce derived from a per-direction
//     counter: little-endian uint64 in the first 8 bytes, the rest zero. The
//     counter is incremented before use, so the first message uses 1. The
//     nonce is never transmitted.
//   - Any failure is terminal: the counters cannot be rewound, so after a
//     failed Decrypt every further call returns ErrSessionFailed.
//
// Password
//
//   - HashPassword = SHA256(SHA256(password ∥ salt) ∥ challenge).
//
// A Session is not safe for concurrent use; the session controller calls it
// from its event loop only.
package secure
