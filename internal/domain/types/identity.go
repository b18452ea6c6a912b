package types

// SignatureSize is the length of the detached Ed25519 signature that prefixes
// a signed identity envelope.
const SignatureSize = 64

// SignedPeerIdentity is a peer-supplied envelope binding a peer id to a key.
//
// Signature is carried as-is; verification is performed only when a
// verifier is configured.
type SignedPeerIdentity struct {
	PeerID        string
	PeerPublicKey BoxPublic
	Signature     [SignatureSize]byte
	RawPayload    []byte
}
