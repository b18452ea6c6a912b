package secure

import (
	"errors"
	"fmt"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/wire"
)

var (
	ErrIdentityTooShort  = errors.New("secure: signed identity shorter than signature")
	ErrIdentityPayload   = errors.New("secure: signed identity payload undecodable")
	ErrIdentityKeyLength = errors.New("secure: signed identity key is not 32 bytes")
	ErrIdentitySignature = errors.New("secure: signed identity signature invalid")
	ErrIdentityMismatch  = errors.New("secure: signed identity names a different peer")
)

// ParsePeerIdentity splits a combined signed identity into signature and IdPk
// payload and validates the embedded key length. The signature is not checked.
func ParsePeerIdentity(raw []byte) (domain.SignedPeerIdentity, error) {
	var id domain.SignedPeerIdentity
	if len(raw) < domain.SignatureSize {
		return id, fmt.Errorf("%w: %d bytes", ErrIdentityTooShort, len(raw))
	}
	payload := raw[domain.SignatureSize:]
	pk, err := wire.UnmarshalIdPk(payload)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrIdentityPayload, err)
	}
	if len(pk.PK) != len(id.PeerPublicKey) {
		return id, fmt.Errorf("%w: got %d", ErrIdentityKeyLength, len(pk.PK))
	}
	id.PeerID = pk.ID
	copy(id.PeerPublicKey[:], pk.PK)
	copy(id.Signature[:], raw[:domain.SignatureSize])
	id.RawPayload = append([]byte(nil), payload...)
	return id, nil
}

// Verifier decides whether a structurally valid identity is trusted.
type Verifier interface {
	Verify(id domain.SignedPeerIdentity) error
}

// StructuralVerifier accepts any identity that parsed; the signature stays
// opaque.
type StructuralVerifier struct{}

// Verify always succeeds.
func (StructuralVerifier) Verify(domain.SignedPeerIdentity) error { return nil }

// Ed25519Verifier checks the identity signature against a known signing key.
type Ed25519Verifier struct {
	Key domain.SigningPublic
}

// Verify checks the detached signature over the raw payload.
func (v Ed25519Verifier) Verify(id domain.SignedPeerIdentity) error {
	if !crypto.VerifyEd25519(v.Key, id.RawPayload, id.Signature[:]) {
		return ErrIdentitySignature
	}
	return nil
}

var (
	_ Verifier = StructuralVerifier{}
	_ Verifier = Ed25519Verifier{}
)

// OpenSignedKey verifies a combined signed IdPk with signer and returns the
// 32-byte key it carries together with the id it names. The rendezvous server
// uses this envelope to vouch for a peer's signing key.
func OpenSignedKey(signer domain.SigningPublic, signed []byte) (string, [32]byte, error) {
	var out [32]byte
	msg, ok := crypto.OpenSigned(signer, signed)
	if !ok {
		return "", out, ErrIdentitySignature
	}
	pk, err := wire.UnmarshalIdPk(msg)
	if err != nil {
		return "", out, fmt.Errorf("%w: %v", ErrIdentityPayload, err)
	}
	if len(pk.PK) != len(out) {
		return "", out, fmt.Errorf("%w: got %d", ErrIdentityKeyLength, len(pk.PK))
	}
	copy(out[:], pk.PK)
	return pk.ID, out, nil
}

// SignIdentity builds a combined signed IdPk. It is the server/peer side of
// ParsePeerIdentity and OpenSignedKey and is used by test peers.
func SignIdentity(sign func(msg []byte) []byte, id string, pk []byte) []byte {
	payload := (&wire.IdPk{ID: id, PK: pk}).Marshal()
	return append(sign(payload), payload...)
}
