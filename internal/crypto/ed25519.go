package crypto

import (
	"crypto/ed25519"

	"deskbridge/internal/domain"
)

// VerifyEd25519 verifies a detached sig over msg with pub.
func VerifyEd25519(pub domain.SigningPublic, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}

// OpenSigned checks a combined signed message (signature ∥ message) and
// returns the message when the signature verifies.
func OpenSigned(pub domain.SigningPublic, signed []byte) ([]byte, bool) {
	if len(signed) < ed25519.SignatureSize {
		return nil, false
	}
	sig, msg := signed[:ed25519.SignatureSize], signed[ed25519.SignatureSize:]
	if !VerifyEd25519(pub, msg, sig) {
		return nil, false
	}
	return msg, true
}

// SignCombined signs msg with priv and returns signature ∥ message.
func SignCombined(priv ed25519.PrivateKey, msg []byte) []byte {
	sig := ed25519.Sign(priv, msg)
	return append(sig, msg...)
}
