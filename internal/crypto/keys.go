package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"

	"deskbridge/internal/domain"
)

// GenerateBoxKeyPair returns a fresh Curve25519 key pair for crypto_box.
func GenerateBoxKeyPair() (domain.EphemeralKeyPair, error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return domain.EphemeralKeyPair{}, err
	}
	kp := domain.EphemeralKeyPair{Public: *pub, Secret: *sec}
	// box.GenerateKey returns heap copies; wipe the secret one.
	for i := range sec {
		sec[i] = 0
	}
	return kp, nil
}

// RandomSymmetricKey returns 32 cryptographically random bytes.
func RandomSymmetricKey() (domain.SymmetricKey, error) {
	var k domain.SymmetricKey
	if _, err := rand.Read(k[:]); err != nil {
		return domain.SymmetricKey{}, err
	}
	return k, nil
}
