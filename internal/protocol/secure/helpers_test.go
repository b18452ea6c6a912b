package secure_test

import (
	"testing"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/secure"
)

// derive builds a key pair from a fixed secret.
func derive(t *testing.T, secret domain.BoxSecret) domain.EphemeralKeyPair {
	t.Helper()
	pub, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	if err != nil {
		t.Fatalf("X25519: %v", err)
	}
	kp := domain.EphemeralKeyPair{Secret: secret}
	copy(kp.Public[:], pub)
	return kp
}

// openSealed opens a key exchange addressed to kp with a zero nonce.
func openSealed(t *testing.T, kx secure.KeyExchange, kp domain.EphemeralKeyPair) [32]byte {
	t.Helper()
	var nonce [24]byte
	theirs := [32]byte(kx.OurPublicKey)
	secret := [32]byte(kp.Secret)
	plain, ok := box.Open(nil, kx.SealedSymmetricKey, &nonce, &theirs, &secret)
	if !ok || len(plain) != 32 {
		t.Fatal("sealed key did not open with a zero nonce")
	}
	var key [32]byte
	copy(key[:], plain)
	return key
}
