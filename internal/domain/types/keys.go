package types

// BoxPublic is a Curve25519 public key used with crypto_box.
type BoxPublic [32]byte

// Slice returns the key as a []byte.
func (p BoxPublic) Slice() []byte { return p[:] }

// BoxSecret is a Curve25519 secret key used with crypto_box.
type BoxSecret [32]byte

// Slice returns the key as a []byte.
func (k BoxSecret) Slice() []byte { return k[:] }

// SymmetricKey is the 32-byte secretbox key protecting the relayed stream.
type SymmetricKey [32]byte

// Slice returns the key as a []byte.
func (k SymmetricKey) Slice() []byte { return k[:] }

// SigningPublic is an Ed25519 public key used to verify signed identities.
type SigningPublic [32]byte

// Slice returns the key as a []byte.
func (p SigningPublic) Slice() []byte { return p[:] }

// EphemeralKeyPair is created once per session attempt and never reused.
type EphemeralKeyPair struct {
	Public BoxPublic
	Secret BoxSecret
}
