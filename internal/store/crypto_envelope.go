package store

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// The current supported version of the sealed entry format.
const envelopeVersion = 1

// ErrWrongPassphrase is returned when the passphrase is incorrect or an entry
// has been modified, corrupted or moved to another peer id.
var ErrWrongPassphrase = errors.New("store: wrong passphrase or corrupted entry")

// scryptParams are the key-derivation cost parameters.
type scryptParams struct {
	N, R, P int
}

func defaultScryptParams() scryptParams { return scryptParams{N: 1 << 15, R: 8, P: 1} }

// envelope is the on-disk JSON form of one sealed entry.
type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

func additionalData(salt []byte, label string) []byte {
	ad := make([]byte, 0, len(salt)+len(label))
	ad = append(ad, salt...)
	return append(ad, label...)
}

// seal derives a key from passphrase and a fresh salt, then encrypts raw bound
// to label.
func seal(passphrase string, label string, raw []byte, kdf scryptParams) (envelope, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return envelope{}, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt, kdf.N, kdf.R, kdf.P, chacha20poly1305.KeySize)
	if err != nil {
		return envelope{}, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return envelope{}, err
	}
	// Zero nonce: the key is unique per salt.
	nonce := make([]byte, aead.NonceSize())
	return envelope{
		V:      envelopeVersion,
		Salt:   salt,
		N:      kdf.N,
		R:      kdf.R,
		P:      kdf.P,
		Cipher: aead.Seal(nil, nonce, raw, additionalData(salt, label)),
	}, nil
}

// open reverses seal.
func open(passphrase string, label string, env envelope) ([]byte, error) {
	if env.V > envelopeVersion {
		return nil, fmt.Errorf("store: unsupported entry version %d", env.V)
	}
	key, err := scrypt.Key([]byte(passphrase), env.Salt, env.N, env.R, env.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("store: derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	pt, err := aead.Open(nil, nonce, env.Cipher, additionalData(env.Salt, label))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}
