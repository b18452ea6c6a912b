package secure

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"

	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
	"deskbridge/internal/util/memzero"
)

const (
	// NonceSize is the secretbox/box nonce length.
	NonceSize = 24
	// Overhead is the MAC prefixed to every ciphertext.
	Overhead = secretbox.Overhead
)

var (
	ErrKeyPairReused = errors.New("secure: ephemeral key pair already used for a key exchange")
	ErrNoKey         = errors.New("secure: no active symmetric key")
	ErrDecrypt       = errors.New("secure: message authentication failed")
	ErrSessionFailed = errors.New("secure: session failed")
	ErrDestroyed     = errors.New("secure: session destroyed")
	ErrSealedKey     = errors.New("secure: cannot open sealed symmetric key")
)

// KeyExchange is the reply to the peer's identity: our ephemeral public key and
// the symmetric key sealed to the peer.
type KeyExchange struct {
	OurPublicKey       domain.BoxPublic
	SealedSymmetricKey []byte
}

// Session holds one ephemeral key pair, at most one active symmetric key and
// the two nonce counters.
type Session struct {
	keys      domain.EphemeralKeyPair
	key       domain.SymmetricKey
	hasKey    bool
	exchanged bool
	failed    bool
	destroyed bool

	sendSeq uint64
	recvSeq uint64
}

// NewSession creates a session with a freshly generated key pair.
func NewSession() (*Session, error) {
	kp, err := crypto.GenerateBoxKeyPair()
	if err != nil {
		return nil, fmt.Errorf("secure: generate key pair: %w", err)
	}
	return &Session{keys: kp}, nil
}

// NewSessionWithKeyPair creates a session around an existing key pair. The
// caller must not use kp anywhere else.
func NewSessionWithKeyPair(kp domain.EphemeralKeyPair) *Session {
	return &Session{keys: kp}
}

// PublicKey returns our ephemeral public key.
func (s *Session) PublicKey() domain.BoxPublic { return s.keys.Public }

// Active reports whether a symmetric key is installed and usable.
func (s *Session) Active() bool { return s.hasKey && !s.failed && !s.destroyed }

// Counters returns the send and receive sequence numbers.
func (s *Session) Counters() (sent, received uint64) { return s.sendSeq, s.recvSeq }

// BuildKeyExchange generates the session key and seals it to peer.
func (s *Session) BuildKeyExchange(peer domain.BoxPublic) (KeyExchange, error) {
	if s.destroyed {
		return KeyExchange{}, ErrDestroyed
	}
	if s.exchanged {
		return KeyExchange{}, ErrKeyPairReused
	}
	key, err := crypto.RandomSymmetricKey()
	if err != nil {
		return KeyExchange{}, fmt.Errorf("secure: generate symmetric key: %w", err)
	}
	var nonce [NonceSize]byte
	peerKey := [32]byte(peer)
	secret := [32]byte(s.keys.Secret)
	sealed := box.Seal(nil, key[:], &nonce, &peerKey, &secret)
	memzero.Zero32(&secret)

	s.exchanged = true
	s.installKey(key)
	memzero.Zero32((*[32]byte)(&key))
	return KeyExchange{OurPublicKey: s.keys.Public, SealedSymmetricKey: sealed}, nil
}

// OpenKeyExchange is the peer-side counterpart of BuildKeyExchange: it opens a
// sealed key addressed to this session's key pair and installs it.
func (s *Session) OpenKeyExchange(theirPublic domain.BoxPublic, sealed []byte) error {
	if s.destroyed {
		return ErrDestroyed
	}
	if s.exchanged {
		return ErrKeyPairReused
	}
	var nonce [NonceSize]byte
	pk := [32]byte(theirPublic)
	secret := [32]byte(s.keys.Secret)
	plain, ok := box.Open(nil, sealed, &nonce, &pk, &secret)
	memzero.Zero32(&secret)
	if !ok || len(plain) != len(s.key) {
		memzero.Zero(plain)
		return ErrSealedKey
	}
	s.exchanged = true
	var key domain.SymmetricKey
	copy(key[:], plain)
	memzero.Zero(plain)
	s.installKey(key)
	memzero.Zero32((*[32]byte)(&key))
	return nil
}

func (s *Session) installKey(k domain.SymmetricKey) {
	s.key = k
	s.hasKey = true
	s.sendSeq, s.recvSeq = 0, 0
}

// Encrypt seals plaintext under the next send nonce.
func (s *Session) Encrypt(plaintext []byte) ([]byte, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	s.sendSeq++
	nonce := sequenceNonce(s.sendSeq)
	key := [32]byte(s.key)
	out := secretbox.Seal(make([]byte, 0, len(plaintext)+Overhead), plaintext, &nonce, &key)
	memzero.Zero32(&key)
	return out, nil
}

// Decrypt opens ciphertext under the next receive nonce. A failure marks the
// session failed.
func (s *Session) Decrypt(ciphertext []byte) ([]byte, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	s.recvSeq++
	nonce := sequenceNonce(s.recvSeq)
	key := [32]byte(s.key)
	out, ok := secretbox.Open(nil, ciphertext, &nonce, &key)
	memzero.Zero32(&key)
	if !ok {
		s.failed = true
		return nil, fmt.Errorf("%w (seq %d, %d bytes)", ErrDecrypt, s.recvSeq, len(ciphertext))
	}
	return out, nil
}

func (s *Session) usable() error {
	switch {
	case s.destroyed:
		return ErrDestroyed
	case s.failed:
		return ErrSessionFailed
	case !s.hasKey:
		return ErrNoKey
	}
	return nil
}

// Destroy wipes the symmetric key and the secret half of the key pair. The
// session is unusable afterwards. Safe to call more than once.
func (s *Session) Destroy() {
	memzero.Zero32((*[32]byte)(&s.key))
	memzero.Zero32((*[32]byte)(&s.keys.Secret))
	s.hasKey = false
	s.destroyed = true
}

// sequenceNonce places seq little-endian in the first 8 bytes.
func sequenceNonce(seq uint64) [NonceSize]byte {
	var n [NonceSize]byte
	binary.LittleEndian.PutUint64(n[:8], seq)
	return n
}
