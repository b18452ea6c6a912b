package store

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"deskbridge/internal/domain"
	"deskbridge/internal/util/memzero"
)

const (
	credentialsFile = "credentials.json" // map[peerID]envelope
	keyFile         = "cache.key"
)

// ErrEmptyPeerID is returned for operations on an empty peer id.
var ErrEmptyPeerID = errors.New("store: empty peer id")

// CredentialFileStore persists salted password hashes per peer.
type CredentialFileStore struct {
	dir        string
	passphrase string
	kdf        scryptParams
	mu         sync.Mutex
}

// Option adjusts a CredentialFileStore.
type Option func(*CredentialFileStore)

// WithScryptCost overrides the scrypt cost parameters.
func WithScryptCost(n, r, p int) Option {
	return func(s *CredentialFileStore) { s.kdf = scryptParams{N: n, R: r, P: p} }
}

// NewCredentialFileStore returns a store rooted at dir. An empty passphrase
// selects a random machine-local key kept in dir/cache.key, created on first
// use.
func NewCredentialFileStore(dir, passphrase string, opts ...Option) *CredentialFileStore {
	s := &CredentialFileStore{dir: dir, passphrase: passphrase, kdf: defaultScryptParams()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *CredentialFileStore) path() string { return filepath.Join(s.dir, credentialsFile) }

// secret returns the passphrase, creating the local key if required.
func (s *CredentialFileStore) secret(create bool) (string, error) {
	if s.passphrase != "" {
		return s.passphrase, nil
	}
	path := filepath.Join(s.dir, keyFile)
	b, err := readFile(path)
	if err != nil {
		return "", fmt.Errorf("store: read key: %w", err)
	}
	if b != nil {
		return strings.TrimSpace(string(b)), nil
	}
	if !create {
		return "", nil
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	key := base64.StdEncoding.EncodeToString(raw)
	memzero.Zero(raw)
	if err := writeFile(path, []byte(key+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("store: write key: %w", err)
	}
	return key, nil
}

func (s *CredentialFileStore) load() (map[string]envelope, error) {
	m := make(map[string]envelope)
	if err := readJSON(s.path(), &m); err != nil {
		return nil, fmt.Errorf("store: read credentials: %w", err)
	}
	return m, nil
}

// SaveCredential seals salted for peerID, replacing any previous entry.
func (s *CredentialFileStore) SaveCredential(peerID string, salted []byte) error {
	if peerID == "" {
		return ErrEmptyPeerID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pass, err := s.secret(true)
	if err != nil {
		return err
	}
	m, err := s.load()
	if err != nil {
		return err
	}
	env, err := seal(pass, peerID, salted, s.kdf)
	if err != nil {
		return fmt.Errorf("store: seal credential: %w", err)
	}
	m[peerID] = env
	return writeJSON(s.path(), m, 0o600)
}

// LoadCredential returns the stored hash for peerID; ok is false when none is
// remembered.
func (s *CredentialFileStore) LoadCredential(peerID string) ([]byte, bool, error) {
	if peerID == "" {
		return nil, false, ErrEmptyPeerID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return nil, false, err
	}
	env, ok := m[peerID]
	if !ok {
		return nil, false, nil
	}
	pass, err := s.secret(false)
	if err != nil {
		return nil, false, err
	}
	if pass == "" {
		return nil, false, ErrWrongPassphrase
	}
	pt, err := open(pass, peerID, env)
	if err != nil {
		return nil, false, err
	}
	return pt, true, nil
}

// ForgetCredential removes any entry for peerID. Forgetting an unknown peer
// is not an error.
func (s *CredentialFileStore) ForgetCredential(peerID string) error {
	if peerID == "" {
		return ErrEmptyPeerID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[peerID]; !ok {
		return nil
	}
	delete(m, peerID)
	return writeJSON(s.path(), m, 0o600)
}

// Peers lists the peer ids with a remembered credential.
func (s *CredentialFileStore) Peers() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out, nil
}

// Compile-time assertion that CredentialFileStore implements domain.CredentialStore.
var _ domain.CredentialStore = (*CredentialFileStore)(nil)
