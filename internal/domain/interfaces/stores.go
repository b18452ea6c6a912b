package interfaces

// CredentialStore remembers the salted first-stage password hash per peer so a
// reconnect can answer a fresh challenge without the plaintext password.
type CredentialStore interface {
	SaveCredential(peerID string, salted []byte) error
	LoadCredential(peerID string) ([]byte, bool, error)
	ForgetCredential(peerID string) error
}
