// Package store provides file-based persistence for deskbridge.
//
// CredentialFileStore remembers the salted first-stage password hash for each
// peer so a later session can answer a fresh login challenge without the
// plaintext password. Entries are sealed individually with a key derived by
// scrypt and ChaCha20-Poly1305, bound to the peer id, and written atomically.
// All methods are concurrency-safe via internal locking.
package store
