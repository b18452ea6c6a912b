package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint returns a short, grouped hex fingerprint of a public key.
//
// It hashes with SHA-256, truncates to 10 bytes and groups the 20 hex
// characters in fours, e.g. "1a2b-3c4d-5e6f-7a8b-9c0d".
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	h := hex.EncodeToString(sum[:10])
	groups := make([]string, 0, len(h)/4)
	for i := 0; i < len(h); i += 4 {
		groups = append(groups, h[i:i+4])
	}
	return strings.Join(groups, "-")
}
