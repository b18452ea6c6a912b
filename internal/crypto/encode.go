package crypto

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// DecodeKey32 parses a base64 (standard or URL alphabet) 32-byte key.
func DecodeKey32(s string) ([32]byte, error) {
	var out [32]byte
	s = strings.TrimSpace(s)
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.URLEncoding.DecodeString(s)
	}
	if err != nil {
		return out, fmt.Errorf("decode key: %w", err)
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("decode key: want %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}
