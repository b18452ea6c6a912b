package secure

import "crypto/sha256"

// SaltedHash is the first stage: SHA256(password ∥ salt). It is what the
// credential cache remembers.
func SaltedHash(password, salt string) [32]byte {
	h := sha256.New()
	h.Write([]byte(password))
	h.Write([]byte(salt))
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// ChallengeHash is the second stage: SHA256(salted ∥ challenge).
func ChallengeHash(salted []byte, challenge string) [32]byte {
	h := sha256.New()
	h.Write(salted)
	h.Write([]byte(challenge))
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// HashPassword returns the login digest SHA256(SHA256(password ∥ salt) ∥ challenge).
func HashPassword(password, salt, challenge string) [32]byte {
	salted := SaltedHash(password, salt)
	return ChallengeHash(salted[:], challenge)
}
