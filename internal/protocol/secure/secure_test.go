package secure_test

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/crypto/nacl/secretbox"

	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/secure"
	"deskbridge/internal/protocol/wire"
)

// pair returns a client session that built a key exchange and a peer session
// that opened it, sharing one symmetric key.
func pair(t *testing.T) (client, peer *secure.Session) {
	t.Helper()
	client, err := secure.NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	peer, err = secure.NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	kx, err := client.BuildKeyExchange(peer.PublicKey())
	if err != nil {
		t.Fatalf("BuildKeyExchange: %v", err)
	}
	if len(kx.SealedSymmetricKey) != 32+secure.Overhead {
		t.Fatalf("sealed key length = %d", len(kx.SealedSymmetricKey))
	}
	if err := peer.OpenKeyExchange(kx.OurPublicKey, kx.SealedSymmetricKey); err != nil {
		t.Fatalf("OpenKeyExchange: %v", err)
	}
	return client, peer
}

func TestEncryptDecrypt_Sequence(t *testing.T) {
	client, peer := pair(t)
	const n = 64
	var cts [][]byte
	for i := 0; i < n; i++ {
		ct, err := client.Encrypt([]byte(fmt.Sprintf("message %d", i)))
		if err != nil {
			t.Fatalf("Encrypt %d: %v", i, err)
		}
		cts = append(cts, ct)
	}
	for i, ct := range cts {
		pt, err := peer.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt %d: %v", i, err)
		}
		if want := fmt.Sprintf("message %d", i); string(pt) != want {
			t.Fatalf("Decrypt %d = %q, want %q", i, pt, want)
		}
	}
	if sent, _ := client.Counters(); sent != n {
		t.Fatalf("send counter = %d, want %d", sent, n)
	}
	if _, recv := peer.Counters(); recv != n {
		t.Fatalf("receive counter = %d, want %d", recv, n)
	}
}

func TestDecrypt_CorruptedIsFatal(t *testing.T) {
	for _, idx := range []int{0, 15, 16, 20} {
		client, peer := pair(t)
		ct, _ := client.Encrypt([]byte("hello, peer"))
		ct[idx] ^= 0x01
		if _, err := peer.Decrypt(ct); !errors.Is(err, secure.ErrDecrypt) {
			t.Fatalf("byte %d: err = %v, want ErrDecrypt", idx, err)
		}
		good, _ := client.Encrypt([]byte("next"))
		if _, err := peer.Decrypt(good); !errors.Is(err, secure.ErrSessionFailed) {
			t.Fatalf("after failure: err = %v, want ErrSessionFailed", err)
		}
	}
}

func TestDecrypt_Desynchronized(t *testing.T) {
	client, peer := pair(t)
	_, _ = client.Encrypt([]byte("lost"))
	ct, _ := client.Encrypt([]byte("second"))
	if _, err := peer.Decrypt(ct); !errors.Is(err, secure.ErrDecrypt) {
		t.Fatalf("err = %v, want ErrDecrypt", err)
	}
}

func TestNoKey(t *testing.T) {
	s, err := secure.NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, err := s.Encrypt([]byte("x")); !errors.Is(err, secure.ErrNoKey) {
		t.Fatalf("Encrypt err = %v, want ErrNoKey", err)
	}
	if _, err := s.Decrypt(make([]byte, 32)); !errors.Is(err, secure.ErrNoKey) {
		t.Fatalf("Decrypt err = %v, want ErrNoKey", err)
	}
}

func TestEncrypt_NonceLayout(t *testing.T) {
	client, peer := pair(t)
	var cts [][]byte
	for i := 0; i < 3; i++ {
		ct, _ := client.Encrypt([]byte{byte(i)})
		if len(ct) != 1+secure.Overhead {
			t.Fatalf("ciphertext length = %d", len(ct))
		}
		cts = append(cts, ct)
	}
	// Each ciphertext is bound to its position in the stream.
	if _, err := peer.Decrypt(cts[2]); err == nil {
		t.Fatal("out-of-order ciphertext decrypted")
	}
}

func TestEncrypt_MatchesSecretboxWithCounterNonce(t *testing.T) {
	// Build the peer side from a known key pair so the symmetric key can be
	// recovered through box and compared against an independent secretbox.
	var theirs domain.EphemeralKeyPair
	for i := range theirs.Secret {
		theirs.Secret[i] = byte(i + 1)
	}
	peer := secure.NewSessionWithKeyPair(derive(t, theirs.Secret))
	client, err := secure.NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	kx, err := client.BuildKeyExchange(peer.PublicKey())
	if err != nil {
		t.Fatalf("BuildKeyExchange: %v", err)
	}
	key := openSealed(t, kx, derive(t, theirs.Secret))

	for seq := uint64(1); seq <= 3; seq++ {
		msg := []byte(fmt.Sprintf("frame %d", seq))
		ct, err := client.Encrypt(msg)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		var nonce [24]byte
		binary.LittleEndian.PutUint64(nonce[:8], seq)
		want := secretbox.Seal(nil, msg, &nonce, &key)
		if !bytes.Equal(ct, want) {
			t.Fatalf("seq %d: ciphertext differs from secretbox with LE counter nonce", seq)
		}
	}
}

func TestBuildKeyExchange_KeyPairSingleUse(t *testing.T) {
	s, err := secure.NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	peer, _ := secure.NewSession()
	if _, err := s.BuildKeyExchange(peer.PublicKey()); err != nil {
		t.Fatalf("first BuildKeyExchange: %v", err)
	}
	if _, err := s.BuildKeyExchange(peer.PublicKey()); !errors.Is(err, secure.ErrKeyPairReused) {
		t.Fatalf("second BuildKeyExchange err = %v, want ErrKeyPairReused", err)
	}
}

func TestBuildKeyExchange_FreshKeyPerSession(t *testing.T) {
	peer, _ := secure.NewSession()
	a, _ := secure.NewSession()
	b, _ := secure.NewSession()
	ka, _ := a.BuildKeyExchange(peer.PublicKey())
	kb, _ := b.BuildKeyExchange(peer.PublicKey())
	if ka.OurPublicKey == kb.OurPublicKey {
		t.Fatal("two sessions share an ephemeral public key")
	}
	if bytes.Equal(ka.SealedSymmetricKey, kb.SealedSymmetricKey) {
		t.Fatal("two sessions produced the same sealed key")
	}
}

func TestDestroy(t *testing.T) {
	client, _ := pair(t)
	client.Destroy()
	client.Destroy()
	if client.Active() {
		t.Fatal("destroyed session still active")
	}
	if _, err := client.Encrypt([]byte("x")); !errors.Is(err, secure.ErrDestroyed) {
		t.Fatalf("err = %v, want ErrDestroyed", err)
	}
}

func TestHashPassword_ReferenceVectors(t *testing.T) {
	cases := []struct {
		pw, salt, challenge, want string
	}{
		{"p", "s", "c", "8b8b0929bd4a2b147ca1464953ce46c59be2818cf9549157d494237c593b4eaf"},
		{"hunter2", "salty", "chal", "41fc0b77ea0a125052f53e95bcdaa8d9d57a1301b125e07a59dce22282c44cc2"},
	}
	for _, c := range cases {
		got := secure.HashPassword(c.pw, c.salt, c.challenge)
		if hex.EncodeToString(got[:]) != c.want {
			t.Fatalf("HashPassword(%q,%q,%q) = %x, want %s", c.pw, c.salt, c.challenge, got, c.want)
		}
	}
}

func TestHashPassword_OrderSensitive(t *testing.T) {
	ref := secure.HashPassword("p", "s", "c")
	if ref != secure.HashPassword("p", "s", "c") {
		t.Fatal("HashPassword not deterministic")
	}
	swapped := secure.HashPassword("s", "p", "c")
	if ref == swapped {
		t.Fatal("swapping password and salt produced the same digest")
	}
	if hex.EncodeToString(swapped[:]) != "04f7bfdc63f649c1e87ef54ff5949bda2915c5ce978f0d965477e62a94eb67b1" {
		t.Fatalf("swapped digest = %x", swapped)
	}
	// Moving the salt into the second stage must also differ.
	moved := secure.HashPassword("p", "", "sc")
	if hex.EncodeToString(moved[:]) != "5ad8f841fc32c6eb2bcf8c669b18cce598802308495c4e55f2b690b1db813429" {
		t.Fatalf("moved digest = %x", moved)
	}
	if moved == ref {
		t.Fatal("moving the salt into the challenge stage produced the same digest")
	}
}

func TestSaltedHash_FeedsChallengeHash(t *testing.T) {
	salted := secure.SaltedHash("p", "s")
	if secure.ChallengeHash(salted[:], "c") != secure.HashPassword("p", "s", "c") {
		t.Fatal("two-stage hash disagrees with HashPassword")
	}
}

func TestParsePeerIdentity(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	boxKey := bytes.Repeat([]byte{9}, 32)
	raw := secure.SignIdentity(func(m []byte) []byte { return ed25519.Sign(priv, m) }, "123456789", boxKey)

	id, err := secure.ParsePeerIdentity(raw)
	if err != nil {
		t.Fatalf("ParsePeerIdentity: %v", err)
	}
	if id.PeerID != "123456789" || !bytes.Equal(id.PeerPublicKey[:], boxKey) {
		t.Fatalf("identity = %+v", id)
	}

	var signer domain.SigningPublic
	copy(signer[:], pub)
	if err := (secure.Ed25519Verifier{Key: signer}).Verify(id); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	id.RawPayload[len(id.RawPayload)-1] ^= 1
	if err := (secure.Ed25519Verifier{Key: signer}).Verify(id); !errors.Is(err, secure.ErrIdentitySignature) {
		t.Fatalf("tampered Verify err = %v", err)
	}
}

func TestParsePeerIdentity_Rejects(t *testing.T) {
	sig := make([]byte, 64)
	cases := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty", nil, secure.ErrIdentityTooShort},
		{"short", make([]byte, 63), secure.ErrIdentityTooShort},
		{"key 31 bytes", append(sig, (&wire.IdPk{ID: "1", PK: make([]byte, 31)}).Marshal()...), secure.ErrIdentityKeyLength},
		{"key 33 bytes", append(append([]byte(nil), sig...), (&wire.IdPk{ID: "1", PK: make([]byte, 33)}).Marshal()...), secure.ErrIdentityKeyLength},
		{"no key", append(append([]byte(nil), sig...), (&wire.IdPk{ID: "1"}).Marshal()...), secure.ErrIdentityKeyLength},
		{"garbage payload", append(append([]byte(nil), sig...), 0x0a, 0xff), secure.ErrIdentityPayload},
	}
	for _, c := range cases {
		if _, err := secure.ParsePeerIdentity(c.raw); !errors.Is(err, c.want) {
			t.Fatalf("%s: err = %v, want %v", c.name, err, c.want)
		}
	}
}

func TestOpenSignedKey(t *testing.T) {
	serverPub, serverPriv, _ := ed25519.GenerateKey(nil)
	peerSigning := bytes.Repeat([]byte{3}, 32)
	env := secure.SignIdentity(func(m []byte) []byte { return ed25519.Sign(serverPriv, m) }, "42", peerSigning)

	var server domain.SigningPublic
	copy(server[:], serverPub)
	id, key, err := secure.OpenSignedKey(server, env)
	if err != nil {
		t.Fatalf("OpenSignedKey: %v", err)
	}
	if id != "42" || !bytes.Equal(key[:], peerSigning) {
		t.Fatalf("got %q %x", id, key)
	}
	env[0] ^= 1
	if _, _, err := secure.OpenSignedKey(server, env); !errors.Is(err, secure.ErrIdentitySignature) {
		t.Fatalf("err = %v, want ErrIdentitySignature", err)
	}
}
