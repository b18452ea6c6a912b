package store_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"deskbridge/internal/domain"
	"deskbridge/internal/store"
)

// Low scrypt cost keeps the tests fast.
func newStore(t *testing.T, dir, pass string) *store.CredentialFileStore {
	t.Helper()
	return store.NewCredentialFileStore(dir, pass, store.WithScryptCost(1<<10, 8, 1))
}

func TestCredential_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	var creds domain.CredentialStore = newStore(t, home, "pass")

	salted := bytes.Repeat([]byte{0xab}, 32)
	if err := creds.SaveCredential("123456789", salted); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := creds.LoadCredential("123456789")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, salted) {
		t.Fatalf("mismatch after load")
	}

	raw, err := os.ReadFile(filepath.Join(home, "credentials.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if bytes.Contains(raw, salted) {
		t.Fatal("credential stored in the clear")
	}
	if info, err := os.Stat(filepath.Join(home, "credentials.json")); err != nil || info.Mode().Perm() != 0o600 {
		t.Fatalf("file mode: %v %v", info.Mode(), err)
	}
}

func TestCredential_Unknown(t *testing.T) {
	creds := newStore(t, t.TempDir(), "pass")
	if _, ok, err := creds.LoadCredential("nobody"); ok || err != nil {
		t.Fatalf("unknown peer: ok=%v err=%v", ok, err)
	}
	if err := creds.ForgetCredential("nobody"); err != nil {
		t.Fatalf("forget unknown: %v", err)
	}
	if err := creds.SaveCredential("", []byte{1}); !errors.Is(err, store.ErrEmptyPeerID) {
		t.Fatalf("empty id: %v", err)
	}
}

func TestCredential_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	if err := newStore(t, home, "correct").SaveCredential("peer", []byte("hash")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, _, err := newStore(t, home, "wrong").LoadCredential("peer"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("err = %v, want ErrWrongPassphrase", err)
	}
}

func TestCredential_BoundToPeer(t *testing.T) {
	home := t.TempDir()
	creds := newStore(t, home, "pass")
	if err := creds.SaveCredential("alice", []byte("hash-a")); err != nil {
		t.Fatalf("save: %v", err)
	}

	path := filepath.Join(home, "credentials.json")
	var m map[string]json.RawMessage
	b, _ := os.ReadFile(path)
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	m["mallory"] = m["alice"]
	b, _ = json.Marshal(m)
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := creds.LoadCredential("mallory"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("moved entry: err = %v", err)
	}
}

func TestCredential_Forget(t *testing.T) {
	creds := newStore(t, t.TempDir(), "pass")
	for _, id := range []string{"a", "b"} {
		if err := creds.SaveCredential(id, []byte(id)); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if err := creds.ForgetCredential("a"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, ok, _ := creds.LoadCredential("a"); ok {
		t.Fatal("forgotten credential still loads")
	}
	if _, ok, _ := creds.LoadCredential("b"); !ok {
		t.Fatal("unrelated credential lost")
	}
	peers, err := creds.Peers()
	if err != nil || len(peers) != 1 || peers[0] != "b" {
		t.Fatalf("peers = %v, %v", peers, err)
	}
}

func TestCredential_LocalKey(t *testing.T) {
	home := t.TempDir()
	if err := newStore(t, home, "").SaveCredential("peer", []byte("hash")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "cache.key")); err != nil {
		t.Fatalf("key file: %v", err)
	}
	got, ok, err := newStore(t, home, "").LoadCredential("peer")
	if err != nil || !ok || string(got) != "hash" {
		t.Fatalf("reload: %q %v %v", got, ok, err)
	}
}
