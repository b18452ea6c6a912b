package session_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"deskbridge/internal/clock"
	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
	"deskbridge/internal/media/video"
	"deskbridge/internal/protocol/secure"
	"deskbridge/internal/protocol/wire"
	"deskbridge/internal/render"
	"deskbridge/internal/services/session"
	"deskbridge/internal/transport"
)

const (
	peerID    = "123456789"
	password  = "hunter2"
	salt      = "salty"
	challenge = "chal"
	rdvURL    = "ws://rs.test:21118"
	relayURL  = "ws://relay.test:21119"
	waitLimit = 2 * time.Second
)

// fakePeer plays the rendezvous server, the relay and the remote desktop.
type fakePeer struct {
	t      *testing.T
	dialer *transport.PipeDialer
	clk    *clock.FakeClock

	rdvAcc, relayAcc <-chan *transport.PipeChannel
	rdv, relay       *transport.PipeChannel

	serverPub  ed25519.PublicKey
	serverPriv ed25519.PrivateKey
	signPub    ed25519.PublicKey
	signPriv   ed25519.PrivateKey
	box        domain.EphemeralKeyPair
	sess       *secure.Session
	encrypted  bool
	surface    *render.ImageSurface
}

func newFakePeer(t *testing.T) *fakePeer {
	t.Helper()
	p := &fakePeer{t: t, dialer: transport.NewPipeDialer(), clk: clock.Fake(time.Unix(1000, 0))}
	p.rdvAcc = p.dialer.Accept(rdvURL)
	p.relayAcc = p.dialer.Accept(relayURL)

	var err error
	if p.serverPub, p.serverPriv, err = ed25519.GenerateKey(rand.Reader); err != nil {
		t.Fatalf("server key: %v", err)
	}
	if p.signPub, p.signPriv, err = ed25519.GenerateKey(rand.Reader); err != nil {
		t.Fatalf("signing key: %v", err)
	}
	if p.box, err = crypto.GenerateBoxKeyPair(); err != nil {
		t.Fatalf("box key: %v", err)
	}
	p.sess = secure.NewSessionWithKeyPair(p.box)
	p.surface = render.NewImageSurface(320, 240)
	return p
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func (p *fakePeer) options() session.Options {
	clk := p.clk
	return session.Options{
		PeerID:     peerID,
		Password:   password,
		Rendezvous: "rs.test",
		Dialer:     p.dialer,
		MyID:       "viewer",
		Video: video.Options{
			NewBuffer: func() domain.MediaBuffer { return video.NewMemoryBuffer(clk) },
		},
		Surface:          p.surface,
		Clock:            clk,
		HandshakeTimeout: time.Hour,
		Log:              quietLog(),
	}
}

func (p *fakePeer) serverKey() *domain.SigningPublic {
	var k domain.SigningPublic
	copy(k[:], p.serverPub)
	return &k
}

type running struct {
	ctrl *session.Controller
	errc chan error
}

func start(t *testing.T, opts session.Options) *running {
	t.Helper()
	ctrl, err := session.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := &running{ctrl: ctrl, errc: make(chan error, 1)}
	go func() { r.errc <- ctrl.Run(context.Background()) }()
	t.Cleanup(func() {
		_ = ctrl.Close()
		select {
		case <-ctrl.Done():
		case <-time.After(waitLimit):
			t.Error("session did not tear down")
		}
	})
	return r
}

func (r *running) result(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.errc:
		return err
	case <-time.After(waitLimit):
		t.Fatal("Run did not return")
		return nil
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitLimit)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func accept(t *testing.T, acc <-chan *transport.PipeChannel) *transport.PipeChannel {
	t.Helper()
	select {
	case ch := <-acc:
		return ch
	case <-time.After(waitLimit):
		t.Fatal("no connection")
		return nil
	}
}

// recv returns the next message payload on ch, or nil when ch closed.
func recv(t *testing.T, ch *transport.PipeChannel) []byte {
	t.Helper()
	timeout := time.After(waitLimit)
	for {
		select {
		case ev, ok := <-ch.Events():
			if !ok || ev.Kind == domain.ChannelEventClose {
				return nil
			}
			if ev.Kind == domain.ChannelEventMessage {
				return ev.Data
			}
		case <-timeout:
			t.Fatal("no message")
			return nil
		}
	}
}

func (p *fakePeer) readRendezvous() *wire.RendezvousMessage {
	p.t.Helper()
	b := recv(p.t, p.rdv)
	if b == nil {
		p.t.Fatal("rendezvous closed")
	}
	m, err := wire.UnmarshalRendezvous(b)
	if err != nil {
		p.t.Fatalf("rendezvous decode: %v", err)
	}
	return m
}

func (p *fakePeer) readRelayBind() *wire.RequestRelay {
	p.t.Helper()
	b := recv(p.t, p.relay)
	m, err := wire.UnmarshalRendezvous(b)
	if err != nil || m.RequestRelay == nil {
		p.t.Fatalf("request relay: %+v %v", m, err)
	}
	return m.RequestRelay
}

func (p *fakePeer) readMessage() *wire.Message {
	p.t.Helper()
	b := recv(p.t, p.relay)
	if b == nil {
		p.t.Fatal("relay closed")
	}
	if p.encrypted {
		var err error
		if b, err = p.sess.Decrypt(b); err != nil {
			p.t.Fatalf("decrypt: %v", err)
		}
	}
	m, err := wire.UnmarshalMessage(b)
	if err != nil {
		p.t.Fatalf("message decode: %v", err)
	}
	return m
}

func (p *fakePeer) send(m *wire.Message) {
	p.t.Helper()
	b := m.Marshal()
	if p.encrypted {
		var err error
		if b, err = p.sess.Encrypt(b); err != nil {
			p.t.Fatalf("encrypt: %v", err)
		}
	}
	if !p.relay.Send(b) {
		p.t.Fatal("relay send failed")
	}
}

// relayResponse answers the punch-hole request with a relay signed by signer
// and waits for the client to bind to it.
func (p *fakePeer) relayResponse(signer ed25519.PrivateKey) {
	p.t.Helper()
	p.rdv = accept(p.t, p.rdvAcc)
	req := p.readRendezvous()
	if req.PunchHoleRequest == nil || req.PunchHoleRequest.ID != peerID || req.PunchHoleRequest.NatType != wire.NatSymmetric {
		p.t.Fatalf("punch hole request = %+v", req.PunchHoleRequest)
	}
	pk := secure.SignIdentity(func(m []byte) []byte { return ed25519.Sign(signer, m) }, peerID, p.signPub)
	resp := &wire.RendezvousMessage{RelayResponse: &wire.RelayResponse{UUID: "uuid-1", RelayServer: "relay.test", PK: pk}}
	if !p.rdv.Send(resp.Marshal()) {
		p.t.Fatal("rendezvous send failed")
	}
	p.relay = accept(p.t, p.relayAcc)
	if bind := p.readRelayBind(); bind.UUID != "uuid-1" {
		p.t.Fatalf("bound uuid %q", bind.UUID)
	}
}

func (p *fakePeer) signedID(id string) *wire.Message {
	raw := secure.SignIdentity(func(m []byte) []byte { return ed25519.Sign(p.signPriv, m) }, id, p.box.Public[:])
	return &wire.Message{SignedID: &wire.SignedID{ID: raw}}
}

// keyExchange sends the signed identity and installs the client's key.
func (p *fakePeer) keyExchange() {
	p.t.Helper()
	p.send(p.signedID(peerID))
	m := p.readMessage()
	if m.PublicKey == nil {
		p.t.Fatalf("expected public key, got %s", m.Kind())
	}
	var theirs domain.BoxPublic
	copy(theirs[:], m.PublicKey.AsymmetricValue)
	if err := p.sess.OpenKeyExchange(theirs, m.PublicKey.SymmetricValue); err != nil {
		p.t.Fatalf("open key exchange: %v", err)
	}
	p.encrypted = true
}

// challenge sends the hash challenge and returns whether the login digest
// matched password.
func (p *fakePeer) challenge() bool {
	p.t.Helper()
	p.send(&wire.Message{Hash: &wire.Hash{Salt: salt, Challenge: challenge}})
	m := p.readMessage()
	if m.LoginRequest == nil {
		p.t.Fatalf("expected login request, got %s", m.Kind())
	}
	if m.LoginRequest.Username != peerID || m.LoginRequest.MyID != "viewer" {
		p.t.Fatalf("login request = %+v", m.LoginRequest)
	}
	want := secure.HashPassword(password, salt, challenge)
	return string(m.LoginRequest.Password) == string(want[:])
}

func (p *fakePeer) welcome() {
	p.send(&wire.Message{LoginResponse: &wire.LoginResponse{PeerInfo: &wire.PeerInfo{
		Hostname: "desk",
		Platform: "Linux",
		Displays: []wire.DisplayInfo{{Width: 640, Height: 480, Name: "main"}},
	}}})
}

// streaming runs the full happy path up to the Streaming phase.
func (p *fakePeer) streaming(r *running) {
	p.t.Helper()
	p.relayResponse(p.serverPriv)
	p.keyExchange()
	if !p.challenge() {
		p.t.Fatal("login digest mismatch")
	}
	p.welcome()
	waitFor(p.t, "streaming", func() bool { return r.ctrl.Phase() == domain.PhaseStreaming })
}

// sync round-trips a latency probe so everything sent before it has been
// handled by the session. Other messages read meanwhile are returned.
func (p *fakePeer) sync(stamp int64) []*wire.Message {
	p.t.Helper()
	p.send(&wire.Message{TestDelay: &wire.TestDelay{Time: stamp}})
	var other []*wire.Message
	for {
		m := p.readMessage()
		if m.TestDelay != nil && m.TestDelay.Time == stamp {
			return other
		}
		other = append(other, m)
	}
}

// memCredentials is an in-memory credential store.
type memCredentials struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemCredentials() *memCredentials { return &memCredentials{m: make(map[string][]byte)} }

func (s *memCredentials) SaveCredential(id string, salted []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = append([]byte(nil), salted...)
	return nil
}

func (s *memCredentials) LoadCredential(id string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.m[id]
	return append([]byte(nil), b...), ok, nil
}

func (s *memCredentials) ForgetCredential(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func wantKind(t *testing.T, err error, kind session.Kind, target error) {
	t.Helper()
	var se *session.Error
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *session.Error", err)
	}
	if se.Kind != kind {
		t.Fatalf("kind = %v, want %v (%v)", se.Kind, kind, err)
	}
	if target != nil && !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
}
