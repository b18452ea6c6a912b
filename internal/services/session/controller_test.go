package session_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	"deskbridge/internal/domain"
	"deskbridge/internal/input"
	"deskbridge/internal/protocol/secure"
	"deskbridge/internal/protocol/wire"
	"deskbridge/internal/services/session"
)

var (
	sps   = []byte{0x67, 0x42, 0xc0, 0x1e, 0xda, 0x02, 0x80, 0xf6, 0x40}
	pps   = []byte{0x68, 0xce, 0x3c, 0x80}
	idr   = []byte{0x65, 0x88, 0x84, 0x21, 0xa0}
	slice = []byte{0x41, 0x9a, 0x21, 0x6c}
)

func annexB(nalus ...[]byte) []byte {
	var out []byte
	for _, n := range nalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, n...)
	}
	return out
}

func videoMessage(key bool, pts int64, data []byte) *wire.Message {
	return &wire.Message{VideoFrame: &wire.VideoFrame{
		Codec:  domain.CodecH264,
		Frames: []wire.EncodedVideoFrame{{Data: data, Key: key, PTS: pts}},
	}}
}

func TestController_StreamsVideoToRenderer(t *testing.T) {
	p := newFakePeer(t)
	opts := p.options()
	opts.ServerKey = p.serverKey()
	r := start(t, opts)
	p.streaming(r)

	st := r.ctrl.Stats()
	if st.Peer == nil || st.Peer.Hostname != "desk" || st.Render.RemoteW != 640 {
		t.Fatalf("stats after login = %+v", st)
	}

	frames := []*wire.Message{videoMessage(true, 0, annexB(sps, pps, idr)), videoMessage(false, 1, annexB(slice))}
	for i, m := range frames {
		p.send(m)
		p.sync(int64(i + 1))
		p.clk.Advance(time.Second / 30)
		want := uint64(i + 1)
		waitFor(t, "frame drawn", func() bool { return r.ctrl.Stats().Render.FramesRendered == want })
	}

	st = r.ctrl.Stats()
	if st.Video.Decoded != 2 || st.Video.Dropped != 0 {
		t.Fatalf("video stats = %+v", st.Video)
	}
	if st.Sent == 0 || st.Received == 0 || st.BytesIn == 0 {
		t.Fatalf("counters = %+v", st)
	}

	if err := r.ctrl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.result(t); err != nil {
		t.Fatalf("Run = %v, want nil after Close", err)
	}
	if r.ctrl.Phase() != domain.PhaseClosed {
		t.Fatalf("phase = %v", r.ctrl.Phase())
	}
	if p.surface.Image() != nil {
		t.Fatal("surface not released on teardown")
	}
}

func TestController_FinalFrameWrittenWhenPeerDrops(t *testing.T) {
	p := newFakePeer(t)
	opts := p.options()
	var frame bytes.Buffer
	opts.FinalFrame = &frame
	r := start(t, opts)
	p.streaming(r)

	p.send(videoMessage(true, 0, annexB(sps, pps, idr)))
	p.sync(1)
	p.clk.Advance(time.Second / 30)
	waitFor(t, "frame drawn", func() bool { return r.ctrl.Stats().Render.FramesRendered == 1 })

	_ = p.relay.Close()
	wantKind(t, r.result(t), session.KindTransport, session.ErrRemoteClosed)
	if !bytes.HasPrefix(frame.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("final frame = %d bytes, want a PNG", frame.Len())
	}
}

func TestController_NoFinalFrameBeforeFirstDraw(t *testing.T) {
	p := newFakePeer(t)
	opts := p.options()
	var frame bytes.Buffer
	opts.FinalFrame = &frame
	r := start(t, opts)
	p.streaming(r)

	_ = r.ctrl.Close()
	if err := r.result(t); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if frame.Len() != 0 {
		t.Fatalf("final frame written with nothing drawn: %d bytes", frame.Len())
	}
}

func TestController_ForwardsInput(t *testing.T) {
	p := newFakePeer(t)
	r := start(t, p.options())
	p.streaming(r)

	// Surface 320x240 shows the 640x480 display at half scale.
	r.ctrl.PointerButton(160, 120, domain.ButtonLeft, true, 0)
	r.ctrl.PointerButton(400, 120, domain.ButtonLeft, false, 0)
	r.ctrl.Key("KeyA", "a", true, 0)

	m := p.readMessage()
	if m.MouseEvent == nil {
		t.Fatalf("expected mouse event, got %s", m.Kind())
	}
	if got, want := m.MouseEvent.Mask, input.MouseMask(wire.MouseTypeDown, domain.ButtonLeft); got != want {
		t.Fatalf("mask = %d, want %d", got, want)
	}
	if m.MouseEvent.X != 320 || m.MouseEvent.Y != 240 {
		t.Fatalf("position = %d,%d", m.MouseEvent.X, m.MouseEvent.Y)
	}
	// The out-of-bounds release is suppressed; the key comes next.
	if m := p.readMessage(); m.KeyEvent == nil || !m.KeyEvent.Down {
		t.Fatalf("expected key down, got %s", m.Kind())
	}
}

func TestController_EchoesTestDelay(t *testing.T) {
	p := newFakePeer(t)
	r := start(t, p.options())
	p.streaming(r)

	p.send(&wire.Message{TestDelay: &wire.TestDelay{Time: 42, LastDelay: 7}})
	m := p.readMessage()
	if m.TestDelay == nil || m.TestDelay.Time != 42 || m.TestDelay.LastDelay != 7 {
		t.Fatalf("echo = %+v", m.TestDelay)
	}
}

func TestController_MiscMessages(t *testing.T) {
	p := newFakePeer(t)
	r := start(t, p.options())
	p.streaming(r)

	p.send(&wire.Message{Misc: &wire.Misc{SwitchDisplay: &wire.SwitchDisplay{Display: 1, Width: 1280, Height: 720}}})
	other := p.sync(1)
	refresh := false
	for _, m := range other {
		if m.Misc != nil && m.Misc.RefreshVideo {
			refresh = true
		}
	}
	if !refresh {
		t.Fatal("display switch did not request a keyframe")
	}
	p.clk.Advance(time.Second / 30)
	waitFor(t, "remote size", func() bool { return r.ctrl.Stats().Render.RemoteW == 1280 })

	reason := "peer shutting down"
	p.send(&wire.Message{Misc: &wire.Misc{CloseReason: &reason}})
	err := r.result(t)
	wantKind(t, err, session.KindPeerClosed, session.ErrPeerClosed)
	if !strings.Contains(err.Error(), reason) {
		t.Fatalf("err = %v", err)
	}
	if r.ctrl.Phase() != domain.PhaseClosed {
		t.Fatalf("phase = %v, want closed", r.ctrl.Phase())
	}
}

func TestController_RelayDropWhileStreaming(t *testing.T) {
	p := newFakePeer(t)
	r := start(t, p.options())
	p.streaming(r)

	_ = p.relay.Close()
	wantKind(t, r.result(t), session.KindTransport, session.ErrRemoteClosed)
	if r.ctrl.Phase() != domain.PhaseFailed {
		t.Fatalf("phase = %v", r.ctrl.Phase())
	}
	disconnected := false
	for ev := range r.ctrl.Events() {
		if ev.Kind == session.EventDisconnected {
			disconnected = true
		}
	}
	if !disconnected {
		t.Fatal("no disconnect event")
	}
}

// closeless hides the Close event so the stream just ends.
type closeless struct {
	domain.Channel
	events chan domain.ChannelEvent
}

func (c *closeless) Events() <-chan domain.ChannelEvent { return c.events }

type closelessDialer struct {
	inner domain.Dialer
	url   string
}

func (d closelessDialer) Dial(url string) domain.Channel {
	ch := d.inner.Dial(url)
	if url != d.url {
		return ch
	}
	out := &closeless{Channel: ch, events: make(chan domain.ChannelEvent, 256)}
	go func() {
		defer close(out.events)
		for ev := range ch.Events() {
			if ev.Kind == domain.ChannelEventClose {
				return
			}
			out.events <- ev
		}
	}()
	return out
}

func TestController_RelayStreamEndWithoutCloseEvent(t *testing.T) {
	p := newFakePeer(t)
	opts := p.options()
	opts.Dialer = closelessDialer{inner: p.dialer, url: relayURL}
	r := start(t, opts)
	p.streaming(r)

	_ = p.relay.Close()
	wantKind(t, r.result(t), session.KindTransport, session.ErrRemoteClosed)
	disconnected := false
	for ev := range r.ctrl.Events() {
		if ev.Kind == session.EventDisconnected {
			disconnected = true
		}
	}
	if !disconnected {
		t.Fatal("no disconnect event")
	}
}

func TestController_CorruptCiphertextIsFatal(t *testing.T) {
	p := newFakePeer(t)
	r := start(t, p.options())
	p.streaming(r)

	ct, err := p.sess.Encrypt((&wire.Message{TestDelay: &wire.TestDelay{Time: 1}}).Marshal())
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	ct[len(ct)-1] ^= 0xff
	p.relay.Send(ct)

	err = r.result(t)
	wantKind(t, err, session.KindCrypto, secure.ErrDecrypt)
	var se *session.Error
	errors.As(err, &se)
	if se.Phase != domain.PhaseStreaming || se.Counters.Received == 0 {
		t.Fatalf("error context = %+v", se)
	}
	if r.ctrl.Phase() != domain.PhaseFailed {
		t.Fatalf("phase = %v", r.ctrl.Phase())
	}
}

func TestController_PunchHoleFailure(t *testing.T) {
	p := newFakePeer(t)
	r := start(t, p.options())

	p.rdv = accept(t, p.rdvAcc)
	p.readRendezvous()
	resp := &wire.RendezvousMessage{PunchHoleResponse: &wire.PunchHoleResponse{Failure: wire.FailureOffline}}
	p.rdv.Send(resp.Marshal())

	err := r.result(t)
	wantKind(t, err, session.KindProtocol, session.ErrPunchHole)
	if !strings.Contains(err.Error(), "offline") {
		t.Fatalf("err = %v", err)
	}
}

func TestController_RejectsUnvouchedPeerKey(t *testing.T) {
	p := newFakePeer(t)
	opts := p.options()
	opts.ServerKey = p.serverKey()
	r := start(t, opts)

	_, impostor, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	p.rdv = accept(t, p.rdvAcc)
	p.readRendezvous()
	pk := secure.SignIdentity(func(m []byte) []byte { return ed25519.Sign(impostor, m) }, peerID, p.signPub)
	p.rdv.Send((&wire.RendezvousMessage{RelayResponse: &wire.RelayResponse{UUID: "u", PK: pk}}).Marshal())

	wantKind(t, r.result(t), session.KindCrypto, secure.ErrIdentitySignature)
	if len(p.dialer.Dialed()) != 1 {
		t.Fatalf("dialled %v after a bad server signature", p.dialer.Dialed())
	}
}

func TestController_RejectsForgedIdentity(t *testing.T) {
	p := newFakePeer(t)
	opts := p.options()
	opts.ServerKey = p.serverKey()
	r := start(t, opts)
	p.relayResponse(p.serverPriv)

	// Signed by a key the server never vouched for.
	_, other, _ := ed25519.GenerateKey(rand.Reader)
	raw := secure.SignIdentity(func(m []byte) []byte { return ed25519.Sign(other, m) }, peerID, p.box.Public[:])
	p.send(&wire.Message{SignedID: &wire.SignedID{ID: raw}})

	wantKind(t, r.result(t), session.KindCrypto, secure.ErrIdentitySignature)
}

func TestController_RejectsIdentityForAnotherPeer(t *testing.T) {
	p := newFakePeer(t)
	r := start(t, p.options())
	p.relayResponse(p.serverPriv)
	p.send(p.signedID("987654321"))
	wantKind(t, r.result(t), session.KindCrypto, secure.ErrIdentityMismatch)
}

func TestController_MissingIdentityIsFatal(t *testing.T) {
	p := newFakePeer(t)
	r := start(t, p.options())
	p.relayResponse(p.serverPriv)
	p.send(&wire.Message{Hash: &wire.Hash{Salt: salt, Challenge: challenge}})
	wantKind(t, r.result(t), session.KindCrypto, session.ErrMissingIdentity)
}

func TestController_ShortIdentityIsFatal(t *testing.T) {
	p := newFakePeer(t)
	r := start(t, p.options())
	p.relayResponse(p.serverPriv)
	p.send(&wire.Message{SignedID: &wire.SignedID{ID: bytes.Repeat([]byte{1}, 10)}})
	wantKind(t, r.result(t), session.KindCrypto, secure.ErrIdentityTooShort)
}

func TestController_RemembersCredential(t *testing.T) {
	creds := newMemCredentials()

	p := newFakePeer(t)
	opts := p.options()
	opts.Credentials = creds
	opts.Remember = true
	r := start(t, opts)
	p.streaming(r)

	want := secure.SaltedHash(password, salt)
	if got, ok, _ := creds.LoadCredential(peerID); !ok || !bytes.Equal(got, want[:]) {
		t.Fatalf("remembered %x, %v", got, ok)
	}

	// A second session logs in from the cache alone.
	q := newFakePeer(t)
	opts = q.options()
	opts.Password = ""
	opts.Credentials = creds
	r2 := start(t, opts)
	q.relayResponse(q.serverPriv)
	q.keyExchange()
	if !q.challenge() {
		t.Fatal("cached credential produced a different digest")
	}
	q.welcome()
	waitFor(t, "streaming", func() bool { return r2.ctrl.Phase() == domain.PhaseStreaming })
}

func TestController_WrongCachedPasswordIsForgotten(t *testing.T) {
	creds := newMemCredentials()
	stale := secure.SaltedHash("old-password", salt)
	_ = creds.SaveCredential(peerID, stale[:])

	p := newFakePeer(t)
	opts := p.options()
	opts.Password = ""
	opts.Credentials = creds
	r := start(t, opts)
	p.relayResponse(p.serverPriv)
	p.keyExchange()
	if p.challenge() {
		t.Fatal("stale credential matched")
	}
	p.send(&wire.Message{LoginResponse: &wire.LoginResponse{Error: "Wrong Password"}})

	wantKind(t, r.result(t), session.KindAuth, session.ErrLoginRejected)
	if _, ok, _ := creds.LoadCredential(peerID); ok {
		t.Fatal("stale credential kept")
	}
}

func TestController_NoPassword(t *testing.T) {
	p := newFakePeer(t)
	opts := p.options()
	opts.Password = ""
	r := start(t, opts)
	p.relayResponse(p.serverPriv)
	p.keyExchange()
	p.send(&wire.Message{Hash: &wire.Hash{Salt: salt, Challenge: challenge}})
	wantKind(t, r.result(t), session.KindAuth, session.ErrNoPassword)
}

func TestController_HandshakeTimeout(t *testing.T) {
	p := newFakePeer(t)
	opts := p.options()
	opts.HandshakeTimeout = 5 * time.Second
	r := start(t, opts)

	p.rdv = accept(t, p.rdvAcc)
	p.readRendezvous()
	p.clk.Advance(5 * time.Second)
	wantKind(t, r.result(t), session.KindTimeout, session.ErrTimeout)
}

func TestController_CloseWhileConnecting(t *testing.T) {
	p := newFakePeer(t)
	r := start(t, p.options())
	p.rdv = accept(t, p.rdvAcc)
	p.readRendezvous()

	for i := 0; i < 3; i++ {
		if err := r.ctrl.Close(); err != nil {
			t.Fatalf("Close #%d: %v", i, err)
		}
	}
	if err := r.result(t); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if r.ctrl.Phase() != domain.PhaseClosed {
		t.Fatalf("phase = %v", r.ctrl.Phase())
	}
}

func TestController_CloseBeforeRun(t *testing.T) {
	p := newFakePeer(t)
	ctrl, err := session.New(p.options())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = ctrl.Close()
	_ = ctrl.Close()
	select {
	case <-ctrl.Done():
	default:
		t.Fatal("Done not closed")
	}
	if err := ctrl.Run(context.Background()); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("Run = %v, want ErrClosed", err)
	}
	if ctrl.Phase() != domain.PhaseClosed || len(p.dialer.Dialed()) != 0 {
		t.Fatalf("phase = %v dialled = %v", ctrl.Phase(), p.dialer.Dialed())
	}
}

func TestController_ContextCancel(t *testing.T) {
	p := newFakePeer(t)
	ctrl, err := session.New(p.options())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- ctrl.Run(ctx) }()
	p.rdv = accept(t, p.rdvAcc)
	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(waitLimit):
		t.Fatal("Run did not return")
	}
	if ctrl.Phase() != domain.PhaseClosed {
		t.Fatalf("phase = %v", ctrl.Phase())
	}
}

func TestNew_Validates(t *testing.T) {
	if _, err := session.New(session.Options{Dialer: newFakePeer(t).dialer}); !errors.Is(err, session.ErrNoPeer) {
		t.Fatalf("no peer: %v", err)
	}
	if _, err := session.New(session.Options{PeerID: peerID}); !errors.Is(err, session.ErrNoDialer) {
		t.Fatalf("no dialer: %v", err)
	}
}

type fakeHardware map[domain.Codec]bool

func (h fakeHardware) Supports(c domain.Codec) bool { return h[c] }
func (h fakeHardware) NewDecoder(domain.Codec, func(*domain.DecodedFrame)) (domain.VideoDecoder, error) {
	return nil, errors.New("not used")
}

func TestAdvertisedCodecs(t *testing.T) {
	cases := []struct {
		hw   domain.VideoBackend
		want []domain.Codec
	}{
		{nil, []domain.Codec{domain.CodecH264}},
		{fakeHardware{domain.CodecVP9: true, domain.CodecH264: true}, []domain.Codec{domain.CodecVP9, domain.CodecH264}},
		{fakeHardware{domain.CodecAV1: true}, []domain.Codec{domain.CodecAV1, domain.CodecH264}},
	}
	for _, c := range cases {
		got := session.AdvertisedCodecs(c.hw)
		if len(got) != len(c.want) {
			t.Fatalf("AdvertisedCodecs = %v, want %v", got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("AdvertisedCodecs = %v, want %v", got, c.want)
			}
		}
	}
}

func TestController_MetricsSnapshot(t *testing.T) {
	p := newFakePeer(t)
	r := start(t, p.options())
	p.streaming(r)
	p.sync(1)
	p.clk.Advance(time.Second / 30)

	// Hash, login response and the probe in; login request and echo out.
	waitFor(t, "published counters", func() bool {
		snap := r.ctrl.MetricsSnapshot()
		return snap.MessagesIn >= 3 && snap.MessagesOut >= 2
	})
	snap := r.ctrl.MetricsSnapshot()
	if snap.Phase != int(domain.PhaseStreaming) || snap.BytesIn == 0 || snap.BytesOut == 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}
