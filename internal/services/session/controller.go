package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"deskbridge/internal/domain"
	"deskbridge/internal/input"
	"deskbridge/internal/media/audio"
	"deskbridge/internal/media/video"
	"deskbridge/internal/protocol/secure"
	"deskbridge/internal/protocol/wire"
	"deskbridge/internal/render"
	"deskbridge/internal/util/memzero"
)

// Stats is a snapshot of the session counters, refreshed on every render
// tick and phase change.
type Stats struct {
	Phase    domain.SessionPhase
	Sent     uint64
	Received uint64
	BytesIn  uint64
	BytesOut uint64
	Peer     *domain.PeerInfo
	Video    video.Stats
	Audio    audio.Stats
	Render   render.Stats
	Input    input.Stats
}

// Controller runs one session. Create it with New, drive it with Run and end
// it with Close.
type Controller struct {
	opts Options
	log  *logrus.Entry

	phase   atomic.Int32
	events  chan Event
	actions chan func()

	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
	runMu    sync.Mutex
	started  bool
	downOnce sync.Once

	bytesIn  atomic.Uint64
	bytesOut atomic.Uint64
	stats    atomic.Pointer[Stats]

	// Owned by the Run goroutine.
	sess       *secure.Session
	encrypted  bool
	verifier   secure.Verifier
	rdv        domain.Channel
	rdvEv      <-chan domain.ChannelEvent
	relay      domain.Channel
	relayEv    <-chan domain.ChannelEvent
	salted     []byte
	cached     bool
	peer       *domain.PeerInfo
	video      *video.Pipeline
	videoOn    bool
	videoCodec domain.Codec
	audio      *audio.Pipeline
	audioOn    bool
	renderer   *render.Renderer
	input      *input.Translator
	fatal      error
}

// New builds a controller with a fresh key pair. Nothing is dialled until Run.
func New(opts Options) (*Controller, error) {
	if opts.PeerID == "" {
		return nil, ErrNoPeer
	}
	if opts.Dialer == nil {
		return nil, ErrNoDialer
	}
	opts = opts.withDefaults()
	sess, err := secure.NewSession()
	if err != nil {
		return nil, err
	}
	c := &Controller{
		opts:     opts,
		log:      opts.Log.WithField("peer", opts.PeerID),
		events:   make(chan Event, eventBuffer),
		actions:  make(chan func(), actionBuffer),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		sess:     sess,
		verifier: secure.StructuralVerifier{},
	}
	c.phase.Store(int32(domain.PhaseDisconnected))

	vopts := opts.Video
	vopts.Log = c.log
	vopts.OnKeyframeRequest = c.requestKeyframe
	vopts.OnGestureRequired = c.gestureRequired
	c.video = video.New(vopts)

	aopts := opts.Audio
	aopts.Log = c.log
	aopts.OnGestureRequired = c.gestureRequired
	c.audio = audio.New(aopts)

	c.renderer = render.New(render.Options{
		Surface: opts.Surface,
		Mode:    opts.ScaleMode,
		Clock:   opts.Clock,
		Log:     c.log,
	})
	c.input = input.New(input.Options{
		Mapper:       c.renderer,
		Send:         c.send,
		Clock:        opts.Clock,
		MoveInterval: opts.MoveInterval,
		Log:          c.log,
	})
	c.input.SetEnabled(false)
	c.publish()
	return c, nil
}

// Phase returns the current phase. Safe from any goroutine.
func (c *Controller) Phase() domain.SessionPhase { return domain.SessionPhase(c.phase.Load()) }

// Events delivers session events. It is closed after teardown. Events are
// dropped when the consumer falls behind.
func (c *Controller) Events() <-chan Event { return c.events }

// Done is closed once the session has been torn down.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Stats returns the latest published snapshot. Safe from any goroutine.
func (c *Controller) Stats() Stats {
	if st := c.stats.Load(); st != nil {
		return *st
	}
	return Stats{Phase: c.Phase()}
}

// Run drives the session until it fails, the peer closes it, ctx ends or
// Close is called. It returns nil for a local close, ctx.Err() when ctx ends,
// and an *Error otherwise. Teardown has completed when Run returns.
//
// Steps:
//  1. Ask the rendezvous server for the peer and wait for a relay.
//  2. Connect to the relay and bind to the announced slot.
//  3. Verify the peer identity, send the sealed session key and switch to
//     encrypted messages.
//  4. Answer the password challenge.
//  5. Stream until the end, drawing a frame on every tick.
func (c *Controller) Run(ctx context.Context) error {
	c.runMu.Lock()
	if c.started {
		c.runMu.Unlock()
		if c.quitting() {
			return ErrClosed
		}
		return ErrAlreadyRunning
	}
	c.started = true
	c.runMu.Unlock()
	defer close(c.done)

	if c.quitting() {
		c.teardown(nil)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := c.loop(ctx)
	if c.quitting() && (err == nil || errors.Is(err, context.Canceled)) {
		err = nil
	}
	c.teardown(err)
	return err
}

// Close ends the session. It is idempotent, safe from any goroutine and any
// phase, and does not wait for teardown; use Done for that.
func (c *Controller) Close() error {
	c.quitOnce.Do(func() { close(c.quit) })
	c.runMu.Lock()
	if !c.started {
		c.started = true
		c.runMu.Unlock()
		c.teardown(nil)
		close(c.done)
		return nil
	}
	c.runMu.Unlock()
	return nil
}

func (c *Controller) quitting() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

// teardown releases, in order, the transport channels, the decoders, the
// drawing surface and finally the key material.
func (c *Controller) teardown(cause error) {
	c.downOnce.Do(func() {
		c.input.SetEnabled(false)
		if c.relay != nil {
			_ = c.relay.Close()
		}
		if c.rdv != nil {
			_ = c.rdv.Close()
		}
		if err := c.video.Close(); err != nil {
			c.logger().WithError(err).Debug("closing video pipeline")
		}
		if err := c.audio.Close(); err != nil {
			c.logger().WithError(err).Debug("closing audio pipeline")
		}
		c.writeFinalFrame()
		if err := c.renderer.Close(); err != nil {
			c.logger().WithError(err).Debug("releasing surface")
		}
		c.sess.Destroy()
		memzero.Zero(c.salted)
		c.salted = nil

		final := domain.PhaseClosed
		var se *Error
		if errors.As(cause, &se) && se.Kind != KindPeerClosed {
			final = domain.PhaseFailed
		}
		entry := c.logger().WithFields(c.counterFields())
		switch {
		case final == domain.PhaseFailed:
			entry.WithError(cause).Error("session failed")
		case cause != nil:
			entry.WithError(cause).Info("session ended")
		default:
			entry.Info("session closed")
		}
		c.setPhase(final)
		close(c.events)
	})
}

func (c *Controller) logger() *logrus.Entry {
	return c.log.WithField("phase", c.Phase())
}

func (c *Controller) counters() Counters {
	sent, recv := c.sess.Counters()
	vs := c.video.Stats()
	return Counters{
		Sent:     sent,
		Received: recv,
		BytesIn:  c.bytesIn.Load(),
		BytesOut: c.bytesOut.Load(),
		Decoded:  vs.Decoded,
		Dropped:  vs.Dropped,
	}
}

func (c *Controller) counterFields() logrus.Fields {
	n := c.counters()
	return logrus.Fields{
		"sent":     n.Sent,
		"received": n.Received,
		"decoded":  n.Decoded,
		"dropped":  n.Dropped,
	}
}

// fail builds the terminal error for the current phase.
func (c *Controller) fail(kind Kind, err error) *Error {
	return &Error{Kind: kind, Phase: c.Phase(), Counters: c.counters(), Err: err}
}

func (c *Controller) setPhase(p domain.SessionPhase) {
	old := domain.SessionPhase(c.phase.Swap(int32(p)))
	if old == p {
		return
	}
	c.log.WithFields(logrus.Fields{"from": old, "to": p}).Debug("phase changed")
	c.publish()
	c.emit(Event{Kind: EventPhase, Phase: p})
}

func (c *Controller) emit(ev Event) {
	if ev.Phase == 0 {
		ev.Phase = c.Phase()
	}
	select {
	case c.events <- ev:
	default:
		c.log.WithField("event", ev.Kind).Debug("event dropped, consumer behind")
	}
}

func (c *Controller) publish() {
	sent, recv := c.sess.Counters()
	st := &Stats{
		Phase:    c.Phase(),
		Sent:     sent,
		Received: recv,
		BytesIn:  c.bytesIn.Load(),
		BytesOut: c.bytesOut.Load(),
		Video:    c.video.Stats(),
		Audio:    c.audio.Stats(),
		Render:   c.renderer.Stats(),
		Input:    c.input.Stats(),
	}
	if c.peer != nil {
		p := *c.peer
		st.Peer = &p
	}
	c.stats.Store(st)
}

// post queues fn for the session goroutine; it is dropped when the queue is
// full or the session is over.
func (c *Controller) post(fn func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.actions <- fn:
		return true
	default:
		c.log.Debug("action dropped, session busy")
		return false
	}
}

// PointerMove forwards a local pointer move in surface coordinates.
func (c *Controller) PointerMove(x, y float64, mods domain.Modifiers) {
	c.post(func() { c.input.PointerMove(x, y, mods) })
}

// PointerButton forwards a local button press or release.
func (c *Controller) PointerButton(x, y float64, b domain.MouseButton, pressed bool, mods domain.Modifiers) {
	c.post(func() { c.input.PointerButton(x, y, b, pressed, mods) })
}

// Wheel forwards a local wheel event.
func (c *Controller) Wheel(x, y, dx, dy float64, mods domain.Modifiers) {
	c.post(func() { c.input.Wheel(x, y, dx, dy, mods) })
}

// Key forwards a local key event identified by its physical code and key
// value.
func (c *Controller) Key(code, key string, pressed bool, mods domain.Modifiers) {
	c.post(func() { c.input.Key(code, key, pressed, mods) })
}

// SetTextFocus suspends input forwarding while a local text field has focus.
func (c *Controller) SetTextFocus(focused bool) {
	c.post(func() { c.input.SetTextFocus(focused) })
}

// SetInputEnabled turns input capture on or off.
func (c *Controller) SetInputEnabled(on bool) {
	c.post(func() { c.input.SetEnabled(on && c.Phase() == domain.PhaseStreaming) })
}

// SetScaleMode changes how the remote display is fitted to the surface.
func (c *Controller) SetScaleMode(m render.ScaleMode) {
	c.post(func() { c.renderer.SetScaleMode(m) })
}

// SurfaceResized tells the renderer the surface size changed.
func (c *Controller) SurfaceResized() {
	c.post(c.renderer.SurfaceResized)
}

// SetVolume sets the playback volume in [0, 1].
func (c *Controller) SetVolume(v float64) {
	c.post(func() { c.audio.SetVolume(v) })
}

// SetMuted mutes or unmutes playback.
func (c *Controller) SetMuted(m bool) {
	c.post(func() { c.audio.SetMuted(m) })
}

// ResumeAfterGesture retries playback start on both pipelines after the host
// obtained a user gesture.
func (c *Controller) ResumeAfterGesture() {
	c.post(func() {
		if err := c.video.ResumeAfterGesture(); err != nil && !errors.Is(err, video.ErrNotInitialized) {
			c.logger().WithError(err).Warn("video playback still blocked")
		}
		if err := c.audio.ResumeAfterGesture(); err != nil && !errors.Is(err, audio.ErrNotInitialized) {
			c.logger().WithError(err).Warn("audio playback still blocked")
		}
	})
}

type pngWriter interface {
	WritePNG(w io.Writer) error
}

func (c *Controller) writeFinalFrame() {
	if c.opts.FinalFrame == nil || c.renderer.Stats().FramesDrawn == 0 {
		return
	}
	pw, ok := c.opts.Surface.(pngWriter)
	if !ok {
		return
	}
	if err := pw.WritePNG(c.opts.FinalFrame); err != nil {
		c.logger().WithError(err).Warn("writing final frame")
	}
}

// Snapshot writes the composited surface to w as PNG. It runs on the session
// goroutine and waits for it.
func (c *Controller) Snapshot(ctx context.Context, w io.Writer) error {
	pw, ok := c.opts.Surface.(pngWriter)
	if !ok {
		return ErrNoSnapshot
	}
	errc := make(chan error, 1)
	if !c.post(func() { errc <- pw.WritePNG(w) }) {
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-c.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// send encodes m, encrypts it once the key is installed and writes it to the
// relay. It reports false when nothing was sent.
func (c *Controller) send(m *wire.Message) bool {
	if c.relay == nil || c.relay.State() != domain.ChannelOpen {
		return false
	}
	b := m.Marshal()
	if c.encrypted {
		ct, err := c.sess.Encrypt(b)
		if err != nil {
			if c.fatal == nil {
				c.fatal = c.fail(KindCrypto, err)
			}
			return false
		}
		b = ct
	}
	if !c.relay.Send(b) {
		return false
	}
	c.bytesOut.Add(uint64(len(b)))
	return true
}

func (c *Controller) requestKeyframe() {
	if c.Phase() != domain.PhaseStreaming {
		return
	}
	if c.send(&wire.Message{Misc: &wire.Misc{RefreshVideo: true}}) {
		c.logger().Debug("requested keyframe")
	}
}

func (c *Controller) gestureRequired() {
	c.emit(Event{Kind: EventGestureRequired})
	if c.opts.OnGestureRequired != nil {
		c.opts.OnGestureRequired()
	}
}
