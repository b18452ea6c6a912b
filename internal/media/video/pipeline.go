package video

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"deskbridge/internal/domain"
)

var (
	ErrClosed           = errors.New("video: pipeline closed")
	ErrNotInitialized   = errors.New("video: pipeline not initialized")
	ErrUnsupportedCodec = errors.New("video: codec not supported on this path")
	ErrNoDecoder        = errors.New("video: no hardware decoder and no media buffer")
)

// FallbackCodec is the only codec the software path accepts.
const FallbackCodec = domain.CodecH264

// Mode is the active decode path.
type Mode int32

const (
	ModeUninitialized Mode = iota
	ModeHardware
	ModeSoftware
	ModeClosed
)

func (m Mode) String() string {
	switch m {
	case ModeUninitialized:
		return "uninitialized"
	case ModeHardware:
		return "hardware"
	case ModeSoftware:
		return "software"
	case ModeClosed:
		return "closed"
	}
	return "unknown"
}

// Stats are the pipeline counters.
type Stats struct {
	Mode       Mode
	Codec      domain.Codec
	Decoded    uint64
	Dropped    uint64
	Superseded uint64
	Seeks      uint64
}

// Options wire a pipeline to its host.
type Options struct {
	// Hardware is the host decoder; nil selects the software path.
	Hardware domain.VideoBackend
	// NewBuffer creates the buffering element for the software path.
	NewBuffer func() domain.MediaBuffer
	Config    Config
	Log       *logrus.Entry
	// OnKeyframeRequest is called after a hard seek or a decoder error.
	OnKeyframeRequest func()
	// OnGestureRequired is called once when playback start is blocked.
	OnGestureRequired func()
}

// decodePath is one of the two decode variants.
type decodePath interface {
	decode(chunk domain.EncodedMediaChunk) error
	tick()
	resume() error
	close() error
}

// Pipeline decodes one video stream. Its methods are called from a single
// goroutine; decoded frames may arrive from decoder goroutines.
type Pipeline struct {
	opts Options
	cfg  Config
	log  *logrus.Entry
	slot FrameSlot

	mode  atomic.Int32
	codec domain.Codec
	path  decodePath

	decoded atomic.Uint64
	dropped atomic.Uint64
	seeks   atomic.Uint64

	closeOnce sync.Once
}

// New returns an uninitialized pipeline.
func New(opts Options) *Pipeline {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{
		opts: opts,
		cfg:  opts.Config.withDefaults(),
		log:  log.WithField("component", "video"),
	}
}

// Mode returns the active path.
func (p *Pipeline) Mode() Mode { return Mode(p.mode.Load()) }

// Codec returns the codec passed to the last successful Init.
func (p *Pipeline) Codec() domain.Codec { return p.codec }

// Init selects the decode path for codec. Calling it again switches codec,
// closing the previous path.
func (p *Pipeline) Init(codec domain.Codec) error {
	if p.Mode() == ModeClosed {
		return ErrClosed
	}
	if p.path != nil {
		if err := p.path.close(); err != nil {
			p.log.WithError(err).Debug("closing previous path")
		}
		p.path = nil
		p.slot.Drain()
	}

	if hw := p.opts.Hardware; hw != nil && hw.Supports(codec) {
		dec, err := hw.NewDecoder(codec, p.emit)
		if err == nil {
			p.path = &hardwarePath{p: p, dec: dec, interval: p.cfg.FrameInterval, codec: codec}
			p.codec = codec
			p.mode.Store(int32(ModeHardware))
			p.log.WithField("codec", codec).Info("hardware decoder active")
			return nil
		}
		p.log.WithError(err).WithField("codec", codec).Warn("hardware decoder unavailable, using fallback")
	}

	if p.opts.NewBuffer == nil {
		return ErrNoDecoder
	}
	buf := p.opts.NewBuffer()
	p.path = &softwarePath{p: p, buf: buf, mux: NewMuxer(p.cfg.FrameInterval)}
	p.codec = codec
	p.mode.Store(int32(ModeSoftware))
	entry := p.log.WithField("codec", codec)
	if codec != FallbackCodec {
		entry.Warn("software fallback only plays h264; frames will be dropped")
	} else {
		entry.Info("software fallback active")
	}
	return nil
}

// Decode submits one chunk. Failures drop the chunk and are counted; the
// pipeline stays usable.
func (p *Pipeline) Decode(chunk domain.EncodedMediaChunk) error {
	switch p.Mode() {
	case ModeClosed:
		return ErrClosed
	case ModeUninitialized:
		p.dropped.Add(1)
		return ErrNotInitialized
	}
	if err := p.path.decode(chunk); err != nil {
		p.dropped.Add(1)
		return err
	}
	return nil
}

// Tick runs the periodic health check; on the software path it also emits the
// current picture.
func (p *Pipeline) Tick() {
	if p.path != nil && p.Mode() != ModeClosed {
		p.path.tick()
	}
}

// Latest hands over the newest undrawn frame, or nil. The caller must
// Release it.
func (p *Pipeline) Latest() *domain.DecodedFrame { return p.slot.Take() }

// ResumeAfterGesture retries a playback start that host policy blocked.
func (p *Pipeline) ResumeAfterGesture() error {
	if p.path == nil {
		return ErrNotInitialized
	}
	return p.path.resume()
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Mode:       p.Mode(),
		Codec:      p.codec,
		Decoded:    p.decoded.Load(),
		Dropped:    p.dropped.Load(),
		Superseded: p.slot.Superseded(),
		Seeks:      p.seeks.Load(),
	}
}

// Close releases the decoder and any pending frame. Idempotent.
func (p *Pipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mode.Store(int32(ModeClosed))
		if p.path != nil {
			err = p.path.close()
		}
		p.slot.Drain()
	})
	return err
}

// emit receives hardware-decoded frames from any goroutine.
func (p *Pipeline) emit(f *domain.DecodedFrame) {
	if f == nil {
		return
	}
	if p.Mode() == ModeClosed {
		f.Release()
		return
	}
	p.decoded.Add(1)
	p.slot.Put(f)
}

func (p *Pipeline) requestKeyframe() {
	if p.opts.OnKeyframeRequest != nil {
		p.opts.OnKeyframeRequest()
	}
}

// hardwarePath submits chunks to a host decoder.
type hardwarePath struct {
	p        *Pipeline
	dec      domain.VideoDecoder
	codec    domain.Codec
	interval time.Duration
	index    int64
	needKey  bool
}

func (h *hardwarePath) decode(chunk domain.EncodedMediaChunk) error {
	if chunk.Codec != h.codec {
		return fmt.Errorf("%w: %s on %s decoder", ErrUnsupportedCodec, chunk.Codec, h.codec)
	}
	if h.needKey && !chunk.IsKeyframe {
		return ErrAwaitingKeyframe
	}
	ts := time.Duration(h.index) * h.interval
	h.index++
	if err := h.dec.Decode(chunk, ts); err != nil {
		h.needKey = true
		h.p.requestKeyframe()
		return fmt.Errorf("video: hardware decode: %w", err)
	}
	h.needKey = false
	return nil
}

func (h *hardwarePath) tick()         {}
func (h *hardwarePath) resume() error { return nil }
func (h *hardwarePath) close() error  { return h.dec.Close() }

// softwarePath muxes H.264 into a media buffer.
type softwarePath struct {
	p       *Pipeline
	buf     domain.MediaBuffer
	mux     *Muxer
	fresh   bool
	started bool
	blocked bool
}

type frameSizer interface{ SetFrameSize(w, h int) }

func (s *softwarePath) decode(chunk domain.EncodedMediaChunk) error {
	if chunk.Codec != FallbackCodec {
		return fmt.Errorf("%w: %s", ErrUnsupportedCodec, chunk.Codec)
	}
	before := s.mux.Fragments()
	segs, err := s.mux.Push(chunk)
	for _, seg := range segs {
		if aerr := s.buf.Append(seg); aerr != nil {
			return fmt.Errorf("video: append segment: %w", aerr)
		}
	}
	if fs, ok := s.buf.(frameSizer); ok {
		fs.SetFrameSize(s.mux.Size())
	}
	if err != nil {
		return err
	}
	if s.mux.Fragments() == before {
		return nil
	}
	s.fresh = true
	s.p.decoded.Add(1)
	return nil
}

func (s *softwarePath) tick() {
	if !s.started {
		if err := s.start(); err != nil {
			return
		}
	}
	end, cur := s.buf.BufferedEnd(), s.buf.CurrentTime()
	c := s.p.cfg.Check(end - cur)
	if c.Seek {
		s.buf.Seek(end)
		s.p.seeks.Add(1)
		s.p.log.WithField("lag", end-cur).Warn("playback stalled, seeking to live edge")
		s.p.requestKeyframe()
	}
	if s.buf.PlaybackRate() != c.Rate {
		s.buf.SetPlaybackRate(c.Rate)
	}

	img := s.buf.CurrentFrame()
	if img == nil {
		return
	}
	w, h := s.mux.Size()
	if w == 0 || h == 0 {
		b := img.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	s.p.slot.Put(domain.NewDecodedFrame(img, w, h, s.fresh, nil))
	s.fresh = false
}

func (s *softwarePath) start() error {
	err := s.buf.Play()
	switch {
	case err == nil:
		s.started = true
		s.blocked = false
		return nil
	case errors.Is(err, domain.ErrPlaybackBlocked):
		if !s.blocked {
			s.blocked = true
			s.p.log.Info("playback blocked, waiting for user gesture")
			if s.p.opts.OnGestureRequired != nil {
				s.p.opts.OnGestureRequired()
			}
		}
		return err
	default:
		s.p.log.WithError(err).Warn("playback start failed")
		return err
	}
}

func (s *softwarePath) resume() error {
	if s.started {
		return nil
	}
	return s.start()
}

func (s *softwarePath) close() error { return s.buf.Close() }
