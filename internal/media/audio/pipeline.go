package audio

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"deskbridge/internal/domain"
)

var (
	ErrClosed         = errors.New("audio: pipeline closed")
	ErrNotInitialized = errors.New("audio: pipeline not initialized")
	ErrNoSink         = errors.New("audio: no sink")
)

// DefaultEpsilon is the lead given to the cursor when it falls behind.
const DefaultEpsilon = 20 * time.Millisecond

// Mode is the active decode path.
type Mode int32

const (
	ModeUninitialized Mode = iota
	ModeStructured
	ModePCM
	ModeClosed
)

func (m Mode) String() string {
	switch m {
	case ModeUninitialized:
		return "uninitialized"
	case ModeStructured:
		return "structured"
	case ModePCM:
		return "pcm"
	case ModeClosed:
		return "closed"
	}
	return "unknown"
}

// Stats are the pipeline counters. Held counts frames refused while the sink
// waits for a user gesture; those are not drops.
type Stats struct {
	Mode     Mode
	Decoded  uint64
	Dropped  uint64
	Held     uint64
	Nudges   uint64
	Blocked  bool
	Format   domain.AudioFormat
	Volume   float64
	Muted    bool
	Schedule time.Duration
}

// Options wire a pipeline to its host.
type Options struct {
	// Backend provides structured decoders; nil selects PCM.
	Backend domain.AudioBackend
	Sink    domain.AudioSink
	Epsilon time.Duration
	Log     *logrus.Entry
	// OnGestureRequired is called once when the sink refuses to start.
	OnGestureRequired func()
}

// Pipeline decodes and schedules one audio stream. Not safe for concurrent
// use.
type Pipeline struct {
	opts    Options
	log     *logrus.Entry
	epsilon time.Duration

	mode   Mode
	format domain.AudioFormat
	dec    domain.AudioDecoder

	next    time.Duration
	started bool
	blocked bool

	volume float64
	muted  bool

	decoded atomic.Uint64
	dropped atomic.Uint64
	held    atomic.Uint64
	nudges  atomic.Uint64
}

// New returns an uninitialized pipeline at full volume.
func New(opts Options) *Pipeline {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	eps := opts.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	return &Pipeline{opts: opts, log: log.WithField("component", "audio"), epsilon: eps, volume: 1}
}

// Mode returns the active path.
func (p *Pipeline) Mode() Mode { return p.mode }

// Init selects the decode path for codec and format. Calling it again (for a
// new audio_format announcement) replaces the decoder and restarts scheduling.
func (p *Pipeline) Init(codec domain.Codec, format domain.AudioFormat) error {
	if p.mode == ModeClosed {
		return ErrClosed
	}
	if p.opts.Sink == nil {
		return ErrNoSink
	}
	if format.SampleRate <= 0 {
		format.SampleRate = 48000
	}
	if format.Channels <= 0 {
		format.Channels = 2
	}
	p.closeDecoder()
	p.format = format
	p.next = 0

	if b := p.opts.Backend; b != nil && b.Supports(codec) {
		dec, err := b.NewDecoder(codec, format)
		if err == nil {
			p.dec = dec
			p.mode = ModeStructured
			p.log.WithFields(logrus.Fields{"codec": codec, "rate": format.SampleRate, "channels": format.Channels}).Info("structured audio decoder active")
			p.applyGain()
			return nil
		}
		p.log.WithError(err).Warn("audio decoder unavailable, using pcm")
	}
	p.mode = ModePCM
	p.log.WithFields(logrus.Fields{"rate": format.SampleRate, "channels": format.Channels}).Info("pcm audio path active")
	p.applyGain()
	return nil
}

// Decode decodes one frame and schedules it. Failures drop the frame and are
// counted; playback continues with the next frame.
func (p *Pipeline) Decode(data []byte) error {
	switch p.mode {
	case ModeClosed:
		return ErrClosed
	case ModeUninitialized:
		p.dropped.Add(1)
		return ErrNotInitialized
	}
	if !p.started {
		if err := p.start(); err != nil {
			if errors.Is(err, domain.ErrPlaybackBlocked) {
				p.held.Add(1)
			} else {
				p.dropped.Add(1)
			}
			return err
		}
	}

	var (
		chans [][]float32
		err   error
	)
	if p.mode == ModeStructured {
		chans, err = p.dec.Decode(data)
	} else {
		chans, err = DeinterleaveS16LE(data, p.format.Channels)
	}
	if err != nil {
		p.dropped.Add(1)
		return fmt.Errorf("audio: decode: %w", err)
	}
	if len(chans) == 0 || len(chans[0]) == 0 {
		return nil
	}
	if err := p.schedule(chans); err != nil {
		p.dropped.Add(1)
		return err
	}
	p.decoded.Add(1)
	return nil
}

// schedule places chans at the cursor and advances it by their duration.
func (p *Pipeline) schedule(chans [][]float32) error {
	now := p.opts.Sink.Now()
	if p.next < now {
		if p.next > 0 {
			p.nudges.Add(1)
		}
		p.next = now + p.epsilon
	}
	if err := p.opts.Sink.Schedule(chans, p.format.SampleRate, p.next); err != nil {
		return fmt.Errorf("audio: schedule: %w", err)
	}
	p.next += time.Duration(len(chans[0])) * time.Second / time.Duration(p.format.SampleRate)
	return nil
}

func (p *Pipeline) start() error {
	err := p.opts.Sink.Resume()
	switch {
	case err == nil:
		p.started = true
		p.blocked = false
		return nil
	case errors.Is(err, domain.ErrPlaybackBlocked):
		if !p.blocked {
			p.blocked = true
			p.log.Info("audio blocked, waiting for user gesture")
			if p.opts.OnGestureRequired != nil {
				p.opts.OnGestureRequired()
			}
		}
		return err
	default:
		return fmt.Errorf("audio: resume sink: %w", err)
	}
}

// ResumeAfterGesture retries starting the sink.
func (p *Pipeline) ResumeAfterGesture() error {
	if p.mode == ModeClosed {
		return ErrClosed
	}
	if p.started || p.opts.Sink == nil {
		return nil
	}
	return p.start()
}

// SetVolume sets the linear volume in [0, 1].
func (p *Pipeline) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.volume = v
	p.applyGain()
}

// SetMuted mutes or unmutes without losing the volume.
func (p *Pipeline) SetMuted(m bool) {
	p.muted = m
	p.applyGain()
}

func (p *Pipeline) applyGain() {
	if p.opts.Sink == nil {
		return
	}
	g := p.volume
	if p.muted {
		g = 0
	}
	p.opts.Sink.SetGain(g)
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Mode:     p.mode,
		Decoded:  p.decoded.Load(),
		Dropped:  p.dropped.Load(),
		Nudges:   p.nudges.Load(),
		Blocked:  p.blocked,
		Held:     p.held.Load(),
		Format:   p.format,
		Volume:   p.volume,
		Muted:    p.muted,
		Schedule: p.next,
	}
}

func (p *Pipeline) closeDecoder() {
	if p.dec != nil {
		if err := p.dec.Close(); err != nil {
			p.log.WithError(err).Debug("closing audio decoder")
		}
		p.dec = nil
	}
}

// Close releases the decoder and the sink. Idempotent.
func (p *Pipeline) Close() error {
	if p.mode == ModeClosed {
		return nil
	}
	p.mode = ModeClosed
	p.closeDecoder()
	if p.opts.Sink != nil {
		return p.opts.Sink.Close()
	}
	return nil
}
