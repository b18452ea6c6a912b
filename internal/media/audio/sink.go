package audio

import (
	"sync"
	"time"

	"deskbridge/internal/clock"
	"deskbridge/internal/domain"
)

// Scheduled is one buffer accepted by a MemorySink.
type Scheduled struct {
	At       time.Duration
	Samples  int
	Channels int
	Rate     int
	Gain     float64
}

// MemorySink is a headless AudioSink. Its clock runs from the first Resume;
// scheduled buffers are recorded rather than played.
type MemorySink struct {
	mu      sync.Mutex
	clk     clock.Clock
	start   time.Time
	running bool
	blocked bool
	closed  bool
	gain    float64
	log     []Scheduled
	played  time.Duration
}

var _ domain.AudioSink = (*MemorySink)(nil)

// NewMemorySink returns a stopped sink driven by clk.
func NewMemorySink(clk clock.Clock) *MemorySink {
	return &MemorySink{clk: clk, gain: 1}
}

// BlockPlayback makes Resume fail with domain.ErrPlaybackBlocked until
// UnblockPlayback is called.
func (s *MemorySink) BlockPlayback() {
	s.mu.Lock()
	s.blocked = true
	s.mu.Unlock()
}

// UnblockPlayback lifts BlockPlayback.
func (s *MemorySink) UnblockPlayback() {
	s.mu.Lock()
	s.blocked = false
	s.mu.Unlock()
}

func (s *MemorySink) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return s.clk.Now().Sub(s.start)
}

func (s *MemorySink) Schedule(channels [][]float32, sampleRate int, at time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	n := 0
	if len(channels) > 0 {
		n = len(channels[0])
	}
	s.log = append(s.log, Scheduled{At: at, Samples: n, Channels: len(channels), Rate: sampleRate, Gain: s.gain})
	if sampleRate > 0 {
		s.played += time.Duration(n) * time.Second / time.Duration(sampleRate)
	}
	return nil
}

func (s *MemorySink) SetGain(gain float64) {
	s.mu.Lock()
	s.gain = gain
	s.mu.Unlock()
}

// Gain returns the current gain.
func (s *MemorySink) Gain() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

func (s *MemorySink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.blocked {
		return domain.ErrPlaybackBlocked
	}
	if !s.running {
		s.running = true
		s.start = s.clk.Now()
	}
	return nil
}

func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.running = false
	return nil
}

// Scheduled returns the buffers accepted so far.
func (s *MemorySink) Scheduled() []Scheduled {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Scheduled(nil), s.log...)
}

// Duration returns the total audio scheduled.
func (s *MemorySink) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.played
}
