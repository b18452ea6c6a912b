package video

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"

	"deskbridge/internal/clock"
	"deskbridge/internal/domain"
)

var ErrNoInitSegment = errors.New("video: media fragment before init segment")

// MemoryBuffer is a headless MediaBuffer. It parses appended fMP4 to track
// the buffered range and advances its playback position with the clock and
// playback rate, stalling at the live edge. Pictures are not decoded: the
// current frame is a flat placeholder of the coded size.
type MemoryBuffer struct {
	mu        sync.Mutex
	clk       clock.Clock
	timescale uint32
	end       time.Duration
	cur       time.Duration
	rate      float64
	playing   bool
	blocked   bool
	last      time.Time
	frame     *image.RGBA
	closed    bool
	seeks     int
}

var _ domain.MediaBuffer = (*MemoryBuffer)(nil)

// NewMemoryBuffer returns an empty buffer driven by clk.
func NewMemoryBuffer(clk clock.Clock) *MemoryBuffer {
	return &MemoryBuffer{clk: clk, rate: 1}
}

// BlockPlayback makes Play fail with domain.ErrPlaybackBlocked until
// UnblockPlayback is called, as a host autoplay policy would.
func (b *MemoryBuffer) BlockPlayback() {
	b.mu.Lock()
	b.blocked = true
	b.mu.Unlock()
}

// UnblockPlayback lifts BlockPlayback.
func (b *MemoryBuffer) UnblockPlayback() {
	b.mu.Lock()
	b.blocked = false
	b.mu.Unlock()
}

// Append parses an init segment or media fragment.
func (b *MemoryBuffer) Append(segment []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.advance()
	r := bytes.NewReader(segment)
	var pos uint64
	var ticks uint64
	for r.Len() > 0 {
		box, err := mp4.DecodeBox(pos, r)
		if err != nil {
			return fmt.Errorf("video: parse segment: %w", err)
		}
		switch bx := box.(type) {
		case *mp4.MoovBox:
			if bx.Trak != nil && bx.Trak.Mdia != nil && bx.Trak.Mdia.Mdhd != nil {
				b.timescale = bx.Trak.Mdia.Mdhd.Timescale
			}
		case *mp4.MoofBox:
			if b.timescale == 0 {
				return ErrNoInitSegment
			}
			if bx.Traf != nil && bx.Traf.Trun != nil {
				for _, s := range bx.Traf.Trun.Samples {
					ticks += uint64(s.Dur)
				}
			}
		}
		pos += box.Size()
	}
	if ticks > 0 {
		b.end += time.Duration(ticks) * time.Second / time.Duration(b.timescale)
	}
	return nil
}

// SetFrameSize sets the placeholder picture size.
func (b *MemoryBuffer) SetFrameSize(w, h int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w <= 0 || h <= 0 {
		return
	}
	if b.frame != nil && b.frame.Rect.Dx() == w && b.frame.Rect.Dy() == h {
		return
	}
	b.frame = image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(b.frame, b.frame.Rect, &image.Uniform{C: color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}}, image.Point{}, draw.Src)
}

func (b *MemoryBuffer) BufferedEnd() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.end
}

func (b *MemoryBuffer) CurrentTime() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.cur
}

func (b *MemoryBuffer) Seek(t time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	if t > b.end {
		t = b.end
	}
	if t < 0 {
		t = 0
	}
	b.cur = t
	b.seeks++
}

// Seeks returns how many times Seek was called.
func (b *MemoryBuffer) Seeks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seeks
}

func (b *MemoryBuffer) SetPlaybackRate(rate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	b.rate = rate
}

func (b *MemoryBuffer) PlaybackRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate
}

func (b *MemoryBuffer) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.blocked {
		return domain.ErrPlaybackBlocked
	}
	if !b.playing {
		b.playing = true
		b.last = b.clk.Now()
	}
	return nil
}

func (b *MemoryBuffer) CurrentFrame() image.Image {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.end == 0 {
		return nil
	}
	if b.frame == nil {
		b.frame = image.NewRGBA(image.Rect(0, 0, 16, 16))
	}
	return b.frame
}

func (b *MemoryBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.playing = false
	b.frame = nil
	return nil
}

// advance moves the playback position by elapsed time scaled by the rate.
func (b *MemoryBuffer) advance() {
	if !b.playing {
		return
	}
	now := b.clk.Now()
	elapsed := now.Sub(b.last)
	b.last = now
	if elapsed <= 0 {
		return
	}
	b.cur += time.Duration(float64(elapsed) * b.rate)
	if b.cur > b.end {
		b.cur = b.end
	}
}
