package interfaces

import (
	"image"
	"time"

	domaintypes "deskbridge/internal/domain/types"
)

// VideoBackend is the host's hardware decode capability.
type VideoBackend interface {
	// Supports reports whether a hardware decoder exists for codec.
	Supports(codec domaintypes.Codec) bool
	// NewDecoder creates a decoder that delivers pictures to emit. emit may
	// be called from any goroutine.
	NewDecoder(codec domaintypes.Codec, emit func(*domaintypes.DecodedFrame)) (VideoDecoder, error)
}

// VideoDecoder decodes chunks submitted with a presentation timestamp.
type VideoDecoder interface {
	Decode(chunk domaintypes.EncodedMediaChunk, timestamp time.Duration) error
	Close() error
}

// MediaBuffer is a buffering playback element fed with fragmented MP4.
type MediaBuffer interface {
	// Append accepts an init segment or a media fragment.
	Append(segment []byte) error
	// BufferedEnd is the live edge: the end of the newest buffered data.
	BufferedEnd() time.Duration
	CurrentTime() time.Duration
	Seek(t time.Duration)
	SetPlaybackRate(rate float64)
	PlaybackRate() float64
	// Play starts playback; it may fail with a playback-policy error.
	Play() error
	// CurrentFrame returns the picture at CurrentTime, or nil.
	CurrentFrame() image.Image
	Close() error
}

// AudioBackend is the host's structured audio decode capability.
type AudioBackend interface {
	Supports(codec domaintypes.Codec) bool
	NewDecoder(codec domaintypes.Codec, format domaintypes.AudioFormat) (AudioDecoder, error)
}

// AudioDecoder turns one encoded frame into per-channel float samples.
type AudioDecoder interface {
	Decode(data []byte) ([][]float32, error)
	Close() error
}

// AudioSink plays scheduled sample buffers against its own clock.
type AudioSink interface {
	// Now is the sink's current playback clock.
	Now() time.Duration
	// Schedule plays channels starting at the given sink time.
	Schedule(channels [][]float32, sampleRate int, at time.Duration) error
	// SetGain applies the single output gain.
	SetGain(gain float64)
	// Resume starts the output; it may fail with a playback-policy error.
	Resume() error
	Close() error
}

// Surface is the drawing target owned by the renderer.
type Surface interface {
	Size() (width, height int)
	Clear()
	// Draw scales src into dst, blending over existing content when over is set.
	Draw(src image.Image, dst image.Rectangle, over bool)
	Release() error
}
