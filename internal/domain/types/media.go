package types

import (
	"image"
	"strings"
)

// Codec identifies the encoding of a media chunk.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecH264
	CodecH265
	CodecVP8
	CodecVP9
	CodecAV1
	CodecOpus
	CodecPCM
)

var codecNames = [...]string{
	CodecUnknown: "unknown",
	CodecH264:    "h264",
	CodecH265:    "h265",
	CodecVP8:     "vp8",
	CodecVP9:     "vp9",
	CodecAV1:     "av1",
	CodecOpus:    "opus",
	CodecPCM:     "pcm",
}

// String returns the lower-case codec name.
func (c Codec) String() string {
	if c < 0 || int(c) >= len(codecNames) {
		return "unknown"
	}
	return codecNames[c]
}

// IsVideo reports whether c is a video codec.
func (c Codec) IsVideo() bool { return c >= CodecH264 && c <= CodecAV1 }

// ParseCodec maps a codec name to a Codec; unrecognised names yield CodecUnknown.
func ParseCodec(s string) Codec {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range codecNames {
		if n == s {
			return Codec(i)
		}
	}
	return CodecUnknown
}

// VideoCodecs lists the video codecs in the peer's preference order.
var VideoCodecs = []Codec{CodecAV1, CodecVP9, CodecH265, CodecH264, CodecVP8}

// EncodedMediaChunk is one encoded video or audio unit as received from the
// peer. It must not be mutated after creation.
type EncodedMediaChunk struct {
	Data              []byte
	IsKeyframe        bool
	Codec             Codec
	PresentationOrder int64
}

// DecodedFrame is a displayable picture handed to the renderer, which must
// call Release exactly once after drawing it.
type DecodedFrame struct {
	Image          image.Image
	DisplayWidth   int
	DisplayHeight  int
	IsGenuinelyNew bool

	release func()
}

// NewDecodedFrame builds a frame whose Release invokes release (may be nil).
func NewDecodedFrame(img image.Image, w, h int, genuinelyNew bool, release func()) *DecodedFrame {
	return &DecodedFrame{
		Image:          img,
		DisplayWidth:   w,
		DisplayHeight:  h,
		IsGenuinelyNew: genuinelyNew,
		release:        release,
	}
}

// Release frees the underlying resource. Calls after the first are no-ops.
func (f *DecodedFrame) Release() {
	if f == nil || f.release == nil {
		return
	}
	r := f.release
	f.release = nil
	f.Image = nil
	r()
}

// AudioFormat describes the PCM layout announced by the peer.
type AudioFormat struct {
	SampleRate int
	Channels   int
}
