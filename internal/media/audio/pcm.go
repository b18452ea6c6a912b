package audio

import (
	"encoding/binary"
	"errors"
)

var ErrShortFrame = errors.New("audio: frame shorter than one sample per channel")

// DeinterleaveS16LE splits interleaved little-endian int16 samples into one
// float32 slice per channel, scaled to [-1, 1). Trailing bytes that do not
// form a whole sample frame are ignored.
func DeinterleaveS16LE(data []byte, channels int) ([][]float32, error) {
	if channels <= 0 {
		channels = 1
	}
	stride := 2 * channels
	n := len(data) / stride
	if n == 0 {
		return nil, ErrShortFrame
	}
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		base := i * stride
		for c := 0; c < channels; c++ {
			s := int16(binary.LittleEndian.Uint16(data[base+2*c:]))
			out[c][i] = float32(s) / 32768
		}
	}
	return out, nil
}
