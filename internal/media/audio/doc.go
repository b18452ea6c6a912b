// Package audio decodes the peer's audio stream and schedules it for gapless
// playback on an AudioSink.
//
// A structured decoder from the host backend is used when it supports the
// advertised codec; otherwise frames are taken as interleaved s16le PCM. Both
// paths feed one scheduler that keeps a running next-play cursor: each buffer
// starts where the previous ended, and when the cursor has fallen behind the
// sink clock it is nudged to now plus a small epsilon instead of being reset.
// Volume and mute are folded into the sink's single gain.
package audio
