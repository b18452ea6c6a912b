// Package video turns encoded video chunks into frames for the renderer.
//
// A Pipeline picks one of two paths at Init and keeps it for its lifetime:
//
//   - hardware: chunks go to a host decoder with synthetic timestamps spaced
//     at a fixed 30 fps, so they are strictly increasing by construction.
//     After a decoder error, delta frames are dropped until the next keyframe.
//   - software fallback: H.264 chunks are muxed into fragmented MP4 and
//     appended to a buffering element (MediaBuffer). A health check on every
//     render tick compares the buffered end to the playback position and
//     speeds up, or as a last resort hard-seeks to, the live edge.
//
// Frames are handed over through a single-slot holder: a newer frame releases
// an older undrawn one, so at most one pending frame is ever retained.
package video
