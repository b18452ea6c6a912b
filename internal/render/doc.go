// Package render composites decoded frames and the remote cursor onto a
// drawing surface.
//
// The renderer owns the remote-to-surface transform. It is recomputed
// whenever the remote display size, the surface size or the scale mode
// changes, and CanvasToRemote inverts it for the input translator.
//
// DrawFrame clears the surface, draws the frame, overlays the cursor at
// (position - hotspot) * scale and releases the frame before returning. The
// frame-rate meter counts only genuinely new frames over a rolling second.
package render
