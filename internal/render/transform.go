package render

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// ScaleMode selects how the remote display is fitted to the surface.
type ScaleMode int

const (
	// ScaleFit letterboxes, preserving aspect ratio.
	ScaleFit ScaleMode = iota
	// ScaleFill covers the surface, preserving aspect ratio and cropping.
	ScaleFill
	// ScaleNative maps one remote pixel to one surface pixel, centred.
	ScaleNative
	// ScaleStretch fills the surface, ignoring aspect ratio.
	ScaleStretch
)

func (m ScaleMode) String() string {
	switch m {
	case ScaleFit:
		return "fit"
	case ScaleFill:
		return "fill"
	case ScaleNative:
		return "native"
	case ScaleStretch:
		return "stretch"
	}
	return "unknown"
}

// ParseScaleMode accepts fit, fill, native and stretch.
func ParseScaleMode(s string) (ScaleMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fit":
		return ScaleFit, nil
	case "fill":
		return ScaleFill, nil
	case "native", "original":
		return ScaleNative, nil
	case "stretch":
		return ScaleStretch, nil
	}
	return ScaleFit, fmt.Errorf("render: unknown scale mode %q", s)
}

// Transform maps remote coordinates to surface coordinates:
// surface = remote*scale + offset.
type Transform struct {
	ScaleX, ScaleY   float64
	OffsetX, OffsetY float64
	RemoteW, RemoteH int
}

// Valid reports whether the transform maps a non-empty display.
func (t Transform) Valid() bool {
	return t.RemoteW > 0 && t.RemoteH > 0 && t.ScaleX > 0 && t.ScaleY > 0
}

// Compute builds the transform for mode.
func Compute(mode ScaleMode, remoteW, remoteH, surfaceW, surfaceH int) Transform {
	t := Transform{RemoteW: remoteW, RemoteH: remoteH}
	if remoteW <= 0 || remoteH <= 0 || surfaceW <= 0 || surfaceH <= 0 {
		return t
	}
	rw, rh := float64(remoteW), float64(remoteH)
	sw, sh := float64(surfaceW), float64(surfaceH)
	switch mode {
	case ScaleStretch:
		t.ScaleX, t.ScaleY = sw/rw, sh/rh
		return t
	case ScaleNative:
		t.ScaleX, t.ScaleY = 1, 1
	case ScaleFill:
		s := math.Max(sw/rw, sh/rh)
		t.ScaleX, t.ScaleY = s, s
	default:
		s := math.Min(sw/rw, sh/rh)
		t.ScaleX, t.ScaleY = s, s
	}
	t.OffsetX = (sw - rw*t.ScaleX) / 2
	t.OffsetY = (sh - rh*t.ScaleY) / 2
	return t
}

// ToCanvas maps a remote point to surface coordinates.
func (t Transform) ToCanvas(x, y float64) (float64, float64) {
	return x*t.ScaleX + t.OffsetX, y*t.ScaleY + t.OffsetY
}

// CanvasToRemote inverts ToCanvas. ok is false when the point lies outside
// [0, RemoteW] × [0, RemoteH].
func (t Transform) CanvasToRemote(x, y float64) (rx, ry float64, ok bool) {
	if !t.Valid() {
		return 0, 0, false
	}
	rx = (x - t.OffsetX) / t.ScaleX
	ry = (y - t.OffsetY) / t.ScaleY
	ok = rx >= 0 && ry >= 0 && rx <= float64(t.RemoteW) && ry <= float64(t.RemoteH)
	return rx, ry, ok
}

// Rect maps a remote rectangle to the surface, rounding outward.
func (t Transform) Rect(x, y, w, h float64) image.Rectangle {
	x0, y0 := t.ToCanvas(x, y)
	x1, y1 := t.ToCanvas(x+w, y+h)
	return image.Rect(int(math.Floor(x0)), int(math.Floor(y0)), int(math.Ceil(x1)), int(math.Ceil(y1)))
}

// Frame is the surface rectangle covered by the whole remote display.
func (t Transform) Frame() image.Rectangle {
	return t.Rect(0, 0, float64(t.RemoteW), float64(t.RemoteH))
}
