package render

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"deskbridge/internal/clock"
	"deskbridge/internal/domain"
)

// Stats are the renderer counters.
type Stats struct {
	FramesRendered uint64
	FramesDrawn    uint64
	FPS            int
	RemoteW        int
	RemoteH        int
	Mode           ScaleMode
}

// Options configure a renderer.
type Options struct {
	Surface domain.Surface
	Mode    ScaleMode
	Clock   clock.Clock
	Log     *logrus.Entry
}

// Renderer draws frames and the cursor. Not safe for concurrent use, except
// Stats.
type Renderer struct {
	surface domain.Surface
	mode    ScaleMode
	clk     clock.Clock
	log     *logrus.Entry

	remoteW, remoteH   int
	surfaceW, surfaceH int
	tf                 Transform

	cursor      domain.CursorState
	cursorShown bool
	cursors     *CursorCache

	window   []time.Time
	fps      atomic.Int64
	rendered atomic.Uint64
	drawn    atomic.Uint64
	released bool
}

// New returns a renderer for opts.Surface.
func New(opts Options) *Renderer {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := &Renderer{
		surface: opts.Surface,
		mode:    opts.Mode,
		clk:     clk,
		log:     log.WithField("component", "render"),
		cursors: NewCursorCache(),
	}
	if r.surface != nil {
		r.surfaceW, r.surfaceH = r.surface.Size()
	}
	return r
}

func (r *Renderer) recompute() {
	r.tf = Compute(r.mode, r.remoteW, r.remoteH, r.surfaceW, r.surfaceH)
}

// SetScaleMode changes the scale mode.
func (r *Renderer) SetScaleMode(m ScaleMode) {
	if m == r.mode {
		return
	}
	r.mode = m
	r.recompute()
}

// SetRemoteSize records the remote display size.
func (r *Renderer) SetRemoteSize(w, h int) {
	if w == r.remoteW && h == r.remoteH {
		return
	}
	r.remoteW, r.remoteH = w, h
	r.recompute()
	r.log.WithFields(logrus.Fields{"width": w, "height": h}).Debug("remote size changed")
}

// SurfaceResized re-reads the surface size.
func (r *Renderer) SurfaceResized() {
	if r.surface == nil {
		return
	}
	w, h := r.surface.Size()
	if w == r.surfaceW && h == r.surfaceH {
		return
	}
	r.surfaceW, r.surfaceH = w, h
	r.recompute()
}

// Transform returns the active transform.
func (r *Renderer) Transform() Transform { return r.tf }

// CanvasToRemote maps a surface point to the nearest remote pixel.
func (r *Renderer) CanvasToRemote(x, y float64) (int32, int32, bool) {
	rx, ry, ok := r.tf.CanvasToRemote(x, y)
	if !ok {
		return 0, 0, false
	}
	return int32(math.Round(rx)), int32(math.Round(ry)), true
}

// DrawFrame draws f and the cursor, then releases f. A nil frame is ignored.
func (r *Renderer) DrawFrame(f *domain.DecodedFrame) {
	if f == nil {
		return
	}
	defer f.Release()
	if r.released || r.surface == nil || f.Image == nil {
		return
	}
	w, h := f.DisplayWidth, f.DisplayHeight
	if w <= 0 || h <= 0 {
		b := f.Image.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	r.SetRemoteSize(w, h)
	if !r.tf.Valid() {
		return
	}

	r.surface.Clear()
	r.surface.Draw(f.Image, r.tf.Frame(), false)
	r.drawCursor()
	r.drawn.Add(1)

	now := r.clk.Now()
	if f.IsGenuinelyNew {
		r.rendered.Add(1)
		r.window = append(r.window, now)
	}
	r.trim(now)
}

func (r *Renderer) drawCursor() {
	c := r.cursor
	if !r.cursorShown || c.Bitmap == nil {
		return
	}
	x := float64(c.PositionX - c.HotspotX)
	y := float64(c.PositionY - c.HotspotY)
	r.surface.Draw(c.Bitmap, r.tf.Rect(x, y, float64(c.Width), float64(c.Height)), true)
}

// trim drops frames older than one second and publishes the count.
func (r *Renderer) trim(now time.Time) {
	cut := now.Add(-time.Second)
	i := 0
	for i < len(r.window) && !r.window[i].After(cut) {
		i++
	}
	r.window = r.window[i:]
	r.fps.Store(int64(len(r.window)))
}

// FPS returns the number of genuinely new frames drawn in the last second.
func (r *Renderer) FPS() int {
	r.trim(r.clk.Now())
	return int(r.fps.Load())
}

// Stats returns a snapshot of the counters. Safe from any goroutine.
func (r *Renderer) Stats() Stats {
	return Stats{
		FramesRendered: r.rendered.Load(),
		FramesDrawn:    r.drawn.Load(),
		FPS:            int(r.fps.Load()),
		RemoteW:        r.remoteW,
		RemoteH:        r.remoteH,
		Mode:           r.mode,
	}
}

// Close releases the surface. Idempotent.
func (r *Renderer) Close() error {
	if r.released {
		return nil
	}
	r.released = true
	if r.surface != nil {
		return r.surface.Release()
	}
	return nil
}
