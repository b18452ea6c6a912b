package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"deskbridge/internal/domain"
)

// ImageSurface is an in-memory RGBA drawing surface.
type ImageSurface struct {
	img      *image.RGBA
	released bool
}

var _ domain.Surface = (*ImageSurface)(nil)

// NewImageSurface returns a black surface of the given size.
func NewImageSurface(w, h int) *ImageSurface {
	s := &ImageSurface{img: image.NewRGBA(image.Rect(0, 0, w, h))}
	s.Clear()
	return s
}

func (s *ImageSurface) Size() (int, int) {
	if s.img == nil {
		return 0, 0
	}
	return s.img.Rect.Dx(), s.img.Rect.Dy()
}

// Resize replaces the backing image.
func (s *ImageSurface) Resize(w, h int) {
	s.img = image.NewRGBA(image.Rect(0, 0, w, h))
	s.Clear()
}

func (s *ImageSurface) Clear() {
	if s.img == nil {
		return
	}
	draw.Draw(s.img, s.img.Rect, image.NewUniform(color.Black), image.Point{}, draw.Src)
}

// Draw scales src into dst with bilinear filtering, clipped to the surface.
func (s *ImageSurface) Draw(src image.Image, dst image.Rectangle, over bool) {
	if s.img == nil || src == nil || dst.Empty() {
		return
	}
	op := draw.Src
	if over {
		op = draw.Over
	}
	sb := src.Bounds()
	if sb.Dx() == dst.Dx() && sb.Dy() == dst.Dy() {
		draw.Draw(s.img, dst, src, sb.Min, op)
		return
	}
	draw.ApproxBiLinear.Scale(s.img, dst, src, sb, op, nil)
}

// Release drops the backing image.
func (s *ImageSurface) Release() error {
	s.img = nil
	s.released = true
	return nil
}

// Image returns the current contents.
func (s *ImageSurface) Image() *image.RGBA { return s.img }

// WritePNG encodes the surface as PNG.
func (s *ImageSurface) WritePNG(w io.Writer) error {
	if s.img == nil {
		return fmt.Errorf("render: surface released")
	}
	return png.Encode(w, s.img)
}
