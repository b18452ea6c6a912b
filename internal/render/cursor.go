package render

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/klauspost/compress/zstd"

	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/wire"
)

const maxCursorSide = 512

var (
	ErrCursorSize    = errors.New("render: cursor size out of range")
	ErrCursorPixels  = errors.New("render: cursor pixel data does not match size")
	ErrCursorUnknown = errors.New("render: cursor id not cached")
)

var (
	zstdOnce sync.Once
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func decoder() (*zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdDec, zstdErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(4*maxCursorSide*maxCursorSide))
	})
	return zstdDec, zstdErr
}

// DecodeCursor builds a cursor shape from a cursor_data message. Colors are
// zstd-compressed RGBA; data that is already exactly width*height*4 bytes is
// taken as raw.
func DecodeCursor(cd *wire.CursorData) (domain.CursorState, error) {
	var st domain.CursorState
	w, h := int(cd.Width), int(cd.Height)
	if w <= 0 || h <= 0 || w > maxCursorSide || h > maxCursorSide {
		return st, fmt.Errorf("%w: %dx%d", ErrCursorSize, w, h)
	}
	want := w * h * 4
	pix := cd.Colors
	if len(pix) != want {
		dec, err := decoder()
		if err != nil {
			return st, fmt.Errorf("render: zstd: %w", err)
		}
		pix, err = dec.DecodeAll(cd.Colors, make([]byte, 0, want))
		if err != nil {
			return st, fmt.Errorf("render: decompress cursor: %w", err)
		}
		if len(pix) != want {
			return st, fmt.Errorf("%w: got %d bytes, want %d", ErrCursorPixels, len(pix), want)
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, pix)
	st.Bitmap = img
	st.Width, st.Height = w, h
	st.HotspotX, st.HotspotY = int(cd.HotX), int(cd.HotY)
	return st, nil
}

// CursorCache keeps decoded shapes by id so cursor_id can reselect them.
type CursorCache struct {
	shapes map[uint64]domain.CursorState
}

// NewCursorCache returns an empty cache.
func NewCursorCache() *CursorCache {
	return &CursorCache{shapes: make(map[uint64]domain.CursorState)}
}

// Put stores a shape.
func (c *CursorCache) Put(id uint64, st domain.CursorState) { c.shapes[id] = st }

// Get returns a cached shape.
func (c *CursorCache) Get(id uint64) (domain.CursorState, bool) {
	st, ok := c.shapes[id]
	return st, ok
}

// Len returns the number of cached shapes.
func (c *CursorCache) Len() int { return len(c.shapes) }
