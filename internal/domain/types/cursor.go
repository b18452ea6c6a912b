package types

import "image"

// CursorState is the remote cursor as composited by the renderer. Bitmap is
// replaced wholesale on a shape update; position moves independently.
type CursorState struct {
	Bitmap    *image.RGBA
	Width     int
	Height    int
	HotspotX  int
	HotspotY  int
	PositionX int
	PositionY int
}
