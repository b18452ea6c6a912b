package input

import (
	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/wire"
)

var buttonBits = map[domain.MouseButton]int32{
	domain.ButtonLeft:    wire.MouseButtonLeft,
	domain.ButtonRight:   wire.MouseButtonRight,
	domain.ButtonMiddle:  wire.MouseButtonWheel,
	domain.ButtonBack:    wire.MouseButtonBack,
	domain.ButtonForward: wire.MouseButtonForward,
}

// MouseMask packs an event type and button the way the peer expects.
func MouseMask(eventType int32, button domain.MouseButton) int32 {
	return eventType | buttonBits[button]<<wire.MouseButtonShift
}

// Encode converts an input event into its wire message.
func Encode(ev domain.InputEvent) *wire.Message {
	mods := modifierKeys(ev.Modifiers)
	switch ev.Kind {
	case domain.InputPointerMove:
		return &wire.Message{MouseEvent: &wire.MouseEvent{
			Mask:      wire.MouseTypeMove,
			X:         ev.X,
			Y:         ev.Y,
			Modifiers: mods,
		}}
	case domain.InputPointerButton:
		t := int32(wire.MouseTypeUp)
		if ev.Pressed {
			t = wire.MouseTypeDown
		}
		return &wire.Message{MouseEvent: &wire.MouseEvent{
			Mask:      MouseMask(t, ev.Button),
			X:         ev.X,
			Y:         ev.Y,
			Modifiers: mods,
		}}
	case domain.InputWheel:
		me := &wire.MouseEvent{Mask: wire.MouseTypeWheel, Modifiers: mods}
		if ev.Axis == domain.WheelHorizontal {
			me.X = ev.Direction
		} else {
			me.Y = ev.Direction
		}
		return &wire.Message{MouseEvent: me}
	case domain.InputKey:
		ke := &wire.KeyEvent{Down: ev.Pressed, Modifiers: mods}
		if ev.ControlKey != wire.KeyUnknown {
			ke.ControlKey = ev.ControlKey
		} else {
			ke.Chr = uint32(ev.Char)
		}
		return &wire.Message{KeyEvent: ke}
	}
	return nil
}
