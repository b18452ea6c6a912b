package types

// InputKind tags the variant carried by an InputEvent.
type InputKind int

const (
	InputPointerMove InputKind = iota
	InputPointerButton
	InputWheel
	InputKey
)

// Modifiers is a bit set of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModMeta
)

// Has reports whether all bits in m2 are set.
func (m Modifiers) Has(m2 Modifiers) bool { return m&m2 == m2 }

// MouseButton identifies a pointer button.
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonRight
	ButtonMiddle
	ButtonBack
	ButtonForward
)

// WheelAxis identifies the scroll axis.
type WheelAxis int

const (
	WheelVertical WheelAxis = iota
	WheelHorizontal
)

// InputEvent is a protocol-level input event in remote display coordinates.
// It is constructed and sent immediately, never stored.
type InputEvent struct {
	Kind      InputKind
	Modifiers Modifiers

	// Pointer events.
	X, Y   int32
	Button MouseButton
	// Pressed is shared by button and key events.
	Pressed bool

	// Wheel events; Direction is +1 or -1.
	Axis      WheelAxis
	Direction int32

	// Key events: exactly one of ControlKey or Char is set.
	ControlKey int32
	Char       rune
}
