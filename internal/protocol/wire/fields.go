package wire

import "google.golang.org/protobuf/encoding/protowire"

// RendezvousMessage union members.
const (
	rdvPunchHoleRequest  protowire.Number = 8
	rdvPunchHoleResponse protowire.Number = 11
	rdvRequestRelay      protowire.Number = 18
	rdvRelayResponse     protowire.Number = 19
)

// Message union members.
const (
	msgSignedID       protowire.Number = 3
	msgPublicKey      protowire.Number = 4
	msgTestDelay      protowire.Number = 5
	msgVideoFrame     protowire.Number = 6
	msgLoginRequest   protowire.Number = 7
	msgLoginResponse  protowire.Number = 8
	msgHash           protowire.Number = 9
	msgMouseEvent     protowire.Number = 10
	msgAudioFrame     protowire.Number = 11
	msgCursorData     protowire.Number = 12
	msgCursorPosition protowire.Number = 13
	msgCursorID       protowire.Number = 14
	msgKeyEvent       protowire.Number = 15
	msgMisc           protowire.Number = 19
)

// VideoFrame union members, keyed by codec.
const (
	videoVP9s  protowire.Number = 6
	videoH264s protowire.Number = 10
	videoH265s protowire.Number = 11
	videoVP8s  protowire.Number = 12
	videoAV1s  protowire.Number = 13
	videoDisp  protowire.Number = 14
)

// Misc union members.
const (
	miscSwitchDisplay protowire.Number = 5
	miscAudioFormat   protowire.Number = 8
	miscCloseReason   protowire.Number = 9
	miscRefreshVideo  protowire.Number = 10
)

// NatType values.
const (
	NatUnknown    = 0
	NatAsymmetric = 1
	NatSymmetric  = 2
)

// ConnType values.
const (
	ConnDefault      = 0
	ConnFileTransfer = 1
	ConnPortForward  = 2
)

// PunchHoleResponse failure codes.
const (
	FailureIDNotExist      = 0
	FailureOffline         = 2
	FailureLicenseMismatch = 3
	FailureLicenseOveruse  = 4
)

// Mouse event types occupy the low three bits of the mask; the button sits
// above them.
const (
	MouseTypeMove  = 0
	MouseTypeDown  = 1
	MouseTypeUp    = 2
	MouseTypeWheel = 3

	MouseButtonLeft    = 0x01
	MouseButtonRight   = 0x02
	MouseButtonWheel   = 0x04
	MouseButtonBack    = 0x08
	MouseButtonForward = 0x10

	MouseButtonShift = 3
)

// ControlKey enumerates the named keys understood by the peer.
const (
	KeyUnknown     int32 = 0
	KeyAlt         int32 = 1
	KeyBackspace   int32 = 2
	KeyCapsLock    int32 = 3
	KeyControl     int32 = 4
	KeyDelete      int32 = 5
	KeyDownArrow   int32 = 6
	KeyEnd         int32 = 7
	KeyEscape      int32 = 8
	KeyF1          int32 = 9
	KeyF10         int32 = 10
	KeyF11         int32 = 11
	KeyF12         int32 = 12
	KeyF2          int32 = 13
	KeyF3          int32 = 14
	KeyF4          int32 = 15
	KeyF5          int32 = 16
	KeyF6          int32 = 17
	KeyF7          int32 = 18
	KeyF8          int32 = 19
	KeyF9          int32 = 20
	KeyHome        int32 = 21
	KeyLeftArrow   int32 = 22
	KeyMeta        int32 = 23
	KeyOption      int32 = 24
	KeyPageDown    int32 = 25
	KeyPageUp      int32 = 26
	KeyReturn      int32 = 27
	KeyRightArrow  int32 = 28
	KeyShift       int32 = 29
	KeySpace       int32 = 30
	KeyTab         int32 = 31
	KeyUpArrow     int32 = 32
	KeyNumpad0     int32 = 33
	KeyMenu        int32 = 45
	KeyPause       int32 = 46
	KeyInsert      int32 = 58
	KeyScroll      int32 = 62
	KeyNumLock     int32 = 63
	KeyNumpadEnter int32 = 72
)
