package domain

import (
	"image"

	interfaces "deskbridge/internal/domain/interfaces"
	types "deskbridge/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	BoxPublic          = types.BoxPublic
	BoxSecret          = types.BoxSecret
	SymmetricKey       = types.SymmetricKey
	SigningPublic      = types.SigningPublic
	EphemeralKeyPair   = types.EphemeralKeyPair
	SignedPeerIdentity = types.SignedPeerIdentity
	SessionPhase       = types.SessionPhase
	Codec              = types.Codec
	EncodedMediaChunk  = types.EncodedMediaChunk
	DecodedFrame       = types.DecodedFrame
	AudioFormat        = types.AudioFormat
	CursorState        = types.CursorState
	InputEvent         = types.InputEvent
	InputKind          = types.InputKind
	Modifiers          = types.Modifiers
	MouseButton        = types.MouseButton
	WheelAxis          = types.WheelAxis
	Display            = types.Display
	PeerInfo           = types.PeerInfo
	ChannelState       = types.ChannelState
	ChannelEvent       = types.ChannelEvent
	ChannelEventKind   = types.ChannelEventKind
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Channel         = interfaces.Channel
	Dialer          = interfaces.Dialer
	VideoBackend    = interfaces.VideoBackend
	VideoDecoder    = interfaces.VideoDecoder
	MediaBuffer     = interfaces.MediaBuffer
	AudioBackend    = interfaces.AudioBackend
	AudioDecoder    = interfaces.AudioDecoder
	AudioSink       = interfaces.AudioSink
	Surface         = interfaces.Surface
	CredentialStore = interfaces.CredentialStore
)

const SignatureSize = types.SignatureSize

const (
	PhaseDisconnected         = types.PhaseDisconnected
	PhaseConnectingRendezvous = types.PhaseConnectingRendezvous
	PhaseConnectingRelay      = types.PhaseConnectingRelay
	PhaseHandshakePending     = types.PhaseHandshakePending
	PhaseAuthenticating       = types.PhaseAuthenticating
	PhaseStreaming            = types.PhaseStreaming
	PhaseClosed               = types.PhaseClosed
	PhaseFailed               = types.PhaseFailed
)

const (
	CodecUnknown = types.CodecUnknown
	CodecH264    = types.CodecH264
	CodecH265    = types.CodecH265
	CodecVP8     = types.CodecVP8
	CodecVP9     = types.CodecVP9
	CodecAV1     = types.CodecAV1
	CodecOpus    = types.CodecOpus
	CodecPCM     = types.CodecPCM
)

const (
	InputPointerMove   = types.InputPointerMove
	InputPointerButton = types.InputPointerButton
	InputWheel         = types.InputWheel
	InputKey           = types.InputKey
)

const (
	ModShift   = types.ModShift
	ModControl = types.ModControl
	ModAlt     = types.ModAlt
	ModMeta    = types.ModMeta
)

const (
	ButtonLeft    = types.ButtonLeft
	ButtonRight   = types.ButtonRight
	ButtonMiddle  = types.ButtonMiddle
	ButtonBack    = types.ButtonBack
	ButtonForward = types.ButtonForward
)

const (
	WheelVertical   = types.WheelVertical
	WheelHorizontal = types.WheelHorizontal
)

const (
	ChannelIdle       = types.ChannelIdle
	ChannelConnecting = types.ChannelConnecting
	ChannelOpen       = types.ChannelOpen
	ChannelClosed     = types.ChannelClosed
)

const (
	ChannelEventOpen    = types.ChannelEventOpen
	ChannelEventMessage = types.ChannelEventMessage
	ChannelEventClose   = types.ChannelEventClose
)

// VideoCodecs lists the video codecs in the peer's preference order.
var VideoCodecs = types.VideoCodecs

// NewDecodedFrame builds a frame whose Release invokes release (may be nil).
func NewDecodedFrame(img image.Image, w, h int, genuinelyNew bool, release func()) *DecodedFrame {
	return types.NewDecodedFrame(img, w, h, genuinelyNew, release)
}

// ParseCodec maps a codec name to a Codec.
func ParseCodec(s string) Codec { return types.ParseCodec(s) }
