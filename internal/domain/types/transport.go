package types

// ChannelState is the lifecycle of one transport link.
type ChannelState int32

const (
	ChannelIdle ChannelState = iota
	ChannelConnecting
	ChannelOpen
	ChannelClosed
)

// String returns the lower-case state name.
func (s ChannelState) String() string {
	switch s {
	case ChannelIdle:
		return "idle"
	case ChannelConnecting:
		return "connecting"
	case ChannelOpen:
		return "open"
	case ChannelClosed:
		return "closed"
	}
	return "unknown"
}

// ChannelEventKind tags a ChannelEvent.
type ChannelEventKind int

const (
	ChannelEventOpen ChannelEventKind = iota
	ChannelEventMessage
	ChannelEventClose
)

// ChannelEvent is delivered in arrival order on a channel's event stream.
// Err is set on a close caused by a transport failure.
type ChannelEvent struct {
	Kind ChannelEventKind
	Data []byte
	Err  error
}
