package session

import "deskbridge/internal/domain"

// EventKind tags an Event.
type EventKind int

const (
	// EventPhase reports a phase transition.
	EventPhase EventKind = iota
	// EventPeerInfo carries the peer description after login.
	EventPeerInfo
	// EventDisplayChanged reports a new remote display size.
	EventDisplayChanged
	// EventGestureRequired asks the host for a user gesture before
	// playback can start; answer with ResumeAfterGesture.
	EventGestureRequired
	// EventDisconnected reports the relay link dropping while streaming.
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventPhase:
		return "phase"
	case EventPeerInfo:
		return "peer-info"
	case EventDisplayChanged:
		return "display-changed"
	case EventGestureRequired:
		return "gesture-required"
	case EventDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Event is delivered on Controller.Events.
type Event struct {
	Kind   EventKind
	Phase  domain.SessionPhase
	Peer   *domain.PeerInfo
	Width  int
	Height int
	Err    error
}
