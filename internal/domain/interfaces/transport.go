package interfaces

import (
	"context"

	domaintypes "deskbridge/internal/domain/types"
)

// Channel is one full-duplex, message-preserving link to a rendezvous or relay
// endpoint.
type Channel interface {
	// Connect blocks until the link is open or fails.
	Connect(ctx context.Context) error
	// Send delivers b if the channel is open and reports whether it was
	// written. It never queues.
	Send(b []byte) bool
	// Events yields open, message and close events in order. The channel is
	// closed after the final close event.
	Events() <-chan domaintypes.ChannelEvent
	State() domaintypes.ChannelState
	Close() error
}

// Dialer creates unconnected channels for an endpoint URL.
type Dialer interface {
	Dial(url string) Channel
}
