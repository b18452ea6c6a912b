package session

import (
	"errors"
	"fmt"

	"deskbridge/internal/domain"
)

var (
	ErrAlreadyRunning  = errors.New("session: already running")
	ErrClosed          = errors.New("session: closed")
	ErrNoPeer          = errors.New("session: no peer id")
	ErrNoDialer        = errors.New("session: no dialer")
	ErrPunchHole       = errors.New("session: rendezvous refused")
	ErrRelayRefused    = errors.New("session: relay refused")
	ErrMissingIdentity = errors.New("session: peer sent no signed identity")
	ErrNoPassword      = errors.New("session: no password and no remembered credential")
	ErrLoginRejected   = errors.New("session: login rejected")
	ErrRemoteClosed    = errors.New("session: connection closed by remote")
	ErrSendFailed      = errors.New("session: send failed")
	ErrTimeout         = errors.New("session: timed out before streaming")
	ErrPeerClosed      = errors.New("session: closed by peer")
	ErrNoSnapshot      = errors.New("session: surface cannot be snapshotted")
)

// Kind classifies a session failure.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindCrypto
	KindProtocol
	KindAuth
	KindTimeout
	KindPeerClosed
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindCrypto:
		return "crypto"
	case KindProtocol:
		return "protocol"
	case KindAuth:
		return "auth"
	case KindTimeout:
		return "timeout"
	case KindPeerClosed:
		return "peer-closed"
	}
	return "unknown"
}

// Counters is the state attached to a failure for diagnostics.
type Counters struct {
	Sent     uint64
	Received uint64
	BytesIn  uint64
	BytesOut uint64
	Decoded  uint64
	Dropped  uint64
}

// Error is the terminal outcome of a session.
type Error struct {
	Kind     Kind
	Phase    domain.SessionPhase
	Counters Counters
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("session %s failure during %s: %v", e.Kind, e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of a session error, or 0.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
