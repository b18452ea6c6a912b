package types

// SessionPhase is the single active state of a remote-control session.
type SessionPhase int

const (
	PhaseDisconnected SessionPhase = iota
	PhaseConnectingRendezvous
	PhaseConnectingRelay
	PhaseHandshakePending
	PhaseAuthenticating
	PhaseStreaming
	PhaseClosed
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseDisconnected:         "disconnected",
	PhaseConnectingRendezvous: "connecting-rendezvous",
	PhaseConnectingRelay:      "connecting-relay",
	PhaseHandshakePending:     "handshake-pending",
	PhaseAuthenticating:       "authenticating",
	PhaseStreaming:            "streaming",
	PhaseClosed:               "closed",
	PhaseFailed:               "failed",
}

// String returns the lower-case phase name.
func (p SessionPhase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further transitions are possible.
func (p SessionPhase) Terminal() bool { return p == PhaseClosed || p == PhaseFailed }
