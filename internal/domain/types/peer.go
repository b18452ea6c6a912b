package types

// Display is one monitor advertised by the peer.
type Display struct {
	X, Y          int
	Width, Height int
	Name          string
}

// PeerInfo is returned by the peer after a successful login.
type PeerInfo struct {
	Username       string
	Hostname       string
	Platform       string
	Version        string
	Displays       []Display
	CurrentDisplay int
}

// Active returns the currently selected display, if any.
func (p PeerInfo) Active() (Display, bool) {
	if p.CurrentDisplay < 0 || p.CurrentDisplay >= len(p.Displays) {
		return Display{}, false
	}
	return p.Displays[p.CurrentDisplay], true
}
