package relay

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultRendezvousPort = 21116
	DefaultRelayPort      = 21117
	DefaultPortOffset     = 2
)

var (
	ErrNoServer  = errors.New("relay: no server address")
	ErrPortRange = errors.New("relay: port out of range")
)

// Endpoints maps announced server addresses to WebSocket URLs.
type Endpoints struct {
	// Secure selects wss:// for derived URLs.
	Secure         bool
	RendezvousPort int
	RelayPort      int
	PortOffset     int
}

// DefaultEndpoints returns the standard port layout over plain ws://.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		RendezvousPort: DefaultRendezvousPort,
		RelayPort:      DefaultRelayPort,
		PortOffset:     DefaultPortOffset,
	}
}

// Rendezvous returns the WebSocket URL of the rendezvous server.
func (e Endpoints) Rendezvous(server string) (string, error) {
	return e.derive(server, e.RendezvousPort)
}

// Relay returns the WebSocket URL for a relay announced in a RelayResponse.
// An empty announcement falls back to the rendezvous host on the relay port.
func (e Endpoints) Relay(announced, rendezvousServer string) (string, error) {
	if strings.TrimSpace(announced) == "" {
		host, err := Host(rendezvousServer)
		if err != nil {
			return "", err
		}
		announced = host
	}
	return e.derive(announced, e.RelayPort)
}

// Host returns the bare host of a server address, scheme and port removed.
func Host(server string) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", ErrNoServer
	}
	if hasScheme(server) {
		u, err := url.Parse(server)
		if err != nil {
			return "", fmt.Errorf("relay: parse %q: %w", server, err)
		}
		return u.Hostname(), nil
	}
	host, _, err := splitHostPort(server)
	return host, err
}

func (e Endpoints) derive(server string, defaultPort int) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", ErrNoServer
	}
	if hasScheme(server) {
		return server, nil
	}
	host, port, err := splitHostPort(server)
	if err != nil {
		return "", err
	}
	if port == 0 {
		port = defaultPort
	}
	ws := port + e.PortOffset
	if ws <= 0 || ws > 65535 {
		return "", fmt.Errorf("%w: %d%+d", ErrPortRange, port, e.PortOffset)
	}
	scheme := "ws"
	if e.Secure {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: net.JoinHostPort(host, strconv.Itoa(ws))}
	return u.String(), nil
}

func hasScheme(s string) bool {
	return strings.HasPrefix(s, "ws://") || strings.HasPrefix(s, "wss://")
}

// splitHostPort accepts "host", "host:port", "[v6]:port" and a bare IPv6
// literal. A missing port is returned as 0.
func splitHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		if strings.Count(s, ":") > 1 || !strings.Contains(s, ":") {
			return strings.Trim(s, "[]"), 0, nil
		}
		return "", 0, fmt.Errorf("relay: address %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("relay: address %q: invalid port", s)
	}
	return host, port, nil
}
