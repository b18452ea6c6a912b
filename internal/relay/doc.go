// Package relay derives the WebSocket endpoints of the rendezvous and relay
// servers the client talks to.
//
// Servers are configured and announced as "host" or "host:port" using their
// native TCP ports (21116 rendezvous, 21117 relay). The WebSocket listeners sit
// at a fixed offset above those ports, so "rs.example" maps to
// ws://rs.example:21118 and a relay announced as "rs.example:21117" maps to
// ws://rs.example:21119. Values that already carry a ws:// or wss:// scheme
// are used unchanged.
package relay
