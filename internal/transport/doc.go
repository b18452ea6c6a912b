// Package transport provides the two message-preserving links the client
// keeps: one to the rendezvous endpoint and one to the relay endpoint.
//
// WSChannel speaks binary WebSocket frames through gorilla/websocket. Pipe
// channels connect two in-process ends and stand in for a peer in tests and
// local tooling.
//
// Both follow the same lifecycle, Idle → Connecting → Open → Closed, and both
// deliver events in arrival order on a buffered channel that is closed after
// the final Close event. Send never queues: when the link is not open the
// message is dropped and Send returns false.
package transport
