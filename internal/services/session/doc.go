// Package session drives one remote-control session.
//
// A Controller connects to the rendezvous server, follows the relay it is
// given, runs the key exchange and login with the peer, and then routes the
// encrypted stream: video and audio into the media pipelines, cursor updates
// and decoded frames into the renderer, and local input back to the peer.
//
// All component state is owned by the goroutine running Controller.Run.
// Public methods that touch it post work onto that goroutine.
package session
