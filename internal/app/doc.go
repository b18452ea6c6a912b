// Package app wires application dependencies for the CLI.
//
// It builds the credential cache, the WebSocket dialer, server endpoints and
// media options from a loaded config.Config, exposing them via the Wire
// struct so commands can open sessions without repeating the plumbing.
package app
