// Package commands defines the deskbridge CLI and wires dependencies for subcommands.
//
// Commands
//
//   - connect      Open a session to a peer and stream until interrupted
//   - peers        List peers with a remembered password
//   - forget       Drop a remembered password
//   - hash         Compute a login digest for a salt and challenge
//   - fingerprint  Print a public key fingerprint
//   - codecs       Print the video codecs offered to peers
//   - env          Describe the recognised environment variables
//
// # Implementation
//
// The root command loads settings from the environment (optionally seeded
// from a .env file), configures logging and builds the dependency graph
// (credential cache, WebSocket dialer, endpoints) before any subcommand runs.
package commands
