// Package domain defines core data models and interfaces shared across the
// client. It contains plain types (keys, media chunks, input events, session
// phases) and contracts (channels, media backends, stores) only.
package domain
