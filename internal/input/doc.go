// Package input translates local pointer, wheel and keyboard events into peer
// input messages.
//
// Pointer coordinates are mapped from surface space into remote display space
// through a Mapper (the renderer's transform); anything that lands outside the
// remote display is suppressed. Pointer moves are throttled to one per
// interval. Keys are sent either as a named control key or as a printable
// character. A second down for a key already held is treated as auto-repeat
// and dropped.
//
// Nothing is queued: while a local text field has focus or capture is
// disabled every event is dropped, and send failures are ignored.
package input
