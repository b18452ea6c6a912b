// Package clock abstracts time for testability. Production code injects
// Real(); tests inject Fake() and call Advance to move time.
package clock
