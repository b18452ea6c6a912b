package domain

import "errors"

// ErrPlaybackBlocked is returned by a media element or sink whose start was
// refused by host policy until a user gesture occurs. It is a recoverable
// state, not a failure.
var ErrPlaybackBlocked = errors.New("playback blocked until user gesture")
