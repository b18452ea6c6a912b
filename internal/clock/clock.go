package clock

import "time"

// Clock abstracts time for the media and input paths so tests can drive
// health checks, throttling and frame-rate windows deterministically.
type Clock interface {
	Now() time.Time
	// NewTicker returns a ticker delivering ticks on C. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C (capacity 1; late ticks are dropped).
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns off the ticker. It does not close C.
func (t *Ticker) Stop() { t.stop() }
