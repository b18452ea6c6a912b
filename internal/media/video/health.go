package video

import "time"

// Config tunes the pipeline. Zero values select the defaults.
type Config struct {
	// SmallLag is the lag above which playback is sped up.
	SmallLag time.Duration
	// LargeLag is the lag above which playback hard-seeks to the live edge.
	LargeLag time.Duration
	// CatchUpRate is the playback rate used between the two thresholds.
	CatchUpRate float64
	// FrameInterval spaces synthetic timestamps and muxed sample durations.
	FrameInterval time.Duration
}

const (
	DefaultSmallLag    = 250 * time.Millisecond
	DefaultLargeLag    = 1500 * time.Millisecond
	DefaultCatchUpRate = 1.1
	DefaultFrameRate   = 30
)

func (c Config) withDefaults() Config {
	if c.SmallLag <= 0 {
		c.SmallLag = DefaultSmallLag
	}
	if c.LargeLag <= c.SmallLag {
		c.LargeLag = DefaultLargeLag
		if c.LargeLag <= c.SmallLag {
			c.LargeLag = 6 * c.SmallLag
		}
	}
	if c.CatchUpRate <= 1 {
		c.CatchUpRate = DefaultCatchUpRate
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = time.Second / DefaultFrameRate
	}
	return c
}

// Correction is the outcome of one health check.
type Correction struct {
	// Seek requests a hard seek to the live edge.
	Seek bool
	// Rate is the playback rate to apply.
	Rate float64
}

// Check decides how to correct a playback lag.
func (c Config) Check(lag time.Duration) Correction {
	c = c.withDefaults()
	switch {
	case lag > c.LargeLag:
		return Correction{Seek: true, Rate: 1}
	case lag > c.SmallLag:
		return Correction{Rate: c.CatchUpRate}
	default:
		return Correction{Rate: 1}
	}
}
