package app

import (
	"github.com/sirupsen/logrus"

	"deskbridge/internal/clock"
	"deskbridge/internal/config"
	"deskbridge/internal/domain"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Settings   *config.Config // loaded environment settings
	Passphrase string         // protects the credential cache; empty uses a local key file
	Dialer     domain.Dialer  // optional; defaults to a WebSocket dialer
	Clock      clock.Clock    // optional; defaults to the wall clock
	Log        *logrus.Entry  // optional; defaults to the standard logger
}

// NewLogger builds a logrus logger from the log settings.
func NewLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetLevel(lvl)
	switch cfg.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}
