package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"deskbridge/internal/clock"
	"deskbridge/internal/config"
	"deskbridge/internal/crypto"
	"deskbridge/internal/domain"
	"deskbridge/internal/media/audio"
	"deskbridge/internal/media/video"
	"deskbridge/internal/relay"
	"deskbridge/internal/render"
	"deskbridge/internal/services/session"
	"deskbridge/internal/store"
	"deskbridge/internal/transport"
)

var ErrNoSettings = errors.New("app: no settings")

// Wire bundles the stores, dialer and media wiring shared by sessions.
type Wire struct {
	Settings    *config.Config
	Credentials *store.CredentialFileStore
	Dialer      domain.Dialer
	Endpoints   relay.Endpoints
	ServerKey   *domain.SigningPublic
	ScaleMode   render.ScaleMode
	Clock       clock.Clock
	Log         *logrus.Entry
}

// Request names the peer a session connects to.
type Request struct {
	PeerID   string
	Password string
	Remember bool
	// FinalFrame receives the last drawn frame as PNG when the session ends.
	FinalFrame io.Writer
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	s := cfg.Settings
	if s == nil {
		return nil, ErrNoSettings
	}
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	mode, err := render.ParseScaleMode(s.Media.ScaleMode)
	if err != nil {
		return nil, err
	}

	var serverKey *domain.SigningPublic
	if s.Server.PublicKey != "" {
		k, err := crypto.DecodeKey32(s.Server.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("app: server key: %w", err)
		}
		sk := domain.SigningPublic(k)
		serverKey = &sk
	}

	ep := relay.DefaultEndpoints()
	ep.Secure = s.Server.Secure
	ep.PortOffset = s.Server.PortOffset

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &transport.WSDialer{Options: transport.Options{
			HandshakeTimeout: s.Server.Timeout,
			Log:              log.WithField("component", "transport"),
		}}
	}

	return &Wire{
		Settings:    s,
		Credentials: store.NewCredentialFileStore(s.Home, cfg.Passphrase),
		Dialer:      dialer,
		Endpoints:   ep,
		ServerKey:   serverKey,
		ScaleMode:   mode,
		Clock:       clk,
		Log:         log,
	}, nil
}

// SessionOptions builds the options for one headless session: video plays
// into an in-memory buffer, audio into an in-memory sink and frames onto an
// image surface.
func (w *Wire) SessionOptions(req Request) session.Options {
	s := w.Settings
	clk := w.Clock
	return session.Options{
		PeerID:      req.PeerID,
		Password:    req.Password,
		Remember:    req.Remember,
		Credentials: w.Credentials,
		Rendezvous:  s.Server.Rendezvous,
		Endpoints:   w.Endpoints,
		LicenceKey:  s.Server.LicenceKey,
		ServerKey:   w.ServerKey,
		Dialer:      w.Dialer,
		MyID:        s.MyID,
		MyName:      s.MyName,
		Video: video.Options{
			NewBuffer: func() domain.MediaBuffer { return video.NewMemoryBuffer(clk) },
			Config: video.Config{
				SmallLag:      s.Media.SmallLag,
				LargeLag:      s.Media.LargeLag,
				CatchUpRate:   s.Media.CatchUpRate,
				FrameInterval: s.FrameInterval(),
			},
		},
		Audio: audio.Options{
			Sink:    audio.NewMemorySink(clk),
			Epsilon: s.Media.AudioEpsilon,
		},
		Surface:        render.NewImageSurface(s.Media.Width, s.Media.Height),
		ScaleMode:      w.ScaleMode,
		Clock:          clk,
		MoveInterval:   s.Input.MoveInterval,
		ConnectTimeout: s.Server.Timeout,
		FinalFrame:     req.FinalFrame,
		Log:            w.Log,
	}
}

// Open creates a session controller for req. The caller runs and closes it.
func (w *Wire) Open(req Request) (*session.Controller, error) {
	return session.New(w.SessionOptions(req))
}
