package session

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"deskbridge/internal/clock"
	"deskbridge/internal/domain"
	"deskbridge/internal/media/audio"
	"deskbridge/internal/media/video"
	"deskbridge/internal/relay"
	"deskbridge/internal/render"
)

const (
	DefaultConnectTimeout   = 15 * time.Second
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultVersion          = "1.2.3"
	eventBuffer             = 64
	actionBuffer            = 256
)

// Options configure a Controller.
type Options struct {
	// PeerID is the remote desktop to control.
	PeerID string
	// Password answers the login challenge. When empty, a remembered
	// credential is used.
	Password string
	// Remember stores the salted password hash after a successful login.
	Remember bool
	// Credentials caches salted hashes per peer; optional.
	Credentials domain.CredentialStore

	// Rendezvous is the rendezvous server as host[:port] or a ws(s):// URL.
	Rendezvous string
	Endpoints  relay.Endpoints
	LicenceKey string
	// ServerKey, when set, authenticates the peer's signing key announced
	// by the rendezvous server, which then authenticates the peer identity.
	ServerKey *domain.SigningPublic
	Dialer    domain.Dialer

	MyID    string
	MyName  string
	Version string

	// Video and Audio carry the host capabilities; callbacks are set by the
	// controller.
	Video     video.Options
	Audio     audio.Options
	Surface   domain.Surface
	ScaleMode render.ScaleMode
	// FinalFrame, when set, receives the last drawn frame as PNG during
	// teardown, however the session ends. Nothing is written if no frame
	// was drawn or the surface cannot encode PNG.
	FinalFrame io.Writer

	Clock            clock.Clock
	TickInterval     time.Duration
	MoveInterval     time.Duration
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	Log              *logrus.Entry

	// OnGestureRequired is called on the session goroutine when playback
	// start is blocked; EventGestureRequired is also emitted.
	OnGestureRequired func()
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Endpoints == (relay.Endpoints{}) {
		o.Endpoints = relay.DefaultEndpoints()
	}
	if o.TickInterval <= 0 {
		o.TickInterval = o.Video.Config.FrameInterval
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second / video.DefaultFrameRate
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.Version == "" {
		o.Version = DefaultVersion
	}
	if o.MyID == "" {
		o.MyID = "deskbridge"
	}
	if o.MyName == "" {
		o.MyName = o.MyID
	}
	if o.Log == nil {
		o.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return o
}

// AdvertisedCodecs lists the video codecs to offer the peer: every codec the
// hardware backend supports, in preference order, then the software fallback.
func AdvertisedCodecs(hw domain.VideoBackend) []domain.Codec {
	var out []domain.Codec
	fallback := false
	for _, c := range domain.VideoCodecs {
		if hw != nil && hw.Supports(c) {
			out = append(out, c)
			if c == video.FallbackCodec {
				fallback = true
			}
		}
	}
	if !fallback {
		out = append(out, video.FallbackCodec)
	}
	return out
}
