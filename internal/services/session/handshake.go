package session

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/secure"
	"deskbridge/internal/protocol/wire"
)

// peerVerifier decides how the peer's signed identity is checked. With a
// server key, the rendezvous server must vouch for the peer's signing key.
func (c *Controller) peerVerifier(signedPK []byte) (secure.Verifier, error) {
	if c.opts.ServerKey == nil {
		return secure.StructuralVerifier{}, nil
	}
	if len(signedPK) == 0 {
		return nil, fmt.Errorf("%w: rendezvous server sent no peer key", ErrMissingIdentity)
	}
	id, key, err := secure.OpenSignedKey(*c.opts.ServerKey, signedPK)
	if err != nil {
		return nil, fmt.Errorf("peer key from rendezvous server: %w", err)
	}
	if id != c.opts.PeerID {
		return nil, fmt.Errorf("%w: server vouched for %q", secure.ErrIdentityMismatch, id)
	}
	return secure.Ed25519Verifier{Key: domain.SigningPublic(key)}, nil
}

// onHandshake expects the peer's signed identity as the first relay message.
func (c *Controller) onHandshake(msg *wire.Message) error {
	if msg.SignedID == nil {
		return c.fail(KindCrypto, fmt.Errorf("%w: got %s", ErrMissingIdentity, msg.Kind()))
	}
	id, err := secure.ParsePeerIdentity(msg.SignedID.ID)
	if err != nil {
		return c.fail(KindCrypto, err)
	}
	if err := c.verifier.Verify(id); err != nil {
		return c.fail(KindCrypto, err)
	}
	if id.PeerID != c.opts.PeerID {
		return c.fail(KindCrypto, fmt.Errorf("%w: %q", secure.ErrIdentityMismatch, id.PeerID))
	}

	kx, err := c.sess.BuildKeyExchange(id.PeerPublicKey)
	if err != nil {
		return c.fail(KindCrypto, err)
	}
	reply := &wire.Message{PublicKey: &wire.PublicKey{
		AsymmetricValue: kx.OurPublicKey.Slice(),
		SymmetricValue:  kx.SealedSymmetricKey,
	}}
	if !c.send(reply) {
		return c.fail(KindTransport, fmt.Errorf("%w: public key", ErrSendFailed))
	}
	c.encrypted = true
	c.setPhase(domain.PhaseAuthenticating)
	return nil
}

func (c *Controller) onAuthenticating(msg *wire.Message) error {
	switch {
	case msg.Hash != nil:
		return c.login(msg.Hash)
	case msg.LoginResponse != nil:
		return c.onLoginResponse(msg.LoginResponse)
	case msg.TestDelay != nil:
		c.echoDelay(msg.TestDelay)
	case msg.Misc != nil && msg.Misc.CloseReason != nil:
		return c.fail(KindPeerClosed, fmt.Errorf("%w: %s", ErrPeerClosed, *msg.Misc.CloseReason))
	default:
		c.logger().WithField("message", msg.Kind()).Debug("ignoring message before login")
	}
	return nil
}

// saltedPassword returns the first-stage hash, from the configured password or
// from the credential cache.
func (c *Controller) saltedPassword(salt string) ([]byte, bool, error) {
	if c.opts.Password != "" {
		h := secure.SaltedHash(c.opts.Password, salt)
		return h[:], false, nil
	}
	if c.opts.Credentials != nil {
		salted, ok, err := c.opts.Credentials.LoadCredential(c.opts.PeerID)
		if err != nil {
			c.logger().WithError(err).Warn("remembered credential unreadable")
		} else if ok {
			return salted, true, nil
		}
	}
	return nil, false, ErrNoPassword
}

func (c *Controller) login(h *wire.Hash) error {
	salted, cached, err := c.saltedPassword(h.Salt)
	if err != nil {
		return c.fail(KindAuth, err)
	}
	c.salted, c.cached = salted, cached
	digest := secure.ChallengeHash(salted, h.Challenge)

	req := &wire.Message{LoginRequest: &wire.LoginRequest{
		Username: c.opts.PeerID,
		Password: digest[:],
		MyID:     c.opts.MyID,
		MyName:   c.opts.MyName,
		Version:  c.opts.Version,
	}}
	if !c.send(req) {
		if c.fatal != nil {
			return c.fatal
		}
		return c.fail(KindTransport, fmt.Errorf("%w: login request", ErrSendFailed))
	}
	c.logger().WithField("cached", cached).Debug("login sent")
	return nil
}

func (c *Controller) onLoginResponse(lr *wire.LoginResponse) error {
	if lr.Error != "" {
		if c.cached && c.opts.Credentials != nil && strings.Contains(strings.ToLower(lr.Error), "password") {
			if err := c.opts.Credentials.ForgetCredential(c.opts.PeerID); err != nil {
				c.logger().WithError(err).Warn("forgetting stale credential")
			}
		}
		return c.fail(KindAuth, fmt.Errorf("%w: %s", ErrLoginRejected, lr.Error))
	}
	if lr.PeerInfo == nil {
		return c.fail(KindProtocol, fmt.Errorf("%w: empty login response", ErrLoginRejected))
	}

	if c.opts.Remember && !c.cached && c.opts.Credentials != nil {
		if err := c.opts.Credentials.SaveCredential(c.opts.PeerID, c.salted); err != nil {
			c.logger().WithError(err).Warn("remembering credential")
		}
	}

	info := peerInfo(lr.PeerInfo)
	c.peer = &info
	if d, ok := info.Active(); ok {
		c.renderer.SetRemoteSize(d.Width, d.Height)
	}
	c.input.SetEnabled(true)
	c.setPhase(domain.PhaseStreaming)
	c.logger().WithFields(logrus.Fields{
		"hostname": info.Hostname,
		"platform": info.Platform,
		"displays": len(info.Displays),
	}).Info("logged in")
	p := info
	c.emit(Event{Kind: EventPeerInfo, Peer: &p})
	return nil
}

func peerInfo(pi *wire.PeerInfo) domain.PeerInfo {
	out := domain.PeerInfo{
		Username:       pi.Username,
		Hostname:       pi.Hostname,
		Platform:       pi.Platform,
		Version:        pi.Version,
		CurrentDisplay: int(pi.CurrentDisplay),
	}
	for _, d := range pi.Displays {
		out.Displays = append(out.Displays, domain.Display{
			X:      int(d.X),
			Y:      int(d.Y),
			Width:  int(d.Width),
			Height: int(d.Height),
			Name:   d.Name,
		})
	}
	return out
}
