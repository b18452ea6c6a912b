package session

import (
	"context"
	"errors"
	"fmt"

	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/wire"
)

// loop is the session's event loop. It returns the terminal error, or nil
// when ctx was cancelled by Close.
func (c *Controller) loop(ctx context.Context) error {
	c.logger().WithField("codecs", AdvertisedCodecs(c.opts.Video.Hardware)).Info("starting session")
	tick := c.opts.Clock.NewTicker(c.opts.TickInterval)
	defer tick.Stop()
	limit := c.opts.Clock.NewTicker(c.opts.HandshakeTimeout)
	defer limit.Stop()
	deadline := limit.C

	if err := c.connectRendezvous(ctx); err != nil {
		return err
	}

	for {
		if c.fatal != nil {
			return c.fatal
		}
		var err error
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.rdvEv:
			if !ok {
				ev = domain.ChannelEvent{Kind: domain.ChannelEventClose}
			}
			err = c.onRendezvous(ctx, ev)
		case ev, ok := <-c.relayEv:
			if !ok {
				ev = domain.ChannelEvent{Kind: domain.ChannelEventClose}
			}
			err = c.onRelay(ev)
		case <-tick.C:
			c.tick()
		case fn := <-c.actions:
			fn()
		case <-deadline:
			limit.Stop()
			deadline = nil
			if c.Phase() != domain.PhaseStreaming {
				return c.fail(KindTimeout, fmt.Errorf("%w after %v", ErrTimeout, c.opts.HandshakeTimeout))
			}
		}
		if err != nil {
			return err
		}
	}
}

func (c *Controller) connect(ctx context.Context, ch domain.Channel) error {
	cctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()
	return ch.Connect(cctx)
}

func (c *Controller) connectRendezvous(ctx context.Context) error {
	c.setPhase(domain.PhaseConnectingRendezvous)
	url, err := c.opts.Endpoints.Rendezvous(c.opts.Rendezvous)
	if err != nil {
		return c.fail(KindTransport, err)
	}
	c.rdv = c.opts.Dialer.Dial(url)
	c.logger().WithField("url", url).Debug("dialling rendezvous")
	if err := c.connect(ctx, c.rdv); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return c.fail(KindTransport, fmt.Errorf("connect rendezvous: %w", err))
	}
	c.rdvEv = c.rdv.Events()

	req := &wire.RendezvousMessage{PunchHoleRequest: &wire.PunchHoleRequest{
		ID:         c.opts.PeerID,
		NatType:    wire.NatSymmetric,
		LicenceKey: c.opts.LicenceKey,
		ConnType:   wire.ConnDefault,
		Version:    c.opts.Version,
	}}
	if !c.rdv.Send(req.Marshal()) {
		return c.fail(KindTransport, fmt.Errorf("%w: punch hole request", ErrSendFailed))
	}
	return nil
}

func (c *Controller) onRendezvous(ctx context.Context, ev domain.ChannelEvent) error {
	switch ev.Kind {
	case domain.ChannelEventClose:
		c.rdvEv = nil
		if c.Phase() == domain.PhaseConnectingRendezvous {
			return c.fail(KindTransport, closeCause(ev.Err))
		}
		return nil
	case domain.ChannelEventMessage:
	default:
		return nil
	}
	if c.Phase() != domain.PhaseConnectingRendezvous {
		return nil
	}
	msg, err := wire.UnmarshalRendezvous(ev.Data)
	if err != nil {
		return c.fail(KindProtocol, fmt.Errorf("rendezvous message: %w", err))
	}
	switch {
	case msg.PunchHoleResponse != nil:
		return c.fail(KindProtocol, fmt.Errorf("%w: %s", ErrPunchHole, msg.PunchHoleResponse.FailureText()))
	case msg.RelayResponse != nil:
		return c.onRelayResponse(ctx, msg.RelayResponse)
	}
	c.logger().Debug("ignoring rendezvous message")
	return nil
}

func (c *Controller) onRelayResponse(ctx context.Context, rr *wire.RelayResponse) error {
	if rr.RefuseReason != "" {
		return c.fail(KindProtocol, fmt.Errorf("%w: %s", ErrRelayRefused, rr.RefuseReason))
	}
	v, err := c.peerVerifier(rr.PK)
	if err != nil {
		return c.fail(KindCrypto, err)
	}
	c.verifier = v
	url, err := c.opts.Endpoints.Relay(rr.RelayServer, c.opts.Rendezvous)
	if err != nil {
		return c.fail(KindProtocol, fmt.Errorf("relay address: %w", err))
	}

	_ = c.rdv.Close()
	c.rdvEv = nil
	c.setPhase(domain.PhaseConnectingRelay)

	c.relay = c.opts.Dialer.Dial(url)
	c.logger().WithField("url", url).Debug("dialling relay")
	if err := c.connect(ctx, c.relay); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return c.fail(KindTransport, fmt.Errorf("connect relay: %w", err))
	}
	c.relayEv = c.relay.Events()

	bind := &wire.RendezvousMessage{RequestRelay: &wire.RequestRelay{
		UUID:       rr.UUID,
		LicenceKey: c.opts.LicenceKey,
	}}
	b := bind.Marshal()
	if !c.relay.Send(b) {
		return c.fail(KindTransport, fmt.Errorf("%w: request relay", ErrSendFailed))
	}
	c.bytesOut.Add(uint64(len(b)))
	c.setPhase(domain.PhaseHandshakePending)
	return nil
}

func (c *Controller) onRelay(ev domain.ChannelEvent) error {
	switch ev.Kind {
	case domain.ChannelEventClose:
		c.relayEv = nil
		cause := closeCause(ev.Err)
		if c.Phase() == domain.PhaseStreaming {
			c.emit(Event{Kind: EventDisconnected, Err: cause})
		}
		return c.fail(KindTransport, cause)
	case domain.ChannelEventMessage:
	default:
		return nil
	}
	c.bytesIn.Add(uint64(len(ev.Data)))

	plain := ev.Data
	if c.encrypted {
		pt, err := c.sess.Decrypt(ev.Data)
		if err != nil {
			return c.fail(KindCrypto, err)
		}
		plain = pt
	}
	msg, err := wire.UnmarshalMessage(plain)
	if err != nil {
		if c.Phase() == domain.PhaseHandshakePending {
			return c.fail(KindProtocol, fmt.Errorf("handshake message: %w", err))
		}
		c.logger().WithError(err).Warn("dropping undecodable message")
		return nil
	}

	switch c.Phase() {
	case domain.PhaseHandshakePending:
		return c.onHandshake(msg)
	case domain.PhaseAuthenticating:
		return c.onAuthenticating(msg)
	case domain.PhaseStreaming:
		return c.onStream(msg)
	}
	return nil
}

func closeCause(err error) error {
	if err == nil {
		return ErrRemoteClosed
	}
	if errors.Is(err, ErrRemoteClosed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRemoteClosed, err)
}

func (c *Controller) tick() {
	if c.Phase() != domain.PhaseStreaming {
		return
	}
	c.video.Tick()
	c.renderer.DrawFrame(c.video.Latest())
	c.publish()
}
