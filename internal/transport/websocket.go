package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"deskbridge/internal/domain"
)

const (
	eventBuffer    = 256
	maxMessageSize = 32 << 20
)

// Options tune a WebSocket channel. Zero values select the defaults.
type Options struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// PingInterval enables WebSocket keep-alive pings when positive.
	PingInterval time.Duration
	Log          *logrus.Entry
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.Log == nil {
		o.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return o
}

// WSChannel is a binary WebSocket link.
type WSChannel struct {
	url  string
	opts Options
	log  *logrus.Entry

	state  atomic.Int32
	events chan domain.ChannelEvent
	done   chan struct{}

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	closeOnce  sync.Once
	finishOnce sync.Once
}

var _ domain.Channel = (*WSChannel)(nil)

// NewWSChannel returns an idle channel for url.
func NewWSChannel(url string, opts Options) *WSChannel {
	opts = opts.withDefaults()
	return &WSChannel{
		url:    url,
		opts:   opts,
		log:    opts.Log.WithField("url", url),
		events: make(chan domain.ChannelEvent, eventBuffer),
		done:   make(chan struct{}),
	}
}

// URL returns the endpoint this channel dials.
func (c *WSChannel) URL() string { return c.url }

// State returns the current lifecycle state.
func (c *WSChannel) State() domain.ChannelState { return domain.ChannelState(c.state.Load()) }

// Events returns the ordered event stream.
func (c *WSChannel) Events() <-chan domain.ChannelEvent { return c.events }

// Connect dials the endpoint and starts the read pump.
func (c *WSChannel) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(domain.ChannelIdle), int32(domain.ChannelConnecting)) {
		if c.State() == domain.ChannelClosed {
			return ErrClosed
		}
		return ErrAlreadyConnected
	}
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		err = fmt.Errorf("transport: dial %s: %w", c.url, err)
		c.log.WithError(err).Debug("connect failed")
		c.finish(err)
		return err
	}
	conn.SetReadLimit(maxMessageSize)

	c.mu.Lock()
	if c.State() == domain.ChannelClosed {
		c.mu.Unlock()
		_ = conn.Close()
		c.finish(nil)
		return ErrClosed
	}
	c.conn = conn
	c.state.Store(int32(domain.ChannelOpen))
	c.mu.Unlock()

	c.events <- domain.ChannelEvent{Kind: domain.ChannelEventOpen}
	c.log.Debug("channel open")
	go c.readPump(conn)
	if c.opts.PingInterval > 0 {
		go c.pingLoop(conn)
	}
	return nil
}

// Send writes b as one binary message. It returns false without queueing when
// the channel is not open or the write fails.
func (c *WSChannel) Send(b []byte) bool {
	if c.State() != domain.ChannelOpen {
		return false
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return false
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		c.log.WithError(err).Debug("write failed")
		_ = conn.Close()
		return false
	}
	return true
}

// Close shuts the link. The event stream ends with a Close event. Safe to call
// more than once and from any state.
func (c *WSChannel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		prev := domain.ChannelState(c.state.Swap(int32(domain.ChannelClosed)))
		conn := c.conn
		c.mu.Unlock()
		close(c.done)

		if conn == nil {
			if prev != domain.ChannelConnecting {
				c.finish(nil)
			}
			return
		}
		c.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		_ = conn.Close()
	})
	return nil
}

func (c *WSChannel) readPump(conn *websocket.Conn) {
	var cause error
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !c.closing() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				cause = fmt.Errorf("transport: read: %w", err)
			}
			break
		}
		if kind != websocket.BinaryMessage && kind != websocket.TextMessage {
			continue
		}
		select {
		case c.events <- domain.ChannelEvent{Kind: domain.ChannelEventMessage, Data: data}:
		case <-c.done:
			c.finish(nil)
			return
		}
	}
	c.finish(cause)
}

func (c *WSChannel) pingLoop(conn *websocket.Conn) {
	t := time.NewTicker(c.opts.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout)); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.log.WithError(err).Debug("ping failed")
				}
				return
			}
		}
	}
}

func (c *WSChannel) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// finish emits the final Close event and ends the stream exactly once. When
// the buffer is full the event is delivered once the consumer drains it, or
// abandoned after a local Close.
func (c *WSChannel) finish(cause error) {
	c.finishOnce.Do(func() {
		c.state.Store(int32(domain.ChannelClosed))
		ev := domain.ChannelEvent{Kind: domain.ChannelEventClose, Err: cause}
		select {
		case c.events <- ev:
			close(c.events)
		default:
			go func() {
				select {
				case c.events <- ev:
				case <-c.done:
				}
				close(c.events)
			}()
		}
		if cause != nil {
			c.log.WithError(cause).Info("channel closed")
		} else {
			c.log.Debug("channel closed")
		}
	})
}

// WSDialer creates WebSocket channels sharing one set of options.
type WSDialer struct {
	Options Options
}

var _ domain.Dialer = (*WSDialer)(nil)

// Dial returns an idle channel for url.
func (d *WSDialer) Dial(url string) domain.Channel { return NewWSChannel(url, d.Options) }
