package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"deskbridge/internal/domain"
)

// PipeChannel is one end of an in-process link.
type PipeChannel struct {
	peer   *PipeChannel
	refuse bool

	state  atomic.Int32
	mu     sync.Mutex
	events chan domain.ChannelEvent
	ended  bool
}

var _ domain.Channel = (*PipeChannel)(nil)

func newPipeEnd() *PipeChannel {
	return &PipeChannel{events: make(chan domain.ChannelEvent, eventBuffer)}
}

// NewPipe returns two idle ends connected to each other.
func NewPipe() (a, b *PipeChannel) {
	a, b = newPipeEnd(), newPipeEnd()
	a.peer, b.peer = b, a
	return a, b
}

// State returns the current lifecycle state.
func (p *PipeChannel) State() domain.ChannelState { return domain.ChannelState(p.state.Load()) }

// Events returns the ordered event stream.
func (p *PipeChannel) Events() <-chan domain.ChannelEvent { return p.events }

// Connect opens this end. A refused end closes immediately with ErrRefused.
func (p *PipeChannel) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.state.CompareAndSwap(int32(domain.ChannelIdle), int32(domain.ChannelConnecting)) {
		if p.State() == domain.ChannelClosed {
			return ErrClosed
		}
		return ErrAlreadyConnected
	}
	if p.refuse {
		p.end(ErrRefused)
		return ErrRefused
	}
	p.state.Store(int32(domain.ChannelOpen))
	p.push(domain.ChannelEvent{Kind: domain.ChannelEventOpen})
	return nil
}

// Send hands a copy of b to the other end. Messages sent before the other end
// connects are held in its event buffer.
func (p *PipeChannel) Send(b []byte) bool {
	if p.State() != domain.ChannelOpen {
		return false
	}
	return p.peer.push(domain.ChannelEvent{Kind: domain.ChannelEventMessage, Data: append([]byte(nil), b...)})
}

// Close ends both sides of the pipe.
func (p *PipeChannel) Close() error {
	p.end(nil)
	p.peer.end(nil)
	return nil
}

func (p *PipeChannel) push(ev domain.ChannelEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	// The last slot is kept for the Close event.
	if p.ended || len(p.events) >= cap(p.events)-1 {
		return false
	}
	select {
	case p.events <- ev:
		return true
	default:
		return false
	}
}

func (p *PipeChannel) end(cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return
	}
	p.ended = true
	p.state.Store(int32(domain.ChannelClosed))
	select {
	case p.events <- domain.ChannelEvent{Kind: domain.ChannelEventClose, Err: cause}:
	default:
	}
	close(p.events)
}

// PipeDialer hands out pipe ends. The remote end of every dialled URL is
// delivered on the channel returned by Accept for that URL; a URL nobody
// accepts is refused.
type PipeDialer struct {
	mu     sync.Mutex
	accept map[string]chan *PipeChannel
	dialed []string
}

var _ domain.Dialer = (*PipeDialer)(nil)

// NewPipeDialer returns an empty dialer.
func NewPipeDialer() *PipeDialer {
	return &PipeDialer{accept: make(map[string]chan *PipeChannel)}
}

// Accept registers url and returns the stream of server ends, already open.
func (d *PipeDialer) Accept(url string) <-chan *PipeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.accept[url]
	if !ok {
		ch = make(chan *PipeChannel, 4)
		d.accept[url] = ch
	}
	return ch
}

// Dial returns the client end of a new pipe.
func (d *PipeDialer) Dial(url string) domain.Channel {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, url)
	client, server := NewPipe()
	ch, ok := d.accept[url]
	if !ok {
		client.refuse = true
		return client
	}
	server.state.Store(int32(domain.ChannelOpen))
	select {
	case ch <- server:
	default:
		client.refuse = true
	}
	return client
}

// Dialed returns the URLs dialled so far, in order.
func (d *PipeDialer) Dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dialed...)
}
