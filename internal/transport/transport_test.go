package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"deskbridge/internal/domain"
	"deskbridge/internal/transport"
)

// echoServer upgrades every request and echoes binary frames back.
func echoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func next(t *testing.T, ch <-chan domain.ChannelEvent) domain.ChannelEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("event stream closed")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.ChannelEvent{}
}

func TestWSChannel_OrderedEcho(t *testing.T) {
	_, url := echoServer(t)
	ch := transport.NewWSChannel(url, transport.Options{})
	if ch.State() != domain.ChannelIdle {
		t.Fatalf("state = %v, want idle", ch.State())
	}
	if ch.Send([]byte("early")) {
		t.Fatal("Send succeeded before Connect")
	}
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if ev := next(t, ch.Events()); ev.Kind != domain.ChannelEventOpen {
		t.Fatalf("first event = %v, want open", ev.Kind)
	}
	for i := 0; i < 20; i++ {
		if !ch.Send([]byte{byte(i)}) {
			t.Fatalf("Send %d failed", i)
		}
	}
	for i := 0; i < 20; i++ {
		ev := next(t, ch.Events())
		if ev.Kind != domain.ChannelEventMessage || len(ev.Data) != 1 || ev.Data[0] != byte(i) {
			t.Fatalf("event %d = %+v", i, ev)
		}
	}

	_ = ch.Close()
	_ = ch.Close()
	if ch.State() != domain.ChannelClosed {
		t.Fatalf("state = %v, want closed", ch.State())
	}
	if ch.Send([]byte("late")) {
		t.Fatal("Send succeeded after Close")
	}
	for ev := range ch.Events() {
		if ev.Kind == domain.ChannelEventClose && ev.Err != nil {
			t.Fatalf("local close reported error: %v", ev.Err)
		}
	}
}

func TestWSChannel_ConnectFailure(t *testing.T) {
	srv, url := echoServer(t)
	srv.Close()
	ch := transport.NewWSChannel(url, transport.Options{HandshakeTimeout: time.Second})
	if err := ch.Connect(context.Background()); err == nil {
		t.Fatal("Connect to closed server succeeded")
	}
	ev := next(t, ch.Events())
	if ev.Kind != domain.ChannelEventClose || ev.Err == nil {
		t.Fatalf("event = %+v, want close with error", ev)
	}
}

func TestWSChannel_RemoteCloseIsReported(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("bye"))
		_ = conn.Close()
	}))
	defer srv.Close()

	ch := transport.NewWSChannel("ws"+strings.TrimPrefix(srv.URL, "http"), transport.Options{})
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	var kinds []domain.ChannelEventKind
	for ev := range ch.Events() {
		kinds = append(kinds, ev.Kind)
	}
	want := []domain.ChannelEventKind{domain.ChannelEventOpen, domain.ChannelEventMessage, domain.ChannelEventClose}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}
}

// backlog fills the event buffer behind the Open event.
const backlog = 255

func TestWSChannel_CloseDeliveredAfterFullBuffer(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for i := 0; i < backlog; i++ {
			_ = conn.WriteMessage(websocket.BinaryMessage, []byte{byte(i)})
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	ch := transport.NewWSChannel("ws"+strings.TrimPrefix(srv.URL, "http"), transport.Options{})
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer ch.Close()
	// Let the reader hit the dropped connection while nobody drains.
	time.Sleep(500 * time.Millisecond)

	var msgs, closes int
	var last domain.ChannelEventKind
	deadline := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				done = true
				break
			}
			switch ev.Kind {
			case domain.ChannelEventMessage:
				msgs++
			case domain.ChannelEventClose:
				closes++
			}
			last = ev.Kind
		case <-deadline:
			t.Fatal("event stream never ended")
		}
	}
	if msgs != backlog || closes != 1 || last != domain.ChannelEventClose {
		t.Fatalf("messages = %d, closes = %d, last = %v", msgs, closes, last)
	}
}

func TestPipe_CloseDeliveredAfterFullBuffer(t *testing.T) {
	client, server := transport.NewPipe()
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := server.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	sent := 0
	for server.Send([]byte("x")) {
		sent++
	}
	if sent == 0 {
		t.Fatal("nothing fit in the buffer")
	}
	_ = server.Close()

	var msgs int
	var last domain.ChannelEventKind
	for ev := range client.Events() {
		if ev.Kind == domain.ChannelEventMessage {
			msgs++
		}
		last = ev.Kind
	}
	if msgs != sent || last != domain.ChannelEventClose {
		t.Fatalf("messages = %d (sent %d), last = %v", msgs, sent, last)
	}
}

func TestPipe_IndependentEnds(t *testing.T) {
	d := transport.NewPipeDialer()
	accepted := d.Accept("mem://relay")

	client := d.Dial("mem://relay")
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	server := <-accepted
	next(t, client.Events())

	if !client.Send([]byte("ping")) {
		t.Fatal("client Send failed")
	}
	if ev := next(t, server.Events()); string(ev.Data) != "ping" {
		t.Fatalf("server got %+v", ev)
	}
	_ = server.Close()
	if ev := next(t, client.Events()); ev.Kind != domain.ChannelEventClose {
		t.Fatalf("client event = %+v, want close", ev)
	}
	if client.Send([]byte("x")) {
		t.Fatal("Send succeeded on closed pipe")
	}

	other := d.Dial("mem://rendezvous")
	if err := other.Connect(context.Background()); err == nil {
		t.Fatal("unaccepted URL connected")
	}
	if got := d.Dialed(); len(got) != 2 || got[1] != "mem://rendezvous" {
		t.Fatalf("Dialed = %v", got)
	}
}
