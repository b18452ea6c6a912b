package input

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"deskbridge/internal/clock"
	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/wire"
)

// DefaultMoveInterval bounds pointer-move traffic to about 60 Hz.
const DefaultMoveInterval = 16 * time.Millisecond

// Mapper maps surface coordinates into remote display coordinates. ok is
// false outside the remote display.
type Mapper interface {
	CanvasToRemote(x, y float64) (rx, ry int32, ok bool)
}

// Options wire a translator.
type Options struct {
	Mapper Mapper
	// Send delivers a message; its result is ignored.
	Send         func(*wire.Message) bool
	Clock        clock.Clock
	MoveInterval time.Duration
	Log          *logrus.Entry
}

// Stats counts translator outcomes.
type Stats struct {
	Sent       uint64
	Suppressed uint64
}

// Translator turns local events into outbound messages. Not safe for
// concurrent use.
type Translator struct {
	opts     Options
	clk      clock.Clock
	interval time.Duration
	log      *logrus.Entry

	enabled   bool
	textFocus bool
	pressed   map[string]struct{}
	lastMove  time.Time
	moved     bool

	sent       atomic.Uint64
	suppressed atomic.Uint64
}

// New returns an enabled translator.
func New(opts Options) *Translator {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	iv := opts.MoveInterval
	if iv <= 0 {
		iv = DefaultMoveInterval
	}
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Translator{
		opts:     opts,
		clk:      clk,
		interval: iv,
		log:      log.WithField("component", "input"),
		enabled:  true,
		pressed:  make(map[string]struct{}),
	}
}

// SetEnabled turns capture on or off. Disabling forgets held keys.
func (t *Translator) SetEnabled(on bool) {
	t.enabled = on
	if !on {
		t.Reset()
	}
}

// SetTextFocus records whether a local text-entry target has focus.
func (t *Translator) SetTextFocus(focused bool) { t.textFocus = focused }

// Reset forgets held keys, e.g. after the surface loses focus.
func (t *Translator) Reset() { clear(t.pressed) }

// Stats returns a snapshot of the counters.
func (t *Translator) Stats() Stats {
	return Stats{Sent: t.sent.Load(), Suppressed: t.suppressed.Load()}
}

func (t *Translator) capturing() bool { return t.enabled && !t.textFocus }

// PointerMove handles a pointer move at surface coordinates (x, y).
func (t *Translator) PointerMove(x, y float64, mods domain.Modifiers) bool {
	if !t.capturing() {
		return t.suppress()
	}
	now := t.clk.Now()
	if t.moved && now.Sub(t.lastMove) < t.interval {
		return t.suppress()
	}
	rx, ry, ok := t.mapPoint(x, y)
	if !ok {
		return t.suppress()
	}
	t.lastMove, t.moved = now, true
	return t.emit(domain.InputEvent{Kind: domain.InputPointerMove, X: rx, Y: ry, Modifiers: mods})
}

// PointerButton handles a button press or release at (x, y).
func (t *Translator) PointerButton(x, y float64, button domain.MouseButton, pressed bool, mods domain.Modifiers) bool {
	if !t.capturing() {
		return t.suppress()
	}
	rx, ry, ok := t.mapPoint(x, y)
	if !ok {
		return t.suppress()
	}
	return t.emit(domain.InputEvent{Kind: domain.InputPointerButton, X: rx, Y: ry, Button: button, Pressed: pressed, Modifiers: mods})
}

// Wheel handles a scroll at (x, y) with DOM-style deltas: positive deltaY
// scrolls down, positive deltaX scrolls right. Each axis with movement sends
// one unit step.
func (t *Translator) Wheel(x, y, deltaX, deltaY float64, mods domain.Modifiers) bool {
	if !t.capturing() {
		return t.suppress()
	}
	if _, _, ok := t.mapPoint(x, y); !ok {
		return t.suppress()
	}
	sent := false
	if deltaY != 0 {
		sent = t.emit(domain.InputEvent{Kind: domain.InputWheel, Axis: domain.WheelVertical, Direction: -sign(deltaY), Modifiers: mods}) || sent
	}
	if deltaX != 0 {
		sent = t.emit(domain.InputEvent{Kind: domain.InputWheel, Axis: domain.WheelHorizontal, Direction: sign(deltaX), Modifiers: mods}) || sent
	}
	return sent
}

// Key handles a key transition. code is the physical key (e.g. "KeyA"), key
// the logical value (e.g. "a", "ArrowLeft").
func (t *Translator) Key(code, key string, pressed bool, mods domain.Modifiers) bool {
	if !t.capturing() {
		return t.suppress()
	}
	id := code
	if id == "" {
		id = key
	}
	if pressed {
		if _, held := t.pressed[id]; held {
			return t.suppress()
		}
	}
	control, char, ok := classifyKey(code, key)
	if !ok {
		t.log.WithFields(logrus.Fields{"code": code, "key": key}).Debug("unmapped key dropped")
		return t.suppress()
	}
	if pressed {
		t.pressed[id] = struct{}{}
	} else {
		delete(t.pressed, id)
	}
	return t.emit(domain.InputEvent{Kind: domain.InputKey, Pressed: pressed, ControlKey: control, Char: char, Modifiers: mods})
}

func (t *Translator) mapPoint(x, y float64) (int32, int32, bool) {
	if t.opts.Mapper == nil {
		return 0, 0, false
	}
	return t.opts.Mapper.CanvasToRemote(x, y)
}

func (t *Translator) emit(ev domain.InputEvent) bool {
	msg := Encode(ev)
	if msg == nil || t.opts.Send == nil {
		return t.suppress()
	}
	t.opts.Send(msg)
	t.sent.Add(1)
	return true
}

func (t *Translator) suppress() bool {
	t.suppressed.Add(1)
	return false
}

func sign(v float64) int32 {
	if v < 0 {
		return -1
	}
	return 1
}
