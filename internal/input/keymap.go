package input

import (
	"unicode/utf8"

	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/wire"
)

// namedKeys maps DOM-style key names to the peer's control keys.
var namedKeys = map[string]int32{
	"Alt":         wire.KeyAlt,
	"AltGraph":    wire.KeyAlt,
	"Backspace":   wire.KeyBackspace,
	"CapsLock":    wire.KeyCapsLock,
	"Control":     wire.KeyControl,
	"Delete":      wire.KeyDelete,
	"ArrowDown":   wire.KeyDownArrow,
	"End":         wire.KeyEnd,
	"Escape":      wire.KeyEscape,
	"Home":        wire.KeyHome,
	"ArrowLeft":   wire.KeyLeftArrow,
	"Meta":        wire.KeyMeta,
	"OS":          wire.KeyMeta,
	"PageDown":    wire.KeyPageDown,
	"PageUp":      wire.KeyPageUp,
	"Enter":       wire.KeyReturn,
	"ArrowRight":  wire.KeyRightArrow,
	"Shift":       wire.KeyShift,
	"Tab":         wire.KeyTab,
	"ArrowUp":     wire.KeyUpArrow,
	"Insert":      wire.KeyInsert,
	"ContextMenu": wire.KeyMenu,
	"Pause":       wire.KeyPause,
	"ScrollLock":  wire.KeyScroll,
	"NumLock":     wire.KeyNumLock,
	"F1":          wire.KeyF1,
	"F2":          wire.KeyF2,
	"F3":          wire.KeyF3,
	"F4":          wire.KeyF4,
	"F5":          wire.KeyF5,
	"F6":          wire.KeyF6,
	"F7":          wire.KeyF7,
	"F8":          wire.KeyF8,
	"F9":          wire.KeyF9,
	"F10":         wire.KeyF10,
	"F11":         wire.KeyF11,
	"F12":         wire.KeyF12,
}

// numpadCodes maps physical numpad codes so digits typed there stay distinct.
var numpadCodes = map[string]int32{
	"NumpadEnter": wire.KeyNumpadEnter,
}

func init() {
	for d := int32(0); d <= 9; d++ {
		numpadCodes["Numpad"+string(rune('0'+d))] = wire.KeyNumpad0 + d
	}
}

// classifyKey resolves a key to either a control key or a printable rune. ok
// is false for keys the peer cannot represent.
func classifyKey(code, key string) (control int32, char rune, ok bool) {
	if k, found := numpadCodes[code]; found {
		return k, 0, true
	}
	if k, found := namedKeys[key]; found {
		return k, 0, true
	}
	if r, size := utf8.DecodeRuneInString(key); size > 0 && size == len(key) && r != utf8.RuneError {
		return 0, r, true
	}
	return 0, 0, false
}

// modifierKeys lists the held modifiers as control keys, in a fixed order.
func modifierKeys(m domain.Modifiers) []int32 {
	var out []int32
	if m.Has(domain.ModControl) {
		out = append(out, wire.KeyControl)
	}
	if m.Has(domain.ModShift) {
		out = append(out, wire.KeyShift)
	}
	if m.Has(domain.ModAlt) {
		out = append(out, wire.KeyAlt)
	}
	if m.Has(domain.ModMeta) {
		out = append(out, wire.KeyMeta)
	}
	return out
}
