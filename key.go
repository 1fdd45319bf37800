package vtcore

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// keyCode encodes a host key press as the byte sequence the child
// expects, honoring DECCKM for the cursor and home/end keys.
func (t *Terminal) keyCode(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune && ev.Modifiers()&tcell.ModAlt != 0 {
		return "\x1b" + string(ev.Rune())
	}

	if s, ok := t.specialKey(ev); ok {
		return s
	}

	switch ev.Key() {
	case tcell.KeyRune:
		return string(ev.Rune())
	default:
		if ev.Key() < 0x80 {
			// control keys carry their byte value
			return string(rune(ev.Key()))
		}
	}
	return ""
}

// ss3 keys switch between CSI and SS3 prefixes with DECCKM.
var cursorKeyFinals = map[tcell.Key]byte{
	tcell.KeyUp:    'A',
	tcell.KeyDown:  'B',
	tcell.KeyRight: 'C',
	tcell.KeyLeft:  'D',
	tcell.KeyHome:  'H',
	tcell.KeyEnd:   'F',
}

// tilde keys use the CSI Ps ~ form regardless of cursor key mode.
var tildeKeyCodes = map[tcell.Key]int{
	tcell.KeyInsert: 2,
	tcell.KeyDelete: 3,
	tcell.KeyPgUp:   5,
	tcell.KeyPgDn:   6,
	tcell.KeyF5:     15,
	tcell.KeyF6:     17,
	tcell.KeyF7:     18,
	tcell.KeyF8:     19,
	tcell.KeyF9:     20,
	tcell.KeyF10:    21,
	tcell.KeyF11:    23,
	tcell.KeyF12:    24,
}

var fixedKeyCodes = map[tcell.Key]string{
	tcell.KeyBackspace2: "\x7f",
	tcell.KeyBacktab:    "\x1b[Z",
	tcell.KeyF1:         "\x1bOP",
	tcell.KeyF2:         "\x1bOQ",
	tcell.KeyF3:         "\x1bOR",
	tcell.KeyF4:         "\x1bOS",
}

// xtermModifier maps tcell modifier bits to the xterm modifyOtherKeys
// parameter (modifier value plus one).
func xtermModifier(m tcell.ModMask) int {
	mod := 1
	if m&tcell.ModShift != 0 {
		mod += 1
	}
	if m&tcell.ModAlt != 0 {
		mod += 2
	}
	if m&tcell.ModCtrl != 0 {
		mod += 4
	}
	return mod
}

func (t *Terminal) specialKey(ev *tcell.EventKey) (string, bool) {
	mod := xtermModifier(ev.Modifiers())

	if final, ok := cursorKeyFinals[ev.Key()]; ok {
		if mod > 1 {
			return fmt.Sprintf("\x1b[1;%d%c", mod, final), true
		}
		if t.modes.ApplicationCursorKeys {
			return "\x1bO" + string(rune(final)), true
		}
		return "\x1b[" + string(rune(final)), true
	}

	if code, ok := tildeKeyCodes[ev.Key()]; ok {
		if mod > 1 {
			return fmt.Sprintf("\x1b[%d;%d~", code, mod), true
		}
		return fmt.Sprintf("\x1b[%d~", code), true
	}

	if s, ok := fixedKeyCodes[ev.Key()]; ok {
		if mod > 1 && strings.HasPrefix(s, "\x1bO") {
			// modified F1-F4 use the CSI form
			return fmt.Sprintf("\x1b[1;%d%c", mod, s[2]), true
		}
		return s, true
	}
	return "", false
}
