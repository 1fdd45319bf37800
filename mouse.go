package vtcore

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// handleMouse encodes a host mouse event for the child according to the
// tracking and extension modes it enabled. An empty string means the
// event is not reported.
func (t *Terminal) handleMouse(ev *tcell.EventMouse) string {
	if t.mouseMode == mouseModeNone {
		return ""
	}

	pressed := ev.Buttons() & ^tcell.WheelUp & ^tcell.WheelDown
	motion := pressed == t.mouseBtn && ev.Buttons()&(tcell.WheelUp|tcell.WheelDown) == 0

	switch t.mouseMode {
	case mouseModeX10:
		// press only
		if pressed == tcell.ButtonNone || motion {
			return ""
		}
	case mouseModeVT200, mouseModeVT200Highlight:
		if motion {
			return ""
		}
	case mouseModeButtonEvent:
		if motion && pressed == tcell.ButtonNone {
			return ""
		}
	case mouseModeAnyEvent:
		// everything reports
	}

	var b int
	switch {
	case ev.Buttons()&tcell.WheelUp != 0:
		b = 64
	case ev.Buttons()&tcell.WheelDown != 0:
		b = 65
	case pressed&tcell.Button1 != 0:
		b = 0
	case pressed&tcell.Button3 != 0:
		b = 1
	case pressed&tcell.Button2 != 0:
		b = 2
	default:
		b = 3
	}
	if ev.Modifiers()&tcell.ModShift != 0 {
		b += 4
	}
	if ev.Modifiers()&tcell.ModAlt != 0 {
		b += 8
	}
	if ev.Modifiers()&tcell.ModCtrl != 0 {
		b += 16
	}
	if motion {
		b += 32
	}

	col, row := ev.Position()

	if t.mouseExtMode == mouseExtSGR {
		if pressed == tcell.ButtonNone && t.mouseBtn != tcell.ButtonNone {
			var released int
			switch t.mouseBtn {
			case tcell.Button1:
				released = 0
			case tcell.Button3:
				released = 1
			case tcell.Button2:
				released = 2
			}
			t.mouseBtn = pressed
			return fmt.Sprintf("\x1b[<%d;%d;%dm", released, col+1, row+1)
		}
		t.mouseBtn = pressed
		return fmt.Sprintf("\x1b[<%d;%d;%dM", b, col+1, row+1)
	}

	t.mouseBtn = pressed

	if t.mouseExtMode == mouseExtURXVT {
		return fmt.Sprintf("\x1b[%d;%d;%dM", b+32, col+1, row+1)
	}

	// legacy encoding clips coordinates at 223
	if col > 222 || row > 222 {
		return ""
	}
	return fmt.Sprintf("\x1b[M%c%c%c", rune(b+32), rune(col+33), rune(row+33))
}
