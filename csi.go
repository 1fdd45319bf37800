package vtcore

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
)

func paramInt(params []string, i int, def int) int {
	if i >= len(params) || params[i] == "" {
		return def
	}
	n, err := strconv.Atoi(params[i])
	if err != nil {
		return def
	}
	return n
}

func (t *Terminal) csiDispatch(private byte, params []string, intermediates []byte, final byte) {
	b := t.activeBuffer()

	switch private {
	case '?':
		switch final {
		case 'h':
			t.decset(params)
		case 'l':
			t.decrst(params)
		default:
			tlog.Printf("unhandled private CSI ? %v %c", params, final)
		}
		return
	case '>':
		if final == 'c' {
			// DA2
			t.writeToPty([]byte("\x1b[>1;10;0c"))
		}
		return
	case '<', '=':
		return
	}

	if len(intermediates) > 0 {
		switch {
		case intermediates[0] == '!' && final == 'p':
			t.softReset()
		case intermediates[0] == ' ' && final == 'q':
			t.setCursorStyle(paramInt(params, 0, 0))
		default:
			tlog.Printf("unhandled CSI intermediate %q final %c", intermediates, final)
		}
		return
	}

	switch final {
	case 'A':
		b.movePosition(0, -paramInt(params, 0, 1))
	case 'B', 'e':
		b.movePosition(0, paramInt(params, 0, 1))
	case 'C', 'a':
		b.movePosition(paramInt(params, 0, 1), 0)
	case 'D':
		b.movePosition(-paramInt(params, 0, 1), 0)
	case 'E':
		b.movePosition(0, paramInt(params, 0, 1))
		b.cursorPosition.Col = 0
	case 'F':
		b.movePosition(0, -paramInt(params, 0, 1))
		b.cursorPosition.Col = 0
	case 'G', '`':
		b.setPosition(paramInt(params, 0, 1)-1, b.cursorLine())
	case 'H', 'f':
		b.setPosition(paramInt(params, 1, 1)-1, paramInt(params, 0, 1)-1)
	case 'I':
		for i := 0; i < paramInt(params, 0, 1); i++ {
			b.setPosition(b.getNextTabStopAfter(b.cursorPosition.Col), b.cursorLine())
		}
	case 'J':
		t.eraseInDisplay(paramInt(params, 0, 0))
	case 'K':
		switch paramInt(params, 0, 0) {
		case 0:
			b.eraseLineFromCursor()
		case 1:
			b.eraseLineToCursor()
		case 2:
			b.eraseLine()
		}
	case 'L':
		b.insertLines(paramInt(params, 0, 1))
	case 'M':
		b.deleteLines(paramInt(params, 0, 1))
	case 'P':
		b.deleteChars(paramInt(params, 0, 1))
	case 'S':
		b.scrollUp(paramInt(params, 0, 1))
	case 'T':
		b.areaScrollDown(paramInt(params, 0, 1))
	case 'X':
		b.eraseCharacters(paramInt(params, 0, 1))
	case 'Z':
		for i := 0; i < paramInt(params, 0, 1); i++ {
			b.setPosition(b.getPrevTabStopBefore(b.cursorPosition.Col), b.cursorLine())
		}
	case 'b':
		b.repeatLastCharacter(paramInt(params, 0, 1))
	case 'c':
		// DA1: VT220 with sixel, color and rectangular editing
		t.writeToPty([]byte("\x1b[?62;1;4;22;29c"))
	case 'd':
		b.setPosition(b.cursorColumn(), paramInt(params, 0, 1)-1)
	case 'g':
		switch paramInt(params, 0, 0) {
		case 0:
			b.tabClearAtCursor()
		case 3:
			b.tabReset()
		}
	case 'h':
		t.sm(params)
	case 'l':
		t.rm(params)
	case 'm':
		t.sgr(params)
	case 'n':
		switch paramInt(params, 0, 0) {
		case 5:
			t.writeToPty([]byte("\x1b[0n"))
		case 6:
			t.writeToPty([]byte(fmt.Sprintf("\x1b[%d;%dR", b.cursorLine()+1, b.cursorColumn()+1)))
		}
	case 'r':
		t.setTopBottomMargins(paramInt(params, 0, 1), paramInt(params, 1, b.viewHeight))
	case 's':
		b.saveCursor()
	case 'u':
		b.restoreCursor()
	case 't':
		t.windowOp(params)
	default:
		tlog.Printf("unhandled CSI %v %c", params, final)
	}
}

func (t *Terminal) eraseInDisplay(mode int) {
	b := t.activeBuffer()
	switch mode {
	case 0:
		b.eraseDisplayFromCursor()
	case 1:
		b.eraseDisplayToCursor()
	case 2:
		b.eraseDisplay()
	case 3:
		b.eraseDisplay()
		t.clearScrollback()
	}
}

// clearScrollback drops history, keeping only the visible screen
func (t *Terminal) clearScrollback() {
	b := t.activeBuffer()
	if len(b.lines) <= b.viewHeight {
		return
	}
	n := len(b.lines) - b.viewHeight
	copy(b.lines, b.lines[n:])
	b.lines = b.lines[:b.viewHeight]
	b.cursorPosition.Line -= n
	if b.cursorPosition.Line < 0 {
		b.cursorPosition.Line = 0
	}
	b.shiftPlacements(n)
}

// setTopBottomMargins implements DECSTBM. The cursor moves home.
func (t *Terminal) setTopBottomMargins(top, bottom int) {
	b := t.activeBuffer()
	if top < 1 {
		top = 1
	}
	if bottom > b.viewHeight {
		bottom = b.viewHeight
	}
	if top >= bottom {
		return
	}
	b.setVerticalMargins(top-1, bottom-1)
	b.setPosition(0, 0)
}

func (t *Terminal) setCursorStyle(ps int) {
	b := t.activeBuffer()
	switch ps {
	case 0, 1:
		b.cursorShape = tcell.CursorStyleBlinkingBlock
	case 2:
		b.cursorShape = tcell.CursorStyleSteadyBlock
	case 3:
		b.cursorShape = tcell.CursorStyleBlinkingUnderline
	case 4:
		b.cursorShape = tcell.CursorStyleSteadyUnderline
	case 5:
		b.cursorShape = tcell.CursorStyleBlinkingBar
	case 6:
		b.cursorShape = tcell.CursorStyleSteadyBar
	}
}

func (t *Terminal) windowOp(params []string) {
	switch paramInt(params, 0, 0) {
	case 14:
		// report text area size in pixels
		b := t.activeBuffer()
		t.writeToPty([]byte(fmt.Sprintf("\x1b[4;%d;%dt", b.viewHeight*t.cellHeight, b.viewWidth*t.cellWidth)))
	case 18:
		b := t.activeBuffer()
		t.writeToPty([]byte(fmt.Sprintf("\x1b[8;%d;%dt", b.viewHeight, b.viewWidth)))
	case 22, 23:
		// title stack push/pop, not retained
	default:
		tlog.Printf("unhandled window op %v", params)
	}
}

func (t *Terminal) sm(params []string) {
	for i := range params {
		switch paramInt(params, i, -1) {
		case 4:
			t.modes.InsertMode = true
		case 20:
			t.modes.LineFeedMode = false
		}
	}
}

func (t *Terminal) rm(params []string) {
	for i := range params {
		switch paramInt(params, i, -1) {
		case 4:
			t.modes.InsertMode = false
		case 20:
			t.modes.LineFeedMode = true
		}
	}
}

func (t *Terminal) decset(params []string) {
	for i := range params {
		switch paramInt(params, i, -1) {
		case 1:
			t.modes.ApplicationCursorKeys = true
		case 5:
			t.modes.ScreenMode = true
		case 6:
			t.modes.OriginMode = true
			t.activeBuffer().setPosition(0, 0)
		case 7:
			t.modes.AutoWrap = true
		case 9:
			t.mouseMode = mouseModeX10
		case 12:
			t.modes.BlinkingCursor = true
		case 25:
			t.modes.ShowCursor = true
		case 1000:
			t.mouseMode = mouseModeVT200
		case 1002:
			t.mouseMode = mouseModeButtonEvent
		case 1003:
			t.mouseMode = mouseModeAnyEvent
		case 1004:
			t.modes.FocusReporting = true
		case 1005:
			t.mouseExtMode = mouseExtUTF
		case 1006:
			t.mouseExtMode = mouseExtSGR
		case 1015:
			t.mouseExtMode = mouseExtURXVT
		case 1047:
			t.useAltBuffer()
		case 1048:
			t.activeBuffer().saveCursor()
		case 1049:
			t.activeBuffer().saveCursor()
			t.useAltBuffer()
			t.activeBuffer().eraseDisplay()
		case 2004:
			t.modes.BracketedPaste = true
		case 2026:
			t.modes.SyncOutput = true
		default:
			tlog.Printf("unhandled DECSET %v", params[i])
		}
	}
}

func (t *Terminal) decrst(params []string) {
	for i := range params {
		switch paramInt(params, i, -1) {
		case 1:
			t.modes.ApplicationCursorKeys = false
		case 5:
			t.modes.ScreenMode = false
		case 6:
			t.modes.OriginMode = false
			t.activeBuffer().setPosition(0, 0)
		case 7:
			t.modes.AutoWrap = false
		case 9, 1000, 1002, 1003:
			t.mouseMode = mouseModeNone
		case 12:
			t.modes.BlinkingCursor = false
		case 25:
			t.modes.ShowCursor = false
		case 1004:
			t.modes.FocusReporting = false
		case 1005, 1006, 1015:
			t.mouseExtMode = mouseExtNone
		case 1047:
			t.useMainBuffer()
		case 1048:
			t.activeBuffer().restoreCursor()
		case 1049:
			t.useMainBuffer()
			t.activeBuffer().restoreCursor()
		case 2004:
			t.modes.BracketedPaste = false
		case 2026:
			t.modes.SyncOutput = false
		default:
			tlog.Printf("unhandled DECRST %v", params[i])
		}
	}
}

// softReset implements DECSTR
func (t *Terminal) softReset() {
	b := t.activeBuffer()
	t.modes.ShowCursor = true
	t.modes.OriginMode = false
	t.modes.InsertMode = false
	t.modes.AutoWrap = true
	t.modes.ApplicationCursorKeys = false
	b.resetVerticalMargins(b.viewHeight)
	b.cursorAttr = tcell.StyleDefault
	b.saved = nil
}
