package vtcore

import (
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
)

// CopyModeState identifies what a copy mode key press currently drives.
type CopyModeState int

const (
	CopyModeInactive CopyModeState = iota
	CopyModeNavigating
	CopyModeSelecting
	CopyModeSearching
)

// copyMode freezes the screen and lets the user move a cursor over the
// buffer with vi style keys, select text, search the scrollback and
// yank the result to the clipboard. All cursor coordinates are raw
// buffer line indexes so the selection survives further scrolling.
type copyMode struct {
	t      *Terminal
	state  CopyModeState
	cursor position

	anchor        *position
	lineSelection bool

	pendingG bool

	query        []rune
	searchOrigin position
	resumeState  CopyModeState
	matches      []searchMatch
	current      int
	lastQuery    string
}

func newCopyMode(t *Terminal) *copyMode {
	return &copyMode{t: t}
}

func (m *copyMode) buf() *buffer {
	return m.t.activeBuffer()
}

func (m *copyMode) enter() {
	if m.state != CopyModeInactive {
		return
	}
	b := m.buf()
	m.state = CopyModeNavigating
	// the buffer cursor is already in raw coordinates
	m.cursor = b.cursorPosition
	m.clampCursor()
	m.anchor = nil
	m.lineSelection = false
	m.pendingG = false
	m.matches = nil
	m.current = -1
}

func (m *copyMode) exit() {
	m.state = CopyModeInactive
	m.anchor = nil
	m.query = nil
	m.matches = nil
	m.current = -1
	m.pendingG = false
	m.buf().scrollToEnd()
	m.t.queueEvent(&EventRedraw{newEventTerminal(m.t)})
}

// handleKey consumes one key press while copy mode is active. It reports
// whether the terminal should redraw.
func (m *copyMode) handleKey(ev *tcell.EventKey) bool {
	if m.state == CopyModeInactive {
		return false
	}
	if m.state == CopyModeSearching {
		return m.handleSearchKey(ev)
	}

	if ev.Key() == tcell.KeyRune && ev.Rune() == 'g' {
		if m.pendingG {
			m.pendingG = false
			m.moveToTop()
			return true
		}
		m.pendingG = true
		return false
	}
	m.pendingG = false

	switch ev.Key() {
	case tcell.KeyEscape:
		m.exit()
		return true
	case tcell.KeyUp:
		m.moveCursor(-1, 0)
		return true
	case tcell.KeyDown:
		m.moveCursor(1, 0)
		return true
	case tcell.KeyLeft:
		m.moveCursor(0, -1)
		return true
	case tcell.KeyRight:
		m.moveCursor(0, 1)
		return true
	case tcell.KeyCtrlU:
		m.moveCursor(-m.buf().viewHeight/2, 0)
		return true
	case tcell.KeyCtrlD:
		m.moveCursor(m.buf().viewHeight/2, 0)
		return true
	case tcell.KeyEnter:
		if m.state == CopyModeSelecting {
			m.yank()
			return true
		}
	}

	if ev.Key() != tcell.KeyRune {
		return false
	}

	switch ev.Rune() {
	case 'h':
		m.moveCursor(0, -1)
	case 'j':
		m.moveCursor(1, 0)
	case 'k':
		m.moveCursor(-1, 0)
	case 'l':
		m.moveCursor(0, 1)
	case '0':
		m.cursor.Col = 0
		m.scrollIntoView()
	case '^':
		m.moveToFirstNonBlank()
	case '$':
		m.cursor.Col = m.buf().lineLen(m.cursor.Line) - 1
		m.clampCursor()
		m.scrollIntoView()
	case 'w':
		m.moveWordForward()
	case 'b':
		m.moveWordBackward()
	case 'e':
		m.moveWordEnd()
	case 'G':
		m.moveToBottom()
	case 'H':
		m.moveToViewRow(0)
	case 'M':
		m.moveToViewRow(m.buf().viewHeight / 2)
	case 'L':
		m.moveToViewRow(m.buf().viewHeight - 1)
	case 'v':
		m.toggleSelection(false)
	case 'V':
		m.toggleSelection(true)
	case 'y':
		if m.state == CopyModeSelecting {
			m.yank()
		}
	case '/':
		m.beginSearch()
	case 'n':
		m.nextMatch(1)
	case 'N':
		m.nextMatch(-1)
	case 'q':
		m.exit()
	default:
		return false
	}
	return true
}

func (m *copyMode) handleSearchKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		m.query = nil
		m.matches = nil
		m.current = -1
		m.cursor = m.searchOrigin
		m.state = m.resumeState
		m.scrollIntoView()
		return true
	case tcell.KeyEnter:
		m.lastQuery = string(m.query)
		m.state = m.resumeState
		return true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(m.query) > 0 {
			m.query = m.query[:len(m.query)-1]
		}
		m.refreshSearch()
		return true
	case tcell.KeyRune:
		m.query = append(m.query, ev.Rune())
		m.refreshSearch()
		return true
	}
	return false
}

func (m *copyMode) beginSearch() {
	m.resumeState = m.state
	m.state = CopyModeSearching
	m.searchOrigin = m.cursor
	m.query = nil
	m.matches = nil
	m.current = -1
}

// refreshSearch recomputes matches for the query typed so far and jumps
// to the closest one at or after where the search began.
func (m *copyMode) refreshSearch() {
	if len(m.query) == 0 {
		m.matches = nil
		m.current = -1
		m.cursor = m.searchOrigin
		m.scrollIntoView()
		return
	}
	m.matches = m.buf().searchAll(string(m.query))
	m.current = nearestMatch(m.matches, m.searchOrigin)
	if m.current >= 0 {
		m.cursor = m.matches[m.current].start
		m.scrollIntoView()
	}
}

func (m *copyMode) nextMatch(dir int) {
	if len(m.matches) == 0 && m.lastQuery != "" {
		m.matches = m.buf().searchAll(m.lastQuery)
		m.current = nearestMatch(m.matches, m.cursor)
		if m.current >= 0 {
			m.cursor = m.matches[m.current].start
			m.scrollIntoView()
		}
		return
	}
	if len(m.matches) == 0 {
		return
	}
	m.current = (m.current + dir + len(m.matches)) % len(m.matches)
	m.cursor = m.matches[m.current].start
	m.scrollIntoView()
}

func (m *copyMode) toggleSelection(line bool) {
	if m.state == CopyModeSelecting {
		if m.lineSelection == line {
			m.state = CopyModeNavigating
			m.anchor = nil
			return
		}
		m.lineSelection = line
		return
	}
	anchor := m.cursor
	m.anchor = &anchor
	m.lineSelection = line
	m.state = CopyModeSelecting
}

func (m *copyMode) yank() {
	if m.anchor == nil {
		return
	}
	text := m.buf().textInRange(*m.anchor, m.cursor, m.lineSelection)
	if m.lineSelection && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if text != "" && m.t.clipboard != nil {
		if err := m.t.clipboard.Write(text); err != nil {
			tlog.Printf("copy mode clipboard write: %v", err)
		}
		m.t.queueEvent(&EventClipboard{
			EventTerminal: newEventTerminal(m.t),
			text:          text,
		})
	}
	m.exit()
}

func (m *copyMode) moveCursor(dy, dx int) {
	m.cursor.Line += dy
	m.cursor.Col += dx
	m.clampCursor()
	m.scrollIntoView()
}

func (m *copyMode) clampCursor() {
	b := m.buf()
	if m.cursor.Line < 0 {
		m.cursor.Line = 0
	}
	if m.cursor.Line >= len(b.lines) {
		m.cursor.Line = len(b.lines) - 1
	}
	if m.cursor.Line < 0 {
		m.cursor.Line = 0
	}
	if m.cursor.Col < 0 {
		m.cursor.Col = 0
	}
	max := b.viewWidth - 1
	if n := b.lineLen(m.cursor.Line); n-1 < max {
		max = n - 1
	}
	if max < 0 {
		max = 0
	}
	if m.cursor.Col > max {
		m.cursor.Col = max
	}
}

// scrollIntoView adjusts the buffer scroll offset so the copy mode
// cursor stays inside the visible window.
func (m *copyMode) scrollIntoView() {
	b := m.buf()
	vrow := b.convertRawLineToViewLine(m.cursor.Line)
	shown := vrow + b.scrollOffset
	if shown < 0 {
		b.setScrollOffset(-vrow)
	} else if shown >= b.viewHeight {
		off := b.viewHeight - 1 - vrow
		if off < 0 {
			off = 0
		}
		b.setScrollOffset(off)
	}
}

func (m *copyMode) moveToTop() {
	m.cursor = position{Line: 0, Col: 0}
	m.clampCursor()
	m.scrollIntoView()
}

func (m *copyMode) moveToBottom() {
	b := m.buf()
	m.cursor = position{Line: len(b.lines) - 1, Col: 0}
	m.clampCursor()
	m.scrollIntoView()
}

func (m *copyMode) moveToViewRow(row int) {
	b := m.buf()
	m.cursor.Line = b.convertViewLineToRawLine(row) - b.scrollOffset
	m.clampCursor()
}

func (m *copyMode) moveToFirstNonBlank() {
	b := m.buf()
	if m.cursor.Line >= len(b.lines) {
		return
	}
	line := &b.lines[m.cursor.Line]
	col := 0
	for x := 0; x < len(line.cells); x++ {
		r := line.cells[x].r.rune
		if r != 0 && r != ' ' {
			col = x
			break
		}
	}
	m.cursor.Col = col
	m.clampCursor()
	m.scrollIntoView()
}

// wordSpan is one non-blank word of a logical line, as rune offsets.
type wordSpan struct {
	start, end int
}

func wordSpans(text []rune) []wordSpan {
	var spans []wordSpan
	s := string(text)
	state := -1
	offset := 0
	for len(s) > 0 {
		word, rest, newState := uniseg.FirstWordInString(s, state)
		n := utf8.RuneCountInString(word)
		if strings.TrimSpace(word) != "" {
			spans = append(spans, wordSpan{start: offset, end: offset + n - 1})
		}
		offset += n
		s = rest
		state = newState
	}
	return spans
}

// locate finds the logical line holding the cursor and the rune index
// nearest the cursor column within it.
func (m *copyMode) locate(lines []logicalLine) (int, int) {
	for li, ll := range lines {
		for ri, p := range ll.pos {
			if p.Line == m.cursor.Line && p.Col >= m.cursor.Col {
				return li, ri
			}
			if p.Line > m.cursor.Line {
				if ri > 0 {
					return li, ri - 1
				}
				return li, 0
			}
		}
		if len(ll.pos) > 0 && ll.pos[len(ll.pos)-1].Line >= m.cursor.Line {
			return li, len(ll.pos) - 1
		}
	}
	return len(lines) - 1, 0
}

func (m *copyMode) moveWordForward() {
	lines := m.buf().logicalLines()
	li, ri := m.locate(lines)
	for ; li < len(lines); li++ {
		for _, sp := range wordSpans(lines[li].text) {
			if sp.start > ri {
				m.cursor = lines[li].pos[sp.start]
				m.clampCursor()
				m.scrollIntoView()
				return
			}
		}
		ri = -1
	}
}

func (m *copyMode) moveWordBackward() {
	lines := m.buf().logicalLines()
	li, ri := m.locate(lines)
	for ; li >= 0; li-- {
		spans := wordSpans(lines[li].text)
		for i := len(spans) - 1; i >= 0; i-- {
			if spans[i].start < ri {
				m.cursor = lines[li].pos[spans[i].start]
				m.clampCursor()
				m.scrollIntoView()
				return
			}
		}
		if li > 0 {
			ri = len(lines[li-1].text) + 1
		}
	}
}

func (m *copyMode) moveWordEnd() {
	lines := m.buf().logicalLines()
	li, ri := m.locate(lines)
	for ; li < len(lines); li++ {
		for _, sp := range wordSpans(lines[li].text) {
			if sp.end > ri {
				m.cursor = lines[li].pos[sp.end]
				m.clampCursor()
				m.scrollIntoView()
				return
			}
		}
		ri = -1
	}
}

// inSelection reports whether a raw buffer position falls inside the
// active selection, renderer facing.
func (m *copyMode) inSelection(p position) bool {
	if m.anchor == nil {
		return false
	}
	start, end := normalizeRange(*m.anchor, m.cursor)
	if m.lineSelection {
		return p.Line >= start.Line && p.Line <= end.Line
	}
	if p.Line < start.Line || p.Line > end.Line {
		return false
	}
	if p.Line == start.Line && p.Col < start.Col {
		return false
	}
	if p.Line == end.Line && p.Col > end.Col {
		return false
	}
	return true
}
