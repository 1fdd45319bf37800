package vtcore

import (
	"github.com/gdamore/tcell/v2"
)

const tabSize = 8

// defaultScrollback is the number of history lines retained above the
// visible screen on the primary buffer. The alternate buffer keeps none.
const defaultScrollback = 10000

type buffer struct {
	lines          []line
	viewWidth      int
	viewHeight     int
	cursorPosition position // raw coordinates
	cursorAttr     tcell.Style
	cursorShape    tcell.CursorStyle
	saved          *savedCursor
	topMargin      int // view coordinates, see DECSTBM
	bottomMargin   int
	scrollOffset   int // lines scrolled back from the bottom for viewing
	maxLines       int // history cap plus view height
	tabStops       []int
	charsets       []*map[rune]rune // G0-G3, nil means US-ASCII (no conversion)
	currentCharset int
	singleShift    int // pending SS2/SS3 charset index, -1 when none
	modes          *modes // shared with the owning terminal
	lastPrinted    *measuredRune // for REP
	placements     []*placement
}

func newBuffer(width, height, scrollback int, m *modes) *buffer {
	b := &buffer{
		lines:        []line{},
		viewWidth:    width,
		viewHeight:   height,
		maxLines:     scrollback + height,
		topMargin:    0,
		bottomMargin: height - 1,
		cursorAttr:   tcell.StyleDefault,
		charsets:     []*map[rune]rune{nil, nil, nil, nil},
		singleShift:  -1,
		modes:        m,
		cursorShape:  tcell.CursorStyleDefault,
	}
	return b
}

// raw <-> view line conversion. View line 0 is the top of the on-screen
// window, raw indexes span scrollback plus screen.
func (b *buffer) convertViewLineToRawLine(viewLine int) int {
	rawHeight := len(b.lines)
	if b.viewHeight > rawHeight {
		return viewLine
	}
	return viewLine + rawHeight - b.viewHeight
}

func (b *buffer) convertRawLineToViewLine(rawLine int) int {
	rawHeight := len(b.lines)
	if b.viewHeight > rawHeight {
		return rawLine
	}
	return rawLine - (rawHeight - b.viewHeight)
}

func (b *buffer) viewWidthValue() int  { return b.viewWidth }
func (b *buffer) viewHeightValue() int { return b.viewHeight }

func (b *buffer) rawLineCount() int {
	return len(b.lines)
}

func (b *buffer) line(raw int) *line {
	if raw < 0 || raw >= len(b.lines) {
		return nil
	}
	return &b.lines[raw]
}

func (b *buffer) getCell(viewCol, viewRow int) *cell {
	return b.getRawCell(viewCol, b.convertViewLineToRawLine(viewRow)-b.scrollOffset)
}

func (b *buffer) getRawCell(col, rawLine int) *cell {
	if rawLine < 0 || rawLine >= len(b.lines) {
		return nil
	}
	l := &b.lines[rawLine]
	if col < 0 || col >= len(l.cells) {
		return nil
	}
	return &l.cells[col]
}

func (b *buffer) cursorColumn() int {
	return b.cursorPosition.Col
}

// cursorLineAbsolute returns the cursor line in view coordinates ignoring
// origin mode.
func (b *buffer) cursorLineAbsolute() int {
	return b.convertRawLineToViewLine(b.cursorPosition.Line)
}

// cursorLine returns the cursor line; in origin mode it is relative to the
// top margin.
func (b *buffer) cursorLine() int {
	if b.modes.OriginMode {
		return b.cursorLineAbsolute() - b.topMargin
	}
	return b.cursorLineAbsolute()
}

func (b *buffer) hasScrollableRegion() bool {
	return b.topMargin > 0 || b.bottomMargin < b.viewHeight-1
}

func (b *buffer) inScrollableRegion() bool {
	cursorVY := b.cursorLineAbsolute()
	return b.hasScrollableRegion() && cursorVY >= b.topMargin && cursorVY <= b.bottomMargin
}

// NOTE: bottom is exclusive
func (b *buffer) getAreaScrollRange() (top int, bottom int) {
	top = b.convertViewLineToRawLine(b.topMargin)
	bottom = b.convertViewLineToRawLine(b.bottomMargin) + 1
	if bottom > len(b.lines) {
		bottom = len(b.lines)
	}
	return top, bottom
}

func (b *buffer) areaScrollDown(lines int) {
	top, bottom := b.getAreaScrollRange()

	for i := bottom; i > top; {
		i--
		if i >= top+lines {
			b.lines[i] = b.lines[i-lines]
		} else {
			b.lines[i] = newLine()
		}
	}
	b.dropPlacementsInRows(top, bottom)
}

func (b *buffer) areaScrollUp(lines int) {
	top, bottom := b.getAreaScrollRange()

	for i := top; i < bottom; i++ {
		from := i + lines
		if from < bottom {
			b.lines[i] = b.lines[from]
		} else {
			b.lines[i] = newLine()
		}
	}
	b.dropPlacementsInRows(top, bottom)
}

// scrollUp scrolls the scroll region up n lines without moving the
// cursor relative to the view. When the region spans the whole screen
// the rows leaving the top are retained as scrollback, like index; a
// restricted region rotates in place and its top rows are discarded.
func (b *buffer) scrollUp(n int) {
	if b.hasScrollableRegion() {
		b.areaScrollUp(n)
		return
	}
	for len(b.lines) < b.viewHeight {
		b.lines = append(b.lines, newLine())
	}
	for i := 0; i < n; i++ {
		b.lines = append(b.lines, newLine())
	}
	b.cursorPosition.Line += n
	b.evictOverflow()
}

func (b *buffer) saveCursor() {
	charsets := make([]*map[rune]rune, len(b.charsets))
	copy(charsets, b.charsets)
	b.saved = &savedCursor{
		position:       b.cursorPosition,
		attr:           b.cursorAttr,
		charsets:       charsets,
		currentCharset: b.currentCharset,
		originMode:     b.modes.OriginMode,
		autoWrap:       b.modes.AutoWrap,
	}
}

func (b *buffer) restoreCursor() {
	if b.saved == nil {
		b.setPosition(0, 0)
		return
	}
	b.cursorPosition = b.saved.position
	if b.cursorPosition.Line >= len(b.lines) {
		b.cursorPosition.Line = b.convertViewLineToRawLine(b.viewHeight - 1)
	}
	b.cursorAttr = b.saved.attr
	b.charsets = make([]*map[rune]rune, len(b.saved.charsets))
	copy(b.charsets, b.saved.charsets)
	b.currentCharset = b.saved.currentCharset
	b.modes.OriginMode = b.saved.originMode
	b.modes.AutoWrap = b.saved.autoWrap
}

func (b *buffer) getCursorAttr() *tcell.Style {
	return &b.cursorAttr
}

// index moves the active position down one line without changing the column.
// At the bottom margin it scrolls instead; when the scroll region is the full
// screen the top line is retained as scrollback rather than discarded.
func (b *buffer) index() {
	if b.inScrollableRegion() {
		if b.cursorLineAbsolute() < b.bottomMargin {
			b.cursorPosition.Line++
		} else {
			b.areaScrollUp(1)
		}
		return
	}

	if b.cursorLineAbsolute() >= b.viewHeight-1 {
		b.lines = append(b.lines, newLine())
		b.evictOverflow()
	}
	// lines are materialized lazily, so the target row may not exist yet
	b.cursorPosition.Line++
}

// evictOverflow enforces the scrollback cap, discarding the oldest lines
// first. Image placements anchored on evicted lines are dropped with them.
func (b *buffer) evictOverflow() {
	max := b.getMaxLines()
	if len(b.lines) <= max {
		return
	}
	n := len(b.lines) - max
	copy(b.lines, b.lines[n:])
	b.lines = b.lines[:max]
	if b.cursorPosition.Line >= n {
		b.cursorPosition.Line -= n
	} else {
		b.cursorPosition.Line = 0
	}
	b.shiftPlacements(n)
}

func (b *buffer) reverseIndex() {
	if b.cursorLineAbsolute() == b.topMargin {
		b.areaScrollDown(1)
	} else if b.cursorLineAbsolute() > 0 {
		b.cursorPosition.Line--
	}
}

func (b *buffer) getMaxLines() int {
	if b.maxLines < b.viewHeight {
		return b.viewHeight
	}
	return b.maxLines
}

// pendingWrap reports the deferred-wrap state: the cursor sits one past the
// last column after printing there, and the wrap happens on the next
// printable character.
func (b *buffer) pendingWrap() bool {
	return b.cursorPosition.Col == b.viewWidth
}

// write prints runes at the cursor, handling deferred wrap, wide glyph
// pairing and combining marks, and advances the cursor.
func (b *buffer) write(runes ...measuredRune) {
	// scroll to bottom on output
	b.scrollOffset = 0

	for _, r := range runes {
		if r.width == 0 {
			b.combine(r.rune)
			continue
		}

		if b.cursorPosition.Col+r.width > b.viewWidth {
			if !b.modes.AutoWrap {
				// no more room and wrapping is disabled: overwrite
				// the final column in place
				b.cursorPosition.Col = b.viewWidth - r.width
				if b.cursorPosition.Col < 0 {
					b.cursorPosition.Col = 0
				}
				b.writeAtCursor(r)
				b.cursorPosition.Col = b.viewWidth - 1
				continue
			}
			b.newLineEx(true)
			b.getCurrentLine().wrapped = true
		}

		b.writeAtCursor(r)
		b.cursorPosition.Col += r.width
		printed := r
		b.lastPrinted = &printed
	}
}

func (b *buffer) writeAtCursor(r measuredRune) {
	line := b.getCurrentLine()
	col := b.cursorPosition.Col

	for col+r.width > len(line.cells) {
		line.append(b.defaultCell())
	}

	if b.modes.InsertMode {
		blanks := make([]cell, r.width)
		for i := range blanks {
			blanks[i] = b.defaultCell()
		}
		line.cells = append(line.cells[:col], append(blanks, line.cells[col:]...)...)
		if len(line.cells) > b.viewWidth {
			line.cells = line.cells[:b.viewWidth]
		}
		for col+r.width > len(line.cells) {
			line.append(b.defaultCell())
		}
	}

	b.clearWidePair(line, col)
	if r.width == 2 {
		b.clearWidePair(line, col+1)
	}

	line.cells[col].setRune(r)
	line.cells[col].attr = b.cursorAttr
	if r.width == 2 {
		line.cells[col+1].setRune(measuredRune{})
		line.cells[col+1].attr = b.cursorAttr
	}

	b.dropPlacementsAt(b.cursorPosition.Line, col)
}

// clearWidePair blanks the counterpart cell when an existing wide glyph is
// partially overwritten, so no orphaned halves remain.
func (b *buffer) clearWidePair(line *line, col int) {
	if col >= len(line.cells) {
		return
	}
	if line.cells[col].r.width == 2 && col+1 < len(line.cells) {
		_, bg, _ := line.cells[col+1].attr.Decompose()
		line.cells[col+1].erase(bg)
	}
	if line.cells[col].r.rune == 0 && col > 0 && line.cells[col-1].r.width == 2 {
		_, bg, _ := line.cells[col-1].attr.Decompose()
		line.cells[col-1].erase(bg)
	}
}

// combine attaches a zero-width rune to the most recently printed cell. A
// variation selector 16 promotes a narrow base glyph to wide, emoji style.
func (b *buffer) combine(r rune) {
	line := b.getCurrentLine()
	col := b.cursorPosition.Col - 1
	if b.pendingWrap() {
		col = b.viewWidth - 1
	}
	if col > 0 && col < len(line.cells) && line.cells[col].r.rune == 0 && line.cells[col-1].r.width == 2 {
		col-- // placeholder half, the base glyph sits to the left
	}
	if col < 0 || col >= len(line.cells) {
		return
	}
	cell := &line.cells[col]
	cell.appendCombining(r)
	if r == 0xfe0f && cell.r.width == 1 {
		cell.r.width = 2
		if col+1 < b.viewWidth {
			for col+1 >= len(line.cells) {
				line.append(b.defaultCell())
			}
			line.cells[col+1].setRune(measuredRune{})
			line.cells[col+1].attr = cell.attr
			if b.cursorPosition.Col == col+1 {
				b.cursorPosition.Col++
			}
		}
	}
}

func (b *buffer) backspace() {
	if b.cursorPosition.Col == 0 {
		line := b.getCurrentLine()
		if line.wrapped {
			b.movePosition(b.viewWidth-1, -1)
		}
	} else if b.pendingWrap() {
		b.movePosition(-2, 0)
	} else {
		b.movePosition(-1, 0)
	}
}

func (b *buffer) carriageReturn() {
	b.cursorPosition.Col = 0
}

func (b *buffer) tab() {
	tabStop := b.getNextTabStopAfter(b.cursorPosition.Col)
	for b.cursorPosition.Col < tabStop && b.cursorPosition.Col < b.viewWidth-1 {
		b.write(measuredRune{rune: ' ', width: 1})
	}
}

func (b *buffer) getNextTabStopAfter(col int) int {
	defaultStop := col + (tabSize - (col % tabSize))
	if defaultStop == col {
		defaultStop += tabSize
	}

	var low int
	for _, stop := range b.tabStops {
		if stop > col {
			if stop < low || low == 0 {
				low = stop
			}
		}
	}

	if low == 0 {
		return defaultStop
	}
	return low
}

func (b *buffer) getPrevTabStopBefore(col int) int {
	defaultStop := col - (col % tabSize)
	if defaultStop == col {
		defaultStop -= tabSize
	}
	if defaultStop < 0 {
		defaultStop = 0
	}

	best := -1
	for _, stop := range b.tabStops {
		if stop < col && stop > best {
			best = stop
		}
	}
	if best < 0 {
		return defaultStop
	}
	return best
}

func (b *buffer) newLine() {
	b.newLineEx(false)
}

func (b *buffer) newLineEx(forceCursorToMargin bool) {
	if !b.modes.LineFeedMode || forceCursorToMargin {
		b.cursorPosition.Col = 0
	}
	b.index()
}

func (b *buffer) verticalTab() {
	b.index()
}

func (b *buffer) movePosition(x int, y int) {
	toX := b.cursorColumn() + x
	if toX < 0 {
		toX = 0
	}
	toY := b.cursorLine() + y
	if toY < 0 {
		toY = 0
	}
	b.setPosition(toX, toY)
}

func (b *buffer) setPosition(col int, viewLine int) {
	useCol := col
	useLine := viewLine
	maxLine := b.viewHeight - 1

	if b.modes.OriginMode {
		useLine += b.topMargin
		maxLine = b.bottomMargin
	}
	if useLine > maxLine {
		useLine = maxLine
	}
	if useCol >= b.viewWidth {
		useCol = b.viewWidth - 1
	}
	if useCol < 0 {
		useCol = 0
	}

	b.cursorPosition.Col = useCol
	b.cursorPosition.Line = b.convertViewLineToRawLine(useLine)
}

func (b *buffer) getVisibleLines() []line {
	lines := []line{}
	for i := len(b.lines) - b.viewHeight; i < len(b.lines); i++ {
		y := i - b.scrollOffset
		if y >= 0 && y < len(b.lines) {
			lines = append(lines, b.lines[y])
		}
	}
	return lines
}

// clear pushes the visible screen into history and presents a blank one,
// preserving scrollback.
func (b *buffer) clear() {
	for i := 0; i < b.viewHeight; i++ {
		b.lines = append(b.lines, newLine())
	}
	b.evictOverflow()
	b.placements = nil
	b.setPosition(0, 0)
}

// getCurrentLine returns the line under the cursor, extending the buffer if
// the screen is not fully populated yet.
func (b *buffer) getCurrentLine() *line {
	return b.getViewLine(b.cursorLineAbsolute())
}

func (b *buffer) getViewLine(index int) *line {
	if index >= b.viewHeight {
		return &b.lines[len(b.lines)-1]
	}

	if len(b.lines) < b.viewHeight {
		for index >= len(b.lines) {
			b.lines = append(b.lines, newLine())
		}
		return &b.lines[index]
	}

	if raw := b.convertViewLineToRawLine(index); raw < len(b.lines) {
		return &b.lines[raw]
	}
	return &b.lines[len(b.lines)-1]
}

func (b *buffer) eraseRange(line *line, from, to int) {
	if from < 0 {
		from = 0
	}
	if to > len(line.cells) {
		to = len(line.cells)
	}
	if from >= to {
		return
	}
	// never leave an orphaned half of a wide glyph at the boundaries
	if from > 0 && line.cells[from].r.rune == 0 && line.cells[from-1].r.width == 2 {
		from--
	}
	if to < len(line.cells) && line.cells[to-1].r.width == 2 {
		to++
		if to > len(line.cells) {
			to = len(line.cells)
		}
	}
	_, bg, _ := b.cursorAttr.Decompose()
	for i := from; i < to; i++ {
		line.cells[i].erase(bg)
	}
}

func (b *buffer) eraseLine() {
	line := b.getCurrentLine()
	for len(line.cells) < b.viewWidth {
		line.append(b.defaultCell())
	}
	b.eraseRange(line, 0, len(line.cells))
	b.dropPlacementsOnLine(b.cursorPosition.Line)
}

func (b *buffer) eraseLineToCursor() {
	line := b.getCurrentLine()
	b.eraseRange(line, 0, b.cursorPosition.Col+1)
}

func (b *buffer) eraseLineFromCursor() {
	line := b.getCurrentLine()
	for len(line.cells) < b.viewWidth {
		line.append(b.defaultCell())
	}
	b.eraseRange(line, b.cursorPosition.Col, len(line.cells))
}

func (b *buffer) eraseDisplay() {
	for i := 0; i < b.viewHeight; i++ {
		rawLine := b.convertViewLineToRawLine(i)
		if rawLine < len(b.lines) {
			b.lines[rawLine].cells = []cell{}
			b.lines[rawLine].wrapped = false
		}
	}
	b.placements = nil
}

func (b *buffer) eraseDisplayFromCursor() {
	line := b.getCurrentLine()

	max := b.cursorPosition.Col
	if max > len(line.cells) {
		max = len(line.cells)
	}
	line.cells = line.cells[:max]

	for rawLine := b.cursorPosition.Line + 1; rawLine < len(b.lines); rawLine++ {
		b.lines[rawLine].cells = []cell{}
		b.lines[rawLine].wrapped = false
		b.dropPlacementsOnLine(rawLine)
	}
}

func (b *buffer) eraseDisplayToCursor() {
	line := b.getCurrentLine()
	b.eraseRange(line, 0, b.cursorPosition.Col+1)

	for i := 0; i < b.cursorLineAbsolute(); i++ {
		rawLine := b.convertViewLineToRawLine(i)
		if rawLine < len(b.lines) {
			b.lines[rawLine].cells = []cell{}
			b.lines[rawLine].wrapped = false
			b.dropPlacementsOnLine(rawLine)
		}
	}
}

func (b *buffer) deleteChars(n int) {
	line := b.getCurrentLine()
	if b.cursorPosition.Col >= len(line.cells) {
		return
	}
	b.clearWidePair(line, b.cursorPosition.Col)
	before := line.cells[:b.cursorPosition.Col]
	if b.cursorPosition.Col+n >= len(line.cells) {
		n = len(line.cells) - b.cursorPosition.Col
	}
	after := line.cells[b.cursorPosition.Col+n:]
	line.cells = append(before, after...)
}

func (b *buffer) eraseCharacters(n int) {
	line := b.getCurrentLine()
	b.eraseRange(line, b.cursorPosition.Col, b.cursorPosition.Col+n)
}

func (b *buffer) insertBlankCharacters(count int) {
	line := b.getCurrentLine()
	if b.cursorPosition.Col >= len(line.cells) {
		return
	}
	b.clearWidePair(line, b.cursorPosition.Col)
	for i := 0; i < count; i++ {
		cells := line.cells
		line.cells = append(cells[:b.cursorPosition.Col], append([]cell{b.defaultCell()}, cells[b.cursorPosition.Col:]...)...)
	}
	if len(line.cells) > b.viewWidth {
		line.cells = line.cells[:b.viewWidth]
	}
}

func (b *buffer) insertLines(count int) {
	if b.hasScrollableRegion() && !b.inScrollableRegion() {
		// no effect outside the scrollable region
		return
	}
	b.cursorPosition.Col = 0
	for i := 0; i < count; i++ {
		b.areaScrollDownFromCursor(1)
	}
}

func (b *buffer) deleteLines(count int) {
	if b.hasScrollableRegion() && !b.inScrollableRegion() {
		return
	}
	b.cursorPosition.Col = 0
	for i := 0; i < count; i++ {
		b.areaScrollUpFromCursor(1)
	}
}

// IL/DL operate on the region between the cursor line and the bottom margin.
func (b *buffer) areaScrollDownFromCursor(lines int) {
	top := b.cursorPosition.Line
	bottom := b.convertViewLineToRawLine(b.bottomMargin) + 1
	if bottom > len(b.lines) {
		bottom = len(b.lines)
	}
	for i := bottom; i > top; {
		i--
		if i >= top+lines {
			b.lines[i] = b.lines[i-lines]
		} else {
			b.lines[i] = newLine()
		}
	}
	b.dropPlacementsInRows(top, bottom)
}

func (b *buffer) areaScrollUpFromCursor(lines int) {
	top := b.cursorPosition.Line
	bottom := b.convertViewLineToRawLine(b.bottomMargin) + 1
	if bottom > len(b.lines) {
		bottom = len(b.lines)
	}
	for i := top; i < bottom; i++ {
		from := i + lines
		if from < bottom {
			b.lines[i] = b.lines[from]
		} else {
			b.lines[i] = newLine()
		}
	}
	b.dropPlacementsInRows(top, bottom)
}

// repeatLastCharacter implements REP.
func (b *buffer) repeatLastCharacter(n int) {
	if b.lastPrinted == nil {
		return
	}
	for i := 0; i < n; i++ {
		b.write(*b.lastPrinted)
	}
}

func (b *buffer) setVerticalMargins(top, bottom int) {
	b.topMargin = top
	b.bottomMargin = bottom
}

func (b *buffer) resetVerticalMargins(height int) {
	b.setVerticalMargins(0, height-1)
}

func (b *buffer) defaultCell() cell {
	_, bg, _ := b.cursorAttr.Decompose()
	return cell{attr: tcell.StyleDefault.Background(bg)}
}

func (b *buffer) tabReset() {
	b.tabStops = nil
}

func (b *buffer) tabSetAtCursor() {
	b.tabStops = append(b.tabStops, b.cursorPosition.Col)
}

func (b *buffer) tabClearAtCursor() {
	var filtered []int
	for _, stop := range b.tabStops {
		if stop != b.cursorPosition.Col {
			filtered = append(filtered, stop)
		}
	}
	b.tabStops = filtered
}

func (b *buffer) getScrollOffset() int {
	return b.scrollOffset
}

func (b *buffer) setScrollOffset(offset int) {
	max := len(b.lines) - b.viewHeight
	if max < 0 {
		max = 0
	}
	if offset < 0 {
		offset = 0
	}
	if offset > max {
		offset = max
	}
	b.scrollOffset = offset
}

func (b *buffer) scrollToEnd() {
	b.scrollOffset = 0
}

func (b *buffer) scrollUpView(lines int) {
	b.setScrollOffset(b.scrollOffset + lines)
}

func (b *buffer) scrollDownView(lines int) {
	b.setScrollOffset(b.scrollOffset - lines)
}
