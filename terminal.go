package vtcore

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"
)

const (
	defaultCellWidth  = 8
	defaultCellHeight = 16
)

// Clipboard is the host hookup for OSC 52 and copy mode yanks. A nil
// clipboard makes writes silent no-ops and queries answer empty.
type Clipboard interface {
	Write(text string) error
	Read() (string, error)
}

// Terminal is a virtual terminal: it interprets the byte stream a child
// process writes and maintains the screen, scrollback, images and title
// that stream describes. It implements io.Writer so it can be fed
// directly, or Run can own the pty life cycle.
type Terminal struct {
	// TERM is the value handed to the child's environment. Defaults to
	// xterm-256color.
	TERM string

	mu sync.Mutex

	primary *buffer
	alt     *buffer
	active  *buffer

	modes        modes
	mouseMode    mouseMode
	mouseExtMode mouseExtMode
	mouseBtn     tcell.ButtonMask

	palette  *palette
	parser   *parser
	kitty    *kittyDecoder
	copyMode *copyMode

	// dcs routing for the sequence currently in flight
	sixel   *sixelDecoder
	dcsKind dcsKind
	dcsBuf  []byte

	clipboard Clipboard
	title     string
	cwd       string

	cellWidth  int
	cellHeight int
	scrollback int

	cmd          *exec.Cmd
	pty          *os.File
	eventHandler func(tcell.Event)

	// events raised while the interpreter lock is held, delivered by the
	// public entry point once the lock is released
	queued []tcell.Event
}

type dcsKind int

const (
	dcsNone dcsKind = iota
	dcsSixel
	dcsRequestStatus // DECRQSS
	dcsTermcap       // XTGETTCAP
	dcsDiscard
)

// Option configures a Terminal at construction.
type Option func(*Terminal)

// WithSize sets the initial view dimensions in cells.
func WithSize(cols, rows int) Option {
	return func(t *Terminal) {
		t.primary = newBuffer(cols, rows, t.scrollback, &t.modes)
		t.alt = newBuffer(cols, rows, 0, &t.modes)
		t.active = t.primary
	}
}

// WithScrollback caps the primary screen history in lines.
func WithScrollback(lines int) Option {
	return func(t *Terminal) {
		t.scrollback = lines
		w, h := t.primary.viewWidth, t.primary.viewHeight
		t.primary = newBuffer(w, h, lines, &t.modes)
		t.active = t.primary
	}
}

// WithCellPixelSize tells the terminal how large the host renders one
// cell, used to map image pixels onto the grid.
func WithCellPixelSize(w, h int) Option {
	return func(t *Terminal) {
		if w > 0 {
			t.cellWidth = w
		}
		if h > 0 {
			t.cellHeight = h
		}
	}
}

// WithClipboard connects OSC 52 and copy mode yanks to the host
// clipboard.
func WithClipboard(c Clipboard) Option {
	return func(t *Terminal) {
		t.clipboard = c
	}
}

// WithTERM overrides the TERM variable passed to the child.
func WithTERM(name string) Option {
	return func(t *Terminal) {
		t.TERM = name
	}
}

func New(opts ...Option) *Terminal {
	t := &Terminal{
		TERM:       "xterm-256color",
		cellWidth:  defaultCellWidth,
		cellHeight: defaultCellHeight,
		scrollback: defaultScrollback,
		palette:    newPalette(),
		kitty:      newKittyDecoder(),
		eventHandler: func(tcell.Event) {
		},
	}
	t.modes = defaultModes()
	t.primary = newBuffer(80, 24, t.scrollback, &t.modes)
	t.alt = newBuffer(80, 24, 0, &t.modes)
	t.active = t.primary
	t.parser = newParser(t)
	t.copyMode = newCopyMode(t)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func defaultModes() modes {
	return modes{
		ShowCursor: true,
		AutoWrap:   true,
	}
}

func (t *Terminal) activeBuffer() *buffer {
	return t.active
}

// Write feeds child output through the interpreter. It never fails;
// malformed sequences are consumed and logged.
func (t *Terminal) Write(data []byte) (int, error) {
	t.mu.Lock()
	t.parser.advance(data)
	queued := t.drainEvents()
	t.mu.Unlock()
	for _, ev := range queued {
		t.postEvent(ev)
	}
	t.postEvent(&EventRedraw{newEventTerminal(t)})
	return len(data), nil
}

// print places translated text at the cursor.
func (t *Terminal) print(run []rune) {
	b := t.active
	mrs := make([]measuredRune, 0, len(run))
	for _, r := range run {
		idx := b.currentCharset
		if b.singleShift >= 0 {
			idx = b.singleShift
			b.singleShift = -1
		}
		if table := b.charsets[idx]; table != nil {
			if mapped, ok := (*table)[r]; ok {
				r = mapped
			}
		}
		mrs = append(mrs, measure(r))
	}
	b.write(mrs...)
}

// execute handles a C0 control byte.
func (t *Terminal) execute(c byte) {
	b := t.active
	switch c {
	case 0x05: // ENQ, no answerback configured
	case 0x07:
		t.queueEvent(&EventBell{newEventTerminal(t)})
	case 0x08:
		b.backspace()
	case 0x09:
		b.tab()
	case 0x0a, 0x0b, 0x0c:
		b.index()
		if t.modes.LineFeedMode {
			b.carriageReturn()
		}
	case 0x0d:
		b.carriageReturn()
	case 0x0e:
		b.currentCharset = 1
	case 0x0f:
		b.currentCharset = 0
	default:
		tlog.Printf("unhandled control byte 0x%02x", c)
	}
}

func (t *Terminal) dcsHook(private byte, params []string, intermediates []byte, final byte) {
	t.sixel = nil
	t.dcsBuf = t.dcsBuf[:0]
	switch {
	case final == 'q' && private == 0 && len(intermediates) == 0:
		t.dcsKind = dcsSixel
		t.sixel = newSixelDecoder(params)
	case final == 'q' && len(intermediates) == 1 && intermediates[0] == '$':
		t.dcsKind = dcsRequestStatus
	case final == 'q' && len(intermediates) == 1 && intermediates[0] == '+':
		t.dcsKind = dcsTermcap
	default:
		t.dcsKind = dcsDiscard
		tlog.Printf("unhandled DCS final %q intermediates %q", final, intermediates)
	}
}

func (t *Terminal) dcsPut(c byte) {
	switch t.dcsKind {
	case dcsSixel:
		t.sixel.put(c)
	case dcsRequestStatus, dcsTermcap:
		if len(t.dcsBuf) < 256 {
			t.dcsBuf = append(t.dcsBuf, c)
		}
	}
}

func (t *Terminal) dcsUnhook(aborted bool) {
	kind := t.dcsKind
	t.dcsKind = dcsNone
	switch kind {
	case dcsSixel:
		dec := t.sixel
		t.sixel = nil
		if aborted || dec == nil {
			return
		}
		if img := dec.finish(); img != nil {
			t.placeImage(img, 0, 0)
		}
	case dcsRequestStatus:
		if !aborted {
			// no setting reports implemented; answer invalid
			t.writeToPty([]byte("\x1bP0$r\x1b\\"))
		}
	case dcsTermcap:
		if !aborted {
			t.writeToPty([]byte("\x1bP0+r\x1b\\"))
		}
	}
}

func (t *Terminal) apcDispatch(data []byte) {
	if len(data) > 0 && data[0] == 'G' {
		t.handleKitty(data[1:])
		return
	}
	tlog.Printf("unhandled APC payload (%d bytes)", len(data))
}

// placeImage anchors a decoded image at the cursor and advances the
// cursor past it, scrolling as needed.
func (t *Terminal) placeImage(img *image.RGBA, imageID, placementID uint32) {
	b := t.active
	bounds := img.Bounds()
	cols := (bounds.Dx() + t.cellWidth - 1) / t.cellWidth
	rows := (bounds.Dy() + t.cellHeight - 1) / t.cellHeight
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	b.addPlacement(&placement{
		imageID:     imageID,
		placementID: placementID,
		img:         img,
		line:        b.cursorPosition.Line,
		col:         b.cursorColumn(),
		rows:        rows,
		cols:        cols,
	})
	for i := 0; i < rows; i++ {
		b.index()
	}
	b.carriageReturn()
}

func (t *Terminal) useAltBuffer() {
	if t.active == t.alt {
		return
	}
	t.alt.resizeView(t.primary.viewWidth, t.primary.viewHeight)
	t.active = t.alt
}

func (t *Terminal) useMainBuffer() {
	if t.active == t.primary {
		return
	}
	t.primary.resizeView(t.alt.viewWidth, t.alt.viewHeight)
	t.active = t.primary
}

// reset implements RIS: everything except the view size goes back to
// power-on defaults.
func (t *Terminal) reset() {
	w, h := t.active.viewWidth, t.active.viewHeight
	t.modes = defaultModes()
	t.primary = newBuffer(w, h, t.scrollback, &t.modes)
	t.alt = newBuffer(w, h, 0, &t.modes)
	t.active = t.primary
	t.palette = newPalette()
	t.kitty = newKittyDecoder()
	t.mouseMode = mouseModeNone
	t.mouseExtMode = mouseExtNone
	t.title = ""
}

func (t *Terminal) writeToPty(data []byte) {
	if t.pty == nil {
		return
	}
	if _, err := t.pty.Write(data); err != nil {
		tlog.Printf("pty write: %v", err)
	}
}

func (t *Terminal) postEvent(ev tcell.Event) {
	t.eventHandler(ev)
}

// queueEvent records an event raised while t.mu is held. Handlers may
// call back into the terminal synchronously, so delivery waits until
// the entry point has released the lock.
func (t *Terminal) queueEvent(ev tcell.Event) {
	t.queued = append(t.queued, ev)
}

func (t *Terminal) drainEvents() []tcell.Event {
	queued := t.queued
	t.queued = nil
	return queued
}

// Attach registers the callback receiving EventRedraw, EventTitle,
// EventBell, EventClipboard and EventClosed.
func (t *Terminal) Attach(fn func(ev tcell.Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.eventHandler = fn
}

func (t *Terminal) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.eventHandler = func(ev tcell.Event) {
	}
}

// Resize changes the view dimensions, reflowing the primary screen and
// informing the child process.
func (t *Terminal) Resize(cols, rows int) {
	t.mu.Lock()
	t.primary.resizeView(cols, rows)
	t.alt.resizeView(cols, rows)
	t.mu.Unlock()

	if t.pty != nil {
		_ = pty.Setsize(t.pty, &pty.Winsize{
			Cols: uint16(cols),
			Rows: uint16(rows),
		})
	}
	t.postEvent(&EventRedraw{newEventTerminal(t)})
}

// Run starts cmd on a pty sized to the terminal and pumps its output
// through the interpreter until the child exits. When stdin is a real
// terminal it is placed in raw mode for the duration.
func (t *Terminal) Run(cmd *exec.Cmd) error {
	if cmd == nil {
		return fmt.Errorf("no command to run")
	}
	t.cmd = cmd
	cmd.Env = append(os.Environ(), "TERM="+t.TERM)

	t.mu.Lock()
	winsize := pty.Winsize{
		Cols: uint16(t.active.viewWidth),
		Rows: uint16(t.active.viewHeight),
	}
	t.mu.Unlock()

	var err error
	t.pty, err = pty.StartWithAttrs(cmd, &winsize, &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    1,
	})
	if err != nil {
		return err
	}
	defer func() { _ = t.pty.Close() }()

	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err == nil {
			defer func() { _ = term.Restore(fd, oldState) }()
		}
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := t.pty.Read(buf)
		if n > 0 {
			_, _ = t.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	t.postEvent(&EventClosed{newEventTerminal(t)})
	return cmd.Wait()
}

// Close terminates the child process, if any.
func (t *Terminal) Close() {
	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	if t.pty != nil {
		_ = t.pty.Close()
	}
}

// HandleEvent forwards a host tcell event to the terminal: keys and
// paste become pty input, mouse events are reported when the child asked
// for them. While copy mode is active, key events drive it instead. The
// return value reports whether the event was consumed.
func (t *Terminal) HandleEvent(ev tcell.Event) bool {
	t.mu.Lock()
	handled := t.handleEventLocked(ev)
	queued := t.drainEvents()
	t.mu.Unlock()
	for _, qe := range queued {
		t.postEvent(qe)
	}
	return handled
}

func (t *Terminal) handleEventLocked(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if t.copyMode.state != CopyModeInactive {
			return t.copyMode.handleKey(ev)
		}
		if s := t.keyCode(ev); s != "" {
			t.writeToPty([]byte(s))
			return true
		}
	case *tcell.EventPaste:
		if !t.modes.BracketedPaste {
			return false
		}
		if ev.Start() {
			t.writeToPty([]byte("\x1b[200~"))
		} else {
			t.writeToPty([]byte("\x1b[201~"))
		}
		return true
	case *tcell.EventMouse:
		if s := t.handleMouse(ev); s != "" {
			t.writeToPty([]byte(s))
			return true
		}
	}
	return false
}

// EnterCopyMode freezes the screen and begins vi style navigation.
func (t *Terminal) EnterCopyMode() {
	t.mu.Lock()
	t.copyMode.enter()
	t.mu.Unlock()
	t.postEvent(&EventRedraw{newEventTerminal(t)})
}

// ExitCopyMode leaves copy mode and snaps the view back to the live
// screen bottom.
func (t *Terminal) ExitCopyMode() {
	t.mu.Lock()
	if t.copyMode.state != CopyModeInactive {
		t.copyMode.exit()
	}
	queued := t.drainEvents()
	t.mu.Unlock()
	for _, ev := range queued {
		t.postEvent(ev)
	}
}

// CopyModeState reports what copy mode is currently doing.
func (t *Terminal) CopyModeState() CopyModeState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyMode.state
}

// SearchQuery returns the pattern being typed at the copy mode search
// prompt, for rendering a status line.
func (t *Terminal) SearchQuery() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.copyMode.query)
}

// Cell returns a snapshot of the visible cell at view coordinates,
// accounting for the scrollback offset. Selection shading for copy mode
// is reported through the Selected field.
func (t *Terminal) Cell(col, row int) Cell {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.active
	c := b.getCell(col, row)
	if c == nil {
		return Cell{Content: ' ', Width: 1, Style: tcell.StyleDefault}
	}
	out := Cell{
		Content:   c.r.rune,
		Combining: append([]rune(nil), c.combining...),
		Width:     c.r.width,
		Style:     c.attr,
	}
	if out.Content == 0 {
		out.Content = ' '
		out.Width = 1
	}
	if t.copyMode.state != CopyModeInactive {
		raw := position{
			Line: b.convertViewLineToRawLine(row) - b.scrollOffset,
			Col:  col,
		}
		if t.copyMode.inSelection(raw) {
			out.Selected = true
		}
	}
	return out
}

// Size returns the view dimensions in cells.
func (t *Terminal) Size() (cols, rows int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active.viewWidth, t.active.viewHeight
}

// Cursor returns the cursor position in view coordinates, its shape and
// whether it should be drawn. In copy mode the copy cursor is reported
// instead.
func (t *Terminal) Cursor() (col, row int, style tcell.CursorStyle, visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.active
	if t.copyMode.state != CopyModeInactive {
		vrow := b.convertRawLineToViewLine(t.copyMode.cursor.Line) + b.scrollOffset
		return t.copyMode.cursor.Col, vrow, tcell.CursorStyleSteadyBlock, true
	}
	style = b.cursorShape
	if style == 0 {
		if t.modes.BlinkingCursor {
			style = tcell.CursorStyleBlinkingBlock
		} else {
			style = tcell.CursorStyleDefault
		}
	}
	visible = t.modes.ShowCursor && b.scrollOffset == 0
	return b.cursorColumn(), b.cursorLine(), style, visible
}

// Title returns the window title most recently set with OSC 0/2.
func (t *Terminal) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

// WorkingDirectory returns the child's most recent OSC 7 report.
func (t *Terminal) WorkingDirectory() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cwd
}

// Placements returns the images intersecting the current view, clipped
// positions in view coordinates.
func (t *Terminal) Placements() []Placement {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active.visiblePlacements()
}

// ScrollOffset reports how many lines the view is scrolled back.
func (t *Terminal) ScrollOffset() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active.scrollOffset
}

// ScrollView scrolls the view within scrollback, positive is further
// back in history.
func (t *Terminal) ScrollView(delta int) {
	t.mu.Lock()
	t.active.setScrollOffset(t.active.scrollOffset + delta)
	t.mu.Unlock()
	t.postEvent(&EventRedraw{newEventTerminal(t)})
}

// String renders the visible screen as plain text, one line per row.
// Intended for tests and debugging.
func (t *Terminal) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var str strings.Builder
	lines := t.active.getVisibleLines()
	for i, l := range lines {
		str.WriteString(l.string())
		if i < len(lines)-1 {
			str.WriteRune('\n')
		}
	}
	return str.String()
}
