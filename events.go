package vtcore

import (
	"time"
)

// EventTerminal is the base of all terminal events. Events implement
// tcell.Event so they can travel through a tcell application's event loop
// unchanged.
type EventTerminal struct {
	when time.Time
	term *Terminal
}

func newEventTerminal(t *Terminal) *EventTerminal {
	return &EventTerminal{
		when: time.Now(),
		term: t,
	}
}

func (ev *EventTerminal) When() time.Time {
	return ev.when
}

func (ev *EventTerminal) Terminal() *Terminal {
	return ev.term
}

// EventRedraw is emitted when screen content has changed and a redraw is
// required.
type EventRedraw struct {
	*EventTerminal
}

// EventClosed is emitted when the child process exits
type EventClosed struct {
	*EventTerminal
}

// EventTitle is emitted when the terminal's title changes
type EventTitle struct {
	*EventTerminal
	title string
}

func (ev *EventTitle) Title() string {
	return ev.title
}

// EventBell is emitted on BEL
type EventBell struct {
	*EventTerminal
}

// EventClipboard is emitted when the clipboard content changes, either
// through an OSC 52 write or a copy-mode yank.
type EventClipboard struct {
	*EventTerminal
	text string
}

func (ev *EventClipboard) Text() string {
	return ev.text
}
