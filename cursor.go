package vtcore

import (
	"github.com/gdamore/tcell/v2"
)

type position struct {
	Line int // raw line index, spanning scrollback and visible rows
	Col  int
}

// savedCursor is the state captured by DECSC and restored by DECRC.
type savedCursor struct {
	position       position
	attr           tcell.Style
	charsets       []*map[rune]rune
	currentCharset int
	originMode     bool
	autoWrap       bool
}
