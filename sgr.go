package vtcore

import (
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// sgr applies character attribute parameters to the current cursor style.
// Both the semicolon form (38;5;196) and the colon sub-parameter form
// (38:5:196, 4:3) are accepted.
func (t *Terminal) sgr(params []string) {
	if len(params) == 0 {
		params = []string{"0"}
	}

	attr := t.activeBuffer().getCursorAttr()

	for i := 0; i < len(params); i++ {
		if sub := strings.Split(params[i], ":"); len(sub) > 1 {
			t.sgrSub(attr, sub)
			continue
		}

		n, err := strconv.Atoi(params[i])
		if err != nil && params[i] != "" {
			continue
		}

		switch n {
		case 0:
			*attr = tcell.StyleDefault
		case 1:
			*attr = attr.Bold(true)
		case 2:
			*attr = attr.Dim(true)
		case 3:
			*attr = attr.Italic(true)
		case 4:
			*attr = attr.Underline(true)
		case 5, 6:
			*attr = attr.Blink(true)
		case 7:
			*attr = attr.Reverse(true)
		case 9:
			*attr = attr.StrikeThrough(true)
		case 21:
			*attr = attr.Underline(tcell.UnderlineStyleDouble)
		case 22:
			*attr = attr.Bold(false).Dim(false)
		case 23:
			*attr = attr.Italic(false)
		case 24:
			*attr = attr.Underline(false)
		case 25:
			*attr = attr.Blink(false)
		case 27:
			*attr = attr.Reverse(false)
		case 29:
			*attr = attr.StrikeThrough(false)
		case 38:
			if c, skip, ok := t.extendedColor(params[i+1:]); ok {
				*attr = attr.Foreground(c)
				i += skip
			} else {
				return
			}
		case 39:
			*attr = attr.Foreground(tcell.ColorDefault)
		case 48:
			if c, skip, ok := t.extendedColor(params[i+1:]); ok {
				*attr = attr.Background(c)
				i += skip
			} else {
				return
			}
		case 49:
			*attr = attr.Background(tcell.ColorDefault)
		case 58:
			if c, skip, ok := t.extendedColor(params[i+1:]); ok {
				*attr = attr.Underline(c)
				i += skip
			} else {
				return
			}
		case 59:
			*attr = attr.Underline(tcell.ColorNone)
		default:
			switch {
			case n >= 30 && n <= 37:
				*attr = attr.Foreground(t.palette.indexed(n - 30))
			case n >= 40 && n <= 47:
				*attr = attr.Background(t.palette.indexed(n - 40))
			case n >= 90 && n <= 97:
				*attr = attr.Foreground(t.palette.indexed(n - 90 + 8))
			case n >= 100 && n <= 107:
				*attr = attr.Background(t.palette.indexed(n - 100 + 8))
			default:
				tlog.Printf("unhandled SGR parameter %d", n)
			}
		}
	}
}

// sgrSub handles a colon-joined parameter group
func (t *Terminal) sgrSub(attr *tcell.Style, sub []string) {
	n, err := strconv.Atoi(sub[0])
	if err != nil {
		return
	}
	switch n {
	case 4:
		style, err := strconv.Atoi(sub[1])
		if err != nil {
			return
		}
		switch style {
		case 0:
			*attr = attr.Underline(false)
		case 1:
			*attr = attr.Underline(tcell.UnderlineStyleSolid)
		case 2:
			*attr = attr.Underline(tcell.UnderlineStyleDouble)
		case 3:
			*attr = attr.Underline(tcell.UnderlineStyleCurly)
		case 4:
			*attr = attr.Underline(tcell.UnderlineStyleDotted)
		case 5:
			*attr = attr.Underline(tcell.UnderlineStyleDashed)
		}
	case 38:
		if c, _, ok := t.extendedColor(sub[1:]); ok {
			*attr = attr.Foreground(c)
		}
	case 48:
		if c, _, ok := t.extendedColor(sub[1:]); ok {
			*attr = attr.Background(c)
		}
	case 58:
		if c, _, ok := t.extendedColor(sub[1:]); ok {
			*attr = attr.Underline(c)
		}
	}
}

// extendedColor parses the tail of a 38/48/58 specification: "5;index" or
// "2;r;g;b". It returns how many parameters it consumed.
func (t *Terminal) extendedColor(rest []string) (tcell.Color, int, bool) {
	if len(rest) == 0 {
		return tcell.ColorDefault, 0, false
	}
	switch rest[0] {
	case "5":
		if len(rest) < 2 {
			return tcell.ColorDefault, 0, false
		}
		index, err := strconv.Atoi(rest[1])
		if err != nil || index < 0 || index > 255 {
			return tcell.ColorDefault, 0, false
		}
		return t.palette.indexed(index), 2, true
	case "2":
		if len(rest) < 4 {
			return tcell.ColorDefault, 0, false
		}
		c, err := colorFrom24Bit(rest[1], rest[2], rest[3])
		if err != nil {
			return tcell.ColorDefault, 0, false
		}
		return c, 4, true
	}
	return tcell.ColorDefault, 0, false
}
