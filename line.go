package vtcore

import "strings"

// Shell integration marks recorded from OSC 133.
const (
	markNone        = 0
	markPromptStart = 'A'
	markPromptEnd   = 'B'
	markOutputStart = 'C'
	markOutputEnd   = 'D'
)

type line struct {
	wrapped bool // whether line was wrapped onto from the previous one
	mark    byte // OSC 133 shell integration mark, if any
	cells   []cell
}

func newLine() line {
	return line{
		wrapped: false,
		cells:   []cell{},
	}
}

func (l *line) len() int {
	return len(l.cells)
}

func (l *line) string() string {
	runes := []rune{}
	for i := range l.cells {
		if l.cells[i].r.rune == 0 {
			runes = append(runes, ' ')
			continue
		}
		runes = append(runes, l.cells[i].r.rune)
		runes = append(runes, l.cells[i].combining...)
	}
	return strings.TrimRight(string(runes), " ")
}

func (l *line) append(cells ...cell) {
	l.cells = append(l.cells, cells...)
}

// shrink drops trailing unused cells so the line fits the given width where
// possible. Content cells are never dropped here; lines still longer than
// width are split by wrap.
func (l *line) shrink(width int) {
	if l.len() <= width {
		return
	}
	remove := l.len() - width
	var cells []cell
	for _, c := range l.cells {
		if c.r.rune == 0 && remove > 0 {
			remove--
		} else {
			cells = append(cells, c)
		}
	}
	l.cells = cells
}

// wrap splits the line into width-sized physical lines, marking every line
// but the first as wrapped so the logical line stays reconstructable.
func (l *line) wrap(width int) []line {
	var result []line
	current := newLine()
	current.wrapped = l.wrapped
	current.mark = l.mark
	for _, c := range l.cells {
		if len(current.cells) == width {
			result = append(result, current)
			current = newLine()
			current.wrapped = true
		}
		current.cells = append(current.cells, c)
	}
	result = append(result, current)
	return result
}
