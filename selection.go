package vtcore

import (
	"strings"
)

func normalizeRange(start, end position) (position, position) {
	if end.Line < start.Line || (end.Line == start.Line && end.Col < start.Col) {
		return end, start
	}
	return start, end
}

// textInRange extracts the text spanned by an inclusive selection. Rows
// joined by the wrapped flag concatenate into one unbroken logical line;
// hard line breaks become newlines. A selection ending in column 0 of a
// later row takes only the preceding newline, not that row's first cell.
func (b *buffer) textInRange(start, end position, lineMode bool) string {
	start, end = normalizeRange(start, end)

	if start.Line < 0 {
		start.Line = 0
	}
	if end.Line >= len(b.lines) {
		end.Line = len(b.lines) - 1
	}
	if end.Line < start.Line {
		return ""
	}

	if lineMode {
		start.Col = 0
		end.Col = b.lineLen(end.Line) - 1
	} else if end.Col == 0 && end.Line > start.Line {
		end.Line--
		end.Col = b.lineLen(end.Line) - 1
		return b.textInRange(start, end, false) + "\n"
	}

	var text strings.Builder
	for y := start.Line; y <= end.Line; y++ {
		line := &b.lines[y]

		startX := 0
		endX := len(line.cells) - 1
		if y == start.Line {
			startX = start.Col
		}
		if y == end.Line && end.Col < endX {
			endX = end.Col
		}

		if y > start.Line && !line.wrapped {
			text.WriteByte('\n')
		}

		row := make([]rune, 0, endX-startX+1)
		for x := startX; x <= endX && x < len(line.cells); x++ {
			c := &line.cells[x]
			if c.r.rune == 0 {
				// skip the placeholder half of a wide glyph
				if x > 0 && line.cells[x-1].r.width == 2 {
					continue
				}
				row = append(row, ' ')
				continue
			}
			row = append(row, c.r.rune)
			row = append(row, c.combining...)
		}
		// drop trailing blanks of a ragged row unless mid logical line
		segment := string(row)
		if y == end.Line || !b.rowWrapsOnto(y) {
			segment = strings.TrimRight(segment, " ")
		}
		text.WriteString(segment)
	}
	return text.String()
}

func (b *buffer) lineLen(raw int) int {
	if raw < 0 || raw >= len(b.lines) {
		return 0
	}
	n := len(b.lines[raw].cells)
	if n == 0 {
		return 1
	}
	return n
}

// rowWrapsOnto reports whether the next physical row continues this one.
func (b *buffer) rowWrapsOnto(raw int) bool {
	return raw+1 < len(b.lines) && b.lines[raw+1].wrapped
}
