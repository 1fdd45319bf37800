package vtcore

import (
	"sort"
	"strings"
	"unicode"
)

// logicalLine is the text of one or more physical rows joined by the
// wrapped flag, together with the physical position of every rune so
// matches can be mapped back onto the grid.
type logicalLine struct {
	startRaw int
	text     []rune
	pos      []position
}

func (b *buffer) logicalLines() []logicalLine {
	var out []logicalLine
	for raw := 0; raw < len(b.lines); {
		ll := logicalLine{startRaw: raw}
		for {
			line := &b.lines[raw]
			for x := 0; x < len(line.cells); x++ {
				c := &line.cells[x]
				if c.r.rune == 0 {
					if x > 0 && line.cells[x-1].r.width == 2 {
						continue
					}
					ll.text = append(ll.text, ' ')
				} else {
					ll.text = append(ll.text, c.r.rune)
				}
				ll.pos = append(ll.pos, position{Line: raw, Col: x})
			}
			raw++
			if raw >= len(b.lines) || !b.lines[raw].wrapped {
				break
			}
		}
		// a fully blank row still occupies one position so the cursor
		// can land on it
		if len(ll.text) == 0 {
			ll.text = append(ll.text, ' ')
			ll.pos = append(ll.pos, position{Line: ll.startRaw, Col: 0})
		}
		out = append(out, ll)
	}
	return out
}

type searchMatch struct {
	start position
	end   position
}

// searchAll finds every case-insensitive occurrence of query across the
// whole buffer, scrollback included, with matches spanning soft-wrapped
// row boundaries. Results come back in buffer order.
func (b *buffer) searchAll(query string) []searchMatch {
	q := []rune(strings.ToLower(query))
	if len(q) == 0 {
		return nil
	}
	var matches []searchMatch
	for _, ll := range b.logicalLines() {
		lower := make([]rune, len(ll.text))
		for i, r := range ll.text {
			lower[i] = unicode.ToLower(r)
		}
		for i := 0; i+len(q) <= len(lower); i++ {
			hit := true
			for j, qr := range q {
				if lower[i+j] != qr {
					hit = false
					break
				}
			}
			if hit {
				matches = append(matches, searchMatch{
					start: ll.pos[i],
					end:   ll.pos[i+len(q)-1],
				})
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i].start, matches[j].start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
	return matches
}

// nearestMatch picks the first match at or after from, wrapping to the
// top of the buffer when nothing follows. Matches behind and ahead at
// equal distance resolve forward.
func nearestMatch(matches []searchMatch, from position) int {
	if len(matches) == 0 {
		return -1
	}
	for i, m := range matches {
		if m.start.Line > from.Line || (m.start.Line == from.Line && m.start.Col >= from.Col) {
			return i
		}
	}
	return 0
}
