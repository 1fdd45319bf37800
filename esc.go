package vtcore

func (t *Terminal) escDispatch(intermediates []byte, final byte) {
	seq := make([]byte, 0, len(intermediates)+1)
	seq = append(seq, intermediates...)
	seq = append(seq, final)

	switch string(seq) {
	case "7":
		t.activeBuffer().saveCursor()
	case "8":
		t.activeBuffer().restoreCursor()
	case "D":
		t.activeBuffer().index()
	case "E":
		t.activeBuffer().newLineEx(true)
	case "H":
		t.activeBuffer().tabSetAtCursor()
	case "M":
		t.activeBuffer().reverseIndex()
	case "N": // SS2
		t.activeBuffer().singleShift = 2
	case "O": // SS3
		t.activeBuffer().singleShift = 3
	case "=", ">":
		// DECKPAM / DECKPNM
	case "c":
		t.reset()
	case "(0":
		t.activeBuffer().charsets[0] = &decSpecialGraphics
	case ")0":
		t.activeBuffer().charsets[1] = &decSpecialGraphics
	case "*0":
		t.activeBuffer().charsets[2] = &decSpecialGraphics
	case "+0":
		t.activeBuffer().charsets[3] = &decSpecialGraphics
	case "(B":
		t.activeBuffer().charsets[0] = nil
	case ")B":
		t.activeBuffer().charsets[1] = nil
	case "*B":
		t.activeBuffer().charsets[2] = nil
	case "+B":
		t.activeBuffer().charsets[3] = nil
	case "#8":
		t.decaln()
	default:
		tlog.Printf("unhandled escape sequence ESC %q", string(seq))
	}
}

// decaln fills the screen with E for display alignment
func (t *Terminal) decaln() {
	b := t.activeBuffer()
	b.resetVerticalMargins(b.viewHeight)
	b.setScrollOffset(0)
	b.setPosition(0, 0)
	for row := 0; row < b.viewHeight; row++ {
		b.setPosition(0, row)
		for col := 0; col < b.viewWidth; col++ {
			b.write(measuredRune{rune: 'E', width: 1})
		}
	}
	b.setPosition(0, 0)
}

// DEC Special Graphics, designated with ESC ( 0 and friends
var decSpecialGraphics = map[rune]rune{
	'_': ' ',
	'`': '◆',
	'a': '▒',
	'b': '␉',
	'c': '␌',
	'd': '␍',
	'e': '␊',
	'f': '°',
	'g': '±',
	'h': '␤',
	'i': '␋',
	'j': '┘',
	'k': '┐',
	'l': '┌',
	'm': '└',
	'n': '┼',
	'o': '⎺',
	'p': '⎻',
	'q': '─',
	'r': '⎼',
	's': '⎽',
	't': '├',
	'u': '┤',
	'v': '┴',
	'w': '┬',
	'x': '│',
	'y': '≤',
	'z': '≥',
	'{': 'π',
	'|': '≠',
	'}': '£',
	'~': '·',
}
