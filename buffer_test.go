package vtcore

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferCreation(t *testing.T) {
	b := makeBufferForTesting(10, 20)
	assert.Equal(t, 10, b.viewWidth)
	assert.Equal(t, 20, b.viewHeight)
	assert.Equal(t, 0, b.cursorColumn())
	assert.Equal(t, 0, b.cursorLine())
	assert.NotNil(t, b.lines)
}

func TestWrappedLines(t *testing.T) {
	b := makeBufferForTesting(5, 4)
	writeRaw(b, []rune("abcdefgh")...)

	require.Equal(t, 2, len(b.lines))
	assert.Equal(t, "abcde", b.lines[0].string())
	assert.Equal(t, "fgh", b.lines[1].string())
	assert.False(t, b.lines[0].wrapped)
	assert.True(t, b.lines[1].wrapped)
}

func TestDeferredWrap(t *testing.T) {
	b := makeBufferForTesting(5, 4)
	writeRaw(b, []rune("abcde")...)

	// after printing the final column the cursor rests one past it and
	// no new line exists yet
	assert.True(t, b.pendingWrap())
	assert.Equal(t, 1, len(b.lines))

	// CR/LF here must not produce an extra blank row
	b.carriageReturn()
	b.newLine()
	writeRaw(b, 'f')
	assert.Equal(t, 2, len(b.lines))
	assert.Equal(t, "f", b.lines[1].string())
	assert.False(t, b.lines[1].wrapped)

	// whereas printing through the boundary wraps
	b2 := makeBufferForTesting(5, 4)
	writeRaw(b2, []rune("abcdef")...)
	assert.True(t, b2.lines[1].wrapped)
	assert.Equal(t, 1, b2.cursorPosition.Col)
}

func TestAutoWrapDisabled(t *testing.T) {
	b := makeBufferForTesting(5, 4)
	b.modes.AutoWrap = false
	writeRaw(b, []rune("abcdefg")...)

	require.Equal(t, 1, len(b.lines))
	assert.Equal(t, "abcdg", b.lines[0].string())
	assert.Equal(t, 5, b.cursorPosition.Col)
}

func TestBackspaceOntoWrappedLine(t *testing.T) {
	b := makeBufferForTesting(5, 4)
	writeRaw(b, []rune("abcdef")...)
	b.backspace()
	b.backspace()
	assert.Equal(t, 4, b.cursorPosition.Col)
	assert.Equal(t, 0, b.cursorLine())
}

func TestScrollbackAccumulation(t *testing.T) {
	b := makeBufferForTesting(10, 3)
	for i := 0; i < 5; i++ {
		writeRaw(b, []rune("hello")...)
		b.carriageReturn()
		b.newLine()
	}
	assert.Equal(t, 6, len(b.lines))
	// view shows the last three rows
	visible := b.getVisibleLines()
	require.Len(t, visible, 3)
}

func TestScrollbackEviction(t *testing.T) {
	m := &modes{AutoWrap: true}
	b := newBuffer(10, 3, 2, m) // two lines of history
	for i := 0; i < 10; i++ {
		writeRaw(b, rune('a'+i))
		b.carriageReturn()
		b.newLine()
	}
	assert.LessOrEqual(t, len(b.lines), 5)
	// the oldest rows are gone
	assert.Equal(t, "g", b.lines[0].string())
}

func TestScrollOffsetClamping(t *testing.T) {
	b := makeBufferForTesting(10, 3)
	for i := 0; i < 6; i++ {
		writeRaw(b, rune('a'+i))
		b.carriageReturn()
		b.newLine()
	}
	b.setScrollOffset(100)
	assert.Equal(t, len(b.lines)-3, b.scrollOffset)
	b.setScrollOffset(-5)
	assert.Equal(t, 0, b.scrollOffset)

	// output snaps the view back to the bottom
	b.setScrollOffset(2)
	writeRaw(b, 'x')
	assert.Equal(t, 0, b.scrollOffset)
}

func TestWideRunePlaceholder(t *testing.T) {
	b := makeBufferForTesting(10, 3)
	writeRaw(b, '世', '界')

	assert.Equal(t, '世', b.lines[0].cells[0].r.rune)
	assert.Equal(t, 2, b.lines[0].cells[0].r.width)
	assert.Equal(t, rune(0), b.lines[0].cells[1].r.rune)
	assert.Equal(t, '界', b.lines[0].cells[2].r.rune)
	assert.Equal(t, 4, b.cursorPosition.Col)
}

func TestOverwriteWideRuneHalf(t *testing.T) {
	b := makeBufferForTesting(10, 3)
	writeRaw(b, '世')
	b.setPosition(1, 0)
	writeRaw(b, 'x')

	// the orphaned left half must be blanked
	assert.Equal(t, rune(0), b.lines[0].cells[0].r.rune)
	assert.Equal(t, 'x', b.lines[0].cells[1].r.rune)
}

func TestWideRuneAtLineEnd(t *testing.T) {
	b := makeBufferForTesting(5, 3)
	writeRaw(b, []rune("abcd")...)
	writeRaw(b, '世')

	// no room for both halves: wraps to the next row
	require.Equal(t, 2, len(b.lines))
	assert.Equal(t, '世', b.lines[1].cells[0].r.rune)
	assert.True(t, b.lines[1].wrapped)
}

func TestCombiningRune(t *testing.T) {
	b := makeBufferForTesting(10, 3)
	writeRaw(b, 'e')
	b.write(measuredRune{rune: 0x0301, width: 0}) // combining acute
	assert.Equal(t, []rune{0x0301}, b.lines[0].cells[0].combining)
	assert.Equal(t, 1, b.cursorPosition.Col)
}

func TestMarginScrollRegion(t *testing.T) {
	b := makeBufferForTesting(10, 5)
	for i := 0; i < 5; i++ {
		writeRaw(b, rune('a'+i))
		if i < 4 {
			b.carriageReturn()
			b.newLine()
		}
	}
	b.setVerticalMargins(1, 3) // rows 1..3

	// index at the bottom margin scrolls only the region
	b.setPosition(0, 3)
	b.index()
	assert.Equal(t, "a", b.lines[0].string())
	assert.Equal(t, "c", b.lines[1].string())
	assert.Equal(t, "d", b.lines[2].string())
	assert.Equal(t, "", b.lines[3].string())
	assert.Equal(t, "e", b.lines[4].string())
}

func TestReverseIndexAtTopMargin(t *testing.T) {
	b := makeBufferForTesting(10, 5)
	for i := 0; i < 5; i++ {
		writeRaw(b, rune('a'+i))
		if i < 4 {
			b.carriageReturn()
			b.newLine()
		}
	}
	b.setVerticalMargins(1, 3)
	b.setPosition(0, 1)
	b.reverseIndex()
	assert.Equal(t, "a", b.lines[0].string())
	assert.Equal(t, "", b.lines[1].string())
	assert.Equal(t, "b", b.lines[2].string())
	assert.Equal(t, "c", b.lines[3].string())
	assert.Equal(t, "e", b.lines[4].string())
}

func TestInsertDeleteLines(t *testing.T) {
	b := makeBufferForTesting(10, 4)
	for _, s := range []string{"one", "two", "three", "four"} {
		writeRaw(b, []rune(s)...)
		if s != "four" {
			b.carriageReturn()
			b.newLine()
		}
	}
	b.setPosition(0, 1)
	b.insertLines(1)
	assert.Equal(t, "one", b.lines[0].string())
	assert.Equal(t, "", b.lines[1].string())
	assert.Equal(t, "two", b.lines[2].string())
	assert.Equal(t, "three", b.lines[3].string())

	b.setPosition(0, 1)
	b.deleteLines(1)
	assert.Equal(t, "two", b.lines[1].string())
	assert.Equal(t, "three", b.lines[2].string())
}

func TestRepeatLastCharacter(t *testing.T) {
	b := makeBufferForTesting(10, 3)
	writeRaw(b, 'z')
	b.repeatLastCharacter(3)
	assert.Equal(t, "zzzz", b.lines[0].string())
}

func TestTabStops(t *testing.T) {
	b := makeBufferForTesting(40, 3)
	b.tab()
	assert.Equal(t, 8, b.cursorPosition.Col)

	b.setPosition(3, 0)
	b.tabSetAtCursor()
	b.setPosition(0, 0)
	b.tab()
	assert.Equal(t, 3, b.cursorPosition.Col)

	b.tabClearAtCursor()
	b.setPosition(0, 0)
	b.tab()
	assert.Equal(t, 8, b.cursorPosition.Col)
}

func TestOriginModeAddressing(t *testing.T) {
	b := makeBufferForTesting(10, 6)
	b.setVerticalMargins(2, 4)
	b.modes.OriginMode = true

	b.setPosition(0, 0)
	assert.Equal(t, 2, b.cursorLineAbsolute())

	// addressing beyond the bottom margin clamps to it
	b.setPosition(0, 99)
	assert.Equal(t, 4, b.cursorLineAbsolute())
}

func TestReflowRoundTrip(t *testing.T) {
	b := makeBufferForTesting(80, 24)
	text := strings.Repeat("x", 100)
	writeRaw(b, []rune(text)...)

	logicalText := func() string {
		var all []string
		for _, ll := range b.logicalLines() {
			all = append(all, strings.TrimRight(string(ll.text), " "))
		}
		return strings.Join(all, "\n")
	}
	before := logicalText()

	b.resizeView(40, 24)
	assert.Equal(t, 3, len(b.lines))
	if diff := cmp.Diff(before, logicalText()); diff != "" {
		t.Errorf("reflow to 40 columns changed content (-want +got):\n%s", diff)
	}

	b.resizeView(80, 24)
	if diff := cmp.Diff(before, logicalText()); diff != "" {
		t.Errorf("reflow back to 80 columns changed content (-want +got):\n%s", diff)
	}
}

func TestEraseDisplayModes(t *testing.T) {
	b := makeBufferForTesting(10, 3)
	for i, s := range []string{"one", "two", "three"} {
		writeRaw(b, []rune(s)...)
		if i < 2 {
			b.carriageReturn()
			b.newLine()
		}
	}

	b.setPosition(1, 1)
	b.eraseDisplayFromCursor()
	assert.Equal(t, "one", b.lines[0].string())
	assert.Equal(t, "t", b.lines[1].string())
	assert.Equal(t, "", b.lines[2].string())
}

func TestClearPreservesScrollback(t *testing.T) {
	b := makeBufferForTesting(10, 3)
	writeRaw(b, []rune("history")...)
	b.carriageReturn()
	b.newLine()
	b.clear()

	assert.GreaterOrEqual(t, len(b.lines), 3)
	assert.Equal(t, "history", b.lines[0].string())
}
