package vtcore

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
)

func TestSGR(t *testing.T) {
	tests := []struct {
		name     string
		seq      string
		expected tcell.Style
	}{
		{
			name:     "reset",
			seq:      "\x1b[m",
			expected: tcell.StyleDefault,
		},
		{
			name:     "explicit reset",
			seq:      "\x1b[1m\x1b[0m",
			expected: tcell.StyleDefault,
		},
		{
			name:     "bold",
			seq:      "\x1b[1m",
			expected: tcell.StyleDefault.Bold(true),
		},
		{
			name:     "dim",
			seq:      "\x1b[2m",
			expected: tcell.StyleDefault.Dim(true),
		},
		{
			name:     "italic off again",
			seq:      "\x1b[3m\x1b[23m",
			expected: tcell.StyleDefault.Italic(true).Italic(false),
		},
		{
			name:     "underline",
			seq:      "\x1b[4m",
			expected: tcell.StyleDefault.Underline(true),
		},
		{
			name:     "double underline",
			seq:      "\x1b[21m",
			expected: tcell.StyleDefault.Underline(tcell.UnderlineStyleDouble),
		},
		{
			name:     "curly underline subparameter",
			seq:      "\x1b[4:3m",
			expected: tcell.StyleDefault.Underline(tcell.UnderlineStyleCurly),
		},
		{
			name:     "blink and reverse",
			seq:      "\x1b[5;7m",
			expected: tcell.StyleDefault.Blink(true).Reverse(true),
		},
		{
			name:     "strikethrough",
			seq:      "\x1b[9m",
			expected: tcell.StyleDefault.StrikeThrough(true),
		},
		{
			name:     "bold off keeps color",
			seq:      "\x1b[1;31m\x1b[22m",
			expected: tcell.StyleDefault.Foreground(tcell.PaletteColor(1)),
		},
		{
			name:     "basic foreground",
			seq:      "\x1b[31m",
			expected: tcell.StyleDefault.Foreground(tcell.PaletteColor(1)),
		},
		{
			name:     "bright foreground",
			seq:      "\x1b[93m",
			expected: tcell.StyleDefault.Foreground(tcell.PaletteColor(11)),
		},
		{
			name:     "basic background",
			seq:      "\x1b[44m",
			expected: tcell.StyleDefault.Background(tcell.PaletteColor(4)),
		},
		{
			name:     "bright background",
			seq:      "\x1b[102m",
			expected: tcell.StyleDefault.Background(tcell.PaletteColor(10)),
		},
		{
			name:     "256 color foreground",
			seq:      "\x1b[38;5;196m",
			expected: tcell.StyleDefault.Foreground(tcell.PaletteColor(196)),
		},
		{
			name:     "256 color colon form",
			seq:      "\x1b[38:5:196m",
			expected: tcell.StyleDefault.Foreground(tcell.PaletteColor(196)),
		},
		{
			name:     "truecolor foreground",
			seq:      "\x1b[38;2;1;2;3m",
			expected: tcell.StyleDefault.Foreground(tcell.NewRGBColor(1, 2, 3)),
		},
		{
			name:     "truecolor fg and bg",
			seq:      "\x1b[38;2;1;2;3;48;2;4;5;6m",
			expected: tcell.StyleDefault.Foreground(tcell.NewRGBColor(1, 2, 3)).Background(tcell.NewRGBColor(4, 5, 6)),
		},
		{
			name:     "default foreground",
			seq:      "\x1b[31;39m",
			expected: tcell.StyleDefault.Foreground(tcell.ColorDefault),
		},
		{
			name:     "colored underline",
			seq:      "\x1b[58;5;21m",
			expected: tcell.StyleDefault.Underline(tcell.PaletteColor(21)),
		},
		{
			name:     "underline color reset",
			seq:      "\x1b[58;5;21;59m",
			expected: tcell.StyleDefault.Underline(tcell.PaletteColor(21)).Underline(tcell.ColorNone),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			term := New(WithSize(10, 2))
			feed(term, tc.seq)
			assert.Equal(t, tc.expected, term.activeBuffer().cursorAttr)
		})
	}
}

func TestSGRAppliesToPrintedCells(t *testing.T) {
	term := New(WithSize(10, 2))
	feed(term, "\x1b[1;31mx\x1b[0my")

	bold := term.Cell(0, 0)
	assert.Equal(t, tcell.StyleDefault.Bold(true).Foreground(tcell.PaletteColor(1)), bold.Style)

	plain := term.Cell(1, 0)
	assert.Equal(t, tcell.StyleDefault, plain.Style)
}

func TestHyperlinkStyle(t *testing.T) {
	term := New(WithSize(30, 2))
	feed(term, "\x1b]8;id=x1;https://example.com/a;b\x1b\\link\x1b]8;;\x1b\\plain")

	link := term.Cell(0, 0)
	// the URI keeps its semicolons
	assert.Equal(t, tcell.StyleDefault.Url("https://example.com/a;b").UrlId("x1"), link.Style)

	plain := term.Cell(4, 0)
	assert.Equal(t, tcell.StyleDefault.Url("").UrlId(""), plain.Style)
}
