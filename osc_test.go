package vtcore

import (
	"encoding/base64"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSCTitleBothTerminators(t *testing.T) {
	term := New(WithSize(10, 2))
	feed(term, "\x1b]0;bel title\x07")
	assert.Equal(t, "bel title", term.Title())

	feed(term, "\x1b]2;st title\x1b\\")
	assert.Equal(t, "st title", term.Title())
}

func TestOSCWorkingDirectory(t *testing.T) {
	term := New(WithSize(10, 2))
	feed(term, "\x1b]7;file://host/home/user\x1b\\")
	assert.Equal(t, "host/home/user", term.WorkingDirectory())
}

func TestOSCPaletteSetAndQuery(t *testing.T) {
	term, r := newTestTerminal(t, WithSize(10, 2))

	feed(term, "\x1b]4;1;rgb:ff/00/00\x1b\\")
	assert.Equal(t, tcell.NewRGBColor(255, 0, 0), term.palette.indexed(1))

	feed(term, "\x1b]4;1;?\x1b\\")
	want := "\x1b]4;1;rgb:ffff/0000/0000\x1b\\"
	assert.Equal(t, want, readReply(t, r, len(want)))

	// OSC 104 restores the default
	feed(term, "\x1b]104;1\x1b\\")
	assert.Equal(t, tcell.PaletteColor(1), term.palette.indexed(1))
}

func TestOSCDynamicColors(t *testing.T) {
	term, r := newTestTerminal(t, WithSize(10, 2))

	feed(term, "\x1b]10;#ff8000\x1b\\")
	feed(term, "\x1b]10;?\x1b\\")
	want := "\x1b]10;rgb:ffff/8080/0000\x1b\\"
	assert.Equal(t, want, readReply(t, r, len(want)))

	feed(term, "\x1b]110\x1b\\")
	assert.False(t, term.palette.hasFg)
}

func TestOSCColorSpecScaling(t *testing.T) {
	// single hex digit components scale to the full range
	c, ok := parseColorSpec("rgb:f/f/f")
	require.True(t, ok)
	assert.Equal(t, tcell.NewRGBColor(255, 255, 255), c)

	c, ok = parseColorSpec("rgb:ffff/0000/8080")
	require.True(t, ok)
	assert.Equal(t, tcell.NewRGBColor(255, 0, 128), c)

	_, ok = parseColorSpec("nonsense")
	assert.False(t, ok)
}

func TestOSC52ClipboardWrite(t *testing.T) {
	clip := &fakeClipboard{}
	term := New(WithSize(10, 2), WithClipboard(clip))

	var fromEvent string
	term.Attach(func(ev tcell.Event) {
		if e, ok := ev.(*EventClipboard); ok {
			fromEvent = e.Text()
		}
	})

	payload := base64.StdEncoding.EncodeToString([]byte("hello clipboard"))
	feed(term, "\x1b]52;c;"+payload+"\x1b\\")
	assert.Equal(t, "hello clipboard", clip.content)
	assert.Equal(t, "hello clipboard", fromEvent)
}

func TestOSC52ClipboardQuery(t *testing.T) {
	clip := &fakeClipboard{content: "stored"}
	term, r := newTestTerminal(t, WithSize(10, 2), WithClipboard(clip))

	feed(term, "\x1b]52;c;?\x1b\\")
	want := "\x1b]52;c;" + base64.StdEncoding.EncodeToString([]byte("stored")) + "\x1b\\"
	assert.Equal(t, want, readReply(t, r, len(want)))
}

func TestOSC52InvalidBase64Ignored(t *testing.T) {
	clip := &fakeClipboard{content: "untouched"}
	term := New(WithSize(10, 2), WithClipboard(clip))
	feed(term, "\x1b]52;c;!!!not-base64!!!\x1b\\")
	assert.Equal(t, "untouched", clip.content)
}

func TestOSC133PromptMarks(t *testing.T) {
	term := New(WithSize(10, 3))
	feed(term, "\x1b]133;A\x1b\\$ ")
	b := term.activeBuffer()
	assert.Equal(t, byte('A'), b.lines[0].mark)
}
