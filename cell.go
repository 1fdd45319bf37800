package vtcore

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// measuredRune is a rune with its column width resolved once, at print time
type measuredRune struct {
	rune  rune
	width int
}

func measure(r rune) measuredRune {
	return measuredRune{rune: r, width: runewidth.RuneWidth(r)}
}

// cell is a single grid position. A wide glyph occupies two adjacent cells:
// the glyph itself with width 2, followed by a zero-width placeholder that is
// never rendered. Combining marks attach to the cell of their base rune.
type cell struct {
	r         measuredRune
	combining []rune
	attr      tcell.Style
}

func (c *cell) rune() measuredRune {
	return c.r
}

func (c *cell) style() tcell.Style {
	return c.attr
}

func (c *cell) setRune(r measuredRune) {
	c.r = r
	c.combining = nil
}

func (c *cell) appendCombining(r rune) {
	c.combining = append(c.combining, r)
}

// Erasing removes characters from the screen without affecting other
// characters on the screen. Erased characters are lost. Erasing also drops
// any attributes and hyperlink of the erased cell, keeping only the given
// background.
func (c *cell) erase(bg tcell.Color) {
	c.r = measuredRune{}
	c.combining = nil
	c.attr = tcell.StyleDefault.Background(bg)
}

func (c *cell) empty() bool {
	return c.r.rune == 0
}

// Cell is the read-only view of a grid position handed to renderers.
type Cell struct {
	Content   rune
	Combining []rune
	Width     int
	Style     tcell.Style
	// Selected marks cells inside the active copy mode selection.
	Selected bool
}
