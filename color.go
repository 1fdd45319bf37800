package vtcore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// palette tracks the OSC 4/10/11/12 configurable colors. Indexed colors fall
// back to the standard 256-color palette when no override exists.
type palette struct {
	overrides map[int]tcell.Color
	fg        tcell.Color
	bg        tcell.Color
	cursor    tcell.Color
	hasFg     bool
	hasBg     bool
	hasCursor bool
}

func newPalette() *palette {
	return &palette{
		overrides: make(map[int]tcell.Color),
	}
}

func (p *palette) indexed(i int) tcell.Color {
	if c, ok := p.overrides[i]; ok {
		return c
	}
	return tcell.PaletteColor(i)
}

func (p *palette) setIndexed(i int, c tcell.Color) {
	if i < 0 || i > 255 {
		return
	}
	p.overrides[i] = c
}

func (p *palette) reset(indexes ...int) {
	if len(indexes) == 0 {
		p.overrides = make(map[int]tcell.Color)
		return
	}
	for _, i := range indexes {
		delete(p.overrides, i)
	}
}

func (p *palette) foreground() tcell.Color {
	if p.hasFg {
		return p.fg
	}
	fg, _, _ := tcell.StyleDefault.Decompose()
	if fg == tcell.ColorDefault {
		return tcell.ColorWhite
	}
	return fg
}

func (p *palette) background() tcell.Color {
	if p.hasBg {
		return p.bg
	}
	_, bg, _ := tcell.StyleDefault.Decompose()
	if bg == tcell.ColorDefault {
		return tcell.ColorBlack
	}
	return bg
}

func (p *palette) cursorColor() tcell.Color {
	if p.hasCursor {
		return p.cursor
	}
	return p.foreground()
}

// parseColorSpec understands the X11 "rgb:RR/GG/BB" form with 1-4 hex digits
// per component and hex forms ("#rrggbb") via go-colorful.
func parseColorSpec(spec string) (tcell.Color, bool) {
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(spec, "rgb:") {
		parts := strings.Split(spec[4:], "/")
		if len(parts) != 3 {
			return tcell.ColorDefault, false
		}
		var comp [3]int32
		for i, part := range parts {
			if len(part) == 0 || len(part) > 4 {
				return tcell.ColorDefault, false
			}
			v, err := strconv.ParseUint(part, 16, 32)
			if err != nil {
				return tcell.ColorDefault, false
			}
			// scale to 8 bits regardless of how many digits were given
			max := uint64(1)<<(4*len(part)) - 1
			comp[i] = int32(v * 255 / max)
		}
		return tcell.NewRGBColor(comp[0], comp[1], comp[2]), true
	}
	if strings.HasPrefix(spec, "#") {
		c, err := colorful.Hex(spec)
		if err != nil {
			return tcell.ColorDefault, false
		}
		r, g, b := c.RGB255()
		return tcell.NewRGBColor(int32(r), int32(g), int32(b)), true
	}
	return tcell.ColorDefault, false
}

// formatColorResponse renders a color the way xterm answers color queries:
// 16-bit components, "rgb:rrrr/gggg/bbbb".
func formatColorResponse(c tcell.Color) string {
	r, g, b := c.TrueColor().RGB()
	return fmt.Sprintf("rgb:%04x/%04x/%04x", r*0x101, g*0x101, b*0x101)
}

func colorFrom24Bit(r, g, b string) (tcell.Color, error) {
	ri, err := strconv.Atoi(r)
	if err != nil {
		return tcell.ColorDefault, err
	}
	gi, err := strconv.Atoi(g)
	if err != nil {
		return tcell.ColorDefault, err
	}
	bi, err := strconv.Atoi(b)
	if err != nil {
		return tcell.ColorDefault, err
	}
	return tcell.NewRGBColor(int32(ri), int32(gi), int32(bi)), nil
}
