package vtcore

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// decode caps: a hostile stream aborts the image, never the session
	maxImageDimension = 16384
	maxImagePixels    = 256 << 20 // bytes of decoded RGBA
	maxSixelRegisters = 1024
)

// sixelDecoder decodes a DECSIXEL stream fed one byte at a time from the DCS
// passthrough state. It is plain resumable data: an image split across many
// reads keeps decoding where it left off.
type sixelDecoder struct {
	palette  map[int]color.RGBA
	register int

	img           *image.RGBA
	width, height int // current canvas bounds
	declaredW     int
	declaredH     int

	x, y    int
	repeat  int
	pending byte // command awaiting numeric parameters: # " !
	params  []byte

	transparent bool
	aborted     bool
	sawData     bool
}

func newSixelDecoder(params []string) *sixelDecoder {
	d := &sixelDecoder{
		palette: defaultSixelPalette(),
	}
	// P2 = 1 leaves unset pixels transparent
	if paramInt(params, 1, 0) == 1 {
		d.transparent = true
	}
	return d
}

func (d *sixelDecoder) put(b byte) {
	if d.aborted {
		return
	}

	if d.pending != 0 {
		if (b >= '0' && b <= '9') || b == ';' {
			if len(d.params) < 64 {
				d.params = append(d.params, b)
			}
			return
		}
		d.applyPending()
	}

	switch {
	case b == '#', b == '"', b == '!':
		d.pending = b
		d.params = d.params[:0]
	case b == '$':
		d.x = 0
	case b == '-':
		d.y += 6
		d.x = 0
	case b >= 0x3f && b <= 0x7e:
		d.draw(b)
	default:
		// stray control or whitespace bytes are ignored
	}
}

func (d *sixelDecoder) applyPending() {
	cmd := d.pending
	d.pending = 0

	var nums []int
	for _, s := range strings.Split(string(d.params), ";") {
		n, err := strconv.Atoi(s)
		if err != nil {
			n = 0
		}
		nums = append(nums, n)
	}

	switch cmd {
	case '!':
		if len(nums) > 0 {
			d.repeat = nums[0]
		}
	case '"':
		// raster attributes: Pan;Pad;Ph;Pv
		if len(nums) >= 4 {
			d.declaredW = nums[2]
			d.declaredH = nums[3]
			if d.declaredW > maxImageDimension || d.declaredH > maxImageDimension {
				d.abort("declared raster size %dx%d exceeds cap", d.declaredW, d.declaredH)
				return
			}
			d.ensureCanvas(d.declaredW, d.declaredH)
		}
	case '#':
		if len(nums) == 0 {
			return
		}
		d.register = nums[0]
		if len(nums) >= 5 {
			d.defineColor(nums[0], nums[1], nums[2], nums[3], nums[4])
		}
	}
}

// defineColor handles a palette definition #Pc;Pu;Px;Py;Pz. Pu selects the
// color space: 1 is HLS (VT340 flavor, blue at hue 0), 2 is RGB in percent.
func (d *sixelDecoder) defineColor(reg, pu, px, py, pz int) {
	if reg < 0 {
		return
	}
	if len(d.palette) >= maxSixelRegisters {
		if _, exists := d.palette[reg]; !exists {
			// palette full: overwrite register 0 rather than grow
			reg = 0
		}
	}
	switch pu {
	case 1:
		h := float64((px + 240) % 360)
		l := float64(py) / 100
		s := float64(pz) / 100
		c := colorful.Hsl(h, s, l)
		r, g, b := c.RGB255()
		d.palette[reg] = color.RGBA{R: r, G: g, B: b, A: 255}
	case 2:
		clamp := func(v int) uint8 {
			if v > 100 {
				v = 100
			}
			if v < 0 {
				v = 0
			}
			return uint8(v * 255 / 100)
		}
		d.palette[reg] = color.RGBA{R: clamp(px), G: clamp(py), B: clamp(pz), A: 255}
	}
}

func (d *sixelDecoder) draw(b byte) {
	bits := b - 0x3f
	n := 1
	if d.repeat > 0 {
		n = d.repeat
		d.repeat = 0
	}

	if d.x+n > maxImageDimension || d.y+6 > maxImageDimension {
		d.abort("image exceeds %d pixel dimension cap", maxImageDimension)
		return
	}
	if !d.ensureCanvas(d.x+n, d.y+6) {
		return
	}

	c, ok := d.palette[d.register]
	if !ok {
		c = color.RGBA{A: 255}
	}

	for i := 0; i < n; i++ {
		for bit := 0; bit < 6; bit++ {
			if bits&(1<<bit) != 0 {
				d.img.SetRGBA(d.x, d.y+bit, c)
			}
		}
		d.x++
	}
	d.sawData = true
}

// ensureCanvas grows the backing raster to at least w x h, within the pixel
// budget.
func (d *sixelDecoder) ensureCanvas(w, h int) bool {
	if w <= d.width && h <= d.height && d.img != nil {
		return true
	}
	if w < d.width {
		w = d.width
	}
	if h < d.height {
		h = d.height
	}
	if w*h*4 > maxImagePixels {
		d.abort("image exceeds pixel budget")
		return false
	}
	grown := image.NewRGBA(image.Rect(0, 0, w, h))
	if d.img != nil {
		for y := 0; y < d.height; y++ {
			copy(grown.Pix[y*grown.Stride:y*grown.Stride+d.width*4], d.img.Pix[y*d.img.Stride:y*d.img.Stride+d.width*4])
		}
	}
	d.img = grown
	d.width = w
	d.height = h
	return true
}

func (d *sixelDecoder) abort(format string, args ...interface{}) {
	d.aborted = true
	d.img = nil
	tlog.Printf("sixel decode aborted: "+format, args...)
}

// finish returns the decoded raster, or nil when the stream was malformed,
// empty or over budget.
func (d *sixelDecoder) finish() *image.RGBA {
	if d.aborted || d.img == nil || !d.sawData {
		return nil
	}
	if d.pending != 0 {
		d.applyPending()
	}
	return d.img
}

// defaultSixelPalette is the VT340 16-color startup palette, in RGB.
func defaultSixelPalette() map[int]color.RGBA {
	pct := func(r, g, b int) color.RGBA {
		return color.RGBA{
			R: uint8(r * 255 / 100),
			G: uint8(g * 255 / 100),
			B: uint8(b * 255 / 100),
			A: 255,
		}
	}
	return map[int]color.RGBA{
		0:  pct(0, 0, 0),
		1:  pct(20, 20, 80),
		2:  pct(80, 13, 13),
		3:  pct(20, 80, 20),
		4:  pct(80, 20, 80),
		5:  pct(20, 80, 80),
		6:  pct(80, 80, 20),
		7:  pct(53, 53, 53),
		8:  pct(26, 26, 26),
		9:  pct(33, 33, 60),
		10: pct(60, 26, 26),
		11: pct(33, 60, 33),
		12: pct(60, 33, 60),
		13: pct(33, 60, 60),
		14: pct(60, 60, 33),
		15: pct(80, 80, 80),
	}
}
