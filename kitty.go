package vtcore

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"strconv"
	"strings"
)

// kittyMaxTransmission bounds the aggregate encoded payload of a chunked
// transmission. A sender exceeding it has the whole transfer discarded.
const kittyMaxTransmission = 256 << 20

type kittyHeader struct {
	action    byte   // a
	actionSet bool   // a key present, distinguishes commands from chunks
	format    int    // f: 24, 32 or 100 (PNG)
	medium    byte   // t: d-irect, f-ile, s-hared memory, t-emporary file
	id        uint32 // i
	number    uint32 // I
	placement uint32 // p
	width     int    // s
	height    int    // v
	compress  byte   // o: z for zlib
	more      bool   // m: chunk continuation
	quiet     int    // q
	delete    byte   // d: delete selector
}

type kittyTransfer struct {
	header kittyHeader
	buf    []byte
}

// kittyDecoder tracks in-flight chunked transmissions and transmitted images
// awaiting placement, keyed by image id. State is plain data so a transfer
// spanning many reads resumes without any suspended control flow.
type kittyDecoder struct {
	pending map[uint32]*kittyTransfer
	images  map[uint32]*image.RGBA
}

func newKittyDecoder() *kittyDecoder {
	return &kittyDecoder{
		pending: make(map[uint32]*kittyTransfer),
		images:  make(map[uint32]*image.RGBA),
	}
}

func parseKittyHeader(s string) (kittyHeader, error) {
	h := kittyHeader{
		action: 't',
		format: 32,
		medium: 'd',
	}
	if s == "" {
		return h, nil
	}
	for _, kv := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || len(key) != 1 || value == "" {
			return h, fmt.Errorf("malformed key-value pair %q", kv)
		}
		switch key[0] {
		case 'a':
			h.action = value[0]
			h.actionSet = true
		case 'f':
			h.format, _ = strconv.Atoi(value)
		case 't':
			h.medium = value[0]
		case 'i':
			n, _ := strconv.ParseUint(value, 10, 32)
			h.id = uint32(n)
		case 'I':
			n, _ := strconv.ParseUint(value, 10, 32)
			h.number = uint32(n)
		case 'p':
			n, _ := strconv.ParseUint(value, 10, 32)
			h.placement = uint32(n)
		case 's':
			h.width, _ = strconv.Atoi(value)
		case 'v':
			h.height, _ = strconv.Atoi(value)
		case 'o':
			h.compress = value[0]
		case 'm':
			h.more = value == "1"
		case 'q':
			h.quiet, _ = strconv.Atoi(value)
		case 'd':
			h.delete = value[0]
		case 'x', 'y', 'w', 'h', 'X', 'Y', 'c', 'r', 'z', 'C', 'U':
			// placement geometry refinements, accepted and ignored
		default:
			return h, fmt.Errorf("unknown key %q", key)
		}
	}
	return h, nil
}

// handleKitty processes one APC G frame.
func (t *Terminal) handleKitty(data []byte) {
	header, payload, _ := strings.Cut(string(data), ";")

	h, err := parseKittyHeader(header)
	if err != nil {
		tlog.Printf("ignoring kitty graphics command: %v", err)
		return
	}

	k := t.kitty

	// continuation chunks usually repeat only the m key; route an
	// id-less chunk to the single transfer in flight
	id := h.id
	if _, ok := k.pending[id]; !ok && id == 0 && len(k.pending) == 1 {
		for pendingID := range k.pending {
			id = pendingID
		}
	}

	if tr, inFlight := k.pending[id]; inFlight {
		// continuation chunks never repeat the action key; a frame that
		// does is a new command interrupting the transfer
		if h.actionSet {
			delete(k.pending, id)
			tlog.Printf("kitty transmission %d interrupted, discarded", id)
		} else if len(tr.buf)+len(payload) > kittyMaxTransmission {
			delete(k.pending, id)
			tlog.Printf("kitty transmission %d exceeded byte budget, discarded", id)
			t.kittyRespond(tr.header, "ETOOBIG:transmission too large")
			return
		} else {
			tr.buf = append(tr.buf, payload...)
			if h.more {
				return
			}
			delete(k.pending, id)
			t.kittyComplete(tr)
			return
		}
	}

	switch h.action {
	case 't', 'T':
		if h.medium != 'd' {
			t.kittyRespond(h, "EBADF:only direct transmission is supported")
			return
		}
		tr := &kittyTransfer{header: h, buf: []byte(payload)}
		if h.more {
			k.pending[h.id] = tr
			return
		}
		t.kittyComplete(tr)
	case 'p':
		img, ok := k.images[h.id]
		if !ok {
			t.kittyRespond(h, "ENOENT:no such image")
			return
		}
		t.placeImage(img, h.id, h.placement)
		t.kittyRespond(h, "OK")
	case 'd':
		t.kittyDelete(h)
	case 'q':
		if h.medium != 'd' {
			t.kittyRespond(h, "EBADF:only direct transmission is supported")
			return
		}
		t.kittyRespond(h, "OK")
	default:
		tlog.Printf("unknown kitty graphics action %q", h.action)
	}
}

// kittyComplete decodes a fully received transmission and registers the
// image, placing it when the action requested placement.
func (t *Terminal) kittyComplete(tr *kittyTransfer) {
	h := tr.header

	raw, err := base64.StdEncoding.DecodeString(string(tr.buf))
	if err != nil {
		t.kittyRespond(h, "EINVAL:payload is not valid base64")
		return
	}

	if h.compress == 'z' {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			t.kittyRespond(h, "EINVAL:bad zlib stream")
			return
		}
		raw, err = io.ReadAll(io.LimitReader(zr, kittyMaxTransmission+1))
		zr.Close()
		if err != nil || len(raw) > kittyMaxTransmission {
			t.kittyRespond(h, "ETOOBIG:decompressed payload too large")
			return
		}
	}

	var img *image.RGBA
	switch h.format {
	case 100:
		decoded, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			t.kittyRespond(h, "EINVAL:bad png data")
			return
		}
		img = image.NewRGBA(decoded.Bounds())
		draw.Draw(img, decoded.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	case 24, 32:
		bpp := 4
		if h.format == 24 {
			bpp = 3
		}
		if h.width <= 0 || h.height <= 0 || h.width > maxImageDimension || h.height > maxImageDimension {
			t.kittyRespond(h, "EINVAL:bad dimensions")
			return
		}
		if len(raw) < h.width*h.height*bpp {
			t.kittyRespond(h, "EINVAL:payload shorter than declared size")
			return
		}
		img = image.NewRGBA(image.Rect(0, 0, h.width, h.height))
		for y := 0; y < h.height; y++ {
			for x := 0; x < h.width; x++ {
				o := (y*h.width + x) * bpp
				a := uint8(255)
				if bpp == 4 {
					a = raw[o+3]
				}
				i := y*img.Stride + x*4
				img.Pix[i] = raw[o]
				img.Pix[i+1] = raw[o+1]
				img.Pix[i+2] = raw[o+2]
				img.Pix[i+3] = a
			}
		}
	default:
		t.kittyRespond(h, fmt.Sprintf("EINVAL:unknown format %d", h.format))
		return
	}

	t.kitty.images[h.id] = img
	if h.action == 'T' {
		t.placeImage(img, h.id, h.placement)
	}
	t.kittyRespond(h, "OK")
}

// kittyDelete implements a=d selectors. Uppercase selectors also free the
// transmitted image data, lowercase only remove placements.
func (t *Terminal) kittyDelete(h kittyHeader) {
	b := t.activeBuffer()
	switch h.delete {
	case 0, 'a', 'A':
		b.deletePlacements(func(*placement) bool { return true })
		if h.delete == 'A' {
			t.kitty.images = make(map[uint32]*image.RGBA)
		}
	case 'i', 'I':
		b.deletePlacements(func(p *placement) bool {
			if p.imageID != h.id {
				return false
			}
			return h.placement == 0 || p.placementID == h.placement
		})
		if h.delete == 'I' {
			delete(t.kitty.images, h.id)
		}
	default:
		tlog.Printf("unhandled kitty delete selector %q", h.delete)
	}
}

func (t *Terminal) kittyRespond(h kittyHeader, msg string) {
	if h.quiet >= 2 {
		return
	}
	if h.quiet == 1 && msg == "OK" {
		return
	}
	keys := fmt.Sprintf("i=%d", h.id)
	if h.placement != 0 {
		keys += fmt.Sprintf(",p=%d", h.placement)
	}
	t.writeToPty([]byte(fmt.Sprintf("\x1b_G%s;%s\x1b\\", keys, msg)))
}
