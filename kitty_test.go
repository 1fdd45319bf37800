package vtcore

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rgbaPayload builds raw 32-bit pixel data, every pixel the same color.
func rgbaPayload(w, h int, c color.RGBA) []byte {
	buf := make([]byte, 0, w*h*4)
	for i := 0; i < w*h; i++ {
		buf = append(buf, c.R, c.G, c.B, c.A)
	}
	return buf
}

func TestKittyDirectTransmitAndPlace(t *testing.T) {
	term, r := newTestTerminal(t, WithSize(20, 5), WithCellPixelSize(2, 2))

	payload := base64.StdEncoding.EncodeToString(rgbaPayload(4, 4, color.RGBA{R: 9, A: 255}))
	feed(term, "\x1b_Ga=T,f=32,s=4,v=4,i=7;"+payload+"\x1b\\")

	want := "\x1b_Gi=7;OK\x1b\\"
	assert.Equal(t, want, readReply(t, r, len(want)))

	placements := term.Placements()
	require.Len(t, placements, 1)
	assert.Equal(t, uint32(7), placements[0].ImageID)
	assert.Equal(t, 2, placements[0].Cols)
	assert.Equal(t, 2, placements[0].Rows)
	assert.Equal(t, color.RGBA{R: 9, A: 255}, placements[0].Image.RGBAAt(0, 0))
}

func TestKittyChunkedEqualsSingle(t *testing.T) {
	raw := rgbaPayload(3, 2, color.RGBA{G: 80, A: 255})
	payload := base64.StdEncoding.EncodeToString(raw)

	single := New(WithSize(20, 5))
	feed(single, "\x1b_Ga=t,f=32,s=3,v=2,i=1,q=2;"+payload+"\x1b\\")

	chunked := New(WithSize(20, 5))
	third := len(payload) / 3
	feed(chunked, "\x1b_Ga=t,f=32,s=3,v=2,i=1,q=2,m=1;"+payload[:third]+"\x1b\\")
	feed(chunked, "\x1b_Gm=1;"+payload[third:2*third]+"\x1b\\")
	feed(chunked, "\x1b_Gm=0;"+payload[2*third:]+"\x1b\\")

	require.Contains(t, single.kitty.images, uint32(1))
	require.Contains(t, chunked.kitty.images, uint32(1))
	assert.Equal(t, single.kitty.images[1].Pix, chunked.kitty.images[1].Pix)
}

func TestKittyZlibCompression(t *testing.T) {
	raw := rgbaPayload(2, 2, color.RGBA{B: 200, A: 255})
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	term := New(WithSize(20, 5))
	payload := base64.StdEncoding.EncodeToString(compressed.Bytes())
	feed(term, "\x1b_Ga=t,f=32,o=z,s=2,v=2,i=3,q=2;"+payload+"\x1b\\")

	img, ok := term.kitty.images[3]
	require.True(t, ok)
	assert.Equal(t, color.RGBA{B: 200, A: 255}, img.RGBAAt(1, 1))
}

func TestKittyPNGFormat(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.SetRGBA(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	term := New(WithSize(20, 5))
	payload := base64.StdEncoding.EncodeToString(buf.Bytes())
	feed(term, "\x1b_Ga=t,f=100,i=4,q=2;"+payload+"\x1b\\")

	img, ok := term.kitty.images[4]
	require.True(t, ok)
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, img.RGBAAt(0, 0))
}

func TestKitty24BitFormat(t *testing.T) {
	raw := []byte{10, 20, 30, 40, 50, 60}
	term := New(WithSize(20, 5))
	payload := base64.StdEncoding.EncodeToString(raw)
	feed(term, "\x1b_Ga=t,f=24,s=2,v=1,i=8,q=2;"+payload+"\x1b\\")

	img, ok := term.kitty.images[8]
	require.True(t, ok)
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 40, G: 50, B: 60, A: 255}, img.RGBAAt(1, 0))
}

func TestKittyPlaceStoredImage(t *testing.T) {
	term := New(WithSize(20, 5))
	payload := base64.StdEncoding.EncodeToString(rgbaPayload(2, 2, color.RGBA{A: 255}))
	feed(term, "\x1b_Ga=t,f=32,s=2,v=2,i=9,q=2;"+payload+"\x1b\\")
	assert.Empty(t, term.Placements(), "a=t transmits without placing")

	feed(term, "\x1b_Ga=p,i=9,p=1,q=2;\x1b\\")
	placements := term.Placements()
	require.Len(t, placements, 1)
	assert.Equal(t, uint32(1), placements[0].PlacementID)
}

func TestKittyPlaceUnknownImage(t *testing.T) {
	term, r := newTestTerminal(t, WithSize(20, 5))
	feed(term, "\x1b_Ga=p,i=42;\x1b\\")
	want := "\x1b_Gi=42;ENOENT:no such image\x1b\\"
	assert.Equal(t, want, readReply(t, r, len(want)))
}

func TestKittyDeleteSelectors(t *testing.T) {
	term := New(WithSize(20, 10))
	place := func(id int) {
		payload := base64.StdEncoding.EncodeToString(rgbaPayload(2, 2, color.RGBA{A: 255}))
		feed(term, fmt.Sprintf("\x1b_Ga=T,f=32,s=2,v=2,i=%d,q=2;%s\x1b\\", id, payload))
	}
	place(1)
	place(2)
	require.Len(t, term.Placements(), 2)

	// lowercase i removes placements but keeps the image data
	feed(term, "\x1b_Ga=d,d=i,i=1,q=2;\x1b\\")
	assert.Len(t, term.Placements(), 1)
	assert.Contains(t, term.kitty.images, uint32(1))

	// uppercase I frees the image as well
	feed(term, "\x1b_Ga=d,d=I,i=2,q=2;\x1b\\")
	assert.Empty(t, term.Placements())
	assert.NotContains(t, term.kitty.images, uint32(2))
}

func TestKittyQuietSuppressesOK(t *testing.T) {
	term, r := newTestTerminal(t, WithSize(20, 5))

	feed(term, "\x1b_Ga=q,i=1,q=1;\x1b\\")
	feed(term, "\x1b_Ga=q,i=2;\x1b\\")
	// only the unsuppressed query answers
	want := "\x1b_Gi=2;OK\x1b\\"
	assert.Equal(t, want, readReply(t, r, len(want)))
}

func TestKittyBadBase64(t *testing.T) {
	term, r := newTestTerminal(t, WithSize(20, 5))
	feed(term, "\x1b_Ga=t,f=32,s=1,v=1,i=6;@@@@\x1b\\")
	want := "\x1b_Gi=6;EINVAL:payload is not valid base64\x1b\\"
	assert.Equal(t, want, readReply(t, r, len(want)))
}

func TestKittyUnsupportedMedium(t *testing.T) {
	term, r := newTestTerminal(t, WithSize(20, 5))
	feed(term, "\x1b_Ga=t,t=f,i=5;L3RtcC9m\x1b\\")
	want := "\x1b_Gi=5;EBADF:only direct transmission is supported\x1b\\"
	assert.Equal(t, want, readReply(t, r, len(want)))
}

func TestKittyUnknownKeyIgnoresCommand(t *testing.T) {
	term := New(WithSize(20, 5))
	feed(term, "\x1b_Ga=T,Q=1,f=32,s=1,v=1,i=1;AAAA\x1b\\")
	assert.Empty(t, term.Placements())
	assert.Empty(t, term.kitty.images)
}

func TestKittyCommandInterruptsChunkedTransfer(t *testing.T) {
	term := New(WithSize(20, 10))
	payload := base64.StdEncoding.EncodeToString(rgbaPayload(2, 2, color.RGBA{A: 255}))
	half := len(payload) / 2
	feed(term, "\x1b_Ga=T,f=32,s=2,v=2,i=9,q=2,m=1;"+payload[:half]+"\x1b\\")
	require.Contains(t, term.kitty.pending, uint32(9))

	// a delete arriving mid-transfer is a command, not a chunk
	feed(term, "\x1b_Ga=d,d=I,i=9,q=2;\x1b\\")
	assert.NotContains(t, term.kitty.pending, uint32(9))
	assert.NotContains(t, term.kitty.images, uint32(9))
	assert.Empty(t, term.Placements())

	// a fresh transmission with the same id starts clean
	feed(term, "\x1b_Ga=T,f=32,s=2,v=2,i=9,q=2;"+payload+"\x1b\\")
	require.Len(t, term.Placements(), 1)
}
