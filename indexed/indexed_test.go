package indexed

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/bodgit/bplopt/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPalette = color.Palette{
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{0xff, 0x00, 0x00, 0xff},
	color.RGBA{0x00, 0xff, 0x00, 0xff},
	color.RGBA{0x00, 0x00, 0xff, 0xff},
}

func testPaletted(width, height int) *image.Paletted {
	pm := image.NewPaletted(image.Rect(0, 0, width, height), testPalette)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pm.SetColorIndex(x, y, uint8((x+y)%len(testPalette)))
		}
	}
	return pm
}

func encodePNG(t *testing.T, m image.Image) *bytes.Buffer {
	t.Helper()
	b := new(bytes.Buffer)
	require.NoError(t, png.Encode(b, m))
	return b
}

func TestDecode(t *testing.T) {
	m, format, err := Decode(encodePNG(t, testPaletted(32, 4)), 0)
	require.NoError(t, err)

	assert.Equal(t, "png", format)
	assert.Equal(t, 32, m.Width)
	assert.Equal(t, 4, m.Height)
	assert.Equal(t, 4, m.Colors())
	assert.Equal(t, 2, m.Bitplanes())
	assert.Len(t, m.Pix, 32*4)
	assert.Equal(t, byte(1), m.Pix[1])
	assert.Equal(t, byte(2), m.Pix[32+1])
}

func TestDecodeWidth(t *testing.T) {
	_, _, err := Decode(encodePNG(t, testPaletted(24, 4)), 0)
	assert.Equal(t, errWidth, err)
	assert.True(t, IsPrecondition(err))
}

func TestDecodeNotIndexed(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			rgba.Set(x, y, testPalette[(x/4)%len(testPalette)])
		}
	}

	_, _, err := Decode(encodePNG(t, rgba), 0)
	assert.Equal(t, errNotIndexed, err)
	assert.True(t, IsPrecondition(err))

	m, _, err := Decode(encodePNG(t, rgba), 16)
	require.NoError(t, err)
	assert.LessOrEqual(t, m.Colors(), 16)
	assert.GreaterOrEqual(t, m.Colors(), 1)
	for _, p := range m.Pix {
		assert.Less(t, int(p), m.Colors())
	}
}

func TestFromImageSubImage(t *testing.T) {
	pm := testPaletted(48, 8)
	sub := pm.SubImage(image.Rect(16, 2, 32, 6)).(*image.Paletted)

	m, err := FromImage(sub, 0)
	require.NoError(t, err)

	assert.Equal(t, 16, m.Width)
	assert.Equal(t, 4, m.Height)
	assert.Equal(t, sub.ColorIndexAt(16, 2), m.Pix[0])
	assert.Equal(t, sub.ColorIndexAt(31, 5), m.Pix[len(m.Pix)-1])
}

func TestFromImageBadIndex(t *testing.T) {
	pm := testPaletted(16, 1)
	pm.Pix[3] = 7

	_, err := FromImage(pm, 0)
	assert.Equal(t, errBadIndex, err)
}

func TestFromImageColors(t *testing.T) {
	pm := image.NewPaletted(image.Rect(0, 0, 16, 1), color.Palette{})
	_, err := FromImage(pm, 0)
	assert.Equal(t, errColors, err)

	_, err = FromImage(image.NewRGBA(image.Rect(0, 0, 16, 1)), 300)
	assert.Equal(t, errColors, err)
}

func TestEncodeReorders(t *testing.T) {
	m, err := FromImage(testPaletted(16, 2), 0)
	require.NoError(t, err)

	order := []byte{3, 2, 1, 0}

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, order))

	out, err := png.Decode(b)
	require.NoError(t, err)

	pm, ok := out.(*image.Paletted)
	require.True(t, ok)

	// Palette entry i has moved to slot order[i]
	for i, c := range testPalette {
		r1, g1, b1, a1 := c.RGBA()
		r2, g2, b2, a2 := pm.Palette[order[i]].RGBA()
		assert.Equal(t, []uint32{r1, g1, b1, a1}, []uint32{r2, g2, b2, a2})
	}

	// Every pixel still shows the same color
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			assert.Equal(t, order[m.Pix[y*m.Width+x]], pm.ColorIndexAt(x, y))
		}
	}
}

func TestEncodeBadOrder(t *testing.T) {
	m, err := FromImage(testPaletted(16, 2), 0)
	require.NoError(t, err)

	assert.Equal(t, errOrder, Encode(new(bytes.Buffer), m, []byte{0, 1}))
}

func TestConverter(t *testing.T) {
	m, err := FromImage(testPaletted(16, 2), 0)
	require.NoError(t, err)

	c, err := m.Converter(planar.Interleaved)
	require.NoError(t, err)
	assert.Equal(t, 2*2*2, c.Size())
}
