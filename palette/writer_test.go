package palette

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPalette = color.Palette{
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{0xff, 0x80, 0x10, 0xff},
	color.RGBA{0x12, 0x34, 0x56, 0xff},
}

func TestColor12(t *testing.T) {
	tables := []struct {
		c    color.Color
		want uint16
	}{
		{color.RGBA{0x00, 0x00, 0x00, 0xff}, 0x000},
		{color.RGBA{0xff, 0xff, 0xff, 0xff}, 0xfff},
		{color.RGBA{0xff, 0x80, 0x10, 0xff}, 0xf81},
		{color.RGBA{0x12, 0x34, 0x56, 0xff}, 0x135},
		{color.Gray{0x7f}, 0x777},
	}

	for _, table := range tables {
		assert.Equal(t, table.want, Color12(table.c), "%v", table.c)
	}
}

func TestEncodeRaw(t *testing.T) {
	b := new(bytes.Buffer)
	require.NoError(t, EncodeRaw(b, testPalette, nil))
	assert.Equal(t, []byte{0x00, 0x00, 0x0f, 0x81, 0x01, 0x35}, b.Bytes())

	b.Reset()
	require.NoError(t, EncodeRaw(b, testPalette, []byte{2, 0, 1}))
	assert.Equal(t, []byte{0x0f, 0x81, 0x01, 0x35, 0x00, 0x00}, b.Bytes())
}

func TestEncodeCopper(t *testing.T) {
	b := new(bytes.Buffer)
	require.NoError(t, EncodeCopper(b, testPalette, []byte{1, 0, 2}))
	assert.Equal(t, []byte{
		0x01, 0x80, 0x0f, 0x81,
		0x01, 0x82, 0x00, 0x00,
		0x01, 0x84, 0x01, 0x35,
	}, b.Bytes())
}

func TestEncodeErrors(t *testing.T) {
	assert.Equal(t, errOrder, EncodeRaw(new(bytes.Buffer), testPalette, []byte{0, 1}))
	assert.Equal(t, errOrder, EncodeCopper(new(bytes.Buffer), testPalette, []byte{0}))

	big := make(color.Palette, MaxRegisters+1)
	for i := range big {
		big[i] = color.Black
	}
	assert.Equal(t, errRegisters, EncodeCopper(new(bytes.Buffer), big, nil))
}
