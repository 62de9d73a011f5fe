/*
Package indexed implements loading and saving of palette-based images for
bitplane conversion.

An Image is a grid of palette indices, one byte per pixel, together with the
palette itself. The width must be a multiple of 16 pixels so every row fills
a whole number of 16-bit words once converted to bitplanes, and the palette
holds at most 256 colors.

PNG, GIF and BMP input is supported. Any image that does not decode to a
paletted image can be quantized to a fixed number of colors first.
*/
package indexed

import (
	"image/color"

	"github.com/bodgit/bplopt/planar"
)

const (
	maxColors = planar.MaxColors
	alignment = planar.Alignment
)

// Image is an indexed image.
type Image struct {
	Width  int
	Height int
	// Pix holds one palette index per pixel in row-major order
	Pix     []byte
	Palette color.Palette
}

// Colors returns the number of palette entries.
func (m *Image) Colors() int {
	return len(m.Palette)
}

// Bitplanes returns the number of bitplanes needed for the palette.
func (m *Image) Bitplanes() int {
	return planar.Bitplanes(len(m.Palette))
}

// Converter returns a planar.Converter for the image.
func (m *Image) Converter(layout planar.Layout) (*planar.Converter, error) {
	return planar.New(m.Pix, m.Width, m.Height, m.Bitplanes(), layout)
}
