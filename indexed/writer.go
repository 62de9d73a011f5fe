package indexed

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
)

var errOrder = errors.New("indexed: order does not match palette")

// Reorder returns a paletted image where original palette index i has been
// moved to slot order[i] and every pixel remapped to match, so the image
// looks identical.
func (m *Image) Reorder(order []byte) (*image.Paletted, error) {
	if len(order) != len(m.Palette) {
		return nil, errOrder
	}

	palette := make(color.Palette, len(m.Palette))
	for i, c := range m.Palette {
		palette[order[i]] = c
	}

	pm := image.NewPaletted(image.Rect(0, 0, m.Width, m.Height), palette)
	for i, p := range m.Pix {
		pm.Pix[i] = order[p]
	}

	return pm, nil
}

// Encode writes m to w as an indexed PNG with its palette reordered by
// order.
func Encode(w io.Writer, m *Image, order []byte) error {
	pm, err := m.Reorder(order)
	if err != nil {
		return err
	}

	e := png.Encoder{CompressionLevel: png.BestCompression}

	return e.Encode(w, pm)
}
