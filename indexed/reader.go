package indexed

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // register GIF decoder
	_ "image/png" // register PNG decoder
	"io"

	"github.com/ericpauley/go-quantize/quantize"
	_ "golang.org/x/image/bmp" // register BMP decoder
)

var (
	errNotIndexed = errors.New("indexed: not an indexed image")
	errWidth      = errors.New("indexed: image width must be a multiple of 16")
	errColors     = errors.New("indexed: palette must have between 1 and 256 colors")
	errBadIndex   = errors.New("indexed: pixel index outside of palette")
)

// IsPrecondition reports whether err means the image cannot be used for
// bitplane conversion at all.
func IsPrecondition(err error) bool {
	return errors.Is(err, errNotIndexed) || errors.Is(err, errWidth) || errors.Is(err, errColors) || errors.Is(err, errBadIndex)
}

// Decode reads an indexed image from r. If colors is greater than zero any
// image that is not already paletted is quantized to at most that many
// colors, otherwise it is rejected.
func Decode(r io.Reader, colors int) (*Image, string, error) {
	m, format, err := image.Decode(r)
	if err != nil {
		return nil, "", err
	}

	im, err := FromImage(m, colors)
	if err != nil {
		return nil, "", err
	}

	return im, format, nil
}

// Quantize reduces m to a paletted image of at most colors colors using
// median cut.
func Quantize(m image.Image, colors int) *image.Paletted {
	b := m.Bounds()
	q := quantize.MedianCutQuantizer{}
	pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, colors), m))
	draw.Draw(pm, b, m, b.Min, draw.Src)
	return pm
}

// FromImage converts m into an Image, checking that it can be converted to
// bitplanes.
func FromImage(m image.Image, colors int) (*Image, error) {
	pm, _ := m.(*image.Paletted)
	if pm == nil {
		if colors <= 0 {
			return nil, errNotIndexed
		}
		if colors > maxColors {
			return nil, errColors
		}
		pm = Quantize(m, colors)
	}

	if n := len(pm.Palette); n < 1 || n > maxColors {
		return nil, errColors
	}

	b := pm.Bounds()
	if b.Dx()%alignment != 0 {
		return nil, errWidth
	}

	im := &Image{
		Width:   b.Dx(),
		Height:  b.Dy(),
		Pix:     make([]byte, b.Dx()*b.Dy()),
		Palette: append(color.Palette(nil), pm.Palette...),
	}

	// Copy row by row as the stride may be wider than the bounds
	for y := 0; y < im.Height; y++ {
		row := pm.Pix[pm.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(im.Pix[y*im.Width:(y+1)*im.Width], row[:im.Width])
	}

	for _, p := range im.Pix {
		if int(p) >= len(im.Palette) {
			return nil, errBadIndex
		}
	}

	return im, nil
}
