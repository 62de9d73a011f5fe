/*
Package planar implements chunky to planar conversion of indexed pixel data.

Each pixel index is split across a number of bitplanes, one bit per plane,
with the leftmost pixel of each group of eight stored in the most significant
bit of a byte. A row of pixels is therefore width/8 bytes per plane, which is
why the width must be a multiple of 16 for the word-aligned hardware this
targets.

Two layouts are supported. In the Planar layout each bitplane is stored in
full, one after another. In the Interleaved layout the planes of each row are
stored together, so row y of plane p immediately follows row y of plane p-1.
*/
package planar

import (
	"errors"
	"fmt"
	"math/bits"
)

const (
	pixelsPerByte = 8

	// Alignment is the required multiple for the image width
	Alignment = 16

	// MaxColors is the largest palette that can be represented
	MaxColors = 1 << pixelsPerByte
)

var (
	errWidth  = errors.New("planar: width must be a multiple of 16")
	errPixels = errors.New("planar: pixel data does not match dimensions")
)

// Layout selects how bitplanes are arranged in the output buffer.
type Layout int

const (
	// Planar stores each bitplane contiguously
	Planar Layout = iota
	// Interleaved stores the bitplanes of each row together
	Interleaved
)

func (l Layout) String() string {
	switch l {
	case Planar:
		return "planar"
	case Interleaved:
		return "interleaved"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout returns the Layout with the given name.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "planar":
		return Planar, nil
	case "interleaved":
		return Interleaved, nil
	}
	return Planar, fmt.Errorf("planar: unknown layout %q", s)
}

// Bitplanes returns the number of bitplanes needed to represent colors
// distinct indices, that is ceil(log2(colors)).
func Bitplanes(colors int) int {
	if colors <= 1 {
		return 0
	}
	return bits.Len(uint(colors - 1))
}

// Converter converts a fixed grid of pixel indices into bitplane data. It
// holds no mutable state so a single Converter may be shared between
// goroutines as long as each uses its own destination buffer.
type Converter struct {
	pix       []byte
	width     int
	height    int
	bitplanes int
	layout    Layout
}

// New returns a Converter for the given pixel indices, one byte per pixel in
// row-major order.
func New(pix []byte, width, height, bitplanes int, layout Layout) (*Converter, error) {
	if width%Alignment != 0 {
		return nil, errWidth
	}
	if width < 0 || height < 0 || len(pix) != width*height {
		return nil, errPixels
	}
	if bitplanes < 0 || bitplanes > pixelsPerByte {
		return nil, fmt.Errorf("planar: unsupported number of bitplanes %d", bitplanes)
	}
	return &Converter{
		pix:       pix,
		width:     width,
		height:    height,
		bitplanes: bitplanes,
		layout:    layout,
	}, nil
}

// Size returns the length in bytes of the converted data.
func (c *Converter) Size() int {
	return c.width / pixelsPerByte * c.height * c.bitplanes
}

// Convert writes the bitplane data into dst, which must be at least Size()
// bytes long. Each pixel index i is first mapped through order[i].
func (c *Converter) Convert(dst, order []byte) {
	byteWidth := c.width / pixelsPerByte

	rowSize, planeOffset := byteWidth, c.height*byteWidth
	if c.layout == Interleaved {
		rowSize, planeOffset = c.bitplanes*byteWidth, byteWidth
	}

	dst = dst[:c.Size()]
	for i := range dst {
		dst[i] = 0
	}

	i := 0
	for y := 0; y < c.height; y++ {
		rowStart := y * rowSize
		for x := 0; x < byteWidth; x++ {
			var planes [pixelsPerByte]byte
			for p := 0; p < pixelsPerByte; p++ {
				idx := order[c.pix[i]]
				i++
				for bpl := 0; bpl < c.bitplanes; bpl++ {
					if idx&(1<<bpl) != 0 {
						planes[bpl] |= 0x80 >> p
					}
				}
			}
			for bpl := 0; bpl < c.bitplanes; bpl++ {
				dst[rowStart+x+planeOffset*bpl] = planes[bpl]
			}
		}
	}
}
