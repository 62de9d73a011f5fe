package palette

import (
	"encoding/binary"
	"errors"
	"image/color"
	"io"
)

var (
	errOrder     = errors.New("palette: order does not match palette")
	errRegisters = errors.New("palette: too many colors for copper list")
)

// Color12 packs c into a 12-bit 0x0RGB word using the top four bits of each
// channel.
func Color12(c color.Color) uint16 {
	r, g, b, _ := c.RGBA()
	return uint16(r>>12&0xf)<<8 | uint16(g>>12&0xf)<<4 | uint16(b>>12&0xf)
}

type encoder struct {
	w io.Writer
}

func (e *encoder) writeWord(v uint16) error {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	_, err := e.w.Write(tmp[:])
	return err
}

// reorder returns the palette with entry i moved to slot order[i]. A nil
// order leaves the palette as is.
func reorder(p color.Palette, order []byte) (color.Palette, error) {
	if order == nil {
		return p, nil
	}
	if len(order) != len(p) {
		return nil, errOrder
	}
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[order[i]] = c
	}
	return out, nil
}

// EncodeRaw writes p to w as raw 12-bit color words, with entry i written
// to slot order[i].
func EncodeRaw(w io.Writer, p color.Palette, order []byte) error {
	p, err := reorder(p, order)
	if err != nil {
		return err
	}

	e := encoder{w: w}
	for _, c := range p {
		if err := e.writeWord(Color12(c)); err != nil {
			return err
		}
	}
	return nil
}

// EncodeCopper writes p to w as copper list MOVE instructions, with entry i
// loaded into color register order[i].
func EncodeCopper(w io.Writer, p color.Palette, order []byte) error {
	if len(p) > MaxRegisters {
		return errRegisters
	}

	p, err := reorder(p, order)
	if err != nil {
		return err
	}

	e := encoder{w: w}
	for k, c := range p {
		if err := e.writeWord(uint16(colorRegister + k*registerSize)); err != nil {
			return err
		}
		if err := e.writeWord(Color12(c)); err != nil {
			return err
		}
	}
	return nil
}
