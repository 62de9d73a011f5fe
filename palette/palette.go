/*
Package palette implements export of palettes for Amiga OCS/ECS hardware.

Colors are reduced to 12 bits, four bits per channel, and packed into a 16-bit
word as 0000RRRRGGGGBBBB. All words are stored big-endian.

Two formats are supported. The raw format is simply one color word per
palette slot. The copper format is a fragment of a copper list that sets each
color register in turn: for slot k the register word 0x0180 + 2k followed by
the color word.
*/
package palette

const (
	colorRegister = 0x0180
	registerSize  = 2

	// MaxRegisters is the number of hardware color registers; palettes
	// larger than this need AGA bank switching which isn't supported
	MaxRegisters = 32
)
