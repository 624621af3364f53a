package video

import "github.com/sunny-emu/sunny/sunny/bit"

// TileRow represents one row of a tile pattern (8 pixels).
//
// Game Boy tiles are 8x8 pixels, with 2 bits per pixel allowing 4 colors.
// Each tile row uses 2 bytes in a bit-plane format:
//
//	Byte 1 (Low):  Bit plane 0 - provides bit 0 of each pixel's color
//	Byte 2 (High): Bit plane 1 - provides bit 1 of each pixel's color
//
// Bit 7 represents the leftmost pixel, bit 0 the rightmost:
//
//	Bit:     7 6 5 4 3 2 1 0
//	Pixel:   0 1 2 3 4 5 6 7
//
// Example: Bytes $3C and $7E represent a row:
//
//	Low  (0x3C): 0 0 1 1 1 1 0 0
//	High (0x7E): 0 1 1 1 1 1 1 0
//	            -----------------
//	Colors:      0 2 3 3 3 3 2 0
//
// The fetchers fill one TileRow per fetch, the decoded color indices are
// what gets pushed into the pixel FIFOs.
//
// Reference: https://gbdev.io/pandocs/Tile_Data.html
type TileRow struct {
	Low  uint8
	High uint8
}

// Pixel extracts the color index (0-3) of a pixel, 0 being the leftmost.
func (t TileRow) Pixel(pixelX int) uint8 {
	return t.pixelAtBit(uint8(7 - pixelX))
}

// PixelFlipped extracts a pixel with horizontal flip, used for sprites with the flip X attribute.
func (t TileRow) PixelFlipped(pixelX int) uint8 {
	return t.pixelAtBit(uint8(pixelX))
}

func (t TileRow) pixelAtBit(bitIndex uint8) uint8 {
	return bit.Value(bitIndex, t.High)<<1 | bit.Value(bitIndex, t.Low)
}
