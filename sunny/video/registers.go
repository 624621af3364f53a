package video

import (
	"github.com/sunny-emu/sunny/sunny/addr"
	"github.com/sunny-emu/sunny/sunny/bit"
)

// LCDC (LCD Control) Register bit values
// Bit 7 - LCD Display Enable (0=Off, 1=On)
// Bit 6 - Window Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 5 - Window Display Enable (0=Off, 1=On)
// Bit 4 - BG & Window Tile Data Select (0=8800-97FF, 1=8000-8FFF)
// Bit 3 - BG Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 2 - OBJ (Sprite) Size (0=8x8, 1=8x16)
// Bit 1 - OBJ (Sprite) Display Enable (0=Off, 1=On)
// Bit 0 - BG Display (0=Off, 1=On)
type lcdc uint8

const (
	lcdDisplayEnable       = 7
	windowTileMapSelect    = 6
	windowDisplayEnable    = 5
	bgWindowTileDataSelect = 4
	bgTileMapDisplaySelect = 3
	spriteSize             = 2
	spriteDisplayEnable    = 1
	bgDisplay              = 0
)

func (l lcdc) enabled() bool        { return bit.IsSet(lcdDisplayEnable, uint8(l)) }
func (l lcdc) windowEnabled() bool  { return bit.IsSet(windowDisplayEnable, uint8(l)) }
func (l lcdc) unsignedTiles() bool  { return bit.IsSet(bgWindowTileDataSelect, uint8(l)) }
func (l lcdc) tallSprites() bool    { return bit.IsSet(spriteSize, uint8(l)) }
func (l lcdc) spritesEnabled() bool { return bit.IsSet(spriteDisplayEnable, uint8(l)) }
func (l lcdc) bgEnabled() bool      { return bit.IsSet(bgDisplay, uint8(l)) }

func (l lcdc) bgTileMap() uint16 {
	if bit.IsSet(bgTileMapDisplaySelect, uint8(l)) {
		return addr.TileMap1
	}
	return addr.TileMap0
}

func (l lcdc) windowTileMap() uint16 {
	if bit.IsSet(windowTileMapSelect, uint8(l)) {
		return addr.TileMap1
	}
	return addr.TileMap0
}

func (l lcdc) spriteHeight() int {
	if l.tallSprites() {
		return 16
	}
	return 8
}

// tileDataAddress returns the address of the row inside the tile with the given id.
// With unsigned addressing ids index from 0x8000, otherwise they are signed
// offsets from 0x9000.
func (l lcdc) tileDataAddress(id uint8, row int) uint16 {
	if l.unsignedTiles() {
		return addr.TileData0 + uint16(id)*16 + uint16(row*2)
	}
	return uint16(int(addr.TileData2) + int(int8(id))*16 + row*2)
}

// STAT (LCD Status) register bits. Bits 0-2 are read only, bit 7 always reads 1.
const (
	statLYCInterrupt    = 6
	statOAMInterrupt    = 5
	statVBlankInterrupt = 4
	statHBlankInterrupt = 3
	statCoincidence     = 2

	statWritableMask = 0x78
)

// ReadRegister reads one of the registers in 0xFF40-0xFF4B.
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case addr.LCDC:
		return uint8(p.lcdc)
	case addr.STAT:
		return 0x80 | p.stat&(statWritableMask|1<<statCoincidence) | uint8(p.mode)
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.ly
	case addr.LYC:
		return p.lyc
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	}
	return 0xFF
}

// WriteRegister writes one of the registers in 0xFF40-0xFF4B. LY is read only
// and DMA is handled by the MMU.
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address {
	case addr.LCDC:
		p.writeLCDC(value)
	case addr.STAT:
		p.stat = p.stat&^statWritableMask | value&statWritableMask
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LYC:
		p.lyc = value
		if p.lcdc.enabled() {
			p.compareLY()
		}
	case addr.BGP:
		p.bgp = value
	case addr.OBP0:
		p.obp0 = value
	case addr.OBP1:
		p.obp1 = value
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	}
}

func (p *PPU) writeLCDC(value uint8) {
	wasEnabled := p.lcdc.enabled()
	p.lcdc = lcdc(value)

	switch {
	case wasEnabled && !p.lcdc.enabled():
		p.ly = 0
		p.dot = 0
		p.mode = ModeHBlank
		p.resetLine()
		p.front.Fill(WhiteColor)
	case !wasEnabled && p.lcdc.enabled():
		p.ly = 0
		p.dot = 0
		p.windowLine = -1
		p.mode = ModeOAMScan
		p.resetLine()
		p.compareLY()
	}
}

// shade resolves a 2 bit color index through a palette register.
func shade(palette uint8, color uint8) GBColor {
	return shades[(palette>>(color*2))&0x03]
}
