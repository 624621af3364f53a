package video

import (
	"cmp"
	"slices"

	"github.com/sunny-emu/sunny/sunny/bit"
)

const (
	spriteCount       = 40
	maxSpritesPerLine = 10
)

// Sprite represents a single sprite/object in OAM memory.
// The Game Boy has 40 sprites stored in OAM (Object Attribute Memory) from 0xFE00-0xFE9F.
type Sprite struct {
	Y         uint8 // raw Y position, the sprite top is at Y-16
	X         uint8 // raw X position, the sprite left edge is at X-8
	TileIndex uint8 // Tile/pattern number (0-255)
	Flags     uint8 // Attribute flags byte
	OAMIndex  int   // OAM index (0-39)

	// parsed attribute flags for convenience
	PaletteOBP1 bool // false = OBP0, true = OBP1
	FlipX       bool // horizontally flip the sprite
	FlipY       bool // vertically flip the sprite
	BehindBG    bool // true = BG colors 1-3 are drawn over the sprite
}

func (s *Sprite) parseFlags() {
	s.PaletteOBP1 = bit.IsSet(4, s.Flags)
	s.FlipX = bit.IsSet(5, s.Flags)
	s.FlipY = bit.IsSet(6, s.Flags)
	s.BehindBG = bit.IsSet(7, s.Flags)
}

// Sprite decodes the OAM entry at index (0-39).
func (p *PPU) Sprite(index int) Sprite {
	base := index * 4
	s := Sprite{
		Y:         p.oam[base],
		X:         p.oam[base+1],
		TileIndex: p.oam[base+2],
		Flags:     p.oam[base+3],
		OAMIndex:  index,
	}
	s.parseFlags()
	return s
}

// scanOAM selects the sprites overlapping the current line: at most 10, in OAM
// order, then sorted by X. The sort is stable so on X ties the lower OAM
// index is drawn first and wins.
func (p *PPU) scanOAM() {
	p.lineSprites = p.lineSprites[:0]
	height := p.lcdc.spriteHeight()
	line := int(p.ly) + 16

	for i := 0; i < spriteCount && len(p.lineSprites) < maxSpritesPerLine; i++ {
		y := int(p.oam[i*4])
		if line >= y && line < y+height {
			p.lineSprites = append(p.lineSprites, p.Sprite(i))
		}
	}

	slices.SortStableFunc(p.lineSprites, func(a, b Sprite) int {
		return cmp.Compare(a.X, b.X)
	})
}

// LineSprites returns a copy of the sprites selected by the last OAM scan, in fetch order.
func (p *PPU) LineSprites() []Sprite {
	return slices.Clone(p.lineSprites)
}
