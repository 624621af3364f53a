package video

import "github.com/sunny-emu/sunny/sunny/addr"

// fifoPixel is one pending pixel: its 2 bit color index and, for sprite
// pixels, the attributes the compositor needs.
type fifoPixel struct {
	color      uint8
	obp1       bool
	bgPriority bool
}

// pixelFIFO is a fixed size ring buffer, a scanline never queues more than 16 pixels.
type pixelFIFO struct {
	buf  [16]fifoPixel
	head int
	size int
}

func (f *pixelFIFO) len() int { return f.size }

func (f *pixelFIFO) clear() {
	f.head = 0
	f.size = 0
}

func (f *pixelFIFO) push(px fifoPixel) {
	if f.size == len(f.buf) {
		panic("video: pixel FIFO overflow")
	}
	f.buf[(f.head+f.size)%len(f.buf)] = px
	f.size++
}

func (f *pixelFIFO) pop() fifoPixel {
	px := f.buf[f.head]
	f.head = (f.head + 1) % len(f.buf)
	f.size--
	return px
}

// at returns a pointer to the i-th queued pixel, 0 being the next to pop.
func (f *pixelFIFO) at(i int) *fifoPixel {
	return &f.buf[(f.head+i)%len(f.buf)]
}

// fetchStage is a step of the tile fetchers. Tile, low and high data reads
// take 2 dots each, sleep takes 1 and push waits until the pixels fit.
type fetchStage uint8

const (
	stageGetTile fetchStage = iota
	stageDataLow
	stageDataHigh
	stageSleep
	stagePush
)

// fetcher holds the state shared by the background/window and sprite fetchers.
type fetcher struct {
	stage fetchStage
	// half is set on the first dot of a 2 dot stage
	half   bool
	tileID uint8
	row    TileRow
}

func (f *fetcher) reset() {
	*f = fetcher{}
}

// wait burns the first dot of a 2 dot stage, reporting true while the stage is not done.
func (f *fetcher) wait() bool {
	f.half = !f.half
	return f.half
}

// startupDots is the length of the discarded tile fetch at the start of each line.
const startupDots = 6

// drawDot advances the pixel pipeline by one dot in DRAWING mode.
func (p *PPU) drawDot() {
	if p.startup > 0 {
		p.startup--
		return
	}

	p.checkWindow()

	if p.spriteFetching || p.nextSpriteDue() {
		p.spriteFetching = true
		p.stepSpriteFetcher()
		return
	}

	p.stepBackgroundFetcher()

	if p.bgFIFO.len() > 0 {
		p.shiftPixel()
	}
}

// checkWindow switches the background fetcher to the window once the output
// reaches WX-7 on a line at or below WY.
func (p *PPU) checkWindow() {
	if p.windowActive || !p.lcdc.windowEnabled() || p.ly < p.wy || p.x < int(p.wx)-7 {
		return
	}

	p.windowActive = true
	p.windowLine++
	p.bgFIFO.clear()
	p.bgFetch.reset()
	p.tileX = 0
	p.discard = 0
	if p.wx < 7 && p.x == 0 {
		p.discard = 7 - int(p.wx)
	}
}

func (p *PPU) nextSpriteDue() bool {
	if !p.lcdc.spritesEnabled() || p.nextSprite >= len(p.lineSprites) {
		return false
	}
	return int(p.lineSprites[p.nextSprite].X)-8 <= p.x
}

func (p *PPU) stepBackgroundFetcher() {
	f := &p.bgFetch

	switch f.stage {
	case stageGetTile:
		if f.wait() {
			return
		}
		f.tileID = p.vram[p.bgTileMapAddress()-addr.VRAMStart]
		f.stage = stageDataLow

	case stageDataLow:
		if f.wait() {
			return
		}
		f.row.Low = p.vram[p.lcdc.tileDataAddress(f.tileID, p.bgTileRow())-addr.VRAMStart]
		f.stage = stageDataHigh

	case stageDataHigh:
		if f.wait() {
			return
		}
		f.row.High = p.vram[p.lcdc.tileDataAddress(f.tileID, p.bgTileRow())+1-addr.VRAMStart]
		f.stage = stageSleep

	case stageSleep:
		f.stage = stagePush
		fallthrough

	case stagePush:
		if p.bgFIFO.len() > 0 {
			return
		}
		for i := 0; i < 8; i++ {
			p.bgFIFO.push(fifoPixel{color: f.row.Pixel(i)})
		}
		p.tileX++
		f.stage = stageGetTile
	}
}

// bgTileMapAddress returns the map entry of the tile being fetched, from the
// scrolled background or from the window map.
func (p *PPU) bgTileMapAddress() uint16 {
	if p.windowActive {
		row := uint16(p.windowLine/8) & 31
		return p.lcdc.windowTileMap() + row*32 + uint16(p.tileX&31)
	}
	row := uint16(p.scy+p.ly) / 8
	col := (uint16(p.scx/8) + uint16(p.tileX)) & 31
	return p.lcdc.bgTileMap() + row*32 + col
}

func (p *PPU) bgTileRow() int {
	if p.windowActive {
		return p.windowLine % 8
	}
	return int(p.scy+p.ly) % 8
}

func (p *PPU) stepSpriteFetcher() {
	f := &p.objFetch
	sprite := &p.lineSprites[p.nextSprite]

	switch f.stage {
	case stageGetTile:
		if f.wait() {
			return
		}
		f.tileID = sprite.TileIndex
		if p.lcdc.tallSprites() {
			f.tileID &= 0xFE
		}
		f.stage = stageDataLow

	case stageDataLow:
		if f.wait() {
			return
		}
		f.row.Low = p.vram[p.spriteRowAddress(sprite, f.tileID)-addr.VRAMStart]
		f.stage = stageDataHigh

	case stageDataHigh:
		if f.wait() {
			return
		}
		f.row.High = p.vram[p.spriteRowAddress(sprite, f.tileID)+1-addr.VRAMStart]
		f.stage = stageSleep

	case stageSleep:
		f.stage = stagePush

	case stagePush:
		p.mergeSprite(sprite, f.row)
		f.reset()
		p.nextSprite++
		p.spriteFetching = false
	}
}

func (p *PPU) spriteRowAddress(sprite *Sprite, tileID uint8) uint16 {
	// LCDC can shrink sprites after the scan picked them, keep the row inside the current height
	height := p.lcdc.spriteHeight()
	row := (int(p.ly) + 16 - int(sprite.Y)) & (height - 1)
	if sprite.FlipY {
		row = height - 1 - row
	}
	return addr.VRAMStart + uint16(tileID)*16 + uint16(row*2)
}

// mergeSprite overlays a fetched sprite row on the sprite FIFO. Pixels left of
// the current output column are dropped, and a queued pixel is only replaced
// when it is transparent, so the sprite fetched first keeps priority.
func (p *PPU) mergeSprite(sprite *Sprite, row TileRow) {
	skip := p.x - (int(sprite.X) - 8)

	for i := max(skip, 0); i < 8; i++ {
		color := row.Pixel(i)
		if sprite.FlipX {
			color = row.PixelFlipped(i)
		}
		px := fifoPixel{color: color, obp1: sprite.PaletteOBP1, bgPriority: sprite.BehindBG}

		slot := i - skip
		if slot < p.objFIFO.len() {
			if p.objFIFO.at(slot).color == 0 {
				*p.objFIFO.at(slot) = px
			}
			continue
		}
		p.objFIFO.push(px)
	}
}

// shiftPixel pops one pixel from each FIFO, mixes them and writes the result.
func (p *PPU) shiftPixel() {
	bg := p.bgFIFO.pop()
	if p.discard > 0 {
		p.discard--
		return
	}

	color := WhiteColor
	bgColor := uint8(0)
	if p.lcdc.bgEnabled() {
		bgColor = bg.color
		color = shade(p.bgp, bgColor)
	}

	if p.objFIFO.len() > 0 {
		obj := p.objFIFO.pop()
		if p.lcdc.spritesEnabled() && obj.color != 0 && (!obj.bgPriority || bgColor == 0) {
			palette := p.obp0
			if obj.obp1 {
				palette = p.obp1
			}
			color = shade(palette, obj.color)
		}
	}

	p.back.SetPixel(p.x, int(p.ly), color)
	p.x++
}
