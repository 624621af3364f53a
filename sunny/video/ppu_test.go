package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunny-emu/sunny/sunny/addr"
	"github.com/sunny-emu/sunny/sunny/interrupt"
)

func newTestPPU() (*PPU, *interrupt.Controller) {
	irq := interrupt.New()
	return New(irq), irq
}

// drawingLength steps through OAM scan and returns how many dots DRAWING lasted.
func drawingLength(t *testing.T, p *PPU) int {
	t.Helper()
	p.Step(oamScanDots)
	require.Equal(t, ModeDrawing, p.Mode())

	dots := 0
	for p.Mode() == ModeDrawing {
		p.Step(1)
		dots++
		require.LessOrEqual(t, dots, maxDrawingDots)
	}
	return dots
}

func writeTile(p *PPU, tile int, low, high uint8) {
	for row := 0; row < 8; row++ {
		base := addr.TileData0 + uint16(tile*16+row*2)
		p.WriteVRAM(base, low)
		p.WriteVRAM(base+1, high)
	}
}

func writeSprite(p *PPU, index int, y, x, tile, flags uint8) {
	base := addr.OAMStart + uint16(index*4)
	p.WriteOAM(base, y)
	p.WriteOAM(base+1, x)
	p.WriteOAM(base+2, tile)
	p.WriteOAM(base+3, flags)
}

func TestLineTiming(t *testing.T) {
	t.Run("OAM scan lasts 80 dots", func(t *testing.T) {
		p, _ := newTestPPU()
		assert.Equal(t, ModeOAMScan, p.Mode())
		p.Step(oamScanDots - 1)
		assert.Equal(t, ModeOAMScan, p.Mode())
		p.Step(1)
		assert.Equal(t, ModeDrawing, p.Mode())
	})

	tests := []struct {
		name  string
		setup func(p *PPU)
		want  int
	}{
		{"plain background", func(p *PPU) {}, 172},
		{"fine scroll discards pixels", func(p *PPU) { p.WriteRegister(addr.SCX, 3) }, 175},
		{"coarse scroll is free", func(p *PPU) { p.WriteRegister(addr.SCX, 16) }, 172},
		{"sprite fetch stalls the pipeline", func(p *PPU) {
			p.WriteRegister(addr.LCDC, 0x93)
			writeSprite(p, 0, 16, 8, 0, 0)
		}, 180},
		{"disabled sprites are not fetched", func(p *PPU) {
			writeSprite(p, 0, 16, 8, 0, 0)
		}, 172},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPPU()
			tt.setup(p)
			assert.Equal(t, tt.want, drawingLength(t, p))
		})
	}

	t.Run("scanline is 456 dots", func(t *testing.T) {
		p, _ := newTestPPU()
		p.WriteRegister(addr.SCX, 7)
		p.Step(dotsPerLine - 1)
		assert.Equal(t, ModeHBlank, p.Mode())
		assert.Equal(t, uint8(0), p.LY())
		p.Step(1)
		assert.Equal(t, uint8(1), p.LY())
		assert.Equal(t, ModeOAMScan, p.Mode())
		assert.Equal(t, 0, p.Dot())
	})

	t.Run("frame is 70224 dots with 10 VBlank lines", func(t *testing.T) {
		p, irq := newTestPPU()
		p.Step(visibleLines * dotsPerLine)
		assert.Equal(t, ModeVBlank, p.Mode())
		assert.Equal(t, uint8(144), p.LY())
		assert.NotZero(t, irq.Requested&interrupt.VBlank.Mask())

		p.Step(9 * dotsPerLine)
		assert.Equal(t, uint8(153), p.LY())
		assert.Equal(t, ModeVBlank, p.Mode())

		p.Step(dotsPerLine)
		assert.Equal(t, uint8(0), p.LY())
		assert.Equal(t, ModeOAMScan, p.Mode())
		assert.Equal(t, uint64(1), p.Frames())
	})
}

func TestOAMScan(t *testing.T) {
	t.Run("at most 10 sprites per line in OAM order", func(t *testing.T) {
		p, _ := newTestPPU()
		for i := 0; i < 12; i++ {
			writeSprite(p, i, 16, uint8(100-i*8), 0, 0)
		}
		p.Step(oamScanDots)

		sprites := p.LineSprites()
		require.Len(t, sprites, maxSpritesPerLine)
		for _, s := range sprites {
			assert.Less(t, s.OAMIndex, 10)
		}
		// sorted by X, so the highest OAM index comes first
		assert.Equal(t, 9, sprites[0].OAMIndex)
	})

	t.Run("X ties keep OAM order", func(t *testing.T) {
		p, _ := newTestPPU()
		writeSprite(p, 0, 16, 20, 0, 0)
		writeSprite(p, 1, 16, 20, 0, 0)
		writeSprite(p, 2, 16, 10, 0, 0)
		p.Step(oamScanDots)

		var order []int
		for _, s := range p.LineSprites() {
			order = append(order, s.OAMIndex)
		}
		assert.Equal(t, []int{2, 0, 1}, order)
	})

	t.Run("sprite height follows LCDC", func(t *testing.T) {
		p, _ := newTestPPU()
		writeSprite(p, 0, 8, 20, 0, 0) // covers lines -8..-1 when 8 high, -8..7 when 16 high
		p.Step(oamScanDots)
		assert.Empty(t, p.LineSprites())

		p, _ = newTestPPU()
		p.WriteRegister(addr.LCDC, 0x95)
		writeSprite(p, 0, 8, 20, 0, 0)
		p.Step(oamScanDots)
		assert.Len(t, p.LineSprites(), 1)
	})

	t.Run("returned sprites are a copy", func(t *testing.T) {
		p, _ := newTestPPU()
		writeSprite(p, 0, 16, 20, 0, 0)
		p.Step(oamScanDots)

		sprites := p.LineSprites()
		require.Len(t, sprites, 1)
		sprites[0].X = 99
		assert.Equal(t, uint8(20), p.LineSprites()[0].X)
	})

	t.Run("sprite height shrinking while drawing", func(t *testing.T) {
		p, _ := newTestPPU()
		p.WriteRegister(addr.LCDC, 0x97)
		// 16 high and Y flipped, line 0 is row 10 of the sprite
		writeSprite(p, 0, 6, 8, 0, 0x40)
		p.Step(oamScanDots)
		require.Len(t, p.LineSprites(), 1)

		p.WriteRegister(addr.LCDC, 0x93)
		assert.NotPanics(t, func() { p.Step(300) })
		assert.Equal(t, ModeHBlank, p.Mode())
	})

	t.Run("sprite flags", func(t *testing.T) {
		p, _ := newTestPPU()
		writeSprite(p, 3, 16, 8, 0x42, 0xF0)
		s := p.Sprite(3)
		assert.Equal(t, uint8(0x42), s.TileIndex)
		assert.True(t, s.PaletteOBP1)
		assert.True(t, s.FlipX)
		assert.True(t, s.FlipY)
		assert.True(t, s.BehindBG)
	})
}

func TestRegisters(t *testing.T) {
	t.Run("read back what was written", func(t *testing.T) {
		for _, address := range []uint16{addr.SCY, addr.SCX, addr.LYC, addr.BGP, addr.OBP0, addr.OBP1, addr.WY, addr.WX} {
			p, _ := newTestPPU()
			for _, v := range []uint8{0x00, 0x5A, 0xFF} {
				p.WriteRegister(address, v)
				assert.Equal(t, v, p.ReadRegister(address), "register 0x%04X", address)
			}
		}
	})

	t.Run("post boot values", func(t *testing.T) {
		p, _ := newTestPPU()
		assert.Equal(t, uint8(0x91), p.ReadRegister(addr.LCDC))
		assert.Equal(t, uint8(0xFC), p.ReadRegister(addr.BGP))
		assert.Equal(t, uint8(0xFF), p.ReadRegister(addr.OBP0))
		assert.Equal(t, uint8(0xFF), p.ReadRegister(addr.OBP1))
	})

	t.Run("LY is read only", func(t *testing.T) {
		p, _ := newTestPPU()
		p.Step(3 * dotsPerLine)
		p.WriteRegister(addr.LY, 0x40)
		assert.Equal(t, uint8(3), p.ReadRegister(addr.LY))
	})

	t.Run("STAT only stores the select bits", func(t *testing.T) {
		p, _ := newTestPPU()
		p.WriteRegister(addr.LYC, 5)
		p.WriteRegister(addr.STAT, 0xFF)
		assert.Equal(t, uint8(0x80|0x78|uint8(ModeOAMScan)), p.ReadRegister(addr.STAT))

		p.WriteRegister(addr.STAT, 0x00)
		assert.Equal(t, uint8(0x80|uint8(ModeOAMScan)), p.ReadRegister(addr.STAT))
	})
}

func TestLCDOff(t *testing.T) {
	p, irq := newTestPPU()
	p.Step(10*dotsPerLine + 100)
	p.WriteRegister(addr.LCDC, 0x11)

	assert.Equal(t, uint8(0), p.LY())
	assert.Equal(t, ModeHBlank, p.Mode())
	assert.True(t, p.VRAMAccessible())
	assert.True(t, p.OAMAccessible())

	irq.Requested = 0
	p.Step(DotsPerFrame)
	assert.Equal(t, uint8(0), p.LY())
	assert.Equal(t, ModeHBlank, p.Mode())
	assert.Zero(t, irq.Requested)
	assert.Equal(t, WhiteColor, p.Framebuffer().GetPixel(80, 72))

	t.Run("turning it back on restarts at line 0", func(t *testing.T) {
		p.WriteRegister(addr.LCDC, 0x91)
		assert.Equal(t, ModeOAMScan, p.Mode())
		assert.Equal(t, 0, p.Dot())
		p.Step(dotsPerLine)
		assert.Equal(t, uint8(1), p.LY())
	})
}

func TestStatInterrupts(t *testing.T) {
	tests := []struct {
		name   string
		stat   uint8
		lyc    uint8
		cycles int
	}{
		{"HBlank", 1 << statHBlankInterrupt, 0xFF, oamScanDots + 172},
		{"OAM scan", 1 << statOAMInterrupt, 0xFF, dotsPerLine},
		{"VBlank", 1 << statVBlankInterrupt, 0xFF, visibleLines * dotsPerLine},
		{"LY coincidence", 1 << statLYCInterrupt, 2, 2 * dotsPerLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, irq := newTestPPU()
			p.WriteRegister(addr.LYC, tt.lyc)
			p.WriteRegister(addr.STAT, tt.stat)
			irq.Requested = 0

			p.Step(tt.cycles - 1)
			assert.Zero(t, irq.Requested&interrupt.LCD.Mask())
			p.Step(1)
			assert.NotZero(t, irq.Requested&interrupt.LCD.Mask())
		})
	}

	t.Run("no request without select bits", func(t *testing.T) {
		p, irq := newTestPPU()
		irq.Requested = 0
		p.Step(DotsPerFrame)
		assert.Zero(t, irq.Requested&interrupt.LCD.Mask())
	})

	t.Run("coincidence flag", func(t *testing.T) {
		p, _ := newTestPPU()
		p.WriteRegister(addr.LYC, 1)
		assert.Zero(t, p.ReadRegister(addr.STAT)&(1<<statCoincidence))
		p.Step(dotsPerLine)
		assert.NotZero(t, p.ReadRegister(addr.STAT)&(1<<statCoincidence))
		p.Step(dotsPerLine)
		assert.Zero(t, p.ReadRegister(addr.STAT)&(1<<statCoincidence))
	})

	t.Run("writing LYC compares immediately", func(t *testing.T) {
		p, irq := newTestPPU()
		p.WriteRegister(addr.LYC, 9)
		p.WriteRegister(addr.STAT, 1<<statLYCInterrupt)
		irq.Requested = 0
		p.WriteRegister(addr.LYC, 0)
		assert.NotZero(t, irq.Requested&interrupt.LCD.Mask())
	})
}

func TestAccessGating(t *testing.T) {
	p, _ := newTestPPU()
	assert.True(t, p.VRAMAccessible())
	assert.False(t, p.OAMAccessible(), "OAM scan")

	p.Step(oamScanDots)
	assert.False(t, p.VRAMAccessible(), "drawing")
	assert.False(t, p.OAMAccessible(), "drawing")

	p.Step(maxDrawingDots)
	assert.True(t, p.VRAMAccessible(), "hblank")
	assert.True(t, p.OAMAccessible(), "hblank")

	t.Run("DMA locks OAM for 640 cycles", func(t *testing.T) {
		p.StartDMA()
		assert.True(t, p.DMAActive())
		assert.False(t, p.OAMAccessible())
		p.Step(DMADuration - 1)
		assert.True(t, p.DMAActive())
		p.Step(1)
		assert.False(t, p.DMAActive())
	})

	t.Run("DMA counts down with the LCD off", func(t *testing.T) {
		p.WriteRegister(addr.LCDC, 0)
		p.StartDMA()
		p.Step(DMADuration)
		assert.False(t, p.DMAActive())
	})
}

func TestRendering(t *testing.T) {
	const (
		blackTile = 1 // color 3
		lightTile = 2 // color 1
	)

	setup := func(lcdcValue uint8) *PPU {
		p, _ := newTestPPU()
		writeTile(p, blackTile, 0xFF, 0xFF)
		writeTile(p, lightTile, 0xFF, 0x00)
		p.WriteRegister(addr.BGP, 0xE4)
		p.WriteRegister(addr.OBP0, 0xE4)
		p.WriteRegister(addr.OBP1, 0x1B)
		p.WriteRegister(addr.LCDC, lcdcValue)
		return p
	}

	t.Run("background tiles", func(t *testing.T) {
		p := setup(0x91)
		p.WriteVRAM(addr.TileMap0, blackTile)
		p.WriteVRAM(addr.TileMap0+32+1, lightTile)
		p.Step(DotsPerFrame)

		fb := p.Framebuffer()
		assert.Equal(t, BlackColor, fb.GetPixel(0, 0))
		assert.Equal(t, BlackColor, fb.GetPixel(7, 7))
		assert.Equal(t, WhiteColor, fb.GetPixel(8, 0))
		assert.Equal(t, LightGreyColor, fb.GetPixel(8, 8))
		assert.Equal(t, WhiteColor, fb.GetPixel(8, 16))
	})

	t.Run("scroll", func(t *testing.T) {
		p := setup(0x91)
		p.WriteVRAM(addr.TileMap0+1, blackTile)
		p.WriteRegister(addr.SCX, 12)
		p.Step(DotsPerFrame)

		fb := p.Framebuffer()
		assert.Equal(t, BlackColor, fb.GetPixel(0, 0))
		assert.Equal(t, BlackColor, fb.GetPixel(3, 0))
		assert.Equal(t, WhiteColor, fb.GetPixel(4, 0))
	})

	t.Run("signed tile addressing", func(t *testing.T) {
		p := setup(0x81)
		for row := uint16(0); row < 16; row++ {
			p.WriteVRAM(addr.TileData2-16+row, 0xFF) // tile -1
		}
		p.WriteVRAM(addr.TileMap0, 0xFF)
		p.Step(DotsPerFrame)
		assert.Equal(t, BlackColor, p.Framebuffer().GetPixel(0, 0))
	})

	t.Run("background disabled is white", func(t *testing.T) {
		p := setup(0x90)
		p.WriteVRAM(addr.TileMap0, blackTile)
		p.Step(DotsPerFrame)
		assert.Equal(t, WhiteColor, p.Framebuffer().GetPixel(0, 0))
	})

	t.Run("sprites", func(t *testing.T) {
		tests := []struct {
			name    string
			bgTile  uint8
			flags   uint8
			x, y    int
			want    GBColor
			lcdcVal uint8
		}{
			{"drawn over color 0", 0, 0, 10, 0, LightGreyColor, 0x93},
			{"OBP1 palette", 0, 1 << 4, 10, 0, DarkGreyColor, 0x93},
			{"over opaque background", blackTile, 0, 10, 0, LightGreyColor, 0x93},
			{"behind opaque background", blackTile, 1 << 7, 10, 0, BlackColor, 0x93},
			{"behind transparent background", 0, 1 << 7, 10, 0, LightGreyColor, 0x93},
			{"sprites disabled", 0, 0, 10, 0, WhiteColor, 0x91},
			{"left of the sprite", 0, 0, 9, 0, WhiteColor, 0x93},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p := setup(tt.lcdcVal)
				for i := uint16(0); i < 32; i++ {
					p.WriteVRAM(addr.TileMap0+i, tt.bgTile)
				}
				writeSprite(p, 0, 16, 18, lightTile, tt.flags)
				p.Step(DotsPerFrame)
				assert.Equal(t, tt.want, p.Framebuffer().GetPixel(tt.x, tt.y))
			})
		}
	})

	t.Run("transparent sprite pixels show the sprite behind", func(t *testing.T) {
		p := setup(0x93)
		writeTile(p, 3, 0x0F, 0x0F) // left half transparent
		writeSprite(p, 0, 16, 8, 3, 0)
		writeSprite(p, 1, 16, 8, lightTile, 0)
		p.Step(DotsPerFrame)

		fb := p.Framebuffer()
		assert.Equal(t, LightGreyColor, fb.GetPixel(0, 0))
		assert.Equal(t, BlackColor, fb.GetPixel(4, 0))
	})

	t.Run("partially offscreen sprite", func(t *testing.T) {
		p := setup(0x93)
		writeTile(p, 3, 0xF0, 0xF0) // left half black
		writeSprite(p, 0, 16, 4, 3, 0)
		p.Step(DotsPerFrame)

		fb := p.Framebuffer()
		assert.Equal(t, WhiteColor, fb.GetPixel(0, 0))
		assert.Equal(t, WhiteColor, fb.GetPixel(3, 0))
	})

	t.Run("flipped sprite", func(t *testing.T) {
		p := setup(0x93)
		writeTile(p, 3, 0xF0, 0xF0)
		writeSprite(p, 0, 16, 8, 3, 1<<5)
		p.Step(DotsPerFrame)

		fb := p.Framebuffer()
		assert.Equal(t, WhiteColor, fb.GetPixel(0, 0))
		assert.Equal(t, BlackColor, fb.GetPixel(4, 0))
	})

	t.Run("window", func(t *testing.T) {
		tests := []struct {
			name string
			wx   uint8
			wy   uint8
			x, y int
			want GBColor
		}{
			{"covers from WX-7", 87, 0, 80, 0, BlackColor},
			{"background left of WX-7", 87, 0, 79, 0, WhiteColor},
			{"above WY", 7, 10, 0, 9, WhiteColor},
			{"from WY down", 7, 10, 0, 10, BlackColor},
			{"full width", 7, 0, 159, 143, BlackColor},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p := setup(0xF1)
				for i := uint16(0); i < 32*32; i++ {
					p.WriteVRAM(addr.TileMap1+i, blackTile)
				}
				p.WriteRegister(addr.WX, tt.wx)
				p.WriteRegister(addr.WY, tt.wy)
				p.Step(DotsPerFrame)
				assert.Equal(t, tt.want, p.Framebuffer().GetPixel(tt.x, tt.y))
			})
		}
	})

	t.Run("window disabled", func(t *testing.T) {
		p := setup(0xD1)
		p.WriteVRAM(addr.TileMap1, blackTile)
		p.WriteRegister(addr.WX, 7)
		p.Step(DotsPerFrame)
		assert.Equal(t, WhiteColor, p.Framebuffer().GetPixel(0, 0))
	})

	t.Run("front buffer only changes on VBlank", func(t *testing.T) {
		p := setup(0x91)
		p.WriteVRAM(addr.TileMap0, blackTile)
		p.Step(10 * dotsPerLine)
		assert.Equal(t, WhiteColor, p.Framebuffer().GetPixel(0, 0))
		p.Step(DotsPerFrame - 10*dotsPerLine)
		assert.Equal(t, BlackColor, p.Framebuffer().GetPixel(0, 0))
	})
}
