package video

import (
	"github.com/sunny-emu/sunny/sunny/addr"
	"github.com/sunny-emu/sunny/sunny/interrupt"
)

// Mode is the PPU mode as reported in the low bits of STAT.
type Mode uint8

const (
	ModeHBlank  Mode = 0
	ModeVBlank  Mode = 1
	ModeOAMScan Mode = 2
	ModeDrawing Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModeHBlank:
		return "HBLANK"
	case ModeVBlank:
		return "VBLANK"
	case ModeOAMScan:
		return "OAM_SCAN"
	}
	return "DRAWING"
}

const (
	oamScanDots    = 80
	maxDrawingDots = 289
	dotsPerLine    = 456
	visibleLines   = 144
	linesPerFrame  = 154

	// DotsPerFrame is the length of a full frame in T-cycles.
	DotsPerFrame = dotsPerLine * linesPerFrame

	// DMADuration is how long an OAM DMA transfer keeps the bus busy, in T-cycles.
	DMADuration = 640
)

// PPU is the pixel processing unit. It is advanced one dot (T-cycle) at a
// time and renders through a background and a sprite pixel FIFO.
type PPU struct {
	irq *interrupt.Controller

	vram [0x2000]uint8
	oam  [0xA0]uint8

	lcdc lcdc
	stat uint8
	scy  uint8
	scx  uint8
	ly   uint8
	lyc  uint8
	bgp  uint8
	obp0 uint8
	obp1 uint8
	wy   uint8
	wx   uint8

	mode Mode
	// dot is the position inside the current line, 0-455
	dot int

	// x is the next output column of the current line
	x       int
	discard int
	startup int
	tileX   int

	// windowLine is the window row being drawn, -1 until the window shows up in a frame
	windowLine   int
	windowActive bool

	lineSprites    []Sprite
	nextSprite     int
	spriteFetching bool

	bgFIFO   pixelFIFO
	objFIFO  pixelFIFO
	bgFetch  fetcher
	objFetch fetcher

	dmaRemaining int

	back   *FrameBuffer
	front  *FrameBuffer
	frames uint64
}

// New returns a PPU with the LCD on, in the state the boot ROM leaves it.
func New(irq *interrupt.Controller) *PPU {
	p := &PPU{
		irq:         irq,
		lineSprites: make([]Sprite, 0, maxSpritesPerLine),
		back:        NewFrameBuffer(),
		front:       NewFrameBuffer(),
	}
	p.Reset()
	return p
}

// Reset clears video memory and loads the post-boot register values.
func (p *PPU) Reset() {
	p.vram = [0x2000]uint8{}
	p.oam = [0xA0]uint8{}
	p.stat = 0
	p.scy, p.scx = 0, 0
	p.lyc = 0
	p.bgp = 0xFC
	p.obp0, p.obp1 = 0xFF, 0xFF
	p.wy, p.wx = 0, 0
	p.dmaRemaining = 0
	p.frames = 0
	p.back.Fill(WhiteColor)
	p.front.Fill(WhiteColor)

	p.lcdc = 0
	p.writeLCDC(0x91)
}

// PowerOn leaves the LCD off with every register cleared, as the boot ROM finds it.
func (p *PPU) PowerOn() {
	p.Reset()
	p.writeLCDC(0)
	p.bgp, p.obp0, p.obp1 = 0, 0, 0
}

// Step advances the PPU by the given number of T-cycles.
func (p *PPU) Step(cycles int) {
	for i := 0; i < cycles; i++ {
		if p.dmaRemaining > 0 {
			p.dmaRemaining--
		}
		if p.lcdc.enabled() {
			p.tick()
		}
	}
}

func (p *PPU) tick() {
	switch p.mode {
	case ModeOAMScan:
		if p.dot == oamScanDots-1 {
			p.scanOAM()
			p.startDrawing()
		}
	case ModeDrawing:
		p.drawDot()
		if p.x >= ScreenWidth || p.dot-oamScanDots >= maxDrawingDots-1 {
			p.setMode(ModeHBlank)
		}
	}

	p.dot++
	if p.dot < dotsPerLine {
		return
	}

	p.dot = 0
	p.ly++
	switch {
	case p.ly == visibleLines:
		p.setMode(ModeVBlank)
	case p.ly == linesPerFrame:
		p.ly = 0
		p.windowLine = -1
		p.setMode(ModeOAMScan)
	case p.ly < visibleLines:
		p.setMode(ModeOAMScan)
	}
	p.compareLY()
}

func (p *PPU) startDrawing() {
	p.resetLine()
	p.discard = int(p.scx % 8)
	p.startup = startupDots
	p.setMode(ModeDrawing)
}

// resetLine clears the per line pipeline state.
func (p *PPU) resetLine() {
	p.x = 0
	p.discard = 0
	p.startup = 0
	p.tileX = 0
	p.windowActive = false
	p.nextSprite = 0
	p.spriteFetching = false
	p.bgFIFO.clear()
	p.objFIFO.clear()
	p.bgFetch.reset()
	p.objFetch.reset()
}

// setMode switches mode and raises the interrupts tied to entering it.
func (p *PPU) setMode(mode Mode) {
	p.mode = mode

	switch mode {
	case ModeHBlank:
		p.requestStat(statHBlankInterrupt)
	case ModeVBlank:
		p.irq.Request(interrupt.VBlank)
		p.requestStat(statVBlankInterrupt)
		p.front.CopyFrom(p.back)
		p.frames++
	case ModeOAMScan:
		p.requestStat(statOAMInterrupt)
	}
}

func (p *PPU) requestStat(selectBit uint8) {
	if p.stat&(1<<selectBit) != 0 {
		p.irq.Request(interrupt.LCD)
	}
}

// compareLY updates the coincidence flag and raises LCD/STAT on a match when selected.
func (p *PPU) compareLY() {
	if p.ly != p.lyc {
		p.stat &^= 1 << statCoincidence
		return
	}
	p.stat |= 1 << statCoincidence
	p.requestStat(statLYCInterrupt)
}

// ReadVRAM reads video memory, address is absolute (0x8000-0x9FFF).
func (p *PPU) ReadVRAM(address uint16) uint8 {
	return p.vram[(address-addr.VRAMStart)&0x1FFF]
}

func (p *PPU) WriteVRAM(address uint16, value uint8) {
	p.vram[(address-addr.VRAMStart)&0x1FFF] = value
}

// ReadOAM reads the sprite table, address is absolute (0xFE00-0xFE9F).
func (p *PPU) ReadOAM(address uint16) uint8 {
	index := int(address - addr.OAMStart)
	if index >= len(p.oam) {
		return 0xFF
	}
	return p.oam[index]
}

func (p *PPU) WriteOAM(address uint16, value uint8) {
	index := int(address - addr.OAMStart)
	if index < len(p.oam) {
		p.oam[index] = value
	}
}

// StartDMA marks an OAM DMA transfer as in progress for the next 640 T-cycles.
// The copy itself is done by the MMU.
func (p *PPU) StartDMA() {
	p.dmaRemaining = DMADuration
}

// DMAActive reports whether an OAM DMA transfer is still running.
func (p *PPU) DMAActive() bool {
	return p.dmaRemaining > 0
}

// VRAMAccessible reports whether the CPU can reach VRAM, it is locked while drawing.
func (p *PPU) VRAMAccessible() bool {
	return !p.lcdc.enabled() || p.mode != ModeDrawing
}

// OAMAccessible reports whether the CPU can reach OAM, locked during OAM scan,
// drawing and DMA.
func (p *PPU) OAMAccessible() bool {
	if p.DMAActive() {
		return false
	}
	return !p.lcdc.enabled() || p.mode == ModeHBlank || p.mode == ModeVBlank
}

func (p *PPU) Mode() Mode { return p.mode }

func (p *PPU) LY() uint8 { return p.ly }

// Dot returns the position inside the current line.
func (p *PPU) Dot() int { return p.dot }

// Frames returns how many frames have been completed since reset.
func (p *PPU) Frames() uint64 { return p.frames }

// Framebuffer returns the last completed frame.
func (p *PPU) Framebuffer() *FrameBuffer {
	return p.front
}
