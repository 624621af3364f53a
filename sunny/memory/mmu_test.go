package memory

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunny-emu/sunny/sunny/addr"
	"github.com/sunny-emu/sunny/sunny/cartridge"
	"github.com/sunny-emu/sunny/sunny/interrupt"
	"github.com/sunny-emu/sunny/sunny/timer"
	"github.com/sunny-emu/sunny/sunny/video"
)

type testSystem struct {
	mmu *MMU
	ppu *video.PPU
	irq *interrupt.Controller
}

func newTestMMU(t *testing.T) testSystem {
	t.Helper()
	// MBC1+RAM, 4 ROM banks, 8KB RAM
	cart, err := cartridge.New(cartridge.Synthesize("MMU", 0x02, 0x01, 0x02))
	require.NoError(t, err)

	irq := interrupt.New()
	ppu := video.New(irq)
	mmu := New(Devices{
		Cartridge: cart,
		PPU:       ppu,
		Timer:     timer.New(irq),
		Interrupt: irq,
	})
	mmu.Reset()
	return testSystem{mmu: mmu, ppu: ppu, irq: irq}
}

// toHBlank advances the PPU to a point where both VRAM and OAM are reachable.
func (s testSystem) toHBlank() {
	for s.ppu.Mode() != video.ModeHBlank {
		s.ppu.Step(1)
	}
}

func TestRegions(t *testing.T) {
	s := newTestMMU(t)
	m := s.mmu

	t.Run("ROM banks", func(t *testing.T) {
		assert.Equal(t, uint8(0x01), m.Read(0x4000))
		m.Write(0x2000, 0x02)
		assert.Equal(t, uint8(0x02), m.Read(0x4000))
		m.Write(0x0147, 0x55)
		assert.Equal(t, uint8(0x02), m.Read(0x0147), "writes never reach ROM")
		assert.Equal(t, uint8(0xFF), m.Read(0xA000), "RAM stays disabled without 0x0A")
	})

	t.Run("external RAM", func(t *testing.T) {
		assert.Equal(t, uint8(0xFF), m.Read(0xA000), "disabled")
		m.Write(0x0000, 0x0A)
		m.Write(0xA010, 0x42)
		assert.Equal(t, uint8(0x42), m.Read(0xA010))
	})

	t.Run("WRAM and echo", func(t *testing.T) {
		m.Write(0xC123, 0x11)
		assert.Equal(t, uint8(0x11), m.Read(0xE123))
		m.Write(0xFDFF, 0x22)
		assert.Equal(t, uint8(0x22), m.Read(0xDDFF))
		m.Write(0xD000, 0x33)
		assert.Equal(t, uint8(0x33), m.Read(0xD000))
	})

	t.Run("unused area", func(t *testing.T) {
		s.toHBlank()
		m.Write(0xFEA0, 0x12)
		assert.Equal(t, uint8(0xFF), m.Read(0xFEA0))
		assert.Equal(t, uint8(0xFF), m.Read(0xFEFF))
	})

	t.Run("HRAM", func(t *testing.T) {
		m.Write(0xFF80, 0x01)
		m.Write(0xFFFE, 0x02)
		assert.Equal(t, uint8(0x01), m.Read(0xFF80))
		assert.Equal(t, uint8(0x02), m.Read(0xFFFE))
	})

	t.Run("interrupt registers", func(t *testing.T) {
		m.Write(addr.IF, 0xFF)
		assert.Equal(t, uint8(0x1F), s.irq.Requested)
		assert.Equal(t, uint8(0xFF), m.Read(addr.IF))
		m.Write(addr.IF, 0x00)
		assert.Equal(t, uint8(0xE0), m.Read(addr.IF))

		m.Write(addr.IE, 0xA5)
		assert.Equal(t, uint8(0xA5), m.Read(addr.IE))
		assert.Equal(t, uint8(0xA5), s.irq.Enabled)
	})
}

func TestIODispatch(t *testing.T) {
	tests := []struct {
		name    string
		address uint16
		write   *uint8
		want    uint8
	}{
		{"TAC unused bits", addr.TAC, ptr(0x05), 0xFD},
		{"TMA", addr.TMA, ptr(0x42), 0x42},
		{"NR52 powered", addr.NR52, nil, 0xF0},
		{"wave RAM", addr.WaveRAMStart, ptr(0x9C), 0x9C},
		{"SCX", addr.SCX, ptr(0x07), 0x07},
		{"LCDC", addr.LCDC, nil, 0x91},
		{"DMA register reads back", addr.DMA, ptr(0xC1), 0xC1},
		{"boot ROM latch", addr.BootROMDisable, nil, 0xFF},
		{"KEY1", addr.KEY1, ptr(0x01), 0xFF},
		{"VBK", addr.VBK, ptr(0x01), 0xFE},
		{"SVBK", addr.SVBK, ptr(0x07), 0xF8},
		{"HDMA", addr.HDMAStart, ptr(0x12), 0xFF},
		{"unmapped 0xFF03", 0xFF03, ptr(0x12), 0xFF},
		{"unmapped 0xFF7F", 0xFF7F, ptr(0x12), 0xFF},
		{"serial control", addr.SC, ptr(0x01), 0x7F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestMMU(t)
			if tt.write != nil {
				s.mmu.Write(tt.address, *tt.write)
			}
			if tt.address == addr.DMA {
				s.ppu.Step(video.DMADuration)
			}
			assert.Equal(t, tt.want, s.mmu.Read(tt.address))
		})
	}

	t.Run("DIV write resets the divider", func(t *testing.T) {
		s := newTestMMU(t)
		s.mmu.Step(1000)
		assert.NotZero(t, s.mmu.Read(addr.DIV))
		s.mmu.Write(addr.DIV, 0x99)
		assert.Zero(t, s.mmu.Read(addr.DIV))
	})

	t.Run("serial transfer is stepped by the bus", func(t *testing.T) {
		s := newTestMMU(t)
		s.mmu.Write(addr.SB, 'X')
		s.mmu.Write(addr.SC, 0x81)
		s.mmu.Step(4096)
		assert.NotZero(t, s.irq.Requested&interrupt.Serial.Mask())
	})
}

func ptr(v uint8) *uint8 { return &v }

func TestPPUAccessGating(t *testing.T) {
	s := newTestMMU(t)
	m := s.mmu

	s.toHBlank()
	m.Write(0x8000, 0xAB)
	m.Write(0xFE00, 0xCD)
	assert.Equal(t, uint8(0xAB), m.Read(0x8000))
	assert.Equal(t, uint8(0xCD), m.Read(0xFE00))

	// next line: OAM scan
	for s.ppu.Mode() != video.ModeOAMScan {
		s.ppu.Step(1)
	}
	assert.Equal(t, uint8(0xAB), m.Read(0x8000))
	assert.Equal(t, uint8(0xFF), m.Read(0xFE00))
	m.Write(0xFE00, 0x00)

	for s.ppu.Mode() != video.ModeDrawing {
		s.ppu.Step(1)
	}
	assert.Equal(t, uint8(0xFF), m.Read(0x8000))
	assert.Equal(t, uint8(0xFF), m.Read(0xFE00))
	m.Write(0x8000, 0x00)

	s.toHBlank()
	assert.Equal(t, uint8(0xAB), m.Read(0x8000), "write while drawing is dropped")
	assert.Equal(t, uint8(0xCD), m.Read(0xFE00), "write during OAM scan is dropped")

	t.Run("everything is reachable with the LCD off", func(t *testing.T) {
		m.Write(addr.LCDC, 0x00)
		m.Write(0x8001, 0x01)
		m.Write(0xFE01, 0x02)
		assert.Equal(t, uint8(0x01), m.Read(0x8001))
		assert.Equal(t, uint8(0x02), m.Read(0xFE01))
	})
}

func TestOAMDMA(t *testing.T) {
	s := newTestMMU(t)
	m := s.mmu

	for i := uint16(0); i < 0xA0; i++ {
		m.Write(0xC100+i, uint8(i)^0x5A)
	}
	m.Write(0xFF90, 0x77)

	m.Write(addr.DMA, 0xC1)

	t.Run("copy is visible right away", func(t *testing.T) {
		for i := uint16(0); i < 0xA0; i++ {
			require.Equal(t, uint8(i)^0x5A, s.ppu.ReadOAM(addr.OAMStart+i))
		}
	})

	t.Run("bus is locked except HRAM", func(t *testing.T) {
		assert.Equal(t, uint8(0xFF), m.Read(0xC100))
		assert.Equal(t, uint8(0xFF), m.Read(0x4000))
		m.Write(0xC000, 0x99)
		assert.Equal(t, uint8(0x77), m.Read(0xFF90))
		m.Write(0xFF91, 0x66)
		assert.Equal(t, uint8(0x66), m.Read(0xFF91))
	})

	t.Run("lock lasts 640 cycles", func(t *testing.T) {
		s.ppu.Step(video.DMADuration - 1)
		assert.Equal(t, uint8(0xFF), m.Read(0xC100))
		s.ppu.Step(1)
		assert.Equal(t, uint8(0x5A), m.Read(0xC100))
		assert.Equal(t, uint8(0x00), m.Read(0xC000), "write during DMA is dropped")
	})

	t.Run("source in echo RAM", func(t *testing.T) {
		m.Write(0xDE00, 0x3C)
		m.Write(addr.DMA, 0xFE)
		assert.Equal(t, uint8(0x3C), s.ppu.ReadOAM(addr.OAMStart))
	})
}

func TestBootROM(t *testing.T) {
	s := newTestMMU(t)
	m := s.mmu

	err := m.SetBootROM(make([]byte, 100))
	require.Error(t, err)
	assert.Equal(t, ErrBootROMSize, errors.Cause(err))

	boot := make([]byte, BootROMSize)
	for i := range boot {
		boot[i] = 0x31
	}
	require.NoError(t, m.SetBootROM(boot))

	assert.True(t, m.BootROMEnabled())
	assert.Equal(t, uint8(0x31), m.Read(0x0000))
	assert.Equal(t, uint8(0x31), m.Read(0x00FF))
	assert.Equal(t, uint8(0x00), m.Read(0x0100), "cartridge above the boot ROM")

	m.Write(addr.BootROMDisable, 0x00)
	assert.True(t, m.BootROMEnabled(), "zero does not unmap")

	m.Write(addr.BootROMDisable, 0x01)
	assert.False(t, m.BootROMEnabled())
	assert.Equal(t, uint8(0x00), m.Read(0x0000))

	m.Reset()
	assert.True(t, m.BootROMEnabled(), "reset maps it again")
}

func TestJoypad(t *testing.T) {
	s := newTestMMU(t)
	m := s.mmu

	assert.Equal(t, uint8(0xFF), m.Read(addr.P1), "nothing selected")

	m.Write(addr.P1, 0x20) // d-pad
	assert.Equal(t, uint8(0xEF), m.Read(addr.P1))

	m.Press(JoypadRight)
	assert.Equal(t, uint8(0xEE), m.Read(addr.P1))
	assert.Equal(t, interrupt.Joypad.Mask(), s.irq.Requested)

	s.irq.Requested = 0
	m.Press(JoypadRight)
	assert.Zero(t, s.irq.Requested, "held key does not retrigger")

	m.Press(JoypadStart)
	assert.Equal(t, uint8(0xEE), m.Read(addr.P1), "buttons not selected")

	m.Write(addr.P1, 0x10) // buttons
	assert.Equal(t, uint8(0xD7), m.Read(addr.P1))

	m.Write(addr.P1, 0x00) // both
	assert.Equal(t, uint8(0xC6), m.Read(addr.P1))

	m.Release(JoypadRight)
	m.Release(JoypadStart)
	assert.Equal(t, uint8(0xCF), m.Read(addr.P1))
}
