// Package memory implements the address decoder that connects the CPU to
// the cartridge, the internal RAMs and every memory mapped device.
package memory

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/sunny-emu/sunny/sunny/addr"
	"github.com/sunny-emu/sunny/sunny/audio"
	"github.com/sunny-emu/sunny/sunny/cartridge"
	"github.com/sunny-emu/sunny/sunny/interrupt"
	"github.com/sunny-emu/sunny/sunny/serial"
	"github.com/sunny-emu/sunny/sunny/timer"
	"github.com/sunny-emu/sunny/sunny/video"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// BootROMSize is the size of the DMG boot ROM.
const BootROMSize = 0x100

// ErrBootROMSize is returned for a boot ROM image that is not exactly 256 bytes.
var ErrBootROMSize = errors.New("invalid boot ROM size")

const (
	oamDMALength = 0xA0
	openBus      = 0xFF
)

// Devices are the components the MMU dispatches to.
type Devices struct {
	Cartridge *cartridge.Cartridge
	PPU       *video.PPU
	Timer     *timer.Timer
	Interrupt *interrupt.Controller
	Serial    serial.Port
	Audio     *audio.Registers
}

// MMU allows access to all memory mapped I/O and data/registers
type MMU struct {
	cart   *cartridge.Cartridge
	ppu    *video.PPU
	timer  *timer.Timer
	irq    *interrupt.Controller
	serial serial.Port
	audio  *audio.Registers
	joypad *Joypad

	wram [0x2000]uint8
	hram [0x7F]uint8

	bootROM        []byte
	bootROMEnabled bool
	dma            uint8

	regionMap [256]memRegion
}

// New creates a memory unit wired to the given devices. A nil Serial or
// Audio gets the default log sink and register stub.
func New(d Devices) *MMU {
	m := &MMU{
		cart:   d.Cartridge,
		ppu:    d.PPU,
		timer:  d.Timer,
		irq:    d.Interrupt,
		serial: d.Serial,
		audio:  d.Audio,
		joypad: NewJoypad(),
	}
	if m.serial == nil {
		m.serial = serial.NewLogSink(m.irq)
	}
	if m.audio == nil {
		m.audio = audio.New()
	}
	initRegionMap(m)
	return m
}

func initRegionMap(m *MMU) {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	// OAM: 0xFE00-0xFE9F, Unused: 0xFEA0-0xFEFF
	m.regionMap[0xFE] = regionOAM
	// IO + HRAM + IE: 0xFF00-0xFFFF
	m.regionMap[0xFF] = regionIO
}

// Reset clears RAM and the devices owned by the MMU. The boot ROM, if any, is mapped again.
func (m *MMU) Reset() {
	m.wram = [0x2000]uint8{}
	m.hram = [0x7F]uint8{}
	m.dma = 0xFF
	m.bootROMEnabled = m.bootROM != nil
	m.joypad.Reset()
	m.serial.Reset()
}

// SetBootROM overlays rom on 0x0000-0x00FF until 0xFF50 is written.
func (m *MMU) SetBootROM(rom []byte) error {
	if len(rom) != BootROMSize {
		return errors.Wrapf(ErrBootROMSize, "got %d bytes, want %d", len(rom), BootROMSize)
	}
	m.bootROM = rom
	m.bootROMEnabled = true
	return nil
}

// BootROMEnabled reports whether the boot ROM is still mapped.
func (m *MMU) BootROMEnabled() bool {
	return m.bootROMEnabled
}

// Step advances the devices clocked by the bus.
func (m *MMU) Step(cycles int) {
	m.timer.Step(cycles)
	m.serial.Step(cycles)
}

func (m *MMU) Serial() serial.Port { return m.serial }

func (m *MMU) Joypad() *Joypad { return m.joypad }

// Press holds a key, requesting the Joypad interrupt on a new press.
func (m *MMU) Press(key JoypadKey) {
	if m.joypad.Press(key) {
		m.irq.Request(interrupt.Joypad)
	}
}

func (m *MMU) Release(key JoypadKey) {
	m.joypad.Release(key)
}

func isHRAM(address uint16) bool {
	return address >= addr.HRAMStart && address <= addr.HRAMEnd
}

// Read reads a byte as the CPU sees it. While OAM DMA runs only HRAM answers.
func (m *MMU) Read(address uint16) uint8 {
	if m.ppu.DMAActive() && !isHRAM(address) {
		return openBus
	}
	return m.read(address)
}

func (m *MMU) read(address uint16) uint8 {
	switch m.regionMap[address>>8] {
	case regionROM:
		if m.bootROMEnabled && address < BootROMSize {
			return m.bootROM[address]
		}
		return m.cart.Read(address)
	case regionVRAM:
		if !m.ppu.VRAMAccessible() {
			return openBus
		}
		return m.ppu.ReadVRAM(address)
	case regionExtRAM:
		return m.cart.ReadSRAM(address)
	case regionWRAM:
		return m.wram[address-addr.WRAM0Start]
	case regionEcho:
		return m.wram[address-addr.EchoStart]
	case regionOAM:
		if address > addr.OAMEnd || !m.ppu.OAMAccessible() {
			return openBus
		}
		return m.ppu.ReadOAM(address)
	}
	return m.readIO(address)
}

func (m *MMU) readIO(address uint16) uint8 {
	switch {
	case address == addr.P1:
		return m.joypad.Read()
	case address == addr.SB || address == addr.SC:
		return m.serial.Read(address)
	case address >= addr.DIV && address <= addr.TAC:
		return m.timer.Read(address)
	case address == addr.IF:
		return m.irq.ReadIF()
	case address >= addr.AudioStart && address <= addr.WaveRAMEnd:
		return m.audio.Read(address)
	case address == addr.DMA:
		return m.dma
	case address >= addr.LCDC && address <= addr.WX:
		return m.ppu.ReadRegister(address)
	case address == addr.VBK:
		return 0xFE
	case address == addr.SVBK:
		return 0xF8
	case isHRAM(address):
		return m.hram[address-addr.HRAMStart]
	case address == addr.IE:
		return m.irq.ReadIE()
	}
	// unmapped, boot ROM latch and the remaining CGB registers
	return openBus
}

// Write writes a byte as the CPU sees it. While OAM DMA runs only HRAM accepts writes.
func (m *MMU) Write(address uint16, value uint8) {
	if m.ppu.DMAActive() && !isHRAM(address) {
		return
	}

	switch m.regionMap[address>>8] {
	case regionROM:
		m.cart.Write(address, value)
	case regionVRAM:
		if m.ppu.VRAMAccessible() {
			m.ppu.WriteVRAM(address, value)
		}
	case regionExtRAM:
		m.cart.WriteSRAM(address, value)
	case regionWRAM:
		m.wram[address-addr.WRAM0Start] = value
	case regionEcho:
		m.wram[address-addr.EchoStart] = value
	case regionOAM:
		if address <= addr.OAMEnd && m.ppu.OAMAccessible() {
			m.ppu.WriteOAM(address, value)
		}
	case regionIO:
		m.writeIO(address, value)
	}
}

func (m *MMU) writeIO(address uint16, value uint8) {
	switch {
	case address == addr.P1:
		m.joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		m.serial.Write(address, value)
	case address >= addr.DIV && address <= addr.TAC:
		m.timer.Write(address, value)
	case address == addr.IF:
		m.irq.WriteIF(value)
	case address >= addr.AudioStart && address <= addr.WaveRAMEnd:
		m.audio.Write(address, value)
	case address == addr.DMA:
		m.startDMA(value)
	case address >= addr.LCDC && address <= addr.WX:
		m.ppu.WriteRegister(address, value)
	case address == addr.BootROMDisable:
		if value != 0 && m.bootROMEnabled {
			slog.Debug("Boot ROM unmapped")
			m.bootROMEnabled = false
		}
	case isHRAM(address):
		m.hram[address-addr.HRAMStart] = value
	case address == addr.IE:
		m.irq.WriteIE(value)
	}
}

// startDMA copies 160 bytes from value<<8 into OAM right away, then keeps the
// bus locked for the duration of the transfer.
func (m *MMU) startDMA(value uint8) {
	m.dma = value
	source := uint16(value) << 8
	if source >= addr.EchoStart {
		source -= 0x2000
	}
	for i := uint16(0); i < oamDMALength; i++ {
		m.ppu.WriteOAM(addr.OAMStart+i, m.dmaRead(source+i))
	}
	m.ppu.StartDMA()
}

// dmaRead reads a DMA source byte. The DMA unit bypasses the CPU access restrictions.
func (m *MMU) dmaRead(address uint16) uint8 {
	if m.regionMap[address>>8] == regionVRAM {
		return m.ppu.ReadVRAM(address)
	}
	return m.read(address)
}
