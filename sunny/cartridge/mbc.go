package cartridge

import (
	"github.com/sunny-emu/sunny/sunny/bit"
)

// MBC is a memory bank controller. Read and Write take addresses in the ROM
// range (0x0000-0x7FFF), where writes program the bank registers. ReadSRAM and
// WriteSRAM take addresses in the external RAM range (0xA000-0xBFFF).
type MBC interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
	ReadSRAM(addr uint16) uint8
	WriteSRAM(addr uint16, value uint8)
}

// Battery is implemented by controllers whose external RAM can be persisted.
type Battery interface {
	RAM() []uint8
	LoadRAM(data []uint8)
}

// romBank returns the byte at offset inside the given ROM bank, wrapping
// banks past the end of the image.
func romBank(rom []uint8, bank int, offset uint16) uint8 {
	banks := len(rom) / RomBankSize
	if banks == 0 {
		return 0xFF
	}
	return rom[(bank%banks)*RomBankSize+int(offset)]
}

// ramBank returns the index of addr inside the given RAM bank. RAM smaller than
// a bank (2KiB carts) is mirrored.
func ramBank(ram []uint8, bank int, addr uint16) int {
	offset := bank*RamBankSize + int(addr-0xA000)
	return offset % len(ram)
}

func ramEnableValue(value uint8) bool {
	return value&0x0F == 0x0A
}

// NoMBC represents cartridges with no memory banking capabilities: 32KiB of ROM
// mapped directly, optionally with up to 8KiB of RAM.
type NoMBC struct {
	rom []uint8
	ram []uint8
}

// NewNoMBC creates a new NoMBC controller
func NewNoMBC(rom []uint8, ramSize int) *NoMBC {
	return &NoMBC{
		rom: rom,
		ram: make([]uint8, ramSize),
	}
}

func (m *NoMBC) Read(addr uint16) uint8 {
	if int(addr) >= len(m.rom) {
		return 0xFF
	}
	return m.rom[addr]
}

func (m *NoMBC) Write(uint16, uint8) {}

func (m *NoMBC) ReadSRAM(addr uint16) uint8 {
	if len(m.ram) == 0 {
		return 0xFF
	}
	return m.ram[ramBank(m.ram, 0, addr)]
}

func (m *NoMBC) WriteSRAM(addr uint16, value uint8) {
	if len(m.ram) == 0 {
		return
	}
	m.ram[ramBank(m.ram, 0, addr)] = value
}

func (m *NoMBC) RAM() []uint8         { return m.ram }
func (m *NoMBC) LoadRAM(data []uint8) { copy(m.ram, data) }

// MBC1 is the first and most common MBC chip:
//   - up to 2MB ROM, bank number split in a 5 bit (BANK1) and a 2 bit (BANK2) register
//   - BANK1 never selects 0, writing 0 selects 1 (so 0x20, 0x40, 0x60 are unreachable)
//   - up to 32KB RAM in 4 banks
//   - mode 0: BANK2 only extends the ROM bank at 0x4000
//   - mode 1: BANK2 also selects the bank at 0x0000 and the RAM bank
type MBC1 struct {
	rom        []uint8
	ram        []uint8
	bank1      uint8
	bank2      uint8
	ramEnabled bool
	mode       uint8
}

// NewMBC1 creates a new MBC1 controller
func NewMBC1(rom []uint8, ramSize int) *MBC1 {
	return &MBC1{
		rom:   rom,
		ram:   make([]uint8, ramSize),
		bank1: 1,
	}
}

func (m *MBC1) Read(addr uint16) uint8 {
	if addr < 0x4000 {
		bank := 0
		if m.mode == 1 {
			bank = int(m.bank2) << 5
		}
		return romBank(m.rom, bank, addr)
	}
	bank := int(m.bank2)<<5 | int(m.bank1)
	return romBank(m.rom, bank, addr-0x4000)
}

func (m *MBC1) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = ramEnableValue(value)
	case addr <= 0x3FFF:
		m.bank1 = value & 0x1F
		if m.bank1 == 0 {
			m.bank1 = 1
		}
	case addr <= 0x5FFF:
		m.bank2 = value & 0x03
	case addr <= 0x7FFF:
		m.mode = value & 0x01
	}
}

func (m *MBC1) sramIndex(addr uint16) (int, bool) {
	if !m.ramEnabled || len(m.ram) == 0 {
		return 0, false
	}
	bank := 0
	if m.mode == 1 {
		bank = int(m.bank2)
	}
	return ramBank(m.ram, bank, addr), true
}

func (m *MBC1) ReadSRAM(addr uint16) uint8 {
	i, ok := m.sramIndex(addr)
	if !ok {
		return 0xFF
	}
	return m.ram[i]
}

func (m *MBC1) WriteSRAM(addr uint16, value uint8) {
	if i, ok := m.sramIndex(addr); ok {
		m.ram[i] = value
	}
}

func (m *MBC1) RAM() []uint8         { return m.ram }
func (m *MBC1) LoadRAM(data []uint8) { copy(m.ram, data) }

// MBC2 has up to 256KB of ROM and a built-in 512x4 bit RAM.
// In the 0x0000-0x3FFF range, address bit 8 selects between the RAM enable
// register (clear) and the 4 bit ROM bank register (set).
type MBC2 struct {
	rom        []uint8
	ram        [512]uint8
	romBank    uint8
	ramEnabled bool
}

// NewMBC2 creates a new MBC2 controller
func NewMBC2(rom []uint8) *MBC2 {
	return &MBC2{
		rom:     rom,
		romBank: 1,
	}
}

func (m *MBC2) Read(addr uint16) uint8 {
	if addr < 0x4000 {
		return romBank(m.rom, 0, addr)
	}
	return romBank(m.rom, int(m.romBank), addr-0x4000)
}

func (m *MBC2) Write(addr uint16, value uint8) {
	if addr > 0x3FFF {
		return
	}
	if !bit.IsSet(0, bit.High(addr)) {
		m.ramEnabled = ramEnableValue(value)
		return
	}
	m.romBank = value & 0x0F
	if m.romBank == 0 {
		m.romBank = 1
	}
}

// ReadSRAM returns one nibble, the 512 bytes are mirrored across the whole range.
func (m *MBC2) ReadSRAM(addr uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	return m.ram[addr&0x1FF] | 0xF0
}

func (m *MBC2) WriteSRAM(addr uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	m.ram[addr&0x1FF] = value & 0x0F
}

func (m *MBC2) RAM() []uint8         { return m.ram[:] }
func (m *MBC2) LoadRAM(data []uint8) { copy(m.ram[:], data) }

// MBC5 supports up to 8MB ROM through a 9 bit bank number (bank 0 is
// selectable at 0x4000) and up to 128KB RAM in 16 banks. On rumble carts bit 3
// of the RAM bank register drives the motor instead.
type MBC5 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint16
	ramBank    uint8
	ramEnabled bool
	hasRumble  bool
	rumble     bool
}

// NewMBC5 creates a new MBC5 controller
func NewMBC5(rom []uint8, ramSize int, hasRumble bool) *MBC5 {
	return &MBC5{
		rom:       rom,
		ram:       make([]uint8, ramSize),
		romBank:   1,
		hasRumble: hasRumble,
	}
}

func (m *MBC5) Read(addr uint16) uint8 {
	if addr < 0x4000 {
		return romBank(m.rom, 0, addr)
	}
	return romBank(m.rom, int(m.romBank), addr-0x4000)
}

func (m *MBC5) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = ramEnableValue(value)
	case addr <= 0x2FFF:
		m.romBank = (m.romBank & 0x100) | uint16(value)
	case addr <= 0x3FFF:
		m.romBank = (m.romBank & 0xFF) | uint16(value&0x01)<<8
	case addr <= 0x5FFF:
		if m.hasRumble {
			m.rumble = bit.IsSet(3, value)
			m.ramBank = value & 0x07
			return
		}
		m.ramBank = value & 0x0F
	}
}

func (m *MBC5) ReadSRAM(addr uint16) uint8 {
	if !m.ramEnabled || len(m.ram) == 0 {
		return 0xFF
	}
	return m.ram[ramBank(m.ram, int(m.ramBank), addr)]
}

func (m *MBC5) WriteSRAM(addr uint16, value uint8) {
	if !m.ramEnabled || len(m.ram) == 0 {
		return
	}
	m.ram[ramBank(m.ram, int(m.ramBank), addr)] = value
}

// Rumble reports the state of the rumble motor line.
func (m *MBC5) Rumble() bool { return m.rumble }

func (m *MBC5) RAM() []uint8         { return m.ram }
func (m *MBC5) LoadRAM(data []uint8) { copy(m.ram, data) }
