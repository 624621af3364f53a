// Package audio stores the sound registers. Nothing is synthesized, but
// reads and writes behave like the DMG so software polling them keeps working.
//
// Reference: https://gbdev.io/pandocs/Audio_Registers.html
package audio

import "github.com/sunny-emu/sunny/sunny/addr"

const (
	nr52Power  = 0x80
	nr52Unused = 0x70
)

// readMasks are ORed into every read, write-only and unused bits read as 1.
// Indexed from NR10, wave RAM has no mask.
var readMasks = [0x20]uint8{
	0x80, 0x3F, 0x00, 0xFF, 0xBF, // NR10-NR14
	0xFF, 0x3F, 0x00, 0xFF, 0xBF, // unused, NR21-NR24
	0x7F, 0xFF, 0x9F, 0xFF, 0xBF, // NR30-NR34
	0xFF, 0xFF, 0x00, 0x00, 0xBF, // unused, NR41-NR44
	0x00, 0x00, 0x70, // NR50-NR52
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // unused
}

// Registers holds 0xFF10-0xFF3F.
type Registers struct {
	regs    [0x20]uint8
	waveRAM [0x10]uint8
}

func New() *Registers {
	r := &Registers{}
	r.Reset()
	return r
}

// Reset loads the values the boot ROM leaves behind.
func (r *Registers) Reset() {
	r.regs = [0x20]uint8{}
	r.waveRAM = [0x10]uint8{}

	r.set(addr.NR10, 0x80)
	r.set(addr.NR11, 0xBF)
	r.set(addr.NR12, 0xF3)
	r.set(addr.NR14, 0xBF)
	r.set(addr.NR21, 0x3F)
	r.set(addr.NR24, 0xBF)
	r.set(addr.NR30, 0x7F)
	r.set(addr.NR31, 0xFF)
	r.set(addr.NR32, 0x9F)
	r.set(addr.NR34, 0xBF)
	r.set(addr.NR41, 0xFF)
	r.set(addr.NR44, 0xBF)
	r.set(addr.NR50, 0x77)
	r.set(addr.NR51, 0xF3)
	r.set(addr.NR52, nr52Power)
}

// PowerOn clears everything, as found before the boot ROM runs.
func (r *Registers) PowerOn() {
	r.regs = [0x20]uint8{}
	r.waveRAM = [0x10]uint8{}
}

func (r *Registers) set(address uint16, value uint8) {
	r.regs[address-addr.AudioStart] = value
}

func (r *Registers) powered() bool {
	return r.regs[addr.NR52-addr.AudioStart]&nr52Power != 0
}

func (r *Registers) Read(address uint16) uint8 {
	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		return r.waveRAM[address-addr.WaveRAMStart]
	}
	if address < addr.AudioStart || address > addr.WaveRAMEnd {
		return 0xFF
	}
	index := address - addr.AudioStart
	return r.regs[index] | readMasks[index]
}

// Write stores a register. While powered off (NR52 bit 7 clear) only NR52 and
// wave RAM accept writes, and turning the power off clears every register.
func (r *Registers) Write(address uint16, value uint8) {
	switch {
	case address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd:
		r.waveRAM[address-addr.WaveRAMStart] = value
	case address == addr.NR52:
		if value&nr52Power == 0 {
			r.regs = [0x20]uint8{}
			return
		}
		r.set(addr.NR52, nr52Power)
	case address >= addr.AudioStart && address < addr.NR52:
		if r.powered() {
			r.set(address, value)
		}
	}
}
