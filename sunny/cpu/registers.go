package cpu

import (
	"fmt"

	"github.com/sunny-emu/sunny/sunny/bit"
)

// Flag is one of the 4 possible flags used in the flag register (high part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// 8 bit operand indices as encoded in opcode fields y and z.
const (
	regB = iota
	regC
	regD
	regE
	regH
	regL
	regHLIndirect
	regA
)

// Registers is the CPU register file.
type Registers struct {
	A, F uint8
	B, C uint8
	D, E uint8
	H, L uint8
	SP   uint16
	PC   uint16
}

func (r *Registers) setFlag(flag Flag) {
	r.F |= uint8(flag)
}

func (r *Registers) resetFlag(flag Flag) {
	r.F &= uint8(flag ^ 0xFF)
}

func (r Registers) isSetFlag(flag Flag) bool {
	return r.F&uint8(flag) != 0
}

// flagToBit will return 1 if the passed flag is set, 0 otherwise
func (r Registers) flagToBit(flag Flag) uint8 {
	if r.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (r *Registers) setFlagToCondition(flag Flag, condition bool) {
	if !condition {
		r.resetFlag(flag)
		return
	}
	r.setFlag(flag)
}

// setFlags overwrites all four flags at once.
func (r *Registers) setFlags(z, n, h, c bool) {
	r.F = 0
	r.setFlagToCondition(zeroFlag, z)
	r.setFlagToCondition(subFlag, n)
	r.setFlagToCondition(halfCarryFlag, h)
	r.setFlagToCondition(carryFlag, c)
}

func (r Registers) AF() uint16 { return bit.Combine(r.A, r.F) }
func (r Registers) BC() uint16 { return bit.Combine(r.B, r.C) }
func (r Registers) DE() uint16 { return bit.Combine(r.D, r.E) }
func (r Registers) HL() uint16 { return bit.Combine(r.H, r.L) }

// SetAF sets A and F. The low nibble of F does not exist and always reads 0.
func (r *Registers) SetAF(value uint16) {
	r.A = bit.High(value)
	r.F = bit.Low(value) & 0xF0
}

func (r *Registers) SetBC(value uint16) {
	r.B = bit.High(value)
	r.C = bit.Low(value)
}

func (r *Registers) SetDE(value uint16) {
	r.D = bit.High(value)
	r.E = bit.Low(value)
}

func (r *Registers) SetHL(value uint16) {
	r.H = bit.High(value)
	r.L = bit.Low(value)
}

// reg8 returns a pointer to the register selected by a 3 bit operand index.
// Index 6 encodes (HL), a memory operand the register file cannot serve.
func (r *Registers) reg8(index uint8) *uint8 {
	switch index {
	case regB:
		return &r.B
	case regC:
		return &r.C
	case regD:
		return &r.D
	case regE:
		return &r.E
	case regH:
		return &r.H
	case regL:
		return &r.L
	case regA:
		return &r.A
	}
	panic(fmt.Sprintf("cpu: register index %d has no register storage", index))
}

// r16sp reads the register pair selected by p in the BC, DE, HL, SP table.
func (r *Registers) r16sp(p uint8) uint16 {
	switch p & 3 {
	case 0:
		return r.BC()
	case 1:
		return r.DE()
	case 2:
		return r.HL()
	}
	return r.SP
}

func (r *Registers) setR16sp(p uint8, value uint16) {
	switch p & 3 {
	case 0:
		r.SetBC(value)
	case 1:
		r.SetDE(value)
	case 2:
		r.SetHL(value)
	default:
		r.SP = value
	}
}

// r16af reads the register pair selected by p in the BC, DE, HL, AF table used by PUSH and POP.
func (r *Registers) r16af(p uint8) uint16 {
	if p&3 == 3 {
		return r.AF()
	}
	return r.r16sp(p)
}

func (r *Registers) setR16af(p uint8, value uint16) {
	if p&3 == 3 {
		r.SetAF(value)
		return
	}
	r.setR16sp(p, value)
}

// FlagString returns a human-readable representation of the flag register
func (r Registers) FlagString() string {
	flags := []byte("----")
	for i, f := range []struct {
		flag Flag
		name byte
	}{{zeroFlag, 'Z'}, {subFlag, 'N'}, {halfCarryFlag, 'H'}, {carryFlag, 'C'}} {
		if r.isSetFlag(f.flag) {
			flags[i] = f.name
		}
	}
	return string(flags)
}

func (r Registers) String() string {
	return fmt.Sprintf("AF=%04X BC=%04X DE=%04X HL=%04X SP=%04X PC=%04X %s",
		r.AF(), r.BC(), r.DE(), r.HL(), r.SP, r.PC, r.FlagString())
}
