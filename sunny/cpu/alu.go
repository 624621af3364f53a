package cpu

import "github.com/sunny-emu/sunny/sunny/bit"

// ALU operations selected by opcode field y in blocks 2 and 3.
const (
	aluADD = iota
	aluADC
	aluSUB
	aluSBC
	aluAND
	aluXOR
	aluOR
	aluCP
)

// Rotate and shift operations selected by field y of CB prefixed opcodes.
const (
	rotRLC = iota
	rotRRC
	rotRL
	rotRR
	rotSLA
	rotSRA
	rotSWAP
	rotSRL
)

func (c *CPU) pushStack(value uint16) {
	c.SP--
	c.bus.Write(c.SP, bit.High(value))
	c.SP--
	c.bus.Write(c.SP, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.SP)
	c.SP++
	high := c.bus.Read(c.SP)
	c.SP++

	return bit.Combine(high, low)
}

// alu applies one of the 8 accumulator operations to A and value.
func (c *CPU) alu(op uint8, value uint8) {
	switch op {
	case aluADD:
		c.A = c.add(c.A, value, 0)
	case aluADC:
		c.A = c.add(c.A, value, c.flagToBit(carryFlag))
	case aluSUB:
		c.A = c.sub(c.A, value, 0)
	case aluSBC:
		c.A = c.sub(c.A, value, c.flagToBit(carryFlag))
	case aluAND:
		c.A &= value
		c.setFlags(c.A == 0, false, true, false)
	case aluXOR:
		c.A ^= value
		c.setFlags(c.A == 0, false, false, false)
	case aluOR:
		c.A |= value
		c.setFlags(c.A == 0, false, false, false)
	case aluCP:
		c.sub(c.A, value, 0)
	}
}

// add returns a+value+carry, half carry and carry come from the widened sums.
func (c *CPU) add(a, value, carry uint8) uint8 {
	sum := uint16(a) + uint16(value) + uint16(carry)
	halfCarry := (a&0xF)+(value&0xF)+carry > 0xF
	result := uint8(sum)

	c.setFlags(result == 0, false, halfCarry, sum > 0xFF)
	return result
}

// sub returns a-value-carry, flags are set when a borrow occurs.
func (c *CPU) sub(a, value, carry uint8) uint8 {
	diff := int(a) - int(value) - int(carry)
	halfBorrow := int(a&0xF)-int(value&0xF)-int(carry) < 0
	result := uint8(diff)

	c.setFlags(result == 0, true, halfBorrow, diff < 0)
	return result
}

func (c *CPU) inc(value uint8) uint8 {
	result := value + 1

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, value&0xF == 0xF)

	return result
}

func (c *CPU) dec(value uint8) uint8 {
	result := value - 1

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, value&0xF == 0)

	return result
}

// addToHL adds a 16 bit value to HL. Half carry is taken from bit 11, Z is kept.
func (c *CPU) addToHL(value uint16) {
	hl := c.HL()
	sum := uint32(hl) + uint32(value)

	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (hl&0xFFF)+(value&0xFFF) > 0xFFF)
	c.setFlagToCondition(carryFlag, sum > 0xFFFF)

	c.SetHL(uint16(sum))
}

// addSPSigned computes SP plus a signed offset, as used by ADD SP,d and LD HL,SP+d.
// Both flags come from the unsigned addition of the low byte.
func (c *CPU) addSPSigned(offset uint8) uint16 {
	sp := c.SP
	result := sp + uint16(int8(offset))

	halfCarry := (sp&0xF)+uint16(offset&0xF) > 0xF
	carry := (sp&0xFF)+uint16(offset) > 0xFF
	c.setFlags(false, false, halfCarry, carry)

	return result
}

// rotate applies a CB rotate/shift operation, setting Z from the result.
func (c *CPU) rotate(op uint8, value uint8) uint8 {
	var result uint8
	var carry bool

	switch op {
	case rotRLC:
		carry = value&0x80 != 0
		result = value<<1 | value>>7
	case rotRRC:
		carry = value&0x01 != 0
		result = value>>1 | value<<7
	case rotRL:
		carry = value&0x80 != 0
		result = value<<1 | c.flagToBit(carryFlag)
	case rotRR:
		carry = value&0x01 != 0
		result = value>>1 | c.flagToBit(carryFlag)<<7
	case rotSLA:
		carry = value&0x80 != 0
		result = value << 1
	case rotSRA:
		carry = value&0x01 != 0
		result = value>>1 | value&0x80
	case rotSWAP:
		result = value<<4 | value>>4
	case rotSRL:
		carry = value&0x01 != 0
		result = value >> 1
	}

	c.setFlags(result == 0, false, false, carry)
	return result
}

// daa adjusts A to packed BCD after an addition or subtraction.
func (c *CPU) daa() {
	a := c.A
	carry := c.isSetFlag(carryFlag)

	if !c.isSetFlag(subFlag) {
		if carry || a > 0x99 {
			a += 0x60
			carry = true
		}
		if c.isSetFlag(halfCarryFlag) || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if carry {
			a -= 0x60
		}
		if c.isSetFlag(halfCarryFlag) {
			a -= 0x06
		}
	}

	c.A = a
	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry)
}

// condition evaluates one of NZ, Z, NC, C.
func (c *CPU) condition(cc uint8) bool {
	switch cc & 3 {
	case 0:
		return !c.isSetFlag(zeroFlag)
	case 1:
		return c.isSetFlag(zeroFlag)
	case 2:
		return !c.isSetFlag(carryFlag)
	}
	return c.isSetFlag(carryFlag)
}
