package cpu

import "github.com/sunny-emu/sunny/sunny/bit"

// fields splits an opcode into the x, y, z, p, q fields used for decoding:
//
//	bits: 7 6 | 5 4 3 | 2 1 0
//	       x  |   y   |   z
//	          | p   q |
type fields struct {
	x, y, z, p, q uint8
}

func decode(opcode uint8) fields {
	y := (opcode >> 3) & 7
	return fields{
		x: opcode >> 6,
		y: y,
		z: opcode & 7,
		p: y >> 1,
		q: y & 1,
	}
}

// execute runs an already fetched opcode and returns its cost in T-cycles.
func (c *CPU) execute(opcode uint8) int {
	if opcode == 0xCB {
		cb := c.fetch()
		c.executePrefixed(cb)
		return 4 * int(prefixedCycles[cb])
	}

	f := decode(opcode)
	var taken bool

	switch f.x {
	case 0:
		taken = c.executeBlock0(f)
	case 1:
		if f.y == regHLIndirect && f.z == regHLIndirect {
			c.halt()
		} else {
			c.writeR8(f.y, c.readR8(f.z))
		}
	case 2:
		c.alu(f.y, c.readR8(f.z))
	case 3:
		taken = c.executeBlock3(opcode, f)
	}

	if taken {
		return 4 * int(branchCycles[opcode])
	}
	return 4 * int(baseCycles[opcode])
}

// executeBlock0 runs opcodes 0x00-0x3F: loads, 16 bit arithmetic, INC/DEC,
// relative jumps and the accumulator rotates. Returns whether a conditional branch was taken.
func (c *CPU) executeBlock0(f fields) bool {
	switch f.z {
	case 0:
		switch f.y {
		case 0: // NOP
		case 1: // LD (nn),SP
			nn := c.fetchWord()
			c.bus.Write(nn, bit.Low(c.SP))
			c.bus.Write(nn+1, bit.High(c.SP))
		case 2:
			c.stop()
		case 3: // JR d
			c.jumpRelative(c.fetch())
		default: // JR cc,d
			d := c.fetch()
			if c.condition(f.y - 4) {
				c.jumpRelative(d)
				return true
			}
		}

	case 1:
		if f.q == 0 { // LD rr,nn
			c.setR16sp(f.p, c.fetchWord())
		} else { // ADD HL,rr
			c.addToHL(c.r16sp(f.p))
		}

	case 2:
		address := c.indirectAddress(f.p)
		if f.q == 0 {
			c.bus.Write(address, c.A)
		} else {
			c.A = c.bus.Read(address)
		}

	case 3:
		if f.q == 0 {
			c.setR16sp(f.p, c.r16sp(f.p)+1)
		} else {
			c.setR16sp(f.p, c.r16sp(f.p)-1)
		}

	case 4:
		c.writeR8(f.y, c.inc(c.readR8(f.y)))

	case 5:
		c.writeR8(f.y, c.dec(c.readR8(f.y)))

	case 6: // LD r,n
		c.writeR8(f.y, c.fetch())

	case 7:
		c.accumulatorOp(f.y)
	}

	return false
}

// indirectAddress resolves the (BC), (DE), (HL+), (HL-) operand of the
// accumulator loads, applying the HL post increment or decrement.
func (c *CPU) indirectAddress(p uint8) uint16 {
	switch p {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		hl := c.HL()
		c.SetHL(hl + 1)
		return hl
	}
	hl := c.HL()
	c.SetHL(hl - 1)
	return hl
}

// accumulatorOp runs the x=0, z=7 group: RLCA, RRCA, RLA, RRA, DAA, CPL, SCF, CCF.
func (c *CPU) accumulatorOp(y uint8) {
	switch y {
	case 0, 1, 2, 3:
		// same as the CB rotates, except Z is always cleared
		c.A = c.rotate(y, c.A)
		c.resetFlag(zeroFlag)
	case 4:
		c.daa()
	case 5:
		c.A = ^c.A
		c.setFlag(subFlag)
		c.setFlag(halfCarryFlag)
	case 6:
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlag(carryFlag)
	case 7:
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))
	}
}

// executeBlock3 runs opcodes 0xC0-0xFF: control flow, stack, high page loads,
// immediate ALU ops and the interrupt enable instructions.
func (c *CPU) executeBlock3(opcode uint8, f fields) bool {
	switch f.z {
	case 0:
		switch f.y {
		case 0, 1, 2, 3: // RET cc
			if c.condition(f.y) {
				c.PC = c.popStack()
				return true
			}
		case 4: // LDH (n),A
			c.bus.Write(0xFF00|uint16(c.fetch()), c.A)
		case 5: // ADD SP,d
			c.SP = c.addSPSigned(c.fetch())
		case 6: // LDH A,(n)
			c.A = c.bus.Read(0xFF00 | uint16(c.fetch()))
		case 7: // LD HL,SP+d
			c.SetHL(c.addSPSigned(c.fetch()))
		}

	case 1:
		if f.q == 0 { // POP rr
			c.setR16af(f.p, c.popStack())
			break
		}
		switch f.p {
		case 0: // RET
			c.PC = c.popStack()
		case 1: // RETI
			c.PC = c.popStack()
			c.ime = true
		case 2: // JP HL
			c.PC = c.HL()
		case 3: // LD SP,HL
			c.SP = c.HL()
		}

	case 2:
		switch f.y {
		case 0, 1, 2, 3: // JP cc,nn
			nn := c.fetchWord()
			if c.condition(f.y) {
				c.PC = nn
				return true
			}
		case 4: // LD (C),A
			c.bus.Write(0xFF00|uint16(c.C), c.A)
		case 5: // LD (nn),A
			c.bus.Write(c.fetchWord(), c.A)
		case 6: // LD A,(C)
			c.A = c.bus.Read(0xFF00 | uint16(c.C))
		case 7: // LD A,(nn)
			c.A = c.bus.Read(c.fetchWord())
		}

	case 3:
		switch f.y {
		case 0: // JP nn
			c.PC = c.fetchWord()
		case 6: // DI
			c.ime = false
			c.eiDelay = 0
		case 7: // EI
			if !c.ime && c.eiDelay == 0 {
				c.eiDelay = 2
			}
		default:
			c.lock(opcode)
		}

	case 4:
		if f.y > 3 {
			c.lock(opcode)
			break
		}
		nn := c.fetchWord() // CALL cc,nn
		if c.condition(f.y) {
			c.call(nn)
			return true
		}

	case 5:
		if f.q == 0 { // PUSH rr
			c.pushStack(c.r16af(f.p))
			break
		}
		if f.p != 0 {
			c.lock(opcode)
			break
		}
		c.call(c.fetchWord())

	case 6:
		c.alu(f.y, c.fetch())

	case 7: // RST
		c.call(uint16(f.y) * 8)
	}

	return false
}

// executePrefixed runs a CB prefixed opcode: rotates and shifts, BIT, RES, SET.
func (c *CPU) executePrefixed(opcode uint8) {
	f := decode(opcode)

	switch f.x {
	case 0:
		c.writeR8(f.z, c.rotate(f.y, c.readR8(f.z)))
	case 1: // BIT
		c.setFlagToCondition(zeroFlag, !bit.IsSet(f.y, c.readR8(f.z)))
		c.resetFlag(subFlag)
		c.setFlag(halfCarryFlag)
	case 2: // RES
		c.writeR8(f.z, bit.Reset(f.y, c.readR8(f.z)))
	case 3: // SET
		c.writeR8(f.z, bit.Set(f.y, c.readR8(f.z)))
	}
}

func (c *CPU) jumpRelative(d uint8) {
	c.PC += uint16(int8(d))
}

func (c *CPU) call(address uint16) {
	c.pushStack(c.PC)
	c.PC = address
}
