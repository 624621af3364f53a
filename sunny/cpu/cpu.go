package cpu

import (
	"fmt"
	"log/slog"

	"github.com/sunny-emu/sunny/sunny/addr"
	"github.com/sunny-emu/sunny/sunny/interrupt"
)

// Bus is the CPU view of the address space.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

const (
	// interruptDispatchCycles is the cost of servicing an interrupt, 5 M-cycles.
	interruptDispatchCycles = 20
	// idleCycles is consumed by every Step while halted, stopped or locked.
	idleCycles = 4
)

// CPU is the main struct holding the SM83 core state
type CPU struct {
	Registers

	bus Bus
	irq *interrupt.Controller

	ime bool
	// eiDelay counts down to the moment EI takes effect, one instruction after EI itself.
	eiDelay int
	halted  bool
	stopped bool
	// haltBug makes the next opcode fetch read PC without incrementing it.
	haltBug bool
	// locked is entered by executing one of the unused opcodes, only a reset leaves it.
	locked bool

	cycles uint64
	trace  bool
}

// New returns a CPU in the state the boot ROM leaves it in.
func New(bus Bus, irq *interrupt.Controller) *CPU {
	c := &CPU{
		bus: bus,
		irq: irq,
	}
	c.Reset()
	return c
}

// Reset loads the DMG post-boot register values, execution starts at the cartridge entry point.
func (c *CPU) Reset() {
	c.PowerOn()
	c.SetAF(0x01B0)
	c.SetBC(0x0013)
	c.SetDE(0x00D8)
	c.SetHL(0x014D)
	c.SP = 0xFFFE
	c.PC = 0x0100
}

// PowerOn clears all state, execution starts at 0x0000 where the boot ROM is mapped.
func (c *CPU) PowerOn() {
	c.Registers = Registers{}
	c.ime = false
	c.eiDelay = 0
	c.halted = false
	c.stopped = false
	c.haltBug = false
	c.locked = false
	c.cycles = 0
}

// SetTrace enables logging every executed instruction at debug level.
func (c *CPU) SetTrace(enabled bool) {
	c.trace = enabled
}

// Step runs one instruction, or services one interrupt, and returns the
// number of T-cycles it took.
func (c *CPU) Step() int {
	cycles := c.step()
	c.cycles += uint64(cycles)
	return cycles
}

func (c *CPU) step() int {
	if c.locked {
		return idleCycles
	}

	if c.stopped {
		if c.irq.Requested&interrupt.Joypad.Mask() == 0 {
			return idleCycles
		}
		c.stopped = false
	}

	if c.irq.Pending() {
		c.halted = false
		if c.ime {
			return c.serviceInterrupt()
		}
	}

	if c.halted {
		return idleCycles
	}

	if c.trace {
		text, _ := Disassemble(c.bus.Read, c.PC)
		slog.Debug("exec", "pc", fmt.Sprintf("0x%04X", c.PC), "op", text, "regs", c.Registers.String())
	}

	opcode := c.fetch()
	cycles := c.execute(opcode)
	if c.locked {
		return idleCycles
	}

	if c.eiDelay > 0 {
		c.eiDelay--
		if c.eiDelay == 0 {
			c.ime = true
		}
	}

	return cycles
}

// serviceInterrupt dispatches the highest priority pending interrupt.
func (c *CPU) serviceInterrupt() int {
	source, ok := c.irq.Next()
	if !ok {
		return 0
	}

	c.ime = false
	c.eiDelay = 0
	c.pushStack(c.PC)
	c.PC = source.Vector()
	c.irq.Acknowledge(source)

	return interruptDispatchCycles
}

// fetch reads the byte at PC and advances it. Right after a HALT bug the
// increment is skipped once, so the same byte is read twice.
func (c *CPU) fetch() uint8 {
	value := c.bus.Read(c.PC)
	if c.haltBug {
		c.haltBug = false
		return value
	}
	c.PC++
	return value
}

func (c *CPU) fetchWord() uint16 {
	low := c.fetch()
	high := c.fetch()
	return uint16(high)<<8 | uint16(low)
}

// readR8 reads an 8 bit operand, index 6 is the byte at (HL).
func (c *CPU) readR8(index uint8) uint8 {
	if index == regHLIndirect {
		return c.bus.Read(c.HL())
	}
	return *c.reg8(index)
}

func (c *CPU) writeR8(index uint8, value uint8) {
	if index == regHLIndirect {
		c.bus.Write(c.HL(), value)
		return
	}
	*c.reg8(index) = value
}

// halt enters low power mode. With IME clear and an interrupt already pending
// the CPU does not halt, and the next fetch triggers the HALT bug instead.
func (c *CPU) halt() {
	if !c.ime && c.irq.Pending() {
		c.haltBug = true
		return
	}
	c.halted = true
}

// stop consumes the padding byte, resets DIV and waits for a joypad press.
func (c *CPU) stop() {
	c.fetch()
	c.bus.Write(addr.DIV, 0)
	c.stopped = true
}

func (c *CPU) lock(opcode uint8) {
	slog.Warn("Illegal opcode, CPU locked up", "opcode", fmt.Sprintf("0x%02X", opcode), "pc", fmt.Sprintf("0x%04X", c.PC-1))
	c.locked = true
}

// State is a snapshot of the CPU for debugging and tests.
type State struct {
	Registers
	IME     bool
	Halted  bool
	Stopped bool
	Locked  bool
	Cycles  uint64
}

// State returns a copy of the current CPU state.
func (c *CPU) State() State {
	return State{
		Registers: c.Registers,
		IME:       c.ime,
		Halted:    c.halted,
		Stopped:   c.stopped,
		Locked:    c.locked,
		Cycles:    c.cycles,
	}
}

// IME reports whether interrupt servicing is enabled.
func (c *CPU) IME() bool { return c.ime }

// Halted reports whether the CPU is waiting for an interrupt.
func (c *CPU) Halted() bool { return c.halted }
