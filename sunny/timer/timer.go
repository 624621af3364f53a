package timer

import (
	"github.com/sunny-emu/sunny/sunny/addr"
	"github.com/sunny-emu/sunny/sunny/bit"
	"github.com/sunny-emu/sunny/sunny/interrupt"
)

// tacLookup maps TAC input clock select (bits 1–0) to the bit position
// of the 16-bit internal divider used as the timer's clock source.
//
//	00 -> bit 9  (4096 Hz)
//	01 -> bit 3  (262144 Hz)
//	10 -> bit 5  (65536 Hz)
//	11 -> bit 7  (16384 Hz)
var tacLookup = [4]uint16{9, 3, 5, 7}

const (
	tacEnableBit = 2
	tacUnused    = 0xF8

	// reloadDelay is how long TIMA reads 0x00 after overflowing before TMA is loaded.
	reloadDelay = 4
)

// Timer is the DIV/TIMA/TMA/TAC block.
//
// TIMA is clocked by a falling edge of (divider bit selected by TAC) AND (TAC enable).
// Since the edge detector looks at the combined signal, writes to DIV and TAC can
// also produce an increment, exactly like the hardware glitches.
type Timer struct {
	irq *interrupt.Controller

	divider    uint16 // DIV is the upper 8 bits
	lastSignal bool
	reload     int // T-cycles left before TIMA <- TMA, 0 when idle

	tima byte
	tma  byte
	tac  byte
}

// New returns a timer wired to the given interrupt controller.
func New(irq *interrupt.Controller) *Timer {
	t := &Timer{irq: irq}
	t.Reset()
	return t
}

// Reset puts the timer in its power-on state.
func (t *Timer) Reset() {
	t.divider = 0
	t.lastSignal = false
	t.reload = 0
	t.tima = 0
	t.tma = 0
	t.tac = 0
}

// SetCounter seeds the internal divider, used to reproduce the post-boot DIV value.
func (t *Timer) SetCounter(seed uint16) {
	t.divider = seed
	t.lastSignal = t.signal()
}

// Counter returns the full 16-bit divider.
func (t *Timer) Counter() uint16 {
	return t.divider
}

// Step advances the timer by the given number of T-cycles.
func (t *Timer) Step(cycles int) {
	for i := 0; i < cycles; i++ {
		t.tick()
	}
}

func (t *Timer) tick() {
	if t.reload > 0 {
		t.reload--
		if t.reload == 0 {
			t.tima = t.tma
		}
	}

	t.divider++
	t.detectEdge()
}

func (t *Timer) signal() bool {
	if !bit.IsSet(tacEnableBit, t.tac) {
		return false
	}
	return bit.IsSet16(tacLookup[t.tac&0x03], t.divider)
}

func (t *Timer) detectEdge() {
	current := t.signal()
	if t.lastSignal && !current {
		t.increment()
	}
	t.lastSignal = current
}

func (t *Timer) increment() {
	t.tima++
	if t.tima == 0 {
		// TIMA reads 0x00 until the reload, the request is raised right away.
		t.reload = reloadDelay
		t.irq.Request(interrupt.Timer)
	}
}

// Read returns the value of one of the timer registers.
func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return bit.High(t.divider)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | tacUnused
	}
	return 0xFF
}

// Write stores a value into one of the timer registers.
func (t *Timer) Write(address uint16, value byte) {
	switch address {
	case addr.DIV:
		t.divider = 0
		t.detectEdge()
	case addr.TIMA:
		// a write while the reload is pending cancels it
		t.tima = value
		t.reload = 0
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value & 0x07
		t.detectEdge()
	}
}
