// Package interrupt holds the shared IF/IE register pair.
//
// One Controller is owned by the system driver and lent to every component
// that can raise a request (PPU, timer, serial, joypad). Components only ever
// set bits in Requested; the CPU is the only one that acknowledges them.
package interrupt

// Source is one of the five interrupt lines, in priority order.
type Source uint8

const (
	// VBlank is fired when the PPU has completed a frame.
	VBlank Source = iota
	// LCD is fired based on one of the conditions selected in STAT.
	LCD
	// Timer is fired when TIMA overflows.
	Timer
	// Serial is fired when a serial transfer has completed.
	Serial
	// Joypad is fired when any of the keypad inputs goes from high to low.
	Joypad
)

// Sources lists every interrupt in servicing priority order.
var Sources = [...]Source{VBlank, LCD, Timer, Serial, Joypad}

const (
	baseVector  uint16 = 0x40
	usedBits    uint8  = 0x1F
	unusedFlags uint8  = 0xE0
)

// Mask returns the bit of the source inside IF/IE.
func (s Source) Mask() uint8 {
	return 1 << s
}

// Vector returns the handler address: 0x40, 0x48, 0x50, 0x58, 0x60.
func (s Source) Vector() uint16 {
	return baseVector + uint16(s)*8
}

func (s Source) String() string {
	switch s {
	case VBlank:
		return "VBlank"
	case LCD:
		return "LCD"
	case Timer:
		return "Timer"
	case Serial:
		return "Serial"
	case Joypad:
		return "Joypad"
	}
	return "Unknown"
}

// Controller is the IF (Requested) and IE (Enabled) register pair.
type Controller struct {
	Requested uint8
	Enabled   uint8
}

// New returns a controller with nothing requested or enabled.
func New() *Controller {
	return &Controller{}
}

// Reset clears both registers.
func (c *Controller) Reset() {
	c.Requested = 0
	c.Enabled = 0
}

// Request sets the IF bit of the given source. Setting an already set bit is a no-op.
func (c *Controller) Request(s Source) {
	c.Requested |= s.Mask()
}

// Allowed returns the interrupts that are both requested and enabled.
func (c *Controller) Allowed() uint8 {
	return c.Requested & c.Enabled & usedBits
}

// Pending reports whether any interrupt is both requested and enabled.
func (c *Controller) Pending() bool {
	return c.Allowed() != 0
}

// Next returns the highest priority allowed interrupt, if any.
func (c *Controller) Next() (Source, bool) {
	allowed := c.Allowed()
	for _, s := range Sources {
		if allowed&s.Mask() != 0 {
			return s, true
		}
	}
	return 0, false
}

// Acknowledge clears the IF bit of a serviced interrupt.
func (c *Controller) Acknowledge(s Source) {
	c.Requested &^= s.Mask()
}

// ReadIF returns IF as seen on the bus, unused upper bits read as 1.
func (c *Controller) ReadIF() uint8 {
	return c.Requested | unusedFlags
}

// WriteIF stores the five significant bits of IF.
func (c *Controller) WriteIF(value uint8) {
	c.Requested = value & usedBits
}

// ReadIE returns IE. All 8 bits are stored, only the low 5 have any effect.
func (c *Controller) ReadIE() uint8 {
	return c.Enabled
}

// WriteIE stores IE.
func (c *Controller) WriteIE(value uint8) {
	c.Enabled = value
}
