package memory

import "github.com/sunny-emu/sunny/sunny/bit"

// JoypadKey represents a key on the Gameboy joypad
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

var keyNames = [...]string{"Right", "Left", "Up", "Down", "A", "B", "Select", "Start"}

func (k JoypadKey) String() string {
	if int(k) < len(keyNames) {
		return keyNames[k]
	}
	return "Unknown"
}

const (
	selectDpadBit    = 4
	selectButtonsBit = 5
)

// Joypad is the P1 register and the button matrix behind it.
//
// Bits 4-5 of P1 select which group is mapped on bits 0-3:
//   - bit 4 clear selects the d-pad
//   - bit 5 clear selects A, B, Select, Start
//   - both clear ANDs the two groups
//   - neither leaves the lines floating high (0x0F)
//
// A pressed key reads 0, bits 6-7 always read 1.
type Joypad struct {
	buttons uint8
	dpad    uint8
	line    uint8
}

func NewJoypad() *Joypad {
	j := &Joypad{}
	j.Reset()
	return j
}

func (j *Joypad) Reset() {
	j.buttons = 0x0F
	j.dpad = 0x0F
	j.line = 0x30
}

// Read returns the P1 value for the current selection.
func (j *Joypad) Read() uint8 {
	result := 0xC0 | j.line

	selectDpad := !bit.IsSet(selectDpadBit, j.line)
	selectButtons := !bit.IsSet(selectButtonsBit, j.line)

	switch {
	case selectButtons && selectDpad:
		result |= j.buttons & j.dpad
	case selectButtons:
		result |= j.buttons
	case selectDpad:
		result |= j.dpad
	default:
		result |= 0x0F
	}
	return result
}

// Write sets the selection lines, only bits 4-5 are writable.
func (j *Joypad) Write(value uint8) {
	j.line = value & 0x30
}

// Press marks a key as held and reports whether it went from released to
// pressed, which is what raises the Joypad interrupt.
func (j *Joypad) Press(key JoypadKey) bool {
	group, index := j.lookup(key)
	if group == nil {
		return false
	}
	wasReleased := bit.IsSet(index, *group)
	*group = bit.Reset(index, *group)
	return wasReleased
}

func (j *Joypad) Release(key JoypadKey) {
	group, index := j.lookup(key)
	if group == nil {
		return
	}
	*group = bit.Set(index, *group)
}

func (j *Joypad) lookup(key JoypadKey) (*uint8, uint8) {
	switch key {
	case JoypadRight, JoypadLeft, JoypadUp, JoypadDown:
		return &j.dpad, uint8(key - JoypadRight)
	case JoypadA, JoypadB, JoypadSelect, JoypadStart:
		return &j.buttons, uint8(key - JoypadA)
	}
	return nil, 0
}
