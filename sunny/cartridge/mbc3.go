package cartridge

import (
	"time"

	"github.com/sunny-emu/sunny/sunny/bit"
)

// Clock provides the wall time the MBC3 real time clock follows.
type Clock interface {
	Now() time.Time
}

type systemClockFunc func() time.Time

func (s systemClockFunc) Now() time.Time {
	return s()
}

// SystemClock is the default RTC time source.
var SystemClock Clock = systemClockFunc(time.Now)

const (
	rtcSeconds  = 0x08
	rtcMinutes  = 0x09
	rtcHours    = 0x0A
	rtcDaysLow  = 0x0B
	rtcDaysHigh = 0x0C

	rtcHaltBit  = 6
	rtcCarryBit = 7
	maxDays     = 512
)

// rtc is the MBC3 clock. The live counters follow the wall clock, software
// only ever sees the latched copy.
type rtc struct {
	clock Clock
	last  time.Time

	seconds, minutes, hours uint8
	days                    uint16
	halt, carry             bool

	latched [5]uint8
}

func newRTC(clock Clock) *rtc {
	return &rtc{clock: clock, last: clock.Now()}
}

// advance moves the live counters forward by the whole seconds elapsed since the last call.
func (r *rtc) advance() {
	now := r.clock.Now()
	if r.halt {
		r.last = now
		return
	}

	elapsed := int64(now.Sub(r.last) / time.Second)
	if elapsed <= 0 {
		return
	}
	r.last = r.last.Add(time.Duration(elapsed) * time.Second)

	total := int64(r.seconds) + int64(r.minutes)*60 + int64(r.hours)*3600 + int64(r.days)*86400 + elapsed
	r.seconds = uint8(total % 60)
	r.minutes = uint8(total / 60 % 60)
	r.hours = uint8(total / 3600 % 24)
	days := total / 86400
	if days >= maxDays {
		r.carry = true
		days %= maxDays
	}
	r.days = uint16(days)
}

func (r *rtc) latch() {
	r.advance()
	dh := uint8(r.days>>8) & 0x01
	dh = bit.SetTo(rtcHaltBit, dh, r.halt)
	dh = bit.SetTo(rtcCarryBit, dh, r.carry)
	r.latched = [5]uint8{r.seconds, r.minutes, r.hours, uint8(r.days), dh}
}

func (r *rtc) read(reg uint8) uint8 {
	return r.latched[reg-rtcSeconds]
}

func (r *rtc) write(reg uint8, value uint8) {
	r.advance()
	switch reg {
	case rtcSeconds:
		r.seconds = value & 0x3F
	case rtcMinutes:
		r.minutes = value & 0x3F
	case rtcHours:
		r.hours = value & 0x1F
	case rtcDaysLow:
		r.days = r.days&0x100 | uint16(value)
	case rtcDaysHigh:
		r.days = r.days&0xFF | uint16(value&0x01)<<8
		r.halt = bit.IsSet(rtcHaltBit, value)
		r.carry = bit.IsSet(rtcCarryBit, value)
	}
	r.latched[reg-rtcSeconds] = value
}

// MBC3 is an MBC chip with an optional real time clock:
//   - up to 2MB ROM, 7 bit bank number, writing 0 selects 1
//   - up to 32KB RAM in 4 banks
//   - RAM bank values 0x08-0x0C map the RTC registers into 0xA000-0xBFFF
//   - writing 0x00 then 0x01 to 0x6000-0x7FFF latches the clock
type MBC3 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint8
	ramBank    uint8
	ramEnabled bool
	rtc        *rtc
	latchArmed bool
}

// NewMBC3 creates a new MBC3 controller. A nil clock disables the RTC.
func NewMBC3(rom []uint8, ramSize int, clock Clock) *MBC3 {
	m := &MBC3{
		rom:     rom,
		ram:     make([]uint8, ramSize),
		romBank: 1,
	}
	if clock != nil {
		m.rtc = newRTC(clock)
	}
	return m
}

func (m *MBC3) Read(addr uint16) uint8 {
	if addr < 0x4000 {
		return romBank(m.rom, 0, addr)
	}
	return romBank(m.rom, int(m.romBank), addr-0x4000)
}

func (m *MBC3) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = ramEnableValue(value)
	case addr <= 0x3FFF:
		m.romBank = value & 0x7F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr <= 0x5FFF:
		m.ramBank = value & 0x0F
	case addr <= 0x7FFF:
		if value == 0x01 && m.latchArmed && m.rtc != nil {
			m.rtc.latch()
		}
		m.latchArmed = value == 0x00
	}
}

func (m *MBC3) selectsRTC() bool {
	return m.rtc != nil && m.ramBank >= rtcSeconds && m.ramBank <= rtcDaysHigh
}

func (m *MBC3) ReadSRAM(addr uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	if m.selectsRTC() {
		return m.rtc.read(m.ramBank)
	}
	if m.ramBank > 0x03 || len(m.ram) == 0 {
		return 0xFF
	}
	return m.ram[ramBank(m.ram, int(m.ramBank), addr)]
}

func (m *MBC3) WriteSRAM(addr uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	if m.selectsRTC() {
		m.rtc.write(m.ramBank, value)
		return
	}
	if m.ramBank > 0x03 || len(m.ram) == 0 {
		return
	}
	m.ram[ramBank(m.ram, int(m.ramBank), addr)] = value
}

func (m *MBC3) RAM() []uint8         { return m.ram }
func (m *MBC3) LoadRAM(data []uint8) { copy(m.ram, data) }
