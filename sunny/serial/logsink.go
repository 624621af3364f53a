// Package serial implements the devices that can sit on the other end of the link port.
package serial

import (
	"io"
	"log/slog"

	"github.com/sunny-emu/sunny/sunny/addr"
	"github.com/sunny-emu/sunny/sunny/bit"
	"github.com/sunny-emu/sunny/sunny/interrupt"
)

const (
	// transferCycles is how long an internally clocked byte transfer takes on DMG.
	transferCycles = 4096

	scStart         = 7
	scInternalClock = 0
	scUnused        = 0x7E
)

// Port is a device connected to SB/SC. Implementations only accept addr.SB and addr.SC.
type Port interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
	Step(cycles int)
	Reset()
}

// LogSink is a serial device with nothing attached: outgoing bytes are logged
// as text one line at a time and every transfer receives 0xFF.
// Handy for test ROMs that report results over serial.
type LogSink struct {
	irq *interrupt.Controller

	sb, sc         uint8
	transferActive bool
	countdown      int

	logger    *slog.Logger
	mirror    io.Writer
	immediate bool

	line   []byte
	output []byte
}

type Option func(*LogSink)

// WithImmediateTransfer completes transfers on the SC write instead of after 4096 cycles.
func WithImmediateTransfer() Option { return func(s *LogSink) { s.immediate = true } }

// WithWriter mirrors every outgoing byte to w.
func WithWriter(w io.Writer) Option { return func(s *LogSink) { s.mirror = w } }

func WithLogger(logger *slog.Logger) Option { return func(s *LogSink) { s.logger = logger } }

// NewLogSink creates a logging serial device. Completed transfers request the Serial interrupt.
func NewLogSink(irq *interrupt.Controller, opts ...Option) *LogSink {
	s := &LogSink{
		irq:    irq,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

func (s *LogSink) Write(address uint16, value uint8) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value
		s.maybeStartTransfer()
	default:
		panic("serial.LogSink: invalid write address")
	}
}

func (s *LogSink) Read(address uint16) uint8 {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc | scUnused
	default:
		panic("serial.LogSink: invalid read address")
	}
}

func (s *LogSink) Step(cycles int) {
	if !s.transferActive {
		return
	}
	s.countdown -= cycles
	if s.countdown <= 0 {
		s.completeTransfer()
	}
}

func (s *LogSink) Reset() {
	s.sb = 0x00
	s.sc = 0x00
	s.transferActive = false
	s.countdown = 0
	s.line = s.line[:0]
	s.output = s.output[:0]
}

// Output returns every byte sent since the last reset.
func (s *LogSink) Output() string {
	return string(s.output)
}

func (s *LogSink) maybeStartTransfer() {
	if s.transferActive {
		return
	}
	// only the internal clock can drive a transfer, there is no peer to provide one
	if !bit.IsSet(scStart, s.sc) || !bit.IsSet(scInternalClock, s.sc) {
		return
	}

	b := s.sb
	s.output = append(s.output, b)
	if s.mirror != nil {
		if _, err := s.mirror.Write([]byte{b}); err != nil {
			s.logger.Warn("serial mirror write failed", "err", err)
			s.mirror = nil
		}
	}
	if b == 0 || b == '\n' || b == '\r' {
		s.flushLine()
	} else {
		s.line = append(s.line, b)
	}

	if s.immediate {
		s.completeTransfer()
		return
	}
	s.transferActive = true
	s.countdown = transferCycles
}

func (s *LogSink) flushLine() {
	if len(s.line) == 0 {
		return
	}
	s.logger.Info("serial", "line", string(s.line))
	s.line = s.line[:0]
}

func (s *LogSink) completeTransfer() {
	s.sb = 0xFF
	s.sc = bit.Reset(scStart, s.sc)
	s.transferActive = false
	s.countdown = 0
	s.irq.Request(interrupt.Serial)
}
