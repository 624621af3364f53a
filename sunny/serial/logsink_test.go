package serial

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sunny-emu/sunny/sunny/addr"
	"github.com/sunny-emu/sunny/sunny/interrupt"
)

func send(s *LogSink, b uint8) {
	s.Write(addr.SB, b)
	s.Write(addr.SC, 0x81)
}

func TestLogSink(t *testing.T) {
	t.Run("transfer completes after 4096 cycles", func(t *testing.T) {
		irq := interrupt.New()
		s := NewLogSink(irq)

		send(s, 'A')
		assert.Equal(t, uint8(0xFF), s.Read(addr.SC))

		s.Step(transferCycles - 1)
		assert.Zero(t, irq.Requested)
		assert.Equal(t, uint8('A'), s.Read(addr.SB))

		s.Step(1)
		assert.Equal(t, interrupt.Serial.Mask(), irq.Requested)
		assert.Equal(t, uint8(0xFF), s.Read(addr.SB))
		assert.Equal(t, uint8(0x7F), s.Read(addr.SC))
	})

	t.Run("immediate transfer", func(t *testing.T) {
		irq := interrupt.New()
		s := NewLogSink(irq, WithImmediateTransfer())
		send(s, 'A')
		assert.Equal(t, interrupt.Serial.Mask(), irq.Requested)
	})

	t.Run("external clock never completes", func(t *testing.T) {
		irq := interrupt.New()
		s := NewLogSink(irq)
		s.Write(addr.SB, 'A')
		s.Write(addr.SC, 0x80)
		s.Step(10 * transferCycles)
		assert.Zero(t, irq.Requested)
		assert.Empty(t, s.Output())
	})

	t.Run("output is collected and mirrored", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewLogSink(interrupt.New(), WithImmediateTransfer(), WithWriter(&buf))
		for _, b := range []byte("Passed\n") {
			send(s, b)
		}
		assert.Equal(t, "Passed\n", s.Output())
		assert.Equal(t, "Passed\n", buf.String())

		s.Reset()
		assert.Empty(t, s.Output())
	})

	t.Run("invalid address panics", func(t *testing.T) {
		s := NewLogSink(interrupt.New())
		assert.Panics(t, func() { s.Read(addr.DIV) })
	})
}
