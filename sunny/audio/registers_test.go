package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sunny-emu/sunny/sunny/addr"
)

func TestReadMasks(t *testing.T) {
	tests := []struct {
		name    string
		address uint16
		write   uint8
		want    uint8
	}{
		{"NR10 bit 7 unused", addr.NR10, 0x00, 0x80},
		{"NR11 length is write only", addr.NR11, 0xC5, 0xFF},
		{"NR12 fully readable", addr.NR12, 0x5A, 0x5A},
		{"NR13 write only", addr.NR13, 0x12, 0xFF},
		{"NR14 only length enable reads", addr.NR14, 0x40, 0xFF},
		{"NR14 length enable clear", addr.NR14, 0x00, 0xBF},
		{"NR30 DAC bit", addr.NR30, 0x00, 0x7F},
		{"NR32 output level", addr.NR32, 0x20, 0xBF},
		{"NR50", addr.NR50, 0x12, 0x12},
		{"unused 0xFF15", 0xFF15, 0x12, 0xFF},
		{"unused 0xFF27", 0xFF27, 0x00, 0xFF},
		{"wave RAM", addr.WaveRAMStart + 3, 0xA5, 0xA5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			r.Write(tt.address, tt.write)
			assert.Equal(t, tt.want, r.Read(tt.address))
		})
	}
}

func TestPower(t *testing.T) {
	r := New()
	assert.Equal(t, uint8(0xF0), r.Read(addr.NR52))

	r.Write(addr.NR50, 0x77)
	r.Write(addr.NR52, 0x00)
	assert.Equal(t, uint8(0x70), r.Read(addr.NR52))
	assert.Equal(t, uint8(0x00), r.Read(addr.NR50))

	t.Run("registers ignore writes while off", func(t *testing.T) {
		r.Write(addr.NR50, 0x33)
		assert.Equal(t, uint8(0x00), r.Read(addr.NR50))
	})

	t.Run("wave RAM still writable", func(t *testing.T) {
		r.Write(addr.WaveRAMStart, 0x42)
		assert.Equal(t, uint8(0x42), r.Read(addr.WaveRAMStart))
	})

	t.Run("power back on", func(t *testing.T) {
		r.Write(addr.NR52, 0xFF)
		assert.Equal(t, uint8(0xF0), r.Read(addr.NR52))
		r.Write(addr.NR50, 0x33)
		assert.Equal(t, uint8(0x33), r.Read(addr.NR50))
	})
}
