package bit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		high, low uint8
		expected  uint16
	}{
		{0xAB, 0xCD, 0xABCD},
		{0x00, 0x00, 0x0000},
		{0xFF, 0xFF, 0xFFFF},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Combine(tt.high, tt.low))
		assert.Equal(t, tt.high, High(tt.expected))
		assert.Equal(t, tt.low, Low(tt.expected))
	}
}

func TestSetReset(t *testing.T) {
	t.Run("set and reset single bits", func(t *testing.T) {
		assert.Equal(t, uint8(0x80), Set(7, 0x00))
		assert.Equal(t, uint8(0x7F), Reset(7, 0xFF))
		assert.Equal(t, uint8(0x01), SetTo(0, 0x00, true))
		assert.Equal(t, uint8(0x00), SetTo(0, 0x01, false))
	})

	t.Run("is set", func(t *testing.T) {
		assert.True(t, IsSet(3, 0x08))
		assert.False(t, IsSet(2, 0x08))
		assert.True(t, IsSet16(9, 0x0200))
		assert.Equal(t, uint8(1), Value(4, 0x10))
		assert.Equal(t, uint8(0), Value(5, 0x10))
	})
}

func TestExtract(t *testing.T) {
	assert.Equal(t, uint8(0b101), Extract(0b11010110, 6, 4))
	assert.Equal(t, uint8(0b110), Extract(0b11010110, 2, 0))
	assert.Equal(t, uint8(0b11), Extract(0b11000000, 7, 6))
}
