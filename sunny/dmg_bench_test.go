package sunny

import (
	"testing"
)

func BenchmarkRunOneFrame(b *testing.B) {
	benchmarks := []struct {
		name    string
		program []byte
	}{
		// JR -2 with the LCD on: mostly PPU work
		{"idle loop", loop},
		// INC A, INC B, ADD A,B, LD (HL),A, JR -6: CPU and bus heavy
		{"busy loop", []byte{0x21, 0x00, 0xC0, 0x3C, 0x04, 0x80, 0x77, 0x18, 0xFA}},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			d, err := New(romWith(bm.program, nil))
			if err != nil {
				b.Fatalf("Failed to create emulator: %v", err)
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				d.RunOneFrame()
			}
		})
	}
}
