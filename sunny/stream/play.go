package stream

import (
	"context"
	"time"

	"github.com/sunny-emu/sunny/sunny/memory"
	"github.com/sunny-emu/sunny/sunny/video"
)

// Emulator is the part of the emulator a stream session drives.
type Emulator interface {
	RunOneFrame()
	Framebuffer() *video.FrameBuffer
	Press(key memory.JoypadKey)
	Release(key memory.JoypadKey)
}

// Play runs the emulator at 60 frames per second, publishing every frame to
// the hub and applying key events from clients between frames. It returns
// when ctx is cancelled.
func Play(ctx context.Context, emu Emulator, hub *Hub) {
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case in := <-hub.Inputs():
			if in.Pressed {
				emu.Press(in.Key)
			} else {
				emu.Release(in.Key)
			}
		case <-ticker.C:
			emu.RunOneFrame()
			hub.Publish(emu.Framebuffer())
		}
	}
}
