package video

import (
	"image"
)

const (
	// ScreenWidth is the visible width in pixels.
	ScreenWidth = 160
	// ScreenHeight is the visible height in pixels.
	ScreenHeight = 144
)

// GBColor is a 32 bit RGBA color, red in the most significant byte.
type GBColor uint32

const (
	WhiteColor     GBColor = 0xFFFFFFFF
	LightGreyColor GBColor = 0xC0C0C0FF
	DarkGreyColor  GBColor = 0x606060FF
	BlackColor     GBColor = 0x000000FF
)

// shades maps a palette shade (0-3) to its display color.
var shades = [4]GBColor{WhiteColor, LightGreyColor, DarkGreyColor, BlackColor}

// RGBA splits the color into its components.
func (c GBColor) RGBA() (r, g, b, a uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// FrameBuffer holds one frame of display output.
type FrameBuffer struct {
	width  int
	height int
	buffer []uint32
}

// NewFrameBuffer creates a white 160x144 frame buffer.
func NewFrameBuffer() *FrameBuffer {
	fb := &FrameBuffer{
		width:  ScreenWidth,
		height: ScreenHeight,
		buffer: make([]uint32, ScreenWidth*ScreenHeight),
	}
	fb.Fill(WhiteColor)
	return fb
}

func (fb *FrameBuffer) Width() int  { return fb.width }
func (fb *FrameBuffer) Height() int { return fb.height }

func (fb *FrameBuffer) GetPixel(x, y int) GBColor {
	return GBColor(fb.buffer[y*fb.width+x])
}

func (fb *FrameBuffer) SetPixel(x, y int, color GBColor) {
	fb.buffer[y*fb.width+x] = uint32(color)
}

// Fill sets every pixel to color.
func (fb *FrameBuffer) Fill(color GBColor) {
	for i := range fb.buffer {
		fb.buffer[i] = uint32(color)
	}
}

// CopyFrom overwrites the contents with those of other.
func (fb *FrameBuffer) CopyFrom(other *FrameBuffer) {
	copy(fb.buffer, other.buffer)
}

// ToSlice returns the pixels in row-major order. The slice is shared, not copied.
func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

// Bytes returns the frame as packed R, G, B, A bytes in row-major order.
func (fb *FrameBuffer) Bytes() []byte {
	out := make([]byte, len(fb.buffer)*4)
	for i, px := range fb.buffer {
		out[i*4], out[i*4+1], out[i*4+2], out[i*4+3] = GBColor(px).RGBA()
	}
	return out
}

// Image converts the frame to an image.RGBA.
func (fb *FrameBuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
	copy(img.Pix, fb.Bytes())
	return img
}
