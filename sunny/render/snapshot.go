// Package render turns frames into something a human can look at: a live
// terminal view, PNG snapshots and half block text dumps.
package render

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/sunny-emu/sunny/sunny/video"
)

// ScaledImage returns the frame upscaled by an integer factor with nearest
// neighbour sampling, so every Game Boy pixel stays a sharp square.
func ScaledImage(fb *video.FrameBuffer, scale int) *image.RGBA {
	src := fb.Image()
	if scale <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, fb.Width()*scale, fb.Height()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SavePNG writes the frame to path as a PNG, upscaled by scale.
func SavePNG(fb *video.FrameBuffer, path string, scale int) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating snapshot")
	}
	defer file.Close()

	if err := png.Encode(file, ScaledImage(fb, scale)); err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}

	slog.Debug("Snapshot saved", "path", path, "scale", scale)
	return nil
}

// SnapshotPath returns the file name used for the snapshot of a given frame,
// ext selects the format ("png" or "txt").
func SnapshotPath(dir, romName string, frame uint64, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_frame_%d.%s", romName, frame, ext))
}

var shadeChars = [4]rune{'░', '▒', '▓', '█'}

// WriteText writes the frame as one character per pixel, darker shades using
// denser blocks, after a short commented header.
func WriteText(w io.Writer, fb *video.FrameBuffer, frame, instructions uint64) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# Game Boy Frame Snapshot\n")
	fmt.Fprintf(bw, "# Frame: %d, Instructions: %d\n", frame, instructions)
	fmt.Fprintf(bw, "# Resolution: %dx%d pixels\n", fb.Width(), fb.Height())
	fmt.Fprintf(bw, "# Legend: █=black ▓=dark ▒=light ░=white\n")
	fmt.Fprintf(bw, "#\n")

	for y := 0; y < fb.Height(); y++ {
		for x := 0; x < fb.Width(); x++ {
			bw.WriteRune(shadeChars[shadeOf[fb.GetPixel(x, y)]])
		}
		bw.WriteByte('\n')
	}

	return errors.Wrap(bw.Flush(), "writing text snapshot")
}

// SaveText writes the text snapshot to path.
func SaveText(fb *video.FrameBuffer, path string, frame, instructions uint64) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating snapshot")
	}
	defer file.Close()

	return WriteText(file, fb, frame, instructions)
}

var shadeOf = map[video.GBColor]int{
	video.WhiteColor:     0,
	video.LightGreyColor: 1,
	video.DarkGreyColor:  2,
	video.BlackColor:     3,
}

// HalfBlocks renders the frame as text, two pixel rows per line. A full block
// is drawn where both pixels are dark, an upper or lower half block where only
// one of them is, and a space where both are light.
func HalfBlocks(fb *video.FrameBuffer) []string {
	lines := make([]string, 0, (fb.Height()+1)/2)
	for y := 0; y < fb.Height(); y += 2 {
		line := make([]rune, fb.Width())
		for x := range line {
			top := shadeOf[fb.GetPixel(x, y)] >= 2
			bottom := false
			if y+1 < fb.Height() {
				bottom = shadeOf[fb.GetPixel(x, y+1)] >= 2
			}
			switch {
			case top && bottom:
				line[x] = '█'
			case top:
				line[x] = '▀'
			case bottom:
				line[x] = '▄'
			default:
				line[x] = ' '
			}
		}
		lines = append(lines, string(line))
	}
	return lines
}
