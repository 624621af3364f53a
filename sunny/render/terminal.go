package render

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"

	"github.com/sunny-emu/sunny/sunny/memory"
	"github.com/sunny-emu/sunny/sunny/video"
)

const (
	frameTime = time.Second / 60

	// holdFrames is how long a key stays pressed after its last key event,
	// terminals only report presses and auto-repeat.
	holdFrames = 8
)

// Emulator is what the terminal renderer drives.
type Emulator interface {
	RunOneFrame()
	Framebuffer() *video.FrameBuffer
	Press(key memory.JoypadKey)
	Release(key memory.JoypadKey)
}

// TerminalRenderer plays the emulator inside a terminal. Every character cell
// shows two pixels with an upper half block, foreground on top and background below.
type TerminalRenderer struct {
	screen   tcell.Screen
	emulator Emulator

	keys    chan memory.JoypadKey
	quit    chan struct{}
	done    chan struct{}
	held    map[memory.JoypadKey]int
	palette map[video.GBColor]tcell.Color
}

func NewTerminalRenderer(emu Emulator) (*TerminalRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize terminal")
	}
	return newTerminalRenderer(emu, screen)
}

func newTerminalRenderer(emu Emulator, screen tcell.Screen) (*TerminalRenderer, error) {
	if err := screen.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize terminal")
	}

	palette := make(map[video.GBColor]tcell.Color, 4)
	for _, c := range []video.GBColor{video.WhiteColor, video.LightGreyColor, video.DarkGreyColor, video.BlackColor} {
		r, g, b, _ := c.RGBA()
		palette[c] = tcell.NewRGBColor(int32(r), int32(g), int32(b))
	}

	return &TerminalRenderer{
		screen:   screen,
		emulator: emu,
		keys:     make(chan memory.JoypadKey, 16),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		held:     make(map[memory.JoypadKey]int),
		palette:  palette,
	}, nil
}

// Run plays frames at 60Hz until Escape, Ctrl+C or a termination signal.
func (t *TerminalRenderer) Run() error {
	defer func() {
		close(t.done)
		slog.Info("Finishing terminal")
		t.screen.Fini()
	}()

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	go t.pollEvents()

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	for {
		select {
		case key := <-t.keys:
			t.press(key)
		case <-ticker.C:
			t.emulator.RunOneFrame()
			t.releaseExpired()
			t.render()
			t.screen.Show()
		case <-t.quit:
			return nil
		case <-signals:
			slog.Info("Received signal to stop")
			return nil
		}
	}
}

// pollEvents runs on its own goroutine, the emulator is only touched by Run.
func (t *TerminalRenderer) pollEvents() {
	for {
		switch ev := t.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				close(t.quit)
				return
			}
			if key, ok := joypadKey(ev); ok && !t.queueKey(key) {
				return
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

// queueKey hands a key to the Run loop, it reports false once Run has returned.
func (t *TerminalRenderer) queueKey(key memory.JoypadKey) bool {
	select {
	case t.keys <- key:
		return true
	case <-t.done:
		return false
	}
}

func joypadKey(ev *tcell.EventKey) (memory.JoypadKey, bool) {
	switch ev.Key() {
	case tcell.KeyEnter:
		return memory.JoypadStart, true
	case tcell.KeyRight:
		return memory.JoypadRight, true
	case tcell.KeyLeft:
		return memory.JoypadLeft, true
	case tcell.KeyUp:
		return memory.JoypadUp, true
	case tcell.KeyDown:
		return memory.JoypadDown, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'a':
			return memory.JoypadA, true
		case 's':
			return memory.JoypadB, true
		case 'q':
			return memory.JoypadSelect, true
		}
	}
	return 0, false
}

func (t *TerminalRenderer) press(key memory.JoypadKey) {
	if _, ok := t.held[key]; !ok {
		t.emulator.Press(key)
	}
	t.held[key] = holdFrames
}

func (t *TerminalRenderer) releaseExpired() {
	for key, frames := range t.held {
		if frames <= 1 {
			t.emulator.Release(key)
			delete(t.held, key)
			continue
		}
		t.held[key] = frames - 1
	}
}

func (t *TerminalRenderer) render() {
	fb := t.emulator.Framebuffer()

	for y := 0; y < fb.Height(); y += 2 {
		for x := 0; x < fb.Width(); x++ {
			top := t.palette[fb.GetPixel(x, y)]
			bottom := t.palette[video.WhiteColor]
			if y+1 < fb.Height() {
				bottom = t.palette[fb.GetPixel(x, y+1)]
			}
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
}
