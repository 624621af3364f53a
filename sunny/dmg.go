// Package sunny wires the Game Boy components together and drives them one
// frame at a time.
package sunny

import (
	"io"
	"log/slog"

	"github.com/cespare/xxhash"
	"github.com/pkg/errors"

	"github.com/sunny-emu/sunny/sunny/audio"
	"github.com/sunny-emu/sunny/sunny/cartridge"
	"github.com/sunny-emu/sunny/sunny/cpu"
	"github.com/sunny-emu/sunny/sunny/interrupt"
	"github.com/sunny-emu/sunny/sunny/memory"
	"github.com/sunny-emu/sunny/sunny/rom"
	"github.com/sunny-emu/sunny/sunny/serial"
	"github.com/sunny-emu/sunny/sunny/timer"
	"github.com/sunny-emu/sunny/sunny/video"
)

// ErrBootROMSize is returned when the boot ROM image is not 256 bytes.
var ErrBootROMSize = memory.ErrBootROMSize

const (
	// CyclesPerFrame is the number of T-cycles in one video frame.
	CyclesPerFrame = video.DotsPerFrame

	// post-boot internal divider, DIV reads 0xAB
	postBootDivider uint16 = 0xABCC
)

type config struct {
	bootROM      []byte
	logger       *slog.Logger
	serialWriter io.Writer
	strict       bool
	trace        bool
	clock        cartridge.Clock
}

type Option func(*config)

// WithBootROM runs the given 256 byte boot ROM at reset instead of starting
// from the post-boot state.
func WithBootROM(rom []byte) Option { return func(c *config) { c.bootROM = rom } }

func WithLogger(logger *slog.Logger) Option { return func(c *config) { c.logger = logger } }

// WithSerialWriter mirrors every byte sent over the link port to w.
func WithSerialWriter(w io.Writer) Option { return func(c *config) { c.serialWriter = w } }

// WithStrictHeader refuses cartridges whose header checksum does not match.
func WithStrictHeader() Option { return func(c *config) { c.strict = true } }

// WithTrace logs every executed instruction at debug level.
func WithTrace() Option { return func(c *config) { c.trace = true } }

// WithClock sets the time source of MBC3 real time clocks.
func WithClock(clock cartridge.Clock) Option { return func(c *config) { c.clock = clock } }

// DMG is the complete system.
type DMG struct {
	cpu    *cpu.CPU
	ppu    *video.PPU
	mmu    *memory.MMU
	timer  *timer.Timer
	audio  *audio.Registers
	serial *serial.LogSink
	irq    *interrupt.Controller
	cart   *cartridge.Cartridge

	logger  *slog.Logger
	hasBoot bool

	// overshoot is how far the last frame ran past its cycle budget,
	// an instruction is never split across frames.
	overshoot    int
	frames       uint64
	instructions uint64
}

// New builds a system around the given ROM image and resets it.
func New(romData []byte, opts ...Option) (*DMG, error) {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var cartOpts []cartridge.Option
	if cfg.strict {
		cartOpts = append(cartOpts, cartridge.Strict())
	}
	if cfg.clock != nil {
		cartOpts = append(cartOpts, cartridge.WithClock(cfg.clock))
	}
	cart, err := cartridge.New(romData, cartOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading cartridge")
	}

	d := &DMG{
		irq:    interrupt.New(),
		cart:   cart,
		logger: cfg.logger,
		audio:  audio.New(),
	}
	d.ppu = video.New(d.irq)
	d.timer = timer.New(d.irq)

	serialOpts := []serial.Option{serial.WithLogger(cfg.logger)}
	if cfg.serialWriter != nil {
		serialOpts = append(serialOpts, serial.WithWriter(cfg.serialWriter))
	}
	d.serial = serial.NewLogSink(d.irq, serialOpts...)

	d.mmu = memory.New(memory.Devices{
		Cartridge: cart,
		PPU:       d.ppu,
		Timer:     d.timer,
		Interrupt: d.irq,
		Serial:    d.serial,
		Audio:     d.audio,
	})
	if cfg.bootROM != nil {
		if err := d.mmu.SetBootROM(cfg.bootROM); err != nil {
			return nil, err
		}
		d.hasBoot = true
	}

	d.cpu = cpu.New(d.mmu, d.irq)
	d.cpu.SetTrace(cfg.trace)

	header := cart.Header
	d.logger.Info("Cartridge loaded",
		"title", header.Title,
		"type", header.Mapper.String(),
		"rom_banks", header.ROMBanks,
		"ram_size", header.RAMSize,
		"battery", cart.HasBattery())

	d.Reset()
	return d, nil
}

// NewWithFile loads a ROM, possibly from an archive, and builds a system around it.
func NewWithFile(path string, opts ...Option) (*DMG, error) {
	data, err := rom.Load(path)
	if err != nil {
		return nil, err
	}
	return New(data, opts...)
}

// Reset puts every component back in its initial state. With a boot ROM the
// system powers on cleared and runs it, otherwise it starts from the state the
// boot ROM would have left.
func (d *DMG) Reset() {
	d.irq.Reset()
	d.mmu.Reset()
	d.timer.Reset()
	d.overshoot = 0
	d.frames = 0
	d.instructions = 0

	if d.hasBoot {
		d.cpu.PowerOn()
		d.ppu.PowerOn()
		d.audio.PowerOn()
		return
	}

	d.cpu.Reset()
	d.ppu.Reset()
	d.audio.Reset()
	d.timer.SetCounter(postBootDivider)
	d.irq.Requested = interrupt.VBlank.Mask()
}

// Step runs one CPU instruction and advances the rest of the system by the
// same number of T-cycles.
func (d *DMG) Step() int {
	cycles := d.cpu.Step()
	d.mmu.Step(cycles)
	d.ppu.Step(cycles)
	d.instructions++
	return cycles
}

// RunOneFrame runs the system for one frame worth of T-cycles. Cycles spent
// past the end of a frame are taken off the next one, so frames average out
// to exactly 70224 cycles.
func (d *DMG) RunOneFrame() {
	budget := CyclesPerFrame - d.overshoot
	spent := 0
	for spent < budget {
		spent += d.Step()
	}
	d.overshoot = spent - budget
	d.frames++
}

// RunUntilFrame runs until the PPU completes a frame, or one frame worth of
// cycles with the LCD off.
func (d *DMG) RunUntilFrame() {
	start := d.ppu.Frames()
	spent := 0
	for d.ppu.Frames() == start && spent < CyclesPerFrame {
		spent += d.Step()
	}
	d.frames++
}

// Framebuffer returns the last completed frame.
func (d *DMG) Framebuffer() *video.FrameBuffer {
	return d.ppu.Framebuffer()
}

// FrameHash returns a digest of the last completed frame.
func (d *DMG) FrameHash() uint64 {
	return xxhash.Sum64(d.ppu.Framebuffer().Bytes())
}

// Press holds a joypad key.
func (d *DMG) Press(key memory.JoypadKey) {
	d.mmu.Press(key)
}

// Release lets go of a joypad key.
func (d *DMG) Release(key memory.JoypadKey) {
	d.mmu.Release(key)
}

// CPUState returns a snapshot of the CPU registers and flags.
func (d *DMG) CPUState() cpu.State {
	return d.cpu.State()
}

// Read reads memory as the CPU would see it.
func (d *DMG) Read(address uint16) uint8 {
	return d.mmu.Read(address)
}

func (d *DMG) Cartridge() *cartridge.Cartridge { return d.cart }

func (d *DMG) PPU() *video.PPU { return d.ppu }

// SerialOutput returns everything written to the link port since reset.
func (d *DMG) SerialOutput() string {
	return d.serial.Output()
}

// Frames returns how many frames were run since reset.
func (d *DMG) Frames() uint64 { return d.frames }

// Instructions returns how many CPU steps were run since reset.
func (d *DMG) Instructions() uint64 { return d.instructions }

// Cycles returns the total T-cycles executed by the CPU since reset.
func (d *DMG) Cycles() uint64 { return d.cpu.State().Cycles }
