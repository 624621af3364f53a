package cartridge

import (
	"log/slog"

	"github.com/pkg/errors"
)

// Cartridge couples the parsed header with the bank controller serving the
// ROM and external RAM address ranges.
type Cartridge struct {
	Header *Header
	mbc    MBC
}

type config struct {
	strict bool
	clock  Clock
}

// Option configures cartridge construction.
type Option func(*config)

// Strict turns a header checksum mismatch into an error instead of a warning.
func Strict() Option {
	return func(c *config) { c.strict = true }
}

// WithClock sets the time source of MBC3 real time clocks.
func WithClock(clock Clock) Option {
	return func(c *config) { c.clock = clock }
}

// New parses the header of rom and builds the matching bank controller.
// Unsupported mappers and malformed headers fail here, before anything runs.
func New(rom []byte, opts ...Option) (*Cartridge, error) {
	cfg := config{clock: SystemClock}
	for _, opt := range opts {
		opt(&cfg)
	}

	header, err := ParseHeader(rom)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse cartridge header")
	}

	if !header.Valid() {
		if cfg.strict {
			return nil, errors.Wrapf(ErrHeaderChecksum, "expected 0x%02X, computed 0x%02X", header.HeaderChecksum, header.computedChecksum)
		}
		slog.Warn("Cartridge header checksum mismatch", "title", header.Title)
	}

	data := make([]byte, max(len(rom), header.ROMSize()))
	copy(data, rom)
	if len(rom) < header.ROMSize() {
		slog.Warn("ROM image shorter than declared size, padding", "size", len(rom), "declared", header.ROMSize())
		for i := len(rom); i < len(data); i++ {
			data[i] = 0xFF
		}
	}

	c := &Cartridge{Header: header}

	switch header.Mapper {
	case MapperNone:
		c.mbc = NewNoMBC(data, header.RAMSize)
	case MapperMBC1:
		c.mbc = NewMBC1(data, header.RAMSize)
	case MapperMBC2:
		c.mbc = NewMBC2(data)
	case MapperMBC3:
		var clock Clock
		if header.HasRTC {
			clock = cfg.clock
		}
		c.mbc = NewMBC3(data, header.RAMSize, clock)
	case MapperMBC5:
		c.mbc = NewMBC5(data, header.RAMSize, header.HasRumble)
	default:
		return nil, errors.Wrapf(ErrUnsupportedMapper, "mapper %s", header.Mapper)
	}

	return c, nil
}

// Read reads from the ROM range 0x0000-0x7FFF.
func (c *Cartridge) Read(addr uint16) uint8 {
	return c.mbc.Read(addr)
}

// Write programs the bank controller registers mapped in the ROM range.
func (c *Cartridge) Write(addr uint16, value uint8) {
	c.mbc.Write(addr, value)
}

// ReadSRAM reads from external RAM, 0xA000-0xBFFF.
func (c *Cartridge) ReadSRAM(addr uint16) uint8 {
	return c.mbc.ReadSRAM(addr)
}

// WriteSRAM writes to external RAM, 0xA000-0xBFFF.
func (c *Cartridge) WriteSRAM(addr uint16, value uint8) {
	c.mbc.WriteSRAM(addr, value)
}

// MBC returns the underlying bank controller.
func (c *Cartridge) MBC() MBC {
	return c.mbc
}

// HasBattery reports whether the external RAM is meant to survive power off.
func (c *Cartridge) HasBattery() bool {
	_, ok := c.mbc.(Battery)
	return ok && c.Header.HasBattery
}

// SaveRAM returns a copy of the battery backed RAM, nil if the cart has none.
func (c *Cartridge) SaveRAM() []byte {
	if !c.HasBattery() {
		return nil
	}
	ram := c.mbc.(Battery).RAM()
	out := make([]byte, len(ram))
	copy(out, ram)
	return out
}

// LoadRAM restores battery backed RAM previously returned by SaveRAM.
func (c *Cartridge) LoadRAM(data []byte) error {
	if !c.HasBattery() {
		return errors.Errorf("cartridge %q has no battery backed RAM", c.Header.Title)
	}
	ram := c.mbc.(Battery).RAM()
	if len(data) != len(ram) {
		return errors.Errorf("save size mismatch: got %d bytes, want %d", len(data), len(ram))
	}
	c.mbc.(Battery).LoadRAM(data)
	return nil
}
