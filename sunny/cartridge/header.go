package cartridge

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/sunny-emu/sunny/sunny/bit"
)

const (
	entryPointAddress       = 0x100
	logoAddress             = 0x104
	titleAddress            = 0x134
	manufacturerCodeAddress = 0x13F
	cgbFlagAddress          = 0x143
	newLicenseCodeAddress   = 0x144
	sgbFlagAddress          = 0x146
	cartridgeTypeAddress    = 0x147
	romSizeAddress          = 0x148
	ramSizeAddress          = 0x149
	destinationCodeAddress  = 0x14A
	oldLicenseCodeAddress   = 0x14B
	versionNumberAddress    = 0x14C
	headerChecksumAddress   = 0x14D
	globalChecksumAddress   = 0x14E

	headerEnd = 0x150

	// RomBankSize is the size of a switchable ROM window.
	RomBankSize = 0x4000
	// RamBankSize is the size of a switchable external RAM window.
	RamBankSize = 0x2000
)

var (
	// ErrROMTooSmall is returned when the buffer cannot even hold a header.
	ErrROMTooSmall = errors.New("rom too small to contain a header")
	// ErrUnsupportedMapper is returned for cartridge types without a bank controller implementation.
	ErrUnsupportedMapper = errors.New("unsupported cartridge type")
	// ErrHeaderChecksum is returned in strict mode when 0x14D does not match the header bytes.
	ErrHeaderChecksum = errors.New("header checksum mismatch")
	// ErrBadSizeCode is returned for ROM or RAM size codes outside the known tables.
	ErrBadSizeCode = errors.New("invalid size code")
)

// Mapper identifies the bank controller algorithm.
type Mapper uint8

const (
	MapperNone Mapper = iota
	MapperMBC1
	MapperMBC2
	MapperMBC3
	MapperMBC5
)

func (m Mapper) String() string {
	switch m {
	case MapperNone:
		return "ROM"
	case MapperMBC1:
		return "MBC1"
	case MapperMBC2:
		return "MBC2"
	case MapperMBC3:
		return "MBC3"
	case MapperMBC5:
		return "MBC5"
	}
	return "unknown"
}

// cartType describes what the byte at 0x147 implies.
type cartType struct {
	mapper  Mapper
	ram     bool
	battery bool
	rtc     bool
	rumble  bool
}

var cartTypes = map[byte]cartType{
	0x00: {mapper: MapperNone},
	0x01: {mapper: MapperMBC1},
	0x02: {mapper: MapperMBC1, ram: true},
	0x03: {mapper: MapperMBC1, ram: true, battery: true},
	0x05: {mapper: MapperMBC2},
	0x06: {mapper: MapperMBC2, battery: true},
	0x08: {mapper: MapperNone, ram: true},
	0x09: {mapper: MapperNone, ram: true, battery: true},
	0x0F: {mapper: MapperMBC3, rtc: true, battery: true},
	0x10: {mapper: MapperMBC3, rtc: true, ram: true, battery: true},
	0x11: {mapper: MapperMBC3},
	0x12: {mapper: MapperMBC3, ram: true},
	0x13: {mapper: MapperMBC3, ram: true, battery: true},
	0x19: {mapper: MapperMBC5},
	0x1A: {mapper: MapperMBC5, ram: true},
	0x1B: {mapper: MapperMBC5, ram: true, battery: true},
	0x1C: {mapper: MapperMBC5, rumble: true},
	0x1D: {mapper: MapperMBC5, rumble: true, ram: true},
	0x1E: {mapper: MapperMBC5, rumble: true, ram: true, battery: true},
}

// ramSizes maps the 0x149 code to a byte count.
var ramSizes = map[byte]int{
	0x00: 0,
	0x01: 0x800,
	0x02: 0x2000,
	0x03: 0x8000,
	0x04: 0x20000,
	0x05: 0x10000,
}

// Header is the parsed cartridge header found at 0x100-0x14F.
type Header struct {
	Title            string
	ManufacturerCode string
	CGBFlag          byte
	SGB              bool
	Type             byte
	Mapper           Mapper
	HasRAM           bool
	HasBattery       bool
	HasRTC           bool
	HasRumble        bool
	ROMSizeCode      byte
	RAMSizeCode      byte
	ROMBanks         int
	RAMSize          int
	Japanese         bool
	Licensee         string
	Version          byte
	HeaderChecksum   byte
	GlobalChecksum   uint16

	computedChecksum byte
}

// ParseHeader decodes the header of a ROM image. It fails on images that are too
// short, unknown mapper types and unknown size codes.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerEnd {
		return nil, errors.Wrapf(ErrROMTooSmall, "got %d bytes", len(rom))
	}

	h := &Header{
		CGBFlag:        rom[cgbFlagAddress],
		SGB:            rom[sgbFlagAddress] == 0x03,
		Type:           rom[cartridgeTypeAddress],
		ROMSizeCode:    rom[romSizeAddress],
		RAMSizeCode:    rom[ramSizeAddress],
		Japanese:       rom[destinationCodeAddress] == 0x00,
		Version:        rom[versionNumberAddress],
		HeaderChecksum: rom[headerChecksumAddress],
		GlobalChecksum: bit.Combine(rom[globalChecksumAddress], rom[globalChecksumAddress+1]),
	}

	titleEnd := cgbFlagAddress + 1
	if bit.IsSet(7, h.CGBFlag) {
		// newer carts reuse the tail of the title for the manufacturer code and CGB flag
		titleEnd = cgbFlagAddress
		h.ManufacturerCode = strings.TrimRight(string(rom[manufacturerCodeAddress:cgbFlagAddress]), "\x00")
	}
	h.Title = cleanTitle(rom[titleAddress:titleEnd])

	if old := rom[oldLicenseCodeAddress]; old == 0x33 {
		h.Licensee = string(rom[newLicenseCodeAddress : newLicenseCodeAddress+2])
	} else {
		h.Licensee = fmt.Sprintf("%02X", old)
	}

	ct, ok := cartTypes[h.Type]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedMapper, "type byte 0x%02X", h.Type)
	}
	h.Mapper = ct.mapper
	h.HasRAM = ct.ram
	h.HasBattery = ct.battery
	h.HasRTC = ct.rtc
	h.HasRumble = ct.rumble

	banks, err := romBanks(h.ROMSizeCode)
	if err != nil {
		return nil, err
	}
	h.ROMBanks = banks

	size, ok := ramSizes[h.RAMSizeCode]
	if !ok {
		return nil, errors.Wrapf(ErrBadSizeCode, "ram size code 0x%02X", h.RAMSizeCode)
	}
	if ct.ram {
		h.RAMSize = size
	}

	h.computedChecksum = headerChecksum(rom)

	return h, nil
}

func romBanks(code byte) (int, error) {
	switch {
	case code <= 0x08:
		return 2 << code, nil
	case code == 0x52:
		return 72, nil
	case code == 0x53:
		return 80, nil
	case code == 0x54:
		return 96, nil
	}
	return 0, errors.Wrapf(ErrBadSizeCode, "rom size code 0x%02X", code)
}

func headerChecksum(rom []byte) byte {
	var x byte
	for _, b := range rom[titleAddress:headerChecksumAddress] {
		x = x - b - 1
	}
	return x
}

// Valid reports whether the header checksum matches the header bytes.
func (h *Header) Valid() bool {
	return h.computedChecksum == h.HeaderChecksum
}

// ROMSize returns the declared ROM size in bytes.
func (h *Header) ROMSize() int {
	return h.ROMBanks * RomBankSize
}

func (h *Header) String() string {
	return fmt.Sprintf("%q %s rom=%dKiB ram=%dKiB", h.Title, h.Mapper, h.ROMSize()/1024, h.RAMSize/1024)
}

// cleanTitle turns the raw title bytes into a printable string, stopping at
// the first NUL and replacing anything non printable.
func cleanTitle(raw []byte) string {
	runes := make([]rune, 0, len(raw))
	for _, b := range raw {
		if b == 0 {
			break
		}
		r := rune(b)
		if !unicode.IsPrint(r) || r > unicode.MaxASCII {
			r = '?'
		}
		runes = append(runes, r)
	}

	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(Untitled)"
	}
	return title
}
