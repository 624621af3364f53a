package cartridge

// Synthesize builds a blank ROM image with a well formed header: the given
// type and size codes, a title, and a correct header checksum. Every ROM bank
// is filled with its own bank number from 0x150 onward (bank 0 from 0x4000),
// so bank switching can be observed. Program bytes can be copied in at 0x100
// or 0x150 afterwards, call FixChecksum if the header is changed.
func Synthesize(title string, cartType, romSizeCode, ramSizeCode byte) []byte {
	banks, err := romBanks(romSizeCode)
	if err != nil {
		banks = 2
	}

	rom := make([]byte, banks*RomBankSize)
	for b := 1; b < banks; b++ {
		for i := 0; i < RomBankSize; i++ {
			rom[b*RomBankSize+i] = byte(b)
		}
	}

	copy(rom[titleAddress:cgbFlagAddress], title)
	rom[cartridgeTypeAddress] = cartType
	rom[romSizeAddress] = romSizeCode
	rom[ramSizeAddress] = ramSizeCode
	rom[destinationCodeAddress] = 0x01
	FixChecksum(rom)

	return rom
}

// FixChecksum recomputes the header checksum byte in place.
func FixChecksum(rom []byte) {
	rom[headerChecksumAddress] = headerChecksum(rom)
}
