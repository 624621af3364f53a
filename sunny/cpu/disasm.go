package cpu

import "fmt"

var (
	r8Names   = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	rpNames   = [4]string{"BC", "DE", "HL", "SP"}
	rp2Names  = [4]string{"BC", "DE", "HL", "AF"}
	ccNames   = [4]string{"NZ", "Z", "NC", "C"}
	aluNames  = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
	rotNames  = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}
	accNames  = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
	indirects = [4]string{"(BC)", "(DE)", "(HL+)", "(HL-)"}
)

// Disassemble decodes the instruction at pc using read to access memory. It
// returns the mnemonic and the instruction length in bytes.
func Disassemble(read func(uint16) uint8, pc uint16) (string, int) {
	opcode := read(pc)
	n := read(pc + 1)
	nn := uint16(read(pc+2))<<8 | uint16(n)

	if opcode == 0xCB {
		f := decode(n)
		switch f.x {
		case 0:
			return fmt.Sprintf("%s %s", rotNames[f.y], r8Names[f.z]), 2
		case 1:
			return fmt.Sprintf("BIT %d,%s", f.y, r8Names[f.z]), 2
		case 2:
			return fmt.Sprintf("RES %d,%s", f.y, r8Names[f.z]), 2
		}
		return fmt.Sprintf("SET %d,%s", f.y, r8Names[f.z]), 2
	}

	f := decode(opcode)
	relative := pc + 2 + uint16(int8(n))

	switch f.x {
	case 0:
		switch f.z {
		case 0:
			switch f.y {
			case 0:
				return "NOP", 1
			case 1:
				return fmt.Sprintf("LD ($%04X),SP", nn), 3
			case 2:
				return "STOP", 2
			case 3:
				return fmt.Sprintf("JR $%04X", relative), 2
			}
			return fmt.Sprintf("JR %s,$%04X", ccNames[f.y-4], relative), 2
		case 1:
			if f.q == 0 {
				return fmt.Sprintf("LD %s,$%04X", rpNames[f.p], nn), 3
			}
			return fmt.Sprintf("ADD HL,%s", rpNames[f.p]), 1
		case 2:
			if f.q == 0 {
				return fmt.Sprintf("LD %s,A", indirects[f.p]), 1
			}
			return fmt.Sprintf("LD A,%s", indirects[f.p]), 1
		case 3:
			if f.q == 0 {
				return "INC " + rpNames[f.p], 1
			}
			return "DEC " + rpNames[f.p], 1
		case 4:
			return "INC " + r8Names[f.y], 1
		case 5:
			return "DEC " + r8Names[f.y], 1
		case 6:
			return fmt.Sprintf("LD %s,$%02X", r8Names[f.y], n), 2
		}
		return accNames[f.y], 1

	case 1:
		if f.y == regHLIndirect && f.z == regHLIndirect {
			return "HALT", 1
		}
		return fmt.Sprintf("LD %s,%s", r8Names[f.y], r8Names[f.z]), 1

	case 2:
		return aluNames[f.y] + r8Names[f.z], 1
	}

	switch f.z {
	case 0:
		switch f.y {
		case 4:
			return fmt.Sprintf("LDH ($FF%02X),A", n), 2
		case 5:
			return fmt.Sprintf("ADD SP,%d", int8(n)), 2
		case 6:
			return fmt.Sprintf("LDH A,($FF%02X)", n), 2
		case 7:
			return fmt.Sprintf("LD HL,SP%+d", int8(n)), 2
		}
		return "RET " + ccNames[f.y], 1
	case 1:
		if f.q == 0 {
			return "POP " + rp2Names[f.p], 1
		}
		return [4]string{"RET", "RETI", "JP HL", "LD SP,HL"}[f.p], 1
	case 2:
		switch f.y {
		case 4:
			return "LD ($FF00+C),A", 1
		case 5:
			return fmt.Sprintf("LD ($%04X),A", nn), 3
		case 6:
			return "LD A,($FF00+C)", 1
		case 7:
			return fmt.Sprintf("LD A,($%04X)", nn), 3
		}
		return fmt.Sprintf("JP %s,$%04X", ccNames[f.y], nn), 3
	case 3:
		switch f.y {
		case 0:
			return fmt.Sprintf("JP $%04X", nn), 3
		case 6:
			return "DI", 1
		case 7:
			return "EI", 1
		}
	case 4:
		if f.y < 4 {
			return fmt.Sprintf("CALL %s,$%04X", ccNames[f.y], nn), 3
		}
	case 5:
		if f.q == 0 {
			return "PUSH " + rp2Names[f.p], 1
		}
		if f.p == 0 {
			return fmt.Sprintf("CALL $%04X", nn), 3
		}
	case 6:
		return fmt.Sprintf("%s$%02X", aluNames[f.y], n), 2
	case 7:
		return fmt.Sprintf("RST $%02X", f.y*8), 1
	}

	return fmt.Sprintf("DB $%02X", opcode), 1
}
