package insts

// Decoder decodes RV32I machine words into Instructions.
type Decoder struct{}

// NewDecoder returns a ready-to-use decoder. RV32I decoding is stateless.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode classifies and extracts the operands of a 32-bit RISC-V word.
// Unrecognized opcode/funct3/funct7 combinations decode to Invalid.
func (d *Decoder) Decode(word uint32) Instruction {
	opcode := word & 0x7f
	rd := uint8((word >> 7) & 0x1f)
	funct3 := (word >> 12) & 0x7
	rs1 := uint8((word >> 15) & 0x1f)
	rs2 := uint8((word >> 20) & 0x1f)
	funct7 := (word >> 25) & 0x7f

	switch opcode {
	case 0x33: // R-type
		op := decodeRType(funct3, funct7)
		if op == Invalid {
			break
		}
		return Instruction{Op: op, Format: FormatR, Rd: rd, Rs1: rs1, Rs2: rs2, Raw: word}

	case 0x13: // I-type arithmetic
		op, imm := decodeIArith(word, funct3)
		if op == Invalid {
			break
		}
		return Instruction{Op: op, Format: FormatI, Rd: rd, Rs1: rs1, Imm: imm, Raw: word}

	case 0x03: // loads
		op := decodeLoad(funct3)
		if op == Invalid {
			break
		}
		return Instruction{Op: op, Format: FormatI, Rd: rd, Rs1: rs1, Imm: signExtend(word>>20, 12), Raw: word}

	case 0x23: // stores
		op := decodeStore(funct3)
		if op == Invalid {
			break
		}
		imm := (word>>25)<<5 | (word>>7)&0x1f
		return Instruction{Op: op, Format: FormatS, Rs1: rs1, Rs2: rs2, Imm: signExtend(imm, 12), Raw: word}

	case 0x63: // branches
		op := decodeBranch(funct3)
		if op == Invalid {
			break
		}
		imm := decodeBImm(word)
		return Instruction{Op: op, Format: FormatB, Rs1: rs1, Rs2: rs2, Imm: imm, Raw: word}

	case 0x37: // LUI
		return Instruction{Op: LUI, Format: FormatU, Rd: rd, Imm: int32(word & 0xfffff000), Raw: word}

	case 0x17: // AUIPC
		return Instruction{Op: AUIPC, Format: FormatU, Rd: rd, Imm: int32(word & 0xfffff000), Raw: word}

	case 0x6f: // JAL
		imm := decodeJImm(word)
		return Instruction{Op: JAL, Format: FormatJ, Rd: rd, Imm: imm, Raw: word}

	case 0x67: // JALR
		if funct3 != 0 {
			break
		}
		return Instruction{Op: JALR, Format: FormatI, Rd: rd, Rs1: rs1, Imm: signExtend(word>>20, 12), Raw: word}
	}

	return Instruction{Op: Invalid, Format: FormatInvalid, Raw: word}
}

func decodeRType(funct3, funct7 uint32) Op {
	if funct7 != 0x00 && !(funct7 == 0x20 && (funct3 == 0x0 || funct3 == 0x5)) {
		return Invalid
	}
	switch funct3 {
	case 0x0:
		if funct7 == 0x20 {
			return SUB
		}
		return ADD
	case 0x1:
		return SLL
	case 0x2:
		return SLT
	case 0x3:
		return SLTU
	case 0x4:
		return XOR
	case 0x5:
		if funct7 == 0x20 {
			return SRA
		}
		return SRL
	case 0x6:
		return OR
	case 0x7:
		return AND
	}
	return Invalid
}

func decodeIArith(word, funct3 uint32) (Op, int32) {
	switch funct3 {
	case 0x0:
		return ADDI, signExtend(word>>20, 12)
	case 0x2:
		return SLTI, signExtend(word>>20, 12)
	case 0x3:
		return SLTIU, signExtend(word>>20, 12)
	case 0x4:
		return XORI, signExtend(word>>20, 12)
	case 0x6:
		return ORI, signExtend(word>>20, 12)
	case 0x7:
		return ANDI, signExtend(word>>20, 12)
	case 0x1:
		shamt := int32((word >> 20) & 0x1f)
		if (word>>25)&0x7f != 0x00 {
			return Invalid, 0
		}
		return SLLI, shamt
	case 0x5:
		shamt := int32((word >> 20) & 0x1f)
		switch (word >> 25) & 0x7f {
		case 0x20:
			return SRAI, shamt
		case 0x00:
			return SRLI, shamt
		}
		return Invalid, 0
	}
	return Invalid, 0
}

func decodeLoad(funct3 uint32) Op {
	switch funct3 {
	case 0x0:
		return LB
	case 0x1:
		return LH
	case 0x2:
		return LW
	case 0x4:
		return LBU
	case 0x5:
		return LHU
	}
	return Invalid
}

func decodeStore(funct3 uint32) Op {
	switch funct3 {
	case 0x0:
		return SB
	case 0x1:
		return SH
	case 0x2:
		return SW
	}
	return Invalid
}

func decodeBranch(funct3 uint32) Op {
	switch funct3 {
	case 0x0:
		return BEQ
	case 0x1:
		return BNE
	case 0x4:
		return BLT
	case 0x5:
		return BGE
	case 0x6:
		return BLTU
	case 0x7:
		return BGEU
	}
	return Invalid
}

// decodeBImm reassembles a B-type immediate from its scrambled bit layout:
// imm[12|10:5|4:1|11] occupies bits [31|30:25|11:8|7] of the word.
func decodeBImm(word uint32) int32 {
	imm := ((word >> 31) & 0x1) << 12
	imm |= ((word >> 7) & 0x1) << 11
	imm |= ((word >> 25) & 0x3f) << 5
	imm |= ((word >> 8) & 0xf) << 1
	return signExtend(imm, 13)
}

// decodeJImm reassembles a J-type immediate from its scrambled bit layout:
// imm[20|10:1|11|19:12] occupies bits [31|30:21|20|19:12] of the word.
func decodeJImm(word uint32) int32 {
	imm := ((word >> 31) & 0x1) << 20
	imm |= ((word >> 12) & 0xff) << 12
	imm |= ((word >> 20) & 0x1) << 11
	imm |= ((word >> 21) & 0x3ff) << 1
	return signExtend(imm, 21)
}

// signExtend sign-extends the low `bits` bits of value to a full int32.
func signExtend(value uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}
