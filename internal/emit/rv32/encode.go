package rv32

import "fmt"

// Base opcodes of the RV32I map plus the M and A extensions.
const (
	opLOAD  = 0x03
	opOPIMM = 0x13
	opAUIPC = 0x17
	opSTORE = 0x23
	opAMO   = 0x2f
	opOP    = 0x33
	opLUI   = 0x37
	opJALR  = 0x67
)

func encodeR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return (funct7 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

func encodeI(imm int32, rs1, funct3, rd, opcode uint32) (uint32, error) {
	if imm < -2048 || imm > 2047 {
		return 0, fmt.Errorf("immediate %d out of range for I-type", imm)
	}
	uimm := uint32(imm) & 0xfff
	return (uimm << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode, nil
}

func encodeS(imm int32, rs1, rs2, funct3, opcode uint32) (uint32, error) {
	if imm < -2048 || imm > 2047 {
		return 0, fmt.Errorf("immediate %d out of range for S-type", imm)
	}
	uimm := uint32(imm) & 0xfff
	immHi := (uimm >> 5) & 0x7f
	immLo := uimm & 0x1f
	return (immHi << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (immLo << 7) | opcode, nil
}

func encodeU(imm int32, rd, opcode uint32) uint32 {
	return ((uint32(imm) & 0xfffff) << 12) | (rd << 7) | opcode
}
