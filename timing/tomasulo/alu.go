package tomasulo

import "github.com/TheUnknownThing/RISC-V-Simulator/insts"

// alu is the single arithmetic functional unit. It accepts one operation
// per cycle and produces a result one cycle later, with the same
// accept-now/broadcast-next-cycle contract as every other functional unit
// so that the common data bus has a consistent visibility rule.
type alu struct {
	busy bool

	pendingValid bool
	pendingTag   uint32
	pendingValue uint32

	resultValid bool
	resultTag   uint32
	resultValue uint32
}

// Busy reports whether the unit is occupied, either computing a result or
// holding one that has not yet been broadcast.
func (a *alu) Busy() bool {
	return a.busy
}

// Accept starts a new computation. The caller must check Busy first.
func (a *alu) Accept(tag uint32, value uint32) {
	a.busy = true
	a.pendingValid = true
	a.pendingTag = tag
	a.pendingValue = value
}

// Tick promotes a result computed last cycle into this cycle's broadcast
// slot.
func (a *alu) Tick() {
	if a.pendingValid {
		a.resultValid = true
		a.resultTag = a.pendingTag
		a.resultValue = a.pendingValue
		a.pendingValid = false
	}
}

// Broadcast returns this cycle's result, if any, and frees the unit.
func (a *alu) Broadcast() (tag uint32, value uint32, ok bool) {
	if !a.resultValid {
		return 0, 0, false
	}
	tag, value = a.resultTag, a.resultValue
	a.resultValid = false
	a.busy = false
	return tag, value, true
}

// Execute computes the result of an ALU reservation-station entry. pc is
// only used by AUIPC.
func Execute(op insts.Op, pc uint32, a, b uint32, imm int32) uint32 {
	switch op {
	case insts.ADD:
		return a + b
	case insts.SUB:
		return a - b
	case insts.SLL:
		return a << (b & 0x1f)
	case insts.SLT:
		return boolToWord(int32(a) < int32(b))
	case insts.SLTU:
		return boolToWord(a < b)
	case insts.XOR:
		return a ^ b
	case insts.SRL:
		return a >> (b & 0x1f)
	case insts.SRA:
		return uint32(int32(a) >> (b & 0x1f))
	case insts.OR:
		return a | b
	case insts.AND:
		return a & b

	case insts.ADDI:
		return uint32(int32(a) + imm)
	case insts.SLTI:
		return boolToWord(int32(a) < imm)
	case insts.SLTIU:
		return boolToWord(a < uint32(imm))
	case insts.XORI:
		return a ^ uint32(imm)
	case insts.ORI:
		return a | uint32(imm)
	case insts.ANDI:
		return a & uint32(imm)
	case insts.SLLI:
		return a << uint32(imm&0x1f)
	case insts.SRLI:
		return a >> uint32(imm&0x1f)
	case insts.SRAI:
		return uint32(int32(a) >> uint32(imm&0x1f))

	case insts.LUI:
		return uint32(imm)
	case insts.AUIPC:
		return pc + uint32(imm)

	default:
		return 0
	}
}

func boolToWord(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
