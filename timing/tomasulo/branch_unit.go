package tomasulo

import "github.com/TheUnknownThing/RISC-V-Simulator/insts"

// branchResolution is what the branch unit produces once it evaluates a
// branch or jump: whether control flow is actually taken and to where, and
// the link value for JAL/JALR.
type branchResolution struct {
	Tag       uint32
	HasLink   bool
	LinkValue uint32
	Taken     bool
	Target    uint32
}

// branchUnit resolves B-type branches and JAL/JALR, with the same
// accept-now/broadcast-next-cycle contract as the ALU.
type branchUnit struct {
	busy bool

	pendingValid bool
	pending      branchResolution

	resultValid bool
	result      branchResolution
}

func (u *branchUnit) Busy() bool { return u.busy }

func (u *branchUnit) Accept(r branchResolution) {
	u.busy = true
	u.pendingValid = true
	u.pending = r
}

func (u *branchUnit) Tick() {
	if u.pendingValid {
		u.resultValid = true
		u.result = u.pending
		u.pendingValid = false
	}
}

func (u *branchUnit) Broadcast() (branchResolution, bool) {
	if !u.resultValid {
		return branchResolution{}, false
	}
	r := u.result
	u.resultValid = false
	u.busy = false
	return r, true
}

// ResolveBranch computes the actual taken/target/link of a branch or jump
// given its resolved operand values.
func ResolveBranch(op insts.Op, pc uint32, rs1, rs2 uint32, imm int32) (taken bool, target uint32, linkValue uint32) {
	switch op {
	case insts.JAL:
		return true, uint32(int32(pc) + imm), pc + 4
	case insts.JALR:
		return true, (rs1 + uint32(imm)) &^ 1, pc + 4
	default:
		taken = EvaluateBranch(op, rs1, rs2)
		if taken {
			return true, uint32(int32(pc) + imm), 0
		}
		return false, pc + 4, 0
	}
}
