// Package emu provides the architectural register file and main memory used
// by the timing model. It holds no timing behavior of its own — it is the
// functional substrate that timing/tomasulo reads and writes.
package emu

// NoTag marks a register as holding a committed value rather than waiting
// on a reorder buffer entry. Reorder buffer ids are small and dense, so the
// maximum uint32 is never a legitimate id.
const NoTag uint32 = ^uint32(0)

// RegisterFile holds the 32 RV32I general-purpose registers plus, for each
// register, the reorder buffer id it is currently renamed to (NoTag if the
// register holds a committed value). x0 is hardwired to zero: writes to it
// are dropped and it is never renamed.
type RegisterFile struct {
	reg [32]uint32
	tag [32]uint32
}

// NewRegisterFile returns a register file with all registers zeroed and
// untagged.
func NewRegisterFile() *RegisterFile {
	rf := &RegisterFile{}
	rf.Reset()
	return rf
}

// Reset clears all registers to zero and all tags to NoTag.
func (rf *RegisterFile) Reset() {
	for i := range rf.reg {
		rf.reg[i] = 0
		rf.tag[i] = NoTag
	}
}

// Read returns the committed value of a register. x0 always reads 0.
func (rf *RegisterFile) Read(reg uint8) uint32 {
	if reg == 0 {
		return 0
	}
	return rf.reg[reg]
}

// Write sets the committed value of a register. Writes to x0 are ignored.
func (rf *RegisterFile) Write(reg uint8, value uint32) {
	if reg == 0 {
		return
	}
	rf.reg[reg] = value
}

// Tag returns the reorder buffer id a register is renamed to, or NoTag if
// the register is not waiting on a producer.
func (rf *RegisterFile) Tag(reg uint8) uint32 {
	if reg == 0 {
		return NoTag
	}
	return rf.tag[reg]
}

// SetTag renames a register to wait on the given reorder buffer id. Setting
// a tag on x0 is a no-op: x0 is never renamed.
func (rf *RegisterFile) SetTag(reg uint8, tag uint32) {
	if reg == 0 {
		return
	}
	rf.tag[reg] = tag
}

// ClearTag releases a register from waiting on robID, but only if it is
// still that register's current producer. A newer producer may have
// re-tagged the register in the meantime and must not be clobbered.
func (rf *RegisterFile) ClearTag(reg uint8, robID uint32) {
	if reg == 0 {
		return
	}
	if rf.tag[reg] == robID {
		rf.tag[reg] = NoTag
	}
}

// Snapshot returns a copy of all 32 committed register values, used by the
// register trace hook and by tests.
func (rf *RegisterFile) Snapshot() [32]uint32 {
	return rf.reg
}
