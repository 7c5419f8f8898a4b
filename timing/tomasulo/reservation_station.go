package tomasulo

import (
	"fmt"

	"github.com/TheUnknownThing/RISC-V-Simulator/emu"
	"github.com/TheUnknownThing/RISC-V-Simulator/insts"
)

// ErrRSFull is returned when Issue cannot allocate a reservation station
// entry because the station is at capacity.
var ErrRSFull = fmt.Errorf("tomasulo: reservation station full")

// RSEntry is one in-flight ALU or branch operation waiting for its
// operands.
type RSEntry struct {
	Busy bool
	Op   insts.Op
	// Vj, Vk hold ready operand values; Qj, Qk hold the producing ROB id
	// when the corresponding operand is not yet ready (emu.NoTag if ready).
	Vj, Vk uint32
	Qj, Qk uint32
	// Imm is the instruction's immediate, used directly by I-type ops.
	Imm int32
	// PC is the instruction's own address, needed by AUIPC, JAL/JALR
	// target computation and branch target computation.
	PC uint32
	// Dest is the ROB id this entry's result is destined for.
	Dest uint32
}

// Ready reports whether both operands of the entry are available.
func (e RSEntry) Ready() bool {
	return e.Busy && e.Qj == emu.NoTag && e.Qk == emu.NoTag
}

// ReservationStation holds in-flight operations waiting to issue to a
// functional unit; the processor keeps one for the ALU and one for the
// branch unit.
type ReservationStation struct {
	entries []RSEntry
}

// NewReservationStation returns an empty station with the given capacity.
func NewReservationStation(capacity int) *ReservationStation {
	return &ReservationStation{entries: make([]RSEntry, capacity)}
}

// Add allocates a new entry for a pending operation. Operands already
// available should be passed as values with their Q set to emu.NoTag;
// operands still pending should be passed as the producing ROB id.
func (rs *ReservationStation) Add(op insts.Op, imm int32, pc uint32, dest uint32, vj, vk uint32, qj, qk uint32) error {
	for i := range rs.entries {
		if !rs.entries[i].Busy {
			rs.entries[i] = RSEntry{
				Busy: true, Op: op, Imm: imm, PC: pc, Dest: dest,
				Vj: vj, Vk: vk, Qj: qj, Qk: qk,
			}
			return nil
		}
	}
	return ErrRSFull
}

// HasSpace reports whether at least one entry is free.
func (rs *ReservationStation) HasSpace() bool {
	for i := range rs.entries {
		if !rs.entries[i].Busy {
			return true
		}
	}
	return false
}

// ReceiveBroadcast updates any entry waiting on tag with value, clearing
// the corresponding Q to emu.NoTag. Mirrors every other structure's
// same-cycle CDB snoop.
func (rs *ReservationStation) ReceiveBroadcast(tag uint32, value uint32) {
	for i := range rs.entries {
		e := &rs.entries[i]
		if !e.Busy {
			continue
		}
		if e.Qj == tag {
			e.Vj = value
			e.Qj = emu.NoTag
		}
		if e.Qk == tag {
			e.Vk = value
			e.Qk = emu.NoTag
		}
	}
}

// TakeReady removes and returns the lowest-indexed ready entry, if any.
func (rs *ReservationStation) TakeReady() (RSEntry, bool) {
	for i := range rs.entries {
		if rs.entries[i].Ready() {
			e := rs.entries[i]
			rs.entries[i] = RSEntry{}
			return e, true
		}
	}
	return RSEntry{}, false
}

// Flush clears every entry whose destination ROB id is reported stale by
// isStale, which is how a misprediction recovery drops everything issued
// after the mispredicting branch.
func (rs *ReservationStation) Flush(isStale func(id uint32) bool) {
	for i := range rs.entries {
		if rs.entries[i].Busy && isStale(rs.entries[i].Dest) {
			rs.entries[i] = RSEntry{}
		}
	}
}

// Reset clears every entry unconditionally.
func (rs *ReservationStation) Reset() {
	for i := range rs.entries {
		rs.entries[i] = RSEntry{}
	}
}
