package tomasulo

import (
	"fmt"

	"github.com/TheUnknownThing/RISC-V-Simulator/emu"
	"github.com/TheUnknownThing/RISC-V-Simulator/insts"
)

// ErrROBFull is returned when Issue cannot allocate a reorder buffer entry
// because the buffer is at capacity.
var ErrROBFull = fmt.Errorf("tomasulo: reorder buffer full")

// ROBEntry is one in-flight instruction tracked by the reorder buffer, from
// issue until commit or flush.
type ROBEntry struct {
	Busy bool
	Tag  uint32

	PC   uint32
	Inst insts.Instruction

	HasDest bool
	Dest    uint8
	Value   uint32
	Ready   bool

	IsStore bool

	IsBranch        bool
	PredictedTaken  bool
	PredictedTarget uint32
	ActualTaken     bool
	ActualTarget    uint32
}

// ReorderBuffer retires instructions in issue order, giving the processor
// precise architectural state even though execution itself is out of order.
// Tags are monotonically increasing sequence numbers, not slot indices, so
// ordering comparisons between tags remain valid across slot reuse.
type ReorderBuffer struct {
	entries  []ROBEntry
	capacity uint32
	nextTag  uint32
	head     uint32
	count    int
}

// NewReorderBuffer returns an empty buffer with the given capacity.
func NewReorderBuffer(capacity int) *ReorderBuffer {
	return &ReorderBuffer{
		entries:  make([]ROBEntry, capacity),
		capacity: uint32(capacity),
	}
}

func (rob *ReorderBuffer) slot(tag uint32) *ROBEntry {
	return &rob.entries[tag%rob.capacity]
}

// HasSpace reports whether at least one entry is free.
func (rob *ReorderBuffer) HasSpace() bool {
	return rob.count < len(rob.entries)
}

// Add allocates a new entry for an issued instruction and returns its tag.
func (rob *ReorderBuffer) Add(pc uint32, inst insts.Instruction, hasDest bool, dest uint8, isStore, isBranch bool, predictedTaken bool, predictedTarget uint32) (uint32, error) {
	if !rob.HasSpace() {
		return 0, ErrROBFull
	}
	tag := rob.nextTag
	*rob.slot(tag) = ROBEntry{
		Busy: true, Tag: tag, PC: pc, Inst: inst,
		HasDest: hasDest, Dest: dest, IsStore: isStore,
		IsBranch: isBranch, PredictedTaken: predictedTaken, PredictedTarget: predictedTarget,
		// A store never broadcasts a value and a branch is only ready once
		// CompleteBranch resolves it; everything else broadcasts through
		// ReceiveBroadcast. A store carries no pending producer, so it is
		// ready to commit (and authorize its LSB write) as soon as it is
		// issued.
		Ready: isStore,
	}
	if rob.count == 0 {
		rob.head = tag
	}
	rob.nextTag++
	rob.count++
	return tag, nil
}

// ReceiveBroadcast latches a computed value for the entry with the given
// tag, coming from the ALU or the load-store buffer, and marks it ready to
// commit.
func (rob *ReorderBuffer) ReceiveBroadcast(tag uint32, value uint32) {
	e := rob.slot(tag)
	if e.Busy && e.Tag == tag {
		e.Value = value
		e.Ready = true
	}
}

// CompleteBranch latches the resolution of a branch or jump: whether it was
// actually taken and its actual target, plus its link value if it has one
// (JAL/JALR write pc+4 to their destination register).
func (rob *ReorderBuffer) CompleteBranch(tag uint32, hasLink bool, linkValue uint32, taken bool, target uint32) {
	e := rob.slot(tag)
	if !e.Busy || e.Tag != tag {
		return
	}
	if hasLink {
		e.Value = linkValue
	}
	e.ActualTaken = taken
	e.ActualTarget = target
	e.Ready = true
}

// ValueIfReady returns the value already computed for tag, if any, letting
// Issue forward a result directly instead of waiting on a later broadcast.
func (rob *ReorderBuffer) ValueIfReady(tag uint32) (uint32, bool) {
	e := rob.slot(tag)
	if e.Busy && e.Tag == tag && e.Ready {
		return e.Value, true
	}
	return 0, false
}

// CommitResult reports the outcome of one call to Commit.
type CommitResult struct {
	Committed    bool
	Tag          uint32
	Halted       bool
	ExitCode     uint32
	Mispredicted bool
	CorrectedPC  uint32
}

// isTerminationSentinel reports whether inst is the sentinel instruction the
// commit stage recognizes as a request to stop simulation: ADDI x10, x0, 255. Its destination write
// never happens; the exit code is whatever a0 already held.
func isTerminationSentinel(inst insts.Instruction) bool {
	return inst.Op == insts.ADDI && inst.Rd == 10 && inst.Rs1 == 0 && inst.Imm == 255
}

// Commit retires the oldest entry if it is ready, writing its register
// result, authorizing any store it carries, resolving branch mispredictions,
// and detecting program termination. It is a no-op if the buffer is empty
// or the head is not yet ready.
func (rob *ReorderBuffer) Commit(regs *emu.RegisterFile, lsb *LoadStoreBuffer, predictor *BranchPredictor) CommitResult {
	if rob.count == 0 {
		return CommitResult{}
	}
	e := rob.slot(rob.head)
	if !e.Busy || !e.Ready {
		return CommitResult{}
	}

	tag := e.Tag

	if isTerminationSentinel(e.Inst) {
		return CommitResult{Committed: true, Tag: tag, Halted: true, ExitCode: regs.Read(10)}
	}

	if e.HasDest && e.Dest != 0 {
		regs.Write(e.Dest, e.Value)
		regs.ClearTag(e.Dest, tag)
	}
	if e.IsStore {
		lsb.CommitUpTo(tag)
	}

	result := CommitResult{Committed: true, Tag: tag}
	if e.IsBranch {
		mispredicted := e.PredictedTaken != e.ActualTaken ||
			(e.ActualTaken && e.PredictedTarget != e.ActualTarget)
		if e.Inst.IsBranch() {
			predictor.Update(e.PC, e.ActualTaken, !mispredicted)
		}
		if mispredicted {
			result.Mispredicted = true
			if e.ActualTaken {
				result.CorrectedPC = e.ActualTarget
			} else {
				result.CorrectedPC = e.PC + 4
			}
		}
	}

	*e = ROBEntry{}
	rob.head = tag + 1
	rob.count--
	return result
}

// Flush drops every entry issued after the given tag, which is how the
// processor recovers from a misprediction: everything following the
// mispredicting branch in program order is discarded.
func (rob *ReorderBuffer) Flush(afterTag uint32) {
	count := 0
	for i := range rob.entries {
		if rob.entries[i].Busy {
			if rob.entries[i].Tag > afterTag {
				rob.entries[i] = ROBEntry{}
			} else {
				count++
			}
		}
	}
	rob.nextTag = afterTag + 1
	rob.count = count
}

// Reset empties the buffer entirely.
func (rob *ReorderBuffer) Reset() {
	for i := range rob.entries {
		rob.entries[i] = ROBEntry{}
	}
	rob.nextTag = 0
	rob.head = 0
	rob.count = 0
}

// NextTag returns the tag that will be assigned to the next Add call,
// useful for tests asserting on issue order.
func (rob *ReorderBuffer) NextTag() uint32 {
	return rob.nextTag
}

// Empty reports whether the buffer holds no in-flight entries.
func (rob *ReorderBuffer) Empty() bool {
	return rob.count == 0
}
