package tomasulo

import (
	"fmt"

	"github.com/TheUnknownThing/RISC-V-Simulator/emu"
	"github.com/TheUnknownThing/RISC-V-Simulator/insts"
	"github.com/TheUnknownThing/RISC-V-Simulator/timing/cache"
)

// ErrLSBFull is returned when Issue cannot allocate a load-store buffer
// entry because the buffer is at capacity.
var ErrLSBFull = fmt.Errorf("tomasulo: load-store buffer full")

// lsbEntry is one in-flight memory access, held in program order.
type lsbEntry struct {
	ROBID uint32
	Op    insts.Op

	Base    uint32
	BaseTag uint32
	Imm     int32

	StoreVal uint32
	StoreTag uint32

	Committed  bool
	Executing  bool
	CyclesLeft uint64

	Addr        uint32
	ResultValue uint32
}

func (e lsbEntry) addrReady() bool {
	return e.BaseTag == emu.NoTag
}

func (e lsbEntry) dataReady() bool {
	return e.StoreTag == emu.NoTag
}

func (e lsbEntry) isLoad() bool {
	switch e.Op {
	case insts.LB, insts.LH, insts.LW, insts.LBU, insts.LHU:
		return true
	default:
		return false
	}
}

func (e lsbEntry) canExecute() bool {
	if e.isLoad() {
		return e.addrReady()
	}
	return e.addrReady() && e.dataReady() && e.Committed
}

// LoadStoreBuffer enforces program-order memory access: only the oldest
// entry may execute, and a store's write does not happen until the reorder
// buffer has committed it.
type LoadStoreBuffer struct {
	entries  []lsbEntry
	capacity int
	latency  uint64

	broadcastValid bool
	broadcastTag   uint32
	broadcastValue uint32

	pendingValid bool
	pendingTag   uint32
	pendingValue uint32

	storeCompleted bool

	dcache *cache.Cache
}

// SetDataCache routes every memory access the buffer performs through c,
// replacing the fixed per-access latency with c's hit/miss latency. Passing
// nil restores the fixed-latency behavior.
func (b *LoadStoreBuffer) SetDataCache(c *cache.Cache) {
	b.dcache = c
}

// NewLoadStoreBuffer returns an empty buffer with the given capacity and
// per-access latency.
func NewLoadStoreBuffer(capacity int, latency uint64) *LoadStoreBuffer {
	return &LoadStoreBuffer{capacity: capacity, latency: latency}
}

// HasSpace reports whether the buffer can accept another entry.
func (b *LoadStoreBuffer) HasSpace() bool {
	return len(b.entries) < b.capacity
}

// Add allocates a new entry in program order. base/baseTag is the address
// base register operand; storeVal/storeTag is the value operand for a
// store (ignored for loads).
func (b *LoadStoreBuffer) Add(robID uint32, op insts.Op, imm int32, base uint32, baseTag uint32, storeVal uint32, storeTag uint32) error {
	if !b.HasSpace() {
		return ErrLSBFull
	}
	b.entries = append(b.entries, lsbEntry{
		ROBID: robID, Op: op, Imm: imm,
		Base: base, BaseTag: baseTag,
		StoreVal: storeVal, StoreTag: storeTag,
	})
	return nil
}

// ReceiveBroadcast resolves any entry waiting on tag for its base address
// or store data operand.
func (b *LoadStoreBuffer) ReceiveBroadcast(tag uint32, value uint32) {
	for i := range b.entries {
		e := &b.entries[i]
		if e.BaseTag == tag {
			e.Base = value
			e.BaseTag = emu.NoTag
		}
		if e.StoreTag == tag {
			e.StoreVal = value
			e.StoreTag = emu.NoTag
		}
	}
}

// CommitUpTo marks the entry with the given ROB id as authorized to
// perform its memory write. Called when the reorder buffer retires a
// store; it is a no-op for loads, which never wait on this signal.
func (b *LoadStoreBuffer) CommitUpTo(robID uint32) {
	for i := range b.entries {
		if b.entries[i].ROBID == robID {
			b.entries[i].Committed = true
		}
	}
}

// Tick advances the head entry's execution and, once a load's value is
// ready, stages it for broadcast on the next cycle. Store entries complete
// silently by writing into mem and are dequeued without a broadcast.
func (b *LoadStoreBuffer) Tick(mem *emu.Memory) {
	b.broadcastValid = b.pendingValid
	b.broadcastTag = b.pendingTag
	b.broadcastValue = b.pendingValue
	b.pendingValid = false
	b.storeCompleted = false

	if len(b.entries) == 0 {
		return
	}
	head := &b.entries[0]

	if !head.Executing {
		if !head.canExecute() {
			return
		}
		head.Executing = true
		head.Addr = uint32(int32(head.Base) + head.Imm)

		if b.dcache != nil {
			width := accessWidth(head.Op)
			if head.isLoad() {
				result := b.dcache.Read(head.Addr, width)
				head.ResultValue = signExtendLoad(uint32(result.Data), head.Op)
				head.CyclesLeft = result.Latency
			} else {
				result := b.dcache.Write(head.Addr, width, uint64(head.StoreVal))
				head.CyclesLeft = result.Latency
			}
		} else {
			head.CyclesLeft = b.latency
		}
	}

	head.CyclesLeft--
	if head.CyclesLeft > 0 {
		return
	}

	if head.isLoad() {
		value := head.ResultValue
		if b.dcache == nil {
			value = loadFromMemory(mem, head.Addr, head.Op)
		}
		b.pendingValid = true
		b.pendingTag = head.ROBID
		b.pendingValue = value
	} else {
		if b.dcache == nil {
			storeToMemory(mem, head.Addr, head.StoreVal, head.Op)
		}
		b.storeCompleted = true
	}
	b.entries = b.entries[1:]
}

// Broadcast returns the load result, if any, that became visible this
// cycle.
func (b *LoadStoreBuffer) Broadcast() (tag uint32, value uint32, ok bool) {
	return b.broadcastTag, b.broadcastValue, b.broadcastValid
}

// StoreCompleted reports whether a store finished its memory write this
// cycle. Stores do not broadcast a value, so the processor checks this
// directly to count them instead.
func (b *LoadStoreBuffer) StoreCompleted() bool {
	return b.storeCompleted
}

// Flush drops every entry not yet authorized to commit. A store that has
// already been committed survives a misprediction recovery and completes
// its write; everything speculative past the mispredicting branch does not.
// Any load result already staged for broadcast is canceled too: a
// misprediction is only detected when the mispredicting branch itself
// retires, which requires every older entry to have already left the
// buffer, so a still-pending result can only belong to a wrong-path load.
func (b *LoadStoreBuffer) Flush() {
	kept := b.entries[:0]
	for _, e := range b.entries {
		if e.Committed {
			kept = append(kept, e)
		}
	}
	b.entries = kept
	b.pendingValid = false
	b.broadcastValid = false
}

// Reset empties the buffer entirely.
func (b *LoadStoreBuffer) Reset() {
	b.entries = nil
	b.broadcastValid = false
	b.pendingValid = false
	b.storeCompleted = false
}

func loadFromMemory(mem *emu.Memory, addr uint32, op insts.Op) uint32 {
	switch op {
	case insts.LB:
		return mem.Load(addr, emu.WidthByte)
	case insts.LBU:
		return mem.Load(addr, emu.WidthByteUnsigned)
	case insts.LH:
		return mem.Load(addr, emu.WidthHalf)
	case insts.LHU:
		return mem.Load(addr, emu.WidthHalfUnsigned)
	default:
		return mem.Load(addr, emu.WidthWord)
	}
}

// accessWidth returns the byte width of a load or store opcode, for sizing
// a data-cache access.
func accessWidth(op insts.Op) int {
	switch op {
	case insts.LB, insts.LBU, insts.SB:
		return 1
	case insts.LH, insts.LHU, insts.SH:
		return 2
	default:
		return 4
	}
}

// signExtendLoad applies LB/LH's sign extension to a zero-extended value
// read out of a cache line; LBU/LHU/LW pass the value through unchanged.
func signExtendLoad(raw uint32, op insts.Op) uint32 {
	switch op {
	case insts.LB:
		return uint32(int32(int8(raw)))
	case insts.LH:
		return uint32(int32(int16(raw)))
	default:
		return raw
	}
}

func storeToMemory(mem *emu.Memory, addr uint32, value uint32, op insts.Op) {
	switch op {
	case insts.SB:
		mem.Store(addr, value, emu.StoreByte)
	case insts.SH:
		mem.Store(addr, value, emu.StoreHalf)
	default:
		mem.Store(addr, value, emu.StoreWord)
	}
}
