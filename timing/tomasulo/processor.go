package tomasulo

import (
	"github.com/TheUnknownThing/RISC-V-Simulator/emu"
	"github.com/TheUnknownThing/RISC-V-Simulator/insts"
	"github.com/TheUnknownThing/RISC-V-Simulator/loader"
	"github.com/TheUnknownThing/RISC-V-Simulator/timing/cache"
)

// InvalidInstructionExitCode is latched as the exit code when fetch decodes
// a word that matches no RV32I opcode/funct3/funct7 combination and no older
// instruction is still in flight.
const InvalidInstructionExitCode uint32 = 0xffffffff

// Processor is the complete out-of-order core: decoder, register file,
// memory, reorder buffer, reservation stations, load-store buffer, branch
// predictor and functional units, wired together and ticked one cycle at a
// time.
type Processor struct {
	config Config

	regs *emu.RegisterFile
	mem  *emu.Memory
	dec  *insts.Decoder

	rob       *ReorderBuffer
	aluRS     *ReservationStation
	branchRS  *ReservationStation
	lsb       *LoadStoreBuffer
	predictor *BranchPredictor

	alu    alu
	branch branchUnit

	pc      uint32
	halted  bool
	exit    uint32
	stalled bool // set for one cycle after a misprediction flush, before fetch resumes

	icache           *cache.Cache
	fetchStallCycles uint64 // extra cycles fetch waits on an instruction-cache miss

	stats Statistics
	trace *RegisterTracer
}

// Option configures optional Processor behavior at construction time.
type Option func(*Processor)

// WithInstructionCache routes fetch through c instead of a flat single-cycle
// memory access: the fetched word is issued at once, and an access whose
// latency exceeds one cycle (a miss) holds further fetches for the
// remaining latency-1 cycles.
func WithInstructionCache(c *cache.Cache) Option {
	return func(p *Processor) { p.icache = c }
}

// WithDataCache routes every load-store buffer access through c instead of
// the fixed per-access latency in Config.MemoryLatency.
func WithDataCache(c *cache.Cache) Option {
	return func(p *Processor) { p.lsb.SetDataCache(c) }
}

// NewProcessor returns a Processor ready to run, sharing the given register
// file and memory with the rest of the simulator.
func NewProcessor(regs *emu.RegisterFile, mem *emu.Memory, cfg Config, opts ...Option) *Processor {
	p := &Processor{
		config:    cfg,
		regs:      regs,
		mem:       mem,
		dec:       insts.NewDecoder(),
		rob:       NewReorderBuffer(cfg.ROBCapacity),
		aluRS:     NewReservationStation(cfg.RSCapacity),
		branchRS:  NewReservationStation(cfg.RSCapacity),
		lsb:       NewLoadStoreBuffer(cfg.LSBCapacity, cfg.MemoryLatency),
		predictor: NewBranchPredictor(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetPC sets the program counter fetch will resume from.
func (p *Processor) SetPC(pc uint32) {
	p.pc = pc
}

// LoadImage copies a loaded program image into memory.
func (p *Processor) LoadImage(img *loader.Image) {
	for addr, b := range img.Bytes {
		p.mem.WriteByte(addr, uint32(b))
	}
}

// WithRegisterTrace enables a per-commit register dump through t.
func (p *Processor) WithRegisterTrace(t *RegisterTracer) {
	p.trace = t
}

// Halted reports whether the processor has committed a termination
// sentinel or stopped on an undecodable instruction.
func (p *Processor) Halted() bool {
	return p.halted
}

// ExitCode returns the exit code latched at termination.
func (p *Processor) ExitCode() uint32 {
	return p.exit
}

// Stats returns the accumulated statistics for this run.
func (p *Processor) Stats() Statistics {
	return p.stats
}

// Reset clears all processor and functional-unit state, but leaves the
// shared register file and memory untouched; callers that want a clean
// architectural state should reset those separately.
func (p *Processor) Reset() {
	p.rob.Reset()
	p.aluRS.Reset()
	p.branchRS.Reset()
	p.lsb.Reset()
	p.predictor.Reset()
	p.alu = alu{}
	p.branch = branchUnit{}
	p.pc = 0
	p.halted = false
	p.exit = 0
	p.stalled = false
	p.fetchStallCycles = 0
	p.stats = Statistics{}
}

// Tick advances the processor by one cycle: functional units advance and
// broadcast, dispatch feeds ready reservation-station entries into free
// units, commit retires the oldest ready instruction, and finally fetch and
// issue bring in a new instruction if the pipeline has room. It is a no-op
// once the processor has halted.
func (p *Processor) Tick() {
	if p.halted {
		return
	}
	p.stats.Cycles++

	p.alu.Tick()
	p.branch.Tick()
	p.lsb.Tick(p.mem)
	if p.lsb.StoreCompleted() {
		p.stats.StoresExecuted++
	}

	p.broadcast()
	p.dispatch()
	p.commit()

	if !p.halted {
		p.fetchAndIssue()
	}
}

// Run ticks until the processor halts or the configured cycle cap is
// reached, returning the exit code and whether the run terminated
// normally.
func (p *Processor) Run() (exitCode uint32, halted bool) {
	for p.stats.Cycles < p.config.CycleCap && !p.halted {
		p.Tick()
	}
	return p.exit, p.halted
}

func (p *Processor) broadcast() {
	if tag, value, ok := p.alu.Broadcast(); ok {
		p.rob.ReceiveBroadcast(tag, value)
		p.aluRS.ReceiveBroadcast(tag, value)
		p.branchRS.ReceiveBroadcast(tag, value)
		p.lsb.ReceiveBroadcast(tag, value)
	}
	if res, ok := p.branch.Broadcast(); ok {
		p.stats.BranchResolutions++
		p.rob.CompleteBranch(res.Tag, res.HasLink, res.LinkValue, res.Taken, res.Target)
		if res.HasLink {
			p.aluRS.ReceiveBroadcast(res.Tag, res.LinkValue)
			p.branchRS.ReceiveBroadcast(res.Tag, res.LinkValue)
			p.lsb.ReceiveBroadcast(res.Tag, res.LinkValue)
		}
	}
	if tag, value, ok := p.lsb.Broadcast(); ok {
		p.stats.LoadsExecuted++
		p.rob.ReceiveBroadcast(tag, value)
		p.aluRS.ReceiveBroadcast(tag, value)
		p.branchRS.ReceiveBroadcast(tag, value)
		p.lsb.ReceiveBroadcast(tag, value)
	}
}

func (p *Processor) dispatch() {
	if !p.alu.Busy() {
		if e, ok := p.aluRS.TakeReady(); ok {
			value := Execute(e.Op, e.PC, e.Vj, e.Vk, e.Imm)
			p.alu.Accept(e.Dest, value)
		}
	}
	if !p.branch.Busy() {
		if e, ok := p.branchRS.TakeReady(); ok {
			taken, target, link := ResolveBranch(e.Op, e.PC, e.Vj, e.Vk, e.Imm)
			p.branch.Accept(branchResolution{
				Tag: e.Dest, HasLink: e.Op == insts.JAL || e.Op == insts.JALR,
				LinkValue: link, Taken: taken, Target: target,
			})
		}
	}
}

func (p *Processor) commit() {
	result := p.rob.Commit(p.regs, p.lsb, p.predictor)
	if !result.Committed {
		return
	}
	p.stats.Commits++
	p.stats.Instructions++
	if p.trace != nil {
		snap := p.regs.Snapshot()
		p.trace.Write(p.pc, snap)
	}
	if result.Halted {
		p.halted = true
		p.exit = result.ExitCode
		return
	}
	if result.Mispredicted {
		p.stats.Mispredictions++
		p.stats.Flushes++
		flushTag := result.Tag
		p.rob.Flush(flushTag)
		p.aluRS.Flush(func(tag uint32) bool { return tag > flushTag })
		p.branchRS.Flush(func(tag uint32) bool { return tag > flushTag })
		p.lsb.Flush()
		p.resetRegisterTagsAbove(flushTag)
		p.alu = alu{}
		p.branch = branchUnit{}
		p.pc = result.CorrectedPC
		p.stalled = true
	}
}

// resetRegisterTagsAbove clears any register rename that points at a
// flushed (post-misprediction) producer, so Issue does not wait forever on
// a tag that will never broadcast again.
func (p *Processor) resetRegisterTagsAbove(afterTag uint32) {
	for reg := uint8(1); reg < 32; reg++ {
		if tag := p.regs.Tag(reg); tag != emu.NoTag && tag > afterTag {
			p.regs.ClearTag(reg, tag)
		}
	}
}

func (p *Processor) fetchAndIssue() {
	if p.stalled {
		p.stalled = false
		return
	}

	if p.fetchStallCycles > 0 {
		p.fetchStallCycles--
		return
	}

	var word uint32
	if p.icache != nil {
		result := p.icache.Read(p.pc, 4)
		word = uint32(result.Data)
		if result.Latency > 1 {
			p.fetchStallCycles = result.Latency - 1
		}
	} else {
		word = p.mem.ReadWord(p.pc)
	}
	inst := p.dec.Decode(word)
	pc := p.pc

	if inst.Op == insts.Invalid {
		// The word may lie past the end of the program or on a wrong path,
		// so fetch holds at this PC until everything older has retired (or
		// a misprediction redirects it); only then is the word fatal.
		if p.rob.Empty() {
			p.halted = true
			p.exit = InvalidInstructionExitCode
		}
		return
	}

	hasDest := inst.WritesRegister() && inst.Rd != 0
	isStore := inst.IsStore()
	isBranch := inst.IsBranch() || inst.IsJump()

	switch {
	case inst.IsLoad() || isStore:
		if !p.rob.HasSpace() || !p.lsb.HasSpace() {
			p.stats.StructuralStalls++
			return
		}
	case isBranch:
		if !p.rob.HasSpace() || !p.branchRS.HasSpace() {
			p.stats.StructuralStalls++
			return
		}
	default:
		if !p.rob.HasSpace() || !p.aluRS.HasSpace() {
			p.stats.StructuralStalls++
			return
		}
	}

	predictedTaken := false
	predictedTarget := pc + 4
	if inst.IsBranch() {
		predictedTaken = p.predictor.Predict(pc)
		if predictedTaken {
			predictedTarget = uint32(int32(pc) + inst.Imm)
		}
	} else if inst.Op == insts.JAL {
		predictedTaken = true
		predictedTarget = uint32(int32(pc) + inst.Imm)
	} else if inst.Op == insts.JALR {
		predictedTaken = true
	}

	tag, err := p.rob.Add(pc, inst, hasDest, inst.Rd, isStore, isBranch, predictedTaken, predictedTarget)
	if err != nil {
		p.stats.StructuralStalls++
		return
	}

	vj, qj := p.readOperand(inst.Rs1)
	vk, qk := p.readOperand(inst.Rs2)

	switch {
	case inst.IsLoad():
		_ = p.lsb.Add(tag, inst.Op, inst.Imm, vj, qj, 0, emu.NoTag)
	case isStore:
		_ = p.lsb.Add(tag, inst.Op, inst.Imm, vj, qj, vk, qk)
	case isBranch:
		_ = p.branchRS.Add(inst.Op, inst.Imm, pc, tag, vj, vk, qj, qk)
	default:
		_ = p.aluRS.Add(inst.Op, inst.Imm, pc, tag, vj, vk, qj, qk)
	}

	if hasDest {
		p.regs.SetTag(inst.Rd, tag)
	}

	if inst.IsBranch() {
		p.pc = predictedTarget
	} else if inst.Op == insts.JAL {
		p.pc = predictedTarget
	} else {
		p.pc = pc + 4
	}
}

// readOperand resolves a source register to either its committed value
// (tag NoTag) or the tag it is waiting on, forwarding a value directly if
// the producing reorder buffer entry has already computed it.
func (p *Processor) readOperand(reg uint8) (value uint32, tag uint32) {
	producer := p.regs.Tag(reg)
	if producer == emu.NoTag {
		return p.regs.Read(reg), emu.NoTag
	}
	if v, ready := p.rob.ValueIfReady(producer); ready {
		return v, emu.NoTag
	}
	return 0, producer
}
