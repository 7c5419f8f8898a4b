package tomasulo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TheUnknownThing/RISC-V-Simulator/emu"
	"github.com/TheUnknownThing/RISC-V-Simulator/loader"
	"github.com/TheUnknownThing/RISC-V-Simulator/timing/tomasulo"
)

// sentinel is ADDI x10, x0, 255, the fixed halt instruction every program
// below ends with.
func sentinel() uint32 { return addi(10, 0, 255) }

func newProcessor(words []uint32) *tomasulo.Processor {
	regs := emu.NewRegisterFile()
	mem := emu.NewMemory()
	p := tomasulo.NewProcessor(regs, mem, tomasulo.DefaultConfig())
	p.LoadImage(&loader.Image{Bytes: writeProgram(words)})
	return p
}

var _ = Describe("Processor", func() {
	It("S1: runs an immediate-only program and exits with a0's value before the sentinel", func() {
		p := newProcessor([]uint32{
			addi(10, 0, 7),
			sentinel(),
		})
		exit, halted := p.Run()
		Expect(halted).To(BeTrue())
		Expect(exit & 0xff).To(Equal(uint32(7)))
	})

	It("S2: resolves a RAW hazard through the common data bus before committing the dependent add", func() {
		p := newProcessor([]uint32{
			addi(5, 0, 3),
			addi(6, 0, 4),
			add(10, 5, 6),
			sentinel(),
		})
		exit, halted := p.Run()
		Expect(halted).To(BeTrue())
		Expect(exit & 0xff).To(Equal(uint32(7)))
	})

	It("S3: takes a branch predicted not-taken, recovers, and skips the instruction at the fall-through address", func() {
		p := newProcessor([]uint32{
			addi(5, 0, 1),     // 0: x5 = 1
			beq(5, 5, 8),      // 4: always equal, taken, target = 4+8 = 12
			addi(10, 0, 99),   // 8: skipped
			addi(10, 0, 42),   // 12: x10 = 42
			sentinel(),        // 16
		})
		exit, halted := p.Run()
		Expect(halted).To(BeTrue())
		Expect(exit & 0xff).To(Equal(uint32(42)))
	})

	It("S4: round-trips a word through memory via a store followed by a load", func() {
		p := newProcessor([]uint32{
			addi(5, 0, 0x100),      // 0: x5 = 0x100
			lw(6, 5, 0),            // 4: x6 = mem[0x100]
			sw(5, 6, 4),             // 8: mem[0x104] = x6
			lw(10, 5, 4),            // 12: x10 = mem[0x104]
			sentinel(),              // 16
		})
		p.LoadImage(&loader.Image{Bytes: map[uint32]byte{
			0x100: 0xEF, 0x101: 0xBE, 0x102: 0xAD, 0x103: 0xDE,
		}})
		exit, halted := p.Run()
		Expect(halted).To(BeTrue())
		Expect(exit & 0xff).To(Equal(uint32(0xEF)))
	})

	It("S5: JAL writes the return address as its link value", func() {
		p := newProcessor([]uint32{
			jal(1, 8),        // 0: x1 = 4 (pc+4), jump to 0+8=8
			addi(10, 0, 1),   // 4: skipped
			add(10, 1, 0),    // 8: x10 = x1
			sentinel(),       // 12
		})
		exit, halted := p.Run()
		Expect(halted).To(BeTrue())
		Expect(exit & 0xff).To(Equal(uint32(4)))
	})

	It("S6: recovers from a mispredicted loop branch with no ghost stores", func() {
		// x5 counts down from 5 to 0.
		// 0:  addi x5, x0, 5
		// 4:  addi x5, x5, -1     <- loop body (also re-entered after the branch)
		// 8:  bne  x5, x0, -4     <- branch back to 4 while x5 != 0
		// 12: addi x10, x0, 0
		// 16: sentinel
		p := newProcessor([]uint32{
			addi(5, 0, 5),
			addi(5, 5, -1),
			bne(5, 0, -4),
			addi(10, 0, 0),
			sentinel(),
		})
		exit, halted := p.Run()
		Expect(halted).To(BeTrue())
		Expect(exit & 0xff).To(Equal(uint32(0)))
		Expect(p.Stats().Mispredictions).To(BeNumerically(">", uint64(0)), "the backward branch must mispredict at least once before falling through")
	})

	It("discards speculative register writes from a mispredicted branch's wrong path", func() {
		regs := emu.NewRegisterFile()
		mem := emu.NewMemory()
		p := tomasulo.NewProcessor(regs, mem, tomasulo.DefaultConfig())
		p.LoadImage(&loader.Image{Bytes: writeProgram([]uint32{
			addi(1, 0, 1),  // 0: x1 = 1
			bne(1, 0, 12),  // 4: actually taken (x1 != 0); predictor starts at not-taken, so this mispredicts
			addi(3, 0, 99), // 8: wrong-path decoy, must never be visible after recovery
			addi(4, 0, 99), // 12: also reached speculatively on the not-taken path
			addi(10, 0, 7), // 16: real target
			sentinel(),     // 20
		})})

		exit, halted := p.Run()
		Expect(halted).To(BeTrue())
		Expect(exit & 0xff).To(Equal(uint32(7)))
		Expect(regs.Read(3)).To(Equal(uint32(0)), "the wrong-path write to x3 must never commit")
		Expect(regs.Read(4)).To(Equal(uint32(0)), "the wrong-path write to x4 must never commit")
	})

	It("halts on decoding an unrecognized word", func() {
		p := newProcessor([]uint32{0xffffffff})
		exit, halted := p.Run()
		Expect(halted).To(BeTrue())
		Expect(exit).To(Equal(tomasulo.InvalidInstructionExitCode))
	})

	It("reports CPI and branch accuracy consistent with the run's commit count", func() {
		p := newProcessor([]uint32{
			addi(5, 0, 1),
			addi(5, 5, -1),
			bne(5, 0, -4),
			addi(10, 0, 0),
			sentinel(),
		})
		p.Run()
		stats := p.Stats()
		Expect(stats.CPI()).To(BeNumerically(">", 0))
		Expect(stats.Commits).To(BeNumerically(">", 0))
		Expect(stats.CPI()).To(Equal(float64(stats.Cycles) / float64(stats.Commits)))
		// The single BNE falls through, matching the initial not-taken prediction.
		Expect(stats.BranchAccuracy()).To(Equal(1.0))
	})

	It("Reset clears halted state and statistics without touching a freshly loaded image", func() {
		p := newProcessor([]uint32{
			addi(10, 0, 7),
			sentinel(),
		})
		p.Run()
		Expect(p.Halted()).To(BeTrue())
		p.Reset()
		p.SetPC(0)
		Expect(p.Halted()).To(BeFalse())
		Expect(p.Stats().Cycles).To(Equal(uint64(0)))
		exit, halted := p.Run()
		Expect(halted).To(BeTrue())
		Expect(exit & 0xff).To(Equal(uint32(7)))
	})
})
