package tomasulo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TheUnknownThing/RISC-V-Simulator/emu"
	"github.com/TheUnknownThing/RISC-V-Simulator/insts"
	"github.com/TheUnknownThing/RISC-V-Simulator/timing/tomasulo"
)

var _ = Describe("ReservationStation", func() {
	var rs *tomasulo.ReservationStation

	BeforeEach(func() {
		rs = tomasulo.NewReservationStation(2)
	})

	It("reports space until full, then refuses further adds", func() {
		Expect(rs.HasSpace()).To(BeTrue())
		Expect(rs.Add(insts.ADD, 0, 0, 1, 1, 2, emu.NoTag, emu.NoTag)).To(Succeed())
		Expect(rs.HasSpace()).To(BeTrue())
		Expect(rs.Add(insts.ADD, 0, 0, 2, 3, 4, emu.NoTag, emu.NoTag)).To(Succeed())
		Expect(rs.HasSpace()).To(BeFalse())
		Expect(rs.Add(insts.ADD, 0, 0, 3, 5, 6, emu.NoTag, emu.NoTag)).To(MatchError(tomasulo.ErrRSFull))
	})

	It("is not ready while either operand is outstanding", func() {
		Expect(rs.Add(insts.ADD, 0, 0, 1, 0, 2, 7, emu.NoTag)).To(Succeed())
		_, ok := rs.TakeReady()
		Expect(ok).To(BeFalse())
	})

	It("becomes ready once a broadcast resolves the outstanding operand", func() {
		Expect(rs.Add(insts.ADD, 0, 0, 1, 0, 2, 7, emu.NoTag)).To(Succeed())
		rs.ReceiveBroadcast(7, 99)
		e, ok := rs.TakeReady()
		Expect(ok).To(BeTrue())
		Expect(e.Vj).To(Equal(uint32(99)))
		Expect(e.Qj).To(Equal(emu.NoTag))
	})

	It("frees the slot a ready entry was taken from", func() {
		Expect(rs.Add(insts.ADD, 0, 0, 1, 1, 2, emu.NoTag, emu.NoTag)).To(Succeed())
		_, ok := rs.TakeReady()
		Expect(ok).To(BeTrue())
		Expect(rs.HasSpace()).To(BeTrue())
		_, ok = rs.TakeReady()
		Expect(ok).To(BeFalse())
	})

	It("drops entries a flush predicate marks stale by destination tag and keeps the rest", func() {
		Expect(rs.Add(insts.ADD, 0, 0, 5, 1, 2, emu.NoTag, emu.NoTag)).To(Succeed())
		Expect(rs.Add(insts.ADD, 0, 0, 15, 3, 4, emu.NoTag, emu.NoTag)).To(Succeed())
		rs.Flush(func(tag uint32) bool { return tag > 10 })
		Expect(rs.HasSpace()).To(BeTrue())
		e, ok := rs.TakeReady()
		Expect(ok).To(BeTrue())
		Expect(e.Dest).To(Equal(uint32(5)))
		_, ok = rs.TakeReady()
		Expect(ok).To(BeFalse())
	})

	It("clears every entry on Reset regardless of staleness", func() {
		Expect(rs.Add(insts.ADD, 0, 0, 1, 1, 2, emu.NoTag, emu.NoTag)).To(Succeed())
		rs.Reset()
		Expect(rs.HasSpace()).To(BeTrue())
		_, ok := rs.TakeReady()
		Expect(ok).To(BeFalse())
	})
})
