package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TheUnknownThing/RISC-V-Simulator/emu"
	"github.com/TheUnknownThing/RISC-V-Simulator/timing/cache"
)

var _ = Describe("Cache", func() {
	var (
		c       *cache.Cache
		memory  *emu.Memory
		backing *cache.MemoryBacking
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		backing = cache.NewMemoryBacking(memory)
		// Small cache for testing: 1KB, 4-way, 64B lines -> 4 sets.
		config := cache.Config{
			Size:          1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
		}
		c = cache.New(config, backing)
	})

	Describe("Read operations", func() {
		It("misses on a cold cache", func() {
			memory.WriteWord(0x1000, 0xDEADBEEF)

			result := c.Read(0x1000, 4)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))
			Expect(result.Data).To(Equal(uint64(0xDEADBEEF)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("hits once the block is cached", func() {
			memory.WriteWord(0x1000, 0xCAFEBABE)

			c.Read(0x1000, 4) // miss, fills the block

			result := c.Read(0x1000, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(result.Data).To(Equal(uint64(0xCAFEBABE)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(2)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(1)))
		})

		It("hits on a different word within the same cache line", func() {
			memory.WriteWord(0x1000, 0x11111111)
			memory.WriteWord(0x1004, 0x22222222)

			c.Read(0x1000, 4) // miss, loads the whole 64B line

			result := c.Read(0x1004, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint64(0x22222222)))
		})

		It("adds forwarding latency when a load follows a store to the same address", func() {
			c.Write(0x1000, 4, 0xAAAAAAAA) // fills the block, marks it dirty

			result := c.Read(0x1000, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1) + cache.StoreForwardLatency))
		})
	})

	Describe("Write operations", func() {
		It("write-allocates on a miss", func() {
			result := c.Write(0x1000, 4, 0x12345678)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))

			readResult := c.Read(0x1000, 4)
			Expect(readResult.Hit).To(BeTrue())
			Expect(readResult.Data).To(Equal(uint64(0x12345678)))
		})

		It("hits and updates data once the block is cached", func() {
			c.Write(0x1000, 4, 0x11111111)

			result := c.Write(0x1000, 4, 0x22222222)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))

			readResult := c.Read(0x1000, 4)
			Expect(readResult.Data).To(Equal(uint64(0x22222222)))
		})
	})

	Describe("Eviction", func() {
		It("evicts the LRU way once a set is full", func() {
			// 1KB cache, 64B lines, 4-way -> 4 sets; stride of 256B keeps
			// every address in set 0.
			c.Write(0x0000, 4, 0x11111111)
			c.Write(0x0100, 4, 0x22222222)
			c.Write(0x0200, 4, 0x33333333)
			c.Write(0x0300, 4, 0x44444444)

			Expect(c.Read(0x0000, 4).Hit).To(BeTrue())
			Expect(c.Read(0x0100, 4).Hit).To(BeTrue())
			Expect(c.Read(0x0200, 4).Hit).To(BeTrue())
			Expect(c.Read(0x0300, 4).Hit).To(BeTrue())

			result := c.Write(0x0400, 4, 0x55555555)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Evicted).To(BeTrue())

			stats := c.Stats()
			Expect(stats.Evictions).To(Equal(uint64(1)))
		})

		It("writes back a dirty block on eviction", func() {
			c.Write(0x0000, 4, 0x11111111)
			c.Write(0x0100, 4, 0x22222222)
			c.Write(0x0200, 4, 0x33333333)
			c.Write(0x0300, 4, 0x44444444)

			// Touch the other three so 0x0000's block becomes LRU.
			c.Read(0x0100, 4)
			c.Read(0x0200, 4)
			c.Read(0x0300, 4)

			c.Write(0x0400, 4, 0x55555555)

			Expect(memory.ReadWord(0x0000)).To(Equal(uint32(0x11111111)))

			stats := c.Stats()
			Expect(stats.Writebacks).To(Equal(uint64(1)))
		})
	})

	Describe("Flush", func() {
		It("writes back every dirty block", func() {
			c.Write(0x0000, 4, 0x11111111)
			c.Write(0x1000, 4, 0x22222222)

			Expect(memory.ReadWord(0x0000)).To(Equal(uint32(0)))
			Expect(memory.ReadWord(0x1000)).To(Equal(uint32(0)))

			c.Flush()

			Expect(memory.ReadWord(0x0000)).To(Equal(uint32(0x11111111)))
			Expect(memory.ReadWord(0x1000)).To(Equal(uint32(0x22222222)))

			stats := c.Stats()
			Expect(stats.Writebacks).To(Equal(uint64(2)))
		})
	})

	Describe("Default configurations", func() {
		It("builds the L1 preset", func() {
			config := cache.DefaultL1Config()
			Expect(config.Size).To(Equal(32 * 1024))
			Expect(config.Associativity).To(Equal(4))
			Expect(config.BlockSize).To(Equal(64))
		})

		It("builds the L2 preset", func() {
			config := cache.DefaultL2Config()
			Expect(config.Size).To(Equal(256 * 1024))
			Expect(config.Associativity).To(Equal(8))
			Expect(config.BlockSize).To(Equal(64))
		})
	})
})
