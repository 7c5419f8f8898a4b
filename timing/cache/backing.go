// Package cache provides an optional, disabled-by-default cache hierarchy
// model sitting in front of emu.Memory.
package cache

import (
	"github.com/TheUnknownThing/RISC-V-Simulator/emu"
)

// MemoryBacking adapts emu.Memory to the BackingStore interface a Cache
// fetches from on miss and writes back to on eviction.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking wraps memory as a BackingStore.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// Read fetches size bytes starting at addr from the backing memory.
func (m *MemoryBacking) Read(addr uint32, size int) []byte {
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		data[i] = byte(m.memory.ReadByte(addr + uint32(i)))
	}
	return data
}

// Write stores data into the backing memory starting at addr.
func (m *MemoryBacking) Write(addr uint32, data []byte) {
	for i, b := range data {
		m.memory.WriteByte(addr+uint32(i), uint32(b))
	}
}
