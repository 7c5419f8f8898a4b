// Package core provides the cycle-accurate CPU core model.
// It wraps the Tomasulo out-of-order execution model to provide a
// high-level interface.
package core

import (
	"github.com/TheUnknownThing/RISC-V-Simulator/emu"
	"github.com/TheUnknownThing/RISC-V-Simulator/loader"
	"github.com/TheUnknownThing/RISC-V-Simulator/timing/tomasulo"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// StructuralStalls is the number of cycles fetch could not issue for lack
	// of a free reorder buffer, reservation station or load-store entry.
	StructuralStalls uint64
	// Flushes is the number of misprediction recoveries performed.
	Flushes uint64
	// Mispredictions is the number of branches that resolved against their
	// predicted direction or target.
	Mispredictions uint64
}

// Core represents a cycle-accurate CPU core model.
// It wraps a Tomasulo out-of-order processor and provides a simple
// interface for simulation.
type Core struct {
	// Processor is the underlying out-of-order execution engine.
	Processor *tomasulo.Processor

	// Shared resources
	regFile *emu.RegisterFile
	memory  *emu.Memory
}

// NewCore creates a new Core with the given register file and memory, using
// the default Tomasulo configuration.
func NewCore(regFile *emu.RegisterFile, memory *emu.Memory) *Core {
	return NewCoreWithConfig(regFile, memory, tomasulo.DefaultConfig())
}

// NewCoreWithConfig creates a new Core with an explicit Tomasulo
// configuration, letting a caller tune reorder buffer/reservation station
// capacities or memory latency.
func NewCoreWithConfig(regFile *emu.RegisterFile, memory *emu.Memory, cfg tomasulo.Config) *Core {
	return &Core{
		Processor: tomasulo.NewProcessor(regFile, memory, cfg),
		regFile:   regFile,
		memory:    memory,
	}
}

// LoadImage copies a loaded program image into the core's memory.
func (c *Core) LoadImage(img *loader.Image) {
	c.Processor.LoadImage(img)
}

// WithRegisterTrace enables a per-commit register dump on the underlying
// processor.
func (c *Core) WithRegisterTrace(t *tomasulo.RegisterTracer) {
	c.Processor.WithRegisterTrace(t)
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.Processor.SetPC(pc)
}

// Tick executes one processor cycle.
func (c *Core) Tick() {
	c.Processor.Tick()
}

// Halted returns true if the core has halted on the termination sentinel or
// an undecodable instruction.
func (c *Core) Halted() bool {
	return c.Processor.Halted()
}

// ExitCode returns the exit code latched when the core halted.
func (c *Core) ExitCode() uint32 {
	return c.Processor.ExitCode()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.Processor.Stats()
	return Stats{
		Cycles:           s.Cycles,
		Instructions:     s.Instructions,
		StructuralStalls: s.StructuralStalls,
		Flushes:          s.Flushes,
		Mispredictions:   s.Mispredictions,
	}
}

// Run executes the core until it halts or the configured cycle cap is
// reached. Returns the exit code and whether the core halted normally.
func (c *Core) Run() (exitCode uint32, halted bool) {
	return c.Processor.Run()
}

// RunCycles executes the core for up to the given number of cycles.
// Returns true if the core is still running afterward, false if it halted.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles; i++ {
		if c.Processor.Halted() {
			return false
		}
		c.Processor.Tick()
	}
	return !c.Processor.Halted()
}

// Reset clears all core state, leaving the shared register file and memory
// untouched.
func (c *Core) Reset() {
	c.Processor.Reset()
}
