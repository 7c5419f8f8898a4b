// Package tomasulo implements a cycle-accurate out-of-order execution model
// for the RV32I base instruction set, built from a reorder buffer,
// reservation stations, a load-store buffer, a 2-bit saturating branch
// predictor and a single-cycle ALU, communicating over a common data bus.
package tomasulo

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the capacities and latencies that parameterize a Processor.
type Config struct {
	// ROBCapacity is the number of in-flight reorder buffer entries.
	ROBCapacity int `json:"robCapacity"`
	// RSCapacity is the number of reservation station entries.
	RSCapacity int `json:"rsCapacity"`
	// LSBCapacity is the number of load-store buffer entries.
	LSBCapacity int `json:"lsbCapacity"`
	// MemoryLatency is the fixed number of cycles a load or store spends
	// executing in the load-store buffer once it reaches the head and its
	// address is known.
	MemoryLatency uint64 `json:"memoryLatency"`
	// CycleCap bounds simulation length; Run stops and reports a runaway
	// condition if this many cycles elapse without the program terminating.
	CycleCap uint64 `json:"cycleCap"`
}

// DefaultConfig returns the capacities and latencies used unless overridden.
func DefaultConfig() Config {
	return Config{
		ROBCapacity:   32,
		RSCapacity:    32,
		LSBCapacity:   32,
		MemoryLatency: 3,
		CycleCap:      2_000_000_000,
	}
}

// Validate reports an error if the configuration is not usable.
func (c Config) Validate() error {
	if c.ROBCapacity <= 0 {
		return fmt.Errorf("tomasulo: ROBCapacity must be positive, got %d", c.ROBCapacity)
	}
	if c.RSCapacity <= 0 {
		return fmt.Errorf("tomasulo: RSCapacity must be positive, got %d", c.RSCapacity)
	}
	if c.LSBCapacity <= 0 {
		return fmt.Errorf("tomasulo: LSBCapacity must be positive, got %d", c.LSBCapacity)
	}
	if c.MemoryLatency == 0 {
		return fmt.Errorf("tomasulo: MemoryLatency must be at least 1 cycle")
	}
	if c.CycleCap == 0 {
		return fmt.Errorf("tomasulo: CycleCap must be positive")
	}
	return nil
}

// Clone returns an independent copy of c.
func (c Config) Clone() Config {
	return c
}

// LoadConfig reads a Config from a JSON file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("tomasulo: reading config: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("tomasulo: parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveConfig writes c to a JSON file.
func SaveConfig(path string, c Config) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("tomasulo: marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("tomasulo: writing config: %w", err)
	}
	return nil
}
