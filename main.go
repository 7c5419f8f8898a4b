// Package main provides the entry point banner for RISC-V-Simulator.
// RISC-V-Simulator is a cycle-accurate Tomasulo out-of-order RV32I simulator.
//
// For the full CLI, use: go run ./cmd/rv32sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("RISC-V-Simulator - Tomasulo out-of-order RV32I simulator")
	fmt.Println("")
	fmt.Println("Usage: rv32sim [options] [program.img]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to a tomasulo.Config JSON file")
	fmt.Println("  -v         Verbose trace to stderr")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rv32sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rv32sim' instead.")
	}
}
