// Command rv32sim runs an RV32I program image on the Tomasulo out-of-order
// core and reports its exit code.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/TheUnknownThing/RISC-V-Simulator/emu"
	"github.com/TheUnknownThing/RISC-V-Simulator/loader"
	"github.com/TheUnknownThing/RISC-V-Simulator/timing/core"
	"github.com/TheUnknownThing/RISC-V-Simulator/timing/tomasulo"
)

var (
	configPath = flag.String("config", "", "Path to a tomasulo.Config JSON file")
	verbose    = flag.Bool("v", false, "Write a cycle-count/CPI/exit-code trace to stderr")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var in *os.File
	switch flag.NArg() {
	case 0:
		in = os.Stdin
	case 1:
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "rv32sim: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	default:
		fmt.Fprintf(os.Stderr, "Usage: rv32sim [options] [program.img]\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	img, err := loader.Load(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv32sim: %v\n", err)
		os.Exit(1)
	}

	cfg := tomasulo.DefaultConfig()
	if *configPath != "" {
		loaded, err := tomasulo.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rv32sim: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	regs := emu.NewRegisterFile()
	mem := emu.NewMemory()
	c := core.NewCoreWithConfig(regs, mem, cfg)
	c.LoadImage(img)

	if *verbose {
		logger.Info("starting run", "entryPC", 0)
	}

	exit, halted := c.Run()
	code := exit & 0xff

	if *verbose {
		stats := c.Stats()
		logger.Info("run finished",
			"halted", halted,
			"cycles", stats.Cycles,
			"instructions", stats.Instructions,
			"cpi", c.Processor.Stats().CPI(),
			"mispredictions", stats.Mispredictions,
			"flushes", stats.Flushes,
			"exitCode", code,
		)
	}

	if !halted {
		fmt.Fprintf(os.Stderr, "rv32sim: did not terminate within the configured cycle cap\n")
		os.Exit(1)
	}

	fmt.Println(code)
	os.Exit(0)
}
