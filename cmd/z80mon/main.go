// z80mon - assemble or load a Z80 program and run it under the monitor
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	z80emu "github.com/PendleCodeMonkey/Z80Emulator"
	"github.com/PendleCodeMonkey/Z80Emulator/assembler"
	"github.com/sirupsen/logrus"
)

func main() {
	org := flag.Uint("org", 0x8000, "load address for raw binaries")
	interactive := flag.Bool("i", false, "drop into the monitor instead of running")
	trace := flag.Bool("trace", false, "log every executed instruction")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: z80mon [-org addr] [-i] [-trace] program.asm|program.bin")
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	machine := z80emu.New(nil)
	if *trace {
		logger := logrus.New()
		logger.SetLevel(logrus.DebugLevel)
		machine.SetTraceLogger(logger)
	}

	loadAddr := uint16(*org)
	code := data
	if strings.HasSuffix(path, ".asm") || strings.HasSuffix(path, ".z80") {
		asm := assembler.New()
		ok, bytes, errs, _ := asm.Assemble(strings.Split(string(data), "\n"))
		if !ok {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e)
			}
			os.Exit(1)
		}
		code = bytes
		loadAddr = asm.Origin()
	}

	if err := machine.LoadExecutable(code, loadAddr, true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *interactive {
		if err := z80emu.NewMonitor(machine).Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := machine.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Print(machine.Dump())
}
