// monitor.go - interactive machine monitor over a raw-mode terminal

package z80emu

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Monitor is a small interactive debugger over a Machine: register and
// memory views, disassembly, stepping, breakpoints and run-until-break.
type Monitor struct {
	machine *Machine
	out     io.Writer

	// Previous register snapshot, for change highlighting.
	prev    CPUState
	hasPrev bool
}

func NewMonitor(m *Machine) *Monitor {
	return &Monitor{machine: m, out: os.Stdout}
}

// Run drives the monitor from stdin until the quit command. When stdin
// is a terminal it is switched to raw mode and handed to a line editor.
func (mon *Monitor) Run() error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return mon.runPlain(os.Stdin)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("monitor: raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	screen := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	t := term.NewTerminal(screen, "z80> ")
	mon.out = t

	fmt.Fprintln(t, "Z80 monitor. ? for help.")
	for {
		line, err := t.ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if mon.dispatch(strings.TrimSpace(line)) {
			return nil
		}
	}
}

func (mon *Monitor) runPlain(r io.Reader) error {
	var line string
	for {
		fmt.Fprint(mon.out, "z80> ")
		if _, err := fmt.Fscanln(r, &line); err != nil {
			if err == io.EOF {
				return nil
			}
			line = ""
		}
		if mon.dispatch(strings.TrimSpace(line)) {
			return nil
		}
	}
}

// dispatch runs one command line; it returns true on quit.
func (mon *Monitor) dispatch(line string) bool {
	if line == "" {
		return false
	}
	fmt.Fprint(mon.out, mon.Exec(line))
	return line == "q" || line == "quit"
}

// Exec interprets a single monitor command and returns its output.
func (mon *Monitor) Exec(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "?", "help":
		return helpText
	case "r", "regs":
		return mon.registers()
	case "s", "step":
		return mon.step(args)
	case "g", "go":
		if err := mon.machine.Execute(); err != nil {
			return fmt.Sprintf("stopped: %v\n", err)
		}
		return mon.registers()
	case "m", "mem":
		return mon.memory(args)
	case "d", "dis":
		return mon.disassemble(args)
	case "b", "break":
		return mon.breakpoint(args)
	case "bc":
		mon.machine.ClearBreakpoints()
		return "breakpoints cleared\n"
	case "q", "quit":
		return "bye\n"
	}
	return "unknown command, ? for help\n"
}

const helpText = `r             registers
s [count]     step one or more instructions
g             run until halt, return or breakpoint
m addr [len]  hex dump of memory
d addr [len]  disassemble
b addr        set breakpoint
bc            clear all breakpoints
q             quit
`

// registers renders the machine dump, marking registers changed since
// the previous view with an asterisk.
func (mon *Monitor) registers() string {
	cur := mon.machine.State()
	out := mon.machine.Dump()
	if mon.hasPrev {
		var changed []string
		for _, c := range []struct {
			name string
			old  uint16
			new  uint16
		}{
			{"AF", uint16(mon.prev.A)<<8 | uint16(mon.prev.F), uint16(cur.A)<<8 | uint16(cur.F)},
			{"BC", mon.prev.BC, cur.BC},
			{"DE", mon.prev.DE, cur.DE},
			{"HL", mon.prev.HL, cur.HL},
			{"IX", mon.prev.IX, cur.IX},
			{"IY", mon.prev.IY, cur.IY},
			{"SP", mon.prev.SP, cur.SP},
			{"PC", mon.prev.PC, cur.PC},
		} {
			if c.old != c.new {
				changed = append(changed, "*"+c.name)
			}
		}
		if len(changed) > 0 {
			out += "changed: " + strings.Join(changed, " ") + "\n"
		}
	}
	mon.prev = cur
	mon.hasPrev = true
	return out
}

func (mon *Monitor) step(args []string) string {
	count := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			count = n
		}
	}
	for i := 0; i < count; i++ {
		if err := mon.machine.ExecuteOne(); err != nil {
			return fmt.Sprintf("stopped: %v\n", err) + mon.registers()
		}
	}
	return mon.registers()
}

func (mon *Monitor) memory(args []string) string {
	addr, err := parseAddr(args, 0)
	if err != nil {
		return "usage: m addr [len]\n"
	}
	length := 64
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			length = n
		}
	}
	data := mon.machine.DumpMemory(addr, length)
	var b strings.Builder
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&b, "%04X:", addr+uint16(i))
		for _, v := range data[i:end] {
			fmt.Fprintf(&b, " %02X", v)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (mon *Monitor) disassemble(args []string) string {
	addr, err := parseAddr(args, 0)
	if err != nil {
		return "usage: d addr [len]\n"
	}
	length := 32
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			length = n
		}
	}
	var b strings.Builder
	for _, line := range NewDisassembler(mon.machine, addr, length).Disassemble() {
		fmt.Fprintf(&b, "%04X  %s\n", line.Address, line.Text)
	}
	return b.String()
}

func (mon *Monitor) breakpoint(args []string) string {
	addr, err := parseAddr(args, 0)
	if err != nil {
		return "usage: b addr\n"
	}
	mon.machine.AddBreakpoint(addr)
	return fmt.Sprintf("breakpoint at %04X\n", addr)
}

func parseAddr(args []string, index int) (uint16, error) {
	if index >= len(args) {
		return 0, fmt.Errorf("missing address")
	}
	v, err := strconv.ParseUint(strings.TrimSuffix(strings.ToLower(args[index]), "h"), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
