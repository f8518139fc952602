// machine.go - facade wiring CPU, memory, stack, decoder and executor

package z80emu

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Machine bundles the complete emulated system behind a small surface:
// load code or data, seed register state, run, inspect.
type Machine struct {
	cpu   *CPU
	mem   *Memory
	stack *Stack
	port  PortBus

	decoder  *Decoder
	executor *Executor

	execStart uint32
	execEnd   uint32 // exclusive

	breakpoints map[uint16]struct{}
	trace       *logrus.Logger
}

// New builds a machine around the given port bus; nil selects the
// DummyPortBus.
func New(port PortBus) *Machine {
	if port == nil {
		port = DummyPortBus{}
	}
	cpu := NewCPU()
	mem := NewMemory()
	stack := NewStack(cpu, mem)
	return &Machine{
		cpu:         cpu,
		mem:         mem,
		stack:       stack,
		port:        port,
		decoder:     NewDecoder(cpu, mem),
		executor:    NewExecutor(cpu, mem, stack, port),
		breakpoints: make(map[uint16]struct{}),
	}
}

// CPU exposes the register file for direct inspection and tests.
func (m *Machine) CPU() *CPU { return m.cpu }

// Memory exposes the byte space.
func (m *Machine) Memory() *Memory { return m.mem }

// SetTraceLogger installs a structured per-instruction trace; nil
// disables it.
func (m *Machine) SetTraceLogger(logger *logrus.Logger) {
	m.trace = logger
}

// LoadExecutable places code at addr, points PC at it and bounds the
// executable range to it. Call-depth tracking restarts.
func (m *Machine) LoadExecutable(data []byte, addr uint16, clearFirst bool) error {
	if err := m.mem.Load(data, addr, clearFirst); err != nil {
		return err
	}
	m.cpu.PC = addr
	m.execStart = uint32(addr)
	m.execEnd = uint32(addr) + uint32(len(data))
	m.decoder.SetLimit(m.execEnd)
	m.executor.Reset()
	return nil
}

// LoadData places bytes in memory without touching PC or the executable
// range.
func (m *Machine) LoadData(data []byte, addr uint16, clearFirst bool) error {
	return m.mem.Load(data, addr, clearFirst)
}

// State snapshots the CPU.
func (m *Machine) State() CPUState {
	return m.cpu.State()
}

// SetState applies the populated fields of a delta to the CPU.
func (m *Machine) SetState(d CPUStateDelta) {
	m.cpu.ApplyDelta(d)
}

// AddBreakpoint arms an address; Execute stops before running the
// instruction there.
func (m *Machine) AddBreakpoint(addr uint16) {
	m.breakpoints[addr] = struct{}{}
}

func (m *Machine) RemoveBreakpoint(addr uint16) {
	delete(m.breakpoints, addr)
}

func (m *Machine) ClearBreakpoints() {
	m.breakpoints = make(map[uint16]struct{})
}

// ExecuteOne fetches and runs a single instruction.
func (m *Machine) ExecuteOne() error {
	inst, err := m.decoder.Fetch()
	if err != nil {
		return err
	}
	if m.trace != nil {
		m.traceStep(inst)
	}
	m.executor.Execute(inst)
	return nil
}

// Execute runs from PC until the program falls off the end of the
// loaded code, returns past its entry point, halts, or reaches a
// breakpoint.
func (m *Machine) Execute() error {
	first := true
	for {
		if m.executor.Done() || m.cpu.Halted {
			return nil
		}
		if uint32(m.cpu.PC) >= m.execEnd || uint32(m.cpu.PC) < m.execStart {
			return nil
		}
		if !first {
			if _, hit := m.breakpoints[m.cpu.PC]; hit {
				return nil
			}
		}
		first = false
		if err := m.ExecuteOne(); err != nil {
			return err
		}
	}
}

func (m *Machine) traceStep(inst *DecodedInstruction) {
	c := m.cpu
	m.trace.WithFields(logrus.Fields{
		"pc":   fmt.Sprintf("%04X", inst.Address),
		"op":   formatMnemonic(inst),
		"af":   fmt.Sprintf("%04X", c.AF()),
		"bc":   fmt.Sprintf("%04X", c.BC()),
		"de":   fmt.Sprintf("%04X", c.DE()),
		"hl":   fmt.Sprintf("%04X", c.HL()),
		"ix":   fmt.Sprintf("%04X", c.IX),
		"iy":   fmt.Sprintf("%04X", c.IY),
		"sp":   fmt.Sprintf("%04X", c.SP),
	}).Debug("step")
}

// DumpMemory returns a copy of length bytes starting at addr.
func (m *Machine) DumpMemory(addr uint16, length int) []byte {
	return m.mem.Dump(addr, length)
}

// Dump renders a human-readable register view: both banks, the special
// registers and the flag letters.
func (m *Machine) Dump() string {
	c := m.cpu
	var b strings.Builder
	fmt.Fprintf(&b, "PC=%04X SP=%04X AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X\n",
		c.PC, c.SP, c.AF(), c.BC(), c.DE(), c.HL(), c.IX, c.IY)
	fmt.Fprintf(&b, "AF'=%04X BC'=%04X DE'=%04X HL'=%04X I=%02X R=%02X IM=%d IFF1=%t IFF2=%t\n",
		c.ShadowAF(), c.ShadowBC(), c.ShadowDE(), c.ShadowHL(), c.I, c.R, c.IM, c.IFF1, c.IFF2)
	fmt.Fprintf(&b, "Flags: %s  Halted=%t\n", flagLetters(c.F), c.Halted)
	return b.String()
}

func flagLetters(f byte) string {
	letter := func(mask byte, on, off string) string {
		if f&mask != 0 {
			return on
		}
		return off
	}
	return letter(FlagS, "S", "s") + letter(FlagZ, "Z", "z") +
		letter(FlagH, "H", "h") + letter(FlagPV, "V", "v") +
		letter(FlagN, "N", "n") + letter(FlagC, "C", "c")
}
