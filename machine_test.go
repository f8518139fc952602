// machine_test.go - whole-machine scenarios through the public surface

package z80emu

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func u16p(v uint16) *uint16 { return &v }
func u8p(v byte) *byte      { return &v }

// Restoring 16-by-16 division: BC/DE leaves the quotient in BC and the
// remainder in HL.
func TestDivisionProgram(t *testing.T) {
	r := newTestRig(t)
	r.load(0x8000,
		0x21, 0x00, 0x00, // LD HL,0000h
		0x3E, 0x10, // LD A,16
		0xCB, 0x21, // loop: SLA C
		0xCB, 0x10, // RL B
		0xED, 0x6A, // ADC HL,HL
		0xED, 0x52, // SBC HL,DE
		0x38, 0x03, // JR C,restore
		0x0C,       // INC C
		0x18, 0x01, // JR next
		0x19,       // restore: ADD HL,DE
		0x3D,       // next: DEC A
		0x20, 0xEF, // JR NZ,loop
		0xC9, // RET
	)
	r.m.SetState(CPUStateDelta{
		BC: u16p(0x0753),
		DE: u16p(0x0013),
		SP: u16p(0x9000),
	})
	r.run()
	requireEqualU16(t, "quotient", r.cpu().BC(), 0x0062)
	requireEqualU16(t, "remainder", r.cpu().HL(), 0x000D)
	requireEqualU8(t, "A", r.cpu().A, 0)
}

func TestStateRoundTrip(t *testing.T) {
	m := New(nil)
	m.SetState(CPUStateDelta{
		AF:  u16p(0x1234),
		HL:  u16p(0xBEEF),
		IX:  u16p(0x4000),
		I:   u8p(0x7F),
		BC2: u16p(0xCAFE),
	})
	s := m.State()
	if s.A != 0x12 || s.F != 0x34 {
		t.Fatalf("AF = %02X%02X", s.A, s.F)
	}
	requireEqualU16(t, "HL", s.HL, 0xBEEF)
	requireEqualU16(t, "IX", s.IX, 0x4000)
	requireEqualU8(t, "I", s.I, 0x7F)
	requireEqualU16(t, "BC'", s.BC2, 0xCAFE)
}

func TestBreakpointStopsAndResumes(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x3C, 0x3C, 0x3C) // INC A x3
	r.m.AddBreakpoint(0x102)
	r.run()
	requireEqualU8(t, "A at breakpoint", r.cpu().A, 2)
	requireEqualU16(t, "PC", r.cpu().PC, 0x102)
	// Resuming steps off the armed address.
	r.run()
	requireEqualU8(t, "A at end", r.cpu().A, 3)
}

func TestBreakpointRemoval(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x3C, 0x3C, 0x3C)
	r.m.AddBreakpoint(0x101)
	r.m.RemoveBreakpoint(0x101)
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 3)
}

// A breakpoint on the entry point must not fire before the first
// instruction.
func TestBreakpointOnEntryIgnoredOnce(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x3C, 0x3C)
	r.m.AddBreakpoint(0x100)
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 2)
}

func TestLoadExecutableOverflow(t *testing.T) {
	m := New(nil)
	err := m.LoadExecutable([]byte{1, 2, 3}, 0xFFFE, false)
	if !errors.Is(err, ErrMemoryOverflow) {
		t.Fatalf("err = %v, want ErrMemoryOverflow", err)
	}
	// Memory stays untouched on a refused load.
	if m.Memory().Read(0xFFFE) != 0 {
		t.Fatal("refused load must not write memory")
	}
}

func TestExecutionOutOfBounds(t *testing.T) {
	m := New(nil)
	if err := m.LoadExecutable([]byte{0x3E}, 0x100, true); err != nil { // truncated LD A,n
		t.Fatalf("LoadExecutable: %v", err)
	}
	if err := m.Execute(); !errors.Is(err, ErrExecutionOutOfBounds) {
		t.Fatalf("err = %v, want ErrExecutionOutOfBounds", err)
	}
}

func TestDumpMentionsRegisters(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x3E, 0x80, 0x87) // LD A,80h ; ADD A,A
	r.run()
	dump := r.m.Dump()
	if !strings.Contains(dump, "PC=0103") {
		t.Fatalf("dump missing PC: %q", dump)
	}
	if !strings.Contains(dump, "Flags: sZhVnC") {
		t.Fatalf("dump flags wrong: %q", dump)
	}
}

func TestTraceLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)

	r := newTestRig(t)
	r.m.SetTraceLogger(logger)
	r.load(0x8000, 0x3E, 0x2A, 0x76) // LD A,2Ah ; HALT
	r.run()

	out := buf.String()
	if !strings.Contains(out, "pc=8000") {
		t.Fatalf("trace missing first step: %q", out)
	}
	if !strings.Contains(out, "HALT") {
		t.Fatalf("trace missing mnemonic: %q", out)
	}
}
