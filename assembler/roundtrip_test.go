// roundtrip_test.go - assemble a program and run it on the machine

package assembler

import (
	"testing"

	z80emu "github.com/PendleCodeMonkey/Z80Emulator"
)

func u16p(v uint16) *uint16 { return &v }

// Restoring division, written in source form: BC/DE leaves the quotient
// in BC and the remainder in HL.
func TestAssembleAndExecuteDivision(t *testing.T) {
	a := New()
	ok, code, errs, _ := a.Assemble([]string{
		"         ORG 8000h",
		"         LD HL,0",
		"         LD A,16",
		"LOOP:    SLA C",
		"         RL B",
		"         ADC HL,HL",
		"         SBC HL,DE",
		"         JR C,RESTORE",
		"         INC C",
		"         JR NEXT",
		"RESTORE: ADD HL,DE",
		"NEXT:    DEC A",
		"         JR NZ,LOOP",
		"         RET",
	})
	if !ok {
		t.Fatalf("assembly failed: %v", errs)
	}

	m := z80emu.New(nil)
	if err := m.LoadExecutable(code, a.Origin(), true); err != nil {
		t.Fatalf("LoadExecutable: %v", err)
	}
	m.SetState(z80emu.CPUStateDelta{
		BC: u16p(0x0753),
		DE: u16p(0x0013),
		SP: u16p(0x9000),
	})
	if err := m.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	s := m.State()
	if s.BC != 0x0062 {
		t.Fatalf("quotient = %04X, want 0062", s.BC)
	}
	if s.HL != 0x000D {
		t.Fatalf("remainder = %04X, want 000D", s.HL)
	}
	if s.A != 0 {
		t.Fatalf("A = %02X, want 00", s.A)
	}
}

// Assembled data segments line up with the disassembler's section view.
func TestAssembleDisassembleRoundTrip(t *testing.T) {
	a := New()
	ok, code, errs, segments := a.Assemble([]string{
		"        ORG 8000h",
		"        LD HL,MSG",
		"        RET",
		"MSG:    DB \"OK\",0",
	})
	if !ok {
		t.Fatalf("assembly failed: %v", errs)
	}

	m := z80emu.New(nil)
	if err := m.LoadData(code, a.Origin(), true); err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	d := z80emu.NewDisassembler(m, a.Origin(), len(code))
	for _, seg := range segments {
		d.AddNonExecutableSection(seg.Address, seg.Length)
	}
	lines := d.Disassemble()
	want := []string{
		"LD HL,8004h",
		"RET",
		"DB 4Fh, 4Bh, 00h",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %d rows", lines, len(want))
	}
	for i, text := range want {
		if lines[i].Text != text {
			t.Fatalf("line %d = %q, want %q", i, lines[i].Text, text)
		}
	}
}
