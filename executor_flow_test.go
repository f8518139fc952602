// executor_flow_test.go - jumps, calls, returns and run termination

package z80emu

import "testing"

func TestJPAbsolute(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0xC3, 0x05, 0x01, 0x00, 0x00, 0x3C) // JP 0105h ; skip ; INC A
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 1)
}

func TestJPConditionalNotTaken(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0xCA, 0x05, 0x01, 0x3C, 0x00, 0x04) // JP Z,0105h ; INC A ; NOP ; INC B
	r.cpu().F = 0 // Z clear: fall through
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 1)
	requireEqualU8(t, "B", r.cpu().B, 1)
}

func TestJPHL(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0xE9, 0x00, 0x00, 0x3C) // JP (HL) ; pad ; INC A
	r.cpu().SetHL(0x103)
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 1)
}

func TestJRRelative(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x18, 0x01, 0x04, 0x3C) // JR +1 over INC B to INC A
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 1)
	requireEqualU8(t, "B", r.cpu().B, 0)
}

func TestJRConditionTaken(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x38, 0x01, 0x04, 0x3C) // JR C,+1
	r.cpu().F = FlagC
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 1)
	requireEqualU8(t, "B", r.cpu().B, 0)
}

func TestDJNZLoops(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x3C, 0x10, 0xFD) // loop: INC A ; DJNZ loop
	r.cpu().B = 5
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 5)
	requireEqualU8(t, "B", r.cpu().B, 0)
}

func TestCALLAndRET(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100,
		0xCD, 0x06, 0x01, // CALL 0106h
		0x04, // INC B (after return)
		0x76, // HALT
		0x00, // pad
		0x3C, // sub: INC A
		0xC9, // RET
	)
	r.cpu().SP = 0x4000
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 1)
	requireEqualU8(t, "B", r.cpu().B, 1)
	requireEqualU16(t, "SP", r.cpu().SP, 0x4000)
}

// A RET with no matching CALL ends the run even though more code
// follows.
func TestRETAtDepthZeroEndsExecution(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0xC9, 0x3C) // RET ; INC A (never reached)
	r.cpu().SP = 0x4000
	r.m.Memory().WriteWord(0x4000, 0x0101)
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 0)
	requireEqualU16(t, "SP", r.cpu().SP, 0x4002)
}

func TestConditionalRET(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100,
		0xCD, 0x05, 0x01, // CALL 0105h
		0x04, // INC B
		0x76, // HALT
		0xC8, // sub: RET Z (not taken)
		0x3C, // INC A
		0xC9, // RET
	)
	r.cpu().SP = 0x4000
	r.cpu().F = 0
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 1)
	requireEqualU8(t, "B", r.cpu().B, 1)
}

func TestRSTPushesAndJumps(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0xEF) // RST 28h
	r.cpu().SP = 0x4000
	r.step()
	requireEqualU16(t, "PC", r.cpu().PC, 0x0028)
	requireEqualU16(t, "pushed", r.m.Memory().ReadWord(0x3FFE), 0x0101)
}

func TestHALTStopsRunInPlace(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x3C, 0x76, 0x04) // INC A ; HALT ; INC B
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 1)
	requireEqualU8(t, "B", r.cpu().B, 0)
	if !r.cpu().Halted {
		t.Fatal("halt flag not set")
	}
	// PC stays on the HALT opcode.
	requireEqualU16(t, "PC", r.cpu().PC, 0x101)
}

func TestEIDIImmediate(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0xFB, 0xF3) // EI ; DI
	r.step()
	if !r.cpu().IFF1 || !r.cpu().IFF2 {
		t.Fatal("EI did not set both flip-flops")
	}
	r.step()
	if r.cpu().IFF1 || r.cpu().IFF2 {
		t.Fatal("DI did not clear both flip-flops")
	}
}

func TestFallOffEndStops(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x3C, 0x3C) // INC A ; INC A
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 2)
	requireEqualU16(t, "PC", r.cpu().PC, 0x102)
}
