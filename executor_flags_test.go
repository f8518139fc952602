// executor_flags_test.go - accumulator rotates, DAA and flag toggles

package z80emu

import "testing"

func TestRLCA(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x07)
	r.cpu().A = 0x81
	r.cpu().F = FlagS | FlagZ | FlagPV | FlagH | FlagN
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 0x03)
	// S, Z, P/V preserved; H and N cleared; carry from bit 7.
	requireFlags(t, r.cpu(), FlagS|FlagZ|FlagPV|FlagC)
}

func TestRRCA(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x0F)
	r.cpu().A = 0x01
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 0x80)
	requireFlags(t, r.cpu(), FlagC)
}

func TestRLAThroughCarry(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x17)
	r.cpu().A = 0x80
	r.cpu().F = FlagC
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 0x01)
	requireFlags(t, r.cpu(), FlagC)
}

func TestRRAThroughCarry(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x1F)
	r.cpu().A = 0x01
	r.cpu().F = 0
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 0x00)
	requireFlags(t, r.cpu(), FlagC)
}

func TestDAAAfterAddition(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x27)
	// 0x15 + 0x27 = 0x3C; DAA corrects to 0x42.
	r.cpu().A = 0x3C
	r.cpu().F = 0
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 0x42)
	requireFlags(t, r.cpu(), FlagH|FlagPV)
}

func TestDAAHighCorrection(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x27)
	r.cpu().A = 0x9A
	r.cpu().F = 0
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 0x00)
	requireFlags(t, r.cpu(), FlagZ|FlagH|FlagPV|FlagC)
}

func TestDAAAfterSubtraction(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x27)
	// 0x20 - 0x05 = 0x1B with N and H set; DAA corrects to 0x15.
	r.cpu().A = 0x1B
	r.cpu().F = FlagN | FlagH
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 0x15)
	requireFlags(t, r.cpu(), FlagN)
}

func TestCPL(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x2F)
	r.cpu().A = 0x55
	r.cpu().F = FlagC
	r.run()
	requireEqualU8(t, "A", r.cpu().A, 0xAA)
	requireFlags(t, r.cpu(), FlagH|FlagN|FlagC)
}

func TestSCF(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x37)
	r.cpu().F = FlagS | FlagH | FlagN
	r.run()
	requireFlags(t, r.cpu(), FlagS|FlagC)
}

func TestCCFMovesCarryToHalf(t *testing.T) {
	r := newTestRig(t)
	r.load(0x100, 0x3F)
	r.cpu().F = FlagC
	r.run()
	requireFlags(t, r.cpu(), FlagH)

	r2 := newTestRig(t)
	r2.load(0x100, 0x3F)
	r2.cpu().F = 0
	r2.run()
	requireFlags(t, r2.cpu(), FlagC)
}
