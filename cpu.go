// cpu.go - Z80 register file, flags and interrupt state

package z80emu

// Flag masks for the F register. Bits 3 and 5 of F are never written.
const (
	FlagS  = 0x80
	FlagZ  = 0x40
	FlagH  = 0x10
	FlagPV = 0x04
	FlagN  = 0x02
	FlagC  = 0x01
)

// InterruptMode is the Z80 interrupt mode selected by the IM instruction.
type InterruptMode byte

const (
	Mode0 InterruptMode = iota
	Mode1
	Mode2
)

// CPU holds the complete Z80 programmer-visible state: the main and
// shadow register banks, the index and special registers, the interrupt
// flip-flops and mode, and the halt flag.
type CPU struct {
	A, F, B, C, D, E, H, L byte

	// Shadow bank, reachable only through EX AF,AF' and EXX.
	A2, F2, B2, C2, D2, E2, H2, L2 byte

	IX, IY uint16
	PC, SP uint16
	I, R   byte

	IFF1, IFF2 bool
	IM         InterruptMode
	Halted     bool
}

func NewCPU() *CPU {
	return &CPU{}
}

// Reset returns every register and flag to zero.
func (c *CPU) Reset() {
	*c = CPU{}
}

func (c *CPU) Flag(mask byte) bool {
	return c.F&mask != 0
}

func (c *CPU) SetFlag(mask byte, on bool) {
	if on {
		c.F |= mask
	} else {
		c.F &^= mask
	}
}

func (c *CPU) AF() uint16 { return uint16(c.A)<<8 | uint16(c.F) }
func (c *CPU) BC() uint16 { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) DE() uint16 { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) HL() uint16 { return uint16(c.H)<<8 | uint16(c.L) }

func (c *CPU) SetAF(v uint16) { c.A = byte(v >> 8); c.F = byte(v) }
func (c *CPU) SetBC(v uint16) { c.B = byte(v >> 8); c.C = byte(v) }
func (c *CPU) SetDE(v uint16) { c.D = byte(v >> 8); c.E = byte(v) }
func (c *CPU) SetHL(v uint16) { c.H = byte(v >> 8); c.L = byte(v) }

func (c *CPU) ShadowAF() uint16 { return uint16(c.A2)<<8 | uint16(c.F2) }
func (c *CPU) ShadowBC() uint16 { return uint16(c.B2)<<8 | uint16(c.C2) }
func (c *CPU) ShadowDE() uint16 { return uint16(c.D2)<<8 | uint16(c.E2) }
func (c *CPU) ShadowHL() uint16 { return uint16(c.H2)<<8 | uint16(c.L2) }

func (c *CPU) SetShadowAF(v uint16) { c.A2 = byte(v >> 8); c.F2 = byte(v) }
func (c *CPU) SetShadowBC(v uint16) { c.B2 = byte(v >> 8); c.C2 = byte(v) }
func (c *CPU) SetShadowDE(v uint16) { c.D2 = byte(v >> 8); c.E2 = byte(v) }
func (c *CPU) SetShadowHL(v uint16) { c.H2 = byte(v >> 8); c.L2 = byte(v) }

// Reg8 reads an 8-bit register by its 3-bit opcode field code. Code 6 is
// the (HL) memory slot and is never routed here; it and any out-of-range
// code read as zero.
func (c *CPU) Reg8(code byte) byte {
	switch code {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 7:
		return c.A
	}
	return 0
}

// SetReg8 writes an 8-bit register by code; invalid codes are ignored.
func (c *CPU) SetReg8(code byte, value byte) {
	switch code {
	case 0:
		c.B = value
	case 1:
		c.C = value
	case 2:
		c.D = value
	case 3:
		c.E = value
	case 4:
		c.H = value
	case 5:
		c.L = value
	case 7:
		c.A = value
	}
}

// RegPair reads a 16-bit pair by its 2-bit opcode field code. Code 3 is
// SP in the arithmetic pair set and AF in the push/pop set.
func (c *CPU) RegPair(code byte, afVariant bool) uint16 {
	switch code & 3 {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	}
	if afVariant {
		return c.AF()
	}
	return c.SP
}

func (c *CPU) SetRegPair(code byte, afVariant bool, value uint16) {
	switch code & 3 {
	case 0:
		c.SetBC(value)
	case 1:
		c.SetDE(value)
	case 2:
		c.SetHL(value)
	case 3:
		if afVariant {
			c.SetAF(value)
		} else {
			c.SP = value
		}
	}
}

// ExchangeAF swaps AF with its shadow (EX AF,AF').
func (c *CPU) ExchangeAF() {
	c.A, c.A2 = c.A2, c.A
	c.F, c.F2 = c.F2, c.F
}

// ExchangeMainShadow swaps BC, DE and HL with their shadows (EXX).
func (c *CPU) ExchangeMainShadow() {
	c.B, c.B2 = c.B2, c.B
	c.C, c.C2 = c.C2, c.C
	c.D, c.D2 = c.D2, c.D
	c.E, c.E2 = c.E2, c.E
	c.H, c.H2 = c.H2, c.H
	c.L, c.L2 = c.L2, c.L
}

// Condition evaluates a 3-bit condition code against the flags:
// NZ, Z, NC, C, PO, PE, P, M.
func (c *CPU) Condition(code byte) bool {
	switch code & 7 {
	case 0:
		return !c.Flag(FlagZ)
	case 1:
		return c.Flag(FlagZ)
	case 2:
		return !c.Flag(FlagC)
	case 3:
		return c.Flag(FlagC)
	case 4:
		return !c.Flag(FlagPV)
	case 5:
		return c.Flag(FlagPV)
	case 6:
		return !c.Flag(FlagS)
	}
	return c.Flag(FlagS)
}

// PageZeroAddress maps an RST target code to its restart address
// (code * 8).
func (c *CPU) PageZeroAddress(code byte) uint16 {
	return uint16(code&7) * 8
}

// CPUState is a full snapshot of the programmer-visible CPU state.
type CPUState struct {
	A, F       byte
	BC, DE, HL uint16
	AF2        uint16
	BC2        uint16
	DE2        uint16
	HL2        uint16
	IX, IY     uint16
	PC, SP     uint16
	I, R       byte
	IFF1, IFF2 bool
	IM         InterruptMode
	Halted     bool
}

// CPUStateDelta assigns new values to a chosen subset of the CPU state.
// Nil fields are left untouched. AF wins over A/F when both are given.
type CPUStateDelta struct {
	A, F           *byte
	AF, BC, DE, HL *uint16
	AF2            *uint16
	BC2            *uint16
	DE2            *uint16
	HL2            *uint16
	IX, IY         *uint16
	PC, SP         *uint16
	I, R           *byte
	IFF1, IFF2     *bool
	IM             *InterruptMode
	Halted         *bool
}

// State captures the current CPU state.
func (c *CPU) State() CPUState {
	return CPUState{
		A: c.A, F: c.F,
		BC: c.BC(), DE: c.DE(), HL: c.HL(),
		AF2: c.ShadowAF(), BC2: c.ShadowBC(), DE2: c.ShadowDE(), HL2: c.ShadowHL(),
		IX: c.IX, IY: c.IY,
		PC: c.PC, SP: c.SP,
		I: c.I, R: c.R,
		IFF1: c.IFF1, IFF2: c.IFF2,
		IM:     c.IM,
		Halted: c.Halted,
	}
}

// ApplyDelta writes the populated fields of a delta into the CPU.
func (c *CPU) ApplyDelta(d CPUStateDelta) {
	if d.A != nil {
		c.A = *d.A
	}
	if d.F != nil {
		c.F = *d.F
	}
	if d.AF != nil {
		c.SetAF(*d.AF)
	}
	if d.BC != nil {
		c.SetBC(*d.BC)
	}
	if d.DE != nil {
		c.SetDE(*d.DE)
	}
	if d.HL != nil {
		c.SetHL(*d.HL)
	}
	if d.AF2 != nil {
		c.SetShadowAF(*d.AF2)
	}
	if d.BC2 != nil {
		c.SetShadowBC(*d.BC2)
	}
	if d.DE2 != nil {
		c.SetShadowDE(*d.DE2)
	}
	if d.HL2 != nil {
		c.SetShadowHL(*d.HL2)
	}
	if d.IX != nil {
		c.IX = *d.IX
	}
	if d.IY != nil {
		c.IY = *d.IY
	}
	if d.PC != nil {
		c.PC = *d.PC
	}
	if d.SP != nil {
		c.SP = *d.SP
	}
	if d.I != nil {
		c.I = *d.I
	}
	if d.R != nil {
		c.R = *d.R
	}
	if d.IFF1 != nil {
		c.IFF1 = *d.IFF1
	}
	if d.IFF2 != nil {
		c.IFF2 = *d.IFF2
	}
	if d.IM != nil {
		c.IM = *d.IM
	}
	if d.Halted != nil {
		c.Halted = *d.Halted
	}
}
