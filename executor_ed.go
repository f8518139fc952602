// executor_ed.go - ED-prefixed handlers: 16-bit carry arithmetic,
// register I/O, interrupt plumbing and the block instruction families

package z80emu

// ---- IN r,(C) / OUT (C),r ----

// execINRC reads port BC into the coded register and sets S, Z and
// parity from the value; C is preserved.
func (e *Executor) execINRC(inst *DecodedInstruction) {
	value := e.port.In(e.cpu.BC())
	e.cpu.SetReg8(inst.Opcode>>3&7, value)

	f := e.cpu.F & FlagC
	if value&0x80 != 0 {
		f |= FlagS
	}
	if value == 0 {
		f |= FlagZ
	}
	if parity(value) {
		f |= FlagPV
	}
	e.cpu.F = f
}

func (e *Executor) execOUTCR(inst *DecodedInstruction) {
	e.port.Out(e.cpu.BC(), e.cpu.Reg8(inst.Opcode>>3&7))
}

// ---- 16-bit carry arithmetic ----

func (e *Executor) execADCHL16(inst *DecodedInstruction) {
	hl := e.cpu.HL()
	value := e.cpu.RegPair(inst.Opcode>>4&3, false)
	var carry uint32
	if e.cpu.Flag(FlagC) {
		carry = 1
	}
	sum := uint32(hl) + uint32(value) + carry
	result := uint16(sum)

	var f byte
	if result&0x8000 != 0 {
		f |= FlagS
	}
	if result == 0 {
		f |= FlagZ
	}
	if uint32(hl&0x0FFF)+uint32(value&0x0FFF)+carry > 0x0FFF {
		f |= FlagH
	}
	if (hl^value^0x8000)&(hl^result)&0x8000 != 0 {
		f |= FlagPV
	}
	if sum > 0xFFFF {
		f |= FlagC
	}
	e.cpu.SetHL(result)
	e.cpu.F = f
}

func (e *Executor) execSBCHL16(inst *DecodedInstruction) {
	hl := e.cpu.HL()
	value := e.cpu.RegPair(inst.Opcode>>4&3, false)
	var carry uint32
	if e.cpu.Flag(FlagC) {
		carry = 1
	}
	diff := uint32(hl) - uint32(value) - carry
	result := uint16(diff)

	f := byte(FlagN)
	if result&0x8000 != 0 {
		f |= FlagS
	}
	if result == 0 {
		f |= FlagZ
	}
	if uint32(hl&0x0FFF) < uint32(value&0x0FFF)+carry {
		f |= FlagH
	}
	if (hl^value)&(hl^result)&0x8000 != 0 {
		f |= FlagPV
	}
	if diff > 0xFFFF {
		f |= FlagC
	}
	e.cpu.SetHL(result)
	e.cpu.F = f
}

// ---- 16-bit extended loads ----

func (e *Executor) execLDExt16(inst *DecodedInstruction) {
	e.mem.WriteWord(inst.Imm16, e.cpu.RegPair(inst.Opcode>>4&3, false))
}

func (e *Executor) execLD16Ext(inst *DecodedInstruction) {
	e.cpu.SetRegPair(inst.Opcode>>4&3, false, e.mem.ReadWord(inst.Imm16))
}

// ---- NEG, returns, interrupt mode ----

func (e *Executor) execNEG(inst *DecodedInstruction) {
	a := e.cpu.A
	result := byte(0) - a

	f := byte(FlagN)
	if result&0x80 != 0 {
		f |= FlagS
	}
	if result == 0 {
		f |= FlagZ
	}
	if a&0x0F != 0 {
		f |= FlagH
	}
	if a == 0x80 {
		f |= FlagPV
	}
	if a != 0 {
		f |= FlagC
	}
	e.cpu.A = result
	e.cpu.F = f
}

// execRETI returns like RET; the interrupt flip-flops are left as they
// are.
func (e *Executor) execRETI(inst *DecodedInstruction) {
	e.doRet()
}

// execRETN returns and restores IFF1 from IFF2.
func (e *Executor) execRETN(inst *DecodedInstruction) {
	e.doRet()
	e.cpu.IFF1 = e.cpu.IFF2
}

func (e *Executor) execIM(inst *DecodedInstruction) {
	switch inst.Opcode {
	case 0x46:
		e.cpu.IM = Mode0
	case 0x56:
		e.cpu.IM = Mode1
	case 0x5E:
		e.cpu.IM = Mode2
	}
}

// ---- I and R transfers ----

func (e *Executor) execLDIA(inst *DecodedInstruction) {
	e.cpu.I = e.cpu.A
}

func (e *Executor) execLDRA(inst *DecodedInstruction) {
	e.cpu.R = e.cpu.A
}

// ldAIRFlags sets S and Z from the transferred value and copies IFF2
// into P/V; C is preserved.
func (e *Executor) ldAIRFlags(value byte) {
	f := e.cpu.F & FlagC
	if value&0x80 != 0 {
		f |= FlagS
	}
	if value == 0 {
		f |= FlagZ
	}
	if e.cpu.IFF2 {
		f |= FlagPV
	}
	e.cpu.F = f
}

func (e *Executor) execLDAI(inst *DecodedInstruction) {
	e.cpu.A = e.cpu.I
	e.ldAIRFlags(e.cpu.A)
}

func (e *Executor) execLDAR(inst *DecodedInstruction) {
	e.cpu.A = e.cpu.R
	e.ldAIRFlags(e.cpu.A)
}

// ---- nibble rotates through (HL) ----

func (e *Executor) rldrrdFlags() {
	a := e.cpu.A
	f := e.cpu.F & FlagC
	if a&0x80 != 0 {
		f |= FlagS
	}
	if a == 0 {
		f |= FlagZ
	}
	if parity(a) {
		f |= FlagPV
	}
	e.cpu.F = f
}

func (e *Executor) execRLD(inst *DecodedInstruction) {
	hl := e.cpu.HL()
	value := e.mem.Read(hl)
	e.mem.Write(hl, value<<4|e.cpu.A&0x0F)
	e.cpu.A = e.cpu.A&0xF0 | value>>4
	e.rldrrdFlags()
}

func (e *Executor) execRRD(inst *DecodedInstruction) {
	hl := e.cpu.HL()
	value := e.mem.Read(hl)
	e.mem.Write(hl, value>>4|e.cpu.A<<4)
	e.cpu.A = e.cpu.A&0xF0 | value&0x0F
	e.rldrrdFlags()
}

// ---- block transfers ----

// blockLD is one LDI/LDD step: (DE) <- (HL), pointers stepped by delta,
// BC decremented. H and N clear; P/V reports BC != 0.
func (e *Executor) blockLD(delta int32) {
	hl := e.cpu.HL()
	de := e.cpu.DE()
	e.mem.Write(de, e.mem.Read(hl))
	e.cpu.SetHL(uint16(int32(hl) + delta))
	e.cpu.SetDE(uint16(int32(de) + delta))
	bc := e.cpu.BC() - 1
	e.cpu.SetBC(bc)

	f := e.cpu.F &^ (FlagH | FlagPV | FlagN)
	if bc != 0 {
		f |= FlagPV
	}
	e.cpu.F = f
}

func (e *Executor) execLDI(inst *DecodedInstruction) {
	e.blockLD(1)
}

func (e *Executor) execLDD(inst *DecodedInstruction) {
	e.blockLD(-1)
}

// The repeat forms run to completion in one dispatch; interrupts cannot
// be serviced mid-transfer.
func (e *Executor) execLDIR(inst *DecodedInstruction) {
	for {
		e.blockLD(1)
		if e.cpu.BC() == 0 {
			return
		}
	}
}

func (e *Executor) execLDDR(inst *DecodedInstruction) {
	for {
		e.blockLD(-1)
		if e.cpu.BC() == 0 {
			return
		}
	}
}

// ---- block compares ----

// blockCP is one CPI/CPD step: compare A with (HL) without storing,
// step HL by delta, decrement BC. C is preserved; P/V reports BC != 0.
// It returns true on a match.
func (e *Executor) blockCP(delta int32) bool {
	hl := e.cpu.HL()
	value := e.mem.Read(hl)
	a := e.cpu.A
	result := a - value

	e.cpu.SetHL(uint16(int32(hl) + delta))
	bc := e.cpu.BC() - 1
	e.cpu.SetBC(bc)

	f := e.cpu.F&FlagC | FlagN
	if result&0x80 != 0 {
		f |= FlagS
	}
	if result == 0 {
		f |= FlagZ
	}
	if a&0x0F < value&0x0F {
		f |= FlagH
	}
	if bc != 0 {
		f |= FlagPV
	}
	e.cpu.F = f
	return result == 0
}

func (e *Executor) execCPI(inst *DecodedInstruction) {
	e.blockCP(1)
}

func (e *Executor) execCPD(inst *DecodedInstruction) {
	e.blockCP(-1)
}

func (e *Executor) execCPIR(inst *DecodedInstruction) {
	for {
		if e.blockCP(1) || e.cpu.BC() == 0 {
			return
		}
	}
}

func (e *Executor) execCPDR(inst *DecodedInstruction) {
	for {
		if e.blockCP(-1) || e.cpu.BC() == 0 {
			return
		}
	}
}

// ---- block I/O ----

func (e *Executor) blockIOFlags() {
	f := e.cpu.F&^FlagZ | FlagN
	if e.cpu.B == 0 {
		f |= FlagZ
	}
	e.cpu.F = f
}

// blockIn is one INI/IND step: port BC into (HL), HL stepped by delta,
// B decremented. Z reports B == 0; N set.
func (e *Executor) blockIn(delta int32) {
	hl := e.cpu.HL()
	e.mem.Write(hl, e.port.In(e.cpu.BC()))
	e.cpu.SetHL(uint16(int32(hl) + delta))
	e.cpu.B--
	e.blockIOFlags()
}

// blockOut is one OUTI/OUTD step: (HL) out to port BC, HL stepped by
// delta, B decremented.
func (e *Executor) blockOut(delta int32) {
	hl := e.cpu.HL()
	e.port.Out(e.cpu.BC(), e.mem.Read(hl))
	e.cpu.SetHL(uint16(int32(hl) + delta))
	e.cpu.B--
	e.blockIOFlags()
}

func (e *Executor) execINI(inst *DecodedInstruction) {
	e.blockIn(1)
}

func (e *Executor) execIND(inst *DecodedInstruction) {
	e.blockIn(-1)
}

func (e *Executor) execINIR(inst *DecodedInstruction) {
	for {
		e.blockIn(1)
		if e.cpu.B == 0 {
			return
		}
	}
}

func (e *Executor) execINDR(inst *DecodedInstruction) {
	for {
		e.blockIn(-1)
		if e.cpu.B == 0 {
			return
		}
	}
}

func (e *Executor) execOUTI(inst *DecodedInstruction) {
	e.blockOut(1)
}

func (e *Executor) execOUTD(inst *DecodedInstruction) {
	e.blockOut(-1)
}

func (e *Executor) execOTIR(inst *DecodedInstruction) {
	for {
		e.blockOut(1)
		if e.cpu.B == 0 {
			return
		}
	}
}

func (e *Executor) execOTDR(inst *DecodedInstruction) {
	for {
		e.blockOut(-1)
		if e.cpu.B == 0 {
			return
		}
	}
}
