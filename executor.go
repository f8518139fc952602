// executor.go - handler dispatch, operand resolution, loads, ALU and flow

package z80emu

// Executor runs decoded instructions against the CPU, memory, stack and
// port bus. It tracks call depth so a RET with no matching CALL ends the
// run, mirroring a subroutine-style entry point.
type Executor struct {
	cpu   *CPU
	mem   *Memory
	stack *Stack
	port  PortBus

	callDepth      int
	endOfExecution bool

	handlers map[handlerID]handlerFunc
}

type handlerFunc func(*Executor, *DecodedInstruction)

func NewExecutor(cpu *CPU, mem *Memory, stack *Stack, port PortBus) *Executor {
	e := &Executor{cpu: cpu, mem: mem, stack: stack, port: port}
	e.handlers = map[handlerID]handlerFunc{
		hndNOP:    func(e *Executor, _ *DecodedInstruction) {},
		hndHALT:   (*Executor).execHALT,
		hndDAA:    (*Executor).execDAA,
		hndCPL:    (*Executor).execCPL,
		hndSCF:    (*Executor).execSCF,
		hndCCF:    (*Executor).execCCF,
		hndEXX:    (*Executor).execEXX,
		hndEXAFAF: (*Executor).execEXAFAF,
		hndEXDEHL: (*Executor).execEXDEHL,
		hndEXSPHL: (*Executor).execEXSPHL,
		hndDI:     (*Executor).execDI,
		hndEI:     (*Executor).execEI,
		hndRLCA:   (*Executor).execRLCA,
		hndRRCA:   (*Executor).execRRCA,
		hndRLA:    (*Executor).execRLA,
		hndRRA:    (*Executor).execRRA,

		hndLD8RegReg: (*Executor).execLD8RegReg,
		hndLD8Imm:    (*Executor).execLD8Imm,
		hndLDABCInd:  (*Executor).execLDABCInd,
		hndLDBCIndA:  (*Executor).execLDBCIndA,
		hndLDADEInd:  (*Executor).execLDADEInd,
		hndLDDEIndA:  (*Executor).execLDDEIndA,
		hndLDAExt:    (*Executor).execLDAExt,
		hndLDExtA:    (*Executor).execLDExtA,
		hndLD16Imm:   (*Executor).execLD16Imm,
		hndLDHLExt:   (*Executor).execLDHLExt,
		hndLDExtHL:   (*Executor).execLDExtHL,
		hndLDSPHL:    (*Executor).execLDSPHL,

		hndINC8:    (*Executor).execINC8,
		hndDEC8:    (*Executor).execDEC8,
		hndADD8:    (*Executor).execADD8,
		hndADC8:    (*Executor).execADC8,
		hndSUB8:    (*Executor).execSUB8,
		hndSBC8:    (*Executor).execSBC8,
		hndAND8:    (*Executor).execAND8,
		hndXOR8:    (*Executor).execXOR8,
		hndOR8:     (*Executor).execOR8,
		hndCP8:     (*Executor).execCP8,
		hndADDHL16: (*Executor).execADDHL16,
		hndINC16:   (*Executor).execINC16,
		hndDEC16:   (*Executor).execDEC16,

		hndJP:       (*Executor).execJP,
		hndJPCond:   (*Executor).execJPCond,
		hndJPHL:     (*Executor).execJPHL,
		hndJR:       (*Executor).execJR,
		hndJRCond:   (*Executor).execJRCond,
		hndDJNZ:     (*Executor).execDJNZ,
		hndCALL:     (*Executor).execCALL,
		hndCALLCond: (*Executor).execCALLCond,
		hndRET:      (*Executor).execRET,
		hndRETCond:  (*Executor).execRETCond,
		hndRST:      (*Executor).execRST,
		hndPUSH:     (*Executor).execPUSH,
		hndPOP:      (*Executor).execPOP,

		hndINNA:  (*Executor).execINNA,
		hndOUTNA: (*Executor).execOUTNA,

		hndRotShift: (*Executor).execRotShift,
		hndBIT:      (*Executor).execBIT,
		hndRES:      (*Executor).execRES,
		hndSET:      (*Executor).execSET,

		hndINRC:    (*Executor).execINRC,
		hndOUTCR:   (*Executor).execOUTCR,
		hndADCHL16: (*Executor).execADCHL16,
		hndSBCHL16: (*Executor).execSBCHL16,
		hndLDExt16: (*Executor).execLDExt16,
		hndLD16Ext: (*Executor).execLD16Ext,
		hndNEG:     (*Executor).execNEG,
		hndRETI:    (*Executor).execRETI,
		hndRETN:    (*Executor).execRETN,
		hndIM:      (*Executor).execIM,
		hndLDIA:    (*Executor).execLDIA,
		hndLDRA:    (*Executor).execLDRA,
		hndLDAI:    (*Executor).execLDAI,
		hndLDAR:    (*Executor).execLDAR,
		hndRRD:     (*Executor).execRRD,
		hndRLD:     (*Executor).execRLD,
		hndLDI:     (*Executor).execLDI,
		hndLDD:     (*Executor).execLDD,
		hndLDIR:    (*Executor).execLDIR,
		hndLDDR:    (*Executor).execLDDR,
		hndCPI:     (*Executor).execCPI,
		hndCPD:     (*Executor).execCPD,
		hndCPIR:    (*Executor).execCPIR,
		hndCPDR:    (*Executor).execCPDR,
		hndINI:     (*Executor).execINI,
		hndIND:     (*Executor).execIND,
		hndINIR:    (*Executor).execINIR,
		hndINDR:    (*Executor).execINDR,
		hndOUTI:    (*Executor).execOUTI,
		hndOUTD:    (*Executor).execOUTD,
		hndOTIR:    (*Executor).execOTIR,
		hndOTDR:    (*Executor).execOTDR,

		hndIXIYIndirect: (*Executor).execIndexRedirect,
	}
	return e
}

// Reset clears the call-depth counter and the end-of-execution flag for
// a fresh run.
func (e *Executor) Reset() {
	e.callDepth = 0
	e.endOfExecution = false
}

// Done reports whether a RET at call depth zero has ended the run.
func (e *Executor) Done() bool {
	return e.endOfExecution
}

// Execute dispatches one decoded instruction. Unrecognised opcodes are
// no-ops.
func (e *Executor) Execute(inst *DecodedInstruction) {
	if inst.handler == hndNone {
		return
	}
	e.handlers[inst.handler](e, inst)
}

// execIndexRedirect routes a DD/FD (or DD CB/FD CB) opcode to the same
// slot of the unprefixed (or CB) table. The routed handler sees the
// original prefix and resolves HL-relative operands via indexedAddress.
func (e *Executor) execIndexRedirect(inst *DecodedInstruction) {
	table := &baseTable
	if inst.Prefix == PrefixDDCB || inst.Prefix == PrefixFDCB {
		table = &cbTable
	}
	entry := table[inst.Opcode]
	if entry.handler == hndNone {
		return
	}
	e.handlers[entry.handler](e, inst)
}

// indexedAddress resolves the memory operand slot: IX+d or IY+d under an
// index prefix, plain HL otherwise.
func (e *Executor) indexedAddress(inst *DecodedInstruction) uint16 {
	switch inst.Prefix {
	case PrefixDD, PrefixDDCB:
		return uint16(int32(e.cpu.IX) + int32(inst.Disp))
	case PrefixFD, PrefixFDCB:
		return uint16(int32(e.cpu.IY) + int32(inst.Disp))
	}
	return e.cpu.HL()
}

// readOperand8 reads the 8-bit operand selected by a 3-bit register
// code; code 6 is the memory slot.
func (e *Executor) readOperand8(inst *DecodedInstruction, code byte) byte {
	if code == 6 {
		return e.mem.Read(e.indexedAddress(inst))
	}
	return e.cpu.Reg8(code)
}

func (e *Executor) writeOperand8(inst *DecodedInstruction, code byte, value byte) {
	if code == 6 {
		e.mem.Write(e.indexedAddress(inst), value)
		return
	}
	e.cpu.SetReg8(code, value)
}

// pair16 reads a 16-bit pair by 2-bit code; under an index prefix the
// HL slot maps to IX or IY, so the redirected 16-bit forms work
// unchanged.
func (e *Executor) pair16(inst *DecodedInstruction, code byte) uint16 {
	if code&3 == 2 {
		switch inst.Prefix {
		case PrefixDD, PrefixDDCB:
			return e.cpu.IX
		case PrefixFD, PrefixFDCB:
			return e.cpu.IY
		}
	}
	return e.cpu.RegPair(code, false)
}

func (e *Executor) setPair16(inst *DecodedInstruction, code byte, value uint16) {
	if code&3 == 2 {
		switch inst.Prefix {
		case PrefixDD, PrefixDDCB:
			e.cpu.IX = value
			return
		case PrefixFD, PrefixFDCB:
			e.cpu.IY = value
			return
		}
	}
	e.cpu.SetRegPair(code, false, value)
}

// parity reports even parity, folded through a 16-bit nibble table.
func parity(b byte) bool {
	x := b ^ b>>4
	x &= 0x0F
	return (0x6996>>x)&1 == 0
}

// ---- 8-bit loads ----

func (e *Executor) execLD8RegReg(inst *DecodedInstruction) {
	dest := inst.Opcode >> 3 & 7
	src := inst.Opcode & 7
	e.writeOperand8(inst, dest, e.readOperand8(inst, src))
}

func (e *Executor) execLD8Imm(inst *DecodedInstruction) {
	e.writeOperand8(inst, inst.Opcode>>3&7, inst.Imm8)
}

func (e *Executor) execLDABCInd(inst *DecodedInstruction) {
	e.cpu.A = e.mem.Read(e.cpu.BC())
}

func (e *Executor) execLDBCIndA(inst *DecodedInstruction) {
	e.mem.Write(e.cpu.BC(), e.cpu.A)
}

func (e *Executor) execLDADEInd(inst *DecodedInstruction) {
	e.cpu.A = e.mem.Read(e.cpu.DE())
}

func (e *Executor) execLDDEIndA(inst *DecodedInstruction) {
	e.mem.Write(e.cpu.DE(), e.cpu.A)
}

func (e *Executor) execLDAExt(inst *DecodedInstruction) {
	e.cpu.A = e.mem.Read(inst.Imm16)
}

func (e *Executor) execLDExtA(inst *DecodedInstruction) {
	e.mem.Write(inst.Imm16, e.cpu.A)
}

// ---- 16-bit loads ----

func (e *Executor) execLD16Imm(inst *DecodedInstruction) {
	e.setPair16(inst, inst.Opcode>>4&3, inst.Imm16)
}

func (e *Executor) execLDHLExt(inst *DecodedInstruction) {
	e.setPair16(inst, 2, e.mem.ReadWord(inst.Imm16))
}

func (e *Executor) execLDExtHL(inst *DecodedInstruction) {
	e.mem.WriteWord(inst.Imm16, e.pair16(inst, 2))
}

func (e *Executor) execLDSPHL(inst *DecodedInstruction) {
	e.cpu.SP = e.pair16(inst, 2)
}

// ---- exchanges ----

func (e *Executor) execEXX(inst *DecodedInstruction) {
	e.cpu.ExchangeMainShadow()
}

func (e *Executor) execEXAFAF(inst *DecodedInstruction) {
	e.cpu.ExchangeAF()
}

func (e *Executor) execEXDEHL(inst *DecodedInstruction) {
	de, hl := e.cpu.DE(), e.cpu.HL()
	e.cpu.SetDE(hl)
	e.cpu.SetHL(de)
}

func (e *Executor) execEXSPHL(inst *DecodedInstruction) {
	sp := e.cpu.SP
	atSP := uint16(e.mem.Read(sp)) | uint16(e.mem.Read(sp+1))<<8
	old := e.pair16(inst, 2)
	e.mem.Write(sp, byte(old))
	e.mem.Write(sp+1, byte(old>>8))
	e.setPair16(inst, 2, atSP)
}

// ---- 8-bit arithmetic ----

// aluOperand picks the right-hand ALU value: the trailing immediate
// when present, otherwise the register or memory slot from the opcode.
func (e *Executor) aluOperand(inst *DecodedInstruction) byte {
	if inst.HasImm8 {
		return inst.Imm8
	}
	return e.readOperand8(inst, inst.Opcode&7)
}

func (e *Executor) add8(value byte, withCarry bool) {
	a := e.cpu.A
	var carry byte
	if withCarry && e.cpu.Flag(FlagC) {
		carry = 1
	}
	sum := uint16(a) + uint16(value) + uint16(carry)
	result := byte(sum)

	var f byte
	if result&0x80 != 0 {
		f |= FlagS
	}
	if result == 0 {
		f |= FlagZ
	}
	if a&0x0F+value&0x0F+carry > 0x0F {
		f |= FlagH
	}
	if (a^value^0x80)&(a^result)&0x80 != 0 {
		f |= FlagPV
	}
	if sum > 0xFF {
		f |= FlagC
	}
	e.cpu.A = result
	e.cpu.F = f
}

// sub8 performs A-value-carry; when store is false only the flags are
// kept (CP).
func (e *Executor) sub8(value byte, withCarry, store bool) {
	a := e.cpu.A
	var carry byte
	if withCarry && e.cpu.Flag(FlagC) {
		carry = 1
	}
	diff := uint16(a) - uint16(value) - uint16(carry)
	result := byte(diff)

	f := byte(FlagN)
	if result&0x80 != 0 {
		f |= FlagS
	}
	if result == 0 {
		f |= FlagZ
	}
	if uint16(a&0x0F) < uint16(value&0x0F)+uint16(carry) {
		f |= FlagH
	}
	if (a^value)&(a^result)&0x80 != 0 {
		f |= FlagPV
	}
	if diff > 0xFF {
		f |= FlagC
	}
	if store {
		e.cpu.A = result
	}
	e.cpu.F = f
}

// logic8 stores an AND/XOR/OR result and rebuilds the flags; H is set
// for AND only, N and C always clear.
func (e *Executor) logic8(result byte, halfCarry bool) {
	var f byte
	if result&0x80 != 0 {
		f |= FlagS
	}
	if result == 0 {
		f |= FlagZ
	}
	if halfCarry {
		f |= FlagH
	}
	if parity(result) {
		f |= FlagPV
	}
	e.cpu.A = result
	e.cpu.F = f
}

func (e *Executor) execADD8(inst *DecodedInstruction) {
	e.add8(e.aluOperand(inst), false)
}

func (e *Executor) execADC8(inst *DecodedInstruction) {
	e.add8(e.aluOperand(inst), true)
}

func (e *Executor) execSUB8(inst *DecodedInstruction) {
	e.sub8(e.aluOperand(inst), false, true)
}

func (e *Executor) execSBC8(inst *DecodedInstruction) {
	e.sub8(e.aluOperand(inst), true, true)
}

func (e *Executor) execAND8(inst *DecodedInstruction) {
	e.logic8(e.cpu.A&e.aluOperand(inst), true)
}

func (e *Executor) execXOR8(inst *DecodedInstruction) {
	e.logic8(e.cpu.A^e.aluOperand(inst), false)
}

func (e *Executor) execOR8(inst *DecodedInstruction) {
	e.logic8(e.cpu.A|e.aluOperand(inst), false)
}

func (e *Executor) execCP8(inst *DecodedInstruction) {
	e.sub8(e.aluOperand(inst), false, false)
}

// execINC8 leaves C untouched; P/V flags overflow from 0x7F.
func (e *Executor) execINC8(inst *DecodedInstruction) {
	code := inst.Opcode >> 3 & 7
	prev := e.readOperand8(inst, code)
	result := prev + 1
	e.writeOperand8(inst, code, result)

	f := e.cpu.F & FlagC
	if result&0x80 != 0 {
		f |= FlagS
	}
	if result == 0 {
		f |= FlagZ
	}
	if prev&0x0F == 0x0F {
		f |= FlagH
	}
	if prev == 0x7F {
		f |= FlagPV
	}
	e.cpu.F = f
}

// execDEC8 leaves C untouched; P/V flags overflow from 0x80.
func (e *Executor) execDEC8(inst *DecodedInstruction) {
	code := inst.Opcode >> 3 & 7
	prev := e.readOperand8(inst, code)
	result := prev - 1
	e.writeOperand8(inst, code, result)

	f := e.cpu.F&FlagC | FlagN
	if result&0x80 != 0 {
		f |= FlagS
	}
	if result == 0 {
		f |= FlagZ
	}
	if prev&0x0F == 0 {
		f |= FlagH
	}
	if prev == 0x80 {
		f |= FlagPV
	}
	e.cpu.F = f
}

// ---- 16-bit arithmetic ----

// execADDHL16 updates only C, H (carry out of bit 11) and N; under an
// index prefix both the target and an HL-coded operand map to IX/IY, so
// ADD IX,IX behaves.
func (e *Executor) execADDHL16(inst *DecodedInstruction) {
	target := e.pair16(inst, 2)
	value := e.pair16(inst, inst.Opcode>>4&3)
	sum := uint32(target) + uint32(value)

	f := e.cpu.F &^ (FlagH | FlagN | FlagC)
	if target&0x0FFF+value&0x0FFF > 0x0FFF {
		f |= FlagH
	}
	if sum > 0xFFFF {
		f |= FlagC
	}
	e.cpu.F = f
	e.setPair16(inst, 2, uint16(sum))
}

func (e *Executor) execINC16(inst *DecodedInstruction) {
	code := inst.Opcode >> 4 & 3
	e.setPair16(inst, code, e.pair16(inst, code)+1)
}

func (e *Executor) execDEC16(inst *DecodedInstruction) {
	code := inst.Opcode >> 4 & 3
	e.setPair16(inst, code, e.pair16(inst, code)-1)
}

// ---- accumulator rotates ----

// rotateAFlags keeps S, Z and P/V, clears H and N, and installs the
// shifted-out carry.
func (e *Executor) rotateAFlags(carry bool) {
	f := e.cpu.F & (FlagS | FlagZ | FlagPV)
	if carry {
		f |= FlagC
	}
	e.cpu.F = f
}

func (e *Executor) execRLCA(inst *DecodedInstruction) {
	a := e.cpu.A
	e.cpu.A = a<<1 | a>>7
	e.rotateAFlags(a&0x80 != 0)
}

func (e *Executor) execRRCA(inst *DecodedInstruction) {
	a := e.cpu.A
	e.cpu.A = a>>1 | a<<7
	e.rotateAFlags(a&0x01 != 0)
}

func (e *Executor) execRLA(inst *DecodedInstruction) {
	a := e.cpu.A
	result := a << 1
	if e.cpu.Flag(FlagC) {
		result |= 0x01
	}
	e.cpu.A = result
	e.rotateAFlags(a&0x80 != 0)
}

func (e *Executor) execRRA(inst *DecodedInstruction) {
	a := e.cpu.A
	result := a >> 1
	if e.cpu.Flag(FlagC) {
		result |= 0x80
	}
	e.cpu.A = result
	e.rotateAFlags(a&0x01 != 0)
}

// ---- accumulator misc ----

// execDAA applies the packed-BCD correction: 0x06 for a low digit above
// 9 or half-carry, 0x60 for a value above 0x99 or carry, subtracted
// after subtraction (N set) and added otherwise.
func (e *Executor) execDAA(inst *DecodedInstruction) {
	a := e.cpu.A
	var corr byte
	carryOut := false

	if a&0x0F > 9 || e.cpu.Flag(FlagH) {
		corr |= 0x06
	}
	if a > 0x99 || e.cpu.Flag(FlagC) {
		corr |= 0x60
		carryOut = true
	}

	var result byte
	if e.cpu.Flag(FlagN) {
		result = a - corr
	} else {
		result = a + corr
	}

	f := e.cpu.F & FlagN
	if result&0x80 != 0 {
		f |= FlagS
	}
	if result == 0 {
		f |= FlagZ
	}
	if (a^result)&0x10 != 0 {
		f |= FlagH
	}
	if parity(result) {
		f |= FlagPV
	}
	if carryOut {
		f |= FlagC
	}
	e.cpu.A = result
	e.cpu.F = f
}

func (e *Executor) execCPL(inst *DecodedInstruction) {
	e.cpu.A = ^e.cpu.A
	e.cpu.F |= FlagH | FlagN
}

func (e *Executor) execSCF(inst *DecodedInstruction) {
	e.cpu.F = e.cpu.F&(FlagS|FlagZ|FlagPV) | FlagC
}

// execCCF complements carry; H receives the previous carry.
func (e *Executor) execCCF(inst *DecodedInstruction) {
	prevCarry := e.cpu.Flag(FlagC)
	f := e.cpu.F & (FlagS | FlagZ | FlagPV)
	if prevCarry {
		f |= FlagH
	} else {
		f |= FlagC
	}
	e.cpu.F = f
}

// ---- jumps, calls, returns ----

func (e *Executor) execJP(inst *DecodedInstruction) {
	e.cpu.PC = inst.Imm16
}

func (e *Executor) execJPCond(inst *DecodedInstruction) {
	if e.cpu.Condition(inst.Opcode >> 3 & 7) {
		e.cpu.PC = inst.Imm16
	}
}

func (e *Executor) execJPHL(inst *DecodedInstruction) {
	e.cpu.PC = e.pair16(inst, 2)
}

func (e *Executor) relativeJump(inst *DecodedInstruction) {
	e.cpu.PC = uint16(int32(e.cpu.PC) + int32(inst.Disp))
}

func (e *Executor) execJR(inst *DecodedInstruction) {
	e.relativeJump(inst)
}

func (e *Executor) execJRCond(inst *DecodedInstruction) {
	if e.cpu.Condition(inst.Opcode >> 3 & 3) {
		e.relativeJump(inst)
	}
}

func (e *Executor) execDJNZ(inst *DecodedInstruction) {
	e.cpu.B--
	if e.cpu.B != 0 {
		e.relativeJump(inst)
	}
}

func (e *Executor) call(target uint16) {
	e.stack.Push(e.cpu.PC)
	e.cpu.PC = target
	e.callDepth++
}

func (e *Executor) execCALL(inst *DecodedInstruction) {
	e.call(inst.Imm16)
}

func (e *Executor) execCALLCond(inst *DecodedInstruction) {
	if e.cpu.Condition(inst.Opcode >> 3 & 7) {
		e.call(inst.Imm16)
	}
}

// doRet pops the return address. A return with no matching CALL ends
// the run.
func (e *Executor) doRet() {
	e.cpu.PC = e.stack.Pop()
	if e.callDepth == 0 {
		e.endOfExecution = true
		return
	}
	e.callDepth--
}

func (e *Executor) execRET(inst *DecodedInstruction) {
	e.doRet()
}

func (e *Executor) execRETCond(inst *DecodedInstruction) {
	if e.cpu.Condition(inst.Opcode >> 3 & 7) {
		e.doRet()
	}
}

func (e *Executor) execRST(inst *DecodedInstruction) {
	e.stack.Push(e.cpu.PC)
	e.cpu.PC = e.cpu.PageZeroAddress(inst.Opcode >> 3 & 7)
}

func (e *Executor) execPUSH(inst *DecodedInstruction) {
	code := inst.Opcode >> 4 & 3
	if code == 3 {
		e.stack.Push(e.cpu.AF())
		return
	}
	e.stack.Push(e.pair16(inst, code))
}

func (e *Executor) execPOP(inst *DecodedInstruction) {
	code := inst.Opcode >> 4 & 3
	value := e.stack.Pop()
	if code == 3 {
		e.cpu.SetAF(value)
		return
	}
	e.setPair16(inst, code, value)
}

// ---- interrupts and halt ----

// execHALT backs PC up onto the HALT opcode so the instruction re-runs
// in place, and raises the halt flag.
func (e *Executor) execHALT(inst *DecodedInstruction) {
	e.cpu.PC--
	e.cpu.Halted = true
}

// EI takes effect immediately; the one-instruction enable delay of the
// silicon is not modelled.
func (e *Executor) execEI(inst *DecodedInstruction) {
	e.cpu.IFF1 = true
	e.cpu.IFF2 = true
}

func (e *Executor) execDI(inst *DecodedInstruction) {
	e.cpu.IFF1 = false
	e.cpu.IFF2 = false
}

// ---- immediate-port I/O ----

// execINNA reads port (A<<8 | n) into A. Flags are untouched; only the
// IN r,(C) form updates them.
func (e *Executor) execINNA(inst *DecodedInstruction) {
	e.cpu.A = e.port.In(uint16(e.cpu.A)<<8 | uint16(inst.Imm8))
}

func (e *Executor) execOUTNA(inst *DecodedInstruction) {
	e.port.Out(uint16(e.cpu.A)<<8|uint16(inst.Imm8), e.cpu.A)
}
