// executor_cb.go - rotate/shift and bit operation handlers

package z80emu

// execRotShift covers the eight CB rotate/shift groups with one
// routine; the group and operand register come out of the opcode bit
// fields. Under DD CB/FD CB the operand slot resolves to (IX+d)/(IY+d).
func (e *Executor) execRotShift(inst *DecodedInstruction) {
	group := inst.Opcode >> 3 & 7
	code := inst.Opcode & 7
	value := e.readOperand8(inst, code)

	var result byte
	var carry bool
	switch group {
	case 0: // RLC
		result = value<<1 | value>>7
		carry = value&0x80 != 0
	case 1: // RRC
		result = value>>1 | value<<7
		carry = value&0x01 != 0
	case 2: // RL
		result = value << 1
		if e.cpu.Flag(FlagC) {
			result |= 0x01
		}
		carry = value&0x80 != 0
	case 3: // RR
		result = value >> 1
		if e.cpu.Flag(FlagC) {
			result |= 0x80
		}
		carry = value&0x01 != 0
	case 4: // SLA
		result = value << 1
		carry = value&0x80 != 0
	case 5: // SRA
		result = value>>1 | value&0x80
		carry = value&0x01 != 0
	case 7: // SRL
		result = value >> 1
		carry = value&0x01 != 0
	}

	e.writeOperand8(inst, code, result)

	var f byte
	if result&0x80 != 0 {
		f |= FlagS
	}
	if result == 0 {
		f |= FlagZ
	}
	if parity(result) {
		f |= FlagPV
	}
	if carry {
		f |= FlagC
	}
	e.cpu.F = f
}

// execBIT tests a bit; S, P/V and C are left as they were.
func (e *Executor) execBIT(inst *DecodedInstruction) {
	bit := inst.Opcode >> 3 & 7
	value := e.readOperand8(inst, inst.Opcode&7)

	f := e.cpu.F&(FlagS|FlagPV|FlagC) | FlagH
	if value&(1<<bit) == 0 {
		f |= FlagZ
	}
	e.cpu.F = f
}

func (e *Executor) execRES(inst *DecodedInstruction) {
	bit := inst.Opcode >> 3 & 7
	code := inst.Opcode & 7
	e.writeOperand8(inst, code, e.readOperand8(inst, code)&^(1<<bit))
}

func (e *Executor) execSET(inst *DecodedInstruction) {
	bit := inst.Opcode >> 3 & 7
	code := inst.Opcode & 7
	e.writeOperand8(inst, code, e.readOperand8(inst, code)|1<<bit)
}
