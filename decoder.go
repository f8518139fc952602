// decoder.go - prefix-aware instruction fetch and decode

package z80emu

import "errors"

// ErrExecutionOutOfBounds is returned when an instruction fetch reads
// past the end of the loaded executable range.
var ErrExecutionOutOfBounds = errors.New("instruction fetch past end of loaded data")

// DecodedInstruction is one fully fetched instruction: its table row
// plus any trailing operand bytes.
type DecodedInstruction struct {
	Address  uint16 // address of the first byte
	NextPC   uint16 // address of the following instruction
	Prefix   Prefix
	Opcode   byte
	Mnemonic string

	handler      handlerID
	Mode1, Mode2 AddrMode

	Imm8     byte
	HasImm8  bool
	Imm16    uint16
	HasImm16 bool
	Disp     int8
	HasDisp  bool
}

// Decoder fetches instructions at PC, bounded by the exclusive limit of
// the loaded executable range.
type Decoder struct {
	cpu   *CPU
	mem   *Memory
	limit uint32
}

func NewDecoder(cpu *CPU, mem *Memory) *Decoder {
	return &Decoder{cpu: cpu, mem: mem}
}

// SetLimit bounds instruction fetches to addresses below limit.
func (d *Decoder) SetLimit(limit uint32) {
	d.limit = limit
}

func (d *Decoder) fetchByte() (byte, error) {
	if uint32(d.cpu.PC) >= d.limit {
		return 0, ErrExecutionOutOfBounds
	}
	b := d.mem.Read(d.cpu.PC)
	d.cpu.PC++
	return b, nil
}

// Fetch decodes the instruction at PC, advancing PC past it. Opcodes
// with no table row decode as no-ops. Running out of loaded data mid
// instruction is an error.
func (d *Decoder) Fetch() (*DecodedInstruction, error) {
	inst := &DecodedInstruction{Address: d.cpu.PC, Prefix: PrefixNone}

	op, err := d.fetchByte()
	if err != nil {
		return nil, err
	}

	table := &baseTable
	switch op {
	case 0xCB:
		inst.Prefix = PrefixCB
		table = &cbTable
		if op, err = d.fetchByte(); err != nil {
			return nil, err
		}
	case 0xED:
		inst.Prefix = PrefixED
		table = &edTable
		if op, err = d.fetchByte(); err != nil {
			return nil, err
		}
	case 0xDD, 0xFD:
		indexed := PrefixDD
		indexedBit := PrefixDDCB
		table = &ddTable
		bitTable := &ddcbTable
		if op == 0xFD {
			indexed, indexedBit = PrefixFD, PrefixFDCB
			table, bitTable = &fdTable, &fdcbTable
		}
		next, err := d.fetchByte()
		if err != nil {
			return nil, err
		}
		if next == 0xCB {
			// Bit operations on (IX+d)/(IY+d) place the displacement
			// before the final opcode byte.
			inst.Prefix = indexedBit
			table = bitTable
			disp, err := d.fetchByte()
			if err != nil {
				return nil, err
			}
			inst.Disp = int8(disp)
			inst.HasDisp = true
			if op, err = d.fetchByte(); err != nil {
				return nil, err
			}
		} else {
			inst.Prefix = indexed
			op = next
		}
	}

	inst.Opcode = op
	entry := table[op]
	inst.Mnemonic = entry.mnemonic
	inst.handler = entry.handler
	inst.Mode1, inst.Mode2 = entry.mode1, entry.mode2

	if entry.handler == hndNone {
		// Unrecognised slot: treated as a no-op, no operand bytes.
		inst.NextPC = d.cpu.PC
		return inst, nil
	}

	if !inst.HasDisp && (modeNeedsDisp(entry.mode1) || modeNeedsDisp(entry.mode2)) {
		disp, err := d.fetchByte()
		if err != nil {
			return nil, err
		}
		inst.Disp = int8(disp)
		inst.HasDisp = true
	}
	if modeNeedsImm8(entry.mode1) || modeNeedsImm8(entry.mode2) {
		b, err := d.fetchByte()
		if err != nil {
			return nil, err
		}
		inst.Imm8 = b
		inst.HasImm8 = true
	}
	if modeNeedsImm16(entry.mode1) || modeNeedsImm16(entry.mode2) {
		low, err := d.fetchByte()
		if err != nil {
			return nil, err
		}
		high, err := d.fetchByte()
		if err != nil {
			return nil, err
		}
		inst.Imm16 = uint16(high)<<8 | uint16(low)
		inst.HasImm16 = true
	}

	inst.NextPC = d.cpu.PC
	return inst, nil
}

func modeNeedsDisp(m AddrMode) bool {
	return m == ModeRelative || m == ModeIndexed
}

func modeNeedsImm8(m AddrMode) bool {
	return m == ModeImmediate
}

func modeNeedsImm16(m AddrMode) bool {
	return m == ModeExtImmediate || m == ModeExtended
}
