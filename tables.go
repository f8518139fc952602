// tables.go - opcode tables: opcode -> (mnemonic, handler id, addressing modes)

package z80emu

import "fmt"

// Prefix identifies which of the seven opcode tables an instruction was
// decoded from.
type Prefix byte

const (
	PrefixNone Prefix = iota
	PrefixCB
	PrefixED
	PrefixDD
	PrefixFD
	PrefixDDCB
	PrefixFDCB
)

func (p Prefix) String() string {
	switch p {
	case PrefixNone:
		return "none"
	case PrefixCB:
		return "CB"
	case PrefixED:
		return "ED"
	case PrefixDD:
		return "DD"
	case PrefixFD:
		return "FD"
	case PrefixDDCB:
		return "DD CB"
	case PrefixFDCB:
		return "FD CB"
	}
	return "?"
}

// Bytes returns the prefix byte sequence emitted ahead of the opcode.
func (p Prefix) Bytes() []byte {
	switch p {
	case PrefixCB:
		return []byte{0xCB}
	case PrefixED:
		return []byte{0xED}
	case PrefixDD:
		return []byte{0xDD}
	case PrefixFD:
		return []byte{0xFD}
	case PrefixDDCB:
		return []byte{0xDD, 0xCB}
	case PrefixFDCB:
		return []byte{0xFD, 0xCB}
	}
	return nil
}

// AddrMode describes how an instruction operand is addressed. The
// decoder uses the mode pair to decide which trailing bytes to fetch.
type AddrMode byte

const (
	ModeNone AddrMode = iota
	ModeImplied
	ModeImmediate    // 8-bit operand byte follows
	ModeExtImmediate // 16-bit little-endian operand follows
	ModeRegister
	ModeRegIndirect // memory through a register pair, no trailing bytes
	ModeExtended    // 16-bit little-endian address follows
	ModePageZero    // RST target encoded in the opcode
	ModeRelative    // signed displacement byte follows
	ModeIndexed     // (IX+d)/(IY+d); signed displacement byte follows
	ModeBit         // bit number encoded in the opcode
)

// handlerID names the semantic routine an opcode dispatches to. Around a
// hundred handlers cover the whole documented set; each recovers its
// register, pair, condition or bit index from the opcode bit fields.
type handlerID byte

const (
	hndNone handlerID = iota

	hndNOP
	hndHALT
	hndDAA
	hndCPL
	hndSCF
	hndCCF
	hndEXX
	hndEXAFAF
	hndEXDEHL
	hndEXSPHL
	hndDI
	hndEI
	hndRLCA
	hndRRCA
	hndRLA
	hndRRA

	hndLD8RegReg
	hndLD8Imm
	hndLDABCInd
	hndLDBCIndA
	hndLDADEInd
	hndLDDEIndA
	hndLDAExt
	hndLDExtA
	hndLD16Imm
	hndLDHLExt
	hndLDExtHL
	hndLDSPHL

	hndINC8
	hndDEC8
	hndADD8
	hndADC8
	hndSUB8
	hndSBC8
	hndAND8
	hndXOR8
	hndOR8
	hndCP8
	hndADDHL16
	hndINC16
	hndDEC16

	hndJP
	hndJPCond
	hndJPHL
	hndJR
	hndJRCond
	hndDJNZ
	hndCALL
	hndCALLCond
	hndRET
	hndRETCond
	hndRST
	hndPUSH
	hndPOP

	hndINNA
	hndOUTNA

	hndRotShift
	hndBIT
	hndRES
	hndSET

	hndINRC
	hndOUTCR
	hndADCHL16
	hndSBCHL16
	hndLDExt16
	hndLD16Ext
	hndNEG
	hndRETI
	hndRETN
	hndIM
	hndLDIA
	hndLDRA
	hndLDAI
	hndLDAR
	hndRRD
	hndRLD
	hndLDI
	hndLDD
	hndLDIR
	hndLDDR
	hndCPI
	hndCPD
	hndCPIR
	hndCPDR
	hndINI
	hndIND
	hndINIR
	hndINDR
	hndOUTI
	hndOUTD
	hndOTIR
	hndOTDR

	// hndIXIYIndirect redirects a DD/FD (or DD CB/FD CB) opcode to the
	// same slot of the unprefixed (or CB) table; the routed handler then
	// resolves HL-relative operands against IX+d or IY+d instead.
	hndIXIYIndirect
)

type opcodeEntry struct {
	mnemonic     string
	handler      handlerID
	mode1, mode2 AddrMode
}

type opcodeTable [256]opcodeEntry

func (t *opcodeTable) valid(op byte) bool {
	return t[op].handler != hndNone
}

// Operand name fragments indexed by the opcode bit fields.
var (
	regNames      = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	pairNames     = [4]string{"BC", "DE", "HL", "SP"}
	pushPairNames = [4]string{"BC", "DE", "HL", "AF"}
	condNames     = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	aluNames      = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
	rotNames      = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "", "SRL"}
	aluHandlers   = [8]handlerID{hndADD8, hndADC8, hndSUB8, hndSBC8, hndAND8, hndXOR8, hndOR8, hndCP8}
)

var (
	baseTable = buildBaseTable()
	cbTable   = buildCBTable()
	edTable   = buildEDTable()
	ddTable   = buildIndexTable("IX")
	fdTable   = buildIndexTable("IY")
	ddcbTable = buildIndexBitTable("IX")
	fdcbTable = buildIndexBitTable("IY")
)

func ent(mnemonic string, handler handlerID, mode1, mode2 AddrMode) opcodeEntry {
	return opcodeEntry{mnemonic: mnemonic, handler: handler, mode1: mode1, mode2: mode2}
}

func buildBaseTable() opcodeTable {
	var t opcodeTable

	t[0x00] = ent("NOP", hndNOP, ModeImplied, ModeNone)
	t[0x07] = ent("RLCA", hndRLCA, ModeImplied, ModeNone)
	t[0x0F] = ent("RRCA", hndRRCA, ModeImplied, ModeNone)
	t[0x17] = ent("RLA", hndRLA, ModeImplied, ModeNone)
	t[0x1F] = ent("RRA", hndRRA, ModeImplied, ModeNone)
	t[0x27] = ent("DAA", hndDAA, ModeImplied, ModeNone)
	t[0x2F] = ent("CPL", hndCPL, ModeImplied, ModeNone)
	t[0x37] = ent("SCF", hndSCF, ModeImplied, ModeNone)
	t[0x3F] = ent("CCF", hndCCF, ModeImplied, ModeNone)

	t[0x08] = ent("EX AF,AF'", hndEXAFAF, ModeRegister, ModeRegister)
	t[0xD9] = ent("EXX", hndEXX, ModeImplied, ModeNone)
	t[0xE3] = ent("EX (SP),HL", hndEXSPHL, ModeRegIndirect, ModeRegister)
	t[0xEB] = ent("EX DE,HL", hndEXDEHL, ModeRegister, ModeRegister)

	t[0x02] = ent("LD (BC),A", hndLDBCIndA, ModeRegIndirect, ModeRegister)
	t[0x0A] = ent("LD A,(BC)", hndLDABCInd, ModeRegister, ModeRegIndirect)
	t[0x12] = ent("LD (DE),A", hndLDDEIndA, ModeRegIndirect, ModeRegister)
	t[0x1A] = ent("LD A,(DE)", hndLDADEInd, ModeRegister, ModeRegIndirect)
	t[0x22] = ent("LD (nn),HL", hndLDExtHL, ModeExtended, ModeRegister)
	t[0x2A] = ent("LD HL,(nn)", hndLDHLExt, ModeRegister, ModeExtended)
	t[0x32] = ent("LD (nn),A", hndLDExtA, ModeExtended, ModeRegister)
	t[0x3A] = ent("LD A,(nn)", hndLDAExt, ModeRegister, ModeExtended)
	t[0xF9] = ent("LD SP,HL", hndLDSPHL, ModeRegister, ModeRegister)

	// 16-bit pair block: LD rr,nn / INC rr / DEC rr / ADD HL,rr.
	for code := byte(0); code < 4; code++ {
		base := code << 4
		t[base+0x01] = ent("LD "+pairNames[code]+",nn", hndLD16Imm, ModeRegister, ModeExtImmediate)
		t[base+0x03] = ent("INC "+pairNames[code], hndINC16, ModeRegister, ModeNone)
		t[base+0x0B] = ent("DEC "+pairNames[code], hndDEC16, ModeRegister, ModeNone)
		t[base+0x09] = ent("ADD HL,"+pairNames[code], hndADDHL16, ModeRegister, ModeRegister)
	}

	// 8-bit INC/DEC/LD r,n block, including the (HL) slots.
	for code := byte(0); code < 8; code++ {
		mode := ModeRegister
		if code == 6 {
			mode = ModeRegIndirect
		}
		t[code<<3|0x04] = ent("INC "+regNames[code], hndINC8, mode, ModeNone)
		t[code<<3|0x05] = ent("DEC "+regNames[code], hndDEC8, mode, ModeNone)
		t[code<<3|0x06] = ent("LD "+regNames[code]+",n", hndLD8Imm, mode, ModeImmediate)
	}

	// Relative jumps.
	t[0x10] = ent("DJNZ e", hndDJNZ, ModeRelative, ModeNone)
	t[0x18] = ent("JR e", hndJR, ModeRelative, ModeNone)
	for code := byte(0); code < 4; code++ {
		t[0x20+code<<3] = ent("JR "+condNames[code]+",e", hndJRCond, ModeRelative, ModeNone)
	}

	// LD r,r' block; 0x76 is HALT, not LD (HL),(HL).
	for dest := byte(0); dest < 8; dest++ {
		for src := byte(0); src < 8; src++ {
			op := 0x40 | dest<<3 | src
			if op == 0x76 {
				t[op] = ent("HALT", hndHALT, ModeImplied, ModeNone)
				continue
			}
			m1, m2 := ModeRegister, ModeRegister
			if dest == 6 {
				m1 = ModeRegIndirect
			}
			if src == 6 {
				m2 = ModeRegIndirect
			}
			t[op] = ent("LD "+regNames[dest]+","+regNames[src], hndLD8RegReg, m1, m2)
		}
	}

	// ALU blocks: register forms 0x80-0xBF, immediate forms 0xC6-0xFE.
	for group := byte(0); group < 8; group++ {
		for src := byte(0); src < 8; src++ {
			m2 := ModeRegister
			if src == 6 {
				m2 = ModeRegIndirect
			}
			t[0x80|group<<3|src] = ent(aluNames[group]+regNames[src], aluHandlers[group], ModeRegister, m2)
		}
		t[0xC6+group<<3] = ent(aluNames[group]+"n", aluHandlers[group], ModeRegister, ModeImmediate)
	}

	// Conditional and unconditional flow, stack pairs, RST.
	for code := byte(0); code < 8; code++ {
		t[0xC0+code<<3] = ent("RET "+condNames[code], hndRETCond, ModeImplied, ModeNone)
		t[0xC2+code<<3] = ent("JP "+condNames[code]+",nn", hndJPCond, ModeExtImmediate, ModeNone)
		t[0xC4+code<<3] = ent("CALL "+condNames[code]+",nn", hndCALLCond, ModeExtImmediate, ModeNone)
		t[0xC7+code<<3] = ent(fmt.Sprintf("RST %02Xh", code*8), hndRST, ModePageZero, ModeNone)
	}
	for code := byte(0); code < 4; code++ {
		t[0xC1+code<<4] = ent("POP "+pushPairNames[code], hndPOP, ModeRegister, ModeNone)
		t[0xC5+code<<4] = ent("PUSH "+pushPairNames[code], hndPUSH, ModeRegister, ModeNone)
	}
	t[0xC3] = ent("JP nn", hndJP, ModeExtImmediate, ModeNone)
	t[0xC9] = ent("RET", hndRET, ModeImplied, ModeNone)
	t[0xCD] = ent("CALL nn", hndCALL, ModeExtImmediate, ModeNone)
	t[0xE9] = ent("JP (HL)", hndJPHL, ModeRegIndirect, ModeNone)

	t[0xD3] = ent("OUT (n),A", hndOUTNA, ModeImmediate, ModeRegister)
	t[0xDB] = ent("IN A,(n)", hndINNA, ModeRegister, ModeImmediate)

	t[0xF3] = ent("DI", hndDI, ModeImplied, ModeNone)
	t[0xFB] = ent("EI", hndEI, ModeImplied, ModeNone)

	// 0xCB, 0xDD, 0xED and 0xFD are prefixes; their slots stay empty.
	return t
}

func buildCBTable() opcodeTable {
	var t opcodeTable

	// Rotate/shift groups; group 6 (SLL) is undocumented and left out.
	for group := byte(0); group < 8; group++ {
		if group == 6 {
			continue
		}
		for code := byte(0); code < 8; code++ {
			m1 := ModeRegister
			if code == 6 {
				m1 = ModeRegIndirect
			}
			t[group<<3|code] = ent(rotNames[group]+" "+regNames[code], hndRotShift, m1, ModeNone)
		}
	}

	for bit := byte(0); bit < 8; bit++ {
		for code := byte(0); code < 8; code++ {
			m2 := ModeRegister
			if code == 6 {
				m2 = ModeRegIndirect
			}
			operand := fmt.Sprintf("%d,%s", bit, regNames[code])
			t[0x40|bit<<3|code] = ent("BIT "+operand, hndBIT, ModeBit, m2)
			t[0x80|bit<<3|code] = ent("RES "+operand, hndRES, ModeBit, m2)
			t[0xC0|bit<<3|code] = ent("SET "+operand, hndSET, ModeBit, m2)
		}
	}
	return t
}

func buildEDTable() opcodeTable {
	var t opcodeTable

	// IN r,(C) / OUT (C),r; the r=6 slots are undocumented and left out.
	for code := byte(0); code < 8; code++ {
		if code == 6 {
			continue
		}
		t[0x40|code<<3] = ent("IN "+regNames[code]+",(C)", hndINRC, ModeRegister, ModeRegIndirect)
		t[0x41|code<<3] = ent("OUT (C),"+regNames[code], hndOUTCR, ModeRegIndirect, ModeRegister)
	}

	for code := byte(0); code < 4; code++ {
		base := code << 4
		t[0x42+base] = ent("SBC HL,"+pairNames[code], hndSBCHL16, ModeRegister, ModeRegister)
		t[0x4A+base] = ent("ADC HL,"+pairNames[code], hndADCHL16, ModeRegister, ModeRegister)
		t[0x43+base] = ent("LD (nn),"+pairNames[code], hndLDExt16, ModeExtended, ModeRegister)
		t[0x4B+base] = ent("LD "+pairNames[code]+",(nn)", hndLD16Ext, ModeRegister, ModeExtended)
	}

	t[0x44] = ent("NEG", hndNEG, ModeImplied, ModeNone)
	t[0x45] = ent("RETN", hndRETN, ModeImplied, ModeNone)
	t[0x4D] = ent("RETI", hndRETI, ModeImplied, ModeNone)
	t[0x46] = ent("IM 0", hndIM, ModeImplied, ModeNone)
	t[0x56] = ent("IM 1", hndIM, ModeImplied, ModeNone)
	t[0x5E] = ent("IM 2", hndIM, ModeImplied, ModeNone)

	t[0x47] = ent("LD I,A", hndLDIA, ModeRegister, ModeRegister)
	t[0x4F] = ent("LD R,A", hndLDRA, ModeRegister, ModeRegister)
	t[0x57] = ent("LD A,I", hndLDAI, ModeRegister, ModeRegister)
	t[0x5F] = ent("LD A,R", hndLDAR, ModeRegister, ModeRegister)
	t[0x67] = ent("RRD", hndRRD, ModeImplied, ModeNone)
	t[0x6F] = ent("RLD", hndRLD, ModeImplied, ModeNone)

	t[0xA0] = ent("LDI", hndLDI, ModeImplied, ModeNone)
	t[0xA8] = ent("LDD", hndLDD, ModeImplied, ModeNone)
	t[0xB0] = ent("LDIR", hndLDIR, ModeImplied, ModeNone)
	t[0xB8] = ent("LDDR", hndLDDR, ModeImplied, ModeNone)
	t[0xA1] = ent("CPI", hndCPI, ModeImplied, ModeNone)
	t[0xA9] = ent("CPD", hndCPD, ModeImplied, ModeNone)
	t[0xB1] = ent("CPIR", hndCPIR, ModeImplied, ModeNone)
	t[0xB9] = ent("CPDR", hndCPDR, ModeImplied, ModeNone)
	t[0xA2] = ent("INI", hndINI, ModeImplied, ModeNone)
	t[0xAA] = ent("IND", hndIND, ModeImplied, ModeNone)
	t[0xB2] = ent("INIR", hndINIR, ModeImplied, ModeNone)
	t[0xBA] = ent("INDR", hndINDR, ModeImplied, ModeNone)
	t[0xA3] = ent("OUTI", hndOUTI, ModeImplied, ModeNone)
	t[0xAB] = ent("OUTD", hndOUTD, ModeImplied, ModeNone)
	t[0xB3] = ent("OTIR", hndOTIR, ModeImplied, ModeNone)
	t[0xBB] = ent("OTDR", hndOTDR, ModeImplied, ModeNone)

	return t
}

// buildIndexTable lays out the DD (IX) or FD (IY) table. Every entry
// routes through hndIXIYIndirect; the mnemonics substitute the index
// register into the corresponding unprefixed forms.
func buildIndexTable(idx string) opcodeTable {
	var t opcodeTable
	ind := "(" + idx + "+d)"

	for code := byte(0); code < 4; code++ {
		operand := pairNames[code]
		if code == 2 {
			operand = idx
		}
		t[0x09+code<<4] = ent("ADD "+idx+","+operand, hndIXIYIndirect, ModeRegister, ModeRegister)
	}
	t[0x21] = ent("LD "+idx+",nn", hndIXIYIndirect, ModeRegister, ModeExtImmediate)
	t[0x22] = ent("LD (nn),"+idx, hndIXIYIndirect, ModeExtended, ModeRegister)
	t[0x2A] = ent("LD "+idx+",(nn)", hndIXIYIndirect, ModeRegister, ModeExtended)
	t[0x23] = ent("INC "+idx, hndIXIYIndirect, ModeRegister, ModeNone)
	t[0x2B] = ent("DEC "+idx, hndIXIYIndirect, ModeRegister, ModeNone)

	t[0x34] = ent("INC "+ind, hndIXIYIndirect, ModeIndexed, ModeNone)
	t[0x35] = ent("DEC "+ind, hndIXIYIndirect, ModeIndexed, ModeNone)
	t[0x36] = ent("LD "+ind+",n", hndIXIYIndirect, ModeIndexed, ModeImmediate)

	for dest := byte(0); dest < 8; dest++ {
		if dest == 6 {
			continue
		}
		t[0x46|dest<<3] = ent("LD "+regNames[dest]+","+ind, hndIXIYIndirect, ModeRegister, ModeIndexed)
		t[0x70|dest] = ent("LD "+ind+","+regNames[dest], hndIXIYIndirect, ModeIndexed, ModeRegister)
	}
	for group := byte(0); group < 8; group++ {
		t[0x86|group<<3] = ent(aluNames[group]+ind, hndIXIYIndirect, ModeRegister, ModeIndexed)
	}

	t[0xE1] = ent("POP "+idx, hndIXIYIndirect, ModeRegister, ModeNone)
	t[0xE3] = ent("EX (SP),"+idx, hndIXIYIndirect, ModeRegIndirect, ModeRegister)
	t[0xE5] = ent("PUSH "+idx, hndIXIYIndirect, ModeRegister, ModeNone)
	t[0xE9] = ent("JP ("+idx+")", hndIXIYIndirect, ModeRegIndirect, ModeNone)
	t[0xF9] = ent("LD SP,"+idx, hndIXIYIndirect, ModeRegister, ModeRegister)

	return t
}

// buildIndexBitTable lays out the DD CB (IX) or FD CB (IY) table. Only
// the (IX+d)/(IY+d) column is documented; every entry redirects into the
// CB table.
func buildIndexBitTable(idx string) opcodeTable {
	var t opcodeTable
	ind := "(" + idx + "+d)"

	for group := byte(0); group < 8; group++ {
		if group == 6 {
			continue
		}
		t[group<<3|6] = ent(rotNames[group]+" "+ind, hndIXIYIndirect, ModeIndexed, ModeNone)
	}
	for bit := byte(0); bit < 8; bit++ {
		operand := fmt.Sprintf("%d,%s", bit, ind)
		t[0x46|bit<<3] = ent("BIT "+operand, hndIXIYIndirect, ModeBit, ModeIndexed)
		t[0x86|bit<<3] = ent("RES "+operand, hndIXIYIndirect, ModeBit, ModeIndexed)
		t[0xC6|bit<<3] = ent("SET "+operand, hndIXIYIndirect, ModeBit, ModeIndexed)
	}
	return t
}

// OpcodeDef is one table row in exported form; the assembler derives its
// mnemonic lookup from the full set.
type OpcodeDef struct {
	Prefix       Prefix
	Opcode       byte
	Mnemonic     string
	Mode1, Mode2 AddrMode
}

// OpcodeDefs enumerates every defined row of all seven tables.
func OpcodeDefs() []OpcodeDef {
	tables := []struct {
		prefix Prefix
		table  *opcodeTable
	}{
		{PrefixNone, &baseTable},
		{PrefixCB, &cbTable},
		{PrefixED, &edTable},
		{PrefixDD, &ddTable},
		{PrefixFD, &fdTable},
		{PrefixDDCB, &ddcbTable},
		{PrefixFDCB, &fdcbTable},
	}
	var defs []OpcodeDef
	for _, src := range tables {
		for op := 0; op < 256; op++ {
			e := src.table[op]
			if e.handler == hndNone {
				continue
			}
			defs = append(defs, OpcodeDef{
				Prefix:   src.prefix,
				Opcode:   byte(op),
				Mnemonic: e.mnemonic,
				Mode1:    e.mode1,
				Mode2:    e.mode2,
			})
		}
	}
	return defs
}
