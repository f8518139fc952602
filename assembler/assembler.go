// assembler.go - two-pass Z80 assembler over the interpreter's opcode tables

package assembler

import (
	"fmt"
	"sort"
	"strings"

	z80emu "github.com/PendleCodeMonkey/Z80Emulator"
)

// DataSegment marks a span emitted by a data directive, so callers can
// hand it to the disassembler as a non-executable section.
type DataSegment struct {
	Address uint16
	Length  int
}

// lookupEntry is one row of the sorted instruction lookup: the fully
// normalised mnemonic text and the encoding it selects.
type lookupEntry struct {
	text         string
	prefix       z80emu.Prefix
	opcode       byte
	mode1, mode2 z80emu.AddrMode
}

// operandForm is one normalisation candidate for a source operand:
// the table token it maps to plus the expression left for pass 2.
type operandForm struct {
	norm    string
	expr    string
	indexed bool // expr is an index displacement
	rel     bool // expr is a relative branch target
	imm     bool // expr is an immediate value
}

// lineRecord carries a pass-1 emission forward to pass 2.
type lineRecord struct {
	line   int
	addr   uint16
	length int

	// Instruction placeholder slots, offsets relative to addr.
	dispExpr string
	dispOff  int
	relExpr  string
	relOff   int
	immExpr  string
	immOff   int
	immWidth int

	// Data placeholder slots.
	dataSlots []dataSlot
	dataWidth int
}

type dataSlot struct {
	off  int
	expr string
}

// Assembler is a two-pass assembler. Pass 1 sizes every line, collects
// labels and equates and emits placeholder bytes; pass 2 resolves the
// recorded expressions into the placeholders. Errors accumulate; only
// running the current address past the top of memory aborts early.
type Assembler struct {
	entries  []lookupEntry
	reserved map[string]bool

	labels  map[string]uint16
	equates map[string]string
	records []*lineRecord
	errs    []AsmError

	image       [0x10000]byte
	emittedLow  uint32
	emittedHigh uint32
	segments    []DataSegment

	addr  uint32
	fatal bool
}

func New() *Assembler {
	a := &Assembler{
		reserved: make(map[string]bool),
	}
	defs := z80emu.OpcodeDefs()
	a.entries = make([]lookupEntry, len(defs))
	for i, def := range defs {
		a.entries[i] = lookupEntry{
			text:   def.Mnemonic,
			prefix: def.Prefix,
			opcode: def.Opcode,
			mode1:  def.Mode1,
			mode2:  def.Mode2,
		}
		word := def.Mnemonic
		if i := strings.IndexByte(word, ' '); i >= 0 {
			word = word[:i]
		}
		a.reserved[word] = true
	}
	sort.Slice(a.entries, func(i, j int) bool {
		return a.entries[i].text < a.entries[j].text
	})

	for _, w := range []string{
		"A", "B", "C", "D", "E", "H", "L", "I", "R",
		"AF", "BC", "DE", "HL", "SP", "IX", "IY",
		"NZ", "Z", "NC", "PO", "PE", "P", "M",
		"ORG", "EQU", "DB", "DEFB", "DM", "DEFM", "DW", "DEFW", "DS", "DEFS",
	} {
		a.reserved[w] = true
	}
	return a
}

// lookup binary-searches the sorted entries for an exact normalised
// text match.
func (a *Assembler) lookup(text string) *lookupEntry {
	i := sort.Search(len(a.entries), func(i int) bool {
		return a.entries[i].text >= text
	})
	if i < len(a.entries) && a.entries[i].text == text {
		return &a.entries[i]
	}
	return nil
}

func (a *Assembler) addError(line int, kind ErrorKind, format string, args ...any) {
	a.errs = append(a.errs, AsmError{Line: line, Kind: kind, Detail: fmt.Sprintf(format, args...)})
	if kind == ErrAddressOutOfRange {
		a.fatal = true
	}
}

// Assemble runs both passes over the source. It returns success, the
// emitted bytes from the lowest to the highest written address, the
// accumulated errors, and the data directive segments.
func (a *Assembler) Assemble(source []string) (bool, []byte, []AsmError, []DataSegment) {
	a.labels = make(map[string]uint16)
	a.equates = make(map[string]string)
	a.records = nil
	a.errs = nil
	a.segments = nil
	a.image = [0x10000]byte{}
	a.emittedLow = 0x10000
	a.emittedHigh = 0
	a.addr = 0
	a.fatal = false

	for i, raw := range source {
		a.passOneLine(i+1, raw)
		if a.fatal {
			break
		}
	}
	if !a.fatal {
		a.passTwo()
	}

	var out []byte
	if a.emittedHigh > a.emittedLow {
		out = make([]byte, a.emittedHigh-a.emittedLow)
		copy(out, a.image[a.emittedLow:a.emittedHigh])
	}
	return len(a.errs) == 0, out, a.errs, a.segments
}

// Origin is the lowest address written by the last Assemble call.
func (a *Assembler) Origin() uint16 {
	if a.emittedHigh > a.emittedLow {
		return uint16(a.emittedLow)
	}
	return 0
}

// ---- pass 1 ----

func (a *Assembler) passOneLine(line int, raw string) {
	tok := tokenize(raw)

	if strings.EqualFold(tok.mnemonic, "EQU") {
		a.defineEquate(line, tok)
		return
	}
	if tok.label != "" {
		a.defineLabel(line, tok.label)
	}
	if tok.mnemonic == "" {
		return
	}

	switch strings.ToUpper(tok.mnemonic) {
	case "ORG":
		a.directiveORG(line, tok.operands)
	case "DB", "DEFB", "DM", "DEFM":
		a.directiveDB(line, tok.operands)
	case "DW", "DEFW":
		a.directiveDW(line, tok.operands)
	case "DS", "DEFS":
		a.directiveDS(line, tok.operands)
	default:
		a.instruction(line, tok)
	}
}

func (a *Assembler) defineEquate(line int, tok tokenLine) {
	key := strings.ToUpper(tok.label)
	if a.reserved[key] {
		a.addError(line, ErrReservedName, "%s", tok.label)
		return
	}
	if _, exists := a.equates[key]; exists {
		a.addError(line, ErrEQURedefinition, "%s", tok.label)
		return
	}
	if _, exists := a.labels[key]; exists {
		a.addError(line, ErrEQURedefinition, "%s already a label", tok.label)
		return
	}
	expr := ""
	if len(tok.operands) > 0 {
		expr = tok.operands[0]
	}
	a.equates[key] = expr
}

func (a *Assembler) defineLabel(line int, name string) {
	key := strings.ToUpper(name)
	if a.reserved[key] {
		a.addError(line, ErrReservedName, "%s", name)
		return
	}
	if _, exists := a.labels[key]; exists {
		a.addError(line, ErrDuplicateLabel, "%s", name)
		return
	}
	if _, exists := a.equates[key]; exists {
		a.addError(line, ErrDuplicateLabel, "%s already an equate", name)
		return
	}
	a.labels[key] = uint16(a.addr)
}

func (a *Assembler) directiveORG(line int, operands []string) {
	if len(operands) != 1 {
		a.addError(line, ErrInvalidORG, "ORG needs one operand")
		return
	}
	value, err := a.evalExpr(operands[0], uint16(a.addr))
	if err != nil {
		a.addError(line, ErrInvalidORG, "%v", err)
		return
	}
	if value < 0 || value > 0xFFFF {
		a.addError(line, ErrORGOutOfRange, "%d", value)
		return
	}
	a.addr = uint32(value)
}

// emit writes one byte at the current address, tracking the emitted
// range; the overflow check is fatal.
func (a *Assembler) emit(line int, value byte) bool {
	if a.addr >= 0x10000 {
		a.addError(line, ErrAddressOutOfRange, "address %05Xh", a.addr)
		return false
	}
	if a.addr < a.emittedLow {
		a.emittedLow = a.addr
	}
	a.image[a.addr] = value
	a.addr++
	if a.addr > a.emittedHigh {
		a.emittedHigh = a.addr
	}
	return true
}

func (a *Assembler) directiveDB(line int, operands []string) {
	if len(operands) == 0 {
		a.addError(line, ErrInvalidDataValue, "DB needs operands")
		return
	}
	start := a.addr
	rec := &lineRecord{line: line, addr: uint16(a.addr), dataWidth: 1}
	for _, op := range operands {
		if s, ok := quotedString(op); ok {
			for i := 0; i < len(s); i++ {
				if !a.emit(line, s[i]) {
					return
				}
			}
			continue
		}
		rec.dataSlots = append(rec.dataSlots, dataSlot{off: int(a.addr - start), expr: op})
		if !a.emit(line, 0) {
			return
		}
	}
	rec.length = int(a.addr - start)
	a.records = append(a.records, rec)
	a.segments = append(a.segments, DataSegment{Address: uint16(start), Length: rec.length})
}

func (a *Assembler) directiveDW(line int, operands []string) {
	if len(operands) == 0 {
		a.addError(line, ErrInvalidDataValue, "DW needs operands")
		return
	}
	start := a.addr
	rec := &lineRecord{line: line, addr: uint16(a.addr), dataWidth: 2}
	for _, op := range operands {
		rec.dataSlots = append(rec.dataSlots, dataSlot{off: int(a.addr - start), expr: op})
		if !a.emit(line, 0) || !a.emit(line, 0) {
			return
		}
	}
	rec.length = int(a.addr - start)
	a.records = append(a.records, rec)
	a.segments = append(a.segments, DataSegment{Address: uint16(start), Length: rec.length})
}

// directiveDS reserves space; size and fill must resolve during pass 1.
func (a *Assembler) directiveDS(line int, operands []string) {
	if len(operands) < 1 || len(operands) > 2 {
		a.addError(line, ErrInvalidDataValue, "DS needs a size and optional fill")
		return
	}
	size, err := a.evalExpr(operands[0], uint16(a.addr))
	if err != nil {
		a.addError(line, ErrInvalidDataValue, "DS size: %v", err)
		return
	}
	if size < 0 {
		a.addError(line, ErrInvalidDataValue, "negative DS size %d", size)
		return
	}
	fill := int64(0)
	if len(operands) == 2 {
		fill, err = a.evalExpr(operands[1], uint16(a.addr))
		if err != nil {
			a.addError(line, ErrInvalidDataValue, "DS fill: %v", err)
			return
		}
		if fill < -128 || fill > 255 {
			a.addError(line, ErrDataValueOutOfRange, "DS fill %d", fill)
			return
		}
	}
	start := a.addr
	for i := int64(0); i < size; i++ {
		if !a.emit(line, byte(fill)) {
			return
		}
	}
	a.segments = append(a.segments, DataSegment{Address: uint16(start), Length: int(size)})
}

func quotedString(op string) (string, bool) {
	if len(op) >= 2 && (op[0] == '"' || op[0] == '\'') && op[len(op)-1] == op[0] {
		inner := op[1 : len(op)-1]
		// A single quoted character used arithmetically stays an
		// expression; longer runs are string data.
		if op[0] == '\'' && len(inner) == 1 {
			return "", false
		}
		return inner, true
	}
	return "", false
}

// ---- instruction assembly ----

func (a *Assembler) instruction(line int, tok tokenLine) {
	if len(tok.operands) > 2 {
		a.addError(line, ErrUnrecognisedInstruction, "%s with %d operands", tok.mnemonic, len(tok.operands))
		return
	}

	mnemonic := strings.ToUpper(tok.mnemonic)
	forms := make([][]operandForm, len(tok.operands))
	for i, op := range tok.operands {
		f, err := a.operandForms(line, mnemonic, i, op)
		if err != nil {
			return
		}
		forms[i] = f
	}

	entry, chosen := a.match(mnemonic, forms)
	if entry == nil {
		a.addError(line, ErrUnrecognisedInstruction, "%s", strings.TrimSpace(tok.mnemonic+" "+strings.Join(tok.operands, ",")))
		return
	}
	a.encode(line, entry, chosen)
}

// match tries every candidate combination of operand forms against the
// sorted lookup, in candidate order, so n is preferred over nn and
// (IX) over (IX+d).
func (a *Assembler) match(mnemonic string, forms [][]operandForm) (*lookupEntry, []operandForm) {
	switch len(forms) {
	case 0:
		return a.lookup(mnemonic), nil
	case 1:
		for _, f1 := range forms[0] {
			if e := a.lookup(mnemonic + " " + f1.norm); e != nil {
				return e, []operandForm{f1}
			}
		}
	case 2:
		for _, f1 := range forms[0] {
			for _, f2 := range forms[1] {
				if e := a.lookup(mnemonic + " " + f1.norm + "," + f2.norm); e != nil {
					return e, []operandForm{f1, f2}
				}
			}
		}
	}
	return nil, nil
}

// passThroughOperands are matched by name alone: registers, register
// indirections and condition codes.
var passThroughOperands = map[string]bool{
	"A": true, "B": true, "C": true, "D": true, "E": true, "H": true, "L": true,
	"I": true, "R": true,
	"AF": true, "AF'": true, "BC": true, "DE": true, "HL": true, "SP": true,
	"IX": true, "IY": true,
	"NZ": true, "Z": true, "NC": true, "PO": true, "PE": true, "P": true, "M": true,
	"(HL)": true, "(BC)": true, "(DE)": true, "(SP)": true, "(C)": true,
}

// literalOperandMnemonics carry their first operand inside the
// mnemonic text.
var literalOperandMnemonics = map[string]bool{
	"RST": true, "IM": true, "BIT": true, "RES": true, "SET": true,
}

func (a *Assembler) operandForms(line int, mnemonic string, index int, text string) ([]operandForm, error) {
	trimmed := strings.TrimSpace(text)
	upper := strings.ToUpper(trimmed)

	if passThroughOperands[strings.ReplaceAll(upper, " ", "")] {
		return []operandForm{{norm: strings.ReplaceAll(upper, " ", "")}}, nil
	}

	if literalOperandMnemonics[mnemonic] && index == 0 {
		value, err := a.evalExpr(trimmed, uint16(a.addr))
		if err != nil {
			a.addError(line, ErrUnresolvedOperand, "%s operand: %v", mnemonic, err)
			return nil, err
		}
		if mnemonic == "RST" {
			return []operandForm{{norm: fmt.Sprintf("%02Xh", value)}}, nil
		}
		return []operandForm{{norm: fmt.Sprintf("%d", value)}}, nil
	}

	if strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		innerUpper := strings.ToUpper(inner)
		if innerUpper == "IX" || innerUpper == "IY" {
			return []operandForm{
				{norm: "(" + innerUpper + ")"},
				{norm: "(" + innerUpper + "+d)", expr: "0", indexed: true},
			}, nil
		}
		if len(innerUpper) > 2 && (strings.HasPrefix(innerUpper, "IX") || strings.HasPrefix(innerUpper, "IY")) {
			rest := strings.TrimSpace(inner[2:])
			if strings.HasPrefix(rest, "+") || strings.HasPrefix(rest, "-") {
				return []operandForm{
					{norm: "(" + innerUpper[:2] + "+d)", expr: rest, indexed: true},
				}, nil
			}
		}
		return []operandForm{
			{norm: "(n)", expr: inner, imm: true},
			{norm: "(nn)", expr: inner, imm: true},
		}, nil
	}

	if mnemonic == "JR" || mnemonic == "DJNZ" {
		return []operandForm{{norm: "e", expr: trimmed, rel: true}}, nil
	}

	return []operandForm{
		{norm: "n", expr: trimmed, imm: true},
		{norm: "nn", expr: trimmed, imm: true},
	}, nil
}

// encode lays the matched instruction down with zeroed placeholder
// bytes and records the expressions for pass 2. The index-bit prefixes
// put the displacement between CB and the final opcode.
func (a *Assembler) encode(line int, entry *lookupEntry, chosen []operandForm) {
	rec := &lineRecord{line: line, addr: uint16(a.addr)}
	indexBit := entry.prefix == z80emu.PrefixDDCB || entry.prefix == z80emu.PrefixFDCB

	var bytes []byte
	bytes = append(bytes, entry.prefix.Bytes()...)
	if indexBit {
		rec.dispOff = len(bytes)
		bytes = append(bytes, 0, entry.opcode)
	} else {
		bytes = append(bytes, entry.opcode)
		if needsDisp(entry.mode1) || needsDisp(entry.mode2) {
			rec.dispOff = len(bytes)
			bytes = append(bytes, 0)
		}
	}
	if needsImm8(entry.mode1) || needsImm8(entry.mode2) {
		rec.immOff = len(bytes)
		rec.immWidth = 1
		bytes = append(bytes, 0)
	}
	if needsImm16(entry.mode1) || needsImm16(entry.mode2) {
		rec.immOff = len(bytes)
		rec.immWidth = 2
		bytes = append(bytes, 0, 0)
	}
	rec.length = len(bytes)

	for _, form := range chosen {
		switch {
		case form.indexed:
			rec.dispExpr = form.expr
		case form.rel:
			rec.relExpr = form.expr
			rec.relOff = rec.dispOff
		case form.imm && form.expr != "":
			rec.immExpr = form.expr
		}
	}

	for _, b := range bytes {
		if !a.emit(line, b) {
			return
		}
	}
	a.records = append(a.records, rec)
}

func needsDisp(m z80emu.AddrMode) bool {
	return m == z80emu.ModeIndexed || m == z80emu.ModeRelative
}

func needsImm8(m z80emu.AddrMode) bool {
	return m == z80emu.ModeImmediate
}

func needsImm16(m z80emu.AddrMode) bool {
	return m == z80emu.ModeExtImmediate || m == z80emu.ModeExtended
}

// ---- pass 2 ----

func (a *Assembler) passTwo() {
	for _, rec := range a.records {
		a.resolveRecord(rec)
	}
}

func (a *Assembler) resolveRecord(rec *lineRecord) {
	base := uint32(rec.addr)

	if rec.dispExpr != "" {
		value, err := a.evalExpr(rec.dispExpr, rec.addr)
		switch {
		case err != nil:
			a.evalError(rec.line, err)
		case value < -128 || value > 127:
			a.addError(rec.line, ErrDisplacementOutOfRange, "%d", value)
		default:
			a.image[base+uint32(rec.dispOff)] = byte(value)
		}
	}

	if rec.relExpr != "" {
		target, err := a.evalExpr(rec.relExpr, rec.addr)
		if err != nil {
			a.evalError(rec.line, err)
		} else {
			rel := target - int64(rec.addr) - int64(rec.length)
			if rel < -128 || rel > 127 {
				a.addError(rec.line, ErrDisplacementOutOfRange, "branch distance %d", rel)
			} else {
				a.image[base+uint32(rec.relOff)] = byte(rel)
			}
		}
	}

	if rec.immExpr != "" {
		value, err := a.evalExpr(rec.immExpr, rec.addr)
		switch {
		case err != nil:
			a.evalError(rec.line, err)
		case rec.immWidth == 1 && (value < -128 || value > 255):
			a.addError(rec.line, ErrOperandOutOfRange, "%d", value)
		case rec.immWidth == 2 && (value < -32768 || value > 65535):
			a.addError(rec.line, ErrOperandOutOfRange, "%d", value)
		default:
			a.image[base+uint32(rec.immOff)] = byte(value)
			if rec.immWidth == 2 {
				a.image[base+uint32(rec.immOff)+1] = byte(value >> 8)
			}
		}
	}

	for _, slot := range rec.dataSlots {
		value, err := a.evalExpr(slot.expr, rec.addr)
		switch {
		case err != nil:
			a.evalError(rec.line, err)
		case rec.dataWidth == 1 && (value < -128 || value > 255):
			a.addError(rec.line, ErrDataValueOutOfRange, "%d", value)
		case rec.dataWidth == 2 && (value < -32768 || value > 65535):
			a.addError(rec.line, ErrDataValueOutOfRange, "%d", value)
		default:
			a.image[base+uint32(slot.off)] = byte(value)
			if rec.dataWidth == 2 {
				a.image[base+uint32(slot.off)+1] = byte(value >> 8)
			}
		}
	}
}

func (a *Assembler) evalError(line int, err error) {
	if err == errDivideByZero {
		a.addError(line, ErrDivideByZero, "")
		return
	}
	a.addError(line, ErrUnresolvedOperand, "%v", err)
}
