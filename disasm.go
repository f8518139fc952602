// disasm.go - range disassembler with data sections

package z80emu

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSectionIndex is returned when removing a non-executable section
// that does not exist.
var ErrSectionIndex = errors.New("no such non-executable section")

// DisassemblyLine is one output row: the address of the first byte and
// the rendered text.
type DisassemblyLine struct {
	Address uint16
	Text    string
}

type section struct {
	start, end uint32 // end exclusive
}

// Disassembler walks a memory range, rendering instructions as text and
// registered non-executable sections as DB lines. It borrows the
// machine's decoder and restores PC afterwards, so disassembling never
// perturbs execution state.
type Disassembler struct {
	m        *Machine
	start    uint16
	length   int
	sections []section
}

func NewDisassembler(m *Machine, start uint16, length int) *Disassembler {
	return &Disassembler{m: m, start: start, length: length}
}

// AddNonExecutableSection marks a span of the range as data.
func (d *Disassembler) AddNonExecutableSection(addr uint16, length int) {
	d.sections = append(d.sections, section{uint32(addr), uint32(addr) + uint32(length)})
}

// RemoveNonExecutableSection drops a previously added section by its
// insertion index.
func (d *Disassembler) RemoveNonExecutableSection(index int) error {
	if index < 0 || index >= len(d.sections) {
		return ErrSectionIndex
	}
	d.sections = append(d.sections[:index], d.sections[index+1:]...)
	return nil
}

func (d *Disassembler) sectionAt(addr uint32) (section, bool) {
	for _, s := range d.sections {
		if addr >= s.start && addr < s.end {
			return s, true
		}
	}
	return section{}, false
}

// Disassemble renders the whole range. Data sections come out as DB
// lines of at most sixteen bytes; bytes that do not decode cleanly are
// also rendered as DB.
func (d *Disassembler) Disassemble() []DisassemblyLine {
	cpu := d.m.cpu
	dec := d.m.decoder
	savedPC := cpu.PC
	savedLimit := dec.limit
	defer func() {
		cpu.PC = savedPC
		dec.SetLimit(savedLimit)
	}()

	end := uint32(d.start) + uint32(d.length)
	dec.SetLimit(end)

	var lines []DisassemblyLine
	addr := uint32(d.start)
	for addr < end {
		if s, ok := d.sectionAt(addr); ok {
			chunk := s.end
			if chunk > end {
				chunk = end
			}
			if chunk > addr+16 {
				chunk = addr + 16
			}
			lines = append(lines, DisassemblyLine{
				Address: uint16(addr),
				Text:    d.dataLine(uint16(addr), int(chunk-addr)),
			})
			addr = chunk
			continue
		}

		cpu.PC = uint16(addr)
		inst, err := dec.Fetch()
		if err != nil {
			// Trailing bytes too short for a full instruction.
			lines = append(lines, DisassemblyLine{
				Address: uint16(addr),
				Text:    d.dataLine(uint16(addr), 1),
			})
			addr++
			continue
		}
		text := formatMnemonic(inst)
		if inst.handler == hndNone {
			text = d.dataLine(inst.Address, int(uint32(inst.NextPC)-addr))
		}
		lines = append(lines, DisassemblyLine{Address: inst.Address, Text: text})
		addr = uint32(inst.NextPC)
	}
	return lines
}

func (d *Disassembler) dataLine(addr uint16, length int) string {
	parts := make([]string, length)
	for i := 0; i < length; i++ {
		parts[i] = fmt.Sprintf("%02Xh", d.m.mem.Read(addr+uint16(i)))
	}
	return "DB " + strings.Join(parts, ", ")
}

// formatMnemonic substitutes the operand placeholders of a table
// mnemonic with the decoded values: nn and n as uppercase hex, e as the
// absolute branch target, +d as signed decimal. A zero displacement
// collapses (IX+0) to (IX).
func formatMnemonic(inst *DecodedInstruction) string {
	text := inst.Mnemonic
	if inst.HasDisp && strings.Contains(text, "+d") {
		text = strings.Replace(text, "+d", fmt.Sprintf("%+d", inst.Disp), 1)
		text = strings.Replace(text, "(IX+0)", "(IX)", 1)
		text = strings.Replace(text, "(IY+0)", "(IY)", 1)
	}
	if inst.HasImm16 {
		text = strings.Replace(text, "nn", fmt.Sprintf("%04Xh", inst.Imm16), 1)
	}
	if inst.HasImm8 {
		text = strings.Replace(text, "n", fmt.Sprintf("%02Xh", inst.Imm8), 1)
	}
	if inst.HasDisp && strings.Contains(text, "e") {
		target := uint16(int32(inst.NextPC) + int32(inst.Disp))
		text = strings.Replace(text, "e", fmt.Sprintf("%04Xh", target), 1)
	}
	return text
}
