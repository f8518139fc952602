// memory.go - 64 KiB flat memory with block load and dump

package z80emu

import "errors"

// MemorySize is the full Z80 address space.
const MemorySize = 0x10000

// ErrMemoryOverflow is returned when a block load would run past the top
// of memory.
var ErrMemoryOverflow = errors.New("load exceeds top of memory")

// Memory is the flat 64 KiB byte space. All 16-bit address arithmetic
// wraps naturally modulo 64 Ki.
type Memory struct {
	data [MemorySize]byte
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Read(addr uint16) byte {
	return m.data[addr]
}

func (m *Memory) Write(addr uint16, value byte) {
	m.data[addr] = value
}

// ReadWord reads a little-endian 16-bit value; the high byte read wraps
// at the top of memory.
func (m *Memory) ReadWord(addr uint16) uint16 {
	low := m.data[addr]
	high := m.data[addr+1]
	return uint16(high)<<8 | uint16(low)
}

func (m *Memory) WriteWord(addr uint16, value uint16) {
	m.data[addr] = byte(value)
	m.data[addr+1] = byte(value >> 8)
}

func (m *Memory) Clear() {
	m.data = [MemorySize]byte{}
}

// Load copies data into memory at addr, optionally clearing all of
// memory first. It fails without touching memory if the block would
// extend past the top of the address space.
func (m *Memory) Load(data []byte, addr uint16, clearFirst bool) error {
	if int(addr)+len(data) > MemorySize {
		return ErrMemoryOverflow
	}
	if clearFirst {
		m.Clear()
	}
	copy(m.data[addr:], data)
	return nil
}

// Dump returns a copy of length bytes starting at addr, truncated at the
// top of memory.
func (m *Memory) Dump(addr uint16, length int) []byte {
	if length <= 0 {
		return nil
	}
	end := int(addr) + length
	if end > MemorySize {
		end = MemorySize
	}
	out := make([]byte, end-int(addr))
	copy(out, m.data[addr:end])
	return out
}
