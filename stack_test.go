// stack_test.go

package z80emu

import "testing"

func TestStackPushPop(t *testing.T) {
	cpu := NewCPU()
	mem := NewMemory()
	s := NewStack(cpu, mem)
	cpu.SP = 0x4000

	s.Push(0x1234)
	requireEqualU16(t, "SP", cpu.SP, 0x3FFE)
	requireEqualU8(t, "low byte", mem.Read(0x3FFE), 0x34)
	requireEqualU8(t, "high byte", mem.Read(0x3FFF), 0x12)

	requireEqualU16(t, "popped", s.Pop(), 0x1234)
	requireEqualU16(t, "SP restored", cpu.SP, 0x4000)
}

func TestStackRoundTripOrder(t *testing.T) {
	cpu := NewCPU()
	s := NewStack(cpu, NewMemory())
	cpu.SP = 0x8000

	s.Push(0xAAAA)
	s.Push(0xBBBB)
	requireEqualU16(t, "first pop", s.Pop(), 0xBBBB)
	requireEqualU16(t, "second pop", s.Pop(), 0xAAAA)
	requireEqualU16(t, "SP", cpu.SP, 0x8000)
}

func TestStackWrapsAtZero(t *testing.T) {
	cpu := NewCPU()
	mem := NewMemory()
	s := NewStack(cpu, mem)
	cpu.SP = 0x0001

	s.Push(0xCAFE)
	requireEqualU16(t, "SP", cpu.SP, 0xFFFF)
	requireEqualU8(t, "low at FFFF", mem.Read(0xFFFF), 0xFE)
	requireEqualU8(t, "high at 0000", mem.Read(0x0000), 0xCA)
	requireEqualU16(t, "popped", s.Pop(), 0xCAFE)
}
