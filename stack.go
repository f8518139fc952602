// stack.go - PUSH/POP engine over SP

package z80emu

// Stack performs 16-bit pushes and pops through memory at SP. SP
// arithmetic wraps modulo 64 Ki like every other address.
type Stack struct {
	cpu *CPU
	mem *Memory
}

func NewStack(cpu *CPU, mem *Memory) *Stack {
	return &Stack{cpu: cpu, mem: mem}
}

// Push stores the high byte first so the low byte sits at the lower
// address, with SP left pointing at it.
func (s *Stack) Push(value uint16) {
	s.cpu.SP--
	s.mem.Write(s.cpu.SP, byte(value>>8))
	s.cpu.SP--
	s.mem.Write(s.cpu.SP, byte(value))
}

// Pop reads the little-endian word at SP and advances SP past it.
func (s *Stack) Pop() uint16 {
	low := s.mem.Read(s.cpu.SP)
	high := s.mem.Read(s.cpu.SP + 1)
	s.cpu.SP += 2
	return uint16(high)<<8 | uint16(low)
}
