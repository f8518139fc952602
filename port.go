// port.go - I/O port bus contract

package z80emu

// PortBus is the 16-bit addressed I/O space driven by the IN and OUT
// instruction families. Implementations are supplied by the caller at
// machine construction.
type PortBus interface {
	In(port uint16) byte
	Out(port uint16, value byte)
}

// DummyPortBus swallows writes and reads back zero. It is the default
// when no port bus is injected.
type DummyPortBus struct{}

func (DummyPortBus) In(port uint16) byte { return 0 }

func (DummyPortBus) Out(port uint16, value byte) {}
