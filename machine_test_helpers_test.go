// machine_test_helpers_test.go - shared rig for machine-level tests

package z80emu

import "testing"

// testRig wraps a Machine with fatal-on-error load and run helpers so
// individual tests stay declarative.
type testRig struct {
	t *testing.T
	m *Machine
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	return &testRig{t: t, m: New(nil)}
}

func newTestRigWithBus(t *testing.T, bus PortBus) *testRig {
	t.Helper()
	return &testRig{t: t, m: New(bus)}
}

func (r *testRig) cpu() *CPU {
	return r.m.CPU()
}

// load places code at addr and points PC at it.
func (r *testRig) load(addr uint16, code ...byte) {
	r.t.Helper()
	if err := r.m.LoadExecutable(code, addr, true); err != nil {
		r.t.Fatalf("LoadExecutable: %v", err)
	}
}

// run executes until the program ends.
func (r *testRig) run() {
	r.t.Helper()
	if err := r.m.Execute(); err != nil {
		r.t.Fatalf("Execute: %v", err)
	}
}

// step executes exactly one instruction.
func (r *testRig) step() {
	r.t.Helper()
	if err := r.m.ExecuteOne(); err != nil {
		r.t.Fatalf("ExecuteOne: %v", err)
	}
}

func requireEqualU8(t *testing.T, name string, got, want byte) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = %02X, want %02X", name, got, want)
	}
}

func requireEqualU16(t *testing.T, name string, got, want uint16) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = %04X, want %04X", name, got, want)
	}
}

func requireFlags(t *testing.T, cpu *CPU, want byte) {
	t.Helper()
	if cpu.F != want {
		t.Fatalf("F = %02X (%s), want %02X (%s)", cpu.F, flagLetters(cpu.F), want, flagLetters(want))
	}
}

// testPortBus records OUT traffic and serves IN from a canned map.
type testPortBus struct {
	in  map[uint16]byte
	out map[uint16][]byte
}

func newTestPortBus() *testPortBus {
	return &testPortBus{
		in:  make(map[uint16]byte),
		out: make(map[uint16][]byte),
	}
}

func (b *testPortBus) In(port uint16) byte {
	return b.in[port]
}

func (b *testPortBus) Out(port uint16, value byte) {
	b.out[port] = append(b.out[port], value)
}
