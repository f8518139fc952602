// assembler_test.go - two-pass assembly through the public surface

package assembler

import (
	"bytes"
	"testing"
)

// assemble runs the source and fails the test on any diagnostic.
func assemble(t *testing.T, source ...string) (*Assembler, []byte, []DataSegment) {
	t.Helper()
	a := New()
	ok, code, errs, segments := a.Assemble(source)
	if !ok {
		t.Fatalf("assembly failed: %v", errs)
	}
	return a, code, segments
}

// assembleExpectError runs the source and returns the diagnostics,
// failing the test if there are none.
func assembleExpectError(t *testing.T, source ...string) []AsmError {
	t.Helper()
	a := New()
	ok, _, errs, _ := a.Assemble(source)
	if ok || len(errs) == 0 {
		t.Fatal("assembly succeeded, want errors")
	}
	return errs
}

func requireBytes(t *testing.T, got, want []byte) {
	t.Helper()
	if !bytes.Equal(got, want) {
		t.Fatalf("code = % X, want % X", got, want)
	}
}

func requireErrorKind(t *testing.T, errs []AsmError, kind ErrorKind) {
	t.Helper()
	for _, e := range errs {
		if e.Kind == kind {
			return
		}
	}
	t.Fatalf("errors %v missing kind %q", errs, kind)
}

func TestForwardLabelReference(t *testing.T) {
	a, code, _ := assemble(t,
		"        ORG 8000h",
		"        LD HL,L1",
		"        RET",
		"L1:     DB 42h",
	)
	requireBytes(t, code, []byte{0x21, 0x04, 0x80, 0xC9, 0x42})
	if a.Origin() != 0x8000 {
		t.Fatalf("origin = %04X", a.Origin())
	}
}

func TestRegisterAndImmediateForms(t *testing.T) {
	_, code, _ := assemble(t,
		"        LD A,B",
		"        LD (HL),0AAh",
		"        LD BC,1234h",
		"        ADD A,5",
		"        AND 0Fh",
		"        EX AF,AF'",
	)
	requireBytes(t, code, []byte{
		0x78,
		0x36, 0xAA,
		0x01, 0x34, 0x12,
		0xC6, 0x05,
		0xE6, 0x0F,
		0x08,
	})
}

// Operands carried inside the mnemonic resolve during pass 1.
func TestLiteralOperandMnemonics(t *testing.T) {
	_, code, _ := assemble(t,
		"VEC     EQU 28h",
		"        RST VEC",
		"        IM 1",
		"        BIT 7,(IX+1)",
		"        SET 3,A",
		"        RES 0,(HL)",
	)
	requireBytes(t, code, []byte{
		0xEF,
		0xED, 0x56,
		0xDD, 0xCB, 0x01, 0x7E,
		0xCB, 0xDF,
		0xCB, 0x86,
	})
}

func TestIndexedOperands(t *testing.T) {
	_, code, _ := assemble(t,
		"        LD (IX+5),B",
		"        LD A,(IY-2)",
		"        INC (IX)", // bare form assembles with d = 0
		"        ADD IX,DE",
	)
	requireBytes(t, code, []byte{
		0xDD, 0x70, 0x05,
		0xFD, 0x7E, 0xFE,
		0xDD, 0x34, 0x00,
		0xDD, 0x19,
	})
}

func TestRelativeBranches(t *testing.T) {
	_, code, _ := assemble(t,
		"        ORG 0200h",
		"LOOP:   DEC A",
		"        JR NZ,LOOP",
		"        DJNZ LOOP",
		"        JR DONE",
		"DONE:   RET",
	)
	requireBytes(t, code, []byte{
		0x3D,
		0x20, 0xFD,
		0x10, 0xFB,
		0x18, 0x00,
		0xC9,
	})
}

func TestDataDirectives(t *testing.T) {
	_, code, segments := assemble(t,
		"        ORG 4000h",
		"        DB \"Hi\",0",
		"        DW 1234h,5678h",
		"        DS 3,0FFh",
		"        DB 'A'+1",
	)
	requireBytes(t, code, []byte{
		0x48, 0x69, 0x00,
		0x34, 0x12, 0x78, 0x56,
		0xFF, 0xFF, 0xFF,
		0x42,
	})
	want := []DataSegment{
		{Address: 0x4000, Length: 3},
		{Address: 0x4003, Length: 4},
		{Address: 0x4007, Length: 3},
		{Address: 0x400A, Length: 1},
	}
	if len(segments) != len(want) {
		t.Fatalf("segments = %v, want %v", segments, want)
	}
	for i := range want {
		if segments[i] != want[i] {
			t.Fatalf("segment %d = %v, want %v", i, segments[i], want[i])
		}
	}
}

func TestEquateChainAndCurrentAddress(t *testing.T) {
	_, code, _ := assemble(t,
		"BASE    EQU 1000h",
		"TOP     EQU BASE+0FFh",
		"        ORG BASE",
		"        LD HL,TOP",
		"        LD DE,$", // address of this instruction
	)
	requireBytes(t, code, []byte{
		0x21, 0xFF, 0x10,
		0x11, 0x03, 0x10,
	})
}

func TestDuplicateLabel(t *testing.T) {
	errs := assembleExpectError(t,
		"X:      NOP",
		"X:      NOP",
	)
	requireErrorKind(t, errs, ErrDuplicateLabel)
}

func TestReservedLabelName(t *testing.T) {
	errs := assembleExpectError(t, "HL:     NOP")
	requireErrorKind(t, errs, ErrReservedName)
}

func TestEQURedefinition(t *testing.T) {
	errs := assembleExpectError(t,
		"N       EQU 1",
		"N       EQU 2",
	)
	requireErrorKind(t, errs, ErrEQURedefinition)
}

func TestUnrecognisedInstruction(t *testing.T) {
	errs := assembleExpectError(t, "        MOV A,B")
	requireErrorKind(t, errs, ErrUnrecognisedInstruction)
}

func TestUnresolvedOperand(t *testing.T) {
	errs := assembleExpectError(t, "        LD A,MISSING")
	requireErrorKind(t, errs, ErrUnresolvedOperand)
}

func TestOperandOutOfRange(t *testing.T) {
	errs := assembleExpectError(t, "        LD A,300")
	requireErrorKind(t, errs, ErrOperandOutOfRange)
}

func TestBranchOutOfRange(t *testing.T) {
	errs := assembleExpectError(t,
		"        ORG 0",
		"FAR     EQU 0400h",
		"        JR FAR",
	)
	requireErrorKind(t, errs, ErrDisplacementOutOfRange)
}

func TestDataValueOutOfRange(t *testing.T) {
	errs := assembleExpectError(t, "        DB 999")
	requireErrorKind(t, errs, ErrDataValueOutOfRange)
}

func TestDivideByZero(t *testing.T) {
	errs := assembleExpectError(t, "        DB 1/0")
	requireErrorKind(t, errs, ErrDivideByZero)
}

func TestInvalidORG(t *testing.T) {
	errs := assembleExpectError(t, "        ORG")
	requireErrorKind(t, errs, ErrInvalidORG)
}

// Running the address past the top of memory aborts assembly.
func TestAddressOverflowIsFatal(t *testing.T) {
	errs := assembleExpectError(t,
		"        ORG 0FFFFh",
		"        DW 1,2",
	)
	requireErrorKind(t, errs, ErrAddressOutOfRange)
}

// Non-fatal diagnostics accumulate across lines.
func TestErrorsAccumulate(t *testing.T) {
	errs := assembleExpectError(t,
		"        LD A,NOPE",
		"        DB 999",
	)
	if len(errs) != 2 {
		t.Fatalf("errs = %v, want 2 diagnostics", errs)
	}
	requireErrorKind(t, errs, ErrUnresolvedOperand)
	requireErrorKind(t, errs, ErrDataValueOutOfRange)
	if errs[0].Line != 1 || errs[1].Line != 2 {
		t.Fatalf("lines = %d,%d", errs[0].Line, errs[1].Line)
	}
}
