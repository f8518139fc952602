// expression_test.go - operand expression evaluation

package assembler

import (
	"errors"
	"testing"
)

func evalAt(t *testing.T, a *Assembler, expr string, addr uint16) int64 {
	t.Helper()
	value, err := a.evalExpr(expr, addr)
	if err != nil {
		t.Fatalf("eval %q: %v", expr, err)
	}
	return value
}

func TestExpressionForms(t *testing.T) {
	a := New()
	cases := []struct {
		expr string
		want int64
	}{
		{"42", 42},
		{"0FFh", 255},
		{"1Ah", 26},
		{"&FF", 255},
		{"$C000", 0xC000},
		{"%1010", 10},
		{"1010B", 10},
		{"'A'", 65},
		{"\"0\"", 48},
		{"-5", -5},
		{"10+2*3", 36}, // strictly left to right, no precedence
		{"2+3*4", 20},
		{"100/5/2", 10},
		{"7%3", 1},
		{"10--3", 13}, // doubled signs collapse
		{"10+-3", 7},
		{"'A'+1", 66},
	}
	for _, c := range cases {
		if got := evalAt(t, a, c.expr, 0); got != c.want {
			t.Errorf("%q = %d, want %d", c.expr, got, c.want)
		}
	}
}

func TestExpressionCurrentAddress(t *testing.T) {
	a := New()
	if got := evalAt(t, a, "$", 0x1234); got != 0x1234 {
		t.Errorf("$ = %04X", got)
	}
	if got := evalAt(t, a, "$+2", 0x1234); got != 0x1236 {
		t.Errorf("$+2 = %04X", got)
	}
}

func TestExpressionSymbols(t *testing.T) {
	a := New()
	a.labels = map[string]uint16{"START": 0x8000}
	a.equates = map[string]string{"SIZE": "10h", "TOTAL": "SIZE*2"}
	if got := evalAt(t, a, "START+SIZE", 0); got != 0x8010 {
		t.Errorf("START+SIZE = %04X", got)
	}
	// Equates resolve recursively and case-insensitively.
	if got := evalAt(t, a, "total", 0); got != 0x20 {
		t.Errorf("total = %d", got)
	}
}

func TestExpressionErrors(t *testing.T) {
	a := New()
	a.equates = map[string]string{"LOOPBACK": "LOOPBACK+1"}

	if _, err := a.evalExpr("1/0", 0); !errors.Is(err, errDivideByZero) {
		t.Errorf("1/0 err = %v", err)
	}
	if _, err := a.evalExpr("5%0", 0); !errors.Is(err, errDivideByZero) {
		t.Errorf("5%%0 err = %v", err)
	}
	if _, err := a.evalExpr("NOPE", 0); err == nil {
		t.Error("undefined symbol must fail")
	}
	// Self-referential equates bottom out at the depth limit.
	if _, err := a.evalExpr("LOOPBACK", 0); err == nil {
		t.Error("equate cycle must fail")
	}
	if _, err := a.evalExpr("12h 34", 0); err == nil {
		t.Error("trailing characters must fail")
	}
	if _, err := a.evalExpr("12Gh", 0); err == nil {
		t.Error("bad hex digit must fail")
	}
}
