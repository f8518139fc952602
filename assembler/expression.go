// expression.go - operand expression evaluation

package assembler

import (
	"errors"
	"fmt"
	"strings"
)

// Expressions combine +, -, *, / and % strictly left to right with no
// precedence. Atoms are decimal numbers, hex (& or $ prefix, H suffix),
// binary (% prefix, B suffix), character constants, labels, equates and
// $ for the current assembly address. A leading minus negates the
// result; doubled signs collapse first.

var errDivideByZero = errors.New("division by zero")

type unresolvedError struct{ name string }

func (e unresolvedError) Error() string {
	return fmt.Sprintf("unresolved symbol %q", e.name)
}

const maxEquateDepth = 16

type exprParser struct {
	asm   *Assembler
	input string
	pos   int
	addr  uint16
	depth int
}

func (a *Assembler) evalExpr(expr string, addr uint16) (int64, error) {
	return a.evalExprDepth(expr, addr, 0)
}

func (a *Assembler) evalExprDepth(expr string, addr uint16, depth int) (int64, error) {
	if depth > maxEquateDepth {
		return 0, unresolvedError{name: expr}
	}
	p := &exprParser{asm: a, input: collapseSigns(expr), addr: addr, depth: depth}
	value, err := p.parse()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("trailing characters in expression %q", expr)
	}
	return value, nil
}

// collapseSigns folds consecutive sign pairs: -- and ++ become +, +-
// and -+ become -.
func collapseSigns(s string) string {
	for {
		next := strings.ReplaceAll(s, "--", "+")
		next = strings.ReplaceAll(next, "++", "+")
		next = strings.ReplaceAll(next, "+-", "-")
		next = strings.ReplaceAll(next, "-+", "-")
		if next == s {
			return next
		}
		s = next
	}
}

func (p *exprParser) parse() (int64, error) {
	p.skipSpace()
	negate := false
	switch p.peek() {
	case '-':
		negate = true
		p.pos++
	case '+':
		p.pos++
	}

	value, err := p.atom()
	if err != nil {
		return 0, err
	}
	if negate {
		value = -value
	}

	for {
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' && op != '*' && op != '/' && op != '%' {
			break
		}
		p.pos++
		rhs, err := p.atom()
		if err != nil {
			return 0, err
		}
		switch op {
		case '+':
			value += rhs
		case '-':
			value -= rhs
		case '*':
			value *= rhs
		case '/':
			if rhs == 0 {
				return 0, errDivideByZero
			}
			value /= rhs
		case '%':
			if rhs == 0 {
				return 0, errDivideByZero
			}
			value %= rhs
		}
	}
	return value, nil
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) atom() (int64, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == '\'' || c == '"':
		return p.charConstant(c)
	case c == '$':
		p.pos++
		if isHexDigit(p.peek()) {
			return p.number(p.run(isHexDigit), 16)
		}
		return int64(p.addr), nil
	case c == '&':
		p.pos++
		return p.number(p.run(isHexDigit), 16)
	case c == '%':
		p.pos++
		return p.number(p.run(isBinDigit), 2)
	case c >= '0' && c <= '9':
		return p.suffixedNumber()
	case isIdentStart(c):
		return p.symbol()
	}
	return 0, fmt.Errorf("malformed expression %q", p.input)
}

func (p *exprParser) charConstant(quote byte) (int64, error) {
	p.pos++
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unterminated character constant in %q", p.input)
	}
	ch := p.input[p.pos]
	p.pos++
	if p.peek() != quote {
		return 0, fmt.Errorf("unterminated character constant in %q", p.input)
	}
	p.pos++
	return int64(ch), nil
}

// suffixedNumber reads a digit-led run and classifies it by suffix: H
// for hex, B for binary, plain digits for decimal.
func (p *exprParser) suffixedNumber() (int64, error) {
	run := p.run(isAlnum)
	if run == "" {
		return 0, fmt.Errorf("malformed number in %q", p.input)
	}
	last := run[len(run)-1]
	switch {
	case last == 'h' || last == 'H':
		return p.number(run[:len(run)-1], 16)
	case (last == 'b' || last == 'B') && allDigitsIn(run[:len(run)-1], 2):
		return p.number(run[:len(run)-1], 2)
	}
	return p.number(run, 10)
}

func (p *exprParser) number(digits string, base int64) (int64, error) {
	if digits == "" {
		return 0, fmt.Errorf("malformed number in %q", p.input)
	}
	var value int64
	for i := 0; i < len(digits); i++ {
		d := digitValue(digits[i])
		if d < 0 || int64(d) >= base {
			return 0, fmt.Errorf("bad digit %q in %q", digits[i], p.input)
		}
		value = value*base + int64(d)
	}
	return value, nil
}

func (p *exprParser) symbol() (int64, error) {
	name := p.run(isIdentChar)
	key := strings.ToUpper(name)
	if value, ok := p.asm.labels[key]; ok {
		return int64(value), nil
	}
	if expr, ok := p.asm.equates[key]; ok {
		return p.asm.evalExprDepth(expr, p.addr, p.depth+1)
	}
	return 0, unresolvedError{name: name}
}

func (p *exprParser) run(pred func(byte) bool) string {
	start := p.pos
	for p.pos < len(p.input) && pred(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func isBinDigit(c byte) bool {
	return c == '0' || c == '1'
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

func allDigitsIn(s string, base int) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		d := digitValue(s[i])
		if d < 0 || d >= base {
			return false
		}
	}
	return true
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
