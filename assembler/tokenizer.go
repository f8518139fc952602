// tokenizer.go - source line splitting: label, mnemonic, operands

package assembler

import "strings"

// tokenLine is one source line reduced to its parts. An equate line
// ("name EQU expr" or "name = expr") comes back with mnemonic "EQU",
// the name in label and the expression as the single operand.
type tokenLine struct {
	label    string
	mnemonic string
	operands []string
}

// quoteStart reports whether a quote character at position i opens a
// literal. A quote glued to the previous identifier character (AF')
// does not.
func quoteStart(s string, i int) bool {
	if i == 0 {
		return true
	}
	prev := s[i-1]
	return !(prev >= 'A' && prev <= 'Z' || prev >= 'a' && prev <= 'z' ||
		prev >= '0' && prev <= '9' || prev == '\'' || prev == '"')
}

// stripComment removes everything from the first semicolon that is not
// inside a quoted literal.
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			if quoteStart(line, i) {
				quote = c
			}
		case c == ';':
			return line[:i]
		}
	}
	return line
}

// splitOperands splits an operand field on commas outside quoted
// literals. Quoted strings stay single operands.
func splitOperands(s string) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			if quoteStart(s, i) {
				quote = c
			}
		case c == ',':
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	last := strings.TrimSpace(s[start:])
	if last != "" || len(parts) > 0 {
		parts = append(parts, last)
	}
	return parts
}

// tokenize breaks a raw source line apart. It returns the zero value
// for blank and comment-only lines.
func tokenize(raw string) tokenLine {
	line := strings.TrimSpace(stripComment(raw))
	if line == "" {
		return tokenLine{}
	}

	var tok tokenLine

	// Leading label, terminated by a colon.
	if i := strings.IndexByte(line, ':'); i >= 0 && isIdentifier(line[:i]) {
		tok.label = line[:i]
		line = strings.TrimSpace(line[i+1:])
		if line == "" {
			return tok
		}
	}

	first := line
	rest := ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		first = line[:i]
		rest = strings.TrimSpace(line[i+1:])
	}

	// Equate: "name EQU expr" or "name = expr".
	if tok.label == "" && rest != "" && isIdentifier(first) {
		word := rest
		tail := ""
		if i := strings.IndexAny(rest, " \t"); i >= 0 {
			word = rest[:i]
			tail = strings.TrimSpace(rest[i+1:])
		}
		if strings.EqualFold(word, "EQU") || word == "=" {
			tok.label = first
			tok.mnemonic = "EQU"
			tok.operands = []string{tail}
			return tok
		}
	}

	tok.mnemonic = first
	if rest != "" {
		tok.operands = splitOperands(rest)
	}
	return tok
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
