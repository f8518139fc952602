// errors.go - structured assembly error records

package assembler

import "fmt"

// ErrorKind classifies an assembly diagnostic.
type ErrorKind int

const (
	ErrDuplicateLabel ErrorKind = iota
	ErrReservedName
	ErrEQURedefinition
	ErrInvalidORG
	ErrORGOutOfRange
	ErrUnrecognisedInstruction
	ErrUnresolvedOperand
	ErrInvalidDataValue
	ErrDataValueOutOfRange
	ErrOperandOutOfRange
	ErrDisplacementOutOfRange
	ErrDivideByZero
	// ErrAddressOutOfRange is the only fatal kind: the current address
	// ran past the top of memory and assembly cannot continue.
	ErrAddressOutOfRange
)

func (k ErrorKind) String() string {
	switch k {
	case ErrDuplicateLabel:
		return "duplicate label"
	case ErrReservedName:
		return "reserved name"
	case ErrEQURedefinition:
		return "EQU redefinition"
	case ErrInvalidORG:
		return "invalid ORG"
	case ErrORGOutOfRange:
		return "ORG out of range"
	case ErrUnrecognisedInstruction:
		return "unrecognised instruction"
	case ErrUnresolvedOperand:
		return "unresolved operand"
	case ErrInvalidDataValue:
		return "invalid data value"
	case ErrDataValueOutOfRange:
		return "data value out of range"
	case ErrOperandOutOfRange:
		return "operand out of range"
	case ErrDisplacementOutOfRange:
		return "displacement out of range"
	case ErrDivideByZero:
		return "division by zero"
	case ErrAddressOutOfRange:
		return "address out of range"
	}
	return "unknown error"
}

// AsmError ties a diagnostic to its 1-based source line.
type AsmError struct {
	Line   int
	Kind   ErrorKind
	Detail string
}

func (e AsmError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Kind)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Detail)
}
