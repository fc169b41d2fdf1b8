package interp

import (
	"fmt"

	"github.com/mickare/runwell/ir"
)

// ErrorKind tags a runtime trap raised while interpreting a Function. These
// exist only to let tests assert *why* a run failed; the interpreter itself
// is not a spec'd component, it exists solely as a test oracle.
type ErrorKind byte

const (
	ErrUnreachable ErrorKind = iota + 1
	ErrIntegerDivideByZero
	ErrIntegerOverflow
	ErrInvalidConversionToInteger
	ErrOutOfBoundsMemoryAccess
	ErrUndefinedFunction
	ErrArgumentCount
)

// Error is the interpreter's trap/fault type.
type Error struct {
	Kind  ErrorKind
	Block ir.Block
	Instr ir.Instr
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrUnreachable:
		return fmt.Sprintf("unreachable executed in %s", e.Block)
	case ErrIntegerDivideByZero:
		return "integer divide by zero"
	case ErrIntegerOverflow:
		return "integer overflow"
	case ErrInvalidConversionToInteger:
		return "invalid conversion to integer (NaN or out of range)"
	case ErrOutOfBoundsMemoryAccess:
		return "out of bounds memory access"
	case ErrUndefinedFunction:
		return "call to undefined function"
	case ErrArgumentCount:
		return "wrong number of arguments"
	default:
		return "interp: unknown error"
	}
}

func errTrap(block ir.Block) *Error { return &Error{Kind: ErrUnreachable, Block: block} }

func errDivZero() *Error { return &Error{Kind: ErrIntegerDivideByZero} }

func errIntOverflow() *Error { return &Error{Kind: ErrIntegerOverflow} }

func errInvalidConversion() *Error { return &Error{Kind: ErrInvalidConversionToInteger} }

func errOOBMemory() *Error { return &Error{Kind: ErrOutOfBoundsMemoryAccess} }

func errUndefinedFunction() *Error { return &Error{Kind: ErrUndefinedFunction} }

func errArgumentCount() *Error { return &Error{Kind: ErrArgumentCount} }
