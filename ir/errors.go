package ir

import "fmt"

// ErrorKind tags which alternative of the builder-side error taxonomy an
// *Error carries.
type ErrorKind byte

const (
	ErrUnmatchingVariableType ErrorKind = iota + 1
	ErrMissingDeclarationForVariable
	ErrReadBeforeWriteVariable
	ErrTooManyVariableDeclarations
	ErrUnreachablePhi
	ErrUnfilledPredecessor
	ErrPredecessorForSealedBlock
	ErrBranchAlreadyExists
	ErrBlockAlreadyFilled
	ErrBlockNotSealedAtFinalize
	ErrBlockNotFilledAtFinalize
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnmatchingVariableType:
		return "UnmatchingVariableType"
	case ErrMissingDeclarationForVariable:
		return "MissingDeclarationForVariable"
	case ErrReadBeforeWriteVariable:
		return "ReadBeforeWriteVariable"
	case ErrTooManyVariableDeclarations:
		return "TooManyVariableDeclarations"
	case ErrUnreachablePhi:
		return "UnreachablePhi"
	case ErrUnfilledPredecessor:
		return "UnfilledPredecessor"
	case ErrPredecessorForSealedBlock:
		return "PredecessorForSealedBlock"
	case ErrBranchAlreadyExists:
		return "BranchAlreadyExists"
	case ErrBlockAlreadyFilled:
		return "BlockAlreadyFilled"
	case ErrBlockNotSealedAtFinalize:
		return "BlockNotSealedAtFinalize"
	case ErrBlockNotFilledAtFinalize:
		return "BlockNotFilledAtFinalize"
	default:
		return "UnknownIrError"
	}
}

// VariableAccess distinguishes a read from a write in
// MissingDeclarationForVariable: either the variable was never declared
// and a read was attempted, or a write targeted an undeclared one.
type VariableAccess struct {
	IsWrite bool
	Value   Value // only meaningful if IsWrite
}

// Error is the single boundary error type for all builder operations. It
// satisfies the error interface and supports errors.As/errors.Is via
// Unwrap, so a wasmfront.Error can wrap one without losing the inner
// cause.
type Error struct {
	Kind ErrorKind

	// Populated depending on Kind; zero values are not meaningful unless
	// the corresponding Kind is set.
	Variable       Variable
	Value          Value
	Declared       Type
	Actual         Type
	Access         VariableAccess
	Block          Block
	UnfilledPred   Block
	SealedBlock    Block
	NewPred        Block
	BranchFrom     Block
	BranchTo       Block

	wrapped error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrUnmatchingVariableType:
		return fmt.Sprintf("unmatching type for %s: declared %s, got value %s of type %s",
			e.Variable, e.Declared, e.Value, e.Actual)
	case ErrMissingDeclarationForVariable:
		if e.Access.IsWrite {
			return fmt.Sprintf("missing declaration for %s on write of %s", e.Variable, e.Access.Value)
		}
		return fmt.Sprintf("missing declaration for %s on read", e.Variable)
	case ErrReadBeforeWriteVariable:
		return fmt.Sprintf("read before write for %s", e.Variable)
	case ErrTooManyVariableDeclarations:
		return "too many variable declarations (exceeds 2^31-1)"
	case ErrUnreachablePhi:
		return fmt.Sprintf("unreachable phi producing %s", e.Value)
	case ErrUnfilledPredecessor:
		return fmt.Sprintf("block %s has unfilled predecessor %s", e.Block, e.UnfilledPred)
	case ErrPredecessorForSealedBlock:
		return fmt.Sprintf("cannot add predecessor %s to already-sealed block %s", e.NewPred, e.SealedBlock)
	case ErrBranchAlreadyExists:
		return fmt.Sprintf("branch from %s to %s already registered", e.BranchFrom, e.BranchTo)
	case ErrBlockAlreadyFilled:
		return fmt.Sprintf("block %s is already filled", e.Block)
	case ErrBlockNotSealedAtFinalize:
		return fmt.Sprintf("block %s is not sealed at finalize", e.Block)
	case ErrBlockNotFilledAtFinalize:
		return fmt.Sprintf("block %s is not filled at finalize", e.Block)
	default:
		return "ir: unknown error"
	}
}

// Unwrap exposes a wrapped cause, if any, so translator-side errors can
// chain to an inner builder error without losing it.
func (e *Error) Unwrap() error { return e.wrapped }

// Is reports whether target is an *Error with the same Kind, supporting
// errors.Is(err, &ir.Error{Kind: ir.ErrBlockAlreadyFilled}) style checks.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

func errUnmatchingVariableType(v Variable, value Value, declared, actual Type) *Error {
	return &Error{Kind: ErrUnmatchingVariableType, Variable: v, Value: value, Declared: declared, Actual: actual}
}

func errMissingDeclWrite(v Variable, value Value) *Error {
	return &Error{Kind: ErrMissingDeclarationForVariable, Variable: v, Access: VariableAccess{IsWrite: true, Value: value}}
}

func errMissingDeclRead(v Variable) *Error {
	return &Error{Kind: ErrMissingDeclarationForVariable, Variable: v}
}

func errReadBeforeWrite(v Variable) *Error {
	return &Error{Kind: ErrReadBeforeWriteVariable, Variable: v}
}

func errTooManyVariableDeclarations() *Error {
	return &Error{Kind: ErrTooManyVariableDeclarations}
}

func errUnreachablePhi(v Value) *Error {
	return &Error{Kind: ErrUnreachablePhi, Value: v}
}

func errUnfilledPredecessor(block, pred Block) *Error {
	return &Error{Kind: ErrUnfilledPredecessor, Block: block, UnfilledPred: pred}
}

func errPredecessorForSealedBlock(sealed, newPred Block) *Error {
	return &Error{Kind: ErrPredecessorForSealedBlock, SealedBlock: sealed, NewPred: newPred}
}

func errBranchAlreadyExists(from, to Block) *Error {
	return &Error{Kind: ErrBranchAlreadyExists, BranchFrom: from, BranchTo: to}
}

func errBlockAlreadyFilled(block Block) *Error {
	return &Error{Kind: ErrBlockAlreadyFilled, Block: block}
}

func errBlockNotSealedAtFinalize(block Block) *Error {
	return &Error{Kind: ErrBlockNotSealedAtFinalize, Block: block}
}

func errBlockNotFilledAtFinalize(block Block) *Error {
	return &Error{Kind: ErrBlockNotFilledAtFinalize, Block: block}
}
