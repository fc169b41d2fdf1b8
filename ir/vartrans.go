package ir

import "sort"

// variableDecl is a run of contiguously-declared variables sharing a
// type, stored as (offset, type) rather than one entry per variable.
type variableDecl struct {
	offset uint32 // first variable index in this run
	ty     Type
}

// VariableTranslator maps source-language variables to their SSA
// definitions per basic block. It is used internally by Builder but is
// independently testable: it has no dependency on the SSA construction
// algorithm itself, only on a declare/write/read contract.
type VariableTranslator struct {
	lenVars uint32
	runs    []variableDecl // sorted by offset, for binary search on first write

	// defs lazily-initialized per variable: block -> value, plus the
	// variable's declared type (cached after the first binary-search hit).
	defs map[Variable]*varDefs
}

type varDefs struct {
	ty   Type
	vals map[Block]Value
}

// NewVariableTranslator returns an empty translator.
func NewVariableTranslator() *VariableTranslator {
	return &VariableTranslator{defs: make(map[Variable]*varDefs)}
}

// maxVariables bounds the total number of declared variables to 2^31-1.
const maxVariables = (1 << 31) - 1

// DeclareVariables allocates n fresh contiguous Variable handles of type
// ty, returning the first handle. Returns TooManyVariableDeclarations if
// the running total would exceed 2^31-1.
func (vt *VariableTranslator) DeclareVariables(n int, ty Type) (Variable, *Error) {
	if n <= 0 {
		panic("ir: DeclareVariables requires n > 0")
	}
	offset := vt.lenVars
	newTotal := uint64(vt.lenVars) + uint64(n)
	if newTotal > maxVariables {
		return VariableInvalid, errTooManyVariableDeclarations()
	}
	vt.runs = append(vt.runs, variableDecl{offset: offset, ty: ty})
	vt.lenVars = uint32(newTotal)
	if n == 1 {
		// Fast path: avoid the binary search on first write.
		v := makeVariable(offset)
		vt.defs[v] = &varDefs{ty: ty, vals: make(map[Block]Value)}
	}
	return makeVariable(offset), nil
}

func (vt *VariableTranslator) isDeclared(v Variable) bool {
	return v.Raw() < vt.lenVars
}

// declaredType resolves v's type via binary search over the run list,
// caching the result in vt.defs for O(1) lookups on subsequent calls.
func (vt *VariableTranslator) declaredType(v Variable) Type {
	if d, ok := vt.defs[v]; ok {
		return d.ty
	}
	runs := vt.runs
	i := sort.Search(len(runs), func(i int) bool { return runs[i].offset > v.Raw() }) - 1
	ty := runs[i].ty
	vt.defs[v] = &varDefs{ty: ty, vals: make(map[Block]Value)}
	return ty
}

// WriteVar records v's value in block, type-checking against the
// declaration.
func (vt *VariableTranslator) WriteVar(v Variable, value Value, block Block, typeOf func(Value) Type) *Error {
	if !vt.isDeclared(v) {
		return errMissingDeclWrite(v, value)
	}
	declared := vt.declaredType(v)
	actual := typeOf(value)
	if declared != actual {
		return errUnmatchingVariableType(v, value, declared, actual)
	}
	vt.defs[v].vals[block] = value
	return nil
}

// ForBlock returns the value written to v in block, if any, without
// traversing predecessors.
func (vt *VariableTranslator) ForBlock(v Variable, block Block) (Value, bool, *Error) {
	if !vt.isDeclared(v) {
		return ValueInvalid, false, errMissingDeclRead(v)
	}
	d, ok := vt.defs[v]
	if !ok {
		// Declared but never written and never touched by declaredType —
		// only possible for declarations introduced as part of a >1-sized
		// run whose type has not yet been resolved. Resolve it now so a
		// caller distinguishes ReadBeforeWrite from MissingDeclaration.
		vt.declaredType(v)
		return ValueInvalid, false, nil
	}
	val, ok := d.vals[block]
	return val, ok, nil
}

// EverWritten reports whether v has been written in any block, used to
// distinguish ReadBeforeWriteVariable from a true "unreachable" condition
// caught later at finalize.
func (vt *VariableTranslator) EverWritten(v Variable) bool {
	d, ok := vt.defs[v]
	if !ok {
		return false
	}
	return len(d.vals) > 0
}
