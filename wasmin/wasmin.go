// Package wasmin defines the minimal, already-validated Wasm input shapes
// the translator in wasmfront consumes: function signatures, value types,
// local declarations and a decoded operator sequence. It deliberately does
// not parse or validate a binary .wasm module -- that job belongs to a
// binary decoder/validator outside this module's scope -- but gives the
// translator the same shapes a validator would hand it.
package wasmin

// ValType is a Wasm value type, the subset relevant to this translator:
// SIMD, reference types and vectors are out of scope.
type ValType byte

const (
	I32 ValType = iota
	I64
	F32
	F64
)

func (t ValType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "invalid"
	}
}

// FuncType is a Wasm function signature. Multi-value results are out of
// scope, so Results has at most one entry.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// LocalEntry is a run-length declaration of Count locals sharing Type,
// mirroring the Wasm binary format's own local-declaration encoding.
type LocalEntry struct {
	Count uint32
	Type  ValType
}

// Op is one decoded Wasm instruction in a function body's operator stream.
// Operands needed by a handful of opcodes (local index, branch depth,
// constant value, branch table targets) are carried directly; opcodes that
// need none leave them zeroed.
type Op struct {
	Code Opcode

	LocalIndex uint32

	ConstI32 int32
	ConstI64 int64
	ConstF32 float32
	ConstF64 float64

	// BrDepth: a relative control-stack depth, per Wasm's branch encoding
	// (0 = innermost enclosing frame).
	BrDepth uint32

	// BrTableDepths: case depths followed by the default depth last,
	// mirroring Wasm's br_table immediate encoding.
	BrTableDepths []uint32

	// Block carries the result arity for OpBlock/OpLoop/OpIf.
	Block BlockType
}

// Opcode enumerates the operator set this translator accepts. The set is
// intentionally smaller than full Wasm: no SIMD, threads, reference
// types, bulk memory, or multi-value.
type Opcode int

const (
	OpInvalid Opcode = iota

	OpLocalGet
	OpLocalSet
	OpLocalTee

	OpI32Const
	OpI64Const
	OpF32Const
	OpF64Const

	OpI32Add
	OpI32Sub
	OpI32Mul
	OpI32DivS
	OpI32DivU
	OpI32RemS
	OpI32RemU
	OpI32And
	OpI32Or
	OpI32Xor
	OpI32Shl
	OpI32ShrS
	OpI32ShrU
	OpI32Rotl
	OpI32Rotr
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32LeS
	OpI32GtS
	OpI32GeS
	OpI32LtU
	OpI32LeU
	OpI32GtU
	OpI32GeU

	OpI64Add
	OpI64Sub
	OpI64Mul
	OpI64DivS
	OpI64DivU
	OpI64RemS
	OpI64RemU
	OpI64And
	OpI64Or
	OpI64Xor
	OpI64Shl
	OpI64ShrS
	OpI64ShrU
	OpI64Rotl
	OpI64Rotr
	OpI64Eq
	OpI64Ne
	OpI64LtS
	OpI64LeS
	OpI64GtS
	OpI64GeS
	OpI64LtU
	OpI64LeU
	OpI64GtU
	OpI64GeU

	OpF32Add
	OpF32Sub
	OpF32Mul
	OpF32Div
	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div

	OpSelect
	OpDrop
	OpNop
	OpUnreachable

	OpBlock
	OpLoop
	OpIf
	OpElse
	OpEnd

	OpBr
	OpBrIf
	OpBrTable
	OpReturn
)

// FunctionBody is a decoded Wasm function ready for translation: its
// signature, its declared locals (beyond the parameters) and its operator
// stream, in source order.
type FunctionBody struct {
	Type   FuncType
	Locals []LocalEntry
	Ops    []Op
}

// BlockType names what a block/loop/if pseudo-instruction carries as its
// result arity. Multi-value block types are out of scope: a block yields
// zero or one value.
type BlockType struct {
	HasResult bool
	Result    ValType
}
