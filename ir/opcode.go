package ir

// Opcode tags which instruction shape an Instruction holds. The set is
// closed: a central switch on Opcode, not open polymorphism, drives every
// shared behavior (Format, IsTerminal, IsPhi, VisitValues, ReplaceValues).
type Opcode int

const (
	OpInvalid Opcode = iota

	// Constants.
	OpConst

	// Integer binary arithmetic/bitwise.
	OpIAdd
	OpISub
	OpIMul
	OpSDiv
	OpUDiv
	OpSRem
	OpURem
	OpIAnd
	OpIOr
	OpIXor
	OpIShl
	OpIShrS
	OpIShrU
	OpIRotl
	OpIRotr

	// Integer unary.
	OpINeg
	OpIClz
	OpICtz
	OpIPopcnt

	// Integer compare -> Bool.
	OpICmp

	// Integer extend/truncate/convert.
	OpIntWrap      // e.g. i64 -> i32, truncates bit pattern
	OpIntExtend    // widen, Signed flag controls sign- vs zero-extend
	OpIntToFloat   // int -> float, Signed flag controls signed vs unsigned source
	OpFloatToInt   // float -> int (trapping on out-of-range/NaN), Signed flag as above

	// Float binary arithmetic.
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFMin
	OpFMax
	OpFCopysign

	// Float unary.
	OpFNeg
	OpFAbs
	OpFSqrt
	OpFCeil
	OpFFloor
	OpFTrunc
	OpFNearest

	// Float compare -> Bool.
	OpFCmp

	// Float <-> float width conversion (f32 <-> f64).
	OpFloatConvert

	// Bit-level reinterpretation, same width, int <-> float.
	OpReinterpret

	// Memory.
	OpLoad
	OpStore
	OpMemorySize
	OpMemoryGrow

	// Control/value selection.
	OpSelect
	OpPhi

	// Terminals.
	OpReturn
	OpBr
	OpIfThenElse
	OpBrTable
	OpTailCall
	OpTrap
)

// IntCmp is the integer comparison predicate for OpICmp.
type IntCmp byte

const (
	IntEq IntCmp = iota
	IntNe
	IntSlt
	IntSle
	IntSgt
	IntSge
	IntUlt
	IntUle
	IntUgt
	IntUge
)

func (c IntCmp) String() string {
	return [...]string{"eq", "ne", "slt", "sle", "sgt", "sge", "ult", "ule", "ugt", "uge"}[c]
}

// FloatCmp is the float comparison predicate for OpFCmp. Unordered
// (NaN-involving) comparisons follow IEEE-754/Wasm semantics: every
// predicate except Ne is false if either operand is NaN; Ne is true.
type FloatCmp byte

const (
	FloatEq FloatCmp = iota
	FloatNe
	FloatLt
	FloatLe
	FloatGt
	FloatGe
)

func (c FloatCmp) String() string {
	return [...]string{"eq", "ne", "lt", "le", "gt", "ge"}[c]
}

func (op Opcode) String() string {
	switch op {
	case OpConst:
		return "const"
	case OpIAdd:
		return "iadd"
	case OpISub:
		return "isub"
	case OpIMul:
		return "imul"
	case OpSDiv:
		return "sdiv"
	case OpUDiv:
		return "udiv"
	case OpSRem:
		return "srem"
	case OpURem:
		return "urem"
	case OpIAnd:
		return "iand"
	case OpIOr:
		return "ior"
	case OpIXor:
		return "ixor"
	case OpIShl:
		return "ishl"
	case OpIShrS:
		return "ishr_s"
	case OpIShrU:
		return "ishr_u"
	case OpIRotl:
		return "irotl"
	case OpIRotr:
		return "irotr"
	case OpINeg:
		return "ineg"
	case OpIClz:
		return "clz"
	case OpICtz:
		return "ctz"
	case OpIPopcnt:
		return "popcnt"
	case OpICmp:
		return "icmp"
	case OpIntWrap:
		return "iwrap"
	case OpIntExtend:
		return "iextend"
	case OpIntToFloat:
		return "convert_itof"
	case OpFloatToInt:
		return "convert_ftoi"
	case OpFAdd:
		return "fadd"
	case OpFSub:
		return "fsub"
	case OpFMul:
		return "fmul"
	case OpFDiv:
		return "fdiv"
	case OpFMin:
		return "fmin"
	case OpFMax:
		return "fmax"
	case OpFCopysign:
		return "fcopysign"
	case OpFNeg:
		return "fneg"
	case OpFAbs:
		return "fabs"
	case OpFSqrt:
		return "fsqrt"
	case OpFCeil:
		return "fceil"
	case OpFFloor:
		return "ffloor"
	case OpFTrunc:
		return "ftrunc"
	case OpFNearest:
		return "fnearest"
	case OpFCmp:
		return "fcmp"
	case OpFloatConvert:
		return "fconvert"
	case OpReinterpret:
		return "reinterpret"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpMemorySize:
		return "memory_size"
	case OpMemoryGrow:
		return "memory_grow"
	case OpSelect:
		return "select"
	case OpPhi:
		return "phi"
	case OpReturn:
		return "return"
	case OpBr:
		return "br"
	case OpIfThenElse:
		return "ite"
	case OpBrTable:
		return "br_table"
	case OpTailCall:
		return "tail_call"
	case OpTrap:
		return "trap"
	default:
		return "invalid"
	}
}

// IsTerminal reports whether this opcode ends a block.
func (op Opcode) IsTerminal() bool {
	switch op {
	case OpReturn, OpBr, OpIfThenElse, OpBrTable, OpTailCall, OpTrap:
		return true
	default:
		return false
	}
}

// IsPhi reports whether this opcode is the φ shape.
func (op Opcode) IsPhi() bool { return op == OpPhi }

// ProducesValue reports whether instructions of this opcode define a Value.
func (op Opcode) ProducesValue() bool {
	switch op {
	case OpBr, OpTrap, OpStore:
		return false
	case OpReturn, OpIfThenElse, OpBrTable, OpTailCall:
		// OpTailCall reports true, standing for the callee's results, though
		// Builder.TailCall gives it no result Value; the others produce nothing.
		return op == OpTailCall
	default:
		return true
	}
}
