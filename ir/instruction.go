package ir

import (
	"fmt"
	"sort"
	"strings"
)

// phiOperand is one (predecessor block, incoming value) pair of a φ.
type phiOperand struct {
	pred Block
	val  Value
}

// Instruction is a tagged sum over every instruction shape the IR defines.
// A single central switch on Opcode backs every shared behavior: this type
// intentionally has no per-shape subtype.
type Instruction struct {
	op Opcode
	ty Type // result type; TypeInvalid if ProducesValue() is false

	// Up to two fixed operands cover every binary/unary/compare/convert
	// shape without allocating a slice; extra variadic operands (brtable
	// targets' arguments, tail-call arguments, phi operands) use the
	// slices below.
	a, b Value

	constVal Const

	// convert/extend/truncate/reinterpret shapes.
	srcType Type
	signed  bool

	cmpI IntCmp
	cmpF FloatCmp

	// memory.
	mem       Mem
	memOffset uint32

	// control flow.
	target     Block // Br
	targetThen Block // IfThenElse
	targetElse Block // IfThenElse
	targets    []Block // BrTable: [default, case0, case1, ...]
	tableIndex Value   // BrTable selector

	calleeFunc Func
	sig        FuncType
	callArgs   []Value

	phis []phiOperand // ordered by pred.Raw() ascending
}

// Opcode returns the instruction's opcode tag.
func (in *Instruction) Opcode() Opcode { return in.op }

// Type returns the instruction's result type (TypeInvalid if it defines no
// value).
func (in *Instruction) Type() Type { return in.ty }

// IsTerminal reports whether this instruction ends its block (Br,
// IfThenElse, BrTable, Return, TailCall, Trap).
func (in *Instruction) IsTerminal() bool { return in.op.IsTerminal() }

// IsPhi reports whether this instruction is a φ.
func (in *Instruction) IsPhi() bool { return in.op.IsPhi() }

// ConstValue returns the constant carried by an OpConst instruction.
func (in *Instruction) ConstValue() Const { return in.constVal }

// BinaryArgs returns the two operands of a binary/compare instruction.
func (in *Instruction) BinaryArgs() (Value, Value) { return in.a, in.b }

// UnaryArg returns the single operand of a unary/convert/select-condition
// style instruction (whichever opcode only uses `a`).
func (in *Instruction) UnaryArg() Value { return in.a }

// IntCmpOp returns the predicate of an OpICmp instruction.
func (in *Instruction) IntCmpOp() IntCmp { return in.cmpI }

// FloatCmpOp returns the predicate of an OpFCmp instruction.
func (in *Instruction) FloatCmpOp() FloatCmp { return in.cmpF }

// SourceType returns the source type of a convert/extend/truncate/reinterpret
// instruction.
func (in *Instruction) SourceType() Type { return in.srcType }

// Signed reports the sign-extension/signed-conversion flag.
func (in *Instruction) Signed() bool { return in.signed }

// SelectArgs returns (cond, ifTrue, ifFalse) for an OpSelect instruction.
func (in *Instruction) SelectArgs() (Value, Value, Value) { return in.a, in.b, in.target2Value() }

// target2Value is a private accessor reusing tableIndex as the "else" value
// operand for Select, to avoid a third named field for a single opcode.
func (in *Instruction) target2Value() Value { return in.tableIndex }

// MemRef returns the memory operand of a load/store/memory-size/memory-grow
// instruction.
func (in *Instruction) MemRef() Mem { return in.mem }

// MemOffset returns the static byte offset of a load/store instruction.
func (in *Instruction) MemOffset() uint32 { return in.memOffset }

// MemAddr returns the dynamic address operand of a load/store instruction.
func (in *Instruction) MemAddr() Value { return in.a }

// MemStoreValue returns the value operand of a store instruction.
func (in *Instruction) MemStoreValue() Value { return in.b }

// MemGrowDelta returns the page-count delta operand of a memory.grow.
func (in *Instruction) MemGrowDelta() Value { return in.a }

// ReturnValue returns the operand of an OpReturn instruction (ValueInvalid
// if the function returns no value).
func (in *Instruction) ReturnValue() Value { return in.a }

// BrTarget returns the target of an OpBr instruction.
func (in *Instruction) BrTarget() Block { return in.target }

// IfThenElseArgs returns (cond, thenTarget, elseTarget) for OpIfThenElse.
func (in *Instruction) IfThenElseArgs() (Value, Block, Block) {
	return in.a, in.targetThen, in.targetElse
}

// BrTableArgs returns the selector value and one ordered target slice: the
// default target at index 0, followed by the case targets.
func (in *Instruction) BrTableArgs() (index Value, targets []Block) {
	return in.tableIndex, in.targets
}

// TailCallArgs returns the callee, its signature and the call arguments.
func (in *Instruction) TailCallArgs() (Func, FuncType, []Value) {
	return in.calleeFunc, in.sig, in.callArgs
}

// PhiOperand returns the operand flowing from pred, if any.
func (in *Instruction) PhiOperand(pred Block) (Value, bool) {
	for _, p := range in.phis {
		if p.pred == pred {
			return p.val, true
		}
	}
	return ValueInvalid, false
}

// PhiPreds returns the φ's predecessor domain, in ascending block-id order.
func (in *Instruction) PhiPreds() []Block {
	out := make([]Block, len(in.phis))
	for i, p := range in.phis {
		out[i] = p.pred
	}
	return out
}

// AppendPhiOperand appends an operand for pred, keeping the map block-id
// ordered for deterministic printing. Panics if pred already has an
// operand: callers (the builder) are responsible for not doing this.
func (in *Instruction) AppendPhiOperand(pred Block, v Value) {
	for _, p := range in.phis {
		if p.pred == pred {
			panic("ir: BUG: duplicate phi operand for predecessor " + pred.String())
		}
	}
	in.phis = append(in.phis, phiOperand{pred: pred, val: v})
	sort.Slice(in.phis, func(i, j int) bool { return in.phis[i].pred.Raw() < in.phis[j].pred.Raw() })
}

// ReplacePhiValue rewrites every occurrence of old to new within this φ's
// operands, reporting whether any change occurred.
func (in *Instruction) ReplacePhiValue(old, new Value) (changed bool) {
	for i := range in.phis {
		if in.phis[i].val == old {
			in.phis[i].val = new
			changed = true
		}
	}
	return changed
}

// VisitValues invokes f(value) for each Value operand in left-to-right
// textual order; f returns false to stop early. The mutable counterpart,
// ReplaceValues, is the sole machinery used for global value replacement.
func (in *Instruction) VisitValues(f func(Value) bool) {
	visit := func(v Value) bool {
		if !v.Valid() {
			return true
		}
		return f(v)
	}
	switch in.op {
	case OpConst, OpMemorySize, OpTrap:
		return
	case OpIAdd, OpISub, OpIMul, OpSDiv, OpUDiv, OpSRem, OpURem,
		OpIAnd, OpIOr, OpIXor, OpIShl, OpIShrS, OpIShrU, OpIRotl, OpIRotr,
		OpICmp, OpFAdd, OpFSub, OpFMul, OpFDiv, OpFMin, OpFMax, OpFCopysign, OpFCmp:
		if !visit(in.a) {
			return
		}
		visit(in.b)
	case OpINeg, OpIClz, OpICtz, OpIPopcnt,
		OpFNeg, OpFAbs, OpFSqrt, OpFCeil, OpFFloor, OpFTrunc, OpFNearest,
		OpIntWrap, OpIntExtend, OpIntToFloat, OpFloatToInt, OpFloatConvert, OpReinterpret,
		OpReturn, OpMemoryGrow:
		visit(in.a)
	case OpSelect:
		if !visit(in.a) {
			return
		}
		if !visit(in.b) {
			return
		}
		visit(in.tableIndex)
	case OpLoad:
		visit(in.a)
	case OpStore:
		if !visit(in.a) {
			return
		}
		visit(in.b)
	case OpIfThenElse:
		visit(in.a)
	case OpBrTable:
		visit(in.tableIndex)
	case OpTailCall:
		for _, v := range in.callArgs {
			if !visit(v) {
				return
			}
		}
	case OpBr:
		return
	case OpPhi:
		for _, p := range in.phis {
			if !visit(p.val) {
				return
			}
		}
	}
}

// ReplaceValues invokes f(&value) for each operand; f mutates in place and
// reports whether it replaced the value. The aggregate return is whether
// any replacement occurred.
func (in *Instruction) ReplaceValues(f func(Value) (Value, bool)) (changed bool) {
	apply := func(v *Value) {
		if !v.Valid() {
			return
		}
		if nv, ok := f(*v); ok {
			*v = nv
			changed = true
		}
	}
	switch in.op {
	case OpIAdd, OpISub, OpIMul, OpSDiv, OpUDiv, OpSRem, OpURem,
		OpIAnd, OpIOr, OpIXor, OpIShl, OpIShrS, OpIShrU, OpIRotl, OpIRotr,
		OpICmp, OpFAdd, OpFSub, OpFMul, OpFDiv, OpFMin, OpFMax, OpFCopysign, OpFCmp, OpStore:
		apply(&in.a)
		apply(&in.b)
	case OpINeg, OpIClz, OpICtz, OpIPopcnt,
		OpFNeg, OpFAbs, OpFSqrt, OpFCeil, OpFFloor, OpFTrunc, OpFNearest,
		OpIntWrap, OpIntExtend, OpIntToFloat, OpFloatToInt, OpFloatConvert, OpReinterpret,
		OpReturn, OpMemoryGrow, OpLoad, OpIfThenElse:
		apply(&in.a)
	case OpSelect:
		apply(&in.a)
		apply(&in.b)
		apply(&in.tableIndex)
	case OpBrTable:
		apply(&in.tableIndex)
	case OpTailCall:
		for i := range in.callArgs {
			apply(&in.callArgs[i])
		}
	case OpPhi:
		for i := range in.phis {
			apply(&in.phis[i].val)
		}
	}
	return changed
}

// Format renders the instruction's textual IR form. Value/Block renderings
// are vN/bbN; the phi rendering is "ϕ [ bb0 -> v3, bb1 -> v7 ]".
func (in *Instruction) Format() string {
	switch in.op {
	case OpConst:
		return fmt.Sprintf("const<%s> %s", in.ty, in.constVal)
	case OpIAdd, OpISub, OpIMul, OpSDiv, OpUDiv, OpSRem, OpURem, OpIAnd, OpIOr, OpIXor:
		return fmt.Sprintf("%s<%s> %s %s", in.op, in.ty, in.a, in.b)
	case OpIShl, OpIShrS, OpIShrU, OpIRotl, OpIRotr:
		return fmt.Sprintf("%s<%s> %s %s", in.op, in.ty, in.a, in.b)
	case OpINeg, OpIClz, OpICtz, OpIPopcnt:
		return fmt.Sprintf("%s<%s> %s", in.op, in.ty, in.a)
	case OpICmp:
		return fmt.Sprintf("icmp<%s> %s %s %s", in.cmpI, in.srcType, in.a, in.b)
	case OpFAdd, OpFSub, OpFMul, OpFDiv, OpFMin, OpFMax, OpFCopysign:
		return fmt.Sprintf("%s<%s> %s %s", in.op, in.ty, in.a, in.b)
	case OpFNeg, OpFAbs, OpFSqrt, OpFCeil, OpFFloor, OpFTrunc, OpFNearest:
		return fmt.Sprintf("%s<%s> %s", in.op, in.ty, in.a)
	case OpFCmp:
		return fmt.Sprintf("fcmp<%s> %s %s %s", in.cmpF, in.srcType, in.a, in.b)
	case OpIntWrap, OpIntExtend, OpIntToFloat, OpFloatToInt, OpFloatConvert, OpReinterpret:
		signedFlag := ""
		if in.op == OpIntExtend || in.op == OpIntToFloat || in.op == OpFloatToInt {
			if in.signed {
				signedFlag = "_s"
			} else {
				signedFlag = "_u"
			}
		}
		return fmt.Sprintf("%s%s<%s,%s> %s", in.op, signedFlag, in.srcType, in.ty, in.a)
	case OpSelect:
		return fmt.Sprintf("select %s %s %s", in.a, in.b, in.tableIndex)
	case OpLoad:
		return fmt.Sprintf("load<%s> %s[%s+%d]", in.ty, in.mem, in.a, in.memOffset)
	case OpStore:
		return fmt.Sprintf("store %s[%s+%d] %s", in.mem, in.a, in.memOffset, in.b)
	case OpMemorySize:
		return fmt.Sprintf("memory_size %s", in.mem)
	case OpMemoryGrow:
		return fmt.Sprintf("memory_grow %s %s", in.mem, in.a)
	case OpPhi:
		parts := make([]string, len(in.phis))
		for i, p := range in.phis {
			parts[i] = fmt.Sprintf("%s -> %s", p.pred, p.val)
		}
		return fmt.Sprintf("ϕ [ %s ]", strings.Join(parts, ", "))
	case OpReturn:
		if !in.a.Valid() {
			return "return"
		}
		return fmt.Sprintf("return %s", in.a)
	case OpBr:
		return fmt.Sprintf("br %s", in.target)
	case OpIfThenElse:
		return fmt.Sprintf("ite %s then=%s else=%s", in.a, in.targetThen, in.targetElse)
	case OpBrTable:
		parts := make([]string, len(in.targets))
		for i, t := range in.targets {
			parts[i] = t.String()
		}
		return fmt.Sprintf("br_table %s [%s]", in.tableIndex, strings.Join(parts, ", "))
	case OpTailCall:
		parts := make([]string, len(in.callArgs))
		for i, a := range in.callArgs {
			parts[i] = a.String()
		}
		return fmt.Sprintf("tail_call %s(%s)", in.calleeFunc, strings.Join(parts, ", "))
	case OpTrap:
		return "trap"
	default:
		return "<invalid instruction>"
	}
}
