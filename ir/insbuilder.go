package ir

// This file holds the typed instruction constructors: one method per
// instruction shape, each appending to the current block and returning the
// Value it defines (ValueInvalid for value-less shapes). Every
// constructor is a thin wrapper around emit, which does the arena
// bookkeeping appendInstr needs.

func (b *Builder) emit(instr Instruction, resultType Type) (Value, *Error) {
	_, v, err := b.appendInstr(b.current, instr, resultType)
	return v, err
}

// Constant appends a const instruction of type ty.
func (b *Builder) Constant(ty Type, c Const) (Value, *Error) {
	return b.emit(Instruction{op: OpConst, ty: ty, constVal: c}, ty)
}

func (b *Builder) intBinary(op Opcode, ty Type, a, val Value) (Value, *Error) {
	return b.emit(Instruction{op: op, ty: ty, a: a, b: val}, ty)
}

func (b *Builder) IAdd(ty Type, a, val Value) (Value, *Error)   { return b.intBinary(OpIAdd, ty, a, val) }
func (b *Builder) ISub(ty Type, a, val Value) (Value, *Error)   { return b.intBinary(OpISub, ty, a, val) }
func (b *Builder) IMul(ty Type, a, val Value) (Value, *Error)   { return b.intBinary(OpIMul, ty, a, val) }
func (b *Builder) SDiv(ty Type, a, val Value) (Value, *Error)   { return b.intBinary(OpSDiv, ty, a, val) }
func (b *Builder) UDiv(ty Type, a, val Value) (Value, *Error)   { return b.intBinary(OpUDiv, ty, a, val) }
func (b *Builder) SRem(ty Type, a, val Value) (Value, *Error)   { return b.intBinary(OpSRem, ty, a, val) }
func (b *Builder) URem(ty Type, a, val Value) (Value, *Error)   { return b.intBinary(OpURem, ty, a, val) }
func (b *Builder) IAnd(ty Type, a, val Value) (Value, *Error)   { return b.intBinary(OpIAnd, ty, a, val) }
func (b *Builder) IOr(ty Type, a, val Value) (Value, *Error)    { return b.intBinary(OpIOr, ty, a, val) }
func (b *Builder) IXor(ty Type, a, val Value) (Value, *Error)   { return b.intBinary(OpIXor, ty, a, val) }
func (b *Builder) IShl(ty Type, a, val Value) (Value, *Error)   { return b.intBinary(OpIShl, ty, a, val) }
func (b *Builder) IShrS(ty Type, a, val Value) (Value, *Error)  { return b.intBinary(OpIShrS, ty, a, val) }
func (b *Builder) IShrU(ty Type, a, val Value) (Value, *Error)  { return b.intBinary(OpIShrU, ty, a, val) }
func (b *Builder) IRotl(ty Type, a, val Value) (Value, *Error)  { return b.intBinary(OpIRotl, ty, a, val) }
func (b *Builder) IRotr(ty Type, a, val Value) (Value, *Error)  { return b.intBinary(OpIRotr, ty, a, val) }

func (b *Builder) intUnary(op Opcode, ty Type, a Value) (Value, *Error) {
	return b.emit(Instruction{op: op, ty: ty, a: a}, ty)
}

func (b *Builder) INeg(ty Type, a Value) (Value, *Error)    { return b.intUnary(OpINeg, ty, a) }
func (b *Builder) IClz(ty Type, a Value) (Value, *Error)    { return b.intUnary(OpIClz, ty, a) }
func (b *Builder) ICtz(ty Type, a Value) (Value, *Error)    { return b.intUnary(OpICtz, ty, a) }
func (b *Builder) IPopcnt(ty Type, a Value) (Value, *Error) { return b.intUnary(OpIPopcnt, ty, a) }

// ICmp appends an integer comparison; srcType is the operand type, the
// result is always TypeBool.
func (b *Builder) ICmp(pred IntCmp, srcType Type, a, val Value) (Value, *Error) {
	return b.emit(Instruction{op: OpICmp, ty: TypeBool, srcType: srcType, cmpI: pred, a: a, b: val}, TypeBool)
}

func (b *Builder) floatBinary(op Opcode, ty Type, a, val Value) (Value, *Error) {
	return b.emit(Instruction{op: op, ty: ty, a: a, b: val}, ty)
}

func (b *Builder) FAdd(ty Type, a, val Value) (Value, *Error) { return b.floatBinary(OpFAdd, ty, a, val) }
func (b *Builder) FSub(ty Type, a, val Value) (Value, *Error) { return b.floatBinary(OpFSub, ty, a, val) }
func (b *Builder) FMul(ty Type, a, val Value) (Value, *Error) { return b.floatBinary(OpFMul, ty, a, val) }
func (b *Builder) FDiv(ty Type, a, val Value) (Value, *Error) { return b.floatBinary(OpFDiv, ty, a, val) }
func (b *Builder) FMin(ty Type, a, val Value) (Value, *Error) { return b.floatBinary(OpFMin, ty, a, val) }
func (b *Builder) FMax(ty Type, a, val Value) (Value, *Error) { return b.floatBinary(OpFMax, ty, a, val) }
func (b *Builder) FCopysign(ty Type, a, val Value) (Value, *Error) {
	return b.floatBinary(OpFCopysign, ty, a, val)
}

func (b *Builder) floatUnary(op Opcode, ty Type, a Value) (Value, *Error) {
	return b.emit(Instruction{op: op, ty: ty, a: a}, ty)
}

func (b *Builder) FNeg(ty Type, a Value) (Value, *Error)     { return b.floatUnary(OpFNeg, ty, a) }
func (b *Builder) FAbs(ty Type, a Value) (Value, *Error)     { return b.floatUnary(OpFAbs, ty, a) }
func (b *Builder) FSqrt(ty Type, a Value) (Value, *Error)    { return b.floatUnary(OpFSqrt, ty, a) }
func (b *Builder) FCeil(ty Type, a Value) (Value, *Error)    { return b.floatUnary(OpFCeil, ty, a) }
func (b *Builder) FFloor(ty Type, a Value) (Value, *Error)   { return b.floatUnary(OpFFloor, ty, a) }
func (b *Builder) FTrunc(ty Type, a Value) (Value, *Error)   { return b.floatUnary(OpFTrunc, ty, a) }
func (b *Builder) FNearest(ty Type, a Value) (Value, *Error) { return b.floatUnary(OpFNearest, ty, a) }

// FCmp appends a float comparison; srcType is the operand type, the result
// is always TypeBool.
func (b *Builder) FCmp(pred FloatCmp, srcType Type, a, val Value) (Value, *Error) {
	return b.emit(Instruction{op: OpFCmp, ty: TypeBool, srcType: srcType, cmpF: pred, a: a, b: val}, TypeBool)
}

// IntWrap narrows an integer, truncating its bit pattern (e.g. i64 -> i32).
func (b *Builder) IntWrap(dst, src Type, a Value) (Value, *Error) {
	return b.emit(Instruction{op: OpIntWrap, ty: dst, srcType: src, a: a}, dst)
}

// IntExtend widens an integer; signed selects sign- vs zero-extension.
func (b *Builder) IntExtend(dst, src Type, signed bool, a Value) (Value, *Error) {
	return b.emit(Instruction{op: OpIntExtend, ty: dst, srcType: src, signed: signed, a: a}, dst)
}

// IntToFloat converts an integer operand to a float result.
func (b *Builder) IntToFloat(dst, src Type, signed bool, a Value) (Value, *Error) {
	return b.emit(Instruction{op: OpIntToFloat, ty: dst, srcType: src, signed: signed, a: a}, dst)
}

// FloatToInt converts a float operand to an integer result, trapping on
// out-of-range or NaN input.
func (b *Builder) FloatToInt(dst, src Type, signed bool, a Value) (Value, *Error) {
	return b.emit(Instruction{op: OpFloatToInt, ty: dst, srcType: src, signed: signed, a: a}, dst)
}

// FloatConvert converts between f32 and f64.
func (b *Builder) FloatConvert(dst, src Type, a Value) (Value, *Error) {
	return b.emit(Instruction{op: OpFloatConvert, ty: dst, srcType: src, a: a}, dst)
}

// Reinterpret bit-casts a same-width int<->float operand.
func (b *Builder) Reinterpret(dst, src Type, a Value) (Value, *Error) {
	return b.emit(Instruction{op: OpReinterpret, ty: dst, srcType: src, a: a}, dst)
}

// Select appends a value-level select (as opposed to a branch): result is
// ifTrue if cond is non-zero, else ifFalse.
func (b *Builder) Select(ty Type, cond, ifTrue, ifFalse Value) (Value, *Error) {
	return b.emit(Instruction{op: OpSelect, ty: ty, a: cond, b: ifTrue, tableIndex: ifFalse}, ty)
}

// Load appends a typed load from mem at addr+offset.
func (b *Builder) Load(ty Type, mem Mem, addr Value, offset uint32) (Value, *Error) {
	return b.emit(Instruction{op: OpLoad, ty: ty, mem: mem, a: addr, memOffset: offset}, ty)
}

// Store appends a store of value to mem at addr+offset.
func (b *Builder) Store(mem Mem, addr Value, offset uint32, value Value) (Value, *Error) {
	return b.emit(Instruction{op: OpStore, mem: mem, a: addr, memOffset: offset, b: value}, TypeInvalid)
}

// MemorySize appends a memory.size query, in page units.
func (b *Builder) MemorySize(mem Mem) (Value, *Error) {
	return b.emit(Instruction{op: OpMemorySize, ty: TypeI32, mem: mem}, TypeI32)
}

// MemoryGrow appends a memory.grow by delta pages, returning the previous
// size in pages or -1 on failure.
func (b *Builder) MemoryGrow(mem Mem, delta Value) (Value, *Error) {
	return b.emit(Instruction{op: OpMemoryGrow, ty: TypeI32, mem: mem, a: delta}, TypeI32)
}

// Return appends a function return terminal carrying value (ValueInvalid
// for a void return).
func (b *Builder) Return(value Value) *Error {
	_, err := b.emit(Instruction{op: OpReturn, a: value}, TypeInvalid)
	return err
}

// Br appends an unconditional branch terminal to target, registering the
// current block as target's predecessor.
func (b *Builder) Br(target Block) *Error {
	_, err := b.emit(Instruction{op: OpBr, target: target}, TypeInvalid)
	return err
}

// IfThenElse appends a conditional branch terminal.
func (b *Builder) IfThenElse(cond Value, thenTarget, elseTarget Block) *Error {
	_, err := b.emit(Instruction{op: OpIfThenElse, a: cond, targetThen: thenTarget, targetElse: elseTarget}, TypeInvalid)
	return err
}

// BrTable appends a multi-way branch terminal; targets[0] is the default
// case, selected when index is out of range of the remaining cases.
func (b *Builder) BrTable(index Value, targets []Block) *Error {
	_, err := b.emit(Instruction{op: OpBrTable, tableIndex: index, targets: targets}, TypeInvalid)
	return err
}

// TailCall appends a tail-call terminal to callee with the given signature
// and arguments.
func (b *Builder) TailCall(callee Func, sig FuncType, args []Value) (Value, *Error) {
	return b.emit(Instruction{op: OpTailCall, calleeFunc: callee, sig: sig, callArgs: args}, TypeInvalid)
}

// Trap appends an unconditional trap terminal.
func (b *Builder) Trap() *Error {
	_, err := b.emit(Instruction{op: OpTrap}, TypeInvalid)
	return err
}
