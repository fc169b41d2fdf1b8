// Package interp is a tree-walking interpreter over a finalized ir.Function,
// used exclusively as a test oracle: it exists so tests can assert on the
// *value* a sequence of instructions computes, not merely on the shape of
// the function the builder or the Wasm translator produced. It is not part
// of the compiler pipeline proper: no codegen, no module linking.
package interp

import (
	"math"
	"math/bits"

	"github.com/mickare/runwell/ir"
)

// Machine holds the runtime state shared across a call: linear memories and
// the function table a tail-call can target. A single Machine can run
// several top-level calls; each Run call is otherwise stateless.
type Machine struct {
	Memories  map[ir.Mem]*Memory
	Functions map[ir.Func]*ir.Function
}

// NewMachine returns an empty Machine, ready to have Memories/Functions
// populated directly before use.
func NewMachine() *Machine {
	return &Machine{
		Memories:  make(map[ir.Mem]*Memory),
		Functions: make(map[ir.Func]*ir.Function),
	}
}

// Run interprets fn with the given argument values, returning its result
// (zero or one value, matching fn.Outputs()) or the trap that stopped it.
func (m *Machine) Run(fn *ir.Function, args []ir.Const) ([]ir.Const, *Error) {
	if len(args) != len(fn.Inputs()) {
		return nil, errArgumentCount()
	}

	values := make(map[ir.Value]ir.Const, 16)
	for i, v := range fn.InputValues() {
		values[v] = args[i]
	}

	block := fn.EntryBlock()
	prevBlock := ir.BlockInvalid

blockLoop:
	for {
		for _, instrID := range fn.BlockBody(block) {
			instr := fn.Instruction(instrID)

			if instr.IsPhi() {
				operand, ok := instr.PhiOperand(prevBlock)
				if !ok {
					panic("interp: BUG: phi in " + block.String() + " has no operand for predecessor " + prevBlock.String())
				}
				if rv, ok := fn.InstrValue(instrID); ok {
					values[rv] = values[operand]
				}
				continue
			}

			switch instr.Opcode() {
			case ir.OpReturn:
				rv := instr.ReturnValue()
				if !rv.Valid() {
					return nil, nil
				}
				return []ir.Const{values[rv]}, nil

			case ir.OpBr:
				prevBlock, block = block, instr.BrTarget()
				continue blockLoop

			case ir.OpIfThenElse:
				cond, thenTarget, elseTarget := instr.IfThenElseArgs()
				prevBlock = block
				if values[cond].Bool() {
					block = thenTarget
				} else {
					block = elseTarget
				}
				continue blockLoop

			case ir.OpBrTable:
				index, targets := instr.BrTableArgs()
				i := values[index].AsInt64()
				prevBlock = block
				if i >= 0 && int(i) < len(targets)-1 {
					block = targets[i+1]
				} else {
					block = targets[0]
				}
				continue blockLoop

			case ir.OpTailCall:
				callee, _, callArgs := instr.TailCallArgs()
				calleeFn, ok := m.Functions[callee]
				if !ok {
					return nil, errUndefinedFunction()
				}
				args := make([]ir.Const, len(callArgs))
				for i, a := range callArgs {
					args[i] = values[a]
				}
				return m.Run(calleeFn, args)

			case ir.OpTrap:
				return nil, errTrap(block)

			default:
				v, err := m.eval(fn, instr, values)
				if err != nil {
					return nil, err
				}
				if rv, ok := fn.InstrValue(instrID); ok {
					values[rv] = v
				}
			}
		}
		panic("interp: BUG: block " + block.String() + " has no terminal")
	}
}

// eval computes the result of a single non-control, non-phi instruction.
func (m *Machine) eval(fn *ir.Function, instr *ir.Instruction, values map[ir.Value]ir.Const) (ir.Const, *Error) {
	switch instr.Opcode() {
	case ir.OpConst:
		return instr.ConstValue(), nil

	case ir.OpIAdd, ir.OpISub, ir.OpIMul, ir.OpSDiv, ir.OpUDiv, ir.OpSRem, ir.OpURem,
		ir.OpIAnd, ir.OpIOr, ir.OpIXor, ir.OpIShl, ir.OpIShrS, ir.OpIShrU, ir.OpIRotl, ir.OpIRotr:
		a, b := instr.BinaryArgs()
		return evalIntBinary(instr.Opcode(), instr.Type(), values[a], values[b])

	case ir.OpICmp:
		a, b := instr.BinaryArgs()
		return evalIntCmp(instr.IntCmpOp(), values[a], values[b]), nil

	case ir.OpINeg, ir.OpIClz, ir.OpICtz, ir.OpIPopcnt:
		return evalIntUnary(instr.Opcode(), instr.Type(), values[instr.UnaryArg()]), nil

	case ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv, ir.OpFMin, ir.OpFMax, ir.OpFCopysign:
		a, b := instr.BinaryArgs()
		return evalFloatBinary(instr.Opcode(), instr.Type(), values[a], values[b]), nil

	case ir.OpFCmp:
		a, b := instr.BinaryArgs()
		return evalFloatCmp(instr.FloatCmpOp(), values[a], values[b]), nil

	case ir.OpFNeg, ir.OpFAbs, ir.OpFSqrt, ir.OpFCeil, ir.OpFFloor, ir.OpFTrunc, ir.OpFNearest:
		return evalFloatUnary(instr.Opcode(), instr.Type(), values[instr.UnaryArg()]), nil

	case ir.OpIntWrap:
		return ir.ConstInt(instr.Type().IntWidth(), values[instr.UnaryArg()].Bits()), nil

	case ir.OpIntExtend:
		src := values[instr.UnaryArg()]
		if instr.Signed() {
			return ir.ConstInt(instr.Type().IntWidth(), uint64(src.AsInt64())), nil
		}
		return ir.ConstInt(instr.Type().IntWidth(), src.Bits()), nil

	case ir.OpIntToFloat:
		src := values[instr.UnaryArg()]
		var f float64
		if instr.Signed() {
			f = float64(src.AsInt64())
		} else {
			f = float64(src.Bits())
		}
		return constFloat(instr.Type(), f), nil

	case ir.OpFloatToInt:
		src := values[instr.UnaryArg()]
		return evalFloatToInt(instr.Type(), instr.Signed(), src.AsFloat64())

	case ir.OpFloatConvert:
		return constFloat(instr.Type(), values[instr.UnaryArg()].AsFloat64()), nil

	case ir.OpReinterpret:
		return evalReinterpret(instr.Type(), values[instr.UnaryArg()]), nil

	case ir.OpSelect:
		cond, ifTrue, ifFalse := instr.SelectArgs()
		if values[cond].Bool() {
			return values[ifTrue], nil
		}
		return values[ifFalse], nil

	case ir.OpLoad:
		mem, ok := m.Memories[instr.MemRef()]
		if !ok {
			return ir.Const{}, errOOBMemory()
		}
		addr := uint64(values[instr.MemAddr()].Bits()) + uint64(instr.MemOffset())
		size := instr.Type().Bits() / 8
		raw, ok := mem.read(addr, size)
		if !ok {
			return ir.Const{}, errOOBMemory()
		}
		return constFromBits(instr.Type(), raw), nil

	case ir.OpStore:
		mem, ok := m.Memories[instr.MemRef()]
		if !ok {
			return ir.Const{}, errOOBMemory()
		}
		addr := uint64(values[instr.MemAddr()].Bits()) + uint64(instr.MemOffset())
		storeVal := values[instr.MemStoreValue()]
		size := fn.ValueType(instr.MemStoreValue()).Bits() / 8
		if !mem.write(addr, size, storeVal.Bits()) {
			return ir.Const{}, errOOBMemory()
		}
		return ir.Const{}, nil

	case ir.OpMemorySize:
		mem, ok := m.Memories[instr.MemRef()]
		if !ok {
			return ir.Const{}, errOOBMemory()
		}
		return ir.ConstInt(ir.I32, uint64(mem.Pages())), nil

	case ir.OpMemoryGrow:
		mem, ok := m.Memories[instr.MemRef()]
		if !ok {
			return ir.Const{}, errOOBMemory()
		}
		delta := uint32(values[instr.MemGrowDelta()].Bits())
		previous, ok := mem.Grow(delta)
		if !ok {
			return ir.ConstInt(ir.I32, uint64(uint32(0xffffffff))), nil
		}
		return ir.ConstInt(ir.I32, uint64(previous)), nil
	}
	panic("interp: BUG: unhandled opcode " + instr.Opcode().String())
}

func widthMask(bitsWidth int) uint64 {
	if bitsWidth >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bitsWidth) - 1
}

func minSignedValue(bitsWidth int) int64 {
	return -(int64(1) << (bitsWidth - 1))
}

func evalIntBinary(op ir.Opcode, ty ir.Type, a, b ir.Const) (ir.Const, *Error) {
	w := ty.IntWidth()
	bitsWidth := ty.Bits()
	mask := widthMask(bitsWidth)

	switch op {
	case ir.OpIAdd:
		return ir.ConstInt(w, (a.Bits()+b.Bits())&mask), nil
	case ir.OpISub:
		return ir.ConstInt(w, (a.Bits()-b.Bits())&mask), nil
	case ir.OpIMul:
		return ir.ConstInt(w, (a.Bits()*b.Bits())&mask), nil
	case ir.OpSDiv:
		if b.Bits() == 0 {
			return ir.Const{}, errDivZero()
		}
		if a.AsInt64() == minSignedValue(bitsWidth) && b.AsInt64() == -1 {
			return ir.Const{}, errIntOverflow()
		}
		return ir.ConstInt(w, uint64(a.AsInt64()/b.AsInt64())), nil
	case ir.OpUDiv:
		if b.Bits() == 0 {
			return ir.Const{}, errDivZero()
		}
		return ir.ConstInt(w, a.Bits()/b.Bits()), nil
	case ir.OpSRem:
		if b.Bits() == 0 {
			return ir.Const{}, errDivZero()
		}
		if a.AsInt64() == minSignedValue(bitsWidth) && b.AsInt64() == -1 {
			return ir.ConstInt(w, 0), nil
		}
		return ir.ConstInt(w, uint64(a.AsInt64()%b.AsInt64())), nil
	case ir.OpURem:
		if b.Bits() == 0 {
			return ir.Const{}, errDivZero()
		}
		return ir.ConstInt(w, a.Bits()%b.Bits()), nil
	case ir.OpIAnd:
		return ir.ConstInt(w, a.Bits()&b.Bits()), nil
	case ir.OpIOr:
		return ir.ConstInt(w, a.Bits()|b.Bits()), nil
	case ir.OpIXor:
		return ir.ConstInt(w, a.Bits()^b.Bits()), nil
	case ir.OpIShl:
		amt := uint(b.Bits()) % uint(bitsWidth)
		return ir.ConstInt(w, (a.Bits()<<amt)&mask), nil
	case ir.OpIShrS:
		amt := uint(b.Bits()) % uint(bitsWidth)
		return ir.ConstInt(w, uint64(a.AsInt64()>>amt)), nil
	case ir.OpIShrU:
		amt := uint(b.Bits()) % uint(bitsWidth)
		return ir.ConstInt(w, a.Bits()>>amt), nil
	case ir.OpIRotl:
		amt := uint(b.Bits()) % uint(bitsWidth)
		return ir.ConstInt(w, rotateLeft(a.Bits(), bitsWidth, amt)), nil
	case ir.OpIRotr:
		amt := uint(b.Bits()) % uint(bitsWidth)
		return ir.ConstInt(w, rotateLeft(a.Bits(), bitsWidth, uint(bitsWidth)-amt)), nil
	}
	panic("interp: BUG: not an integer binary opcode")
}

// rotateLeft rotates the low bitsWidth bits of v left by amt, within that
// width (not within 64 bits), mirroring math/bits.RotateLeft64 scaled down.
func rotateLeft(v uint64, bitsWidth int, amt uint) uint64 {
	if amt == 0 {
		return v & widthMask(bitsWidth)
	}
	v &= widthMask(bitsWidth)
	return ((v << amt) | (v >> (uint(bitsWidth) - amt))) & widthMask(bitsWidth)
}

func evalIntUnary(op ir.Opcode, ty ir.Type, a ir.Const) ir.Const {
	w := ty.IntWidth()
	bitsWidth := ty.Bits()
	switch op {
	case ir.OpINeg:
		return ir.ConstInt(w, (^a.Bits()+1)&widthMask(bitsWidth))
	case ir.OpIClz:
		lead := bits.LeadingZeros64(a.Bits()) - (64 - bitsWidth)
		return ir.ConstInt(w, uint64(lead))
	case ir.OpICtz:
		if a.Bits() == 0 {
			return ir.ConstInt(w, uint64(bitsWidth))
		}
		return ir.ConstInt(w, uint64(bits.TrailingZeros64(a.Bits())))
	case ir.OpIPopcnt:
		return ir.ConstInt(w, uint64(bits.OnesCount64(a.Bits())))
	}
	panic("interp: BUG: not an integer unary opcode")
}

func evalIntCmp(pred ir.IntCmp, a, b ir.Const) ir.Const {
	switch pred {
	case ir.IntEq:
		return ir.ConstBool(a.Bits() == b.Bits())
	case ir.IntNe:
		return ir.ConstBool(a.Bits() != b.Bits())
	case ir.IntSlt:
		return ir.ConstBool(a.AsInt64() < b.AsInt64())
	case ir.IntSle:
		return ir.ConstBool(a.AsInt64() <= b.AsInt64())
	case ir.IntSgt:
		return ir.ConstBool(a.AsInt64() > b.AsInt64())
	case ir.IntSge:
		return ir.ConstBool(a.AsInt64() >= b.AsInt64())
	case ir.IntUlt:
		return ir.ConstBool(a.Bits() < b.Bits())
	case ir.IntUle:
		return ir.ConstBool(a.Bits() <= b.Bits())
	case ir.IntUgt:
		return ir.ConstBool(a.Bits() > b.Bits())
	case ir.IntUge:
		return ir.ConstBool(a.Bits() >= b.Bits())
	}
	panic("interp: BUG: unhandled IntCmp")
}

func constFloat(ty ir.Type, v float64) ir.Const {
	if ty.FloatWidth() == ir.F32 {
		return ir.ConstF32(float32(v))
	}
	return ir.ConstF64(v)
}

func evalFloatBinary(op ir.Opcode, ty ir.Type, a, b ir.Const) ir.Const {
	x, y := a.AsFloat64(), b.AsFloat64()
	switch op {
	case ir.OpFAdd:
		return constFloat(ty, x+y)
	case ir.OpFSub:
		return constFloat(ty, x-y)
	case ir.OpFMul:
		return constFloat(ty, x*y)
	case ir.OpFDiv:
		return constFloat(ty, x/y)
	case ir.OpFMin:
		return constFloat(ty, math.Min(x, y))
	case ir.OpFMax:
		return constFloat(ty, math.Max(x, y))
	case ir.OpFCopysign:
		return constFloat(ty, math.Copysign(x, y))
	}
	panic("interp: BUG: not a float binary opcode")
}

func evalFloatUnary(op ir.Opcode, ty ir.Type, a ir.Const) ir.Const {
	x := a.AsFloat64()
	switch op {
	case ir.OpFNeg:
		return constFloat(ty, -x)
	case ir.OpFAbs:
		return constFloat(ty, math.Abs(x))
	case ir.OpFSqrt:
		return constFloat(ty, math.Sqrt(x))
	case ir.OpFCeil:
		return constFloat(ty, math.Ceil(x))
	case ir.OpFFloor:
		return constFloat(ty, math.Floor(x))
	case ir.OpFTrunc:
		return constFloat(ty, math.Trunc(x))
	case ir.OpFNearest:
		return constFloat(ty, math.RoundToEven(x))
	}
	panic("interp: BUG: not a float unary opcode")
}

func evalFloatCmp(pred ir.FloatCmp, a, b ir.Const) ir.Const {
	x, y := a.AsFloat64(), b.AsFloat64()
	nan := math.IsNaN(x) || math.IsNaN(y)
	switch pred {
	case ir.FloatEq:
		return ir.ConstBool(!nan && x == y)
	case ir.FloatNe:
		return ir.ConstBool(nan || x != y)
	case ir.FloatLt:
		return ir.ConstBool(!nan && x < y)
	case ir.FloatLe:
		return ir.ConstBool(!nan && x <= y)
	case ir.FloatGt:
		return ir.ConstBool(!nan && x > y)
	case ir.FloatGe:
		return ir.ConstBool(!nan && x >= y)
	}
	panic("interp: BUG: unhandled FloatCmp")
}

func evalFloatToInt(dst ir.Type, signed bool, x float64) (ir.Const, *Error) {
	if math.IsNaN(x) {
		return ir.Const{}, errInvalidConversion()
	}
	t := math.Trunc(x)
	bitsWidth := dst.Bits()
	if signed {
		min, max := float64(minSignedValue(bitsWidth)), -float64(minSignedValue(bitsWidth))-1
		if t < min || t > max {
			return ir.Const{}, errInvalidConversion()
		}
		return ir.ConstInt(dst.IntWidth(), uint64(int64(t))), nil
	}
	max := float64(widthMask(bitsWidth))
	if t < 0 || t > max {
		return ir.Const{}, errInvalidConversion()
	}
	return ir.ConstInt(dst.IntWidth(), uint64(t)), nil
}

func evalReinterpret(dst ir.Type, a ir.Const) ir.Const {
	if dst.IsFloat() {
		if dst.FloatWidth() == ir.F32 {
			return ir.ConstF32(math.Float32frombits(uint32(a.Bits())))
		}
		return ir.ConstF64(math.Float64frombits(a.Bits()))
	}
	return ir.ConstInt(dst.IntWidth(), a.Bits())
}

func constFromBits(ty ir.Type, raw uint64) ir.Const {
	switch {
	case ty.IsInt():
		return ir.ConstInt(ty.IntWidth(), raw)
	case ty.IsFloat():
		if ty.FloatWidth() == ir.F32 {
			return ir.ConstF32(math.Float32frombits(uint32(raw)))
		}
		return ir.ConstF64(math.Float64frombits(raw))
	case ty.IsBool():
		return ir.ConstBool(raw != 0)
	case ty.IsPtr():
		return ir.ConstPtr(uint32(raw))
	}
	panic("interp: BUG: load of invalid type")
}
