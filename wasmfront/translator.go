// Package wasmfront translates a decoded Wasm function body (wasmin) into
// a Runwell-style SSA ir.Function, by driving ir.Builder from a
// stack-machine emulation of the Wasm operator stream: an operand-value
// stack, a structured control-frame stack, and a locals-to-Variable
// mapping.
//
// Control-flow results are threaded through synthetic ir.Variables written
// just before a branch and read back in the landing block, rather than
// passed as branch arguments, since this IR's branch instructions carry no
// operand list of their own.
package wasmfront

import (
	"github.com/mickare/runwell/ir"
	"github.com/mickare/runwell/wasmin"
)

func convertType(t wasmin.ValType) ir.Type {
	switch t {
	case wasmin.I32:
		return ir.TypeI32
	case wasmin.I64:
		return ir.TypeI64
	case wasmin.F32:
		return ir.TypeF32
	case wasmin.F64:
		return ir.TypeF64
	default:
		panic("wasmfront: invalid wasmin.ValType")
	}
}

func convertTypes(ts []wasmin.ValType) []ir.Type {
	out := make([]ir.Type, len(ts))
	for i, t := range ts {
		out[i] = convertType(t)
	}
	return out
}

type controlFrameKind byte

const (
	ctrlFunction controlFrameKind = iota + 1
	ctrlBlock
	ctrlLoop
	ctrlIfThen // in the "then" arm, no `else` seen yet
	ctrlIfElse // in the "else" arm
)

// controlFrame is one entry of the Wasm structured control stack: it
// records the blocks a `br` to this depth must target, the stack height on
// entry (to discard values produced inside on an early branch-out) and,
// for constructs yielding a value, the synthetic Variable used to carry
// that value across the construct's block boundary.
type controlFrame struct {
	kind           controlFrameKind
	blockType      wasmin.BlockType
	stackHeight    int
	head           ir.Block // branch target for a Loop (its own header)
	continuation   ir.Block // branch target for a Block/If/Function (code after `end`)
	elseBlock      ir.Block // only meaningful for ctrlIfThen/ctrlIfElse
	hasResultVar   bool
	resultVar      ir.Variable
}

// branchTarget returns the ir.Block a `br`/`br_if` to this frame's depth
// must jump to: the loop header for a loop (re-entering it), or the
// continuation for every other construct.
func (f *controlFrame) branchTarget() ir.Block {
	if f.kind == ctrlLoop {
		return f.head
	}
	return f.continuation
}

// Translator drives one ir.Builder from one Wasm function body.
type Translator struct {
	b *ir.Builder

	locals []ir.Variable // index == wasm local index (params, then declared locals)

	stack []ir.Value
	ctrl  []controlFrame
}

// Translate lowers a single Wasm function body to a finalized ir.Function.
func Translate(fn wasmin.FunctionBody) (*ir.Function, *Error) {
	paramTypes := convertTypes(fn.Type.Params)
	resultTypes := convertTypes(fn.Type.Results)

	vars := ir.Build().WithInputs(paramTypes...).WithOutputs(resultTypes...)

	t := &Translator{}
	t.locals = make([]ir.Variable, 0, len(fn.Type.Params)+len(fn.Locals))
	for _, ty := range paramTypes {
		v, err := vars.DeclareVariables(1, ty)
		if err != nil {
			return nil, wrapBuilderError(err)
		}
		t.locals = append(t.locals, v)
	}
	for _, entry := range fn.Locals {
		first, err := vars.DeclareVariables(int(entry.Count), convertType(entry.Type))
		if err != nil {
			return nil, wrapBuilderError(err)
		}
		for k := uint32(0); k < entry.Count; k++ {
			t.locals = append(t.locals, first.Offset(k))
		}
	}

	t.b = vars.Body()

	// Function parameters are both directly-readable Values (ir.Builder's
	// Inputs()) and Wasm locals (mutable via local.set/local.tee): seed
	// each parameter variable with its input value in the entry block.
	for i, input := range t.b.Inputs() {
		if err := t.b.WriteVar(t.locals[i], input); err != nil {
			return nil, wrapBuilderError(err)
		}
	}
	// The entry block never gains a predecessor, so it is sealed up front;
	// an if, loop or br_if that leaves it does not seal it.
	if err := t.b.SealBlock(); err != nil {
		return nil, wrapBuilderError(err)
	}

	fnResult := wasmin.BlockType{}
	if len(resultTypes) == 1 {
		fnResult = wasmin.BlockType{HasResult: true, Result: fn.Type.Results[0]}
	}
	top := controlFrame{kind: ctrlFunction, blockType: fnResult, continuation: ir.BlockInvalid}
	if fnResult.HasResult {
		rv, err := t.b.DeclareVariables(1, convertType(fnResult.Result))
		if err != nil {
			return nil, wrapBuilderError(err)
		}
		top.hasResultVar, top.resultVar = true, rv
	}
	t.ctrl = append(t.ctrl, top)

	for _, op := range fn.Ops {
		if err := t.step(op); err != nil {
			return nil, err
		}
	}

	// Implicit `end` of the function body itself, unless the last explicit
	// operator already consumed the outer frame (an explicit top-level
	// `end`/`return` already emptied and terminated it).
	if len(t.ctrl) == 1 {
		if err := t.endFunction(); err != nil {
			return nil, err
		}
	}

	result, err := t.b.Finalize()
	if err != nil {
		return nil, wrapBuilderError(err)
	}
	return result, nil
}

func (t *Translator) push(v ir.Value) { t.stack = append(t.stack, v) }

func (t *Translator) pop(op wasmin.Opcode) (ir.Value, *Error) {
	if len(t.stack) == 0 {
		return ir.ValueInvalid, errStackUnderflow(op)
	}
	v := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return v, nil
}

func (t *Translator) peek(op wasmin.Opcode) (ir.Value, *Error) {
	if len(t.stack) == 0 {
		return ir.ValueInvalid, errStackUnderflow(op)
	}
	return t.stack[len(t.stack)-1], nil
}

func (t *Translator) top() *controlFrame { return &t.ctrl[len(t.ctrl)-1] }

func (t *Translator) frameAt(depth uint32) (*controlFrame, *Error) {
	idx := len(t.ctrl) - 1 - int(depth)
	if idx < 0 {
		return nil, errInvalidBranchTarget(depth)
	}
	return &t.ctrl[idx], nil
}

// step dispatches one Wasm operator, driving the builder and the stacks.
// If the current block is already filled (an earlier op in this same
// straight-line sequence emitted an unconditional terminal), the remainder
// of the construct is unreachable: this translator assumes well-formed
// input and simply stops emitting until the next structured control op,
// rather than modeling Wasm's dead-code stack polymorphism in full.
func (t *Translator) step(op wasmin.Op) *Error {
	switch op.Code {
	case wasmin.OpBlock, wasmin.OpLoop, wasmin.OpIf:
		return t.stepEnter(op)
	case wasmin.OpElse:
		return t.stepElse()
	case wasmin.OpEnd:
		return t.stepEnd()
	case wasmin.OpBr:
		return t.stepBr(op.BrDepth)
	case wasmin.OpBrIf:
		return t.stepBrIf(op.BrDepth)
	case wasmin.OpBrTable:
		return t.stepBrTable(op)
	case wasmin.OpReturn:
		return t.stepReturn()
	case wasmin.OpUnreachable:
		return t.b2err(t.b.Trap())
	case wasmin.OpNop:
		return nil
	case wasmin.OpDrop:
		_, err := t.pop(op.Code)
		return err
	}

	if t.b.CurrentFilled() {
		return nil
	}

	switch op.Code {
	case wasmin.OpLocalGet:
		v, err := t.b.ReadVar(t.locals[op.LocalIndex])
		if err != nil {
			return wrapBuilderError(err)
		}
		t.push(v)
		return nil
	case wasmin.OpLocalSet:
		v, err := t.pop(op.Code)
		if err != nil {
			return err
		}
		return t.b2err(t.b.WriteVar(t.locals[op.LocalIndex], v))
	case wasmin.OpLocalTee:
		v, err := t.peek(op.Code)
		if err != nil {
			return err
		}
		return t.b2err(t.b.WriteVar(t.locals[op.LocalIndex], v))

	case wasmin.OpI32Const:
		return t.pushConst(ir.TypeI32, ir.ConstInt(ir.I32, uint64(uint32(op.ConstI32))))
	case wasmin.OpI64Const:
		return t.pushConst(ir.TypeI64, ir.ConstInt(ir.I64, uint64(op.ConstI64)))
	case wasmin.OpF32Const:
		return t.pushConst(ir.TypeF32, ir.ConstF32(op.ConstF32))
	case wasmin.OpF64Const:
		return t.pushConst(ir.TypeF64, ir.ConstF64(op.ConstF64))

	case wasmin.OpSelect:
		cond, err := t.pop(op.Code)
		if err != nil {
			return err
		}
		b, err := t.pop(op.Code)
		if err != nil {
			return err
		}
		a, err := t.pop(op.Code)
		if err != nil {
			return err
		}
		ty := t.b.ValueType(a)
		if actual := t.b.ValueType(b); actual != ty {
			return errTypeMismatch(op.Code, ty, actual)
		}
		v, ierr := t.b.Select(ty, cond, a, b)
		if ierr != nil {
			return wrapBuilderError(ierr)
		}
		t.push(v)
		return nil
	}

	if iop, ty, isCmp, cmp, ok := intBinaryOp(op.Code); ok {
		return t.binaryInt(op.Code, iop, ty, isCmp, cmp)
	}
	if fop, ty, ok := floatBinaryOp(op.Code); ok {
		return t.binaryFloat(op.Code, fop, ty)
	}

	return errUnsupportedOperator(op.Code)
}

func (t *Translator) b2err(err *ir.Error) *Error { return wrapBuilderError(err) }

func (t *Translator) pushConst(ty ir.Type, c ir.Const) *Error {
	v, err := t.b.Constant(ty, c)
	if err != nil {
		return wrapBuilderError(err)
	}
	t.push(v)
	return nil
}

func (t *Translator) binaryInt(op wasmin.Opcode, iop func(*ir.Builder, ir.Type, ir.Value, ir.Value) (ir.Value, *ir.Error), ty ir.Type, isCmp bool, cmp ir.IntCmp) *Error {
	rhs, err := t.pop(op)
	if err != nil {
		return err
	}
	lhs, err := t.pop(op)
	if err != nil {
		return err
	}
	if terr := t.checkOperandTypes(op, ty, lhs, rhs); terr != nil {
		return terr
	}
	var v ir.Value
	var ierr *ir.Error
	if isCmp {
		v, ierr = t.b.ICmp(cmp, ty, lhs, rhs)
	} else {
		v, ierr = iop(t.b, ty, lhs, rhs)
	}
	if ierr != nil {
		return wrapBuilderError(ierr)
	}
	t.push(v)
	return nil
}

func (t *Translator) binaryFloat(op wasmin.Opcode, fop func(*ir.Builder, ir.Type, ir.Value, ir.Value) (ir.Value, *ir.Error), ty ir.Type) *Error {
	rhs, err := t.pop(op)
	if err != nil {
		return err
	}
	lhs, err := t.pop(op)
	if err != nil {
		return err
	}
	if terr := t.checkOperandTypes(op, ty, lhs, rhs); terr != nil {
		return terr
	}
	v, ierr := fop(t.b, ty, lhs, rhs)
	if ierr != nil {
		return wrapBuilderError(ierr)
	}
	t.push(v)
	return nil
}

// checkOperandTypes verifies both popped operands match the opcode table's
// expected type. The Wasm decoder already enforces this for well-formed
// input; this is the translator's own boundary check against a hand-built
// or otherwise malformed operator stream.
func (t *Translator) checkOperandTypes(op wasmin.Opcode, expected ir.Type, lhs, rhs ir.Value) *Error {
	if actual := t.b.ValueType(lhs); actual != expected {
		return errTypeMismatch(op, expected, actual)
	}
	if actual := t.b.ValueType(rhs); actual != expected {
		return errTypeMismatch(op, expected, actual)
	}
	return nil
}

// intBinaryOp maps an integer Wasm opcode to its builder constructor (or,
// for comparisons, its predicate), and the operand type.
func intBinaryOp(op wasmin.Opcode) (fn func(*ir.Builder, ir.Type, ir.Value, ir.Value) (ir.Value, *ir.Error), ty ir.Type, isCmp bool, cmp ir.IntCmp, ok bool) {
	type entry struct {
		ty    ir.Type
		fn    func(*ir.Builder, ir.Type, ir.Value, ir.Value) (ir.Value, *ir.Error)
		isCmp bool
		cmp   ir.IntCmp
	}
	table := map[wasmin.Opcode]entry{
		wasmin.OpI32Add:  {ir.TypeI32, (*ir.Builder).IAdd, false, 0},
		wasmin.OpI32Sub:  {ir.TypeI32, (*ir.Builder).ISub, false, 0},
		wasmin.OpI32Mul:  {ir.TypeI32, (*ir.Builder).IMul, false, 0},
		wasmin.OpI32DivS: {ir.TypeI32, (*ir.Builder).SDiv, false, 0},
		wasmin.OpI32DivU: {ir.TypeI32, (*ir.Builder).UDiv, false, 0},
		wasmin.OpI32RemS: {ir.TypeI32, (*ir.Builder).SRem, false, 0},
		wasmin.OpI32RemU: {ir.TypeI32, (*ir.Builder).URem, false, 0},
		wasmin.OpI32And:  {ir.TypeI32, (*ir.Builder).IAnd, false, 0},
		wasmin.OpI32Or:   {ir.TypeI32, (*ir.Builder).IOr, false, 0},
		wasmin.OpI32Xor:  {ir.TypeI32, (*ir.Builder).IXor, false, 0},
		wasmin.OpI32Shl:  {ir.TypeI32, (*ir.Builder).IShl, false, 0},
		wasmin.OpI32ShrS: {ir.TypeI32, (*ir.Builder).IShrS, false, 0},
		wasmin.OpI32ShrU: {ir.TypeI32, (*ir.Builder).IShrU, false, 0},
		wasmin.OpI32Rotl: {ir.TypeI32, (*ir.Builder).IRotl, false, 0},
		wasmin.OpI32Rotr: {ir.TypeI32, (*ir.Builder).IRotr, false, 0},
		wasmin.OpI32Eq:   {ir.TypeI32, nil, true, ir.IntEq},
		wasmin.OpI32Ne:   {ir.TypeI32, nil, true, ir.IntNe},
		wasmin.OpI32LtS:  {ir.TypeI32, nil, true, ir.IntSlt},
		wasmin.OpI32LeS:  {ir.TypeI32, nil, true, ir.IntSle},
		wasmin.OpI32GtS:  {ir.TypeI32, nil, true, ir.IntSgt},
		wasmin.OpI32GeS:  {ir.TypeI32, nil, true, ir.IntSge},
		wasmin.OpI32LtU:  {ir.TypeI32, nil, true, ir.IntUlt},
		wasmin.OpI32LeU:  {ir.TypeI32, nil, true, ir.IntUle},
		wasmin.OpI32GtU:  {ir.TypeI32, nil, true, ir.IntUgt},
		wasmin.OpI32GeU:  {ir.TypeI32, nil, true, ir.IntUge},

		wasmin.OpI64Add:  {ir.TypeI64, (*ir.Builder).IAdd, false, 0},
		wasmin.OpI64Sub:  {ir.TypeI64, (*ir.Builder).ISub, false, 0},
		wasmin.OpI64Mul:  {ir.TypeI64, (*ir.Builder).IMul, false, 0},
		wasmin.OpI64DivS: {ir.TypeI64, (*ir.Builder).SDiv, false, 0},
		wasmin.OpI64DivU: {ir.TypeI64, (*ir.Builder).UDiv, false, 0},
		wasmin.OpI64RemS: {ir.TypeI64, (*ir.Builder).SRem, false, 0},
		wasmin.OpI64RemU: {ir.TypeI64, (*ir.Builder).URem, false, 0},
		wasmin.OpI64And:  {ir.TypeI64, (*ir.Builder).IAnd, false, 0},
		wasmin.OpI64Or:   {ir.TypeI64, (*ir.Builder).IOr, false, 0},
		wasmin.OpI64Xor:  {ir.TypeI64, (*ir.Builder).IXor, false, 0},
		wasmin.OpI64Shl:  {ir.TypeI64, (*ir.Builder).IShl, false, 0},
		wasmin.OpI64ShrS: {ir.TypeI64, (*ir.Builder).IShrS, false, 0},
		wasmin.OpI64ShrU: {ir.TypeI64, (*ir.Builder).IShrU, false, 0},
		wasmin.OpI64Rotl: {ir.TypeI64, (*ir.Builder).IRotl, false, 0},
		wasmin.OpI64Rotr: {ir.TypeI64, (*ir.Builder).IRotr, false, 0},
		wasmin.OpI64Eq:   {ir.TypeI64, nil, true, ir.IntEq},
		wasmin.OpI64Ne:   {ir.TypeI64, nil, true, ir.IntNe},
		wasmin.OpI64LtS:  {ir.TypeI64, nil, true, ir.IntSlt},
		wasmin.OpI64LeS:  {ir.TypeI64, nil, true, ir.IntSle},
		wasmin.OpI64GtS:  {ir.TypeI64, nil, true, ir.IntSgt},
		wasmin.OpI64GeS:  {ir.TypeI64, nil, true, ir.IntSge},
		wasmin.OpI64LtU:  {ir.TypeI64, nil, true, ir.IntUlt},
		wasmin.OpI64LeU:  {ir.TypeI64, nil, true, ir.IntUle},
		wasmin.OpI64GtU:  {ir.TypeI64, nil, true, ir.IntUgt},
		wasmin.OpI64GeU:  {ir.TypeI64, nil, true, ir.IntUge},
	}
	e, found := table[op]
	if !found {
		return nil, ir.TypeInvalid, false, 0, false
	}
	return e.fn, e.ty, e.isCmp, e.cmp, true
}

func floatBinaryOp(op wasmin.Opcode) (fn func(*ir.Builder, ir.Type, ir.Value, ir.Value) (ir.Value, *ir.Error), ty ir.Type, ok bool) {
	switch op {
	case wasmin.OpF32Add:
		return (*ir.Builder).FAdd, ir.TypeF32, true
	case wasmin.OpF32Sub:
		return (*ir.Builder).FSub, ir.TypeF32, true
	case wasmin.OpF32Mul:
		return (*ir.Builder).FMul, ir.TypeF32, true
	case wasmin.OpF32Div:
		return (*ir.Builder).FDiv, ir.TypeF32, true
	case wasmin.OpF64Add:
		return (*ir.Builder).FAdd, ir.TypeF64, true
	case wasmin.OpF64Sub:
		return (*ir.Builder).FSub, ir.TypeF64, true
	case wasmin.OpF64Mul:
		return (*ir.Builder).FMul, ir.TypeF64, true
	case wasmin.OpF64Div:
		return (*ir.Builder).FDiv, ir.TypeF64, true
	default:
		return nil, ir.TypeInvalid, false
	}
}
