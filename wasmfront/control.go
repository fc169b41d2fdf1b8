package wasmfront

import (
	"github.com/mickare/runwell/ir"
	"github.com/mickare/runwell/wasmin"
)

// This file implements the structured-control-flow half of the translator:
// block/loop/if/else/end and the branch family. Wasm's structured control
// maps onto the builder's block graph one construct at a time, writing and
// reading a synthetic result ir.Variable at each construct boundary instead
// of passing SSA block parameters, since this IR's branch instructions
// carry no operand list.
//
// A block is reachable only through edges this translator itself has
// already emitted by the time it is closed (Wasm's structured control never
// branches forward into code not yet seen), so a zero predecessor count at
// switchInto time means the block is permanently unreachable. Such blocks
// are filled with a single Trap rather than modeled with full dead-code
// stack polymorphism; this keeps CurrentFilled()'s existing straight-line
// dead-code skip (see step in translator.go) correct for any code nested
// inside them too, since a Trap makes them "filled" from that point on.

// switchInto makes target the current block and, if it has acquired no
// predecessors by now, immediately closes it with a Trap: nothing can ever
// reach it, so its remaining contents (if any were to follow) are dead.
func (t *Translator) switchInto(target ir.Block) *Error {
	t.b.SwitchToBlock(target)
	if t.b.BlockPredCount(target) == 0 {
		return t.b2err(t.b.Trap())
	}
	return nil
}

func (t *Translator) stepEnter(op wasmin.Op) *Error {
	switch op.Code {
	case wasmin.OpBlock:
		cont := t.b.CreateBlock()
		frame := controlFrame{kind: ctrlBlock, blockType: op.Block, stackHeight: len(t.stack), continuation: cont}
		if op.Block.HasResult {
			rv, err := t.b.DeclareVariables(1, convertType(op.Block.Result))
			if err != nil {
				return wrapBuilderError(err)
			}
			frame.hasResultVar, frame.resultVar = true, rv
		}
		t.ctrl = append(t.ctrl, frame)
		return nil

	case wasmin.OpLoop:
		header := t.b.CreateBlock()
		if !t.b.CurrentFilled() {
			if err := t.b.Br(header); err != nil {
				return wrapBuilderError(err)
			}
		}
		if err := t.switchInto(header); err != nil {
			return err
		}
		cont := t.b.CreateBlock()
		frame := controlFrame{kind: ctrlLoop, blockType: op.Block, stackHeight: len(t.stack), head: header, continuation: cont}
		if op.Block.HasResult {
			rv, err := t.b.DeclareVariables(1, convertType(op.Block.Result))
			if err != nil {
				return wrapBuilderError(err)
			}
			frame.hasResultVar, frame.resultVar = true, rv
		}
		t.ctrl = append(t.ctrl, frame)
		return nil

	case wasmin.OpIf:
		thenBB := t.b.CreateBlock()
		elseBB := t.b.CreateBlock()
		cont := t.b.CreateBlock()
		if !t.b.CurrentFilled() {
			cond, err := t.pop(op.Code)
			if err != nil {
				return err
			}
			if ierr := t.b.IfThenElse(cond, thenBB, elseBB); ierr != nil {
				return wrapBuilderError(ierr)
			}
		}
		if err := t.switchInto(thenBB); err != nil {
			return err
		}
		frame := controlFrame{
			kind:         ctrlIfThen,
			blockType:    op.Block,
			stackHeight:  len(t.stack),
			elseBlock:    elseBB,
			continuation: cont,
		}
		if op.Block.HasResult {
			rv, err := t.b.DeclareVariables(1, convertType(op.Block.Result))
			if err != nil {
				return wrapBuilderError(err)
			}
			frame.hasResultVar, frame.resultVar = true, rv
		}
		t.ctrl = append(t.ctrl, frame)
		return nil
	}
	return errUnsupportedOperator(op.Code)
}

func (t *Translator) stepElse() *Error {
	frame := t.top()
	if err := t.fallThrough(frame, wasmin.OpElse); err != nil {
		return err
	}
	if err := t.switchInto(frame.elseBlock); err != nil {
		return err
	}
	frame.kind = ctrlIfElse
	t.stack = t.stack[:frame.stackHeight]
	return nil
}

// fallThrough closes off a construct whose body never branched out
// explicitly: it writes the construct's result (if any) from the top of
// the value stack and emits the implicit Br into its continuation, then
// seals the block being left behind now that it will never be current
// again. A no-op on the Br/result front if the block is already filled
// (an earlier Trap or explicit branch already closed it).
func (t *Translator) fallThrough(frame *controlFrame, op wasmin.Opcode) *Error {
	if !t.b.CurrentFilled() {
		if frame.hasResultVar {
			v, err := t.pop(op)
			if err != nil {
				return err
			}
			if werr := t.b.WriteVar(frame.resultVar, v); werr != nil {
				return wrapBuilderError(werr)
			}
		}
		if err := t.b.Br(frame.continuation); err != nil {
			return wrapBuilderError(err)
		}
	}
	if !t.b.CurrentSealed() {
		if err := t.b.SealBlockAt(t.b.CurrentBlock()); err != nil {
			return wrapBuilderError(err)
		}
	}
	return nil
}

// stepEnd closes the innermost construct, following the kind-specific
// transition into its continuation, and pushes the construct's result (if
// it has one) once the continuation becomes current.
func (t *Translator) stepEnd() *Error {
	frame := *t.top()
	switch frame.kind {
	case ctrlFunction:
		return t.endFunction()

	case ctrlBlock:
		// Running off the end without an explicit branch out falls through
		// to the continuation, same as a plain straight-line block.
		if err := t.fallThrough(&frame, wasmin.OpEnd); err != nil {
			return err
		}
		return t.endConstruct(frame, frame.continuation)

	case ctrlLoop:
		// Falling off a loop body's end exits the loop into its
		// continuation, exactly like a block -- only an explicit `br`/
		// `br_if` to this depth re-enters the header.
		if err := t.fallThrough(&frame, wasmin.OpEnd); err != nil {
			return err
		}
		// fallThrough may already have sealed the header itself, if the loop
		// body never switched away from it (a straight-line body with no
		// inner block/if and no back-edge).
		if !t.b.BlockSealed(frame.head) {
			if err := t.b.SealBlockAt(frame.head); err != nil {
				return wrapBuilderError(err)
			}
		}
		return t.endConstruct(frame, frame.continuation)

	case ctrlIfThen:
		// No `else` was seen: close the (possibly empty) then-arm into the
		// continuation, then give the else-arm -- genuinely reachable (a
		// real predecessor of the IfThenElse) but empty -- the same
		// implicit fallthrough. elseBlock can't itself carry a result
		// write here: there's no source code in it to produce one.
		if err := t.fallThrough(&frame, wasmin.OpEnd); err != nil {
			return err
		}
		if err := t.switchInto(frame.elseBlock); err != nil {
			return err
		}
		if !t.b.CurrentFilled() {
			if err := t.b.Br(frame.continuation); err != nil {
				return wrapBuilderError(err)
			}
		}
		if !t.b.BlockSealed(frame.elseBlock) {
			if err := t.b.SealBlockAt(frame.elseBlock); err != nil {
				return wrapBuilderError(err)
			}
		}
		return t.endConstruct(frame, frame.continuation)

	case ctrlIfElse:
		if err := t.fallThrough(&frame, wasmin.OpEnd); err != nil {
			return err
		}
		return t.endConstruct(frame, frame.continuation)
	}
	return errUnsupportedOperator(wasmin.OpEnd)
}

// endConstruct pops frame off the control stack, enters its continuation
// and, once sealed, reads back the construct's result (if any).
func (t *Translator) endConstruct(frame controlFrame, continuation ir.Block) *Error {
	t.ctrl = t.ctrl[:len(t.ctrl)-1]
	// Drop whatever an early branch-out left on the operand stack inside the
	// construct; fallThrough has already popped the result, if any.
	if len(t.stack) > frame.stackHeight {
		t.stack = t.stack[:frame.stackHeight]
	}
	if err := t.switchInto(continuation); err != nil {
		return err
	}
	if !t.b.CurrentSealed() {
		if err := t.b.SealBlockAt(continuation); err != nil {
			return wrapBuilderError(err)
		}
	}
	if !frame.hasResultVar {
		return nil
	}
	if t.b.CurrentFilled() {
		// continuation turned out to be permanently unreachable (trap-filled
		// by switchInto); push a placeholder so the operand stack's shape
		// still matches what the Wasm source expects downstream, none of
		// which can itself ever execute.
		t.push(ir.ValueInvalid)
		return nil
	}
	v, err := t.b.ReadVar(frame.resultVar)
	if err != nil {
		return wrapBuilderError(err)
	}
	t.push(v)
	return nil
}

func (t *Translator) stepBr(depth uint32) *Error {
	frame, err := t.frameAt(depth)
	if err != nil {
		return err
	}
	if t.b.CurrentFilled() {
		return nil
	}
	if frame.hasResultVar && frame.kind != ctrlLoop {
		v, perr := t.pop(wasmin.OpBr)
		if perr != nil {
			return perr
		}
		if werr := t.b.WriteVar(frame.resultVar, v); werr != nil {
			return wrapBuilderError(werr)
		}
	}
	if err := t.b.Br(frame.branchTarget()); err != nil {
		return wrapBuilderError(err)
	}
	return nil
}

// stepBrIf models Wasm's conditional branch: if taken, it carries the
// construct's result along exactly as an unconditional br would; if not
// taken, execution falls through with the operand stack unchanged (the
// value, if any, was only peeked, never popped, for the not-taken path).
func (t *Translator) stepBrIf(depth uint32) *Error {
	frame, err := t.frameAt(depth)
	if err != nil {
		return err
	}
	if t.b.CurrentFilled() {
		return nil
	}
	cond, err := t.pop(wasmin.OpBrIf)
	if err != nil {
		return err
	}

	takenBB := t.b.CreateBlock()
	fallBB := t.b.CreateBlock()
	if ierr := t.b.IfThenElse(cond, takenBB, fallBB); ierr != nil {
		return wrapBuilderError(ierr)
	}

	t.b.SwitchToBlock(takenBB)
	if frame.hasResultVar && frame.kind != ctrlLoop {
		v, perr := t.peek(wasmin.OpBrIf)
		if perr != nil {
			return perr
		}
		if werr := t.b.WriteVar(frame.resultVar, v); werr != nil {
			return wrapBuilderError(werr)
		}
	}
	if ierr := t.b.Br(frame.branchTarget()); ierr != nil {
		return wrapBuilderError(ierr)
	}
	if ierr := t.b.SealBlockAt(takenBB); ierr != nil {
		return wrapBuilderError(ierr)
	}

	return t.switchInto(fallBB)
}

func (t *Translator) stepBrTable(op wasmin.Op) *Error {
	if t.b.CurrentFilled() {
		return nil
	}
	n := len(op.BrTableDepths)
	if n == 0 {
		return errInvalidBranchTarget(0)
	}
	index, err := t.pop(op.Code)
	if err != nil {
		return err
	}

	defaultDepth := op.BrTableDepths[n-1]
	defFrame, ferr := t.frameAt(defaultDepth)
	if ferr != nil {
		return ferr
	}
	targets := make([]ir.Block, 0, n)
	targets = append(targets, defFrame.branchTarget())
	for _, d := range op.BrTableDepths[:n-1] {
		f, ferr := t.frameAt(d)
		if ferr != nil {
			return ferr
		}
		targets = append(targets, f.branchTarget())
	}

	if ierr := t.b.BrTable(index, targets); ierr != nil {
		return wrapBuilderError(ierr)
	}
	return nil
}

func (t *Translator) stepReturn() *Error {
	if t.b.CurrentFilled() {
		return nil
	}
	fnFrame := &t.ctrl[0]
	v := ir.ValueInvalid
	if fnFrame.hasResultVar {
		val, err := t.pop(wasmin.OpReturn)
		if err != nil {
			return err
		}
		v = val
	}
	if err := t.b.Return(v); err != nil {
		return wrapBuilderError(err)
	}
	return nil
}

// endFunction closes the function's outermost frame, whether reached via an
// explicit top-level `end` operator or implicitly once the operator stream
// is exhausted.
func (t *Translator) endFunction() *Error {
	frame := t.ctrl[0]
	if !t.b.CurrentFilled() {
		v := ir.ValueInvalid
		if frame.hasResultVar {
			val, err := t.pop(wasmin.OpEnd)
			if err != nil {
				return err
			}
			v = val
		}
		if err := t.b.Return(v); err != nil {
			return wrapBuilderError(err)
		}
	}
	if !t.b.CurrentSealed() {
		if err := t.b.SealBlock(); err != nil {
			return wrapBuilderError(err)
		}
	}
	t.ctrl = t.ctrl[:0]
	return nil
}
