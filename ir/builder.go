package ir

import "github.com/mickare/runwell/entity"

// Builder is the SSA function builder: an incremental, on-the-fly SSA
// construction engine implementing the Braun et al. variable-resolution
// algorithm. It drives φ insertion, incomplete-φ tracking across unsealed
// blocks, trivial-φ elimination and value replacement across users,
// without a separate dominance analysis pass.
//
// Every entity kind it allocates owns its data through the entity package:
// blocks and instructions through an entity.Arena (the primary map for
// their kind), and per-value components through entity.DenseMap secondary
// maps keyed by Value, since nearly every value carries a type, an
// association and a user set.
type Builder struct {
	inputs  []Type
	outputs []Type

	blocks entity.Arena[blockMarker, *blockData] // primary map: Block -> its mutable construction state

	instrs   entity.Arena[instrMarker, Instruction] // primary map: Instr -> its data
	instrVal entity.DenseMap[instrMarker, Value]    // secondary map: Instr -> produced Value, or ValueInvalid

	valueType  entity.DenseMap[valueMarker, Type]
	valueAssoc entity.DenseMap[valueMarker, ValueAssoc]
	valueUsers entity.DenseMap[valueMarker, map[Instr]struct{}] // value_users: Value -> Set<Instr>

	vars *VariableTranslator

	current Block
	entry   Block

	finalized bool
}

// newBuilder is called only by the staged signature builder (signature.go)
// once inputs, outputs and (optionally) variables have been declared.
func newBuilder(inputs, outputs []Type, vars *VariableTranslator) *Builder {
	b := &Builder{
		inputs:  inputs,
		outputs: outputs,
		vars:    vars,
	}
	b.entry = b.CreateBlock()
	b.current = b.entry
	for i, ty := range inputs {
		v := b.allocValue(ty)
		b.valueAssoc.Insert(v.Idx, InputAssoc(uint32(i)))
	}
	return b
}

// Inputs returns the function's declared input Values, live in the entry
// block, in parameter order.
func (b *Builder) Inputs() []Value {
	out := make([]Value, len(b.inputs))
	for i := range b.inputs {
		out[i] = makeValue(uint32(i))
	}
	return out
}

// EntryBlock returns the function's entry block.
func (b *Builder) EntryBlock() Block { return b.entry }

// CurrentBlock returns the block new instructions are appended to.
func (b *Builder) CurrentBlock() Block { return b.current }

// CurrentFilled reports whether the current block already carries a
// terminal instruction (e.g. because a caller emitted an unconditional
// branch, return or trap mid-construct). A caller driving a stack-machine
// translation uses this to detect that the remainder of the construct is
// unreachable before attempting to append another terminal.
func (b *Builder) CurrentFilled() bool { return b.blockData(b.current).filled }

// CurrentSealed reports whether the current block has already been sealed.
func (b *Builder) CurrentSealed() bool { return b.blockData(b.current).sealed }

// BlockPredCount returns the number of predecessors registered for block so
// far. For any block that is not the entry, forward-only structured control
// flow (as driven by a Wasm translator) guarantees this count is final by
// the time all code preceding that block's first use has been processed.
func (b *Builder) BlockPredCount(block Block) int { return len(b.blockData(block).preds) }

// BlockSealed reports whether block has already been sealed, for callers
// that need to seal an arbitrary (not necessarily current) block exactly
// once, such as a loop header revisited at the loop's own End.
func (b *Builder) BlockSealed(block Block) bool { return b.blockData(block).sealed }

// CreateBlock allocates a fresh, unsealed, unfilled block.
func (b *Builder) CreateBlock() Block {
	idx := b.blocks.Alloc(newBlockData())
	return Block{idx}
}

// SwitchToBlock sets the current block. Panics if block is filled: this is
// a programmer-error condition, not a recoverable one, since the caller
// must track which blocks it has already terminated.
func (b *Builder) SwitchToBlock(block Block) {
	bd := b.blockData(block)
	if bd.filled {
		panic("ir: BUG: switch to already-filled block " + block.String())
	}
	b.current = block
}

func (b *Builder) blockData(block Block) *blockData {
	return b.blocks.Get(block.Idx)
}

// DeclareVariables allocates n fresh contiguous variables of type ty.
func (b *Builder) DeclareVariables(n int, ty Type) (Variable, *Error) {
	return b.vars.DeclareVariables(n, ty)
}

// allocValue allocates a fresh, as-yet-unassociated Value of type ty. The
// caller must immediately record its ValueAssoc.
func (b *Builder) allocValue(ty Type) Value {
	v := makeValue(uint32(b.valueType.Len()))
	b.valueType.Insert(v.Idx, ty)
	b.valueAssoc.Insert(v.Idx, ValueAssoc{})
	b.valueUsers.Insert(v.Idx, nil)
	return v
}

func (b *Builder) typeOf(v Value) Type {
	ty, _ := b.valueType.Get(v.Idx)
	return ty
}

// ValueType returns the type of a Value produced so far during
// construction, for callers (such as a Wasm translator) that need to infer
// a result type from an operand rather than carry it separately.
func (b *Builder) ValueType(v Value) Type {
	ty, _ := b.valueType.Get(v.Idx)
	return ty
}

// addUser records that instr references value, maintaining the value ->
// users index incrementally so global value replacement never has to walk
// the whole function.
func (b *Builder) addUser(value Value, instr Instr) {
	if !value.Valid() {
		return
	}
	users, _ := b.valueUsers.Get(value.Idx)
	if users == nil {
		users = make(map[Instr]struct{})
		b.valueUsers.Insert(value.Idx, users)
	}
	users[instr] = struct{}{}
}

func (b *Builder) removeUser(value Value, instr Instr) {
	if !value.Valid() {
		return
	}
	users, ok := b.valueUsers.Get(value.Idx)
	if !ok {
		return
	}
	delete(users, instr)
}

// recordUsers walks instr's operands and registers it as their user. Called
// once, right after the instruction's operands are finalized at append
// time.
func (b *Builder) recordUsers(id Instr) {
	instr := b.instrs.Get(id.Idx)
	instr.VisitValues(func(v Value) bool {
		b.addUser(v, id)
		return true
	})
}

// appendInstr appends instr to block's body (requires block unfilled),
// allocates a result Value if the opcode produces one, and returns the new
// Instr handle plus that Value (ValueInvalid if none).
func (b *Builder) appendInstr(block Block, instr Instruction, resultType Type) (Instr, Value, *Error) {
	bd := b.blockData(block)
	if bd.filled {
		return InstrInvalid, ValueInvalid, errBlockAlreadyFilled(block)
	}
	id := Instr{b.instrs.Alloc(instr)}
	b.instrVal.Insert(id.Idx, ValueInvalid)
	bd.body = append(bd.body, id)

	var result Value
	if instr.op.ProducesValue() {
		result = b.allocValue(resultType)
		b.valueAssoc.Insert(result.Idx, InstrAssoc(id))
		b.instrVal.Insert(id.Idx, result)
	}
	b.recordUsers(id)

	if instr.op.IsTerminal() {
		bd.filled = true
		if err := b.registerTerminalPreds(block, b.instrs.GetPtr(id.Idx)); err != nil {
			return id, result, err
		}
	}
	return id, result, nil
}

// registerTerminalPreds runs when a terminal branch is appended: it
// registers `from` as a predecessor of every target, requiring each target
// not yet sealed and rejecting a duplicate edge.
func (b *Builder) registerTerminalPreds(from Block, instr *Instruction) *Error {
	addEdge := func(to Block) *Error {
		toData := b.blockData(to)
		if toData.sealed {
			return errPredecessorForSealedBlock(to, from)
		}
		if toData.hasPred(from) {
			return errBranchAlreadyExists(from, to)
		}
		toData.preds = append(toData.preds, from)
		return nil
	}
	switch instr.op {
	case OpBr:
		return addEdge(instr.target)
	case OpIfThenElse:
		if err := addEdge(instr.targetThen); err != nil {
			return err
		}
		return addEdge(instr.targetElse)
	case OpBrTable:
		for _, t := range instr.targets {
			if err := addEdge(t); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// prependPhi inserts a fresh, operand-less φ at block's head, keeping all
// previously-inserted φs ahead of ordinary instructions.
func (b *Builder) prependPhi(block Block, ty Type) (Instr, Value) {
	bd := b.blockData(block)
	id := Instr{b.instrs.Alloc(Instruction{op: OpPhi, ty: ty})}
	b.instrVal.Insert(id.Idx, ValueInvalid)

	phiCount := 0
	for _, instrID := range bd.body {
		instr := b.instrs.Get(instrID.Idx)
		if instr.IsPhi() {
			phiCount++
		} else {
			break
		}
	}
	bd.body = append(bd.body, InstrInvalid) // grow by one
	copy(bd.body[phiCount+1:], bd.body[phiCount:])
	bd.body[phiCount] = id

	result := b.allocValue(ty)
	b.valueAssoc.Insert(result.Idx, InstrAssoc(id))
	b.instrVal.Insert(id.Idx, result)
	return id, result
}

// WriteVar records value as var's definition in the current block.
func (b *Builder) WriteVar(v Variable, value Value) *Error {
	return b.vars.WriteVar(v, value, b.current, b.typeOf)
}

// ReadVar resolves var's latest definition reachable from the current
// block.
func (b *Builder) ReadVar(v Variable) (Value, *Error) {
	return b.readVarIn(v, b.current)
}

// readVarIn is the recursive core of variable resolution: a local
// definition short-circuits it, an unsealed block gets an incomplete φ
// completed later at sealing time, and a sealed block with one predecessor
// recurses into it directly rather than inserting a trivial φ.
func (b *Builder) readVarIn(v Variable, block Block) (Value, *Error) {
	if val, ok, err := b.vars.ForBlock(v, block); err != nil {
		return ValueInvalid, err
	} else if ok {
		return val, nil
	}

	bd := b.blockData(block)

	if !bd.sealed {
		// Step 5: unsealed -- insert an incomplete phi, to be resolved at
		// Seal time.
		ty := b.vars.declaredType(v)
		phiID, phiVal := b.prependPhi(block, ty)
		if err := b.vars.WriteVar(v, phiVal, block, b.typeOf); err != nil {
			return ValueInvalid, err
		}
		bd.incompletePhis[v] = phiID
		return phiVal, nil
	}

	switch len(bd.preds) {
	case 0:
		return ValueInvalid, errReadBeforeWrite(v)
	case 1:
		val, err := b.readVarIn(v, bd.preds[0])
		if err != nil {
			return ValueInvalid, err
		}
		if err := b.vars.WriteVar(v, val, block, b.typeOf); err != nil {
			return ValueInvalid, err
		}
		return val, nil
	default:
		ty := b.vars.declaredType(v)
		phiID, phiVal := b.prependPhi(block, ty)
		// Install before recursing (design note "Cyclic value graphs") to
		// bound self-recursion through loop headers.
		if err := b.vars.WriteVar(v, phiVal, block, b.typeOf); err != nil {
			return ValueInvalid, err
		}
		preds := make([]Block, len(bd.preds))
		copy(preds, bd.preds)
		for _, pred := range preds {
			predVal, err := b.readVarIn(v, pred)
			if err != nil {
				return ValueInvalid, err
			}
			b.instrs.GetPtr(phiID.Idx).AppendPhiOperand(pred, predVal)
			b.addUser(predVal, phiID)
		}
		resolved, err := b.tryEliminateTrivialPhi(phiID, phiVal)
		if err != nil {
			return ValueInvalid, err
		}
		if resolved != phiVal {
			if err := b.vars.WriteVar(v, resolved, block, b.typeOf); err != nil {
				return ValueInvalid, err
			}
		}
		return resolved, nil
	}
}

// SealBlockAt requires block unsealed; it fills in every incomplete φ's
// remaining operands from the (now-final) predecessor set, attempts
// trivial-φ elimination on each, then marks block sealed.
func (b *Builder) SealBlockAt(block Block) *Error {
	bd := b.blockData(block)
	if bd.sealed {
		panic("ir: BUG: block " + block.String() + " is already sealed")
	}

	for v, phiID := range bd.incompletePhis {
		phiVal, _ := b.instrValue(phiID)
		preds := make([]Block, len(bd.preds))
		copy(preds, bd.preds)
		for _, pred := range preds {
			predVal, err := b.readVarIn(v, pred)
			if err != nil {
				return err
			}
			b.instrs.GetPtr(phiID.Idx).AppendPhiOperand(pred, predVal)
			b.addUser(predVal, phiID)
		}
		resolved, err := b.tryEliminateTrivialPhi(phiID, phiVal)
		if err != nil {
			return err
		}
		// Only re-point block's definition if it still names the φ: the block
		// may have written v itself after the read that created the φ.
		if cur, ok, _ := b.vars.ForBlock(v, block); resolved != phiVal && ok && cur == phiVal {
			if err := b.vars.WriteVar(v, resolved, block, b.typeOf); err != nil {
				return err
			}
		}
	}
	bd.incompletePhis = make(map[Variable]Instr)
	bd.sealed = true
	return nil
}

// SealBlock seals the current block (SealBlockAt(CurrentBlock())).
func (b *Builder) SealBlock() *Error { return b.SealBlockAt(b.current) }

func (b *Builder) instrValue(id Instr) (Value, bool) {
	v, _ := b.instrVal.Get(id.Idx)
	return v, v.Valid()
}

// tryEliminateTrivialPhi returns the value users should now see in place
// of phiVal: either phiVal unchanged (non-trivial) or the single value the
// φ collapsed to, when every operand agrees or only disagrees with itself.
func (b *Builder) tryEliminateTrivialPhi(phiID Instr, phiVal Value) (Value, *Error) {
	instr := b.instrs.GetPtr(phiID.Idx)
	same := ValueInvalid
	for _, pred := range instr.PhiPreds() {
		operand, _ := instr.PhiOperand(pred)
		if operand == phiVal {
			continue // self-reference, ignored
		}
		if same.Valid() && same != operand {
			return phiVal, nil // non-trivial: two distinct non-self operands
		}
		same = operand
	}
	if !same.Valid() {
		return ValueInvalid, errUnreachablePhi(phiVal)
	}

	// Collapse: replace every user's operand phiVal -> same, globally, point
	// any variable definition still naming phiVal at same, and erase the
	// now-dead φ from its block's body.
	b.replaceAllUses(phiVal, same)
	for _, d := range b.vars.defs {
		for blk, val := range d.vals {
			if val == phiVal {
				d.vals[blk] = same
			}
		}
	}
	for _, it := range b.blocks.All() {
		for i, id := range it.Data.body {
			if id == phiID {
				it.Data.body = append(it.Data.body[:i], it.Data.body[i+1:]...)
				break
			}
		}
	}
	return same, nil
}

// replaceAllUses rewrites every instruction referencing old to reference
// new instead, using the value_users map for O(|users(old)|) cost (design
// note "Global value replacement"), then recursively re-checks triviality
// of every other φ that used old, since the replacement may have made it
// trivial.
func (b *Builder) replaceAllUses(old, new Value) {
	if !old.Valid() || old == new {
		return
	}
	users, _ := b.valueUsers.Get(old.Idx)
	if len(users) == 0 {
		return
	}
	affected := make([]Instr, 0, len(users))
	for u := range users {
		affected = append(affected, u)
	}
	for _, u := range affected {
		instr := b.instrs.GetPtr(u.Idx)
		var changed bool
		if instr.IsPhi() {
			changed = instr.ReplacePhiValue(old, new)
		} else {
			changed = instr.ReplaceValues(func(v Value) (Value, bool) {
				if v == old {
					return new, true
				}
				return v, false
			})
		}
		if changed {
			b.removeUser(old, u)
			b.addUser(new, u)
		}
	}

	// Re-check triviality of any φ among the affected set: a replacement
	// may have collapsed it further.
	for _, u := range affected {
		instr := b.instrs.Get(u.Idx)
		if !instr.IsPhi() {
			continue
		}
		val, _ := b.instrValue(u)
		if val == new {
			continue // this is the φ we just resolved from; skip re-entry
		}
		resolved, err := b.tryEliminateTrivialPhi(u, val)
		if err == nil && resolved != val {
			// Nothing else to do here: replaceAllUses(val, resolved) was
			// already invoked by tryEliminateTrivialPhi.
			_ = resolved
		}
	}
}

// missingPred returns the first predecessor present in preds but absent
// from domain, used only to annotate an UnfilledPredecessor error.
func missingPred(preds, domain []Block) Block {
	for _, p := range preds {
		found := false
		for _, d := range domain {
			if d == p {
				found = true
				break
			}
		}
		if !found {
			return p
		}
	}
	return BlockInvalid
}

// Finalize requires every block filled and sealed, and every surviving
// φ's operand domain to exactly equal its block's predecessor set. It
// returns an error rather than a half-built function if either check
// fails, so a caller can never observe a Function with dangling blocks.
func (b *Builder) Finalize() (*Function, *Error) {
	if b.finalized {
		panic("ir: BUG: Finalize called twice")
	}
	for _, it := range b.blocks.All() {
		block := Block{it.Idx}
		if !it.Data.filled {
			return nil, errBlockNotFilledAtFinalize(block)
		}
		if !it.Data.sealed {
			return nil, errBlockNotSealedAtFinalize(block)
		}
	}

	fn := &Function{
		inputs:  append([]Type(nil), b.inputs...),
		outputs: append([]Type(nil), b.outputs...),
		entry:   b.entry,
	}
	for _, it := range b.blocks.All() {
		fn.blocks.Alloc(blockInfo{
			body:  append([]Instr(nil), it.Data.body...),
			preds: append([]Block(nil), it.Data.preds...),
		})
	}
	for _, it := range b.instrs.All() {
		fn.instrs.Alloc(it.Data)
	}
	for i := 0; i < b.valueType.Len(); i++ {
		idx := entity.MakeIdx[valueMarker](uint32(i))
		ty, _ := b.valueType.Get(idx)
		asc, _ := b.valueAssoc.Get(idx)
		fn.valueType.Insert(idx, ty)
		fn.valueAsc.Insert(idx, asc)
	}
	for i := 0; i < b.instrVal.Len(); i++ {
		idx := entity.MakeIdx[instrMarker](uint32(i))
		v, _ := b.instrVal.Get(idx)
		fn.instrVal.Insert(idx, v)
	}

	for _, it := range b.blocks.All() {
		block := Block{it.Idx}
		for _, instrID := range it.Data.body {
			instr := b.instrs.Get(instrID.Idx)
			if !instr.IsPhi() {
				continue
			}
			domain := instr.PhiPreds()
			if len(domain) != len(it.Data.preds) {
				return nil, errUnfilledPredecessor(block, missingPred(it.Data.preds, domain))
			}
			for _, p := range domain {
				if !it.Data.hasPred(p) {
					return nil, errUnfilledPredecessor(block, p)
				}
			}
		}
	}
	b.finalized = true
	return fn, nil
}
