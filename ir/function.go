package ir

import "github.com/mickare/runwell/entity"

// ValueAssoc tags what defines a Value: either the k-th function input
// (live in the entry block) or the instruction that produced it.
type ValueAssoc struct {
	isInput    bool
	inputIndex uint32
	instr      Instr
}

// InputAssoc builds the Input(k) alternative.
func InputAssoc(k uint32) ValueAssoc { return ValueAssoc{isInput: true, inputIndex: k} }

// InstrAssoc builds the Instr(i) alternative.
func InstrAssoc(i Instr) ValueAssoc { return ValueAssoc{instr: i} }

// IsInput reports whether this is the Input(k) alternative.
func (v ValueAssoc) IsInput() bool { return v.isInput }

// InputIndex returns k; only meaningful if IsInput().
func (v ValueAssoc) InputIndex() uint32 { return v.inputIndex }

// DefiningInstr returns the defining instruction; only meaningful if
// !IsInput().
func (v ValueAssoc) DefiningInstr() Instr { return v.instr }

// blockInfo is a finalized block's immutable body and predecessor set, the
// per-block component an entity.Arena[blockMarker, blockInfo] owns on
// behalf of a Function.
type blockInfo struct {
	body  []Instr
	preds []Block
}

// Function is the immutable result of a successful Builder.Finalize: an
// entity.Arena owning every block's body and predecessor set, a second
// entity.Arena owning every instruction, and entity.DenseMap secondary
// maps for the per-value components (type, association, defining-instr
// inverse). Every block is filled and sealed, and every φ's operand
// domain exactly matches its block's predecessor set, for the lifetime of
// a Function.
type Function struct {
	inputs  []Type
	outputs []Type

	blocks entity.Arena[blockMarker, blockInfo] // index == Block.Raw()

	instrs    entity.Arena[instrMarker, Instruction]  // index == Instr.Raw()
	valueType entity.DenseMap[valueMarker, Type]      // index == Value.Raw()
	valueAsc  entity.DenseMap[valueMarker, ValueAssoc] // index == Value.Raw()
	instrVal  entity.DenseMap[instrMarker, Value]     // index == Instr.Raw(); ValueInvalid if none

	entry Block
}

// Inputs returns the function's parameter types, in order.
func (f *Function) Inputs() []Type { return f.inputs }

// InputValues returns the Value handles live in the entry block for each
// parameter, in order. Mirrors Builder.Inputs for callers (such as a test
// interpreter) that only hold a finalized Function, not the Builder that
// produced it.
func (f *Function) InputValues() []Value {
	out := make([]Value, len(f.inputs))
	for i := range f.inputs {
		out[i] = makeValue(uint32(i))
	}
	return out
}

// Outputs returns the function's result types, in order.
func (f *Function) Outputs() []Type { return f.outputs }

// EntryBlock returns the function's entry block.
func (f *Function) EntryBlock() Block { return f.entry }

// NumBlocks returns the number of blocks in creation order.
func (f *Function) NumBlocks() int { return f.blocks.Len() }

// BlockBody returns b's instructions in order.
func (f *Function) BlockBody(b Block) []Instr { return f.blocks.Get(b.Idx).body }

// BlockPreds returns b's predecessor set, which equals the φ operand
// domain of every φ in b.
func (f *Function) BlockPreds(b Block) []Block { return f.blocks.Get(b.Idx).preds }

// Instruction returns a pointer to the stored instruction data for i.
func (f *Function) Instruction(i Instr) *Instruction { return f.instrs.GetPtr(i.Idx) }

// ValueType returns the type of v.
func (f *Function) ValueType(v Value) Type {
	ty, _ := f.valueType.Get(v.Idx)
	return ty
}

// ValueAssociation returns what defines v.
func (f *Function) ValueAssociation(v Value) ValueAssoc {
	asc, _ := f.valueAsc.Get(v.Idx)
	return asc
}

// InstrValue returns the value produced by i, and whether i produces one.
func (f *Function) InstrValue(i Instr) (Value, bool) {
	v, _ := f.instrVal.Get(i.Idx)
	return v, v.Valid()
}

// Format renders the whole function's textual IR: one "bbN:" header per
// block followed by its instructions.
func (f *Function) Format() string {
	out := ""
	for _, it := range f.blocks.All() {
		b := Block{it.Idx}
		out += b.String() + ":\n"
		for _, instrID := range it.Data.body {
			out += "\t" + f.Instruction(instrID).Format() + "\n"
		}
	}
	return out
}
