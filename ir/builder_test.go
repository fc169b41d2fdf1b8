package ir_test

import (
	"testing"

	"github.com/mickare/runwell/ir"
	"github.com/stretchr/testify/require"
)

func TestBuilderReturnConstant(t *testing.T) {
	b := ir.Build().WithInputs().WithOutputs(ir.TypeI32).Body()

	c, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 42))
	require.Nil(t, err)
	require.Nil(t, b.Return(c))
	require.Nil(t, b.SealBlock())

	fn, err := b.Finalize()
	require.Nil(t, err)
	require.Equal(t, "return v0", fn.Instruction(fn.BlockBody(fn.EntryBlock())[1]).Format())
}

func TestBuilderSimpleArithmetic(t *testing.T) {
	b := ir.Build().WithInputs(ir.TypeI32).WithOutputs(ir.TypeI32).Body()

	in := b.Inputs()
	c, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 1))
	require.Nil(t, err)
	sum, err := b.IAdd(ir.TypeI32, in[0], c)
	require.Nil(t, err)
	require.Nil(t, b.Return(sum))
	require.Nil(t, b.SealBlock())

	fn, err := b.Finalize()
	require.Nil(t, err)
	require.Equal(t, 3, len(fn.BlockBody(fn.EntryBlock())))
}

// TestBuilderIfMergeTrivialPhi covers the case where both arms of the
// branch carry the same value into the merge block, so the φ that ReadVar
// would otherwise insert there collapses to that one value instead.
func TestBuilderIfMergeTrivialPhi(t *testing.T) {
	b := ir.Build().WithInputs(ir.TypeBool).WithOutputs(ir.TypeI32).Body()
	x, err := b.DeclareVariables(1, ir.TypeI32)
	require.Nil(t, err)

	entry := b.EntryBlock()
	thenBB := b.CreateBlock()
	elseBB := b.CreateBlock()
	mergeBB := b.CreateBlock()

	cond := b.Inputs()[0]
	five, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 5))
	require.Nil(t, err)
	require.Nil(t, b.WriteVar(x, five))
	require.Nil(t, b.IfThenElse(cond, thenBB, elseBB))
	require.Nil(t, b.SealBlock()) // entry has 0 preds, fine to seal now

	b.SwitchToBlock(thenBB)
	require.Nil(t, b.Br(mergeBB))
	require.Nil(t, b.SealBlockAt(thenBB))

	b.SwitchToBlock(elseBB)
	require.Nil(t, b.Br(mergeBB))
	require.Nil(t, b.SealBlockAt(elseBB))

	b.SwitchToBlock(mergeBB)
	require.Nil(t, b.SealBlockAt(mergeBB))
	got, err := b.ReadVar(x)
	require.Nil(t, err)
	require.Equal(t, five, got, "trivial phi must collapse to the single incoming value")
	require.Nil(t, b.Return(got))

	fn, err := b.Finalize()
	require.Nil(t, err)

	// No phi instruction should survive in mergeBB: the builder must have
	// eliminated it before Finalize.
	for _, id := range fn.BlockBody(mergeBB) {
		require.False(t, fn.Instruction(id).IsPhi(), "trivial phi must not survive to the finalized function")
	}
	_ = entry
}

// TestBuilderIfMergeRealPhi exercises the case where the two arms write
// distinct values, forcing a genuine, surviving φ at the merge block.
func TestBuilderIfMergeRealPhi(t *testing.T) {
	b := ir.Build().WithInputs(ir.TypeBool).WithOutputs(ir.TypeI32).Body()
	x, err := b.DeclareVariables(1, ir.TypeI32)
	require.Nil(t, err)

	thenBB := b.CreateBlock()
	elseBB := b.CreateBlock()
	mergeBB := b.CreateBlock()

	cond := b.Inputs()[0]
	require.Nil(t, b.IfThenElse(cond, thenBB, elseBB))
	require.Nil(t, b.SealBlock())

	b.SwitchToBlock(thenBB)
	one, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 1))
	require.Nil(t, err)
	require.Nil(t, b.WriteVar(x, one))
	require.Nil(t, b.Br(mergeBB))
	require.Nil(t, b.SealBlockAt(thenBB))

	b.SwitchToBlock(elseBB)
	two, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 2))
	require.Nil(t, err)
	require.Nil(t, b.WriteVar(x, two))
	require.Nil(t, b.Br(mergeBB))
	require.Nil(t, b.SealBlockAt(elseBB))

	b.SwitchToBlock(mergeBB)
	require.Nil(t, b.SealBlockAt(mergeBB))
	merged, err := b.ReadVar(x)
	require.Nil(t, err)
	require.Nil(t, b.Return(merged))

	fn, err := b.Finalize()
	require.Nil(t, err)

	assoc := fn.ValueAssociation(merged)
	require.False(t, assoc.IsInput())
	instr := fn.Instruction(assoc.DefiningInstr())
	require.True(t, instr.IsPhi())
	require.ElementsMatch(t, []ir.Block{thenBB, elseBB}, instr.PhiPreds())
}

// TestBuilderCountedLoop exercises the unsealed-block path of §4.4.2 step 5:
// the loop header is switched to and read from before it can be sealed,
// since one of its predecessors (the loop body's back-edge) does not exist
// yet when the header is first built.
func TestBuilderCountedLoop(t *testing.T) {
	b := ir.Build().WithInputs().WithOutputs(ir.TypeI32).Body()
	i, err := b.DeclareVariables(1, ir.TypeI32)
	require.Nil(t, err)

	zero, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 0))
	require.Nil(t, err)
	require.Nil(t, b.WriteVar(i, zero))

	header := b.CreateBlock()
	body := b.CreateBlock()
	exit := b.CreateBlock()

	require.Nil(t, b.Br(header))
	require.Nil(t, b.SealBlock()) // entry: single predecessor-free block, done

	b.SwitchToBlock(header)
	// header is not sealed yet: the back-edge from body hasn't been added.
	iHeader, err := b.ReadVar(i)
	require.Nil(t, err)
	ten, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 10))
	require.Nil(t, err)
	cmp, err := b.ICmp(ir.IntSlt, ir.TypeI32, iHeader, ten)
	require.Nil(t, err)
	require.Nil(t, b.IfThenElse(cmp, body, exit))

	b.SwitchToBlock(body)
	one, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 1))
	require.Nil(t, err)
	iBody, err := b.ReadVar(i)
	require.Nil(t, err)
	next, err := b.IAdd(ir.TypeI32, iBody, one)
	require.Nil(t, err)
	require.Nil(t, b.WriteVar(i, next))
	require.Nil(t, b.Br(header))
	require.Nil(t, b.SealBlockAt(body))

	// Now header has both predecessors (entry, body): safe to seal.
	require.Nil(t, b.SealBlockAt(header))

	b.SwitchToBlock(exit)
	final, err := b.ReadVar(i)
	require.Nil(t, err)
	require.Nil(t, b.Return(final))
	require.Nil(t, b.SealBlockAt(exit))

	fn, err := b.Finalize()
	require.Nil(t, err)

	// The loop counter must resolve through a real phi in header, since it
	// differs between the entry edge (0) and the back edge (i+1).
	headerBody := fn.BlockBody(header)
	var sawPhi bool
	for _, id := range headerBody {
		if fn.Instruction(id).IsPhi() {
			sawPhi = true
		}
	}
	require.True(t, sawPhi, "loop counter must resolve through a surviving phi in the header")
}
