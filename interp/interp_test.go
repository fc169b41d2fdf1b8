package interp_test

import (
	"testing"

	"github.com/mickare/runwell/interp"
	"github.com/mickare/runwell/ir"
	"github.com/stretchr/testify/require"
)

func TestRunReturnConstant(t *testing.T) {
	b := ir.Build().WithInputs().WithOutputs(ir.TypeI32).Body()
	c, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 42))
	require.Nil(t, err)
	require.Nil(t, b.Return(c))
	require.Nil(t, b.SealBlock())
	fn, err := b.Finalize()
	require.Nil(t, err)

	m := interp.NewMachine()
	out, rerr := m.Run(fn, nil)
	require.Nil(t, rerr)
	require.Equal(t, []ir.Const{ir.ConstInt(ir.I32, 42)}, out)
}

func TestRunSimpleArithmetic(t *testing.T) {
	b := ir.Build().WithInputs(ir.TypeI32).WithOutputs(ir.TypeI32).Body()
	in := b.Inputs()
	one, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 1))
	require.Nil(t, err)
	sum, err := b.IAdd(ir.TypeI32, in[0], one)
	require.Nil(t, err)
	sq, err := b.IMul(ir.TypeI32, sum, sum)
	require.Nil(t, err)
	require.Nil(t, b.Return(sq))
	require.Nil(t, b.SealBlock())
	fn, err := b.Finalize()
	require.Nil(t, err)

	m := interp.NewMachine()
	out, rerr := m.Run(fn, []ir.Const{ir.ConstInt(ir.I32, 4)})
	require.Nil(t, rerr)
	require.Equal(t, uint64(25), out[0].Bits()) // (4+1)^2
}

func TestRunIfMergeRealPhi(t *testing.T) {
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
	ten, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 10))
	require.Nil(t, err)
	require.Nil(t, b.WriteVar(x, ten))
	require.Nil(t, b.Br(mergeBB))
	require.Nil(t, b.SealBlockAt(thenBB))

	b.SwitchToBlock(elseBB)
	twenty, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 20))
	require.Nil(t, err)
	require.Nil(t, b.WriteVar(x, twenty))
	require.Nil(t, b.Br(mergeBB))
	require.Nil(t, b.SealBlockAt(elseBB))

	b.SwitchToBlock(mergeBB)
	require.Nil(t, b.SealBlockAt(mergeBB))
	merged, err := b.ReadVar(x)
	require.Nil(t, err)
	require.Nil(t, b.Return(merged))

	fn, err := b.Finalize()
	require.Nil(t, err)

	m := interp.NewMachine()

	out, rerr := m.Run(fn, []ir.Const{ir.ConstBool(true)})
	require.Nil(t, rerr)
	require.Equal(t, int64(10), out[0].AsInt64())

	out, rerr = m.Run(fn, []ir.Const{ir.ConstBool(false)})
	require.Nil(t, rerr)
	require.Equal(t, int64(20), out[0].AsInt64())
}

// TestRunCountedLoop covers a loop counting from 0 up to (but not
// including) an input bound, returning the final counter value.
func TestRunCountedLoop(t *testing.T) {
	b := ir.Build().WithInputs(ir.TypeI32).WithOutputs(ir.TypeI32).Body()
	i, err := b.DeclareVariables(1, ir.TypeI32)
	require.Nil(t, err)

	bound := b.Inputs()[0]
	zero, err := b.Constant(ir.TypeI32, ir.ConstInt(ir.I32, 0))
	require.Nil(t, err)
	require.Nil(t, b.WriteVar(i, zero))

	header := b.CreateBlock()
	body := b.CreateBlock()
	exit := b.CreateBlock()

	require.Nil(t, b.Br(header))
	require.Nil(t, b.SealBlock())

	b.SwitchToBlock(header)
	iHeader, err := b.ReadVar(i)
	require.Nil(t, err)
	cmp, err := b.ICmp(ir.IntSlt, ir.TypeI32, iHeader, bound)
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
	require.Nil(t, b.SealBlockAt(header))

	b.SwitchToBlock(exit)
	final, err := b.ReadVar(i)
	require.Nil(t, err)
	require.Nil(t, b.Return(final))
	require.Nil(t, b.SealBlockAt(exit))

	fn, err := b.Finalize()
	require.Nil(t, err)

	m := interp.NewMachine()
	out, rerr := m.Run(fn, []ir.Const{ir.ConstInt(ir.I32, 7)})
	require.Nil(t, rerr)
	require.Equal(t, int64(7), out[0].AsInt64())
}

func TestRunTrap(t *testing.T) {
	b := ir.Build().WithInputs().WithOutputs().Body()
	require.Nil(t, b.Trap())
	require.Nil(t, b.SealBlock())
	fn, err := b.Finalize()
	require.Nil(t, err)

	m := interp.NewMachine()
	_, rerr := m.Run(fn, nil)
	require.NotNil(t, rerr)
	require.Equal(t, interp.ErrUnreachable, rerr.Kind)
}

func TestRunIntegerDivideByZero(t *testing.T) {
	b := ir.Build().WithInputs(ir.TypeI32, ir.TypeI32).WithOutputs(ir.TypeI32).Body()
	in := b.Inputs()
	q, err := b.SDiv(ir.TypeI32, in[0], in[1])
	require.Nil(t, err)
	require.Nil(t, b.Return(q))
	require.Nil(t, b.SealBlock())
	fn, err := b.Finalize()
	require.Nil(t, err)

	m := interp.NewMachine()
	_, rerr := m.Run(fn, []ir.Const{ir.ConstInt(ir.I32, 10), ir.ConstInt(ir.I32, 0)})
	require.NotNil(t, rerr)
	require.Equal(t, interp.ErrIntegerDivideByZero, rerr.Kind)
}

func TestRunMemoryLoadStore(t *testing.T) {
	b := ir.Build().WithInputs(ir.TypeI32, ir.TypeI32).WithOutputs(ir.TypeI32).Body()
	in := b.Inputs()
	mem := ir.MakeMem(0)
	_, err := b.Store(mem, in[0], 0, in[1])
	require.Nil(t, err)
	loaded, err := b.Load(ir.TypeI32, mem, in[0], 0)
	require.Nil(t, err)
	require.Nil(t, b.Return(loaded))
	require.Nil(t, b.SealBlock())
	fn, err := b.Finalize()
	require.Nil(t, err)

	m := interp.NewMachine()
	m.Memories[mem] = interp.NewMemory(1)
	out, rerr := m.Run(fn, []ir.Const{ir.ConstInt(ir.I32, 16), ir.ConstInt(ir.I32, 0xdeadbeef)})
	require.Nil(t, rerr)
	require.Equal(t, uint64(0xdeadbeef), out[0].Bits())
}
