package wasmfront_test

import (
	"testing"

	"github.com/mickare/runwell/interp"
	"github.com/mickare/runwell/ir"
	"github.com/mickare/runwell/wasmfront"
	"github.com/mickare/runwell/wasmin"
	"github.com/stretchr/testify/require"
)

func runInt32(t *testing.T, fn *ir.Function, args ...int32) int64 {
	t.Helper()
	in := make([]ir.Const, len(args))
	for i, a := range args {
		in[i] = ir.ConstInt(ir.I32, uint64(uint32(a)))
	}
	out, err := interp.NewMachine().Run(fn, in)
	require.Nil(t, err)
	require.Len(t, out, 1)
	return out[0].AsInt64()
}

// TestTranslateSimpleArithmetic covers locals and straight-line arithmetic:
// (local.get 0) (i32.const 1) (i32.add).
func TestTranslateSimpleArithmetic(t *testing.T) {
	body := wasmin.FunctionBody{
		Type: wasmin.FuncType{Params: []wasmin.ValType{wasmin.I32}, Results: []wasmin.ValType{wasmin.I32}},
		Ops: []wasmin.Op{
			{Code: wasmin.OpLocalGet, LocalIndex: 0},
			{Code: wasmin.OpI32Const, ConstI32: 1},
			{Code: wasmin.OpI32Add},
			{Code: wasmin.OpEnd},
		},
	}
	fn, err := wasmfront.Translate(body)
	require.Nil(t, err)
	require.Equal(t, int64(42), runInt32(t, fn, 41))
}

// TestTranslateIfElseResult covers a value-producing if/else, merged through
// a synthetic result variable read back in the continuation.
func TestTranslateIfElseResult(t *testing.T) {
	body := wasmin.FunctionBody{
		Type: wasmin.FuncType{Params: []wasmin.ValType{wasmin.I32}, Results: []wasmin.ValType{wasmin.I32}},
		Ops: []wasmin.Op{
			{Code: wasmin.OpLocalGet, LocalIndex: 0},
			{Code: wasmin.OpIf, Block: wasmin.BlockType{HasResult: true, Result: wasmin.I32}},
			{Code: wasmin.OpI32Const, ConstI32: 10},
			{Code: wasmin.OpElse},
			{Code: wasmin.OpI32Const, ConstI32: 20},
			{Code: wasmin.OpEnd},
		},
	}
	fn, err := wasmfront.Translate(body)
	require.Nil(t, err)
	require.Equal(t, int64(10), runInt32(t, fn, 1))
	require.Equal(t, int64(20), runInt32(t, fn, 0))
}

// TestTranslateIfNoElse covers a result-less if with no else arm, whose
// empty else-block (reached on a false condition) falls through into the
// continuation.
func TestTranslateIfNoElse(t *testing.T) {
	body := wasmin.FunctionBody{
		Type:   wasmin.FuncType{Params: []wasmin.ValType{wasmin.I32}, Results: []wasmin.ValType{wasmin.I32}},
		Locals: []wasmin.LocalEntry{{Count: 1, Type: wasmin.I32}},
		Ops: []wasmin.Op{
			{Code: wasmin.OpI32Const, ConstI32: 0},
			{Code: wasmin.OpLocalSet, LocalIndex: 1},
			{Code: wasmin.OpLocalGet, LocalIndex: 0},
			{Code: wasmin.OpIf},
			{Code: wasmin.OpI32Const, ConstI32: 7},
			{Code: wasmin.OpLocalSet, LocalIndex: 1},
			{Code: wasmin.OpEnd},
			{Code: wasmin.OpLocalGet, LocalIndex: 1},
			{Code: wasmin.OpEnd},
		},
	}
	fn, err := wasmfront.Translate(body)
	require.Nil(t, err)
	require.Equal(t, int64(7), runInt32(t, fn, 1))
	require.Equal(t, int64(0), runInt32(t, fn, 0))
}

// TestTranslateCountedLoop covers a loop/br_if "do-while" counted loop,
// mirroring a classic Wasm for-loop lowering: increment, test, branch back.
func TestTranslateCountedLoop(t *testing.T) {
	body := wasmin.FunctionBody{
		Type:   wasmin.FuncType{Params: []wasmin.ValType{wasmin.I32}, Results: []wasmin.ValType{wasmin.I32}},
		Locals: []wasmin.LocalEntry{{Count: 1, Type: wasmin.I32}}, // local 1: counter
		Ops: []wasmin.Op{
			{Code: wasmin.OpI32Const, ConstI32: 0},
			{Code: wasmin.OpLocalSet, LocalIndex: 1},
			{Code: wasmin.OpLoop},
			{Code: wasmin.OpLocalGet, LocalIndex: 1},
			{Code: wasmin.OpI32Const, ConstI32: 1},
			{Code: wasmin.OpI32Add},
			{Code: wasmin.OpLocalSet, LocalIndex: 1},
			{Code: wasmin.OpLocalGet, LocalIndex: 1},
			{Code: wasmin.OpLocalGet, LocalIndex: 0},
			{Code: wasmin.OpI32LtS},
			{Code: wasmin.OpBrIf, BrDepth: 0},
			{Code: wasmin.OpEnd},
			{Code: wasmin.OpLocalGet, LocalIndex: 1},
			{Code: wasmin.OpEnd},
		},
	}
	fn, err := wasmfront.Translate(body)
	require.Nil(t, err)
	require.Equal(t, int64(7), runInt32(t, fn, 7))
	require.Equal(t, int64(1), runInt32(t, fn, 0))
}

// TestTranslateBrTable covers a multi-way br_table dispatch lowered as
// nested blocks with a shared accumulator local, the idiomatic Wasm
// encoding of a `switch`.
func TestTranslateBrTable(t *testing.T) {
	body := wasmin.FunctionBody{
		Type:   wasmin.FuncType{Params: []wasmin.ValType{wasmin.I32}, Results: []wasmin.ValType{wasmin.I32}},
		Locals: []wasmin.LocalEntry{{Count: 1, Type: wasmin.I32}}, // local 1: "out"
		Ops: []wasmin.Op{
			{Code: wasmin.OpI32Const, ConstI32: 300},
			{Code: wasmin.OpLocalSet, LocalIndex: 1},

			{Code: wasmin.OpBlock}, // A: depth2 at the br_table, default target
			{Code: wasmin.OpBlock}, // B: depth1 at the br_table, case 1 target
			{Code: wasmin.OpBlock}, // C: depth0 at the br_table, case 0 target

			{Code: wasmin.OpLocalGet, LocalIndex: 0},
			{Code: wasmin.OpBrTable, BrTableDepths: []uint32{0, 1, 2}},
			{Code: wasmin.OpEnd}, // closes C: landed here on case 0

			{Code: wasmin.OpI32Const, ConstI32: 100},
			{Code: wasmin.OpLocalSet, LocalIndex: 1},
			{Code: wasmin.OpBr, BrDepth: 1}, // to A, skipping B's body
			{Code: wasmin.OpEnd},            // closes B: landed here on case 1

			{Code: wasmin.OpI32Const, ConstI32: 200},
			{Code: wasmin.OpLocalSet, LocalIndex: 1},
			{Code: wasmin.OpBr, BrDepth: 0}, // to A
			{Code: wasmin.OpEnd},            // closes A: merge point for all three paths

			{Code: wasmin.OpLocalGet, LocalIndex: 1},
			{Code: wasmin.OpEnd},
		},
	}
	fn, err := wasmfront.Translate(body)
	require.Nil(t, err)
	require.Equal(t, int64(100), runInt32(t, fn, 0))
	require.Equal(t, int64(200), runInt32(t, fn, 1))
	require.Equal(t, int64(300), runInt32(t, fn, 5))
}

// TestTranslateUnreachableTraps covers `unreachable` lowering to a Trap
// terminal, and an interpreter run surfacing it as ErrUnreachable.
func TestTranslateUnreachableTraps(t *testing.T) {
	body := wasmin.FunctionBody{
		Type: wasmin.FuncType{},
		Ops: []wasmin.Op{
			{Code: wasmin.OpUnreachable},
		},
	}
	fn, err := wasmfront.Translate(body)
	require.Nil(t, err)

	_, rerr := interp.NewMachine().Run(fn, nil)
	require.NotNil(t, rerr)
	require.Equal(t, interp.ErrUnreachable, rerr.Kind)
}
