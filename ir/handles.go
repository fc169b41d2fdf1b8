package ir

import (
	"fmt"

	"github.com/mickare/runwell/entity"
)

// The distinct entity kinds this IR allocates, each with its own textual
// rendering.
//
// Each handle wraps an entity.Idx[marker] so the entity package's
// arena/secondary-map machinery can be reused verbatim, while each wrapper
// type supplies its own String().

type (
	valueMarker    struct{}
	blockMarker    struct{}
	instrMarker    struct{}
	funcMarker     struct{}
	funcTypeMarker struct{}
	memMarker      struct{}
	tableMarker    struct{}
	variableMarker struct{}
)

// Value identifies an SSA value.
type Value struct{ entity.Idx[valueMarker] }

func (v Value) String() string { return fmt.Sprintf("v%d", v.Raw()) }

// ValueInvalid is the sentinel "no value" handle.
var ValueInvalid = Value{entity.Invalid[valueMarker]()}

func makeValue(raw uint32) Value { return Value{entity.MakeIdx[valueMarker](raw)} }

// Block identifies a basic block.
type Block struct{ entity.Idx[blockMarker] }

func (b Block) String() string { return fmt.Sprintf("bb%d", b.Raw()) }

// BlockInvalid is the sentinel "no block" handle.
var BlockInvalid = Block{entity.Invalid[blockMarker]()}

func makeBlock(raw uint32) Block { return Block{entity.MakeIdx[blockMarker](raw)} }

// Instr identifies an instruction.
type Instr struct{ entity.Idx[instrMarker] }

func (i Instr) String() string { return fmt.Sprintf("instr(%d)", i.Raw()) }

// InstrInvalid is the sentinel "no instruction" handle.
var InstrInvalid = Instr{entity.Invalid[instrMarker]()}

func makeInstr(raw uint32) Instr { return Instr{entity.MakeIdx[instrMarker](raw)} }

// Func identifies a function.
type Func struct{ entity.Idx[funcMarker] }

func (f Func) String() string { return fmt.Sprintf("func%d", f.Raw()) }

// FuncInvalid is the sentinel "no function" handle.
var FuncInvalid = Func{entity.Invalid[funcMarker]()}

// MakeFunc constructs a Func handle from a raw index; exported because
// functions are allocated at the module level, outside this package.
func MakeFunc(raw uint32) Func { return Func{entity.MakeIdx[funcMarker](raw)} }

// FuncType identifies a function signature.
type FuncType struct{ entity.Idx[funcTypeMarker] }

func (t FuncType) String() string { return fmt.Sprintf("func_type(%d)", t.Raw()) }

// MakeFuncType constructs a FuncType handle from a raw index.
func MakeFuncType(raw uint32) FuncType { return FuncType{entity.MakeIdx[funcTypeMarker](raw)} }

// Mem identifies a linear memory.
type Mem struct{ entity.Idx[memMarker] }

func (m Mem) String() string { return fmt.Sprintf("mem(%d)", m.Raw()) }

// MakeMem constructs a Mem handle from a raw index.
func MakeMem(raw uint32) Mem { return Mem{entity.MakeIdx[memMarker](raw)} }

// Table identifies a table.
type Table struct{ entity.Idx[tableMarker] }

func (t Table) String() string { return fmt.Sprintf("table(%d)", t.Raw()) }

// MakeTable constructs a Table handle from a raw index.
func MakeTable(raw uint32) Table { return Table{entity.MakeIdx[tableMarker](raw)} }

// Variable identifies a mutable source-language variable being translated
// to SSA form; distinct from Value, which is immutable by construction.
type Variable struct{ entity.Idx[variableMarker] }

func (v Variable) String() string { return fmt.Sprintf("var(%d)", v.Raw()) }

// Offset returns the variable k positions after v within the same
// contiguous declaration run (DeclareVariables guarantees n variables
// declared together occupy n consecutive indices). Used by callers, such
// as a Wasm local numbering, that declare a run and then need to address
// an arbitrary member of it.
func (v Variable) Offset(k uint32) Variable { return makeVariable(v.Raw() + k) }

// VariableInvalid is the sentinel "no variable" handle.
var VariableInvalid = Variable{entity.Invalid[variableMarker]()}

func makeVariable(raw uint32) Variable { return Variable{entity.MakeIdx[variableMarker](raw)} }
