// Package ir implements the Runwell-style SSA intermediate representation:
// primitives, the instruction model, and the incremental SSA function
// builder (a Go rendering of the Braun et al. "Simple and Efficient
// Construction of SSA Form" algorithm). Phi nodes are represented as
// explicit instructions rather than implicit block parameters, so callers
// downstream of construction -- a prospective optimizer, a printer -- can
// see them directly in a block's instruction list.
package ir

import (
	"fmt"
	"math"
)

// IntWidth is the bit width of an integer type.
type IntWidth byte

const (
	I8 IntWidth = iota
	I16
	I32
	I64
)

// Bits returns the bit width.
func (w IntWidth) Bits() int {
	switch w {
	case I8:
		return 8
	case I16:
		return 16
	case I32:
		return 32
	case I64:
		return 64
	default:
		panic(fmt.Sprintf("ir: invalid IntWidth %d", w))
	}
}

// AlignExp returns the alignment exponent (2^AlignExp() byte alignment).
func (w IntWidth) AlignExp() byte {
	switch w {
	case I8:
		return 0
	case I16:
		return 1
	case I32:
		return 2
	case I64:
		return 3
	default:
		panic(fmt.Sprintf("ir: invalid IntWidth %d", w))
	}
}

func (w IntWidth) String() string {
	switch w {
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	default:
		return fmt.Sprintf("intwidth(%d)", byte(w))
	}
}

// FloatWidth is the bit width of a float type.
type FloatWidth byte

const (
	F32 FloatWidth = iota
	F64
)

func (w FloatWidth) Bits() int {
	if w == F32 {
		return 32
	}
	return 64
}

func (w FloatWidth) AlignExp() byte {
	if w == F32 {
		return 2
	}
	return 3
}

func (w FloatWidth) String() string {
	if w == F32 {
		return "f32"
	}
	return "f64"
}

// kind is the tag of a Type's underlying sum.
type kind byte

const (
	kindInvalid kind = iota
	kindBool
	kindPtr
	kindInt
	kindFloat
)

// Type is the value type of every SSA Value and instruction operand:
// Bool, Ptr, Int(IntWidth) or Float(FloatWidth). It is a small value type,
// safe to copy and compare with ==.
type Type struct {
	k kind
	i IntWidth
	f FloatWidth
}

// TypeBool, TypePtr are the non-parameterized types.
var (
	TypeBool    = Type{k: kindBool}
	TypePtr     = Type{k: kindPtr}
	TypeInvalid = Type{k: kindInvalid}
)

// TypeInt returns the integer type of the given width.
func TypeInt(w IntWidth) Type { return Type{k: kindInt, i: w} }

// TypeFloat returns the float type of the given width.
func TypeFloat(w FloatWidth) Type { return Type{k: kindFloat, f: w} }

// Convenience constants for the four integer widths and two float widths.
var (
	TypeI8  = TypeInt(I8)
	TypeI16 = TypeInt(I16)
	TypeI32 = TypeInt(I32)
	TypeI64 = TypeInt(I64)
	TypeF32 = TypeFloat(F32)
	TypeF64 = TypeFloat(F64)
)

// IsInt reports whether t is an integer type.
func (t Type) IsInt() bool { return t.k == kindInt }

// IsFloat reports whether t is a float type.
func (t Type) IsFloat() bool { return t.k == kindFloat }

// IsBool reports whether t is Bool.
func (t Type) IsBool() bool { return t.k == kindBool }

// IsPtr reports whether t is Ptr.
func (t Type) IsPtr() bool { return t.k == kindPtr }

// Invalid reports whether t is the zero/invalid type.
func (t Type) Invalid() bool { return t.k == kindInvalid }

// IntWidth returns the integer width; only meaningful when IsInt().
func (t Type) IntWidth() IntWidth { return t.i }

// FloatWidth returns the float width; only meaningful when IsFloat().
func (t Type) FloatWidth() FloatWidth { return t.f }

// Bits returns the bit width of the type. Ptr and Bool are fixed at 32 and
// 8 bits respectively (Ptr shares I32's alignment exponent; Bool is
// byte-sized).
func (t Type) Bits() int {
	switch t.k {
	case kindBool:
		return 8
	case kindPtr:
		return 32
	case kindInt:
		return t.i.Bits()
	case kindFloat:
		return t.f.Bits()
	default:
		panic("ir: Bits of invalid Type")
	}
}

// AlignExp returns the alignment exponent: I8=0, I16=1, I32/F32/Ptr=2,
// I64/F64=3, Bool=0.
func (t Type) AlignExp() byte {
	switch t.k {
	case kindBool:
		return 0
	case kindPtr:
		return 2
	case kindInt:
		return t.i.AlignExp()
	case kindFloat:
		return t.f.AlignExp()
	default:
		panic("ir: AlignExp of invalid Type")
	}
}

// Equal reports whether t and other denote the same type.
func (t Type) Equal(other Type) bool { return t == other }

func (t Type) String() string {
	switch t.k {
	case kindBool:
		return "bool"
	case kindPtr:
		return "ptr"
	case kindInt:
		return t.i.String()
	case kindFloat:
		return t.f.String()
	default:
		return "invalid"
	}
}

// constKind tags which alternative of Const is populated.
type constKind byte

const (
	constBool constKind = iota
	constPtr
	constInt
	constFloat
)

// Const is an immediate value: Bool(b), Ptr(u32), Int(IntConst) or
// Float(FloatConst). Every constant can be materialized as a raw u64 bit
// pattern (Bits) and reports its own Type.
//
// Floats are stored by raw bit pattern rather than as float32/float64 so
// that equality, hashing and round-tripping are bit-exact: -0.0 != +0.0,
// and NaN payloads survive unchanged.
type Const struct {
	ck constKind
	ty Type
	// bits holds the raw materialization: the boolean as 0/1, the u32
	// pointer value zero-extended, the integer's two's-complement pattern
	// masked to its width, or the float's IEEE-754 bit pattern.
	bits uint64
}

// ConstBool constructs a Bool constant.
func ConstBool(b bool) Const {
	var bits uint64
	if b {
		bits = 1
	}
	return Const{ck: constBool, ty: TypeBool, bits: bits}
}

// ConstPtr constructs a Ptr constant.
func ConstPtr(v uint32) Const {
	return Const{ck: constPtr, ty: TypePtr, bits: uint64(v)}
}

// ConstInt constructs an Int constant of the given width, masking v to that
// width's bit pattern.
func ConstInt(w IntWidth, v uint64) Const {
	masked := v
	if bits := w.Bits(); bits < 64 {
		masked &= (uint64(1) << bits) - 1
	}
	return Const{ck: constInt, ty: TypeInt(w), bits: masked}
}

// ConstF32 constructs an F32 constant from its IEEE-754 value.
func ConstF32(v float32) Const {
	return Const{ck: constFloat, ty: TypeFloat(F32), bits: uint64(math.Float32bits(v))}
}

// ConstF64 constructs an F64 constant from its IEEE-754 value.
func ConstF64(v float64) Const {
	return Const{ck: constFloat, ty: TypeFloat(F64), bits: math.Float64bits(v)}
}

// Type implements the per-constant Type() contract.
func (c Const) Type() Type { return c.ty }

// Bits returns the raw u64 bit-pattern materialization.
func (c Const) Bits() uint64 { return c.bits }

// Bool returns the boolean value; only meaningful if c.Type() == TypeBool.
func (c Const) Bool() bool { return c.bits != 0 }

// AsInt64 reinterprets the stored bit pattern as a signed two's-complement
// value sign-extended from the constant's width.
func (c Const) AsInt64() int64 {
	bits := c.ty.Bits()
	v := c.bits
	if bits < 64 {
		signBit := uint64(1) << (bits - 1)
		if v&signBit != 0 {
			v |= ^uint64(0) << bits
		}
	}
	return int64(v)
}

// AsFloat64 reinterprets the stored bit pattern as the constant's float
// value, widened to float64.
func (c Const) AsFloat64() float64 {
	if c.ty.FloatWidth() == F32 {
		return float64(math.Float32frombits(uint32(c.bits)))
	}
	return math.Float64frombits(c.bits)
}

func (c Const) String() string {
	switch c.ck {
	case constBool:
		return fmt.Sprintf("%v", c.Bool())
	case constPtr:
		return fmt.Sprintf("ptr(%d)", uint32(c.bits))
	case constInt:
		return fmt.Sprintf("%d", c.AsInt64())
	case constFloat:
		return fmt.Sprintf("%v", c.AsFloat64())
	default:
		return "<invalid const>"
	}
}
