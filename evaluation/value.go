// Package evaluation computes per-instruction facts about the values on the
// operand stack and in the local variables of a method.
package evaluation

import (
	"fmt"
	"math"
)

// Type is the computational type of a value: 'I', 'J', 'F', 'D', 'A' or
// 'R' for a return address. The zero Type is the unusable top type, also
// used for the second slot of a long or double.
type Type byte

const (
	TypeTop           Type = 0
	TypeInt           Type = 'I'
	TypeLong          Type = 'J'
	TypeFloat         Type = 'F'
	TypeDouble        Type = 'D'
	TypeReference     Type = 'A'
	TypeReturnAddress Type = 'R'
)

// TypeOf maps a field descriptor to its computational type.
func TypeOf(desc string) Type {
	if desc == "" {
		return TypeTop
	}
	switch desc[0] {
	case 'Z', 'B', 'C', 'S', 'I':
		return TypeInt
	case 'J':
		return TypeLong
	case 'F':
		return TypeFloat
	case 'D':
		return TypeDouble
	case 'L', '[':
		return TypeReference
	}
	return TypeTop
}

func (t Type) Size() int {
	if t == TypeLong || t == TypeDouble {
		return 2
	}
	return 1
}

// Value is what is known about one value. A known reference is null.
// Values with the same non-zero ID are the same value, produced by one
// execution of one instruction.
type Value struct {
	Type   Type
	Known  bool
	Int    int32
	Long   int64
	Float  float32
	Double float64
	ID     int
}

func Unknown(t Type) Value          { return Value{Type: t} }
func IntValue(v int32) Value        { return Value{Type: TypeInt, Known: true, Int: v} }
func LongValue(v int64) Value       { return Value{Type: TypeLong, Known: true, Long: v} }
func FloatValue(v float32) Value    { return Value{Type: TypeFloat, Known: true, Float: v} }
func DoubleValue(v float64) Value   { return Value{Type: TypeDouble, Known: true, Double: v} }
func NullValue() Value              { return Value{Type: TypeReference, Known: true} }
func (v Value) Size() int           { return v.Type.Size() }
func (v Value) IsCategory2() bool   { return v.Size() == 2 }
func (v Value) IsTop() bool         { return v.Type == TypeTop }
func (v Value) IsNull() bool        { return v.Type == TypeReference && v.Known }
func (v Value) withID(id int) Value { v.ID = id; return v }

// SameConstant reports whether both values are the same known constant.
// Floating point constants compare by bits, so 0.0 and -0.0 differ.
func (v Value) SameConstant(o Value) bool {
	if !v.Known || !o.Known || v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeInt:
		return v.Int == o.Int
	case TypeLong:
		return v.Long == o.Long
	case TypeFloat:
		return math.Float32bits(v.Float) == math.Float32bits(o.Float)
	case TypeDouble:
		return math.Float64bits(v.Double) == math.Float64bits(o.Double)
	case TypeReference:
		return true
	}
	return false
}

// Same reports whether two values are known to be equal at run time.
func (v Value) Same(o Value) bool {
	return v.SameConstant(o) || (v.ID != 0 && v.ID == o.ID && v.Type == o.Type)
}

func (v Value) String() string {
	if v.Type == TypeTop {
		return "top"
	}
	if !v.Known {
		if v.ID != 0 {
			return fmt.Sprintf("%c#%d", v.Type, v.ID)
		}
		return string(rune(v.Type))
	}
	switch v.Type {
	case TypeInt:
		return fmt.Sprintf("%d", v.Int)
	case TypeLong:
		return fmt.Sprintf("%dL", v.Long)
	case TypeFloat:
		return fmt.Sprintf("%gF", v.Float)
	case TypeDouble:
		return fmt.Sprintf("%gD", v.Double)
	}
	return "null"
}

// merge generalizes two values reaching the same point.
func merge(a, b Value) Value {
	if a == b {
		return a
	}
	if a.Type != b.Type {
		return Value{}
	}
	if a.SameConstant(b) {
		a.ID = 0
		return a
	}
	out := Unknown(a.Type)
	if a.ID == b.ID {
		out.ID = a.ID
	}
	return out
}
