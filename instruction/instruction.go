package instruction

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/dhamidi/kiln/classfile"
)

// Instruction is a decoded bytecode instruction. The concrete types are
// *Simple, *Variable, *ConstantRef, *Branch, *TableSwitch and *LookupSwitch.
type Instruction interface {
	Opcode() Opcode
	// Shrink switches the instruction to its smallest encoding and returns it.
	Shrink() Instruction
	// Length is the encoded size when the instruction starts at offset.
	Length(offset int) int
	// Write encodes the instruction into code at offset.
	Write(code []byte, offset int)
	String() string
}

// Simple covers instructions without operands, bipush, sipush and
// newarray. Constant holds the pushed value for the constant families and
// the array type for newarray.
type Simple struct {
	Op       Opcode
	Constant int32
}

func (s *Simple) Opcode() Opcode { return s.Op }

func (s *Simple) Shrink() Instruction {
	switch s.Op {
	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5, OpBipush, OpSipush:
		switch {
		case s.Constant >= -1 && s.Constant <= 5:
			s.Op = Opcode(int32(OpIconst0) + s.Constant)
		case s.Constant >= math.MinInt8 && s.Constant <= math.MaxInt8:
			s.Op = OpBipush
		case s.Constant >= math.MinInt16 && s.Constant <= math.MaxInt16:
			s.Op = OpSipush
		default:
			panic(classfile.Invariantf("constant %d does not fit in sipush", s.Constant))
		}
	case OpLconst0, OpLconst1:
		s.Op = OpLconst0 + Opcode(s.Constant)
	case OpFconst0, OpFconst1, OpFconst2:
		s.Op = OpFconst0 + Opcode(s.Constant)
	case OpDconst0, OpDconst1:
		s.Op = OpDconst0 + Opcode(s.Constant)
	}
	return s
}

func (s *Simple) Length(offset int) int {
	switch s.Op {
	case OpBipush, OpNewarray:
		return 2
	case OpSipush:
		return 3
	}
	return 1
}

func (s *Simple) Write(code []byte, offset int) {
	code[offset] = byte(s.Op)
	switch s.Op {
	case OpBipush, OpNewarray:
		code[offset+1] = byte(int8(s.Constant))
	case OpSipush:
		binary.BigEndian.PutUint16(code[offset+1:], uint16(int16(s.Constant)))
	}
}

func (s *Simple) String() string {
	switch s.Op {
	case OpBipush, OpSipush, OpNewarray:
		return fmt.Sprintf("%s %d", s.Op, s.Constant)
	}
	return s.Op.String()
}

// Variable covers local variable loads and stores in all their encodings,
// iinc and ret. Op keeps the encoding it was decoded with; Constant is the
// increment of iinc.
type Variable struct {
	Op       Opcode
	Index    int
	Constant int
	Wide     bool
}

// baseVariableOp maps the short forms such as iload_2 to iload.
func baseVariableOp(op Opcode) Opcode {
	switch {
	case op >= OpIload0 && op <= OpAload3:
		return OpIload + (op-OpIload0)/4
	case op >= OpIstore0 && op <= OpAstore3:
		return OpIstore + (op-OpIstore0)/4
	}
	return op
}

func isShortVariableOp(op Opcode) bool {
	return (op >= OpIload0 && op <= OpAload3) || (op >= OpIstore0 && op <= OpAstore3)
}

// BaseOp returns the opcode family without the embedded index.
func (v *Variable) BaseOp() Opcode { return baseVariableOp(v.Op) }

func (v *Variable) Opcode() Opcode { return v.Op }

func (v *Variable) IsLoad() bool {
	base := v.BaseOp()
	return base >= OpIload && base <= OpAload
}

func (v *Variable) IsStore() bool {
	base := v.BaseOp()
	return base >= OpIstore && base <= OpAstore
}

// ValueType returns the internal type letter of the variable: I, J, F, D
// or A. It is I for iinc and A for ret.
func (v *Variable) ValueType() byte {
	switch v.BaseOp() {
	case OpIload, OpIstore, OpIinc:
		return 'I'
	case OpLload, OpLstore:
		return 'J'
	case OpFload, OpFstore:
		return 'F'
	case OpDload, OpDstore:
		return 'D'
	}
	return 'A'
}

// Size is the number of local slots the variable occupies.
func (v *Variable) Size() int {
	switch v.ValueType() {
	case 'J', 'D':
		return 2
	}
	return 1
}

func (v *Variable) Shrink() Instruction {
	base := v.BaseOp()
	v.Op = base
	if (v.IsLoad() || v.IsStore()) && v.Index <= 3 {
		if v.IsLoad() {
			v.Op = OpIload0 + (base-OpIload)*4 + Opcode(v.Index)
		} else {
			v.Op = OpIstore0 + (base-OpIstore)*4 + Opcode(v.Index)
		}
		v.Wide = false
		return v
	}
	v.Wide = v.Index > math.MaxUint8 ||
		(base == OpIinc && (v.Constant < math.MinInt8 || v.Constant > math.MaxInt8))
	return v
}

func (v *Variable) Length(offset int) int {
	switch {
	case isShortVariableOp(v.Op):
		return 1
	case v.Wide && v.Op == OpIinc:
		return 6
	case v.Wide:
		return 4
	case v.Op == OpIinc:
		return 3
	}
	return 2
}

func (v *Variable) Write(code []byte, offset int) {
	if isShortVariableOp(v.Op) {
		code[offset] = byte(v.Op)
		return
	}
	if v.Wide {
		code[offset] = byte(OpWide)
		code[offset+1] = byte(v.Op)
		binary.BigEndian.PutUint16(code[offset+2:], uint16(v.Index))
		if v.Op == OpIinc {
			binary.BigEndian.PutUint16(code[offset+4:], uint16(int16(v.Constant)))
		}
		return
	}
	code[offset] = byte(v.Op)
	code[offset+1] = byte(v.Index)
	if v.Op == OpIinc {
		code[offset+2] = byte(int8(v.Constant))
	}
}

func (v *Variable) String() string {
	if isShortVariableOp(v.Op) {
		return v.Op.String()
	}
	var sb strings.Builder
	if v.Wide {
		sb.WriteString("wide ")
	}
	fmt.Fprintf(&sb, "%s %d", v.Op, v.Index)
	if v.Op == OpIinc {
		fmt.Fprintf(&sb, " %d", v.Constant)
	}
	return sb.String()
}

// ConstantRef covers instructions with a constant pool operand. Constant
// is the argument count of invokeinterface and the dimension count of
// multianewarray.
type ConstantRef struct {
	Op       Opcode
	Index    uint16
	Constant int
}

func (c *ConstantRef) Opcode() Opcode { return c.Op }

func (c *ConstantRef) Shrink() Instruction {
	switch c.Op {
	case OpLdc, OpLdcW:
		if c.Index <= math.MaxUint8 {
			c.Op = OpLdc
		} else {
			c.Op = OpLdcW
		}
	}
	return c
}

func (c *ConstantRef) Length(offset int) int {
	switch c.Op {
	case OpLdc:
		return 2
	case OpInvokeinterface, OpInvokedynamic:
		return 5
	case OpMultianewarray:
		return 4
	}
	return 3
}

func (c *ConstantRef) Write(code []byte, offset int) {
	code[offset] = byte(c.Op)
	if c.Op == OpLdc {
		code[offset+1] = byte(c.Index)
		return
	}
	binary.BigEndian.PutUint16(code[offset+1:], c.Index)
	switch c.Op {
	case OpInvokeinterface:
		code[offset+3] = byte(c.Constant)
		code[offset+4] = 0
	case OpInvokedynamic:
		code[offset+3] = 0
		code[offset+4] = 0
	case OpMultianewarray:
		code[offset+3] = byte(c.Constant)
	}
}

func (c *ConstantRef) String() string {
	switch c.Op {
	case OpInvokeinterface, OpMultianewarray:
		return fmt.Sprintf("%s #%d %d", c.Op, c.Index, c.Constant)
	}
	return fmt.Sprintf("%s #%d", c.Op, c.Index)
}

// Branch covers conditional and unconditional jumps. Offset is relative
// to the start of the instruction.
type Branch struct {
	Op     Opcode
	Offset int32
}

func (b *Branch) Opcode() Opcode { return b.Op }

func fitsInt16(v int32) bool {
	return v >= math.MinInt16 && v <= math.MaxInt16
}

func (b *Branch) Shrink() Instruction {
	switch b.Op {
	case OpGoto, OpGotoW:
		if fitsInt16(b.Offset) {
			b.Op = OpGoto
		} else {
			b.Op = OpGotoW
		}
	case OpJsr, OpJsrW:
		if fitsInt16(b.Offset) {
			b.Op = OpJsr
		} else {
			b.Op = OpJsrW
		}
	default:
		if !fitsInt16(b.Offset) {
			panic(classfile.Invariantf("%s offset %d does not fit in 16 bits", b.Op, b.Offset))
		}
	}
	return b
}

func (b *Branch) Length(offset int) int {
	if b.Op == OpGotoW || b.Op == OpJsrW {
		return 5
	}
	return 3
}

func (b *Branch) Write(code []byte, offset int) {
	code[offset] = byte(b.Op)
	if b.Op == OpGotoW || b.Op == OpJsrW {
		binary.BigEndian.PutUint32(code[offset+1:], uint32(b.Offset))
		return
	}
	binary.BigEndian.PutUint16(code[offset+1:], uint16(int16(b.Offset)))
}

func (b *Branch) String() string {
	return fmt.Sprintf("%s %+d", b.Op, b.Offset)
}

func switchPadding(offset int) int {
	return (4 - (offset+1)%4) % 4
}

// TableSwitch jumps to Offsets[key-Low] for keys in [Low, High] and to
// Default otherwise. All offsets are relative to the instruction.
type TableSwitch struct {
	Default int32
	Low     int32
	High    int32
	Offsets []int32
}

func (s *TableSwitch) Opcode() Opcode { return OpTableswitch }

func (s *TableSwitch) Shrink() Instruction { return s }

func (s *TableSwitch) Length(offset int) int {
	return 1 + switchPadding(offset) + 12 + 4*len(s.Offsets)
}

func (s *TableSwitch) Write(code []byte, offset int) {
	code[offset] = byte(OpTableswitch)
	pos := offset + 1
	for i := 0; i < switchPadding(offset); i++ {
		code[pos] = 0
		pos++
	}
	binary.BigEndian.PutUint32(code[pos:], uint32(s.Default))
	binary.BigEndian.PutUint32(code[pos+4:], uint32(s.Low))
	binary.BigEndian.PutUint32(code[pos+8:], uint32(s.High))
	pos += 12
	for _, o := range s.Offsets {
		binary.BigEndian.PutUint32(code[pos:], uint32(o))
		pos += 4
	}
}

func (s *TableSwitch) String() string {
	return fmt.Sprintf("tableswitch %d..%d default %+d %v", s.Low, s.High, s.Default, s.Offsets)
}

// LookupSwitch jumps to Offsets[i] for Keys[i] and to Default otherwise.
type LookupSwitch struct {
	Default int32
	Keys    []int32
	Offsets []int32
}

func (s *LookupSwitch) Opcode() Opcode { return OpLookupswitch }

func (s *LookupSwitch) Shrink() Instruction { return s }

func (s *LookupSwitch) Length(offset int) int {
	return 1 + switchPadding(offset) + 8 + 8*len(s.Keys)
}

func (s *LookupSwitch) Write(code []byte, offset int) {
	code[offset] = byte(OpLookupswitch)
	pos := offset + 1
	for i := 0; i < switchPadding(offset); i++ {
		code[pos] = 0
		pos++
	}
	binary.BigEndian.PutUint32(code[pos:], uint32(s.Default))
	binary.BigEndian.PutUint32(code[pos+4:], uint32(len(s.Keys)))
	pos += 8
	for i, k := range s.Keys {
		binary.BigEndian.PutUint32(code[pos:], uint32(k))
		binary.BigEndian.PutUint32(code[pos+4:], uint32(s.Offsets[i]))
		pos += 8
	}
}

func (s *LookupSwitch) String() string {
	return fmt.Sprintf("lookupswitch %v default %+d %v", s.Keys, s.Default, s.Offsets)
}

// Clone returns a deep copy of insn.
func Clone(insn Instruction) Instruction {
	switch i := insn.(type) {
	case *Simple:
		c := *i
		return &c
	case *Variable:
		c := *i
		return &c
	case *ConstantRef:
		c := *i
		return &c
	case *Branch:
		c := *i
		return &c
	case *TableSwitch:
		c := *i
		c.Offsets = append([]int32(nil), i.Offsets...)
		return &c
	case *LookupSwitch:
		c := *i
		c.Keys = append([]int32(nil), i.Keys...)
		c.Offsets = append([]int32(nil), i.Offsets...)
		return &c
	}
	panic(classfile.Invariantf("unknown instruction type %T", insn))
}

// Equal reports whether two instructions have the same opcode and
// operands.
func Equal(a, b Instruction) bool {
	switch x := a.(type) {
	case *Simple:
		y, ok := b.(*Simple)
		return ok && *x == *y
	case *Variable:
		y, ok := b.(*Variable)
		return ok && *x == *y
	case *ConstantRef:
		y, ok := b.(*ConstantRef)
		return ok && *x == *y
	case *Branch:
		y, ok := b.(*Branch)
		return ok && *x == *y
	case *TableSwitch:
		y, ok := b.(*TableSwitch)
		return ok && x.Default == y.Default && x.Low == y.Low && x.High == y.High && slices.Equal(x.Offsets, y.Offsets)
	case *LookupSwitch:
		y, ok := b.(*LookupSwitch)
		return ok && x.Default == y.Default && slices.Equal(x.Keys, y.Keys) && slices.Equal(x.Offsets, y.Offsets)
	}
	return false
}

// PushInt returns the shortest instruction pushing v. v must fit in the
// sipush range.
func PushInt(v int32) *Simple {
	s := &Simple{Op: OpSipush, Constant: v}
	s.Shrink()
	return s
}

func variableOp(load bool, typ byte) Opcode {
	var base Opcode
	switch typ {
	case 'J':
		base = 1
	case 'F':
		base = 2
	case 'D':
		base = 3
	case 'L', '[', 'A':
		base = 4
	}
	if load {
		return OpIload + base
	}
	return OpIstore + base
}

// Load returns the shortest load of a local of the given descriptor type.
// Boolean, byte, char and short locals load as int.
func Load(typ byte, index int) *Variable {
	v := &Variable{Op: variableOp(true, typ), Index: index}
	v.Shrink()
	return v
}

// Store returns the shortest store into a local of the given descriptor
// type.
func Store(typ byte, index int) *Variable {
	v := &Variable{Op: variableOp(false, typ), Index: index}
	v.Shrink()
	return v
}

// Return returns the return instruction for a method returning the given
// descriptor type, "V" included.
func Return(typ byte) *Simple {
	switch typ {
	case 'V':
		return &Simple{Op: OpReturn}
	case 'J':
		return &Simple{Op: OpLreturn}
	case 'F':
		return &Simple{Op: OpFreturn}
	case 'D':
		return &Simple{Op: OpDreturn}
	case 'L', '[':
		return &Simple{Op: OpAreturn}
	}
	return &Simple{Op: OpIreturn}
}
