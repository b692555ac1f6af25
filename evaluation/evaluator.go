package evaluation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
)

// ErrUnsupported is returned for method bodies the evaluator cannot
// trace, such as those using jsr and ret.
var ErrUnsupported = errors.New("unsupported construct")

// Facts answers questions about a method body at the instruction offsets
// of the code it was computed for. Stack depths count slots from the top
// of the stack; a long or double occupies two slots, the value itself
// at the lower depth. Untraced offsets report unknown values and no
// targets.
type Facts interface {
	// IsTraced reports whether the instruction at offset can be reached.
	IsTraced(offset int) bool
	StackSizeBefore(offset int) int
	StackBefore(offset, depth int) Value
	StackAfter(offset, depth int) Value
	LocalBefore(offset, slot int) Value
	LocalAfter(offset, slot int) Value
	LocalCount() int
	// BranchTargets lists the offsets a branch or switch instruction can
	// continue at, fall-through included, in ascending order. It is nil
	// for every other instruction.
	BranchTargets(offset int) []int
	// BranchOriginCount is the number of reachable jumps to offset.
	BranchOriginCount(offset int) int
	IsSubroutineStart(offset int) bool
	IsSubroutineReturning(offset int) bool
}

// Analyzer computes the facts of a method body.
type Analyzer interface {
	Analyze(cf *classfile.ClassFile, method *classfile.MethodInfo, code *classfile.CodeAttribute) (Facts, error)
}

// Evaluator is an Analyzer that propagates constants and value identities
// through the control flow of a method until a fixed point is reached.
type Evaluator struct {
	// MaxVisits bounds the number of instruction evaluations per
	// instruction before the analysis gives up.
	MaxVisits int
}

func NewEvaluator() *Evaluator {
	return &Evaluator{MaxVisits: 64}
}

type frame struct {
	locals []Value
	stack  []Value
}

func (f *frame) clone() *frame {
	return &frame{locals: slices.Clone(f.locals), stack: slices.Clone(f.stack)}
}

// stackError aborts the evaluation of one instruction.
type stackError struct{ msg string }

func (f *frame) pushSlot(v Value) { f.stack = append(f.stack, v) }

func (f *frame) popSlot() Value {
	if len(f.stack) == 0 {
		panic(stackError{"stack underflow"})
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) push(v Value) {
	if v.IsCategory2() {
		f.pushSlot(Value{})
	}
	f.pushSlot(v)
}

// popType pops a value that must be of type t. Values of any other type
// come back as unknown values of type t.
func (f *frame) popType(t Type) Value {
	if t.Size() == 2 {
		v := f.popSlot()
		f.popSlot()
		if v.Type != t {
			return Unknown(t)
		}
		return v
	}
	v := f.popSlot()
	if v.Type != t {
		return Unknown(t)
	}
	return v
}

func (f *frame) local(slot int) Value {
	if slot < 0 || slot >= len(f.locals) {
		panic(stackError{fmt.Sprintf("local %d out of range", slot)})
	}
	return f.locals[slot]
}

func (f *frame) setLocal(slot int, v Value) {
	size := v.Size()
	if slot < 0 || slot+size > len(f.locals) {
		panic(stackError{fmt.Sprintf("local %d out of range", slot)})
	}
	if slot > 0 && f.locals[slot-1].IsCategory2() {
		f.locals[slot-1] = Value{}
	}
	f.locals[slot] = v
	if size == 2 {
		f.locals[slot+1] = Value{}
	}
}

// forget strips an identity from every value carrying it.
func (f *frame) forget(id int) {
	for i := range f.locals {
		if f.locals[i].ID == id {
			f.locals[i].ID = 0
		}
	}
	for i := range f.stack {
		if f.stack[i].ID == id {
			f.stack[i].ID = 0
		}
	}
}

// mergeInto generalizes into so it also describes f. It reports whether
// into changed.
func mergeInto(into, f *frame) (bool, error) {
	if len(into.stack) != len(f.stack) {
		return false, fmt.Errorf("inconsistent stack heights %d and %d", len(into.stack), len(f.stack))
	}
	changed := false
	for i := range into.locals {
		if m := merge(into.locals[i], f.locals[i]); m != into.locals[i] {
			into.locals[i] = m
			changed = true
		}
	}
	for i := range into.stack {
		m := merge(into.stack[i], f.stack[i])
		if m.IsTop() && !into.stack[i].IsTop() && !f.stack[i].IsTop() {
			return false, fmt.Errorf("inconsistent stack types %s and %s", into.stack[i], f.stack[i])
		}
		if m != into.stack[i] {
			into.stack[i] = m
			changed = true
		}
	}
	return changed, nil
}

type analysis struct {
	cp     classfile.ConstantPool
	code   *classfile.CodeAttribute
	insns  map[int]instruction.Instruction
	before []*frame
	after  []*frame
	// targets holds the reachable successors of branches and switches.
	targets [][]int
	origins []int
}

// Analyze traces the method body. Methods without code have no facts.
func (e *Evaluator) Analyze(cf *classfile.ClassFile, method *classfile.MethodInfo, code *classfile.CodeAttribute) (Facts, error) {
	located, err := instruction.DecodeAll(code.Code)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", cf.MethodName(method), err)
	}
	a := &analysis{
		cp:      cf.ConstantPool,
		code:    code,
		insns:   make(map[int]instruction.Instruction, len(located)),
		before:  make([]*frame, len(code.Code)),
		after:   make([]*frame, len(code.Code)),
		targets: make([][]int, len(code.Code)),
		origins: make([]int, len(code.Code)+1),
	}
	for _, l := range located {
		a.insns[l.Offset] = l.Instruction
	}
	if len(code.Code) == 0 {
		return a, nil
	}
	a.before[0] = entryFrame(cf.ConstantPool, method, code)

	maxVisits := e.MaxVisits
	if maxVisits <= 0 {
		maxVisits = 64
	}
	visits := make([]int, len(code.Code))
	work := []int{0}
	queued := make([]bool, len(code.Code))
	queued[0] = true
	for len(work) > 0 {
		offset := work[len(work)-1]
		work = work[:len(work)-1]
		queued[offset] = false
		if visits[offset]++; visits[offset] > maxVisits {
			return nil, fmt.Errorf("evaluate %s: no fixed point at offset %d", cf.MethodName(method), offset)
		}

		out, successors, err := a.step(offset)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", cf.MethodName(method), err)
		}
		propagate := func(target int, f *frame) error {
			if target < 0 || target >= len(code.Code) || a.insns[target] == nil {
				return fmt.Errorf("offset %d continues at invalid offset %d", offset, target)
			}
			if a.before[target] == nil {
				a.before[target] = f.clone()
			} else {
				changed, err := mergeInto(a.before[target], f)
				if err != nil {
					return fmt.Errorf("at offset %d: %w", target, err)
				}
				if !changed {
					return nil
				}
			}
			if !queued[target] {
				queued[target] = true
				work = append(work, target)
			}
			return nil
		}
		for _, s := range successors {
			if err := propagate(s, out); err != nil {
				return nil, fmt.Errorf("evaluate %s: %w", cf.MethodName(method), err)
			}
		}
		for _, h := range code.ExceptionTable {
			if offset < int(h.StartPC) || offset >= int(h.EndPC) {
				continue
			}
			hf := a.before[offset].clone()
			for i := range hf.locals {
				hf.locals[i] = merge(hf.locals[i], out.locals[i])
			}
			hf.stack = []Value{Unknown(TypeReference)}
			if err := propagate(int(h.HandlerPC), hf); err != nil {
				return nil, fmt.Errorf("evaluate %s: %w", cf.MethodName(method), err)
			}
		}
	}

	for offset, f := range a.before {
		if f == nil {
			continue
		}
		out, successors, err := a.step(offset)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", cf.MethodName(method), err)
		}
		a.after[offset] = out
		insn := a.insns[offset]
		if !isJump(insn) {
			continue
		}
		successors = slices.Clone(successors)
		slices.Sort(successors)
		a.targets[offset] = slices.Compact(successors)
		for _, t := range instruction.Targets(insn, offset) {
			if slices.Contains(a.targets[offset], t) {
				a.origins[t]++
			}
		}
	}
	return a, nil
}

func isJump(insn instruction.Instruction) bool {
	switch insn.(type) {
	case *instruction.Branch, *instruction.TableSwitch, *instruction.LookupSwitch:
		return true
	}
	return false
}

// entryFrame holds the parameters, each an unknown value identified by
// the negated slot number plus one.
func entryFrame(cp classfile.ConstantPool, method *classfile.MethodInfo, code *classfile.CodeAttribute) *frame {
	size := max(int(code.MaxLocals), method.ParameterSize(cp))
	f := &frame{locals: make([]Value, size)}
	slot := 0
	if !method.IsStatic() {
		f.locals[0] = Unknown(TypeReference).withID(-1)
		slot++
	}
	for _, p := range classfile.ParameterTypes(method.Descriptor(cp)) {
		f.locals[slot] = Unknown(TypeOf(p)).withID(-(slot + 1))
		slot += classfile.TypeSize(p)
	}
	return f
}

// step evaluates the instruction at offset on a copy of its frame.
func (a *analysis) step(offset int) (out *frame, successors []int, err error) {
	insn := a.insns[offset]
	out = a.before[offset].clone()
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(stackError)
			if !ok {
				panic(r)
			}
			out, successors, err = nil, nil, fmt.Errorf("offset %d (%s): %s", offset, insn, se.msg)
		}
	}()

	next := offset + insn.Length(offset)
	fallThrough := func() []int { return []int{next} }
	produce := func(v Value) Value {
		out.forget(offset + 1)
		return v.withID(offset + 1)
	}
	push := func(v Value) { out.push(produce(v)) }

	switch i := insn.(type) {
	case *instruction.Simple:
		return out, a.simple(out, i, next, push), nil

	case *instruction.Variable:
		switch {
		case i.IsLoad():
			t := Type(i.ValueType())
			v := out.local(i.Index)
			if v.Type != t {
				v = Unknown(t)
			}
			if v.ID == 0 {
				v = produce(v)
				if out.locals[i.Index].Type == t {
					out.locals[i.Index] = v
				}
			}
			out.push(v)
		case i.IsStore():
			out.setLocal(i.Index, out.popType(Type(i.ValueType())))
		case i.BaseOp() == instruction.OpIinc:
			v := out.local(i.Index)
			if v.Type == TypeInt && v.Known {
				v = IntValue(v.Int + int32(i.Constant))
			} else {
				v = Unknown(TypeInt)
			}
			out.setLocal(i.Index, produce(v))
		default:
			return nil, nil, ErrUnsupported
		}
		return out, fallThrough(), nil

	case *instruction.ConstantRef:
		a.constantRef(out, i, push)
		return out, fallThrough(), nil

	case *instruction.Branch:
		if i.Op == instruction.OpJsr || i.Op == instruction.OpJsrW {
			return nil, nil, ErrUnsupported
		}
		return out, branch(out, i, offset, next), nil

	case *instruction.TableSwitch:
		key := out.popType(TypeInt)
		if key.Known {
			if key.Int >= i.Low && key.Int <= i.High {
				return out, []int{offset + int(i.Offsets[key.Int-i.Low])}, nil
			}
			return out, []int{offset + int(i.Default)}, nil
		}
		return out, instruction.Targets(i, offset), nil

	case *instruction.LookupSwitch:
		key := out.popType(TypeInt)
		if key.Known {
			for j, k := range i.Keys {
				if k == key.Int {
					return out, []int{offset + int(i.Offsets[j])}, nil
				}
			}
			return out, []int{offset + int(i.Default)}, nil
		}
		return out, instruction.Targets(i, offset), nil
	}
	return nil, nil, fmt.Errorf("offset %d: unknown instruction %T", offset, insn)
}

func arrayElementType(op instruction.Opcode) Type {
	switch op {
	case instruction.OpLaload, instruction.OpLastore:
		return TypeLong
	case instruction.OpFaload, instruction.OpFastore:
		return TypeFloat
	case instruction.OpDaload, instruction.OpDastore:
		return TypeDouble
	case instruction.OpAaload, instruction.OpAastore:
		return TypeReference
	}
	return TypeInt
}

// returnType is the type consumed by the return instructions.
func returnType(op instruction.Opcode) Type {
	switch op {
	case instruction.OpIreturn:
		return TypeInt
	case instruction.OpLreturn:
		return TypeLong
	case instruction.OpFreturn:
		return TypeFloat
	case instruction.OpDreturn:
		return TypeDouble
	case instruction.OpAreturn:
		return TypeReference
	}
	return TypeTop
}

func (a *analysis) simple(out *frame, i *instruction.Simple, next int, push func(Value)) []int {
	op := i.Op
	switch {
	case op == instruction.OpNop:
	case op == instruction.OpAconstNull:
		push(NullValue())
	case op >= instruction.OpIconstM1 && op <= instruction.OpIconst5:
		push(IntValue(int32(op) - int32(instruction.OpIconst0)))
	case op == instruction.OpLconst0 || op == instruction.OpLconst1:
		push(LongValue(int64(op - instruction.OpLconst0)))
	case op >= instruction.OpFconst0 && op <= instruction.OpFconst2:
		push(FloatValue(float32(op - instruction.OpFconst0)))
	case op == instruction.OpDconst0 || op == instruction.OpDconst1:
		push(DoubleValue(float64(op - instruction.OpDconst0)))
	case op == instruction.OpBipush || op == instruction.OpSipush:
		push(IntValue(i.Constant))

	case op >= instruction.OpIaload && op <= instruction.OpSaload:
		out.popType(TypeInt)
		out.popType(TypeReference)
		push(Unknown(arrayElementType(op)))
	case op >= instruction.OpIastore && op <= instruction.OpSastore:
		out.popType(arrayElementType(op))
		out.popType(TypeInt)
		out.popType(TypeReference)

	case op == instruction.OpPop:
		out.popSlot()
	case op == instruction.OpPop2:
		out.popSlot()
		out.popSlot()
	case op == instruction.OpDup:
		v := out.popSlot()
		out.pushSlot(v)
		out.pushSlot(v)
	case op == instruction.OpDupX1:
		v1, v2 := out.popSlot(), out.popSlot()
		out.pushSlots(v1, v2, v1)
	case op == instruction.OpDupX2:
		v1, v2, v3 := out.popSlot(), out.popSlot(), out.popSlot()
		out.pushSlots(v1, v3, v2, v1)
	case op == instruction.OpDup2:
		v1, v2 := out.popSlot(), out.popSlot()
		out.pushSlots(v2, v1, v2, v1)
	case op == instruction.OpDup2X1:
		v1, v2, v3 := out.popSlot(), out.popSlot(), out.popSlot()
		out.pushSlots(v2, v1, v3, v2, v1)
	case op == instruction.OpDup2X2:
		v1, v2, v3, v4 := out.popSlot(), out.popSlot(), out.popSlot(), out.popSlot()
		out.pushSlots(v2, v1, v4, v3, v2, v1)
	case op == instruction.OpSwap:
		v1, v2 := out.popSlot(), out.popSlot()
		out.pushSlots(v1, v2)

	case op >= instruction.OpIadd && op <= instruction.OpDrem, op >= instruction.OpIand && op <= instruction.OpLxor:
		push(arithmetic(out, op))
	case op >= instruction.OpIneg && op <= instruction.OpDneg:
		push(negate(out, op))
	case op >= instruction.OpIshl && op <= instruction.OpLushr:
		distance := out.popType(TypeInt)
		if op == instruction.OpIshl || op == instruction.OpIshr || op == instruction.OpIushr {
			v := out.popType(TypeInt)
			if r, ok := foldInt(op, v.Int, distance.Int); ok && v.Known && distance.Known {
				push(IntValue(r))
			} else {
				push(Unknown(TypeInt))
			}
			break
		}
		v := out.popType(TypeLong)
		if v.Known && distance.Known {
			push(LongValue(foldLongShift(op, v.Long, distance.Int)))
		} else {
			push(Unknown(TypeLong))
		}
	case op >= instruction.OpI2l && op <= instruction.OpI2s:
		v := out.popType(conversionOperand(op))
		if v.Known {
			push(convert(op, v))
		} else {
			push(Unknown(conversionResult(op)))
		}
	case op == instruction.OpLcmp:
		y, x := out.popType(TypeLong), out.popType(TypeLong)
		if x.Known && y.Known {
			push(IntValue(compareLong(x.Long, y.Long)))
		} else {
			push(Unknown(TypeInt))
		}
	case op >= instruction.OpFcmpl && op <= instruction.OpDcmpg:
		t, nan := TypeFloat, int32(-1)
		if op == instruction.OpDcmpl || op == instruction.OpDcmpg {
			t = TypeDouble
		}
		if op == instruction.OpFcmpg || op == instruction.OpDcmpg {
			nan = 1
		}
		y, x := out.popType(t), out.popType(t)
		if x.Known && y.Known {
			if t == TypeFloat {
				push(IntValue(compareFloat(float64(x.Float), float64(y.Float), nan)))
			} else {
				push(IntValue(compareFloat(x.Double, y.Double, nan)))
			}
		} else {
			push(Unknown(TypeInt))
		}

	case instruction.IsReturn(op):
		if t := returnType(op); t != TypeTop {
			out.popType(t)
		}
		return nil
	case op == instruction.OpAthrow:
		out.popType(TypeReference)
		return nil

	case op == instruction.OpNewarray:
		out.popType(TypeInt)
		push(Unknown(TypeReference))
	case op == instruction.OpArraylength:
		out.popType(TypeReference)
		push(Unknown(TypeInt))
	case op == instruction.OpMonitorenter || op == instruction.OpMonitorexit:
		out.popType(TypeReference)
	default:
		panic(stackError{fmt.Sprintf("unexpected opcode %s", op)})
	}
	return []int{next}
}

func (f *frame) pushSlots(vs ...Value) {
	for _, v := range vs {
		f.pushSlot(v)
	}
}

func operandType(op instruction.Opcode) Type {
	switch (op - instruction.OpIadd) % 4 {
	case 1:
		return TypeLong
	case 2:
		return TypeFloat
	case 3:
		return TypeDouble
	}
	return TypeInt
}

func arithmetic(out *frame, op instruction.Opcode) Value {
	if op >= instruction.OpIand {
		// iand, land, ior, lor, ixor, lxor alternate int and long.
		if (op-instruction.OpIand)%2 == 0 {
			return foldInts(out, op)
		}
		return foldLongs(out, op)
	}
	switch operandType(op) {
	case TypeInt:
		return foldInts(out, op)
	case TypeLong:
		return foldLongs(out, op)
	case TypeFloat:
		y, x := out.popType(TypeFloat), out.popType(TypeFloat)
		if x.Known && y.Known {
			return FloatValue(foldFloat(op, x.Float, y.Float))
		}
		return Unknown(TypeFloat)
	}
	y, x := out.popType(TypeDouble), out.popType(TypeDouble)
	if x.Known && y.Known {
		return DoubleValue(foldDouble(op, x.Double, y.Double))
	}
	return Unknown(TypeDouble)
}

func foldInts(out *frame, op instruction.Opcode) Value {
	y, x := out.popType(TypeInt), out.popType(TypeInt)
	if x.Known && y.Known {
		if r, ok := foldInt(op, x.Int, y.Int); ok {
			return IntValue(r)
		}
	}
	return Unknown(TypeInt)
}

func foldLongs(out *frame, op instruction.Opcode) Value {
	y, x := out.popType(TypeLong), out.popType(TypeLong)
	if x.Known && y.Known {
		if r, ok := foldLong(op, x.Long, y.Long); ok {
			return LongValue(r)
		}
	}
	return Unknown(TypeLong)
}

func negate(out *frame, op instruction.Opcode) Value {
	t := operandType(op)
	v := out.popType(t)
	if !v.Known {
		return Unknown(t)
	}
	switch t {
	case TypeInt:
		return IntValue(-v.Int)
	case TypeLong:
		return LongValue(-v.Long)
	case TypeFloat:
		return FloatValue(-v.Float)
	}
	return DoubleValue(-v.Double)
}

func (a *analysis) constantRef(out *frame, i *instruction.ConstantRef, push func(Value)) {
	switch i.Op {
	case instruction.OpLdc, instruction.OpLdcW, instruction.OpLdc2W:
		switch c := a.cp.Get(i.Index).(type) {
		case *classfile.ConstantIntegerInfo:
			push(IntValue(c.Value))
		case *classfile.ConstantFloatInfo:
			push(FloatValue(c.Value))
		case *classfile.ConstantLongInfo:
			push(LongValue(c.Value))
		case *classfile.ConstantDoubleInfo:
			push(DoubleValue(c.Value))
		case *classfile.ConstantDynamicInfo:
			_, desc := a.cp.GetNameAndType(c.NameAndTypeIndex)
			push(Unknown(TypeOf(desc)))
		default:
			push(Unknown(TypeReference))
		}

	case instruction.OpGetstatic, instruction.OpGetfield:
		_, _, desc, _ := a.cp.GetRef(i.Index)
		if i.Op == instruction.OpGetfield {
			out.popType(TypeReference)
		}
		push(Unknown(TypeOf(desc)))
	case instruction.OpPutstatic, instruction.OpPutfield:
		_, _, desc, _ := a.cp.GetRef(i.Index)
		out.popType(TypeOf(desc))
		if i.Op == instruction.OpPutfield {
			out.popType(TypeReference)
		}

	case instruction.OpInvokevirtual, instruction.OpInvokespecial, instruction.OpInvokestatic,
		instruction.OpInvokeinterface, instruction.OpInvokedynamic:
		var desc string
		if i.Op == instruction.OpInvokedynamic {
			_, desc = a.cp.GetInvokeDynamic(i.Index)
		} else {
			_, _, desc, _ = a.cp.GetRef(i.Index)
		}
		params := classfile.ParameterTypes(desc)
		for j := len(params) - 1; j >= 0; j-- {
			out.popType(TypeOf(params[j]))
		}
		if i.Op != instruction.OpInvokestatic && i.Op != instruction.OpInvokedynamic {
			out.popType(TypeReference)
		}
		if ret := classfile.ReturnType(desc); ret != "V" {
			push(Unknown(TypeOf(ret)))
		}

	case instruction.OpNew:
		push(Unknown(TypeReference))
	case instruction.OpAnewarray:
		out.popType(TypeInt)
		push(Unknown(TypeReference))
	case instruction.OpMultianewarray:
		for range i.Constant {
			out.popType(TypeInt)
		}
		push(Unknown(TypeReference))
	case instruction.OpCheckcast:
		v := out.popType(TypeReference)
		out.push(v)
	case instruction.OpInstanceof:
		if v := out.popType(TypeReference); v.IsNull() {
			push(IntValue(0))
		} else {
			push(Unknown(TypeInt))
		}
	default:
		panic(stackError{fmt.Sprintf("unexpected opcode %s", i.Op)})
	}
}

// branch evaluates a jump and returns the offsets it can continue at.
func branch(out *frame, b *instruction.Branch, offset, next int) []int {
	target := offset + int(b.Offset)
	decide := func(known bool, cmp int32) []int {
		if !known {
			return []int{next, target}
		}
		if branchTaken(b.Op, cmp) {
			return []int{target}
		}
		return []int{next}
	}
	switch b.Op {
	case instruction.OpGoto, instruction.OpGotoW:
		return []int{target}
	case instruction.OpIfnull, instruction.OpIfnonnull:
		v := out.popType(TypeReference)
		return decide(v.IsNull(), 0)
	case instruction.OpIfAcmpeq, instruction.OpIfAcmpne:
		w, v := out.popType(TypeReference), out.popType(TypeReference)
		return decide(v.Same(w), 0)
	case instruction.OpIfIcmpeq, instruction.OpIfIcmpne, instruction.OpIfIcmplt,
		instruction.OpIfIcmpge, instruction.OpIfIcmpgt, instruction.OpIfIcmple:
		w, v := out.popType(TypeInt), out.popType(TypeInt)
		switch {
		case v.Known && w.Known:
			return decide(true, compareLong(int64(v.Int), int64(w.Int)))
		case v.Same(w):
			return decide(true, 0)
		}
		return decide(false, 0)
	}
	v := out.popType(TypeInt)
	return decide(v.Known, v.Int)
}
