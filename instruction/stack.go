package instruction

import "github.com/dhamidi/kiln/classfile"

// PopCount is the number of stack slots insn consumes. References into the
// constant pool are resolved through cp.
func PopCount(insn Instruction, cp classfile.ConstantPool) int {
	op := insn.Opcode()
	if n := stackPops[op]; n >= 0 {
		return int(n)
	}
	ref := insn.(*ConstantRef)
	switch op {
	case OpGetstatic:
		return 0
	case OpGetfield:
		return 1
	case OpPutstatic, OpPutfield:
		_, _, desc, _ := cp.GetRef(ref.Index)
		n := classfile.TypeSize(desc)
		if op == OpPutfield {
			n++
		}
		return n
	case OpInvokedynamic:
		_, desc := cp.GetInvokeDynamic(ref.Index)
		return classfile.ParameterSize(desc)
	case OpMultianewarray:
		return ref.Constant
	}
	_, _, desc, _ := cp.GetRef(ref.Index)
	n := classfile.ParameterSize(desc)
	if op != OpInvokestatic {
		n++
	}
	return n
}

// PushCount is the number of stack slots insn produces.
func PushCount(insn Instruction, cp classfile.ConstantPool) int {
	op := insn.Opcode()
	if n := stackPushes[op]; n >= 0 {
		return int(n)
	}
	ref := insn.(*ConstantRef)
	switch op {
	case OpGetstatic, OpGetfield:
		_, _, desc, _ := cp.GetRef(ref.Index)
		return classfile.TypeSize(desc)
	case OpPutstatic, OpPutfield:
		return 0
	case OpInvokedynamic:
		_, desc := cp.GetInvokeDynamic(ref.Index)
		return classfile.TypeSize(classfile.ReturnType(desc))
	}
	_, _, desc, _ := cp.GetRef(ref.Index)
	return classfile.TypeSize(classfile.ReturnType(desc))
}

func IsReturn(op Opcode) bool {
	return op >= OpIreturn && op <= OpReturn
}

func IsInvoke(op Opcode) bool {
	return op >= OpInvokevirtual && op <= OpInvokedynamic
}

func IsConditionalBranch(op Opcode) bool {
	return (op >= OpIfeq && op <= OpIfAcmpne) || op == OpIfnull || op == OpIfnonnull
}

func IsSwitch(op Opcode) bool {
	return op == OpTableswitch || op == OpLookupswitch
}

// EndsBlock reports whether control never falls through to the next
// instruction.
func EndsBlock(op Opcode) bool {
	switch op {
	case OpGoto, OpGotoW, OpAthrow, OpRet, OpTableswitch, OpLookupswitch:
		return true
	}
	return IsReturn(op)
}

// Targets returns the absolute branch targets of an instruction located at
// offset, default target first for switches. Other instructions have none.
// The return point of jsr is not included.
func Targets(insn Instruction, offset int) []int {
	switch i := insn.(type) {
	case *Branch:
		return []int{offset + int(i.Offset)}
	case *TableSwitch:
		targets := make([]int, 0, len(i.Offsets)+1)
		targets = append(targets, offset+int(i.Default))
		for _, o := range i.Offsets {
			targets = append(targets, offset+int(o))
		}
		return targets
	case *LookupSwitch:
		targets := make([]int, 0, len(i.Offsets)+1)
		targets = append(targets, offset+int(i.Default))
		for _, o := range i.Offsets {
			targets = append(targets, offset+int(o))
		}
		return targets
	}
	return nil
}
