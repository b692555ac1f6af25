package optimize

import (
	"fmt"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/config"
	"github.com/dhamidi/kiln/editor"
	"github.com/dhamidi/kiln/instruction"
	"github.com/dhamidi/kiln/program"
	"github.com/dhamidi/kiln/visitor"
)

// TailRecursionSimplifier turns calls of a method to itself that are
// directly followed by a return into jumps back to its first instruction.
type TailRecursionSimplifier struct {
	// Pool resolves call sites. Without it a call must name the method's
	// own class to count as recursive.
	Pool     *program.Pool
	composer *editor.Composer
}

func NewTailRecursionSimplifier(pool *program.Pool) *TailRecursionSimplifier {
	return &TailRecursionSimplifier{Pool: pool, composer: editor.NewComposer()}
}

func (t *TailRecursionSimplifier) Name() string { return config.PassTailRecursion }

// eligibleForTailCalls reports whether a call to m always runs m's own
// code.
func eligibleForTailCalls(m *classfile.MethodInfo) bool {
	return (m.IsPrivate() || m.IsStatic() || m.IsFinal()) &&
		!m.IsSynchronized() && !m.IsNative() && !m.IsAbstract() &&
		m.AccessFlags&classfile.AccInterface == 0
}

func (t *TailRecursionSimplifier) OptimizeMethod(cf *classfile.ClassFile, method *classfile.MethodInfo, code *classfile.CodeAttribute) (bool, error) {
	if !eligibleForTailCalls(method) {
		return false, nil
	}
	located, err := instruction.DecodeAll(code.Code)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", cf.MethodName(method), err)
	}

	// Returns that something jumps to must stay.
	kept := make(map[int]bool)
	for _, l := range located {
		for _, target := range instruction.Targets(l.Instruction, l.Offset) {
			kept[target] = true
		}
	}
	for _, e := range code.ExceptionTable {
		kept[int(e.HandlerPC)] = true
	}

	desc := method.Descriptor(cf.ConstantPool)
	ret := instruction.Return(classfile.ReturnType(desc)[0])

	t.composer.Reset()
	t.composer.BeginCodeFragment(len(code.Code))
	rewritten := 0
	skip := -1
	for i, l := range located {
		if l.Offset == skip {
			t.composer.AppendLabel(l.Offset)
			continue
		}
		if i+1 < len(located) && t.isTailCall(cf, method, code, l.Offset, l.Instruction, located[i+1].Instruction, ret) {
			t.composer.AppendLabel(l.Offset)
			appendParameterStores(t.composer, desc, method.IsStatic(), 0)
			t.composer.AppendInstruction(l.Offset+1, &instruction.Branch{Op: instruction.OpGoto, Offset: int32(-(l.Offset + 1))})
			if next := located[i+1].Offset; !kept[next] {
				skip = next
			}
			rewritten++
			continue
		}
		t.composer.AppendInstruction(l.Offset, l.Instruction)
	}
	for _, e := range code.ExceptionTable {
		t.composer.AppendException(e)
	}
	t.composer.AppendLabel(len(code.Code))
	t.composer.EndCodeFragment()

	if rewritten == 0 {
		return false, nil
	}
	if err := t.composer.Apply(cf, method, code); err != nil {
		return false, err
	}
	log.Debugf("tail-recursion: %d calls in %s", rewritten, cf.MethodName(method))
	return true, nil
}

// isTailCall reports whether insn calls the visited method itself, next
// returns its result and no handler guards the call.
func (t *TailRecursionSimplifier) isTailCall(cf *classfile.ClassFile, method *classfile.MethodInfo, code *classfile.CodeAttribute,
	offset int, insn, next, ret instruction.Instruction) bool {
	ref, ok := insn.(*instruction.ConstantRef)
	if !ok {
		return false
	}
	switch ref.Op {
	case instruction.OpInvokevirtual, instruction.OpInvokespecial, instruction.OpInvokestatic:
	default:
		return false
	}
	if next.Opcode() != ret.Opcode() || visitor.IsCoveredByException(code, offset) {
		return false
	}
	class, name, desc, ok := cf.ConstantPool.GetRef(ref.Index)
	if !ok {
		return false
	}
	if t.Pool != nil {
		if target, ok := t.Pool.ResolveReference(cf, ref.Index); ok {
			return target.Class.File == cf && target.Method == method
		}
	}
	return class == cf.ClassName() &&
		name == method.Name(cf.ConstantPool) &&
		desc == method.Descriptor(cf.ConstantPool) &&
		(ref.Op == instruction.OpInvokestatic) == method.IsStatic()
}

// appendParameterStores appends a fragment storing the arguments of a
// call, as found on the stack, into the locals of the callee shifted by
// variableOffset. The receiver of an instance method goes last.
func appendParameterStores(c *editor.Composer, desc string, static bool, variableOffset int) {
	types := classfile.ParameterTypes(desc)
	size := classfile.ParameterSize(desc)
	parameterOffset := 1
	if static {
		parameterOffset = 0
	}
	slots := make([]int, len(types))
	slot := 0
	for i, typ := range types {
		slots[i] = slot
		slot += classfile.TypeSize(typ)
	}

	c.BeginCodeFragment(size + 1)
	for i := len(types) - 1; i >= 0; i-- {
		c.AppendInstruction(size-slots[i]-1, instruction.Store(types[i][0], variableOffset+parameterOffset+slots[i]))
	}
	if !static {
		c.AppendInstruction(size, instruction.Store('L', variableOffset))
	}
	c.EndCodeFragment()
}
