package program

import (
	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
	"github.com/dhamidi/kiln/visitor"
)

// InvocationCounts maps each method to the number of call sites invoking
// it across the program classes.
type InvocationCounts map[MethodKey]int

func (c InvocationCounts) Count(key MethodKey) int { return c[key] }

// CountInvocations visits every instruction of every program class.
// Call sites are counted against the resolved method, or against the
// referenced method when it cannot be resolved.
func CountInvocations(pool *Pool) InvocationCounts {
	counts := make(InvocationCounts)
	for _, c := range pool.ProgramClasses() {
		countClass(pool, c.File, counts)
	}
	log.Infof("counted invocations of %d methods", len(counts))
	return counts
}

func countClass(pool *Pool, cf *classfile.ClassFile, counts InvocationCounts) {
	visitor.MethodsAccept(cf, visitor.MemberFunc{Method: func(cf *classfile.ClassFile, m *classfile.MethodInfo) {
		ctx, ok := visitor.CodeContextOf(cf, m)
		if !ok {
			return
		}
		err := visitor.InstructionsAccept(ctx, &invocationCounter{pool: pool, counts: counts})
		if err != nil {
			log.Warningf("count invocations: %s", err)
		}
	}})
}

type invocationCounter struct {
	visitor.NopInstructionVisitor
	pool   *Pool
	counts InvocationCounts
}

func (v *invocationCounter) VisitConstantRef(ctx visitor.CodeContext, offset int, insn *instruction.ConstantRef) {
	switch insn.Op {
	case instruction.OpInvokevirtual, instruction.OpInvokespecial, instruction.OpInvokestatic, instruction.OpInvokeinterface:
	default:
		return
	}
	if m, ok := v.pool.ResolveReference(ctx.Class, insn.Index); ok {
		v.counts[m.Key()]++
		return
	}
	class, name, desc, ok := ctx.ConstantPool().GetRef(insn.Index)
	if ok {
		v.counts[MethodKey{Class: class, Name: name, Descriptor: desc}]++
	}
}
