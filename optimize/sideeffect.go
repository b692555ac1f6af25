package optimize

import (
	"fmt"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
	"github.com/dhamidi/kiln/program"
)

// SideEffectChecker tells whether removing an instruction could change
// what a program does beyond the values it computes. Field reads and
// arithmetic are treated as free of side effects.
type SideEffectChecker struct {
	// Pool resolves invocations to their declaring method. It may be nil.
	Pool *program.Pool
	// IncludeReturns makes return instructions count as side effects.
	IncludeReturns bool

	pure map[program.MethodKey]bool
}

// NewSideEffectChecker accepts method keys written class.name(descriptor)
// whose invocations have no side effects.
func NewSideEffectChecker(pool *program.Pool, pureMethods []string, includeReturns bool) (*SideEffectChecker, error) {
	c := &SideEffectChecker{Pool: pool, IncludeReturns: includeReturns, pure: make(map[program.MethodKey]bool)}
	for _, s := range pureMethods {
		key, err := program.ParseMethodKey(s)
		if err != nil {
			return nil, fmt.Errorf("no-side-effect method: %w", err)
		}
		c.pure[key] = true
	}
	return c, nil
}

func (c *SideEffectChecker) HasSideEffects(cf *classfile.ClassFile, insn instruction.Instruction) bool {
	op := insn.Opcode()
	switch op {
	case instruction.OpIastore, instruction.OpLastore, instruction.OpFastore, instruction.OpDastore,
		instruction.OpAastore, instruction.OpBastore, instruction.OpCastore, instruction.OpSastore,
		instruction.OpAthrow, instruction.OpMonitorenter, instruction.OpMonitorexit,
		instruction.OpPutstatic, instruction.OpPutfield:
		return true
	case instruction.OpRet, instruction.OpJsr, instruction.OpJsrW:
		return c.IncludeReturns
	case instruction.OpInvokedynamic:
		return true
	}
	if instruction.IsReturn(op) {
		return c.IncludeReturns
	}
	if instruction.IsInvoke(op) {
		return !c.isPure(cf, insn.(*instruction.ConstantRef).Index)
	}
	return false
}

func (c *SideEffectChecker) isPure(cf *classfile.ClassFile, index uint16) bool {
	class, name, desc, ok := cf.ConstantPool.GetRef(index)
	if !ok {
		return false
	}
	key := program.MethodKey{Class: class, Name: name, Descriptor: desc}
	if c.pure[key] {
		return true
	}
	if c.Pool != nil {
		if m, ok := c.Pool.ResolveMethod(class, name, desc); ok {
			return c.pure[m.Key()]
		}
	}
	return false
}
