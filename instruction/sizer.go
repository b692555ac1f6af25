package instruction

import (
	"fmt"

	"github.com/dhamidi/kiln/classfile"
)

// StackSizes holds the operand stack depth before each reachable
// instruction of a method body.
type StackSizes struct {
	Before   []int
	MaxStack int
}

// Reached reports whether the instruction at offset is reachable from the
// entry point or an exception handler.
func (s *StackSizes) Reached(offset int) bool {
	return offset >= 0 && offset < len(s.Before) && s.Before[offset] >= 0
}

// ComputeStackSizes runs a depth-first pass over the control flow of code,
// entering exception handlers with one slot for the thrown exception.
func ComputeStackSizes(cp classfile.ConstantPool, code []byte, exceptions []classfile.ExceptionTableEntry) (*StackSizes, error) {
	sizes := &StackSizes{Before: make([]int, len(code))}
	for i := range sizes.Before {
		sizes.Before[i] = -1
	}

	type entry struct{ offset, depth int }
	work := []entry{{0, 0}}
	for _, e := range exceptions {
		work = append(work, entry{int(e.HandlerPC), 1})
	}

	for len(work) > 0 {
		next := work[len(work)-1]
		work = work[:len(work)-1]

		offset, depth := next.offset, next.depth
		if offset < 0 || offset >= len(code) {
			return nil, fmt.Errorf("branch to offset %d outside the code", offset)
		}
		for offset < len(code) && sizes.Before[offset] < 0 {
			sizes.Before[offset] = depth
			if depth > sizes.MaxStack {
				sizes.MaxStack = depth
			}
			insn, err := Decode(code, offset)
			if err != nil {
				return nil, err
			}

			depth -= PopCount(insn, cp)
			if depth < 0 {
				return nil, fmt.Errorf("stack underflow at offset %d (%s)", offset, insn)
			}
			depth += PushCount(insn, cp)
			if depth > sizes.MaxStack {
				sizes.MaxStack = depth
			}

			op := insn.Opcode()
			switch {
			case op == OpJsr || op == OpJsrW:
				// The subroutine sees the return address; the code after the
				// jsr resumes without it once ret is reached.
				work = append(work, entry{offset + int(insn.(*Branch).Offset), depth})
				depth--
			default:
				for _, target := range Targets(insn, offset) {
					work = append(work, entry{target, depth})
				}
			}
			if EndsBlock(op) {
				break
			}
			offset += insn.Length(offset)
		}
	}
	return sizes, nil
}

// MaxStack computes the max_stack value for a method body.
func MaxStack(cp classfile.ConstantPool, code []byte, exceptions []classfile.ExceptionTableEntry) (int, error) {
	sizes, err := ComputeStackSizes(cp, code, exceptions)
	if err != nil {
		return 0, err
	}
	return sizes.MaxStack, nil
}

// MaxLocals computes the max_locals value for a method body whose
// parameters, receiver included, take parameterSize slots.
func MaxLocals(code []byte, parameterSize int) (int, error) {
	locals := parameterSize
	insns, err := DecodeAll(code)
	if err != nil {
		return 0, err
	}
	for _, located := range insns {
		if v, ok := located.Instruction.(*Variable); ok {
			if end := v.Index + v.Size(); end > locals {
				locals = end
			}
		}
	}
	return locals, nil
}
