package visitor

import (
	"fmt"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
)

// CodeContext is the method body being visited.
type CodeContext struct {
	Class  *classfile.ClassFile
	Method *classfile.MethodInfo
	Code   *classfile.CodeAttribute
}

func (ctx CodeContext) ConstantPool() classfile.ConstantPool { return ctx.Class.ConstantPool }

// MethodName is the qualified name of the method, used in log messages.
func (ctx CodeContext) MethodName() string { return ctx.Class.MethodName(ctx.Method) }

// CodeContextOf returns the context of m, or false when m has no code.
func CodeContextOf(cf *classfile.ClassFile, m *classfile.MethodInfo) (CodeContext, bool) {
	code := m.GetCodeAttribute(cf.ConstantPool)
	if code == nil {
		return CodeContext{}, false
	}
	return CodeContext{Class: cf, Method: m, Code: code}, true
}

type InstructionVisitor interface {
	VisitSimple(ctx CodeContext, offset int, insn *instruction.Simple)
	VisitVariable(ctx CodeContext, offset int, insn *instruction.Variable)
	VisitConstantRef(ctx CodeContext, offset int, insn *instruction.ConstantRef)
	VisitBranch(ctx CodeContext, offset int, insn *instruction.Branch)
	VisitTableSwitch(ctx CodeContext, offset int, insn *instruction.TableSwitch)
	VisitLookupSwitch(ctx CodeContext, offset int, insn *instruction.LookupSwitch)
}

// NopInstructionVisitor ignores every instruction.
type NopInstructionVisitor struct{}

func (NopInstructionVisitor) VisitSimple(CodeContext, int, *instruction.Simple)             {}
func (NopInstructionVisitor) VisitVariable(CodeContext, int, *instruction.Variable)         {}
func (NopInstructionVisitor) VisitConstantRef(CodeContext, int, *instruction.ConstantRef)   {}
func (NopInstructionVisitor) VisitBranch(CodeContext, int, *instruction.Branch)             {}
func (NopInstructionVisitor) VisitTableSwitch(CodeContext, int, *instruction.TableSwitch)   {}
func (NopInstructionVisitor) VisitLookupSwitch(CodeContext, int, *instruction.LookupSwitch) {}

// InstructionAccept dispatches a decoded instruction.
func InstructionAccept(ctx CodeContext, offset int, insn instruction.Instruction, v InstructionVisitor) {
	switch i := insn.(type) {
	case *instruction.Simple:
		v.VisitSimple(ctx, offset, i)
	case *instruction.Variable:
		v.VisitVariable(ctx, offset, i)
	case *instruction.ConstantRef:
		v.VisitConstantRef(ctx, offset, i)
	case *instruction.Branch:
		v.VisitBranch(ctx, offset, i)
	case *instruction.TableSwitch:
		v.VisitTableSwitch(ctx, offset, i)
	case *instruction.LookupSwitch:
		v.VisitLookupSwitch(ctx, offset, i)
	default:
		panic(classfile.Invariantf("unknown instruction type %T", insn))
	}
}

// InstructionsAccept decodes the code of ctx in order and dispatches every
// instruction. Decoded instructions are fresh values; changing them does
// not change the code.
func InstructionsAccept(ctx CodeContext, v InstructionVisitor) error {
	code := ctx.Code.Code
	for offset := 0; offset < len(code); {
		insn, err := instruction.Decode(code, offset)
		if err != nil {
			return fmt.Errorf("decode %s: %w", ctx.MethodName(), err)
		}
		InstructionAccept(ctx, offset, insn, v)
		offset += insn.Length(offset)
	}
	return nil
}

// InstructionFunc adapts a function to InstructionVisitor.
type InstructionFunc func(ctx CodeContext, offset int, insn instruction.Instruction)

func (fn InstructionFunc) VisitSimple(ctx CodeContext, offset int, insn *instruction.Simple) {
	fn(ctx, offset, insn)
}

func (fn InstructionFunc) VisitVariable(ctx CodeContext, offset int, insn *instruction.Variable) {
	fn(ctx, offset, insn)
}

func (fn InstructionFunc) VisitConstantRef(ctx CodeContext, offset int, insn *instruction.ConstantRef) {
	fn(ctx, offset, insn)
}

func (fn InstructionFunc) VisitBranch(ctx CodeContext, offset int, insn *instruction.Branch) {
	fn(ctx, offset, insn)
}

func (fn InstructionFunc) VisitTableSwitch(ctx CodeContext, offset int, insn *instruction.TableSwitch) {
	fn(ctx, offset, insn)
}

func (fn InstructionFunc) VisitLookupSwitch(ctx CodeContext, offset int, insn *instruction.LookupSwitch) {
	fn(ctx, offset, insn)
}

type ExceptionVisitor interface {
	VisitException(ctx CodeContext, entry *classfile.ExceptionTableEntry)
}

// ExceptionFunc adapts a function to ExceptionVisitor.
type ExceptionFunc func(ctx CodeContext, entry *classfile.ExceptionTableEntry)

func (fn ExceptionFunc) VisitException(ctx CodeContext, entry *classfile.ExceptionTableEntry) {
	fn(ctx, entry)
}

// ExceptionsAccept visits every exception table entry in order.
func ExceptionsAccept(ctx CodeContext, v ExceptionVisitor) {
	for i := range ctx.Code.ExceptionTable {
		v.VisitException(ctx, &ctx.Code.ExceptionTable[i])
	}
}

// ExceptionsAcceptAt visits the entries whose range covers offset.
func ExceptionsAcceptAt(ctx CodeContext, offset int, v ExceptionVisitor) {
	for i := range ctx.Code.ExceptionTable {
		if ctx.Code.ExceptionTable[i].Covers(offset) {
			v.VisitException(ctx, &ctx.Code.ExceptionTable[i])
		}
	}
}

// IsCoveredByException reports whether any handler protects offset.
func IsCoveredByException(code *classfile.CodeAttribute, offset int) bool {
	for _, e := range code.ExceptionTable {
		if e.Covers(offset) {
			return true
		}
	}
	return false
}
