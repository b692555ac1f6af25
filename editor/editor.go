package editor

import (
	"fmt"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
)

// Editor queues edits against the instructions of one method body and
// applies them together. Offsets always refer to the original code.
// Branch offsets of queued instructions are relative to the offset they
// are queued at.
type Editor struct {
	codeLength   int
	modified     bool
	replacements []instruction.Instruction
	deleted      []bool
	before       [][]instruction.Instruction
	after        [][]instruction.Instruction
	asm          assembler
}

func NewEditor() *Editor {
	return &Editor{codeLength: -1}
}

// Reset prepares the editor for a body of codeLength bytes, discarding
// any queued edits.
func (e *Editor) Reset(codeLength int) {
	e.codeLength = codeLength
	e.modified = false
	e.replacements = make([]instruction.Instruction, codeLength)
	e.deleted = make([]bool, codeLength)
	e.before = make([][]instruction.Instruction, codeLength)
	e.after = make([][]instruction.Instruction, codeLength)
}

func (e *Editor) check(offset int) {
	if e.codeLength < 0 {
		panic(classfile.Invariantf("editor used without Reset"))
	}
	if offset < 0 || offset >= e.codeLength {
		panic(classfile.Invariantf("edit at offset %d outside code of length %d", offset, e.codeLength))
	}
}

// ReplaceInstruction queues a replacement. Replacing the same offset twice
// is a programming error.
func (e *Editor) ReplaceInstruction(offset int, insn instruction.Instruction) {
	e.check(offset)
	if e.replacements[offset] != nil {
		panic(classfile.Invariantf("instruction at offset %d is already replaced", offset))
	}
	e.replacements[offset] = insn
	e.modified = true
}

func (e *Editor) InsertBeforeInstruction(offset int, insns ...instruction.Instruction) {
	e.check(offset)
	if len(insns) == 0 {
		return
	}
	e.before[offset] = append(e.before[offset], insns...)
	e.modified = true
}

func (e *Editor) InsertAfterInstruction(offset int, insns ...instruction.Instruction) {
	e.check(offset)
	if len(insns) == 0 {
		return
	}
	e.after[offset] = append(e.after[offset], insns...)
	e.modified = true
}

func (e *Editor) DeleteInstruction(offset int) {
	e.check(offset)
	e.deleted[offset] = true
	e.modified = true
}

func (e *Editor) UndeleteInstruction(offset int) {
	e.check(offset)
	e.deleted[offset] = false
}

// IsModified reports whether anything is queued at offset.
func (e *Editor) IsModified(offset int) bool {
	if offset < 0 || offset >= e.codeLength {
		return false
	}
	return e.replacements[offset] != nil || e.deleted[offset] ||
		len(e.before[offset]) > 0 || len(e.after[offset]) > 0
}

// Modified reports whether any edit has been queued since Reset.
func (e *Editor) Modified() bool { return e.modified }

// Apply replays the original instructions of code with the queued edits
// and rewrites code in place: the instructions, the exception table, the
// offsets in nested debug and stack map attributes, and the max stack and
// locals. Exception ranges that become empty are dropped. A branch to a
// deleted instruction lands on whatever is emitted in its place. On error
// code is left untouched. The queue is consumed either way.
func (e *Editor) Apply(cf *classfile.ClassFile, method *classfile.MethodInfo, code *classfile.CodeAttribute) error {
	if e.codeLength < 0 {
		panic(classfile.Invariantf("editor applied without Reset"))
	}
	defer func() { e.codeLength = -1 }()
	if !e.modified {
		return nil
	}
	n := len(code.Code)
	if n != e.codeLength {
		panic(classfile.Invariantf("editor reset for %d bytes but code has %d", e.codeLength, n))
	}

	insns, err := instruction.DecodeAll(code.Code)
	if err != nil {
		return fmt.Errorf("decode code: %w", err)
	}
	boundary := make([]bool, n+1)
	boundary[n] = true
	for _, l := range insns {
		boundary[l.Offset] = true
	}
	for offset := 0; offset < n; offset++ {
		if e.IsModified(offset) && !boundary[offset] {
			panic(classfile.Invariantf("edit at offset %d is not at an instruction boundary", offset))
		}
	}

	queued := func(origin int, insn instruction.Instruction) {
		insn = prepare(insn)
		var targets []int
		for _, rel := range relativeTargets(insn) {
			t := origin + rel
			if t < 0 || t > n || !boundary[t] {
				panic(classfile.Invariantf("%s queued at %d targets offset %d, not an instruction", insn, origin, t))
			}
			targets = append(targets, t)
		}
		e.asm.emit(insn, targets)
	}

	e.asm.reset(n + 1)
	for _, l := range insns {
		o := l.Offset
		e.asm.mark(o)
		for _, insn := range e.before[o] {
			queued(o, insn)
		}
		switch {
		case e.deleted[o]:
		case e.replacements[o] != nil:
			queued(o, e.replacements[o])
		default:
			var targets []int
			for _, rel := range relativeTargets(l.Instruction) {
				t := o + rel
				if t < 0 || t >= n || !boundary[t] {
					return fmt.Errorf("%s at offset %d targets offset %d, not an instruction", l.Instruction, o, t)
				}
				targets = append(targets, t)
			}
			e.asm.emit(l.Instruction, targets)
		}
		for _, insn := range e.after[o] {
			queued(o, insn)
		}
	}
	e.asm.mark(n)

	newCode, labels, err := e.asm.assemble()
	if err != nil {
		return fmt.Errorf("assemble %s: %w", cf.MethodName(method), err)
	}

	// Offsets inside an instruction follow the instruction after them.
	newOffsets := make([]int, n+1)
	next := labels[n]
	for offset := n; offset >= 0; offset-- {
		if boundary[offset] {
			next = labels[offset]
		}
		newOffsets[offset] = next
	}
	m := func(old int) (int, bool) {
		if old < 0 || old > n {
			return 0, false
		}
		return newOffsets[old], true
	}

	var exceptions []classfile.ExceptionTableEntry
	for _, entry := range code.ExceptionTable {
		start, ok1 := m(int(entry.StartPC))
		end, ok2 := m(int(entry.EndPC))
		handler, ok3 := m(int(entry.HandlerPC))
		if !ok1 || !ok2 || !ok3 || start >= end {
			continue
		}
		exceptions = append(exceptions, classfile.ExceptionTableEntry{
			StartPC:   uint16(start),
			EndPC:     uint16(end),
			HandlerPC: uint16(handler),
			CatchType: entry.CatchType,
		})
	}

	attrs := remapCodeAttributes(code.Attributes, m, true)
	return install(cf, method, code, newCode, exceptions, attrs)
}

// install recomputes the stack and local sizes of a new body and stores it
// into code.
func install(cf *classfile.ClassFile, method *classfile.MethodInfo, code *classfile.CodeAttribute,
	newCode []byte, exceptions []classfile.ExceptionTableEntry, attrs []classfile.AttributeInfo) error {
	cp := cf.ConstantPool
	stack, err := instruction.MaxStack(cp, newCode, exceptions)
	if err != nil {
		return fmt.Errorf("compute max stack of %s: %w", cf.MethodName(method), err)
	}
	locals, err := maxLocals(newCode, method.ParameterSize(cp), attrs, cp)
	if err != nil {
		return fmt.Errorf("compute max locals of %s: %w", cf.MethodName(method), err)
	}
	if stack > maxCodeLength || locals > maxCodeLength {
		return fmt.Errorf("%s needs %d stack and %d local slots", cf.MethodName(method), stack, locals)
	}
	code.Code = newCode
	code.ExceptionTable = exceptions
	code.Attributes = attrs
	code.MaxStack = uint16(stack)
	code.MaxLocals = uint16(locals)
	return nil
}
