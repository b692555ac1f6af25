package editor

import (
	"fmt"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
)

// Composer assembles a method body from fragments. Each fragment has its
// own offset space: instructions and labels are appended with the offsets
// they had in their source, and branches are resolved against the labels
// of the same fragment when it ends. Fragments nest; an inner fragment is
// laid out where it begins in the outer one.
type Composer struct {
	asm        assembler
	fragments  []*fragment
	exceptions []composedException
	root       *fragment
}

type fragment struct {
	labels  map[int]int
	defined map[int]bool
	fixups  []fixup
	handler []classfile.ExceptionTableEntry
}

type fixup struct {
	item    int
	targets []int
}

type composedException struct {
	start, end, handler int
	catchType           uint16
}

func NewComposer() *Composer {
	c := &Composer{}
	c.Reset()
	return c
}

func (c *Composer) Reset() {
	c.asm.reset(0)
	c.fragments = c.fragments[:0]
	c.exceptions = c.exceptions[:0]
	c.root = nil
}

// BeginCodeFragment opens a fragment. estimatedLength is a capacity hint
// in bytes.
func (c *Composer) BeginCodeFragment(estimatedLength int) {
	if cap(c.asm.items)-len(c.asm.items) < estimatedLength/2 {
		items := make([]item, len(c.asm.items), len(c.asm.items)+estimatedLength/2)
		copy(items, c.asm.items)
		c.asm.items = items
	}
	c.fragments = append(c.fragments, &fragment{labels: make(map[int]int), defined: make(map[int]bool)})
}

func (c *Composer) current() *fragment {
	if len(c.fragments) == 0 {
		panic(classfile.Invariantf("no open code fragment"))
	}
	return c.fragments[len(c.fragments)-1]
}

func (f *fragment) label(a *assembler, oldOffset int) int {
	id, ok := f.labels[oldOffset]
	if !ok {
		id = a.newLabel()
		f.labels[oldOffset] = id
	}
	return id
}

// AppendLabel marks oldOffset at the current position.
func (c *Composer) AppendLabel(oldOffset int) {
	f := c.current()
	if f.defined[oldOffset] {
		return
	}
	f.defined[oldOffset] = true
	c.asm.mark(f.label(&c.asm, oldOffset))
}

// AppendInstruction appends insn as the instruction found at oldOffset.
// Its branch offsets are relative to oldOffset.
func (c *Composer) AppendInstruction(oldOffset int, insn instruction.Instruction) {
	f := c.current()
	c.AppendLabel(oldOffset)
	insn = prepare(insn)
	if rel := relativeTargets(insn); rel != nil {
		targets := make([]int, len(rel))
		for i, r := range rel {
			targets[i] = oldOffset + r
		}
		f.fixups = append(f.fixups, fixup{item: len(c.asm.items), targets: targets})
	}
	c.asm.emit(insn, nil)
}

// AppendException adds a handler whose offsets are in the space of the
// current fragment.
func (c *Composer) AppendException(entry classfile.ExceptionTableEntry) {
	f := c.current()
	f.handler = append(f.handler, entry)
}

// EndCodeFragment closes the current fragment and resolves its branches
// and handlers.
func (c *Composer) EndCodeFragment() {
	f := c.current()
	c.fragments = c.fragments[:len(c.fragments)-1]

	resolve := func(oldOffset int) int {
		if !f.defined[oldOffset] {
			panic(classfile.Invariantf("code fragment has no label at offset %d", oldOffset))
		}
		return f.labels[oldOffset]
	}
	for _, fx := range f.fixups {
		ids := make([]int, len(fx.targets))
		for i, t := range fx.targets {
			ids[i] = resolve(t)
		}
		c.asm.items[fx.item].targets = ids
	}
	for _, e := range f.handler {
		c.exceptions = append(c.exceptions, composedException{
			start:     resolve(int(e.StartPC)),
			end:       resolve(int(e.EndPC)),
			handler:   resolve(int(e.HandlerPC)),
			catchType: e.CatchType,
		})
	}
	if len(c.fragments) == 0 {
		c.root = f
	}
}

// CodeLength estimates the length of the code composed so far.
func (c *Composer) CodeLength() int {
	length := 0
	for _, it := range c.asm.items {
		if it.insn != nil {
			length += it.insn.Length(length)
		}
	}
	return length
}

func (c *Composer) layout() ([]byte, []int, []classfile.ExceptionTableEntry, error) {
	if len(c.fragments) > 0 {
		panic(classfile.Invariantf("%d code fragments still open", len(c.fragments)))
	}
	code, labels, err := c.asm.assemble()
	if err != nil {
		return nil, nil, nil, err
	}
	var exceptions []classfile.ExceptionTableEntry
	for _, e := range c.exceptions {
		start, end := labels[e.start], labels[e.end]
		if start >= end {
			continue
		}
		exceptions = append(exceptions, classfile.ExceptionTableEntry{
			StartPC:   uint16(start),
			EndPC:     uint16(end),
			HandlerPC: uint16(labels[e.handler]),
			CatchType: e.catchType,
		})
	}
	return code, labels, exceptions, nil
}

// Code lays out the composed body and returns it with its exception
// table.
func (c *Composer) Code() ([]byte, []classfile.ExceptionTableEntry, error) {
	code, _, exceptions, err := c.layout()
	return code, exceptions, err
}

// Apply stores the composed body into code. Line numbers and local
// variable tables are translated through the labels of the outermost
// fragment; stack maps are dropped.
func (c *Composer) Apply(cf *classfile.ClassFile, method *classfile.MethodInfo, code *classfile.CodeAttribute) error {
	newCode, labels, exceptions, err := c.layout()
	if err != nil {
		return fmt.Errorf("assemble %s: %w", cf.MethodName(method), err)
	}
	m := func(old int) (int, bool) {
		if c.root == nil || !c.root.defined[old] {
			return 0, false
		}
		return labels[c.root.labels[old]], true
	}
	attrs := remapCodeAttributes(code.Attributes, m, false)
	return install(cf, method, code, newCode, exceptions, attrs)
}
