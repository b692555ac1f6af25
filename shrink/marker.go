package shrink

import (
	"fmt"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/visitor"
)

// ReferenceMarker marks the constants that the used parts of a class refer
// to, following references between constants.
type ReferenceMarker struct {
	Marks *UsageMarks
}

func NewReferenceMarker(marks *UsageMarks) *ReferenceMarker {
	return &ReferenceMarker{Marks: marks}
}

// MarkClass marks the constants of cf still needed once the unused classes,
// members and attributes recorded in the marks are removed.
func (r *ReferenceMarker) MarkClass(cf *classfile.ClassFile) error {
	var mark func(index uint16)
	mark = func(index uint16) {
		if index == 0 || r.Marks.IsConstantUsed(cf, index) {
			return
		}
		if cf.ConstantPool.Get(index) == nil {
			panic(classfile.Invariantf("%s: reference to empty constant %d", cf.ClassName(), index))
		}
		r.Marks.MarkConstant(cf, index)
		for _, ref := range constantReferences(cf, index) {
			mark(*ref)
		}
	}
	err := walkReferences(cf, r.Marks, func(index *uint16) { mark(*index) })
	if err != nil {
		return fmt.Errorf("mark %s: %w", cf.ClassName(), err)
	}
	return nil
}

// constantRefs collects pointers to the pool indices a constant holds.
type constantRefs struct {
	visitor.NopConstantVisitor
	refs []*uint16
}

func constantReferences(cf *classfile.ClassFile, index uint16) []*uint16 {
	c := &constantRefs{}
	visitor.AcceptConstant(cf, index, c)
	return c.refs
}

func (c *constantRefs) add(refs ...*uint16) { c.refs = append(c.refs, refs...) }

func (c *constantRefs) VisitClass(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantClassInfo) {
	c.add(&e.NameIndex)
}

func (c *constantRefs) VisitString(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantStringInfo) {
	c.add(&e.StringIndex)
}

func (c *constantRefs) VisitFieldref(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantFieldrefInfo) {
	c.add(&e.ClassIndex, &e.NameAndTypeIndex)
}

func (c *constantRefs) VisitMethodref(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantMethodrefInfo) {
	c.add(&e.ClassIndex, &e.NameAndTypeIndex)
}

func (c *constantRefs) VisitInterfaceMethodref(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantInterfaceMethodrefInfo) {
	c.add(&e.ClassIndex, &e.NameAndTypeIndex)
}

func (c *constantRefs) VisitNameAndType(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantNameAndTypeInfo) {
	c.add(&e.NameIndex, &e.DescriptorIndex)
}

func (c *constantRefs) VisitMethodHandle(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantMethodHandleInfo) {
	c.add(&e.ReferenceIndex)
}

func (c *constantRefs) VisitMethodType(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantMethodTypeInfo) {
	c.add(&e.DescriptorIndex)
}

func (c *constantRefs) VisitDynamic(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantDynamicInfo) {
	c.add(&e.NameAndTypeIndex)
}

func (c *constantRefs) VisitInvokeDynamic(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantInvokeDynamicInfo) {
	c.add(&e.NameAndTypeIndex)
}

func (c *constantRefs) VisitModule(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantModuleInfo) {
	c.add(&e.NameIndex)
}

func (c *constantRefs) VisitPackage(_ *classfile.ClassFile, _ uint16, e *classfile.ConstantPackageInfo) {
	c.add(&e.NameIndex)
}
