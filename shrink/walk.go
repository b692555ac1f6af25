package shrink

import (
	"strings"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
	"github.com/dhamidi/kiln/visitor"
)

// references calls fn with a pointer to every constant pool index the class
// holds outside its pool. With an oracle, the parts the oracle drops are
// skipped, so the walk sees exactly what a shrunk class would keep.
type references struct {
	visitor.NopAttributeVisitor
	cf     *classfile.ClassFile
	oracle Oracle
	fn     func(*uint16)
	err    error
}

func walkReferences(cf *classfile.ClassFile, oracle Oracle, fn func(*uint16)) error {
	w := &references{cf: cf, oracle: oracle, fn: fn}
	cp := cf.ConstantPool
	fn(&cf.ThisClass)
	if cf.SuperClass != 0 {
		fn(&cf.SuperClass)
	}
	for i := range cf.Interfaces {
		if w.keepClass(cf.Interfaces[i]) {
			fn(&cf.Interfaces[i])
		}
	}
	for i := range cf.Fields {
		f := &cf.Fields[i]
		if oracle != nil && !fieldUsed(oracle, cf, f) {
			continue
		}
		fn(&f.NameIndex)
		fn(&f.DescriptorIndex)
		w.attributes(visitor.AttributeContext{Class: cf, Field: f}, f.Attributes)
	}
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if oracle != nil && !oracle.IsMethodUsed(cf.ClassName(), m.Name(cp), m.Descriptor(cp)) {
			continue
		}
		fn(&m.NameIndex)
		fn(&m.DescriptorIndex)
		w.attributes(visitor.AttributeContext{Class: cf, Method: m}, m.Attributes)
	}
	w.attributes(visitor.AttributeContext{Class: cf}, cf.Attributes)
	return w.err
}

func (w *references) keepClass(index uint16) bool {
	return w.oracle == nil || w.oracle.IsClassUsed(w.cf.ConstantPool.GetClassName(index))
}

func (w *references) attributes(ctx visitor.AttributeContext, attrs []classfile.AttributeInfo) {
	for i := range attrs {
		if w.oracle != nil && !w.oracle.IsAttributeUsed(&attrs[i]) {
			continue
		}
		w.fn(&attrs[i].NameIndex)
		visitor.AcceptAttribute(ctx, &attrs[i], w)
	}
}

func (w *references) VisitCode(ctx visitor.AttributeContext, a *classfile.CodeAttribute) {
	err := visitor.InstructionsAccept(ctx.CodeContext(a), visitor.InstructionFunc(
		func(_ visitor.CodeContext, offset int, insn instruction.Instruction) {
			if ref, ok := insn.(*instruction.ConstantRef); ok {
				w.fn(&ref.Index)
				ref.Write(a.Code, offset)
			}
		}))
	if err != nil && w.err == nil {
		w.err = err
	}
	for i := range a.ExceptionTable {
		if a.ExceptionTable[i].CatchType != 0 {
			w.fn(&a.ExceptionTable[i].CatchType)
		}
	}
	nested := ctx
	nested.Code = a
	w.attributes(nested, a.Attributes)
}

func (w *references) VisitConstantValue(_ visitor.AttributeContext, a *classfile.ConstantValueAttribute) {
	w.fn(&a.ConstantValueIndex)
}

func (w *references) VisitExceptions(_ visitor.AttributeContext, a *classfile.ExceptionsAttribute) {
	for i := range a.ExceptionIndexTable {
		w.fn(&a.ExceptionIndexTable[i])
	}
}

func (w *references) VisitInnerClasses(_ visitor.AttributeContext, a *classfile.InnerClassesAttribute) {
	for i := range a.Classes {
		e := &a.Classes[i]
		if w.oracle != nil && !innerClassUsed(w.oracle, w.cf.ConstantPool, e) {
			continue
		}
		w.fn(&e.InnerClassInfoIndex)
		if e.OuterClassInfoIndex != 0 {
			w.fn(&e.OuterClassInfoIndex)
		}
		if e.InnerNameIndex != 0 {
			w.fn(&e.InnerNameIndex)
		}
	}
}

func (w *references) VisitEnclosingMethod(_ visitor.AttributeContext, a *classfile.EnclosingMethodAttribute) {
	w.fn(&a.ClassIndex)
	if a.MethodIndex != 0 && (w.oracle == nil || enclosingMethodUsed(w.oracle, w.cf.ConstantPool, a)) {
		w.fn(&a.MethodIndex)
	}
}

func (w *references) VisitSignature(_ visitor.AttributeContext, a *classfile.SignatureAttribute) {
	w.fn(&a.SignatureIndex)
}

func (w *references) VisitSourceFile(_ visitor.AttributeContext, a *classfile.SourceFileAttribute) {
	w.fn(&a.SourceFileIndex)
}

func (w *references) VisitLocalVariableTable(_ visitor.AttributeContext, a *classfile.LocalVariableTableAttribute) {
	for i := range a.LocalVariableTable {
		w.fn(&a.LocalVariableTable[i].NameIndex)
		w.fn(&a.LocalVariableTable[i].DescriptorIndex)
	}
}

func (w *references) VisitLocalVariableTypeTable(_ visitor.AttributeContext, a *classfile.LocalVariableTypeTableAttribute) {
	for i := range a.LocalVariableTypeTable {
		w.fn(&a.LocalVariableTypeTable[i].NameIndex)
		w.fn(&a.LocalVariableTypeTable[i].SignatureIndex)
	}
}

func (w *references) VisitRuntimeVisibleAnnotations(_ visitor.AttributeContext, a *classfile.RuntimeVisibleAnnotationsAttribute) {
	w.annotations(a.Annotations)
}

func (w *references) VisitRuntimeInvisibleAnnotations(_ visitor.AttributeContext, a *classfile.RuntimeInvisibleAnnotationsAttribute) {
	w.annotations(a.Annotations)
}

func (w *references) VisitRuntimeVisibleParameterAnnotations(_ visitor.AttributeContext, a *classfile.RuntimeVisibleParameterAnnotationsAttribute) {
	for _, list := range a.ParameterAnnotations {
		w.annotations(list)
	}
}

func (w *references) VisitRuntimeInvisibleParameterAnnotations(_ visitor.AttributeContext, a *classfile.RuntimeInvisibleParameterAnnotationsAttribute) {
	for _, list := range a.ParameterAnnotations {
		w.annotations(list)
	}
}

func (w *references) VisitAnnotationDefault(_ visitor.AttributeContext, a *classfile.AnnotationDefaultAttribute) {
	w.elementValue(&a.DefaultValue)
}

func (w *references) VisitStackMapTable(_ visitor.AttributeContext, a *classfile.StackMapTableAttribute) {
	for i := range a.Entries {
		visitor.VerificationTypesAccept(&a.Entries[i], w.verificationType)
	}
}

func (w *references) VisitStackMap(_ visitor.AttributeContext, a *classfile.StackMapAttribute) {
	for i := range a.Entries {
		e := &a.Entries[i]
		for j := range e.Locals {
			w.verificationType(&e.Locals[j])
		}
		for j := range e.Stack {
			w.verificationType(&e.Stack[j])
		}
	}
}

func (w *references) verificationType(t *classfile.VerificationType) {
	if t.Tag == classfile.VerificationObject {
		w.fn(&t.Index)
	}
}

func (w *references) VisitBootstrapMethods(_ visitor.AttributeContext, a *classfile.BootstrapMethodsAttribute) {
	for i := range a.BootstrapMethods {
		b := &a.BootstrapMethods[i]
		w.fn(&b.BootstrapMethodRef)
		for j := range b.BootstrapArguments {
			w.fn(&b.BootstrapArguments[j])
		}
	}
}

func (w *references) VisitMethodParameters(_ visitor.AttributeContext, a *classfile.MethodParametersAttribute) {
	for i := range a.Parameters {
		if a.Parameters[i].NameIndex != 0 {
			w.fn(&a.Parameters[i].NameIndex)
		}
	}
}

func (w *references) VisitNestHost(_ visitor.AttributeContext, a *classfile.NestHostAttribute) {
	w.fn(&a.HostClassIndex)
}

func (w *references) VisitNestMembers(_ visitor.AttributeContext, a *classfile.NestMembersAttribute) {
	for i := range a.Classes {
		w.fn(&a.Classes[i])
	}
}

func (w *references) VisitPermittedSubclasses(_ visitor.AttributeContext, a *classfile.PermittedSubclassesAttribute) {
	for i := range a.Classes {
		w.fn(&a.Classes[i])
	}
}

func (w *references) VisitRecord(ctx visitor.AttributeContext, a *classfile.RecordAttribute) {
	for i := range a.Components {
		c := &a.Components[i]
		w.fn(&c.NameIndex)
		w.fn(&c.DescriptorIndex)
		nested := ctx
		nested.Component = c
		w.attributes(nested, c.Attributes)
	}
}

func (w *references) annotations(list []classfile.Annotation) {
	for i := range list {
		if w.oracle == nil || annotationUsed(w.oracle, w.cf.ConstantPool, &list[i]) {
			w.annotation(&list[i])
		}
	}
}

func (w *references) annotation(a *classfile.Annotation) {
	w.fn(&a.TypeIndex)
	for i := range a.ElementValuePairs {
		p := &a.ElementValuePairs[i]
		if w.oracle != nil && !elementValueUsed(w.oracle, w.cf.ConstantPool, &p.Value) {
			continue
		}
		w.fn(&p.ElementNameIndex)
		w.elementValue(&p.Value)
	}
}

func (w *references) elementValue(v *classfile.ElementValue) {
	switch v.Tag {
	case 'e':
		w.fn(&v.EnumConst.TypeNameIndex)
		w.fn(&v.EnumConst.ConstNameIndex)
	case 'c':
		w.fn(&v.ClassInfoIndex)
	case '@':
		w.annotation(v.Annotation)
	case '[':
		for i := range v.Values {
			if w.oracle == nil || elementValueUsed(w.oracle, w.cf.ConstantPool, &v.Values[i]) {
				w.elementValue(&v.Values[i])
			}
		}
	default:
		w.fn(&v.ConstValueIndex)
	}
}

func fieldUsed(o Oracle, cf *classfile.ClassFile, f *classfile.FieldInfo) bool {
	cp := cf.ConstantPool
	return o.IsFieldUsed(cf.ClassName(), f.Name(cp), f.Descriptor(cp))
}

func methodUsed(o Oracle, cf *classfile.ClassFile, m *classfile.MethodInfo) bool {
	cp := cf.ConstantPool
	return o.IsMethodUsed(cf.ClassName(), m.Name(cp), m.Descriptor(cp))
}

// descriptorUsed reports whether the class a field descriptor names, if
// any, is used. Primitive and void descriptors are always used.
func descriptorUsed(o Oracle, desc string) bool {
	desc = strings.TrimLeft(desc, "[")
	if len(desc) > 2 && desc[0] == 'L' && desc[len(desc)-1] == ';' {
		return o.IsClassUsed(desc[1 : len(desc)-1])
	}
	return true
}

func annotationUsed(o Oracle, cp classfile.ConstantPool, a *classfile.Annotation) bool {
	return descriptorUsed(o, cp.GetUtf8(a.TypeIndex))
}

func elementValueUsed(o Oracle, cp classfile.ConstantPool, v *classfile.ElementValue) bool {
	switch v.Tag {
	case 'e':
		return descriptorUsed(o, cp.GetUtf8(v.EnumConst.TypeNameIndex))
	case 'c':
		return descriptorUsed(o, cp.GetUtf8(v.ClassInfoIndex))
	case '@':
		return annotationUsed(o, cp, v.Annotation)
	}
	return true
}

func innerClassUsed(o Oracle, cp classfile.ConstantPool, e *classfile.InnerClassEntry) bool {
	if !o.IsClassUsed(cp.GetClassName(e.InnerClassInfoIndex)) {
		return false
	}
	return e.OuterClassInfoIndex == 0 || o.IsClassUsed(cp.GetClassName(e.OuterClassInfoIndex))
}

func enclosingMethodUsed(o Oracle, cp classfile.ConstantPool, a *classfile.EnclosingMethodAttribute) bool {
	name, desc := cp.GetNameAndType(a.MethodIndex)
	return o.IsMethodUsed(cp.GetClassName(a.ClassIndex), name, desc)
}
