package visitor

import "github.com/dhamidi/kiln/classfile"

type MemberVisitor interface {
	VisitField(cf *classfile.ClassFile, f *classfile.FieldInfo)
	VisitMethod(cf *classfile.ClassFile, m *classfile.MethodInfo)
}

type NopMemberVisitor struct{}

func (NopMemberVisitor) VisitField(*classfile.ClassFile, *classfile.FieldInfo)   {}
func (NopMemberVisitor) VisitMethod(*classfile.ClassFile, *classfile.MethodInfo) {}

func FieldsAccept(cf *classfile.ClassFile, v MemberVisitor) {
	for i := range cf.Fields {
		v.VisitField(cf, &cf.Fields[i])
	}
}

func MethodsAccept(cf *classfile.ClassFile, v MemberVisitor) {
	for i := range cf.Methods {
		v.VisitMethod(cf, &cf.Methods[i])
	}
}

// MembersAccept visits the fields, then the methods of cf.
func MembersAccept(cf *classfile.ClassFile, v MemberVisitor) {
	FieldsAccept(cf, v)
	MethodsAccept(cf, v)
}

// MemberFunc adapts a pair of functions to MemberVisitor. Either may be nil.
type MemberFunc struct {
	Field  func(cf *classfile.ClassFile, f *classfile.FieldInfo)
	Method func(cf *classfile.ClassFile, m *classfile.MethodInfo)
}

func (fn MemberFunc) VisitField(cf *classfile.ClassFile, f *classfile.FieldInfo) {
	if fn.Field != nil {
		fn.Field(cf, f)
	}
}

func (fn MemberFunc) VisitMethod(cf *classfile.ClassFile, m *classfile.MethodInfo) {
	if fn.Method != nil {
		fn.Method(cf, m)
	}
}
