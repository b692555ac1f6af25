// Package visitor dispatches over the node kinds of a class file model.
//
// Each node family has a visitor interface with one method per variant and
// a Nop implementation to embed, so a visitor only spells out the variants
// it cares about. The Accept functions hold no state; passes compose by
// visiting the same model with different visitors.
package visitor

import "github.com/dhamidi/kiln/classfile"

type ConstantVisitor interface {
	VisitUtf8(cf *classfile.ClassFile, index uint16, c *classfile.ConstantUtf8Info)
	VisitInteger(cf *classfile.ClassFile, index uint16, c *classfile.ConstantIntegerInfo)
	VisitFloat(cf *classfile.ClassFile, index uint16, c *classfile.ConstantFloatInfo)
	VisitLong(cf *classfile.ClassFile, index uint16, c *classfile.ConstantLongInfo)
	VisitDouble(cf *classfile.ClassFile, index uint16, c *classfile.ConstantDoubleInfo)
	VisitClass(cf *classfile.ClassFile, index uint16, c *classfile.ConstantClassInfo)
	VisitString(cf *classfile.ClassFile, index uint16, c *classfile.ConstantStringInfo)
	VisitFieldref(cf *classfile.ClassFile, index uint16, c *classfile.ConstantFieldrefInfo)
	VisitMethodref(cf *classfile.ClassFile, index uint16, c *classfile.ConstantMethodrefInfo)
	VisitInterfaceMethodref(cf *classfile.ClassFile, index uint16, c *classfile.ConstantInterfaceMethodrefInfo)
	VisitNameAndType(cf *classfile.ClassFile, index uint16, c *classfile.ConstantNameAndTypeInfo)
	VisitMethodHandle(cf *classfile.ClassFile, index uint16, c *classfile.ConstantMethodHandleInfo)
	VisitMethodType(cf *classfile.ClassFile, index uint16, c *classfile.ConstantMethodTypeInfo)
	VisitDynamic(cf *classfile.ClassFile, index uint16, c *classfile.ConstantDynamicInfo)
	VisitInvokeDynamic(cf *classfile.ClassFile, index uint16, c *classfile.ConstantInvokeDynamicInfo)
	VisitModule(cf *classfile.ClassFile, index uint16, c *classfile.ConstantModuleInfo)
	VisitPackage(cf *classfile.ClassFile, index uint16, c *classfile.ConstantPackageInfo)
}

// NopConstantVisitor ignores every constant.
type NopConstantVisitor struct{}

func (NopConstantVisitor) VisitUtf8(*classfile.ClassFile, uint16, *classfile.ConstantUtf8Info) {}
func (NopConstantVisitor) VisitInteger(*classfile.ClassFile, uint16, *classfile.ConstantIntegerInfo) {
}
func (NopConstantVisitor) VisitFloat(*classfile.ClassFile, uint16, *classfile.ConstantFloatInfo)   {}
func (NopConstantVisitor) VisitLong(*classfile.ClassFile, uint16, *classfile.ConstantLongInfo)     {}
func (NopConstantVisitor) VisitDouble(*classfile.ClassFile, uint16, *classfile.ConstantDoubleInfo) {}
func (NopConstantVisitor) VisitClass(*classfile.ClassFile, uint16, *classfile.ConstantClassInfo)   {}
func (NopConstantVisitor) VisitString(*classfile.ClassFile, uint16, *classfile.ConstantStringInfo) {}
func (NopConstantVisitor) VisitFieldref(*classfile.ClassFile, uint16, *classfile.ConstantFieldrefInfo) {
}
func (NopConstantVisitor) VisitMethodref(*classfile.ClassFile, uint16, *classfile.ConstantMethodrefInfo) {
}
func (NopConstantVisitor) VisitInterfaceMethodref(*classfile.ClassFile, uint16, *classfile.ConstantInterfaceMethodrefInfo) {
}
func (NopConstantVisitor) VisitNameAndType(*classfile.ClassFile, uint16, *classfile.ConstantNameAndTypeInfo) {
}
func (NopConstantVisitor) VisitMethodHandle(*classfile.ClassFile, uint16, *classfile.ConstantMethodHandleInfo) {
}
func (NopConstantVisitor) VisitMethodType(*classfile.ClassFile, uint16, *classfile.ConstantMethodTypeInfo) {
}
func (NopConstantVisitor) VisitDynamic(*classfile.ClassFile, uint16, *classfile.ConstantDynamicInfo) {
}
func (NopConstantVisitor) VisitInvokeDynamic(*classfile.ClassFile, uint16, *classfile.ConstantInvokeDynamicInfo) {
}
func (NopConstantVisitor) VisitModule(*classfile.ClassFile, uint16, *classfile.ConstantModuleInfo) {
}
func (NopConstantVisitor) VisitPackage(*classfile.ClassFile, uint16, *classfile.ConstantPackageInfo) {
}

// AcceptConstant dispatches the constant at index. Index 0, placeholders
// and out-of-range indices are silently ignored.
func AcceptConstant(cf *classfile.ClassFile, index uint16, v ConstantVisitor) {
	switch c := cf.ConstantPool.Get(index).(type) {
	case *classfile.ConstantUtf8Info:
		v.VisitUtf8(cf, index, c)
	case *classfile.ConstantIntegerInfo:
		v.VisitInteger(cf, index, c)
	case *classfile.ConstantFloatInfo:
		v.VisitFloat(cf, index, c)
	case *classfile.ConstantLongInfo:
		v.VisitLong(cf, index, c)
	case *classfile.ConstantDoubleInfo:
		v.VisitDouble(cf, index, c)
	case *classfile.ConstantClassInfo:
		v.VisitClass(cf, index, c)
	case *classfile.ConstantStringInfo:
		v.VisitString(cf, index, c)
	case *classfile.ConstantFieldrefInfo:
		v.VisitFieldref(cf, index, c)
	case *classfile.ConstantMethodrefInfo:
		v.VisitMethodref(cf, index, c)
	case *classfile.ConstantInterfaceMethodrefInfo:
		v.VisitInterfaceMethodref(cf, index, c)
	case *classfile.ConstantNameAndTypeInfo:
		v.VisitNameAndType(cf, index, c)
	case *classfile.ConstantMethodHandleInfo:
		v.VisitMethodHandle(cf, index, c)
	case *classfile.ConstantMethodTypeInfo:
		v.VisitMethodType(cf, index, c)
	case *classfile.ConstantDynamicInfo:
		v.VisitDynamic(cf, index, c)
	case *classfile.ConstantInvokeDynamicInfo:
		v.VisitInvokeDynamic(cf, index, c)
	case *classfile.ConstantModuleInfo:
		v.VisitModule(cf, index, c)
	case *classfile.ConstantPackageInfo:
		v.VisitPackage(cf, index, c)
	}
}

// ConstantsAccept visits every live constant in pool order.
func ConstantsAccept(cf *classfile.ClassFile, v ConstantVisitor) {
	for i := 1; i < len(cf.ConstantPool); i++ {
		AcceptConstant(cf, uint16(i), v)
	}
}
