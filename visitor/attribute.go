package visitor

import "github.com/dhamidi/kiln/classfile"

// AttributeContext locates an attribute. Field and Method are nil for class
// attributes; Code is set for attributes nested in a Code attribute;
// Component is set for attributes of a record component.
type AttributeContext struct {
	Class     *classfile.ClassFile
	Field     *classfile.FieldInfo
	Method    *classfile.MethodInfo
	Code      *classfile.CodeAttribute
	Component *classfile.RecordComponentInfo
	Info      *classfile.AttributeInfo
}

// CodeContext returns the context of the Code attribute being visited.
func (ctx AttributeContext) CodeContext(code *classfile.CodeAttribute) CodeContext {
	return CodeContext{Class: ctx.Class, Method: ctx.Method, Code: code}
}

type AttributeVisitor interface {
	VisitUnknown(ctx AttributeContext, a *classfile.UnknownAttribute)
	VisitCode(ctx AttributeContext, a *classfile.CodeAttribute)
	VisitConstantValue(ctx AttributeContext, a *classfile.ConstantValueAttribute)
	VisitExceptions(ctx AttributeContext, a *classfile.ExceptionsAttribute)
	VisitInnerClasses(ctx AttributeContext, a *classfile.InnerClassesAttribute)
	VisitEnclosingMethod(ctx AttributeContext, a *classfile.EnclosingMethodAttribute)
	VisitSynthetic(ctx AttributeContext, a *classfile.SyntheticAttribute)
	VisitDeprecated(ctx AttributeContext, a *classfile.DeprecatedAttribute)
	VisitSignature(ctx AttributeContext, a *classfile.SignatureAttribute)
	VisitSourceFile(ctx AttributeContext, a *classfile.SourceFileAttribute)
	VisitSourceDebugExtension(ctx AttributeContext, a *classfile.SourceDebugExtensionAttribute)
	VisitLineNumberTable(ctx AttributeContext, a *classfile.LineNumberTableAttribute)
	VisitLocalVariableTable(ctx AttributeContext, a *classfile.LocalVariableTableAttribute)
	VisitLocalVariableTypeTable(ctx AttributeContext, a *classfile.LocalVariableTypeTableAttribute)
	VisitRuntimeVisibleAnnotations(ctx AttributeContext, a *classfile.RuntimeVisibleAnnotationsAttribute)
	VisitRuntimeInvisibleAnnotations(ctx AttributeContext, a *classfile.RuntimeInvisibleAnnotationsAttribute)
	VisitRuntimeVisibleParameterAnnotations(ctx AttributeContext, a *classfile.RuntimeVisibleParameterAnnotationsAttribute)
	VisitRuntimeInvisibleParameterAnnotations(ctx AttributeContext, a *classfile.RuntimeInvisibleParameterAnnotationsAttribute)
	VisitAnnotationDefault(ctx AttributeContext, a *classfile.AnnotationDefaultAttribute)
	VisitStackMapTable(ctx AttributeContext, a *classfile.StackMapTableAttribute)
	VisitStackMap(ctx AttributeContext, a *classfile.StackMapAttribute)
	VisitBootstrapMethods(ctx AttributeContext, a *classfile.BootstrapMethodsAttribute)
	VisitMethodParameters(ctx AttributeContext, a *classfile.MethodParametersAttribute)
	VisitNestHost(ctx AttributeContext, a *classfile.NestHostAttribute)
	VisitNestMembers(ctx AttributeContext, a *classfile.NestMembersAttribute)
	VisitPermittedSubclasses(ctx AttributeContext, a *classfile.PermittedSubclassesAttribute)
	VisitRecord(ctx AttributeContext, a *classfile.RecordAttribute)
}

// NopAttributeVisitor ignores every attribute.
type NopAttributeVisitor struct{}

func (NopAttributeVisitor) VisitUnknown(AttributeContext, *classfile.UnknownAttribute)             {}
func (NopAttributeVisitor) VisitCode(AttributeContext, *classfile.CodeAttribute)                   {}
func (NopAttributeVisitor) VisitConstantValue(AttributeContext, *classfile.ConstantValueAttribute) {}
func (NopAttributeVisitor) VisitExceptions(AttributeContext, *classfile.ExceptionsAttribute)       {}
func (NopAttributeVisitor) VisitInnerClasses(AttributeContext, *classfile.InnerClassesAttribute)   {}
func (NopAttributeVisitor) VisitEnclosingMethod(AttributeContext, *classfile.EnclosingMethodAttribute) {
}
func (NopAttributeVisitor) VisitSynthetic(AttributeContext, *classfile.SyntheticAttribute)   {}
func (NopAttributeVisitor) VisitDeprecated(AttributeContext, *classfile.DeprecatedAttribute) {}
func (NopAttributeVisitor) VisitSignature(AttributeContext, *classfile.SignatureAttribute)   {}
func (NopAttributeVisitor) VisitSourceFile(AttributeContext, *classfile.SourceFileAttribute) {}
func (NopAttributeVisitor) VisitSourceDebugExtension(AttributeContext, *classfile.SourceDebugExtensionAttribute) {
}
func (NopAttributeVisitor) VisitLineNumberTable(AttributeContext, *classfile.LineNumberTableAttribute) {
}
func (NopAttributeVisitor) VisitLocalVariableTable(AttributeContext, *classfile.LocalVariableTableAttribute) {
}
func (NopAttributeVisitor) VisitLocalVariableTypeTable(AttributeContext, *classfile.LocalVariableTypeTableAttribute) {
}
func (NopAttributeVisitor) VisitRuntimeVisibleAnnotations(AttributeContext, *classfile.RuntimeVisibleAnnotationsAttribute) {
}
func (NopAttributeVisitor) VisitRuntimeInvisibleAnnotations(AttributeContext, *classfile.RuntimeInvisibleAnnotationsAttribute) {
}
func (NopAttributeVisitor) VisitRuntimeVisibleParameterAnnotations(AttributeContext, *classfile.RuntimeVisibleParameterAnnotationsAttribute) {
}
func (NopAttributeVisitor) VisitRuntimeInvisibleParameterAnnotations(AttributeContext, *classfile.RuntimeInvisibleParameterAnnotationsAttribute) {
}
func (NopAttributeVisitor) VisitAnnotationDefault(AttributeContext, *classfile.AnnotationDefaultAttribute) {
}
func (NopAttributeVisitor) VisitStackMapTable(AttributeContext, *classfile.StackMapTableAttribute) {}
func (NopAttributeVisitor) VisitStackMap(AttributeContext, *classfile.StackMapAttribute)           {}
func (NopAttributeVisitor) VisitBootstrapMethods(AttributeContext, *classfile.BootstrapMethodsAttribute) {
}
func (NopAttributeVisitor) VisitMethodParameters(AttributeContext, *classfile.MethodParametersAttribute) {
}
func (NopAttributeVisitor) VisitNestHost(AttributeContext, *classfile.NestHostAttribute)       {}
func (NopAttributeVisitor) VisitNestMembers(AttributeContext, *classfile.NestMembersAttribute) {}
func (NopAttributeVisitor) VisitPermittedSubclasses(AttributeContext, *classfile.PermittedSubclassesAttribute) {
}
func (NopAttributeVisitor) VisitRecord(AttributeContext, *classfile.RecordAttribute) {}

// AcceptAttribute dispatches a single attribute.
func AcceptAttribute(ctx AttributeContext, info *classfile.AttributeInfo, v AttributeVisitor) {
	ctx.Info = info
	switch a := info.Parsed.(type) {
	case *classfile.UnknownAttribute:
		v.VisitUnknown(ctx, a)
	case *classfile.CodeAttribute:
		v.VisitCode(ctx, a)
	case *classfile.ConstantValueAttribute:
		v.VisitConstantValue(ctx, a)
	case *classfile.ExceptionsAttribute:
		v.VisitExceptions(ctx, a)
	case *classfile.InnerClassesAttribute:
		v.VisitInnerClasses(ctx, a)
	case *classfile.EnclosingMethodAttribute:
		v.VisitEnclosingMethod(ctx, a)
	case *classfile.SyntheticAttribute:
		v.VisitSynthetic(ctx, a)
	case *classfile.DeprecatedAttribute:
		v.VisitDeprecated(ctx, a)
	case *classfile.SignatureAttribute:
		v.VisitSignature(ctx, a)
	case *classfile.SourceFileAttribute:
		v.VisitSourceFile(ctx, a)
	case *classfile.SourceDebugExtensionAttribute:
		v.VisitSourceDebugExtension(ctx, a)
	case *classfile.LineNumberTableAttribute:
		v.VisitLineNumberTable(ctx, a)
	case *classfile.LocalVariableTableAttribute:
		v.VisitLocalVariableTable(ctx, a)
	case *classfile.LocalVariableTypeTableAttribute:
		v.VisitLocalVariableTypeTable(ctx, a)
	case *classfile.RuntimeVisibleAnnotationsAttribute:
		v.VisitRuntimeVisibleAnnotations(ctx, a)
	case *classfile.RuntimeInvisibleAnnotationsAttribute:
		v.VisitRuntimeInvisibleAnnotations(ctx, a)
	case *classfile.RuntimeVisibleParameterAnnotationsAttribute:
		v.VisitRuntimeVisibleParameterAnnotations(ctx, a)
	case *classfile.RuntimeInvisibleParameterAnnotationsAttribute:
		v.VisitRuntimeInvisibleParameterAnnotations(ctx, a)
	case *classfile.AnnotationDefaultAttribute:
		v.VisitAnnotationDefault(ctx, a)
	case *classfile.StackMapTableAttribute:
		v.VisitStackMapTable(ctx, a)
	case *classfile.StackMapAttribute:
		v.VisitStackMap(ctx, a)
	case *classfile.BootstrapMethodsAttribute:
		v.VisitBootstrapMethods(ctx, a)
	case *classfile.MethodParametersAttribute:
		v.VisitMethodParameters(ctx, a)
	case *classfile.NestHostAttribute:
		v.VisitNestHost(ctx, a)
	case *classfile.NestMembersAttribute:
		v.VisitNestMembers(ctx, a)
	case *classfile.PermittedSubclassesAttribute:
		v.VisitPermittedSubclasses(ctx, a)
	case *classfile.RecordAttribute:
		v.VisitRecord(ctx, a)
	default:
		panic(classfile.Invariantf("unknown attribute type %T", info.Parsed))
	}
}

// AttributesAccept visits attrs in order. The slice is indexed on every
// step, so visitors may rewrite elements but must not resize it.
func AttributesAccept(ctx AttributeContext, attrs []classfile.AttributeInfo, v AttributeVisitor) {
	for i := range attrs {
		AcceptAttribute(ctx, &attrs[i], v)
	}
}

// ClassAttributesAccept visits the class-level attributes of cf.
func ClassAttributesAccept(cf *classfile.ClassFile, v AttributeVisitor) {
	AttributesAccept(AttributeContext{Class: cf}, cf.Attributes, v)
}

// AllAttributesAccept visits every attribute of cf depth first: class
// attributes, then field and method attributes, with the attributes nested
// in Code and in record components following their parent.
func AllAttributesAccept(cf *classfile.ClassFile, v AttributeVisitor) {
	var walk func(ctx AttributeContext, attrs []classfile.AttributeInfo)
	walk = func(ctx AttributeContext, attrs []classfile.AttributeInfo) {
		for i := range attrs {
			AcceptAttribute(ctx, &attrs[i], v)
			switch a := attrs[i].Parsed.(type) {
			case *classfile.CodeAttribute:
				nested := ctx
				nested.Code = a
				walk(nested, a.Attributes)
			case *classfile.RecordAttribute:
				for j := range a.Components {
					nested := ctx
					nested.Component = &a.Components[j]
					walk(nested, a.Components[j].Attributes)
				}
			}
		}
	}
	walk(AttributeContext{Class: cf}, cf.Attributes)
	for i := range cf.Fields {
		walk(AttributeContext{Class: cf, Field: &cf.Fields[i]}, cf.Fields[i].Attributes)
	}
	for i := range cf.Methods {
		walk(AttributeContext{Class: cf, Method: &cf.Methods[i]}, cf.Methods[i].Attributes)
	}
}
