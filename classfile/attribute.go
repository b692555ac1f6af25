package classfile

// Attribute is implemented by every parsed attribute body.
type Attribute interface {
	AttributeName() string
}

type AttributeInfo struct {
	NameIndex uint16
	Parsed    Attribute
}

func (a *AttributeInfo) Name(cp ConstantPool) string {
	return cp.GetUtf8(a.NameIndex)
}

// UnknownAttribute holds the body of an attribute the reader does not
// interpret. It is written back verbatim.
type UnknownAttribute struct {
	Info []byte
}

type CodeAttribute struct {
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionTableEntry
	Attributes     []AttributeInfo
}

type ExceptionTableEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// Covers reports whether offset lies in [StartPC, EndPC).
func (e ExceptionTableEntry) Covers(offset int) bool {
	return offset >= int(e.StartPC) && offset < int(e.EndPC)
}

type ConstantValueAttribute struct {
	ConstantValueIndex uint16
}

type ExceptionsAttribute struct {
	ExceptionIndexTable []uint16
}

type InnerClassesAttribute struct {
	Classes []InnerClassEntry
}

type InnerClassEntry struct {
	InnerClassInfoIndex   uint16
	OuterClassInfoIndex   uint16
	InnerNameIndex        uint16
	InnerClassAccessFlags AccessFlags
}

type EnclosingMethodAttribute struct {
	ClassIndex  uint16
	MethodIndex uint16
}

type SyntheticAttribute struct{}

type DeprecatedAttribute struct{}

// SignatureAttribute also carries the class names mentioned by the
// signature, in textual order, so that they can be edited together with
// the signature string.
type SignatureAttribute struct {
	SignatureIndex    uint16
	ReferencedClasses []string
}

type SourceFileAttribute struct {
	SourceFileIndex uint16
}

type SourceDebugExtensionAttribute struct {
	DebugExtension []byte
}

type LineNumberTableAttribute struct {
	LineNumberTable []LineNumberEntry
}

type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

type LocalVariableTableAttribute struct {
	LocalVariableTable []LocalVariableEntry
}

type LocalVariableEntry struct {
	StartPC         uint16
	Length          uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Index           uint16
}

type LocalVariableTypeTableAttribute struct {
	LocalVariableTypeTable []LocalVariableTypeEntry
}

type LocalVariableTypeEntry struct {
	StartPC        uint16
	Length         uint16
	NameIndex      uint16
	SignatureIndex uint16
	Index          uint16
}

type Annotation struct {
	TypeIndex         uint16
	ElementValuePairs []ElementValuePair
}

type ElementValuePair struct {
	ElementNameIndex uint16
	Value            ElementValue
}

// ElementValue is an annotation element. Which field is meaningful depends
// on Tag: constants use ConstValueIndex, 'e' uses EnumConst, 'c' uses
// ClassInfoIndex, '@' uses Annotation and '[' uses Values.
type ElementValue struct {
	Tag             byte
	ConstValueIndex uint16
	EnumConst       EnumConstValue
	ClassInfoIndex  uint16
	Annotation      *Annotation
	Values          []ElementValue
}

type EnumConstValue struct {
	TypeNameIndex  uint16
	ConstNameIndex uint16
}

type RuntimeVisibleAnnotationsAttribute struct {
	Annotations []Annotation
}

type RuntimeInvisibleAnnotationsAttribute struct {
	Annotations []Annotation
}

type RuntimeVisibleParameterAnnotationsAttribute struct {
	ParameterAnnotations [][]Annotation
}

type RuntimeInvisibleParameterAnnotationsAttribute struct {
	ParameterAnnotations [][]Annotation
}

type AnnotationDefaultAttribute struct {
	DefaultValue ElementValue
}

// Verification type tags used by stack map frames.
const (
	VerificationTop               uint8 = 0
	VerificationInteger           uint8 = 1
	VerificationFloat             uint8 = 2
	VerificationDouble            uint8 = 3
	VerificationLong              uint8 = 4
	VerificationNull              uint8 = 5
	VerificationUninitializedThis uint8 = 6
	VerificationObject            uint8 = 7
	VerificationUninitialized     uint8 = 8
)

// VerificationType is a stack map slot type. Index is a constant pool
// class index for Object and a code offset for Uninitialized.
type VerificationType struct {
	Tag   uint8
	Index uint16
}

type FrameKind int

const (
	FrameSame FrameKind = iota
	FrameSameLocals1StackItem
	FrameChop
	FrameAppend
	FrameFull
)

type StackMapFrame struct {
	FrameType   uint8
	OffsetDelta uint16
	Locals      []VerificationType
	Stack       []VerificationType
}

func (f *StackMapFrame) Kind() FrameKind {
	switch {
	case f.FrameType <= 63 || f.FrameType == 251:
		return FrameSame
	case f.FrameType <= 127 || f.FrameType == 247:
		return FrameSameLocals1StackItem
	case f.FrameType >= 248 && f.FrameType <= 250:
		return FrameChop
	case f.FrameType >= 252 && f.FrameType <= 254:
		return FrameAppend
	default:
		return FrameFull
	}
}

// ChoppedLocals is the number of locals removed by a chop frame.
func (f *StackMapFrame) ChoppedLocals() int {
	if f.Kind() != FrameChop {
		return 0
	}
	return 251 - int(f.FrameType)
}

type StackMapTableAttribute struct {
	Entries []StackMapFrame
}

// StackMapEntry is a CLDC frame: always full, at an absolute offset.
type StackMapEntry struct {
	Offset uint16
	Locals []VerificationType
	Stack  []VerificationType
}

type StackMapAttribute struct {
	Entries []StackMapEntry
}

type BootstrapMethodsAttribute struct {
	BootstrapMethods []BootstrapMethod
}

type BootstrapMethod struct {
	BootstrapMethodRef uint16
	BootstrapArguments []uint16
}

type MethodParametersAttribute struct {
	Parameters []MethodParameter
}

type MethodParameter struct {
	NameIndex   uint16
	AccessFlags AccessFlags
}

type NestHostAttribute struct {
	HostClassIndex uint16
}

type NestMembersAttribute struct {
	Classes []uint16
}

type PermittedSubclassesAttribute struct {
	Classes []uint16
}

type RecordAttribute struct {
	Components []RecordComponentInfo
}

type RecordComponentInfo struct {
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []AttributeInfo
}

func (*UnknownAttribute) AttributeName() string              { return "" }
func (*CodeAttribute) AttributeName() string                 { return AttrCode }
func (*ConstantValueAttribute) AttributeName() string        { return AttrConstantValue }
func (*ExceptionsAttribute) AttributeName() string           { return AttrExceptions }
func (*InnerClassesAttribute) AttributeName() string         { return AttrInnerClasses }
func (*EnclosingMethodAttribute) AttributeName() string      { return AttrEnclosingMethod }
func (*SyntheticAttribute) AttributeName() string            { return AttrSynthetic }
func (*DeprecatedAttribute) AttributeName() string           { return AttrDeprecated }
func (*SignatureAttribute) AttributeName() string            { return AttrSignature }
func (*SourceFileAttribute) AttributeName() string           { return AttrSourceFile }
func (*SourceDebugExtensionAttribute) AttributeName() string { return AttrSourceDebugExtension }
func (*LineNumberTableAttribute) AttributeName() string      { return AttrLineNumberTable }
func (*LocalVariableTableAttribute) AttributeName() string   { return AttrLocalVariableTable }
func (*LocalVariableTypeTableAttribute) AttributeName() string {
	return AttrLocalVariableTypeTable
}
func (*RuntimeVisibleAnnotationsAttribute) AttributeName() string {
	return AttrRuntimeVisibleAnnotations
}
func (*RuntimeInvisibleAnnotationsAttribute) AttributeName() string {
	return AttrRuntimeInvisibleAnnotations
}
func (*RuntimeVisibleParameterAnnotationsAttribute) AttributeName() string {
	return AttrRuntimeVisibleParameterAnnotations
}
func (*RuntimeInvisibleParameterAnnotationsAttribute) AttributeName() string {
	return AttrRuntimeInvisibleParameterAnnotations
}
func (*AnnotationDefaultAttribute) AttributeName() string   { return AttrAnnotationDefault }
func (*StackMapTableAttribute) AttributeName() string       { return AttrStackMapTable }
func (*StackMapAttribute) AttributeName() string            { return AttrStackMap }
func (*BootstrapMethodsAttribute) AttributeName() string    { return AttrBootstrapMethods }
func (*MethodParametersAttribute) AttributeName() string    { return AttrMethodParameters }
func (*NestHostAttribute) AttributeName() string            { return AttrNestHost }
func (*NestMembersAttribute) AttributeName() string         { return AttrNestMembers }
func (*PermittedSubclassesAttribute) AttributeName() string { return AttrPermittedSubclasses }
func (*RecordAttribute) AttributeName() string              { return AttrRecord }

func (a *AttributeInfo) AsCode() *CodeAttribute {
	code, _ := a.Parsed.(*CodeAttribute)
	return code
}

func (a *AttributeInfo) AsLineNumberTable() *LineNumberTableAttribute {
	lnt, _ := a.Parsed.(*LineNumberTableAttribute)
	return lnt
}

func (a *AttributeInfo) AsLocalVariableTable() *LocalVariableTableAttribute {
	lvt, _ := a.Parsed.(*LocalVariableTableAttribute)
	return lvt
}

func (a *AttributeInfo) AsSourceFile() *SourceFileAttribute {
	sf, _ := a.Parsed.(*SourceFileAttribute)
	return sf
}

func (a *AttributeInfo) AsSignature() *SignatureAttribute {
	sig, _ := a.Parsed.(*SignatureAttribute)
	return sig
}

func (a *AttributeInfo) AsInnerClasses() *InnerClassesAttribute {
	ic, _ := a.Parsed.(*InnerClassesAttribute)
	return ic
}

func (a *AttributeInfo) AsBootstrapMethods() *BootstrapMethodsAttribute {
	bm, _ := a.Parsed.(*BootstrapMethodsAttribute)
	return bm
}

func (a *AttributeInfo) AsStackMapTable() *StackMapTableAttribute {
	smt, _ := a.Parsed.(*StackMapTableAttribute)
	return smt
}

func (a *AttributeInfo) AsUnknown() *UnknownAttribute {
	u, _ := a.Parsed.(*UnknownAttribute)
	return u
}

// FindAttribute returns the first attribute in attrs named name.
func FindAttribute(cp ConstantPool, attrs []AttributeInfo, name string) *AttributeInfo {
	for i := range attrs {
		if attrs[i].Name(cp) == name {
			return &attrs[i]
		}
	}
	return nil
}
