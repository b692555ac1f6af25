package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

type reader struct {
	data []byte
	pos  int
	base int
	err  error
}

func (r *reader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = &FormatError{Offset: r.base + r.pos, Msg: fmt.Sprintf(format, args...)}
	}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.fail("unexpected end of data")
		return false
	}
	return true
}

func (r *reader) readU1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) readU2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) readU4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) readBytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	buf := make([]byte, n)
	copy(buf, r.data[r.pos:r.pos+n])
	r.pos += n
	return buf
}

func (r *reader) readU2s() []uint16 {
	count := r.readU2()
	if !r.need(2 * int(count)) {
		return nil
	}
	values := make([]uint16, count)
	for i := range values {
		values[i] = r.readU2()
	}
	return values
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(rd io.Reader) (*ClassFile, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to read class file: %w", err)
	}
	return ParseBytes(data)
}

func ParseBytes(data []byte) (*ClassFile, error) {
	r := &reader{data: data}

	magic := r.readU4()
	if r.err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", r.err)
	}
	if magic != Magic {
		return nil, &FormatError{Msg: fmt.Sprintf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)}
	}

	cf := &ClassFile{
		MinorVersion: r.readU2(),
		MajorVersion: r.readU2(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("failed to read version: %w", r.err)
	}
	if cf.MajorVersion < MinMajorVersion || cf.MajorVersion > MaxMajorVersion {
		return nil, &FormatError{Offset: 6, Msg: fmt.Sprintf("unsupported class file version %d.%d", cf.MajorVersion, cf.MinorVersion)}
	}

	constantPoolCount := r.readU2()
	if r.err != nil {
		return nil, fmt.Errorf("failed to read constant pool count: %w", r.err)
	}
	if constantPoolCount == 0 {
		return nil, &FormatError{Offset: 8, Msg: "constant pool count is zero"}
	}

	cf.ConstantPool = make(ConstantPool, constantPoolCount)
	for i := uint16(1); i < constantPoolCount; i++ {
		entry, err := readConstantPoolEntry(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read constant pool entry %d: %w", i, err)
		}
		cf.ConstantPool[i] = entry
		if IsWide(entry) {
			// The following slot stays nil.
			i++
		}
	}

	cf.AccessFlags = AccessFlags(r.readU2())
	cf.ThisClass = r.readU2()
	cf.SuperClass = r.readU2()
	cf.Interfaces = r.readU2s()
	if r.err != nil {
		return nil, fmt.Errorf("failed to read class info: %w", r.err)
	}

	fieldsCount := r.readU2()
	if r.err != nil {
		return nil, fmt.Errorf("failed to read fields count: %w", r.err)
	}

	cf.Fields = make([]FieldInfo, fieldsCount)
	for i := range cf.Fields {
		field, err := readMember(r, cf.ConstantPool)
		if err != nil {
			return nil, fmt.Errorf("failed to read field %d: %w", i, err)
		}
		cf.Fields[i] = FieldInfo(field)
	}

	methodsCount := r.readU2()
	if r.err != nil {
		return nil, fmt.Errorf("failed to read methods count: %w", r.err)
	}

	cf.Methods = make([]MethodInfo, methodsCount)
	for i := range cf.Methods {
		method, err := readMember(r, cf.ConstantPool)
		if err != nil {
			return nil, fmt.Errorf("failed to read method %d: %w", i, err)
		}
		cf.Methods[i] = MethodInfo(method)
	}

	attrs, err := readAttributes(r, cf.ConstantPool)
	if err != nil {
		return nil, fmt.Errorf("failed to read class attributes: %w", err)
	}
	cf.Attributes = attrs
	if r.remaining() != 0 {
		return nil, &FormatError{Offset: r.pos, Msg: fmt.Sprintf("%d trailing bytes", r.remaining())}
	}

	return cf, nil
}

func readConstantPoolEntry(r *reader) (ConstantPoolEntry, error) {
	tag := ConstantTag(r.readU1())
	if r.err != nil {
		return nil, r.err
	}

	var entry ConstantPoolEntry
	switch tag {
	case ConstantUtf8:
		length := r.readU2()
		entry = &ConstantUtf8Info{Bytes: r.readBytes(int(length))}
	case ConstantInteger:
		entry = &ConstantIntegerInfo{Value: int32(r.readU4())}
	case ConstantFloat:
		entry = &ConstantFloatInfo{Value: math.Float32frombits(r.readU4())}
	case ConstantLong:
		high := r.readU4()
		low := r.readU4()
		entry = &ConstantLongInfo{Value: int64(uint64(high)<<32 | uint64(low))}
	case ConstantDouble:
		high := r.readU4()
		low := r.readU4()
		entry = &ConstantDoubleInfo{Value: math.Float64frombits(uint64(high)<<32 | uint64(low))}
	case ConstantClass:
		entry = &ConstantClassInfo{NameIndex: r.readU2()}
	case ConstantString:
		entry = &ConstantStringInfo{StringIndex: r.readU2()}
	case ConstantFieldref:
		entry = &ConstantFieldrefInfo{ClassIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
	case ConstantMethodref:
		entry = &ConstantMethodrefInfo{ClassIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
	case ConstantInterfaceMethodref:
		entry = &ConstantInterfaceMethodrefInfo{ClassIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
	case ConstantNameAndType:
		entry = &ConstantNameAndTypeInfo{NameIndex: r.readU2(), DescriptorIndex: r.readU2()}
	case ConstantMethodHandle:
		entry = &ConstantMethodHandleInfo{ReferenceKind: MethodHandleKind(r.readU1()), ReferenceIndex: r.readU2()}
	case ConstantMethodType:
		entry = &ConstantMethodTypeInfo{DescriptorIndex: r.readU2()}
	case ConstantDynamic:
		entry = &ConstantDynamicInfo{BootstrapMethodAttrIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
	case ConstantInvokeDynamic:
		entry = &ConstantInvokeDynamicInfo{BootstrapMethodAttrIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
	case ConstantModule:
		entry = &ConstantModuleInfo{NameIndex: r.readU2()}
	case ConstantPackage:
		entry = &ConstantPackageInfo{NameIndex: r.readU2()}
	default:
		r.pos--
		r.fail("unknown constant pool tag: %d", tag)
		return nil, r.err
	}
	if r.err != nil {
		return nil, r.err
	}
	return entry, nil
}

type member struct {
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []AttributeInfo
}

func readMember(r *reader, cp ConstantPool) (member, error) {
	m := member{
		AccessFlags:     AccessFlags(r.readU2()),
		NameIndex:       r.readU2(),
		DescriptorIndex: r.readU2(),
	}
	if r.err != nil {
		return m, r.err
	}
	attrs, err := readAttributes(r, cp)
	if err != nil {
		return m, err
	}
	m.Attributes = attrs
	return m, nil
}

func readAttributes(r *reader, cp ConstantPool) ([]AttributeInfo, error) {
	count := r.readU2()
	if r.err != nil {
		return nil, r.err
	}
	attrs := make([]AttributeInfo, count)
	for i := range attrs {
		attr, err := readAttributeInfo(r, cp)
		if err != nil {
			return nil, err
		}
		attrs[i] = attr
	}
	return attrs, nil
}

func readAttributeInfo(r *reader, cp ConstantPool) (AttributeInfo, error) {
	nameIndex := r.readU2()
	length := r.readU4()
	start := r.pos
	info := r.readBytes(int(length))
	if r.err != nil {
		return AttributeInfo{}, r.err
	}
	return AttributeInfo{
		NameIndex: nameIndex,
		Parsed:    parseAttribute(cp.GetUtf8(nameIndex), info, r.base+start, cp),
	}, nil
}

// parseAttribute decodes a recognized attribute body. A body that is not
// consumed exactly is kept as an UnknownAttribute.
func parseAttribute(name string, info []byte, base int, cp ConstantPool) Attribute {
	r := &reader{data: info, base: base}
	var attr Attribute
	switch name {
	case AttrCode:
		attr = parseCodeAttribute(r, cp)
	case AttrConstantValue:
		attr = &ConstantValueAttribute{ConstantValueIndex: r.readU2()}
	case AttrExceptions:
		attr = &ExceptionsAttribute{ExceptionIndexTable: r.readU2s()}
	case AttrInnerClasses:
		attr = parseInnerClassesAttribute(r)
	case AttrEnclosingMethod:
		attr = &EnclosingMethodAttribute{ClassIndex: r.readU2(), MethodIndex: r.readU2()}
	case AttrSynthetic:
		attr = &SyntheticAttribute{}
	case AttrDeprecated:
		attr = &DeprecatedAttribute{}
	case AttrSignature:
		sig := &SignatureAttribute{SignatureIndex: r.readU2()}
		sig.ReferencedClasses = SignatureClassNames(cp.GetUtf8(sig.SignatureIndex))
		attr = sig
	case AttrSourceFile:
		attr = &SourceFileAttribute{SourceFileIndex: r.readU2()}
	case AttrSourceDebugExtension:
		attr = &SourceDebugExtensionAttribute{DebugExtension: r.readBytes(r.remaining())}
	case AttrLineNumberTable:
		attr = parseLineNumberTableAttribute(r)
	case AttrLocalVariableTable:
		attr = parseLocalVariableTableAttribute(r)
	case AttrLocalVariableTypeTable:
		attr = parseLocalVariableTypeTableAttribute(r)
	case AttrRuntimeVisibleAnnotations:
		attr = &RuntimeVisibleAnnotationsAttribute{Annotations: parseAnnotations(r)}
	case AttrRuntimeInvisibleAnnotations:
		attr = &RuntimeInvisibleAnnotationsAttribute{Annotations: parseAnnotations(r)}
	case AttrRuntimeVisibleParameterAnnotations:
		attr = &RuntimeVisibleParameterAnnotationsAttribute{ParameterAnnotations: parseParameterAnnotations(r)}
	case AttrRuntimeInvisibleParameterAnnotations:
		attr = &RuntimeInvisibleParameterAnnotationsAttribute{ParameterAnnotations: parseParameterAnnotations(r)}
	case AttrAnnotationDefault:
		attr = &AnnotationDefaultAttribute{DefaultValue: parseElementValue(r, 0)}
	case AttrStackMapTable:
		attr = parseStackMapTableAttribute(r)
	case AttrStackMap:
		attr = parseStackMapAttribute(r)
	case AttrBootstrapMethods:
		attr = parseBootstrapMethodsAttribute(r)
	case AttrMethodParameters:
		attr = parseMethodParametersAttribute(r)
	case AttrNestHost:
		attr = &NestHostAttribute{HostClassIndex: r.readU2()}
	case AttrNestMembers:
		attr = &NestMembersAttribute{Classes: r.readU2s()}
	case AttrPermittedSubclasses:
		attr = &PermittedSubclassesAttribute{Classes: r.readU2s()}
	case AttrRecord:
		attr = parseRecordAttribute(r, cp)
	default:
		return &UnknownAttribute{Info: info}
	}
	if r.err != nil || r.remaining() != 0 {
		return &UnknownAttribute{Info: info}
	}
	return attr
}

func parseCodeAttribute(r *reader, cp ConstantPool) *CodeAttribute {
	code := &CodeAttribute{
		MaxStack:  r.readU2(),
		MaxLocals: r.readU2(),
	}
	codeLength := r.readU4()
	code.Code = r.readBytes(int(codeLength))

	exceptionTableLength := r.readU2()
	if !r.need(8 * int(exceptionTableLength)) {
		return code
	}
	code.ExceptionTable = make([]ExceptionTableEntry, exceptionTableLength)
	for i := range code.ExceptionTable {
		code.ExceptionTable[i] = ExceptionTableEntry{
			StartPC:   r.readU2(),
			EndPC:     r.readU2(),
			HandlerPC: r.readU2(),
			CatchType: r.readU2(),
		}
	}

	attrs, err := readAttributes(r, cp)
	if err == nil {
		code.Attributes = attrs
	}
	return code
}

func parseInnerClassesAttribute(r *reader) *InnerClassesAttribute {
	count := r.readU2()
	if !r.need(8 * int(count)) {
		return nil
	}
	attr := &InnerClassesAttribute{Classes: make([]InnerClassEntry, count)}
	for i := range attr.Classes {
		attr.Classes[i] = InnerClassEntry{
			InnerClassInfoIndex:   r.readU2(),
			OuterClassInfoIndex:   r.readU2(),
			InnerNameIndex:        r.readU2(),
			InnerClassAccessFlags: AccessFlags(r.readU2()),
		}
	}
	return attr
}

func parseLineNumberTableAttribute(r *reader) *LineNumberTableAttribute {
	count := r.readU2()
	if !r.need(4 * int(count)) {
		return nil
	}
	attr := &LineNumberTableAttribute{LineNumberTable: make([]LineNumberEntry, count)}
	for i := range attr.LineNumberTable {
		attr.LineNumberTable[i] = LineNumberEntry{
			StartPC:    r.readU2(),
			LineNumber: r.readU2(),
		}
	}
	return attr
}

func parseLocalVariableTableAttribute(r *reader) *LocalVariableTableAttribute {
	count := r.readU2()
	if !r.need(10 * int(count)) {
		return nil
	}
	attr := &LocalVariableTableAttribute{LocalVariableTable: make([]LocalVariableEntry, count)}
	for i := range attr.LocalVariableTable {
		attr.LocalVariableTable[i] = LocalVariableEntry{
			StartPC:         r.readU2(),
			Length:          r.readU2(),
			NameIndex:       r.readU2(),
			DescriptorIndex: r.readU2(),
			Index:           r.readU2(),
		}
	}
	return attr
}

func parseLocalVariableTypeTableAttribute(r *reader) *LocalVariableTypeTableAttribute {
	count := r.readU2()
	if !r.need(10 * int(count)) {
		return nil
	}
	attr := &LocalVariableTypeTableAttribute{LocalVariableTypeTable: make([]LocalVariableTypeEntry, count)}
	for i := range attr.LocalVariableTypeTable {
		attr.LocalVariableTypeTable[i] = LocalVariableTypeEntry{
			StartPC:        r.readU2(),
			Length:         r.readU2(),
			NameIndex:      r.readU2(),
			SignatureIndex: r.readU2(),
			Index:          r.readU2(),
		}
	}
	return attr
}

// maxElementDepth bounds nested annotation values so that hostile input
// cannot exhaust the stack.
const maxElementDepth = 64

func parseElementValue(r *reader, depth int) ElementValue {
	ev := ElementValue{Tag: r.readU1()}
	if r.err != nil {
		return ev
	}
	if depth > maxElementDepth {
		r.fail("annotation nesting too deep")
		return ev
	}
	switch ev.Tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		ev.ConstValueIndex = r.readU2()
	case 'e':
		ev.EnumConst = EnumConstValue{TypeNameIndex: r.readU2(), ConstNameIndex: r.readU2()}
	case 'c':
		ev.ClassInfoIndex = r.readU2()
	case '@':
		a := parseAnnotation(r, depth+1)
		ev.Annotation = &a
	case '[':
		count := r.readU2()
		if !r.need(int(count)) {
			return ev
		}
		ev.Values = make([]ElementValue, count)
		for i := range ev.Values {
			ev.Values[i] = parseElementValue(r, depth+1)
		}
	default:
		r.fail("unknown element value tag %q", ev.Tag)
	}
	return ev
}

func parseAnnotation(r *reader, depth int) Annotation {
	a := Annotation{TypeIndex: r.readU2()}
	count := r.readU2()
	if !r.need(3 * int(count)) {
		return a
	}
	a.ElementValuePairs = make([]ElementValuePair, count)
	for i := range a.ElementValuePairs {
		a.ElementValuePairs[i].ElementNameIndex = r.readU2()
		a.ElementValuePairs[i].Value = parseElementValue(r, depth)
	}
	return a
}

func parseAnnotations(r *reader) []Annotation {
	count := r.readU2()
	if !r.need(4 * int(count)) {
		return nil
	}
	annotations := make([]Annotation, count)
	for i := range annotations {
		annotations[i] = parseAnnotation(r, 0)
	}
	return annotations
}

func parseParameterAnnotations(r *reader) [][]Annotation {
	count := r.readU1()
	params := make([][]Annotation, count)
	for i := range params {
		params[i] = parseAnnotations(r)
	}
	return params
}

func parseVerificationTypes(r *reader, count int) []VerificationType {
	if !r.need(count) {
		return nil
	}
	types := make([]VerificationType, count)
	for i := range types {
		types[i].Tag = r.readU1()
		switch types[i].Tag {
		case VerificationObject, VerificationUninitialized:
			types[i].Index = r.readU2()
		case VerificationTop, VerificationInteger, VerificationFloat, VerificationDouble,
			VerificationLong, VerificationNull, VerificationUninitializedThis:
		default:
			r.fail("unknown verification type %d", types[i].Tag)
		}
	}
	return types
}

func parseStackMapTableAttribute(r *reader) *StackMapTableAttribute {
	count := r.readU2()
	if !r.need(int(count)) {
		return nil
	}
	attr := &StackMapTableAttribute{Entries: make([]StackMapFrame, count)}
	for i := range attr.Entries {
		frame := &attr.Entries[i]
		frame.FrameType = r.readU1()
		switch {
		case frame.FrameType <= 63:
			frame.OffsetDelta = uint16(frame.FrameType)
		case frame.FrameType <= 127:
			frame.OffsetDelta = uint16(frame.FrameType - 64)
			frame.Stack = parseVerificationTypes(r, 1)
		case frame.FrameType < 247:
			r.fail("reserved frame type %d", frame.FrameType)
		case frame.FrameType == 247:
			frame.OffsetDelta = r.readU2()
			frame.Stack = parseVerificationTypes(r, 1)
		case frame.FrameType <= 251:
			frame.OffsetDelta = r.readU2()
		case frame.FrameType <= 254:
			frame.OffsetDelta = r.readU2()
			frame.Locals = parseVerificationTypes(r, int(frame.FrameType)-251)
		default:
			frame.OffsetDelta = r.readU2()
			frame.Locals = parseVerificationTypes(r, int(r.readU2()))
			frame.Stack = parseVerificationTypes(r, int(r.readU2()))
		}
		if r.err != nil {
			return nil
		}
	}
	return attr
}

func parseStackMapAttribute(r *reader) *StackMapAttribute {
	count := r.readU2()
	if !r.need(6 * int(count)) {
		return nil
	}
	attr := &StackMapAttribute{Entries: make([]StackMapEntry, count)}
	for i := range attr.Entries {
		entry := &attr.Entries[i]
		entry.Offset = r.readU2()
		entry.Locals = parseVerificationTypes(r, int(r.readU2()))
		entry.Stack = parseVerificationTypes(r, int(r.readU2()))
		if r.err != nil {
			return nil
		}
	}
	return attr
}

func parseBootstrapMethodsAttribute(r *reader) *BootstrapMethodsAttribute {
	count := r.readU2()
	if !r.need(4 * int(count)) {
		return nil
	}
	attr := &BootstrapMethodsAttribute{BootstrapMethods: make([]BootstrapMethod, count)}
	for i := range attr.BootstrapMethods {
		attr.BootstrapMethods[i] = BootstrapMethod{
			BootstrapMethodRef: r.readU2(),
			BootstrapArguments: r.readU2s(),
		}
	}
	return attr
}

func parseMethodParametersAttribute(r *reader) *MethodParametersAttribute {
	count := r.readU1()
	attr := &MethodParametersAttribute{Parameters: make([]MethodParameter, count)}
	for i := range attr.Parameters {
		attr.Parameters[i] = MethodParameter{
			NameIndex:   r.readU2(),
			AccessFlags: AccessFlags(r.readU2()),
		}
	}
	return attr
}

func parseRecordAttribute(r *reader, cp ConstantPool) *RecordAttribute {
	count := r.readU2()
	if !r.need(6 * int(count)) {
		return nil
	}
	attr := &RecordAttribute{Components: make([]RecordComponentInfo, count)}
	for i := range attr.Components {
		component := &attr.Components[i]
		component.NameIndex = r.readU2()
		component.DescriptorIndex = r.readU2()
		attrs, err := readAttributes(r, cp)
		if err != nil {
			return nil
		}
		component.Attributes = attrs
	}
	return attr
}
