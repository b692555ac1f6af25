package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

type writer struct {
	buf []byte
	err error
}

func (w *writer) writeU1(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) writeU2(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *writer) writeU4(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *writer) writeBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) writeCount(n int, what string) {
	if n > math.MaxUint16 && w.err == nil {
		w.err = fmt.Errorf("too many %s: %d", what, n)
	}
	w.writeU2(uint16(n))
}

func (w *writer) writeU2s(values []uint16, what string) {
	w.writeCount(len(values), what)
	for _, v := range values {
		w.writeU2(v)
	}
}

func Marshal(cf *ClassFile) ([]byte, error) {
	w := &writer{}
	w.writeU4(Magic)
	w.writeU2(cf.MinorVersion)
	w.writeU2(cf.MajorVersion)

	w.writeCount(len(cf.ConstantPool), "constant pool entries")
	for i := 1; i < len(cf.ConstantPool); i++ {
		entry := cf.ConstantPool[i]
		if entry == nil {
			return nil, fmt.Errorf("constant pool entry %d is empty", i)
		}
		writeConstantPoolEntry(w, entry)
		if IsWide(entry) {
			i++
		}
	}

	w.writeU2(uint16(cf.AccessFlags))
	w.writeU2(cf.ThisClass)
	w.writeU2(cf.SuperClass)
	w.writeU2s(cf.Interfaces, "interfaces")

	w.writeCount(len(cf.Fields), "fields")
	for i := range cf.Fields {
		f := &cf.Fields[i]
		writeMember(w, cf.ConstantPool, f.AccessFlags, f.NameIndex, f.DescriptorIndex, f.Attributes)
	}
	w.writeCount(len(cf.Methods), "methods")
	for i := range cf.Methods {
		m := &cf.Methods[i]
		writeMember(w, cf.ConstantPool, m.AccessFlags, m.NameIndex, m.DescriptorIndex, m.Attributes)
	}
	writeAttributes(w, cf.ConstantPool, cf.Attributes)

	if w.err != nil {
		return nil, fmt.Errorf("failed to write class %s: %w", cf.ClassName(), w.err)
	}
	return w.buf, nil
}

func Write(out io.Writer, cf *ClassFile) error {
	data, err := Marshal(cf)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("failed to write class file: %w", err)
	}
	return nil
}

func WriteFile(path string, cf *ClassFile) error {
	data, err := Marshal(cf)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write class file: %w", err)
	}
	return nil
}

func writeConstantPoolEntry(w *writer, entry ConstantPoolEntry) {
	w.writeU1(uint8(entry.Tag()))
	switch e := entry.(type) {
	case *ConstantUtf8Info:
		w.writeCount(len(e.Bytes), "bytes in Utf8 constant")
		w.writeBytes(e.Bytes)
	case *ConstantIntegerInfo:
		w.writeU4(uint32(e.Value))
	case *ConstantFloatInfo:
		w.writeU4(math.Float32bits(e.Value))
	case *ConstantLongInfo:
		w.writeU4(uint32(uint64(e.Value) >> 32))
		w.writeU4(uint32(e.Value))
	case *ConstantDoubleInfo:
		bits := math.Float64bits(e.Value)
		w.writeU4(uint32(bits >> 32))
		w.writeU4(uint32(bits))
	case *ConstantClassInfo:
		w.writeU2(e.NameIndex)
	case *ConstantStringInfo:
		w.writeU2(e.StringIndex)
	case *ConstantFieldrefInfo:
		w.writeU2(e.ClassIndex)
		w.writeU2(e.NameAndTypeIndex)
	case *ConstantMethodrefInfo:
		w.writeU2(e.ClassIndex)
		w.writeU2(e.NameAndTypeIndex)
	case *ConstantInterfaceMethodrefInfo:
		w.writeU2(e.ClassIndex)
		w.writeU2(e.NameAndTypeIndex)
	case *ConstantNameAndTypeInfo:
		w.writeU2(e.NameIndex)
		w.writeU2(e.DescriptorIndex)
	case *ConstantMethodHandleInfo:
		w.writeU1(uint8(e.ReferenceKind))
		w.writeU2(e.ReferenceIndex)
	case *ConstantMethodTypeInfo:
		w.writeU2(e.DescriptorIndex)
	case *ConstantDynamicInfo:
		w.writeU2(e.BootstrapMethodAttrIndex)
		w.writeU2(e.NameAndTypeIndex)
	case *ConstantInvokeDynamicInfo:
		w.writeU2(e.BootstrapMethodAttrIndex)
		w.writeU2(e.NameAndTypeIndex)
	case *ConstantModuleInfo:
		w.writeU2(e.NameIndex)
	case *ConstantPackageInfo:
		w.writeU2(e.NameIndex)
	}
}

func writeMember(w *writer, cp ConstantPool, flags AccessFlags, name, descriptor uint16, attrs []AttributeInfo) {
	w.writeU2(uint16(flags))
	w.writeU2(name)
	w.writeU2(descriptor)
	writeAttributes(w, cp, attrs)
}

func writeAttributes(w *writer, cp ConstantPool, attrs []AttributeInfo) {
	w.writeCount(len(attrs), "attributes")
	for i := range attrs {
		body := &writer{}
		writeAttributeBody(body, cp, attrs[i].Parsed)
		if body.err != nil && w.err == nil {
			w.err = body.err
		}
		w.writeU2(attrs[i].NameIndex)
		w.writeU4(uint32(len(body.buf)))
		w.writeBytes(body.buf)
	}
}

func writeAttributeBody(w *writer, cp ConstantPool, attr Attribute) {
	switch a := attr.(type) {
	case *UnknownAttribute:
		w.writeBytes(a.Info)
	case *CodeAttribute:
		if len(a.Code) == 0 || len(a.Code) > math.MaxUint16 {
			w.err = fmt.Errorf("invalid code length %d", len(a.Code))
		}
		w.writeU2(a.MaxStack)
		w.writeU2(a.MaxLocals)
		w.writeU4(uint32(len(a.Code)))
		w.writeBytes(a.Code)
		w.writeCount(len(a.ExceptionTable), "exception table entries")
		for _, e := range a.ExceptionTable {
			w.writeU2(e.StartPC)
			w.writeU2(e.EndPC)
			w.writeU2(e.HandlerPC)
			w.writeU2(e.CatchType)
		}
		writeAttributes(w, cp, a.Attributes)
	case *ConstantValueAttribute:
		w.writeU2(a.ConstantValueIndex)
	case *ExceptionsAttribute:
		w.writeU2s(a.ExceptionIndexTable, "exceptions")
	case *InnerClassesAttribute:
		w.writeCount(len(a.Classes), "inner classes")
		for _, c := range a.Classes {
			w.writeU2(c.InnerClassInfoIndex)
			w.writeU2(c.OuterClassInfoIndex)
			w.writeU2(c.InnerNameIndex)
			w.writeU2(uint16(c.InnerClassAccessFlags))
		}
	case *EnclosingMethodAttribute:
		w.writeU2(a.ClassIndex)
		w.writeU2(a.MethodIndex)
	case *SyntheticAttribute, *DeprecatedAttribute:
	case *SignatureAttribute:
		w.writeU2(a.SignatureIndex)
	case *SourceFileAttribute:
		w.writeU2(a.SourceFileIndex)
	case *SourceDebugExtensionAttribute:
		w.writeBytes(a.DebugExtension)
	case *LineNumberTableAttribute:
		w.writeCount(len(a.LineNumberTable), "line numbers")
		for _, e := range a.LineNumberTable {
			w.writeU2(e.StartPC)
			w.writeU2(e.LineNumber)
		}
	case *LocalVariableTableAttribute:
		w.writeCount(len(a.LocalVariableTable), "local variables")
		for _, e := range a.LocalVariableTable {
			w.writeU2(e.StartPC)
			w.writeU2(e.Length)
			w.writeU2(e.NameIndex)
			w.writeU2(e.DescriptorIndex)
			w.writeU2(e.Index)
		}
	case *LocalVariableTypeTableAttribute:
		w.writeCount(len(a.LocalVariableTypeTable), "local variable types")
		for _, e := range a.LocalVariableTypeTable {
			w.writeU2(e.StartPC)
			w.writeU2(e.Length)
			w.writeU2(e.NameIndex)
			w.writeU2(e.SignatureIndex)
			w.writeU2(e.Index)
		}
	case *RuntimeVisibleAnnotationsAttribute:
		writeAnnotations(w, a.Annotations)
	case *RuntimeInvisibleAnnotationsAttribute:
		writeAnnotations(w, a.Annotations)
	case *RuntimeVisibleParameterAnnotationsAttribute:
		writeParameterAnnotations(w, a.ParameterAnnotations)
	case *RuntimeInvisibleParameterAnnotationsAttribute:
		writeParameterAnnotations(w, a.ParameterAnnotations)
	case *AnnotationDefaultAttribute:
		writeElementValue(w, a.DefaultValue)
	case *StackMapTableAttribute:
		w.writeCount(len(a.Entries), "stack map frames")
		for i := range a.Entries {
			writeStackMapFrame(w, &a.Entries[i])
		}
	case *StackMapAttribute:
		w.writeCount(len(a.Entries), "stack map entries")
		for _, e := range a.Entries {
			w.writeU2(e.Offset)
			w.writeCount(len(e.Locals), "locals")
			writeVerificationTypes(w, e.Locals)
			w.writeCount(len(e.Stack), "stack entries")
			writeVerificationTypes(w, e.Stack)
		}
	case *BootstrapMethodsAttribute:
		w.writeCount(len(a.BootstrapMethods), "bootstrap methods")
		for _, m := range a.BootstrapMethods {
			w.writeU2(m.BootstrapMethodRef)
			w.writeU2s(m.BootstrapArguments, "bootstrap arguments")
		}
	case *MethodParametersAttribute:
		w.writeU1(uint8(len(a.Parameters)))
		for _, p := range a.Parameters {
			w.writeU2(p.NameIndex)
			w.writeU2(uint16(p.AccessFlags))
		}
	case *NestHostAttribute:
		w.writeU2(a.HostClassIndex)
	case *NestMembersAttribute:
		w.writeU2s(a.Classes, "nest members")
	case *PermittedSubclassesAttribute:
		w.writeU2s(a.Classes, "permitted subclasses")
	case *RecordAttribute:
		w.writeCount(len(a.Components), "record components")
		for _, c := range a.Components {
			w.writeU2(c.NameIndex)
			w.writeU2(c.DescriptorIndex)
			writeAttributes(w, cp, c.Attributes)
		}
	default:
		w.err = fmt.Errorf("cannot encode attribute %T", attr)
	}
}

func writeAnnotations(w *writer, annotations []Annotation) {
	w.writeCount(len(annotations), "annotations")
	for i := range annotations {
		writeAnnotation(w, &annotations[i])
	}
}

func writeParameterAnnotations(w *writer, params [][]Annotation) {
	w.writeU1(uint8(len(params)))
	for _, annotations := range params {
		writeAnnotations(w, annotations)
	}
}

func writeAnnotation(w *writer, a *Annotation) {
	w.writeU2(a.TypeIndex)
	w.writeCount(len(a.ElementValuePairs), "element value pairs")
	for _, pair := range a.ElementValuePairs {
		w.writeU2(pair.ElementNameIndex)
		writeElementValue(w, pair.Value)
	}
}

func writeElementValue(w *writer, ev ElementValue) {
	w.writeU1(ev.Tag)
	switch ev.Tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		w.writeU2(ev.ConstValueIndex)
	case 'e':
		w.writeU2(ev.EnumConst.TypeNameIndex)
		w.writeU2(ev.EnumConst.ConstNameIndex)
	case 'c':
		w.writeU2(ev.ClassInfoIndex)
	case '@':
		writeAnnotation(w, ev.Annotation)
	case '[':
		w.writeCount(len(ev.Values), "array elements")
		for _, v := range ev.Values {
			writeElementValue(w, v)
		}
	}
}

func writeVerificationTypes(w *writer, types []VerificationType) {
	for _, t := range types {
		w.writeU1(t.Tag)
		if t.Tag == VerificationObject || t.Tag == VerificationUninitialized {
			w.writeU2(t.Index)
		}
	}
}

func writeStackMapFrame(w *writer, f *StackMapFrame) {
	w.writeU1(f.FrameType)
	switch {
	case f.FrameType <= 63:
	case f.FrameType <= 127:
		writeVerificationTypes(w, f.Stack)
	case f.FrameType == 247:
		w.writeU2(f.OffsetDelta)
		writeVerificationTypes(w, f.Stack)
	case f.FrameType <= 251:
		w.writeU2(f.OffsetDelta)
	case f.FrameType <= 254:
		w.writeU2(f.OffsetDelta)
		writeVerificationTypes(w, f.Locals)
	default:
		w.writeU2(f.OffsetDelta)
		w.writeCount(len(f.Locals), "locals")
		writeVerificationTypes(w, f.Locals)
		w.writeCount(len(f.Stack), "stack entries")
		writeVerificationTypes(w, f.Stack)
	}
}
