// Package format renders class files as text for people and scripts.
package format

import (
	"encoding"
	"fmt"
	"io"
	"strconv"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
	"github.com/dhamidi/kiln/visitor"
)

type Encoder interface {
	encoding.TextMarshaler
	Encode(cf *classfile.ClassFile) error
}

// NewEncoder returns the encoder named "line" or "json". With code set,
// method bodies are disassembled as well.
func NewEncoder(name string, w io.Writer, code bool) (Encoder, error) {
	switch name {
	case "line":
		return &LineEncoder{w: w, Code: code}, nil
	case "json":
		return &JSONEncoder{w: w, Code: code}, nil
	}
	return nil, fmt.Errorf("unknown format %q", name)
}

func classKind(cf *classfile.ClassFile) string {
	switch {
	case cf.IsAnnotation():
		return "annotation"
	case cf.IsEnum():
		return "enum"
	case cf.IsInterface():
		return "interface"
	case cf.IsModule():
		return "module"
	case cf.GetAttribute(classfile.AttrRecord) != nil:
		return "record"
	default:
		return "class"
	}
}

func visibility(f classfile.AccessFlags) string {
	switch {
	case f.IsPublic():
		return "public"
	case f.IsProtected():
		return "protected"
	case f.IsPrivate():
		return "private"
	}
	return "package"
}

func classModifiers(f classfile.AccessFlags) []string {
	var mods []string
	if f.IsFinal() {
		mods = append(mods, "final")
	}
	if f.IsAbstract() && !f.IsInterface() {
		mods = append(mods, "abstract")
	}
	if f.IsSynthetic() {
		mods = append(mods, "synthetic")
	}
	return mods
}

func fieldModifiers(f classfile.AccessFlags) []string {
	var mods []string
	if f.IsStatic() {
		mods = append(mods, "static")
	}
	if f.IsFinal() {
		mods = append(mods, "final")
	}
	if f.IsVolatile() {
		mods = append(mods, "volatile")
	}
	if f.IsTransient() {
		mods = append(mods, "transient")
	}
	if f.IsSynthetic() {
		mods = append(mods, "synthetic")
	}
	if f.IsEnum() {
		mods = append(mods, "enum")
	}
	return mods
}

func methodModifiers(f classfile.AccessFlags) []string {
	var mods []string
	if f.IsStatic() {
		mods = append(mods, "static")
	}
	if f.IsFinal() {
		mods = append(mods, "final")
	}
	if f.IsAbstract() {
		mods = append(mods, "abstract")
	}
	if f.IsSynchronized() {
		mods = append(mods, "synchronized")
	}
	if f.IsNative() {
		mods = append(mods, "native")
	}
	if f.IsBridge() {
		mods = append(mods, "bridge")
	}
	if f.IsVarargs() {
		mods = append(mods, "varargs")
	}
	if f.IsSynthetic() {
		mods = append(mods, "synthetic")
	}
	return mods
}

type codeLine struct {
	Offset   int
	Text     string
	Constant string
}

func disassemble(cf *classfile.ClassFile, m *classfile.MethodInfo) ([]codeLine, error) {
	ctx, ok := visitor.CodeContextOf(cf, m)
	if !ok {
		return nil, nil
	}
	var lines []codeLine
	err := visitor.InstructionsAccept(ctx, visitor.InstructionFunc(
		func(_ visitor.CodeContext, offset int, insn instruction.Instruction) {
			l := codeLine{Offset: offset, Text: insn.String()}
			if ref, ok := insn.(*instruction.ConstantRef); ok {
				l.Constant = describeConstant(cf.ConstantPool, ref.Index)
			}
			lines = append(lines, l)
		}))
	return lines, err
}

// describeConstant renders the constant at index the way it reads in
// source, or "" for constants without a short form.
func describeConstant(cp classfile.ConstantPool, index uint16) string {
	switch c := cp.Get(index).(type) {
	case *classfile.ConstantClassInfo:
		return cp.GetUtf8(c.NameIndex)
	case *classfile.ConstantStringInfo:
		return strconv.Quote(cp.GetUtf8(c.StringIndex))
	case *classfile.ConstantIntegerInfo:
		return strconv.FormatInt(int64(c.Value), 10)
	case *classfile.ConstantLongInfo:
		return strconv.FormatInt(c.Value, 10) + "L"
	case *classfile.ConstantFloatInfo:
		return strconv.FormatFloat(float64(c.Value), 'g', -1, 32) + "f"
	case *classfile.ConstantDoubleInfo:
		return strconv.FormatFloat(c.Value, 'g', -1, 64)
	case *classfile.ConstantFieldrefInfo, *classfile.ConstantMethodrefInfo, *classfile.ConstantInterfaceMethodrefInfo:
		class, name, desc, _ := cp.GetRef(index)
		return class + "." + name + ":" + desc
	case *classfile.ConstantMethodTypeInfo:
		return cp.GetUtf8(c.DescriptorIndex)
	case *classfile.ConstantInvokeDynamicInfo:
		name, desc := cp.GetNameAndType(c.NameAndTypeIndex)
		return name + ":" + desc
	case *classfile.ConstantDynamicInfo:
		name, desc := cp.GetNameAndType(c.NameAndTypeIndex)
		return name + ":" + desc
	}
	return ""
}
