package visitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
)

func sampleClass() *classfile.ClassFile {
	b := classfile.NewBuilder("a/Sample", "java/lang/Object")
	b.Pool().AddLong(42)
	get := b.Pool().AddFieldref("a/Sample", "count", "I")
	code := &classfile.CodeAttribute{
		MaxStack:  1,
		MaxLocals: 1,
		Code: []byte{
			byte(instruction.OpAload0),
			byte(instruction.OpGetfield), byte(get >> 8), byte(get),
			byte(instruction.OpIfeq), 0x00, 0x04,
			byte(instruction.OpIconst1),
			byte(instruction.OpIreturn),
		},
		ExceptionTable: []classfile.ExceptionTableEntry{{StartPC: 0, EndPC: 4, HandlerPC: 7}},
	}
	code.Attributes = append(code.Attributes, b.Attribute(&classfile.LineNumberTableAttribute{
		LineNumberTable: []classfile.LineNumberEntry{{StartPC: 0, LineNumber: 3}},
	}))
	b.AddField(classfile.AccPrivate, "count", "I")
	b.AddMethod(classfile.AccPublic, "positive", "()I", code)
	b.AddAttribute(&classfile.SourceFileAttribute{SourceFileIndex: b.Pool().AddUtf8("Sample.java")})
	return b.Build()
}

type tagCounter struct {
	NopConstantVisitor
	classes, longs, fieldrefs int
}

func (c *tagCounter) VisitClass(*classfile.ClassFile, uint16, *classfile.ConstantClassInfo) {
	c.classes++
}

func (c *tagCounter) VisitLong(*classfile.ClassFile, uint16, *classfile.ConstantLongInfo) {
	c.longs++
}

func (c *tagCounter) VisitFieldref(*classfile.ClassFile, uint16, *classfile.ConstantFieldrefInfo) {
	c.fieldrefs++
}

func TestConstantsAccept(t *testing.T) {
	cf := sampleClass()
	var c tagCounter
	ConstantsAccept(cf, &c)
	assert.Equal(t, 2, c.classes)
	assert.Equal(t, 1, c.longs, "placeholder after a long must not be visited")
	assert.Equal(t, 1, c.fieldrefs)

	var none tagCounter
	AcceptConstant(cf, 0, &none)
	AcceptConstant(cf, 9999, &none)
	assert.Zero(t, none.classes+none.longs+none.fieldrefs)
}

type attributeRecorder struct {
	NopAttributeVisitor
	names []string
}

func (r *attributeRecorder) VisitCode(ctx AttributeContext, a *classfile.CodeAttribute) {
	r.names = append(r.names, "Code:"+ctx.Method.Name(ctx.Class.ConstantPool))
}

func (r *attributeRecorder) VisitLineNumberTable(ctx AttributeContext, a *classfile.LineNumberTableAttribute) {
	if ctx.Code != nil {
		r.names = append(r.names, "LineNumberTable")
	}
}

func (r *attributeRecorder) VisitSourceFile(ctx AttributeContext, a *classfile.SourceFileAttribute) {
	r.names = append(r.names, "SourceFile:"+ctx.Class.ConstantPool.GetUtf8(a.SourceFileIndex))
}

func TestAllAttributesAccept(t *testing.T) {
	var r attributeRecorder
	AllAttributesAccept(sampleClass(), &r)
	assert.Equal(t, []string{"SourceFile:Sample.java", "Code:positive", "LineNumberTable"}, r.names)
}

func TestMembersAccept(t *testing.T) {
	cf := sampleClass()
	var names []string
	MembersAccept(cf, MemberFunc{
		Field: func(cf *classfile.ClassFile, f *classfile.FieldInfo) {
			names = append(names, "field "+f.Name(cf.ConstantPool))
		},
		Method: func(cf *classfile.ClassFile, m *classfile.MethodInfo) {
			names = append(names, "method "+m.Name(cf.ConstantPool))
		},
	})
	assert.Equal(t, []string{"field count", "method positive"}, names)
}

type branchCollector struct {
	NopInstructionVisitor
	targets []int
	refs    []uint16
}

func (c *branchCollector) VisitBranch(ctx CodeContext, offset int, insn *instruction.Branch) {
	c.targets = append(c.targets, offset+int(insn.Offset))
}

func (c *branchCollector) VisitConstantRef(ctx CodeContext, offset int, insn *instruction.ConstantRef) {
	c.refs = append(c.refs, insn.Index)
}

func TestInstructionsAccept(t *testing.T) {
	cf := sampleClass()
	ctx, ok := CodeContextOf(cf, &cf.Methods[0])
	require.True(t, ok)

	var c branchCollector
	require.NoError(t, InstructionsAccept(ctx, &c))
	assert.Equal(t, []int{8}, c.targets)
	require.Len(t, c.refs, 1)
	class, name, _ := cf.ConstantPool.GetFieldref(c.refs[0])
	assert.Equal(t, "a/Sample", class)
	assert.Equal(t, "count", name)

	var offsets []int
	require.NoError(t, InstructionsAccept(ctx, InstructionFunc(func(ctx CodeContext, offset int, insn instruction.Instruction) {
		offsets = append(offsets, offset)
	})))
	assert.Equal(t, []int{0, 1, 4, 7, 8}, offsets)

	t.Run("malformed code", func(t *testing.T) {
		bad := CodeContext{Class: cf, Method: &cf.Methods[0], Code: &classfile.CodeAttribute{Code: []byte{0xFF}}}
		assert.Error(t, InstructionsAccept(bad, &c))
	})
}

func TestExceptionsAcceptAt(t *testing.T) {
	cf := sampleClass()
	ctx, _ := CodeContextOf(cf, &cf.Methods[0])

	count := func(offset int) int {
		n := 0
		ExceptionsAcceptAt(ctx, offset, ExceptionFunc(func(CodeContext, *classfile.ExceptionTableEntry) { n++ }))
		return n
	}
	assert.Equal(t, 1, count(0))
	assert.Equal(t, 1, count(1))
	assert.Equal(t, 0, count(4), "end offset is exclusive")
	assert.True(t, IsCoveredByException(ctx.Code, 3))
	assert.False(t, IsCoveredByException(ctx.Code, 7))
}

type frameRecorder struct {
	NopStackMapFrameVisitor
	kinds   []string
	offsets []int
}

func (r *frameRecorder) VisitSameFrame(ctx CodeContext, offset int, f *classfile.StackMapFrame) {
	r.kinds, r.offsets = append(r.kinds, "same"), append(r.offsets, offset)
}

func (r *frameRecorder) VisitAppendFrame(ctx CodeContext, offset int, f *classfile.StackMapFrame) {
	r.kinds, r.offsets = append(r.kinds, "append"), append(r.offsets, offset)
}

func (r *frameRecorder) VisitFullFrame(ctx CodeContext, offset int, f *classfile.StackMapFrame) {
	r.kinds, r.offsets = append(r.kinds, "full"), append(r.offsets, offset)
}

func TestStackMapFramesAccept(t *testing.T) {
	table := &classfile.StackMapTableAttribute{Entries: []classfile.StackMapFrame{
		{FrameType: 5, OffsetDelta: 5},
		{FrameType: 252, OffsetDelta: 3, Locals: []classfile.VerificationType{{Tag: classfile.VerificationInteger}}},
		{FrameType: 255, OffsetDelta: 10},
	}}
	var r frameRecorder
	StackMapFramesAccept(CodeContext{}, table, &r)
	assert.Equal(t, []string{"same", "append", "full"}, r.kinds)
	assert.Equal(t, []int{5, 9, 20}, r.offsets)

	var tags []uint8
	VerificationTypesAccept(&table.Entries[1], func(v *classfile.VerificationType) { tags = append(tags, v.Tag) })
	assert.Equal(t, []uint8{classfile.VerificationInteger}, tags)
}
