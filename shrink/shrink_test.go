package shrink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
	"github.com/dhamidi/kiln/program"
)

func newPool(cfs ...*classfile.ClassFile) *program.Pool {
	pool := program.NewPool()
	for _, cf := range cfs {
		pool.Add(cf, cf.ClassName()+".class", false)
	}
	return pool
}

func empty(name string) *classfile.ClassFile {
	return classfile.NewBuilder(name, "java/lang/Object").Build()
}

func markAttributes(marks *UsageMarks, attrs []classfile.AttributeInfo) {
	for i := range attrs {
		marks.MarkAttribute(&attrs[i])
		if code, ok := attrs[i].Parsed.(*classfile.CodeAttribute); ok {
			markAttributes(marks, code.Attributes)
		}
	}
}

// wideConstant returns the code ldc2_w index; op.
func wideConstant(index uint16, op instruction.Opcode) []byte {
	return []byte{byte(instruction.OpLdc2W), byte(index >> 8), byte(index), byte(op)}
}

func shrink(t *testing.T, marks *UsageMarks, c *program.Class) Result {
	t.Helper()
	require.NoError(t, NewReferenceMarker(marks).MarkClass(c.File))
	result, err := NewShrinker(marks).Shrink(c)
	require.NoError(t, err)
	return result
}

// requireIntegrity checks that every reference resolves to a live constant
// and that wide constants are followed by their placeholder.
func requireIntegrity(t *testing.T, cf *classfile.ClassFile) {
	t.Helper()
	cp := cf.ConstantPool
	for i := 1; i < len(cp); i++ {
		if cp[i] == nil {
			require.True(t, classfile.IsWide(cp[i-1]), "empty slot %d", i)
			continue
		}
		if classfile.IsWide(cp[i]) {
			require.Less(t, i+1, len(cp))
			require.Nil(t, cp[i+1])
		}
		for _, ref := range constantReferences(cf, uint16(i)) {
			require.NotNil(t, cp.Get(*ref), "constant %d refers to %d", i, *ref)
		}
	}
	err := walkReferences(cf, nil, func(ref *uint16) {
		require.NotNil(t, cp.Get(*ref), "reference to %d", *ref)
	})
	require.NoError(t, err)

	data, err := classfile.Marshal(cf)
	require.NoError(t, err)
	_, err = classfile.ParseBytes(data)
	require.NoError(t, err)
}

func hasUtf8(cf *classfile.ClassFile, s string) bool {
	for _, e := range cf.ConstantPool {
		if u, ok := e.(*classfile.ConstantUtf8Info); ok && u.String() == s {
			return true
		}
	}
	return false
}

func TestShrinkRemovesUnusedParts(t *testing.T) {
	b := classfile.NewBuilder("a/Shape", "java/lang/Object")
	b.AddInterface("a/Used").AddInterface("a/Gone")
	half := b.Pool().AddDouble(2.5)
	big := b.Pool().AddLong(1 << 40)
	b.AddField(classfile.AccStatic|classfile.AccFinal, "big", "J",
		b.Attribute(&classfile.ConstantValueAttribute{ConstantValueIndex: big}))
	b.AddField(classfile.AccStatic, "unread", "I")
	b.AddAttribute(&classfile.SourceFileAttribute{SourceFileIndex: b.Pool().AddUtf8("Shape.java")})
	b.AddMethod(classfile.AccStatic, "live", "()J", &classfile.CodeAttribute{MaxStack: 2, Code: wideConstant(big, instruction.OpLreturn)})
	b.AddMethod(classfile.AccStatic, "dead", "()D", &classfile.CodeAttribute{MaxStack: 2, Code: wideConstant(half, instruction.OpDreturn)})
	cf := b.Build()
	pool := newPool(cf, empty("a/Used"), empty("a/Gone"))

	marks := NewUsageMarks(pool)
	marks.MarkClass("a/Shape")
	marks.MarkClass("a/Used")
	marks.MarkField("a/Shape", "big", "J")
	marks.MarkMethod("a/Shape", "live", "()J")
	markAttributes(marks, cf.Fields[0].Attributes)
	markAttributes(marks, cf.Methods[0].Attributes)
	before := len(cf.ConstantPool)

	result := shrink(t, marks, pool.Class("a/Shape"))
	assert.Equal(t, 1, result.Interfaces)
	assert.Equal(t, 1, result.Fields)
	assert.Equal(t, 1, result.Methods)
	assert.Equal(t, 1, result.Attributes)
	assert.Equal(t, before-len(cf.ConstantPool), result.Constants)
	requireIntegrity(t, cf)

	assert.Equal(t, []string{"a/Used"}, cf.InterfaceNames())
	assert.False(t, hasUtf8(cf, "dead"))
	assert.False(t, hasUtf8(cf, "unread"))
	assert.False(t, hasUtf8(cf, "Shape.java"))
	assert.Empty(t, cf.Attributes)
	for _, e := range cf.ConstantPool {
		assert.NotEqual(t, classfile.ConstantDouble, tagOf(e))
	}

	value := cf.GetField("big").Attributes[0].Parsed.(*classfile.ConstantValueAttribute)
	v, ok := cf.ConstantPool.GetLong(value.ConstantValueIndex)
	require.True(t, ok)
	assert.Equal(t, int64(1<<40), v)

	code := cf.GetMethod("live", "()J").GetCodeAttribute(cf.ConstantPool)
	insn, err := instruction.Decode(code.Code, 0)
	require.NoError(t, err)
	assert.Equal(t, value.ConstantValueIndex, insn.(*instruction.ConstantRef).Index)
}

func tagOf(e classfile.ConstantPoolEntry) classfile.ConstantTag {
	if e == nil {
		return 0
	}
	return e.Tag()
}

func TestShrinkSignature(t *testing.T) {
	sig := "<T:Ljava/lang/Object;>Ljava/lang/Object;La/Used<TT;>;La/Gone<Ljava/lang/String;>;"
	b := classfile.NewBuilder("a/Box", "java/lang/Object")
	b.AddInterface("a/Used").AddInterface("a/Gone")
	b.AddAttribute(&classfile.SignatureAttribute{
		SignatureIndex:    b.Pool().AddUtf8(sig),
		ReferencedClasses: classfile.SignatureClassNames(sig),
	})
	cf := b.Build()
	pool := newPool(cf, empty("a/Used"), empty("a/Gone"))

	marks := NewUsageMarks(pool)
	marks.MarkClass("a/Box")
	marks.MarkClass("a/Used")
	markAttributes(marks, cf.Attributes)
	shrink(t, marks, pool.Class("a/Box"))
	requireIntegrity(t, cf)

	attr := cf.Attributes[0].Parsed.(*classfile.SignatureAttribute)
	shrunk := cf.ConstantPool.GetUtf8(attr.SignatureIndex)
	assert.Equal(t, "<T:Ljava/lang/Object;>Ljava/lang/Object;La/Used<TT;>;", shrunk)
	assert.Equal(t, []string{"java/lang/Object", "java/lang/Object", "a/Used"}, attr.ReferencedClasses)
	assert.Equal(t, classfile.SignatureClassNames(shrunk), attr.ReferencedClasses)
}

func TestShrinkNestedClassAttributes(t *testing.T) {
	b := classfile.NewBuilder("a/Outer$1", "java/lang/Object")
	self := b.Pool().AddClass("a/Outer$1")
	b.AddAttribute(&classfile.EnclosingMethodAttribute{
		ClassIndex:  b.Pool().AddClass("a/Outer"),
		MethodIndex: b.Pool().AddNameAndType("gone", "()V"),
	})
	b.AddAttribute(&classfile.InnerClassesAttribute{Classes: []classfile.InnerClassEntry{
		{InnerClassInfoIndex: self},
		{
			InnerClassInfoIndex: b.Pool().AddClass("a/Gone$X"),
			OuterClassInfoIndex: b.Pool().AddClass("a/Gone"),
			InnerNameIndex:      b.Pool().AddUtf8("X"),
		},
	}})
	b.AddAttribute(&classfile.RuntimeVisibleAnnotationsAttribute{Annotations: []classfile.Annotation{
		{TypeIndex: b.Pool().AddUtf8("La/Used;")},
		{TypeIndex: b.Pool().AddUtf8("La/Gone;")},
		{TypeIndex: b.Pool().AddUtf8("La/Used;"), ElementValuePairs: []classfile.ElementValuePair{
			{ElementNameIndex: b.Pool().AddUtf8("kind"), Value: classfile.ElementValue{Tag: 'c', ClassInfoIndex: b.Pool().AddUtf8("La/Gone;")}},
			{ElementNameIndex: b.Pool().AddUtf8("size"), Value: classfile.ElementValue{Tag: 'I', ConstValueIndex: b.Pool().AddInteger(3)}},
		}},
	}})
	cf := b.Build()
	pool := newPool(cf, empty("a/Outer"), empty("a/Used"), empty("a/Gone"))

	marks := NewUsageMarks(pool)
	marks.MarkClass("a/Outer$1")
	marks.MarkClass("a/Outer")
	marks.MarkClass("a/Used")
	markAttributes(marks, cf.Attributes)
	shrink(t, marks, pool.Class("a/Outer$1"))
	requireIntegrity(t, cf)

	enclosing := cf.Attributes[0].Parsed.(*classfile.EnclosingMethodAttribute)
	assert.Equal(t, "a/Outer", cf.ConstantPool.GetClassName(enclosing.ClassIndex))
	assert.Zero(t, enclosing.MethodIndex)
	assert.False(t, hasUtf8(cf, "gone"))

	inner := cf.Attributes[1].Parsed.(*classfile.InnerClassesAttribute)
	require.Len(t, inner.Classes, 1)
	assert.Equal(t, "a/Outer$1", cf.ConstantPool.GetClassName(inner.Classes[0].InnerClassInfoIndex))
	assert.False(t, hasUtf8(cf, "X"))

	annotations := cf.Attributes[2].Parsed.(*classfile.RuntimeVisibleAnnotationsAttribute).Annotations
	require.Len(t, annotations, 2)
	require.Len(t, annotations[1].ElementValuePairs, 1)
	pair := annotations[1].ElementValuePairs[0]
	assert.Equal(t, "size", cf.ConstantPool.GetUtf8(pair.ElementNameIndex))
	n, _ := cf.ConstantPool.GetInteger(pair.Value.ConstValueIndex)
	assert.Equal(t, int32(3), n)
	assert.False(t, hasUtf8(cf, "La/Gone;"))
}

func TestShrinkLeavesLibraryClasses(t *testing.T) {
	cf := classfile.NewBuilder("java/util/List", "java/lang/Object").
		AddField(classfile.AccStatic, "x", "I").
		Build()
	pool := program.NewPool()
	c := pool.Add(cf, "List.class", true)
	before := len(cf.ConstantPool)

	result, err := NewShrinker(NewUsageMarks(pool)).Shrink(c)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Len(t, cf.ConstantPool, before)
	assert.Len(t, cf.Fields, 1)
}

func TestShrinkPanicsOnUnmarkedReference(t *testing.T) {
	cf := empty("a/Plain")
	pool := newPool(cf)
	marks := NewUsageMarks(pool)
	marks.MarkClass("a/Plain")

	assert.Panics(t, func() {
		_, _ = NewShrinker(marks).Shrink(pool.Class("a/Plain"))
	})
}

func TestUsageMarks(t *testing.T) {
	lib := empty("java/util/List")
	app := empty("a/App")
	pool := program.NewPool()
	pool.Add(lib, "List.class", true)
	pool.Add(app, "App.class", false)

	marks := NewUsageMarks(pool)
	assert.True(t, marks.IsClassUsed("java/util/List"), "library")
	assert.True(t, marks.IsMethodUsed("java/lang/String", "length", "()I"), "outside the program")
	assert.False(t, marks.IsClassUsed("a/App"))

	marks.MarkAll(app)
	assert.True(t, marks.IsClassUsed("a/App"))
	assert.False(t, marks.IsFieldUsed("a/App", "length", "()I"))
}

func TestMarkAllDropsNamedAttributes(t *testing.T) {
	b := classfile.NewBuilder("a/Strip", "java/lang/Object")
	b.AddAttribute(&classfile.SourceFileAttribute{SourceFileIndex: b.Pool().AddUtf8("Strip.java")})
	b.AddMethod(classfile.AccStatic, "run", "()V", &classfile.CodeAttribute{MaxStack: 0, Code: []byte{byte(instruction.OpReturn)}})
	cf := b.Build()
	pool := newPool(cf)

	marks := NewUsageMarks(pool)
	marks.MarkAll(cf, "SourceFile")
	result := shrink(t, marks, pool.Class("a/Strip"))
	requireIntegrity(t, cf)

	assert.Equal(t, 1, result.Attributes)
	assert.Nil(t, cf.GetAttribute("SourceFile"))
	assert.NotNil(t, cf.GetMethod("run", "()V").GetCodeAttribute(cf.ConstantPool))
}
