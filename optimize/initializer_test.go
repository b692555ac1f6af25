package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
	"github.com/dhamidi/kiln/program"
)

func initializer() *classfile.CodeAttribute {
	return &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 2, Code: []byte{0xB1}}
}

func TestDuplicateInitializerFixer(t *testing.T) {
	b := classfile.NewBuilder("a/Point", "java/lang/Object")
	b.AddMethod(classfile.AccPublic, "<init>", "(I)V", initializer())
	b.AddMethod(classfile.AccPublic, "<init>", "(II)V", initializer())
	b.AddMethod(classfile.AccPublic, "<init>", "(I)V", initializer())
	cf := b.Build()

	fixed, err := DuplicateInitializerFixer{}.FixClass(cf)
	require.NoError(t, err)
	require.Len(t, fixed, 1)
	assert.Same(t, &cf.Methods[2], fixed[0])

	var descs []string
	for i := range cf.Methods {
		descs = append(descs, cf.Methods[i].Descriptor(cf.ConstantPool))
	}
	// (II)V is taken, so the marker is a short.
	assert.Equal(t, []string{"(I)V", "(II)V", "(IS)V"}, descs)
	_, code := methodCode(cf, "<init>", "(IS)V")
	assert.Equal(t, uint16(3), code.MaxLocals)

	fixed, err = DuplicateInitializerFixer{}.FixClass(cf)
	require.NoError(t, err)
	assert.Empty(t, fixed)
}

func TestDuplicateInitializerFixerRunsOutOfMarkers(t *testing.T) {
	b := classfile.NewBuilder("a/Many", "java/lang/Object")
	for _, desc := range []string{"()V", "(I)V", "(S)V", "(B)V", "(C)V", "(Z)V", "()V"} {
		b.AddMethod(classfile.AccPublic, "<init>", desc, initializer())
	}
	_, err := DuplicateInitializerFixer{}.FixClass(b.Build())
	assert.Error(t, err)
}

func TestDuplicateInitializerInvocationFixer(t *testing.T) {
	p := classfile.NewBuilder("a/Point", "java/lang/Object")
	p.AddMethod(classfile.AccPublic, "<init>", "(I)V", initializer())
	p.AddMethod(classfile.AccPublic, "<init>", "(I)V", initializer())
	point := p.Build()

	m := classfile.NewBuilder("a/Main", "java/lang/Object")
	class := m.Pool().AddClass("a/Point")
	init := m.Pool().AddMethodref("a/Point", "<init>", "(I)V")
	m.AddMethod(classfile.AccStatic, "make", "()La/Point;", &classfile.CodeAttribute{
		MaxStack: 4,
		Code: encode(
			&instruction.ConstantRef{Op: instruction.OpNew, Index: class}, // 0
			simple(instruction.OpDup),                                     // 3
			instruction.PushInt(5),                                        // 4
			invoke(instruction.OpInvokespecial, init),                     // 5
			&instruction.ConstantRef{Op: instruction.OpNew, Index: class}, // 8
			simple(instruction.OpDup),                                     // 11
			instruction.PushInt(7),                                        // 12
			invoke(instruction.OpInvokespecial, init),                     // 14
			simple(instruction.OpPop),                                     // 17
			simple(instruction.OpAreturn),                                 // 18
		),
	})
	main := m.Build()
	pool := programPool(point, main)
	factory, code := methodCode(main, "make", "()La/Point;")

	// The first call was linked to the second constructor before the fix,
	// the second call to the first one, which keeps its descriptor.
	links := program.Links{
		{Method: factory, Offset: 5}:  {Class: pool.Class("a/Point"), Method: &point.Methods[1]},
		{Method: factory, Offset: 14}: {Class: pool.Class("a/Point"), Method: &point.Methods[0]},
	}
	_, err := DuplicateInitializerFixer{}.FixClass(point)
	require.NoError(t, err)

	changed, err := NewDuplicateInitializerInvocationFixer(links).OptimizeMethod(main, factory, code)
	require.NoError(t, err)
	require.True(t, changed)

	located, err := instruction.DecodeAll(code.Code)
	require.NoError(t, err)
	require.Len(t, located, 11)
	assert.Equal(t, instruction.OpIconst0, located[3].Instruction.Opcode())
	call := located[4].Instruction.(*instruction.ConstantRef)
	_, _, desc, _ := main.ConstantPool.GetRef(call.Index)
	assert.Equal(t, "(II)V", desc)

	assert.Equal(t, instruction.OpBipush, located[7].Instruction.Opcode(), "no marker before the unchanged constructor")
	call = located[8].Instruction.(*instruction.ConstantRef)
	assert.Equal(t, init, call.Index)
	_, _, desc, _ = main.ConstantPool.GetRef(call.Index)
	assert.Equal(t, "(I)V", desc)
	assert.Equal(t, "(I)V", point.Methods[0].Descriptor(point.ConstantPool))
	assert.Equal(t, 1, countOpcode(t, code.Code, instruction.OpIconst0))
	assert.Equal(t, uint16(4), code.MaxStack)

	changed, err = NewDuplicateInitializerInvocationFixer(links).OptimizeMethod(main, factory, code)
	require.NoError(t, err)
	assert.False(t, changed, "call sites are keyed by their original offset")
}

func countOpcode(t *testing.T, code []byte, op instruction.Opcode) int {
	t.Helper()
	n := 0
	for _, o := range opcodes(t, code) {
		if o == op {
			n++
		}
	}
	return n
}
