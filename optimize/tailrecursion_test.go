package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
)

// factorialClass holds two static factorials: fact(I)I multiplies after
// the recursive call, acc(II)I passes the product along and returns the
// result of the call directly.
func factorialClass() *classfile.ClassFile {
	b := classfile.NewBuilder("a/Fact", "java/lang/Object")
	fact := b.Pool().AddMethodref("a/Fact", "fact", "(I)I")
	acc := b.Pool().AddMethodref("a/Fact", "acc", "(II)I")

	b.AddMethod(classfile.AccStatic, "fact", "(I)I", &classfile.CodeAttribute{
		MaxStack: 3, MaxLocals: 1,
		Code: encode(
			instruction.Load('I', 0),                 // 0
			branch(instruction.OpIfne, 5),            // 1
			instruction.PushInt(1),                   // 4
			simple(instruction.OpIreturn),            // 5
			instruction.Load('I', 0),                 // 6
			instruction.Load('I', 0),                 // 7
			instruction.PushInt(1),                   // 8
			simple(instruction.OpIsub),               // 9
			invoke(instruction.OpInvokestatic, fact), // 10
			simple(instruction.OpImul),               // 13
			simple(instruction.OpIreturn),            // 14
		),
	})
	b.AddMethod(classfile.AccStatic, "acc", "(II)I", &classfile.CodeAttribute{
		MaxStack: 3, MaxLocals: 2,
		Code: encode(
			instruction.Load('I', 0),                // 0
			branch(instruction.OpIfne, 5),           // 1
			instruction.Load('I', 1),                // 4
			simple(instruction.OpIreturn),           // 5
			instruction.Load('I', 0),                // 6
			instruction.PushInt(1),                  // 7
			simple(instruction.OpIsub),              // 8
			instruction.Load('I', 1),                // 9
			instruction.Load('I', 0),                // 10
			simple(instruction.OpImul),              // 11
			invoke(instruction.OpInvokestatic, acc), // 12
			simple(instruction.OpIreturn),           // 15
		),
	})
	return b.Build()
}

func TestTailRecursion(t *testing.T) {
	cf := factorialClass()
	pass := NewTailRecursionSimplifier(programPool(cf))

	m, code := methodCode(cf, "fact", "(I)I")
	before := append([]byte(nil), code.Code...)
	changed, err := pass.OptimizeMethod(cf, m, code)
	require.NoError(t, err)
	assert.False(t, changed, "multiplying after the call is not a tail call")
	assert.Equal(t, before, code.Code)

	m, code = methodCode(cf, "acc", "(II)I")
	changed, err = pass.OptimizeMethod(cf, m, code)
	require.NoError(t, err)
	require.True(t, changed)
	assert.NotContains(t, opcodes(t, code.Code), instruction.OpInvokestatic)
	assert.Equal(t, []instruction.Opcode{
		instruction.OpIload0, instruction.OpIfne, instruction.OpIload1, instruction.OpIreturn,
		instruction.OpIload0, instruction.OpIconst1, instruction.OpIsub, instruction.OpIload1, instruction.OpIload0, instruction.OpImul,
		instruction.OpIstore1, instruction.OpIstore0, instruction.OpGoto,
	}, opcodes(t, code.Code))

	for _, n := range []int32{0, 1, 5, 10} {
		vm := newMachine(t, cf)
		want := vm.call("a/Fact", "fact", "(I)I", n)
		vm.calls = 0
		assert.Equal(t, want, vm.call("a/Fact", "acc", "(II)I", n, 1), "acc(%d, 1)", n)
		assert.Equal(t, 1, vm.calls, "acc(%d, 1) recursed", n)
	}
}

func TestTailRecursionKeepsJumpTargetReturn(t *testing.T) {
	b := classfile.NewBuilder("a/Loop", "java/lang/Object")
	self := b.Pool().AddMethodref("a/Loop", "down", "(I)I")
	b.AddMethod(classfile.AccStatic|classfile.AccPrivate, "down", "(I)I", &classfile.CodeAttribute{
		MaxStack: 2, MaxLocals: 1,
		Code: encode(
			instruction.Load('I', 0),                 // 0
			simple(instruction.OpDup),                // 1
			branch(instruction.OpIfle, 8),            // 2
			instruction.PushInt(1),                   // 5
			simple(instruction.OpIsub),               // 6
			invoke(instruction.OpInvokestatic, self), // 7
			simple(instruction.OpIreturn),            // 10
		),
	})
	cf := b.Build()
	m, code := methodCode(cf, "down", "(I)I")

	// Without a pool the call is matched by name.
	changed, err := NewTailRecursionSimplifier(nil).OptimizeMethod(cf, m, code)
	require.NoError(t, err)
	require.True(t, changed)
	ops := opcodes(t, code.Code)
	assert.Equal(t, instruction.OpIreturn, ops[len(ops)-1])

	vm := newMachine(t, cf)
	assert.Equal(t, int32(0), vm.call("a/Loop", "down", "(I)I", 7))
	assert.Equal(t, 1, vm.calls)
}

func TestTailRecursionSkipsOverridableMethods(t *testing.T) {
	b := classfile.NewBuilder("a/Virt", "java/lang/Object")
	self := b.Pool().AddMethodref("a/Virt", "f", "()V")
	b.AddMethod(classfile.AccPublic, "f", "()V", &classfile.CodeAttribute{
		MaxStack: 1, MaxLocals: 1,
		Code: encode(instruction.Load('A', 0), invoke(instruction.OpInvokevirtual, self), simple(instruction.OpReturn)),
	})
	cf := b.Build()
	m, code := methodCode(cf, "f", "()V")
	changed, err := NewTailRecursionSimplifier(nil).OptimizeMethod(cf, m, code)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestTailRecursionSkipsGuardedCalls(t *testing.T) {
	b := classfile.NewBuilder("a/Guard", "java/lang/Object")
	self := b.Pool().AddMethodref("a/Guard", "f", "(I)I")
	b.AddMethod(classfile.AccStatic, "f", "(I)I", &classfile.CodeAttribute{
		MaxStack: 1, MaxLocals: 1,
		Code: encode(
			instruction.Load('I', 0),                 // 0
			invoke(instruction.OpInvokestatic, self), // 1
			simple(instruction.OpIreturn),            // 4
			simple(instruction.OpPop),                // 5
			instruction.PushInt(0),                   // 6
			simple(instruction.OpIreturn),            // 7
		),
		ExceptionTable: []classfile.ExceptionTableEntry{{StartPC: 0, EndPC: 4, HandlerPC: 5}},
	})
	cf := b.Build()
	m, code := methodCode(cf, "f", "(I)I")
	before := append([]byte(nil), code.Code...)

	changed, err := NewTailRecursionSimplifier(programPool(cf)).OptimizeMethod(cf, m, code)
	require.NoError(t, err)
	assert.False(t, changed, "a call inside a handler range must keep its frame")
	assert.Equal(t, before, code.Code)
}

func TestTailRecursionSkipsOverloads(t *testing.T) {
	b := classfile.NewBuilder("a/Over", "java/lang/Object")
	wide := b.Pool().AddMethodref("a/Over", "f", "(J)I")
	b.AddMethod(classfile.AccStatic, "f", "(J)I", &classfile.CodeAttribute{
		MaxStack: 2, MaxLocals: 2,
		Code: encode(instruction.Load('J', 0), simple(instruction.OpL2i), simple(instruction.OpIreturn)),
	})
	b.AddMethod(classfile.AccStatic, "f", "(I)I", &classfile.CodeAttribute{
		MaxStack: 2, MaxLocals: 1,
		Code: encode(
			instruction.Load('I', 0),
			simple(instruction.OpI2l),
			invoke(instruction.OpInvokestatic, wide),
			simple(instruction.OpIreturn),
		),
	})
	cf := b.Build()
	pass := NewTailRecursionSimplifier(programPool(cf))

	for _, p := range []*TailRecursionSimplifier{pass, NewTailRecursionSimplifier(nil)} {
		m, code := methodCode(cf, "f", "(I)I")
		before := append([]byte(nil), code.Code...)
		changed, err := p.OptimizeMethod(cf, m, code)
		require.NoError(t, err)
		assert.False(t, changed, "f(I)I calls f(J)I, not itself")
		assert.Equal(t, before, code.Code)
	}
}
