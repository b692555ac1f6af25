package optimize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/evaluation"
	"github.com/dhamidi/kiln/instruction"
)

// passFunc adapts a function to Pass.
type passFunc func(cf *classfile.ClassFile, m *classfile.MethodInfo, code *classfile.CodeAttribute) (bool, error)

func (passFunc) Name() string { return "test" }

func (f passFunc) OptimizeMethod(cf *classfile.ClassFile, m *classfile.MethodInfo, code *classfile.CodeAttribute) (bool, error) {
	return f(cf, m, code)
}

func TestRunMethodRestoresCode(t *testing.T) {
	tests := []struct {
		name string
		pass passFunc
	}{
		{"error", func(cf *classfile.ClassFile, m *classfile.MethodInfo, code *classfile.CodeAttribute) (bool, error) {
			code.Code = []byte{0x00}
			code.MaxStack = 99
			return true, errors.New("broken")
		}},
		{"panic", func(cf *classfile.ClassFile, m *classfile.MethodInfo, code *classfile.CodeAttribute) (bool, error) {
			code.Code[0] = 0x00
			code.ExceptionTable = append(code.ExceptionTable, classfile.ExceptionTableEntry{EndPC: 1})
			panic("out of range")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf := staticMethod("f", "()I", 0, encode(instruction.PushInt(1), simple(instruction.OpIreturn)))
			m, code := methodCode(cf, "f", "()I")
			want := code.Clone()

			changed, err := RunMethod(tt.pass, cf, m, code)
			assert.Error(t, err)
			assert.False(t, changed)
			assert.Equal(t, want, code)
		})
	}
}

func TestRunMethodPropagatesInvariantErrors(t *testing.T) {
	cf := staticMethod("f", "()V", 0, []byte{0xB1})
	m, code := methodCode(cf, "f", "()V")
	pass := passFunc(func(*classfile.ClassFile, *classfile.MethodInfo, *classfile.CodeAttribute) (bool, error) {
		panic(classfile.Invariantf("edit at offset %d", 7))
	})
	assert.Panics(t, func() { _, _ = RunMethod(pass, cf, m, code) })
}

func TestRunner(t *testing.T) {
	b := classfile.NewBuilder("a/Run", "java/lang/Object")
	b.AddMethod(classfile.AccStatic, "f", "()I", &classfile.CodeAttribute{MaxStack: 2, Code: encode(
		instruction.PushInt(2), instruction.PushInt(2), simple(instruction.OpIadd), simple(instruction.OpIreturn),
	)})
	b.AddMethod(classfile.AccStatic, "g", "()V", &classfile.CodeAttribute{Code: []byte{0xB1}})
	b.AddMethod(classfile.AccStatic|classfile.AccNative, "h", "()V", nil)
	cf := b.Build()

	failing := passFunc(func(cf *classfile.ClassFile, m *classfile.MethodInfo, code *classfile.CodeAttribute) (bool, error) {
		if m.Name(cf.ConstantPool) == "g" {
			return false, errors.New("no")
		}
		return false, nil
	})
	stats := NewRunner(NewEvaluationSimplifier(evaluation.NewEvaluator(), nil), failing).RunClass(cf)

	assert.Equal(t, Stats{Methods: 2, Changed: 1}, stats["evaluation"])
	assert.Equal(t, Stats{Methods: 2, Failed: 1}, stats["test"])

	var total Stats
	for _, s := range stats {
		total.Add(s)
	}
	assert.Equal(t, "4 methods, 1 changed, 1 failed", total.String())
	require.Equal(t, int32(4), newMachine(t, cf).call("a/Run", "f", "()I"))
}

func TestSideEffectChecker(t *testing.T) {
	b := classfile.NewBuilder("a/Side", "java/lang/Object")
	field := b.Pool().AddFieldref("a/Side", "x", "I")
	length := b.Pool().AddMethodref("java/lang/String", "length", "()I")
	cf := b.Build()

	checker, err := NewSideEffectChecker(nil, []string{"java/lang/String.length()I"}, false)
	require.NoError(t, err)
	withReturns := &SideEffectChecker{IncludeReturns: true}

	tests := []struct {
		name    string
		insn    instruction.Instruction
		want    bool
		returns bool
	}{
		{"arithmetic", simple(instruction.OpIadd), false, false},
		{"array store", simple(instruction.OpIastore), true, true},
		{"throw", simple(instruction.OpAthrow), true, true},
		{"field read", &instruction.ConstantRef{Op: instruction.OpGetstatic, Index: field}, false, false},
		{"field write", &instruction.ConstantRef{Op: instruction.OpPutfield, Index: field}, true, true},
		{"pure call", invoke(instruction.OpInvokevirtual, length), false, true},
		{"return", simple(instruction.OpIreturn), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.HasSideEffects(cf, tt.insn))
			assert.Equal(t, tt.returns, withReturns.HasSideEffects(cf, tt.insn))
		})
	}

	_, err = NewSideEffectChecker(nil, []string{"length"}, false)
	assert.Error(t, err)
}
