package optimize

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/evaluation"
	"github.com/dhamidi/kiln/instruction"
)

func staticMethod(name, desc string, maxLocals uint16, code []byte) *classfile.ClassFile {
	b := classfile.NewBuilder("a/Eval", "java/lang/Object")
	b.AddMethod(classfile.AccStatic, name, desc, &classfile.CodeAttribute{MaxStack: 4, MaxLocals: maxLocals, Code: code})
	return b.Build()
}

func simplify(t *testing.T, pass *EvaluationSimplifier, cf *classfile.ClassFile) bool {
	t.Helper()
	m := &cf.Methods[0]
	changed, err := pass.OptimizeMethod(cf, m, m.GetCodeAttribute(cf.ConstantPool))
	require.NoError(t, err)
	return changed
}

func TestEvaluationFoldsArithmetic(t *testing.T) {
	cf := staticMethod("f", "()I", 0, encode(
		instruction.PushInt(2),
		instruction.PushInt(3),
		simple(instruction.OpImul),
		instruction.PushInt(1000),
		simple(instruction.OpIadd),
		simple(instruction.OpIreturn),
	))
	pass := NewEvaluationSimplifier(evaluation.NewEvaluator(), nil)

	require.True(t, simplify(t, pass, cf))
	_, code := methodCode(cf, "f", "()I")
	ops := opcodes(t, code.Code)
	assert.NotContains(t, ops, instruction.OpImul)
	assert.NotContains(t, ops, instruction.OpIadd)
	assert.Equal(t, int32(1006), newMachine(t, cf).call("a/Eval", "f", "()I"))

	assert.False(t, simplify(t, pass, cf), "second run")
}

func TestEvaluationBranches(t *testing.T) {
	tests := []struct {
		name  string
		cond  int32
		want  int32
		jumps bool
	}{
		{name: "never taken", cond: 0, want: 1},
		{name: "always taken", cond: 1, want: 2, jumps: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf := staticMethod("f", "()I", 0, encode(
				instruction.PushInt(tt.cond),  // 0
				branch(instruction.OpIfne, 5), // 1
				instruction.PushInt(1),        // 4
				simple(instruction.OpIreturn), // 5
				instruction.PushInt(2),        // 6
				simple(instruction.OpIreturn), // 7
			))
			require.True(t, simplify(t, NewEvaluationSimplifier(evaluation.NewEvaluator(), nil), cf))

			_, code := methodCode(cf, "f", "()I")
			ops := opcodes(t, code.Code)
			assert.NotContains(t, ops, instruction.OpIfne)
			assert.Contains(t, ops, instruction.OpPop)
			assert.Equal(t, tt.jumps, slices.Contains(ops, instruction.OpGoto))
			assert.Equal(t, tt.want, newMachine(t, cf).call("a/Eval", "f", "()I"))
		})
	}
}

func TestEvaluationLoadsLowestLocal(t *testing.T) {
	cf := staticMethod("f", "(I)I", 2, encode(
		instruction.Load('I', 0),
		instruction.Store('I', 1),
		instruction.Load('I', 1),
		simple(instruction.OpIreturn),
	))
	require.True(t, simplify(t, NewEvaluationSimplifier(evaluation.NewEvaluator(), nil), cf))
	_, code := methodCode(cf, "f", "(I)I")
	assert.Equal(t, []byte{0x1A, 0x3C, 0x1A, 0xAC}, code.Code)
}

func TestEvaluationKeepsSideEffects(t *testing.T) {
	b := classfile.NewBuilder("a/Eval", "java/lang/Object")
	abs := b.Pool().AddMethodref("java/lang/Math", "abs", "(I)I")
	b.AddMethod(classfile.AccStatic, "f", "()I", &classfile.CodeAttribute{MaxStack: 2, MaxLocals: 0, Code: encode(
		instruction.PushInt(-4),
		invoke(instruction.OpInvokestatic, abs),
		simple(instruction.OpIreturn),
	)})
	cf := b.Build()

	impure, err := NewSideEffectChecker(nil, nil, false)
	require.NoError(t, err)
	pure, err := NewSideEffectChecker(nil, []string{"java/lang/Math.abs(I)I"}, false)
	require.NoError(t, err)
	call := invoke(instruction.OpInvokestatic, abs)
	assert.True(t, impure.HasSideEffects(cf, call))
	assert.False(t, pure.HasSideEffects(cf, call))

	assert.False(t, simplify(t, NewEvaluationSimplifier(evaluation.NewEvaluator(), pure), cf))
}

// fakeFacts answers from fixed tables. Offsets missing from traced are
// unreachable.
type fakeFacts struct {
	traced      map[int]bool
	targets     map[int][]int
	origins     map[int]int
	subroutines map[int]bool
	returning   bool
}

func (f *fakeFacts) IsTraced(offset int) bool              { return f.traced[offset] }
func (f *fakeFacts) StackSizeBefore(int) int               { return 0 }
func (f *fakeFacts) StackBefore(int, int) evaluation.Value { return evaluation.Unknown(evaluation.TypeTop) }
func (f *fakeFacts) StackAfter(int, int) evaluation.Value  { return evaluation.Unknown(evaluation.TypeTop) }
func (f *fakeFacts) LocalBefore(int, int) evaluation.Value { return evaluation.Unknown(evaluation.TypeTop) }
func (f *fakeFacts) LocalAfter(int, int) evaluation.Value  { return evaluation.Unknown(evaluation.TypeTop) }
func (f *fakeFacts) LocalCount() int                       { return 0 }
func (f *fakeFacts) BranchTargets(offset int) []int        { return f.targets[offset] }
func (f *fakeFacts) BranchOriginCount(offset int) int      { return f.origins[offset] }
func (f *fakeFacts) IsSubroutineStart(offset int) bool     { return f.subroutines[offset] }
func (f *fakeFacts) IsSubroutineReturning(offset int) bool { return f.subroutines[offset] && f.returning }

type fakeAnalyzer struct {
	facts evaluation.Facts
	err   error
}

func (a fakeAnalyzer) Analyze(*classfile.ClassFile, *classfile.MethodInfo, *classfile.CodeAttribute) (evaluation.Facts, error) {
	return a.facts, a.err
}

func TestEvaluationInlinesSingleUseSubroutine(t *testing.T) {
	// jsr 4; return; astore_1; ret 1
	code := encode(
		branch(instruction.OpJsr, 4),
		simple(instruction.OpReturn),
		instruction.Store('A', 1),
		&instruction.Variable{Op: instruction.OpRet, Index: 1},
	)
	facts := &fakeFacts{
		traced:      map[int]bool{0: true, 3: true, 4: true, 5: true},
		targets:     map[int][]int{0: {4}, 5: {3}},
		origins:     map[int]int{4: 1},
		subroutines: map[int]bool{4: true},
		returning:   true,
	}

	cf := staticMethod("f", "()V", 2, code)
	require.True(t, simplify(t, NewEvaluationSimplifier(fakeAnalyzer{facts: facts}, nil), cf))
	_, attr := methodCode(cf, "f", "()V")
	// goto 4; return; goto 3
	assert.Equal(t, []byte{0xA7, 0x00, 0x04, 0xB1, 0xA7, 0xFF, 0xFF}, attr.Code)

	// A subroutine with two callers stays.
	facts.origins[4] = 2
	facts.targets = map[int][]int{}
	cf = staticMethod("f", "()V", 2, append([]byte(nil), code...))
	assert.False(t, simplify(t, NewEvaluationSimplifier(fakeAnalyzer{facts: facts}, nil), cf))
}

func TestEvaluationSkipsUnsupportedCode(t *testing.T) {
	cf := staticMethod("f", "()V", 0, []byte{0xB1})
	pass := NewEvaluationSimplifier(fakeAnalyzer{err: evaluation.ErrUnsupported}, nil)
	assert.False(t, simplify(t, pass, cf))
}

func TestEvaluationReplacesSwitchOnKnownKey(t *testing.T) {
	sw := &instruction.TableSwitch{Low: 0, High: 1, Offsets: make([]int32, 2)}
	end := 1 + sw.Length(1)
	// Each case is a bipush and an ireturn.
	sw.Offsets = []int32{int32(end - 1), int32(end + 3 - 1)}
	sw.Default = int32(end + 6 - 1)
	cf := staticMethod("f", "()I", 0, encode(
		instruction.PushInt(1),
		sw,
		instruction.PushInt(10), simple(instruction.OpIreturn),
		instruction.PushInt(11), simple(instruction.OpIreturn),
		instruction.PushInt(12), simple(instruction.OpIreturn),
	))

	require.True(t, simplify(t, NewEvaluationSimplifier(evaluation.NewEvaluator(), nil), cf))
	_, attr := methodCode(cf, "f", "()I")
	ops := opcodes(t, attr.Code)
	assert.NotContains(t, ops, instruction.OpTableswitch)
	assert.Equal(t, []instruction.Opcode{instruction.OpIconst1, instruction.OpPop, instruction.OpGoto}, ops[:3])
	assert.Equal(t, int32(11), newMachine(t, cf).call("a/Eval", "f", "()I"))
}
