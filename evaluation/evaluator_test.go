package evaluation

import (
	"errors"
	"slices"
	"testing"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
)

func encode(insns ...instruction.Instruction) []byte {
	var code []byte
	for _, insn := range insns {
		offset := len(code)
		code = append(code, make([]byte, insn.Length(offset))...)
		insn.Write(code, offset)
	}
	return code
}

func analyze(t *testing.T, desc string, maxLocals uint16, code []byte) (Facts, error) {
	t.Helper()
	b := classfile.NewBuilder("a/Eval", "java/lang/Object")
	b.AddMethod(classfile.AccStatic, "f", desc, &classfile.CodeAttribute{MaxStack: 4, MaxLocals: maxLocals, Code: code})
	cf := b.Build()
	m := &cf.Methods[0]
	return NewEvaluator().Analyze(cf, m, m.GetCodeAttribute(cf.ConstantPool))
}

func mustAnalyze(t *testing.T, desc string, maxLocals uint16, code []byte) Facts {
	t.Helper()
	facts, err := analyze(t, desc, maxLocals, code)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	return facts
}

var (
	iconst0 = instruction.PushInt(0)
	iconst1 = instruction.PushInt(1)
	ireturn = &instruction.Simple{Op: instruction.OpIreturn}
)

func TestEvaluatorFoldsConstants(t *testing.T) {
	// iconst_2; iconst_3; imul; bipush 10; iadd; ireturn
	facts := mustAnalyze(t, "()I", 0, encode(
		instruction.PushInt(2),
		instruction.PushInt(3),
		&instruction.Simple{Op: instruction.OpImul},
		instruction.PushInt(10),
		&instruction.Simple{Op: instruction.OpIadd},
		ireturn,
	))

	if got := facts.StackAfter(2, 0); !got.SameConstant(IntValue(6)) {
		t.Errorf("after imul = %v, want 6", got)
	}
	if got := facts.StackAfter(5, 0); !got.SameConstant(IntValue(16)) {
		t.Errorf("after iadd = %v, want 16", got)
	}
	if got := facts.StackSizeBefore(6); got != 1 {
		t.Errorf("StackSizeBefore(6) = %d, want 1", got)
	}
}

func TestEvaluatorArithmetic(t *testing.T) {
	tests := []struct {
		name  string
		insns []instruction.Instruction
		want  Value
	}{
		{"division by zero", []instruction.Instruction{iconst1, iconst0, &instruction.Simple{Op: instruction.OpIdiv}}, Unknown(TypeInt)},
		{"overflow wraps", []instruction.Instruction{iconst1, instruction.PushInt(31), &instruction.Simple{Op: instruction.OpIshl}}, IntValue(-1 << 31)},
		{"shift distance masked", []instruction.Instruction{iconst1, instruction.PushInt(33), &instruction.Simple{Op: instruction.OpIshl}}, IntValue(2)},
		{"i2b", []instruction.Instruction{instruction.PushInt(200), &instruction.Simple{Op: instruction.OpI2b}}, IntValue(-56)},
		{"long compare", []instruction.Instruction{&instruction.Simple{Op: instruction.OpLconst1, Constant: 1}, &instruction.Simple{Op: instruction.OpLconst0}, &instruction.Simple{Op: instruction.OpLcmp}}, IntValue(1)},
		{"fcmpg NaN", []instruction.Instruction{
			&instruction.Simple{Op: instruction.OpFconst0}, &instruction.Simple{Op: instruction.OpFconst0}, &instruction.Simple{Op: instruction.OpFdiv},
			&instruction.Simple{Op: instruction.OpFconst1, Constant: 1}, &instruction.Simple{Op: instruction.OpFcmpg},
		}, IntValue(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insns := append(slices.Clone(tt.insns), &instruction.Simple{Op: instruction.OpPop}, &instruction.Simple{Op: instruction.OpReturn})
			code := encode(insns...)
			facts := mustAnalyze(t, "()V", 0, code)

			last := encode(tt.insns[:len(tt.insns)-1]...)
			got := facts.StackAfter(len(last), 0)
			if got.Type != tt.want.Type || got.Known != tt.want.Known || (got.Known && !got.SameConstant(tt.want)) {
				t.Errorf("result = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluatorBranchTargets(t *testing.T) {
	// 0: iload_0 or iconst_0; 1: ifeq 6; 4: iconst_1; 5: ireturn; 6: iconst_0; 7: ireturn
	body := func(first instruction.Instruction) []byte {
		return encode(first, &instruction.Branch{Op: instruction.OpIfeq, Offset: 5}, iconst1, ireturn, iconst0, ireturn)
	}

	t.Run("known condition", func(t *testing.T) {
		facts := mustAnalyze(t, "(I)I", 1, body(iconst0))
		if got := facts.BranchTargets(1); !slices.Equal(got, []int{6}) {
			t.Errorf("BranchTargets(1) = %v, want [6]", got)
		}
		if facts.IsTraced(4) {
			t.Error("fall-through is traced")
		}
		if !facts.IsTraced(6) {
			t.Error("branch target is not traced")
		}
		if got := facts.BranchOriginCount(6); got != 1 {
			t.Errorf("BranchOriginCount(6) = %d, want 1", got)
		}
	})

	t.Run("unknown condition", func(t *testing.T) {
		facts := mustAnalyze(t, "(I)I", 1, body(&instruction.Variable{Op: instruction.OpIload0}))
		if got := facts.BranchTargets(1); !slices.Equal(got, []int{4, 6}) {
			t.Errorf("BranchTargets(1) = %v, want [4 6]", got)
		}
		if got := facts.BranchTargets(0); got != nil {
			t.Errorf("BranchTargets(0) = %v, want nil", got)
		}
	})

	t.Run("switch on a constant", func(t *testing.T) {
		// 0: iconst_1; 1: tableswitch 0..1 -> 24, 26, default 28; then three returns
		sw := &instruction.TableSwitch{Default: 27, Low: 0, High: 1, Offsets: []int32{23, 25}}
		code := encode(iconst1, sw, iconst0, ireturn, iconst1, ireturn, iconst0, ireturn)
		facts := mustAnalyze(t, "()I", 0, code)
		if got := facts.BranchTargets(1); !slices.Equal(got, []int{26}) {
			t.Errorf("BranchTargets(1) = %v, want [26]", got)
		}
		if facts.IsTraced(24) || facts.IsTraced(28) {
			t.Error("unselected cases are traced")
		}
	})
}

func TestEvaluatorLoop(t *testing.T) {
	// 0: iconst_0; 1: istore_1; 2: iload_1; 3: iload_0; 4: if_icmpge 13
	// 7: iinc 1 1; 10: goto 2; 13: iload_1; 14: ireturn
	code := encode(
		iconst0,
		&instruction.Variable{Op: instruction.OpIstore1, Index: 1},
		&instruction.Variable{Op: instruction.OpIload1, Index: 1},
		&instruction.Variable{Op: instruction.OpIload0},
		&instruction.Branch{Op: instruction.OpIfIcmpge, Offset: 9},
		&instruction.Variable{Op: instruction.OpIinc, Index: 1, Constant: 1},
		&instruction.Branch{Op: instruction.OpGoto, Offset: -8},
		&instruction.Variable{Op: instruction.OpIload1, Index: 1},
		ireturn,
	)
	facts := mustAnalyze(t, "(I)I", 2, code)

	if got := facts.LocalBefore(2, 1); got.Known || got.Type != TypeInt {
		t.Errorf("loop counter = %v, want an unknown int", got)
	}
	if got := facts.LocalBefore(2, 0); got.ID != -1 {
		t.Errorf("parameter identity = %d, want -1", got.ID)
	}
	if got := facts.BranchTargets(4); !slices.Equal(got, []int{7, 13}) {
		t.Errorf("BranchTargets(4) = %v, want [7 13]", got)
	}
	if got := facts.BranchOriginCount(2); got != 1 {
		t.Errorf("BranchOriginCount(2) = %d, want 1", got)
	}
	if got := facts.LocalCount(); got != 2 {
		t.Errorf("LocalCount() = %d, want 2", got)
	}
}

func TestEvaluatorLocalIdentity(t *testing.T) {
	// iload_0; istore_1; iload_1; ireturn
	facts := mustAnalyze(t, "(I)I", 2, encode(
		&instruction.Variable{Op: instruction.OpIload0},
		&instruction.Variable{Op: instruction.OpIstore1, Index: 1},
		&instruction.Variable{Op: instruction.OpIload1, Index: 1},
		ireturn,
	))
	loaded := facts.StackAfter(2, 0)
	if !loaded.Same(facts.LocalAfter(2, 0)) {
		t.Errorf("loaded %v is not the parameter %v", loaded, facts.LocalAfter(2, 0))
	}
	if !loaded.Same(facts.LocalAfter(2, 1)) {
		t.Errorf("loaded %v is not local 1 %v", loaded, facts.LocalAfter(2, 1))
	}
}

func TestEvaluatorCategory2(t *testing.T) {
	// lconst_1; l2i; ireturn
	facts := mustAnalyze(t, "()I", 0, encode(
		&instruction.Simple{Op: instruction.OpLconst1, Constant: 1},
		&instruction.Simple{Op: instruction.OpL2i},
		ireturn,
	))
	if got := facts.StackAfter(0, 0); !got.SameConstant(LongValue(1)) {
		t.Errorf("top = %v, want 1L", got)
	}
	if got := facts.StackAfter(0, 1); !got.IsTop() {
		t.Errorf("second slot = %v, want top", got)
	}
	if got := facts.StackAfter(1, 0); !got.SameConstant(IntValue(1)) {
		t.Errorf("after l2i = %v, want 1", got)
	}
}

func TestEvaluatorErrors(t *testing.T) {
	t.Run("subroutine", func(t *testing.T) {
		// jsr 4; return; astore_0; ret 0
		_, err := analyze(t, "()V", 1, []byte{0xA8, 0x00, 0x04, 0xB1, 0x4B, 0xA9, 0x00})
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("Analyze() error = %v, want ErrUnsupported", err)
		}
	})

	t.Run("stack heights", func(t *testing.T) {
		// 0: iload_0; 1: ifeq 6; 4: iconst_1; 5: nop; 6: iconst_0; 7: ireturn
		_, err := analyze(t, "(I)I", 1, encode(
			&instruction.Variable{Op: instruction.OpIload0},
			&instruction.Branch{Op: instruction.OpIfeq, Offset: 5},
			iconst1,
			&instruction.Simple{Op: instruction.OpNop},
			iconst0,
			ireturn,
		))
		if err == nil {
			t.Error("Analyze() succeeded on inconsistent stack heights")
		}
	})

	t.Run("underflow", func(t *testing.T) {
		if _, err := analyze(t, "()I", 0, encode(ireturn)); err == nil {
			t.Error("Analyze() succeeded on an empty stack")
		}
	})
}

func TestEvaluatorExceptionHandler(t *testing.T) {
	// 0: iconst_1; 1: istore_0; 2: iconst_2; 3: istore_0; 4: return; 5: astore_1; 6: return
	b := classfile.NewBuilder("a/Eval", "java/lang/Object")
	code := &classfile.CodeAttribute{
		MaxStack:       1,
		MaxLocals:      2,
		Code:           []byte{0x04, 0x3B, 0x05, 0x3B, 0xB1, 0x4C, 0xB1},
		ExceptionTable: []classfile.ExceptionTableEntry{{StartPC: 0, EndPC: 4, HandlerPC: 5}},
	}
	b.AddMethod(classfile.AccStatic, "f", "()V", code)
	cf := b.Build()
	m := &cf.Methods[0]
	facts, err := NewEvaluator().Analyze(cf, m, m.GetCodeAttribute(cf.ConstantPool))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !facts.IsTraced(5) {
		t.Fatal("handler is not traced")
	}
	if got := facts.StackBefore(5, 0); got.Type != TypeReference || got.Known {
		t.Errorf("caught exception = %v", got)
	}
	if got := facts.LocalBefore(5, 0); got.Known {
		t.Errorf("local 0 in handler = %v, want unknown", got)
	}
}
