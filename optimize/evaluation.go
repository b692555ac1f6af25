package optimize

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/config"
	"github.com/dhamidi/kiln/editor"
	"github.com/dhamidi/kiln/evaluation"
	"github.com/dhamidi/kiln/instruction"
)

// simpleResults maps the operand-free instructions whose result can be
// replaced by a constant or a load to the type they push.
var simpleResults = map[instruction.Opcode]evaluation.Type{}

func init() {
	add := func(t evaluation.Type, ops ...instruction.Opcode) {
		for _, op := range ops {
			simpleResults[op] = t
		}
	}
	add(evaluation.TypeInt,
		instruction.OpIaload, instruction.OpBaload, instruction.OpCaload, instruction.OpSaload,
		instruction.OpIadd, instruction.OpIsub, instruction.OpImul, instruction.OpIdiv, instruction.OpIrem,
		instruction.OpIneg, instruction.OpIshl, instruction.OpIshr, instruction.OpIushr,
		instruction.OpIand, instruction.OpIor, instruction.OpIxor,
		instruction.OpL2i, instruction.OpF2i, instruction.OpD2i,
		instruction.OpI2b, instruction.OpI2c, instruction.OpI2s)
	add(evaluation.TypeLong,
		instruction.OpLaload, instruction.OpLadd, instruction.OpLsub, instruction.OpLmul,
		instruction.OpLdiv, instruction.OpLrem, instruction.OpLneg,
		instruction.OpLshl, instruction.OpLshr, instruction.OpLushr,
		instruction.OpLand, instruction.OpLor, instruction.OpLxor,
		instruction.OpI2l, instruction.OpF2l, instruction.OpD2l)
	add(evaluation.TypeFloat,
		instruction.OpFaload, instruction.OpFadd, instruction.OpFsub, instruction.OpFmul,
		instruction.OpFdiv, instruction.OpFrem, instruction.OpFneg,
		instruction.OpI2f, instruction.OpL2f, instruction.OpD2f)
	add(evaluation.TypeDouble,
		instruction.OpDaload, instruction.OpDadd, instruction.OpDsub, instruction.OpDmul,
		instruction.OpDdiv, instruction.OpDrem, instruction.OpDneg,
		instruction.OpI2d, instruction.OpL2d, instruction.OpF2d)
	add(evaluation.TypeReference, instruction.OpAaload)
}

// EvaluationSimplifier replaces instructions with cheaper ones where the
// facts of an analysis show their outcome: known values become constant
// pushes or loads of a local holding the same value, and branches with a
// single possible target become jumps or disappear.
type EvaluationSimplifier struct {
	Analyzer    evaluation.Analyzer
	SideEffects *SideEffectChecker
	editor      *editor.Editor
}

func NewEvaluationSimplifier(analyzer evaluation.Analyzer, sideEffects *SideEffectChecker) *EvaluationSimplifier {
	if sideEffects == nil {
		sideEffects = &SideEffectChecker{IncludeReturns: true}
	}
	return &EvaluationSimplifier{Analyzer: analyzer, SideEffects: sideEffects, editor: editor.NewEditor()}
}

func (s *EvaluationSimplifier) Name() string { return config.PassEvaluation }

func (s *EvaluationSimplifier) OptimizeMethod(cf *classfile.ClassFile, method *classfile.MethodInfo, code *classfile.CodeAttribute) (bool, error) {
	facts, err := s.Analyzer.Analyze(cf, method, code)
	if errors.Is(err, evaluation.ErrUnsupported) {
		log.Debugf("evaluation: skipping %s: %s", cf.MethodName(method), err)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	located, err := instruction.DecodeAll(code.Code)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", cf.MethodName(method), err)
	}

	s.editor.Reset(len(code.Code))
	sm := &simplification{
		cf:     cf,
		facts:  facts,
		editor: s.editor,
		checks: s.SideEffects,
		insns:  make(map[int]instruction.Instruction, len(located)),
	}
	for _, l := range located {
		sm.insns[l.Offset] = l.Instruction
	}
	for _, l := range located {
		if facts.IsTraced(l.Offset) {
			sm.visit(l.Offset, l.Instruction)
		}
	}
	if !s.editor.Modified() {
		return false, nil
	}
	if err := s.editor.Apply(cf, method, code); err != nil {
		return false, err
	}
	return true, nil
}

// simplification queues the edits for one method body.
type simplification struct {
	cf     *classfile.ClassFile
	facts  evaluation.Facts
	editor *editor.Editor
	checks *SideEffectChecker
	insns  map[int]instruction.Instruction
	pool   *classfile.ConstantPoolEditor
}

func (s *simplification) visit(offset int, insn instruction.Instruction) {
	switch i := insn.(type) {
	case *instruction.Simple:
		if t, ok := simpleResults[i.Op]; ok {
			s.replacePush(offset, i, t, s.facts.LocalCount(), t != evaluation.TypeReference)
		}
	case *instruction.Variable:
		switch {
		case i.IsLoad():
			s.replacePush(offset, i, evaluation.Type(i.ValueType()), i.Index, true)
		case i.BaseOp() == instruction.OpAstore:
			s.deleteSubroutineStore(offset)
		case i.Op == instruction.OpRet:
			s.replaceBranch(offset, i)
		}
	case *instruction.ConstantRef:
		switch i.Op {
		case instruction.OpGetstatic, instruction.OpGetfield:
			s.replaceAnyPush(offset, i)
		case instruction.OpInvokevirtual, instruction.OpInvokespecial, instruction.OpInvokestatic, instruction.OpInvokeinterface:
			if instruction.PushCount(i, s.cf.ConstantPool) > 0 && !s.checks.HasSideEffects(s.cf, i) {
				s.replaceAnyPush(offset, i)
			}
		case instruction.OpCheckcast:
			s.replacePush(offset, i, evaluation.TypeReference, 0, false)
		}
	case *instruction.Branch:
		switch i.Op {
		case instruction.OpGoto, instruction.OpGotoW:
		case instruction.OpJsr, instruction.OpJsrW:
			s.replaceJsr(offset, i)
		default:
			s.replaceBranch(offset, i)
		}
	case *instruction.TableSwitch, *instruction.LookupSwitch:
		s.replaceBranch(offset, insn)
		if !s.editor.IsModified(offset) {
			s.redirectSwitch(offset, insn)
		}
	}
}

func (s *simplification) replaceAnyPush(offset int, insn instruction.Instruction) {
	v := s.facts.StackAfter(offset, 0)
	if v.Type == evaluation.TypeTop {
		return
	}
	s.replacePush(offset, insn, v.Type, s.facts.LocalCount(), v.Type != evaluation.TypeReference)
}

// replacePush replaces an instruction pushing a value of type t by a
// constant push when the value is known, or else by a load of the lowest
// local below slotLimit that holds the same value.
func (s *simplification) replacePush(offset int, insn instruction.Instruction, t evaluation.Type, slotLimit int, loads bool) {
	v := s.facts.StackAfter(offset, 0)
	if v.Type != t {
		return
	}
	if v.Known {
		s.replace(offset, insn, s.constantPush(v))
		return
	}
	if !loads || v.ID == 0 {
		return
	}
	for slot := 0; slot < slotLimit; slot++ {
		if s.facts.LocalAfter(offset, slot).Same(v) {
			s.replace(offset, insn, instruction.Load(byte(t), slot))
			return
		}
	}
}

func (s *simplification) constantPool() *classfile.ConstantPoolEditor {
	if s.pool == nil {
		s.pool = classfile.NewConstantPoolEditor(s.cf)
	}
	return s.pool
}

// constantPush returns the cheapest instruction pushing the known value v.
func (s *simplification) constantPush(v evaluation.Value) instruction.Instruction {
	switch v.Type {
	case evaluation.TypeInt:
		if v.Int >= math.MinInt16 && v.Int <= math.MaxInt16 {
			return instruction.PushInt(v.Int)
		}
		return (&instruction.ConstantRef{Op: instruction.OpLdcW, Index: s.constantPool().AddInteger(v.Int)}).Shrink()
	case evaluation.TypeLong:
		if v.Long == 0 || v.Long == 1 {
			return (&instruction.Simple{Op: instruction.OpLconst0, Constant: int32(v.Long)}).Shrink()
		}
		return &instruction.ConstantRef{Op: instruction.OpLdc2W, Index: s.constantPool().AddLong(v.Long)}
	case evaluation.TypeFloat:
		for n := range 3 {
			if math.Float32bits(v.Float) == math.Float32bits(float32(n)) {
				return (&instruction.Simple{Op: instruction.OpFconst0, Constant: int32(n)}).Shrink()
			}
		}
		return (&instruction.ConstantRef{Op: instruction.OpLdcW, Index: s.constantPool().AddFloat(v.Float)}).Shrink()
	case evaluation.TypeDouble:
		for n := range 2 {
			if math.Float64bits(v.Double) == math.Float64bits(float64(n)) {
				return (&instruction.Simple{Op: instruction.OpDconst0, Constant: int32(n)}).Shrink()
			}
		}
		return &instruction.ConstantRef{Op: instruction.OpLdc2W, Index: s.constantPool().AddDouble(v.Double)}
	}
	return &instruction.Simple{Op: instruction.OpAconstNull}
}

// replace queues repl in place of insn, popping the operands repl does
// not consume. Replacing an instruction by an equal one queues nothing.
func (s *simplification) replace(offset int, insn, repl instruction.Instruction) {
	if instruction.Equal(insn, repl) {
		return
	}
	cp := s.cf.ConstantPool
	s.editor.InsertBeforeInstruction(offset, s.pops(offset, instruction.PopCount(insn, cp)-instruction.PopCount(repl, cp))...)
	s.editor.ReplaceInstruction(offset, repl)
}

// pops returns the instructions discarding the top n slots of the stack
// before offset, a long or double with a single pop2.
func (s *simplification) pops(offset, n int) []instruction.Instruction {
	var out []instruction.Instruction
	for depth := 0; depth < n; {
		v := s.facts.StackBefore(offset, depth)
		if v.IsCategory2() || (depth+1 < n && !s.facts.StackBefore(offset, depth+1).IsCategory2()) {
			out = append(out, &instruction.Simple{Op: instruction.OpPop2})
			depth += 2
			continue
		}
		out = append(out, &instruction.Simple{Op: instruction.OpPop})
		depth++
	}
	return out
}

// replaceBranch turns a branch, switch or ret that can only continue at
// one offset into a goto, or removes it when that offset follows it.
func (s *simplification) replaceBranch(offset int, insn instruction.Instruction) {
	targets := s.facts.BranchTargets(offset)
	if len(targets) != 1 {
		return
	}
	op := insn.Opcode()
	if targets[0] == offset+insn.Length(offset) {
		if instruction.IsConditionalBranch(op) || instruction.IsSwitch(op) {
			s.editor.InsertBeforeInstruction(offset, s.pops(offset, instruction.PopCount(insn, s.cf.ConstantPool))...)
			s.editor.DeleteInstruction(offset)
		}
		return
	}
	s.replace(offset, insn, (&instruction.Branch{Op: instruction.OpGotoW, Offset: int32(targets[0] - offset)}).Shrink())
}

// replaceJsr turns a jsr to a subroutine that never returns, or that only
// this jsr calls, into a goto.
func (s *simplification) replaceJsr(offset int, jsr *instruction.Branch) {
	start := offset + int(jsr.Offset)
	if !s.facts.IsSubroutineReturning(start) || s.facts.BranchOriginCount(start) == 1 {
		s.replaceBranch(offset, jsr)
		return
	}
	next := offset + jsr.Length(offset)
	if after, ok := s.insns[next]; ok && !s.facts.IsTraced(next) {
		// Keep the unreachable code after the jsr well formed.
		loop := &instruction.Branch{Op: instruction.OpGoto}
		if !instruction.Equal(after, loop) && !s.editor.IsModified(next) {
			s.editor.ReplaceInstruction(next, loop)
		}
	}
}

// deleteSubroutineStore drops the astore of the return address at the
// start of a subroutine whose jsr instructions become gotos.
func (s *simplification) deleteSubroutineStore(offset int) {
	if s.facts.IsSubroutineStart(offset) &&
		(!s.facts.IsSubroutineReturning(offset) || s.facts.BranchOriginCount(offset) == 1) {
		s.editor.DeleteInstruction(offset)
	}
}

// redirectSwitch points the jump table entries that cannot be taken at
// the last reachable target, keeping the shape of the table.
func (s *simplification) redirectSwitch(offset int, insn instruction.Instruction) {
	targets := s.facts.BranchTargets(offset)
	if len(targets) == 0 {
		return
	}
	fallback := int32(targets[len(targets)-1] - offset)
	reachable := func(rel int32) bool { return slices.Contains(targets, offset+int(rel)) }

	repl := instruction.Clone(insn)
	var def *int32
	var offsets []int32
	switch sw := repl.(type) {
	case *instruction.TableSwitch:
		def, offsets = &sw.Default, sw.Offsets
	case *instruction.LookupSwitch:
		def, offsets = &sw.Default, sw.Offsets
	}
	changed := false
	for i, rel := range offsets {
		if !reachable(rel) {
			offsets[i] = fallback
			changed = true
		}
	}
	if !reachable(*def) {
		*def = fallback
		changed = true
	}
	if changed {
		s.editor.ReplaceInstruction(offset, repl)
	}
}
