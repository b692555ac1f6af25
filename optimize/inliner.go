package optimize

import (
	"fmt"
	"slices"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/config"
	"github.com/dhamidi/kiln/editor"
	"github.com/dhamidi/kiln/instruction"
	"github.com/dhamidi/kiln/program"
)

// MethodInliner replaces calls of short or single-use methods by their
// bodies. Callees are looked up in Pool; only program classes are
// inlined.
type MethodInliner struct {
	Pool   *program.Pool
	Counts program.InvocationCounts
	Config *config.Configuration

	composer *editor.Composer
}

func NewMethodInliner(pool *program.Pool, counts program.InvocationCounts, cfg *config.Configuration) *MethodInliner {
	if cfg == nil {
		cfg = config.Default()
	}
	return &MethodInliner{Pool: pool, Counts: counts, Config: cfg, composer: editor.NewComposer()}
}

func (in *MethodInliner) Name() string { return config.PassInline }

// inlining is the state of rewriting one target method.
type inlining struct {
	in     *MethodInliner
	target *classfile.ClassFile
	method *classfile.MethodInfo
	pool   *classfile.ConstantPoolEditor
	sizes  *instruction.StackSizes

	estimatedLength int
	// stack holds the callees being copied, innermost last.
	stack          []program.MethodKey
	uninitialized  int
	variableOffset int
	inlinedAny     bool
	// widenings are applied once the composed code is accepted.
	widenings []widening
}

type widening struct {
	summary *calleeSummary
	callee  *classfile.ClassFile
}

// OptimizeMethod leaves the class untouched unless it returns true: the
// constants added for rejected code are dropped again and callee access is
// only widened for accepted code.
func (in *MethodInliner) OptimizeMethod(cf *classfile.ClassFile, method *classfile.MethodInfo, code *classfile.CodeAttribute) (changed bool, err error) {
	if in.Pool == nil {
		return false, nil
	}
	poolSize := len(cf.ConstantPool)
	defer func() {
		if !changed && len(cf.ConstantPool) > poolSize {
			clear(cf.ConstantPool[poolSize:])
			cf.ConstantPool = cf.ConstantPool[:poolSize]
		}
	}()
	sizes, err := instruction.ComputeStackSizes(cf.ConstantPool, code.Code, code.ExceptionTable)
	if err != nil {
		return false, fmt.Errorf("compute stack sizes of %s: %w", cf.MethodName(method), err)
	}
	s := &inlining{
		in:              in,
		target:          cf,
		method:          method,
		pool:            classfile.NewConstantPoolEditor(cf),
		sizes:           sizes,
		estimatedLength: len(code.Code),
	}
	if method.IsConstructor(cf.ConstantPool) {
		s.uninitialized = 1
	}

	in.composer.Reset()
	if err := s.copyCode(cf, code, false, nil); err != nil {
		return false, err
	}
	if !s.inlinedAny {
		return false, nil
	}

	limit := in.Config.ResultingCodeLengthLimit()
	composed, _, err := in.composer.Code()
	if err != nil {
		return false, fmt.Errorf("assemble %s: %w", cf.MethodName(method), err)
	}
	if len(composed) > limit {
		log.Infof("inline: %s would grow to %d bytes, over the limit of %d", cf.MethodName(method), len(composed), limit)
		return false, nil
	}
	if err := in.composer.Apply(cf, method, code); err != nil {
		return false, err
	}
	for _, w := range s.widenings {
		w.summary.widen(w.callee, cf)
	}
	return true, nil
}

// copyCode appends the body of code as one fragment. While inlining,
// locals are shifted by the current variable offset, returns jump to the
// end of the body and constants are copied through adder, if any.
func (s *inlining) copyCode(cf *classfile.ClassFile, code *classfile.CodeAttribute, inlining bool, adder *classfile.ConstantAdder) error {
	located, err := instruction.DecodeAll(code.Code)
	if err != nil {
		return fmt.Errorf("decode code of %s: %w", cf.ClassName(), err)
	}
	c := s.in.composer
	c.BeginCodeFragment(len(code.Code))
	for _, l := range located {
		if err := s.copyInstruction(cf, code, l.Offset, l.Instruction, inlining, adder); err != nil {
			return err
		}
	}
	for _, e := range code.ExceptionTable {
		if adder != nil && e.CatchType != 0 {
			if e.CatchType, err = adder.Add(e.CatchType); err != nil {
				return fmt.Errorf("copy catch type: %w", err)
			}
		}
		c.AppendException(e)
	}
	c.AppendLabel(len(code.Code))
	c.EndCodeFragment()
	return nil
}

func (s *inlining) copyInstruction(cf *classfile.ClassFile, code *classfile.CodeAttribute, offset int, insn instruction.Instruction, inlining bool, adder *classfile.ConstantAdder) error {
	c := s.in.composer
	switch i := insn.(type) {
	case *instruction.Simple:
		if inlining && instruction.IsReturn(i.Op) {
			if end := len(code.Code); offset < end-1 {
				c.AppendInstruction(offset, &instruction.Branch{Op: instruction.OpGotoW, Offset: int32(end - offset)})
			} else {
				c.AppendLabel(offset)
			}
			return nil
		}
	case *instruction.Variable:
		if inlining {
			v := instruction.Clone(i).(*instruction.Variable)
			v.Index += s.variableOffset
			insn = v
		}
	case *instruction.ConstantRef:
		switch i.Op {
		case instruction.OpNew:
			s.uninitialized++
		case instruction.OpInvokevirtual, instruction.OpInvokespecial, instruction.OpInvokestatic, instruction.OpInvokeinterface:
			c.AppendLabel(offset)
			emptyStack := !inlining && s.sizes.Reached(offset) && s.sizes.Before[offset] == 0
			s.variableOffset += int(code.MaxLocals)
			inlined, err := s.inline(cf, i, emptyStack)
			s.variableOffset -= int(code.MaxLocals)
			if err != nil {
				return err
			}
			if inlined {
				return nil
			}
			if _, name, _, ok := cf.ConstantPool.GetRef(i.Index); ok && name == classfile.MethodNameInit {
				s.uninitialized--
			}
		}
		if adder != nil {
			r := instruction.Clone(i).(*instruction.ConstantRef)
			index, err := adder.Add(i.Index)
			if err != nil {
				return fmt.Errorf("copy constant #%d of %s: %w", i.Index, cf.ClassName(), err)
			}
			r.Index = index
			insn = r
		}
	}
	c.AppendInstruction(offset, insn)
	return nil
}

// inline splices the method called by ref into the composed code if it
// passes every check. caller is the class holding the call.
func (s *inlining) inline(caller *classfile.ClassFile, ref *instruction.ConstantRef, emptyStack bool) (bool, error) {
	if _, ok := caller.ConstantPool.Get(ref.Index).(*classfile.ConstantMethodrefInfo); !ok {
		return false, nil
	}
	target, ok := s.in.Pool.ResolveReference(caller, ref.Index)
	if !ok || target.Class.Library {
		return false, nil
	}
	callee, calleeClass := target.Method, target.Class.File
	code := callee.GetCodeAttribute(calleeClass.ConstantPool)
	if code == nil {
		return false, nil
	}
	key := target.Key()
	summary := summarize(s.in.Pool, calleeClass, code)
	if !s.eligible(target, summary, emptyStack) {
		return false, nil
	}

	cfg := s.in.Config
	if cfg.InlineSingleInvocationsOnly {
		if s.in.Counts.Count(key) != 1 {
			return false, nil
		}
	} else if len(code.Code) > cfg.MaxInlinedCodeLength {
		return false, nil
	}
	if s.estimatedLength+len(code.Code) >= cfg.ResultingCodeLengthLimit() {
		return false, nil
	}

	log.Debugf("inline: %s into %s", key, s.target.MethodName(s.method))
	s.estimatedLength += len(code.Code)
	if cfg.AllowAccessModification && calleeClass != s.target {
		s.widenings = append(s.widenings, widening{summary: summary, callee: calleeClass})
	}

	var adder *classfile.ConstantAdder
	if calleeClass != s.target {
		adder = classfile.NewConstantAdder(s.pool, calleeClass.ConstantPool)
	}
	s.stack = append(s.stack, key)
	appendParameterStores(s.in.composer, callee.Descriptor(calleeClass.ConstantPool), callee.IsStatic(), s.variableOffset)
	err := s.copyCode(calleeClass, code, true, adder)
	s.stack = s.stack[:len(s.stack)-1]
	if err != nil {
		return false, err
	}
	s.inlinedAny = true
	return true, nil
}

func (s *inlining) eligible(target program.Method, summary *calleeSummary, emptyStack bool) bool {
	callee, calleeClass := target.Method, target.Class.File
	sameClass := calleeClass == s.target
	samePackage := calleeClass.PackageName() == s.target.PackageName()
	flags := callee.AccessFlags

	switch {
	case flags&(classfile.AccPrivate|classfile.AccStatic|classfile.AccFinal) == 0:
		return false
	case flags&(classfile.AccSynchronized|classfile.AccNative|classfile.AccInterface|classfile.AccAbstract) != 0:
		return false
	case callee.IsConstructor(calleeClass.ConstantPool):
		return false
	case sameClass && callee == s.method:
		return false
	case slices.Contains(s.stack, target.Key()):
		return false
	case !versionAtLeast(s.target, calleeClass):
		return false
	case summary.invokesSpecial && !sameClass:
		return false
	case summary.branchesBackward && s.uninitialized > 0:
		return false
	case !s.in.Config.AllowAccessModification &&
		((summary.private && !sameClass) || (summary.packagePrivate && !samePackage)):
		return false
	case summary.protected && !sameClass:
		return false
	case summary.catches && !emptyStack:
		return false
	case !sameClass && calleeClass.HasStaticInitializer():
		return false
	case summary.bootstrap && !sameClass:
		return false
	}
	return true
}

// versionAtLeast reports whether a's class file version is at least b's,
// so code from b is valid in a.
func versionAtLeast(a, b *classfile.ClassFile) bool {
	if a.MajorVersion != b.MajorVersion {
		return a.MajorVersion > b.MajorVersion
	}
	return a.MinorVersion >= b.MinorVersion
}

// calleeSummary describes what the code of a callee does that limits the
// places it can be copied to.
type calleeSummary struct {
	invokesSpecial   bool
	branchesBackward bool
	catches          bool
	bootstrap        bool
	private          bool
	packagePrivate   bool
	protected        bool
	// restricted holds the flags of the non-public classes and members
	// the code refers to.
	restricted []*classfile.AccessFlags
}

func summarize(pool *program.Pool, cf *classfile.ClassFile, code *classfile.CodeAttribute) *calleeSummary {
	s := &calleeSummary{catches: len(code.ExceptionTable) > 0}
	located, err := instruction.DecodeAll(code.Code)
	if err != nil {
		// Undecodable code is never copied.
		s.bootstrap, s.invokesSpecial = true, true
		return s
	}
	cp := cf.ConstantPool
	for _, l := range located {
		for _, t := range instruction.Targets(l.Instruction, l.Offset) {
			if t < l.Offset {
				s.branchesBackward = true
			}
		}
		ref, ok := l.Instruction.(*instruction.ConstantRef)
		if !ok {
			continue
		}
		switch ref.Op {
		case instruction.OpInvokespecial:
			if _, name, _, ok := cp.GetRef(ref.Index); ok && name != classfile.MethodNameInit {
				s.invokesSpecial = true
			}
		case instruction.OpInvokedynamic:
			s.bootstrap = true
			continue
		case instruction.OpLdc, instruction.OpLdcW, instruction.OpLdc2W:
			if _, ok := cp.Get(ref.Index).(*classfile.ConstantDynamicInfo); ok {
				s.bootstrap = true
			}
		}
		s.noteAccess(pool, cp, ref)
	}
	return s
}

// noteAccess records the access flags of the class, field or method ref
// refers to. References the pool cannot resolve are assumed public.
func (s *calleeSummary) noteAccess(pool *program.Pool, cp classfile.ConstantPool, ref *instruction.ConstantRef) {
	switch e := cp.Get(ref.Index).(type) {
	case *classfile.ConstantClassInfo:
		if c := pool.Class(cp.GetUtf8(e.NameIndex)); c != nil && !c.File.AccessFlags.IsPublic() {
			s.packagePrivate = true
			s.restricted = append(s.restricted, &c.File.AccessFlags)
		}
	case *classfile.ConstantFieldrefInfo:
		class, name, desc, _ := cp.GetRef(ref.Index)
		if _, f, ok := pool.ResolveField(class, name, desc); ok {
			s.noteMember(&f.AccessFlags)
		}
	case *classfile.ConstantMethodrefInfo, *classfile.ConstantInterfaceMethodrefInfo:
		class, name, desc, _ := cp.GetRef(ref.Index)
		if m, ok := pool.ResolveMethod(class, name, desc); ok {
			s.noteMember(&m.Method.AccessFlags)
		}
	}
}

func (s *calleeSummary) noteMember(flags *classfile.AccessFlags) {
	switch {
	case flags.IsPublic():
		return
	case flags.IsPrivate():
		s.private = true
	case flags.IsProtected():
		s.protected = true
	default:
		s.packagePrivate = true
	}
	s.restricted = append(s.restricted, flags)
}

// widen makes the private and package-private classes and members the
// callee refers to public, so its code stays valid in the target class.
func (s *calleeSummary) widen(callee, target *classfile.ClassFile) {
	if !s.private && (!s.packagePrivate || callee.PackageName() == target.PackageName()) {
		return
	}
	for _, flags := range s.restricted {
		if flags.IsProtected() {
			continue
		}
		*flags = (*flags &^ classfile.AccPrivate) | classfile.AccPublic
	}
}
