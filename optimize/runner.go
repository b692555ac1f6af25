// Package optimize holds the method-level optimization passes and the
// runner that applies them one method at a time.
package optimize

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/visitor"
)

var log = commonlog.GetLogger("kiln.optimize")

// Pass rewrites the code of a single method. It reports whether the code
// changed. A pass may leave code in any state when it fails; the runner
// restores it.
type Pass interface {
	Name() string
	OptimizeMethod(cf *classfile.ClassFile, method *classfile.MethodInfo, code *classfile.CodeAttribute) (bool, error)
}

// Stats counts what a pass did to the methods it visited.
type Stats struct {
	Methods int
	Changed int
	Failed  int
}

func (s *Stats) Add(o Stats) {
	s.Methods += o.Methods
	s.Changed += o.Changed
	s.Failed += o.Failed
}

func (s Stats) String() string {
	return fmt.Sprintf("%d methods, %d changed, %d failed", s.Methods, s.Changed, s.Failed)
}

// Runner applies passes to every method with code. A method whose pass
// fails, by returning an error or by panicking, keeps the code it had
// before the pass. Invariant violations are not recovered.
type Runner struct {
	Passes []Pass
}

func NewRunner(passes ...Pass) *Runner {
	return &Runner{Passes: passes}
}

// RunClass applies every pass, in order, to each method of cf.
func (r *Runner) RunClass(cf *classfile.ClassFile) map[string]Stats {
	stats := make(map[string]Stats, len(r.Passes))
	for _, p := range r.Passes {
		stats[p.Name()] = Run(p, cf)
	}
	return stats
}

// Run applies one pass to each method of cf.
func Run(p Pass, cf *classfile.ClassFile) Stats {
	var stats Stats
	visitor.MethodsAccept(cf, visitor.MemberFunc{Method: func(cf *classfile.ClassFile, m *classfile.MethodInfo) {
		code := m.GetCodeAttribute(cf.ConstantPool)
		if code == nil {
			return
		}
		stats.Methods++
		changed, err := RunMethod(p, cf, m, code)
		switch {
		case err != nil:
			stats.Failed++
		case changed:
			stats.Changed++
		}
	}})
	return stats
}

// RunMethod applies p to one method. On failure the error is logged and
// code is restored.
func RunMethod(p Pass, cf *classfile.ClassFile, m *classfile.MethodInfo, code *classfile.CodeAttribute) (changed bool, err error) {
	saved := code.Clone()
	defer func() {
		if r := recover(); r != nil {
			var invariant *classfile.InvariantError
			if e, ok := r.(error); ok && errors.As(e, &invariant) {
				panic(r)
			}
			err = fmt.Errorf("%s: unexpected failure: %v", p.Name(), r)
		}
		if err != nil {
			*code = *saved
			changed = false
			log.Errorf("%s: not optimizing %s: %s", p.Name(), cf.MethodName(m), err)
		}
	}()
	changed, err = p.OptimizeMethod(cf, m, code)
	if changed {
		log.Debugf("%s: optimized %s", p.Name(), cf.MethodName(m))
	}
	return changed, err
}
