package optimize

import (
	"fmt"
	"strings"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/config"
	"github.com/dhamidi/kiln/editor"
	"github.com/dhamidi/kiln/instruction"
	"github.com/dhamidi/kiln/program"
)

// markerTypes are the extra parameter types tried, in order, to tell a
// constructor apart from another one with the same descriptor.
const markerTypes = "ISBCZ"

// DuplicateInitializerFixer gives constructors that share a descriptor
// with an earlier constructor of the same class a distinct descriptor, by
// appending an unused int-like parameter.
type DuplicateInitializerFixer struct{}

// FixClass returns the constructors whose descriptor it changed.
func (DuplicateInitializerFixer) FixClass(cf *classfile.ClassFile) ([]*classfile.MethodInfo, error) {
	cp := cf.ConstantPool
	taken := make(map[string]bool)
	var inits []*classfile.MethodInfo
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.Name(cp) == classfile.MethodNameInit {
			taken[m.Descriptor(cp)] = true
			inits = append(inits, m)
		}
	}

	var pool *classfile.ConstantPoolEditor
	seen := make(map[string]bool)
	var fixed []*classfile.MethodInfo
	for _, m := range inits {
		desc := m.Descriptor(cf.ConstantPool)
		if !seen[desc] {
			seen[desc] = true
			continue
		}
		newDesc := ""
		for _, marker := range markerTypes {
			candidate := withMarker(desc, byte(marker))
			if !taken[candidate] {
				newDesc = candidate
				break
			}
		}
		if newDesc == "" {
			return fixed, fmt.Errorf("no distinct descriptor left for %s", cf.MethodName(m))
		}
		if pool == nil {
			pool = classfile.NewConstantPoolEditor(cf)
		}
		log.Debugf("initializers: %s becomes %s", cf.MethodName(m), newDesc)
		m.DescriptorIndex = pool.AddUtf8(newDesc)
		taken[newDesc] = true
		seen[newDesc] = true
		if code := m.GetCodeAttribute(cf.ConstantPool); code != nil {
			if need := m.ParameterSize(cf.ConstantPool); int(code.MaxLocals) < need {
				code.MaxLocals = uint16(need)
			}
		}
		fixed = append(fixed, m)
	}
	return fixed, nil
}

// withMarker appends a parameter of type marker to a method descriptor.
func withMarker(desc string, marker byte) string {
	end := strings.IndexByte(desc, ')')
	return desc[:end] + string(marker) + desc[end:]
}

// DuplicateInitializerInvocationFixer updates constructor calls whose
// linked constructor got an extra parameter from DuplicateInitializerFixer:
// each gains a zero push for the extra argument and a reference to the
// new descriptor.
type DuplicateInitializerInvocationFixer struct {
	Links  program.Links
	editor *editor.Editor
}

func NewDuplicateInitializerInvocationFixer(links program.Links) *DuplicateInitializerInvocationFixer {
	return &DuplicateInitializerInvocationFixer{Links: links, editor: editor.NewEditor()}
}

func (f *DuplicateInitializerInvocationFixer) Name() string { return config.PassInitializers }

func (f *DuplicateInitializerInvocationFixer) OptimizeMethod(cf *classfile.ClassFile, method *classfile.MethodInfo, code *classfile.CodeAttribute) (bool, error) {
	located, err := instruction.DecodeAll(code.Code)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", cf.MethodName(method), err)
	}
	f.editor.Reset(len(code.Code))
	var pool *classfile.ConstantPoolEditor
	for _, l := range located {
		ref, ok := l.Instruction.(*instruction.ConstantRef)
		if !ok || ref.Op != instruction.OpInvokespecial {
			continue
		}
		target, ok := f.Links[program.CallSite{Method: method, Offset: l.Offset}]
		if !ok || target.Class.Library || target.Method.Name(target.Class.File.ConstantPool) != classfile.MethodNameInit {
			continue
		}
		class, _, desc, ok := cf.ConstantPool.GetRef(ref.Index)
		if !ok {
			continue
		}
		linked := target.Method.Descriptor(target.Class.File.ConstantPool)
		if linked == desc {
			continue
		}
		if pool == nil {
			pool = classfile.NewConstantPoolEditor(cf)
		}
		f.editor.InsertBeforeInstruction(l.Offset, &instruction.Simple{Op: instruction.OpIconst0})
		f.editor.ReplaceInstruction(l.Offset, &instruction.ConstantRef{
			Op:    instruction.OpInvokespecial,
			Index: pool.AddMethodref(class, classfile.MethodNameInit, linked),
		})
	}
	if !f.editor.Modified() {
		return false, nil
	}
	if err := f.editor.Apply(cf, method, code); err != nil {
		return false, err
	}
	return true, nil
}
