package program

import (
	"fmt"
	"strings"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
	"github.com/dhamidi/kiln/visitor"
)

// MethodKey names a method by its declaring class, name and descriptor.
type MethodKey struct {
	Class      string
	Name       string
	Descriptor string
}

func KeyOf(cf *classfile.ClassFile, m *classfile.MethodInfo) MethodKey {
	return MethodKey{Class: cf.ClassName(), Name: m.Name(cf.ConstantPool), Descriptor: m.Descriptor(cf.ConstantPool)}
}

func (k MethodKey) String() string {
	return k.Class + "." + k.Name + k.Descriptor
}

// ParseMethodKey is the inverse of MethodKey.String.
func ParseMethodKey(s string) (MethodKey, error) {
	paren := strings.IndexByte(s, '(')
	if paren < 0 {
		return MethodKey{}, fmt.Errorf("parse method key %q: missing descriptor", s)
	}
	dot := strings.LastIndexByte(s[:paren], '.')
	if dot <= 0 || dot == paren-1 {
		return MethodKey{}, fmt.Errorf("parse method key %q: missing class or name", s)
	}
	return MethodKey{Class: s[:dot], Name: s[dot+1 : paren], Descriptor: s[paren:]}, nil
}

// Method is a resolved method together with its declaring class.
type Method struct {
	Class  *Class
	Method *classfile.MethodInfo
}

func (m Method) Key() MethodKey { return KeyOf(m.Class.File, m.Method) }

// ResolveMethod looks a method up in class, its superclasses and then its
// interfaces, the way the virtual machine links a method reference.
func (p *Pool) ResolveMethod(class, name, desc string) (Method, bool) {
	seen := make(map[string]bool)
	for c := p.Class(class); c != nil; c = p.Class(c.File.SuperClassName()) {
		if seen[c.Name()] {
			break
		}
		seen[c.Name()] = true
		if m := c.File.GetMethod(name, desc); m != nil {
			return Method{Class: c, Method: m}, true
		}
		if c.File.SuperClass == 0 {
			break
		}
	}
	return p.resolveInterfaceMethod(class, name, desc, make(map[string]bool))
}

func (p *Pool) resolveInterfaceMethod(class, name, desc string, seen map[string]bool) (Method, bool) {
	if seen[class] {
		return Method{}, false
	}
	seen[class] = true
	c := p.Class(class)
	if c == nil {
		return Method{}, false
	}
	if c.File.IsInterface() {
		if m := c.File.GetMethod(name, desc); m != nil && !m.IsStatic() && !m.IsPrivate() {
			return Method{Class: c, Method: m}, true
		}
	}
	for _, iface := range c.File.InterfaceNames() {
		if m, ok := p.resolveInterfaceMethod(iface, name, desc, seen); ok {
			return m, true
		}
	}
	if c.File.SuperClass != 0 {
		return p.resolveInterfaceMethod(c.File.SuperClassName(), name, desc, seen)
	}
	return Method{}, false
}

// ResolveReference resolves the method reference at index of cf's
// constant pool.
func (p *Pool) ResolveReference(cf *classfile.ClassFile, index uint16) (Method, bool) {
	class, name, desc, ok := cf.ConstantPool.GetRef(index)
	if !ok {
		return Method{}, false
	}
	m, ok := p.ResolveMethod(class, name, desc)
	if !ok {
		log.Debugf("unresolved method %s.%s%s in %s", class, name, desc, cf.ClassName())
	}
	return m, ok
}

// IsSubclass reports whether class is super or extends it, as far as the
// pool knows.
func (p *Pool) IsSubclass(class, super string) bool {
	seen := make(map[string]bool)
	for name := class; name != "" && !seen[name]; {
		if name == super {
			return true
		}
		seen[name] = true
		c := p.Class(name)
		if c == nil || c.File.SuperClass == 0 {
			return false
		}
		name = c.File.SuperClassName()
	}
	return false
}

// ResolveField looks a field up in class and its superclasses.
func (p *Pool) ResolveField(class, name, desc string) (*Class, *classfile.FieldInfo, bool) {
	seen := make(map[string]bool)
	for c := p.Class(class); c != nil && !seen[c.Name()]; c = p.Class(c.File.SuperClassName()) {
		seen[c.Name()] = true
		for i := range c.File.Fields {
			f := &c.File.Fields[i]
			if f.Name(c.File.ConstantPool) == name && f.Descriptor(c.File.ConstantPool) == desc {
				return c, f, true
			}
		}
		if c.File.SuperClass == 0 {
			break
		}
	}
	return nil, nil, false
}

// CallSite is an invocation instruction in the body of a method.
type CallSite struct {
	Method *classfile.MethodInfo
	Offset int
}

// Links records which method each call site invokes. Passes that merge or
// rename methods keep it current, so that call sites stay attached to
// their method once descriptors no longer tell them apart.
type Links map[CallSite]Method

// Link resolves every invocation in the program classes of pool.
func Link(pool *Pool) Links {
	links := make(Links)
	for _, c := range pool.ProgramClasses() {
		visitor.MethodsAccept(c.File, visitor.MemberFunc{Method: func(cf *classfile.ClassFile, m *classfile.MethodInfo) {
			ctx, ok := visitor.CodeContextOf(cf, m)
			if !ok {
				return
			}
			err := visitor.InstructionsAccept(ctx, visitor.InstructionFunc(func(ctx visitor.CodeContext, offset int, insn instruction.Instruction) {
				ref, ok := insn.(*instruction.ConstantRef)
				if !ok || !instruction.IsInvoke(ref.Op) || ref.Op == instruction.OpInvokedynamic {
					return
				}
				if target, ok := pool.ResolveReference(cf, ref.Index); ok {
					links[CallSite{Method: m, Offset: offset}] = target
				}
			}))
			if err != nil {
				log.Warningf("link %s: %s", cf.MethodName(m), err)
			}
		}})
	}
	log.Debugf("linked %d call sites", len(links))
	return links
}
