package shrink

import (
	"fmt"
	"strings"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/program"
)

// Result counts what Shrink removed from one class.
type Result struct {
	Constants  int
	Interfaces int
	Fields     int
	Methods    int
	Attributes int
}

func (r *Result) Add(other Result) {
	r.Constants += other.Constants
	r.Interfaces += other.Interfaces
	r.Fields += other.Fields
	r.Methods += other.Methods
	r.Attributes += other.Attributes
}

func (r Result) String() string {
	return fmt.Sprintf("%d constants, %d interfaces, %d fields, %d methods, %d attributes removed",
		r.Constants, r.Interfaces, r.Fields, r.Methods, r.Attributes)
}

// Shrinker removes the parts of a class its Oracle does not keep and
// compacts the constant pool. Every constant still referenced must be
// reported as used by the Oracle.
type Shrinker struct {
	Oracle Oracle
}

func NewShrinker(oracle Oracle) *Shrinker {
	return &Shrinker{Oracle: oracle}
}

// Shrink shrinks the class in place. Library classes are left alone. The
// Oracle is consulted with the indices and attributes of the unshrunk
// class, so marks for the class are stale afterwards.
func (s *Shrinker) Shrink(c *program.Class) (Result, error) {
	if c.Library {
		return Result{}, nil
	}
	cf := c.File
	name := cf.ClassName()
	var result Result

	s.shrinkSignature(cf)

	before := len(cf.Interfaces)
	cf.Interfaces = compact(cf.Interfaces, func(i *uint16) bool {
		return s.Oracle.IsClassUsed(cf.ConstantPool.GetClassName(*i))
	})
	result.Interfaces = before - len(cf.Interfaces)

	before = len(cf.Fields)
	cf.Fields = compact(cf.Fields, func(f *classfile.FieldInfo) bool {
		if !fieldUsed(s.Oracle, cf, f) {
			return false
		}
		f.Attributes = s.shrinkAttributes(cf, f.Attributes, &result)
		return true
	})
	result.Fields = before - len(cf.Fields)

	before = len(cf.Methods)
	cf.Methods = compact(cf.Methods, func(m *classfile.MethodInfo) bool {
		if !methodUsed(s.Oracle, cf, m) {
			return false
		}
		m.Attributes = s.shrinkAttributes(cf, m.Attributes, &result)
		return true
	})
	result.Methods = before - len(cf.Methods)

	cf.Attributes = s.shrinkAttributes(cf, cf.Attributes, &result)

	before = len(cf.ConstantPool)
	if err := s.compactPool(cf); err != nil {
		return result, fmt.Errorf("shrink %s: %w", name, err)
	}
	result.Constants = before - len(cf.ConstantPool)
	log.Debugf("shrank %s: %s", name, result)
	return result, nil
}

// compact keeps the elements of s for which keep is true. keep is called
// for every element before any element moves, so it may use element
// addresses.
func compact[T any](s []T, keep func(*T) bool) []T {
	kept := make([]bool, len(s))
	for i := range s {
		kept[i] = keep(&s[i])
	}
	n := 0
	for i := range s {
		if kept[i] {
			s[n] = s[i]
			n++
		}
	}
	clear(s[n:])
	return s[:n]
}

func (s *Shrinker) shrinkAttributes(cf *classfile.ClassFile, attrs []classfile.AttributeInfo, result *Result) []classfile.AttributeInfo {
	before := len(attrs)
	attrs = compact(attrs, func(info *classfile.AttributeInfo) bool {
		if !s.Oracle.IsAttributeUsed(info) {
			return false
		}
		s.shrinkAttribute(cf, info, result)
		return true
	})
	result.Attributes += before - len(attrs)
	return attrs
}

func (s *Shrinker) shrinkAttribute(cf *classfile.ClassFile, info *classfile.AttributeInfo, result *Result) {
	cp := cf.ConstantPool
	switch a := info.Parsed.(type) {
	case *classfile.CodeAttribute:
		a.Attributes = s.shrinkAttributes(cf, a.Attributes, result)
	case *classfile.RecordAttribute:
		for i := range a.Components {
			a.Components[i].Attributes = s.shrinkAttributes(cf, a.Components[i].Attributes, result)
		}
	case *classfile.InnerClassesAttribute:
		a.Classes = compact(a.Classes, func(e *classfile.InnerClassEntry) bool {
			return innerClassUsed(s.Oracle, cp, e)
		})
	case *classfile.EnclosingMethodAttribute:
		if a.MethodIndex != 0 && !enclosingMethodUsed(s.Oracle, cp, a) {
			a.MethodIndex = 0
		}
	case *classfile.RuntimeVisibleAnnotationsAttribute:
		a.Annotations = s.shrinkAnnotations(cp, a.Annotations)
	case *classfile.RuntimeInvisibleAnnotationsAttribute:
		a.Annotations = s.shrinkAnnotations(cp, a.Annotations)
	case *classfile.RuntimeVisibleParameterAnnotationsAttribute:
		for i := range a.ParameterAnnotations {
			a.ParameterAnnotations[i] = s.shrinkAnnotations(cp, a.ParameterAnnotations[i])
		}
	case *classfile.RuntimeInvisibleParameterAnnotationsAttribute:
		for i := range a.ParameterAnnotations {
			a.ParameterAnnotations[i] = s.shrinkAnnotations(cp, a.ParameterAnnotations[i])
		}
	case *classfile.AnnotationDefaultAttribute:
		s.shrinkElementValue(cp, &a.DefaultValue)
	}
}

func (s *Shrinker) shrinkAnnotations(cp classfile.ConstantPool, list []classfile.Annotation) []classfile.Annotation {
	return compact(list, func(a *classfile.Annotation) bool {
		if !annotationUsed(s.Oracle, cp, a) {
			return false
		}
		s.shrinkAnnotation(cp, a)
		return true
	})
}

func (s *Shrinker) shrinkAnnotation(cp classfile.ConstantPool, a *classfile.Annotation) {
	a.ElementValuePairs = compact(a.ElementValuePairs, func(p *classfile.ElementValuePair) bool {
		if !elementValueUsed(s.Oracle, cp, &p.Value) {
			return false
		}
		s.shrinkElementValue(cp, &p.Value)
		return true
	})
}

func (s *Shrinker) shrinkElementValue(cp classfile.ConstantPool, v *classfile.ElementValue) {
	switch v.Tag {
	case '@':
		s.shrinkAnnotation(cp, v.Annotation)
	case '[':
		v.Values = compact(v.Values, func(e *classfile.ElementValue) bool {
			if !elementValueUsed(s.Oracle, cp, e) {
				return false
			}
			s.shrinkElementValue(cp, e)
			return true
		})
	}
}

// shrinkSignature drops unused interfaces from the class Signature. The
// interface types of a class signature follow the order of the class's
// interfaces; when their number differs the signature is left alone.
func (s *Shrinker) shrinkSignature(cf *classfile.ClassFile) {
	for i := range cf.Attributes {
		sig, ok := cf.Attributes[i].Parsed.(*classfile.SignatureAttribute)
		if !ok || !s.Oracle.IsAttributeUsed(&cf.Attributes[i]) {
			continue
		}
		text, ok := cf.ConstantPool.Get(sig.SignatureIndex).(*classfile.ConstantUtf8Info)
		if !ok {
			continue
		}
		shrunk, classes, ok := s.shrinkClassSignature(cf, text.String(), sig.ReferencedClasses)
		if !ok {
			log.Debugf("%s: signature does not match interfaces, left unchanged", cf.ClassName())
			continue
		}
		text.SetString(shrunk)
		sig.ReferencedClasses = classes
	}
}

// shrinkClassSignature returns sig without the interface types whose
// interface is unused, and classes without the names those types mention.
func (s *Shrinker) shrinkClassSignature(cf *classfile.ClassFile, sig string, classes []string) (string, []string, bool) {
	params, types, ok := classfile.SplitClassSignature(sig)
	if !ok || len(types) != len(cf.Interfaces)+1 {
		return "", nil, false
	}
	var b strings.Builder
	var kept []string
	take := func(part string) bool {
		n := len(classfile.SignatureClassNames(part))
		if n > len(classes) {
			return false
		}
		kept = append(kept, classes[:n]...)
		classes = classes[n:]
		return true
	}
	skip := func(part string) bool {
		n := len(classfile.SignatureClassNames(part))
		if n > len(classes) {
			return false
		}
		classes = classes[n:]
		return true
	}

	b.WriteString(params)
	b.WriteString(types[0])
	if !take(params) || !take(types[0]) {
		return "", nil, false
	}
	for k, iface := range cf.Interfaces {
		part := types[k+1]
		if s.Oracle.IsClassUsed(cf.ConstantPool.GetClassName(iface)) {
			b.WriteString(part)
			if !take(part) {
				return "", nil, false
			}
		} else if !skip(part) {
			return "", nil, false
		}
	}
	if len(classes) != 0 {
		return "", nil, false
	}
	return b.String(), kept, true
}

// compactPool drops unused constants and remaps every reference to the
// ones that remain.
func (s *Shrinker) compactPool(cf *classfile.ClassFile) error {
	old := cf.ConstantPool
	index := make([]uint16, len(old))
	pool := classfile.ConstantPool{nil}
	for i := 1; i < len(old); i++ {
		e := old[i]
		if e == nil || !s.Oracle.IsConstantUsed(cf, uint16(i)) {
			continue
		}
		index[i] = uint16(len(pool))
		pool = append(pool, e)
		if classfile.IsWide(e) {
			pool = append(pool, nil)
			i++
		}
	}

	remap := func(ref *uint16) {
		if *ref == 0 {
			return
		}
		if int(*ref) >= len(index) || index[*ref] == 0 {
			panic(classfile.Invariantf("%s: constant %d is referenced but unused", cf.ClassName(), *ref))
		}
		*ref = index[*ref]
	}
	cf.ConstantPool = pool
	for i := 1; i < len(pool); i++ {
		for _, ref := range constantReferences(cf, uint16(i)) {
			remap(ref)
		}
	}
	return walkReferences(cf, nil, remap)
}
