package classfile

import "strings"

type FieldType struct {
	BaseType   string
	ClassName  string
	ArrayDepth int
}

func (ft *FieldType) String() string {
	var sb strings.Builder
	for i := 0; i < ft.ArrayDepth; i++ {
		sb.WriteString("[]")
	}
	if ft.BaseType != "" {
		sb.WriteString(ft.BaseType)
	} else if ft.ClassName != "" {
		sb.WriteString(strings.ReplaceAll(ft.ClassName, "/", "."))
	}
	return sb.String()
}

func (ft *FieldType) IsArray() bool {
	return ft.ArrayDepth > 0
}

func (ft *FieldType) IsPrimitive() bool {
	return ft.BaseType != "" && ft.ClassName == ""
}

func (ft *FieldType) IsReference() bool {
	return ft.ClassName != "" || ft.ArrayDepth > 0
}

type MethodDescriptor struct {
	Parameters []FieldType
	ReturnType *FieldType
}

func (md *MethodDescriptor) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	for i, p := range md.Parameters {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(")")
	if md.ReturnType != nil {
		sb.WriteString(" ")
		sb.WriteString(md.ReturnType.String())
	} else {
		sb.WriteString(" void")
	}
	return sb.String()
}

func ParseFieldDescriptor(desc string) *FieldType {
	ft, _ := parseFieldType(desc, 0)
	return ft
}

func ParseMethodDescriptor(desc string) *MethodDescriptor {
	if len(desc) == 0 || desc[0] != '(' {
		return nil
	}

	md := &MethodDescriptor{}
	i := 1

	for i < len(desc) && desc[i] != ')' {
		ft, consumed := parseFieldType(desc, i)
		if ft == nil {
			return nil
		}
		md.Parameters = append(md.Parameters, *ft)
		i += consumed
	}

	if i >= len(desc) || desc[i] != ')' {
		return nil
	}
	i++

	if i < len(desc) {
		if desc[i] == 'V' {
			md.ReturnType = nil
		} else {
			md.ReturnType, _ = parseFieldType(desc, i)
		}
	}

	return md
}

func parseFieldType(desc string, start int) (*FieldType, int) {
	if start >= len(desc) {
		return nil, 0
	}

	ft := &FieldType{}
	i := start

	for i < len(desc) && desc[i] == '[' {
		ft.ArrayDepth++
		i++
	}

	if i >= len(desc) {
		return nil, 0
	}

	switch desc[i] {
	case 'B':
		ft.BaseType = "byte"
		return ft, i - start + 1
	case 'C':
		ft.BaseType = "char"
		return ft, i - start + 1
	case 'D':
		ft.BaseType = "double"
		return ft, i - start + 1
	case 'F':
		ft.BaseType = "float"
		return ft, i - start + 1
	case 'I':
		ft.BaseType = "int"
		return ft, i - start + 1
	case 'J':
		ft.BaseType = "long"
		return ft, i - start + 1
	case 'S':
		ft.BaseType = "short"
		return ft, i - start + 1
	case 'Z':
		ft.BaseType = "boolean"
		return ft, i - start + 1
	case 'L':
		semicolon := strings.IndexByte(desc[i:], ';')
		if semicolon == -1 {
			return nil, 0
		}
		ft.ClassName = desc[i+1 : i+semicolon]
		return ft, i - start + semicolon + 1
	default:
		return nil, 0
	}
}

func InternalToSourceName(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}

func SourceToInternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// ParameterTypes splits a method descriptor into the descriptors of its
// parameters.
func ParameterTypes(desc string) []string {
	if len(desc) == 0 || desc[0] != '(' {
		return nil
	}
	var types []string
	i := 1
	for i < len(desc) && desc[i] != ')' {
		ft, consumed := parseFieldType(desc, i)
		if ft == nil {
			return nil
		}
		types = append(types, desc[i:i+consumed])
		i += consumed
	}
	return types
}

// ReturnType returns the return type descriptor of a method descriptor,
// "V" for void.
func ReturnType(desc string) string {
	end := strings.IndexByte(desc, ')')
	if end < 0 {
		return ""
	}
	return desc[end+1:]
}

// TypeSize is the number of stack or local slots a value of the given
// type descriptor occupies.
func TypeSize(desc string) int {
	if desc == "" {
		return 0
	}
	switch desc[0] {
	case 'V':
		return 0
	case 'J', 'D':
		return 2
	default:
		return 1
	}
}

// ParameterSize sums the slot sizes of the parameters of a method
// descriptor. The receiver is not included.
func ParameterSize(desc string) int {
	size := 0
	for _, t := range ParameterTypes(desc) {
		size += TypeSize(t)
	}
	return size
}

// InternalPackageName returns the package part of an internal class name.
func InternalPackageName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[:i]
	}
	return ""
}

type signatureParser struct {
	s       string
	pos     int
	classes []string
	failed  bool
}

func (p *signatureParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *signatureParser) expect(c byte) {
	if p.peek() != c {
		p.failed = true
		return
	}
	p.pos++
}

func (p *signatureParser) identifier(stops string) string {
	start := p.pos
	for p.pos < len(p.s) && strings.IndexByte(stops, p.s[p.pos]) < 0 {
		p.pos++
	}
	if p.pos >= len(p.s) {
		p.failed = true
	}
	return p.s[start:p.pos]
}

func (p *signatureParser) typeParameters() {
	if p.peek() != '<' {
		return
	}
	p.pos++
	for !p.failed && p.peek() != '>' {
		p.identifier(":")
		p.expect(':')
		if c := p.peek(); c != ':' && c != '>' {
			p.referenceType()
		}
		for !p.failed && p.peek() == ':' {
			p.pos++
			p.referenceType()
		}
	}
	p.expect('>')
}

func (p *signatureParser) javaType() {
	switch p.peek() {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		p.pos++
	default:
		p.referenceType()
	}
}

func (p *signatureParser) referenceType() {
	if p.failed {
		return
	}
	switch p.peek() {
	case 'L':
		p.classType()
	case 'T':
		p.pos++
		p.identifier(";")
		p.expect(';')
	case '[':
		p.pos++
		p.javaType()
	default:
		p.failed = true
	}
}

func (p *signatureParser) classType() {
	p.expect('L')
	name := p.identifier("<.;")
	p.classes = append(p.classes, name)
	for !p.failed {
		if p.peek() == '<' {
			p.typeArguments()
		}
		if p.peek() != '.' {
			break
		}
		p.pos++
		name = name + "$" + p.identifier("<.;")
		p.classes = append(p.classes, name)
	}
	p.expect(';')
}

func (p *signatureParser) typeArguments() {
	p.expect('<')
	for !p.failed && p.peek() != '>' {
		switch p.peek() {
		case '*':
			p.pos++
		case '+', '-':
			p.pos++
			p.referenceType()
		default:
			p.referenceType()
		}
	}
	p.expect('>')
}

// SignatureClassNames lists the classes mentioned by a class, method or
// field signature in textual order. Inner classes of parameterized outer
// types are named Outer$Inner. It returns nil for a malformed signature.
func SignatureClassNames(sig string) []string {
	p := &signatureParser{s: sig}
	p.typeParameters()
	if p.peek() == '(' {
		p.pos++
		for !p.failed && p.peek() != ')' {
			p.javaType()
		}
		p.expect(')')
		p.javaType()
		for !p.failed && p.peek() == '^' {
			p.pos++
			p.referenceType()
		}
	} else {
		for !p.failed && p.pos < len(p.s) {
			p.referenceType()
		}
	}
	if p.failed || p.pos != len(p.s) {
		return nil
	}
	return p.classes
}

// SplitClassSignature separates a class signature into its formal type
// parameter section and the superclass and interface types that follow.
func SplitClassSignature(sig string) (typeParameters string, types []string, ok bool) {
	p := &signatureParser{s: sig}
	p.typeParameters()
	typeParameters = sig[:p.pos]
	for !p.failed && p.pos < len(p.s) {
		start := p.pos
		p.referenceType()
		types = append(types, sig[start:p.pos])
	}
	if p.failed {
		return "", nil, false
	}
	return typeParameters, types, true
}
