package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/kiln/classfile"
)

type JSONEncoder struct {
	w     io.Writer
	class *classfile.ClassFile
	Code  bool
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(cf *classfile.ClassFile) error {
	e.class = cf
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(append(text, '\n'))
	return err
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	data, err := e.buildClassData()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

type jsonClass struct {
	Name       string       `json:"name"`
	Package    string       `json:"package"`
	SuperClass string       `json:"superClass,omitempty"`
	Interfaces []string     `json:"interfaces,omitempty"`
	Visibility string       `json:"visibility"`
	Kind       string       `json:"kind"`
	Modifiers  []string     `json:"modifiers,omitempty"`
	Version    jsonVersion  `json:"version"`
	Constants  int          `json:"constants"`
	Fields     []jsonField  `json:"fields,omitempty"`
	Methods    []jsonMethod `json:"methods,omitempty"`
}

type jsonVersion struct {
	Major uint16 `json:"major"`
	Minor uint16 `json:"minor"`
}

type jsonField struct {
	Name       string   `json:"name"`
	Descriptor string   `json:"descriptor"`
	Visibility string   `json:"visibility"`
	Modifiers  []string `json:"modifiers,omitempty"`
}

type jsonMethod struct {
	Name       string            `json:"name"`
	Descriptor string            `json:"descriptor"`
	Visibility string            `json:"visibility"`
	Modifiers  []string          `json:"modifiers,omitempty"`
	MaxStack   uint16            `json:"maxStack,omitempty"`
	MaxLocals  uint16            `json:"maxLocals,omitempty"`
	CodeLength int               `json:"codeLength,omitempty"`
	Code       []jsonInstruction `json:"code,omitempty"`
}

type jsonInstruction struct {
	Offset   int    `json:"offset"`
	Text     string `json:"text"`
	Constant string `json:"constant,omitempty"`
}

func (e *JSONEncoder) buildClassData() (jsonClass, error) {
	c := e.class
	data := jsonClass{
		Name:       c.ClassName(),
		Package:    c.PackageName(),
		SuperClass: c.SuperClassName(),
		Interfaces: c.InterfaceNames(),
		Visibility: visibility(c.AccessFlags),
		Kind:       classKind(c),
		Modifiers:  classModifiers(c.AccessFlags),
		Version: jsonVersion{
			Major: c.MajorVersion,
			Minor: c.MinorVersion,
		},
		Constants: len(c.ConstantPool) - 1,
		Fields:    e.buildFields(),
	}
	methods, err := e.buildMethods()
	data.Methods = methods
	return data, err
}

func (e *JSONEncoder) buildFields() []jsonField {
	cp := e.class.ConstantPool
	result := make([]jsonField, len(e.class.Fields))
	for i := range e.class.Fields {
		f := &e.class.Fields[i]
		result[i] = jsonField{
			Name:       f.Name(cp),
			Descriptor: f.Descriptor(cp),
			Visibility: visibility(f.AccessFlags),
			Modifiers:  fieldModifiers(f.AccessFlags),
		}
	}
	return result
}

func (e *JSONEncoder) buildMethods() ([]jsonMethod, error) {
	c := e.class
	cp := c.ConstantPool
	result := make([]jsonMethod, len(c.Methods))
	for i := range c.Methods {
		m := &c.Methods[i]
		result[i] = jsonMethod{
			Name:       m.Name(cp),
			Descriptor: m.Descriptor(cp),
			Visibility: visibility(m.AccessFlags),
			Modifiers:  methodModifiers(m.AccessFlags),
		}
		code := m.GetCodeAttribute(cp)
		if code == nil {
			continue
		}
		result[i].MaxStack = code.MaxStack
		result[i].MaxLocals = code.MaxLocals
		result[i].CodeLength = len(code.Code)
		if !e.Code {
			continue
		}
		lines, err := disassemble(c, m)
		if err != nil {
			return result, err
		}
		for _, l := range lines {
			result[i].Code = append(result[i].Code, jsonInstruction(l))
		}
	}
	return result, nil
}
