package classfile

// ClassFile is the in-memory model of one class file. Passes edit it in
// place; Marshal writes it back.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool ConstantPool
	AccessFlags  AccessFlags
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo
	Attributes   []AttributeInfo
}

func (cf *ClassFile) ClassName() string {
	return cf.ConstantPool.GetClassName(cf.ThisClass)
}

func (cf *ClassFile) SuperClassName() string {
	if cf.SuperClass == 0 {
		return ""
	}
	return cf.ConstantPool.GetClassName(cf.SuperClass)
}

func (cf *ClassFile) InterfaceNames() []string {
	names := make([]string, len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		names[i] = cf.ConstantPool.GetClassName(idx)
	}
	return names
}

func (cf *ClassFile) IsInterface() bool {
	return cf.AccessFlags.IsInterface() && !cf.AccessFlags.IsAnnotation()
}

func (cf *ClassFile) IsAnnotation() bool {
	return cf.AccessFlags.IsAnnotation()
}

func (cf *ClassFile) IsEnum() bool {
	return cf.AccessFlags.IsEnum()
}

func (cf *ClassFile) IsModule() bool {
	return cf.AccessFlags.IsModule()
}

// PackageName returns the internal package of the class, "" for the
// default package.
func (cf *ClassFile) PackageName() string {
	return InternalPackageName(cf.ClassName())
}

// GetField returns the first field named name. Field names are unique in a
// valid class.
func (cf *ClassFile) GetField(name string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name(cf.ConstantPool) == name {
			return &cf.Fields[i]
		}
	}
	return nil
}

// GetMethod finds a method by name and descriptor. An empty descriptor
// matches the first method with the name.
func (cf *ClassFile) GetMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name(cf.ConstantPool) == name {
			if descriptor == "" || cf.Methods[i].Descriptor(cf.ConstantPool) == descriptor {
				return &cf.Methods[i]
			}
		}
	}
	return nil
}

func (cf *ClassFile) GetAttribute(name string) *AttributeInfo {
	return FindAttribute(cf.ConstantPool, cf.Attributes, name)
}

// MethodName renders a method as class.name(descriptor) for log messages.
func (cf *ClassFile) MethodName(m *MethodInfo) string {
	return cf.ClassName() + "." + m.Name(cf.ConstantPool) + m.Descriptor(cf.ConstantPool)
}

// HasStaticInitializer reports whether the class declares <clinit>.
func (cf *ClassFile) HasStaticInitializer() bool {
	return cf.GetMethod(MethodNameClinit, "") != nil
}

// Clone copies the code buffer, the exception table and the list of nested
// attributes. Nested attribute bodies are shared.
func (c *CodeAttribute) Clone() *CodeAttribute {
	clone := *c
	clone.Code = append([]byte(nil), c.Code...)
	clone.ExceptionTable = append([]ExceptionTableEntry(nil), c.ExceptionTable...)
	clone.Attributes = append([]AttributeInfo(nil), c.Attributes...)
	return &clone
}
