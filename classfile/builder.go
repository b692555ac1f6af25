package classfile

// Builder assembles a class file in memory.
type Builder struct {
	cf   *ClassFile
	pool *ConstantPoolEditor
}

func NewBuilder(name, superName string) *Builder {
	cf := &ClassFile{
		MajorVersion: 52,
		ConstantPool: ConstantPool{nil},
		AccessFlags:  AccPublic | AccSuper,
	}
	b := &Builder{cf: cf, pool: NewConstantPoolEditor(cf)}
	cf.ThisClass = b.pool.AddClass(name)
	if superName != "" {
		cf.SuperClass = b.pool.AddClass(superName)
	}
	return b
}

func (b *Builder) Pool() *ConstantPoolEditor { return b.pool }

func (b *Builder) SetVersion(major, minor uint16) *Builder {
	b.cf.MajorVersion = major
	b.cf.MinorVersion = minor
	return b
}

func (b *Builder) SetAccessFlags(flags AccessFlags) *Builder {
	b.cf.AccessFlags = flags
	return b
}

func (b *Builder) AddInterface(name string) *Builder {
	b.cf.Interfaces = append(b.cf.Interfaces, b.pool.AddClass(name))
	return b
}

func (b *Builder) AddField(flags AccessFlags, name, descriptor string, attrs ...AttributeInfo) *Builder {
	b.cf.Fields = append(b.cf.Fields, FieldInfo{
		AccessFlags:     flags,
		NameIndex:       b.pool.AddUtf8(name),
		DescriptorIndex: b.pool.AddUtf8(descriptor),
		Attributes:      attrs,
	})
	return b
}

// AddMethod adds a method. A nil code gives an abstract or native method
// without a Code attribute.
func (b *Builder) AddMethod(flags AccessFlags, name, descriptor string, code *CodeAttribute, attrs ...AttributeInfo) *Builder {
	m := MethodInfo{
		AccessFlags:     flags,
		NameIndex:       b.pool.AddUtf8(name),
		DescriptorIndex: b.pool.AddUtf8(descriptor),
	}
	if code != nil {
		m.Attributes = append(m.Attributes, b.Attribute(code))
	}
	m.Attributes = append(m.Attributes, attrs...)
	b.cf.Methods = append(b.cf.Methods, m)
	return b
}

func (b *Builder) AddAttribute(attr Attribute) *Builder {
	b.cf.Attributes = append(b.cf.Attributes, b.Attribute(attr))
	return b
}

// Attribute wraps a parsed attribute body with its name in this pool.
func (b *Builder) Attribute(attr Attribute) AttributeInfo {
	return AttributeInfo{NameIndex: b.pool.AddUtf8(attr.AttributeName()), Parsed: attr}
}

func (b *Builder) Build() *ClassFile { return b.cf }
