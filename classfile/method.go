package classfile

type MethodInfo struct {
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []AttributeInfo
}

func (m *MethodInfo) Name(cp ConstantPool) string {
	return cp.GetUtf8(m.NameIndex)
}

func (m *MethodInfo) Descriptor(cp ConstantPool) string {
	return cp.GetUtf8(m.DescriptorIndex)
}

func (m *MethodInfo) GetAttribute(cp ConstantPool, name string) *AttributeInfo {
	return FindAttribute(cp, m.Attributes, name)
}

// GetCodeAttribute returns the parsed Code attribute, or nil for abstract
// and native methods and for a Code body that could not be decoded.
func (m *MethodInfo) GetCodeAttribute(cp ConstantPool) *CodeAttribute {
	for i := range m.Attributes {
		if code := m.Attributes[i].AsCode(); code != nil {
			return code
		}
	}
	return nil
}

// SetCodeAttribute replaces the method's Code attribute body in place.
func (m *MethodInfo) SetCodeAttribute(code *CodeAttribute) {
	for i := range m.Attributes {
		if m.Attributes[i].AsCode() != nil {
			m.Attributes[i].Parsed = code
			return
		}
	}
}

func (m *MethodInfo) IsPublic() bool       { return m.AccessFlags.IsPublic() }
func (m *MethodInfo) IsPrivate() bool      { return m.AccessFlags.IsPrivate() }
func (m *MethodInfo) IsStatic() bool       { return m.AccessFlags.IsStatic() }
func (m *MethodInfo) IsFinal() bool        { return m.AccessFlags.IsFinal() }
func (m *MethodInfo) IsSynchronized() bool { return m.AccessFlags.IsSynchronized() }
func (m *MethodInfo) IsNative() bool       { return m.AccessFlags.IsNative() }
func (m *MethodInfo) IsAbstract() bool     { return m.AccessFlags.IsAbstract() }

func (m *MethodInfo) IsConstructor(cp ConstantPool) bool {
	return m.Name(cp) == MethodNameInit
}

// ParameterSize is the number of local slots taken by the parameters,
// including the receiver of an instance method.
func (m *MethodInfo) ParameterSize(cp ConstantPool) int {
	size := ParameterSize(m.Descriptor(cp))
	if !m.IsStatic() {
		size++
	}
	return size
}
