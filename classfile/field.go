package classfile

type FieldInfo struct {
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []AttributeInfo
}

func (f *FieldInfo) Name(cp ConstantPool) string       { return cp.GetUtf8(f.NameIndex) }
func (f *FieldInfo) Descriptor(cp ConstantPool) string { return cp.GetUtf8(f.DescriptorIndex) }

func (f *FieldInfo) GetAttribute(cp ConstantPool, name string) *AttributeInfo {
	return FindAttribute(cp, f.Attributes, name)
}

// ConstantValue returns the field's ConstantValue attribute, or nil when
// the field has none.
func (f *FieldInfo) ConstantValue(cp ConstantPool) *ConstantValueAttribute {
	for i := range f.Attributes {
		if cv, ok := f.Attributes[i].Parsed.(*ConstantValueAttribute); ok {
			return cv
		}
	}
	return nil
}
