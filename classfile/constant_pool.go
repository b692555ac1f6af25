package classfile

type ConstantPoolEntry interface {
	Tag() ConstantTag
}

// ConstantUtf8Info keeps the modified UTF-8 bytes exactly as they were read,
// so that writing an unmodified pool reproduces the input.
type ConstantUtf8Info struct {
	Bytes []byte
}

func (c *ConstantUtf8Info) Tag() ConstantTag { return ConstantUtf8 }

func (c *ConstantUtf8Info) String() string { return decodeModifiedUtf8(c.Bytes) }

func (c *ConstantUtf8Info) SetString(s string) { c.Bytes = encodeModifiedUtf8(s) }

func NewUtf8(s string) *ConstantUtf8Info {
	return &ConstantUtf8Info{Bytes: encodeModifiedUtf8(s)}
}

type ConstantIntegerInfo struct {
	Value int32
}

func (c *ConstantIntegerInfo) Tag() ConstantTag { return ConstantInteger }

type ConstantFloatInfo struct {
	Value float32
}

func (c *ConstantFloatInfo) Tag() ConstantTag { return ConstantFloat }

type ConstantLongInfo struct {
	Value int64
}

func (c *ConstantLongInfo) Tag() ConstantTag { return ConstantLong }

type ConstantDoubleInfo struct {
	Value float64
}

func (c *ConstantDoubleInfo) Tag() ConstantTag { return ConstantDouble }

type ConstantClassInfo struct {
	NameIndex uint16
}

func (c *ConstantClassInfo) Tag() ConstantTag { return ConstantClass }

type ConstantStringInfo struct {
	StringIndex uint16
}

func (c *ConstantStringInfo) Tag() ConstantTag { return ConstantString }

type ConstantFieldrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldrefInfo) Tag() ConstantTag { return ConstantFieldref }
func (c *ConstantFieldrefInfo) ref() (uint16, uint16) { return c.ClassIndex, c.NameAndTypeIndex }

type ConstantMethodrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodrefInfo) Tag() ConstantTag { return ConstantMethodref }
func (c *ConstantMethodrefInfo) ref() (uint16, uint16) { return c.ClassIndex, c.NameAndTypeIndex }

type ConstantInterfaceMethodrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodrefInfo) Tag() ConstantTag { return ConstantInterfaceMethodref }
func (c *ConstantInterfaceMethodrefInfo) ref() (uint16, uint16) { return c.ClassIndex, c.NameAndTypeIndex }

type ConstantNameAndTypeInfo struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndTypeInfo) Tag() ConstantTag { return ConstantNameAndType }

type ConstantMethodHandleInfo struct {
	ReferenceKind  MethodHandleKind
	ReferenceIndex uint16
}

func (c *ConstantMethodHandleInfo) Tag() ConstantTag { return ConstantMethodHandle }

type ConstantMethodTypeInfo struct {
	DescriptorIndex uint16
}

func (c *ConstantMethodTypeInfo) Tag() ConstantTag { return ConstantMethodType }

type ConstantDynamicInfo struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamicInfo) Tag() ConstantTag { return ConstantDynamic }

type ConstantInvokeDynamicInfo struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantInvokeDynamicInfo) Tag() ConstantTag { return ConstantInvokeDynamic }

type ConstantModuleInfo struct {
	NameIndex uint16
}

func (c *ConstantModuleInfo) Tag() ConstantTag { return ConstantModule }

type ConstantPackageInfo struct {
	NameIndex uint16
}

func (c *ConstantPackageInfo) Tag() ConstantTag { return ConstantPackage }

// memberRef is implemented by the Fieldref, Methodref and
// InterfaceMethodref entries.
type memberRef interface {
	ConstantPoolEntry
	ref() (classIndex, nameAndTypeIndex uint16)
}

// IsWide reports whether the entry occupies two pool slots.
func IsWide(entry ConstantPoolEntry) bool {
	switch entry.(type) {
	case *ConstantLongInfo, *ConstantDoubleInfo:
		return true
	}
	return false
}

// ConstantPool is indexed exactly like the class file: slot 0 is never used
// and the slot after a Long or Double entry holds nil.
type ConstantPool []ConstantPoolEntry

func (cp ConstantPool) Get(index uint16) ConstantPoolEntry {
	if index == 0 || int(index) >= len(cp) {
		return nil
	}
	return cp[index]
}

func (cp ConstantPool) GetUtf8(index uint16) string {
	if entry, ok := cp.Get(index).(*ConstantUtf8Info); ok {
		return entry.String()
	}
	return ""
}

func (cp ConstantPool) GetClassName(index uint16) string {
	if entry, ok := cp.Get(index).(*ConstantClassInfo); ok {
		return cp.GetUtf8(entry.NameIndex)
	}
	return ""
}

func (cp ConstantPool) GetNameAndType(index uint16) (name, descriptor string) {
	if entry, ok := cp.Get(index).(*ConstantNameAndTypeInfo); ok {
		return cp.GetUtf8(entry.NameIndex), cp.GetUtf8(entry.DescriptorIndex)
	}
	return "", ""
}

func (cp ConstantPool) GetString(index uint16) string {
	if entry, ok := cp.Get(index).(*ConstantStringInfo); ok {
		return cp.GetUtf8(entry.StringIndex)
	}
	return ""
}

func (cp ConstantPool) GetInteger(index uint16) (int32, bool) {
	if entry, ok := cp.Get(index).(*ConstantIntegerInfo); ok {
		return entry.Value, true
	}
	return 0, false
}

func (cp ConstantPool) GetLong(index uint16) (int64, bool) {
	if entry, ok := cp.Get(index).(*ConstantLongInfo); ok {
		return entry.Value, true
	}
	return 0, false
}

func (cp ConstantPool) GetDouble(index uint16) (float64, bool) {
	if entry, ok := cp.Get(index).(*ConstantDoubleInfo); ok {
		return entry.Value, true
	}
	return 0, false
}

// GetRef resolves a Fieldref, Methodref or InterfaceMethodref entry.
func (cp ConstantPool) GetRef(index uint16) (className, name, descriptor string, ok bool) {
	return cp.getRef(index, 0)
}

// getRef resolves the member reference at index if its tag is tag, or any
// member reference if tag is 0.
func (cp ConstantPool) getRef(index uint16, tag ConstantTag) (className, name, descriptor string, ok bool) {
	entry, ok := cp.Get(index).(memberRef)
	if !ok || tag != 0 && entry.Tag() != tag {
		return "", "", "", false
	}
	classIndex, natIndex := entry.ref()
	name, descriptor = cp.GetNameAndType(natIndex)
	return cp.GetClassName(classIndex), name, descriptor, true
}

func (cp ConstantPool) GetFieldref(index uint16) (className, name, descriptor string) {
	className, name, descriptor, _ = cp.getRef(index, ConstantFieldref)
	return
}

func (cp ConstantPool) GetMethodref(index uint16) (className, name, descriptor string) {
	className, name, descriptor, _ = cp.getRef(index, ConstantMethodref)
	return
}

// GetInvokeDynamic resolves the name and descriptor of an InvokeDynamic or
// Dynamic entry.
func (cp ConstantPool) GetInvokeDynamic(index uint16) (name, descriptor string) {
	switch entry := cp.Get(index).(type) {
	case *ConstantInvokeDynamicInfo:
		return cp.GetNameAndType(entry.NameAndTypeIndex)
	case *ConstantDynamicInfo:
		return cp.GetNameAndType(entry.NameAndTypeIndex)
	}
	return "", ""
}
