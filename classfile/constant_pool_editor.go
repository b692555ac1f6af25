package classfile

import (
	"errors"
	"fmt"
	"math"
)

type constantKey struct {
	tag  ConstantTag
	s    string
	a, b uint16
	x    uint64
}

func keyOf(entry ConstantPoolEntry) constantKey {
	k := constantKey{tag: entry.Tag()}
	switch e := entry.(type) {
	case *ConstantUtf8Info:
		k.s = string(e.Bytes)
	case *ConstantIntegerInfo:
		k.x = uint64(uint32(e.Value))
	case *ConstantFloatInfo:
		k.x = uint64(math.Float32bits(e.Value))
	case *ConstantLongInfo:
		k.x = uint64(e.Value)
	case *ConstantDoubleInfo:
		k.x = math.Float64bits(e.Value)
	case *ConstantClassInfo:
		k.a = e.NameIndex
	case *ConstantStringInfo:
		k.a = e.StringIndex
	case *ConstantFieldrefInfo:
		k.a, k.b = e.ClassIndex, e.NameAndTypeIndex
	case *ConstantMethodrefInfo:
		k.a, k.b = e.ClassIndex, e.NameAndTypeIndex
	case *ConstantInterfaceMethodrefInfo:
		k.a, k.b = e.ClassIndex, e.NameAndTypeIndex
	case *ConstantNameAndTypeInfo:
		k.a, k.b = e.NameIndex, e.DescriptorIndex
	case *ConstantMethodHandleInfo:
		k.a, k.b = uint16(e.ReferenceKind), e.ReferenceIndex
	case *ConstantMethodTypeInfo:
		k.a = e.DescriptorIndex
	case *ConstantDynamicInfo:
		k.a, k.b = e.BootstrapMethodAttrIndex, e.NameAndTypeIndex
	case *ConstantInvokeDynamicInfo:
		k.a, k.b = e.BootstrapMethodAttrIndex, e.NameAndTypeIndex
	case *ConstantModuleInfo:
		k.a = e.NameIndex
	case *ConstantPackageInfo:
		k.a = e.NameIndex
	}
	return k
}

// ConstantPoolEditor finds or appends constants in a class's pool. Existing
// entries are reused, so adding a constant twice yields the same index.
type ConstantPoolEditor struct {
	cf     *ClassFile
	lookup map[constantKey]uint16
}

func NewConstantPoolEditor(cf *ClassFile) *ConstantPoolEditor {
	e := &ConstantPoolEditor{cf: cf, lookup: make(map[constantKey]uint16)}
	if len(cf.ConstantPool) == 0 {
		cf.ConstantPool = ConstantPool{nil}
	}
	for i := 1; i < len(cf.ConstantPool); i++ {
		entry := cf.ConstantPool[i]
		if entry == nil {
			continue
		}
		k := keyOf(entry)
		if _, ok := e.lookup[k]; !ok {
			e.lookup[k] = uint16(i)
		}
	}
	return e
}

func (e *ConstantPoolEditor) Class() *ClassFile { return e.cf }

// Add returns the index of an entry equal to entry, appending it when the
// pool has none. It panics with an InvariantError when the pool is full.
func (e *ConstantPoolEditor) Add(entry ConstantPoolEntry) uint16 {
	k := keyOf(entry)
	if index, ok := e.lookup[k]; ok {
		return index
	}
	size := 1
	if IsWide(entry) {
		size = 2
	}
	if len(e.cf.ConstantPool)+size > math.MaxUint16 {
		panic(Invariantf("constant pool of %s is full", e.cf.ClassName()))
	}
	index := uint16(len(e.cf.ConstantPool))
	e.cf.ConstantPool = append(e.cf.ConstantPool, entry)
	if size == 2 {
		e.cf.ConstantPool = append(e.cf.ConstantPool, nil)
	}
	e.lookup[k] = index
	return index
}

func (e *ConstantPoolEditor) AddUtf8(s string) uint16 {
	return e.Add(NewUtf8(s))
}

func (e *ConstantPoolEditor) AddInteger(v int32) uint16 {
	return e.Add(&ConstantIntegerInfo{Value: v})
}

func (e *ConstantPoolEditor) AddFloat(v float32) uint16 {
	return e.Add(&ConstantFloatInfo{Value: v})
}

func (e *ConstantPoolEditor) AddLong(v int64) uint16 {
	return e.Add(&ConstantLongInfo{Value: v})
}

func (e *ConstantPoolEditor) AddDouble(v float64) uint16 {
	return e.Add(&ConstantDoubleInfo{Value: v})
}

func (e *ConstantPoolEditor) AddString(s string) uint16 {
	return e.Add(&ConstantStringInfo{StringIndex: e.AddUtf8(s)})
}

func (e *ConstantPoolEditor) AddClass(name string) uint16 {
	return e.Add(&ConstantClassInfo{NameIndex: e.AddUtf8(name)})
}

func (e *ConstantPoolEditor) AddNameAndType(name, descriptor string) uint16 {
	return e.Add(&ConstantNameAndTypeInfo{
		NameIndex:       e.AddUtf8(name),
		DescriptorIndex: e.AddUtf8(descriptor),
	})
}

func (e *ConstantPoolEditor) AddFieldref(className, name, descriptor string) uint16 {
	return e.Add(&ConstantFieldrefInfo{
		ClassIndex:       e.AddClass(className),
		NameAndTypeIndex: e.AddNameAndType(name, descriptor),
	})
}

func (e *ConstantPoolEditor) AddMethodref(className, name, descriptor string) uint16 {
	return e.Add(&ConstantMethodrefInfo{
		ClassIndex:       e.AddClass(className),
		NameAndTypeIndex: e.AddNameAndType(name, descriptor),
	})
}

func (e *ConstantPoolEditor) AddInterfaceMethodref(className, name, descriptor string) uint16 {
	return e.Add(&ConstantInterfaceMethodrefInfo{
		ClassIndex:       e.AddClass(className),
		NameAndTypeIndex: e.AddNameAndType(name, descriptor),
	})
}

func (e *ConstantPoolEditor) AddMethodType(descriptor string) uint16 {
	return e.Add(&ConstantMethodTypeInfo{DescriptorIndex: e.AddUtf8(descriptor)})
}

// ErrBootstrapConstant is returned when a constant that points into the
// source class's BootstrapMethods attribute would have to be copied.
var ErrBootstrapConstant = errors.New("bootstrap constants cannot be copied between classes")

// ConstantAdder copies constants, with everything they reference, from a
// source pool into the pool behind an editor.
type ConstantAdder struct {
	target *ConstantPoolEditor
	source ConstantPool
	added  map[uint16]uint16
}

func NewConstantAdder(target *ConstantPoolEditor, source ConstantPool) *ConstantAdder {
	return &ConstantAdder{target: target, source: source, added: make(map[uint16]uint16)}
}

// Add returns the target index of the source constant at index.
func (a *ConstantAdder) Add(index uint16) (uint16, error) {
	if index == 0 {
		return 0, nil
	}
	if mapped, ok := a.added[index]; ok {
		return mapped, nil
	}
	entry := a.source.Get(index)
	if entry == nil {
		return 0, fmt.Errorf("no constant at index %d", index)
	}

	var copied ConstantPoolEntry
	var err error
	ref := func(i uint16) uint16 {
		if err != nil {
			return 0
		}
		var mapped uint16
		mapped, err = a.Add(i)
		return mapped
	}
	switch e := entry.(type) {
	case *ConstantUtf8Info:
		copied = &ConstantUtf8Info{Bytes: append([]byte(nil), e.Bytes...)}
	case *ConstantIntegerInfo, *ConstantFloatInfo, *ConstantLongInfo, *ConstantDoubleInfo:
		copied = entry
	case *ConstantClassInfo:
		copied = &ConstantClassInfo{NameIndex: ref(e.NameIndex)}
	case *ConstantStringInfo:
		copied = &ConstantStringInfo{StringIndex: ref(e.StringIndex)}
	case *ConstantFieldrefInfo:
		copied = &ConstantFieldrefInfo{ClassIndex: ref(e.ClassIndex), NameAndTypeIndex: ref(e.NameAndTypeIndex)}
	case *ConstantMethodrefInfo:
		copied = &ConstantMethodrefInfo{ClassIndex: ref(e.ClassIndex), NameAndTypeIndex: ref(e.NameAndTypeIndex)}
	case *ConstantInterfaceMethodrefInfo:
		copied = &ConstantInterfaceMethodrefInfo{ClassIndex: ref(e.ClassIndex), NameAndTypeIndex: ref(e.NameAndTypeIndex)}
	case *ConstantNameAndTypeInfo:
		copied = &ConstantNameAndTypeInfo{NameIndex: ref(e.NameIndex), DescriptorIndex: ref(e.DescriptorIndex)}
	case *ConstantMethodHandleInfo:
		copied = &ConstantMethodHandleInfo{ReferenceKind: e.ReferenceKind, ReferenceIndex: ref(e.ReferenceIndex)}
	case *ConstantMethodTypeInfo:
		copied = &ConstantMethodTypeInfo{DescriptorIndex: ref(e.DescriptorIndex)}
	case *ConstantModuleInfo:
		copied = &ConstantModuleInfo{NameIndex: ref(e.NameIndex)}
	case *ConstantPackageInfo:
		copied = &ConstantPackageInfo{NameIndex: ref(e.NameIndex)}
	case *ConstantDynamicInfo, *ConstantInvokeDynamicInfo:
		return 0, ErrBootstrapConstant
	default:
		return 0, fmt.Errorf("unsupported constant %T", entry)
	}
	if err != nil {
		return 0, err
	}
	mapped := a.target.Add(copied)
	a.added[index] = mapped
	return mapped, nil
}
