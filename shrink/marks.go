// Package shrink removes the unused parts of program classes and compacts
// their constant pools.
package shrink

import (
	"slices"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/program"
)

var log = commonlog.GetLogger("kiln.shrink")

// Oracle tells which parts of a class are still needed. Members are named
// by their class, name and descriptor. Attributes are identified by their
// position in the model, so an Oracle must be asked before the class is
// compacted.
type Oracle interface {
	IsClassUsed(name string) bool
	IsFieldUsed(class, name, desc string) bool
	IsMethodUsed(class, name, desc string) bool
	IsAttributeUsed(attr *classfile.AttributeInfo) bool
	IsConstantUsed(cf *classfile.ClassFile, index uint16) bool
}

type memberKey struct {
	method            bool
	class, name, desc string
}

// UsageMarks is an Oracle backed by sets. It is safe for concurrent use.
type UsageMarks struct {
	// Pool, if set, makes every class outside the program count as used.
	Pool *program.Pool

	mu         sync.RWMutex
	classes    map[string]bool
	members    map[memberKey]bool
	attributes map[*classfile.AttributeInfo]bool
	constants  map[*classfile.ClassFile]map[uint16]bool
}

func NewUsageMarks(pool *program.Pool) *UsageMarks {
	return &UsageMarks{
		Pool:       pool,
		classes:    make(map[string]bool),
		members:    make(map[memberKey]bool),
		attributes: make(map[*classfile.AttributeInfo]bool),
		constants:  make(map[*classfile.ClassFile]map[uint16]bool),
	}
}

func (u *UsageMarks) MarkClass(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.classes[name] = true
}

func (u *UsageMarks) MarkField(class, name, desc string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.members[memberKey{false, class, name, desc}] = true
}

func (u *UsageMarks) MarkMethod(class, name, desc string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.members[memberKey{true, class, name, desc}] = true
}

func (u *UsageMarks) MarkAttribute(attr *classfile.AttributeInfo) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.attributes[attr] = true
}

// MarkConstant marks the constant at index, not what it refers to.
func (u *UsageMarks) MarkConstant(cf *classfile.ClassFile, index uint16) {
	u.mu.Lock()
	defer u.mu.Unlock()
	set := u.constants[cf]
	if set == nil {
		set = make(map[uint16]bool)
		u.constants[cf] = set
	}
	set[index] = true
}

// MarkAll marks cf, its members and their attributes, except the
// attributes named in dropped. Unknown attributes are left unmarked since
// the constants they use cannot be found.
func (u *UsageMarks) MarkAll(cf *classfile.ClassFile, dropped ...string) {
	name := cf.ClassName()
	cp := cf.ConstantPool
	u.MarkClass(name)
	for i := range cf.Fields {
		f := &cf.Fields[i]
		u.MarkField(name, cp.GetUtf8(f.NameIndex), cp.GetUtf8(f.DescriptorIndex))
		u.markAttributes(cp, f.Attributes, dropped)
	}
	for i := range cf.Methods {
		m := &cf.Methods[i]
		u.MarkMethod(name, m.Name(cp), m.Descriptor(cp))
		u.markAttributes(cp, m.Attributes, dropped)
	}
	u.markAttributes(cp, cf.Attributes, dropped)
}

func (u *UsageMarks) markAttributes(cp classfile.ConstantPool, attrs []classfile.AttributeInfo, dropped []string) {
	for i := range attrs {
		if slices.Contains(dropped, cp.GetUtf8(attrs[i].NameIndex)) {
			continue
		}
		switch a := attrs[i].Parsed.(type) {
		case *classfile.UnknownAttribute:
			continue
		case *classfile.CodeAttribute:
			u.markAttributes(cp, a.Attributes, dropped)
		case *classfile.RecordAttribute:
			for j := range a.Components {
				u.markAttributes(cp, a.Components[j].Attributes, dropped)
			}
		}
		u.MarkAttribute(&attrs[i])
	}
}

// external reports whether class lies outside the program and so is never
// shrunk.
func (u *UsageMarks) external(class string) bool {
	if u.Pool == nil {
		return false
	}
	c := u.Pool.Class(class)
	return c == nil || c.Library
}

func (u *UsageMarks) IsClassUsed(name string) bool {
	u.mu.RLock()
	marked := u.classes[name]
	u.mu.RUnlock()
	return marked || u.external(name)
}

func (u *UsageMarks) IsFieldUsed(class, name, desc string) bool {
	u.mu.RLock()
	marked := u.members[memberKey{false, class, name, desc}]
	u.mu.RUnlock()
	return marked || u.external(class)
}

func (u *UsageMarks) IsMethodUsed(class, name, desc string) bool {
	u.mu.RLock()
	marked := u.members[memberKey{true, class, name, desc}]
	u.mu.RUnlock()
	return marked || u.external(class)
}

func (u *UsageMarks) IsAttributeUsed(attr *classfile.AttributeInfo) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.attributes[attr]
}

func (u *UsageMarks) IsConstantUsed(cf *classfile.ClassFile, index uint16) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.constants[cf][index]
}
