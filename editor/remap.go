package editor

import (
	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
)

// offsetMap translates an old code offset into the new code. It reports
// false for offsets that have no counterpart.
type offsetMap func(old int) (int, bool)

// remapCodeAttributes returns fresh copies of the attributes nested in a
// Code attribute with all offsets translated. Unknown attributes are
// dropped since their offsets cannot be found. Stack maps are dropped as
// well unless keepFrames is set.
func remapCodeAttributes(attrs []classfile.AttributeInfo, m offsetMap, keepFrames bool) []classfile.AttributeInfo {
	var out []classfile.AttributeInfo
	for _, info := range attrs {
		var parsed classfile.Attribute
		switch a := info.Parsed.(type) {
		case *classfile.UnknownAttribute:
			continue
		case *classfile.LineNumberTableAttribute:
			parsed = remapLineNumbers(a, m)
		case *classfile.LocalVariableTableAttribute:
			parsed = remapLocalVariables(a, m)
		case *classfile.LocalVariableTypeTableAttribute:
			parsed = remapLocalVariableTypes(a, m)
		case *classfile.StackMapTableAttribute:
			if !keepFrames {
				continue
			}
			parsed = remapStackMapTable(a, m)
		case *classfile.StackMapAttribute:
			if !keepFrames {
				continue
			}
			parsed = remapStackMap(a, m)
		default:
			parsed = a
		}
		out = append(out, classfile.AttributeInfo{NameIndex: info.NameIndex, Parsed: parsed})
	}
	return out
}

func remapLineNumbers(a *classfile.LineNumberTableAttribute, m offsetMap) *classfile.LineNumberTableAttribute {
	out := &classfile.LineNumberTableAttribute{}
	seen := make(map[classfile.LineNumberEntry]bool)
	for _, e := range a.LineNumberTable {
		pc, ok := m(int(e.StartPC))
		if !ok {
			continue
		}
		entry := classfile.LineNumberEntry{StartPC: uint16(pc), LineNumber: e.LineNumber}
		if seen[entry] {
			continue
		}
		seen[entry] = true
		out.LineNumberTable = append(out.LineNumberTable, entry)
	}
	return out
}

func remapRange(start, length int, m offsetMap) (int, int, bool) {
	newStart, ok := m(start)
	if !ok {
		return 0, 0, false
	}
	newEnd, ok := m(start + length)
	if !ok || newEnd < newStart {
		return 0, 0, false
	}
	return newStart, newEnd - newStart, true
}

func remapLocalVariables(a *classfile.LocalVariableTableAttribute, m offsetMap) *classfile.LocalVariableTableAttribute {
	out := &classfile.LocalVariableTableAttribute{}
	for _, e := range a.LocalVariableTable {
		start, length, ok := remapRange(int(e.StartPC), int(e.Length), m)
		if !ok {
			continue
		}
		e.StartPC, e.Length = uint16(start), uint16(length)
		out.LocalVariableTable = append(out.LocalVariableTable, e)
	}
	return out
}

func remapLocalVariableTypes(a *classfile.LocalVariableTypeTableAttribute, m offsetMap) *classfile.LocalVariableTypeTableAttribute {
	out := &classfile.LocalVariableTypeTableAttribute{}
	for _, e := range a.LocalVariableTypeTable {
		start, length, ok := remapRange(int(e.StartPC), int(e.Length), m)
		if !ok {
			continue
		}
		e.StartPC, e.Length = uint16(start), uint16(length)
		out.LocalVariableTypeTable = append(out.LocalVariableTypeTable, e)
	}
	return out
}

func remapVerificationTypes(types []classfile.VerificationType, m offsetMap) []classfile.VerificationType {
	if types == nil {
		return nil
	}
	out := make([]classfile.VerificationType, len(types))
	for i, t := range types {
		if t.Tag == classfile.VerificationUninitialized {
			if offset, ok := m(int(t.Index)); ok {
				t.Index = uint16(offset)
			}
		}
		out[i] = t
	}
	return out
}

// remapStackMapTable moves every frame to its new offset and picks the
// frame type matching the new delta. Frames that collapse onto an earlier
// frame are dropped.
func remapStackMapTable(a *classfile.StackMapTableAttribute, m offsetMap) *classfile.StackMapTableAttribute {
	out := &classfile.StackMapTableAttribute{}
	oldOffset, newPrevious := -1, -1
	for _, f := range a.Entries {
		oldOffset += int(f.OffsetDelta) + 1
		offset, ok := m(oldOffset)
		if !ok || offset <= newPrevious {
			continue
		}
		delta := offset - newPrevious - 1
		newPrevious = offset

		frame := classfile.StackMapFrame{
			FrameType:   f.FrameType,
			OffsetDelta: uint16(delta),
			Locals:      remapVerificationTypes(f.Locals, m),
			Stack:       remapVerificationTypes(f.Stack, m),
		}
		switch f.Kind() {
		case classfile.FrameSame:
			if delta <= 63 {
				frame.FrameType = uint8(delta)
			} else {
				frame.FrameType = 251
			}
		case classfile.FrameSameLocals1StackItem:
			if delta <= 63 {
				frame.FrameType = uint8(64 + delta)
			} else {
				frame.FrameType = 247
			}
		}
		out.Entries = append(out.Entries, frame)
	}
	return out
}

func remapStackMap(a *classfile.StackMapAttribute, m offsetMap) *classfile.StackMapAttribute {
	out := &classfile.StackMapAttribute{}
	previous := -1
	for _, e := range a.Entries {
		offset, ok := m(int(e.Offset))
		if !ok || offset <= previous {
			continue
		}
		previous = offset
		out.Entries = append(out.Entries, classfile.StackMapEntry{
			Offset: uint16(offset),
			Locals: remapVerificationTypes(e.Locals, m),
			Stack:  remapVerificationTypes(e.Stack, m),
		})
	}
	return out
}

// maxLocals returns the number of local slots needed by code, its
// parameters and the local variable tables nested in attrs.
func maxLocals(code []byte, parameterSize int, attrs []classfile.AttributeInfo, cp classfile.ConstantPool) (int, error) {
	locals, err := instruction.MaxLocals(code, parameterSize)
	if err != nil {
		return 0, err
	}
	for _, info := range attrs {
		if lvt, ok := info.Parsed.(*classfile.LocalVariableTableAttribute); ok {
			for _, e := range lvt.LocalVariableTable {
				if end := int(e.Index) + classfile.TypeSize(cp.GetUtf8(e.DescriptorIndex)); end > locals {
					locals = end
				}
			}
		}
	}
	return locals, nil
}
