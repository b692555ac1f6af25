package visitor

import "github.com/dhamidi/kiln/classfile"

// StackMapFrameVisitor receives the frames of a StackMapTable with their
// absolute offsets.
type StackMapFrameVisitor interface {
	VisitSameFrame(ctx CodeContext, offset int, f *classfile.StackMapFrame)
	VisitSameLocals1StackItemFrame(ctx CodeContext, offset int, f *classfile.StackMapFrame)
	VisitChopFrame(ctx CodeContext, offset int, f *classfile.StackMapFrame)
	VisitAppendFrame(ctx CodeContext, offset int, f *classfile.StackMapFrame)
	VisitFullFrame(ctx CodeContext, offset int, f *classfile.StackMapFrame)
}

type NopStackMapFrameVisitor struct{}

func (NopStackMapFrameVisitor) VisitSameFrame(CodeContext, int, *classfile.StackMapFrame) {}
func (NopStackMapFrameVisitor) VisitSameLocals1StackItemFrame(CodeContext, int, *classfile.StackMapFrame) {
}
func (NopStackMapFrameVisitor) VisitChopFrame(CodeContext, int, *classfile.StackMapFrame)   {}
func (NopStackMapFrameVisitor) VisitAppendFrame(CodeContext, int, *classfile.StackMapFrame) {}
func (NopStackMapFrameVisitor) VisitFullFrame(CodeContext, int, *classfile.StackMapFrame)   {}

// StackMapFramesAccept visits every frame of table. The first frame is at
// its delta, each later frame at the previous offset plus delta plus one.
func StackMapFramesAccept(ctx CodeContext, table *classfile.StackMapTableAttribute, v StackMapFrameVisitor) {
	offset := -1
	for i := range table.Entries {
		f := &table.Entries[i]
		offset += int(f.OffsetDelta) + 1
		switch f.Kind() {
		case classfile.FrameSame:
			v.VisitSameFrame(ctx, offset, f)
		case classfile.FrameSameLocals1StackItem:
			v.VisitSameLocals1StackItemFrame(ctx, offset, f)
		case classfile.FrameChop:
			v.VisitChopFrame(ctx, offset, f)
		case classfile.FrameAppend:
			v.VisitAppendFrame(ctx, offset, f)
		default:
			v.VisitFullFrame(ctx, offset, f)
		}
	}
}

// VerificationTypesAccept calls fn for every verification type of f.
func VerificationTypesAccept(f *classfile.StackMapFrame, fn func(t *classfile.VerificationType)) {
	for i := range f.Locals {
		fn(&f.Locals[i])
	}
	for i := range f.Stack {
		fn(&f.Stack[i])
	}
}
