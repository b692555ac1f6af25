package evaluation

func (a *analysis) IsTraced(offset int) bool {
	return offset >= 0 && offset < len(a.before) && a.before[offset] != nil
}

func (a *analysis) frameBefore(offset int) *frame {
	if !a.IsTraced(offset) {
		return nil
	}
	return a.before[offset]
}

func (a *analysis) frameAfter(offset int) *frame {
	if !a.IsTraced(offset) {
		return nil
	}
	return a.after[offset]
}

func (a *analysis) StackSizeBefore(offset int) int {
	if f := a.frameBefore(offset); f != nil {
		return len(f.stack)
	}
	return 0
}

func stackAt(f *frame, depth int) Value {
	if f == nil || depth < 0 || depth >= len(f.stack) {
		return Value{}
	}
	return f.stack[len(f.stack)-1-depth]
}

func localAt(f *frame, slot int) Value {
	if f == nil || slot < 0 || slot >= len(f.locals) {
		return Value{}
	}
	return f.locals[slot]
}

func (a *analysis) StackBefore(offset, depth int) Value {
	return stackAt(a.frameBefore(offset), depth)
}

func (a *analysis) StackAfter(offset, depth int) Value {
	return stackAt(a.frameAfter(offset), depth)
}

func (a *analysis) LocalBefore(offset, slot int) Value {
	return localAt(a.frameBefore(offset), slot)
}

func (a *analysis) LocalAfter(offset, slot int) Value {
	return localAt(a.frameAfter(offset), slot)
}

func (a *analysis) LocalCount() int {
	if len(a.before) == 0 || a.before[0] == nil {
		return 0
	}
	return len(a.before[0].locals)
}

func (a *analysis) BranchTargets(offset int) []int {
	if !a.IsTraced(offset) {
		return nil
	}
	return a.targets[offset]
}

func (a *analysis) BranchOriginCount(offset int) int {
	if offset < 0 || offset >= len(a.origins) {
		return 0
	}
	return a.origins[offset]
}

// The evaluator rejects subroutines, so no offset starts one.

func (a *analysis) IsSubroutineStart(offset int) bool     { return false }
func (a *analysis) IsSubroutineReturning(offset int) bool { return false }
