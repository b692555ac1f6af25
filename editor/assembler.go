// Package editor rewrites method bodies.
//
// Editor stages edits against the existing instructions of a method and
// replays them in one pass. Composer builds a new body from fragments of
// instructions, each in its own offset space. Both lay out the final code
// with the same assembler, which widens goto and jsr as needed and maps
// every label to its final offset.
package editor

import (
	"fmt"
	"math"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
)

const maxCodeLength = math.MaxUint16

const noLabel = -1

// item is an instruction or, when insn is nil, a label marking the
// position of the next instruction.
type item struct {
	insn  instruction.Instruction
	label int
	// Branch and switch targets as label ids, default target first.
	targets []int
}

type assembler struct {
	items  []item
	labels int
}

func (a *assembler) reset(labels int) {
	a.items = a.items[:0]
	a.labels = labels
}

func (a *assembler) newLabel() int {
	a.labels++
	return a.labels - 1
}

func (a *assembler) mark(label int) {
	a.items = append(a.items, item{label: label})
}

func (a *assembler) emit(insn instruction.Instruction, targets []int) {
	a.items = append(a.items, item{insn: insn, label: noLabel, targets: targets})
}

// assemble lays out the items and encodes them. It returns the code and
// the final offset of every label, -1 for labels never marked.
func (a *assembler) assemble() ([]byte, []int, error) {
	offsets := make([]int, len(a.items))
	labelOffsets := make([]int, a.labels)
	length := 0
	for {
		for i := range labelOffsets {
			labelOffsets[i] = -1
		}
		length = 0
		for i, it := range a.items {
			offsets[i] = length
			if it.insn == nil {
				if labelOffsets[it.label] < 0 {
					labelOffsets[it.label] = length
				}
				continue
			}
			length += it.insn.Length(length)
		}

		widened := false
		for i, it := range a.items {
			b, ok := it.insn.(*instruction.Branch)
			if !ok {
				continue
			}
			target := labelOffsets[it.targets[0]]
			if target < 0 {
				panic(classfile.Invariantf("branch at %d targets an unplaced label", offsets[i]))
			}
			rel := target - offsets[i]
			if rel >= math.MinInt16 && rel <= math.MaxInt16 {
				continue
			}
			switch b.Op {
			case instruction.OpGoto:
				b.Op = instruction.OpGotoW
				widened = true
			case instruction.OpJsr:
				b.Op = instruction.OpJsrW
				widened = true
			case instruction.OpGotoW, instruction.OpJsrW:
			default:
				return nil, nil, fmt.Errorf("%s at offset %d cannot reach offset %d", b.Op, offsets[i], target)
			}
		}
		if !widened {
			break
		}
	}
	if length > maxCodeLength {
		return nil, nil, fmt.Errorf("code length %d exceeds %d bytes", length, maxCodeLength)
	}

	code := make([]byte, length)
	for i, it := range a.items {
		if it.insn == nil {
			continue
		}
		rel := func(j int) int32 {
			target := labelOffsets[it.targets[j]]
			if target < 0 {
				panic(classfile.Invariantf("instruction at %d targets an unplaced label", offsets[i]))
			}
			return int32(target - offsets[i])
		}
		switch insn := it.insn.(type) {
		case *instruction.Branch:
			insn.Offset = rel(0)
		case *instruction.TableSwitch:
			insn.Default = rel(0)
			for j := range insn.Offsets {
				insn.Offsets[j] = rel(j + 1)
			}
		case *instruction.LookupSwitch:
			insn.Default = rel(0)
			for j := range insn.Offsets {
				insn.Offsets[j] = rel(j + 1)
			}
		}
		it.insn.Write(code, offsets[i])
	}
	return code, labelOffsets, nil
}

// prepare copies an instruction queued by a caller and switches it to its
// smallest encoding. Branches start short and are widened by assemble.
func prepare(insn instruction.Instruction) instruction.Instruction {
	insn = instruction.Clone(insn)
	if b, ok := insn.(*instruction.Branch); ok {
		switch b.Op {
		case instruction.OpGotoW:
			b.Op = instruction.OpGoto
		case instruction.OpJsrW:
			b.Op = instruction.OpJsr
		}
		return b
	}
	return insn.Shrink()
}

// relativeTargets lists the targets of insn relative to its own offset,
// default target first, or nil if it does not branch.
func relativeTargets(insn instruction.Instruction) []int {
	return instruction.Targets(insn, 0)
}
