package instruction

import (
	"encoding/binary"
	"fmt"

	"github.com/dhamidi/kiln/classfile"
)

func decodeError(offset int, format string, args ...interface{}) error {
	return &classfile.FormatError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// Decode reads the instruction at offset.
func Decode(code []byte, offset int) (Instruction, error) {
	if offset < 0 || offset >= len(code) {
		return nil, decodeError(offset, "instruction offset out of range")
	}
	op := Opcode(code[offset])
	if !op.IsValid() {
		return nil, decodeError(offset, "invalid opcode 0x%02X", byte(op))
	}
	need := func(n int) error {
		if offset+n > len(code) {
			return decodeError(offset, "truncated %s", op)
		}
		return nil
	}
	u1 := func(at int) int { return int(code[offset+at]) }
	s1 := func(at int) int32 { return int32(int8(code[offset+at])) }
	u2 := func(at int) uint16 { return binary.BigEndian.Uint16(code[offset+at:]) }
	s2 := func(at int) int32 { return int32(int16(binary.BigEndian.Uint16(code[offset+at:]))) }
	s4 := func(at int) int32 { return int32(binary.BigEndian.Uint32(code[offset+at:])) }

	switch {
	case op == OpBipush || op == OpNewarray:
		if err := need(2); err != nil {
			return nil, err
		}
		return &Simple{Op: op, Constant: s1(1)}, nil
	case op == OpSipush:
		if err := need(3); err != nil {
			return nil, err
		}
		return &Simple{Op: op, Constant: s2(1)}, nil
	case op >= OpIconstM1 && op <= OpIconst5:
		return &Simple{Op: op, Constant: int32(op) - int32(OpIconst0)}, nil
	case op >= OpLconst0 && op <= OpLconst1:
		return &Simple{Op: op, Constant: int32(op - OpLconst0)}, nil
	case op >= OpFconst0 && op <= OpFconst2:
		return &Simple{Op: op, Constant: int32(op - OpFconst0)}, nil
	case op >= OpDconst0 && op <= OpDconst1:
		return &Simple{Op: op, Constant: int32(op - OpDconst0)}, nil

	case op == OpLdc:
		if err := need(2); err != nil {
			return nil, err
		}
		return &ConstantRef{Op: op, Index: uint16(u1(1))}, nil
	case op == OpLdcW || op == OpLdc2W ||
		(op >= OpGetstatic && op <= OpInvokestatic) ||
		op == OpNew || op == OpAnewarray || op == OpCheckcast || op == OpInstanceof:
		if err := need(3); err != nil {
			return nil, err
		}
		return &ConstantRef{Op: op, Index: u2(1)}, nil
	case op == OpInvokeinterface:
		if err := need(5); err != nil {
			return nil, err
		}
		return &ConstantRef{Op: op, Index: u2(1), Constant: u1(3)}, nil
	case op == OpInvokedynamic:
		if err := need(5); err != nil {
			return nil, err
		}
		return &ConstantRef{Op: op, Index: u2(1)}, nil
	case op == OpMultianewarray:
		if err := need(4); err != nil {
			return nil, err
		}
		return &ConstantRef{Op: op, Index: u2(1), Constant: u1(3)}, nil

	case op >= OpIload0 && op <= OpAload3:
		return &Variable{Op: op, Index: int(op-OpIload0) % 4}, nil
	case op >= OpIstore0 && op <= OpAstore3:
		return &Variable{Op: op, Index: int(op-OpIstore0) % 4}, nil
	case (op >= OpIload && op <= OpAload) || (op >= OpIstore && op <= OpAstore) || op == OpRet:
		if err := need(2); err != nil {
			return nil, err
		}
		return &Variable{Op: op, Index: u1(1)}, nil
	case op == OpIinc:
		if err := need(3); err != nil {
			return nil, err
		}
		return &Variable{Op: op, Index: u1(1), Constant: int(s1(2))}, nil
	case op == OpWide:
		if err := need(2); err != nil {
			return nil, err
		}
		wideOp := Opcode(code[offset+1])
		switch {
		case wideOp == OpIinc:
			if err := need(6); err != nil {
				return nil, err
			}
			return &Variable{Op: wideOp, Index: int(u2(2)), Constant: int(s2(4)), Wide: true}, nil
		case (wideOp >= OpIload && wideOp <= OpAload) || (wideOp >= OpIstore && wideOp <= OpAstore) || wideOp == OpRet:
			if err := need(4); err != nil {
				return nil, err
			}
			return &Variable{Op: wideOp, Index: int(u2(2)), Wide: true}, nil
		}
		return nil, decodeError(offset, "invalid wide opcode 0x%02X", byte(wideOp))

	case (op >= OpIfeq && op <= OpJsr) || op == OpIfnull || op == OpIfnonnull:
		if err := need(3); err != nil {
			return nil, err
		}
		return &Branch{Op: op, Offset: s2(1)}, nil
	case op == OpGotoW || op == OpJsrW:
		if err := need(5); err != nil {
			return nil, err
		}
		return &Branch{Op: op, Offset: s4(1)}, nil

	case op == OpTableswitch:
		pos := 1 + switchPadding(offset)
		if err := need(pos + 12); err != nil {
			return nil, err
		}
		s := &TableSwitch{Default: s4(pos), Low: s4(pos + 4), High: s4(pos + 8)}
		if s.High < s.Low {
			return nil, decodeError(offset, "tableswitch high %d below low %d", s.High, s.Low)
		}
		count := int(int64(s.High) - int64(s.Low) + 1)
		if err := need(pos + 12 + 4*count); err != nil {
			return nil, err
		}
		s.Offsets = make([]int32, count)
		for i := range s.Offsets {
			s.Offsets[i] = s4(pos + 12 + 4*i)
		}
		return s, nil
	case op == OpLookupswitch:
		pos := 1 + switchPadding(offset)
		if err := need(pos + 8); err != nil {
			return nil, err
		}
		count := s4(pos + 4)
		if count < 0 {
			return nil, decodeError(offset, "negative lookupswitch pair count")
		}
		if err := need(pos + 8 + 8*int(count)); err != nil {
			return nil, err
		}
		s := &LookupSwitch{Default: s4(pos), Keys: make([]int32, count), Offsets: make([]int32, count)}
		for i := range s.Keys {
			s.Keys[i] = s4(pos + 8 + 8*i)
			s.Offsets[i] = s4(pos + 12 + 8*i)
		}
		return s, nil
	}

	return &Simple{Op: op}, nil
}

// Located pairs an instruction with its offset in the code buffer.
type Located struct {
	Offset      int
	Instruction Instruction
}

// DecodeAll decodes a whole code buffer in order.
func DecodeAll(code []byte) ([]Located, error) {
	var insns []Located
	for offset := 0; offset < len(code); {
		insn, err := Decode(code, offset)
		if err != nil {
			return nil, err
		}
		insns = append(insns, Located{Offset: offset, Instruction: insn})
		offset += insn.Length(offset)
	}
	return insns, nil
}

// Boundaries marks the offsets at which an instruction starts. The end of
// the code is marked as well, since exception ranges may end there.
func Boundaries(code []byte) ([]bool, error) {
	marks := make([]bool, len(code)+1)
	marks[len(code)] = true
	for offset := 0; offset < len(code); {
		insn, err := Decode(code, offset)
		if err != nil {
			return nil, err
		}
		marks[offset] = true
		offset += insn.Length(offset)
	}
	return marks, nil
}
