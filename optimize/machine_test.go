package optimize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/instruction"
	"github.com/dhamidi/kiln/program"
)

func encode(insns ...instruction.Instruction) []byte {
	var code []byte
	for _, insn := range insns {
		offset := len(code)
		code = append(code, make([]byte, insn.Length(offset))...)
		insn.Write(code, offset)
	}
	return code
}

func simple(op instruction.Opcode) *instruction.Simple { return &instruction.Simple{Op: op} }

func branch(op instruction.Opcode, offset int32) *instruction.Branch {
	return &instruction.Branch{Op: op, Offset: offset}
}

func invoke(op instruction.Opcode, index uint16) *instruction.ConstantRef {
	return &instruction.ConstantRef{Op: op, Index: index}
}

// machine runs int-only static methods of a set of classes. It checks the
// operand stack and locals against the limits of each Code attribute.
type machine struct {
	t       *testing.T
	classes map[string]*classfile.ClassFile
	calls   int
}

func newMachine(t *testing.T, classes ...*classfile.ClassFile) *machine {
	m := &machine{t: t, classes: make(map[string]*classfile.ClassFile)}
	for _, cf := range classes {
		m.classes[cf.ClassName()] = cf
	}
	return m
}

func (m *machine) call(class, name, desc string, args ...int32) int32 {
	m.t.Helper()
	cf := m.classes[class]
	require.NotNil(m.t, cf, "class %s", class)
	method := cf.GetMethod(name, desc)
	require.NotNil(m.t, method, "method %s.%s%s", class, name, desc)
	v, err := m.run(cf, method, args)
	require.NoError(m.t, err)
	return v
}

func (m *machine) run(cf *classfile.ClassFile, method *classfile.MethodInfo, args []int32) (int32, error) {
	m.calls++
	if m.calls > 10000 {
		return 0, fmt.Errorf("too many calls")
	}
	code := method.GetCodeAttribute(cf.ConstantPool)
	locals := make([]int32, code.MaxLocals)
	if len(args) > len(locals) {
		return 0, fmt.Errorf("%d arguments for %d locals", len(args), len(locals))
	}
	copy(locals, args)
	var stack []int32
	push := func(v int32) error {
		if len(stack) >= int(code.MaxStack) {
			return fmt.Errorf("stack overflow, max %d", code.MaxStack)
		}
		stack = append(stack, v)
		return nil
	}
	pop := func() int32 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	compare := func(op instruction.Opcode, a, b int32) bool {
		switch op {
		case instruction.OpIfeq, instruction.OpIfIcmpeq:
			return a == b
		case instruction.OpIfne, instruction.OpIfIcmpne:
			return a != b
		case instruction.OpIflt, instruction.OpIfIcmplt:
			return a < b
		case instruction.OpIfge, instruction.OpIfIcmpge:
			return a >= b
		case instruction.OpIfgt, instruction.OpIfIcmpgt:
			return a > b
		}
		return a <= b
	}

	for pc, steps := 0, 0; ; steps++ {
		if steps > 100000 {
			return 0, fmt.Errorf("too many steps")
		}
		insn, err := instruction.Decode(code.Code, pc)
		if err != nil {
			return 0, err
		}
		next := pc + insn.Length(pc)
		switch i := insn.(type) {
		case *instruction.Simple:
			switch op := i.Op; {
			case op >= instruction.OpIconstM1 && op <= instruction.OpIconst5, op == instruction.OpBipush, op == instruction.OpSipush:
				err = push(i.Constant)
			case op == instruction.OpNop:
			case op == instruction.OpPop:
				pop()
			case op == instruction.OpPop2:
				pop()
				pop()
			case op == instruction.OpDup:
				v := pop()
				stack = append(stack, v)
				err = push(v)
			case op == instruction.OpIneg:
				err = push(-pop())
			case op == instruction.OpIadd, op == instruction.OpIsub, op == instruction.OpImul:
				b, a := pop(), pop()
				switch op {
				case instruction.OpIadd:
					err = push(a + b)
				case instruction.OpIsub:
					err = push(a - b)
				default:
					err = push(a * b)
				}
			case op == instruction.OpIreturn:
				return pop(), nil
			case op == instruction.OpReturn:
				return 0, nil
			default:
				return 0, fmt.Errorf("unsupported %s at %d", i, pc)
			}
		case *instruction.Variable:
			switch i.BaseOp() {
			case instruction.OpIload:
				err = push(locals[i.Index])
			case instruction.OpIstore:
				locals[i.Index] = pop()
			case instruction.OpIinc:
				locals[i.Index] += int32(i.Constant)
			default:
				return 0, fmt.Errorf("unsupported %s at %d", i, pc)
			}
		case *instruction.Branch:
			switch {
			case i.Op == instruction.OpGoto || i.Op == instruction.OpGotoW:
				next = pc + int(i.Offset)
			case i.Op >= instruction.OpIfeq && i.Op <= instruction.OpIfle:
				if compare(i.Op, pop(), 0) {
					next = pc + int(i.Offset)
				}
			case i.Op >= instruction.OpIfIcmpeq && i.Op <= instruction.OpIfIcmple:
				b, a := pop(), pop()
				if compare(i.Op, a, b) {
					next = pc + int(i.Offset)
				}
			default:
				return 0, fmt.Errorf("unsupported %s at %d", i, pc)
			}
		case *instruction.ConstantRef:
			switch i.Op {
			case instruction.OpLdc, instruction.OpLdcW:
				v, ok := cf.ConstantPool.GetInteger(i.Index)
				if !ok {
					return 0, fmt.Errorf("ldc of non-integer #%d", i.Index)
				}
				err = push(v)
			case instruction.OpInvokestatic:
				class, name, desc, _ := cf.ConstantPool.GetRef(i.Index)
				callee := m.classes[class]
				if callee == nil || callee.GetMethod(name, desc) == nil {
					return 0, fmt.Errorf("no method %s.%s%s", class, name, desc)
				}
				args := make([]int32, classfile.ParameterSize(desc))
				for j := len(args) - 1; j >= 0; j-- {
					args[j] = pop()
				}
				v, err := m.run(callee, callee.GetMethod(name, desc), args)
				if err != nil {
					return 0, err
				}
				if classfile.ReturnType(desc) != "V" {
					err = push(v)
				}
				if err != nil {
					return 0, err
				}
			default:
				return 0, fmt.Errorf("unsupported %s at %d", i, pc)
			}
		default:
			return 0, fmt.Errorf("unsupported %s at %d", insn, pc)
		}
		if err != nil {
			return 0, fmt.Errorf("%s at %d: %w", insn, pc, err)
		}
		pc = next
	}
}

// opcodes lists the opcodes of code in order.
func opcodes(t *testing.T, code []byte) []instruction.Opcode {
	t.Helper()
	located, err := instruction.DecodeAll(code)
	require.NoError(t, err)
	ops := make([]instruction.Opcode, len(located))
	for i, l := range located {
		ops[i] = l.Instruction.Opcode()
	}
	return ops
}

func methodCode(cf *classfile.ClassFile, name, desc string) (*classfile.MethodInfo, *classfile.CodeAttribute) {
	m := cf.GetMethod(name, desc)
	return m, m.GetCodeAttribute(cf.ConstantPool)
}

func programPool(classes ...*classfile.ClassFile) *program.Pool {
	pool := program.NewPool()
	for _, cf := range classes {
		pool.Add(cf, cf.ClassName()+".class", false)
	}
	return pool
}
