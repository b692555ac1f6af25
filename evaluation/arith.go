package evaluation

import (
	"math"

	"github.com/dhamidi/kiln/instruction"
)

// Folding follows the JVM rules: integer arithmetic wraps, shifts mask
// their distance, division by an integer zero is not folded since it
// throws.

func foldInt(op instruction.Opcode, a, b int32) (int32, bool) {
	switch op {
	case instruction.OpIadd:
		return a + b, true
	case instruction.OpIsub:
		return a - b, true
	case instruction.OpImul:
		return a * b, true
	case instruction.OpIdiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case instruction.OpIrem:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case instruction.OpIshl:
		return a << (uint32(b) & 31), true
	case instruction.OpIshr:
		return a >> (uint32(b) & 31), true
	case instruction.OpIushr:
		return int32(uint32(a) >> (uint32(b) & 31)), true
	case instruction.OpIand:
		return a & b, true
	case instruction.OpIor:
		return a | b, true
	case instruction.OpIxor:
		return a ^ b, true
	}
	return 0, false
}

func foldLong(op instruction.Opcode, a, b int64) (int64, bool) {
	switch op {
	case instruction.OpLadd:
		return a + b, true
	case instruction.OpLsub:
		return a - b, true
	case instruction.OpLmul:
		return a * b, true
	case instruction.OpLdiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case instruction.OpLrem:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case instruction.OpLand:
		return a & b, true
	case instruction.OpLor:
		return a | b, true
	case instruction.OpLxor:
		return a ^ b, true
	}
	return 0, false
}

func foldLongShift(op instruction.Opcode, a int64, b int32) int64 {
	n := uint32(b) & 63
	switch op {
	case instruction.OpLshl:
		return a << n
	case instruction.OpLshr:
		return a >> n
	}
	return int64(uint64(a) >> n)
}

func foldFloat(op instruction.Opcode, a, b float32) float32 {
	switch op {
	case instruction.OpFadd:
		return float32(a + b)
	case instruction.OpFsub:
		return float32(a - b)
	case instruction.OpFmul:
		return float32(a * b)
	case instruction.OpFdiv:
		return float32(a / b)
	}
	return float32(math.Mod(float64(a), float64(b)))
}

func foldDouble(op instruction.Opcode, a, b float64) float64 {
	switch op {
	case instruction.OpDadd:
		return float64(a + b)
	case instruction.OpDsub:
		return float64(a - b)
	case instruction.OpDmul:
		return float64(a * b)
	case instruction.OpDdiv:
		return float64(a / b)
	}
	return math.Mod(a, b)
}

func toInt(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

func toLong(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// convert folds the conversion instructions i2l through i2s.
func convert(op instruction.Opcode, v Value) Value {
	switch op {
	case instruction.OpI2l:
		return LongValue(int64(v.Int))
	case instruction.OpI2f:
		return FloatValue(float32(v.Int))
	case instruction.OpI2d:
		return DoubleValue(float64(v.Int))
	case instruction.OpL2i:
		return IntValue(int32(v.Long))
	case instruction.OpL2f:
		return FloatValue(float32(v.Long))
	case instruction.OpL2d:
		return DoubleValue(float64(v.Long))
	case instruction.OpF2i:
		return IntValue(toInt(float64(v.Float)))
	case instruction.OpF2l:
		return LongValue(toLong(float64(v.Float)))
	case instruction.OpF2d:
		return DoubleValue(float64(v.Float))
	case instruction.OpD2i:
		return IntValue(toInt(v.Double))
	case instruction.OpD2l:
		return LongValue(toLong(v.Double))
	case instruction.OpD2f:
		return FloatValue(float32(v.Double))
	case instruction.OpI2b:
		return IntValue(int32(int8(v.Int)))
	case instruction.OpI2c:
		return IntValue(int32(uint16(v.Int)))
	}
	return IntValue(int32(int16(v.Int)))
}

func conversionResult(op instruction.Opcode) Type {
	switch op {
	case instruction.OpI2l, instruction.OpF2l, instruction.OpD2l:
		return TypeLong
	case instruction.OpI2f, instruction.OpL2f, instruction.OpD2f:
		return TypeFloat
	case instruction.OpI2d, instruction.OpL2d, instruction.OpF2d:
		return TypeDouble
	}
	return TypeInt
}

func conversionOperand(op instruction.Opcode) Type {
	switch op {
	case instruction.OpL2i, instruction.OpL2f, instruction.OpL2d:
		return TypeLong
	case instruction.OpF2i, instruction.OpF2l, instruction.OpF2d:
		return TypeFloat
	case instruction.OpD2i, instruction.OpD2l, instruction.OpD2f:
		return TypeDouble
	}
	return TypeInt
}

func compareFloat(a, b float64, nan int32) int32 {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return nan
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareLong(a, b int64) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// branchTaken evaluates the condition of an if instruction comparing cmp
// with zero, cmp being the result of comparing the two operands.
func branchTaken(op instruction.Opcode, cmp int32) bool {
	switch op {
	case instruction.OpIfeq, instruction.OpIfIcmpeq, instruction.OpIfAcmpeq, instruction.OpIfnull:
		return cmp == 0
	case instruction.OpIfne, instruction.OpIfIcmpne, instruction.OpIfAcmpne, instruction.OpIfnonnull:
		return cmp != 0
	case instruction.OpIflt, instruction.OpIfIcmplt:
		return cmp < 0
	case instruction.OpIfge, instruction.OpIfIcmpge:
		return cmp >= 0
	case instruction.OpIfgt, instruction.OpIfIcmpgt:
		return cmp > 0
	}
	return cmp <= 0
}
