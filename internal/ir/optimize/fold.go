package optimize

import (
	"math"

	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
	"github.com/aerojs/aerojs-core/internal/rt/value"
)

// FoldConstants implements original_source's RunConstantFolding: any
// arithmetic or comparison instruction whose operands both trace back to
// an OpConst numeric literal is replaced by a single OpConst holding the
// computed result, resolving the actual pool values through chunk
// (the IR arena itself carries only a pool index, per spec §4.3).
func FoldConstants(fn *ir.Function, chunk *bytecode.Chunk) bool {
	changed := false
	defs := defIndex(fn)

	for i := range fn.Instrs {
		instr := &fn.Instrs[i]
		if !instr.HasResult || len(instr.Operands) == 0 {
			continue
		}
		lit, ok := tryFold(fn, chunk, defs, instr)
		if !ok {
			continue
		}
		poolIdx := chunk.AddConstant(lit)
		instr.Op = ir.OpConst
		instr.Operands = []ir.Operand{ir.MemoryOperand(uint32(poolIdx))}
		instr.Type = classifyLiteral(lit)
		changed = true
	}

	return changed
}

func tryFold(fn *ir.Function, chunk *bytecode.Chunk, defs map[ir.VReg]int, instr *ir.Instr) (value.Value, bool) {
	switch instr.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod, ir.OpPow,
		ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor, ir.OpShl, ir.OpShr, ir.OpUShr,
		ir.OpEqual, ir.OpNotEqual, ir.OpStrictEqual, ir.OpStrictNotEqual,
		ir.OpLess, ir.OpLessEqual, ir.OpGreater, ir.OpGreaterEqual:
		if len(instr.Operands) != 2 {
			return value.Value{}, false
		}
		a, ok := operandConst(fn, chunk, defs, instr.Operands[0])
		if !ok {
			return value.Value{}, false
		}
		b, ok := operandConst(fn, chunk, defs, instr.Operands[1])
		if !ok {
			return value.Value{}, false
		}
		return foldBinary(instr.Op, a, b)
	case ir.OpNeg, ir.OpBitNot:
		if len(instr.Operands) != 1 {
			return value.Value{}, false
		}
		a, ok := operandConst(fn, chunk, defs, instr.Operands[0])
		if !ok {
			return value.Value{}, false
		}
		return foldUnary(instr.Op, a)
	default:
		return value.Value{}, false
	}
}

func operandConst(fn *ir.Function, chunk *bytecode.Chunk, defs map[ir.VReg]int, op ir.Operand) (value.Value, bool) {
	if op.Kind != ir.OperandVReg {
		return value.Value{}, false
	}
	idx, ok := constDef(fn, defs, op.VReg)
	if !ok {
		return value.Value{}, false
	}
	if int(idx) >= len(chunk.Constants) {
		return value.Value{}, false
	}
	v := chunk.Constants[idx]
	if !v.IsNumber() {
		return value.Value{}, false
	}
	return v, true
}

// foldBinary evaluates a numeric binary opcode the way the bytecode
// interpreter would at runtime (spec §4.1 ToNumber semantics): bitwise
// and shift ops operate on the ToInt32 truncation, arithmetic operates
// on float64, comparisons return a boolean Value.
func foldBinary(op ir.Opcode, a, b value.Value) (value.Value, bool) {
	switch op {
	case ir.OpAdd:
		return numericResult(a, b, a.AsFloat64()+b.AsFloat64()), true
	case ir.OpSub:
		return numericResult(a, b, a.AsFloat64()-b.AsFloat64()), true
	case ir.OpMul:
		return numericResult(a, b, a.AsFloat64()*b.AsFloat64()), true
	case ir.OpDiv:
		return value.Float64(a.AsFloat64() / b.AsFloat64()), true
	case ir.OpMod:
		return value.Float64(math.Mod(a.AsFloat64(), b.AsFloat64())), true
	case ir.OpPow:
		return value.Float64(math.Pow(a.AsFloat64(), b.AsFloat64())), true
	case ir.OpBitAnd:
		return value.Int32(toInt32(a) & toInt32(b)), true
	case ir.OpBitOr:
		return value.Int32(toInt32(a) | toInt32(b)), true
	case ir.OpBitXor:
		return value.Int32(toInt32(a) ^ toInt32(b)), true
	case ir.OpShl:
		return value.Int32(toInt32(a) << (uint32(toInt32(b)) & 31)), true
	case ir.OpShr:
		return value.Int32(toInt32(a) >> (uint32(toInt32(b)) & 31)), true
	case ir.OpUShr:
		return value.Int32(int32(uint32(toInt32(a)) >> (uint32(toInt32(b)) & 31))), true
	case ir.OpEqual, ir.OpStrictEqual:
		return value.Bool(a.StrictEquals(b)), true
	case ir.OpNotEqual, ir.OpStrictNotEqual:
		return value.Bool(!a.StrictEquals(b)), true
	case ir.OpLess:
		return value.Bool(a.AsFloat64() < b.AsFloat64()), true
	case ir.OpLessEqual:
		return value.Bool(a.AsFloat64() <= b.AsFloat64()), true
	case ir.OpGreater:
		return value.Bool(a.AsFloat64() > b.AsFloat64()), true
	case ir.OpGreaterEqual:
		return value.Bool(a.AsFloat64() >= b.AsFloat64()), true
	default:
		return value.Value{}, false
	}
}

func foldUnary(op ir.Opcode, a value.Value) (value.Value, bool) {
	switch op {
	case ir.OpNeg:
		return value.Float64(-a.AsFloat64()), true
	case ir.OpBitNot:
		return value.Int32(^toInt32(a)), true
	default:
		return value.Value{}, false
	}
}

// numericResult narrows an arithmetic result back to Int32 when both
// inputs were Int32 and the exact result still fits, matching the Smi
// fast path spec §4.5's type analyzer also narrows to; otherwise it
// stays a float64, since JS arithmetic is float64-valued in general.
func numericResult(a, b value.Value, f float64) value.Value {
	if a.IsInt32() && b.IsInt32() && f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
		return value.Int32(int32(f))
	}
	return value.Float64(f)
}

func toInt32(v value.Value) int32 {
	if v.IsInt32() {
		return v.AsInt32()
	}
	f := v.AsFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(f)))
}

func classifyLiteral(v value.Value) ir.Type {
	switch {
	case v.IsInt32():
		return ir.TypeInt32
	case v.IsBool():
		return ir.TypeBoolean
	default:
		return ir.TypeFloat64
	}
}
