package optimize

import (
	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
	"github.com/aerojs/aerojs-core/internal/rt/value"
)

// CombineInstructions implements original_source's
// RunInstructionCombining: algebraic identities with exactly one
// constant operand, where the whole instruction collapses to its other
// operand (x+0, x*1, x|0 or x^0 on an already-int32 x, x-0, x<<0) or to a
// constant regardless of the other operand's value (x*0, x&0). Two
// fully constant operands are FoldConstants' job, not this pass's.
func CombineInstructions(fn *ir.Function, chunk *bytecode.Chunk) bool {
	changed := false
	defs := defIndex(fn)

	for i := range fn.Instrs {
		instr := &fn.Instrs[i]
		if !instr.HasResult || len(instr.Operands) != 2 {
			continue
		}
		lhsConst, lhsOK := operandConst(fn, chunk, defs, instr.Operands[0])
		rhsConst, rhsOK := operandConst(fn, chunk, defs, instr.Operands[1])
		if lhsOK == rhsOK {
			continue // either both constant (fold's job) or neither (nothing to do)
		}

		var variable ir.Operand
		var known value.Value
		var knownIsLHS bool
		if lhsOK {
			known, variable, knownIsLHS = lhsConst, instr.Operands[1], true
		} else {
			known, variable, knownIsLHS = rhsConst, instr.Operands[0], false
		}

		if lit, isZero := identityResult(instr.Op, known, knownIsLHS); isZero {
			poolIdx := chunk.AddConstant(lit)
			instr.Op = ir.OpConst
			instr.Operands = []ir.Operand{ir.MemoryOperand(uint32(poolIdx))}
			instr.Type = classifyLiteral(lit)
			changed = true
			continue
		}

		if passesThrough(instr.Op, known, knownIsLHS) && variable.Kind == ir.OperandVReg {
			if instr.Op == ir.OpBitOr || instr.Op == ir.OpBitXor {
				if d, ok := defs[variable.VReg]; !ok || fn.Instr(d).Type != ir.TypeInt32 {
					continue
				}
			}
			rewriteOperands(fn, instr.Result, variable.VReg)
			removeInstr(fn, i)
			changed = true
		}
	}

	return changed
}

// identityResult reports the cases where the result is a fixed constant
// regardless of the other, unknown operand.
func identityResult(op ir.Opcode, known value.Value, knownIsLHS bool) (value.Value, bool) {
	if known.IsNumber() && known.AsFloat64() == 0 {
		switch op {
		case ir.OpMul:
			return value.Int32(0), true
		case ir.OpBitAnd:
			return value.Int32(0), true
		case ir.OpDiv:
			if !knownIsLHS {
				return value.Value{}, false // x/0 is not foldable without NaN/Inf semantics here
			}
			return value.Int32(0), true
		}
	}
	return value.Value{}, false
}

// passesThrough reports the cases where the instruction's result equals
// its non-constant operand unchanged.
func passesThrough(op ir.Opcode, known value.Value, knownIsLHS bool) bool {
	if !known.IsNumber() {
		return false
	}
	f := known.AsFloat64()
	switch op {
	case ir.OpAdd:
		return f == 0
	case ir.OpSub:
		return f == 0 && !knownIsLHS
	case ir.OpMul:
		return f == 1
	case ir.OpBitOr, ir.OpBitXor:
		return f == 0
	case ir.OpShl, ir.OpShr, ir.OpUShr:
		return f == 0 && !knownIsLHS
	default:
		return false
	}
}
