package optimize

import "github.com/aerojs/aerojs-core/internal/ir"

// defIndex maps every defined virtual register to the arena index of
// its defining instruction, the use-def half of the chains
// ir_optimizer.cpp builds once per run (BuildUseDefChains) and every
// pass here recomputes cheaply rather than caching across passes, since
// passes mutate the function between runs.
func defIndex(fn *ir.Function) map[ir.VReg]int {
	out := make(map[ir.VReg]int)
	for i := range fn.Instrs {
		if fn.Instrs[i].HasResult {
			out[fn.Instrs[i].Result] = i
		}
	}
	return out
}

// constDef resolves reg to its defining OpConst instruction's constant
// pool index, if reg is defined by a constant load at all.
func constDef(fn *ir.Function, defs map[ir.VReg]int, reg ir.VReg) (uint32, bool) {
	idx, ok := defs[reg]
	if !ok {
		return 0, false
	}
	instr := fn.Instr(idx)
	if instr.Op != ir.OpConst || len(instr.Operands) == 0 {
		return 0, false
	}
	return instr.Operands[0].Memory, true
}

// isPure reports whether op can be deleted when its result is unused
// and can be reordered freely by CSE/LICM: no observable side effect
// beyond producing its result.
func isPure(op ir.Opcode) bool {
	switch op {
	case ir.OpConst,
		ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod, ir.OpPow, ir.OpNeg,
		ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor, ir.OpBitNot, ir.OpShl, ir.OpShr, ir.OpUShr,
		ir.OpEqual, ir.OpNotEqual, ir.OpStrictEqual, ir.OpStrictNotEqual,
		ir.OpLess, ir.OpLessEqual, ir.OpGreater, ir.OpGreaterEqual,
		ir.OpTypeof, ir.OpToNumber, ir.OpLoadLocal, ir.OpLoadGlobal:
		return true
	default:
		return false
	}
}

// rewriteOperands replaces every VReg operand in fn's instructions and
// phis equal to from with to.
func rewriteOperands(fn *ir.Function, from, to ir.VReg) {
	for i := range fn.Instrs {
		ops := fn.Instrs[i].Operands
		for j := range ops {
			if ops[j].Kind == ir.OperandVReg && ops[j].VReg == from {
				ops[j].VReg = to
			}
		}
	}
	for bi := range fn.Blocks {
		phis := fn.Blocks[bi].Phis
		for pi := range phis {
			for ii := range phis[pi].Incoming {
				if phis[pi].Incoming[ii].Src == from {
					phis[pi].Incoming[ii].Src = to
				}
			}
		}
	}
}

// countUses counts every operand and phi-incoming reference to each
// register across the whole function.
func countUses(fn *ir.Function) map[ir.VReg]int {
	uses := make(map[ir.VReg]int)
	for i := range fn.Instrs {
		for _, op := range fn.Instrs[i].Operands {
			if op.Kind == ir.OperandVReg {
				uses[op.VReg]++
			}
		}
	}
	for bi := range fn.Blocks {
		for _, phi := range fn.Blocks[bi].Phis {
			for _, inc := range phi.Incoming {
				uses[inc.Src]++
			}
		}
	}
	return uses
}

// removeInstr replaces fn.Instrs[idx] with a no-op and drops its index
// from every block's instruction list. The arena itself never shrinks
// (other indices must stay valid), matching the "arena is never
// compacted mid-pass" discipline the builder already relies on.
func removeInstr(fn *ir.Function, idx int) {
	fn.Instrs[idx] = ir.Instr{Op: ir.OpNoOp}
	for bi := range fn.Blocks {
		instrs := fn.Blocks[bi].Instrs
		for i, ii := range instrs {
			if ii == idx {
				fn.Blocks[bi].Instrs = append(instrs[:i], instrs[i+1:]...)
				return
			}
		}
	}
}
