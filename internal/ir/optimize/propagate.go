package optimize

import (
	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
)

// PropagateConstants implements original_source's RunConstantPropagation
// for the one place constant-ness can cross a block boundary in this
// IR's SSA-lite form: a phi whose incoming values are every one of them
// the same constant pool entry is itself a constant, regardless of
// which predecessor control actually came from. The phi is replaced
// with a materialized OpConst at the head of the merge block that takes
// over the phi's result register, so every use reads it unchanged.
func PropagateConstants(fn *ir.Function, chunk *bytecode.Chunk) bool {
	changed := false
	defs := defIndex(fn)

	for bi := range fn.Blocks {
		b := &fn.Blocks[bi]
		kept := b.Phis[:0]
		for _, phi := range b.Phis {
			poolIdx, ok := samePhiConstant(fn, chunk, defs, phi)
			if !ok {
				kept = append(kept, phi)
				continue
			}
			newIdx := fn.AddInstr(b.ID, ir.Instr{
				Op: ir.OpConst, Result: phi.Result, HasResult: true,
				Type: phi.Type, Operands: []ir.Operand{ir.MemoryOperand(poolIdx)},
			})
			// Move the materialized const to the front of the block so
			// it dominates every existing use textually, matching where
			// the phi itself used to live.
			b.Instrs = append([]int{newIdx}, b.Instrs[:len(b.Instrs)-1]...)
			changed = true
		}
		b.Phis = kept
	}

	return changed
}

func samePhiConstant(fn *ir.Function, chunk *bytecode.Chunk, defs map[ir.VReg]int, phi ir.Phi) (uint32, bool) {
	if len(phi.Incoming) == 0 {
		return 0, false
	}
	var poolIdx uint32
	for i, inc := range phi.Incoming {
		idx, ok := constDef(fn, defs, inc.Src)
		if !ok {
			return 0, false
		}
		if int(idx) >= len(chunk.Constants) {
			return 0, false
		}
		if i == 0 {
			poolIdx = idx
			continue
		}
		if !chunk.Constants[idx].StrictEquals(chunk.Constants[poolIdx]) {
			return 0, false
		}
	}
	return poolIdx, true
}
