package optimize

import (
	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
)

// HoistLoopInvariants implements original_source's
// RunLoopInvariantCodeMotion against the approximate loop shape this
// package's builder can express: detectLoopHeaders only marks the
// header block, so the loop body here is taken to be the contiguous
// block-id range from the header up to the highest-numbered predecessor
// that reaches back into it (the back-edge source) — valid for the
// structured for/while loops the bytecode compiler emits, where blocks
// are numbered in program order, but not a substitute for a real
// dominator-tree loop-nest analysis. A pure instruction inside the body
// (other than the header) whose operands are all defined outside the
// body range is hoisted into the loop's single predecessor outside the
// range (the preheader); loops without exactly one such predecessor are
// left alone rather than risk an unsafe motion.
func HoistLoopInvariants(fn *ir.Function, _ *bytecode.Chunk) bool {
	changed := false
	blockOfReg := regOwners(fn)

	for hi := range fn.Blocks {
		header := &fn.Blocks[hi]
		if !header.IsLoopHeader {
			continue
		}
		body, preheader, ok := loopShape(fn, header.ID)
		if !ok {
			continue
		}

		for bid := range body {
			if bid == header.ID {
				continue
			}
			if hoistBlock(fn, bid, body, preheader, blockOfReg) {
				changed = true
			}
		}
	}

	return changed
}

func regOwners(fn *ir.Function) map[ir.VReg]ir.BlockID {
	owners := make(map[ir.VReg]ir.BlockID)
	for bi := range fn.Blocks {
		b := &fn.Blocks[bi]
		for _, idx := range b.Instrs {
			instr := fn.Instr(idx)
			if instr.HasResult {
				owners[instr.Result] = b.ID
			}
		}
		for _, phi := range b.Phis {
			owners[phi.Result] = b.ID
		}
	}
	return owners
}

// loopShape derives the [header, backEdgeSource] id range and the
// single out-of-range predecessor, if any.
func loopShape(fn *ir.Function, header ir.BlockID) (map[ir.BlockID]bool, ir.BlockID, bool) {
	h := fn.Block(header)
	backEdgeSrc := ir.NoBlock
	preheader := ir.NoBlock
	preheaderCount := 0

	for _, p := range h.Preds {
		if p >= header {
			if p > backEdgeSrc {
				backEdgeSrc = p
			}
		} else {
			preheader = p
			preheaderCount++
		}
	}

	if backEdgeSrc == ir.NoBlock || preheaderCount != 1 {
		return nil, ir.NoBlock, false
	}

	body := make(map[ir.BlockID]bool)
	for id := header; id <= backEdgeSrc; id++ {
		body[id] = true
	}
	return body, preheader, true
}

func hoistBlock(fn *ir.Function, bid ir.BlockID, body map[ir.BlockID]bool, preheader ir.BlockID, owners map[ir.VReg]ir.BlockID) bool {
	b := fn.Block(bid)
	changed := false

	var stay []int
	for _, idx := range b.Instrs {
		instr := fn.Instr(idx)
		if instr.HasResult && isPure(instr.Op) && invariantOperands(instr, body, owners) {
			insertBeforeTerminator(fn, preheader, idx)
			changed = true
			continue
		}
		stay = append(stay, idx)
	}
	b.Instrs = stay

	return changed
}

func invariantOperands(instr *ir.Instr, body map[ir.BlockID]bool, owners map[ir.VReg]ir.BlockID) bool {
	for _, op := range instr.Operands {
		if op.Kind != ir.OperandVReg {
			continue
		}
		if owner, ok := owners[op.VReg]; ok && body[owner] {
			return false
		}
	}
	return true
}

func insertBeforeTerminator(fn *ir.Function, block ir.BlockID, idx int) {
	b := fn.Block(block)
	if len(b.Instrs) == 0 {
		b.Instrs = append(b.Instrs, idx)
		return
	}
	last := len(b.Instrs) - 1
	tail := fn.Instr(b.Instrs[last])
	if !isTerminatorOpcode(tail.Op) {
		b.Instrs = append(b.Instrs, idx)
		return
	}
	b.Instrs = append(b.Instrs, 0)
	copy(b.Instrs[last+1:], b.Instrs[last:last+1])
	b.Instrs[last] = idx
}

func isTerminatorOpcode(op ir.Opcode) bool {
	switch op {
	case ir.OpJump, ir.OpBranch, ir.OpReturn, ir.OpThrow:
		return true
	default:
		return false
	}
}
