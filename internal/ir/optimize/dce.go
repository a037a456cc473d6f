package optimize

import (
	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
)

// EliminateDeadCode implements original_source's RunDeadCodeElimination:
// any pure instruction or phi whose result is never read is removed.
// Removing one dead definition can make another formerly-used operand
// dead in turn (a chain of unused arithmetic), so this runs to a local
// fixed point before returning.
func EliminateDeadCode(fn *ir.Function, _ *bytecode.Chunk) bool {
	changed := false

	for {
		uses := countUses(fn)
		removedThisRound := false

		for i := range fn.Instrs {
			instr := &fn.Instrs[i]
			if instr.Op == ir.OpNoOp || !instr.HasResult || !isPure(instr.Op) {
				continue
			}
			if uses[instr.Result] == 0 {
				removeInstr(fn, i)
				removedThisRound = true
			}
		}

		for bi := range fn.Blocks {
			b := &fn.Blocks[bi]
			kept := b.Phis[:0]
			for _, phi := range b.Phis {
				if uses[phi.Result] == 0 {
					removedThisRound = true
					continue
				}
				kept = append(kept, phi)
			}
			b.Phis = kept
		}

		if !removedThisRound {
			break
		}
		changed = true
	}

	return changed
}
