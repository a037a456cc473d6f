package optimize

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
)

// EliminateCommonSubexprs implements original_source's
// RunCommonSubexprElimination as local (single-block) value numbering:
// within a block, a pure instruction with the same opcode, type, and
// operand list as one already computed is redundant and replaced by a
// reference to the earlier result. Hashing is scoped to one block at a
// time, so collisions across unrelated blocks never need to be told
// apart from real matches — the per-block table is thrown away at the
// block boundary.
func EliminateCommonSubexprs(fn *ir.Function, _ *bytecode.Chunk) bool {
	changed := false

	for bi := range fn.Blocks {
		b := &fn.Blocks[bi]
		seen := make(map[uint64][]int)
		var toRemove []int

		for _, idx := range b.Instrs {
			instr := fn.Instr(idx)
			if !instr.HasResult || !isPure(instr.Op) || instr.Op == ir.OpConst {
				continue
			}
			key := hashInstr(instr)
			match := -1
			for _, cand := range seen[key] {
				if instrsEqual(fn.Instr(cand), instr) {
					match = cand
					break
				}
			}
			if match >= 0 {
				rewriteOperands(fn, instr.Result, fn.Instr(match).Result)
				toRemove = append(toRemove, idx)
				changed = true
				continue
			}
			seen[key] = append(seen[key], idx)
		}

		for _, idx := range toRemove {
			removeInstr(fn, idx)
		}
	}

	return changed
}

func hashInstr(instr *ir.Instr) uint64 {
	h := xxhash.New()
	var buf [9]byte
	buf[0] = byte(instr.Op)
	binary.LittleEndian.PutUint64(buf[1:], uint64(instr.Type))
	h.Write(buf[:])
	for _, op := range instr.Operands {
		var ob [1 + 8]byte
		ob[0] = byte(op.Kind)
		switch op.Kind {
		case ir.OperandVReg:
			binary.LittleEndian.PutUint64(ob[1:], uint64(op.VReg))
		case ir.OperandImmediate:
			binary.LittleEndian.PutUint64(ob[1:], uint64(op.Imm))
		case ir.OperandMemory:
			binary.LittleEndian.PutUint64(ob[1:], uint64(op.Memory))
		case ir.OperandLabel:
			binary.LittleEndian.PutUint64(ob[1:], uint64(op.Label))
		}
		h.Write(ob[:])
	}
	return h.Sum64()
}

func instrsEqual(a, b *ir.Instr) bool {
	if a.Op != b.Op || a.Type != b.Type || len(a.Operands) != len(b.Operands) {
		return false
	}
	for i := range a.Operands {
		if a.Operands[i] != b.Operands[i] {
			return false
		}
	}
	return true
}
