package regalloc

import (
	"sort"

	"github.com/google/btree"

	"github.com/aerojs/aerojs-core/internal/ir"
)

// stackEntry is one vertex popped off the simplify stack during
// graph-coloring, in push order; spill-marked vertices never reach the
// coloring step (spec §4.7: "spill-marked vertices are spilled").
type stackEntry struct {
	reg    ir.VReg
	spill  bool
}

// allocateGraphColoring implements spec §4.7's Chaitin/Briggs strategy,
// grounded on original_source's RegisterAllocator::RunGraphColoring.
// Interference-graph neighbor sets use github.com/google/btree's
// generic BTreeG so both the simplify phase's degree counts and the
// coloring phase's "lowest color not used by a neighbor" scan visit
// neighbors in a fixed VReg order — the ordered-set primitive this
// allocator needs to stay idempotent across runs, the way
// launix-de/memcp's storage index reaches for the same package for its
// own ordered in-memory scans.
func allocateGraphColoring(intervals []LiveInterval, caps ClassCaps) Result {
	res := Result{Assignments: make(map[ir.VReg]Assignment, len(intervals))}
	byClass := groupByClass(intervals)
	nextSpillOffset := 0

	for _, class := range sortedClasses(byClass) {
		list := byClass[class]
		sort.Slice(list, func(i, j int) bool { return list[i].VReg < list[j].VReg })

		byReg := make(map[ir.VReg]LiveInterval, len(list))
		adjacency := make(map[ir.VReg]*btree.BTreeG[ir.VReg], len(list))
		for _, iv := range list {
			byReg[iv.VReg] = iv
			adjacency[iv.VReg] = btree.NewG(32, vregLess)
		}
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				a, b := list[i], list[j]
				if overlaps(a, b) {
					adjacency[a.VReg].ReplaceOrInsert(b.VReg)
					adjacency[b.VReg].ReplaceOrInsert(a.VReg)
				}
			}
		}

		k := caps[class]
		alive := make(map[ir.VReg]bool, len(list))
		for _, iv := range list {
			alive[iv.VReg] = true
		}

		var stack []stackEntry
		for len(alive) > 0 {
			if v, ok := lowDegreeVertex(list, alive, adjacency, k); ok {
				alive[v] = false
				stack = append(stack, stackEntry{reg: v})
				continue
			}
			v := spillCandidate(list, alive, byReg)
			alive[v] = false
			stack = append(stack, stackEntry{reg: v, spill: true})
		}

		colored := make(map[ir.VReg]PhysReg, len(stack))
		for i := len(stack) - 1; i >= 0; i-- {
			entry := stack[i]
			if entry.spill {
				slot := nextSpillOffset
				nextSpillOffset = alignedNext(nextSpillOffset, class)
				res.Assignments[entry.reg] = Assignment{VReg: entry.reg, Class: class, Spilled: true, Physical: NoPhysReg, SpillSlot: slot}
				continue
			}
			used := make(map[PhysReg]bool)
			adjacency[entry.reg].Ascend(func(n ir.VReg) bool {
				if c, ok := colored[n]; ok {
					used[c] = true
				}
				return true
			})
			phys := lowestFree(used, k)
			colored[entry.reg] = phys
			res.Assignments[entry.reg] = Assignment{VReg: entry.reg, Class: class, Physical: phys}
		}
	}

	res.NumSpillBytes = nextSpillOffset
	return res
}

func vregLess(a, b ir.VReg) bool { return a < b }

func overlaps(a, b LiveInterval) bool {
	return a.Start <= b.End && b.Start <= a.End
}

// lowDegreeVertex returns the lowest-id alive vertex whose degree in the
// remaining (alive) subgraph is below k, if any.
func lowDegreeVertex(list []LiveInterval, alive map[ir.VReg]bool, adjacency map[ir.VReg]*btree.BTreeG[ir.VReg], k int) (ir.VReg, bool) {
	for _, iv := range list {
		if !alive[iv.VReg] {
			continue
		}
		degree := 0
		adjacency[iv.VReg].Ascend(func(n ir.VReg) bool {
			if alive[n] {
				degree++
			}
			return true
		})
		if degree < k {
			return iv.VReg, true
		}
	}
	return 0, false
}

// spillCandidate picks the alive vertex with the longest live range
// (spec §4.7: "maximum live-range length heuristic"), breaking ties by
// the lowest VReg id for determinism.
func spillCandidate(list []LiveInterval, alive map[ir.VReg]bool, byReg map[ir.VReg]LiveInterval) ir.VReg {
	best := ir.VReg(0)
	bestLen := -1
	found := false
	for _, iv := range list {
		if !alive[iv.VReg] {
			continue
		}
		length := iv.End - iv.Start
		if !found || length > bestLen {
			best, bestLen, found = iv.VReg, length, true
		}
	}
	return best
}
