package regalloc

import (
	"sort"

	"github.com/aerojs/aerojs-core/internal/ir"
)

type active struct {
	interval LiveInterval
	phys     PhysReg
}

// allocateLinearScan implements spec §4.7's linear-scan strategy,
// grounded on original_source's RegisterAllocator::RunLinearScan: per
// class, intervals are sorted by start; an active list tracks which
// intervals currently hold a physical register; when none is free the
// interval with the furthest-out end among {current, active} is spilled
// (Chaitin's classic "spill the one that helps longest" heuristic, which
// original_source's linear-scan path also uses, not just its
// graph-coloring one).
func allocateLinearScan(intervals []LiveInterval, caps ClassCaps) Result {
	res := Result{Assignments: make(map[ir.VReg]Assignment, len(intervals))}
	byClass := groupByClass(intervals)

	nextSpillOffset := 0
	classes := sortedClasses(byClass)
	for _, class := range classes {
		list := byClass[class]
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Start != list[j].Start {
				return list[i].Start < list[j].Start
			}
			return list[i].VReg < list[j].VReg
		})

		k := caps[class]
		var activeList []active
		usedPhys := make(map[PhysReg]bool, k)

		for _, cur := range list {
			activeList = expireBefore(activeList, cur.Start, usedPhys)

			if len(usedPhys) < k {
				phys := lowestFree(usedPhys, k)
				usedPhys[phys] = true
				activeList = append(activeList, active{cur, phys})
				res.Assignments[cur.VReg] = Assignment{VReg: cur.VReg, Class: class, Physical: phys}
				continue
			}

			spillCandidate, spillIdx := furthestEnding(activeList)
			if spillIdx >= 0 && spillCandidate.interval.End > cur.End {
				// Steal the active interval's register; it spills instead.
				slot := nextSpillOffset
				nextSpillOffset = alignedNext(nextSpillOffset, class)
				res.Assignments[spillCandidate.interval.VReg] = Assignment{
					VReg: spillCandidate.interval.VReg, Class: class, Spilled: true, Physical: NoPhysReg, SpillSlot: slot,
				}
				activeList[spillIdx] = active{cur, spillCandidate.phys}
				res.Assignments[cur.VReg] = Assignment{VReg: cur.VReg, Class: class, Physical: spillCandidate.phys}
			} else {
				slot := nextSpillOffset
				nextSpillOffset = alignedNext(nextSpillOffset, class)
				res.Assignments[cur.VReg] = Assignment{VReg: cur.VReg, Class: class, Spilled: true, Physical: NoPhysReg, SpillSlot: slot}
			}
		}
	}

	res.NumSpillBytes = nextSpillOffset
	return res
}

func expireBefore(list []active, start int, usedPhys map[PhysReg]bool) []active {
	kept := list[:0]
	for _, a := range list {
		if a.interval.End < start {
			delete(usedPhys, a.phys)
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func lowestFree(used map[PhysReg]bool, k int) PhysReg {
	for i := 0; i < k; i++ {
		if !used[PhysReg(i)] {
			return PhysReg(i)
		}
	}
	return NoPhysReg
}

// furthestEnding returns the active entry with the largest End (ties
// broken by the lowest VReg id, to keep the allocator idempotent).
func furthestEnding(list []active) (active, int) {
	best := -1
	for i := range list {
		if best == -1 {
			best = i
			continue
		}
		if list[i].interval.End > list[best].interval.End ||
			(list[i].interval.End == list[best].interval.End && list[i].interval.VReg < list[best].interval.VReg) {
			best = i
		}
	}
	if best == -1 {
		return active{}, -1
	}
	return list[best], best
}

func alignedNext(offset int, class ir.RegisterClass) int {
	size := spillSlotSize(class)
	aligned := (offset + size - 1) / size * size
	return aligned + size
}

func groupByClass(intervals []LiveInterval) map[ir.RegisterClass][]LiveInterval {
	out := make(map[ir.RegisterClass][]LiveInterval)
	for _, iv := range intervals {
		out[iv.Class] = append(out[iv.Class], iv)
	}
	return out
}

func sortedClasses(byClass map[ir.RegisterClass][]LiveInterval) []ir.RegisterClass {
	out := make([]ir.RegisterClass, 0, len(byClass))
	for c := range byClass {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
