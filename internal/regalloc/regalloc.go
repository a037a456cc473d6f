// Package regalloc implements the register allocator from spec §4.7:
// linear-scan and Chaitin/Briggs graph-coloring strategies over an IR
// function's virtual registers, producing a physical-register or
// spill-slot assignment for each.
//
// Grounded on original_source/src/core/jit/baseline/register_allocator.cpp
// for the two strategies' algorithms, and on paserati's
// pkg/compiler.RegisterAllocator (Register/NoHint/BadRegister naming,
// free-list reuse, Pin/Unpin for registers that must survive a call) for
// the physical-register bookkeeping vocabulary — generalized here from
// paserati's single stack allocator (no spilling, no interference graph,
// one untyped register file) into the spec's class-aware interval and
// graph-coloring strategies with real spill slots.
package regalloc

import "github.com/aerojs/aerojs-core/internal/ir"

// PhysReg is a physical register index within its class's file.
type PhysReg int

// NoPhysReg marks a virtual register that was spilled rather than
// colored, paserati's NoHint/BadRegister sentinel pair collapsed into
// one "there is no physical register" value since this allocator always
// knows explicitly whether an assignment spilled.
const NoPhysReg PhysReg = -1

// ClassCaps gives the number of available (non-reserved) physical
// registers per register class — the K in "degree < K" from spec §4.7's
// graph-coloring simplification rule.
type ClassCaps map[ir.RegisterClass]int

// DefaultClassCaps mirrors a typical ABI: a handful of caller-saved
// general-purpose and floating-point registers left after reserving the
// frame pointer, stack pointer, and argument-passing registers to the
// call-frame and codegen layers.
func DefaultClassCaps() ClassCaps {
	return ClassCaps{
		ir.ClassInt32:   8,
		ir.ClassInt64:   8,
		ir.ClassFloat32: 8,
		ir.ClassFloat64: 8,
		ir.ClassVector:  4,
	}
}

// Assignment is the allocator's verdict for one virtual register.
type Assignment struct {
	VReg      ir.VReg
	Class     ir.RegisterClass
	Physical  PhysReg
	Spilled   bool
	SpillSlot int // byte offset, valid only when Spilled
}

// Result is the complete allocation for one function.
type Result struct {
	Assignments   map[ir.VReg]Assignment
	NumSpillBytes int
}

// spillSlotSize returns the slot size in bytes for class (spec §4.7:
// "spill slots are allocated monotonically with 8-byte alignment;
// vector-class registers take 16 bytes").
func spillSlotSize(class ir.RegisterClass) int {
	if class == ir.ClassVector {
		return 16
	}
	return 8
}

// Strategy selects which algorithm Allocate runs.
type Strategy uint8

const (
	StrategyLinearScan Strategy = iota
	StrategyGraphColoring
)

// Allocate runs the requested strategy over fn's virtual registers. Both
// strategies are idempotent (spec §4.7: "calling it twice produces
// identical assignments for the same input") because both iterate
// registers and intervals in a fixed, register-id-derived order rather
// than Go map iteration order.
func Allocate(fn *ir.Function, types map[ir.VReg]ir.Type, strategy Strategy, caps ClassCaps) Result {
	intervals := ComputeIntervals(fn, types)
	switch strategy {
	case StrategyGraphColoring:
		return allocateGraphColoring(intervals, caps)
	default:
		return allocateLinearScan(intervals, caps)
	}
}
