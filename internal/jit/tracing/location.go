// Package tracing implements the meta-tracing JIT tier from spec §4.9:
// hot-address dispatch, linear trace recording off the same IR the
// optimizer and register allocator already operate on, trace-level
// optimization, native emission with side-exit trampolines, and
// usage-based memory reclamation.
//
// Grounded on original_source/src/core/jit/metatracing/tracing_jit.cpp
// for the tracer's owned state (hot threshold, attempt/entry maps,
// trace table) and its dispatch/record/compile/evict control flow —
// paserati has no tracing tier at all, so unlike internal/jit/baseline
// this package has no teacher-repo analog and is built fresh from
// original_source plus spec §9's redesign flag for an explicit recorder
// state machine. It reuses internal/ir.Build, internal/ir/optimize's
// pass library, internal/regalloc, and internal/codegen rather than
// reimplementing any of the four, since a trace is exactly "the same IR
// the rest of the pipeline already has, over a narrower instruction
// window" (spec §3's Trace data model: "a linear sequence of IR").
package tracing

// Location addresses one bytecode instruction the tracer watches for
// hotness, encoded with the same function_id*10000+offset_index scheme
// internal/jit/baseline's inline-cache Site ids use (spec §4.8 point 2),
// so both JIT tiers address "where in the program" the same way.
type Location int64

// LocationOf builds the Location for the instruction at byte offset
// bytecodeOffset in functionID's bytecode.
func LocationOf(functionID, bytecodeOffset int) Location {
	return Location(int64(functionID)*10000 + int64(bytecodeOffset))
}

// FunctionID recovers the function id half of a Location.
func (l Location) FunctionID() int { return int(l / 10000) }

// Offset recovers the bytecode-offset half of a Location.
func (l Location) Offset() int { return int(l % 10000) }
