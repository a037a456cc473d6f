// Package optimize implements the IR optimization pipeline from spec
// §4.6: a fixed list of independent passes run to a fixed point (or an
// iteration ceiling), each reporting whether it changed the function.
//
// Grounded on original_source/src/core/jit/baseline/ir_optimizer.{h,cpp}
// for the pass list (fold, propagate, copy-prop, CSE, combine, DCE,
// LICM) and its level-gated pass selection, translated from a single
// monolithic IROptimizer class into independent Go pass values the way
// paserati splits its compiler into one file per concern
// (pkg/compiler/compile_*.go) rather than one God object.
package optimize

import (
	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
)

// Level mirrors original_source's OptimizationLevel: a coarse knob
// selecting which passes run, rather than per-pass toggles in the
// common case.
type Level uint8

const (
	LevelNone Level = iota
	LevelO1
	LevelO2
	LevelO3
	LevelSize
	LevelSpeed
)

// Pass is one independent optimization pass. Run reports whether it
// changed fn, so the driver can iterate to a fixed point.
type Pass interface {
	Name() string
	Run(fn *ir.Function, chunk *bytecode.Chunk) bool
}

type passFunc struct {
	name string
	run  func(fn *ir.Function, chunk *bytecode.Chunk) bool
}

func (p passFunc) Name() string { return p.name }
func (p passFunc) Run(fn *ir.Function, chunk *bytecode.Chunk) bool {
	return p.run(fn, chunk)
}

// Config bounds the optimizer's iteration and selects its pass set.
type Config struct {
	Level         Level
	MaxIterations int
}

func DefaultConfig(level Level) Config {
	return Config{Level: level, MaxIterations: 32}
}

// Stats mirrors original_source's OptimizationStats at the granularity
// this package actually needs: how many fixed-point rounds ran, and how
// many times each named pass reported a change.
type Stats struct {
	Iterations    int
	ChangesByPass map[string]int
}

// passesForLevel returns the ordered pass list for level, grounded on
// ir_optimizer.cpp's ConfigurePassesForLevel: kNone runs nothing, kO1
// adds the cheap local passes, kO2 (the default) adds CSE and
// instruction combining, kO3/kSpeed add loop-invariant code motion.
// kSize omits LICM (it can duplicate code onto the preheader) in favor
// of leaning harder on DCE.
func passesForLevel(level Level) []Pass {
	fold := passFunc{"const-fold", FoldConstants}
	propagate := passFunc{"const-propagate", PropagateConstants}
	copyProp := passFunc{"copy-propagate", PropagateCopies}
	dce := passFunc{"dead-code-elim", EliminateDeadCode}
	cse := passFunc{"common-subexpr-elim", EliminateCommonSubexprs}
	combine := passFunc{"instruction-combine", CombineInstructions}
	licm := passFunc{"loop-invariant-motion", HoistLoopInvariants}

	switch level {
	case LevelNone:
		return nil
	case LevelO1:
		return []Pass{fold, propagate, copyProp, dce}
	case LevelSize:
		return []Pass{fold, propagate, copyProp, combine, dce}
	case LevelO2:
		return []Pass{fold, propagate, copyProp, cse, combine, dce}
	case LevelO3, LevelSpeed:
		return []Pass{fold, propagate, copyProp, cse, combine, licm, dce}
	default:
		return []Pass{fold, propagate, copyProp, dce}
	}
}

// Optimize runs the pass list for cfg.Level against fn to a fixed point,
// bounded by cfg.MaxIterations (spec §4.6: "runs to a fixed point or an
// iteration ceiling, whichever comes first").
func Optimize(fn *ir.Function, chunk *bytecode.Chunk, cfg Config) Stats {
	passes := passesForLevel(cfg.Level)
	stats := Stats{ChangesByPass: make(map[string]int, len(passes))}

	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 1
	}

	for iter := 0; iter < maxIter; iter++ {
		stats.Iterations++
		changed := false
		for _, p := range passes {
			if p.Run(fn, chunk) {
				changed = true
				stats.ChangesByPass[p.Name()]++
			}
		}
		if !changed {
			break
		}
	}

	return stats
}
