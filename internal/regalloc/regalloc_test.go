package regalloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
	"github.com/aerojs/aerojs-core/internal/regalloc"
	"github.com/aerojs/aerojs-core/internal/rt/value"
)

func buildChain(t *testing.T, n int) *ir.Function {
	t.Helper()
	e := bytecode.NewEncoder()
	c := e.AddConstant(value.Int32(1))
	e.Emit(bytecode.OpLoadConst, 0, uint32(c))
	for i := 1; i < n; i++ {
		e.Emit(bytecode.OpAdd, uint32(i), uint32(i-1), 0)
	}
	e.Emit(bytecode.OpReturn, uint32(n-1))
	chunk, err := e.Finish(false, 0, 0, n)
	require.NoError(t, err)
	fn, err := ir.Build(chunk, "chain")
	require.NoError(t, err)
	return fn
}

func typesOf(fn *ir.Function) map[ir.VReg]ir.Type {
	types := ir.Analyze(fn, ir.DefaultAnalyzerConfig())
	out := make(map[ir.VReg]ir.Type)
	for _, m := range types.PerBlock {
		for reg, ti := range m {
			out[reg] = ti.Primary
		}
	}
	return out
}

func TestLinearScanAssignsEveryRegister(t *testing.T) {
	fn := buildChain(t, 5)
	types := typesOf(fn)
	caps := regalloc.ClassCaps{ir.ClassInt32: 2, ir.ClassInt64: 2, ir.ClassFloat64: 2, ir.ClassFloat32: 2, ir.ClassVector: 1}

	result := regalloc.Allocate(fn, types, regalloc.StrategyLinearScan, caps)

	for i := range fn.Instrs {
		if !fn.Instrs[i].HasResult {
			continue
		}
		reg := fn.Instrs[i].Result
		a, ok := result.Assignments[reg]
		require.True(t, ok, "register v%d has no assignment", reg)
		if !a.Spilled {
			assert.GreaterOrEqual(t, int(a.Physical), 0)
		}
	}
}

func TestLinearScanSpillsUnderPressure(t *testing.T) {
	fn := buildChain(t, 10)
	types := typesOf(fn)
	caps := regalloc.ClassCaps{ir.ClassInt32: 1, ir.ClassInt64: 1, ir.ClassFloat64: 1, ir.ClassFloat32: 1, ir.ClassVector: 1}

	result := regalloc.Allocate(fn, types, regalloc.StrategyLinearScan, caps)

	spilled := false
	for _, a := range result.Assignments {
		if a.Spilled {
			spilled = true
			assert.Equal(t, 0, a.SpillSlot%8)
		}
	}
	assert.True(t, spilled, "expected register pressure to force at least one spill")
}

func TestLinearScanIsIdempotent(t *testing.T) {
	fn := buildChain(t, 6)
	types := typesOf(fn)
	caps := regalloc.DefaultClassCaps()

	first := regalloc.Allocate(fn, types, regalloc.StrategyLinearScan, caps)
	second := regalloc.Allocate(fn, types, regalloc.StrategyLinearScan, caps)

	assert.Equal(t, first.Assignments, second.Assignments)
}

func TestGraphColoringAssignsEveryRegisterAndIsIdempotent(t *testing.T) {
	fn := buildChain(t, 6)
	types := typesOf(fn)
	caps := regalloc.DefaultClassCaps()

	first := regalloc.Allocate(fn, types, regalloc.StrategyGraphColoring, caps)
	second := regalloc.Allocate(fn, types, regalloc.StrategyGraphColoring, caps)
	assert.Equal(t, first.Assignments, second.Assignments)

	for i := range fn.Instrs {
		if !fn.Instrs[i].HasResult {
			continue
		}
		_, ok := first.Assignments[fn.Instrs[i].Result]
		assert.True(t, ok)
	}
}

func TestGraphColoringSpillsRespectClassSlotSize(t *testing.T) {
	fn := buildChain(t, 12)
	types := typesOf(fn)
	caps := regalloc.ClassCaps{ir.ClassInt32: 1, ir.ClassInt64: 1, ir.ClassFloat64: 1, ir.ClassFloat32: 1, ir.ClassVector: 1}

	result := regalloc.Allocate(fn, types, regalloc.StrategyGraphColoring, caps)
	for _, a := range result.Assignments {
		if a.Spilled {
			assert.Equal(t, 0, a.SpillSlot%8)
		}
	}
}
