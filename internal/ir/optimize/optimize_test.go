package optimize_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
	"github.com/aerojs/aerojs-core/internal/ir/optimize"
	"github.com/aerojs/aerojs-core/internal/rt/value"
)

func buildAddConstants(t *testing.T) (*ir.Function, *bytecode.Chunk) {
	t.Helper()
	e := bytecode.NewEncoder()
	c1 := e.AddConstant(value.Int32(2))
	c2 := e.AddConstant(value.Int32(3))
	e.Emit(bytecode.OpLoadConst, 0, uint32(c1))
	e.Emit(bytecode.OpLoadConst, 1, uint32(c2))
	e.Emit(bytecode.OpAdd, 2, 0, 1)
	e.Emit(bytecode.OpReturn, 2)
	chunk, err := e.Finish(false, 0, 0, 3)
	require.NoError(t, err)

	fn, err := ir.Build(chunk, "addconst")
	require.NoError(t, err)
	return fn, chunk
}

func TestFoldConstantsComputesResult(t *testing.T) {
	fn, chunk := buildAddConstants(t)
	changed := optimize.FoldConstants(fn, chunk)
	assert.True(t, changed)

	returnInstr := fn.Instr(fn.Blocks[fn.Entry].Instrs[len(fn.Blocks[fn.Entry].Instrs)-1])
	require.Equal(t, ir.OpReturn, returnInstr.Op)
	retReg := returnInstr.Operands[0].VReg

	var folded *ir.Instr
	for i := range fn.Instrs {
		if fn.Instrs[i].HasResult && fn.Instrs[i].Result == retReg {
			folded = &fn.Instrs[i]
		}
	}
	require.NotNil(t, folded)
	assert.Equal(t, ir.OpConst, folded.Op)
	assert.Equal(t, value.Int32(5), chunk.Constants[folded.Operands[0].Memory])
}

func TestEliminateDeadCodeRemovesUnusedPureInstr(t *testing.T) {
	e := bytecode.NewEncoder()
	c1 := e.AddConstant(value.Int32(1))
	c2 := e.AddConstant(value.Int32(2))
	e.Emit(bytecode.OpLoadConst, 0, uint32(c1))
	e.Emit(bytecode.OpLoadConst, 1, uint32(c2))
	e.Emit(bytecode.OpAdd, 2, 0, 1) // dead: never used
	e.Emit(bytecode.OpReturn, 0)
	chunk, err := e.Finish(false, 0, 0, 3)
	require.NoError(t, err)
	fn, err := ir.Build(chunk, "dead")
	require.NoError(t, err)

	changed := optimize.EliminateDeadCode(fn, chunk)
	assert.True(t, changed)

	for _, idx := range fn.Blocks[fn.Entry].Instrs {
		assert.NotEqual(t, ir.OpAdd, fn.Instr(idx).Op)
	}
}

func TestCombineInstructionsDropsAddZero(t *testing.T) {
	e := bytecode.NewEncoder()
	c0 := e.AddConstant(value.Int32(0))
	e.Emit(bytecode.OpLoadConst, 1, uint32(c0))
	e.Emit(bytecode.OpGetGlobal, 0, 7) // reg0 = some global, unknown at fold time
	e.Emit(bytecode.OpAdd, 2, 0, 1)    // reg2 = reg0 + 0
	e.Emit(bytecode.OpReturn, 2)
	chunk, err := e.Finish(false, 0, 0, 3)
	require.NoError(t, err)
	fn, err := ir.Build(chunk, "addzero")
	require.NoError(t, err)

	changed := optimize.CombineInstructions(fn, chunk)
	assert.True(t, changed)

	returnInstr := fn.Instr(fn.Blocks[fn.Entry].Instrs[len(fn.Blocks[fn.Entry].Instrs)-1])
	// After combine, the return operand should alias straight back to the
	// OpLoadGlobal result instead of routing through the removed Add.
	var globalDef *ir.Instr
	for i := range fn.Instrs {
		if fn.Instrs[i].Op == ir.OpLoadGlobal {
			globalDef = &fn.Instrs[i]
		}
	}
	require.NotNil(t, globalDef)
	assert.Equal(t, globalDef.Result, returnInstr.Operands[0].VReg)
}

func TestEliminateCommonSubexprsDedupsWithinBlock(t *testing.T) {
	e := bytecode.NewEncoder()
	e.Emit(bytecode.OpGetGlobal, 0, 1)
	e.Emit(bytecode.OpGetGlobal, 1, 2)
	e.Emit(bytecode.OpAdd, 2, 0, 1)
	e.Emit(bytecode.OpAdd, 3, 0, 1) // identical to reg2's computation
	e.Emit(bytecode.OpReturn, 3)
	chunk, err := e.Finish(false, 0, 0, 4)
	require.NoError(t, err)
	fn, err := ir.Build(chunk, "cse")
	require.NoError(t, err)

	changed := optimize.EliminateCommonSubexprs(fn, chunk)
	assert.True(t, changed)

	addCount := 0
	for _, idx := range fn.Blocks[fn.Entry].Instrs {
		if fn.Instr(idx).Op == ir.OpAdd {
			addCount++
		}
	}
	assert.Equal(t, 1, addCount)
}

func TestOptimizeRunsToFixedPoint(t *testing.T) {
	fn, chunk := buildAddConstants(t)
	stats := optimize.Optimize(fn, chunk, optimize.DefaultConfig(optimize.LevelO2))
	assert.Greater(t, stats.Iterations, 0)

	res := ir.Validate(fn)
	assert.True(t, res.OK(), "%v", res.Errors)
}

func TestOptimizeLevelNoneRunsNoPasses(t *testing.T) {
	fn, chunk := buildAddConstants(t)
	stats := optimize.Optimize(fn, chunk, optimize.DefaultConfig(optimize.LevelNone))
	assert.Empty(t, stats.ChangesByPass)
}

// TestFoldThenEliminateDeadCodeMatchesGoldenOpcodeSequence is a
// structural diff over the surviving block's opcode sequence rather
// than a field-by-field assert.Equal: once FoldConstants rewrites the
// Add into a Const in place, its two LoadConst operands become
// unreferenced and EliminateDeadCode removes them, leaving exactly
// [OpConst, OpReturn] as the golden shape for this fixture.
func TestFoldThenEliminateDeadCodeMatchesGoldenOpcodeSequence(t *testing.T) {
	fn, chunk := buildAddConstants(t)
	require.True(t, optimize.FoldConstants(fn, chunk))
	require.True(t, optimize.EliminateDeadCode(fn, chunk))

	var ops []ir.Opcode
	for _, idx := range fn.Blocks[fn.Entry].Instrs {
		ops = append(ops, fn.Instr(idx).Op)
	}

	golden := []ir.Opcode{ir.OpConst, ir.OpReturn}
	if diff := cmp.Diff(golden, ops); diff != "" {
		t.Errorf("surviving opcode sequence mismatch (-golden +got):\n%s", diff)
	}
}
