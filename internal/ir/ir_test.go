package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
	"github.com/aerojs/aerojs-core/internal/rt/value"
)

func buildStraightLine(t *testing.T) *ir.Function {
	t.Helper()
	e := bytecode.NewEncoder()
	c1 := e.AddConstant(value.Int32(1))
	c2 := e.AddConstant(value.Int32(2))
	e.Emit(bytecode.OpLoadConst, 0, uint32(c1))
	e.Emit(bytecode.OpLoadConst, 1, uint32(c2))
	e.Emit(bytecode.OpAdd, 2, 0, 1)
	e.Emit(bytecode.OpReturn, 2)
	chunk, err := e.Finish(false, 0, 0, 3)
	require.NoError(t, err)

	fn, err := ir.Build(chunk, "straight")
	require.NoError(t, err)
	return fn
}

func TestBuildStraightLineSingleBlock(t *testing.T) {
	fn := buildStraightLine(t)
	require.Len(t, fn.Blocks, 1)
	res := ir.Validate(fn)
	assert.True(t, res.OK(), "%v", res.Errors)
}

func TestBuildEntryHasNoPredecessors(t *testing.T) {
	fn := buildStraightLine(t)
	assert.Empty(t, fn.Blocks[fn.Entry].Preds)
}

func buildBranching(t *testing.T) *ir.Function {
	t.Helper()
	e := bytecode.NewEncoder()
	c0 := e.AddConstant(value.Bool(true))
	e.Emit(bytecode.OpLoadConst, 0, uint32(c0))
	elseLabel := e.NewLabel()
	endLabel := e.NewLabel()
	e.EmitJump(bytecode.OpJumpIfFalse, elseLabel, 0)
	e.Emit(bytecode.OpLoadConst, 1, uint32(c0))
	e.EmitJump(bytecode.OpJump, endLabel)
	e.DefineLabel(elseLabel)
	e.Emit(bytecode.OpLoadConst, 1, uint32(c0))
	e.DefineLabel(endLabel)
	e.Emit(bytecode.OpReturn, 1)

	chunk, err := e.Finish(false, 0, 0, 2)
	require.NoError(t, err)
	fn, err := ir.Build(chunk, "branch")
	require.NoError(t, err)
	return fn
}

func TestBuildBranchingProducesMultipleBlocksAndMergePhi(t *testing.T) {
	fn := buildBranching(t)
	assert.Greater(t, len(fn.Blocks), 1)

	res := ir.Validate(fn)
	assert.True(t, res.OK(), "%v", res.Errors)

	foundMerge := false
	for _, b := range fn.Blocks {
		if len(b.Preds) > 1 {
			foundMerge = true
			assert.NotEmpty(t, b.Phis)
		}
	}
	assert.True(t, foundMerge, "expected a merge block with >1 predecessor")
}

func TestValidateCatchesMissingTerminator(t *testing.T) {
	fn := ir.NewFunction("broken")
	b := fn.AddBlock()
	fn.Entry = b
	fn.AddInstr(b, ir.Instr{Op: ir.OpNoOp})

	res := ir.Validate(fn)
	assert.False(t, res.OK())
}

func TestTypeAnalyzerNarrowsConstants(t *testing.T) {
	fn := buildStraightLine(t)
	types := ir.Analyze(fn, ir.DefaultAnalyzerConfig())
	// v0 and v1 both hold int32 constants (constant pool entries are
	// Int32 values in this test), so Add should narrow to Int32.
	blockTypes := types.PerBlock[fn.Entry]
	addResultReg := fn.Instr(fn.Blocks[fn.Entry].Instrs[2]).Result
	assert.Contains(t, []ir.Type{ir.TypeInt32, ir.TypeNumber}, blockTypes[addResultReg].Primary)
}

func TestLoopHeaderDetected(t *testing.T) {
	e := bytecode.NewEncoder()
	c0 := e.AddConstant(value.Bool(true))
	loopStart := e.NewLabel()
	e.DefineLabel(loopStart)
	e.Emit(bytecode.OpLoadConst, 0, uint32(c0))
	e.EmitJump(bytecode.OpJumpIfTrue, loopStart, 0)
	e.Emit(bytecode.OpReturnUndefined)

	chunk, err := e.Finish(false, 0, 0, 1)
	require.NoError(t, err)
	fn, err := ir.Build(chunk, "loop")
	require.NoError(t, err)

	foundHeader := false
	for _, b := range fn.Blocks {
		if b.IsLoopHeader {
			foundHeader = true
		}
	}
	assert.True(t, foundHeader)
}
