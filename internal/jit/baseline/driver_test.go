package baseline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/codegen"
	"github.com/aerojs/aerojs-core/internal/jit/baseline"
	"github.com/aerojs/aerojs-core/internal/rt/value"
	"github.com/aerojs/aerojs-core/pkg/logging"
)

// sumChunk builds `function(n) { r = 0; i = 0; while (i < n) { r = r + i; i
// = i + 1 } return r }` directly in bytecode, exercising arithmetic,
// comparison, and both branch directions.
func sumChunk(t *testing.T) *bytecode.Chunk {
	t.Helper()
	e := bytecode.NewEncoder()
	const r, i, n, cond, one = 1, 2, 0, 3, 4

	e.Emit(bytecode.OpLoadConst, r, uint32(e.AddConstant(value.Int32(0))))
	e.Emit(bytecode.OpLoadConst, i, uint32(e.AddConstant(value.Int32(0))))
	e.Emit(bytecode.OpLoadConst, one, uint32(e.AddConstant(value.Int32(1))))

	loop := e.NewLabel()
	e.DefineLabel(loop)
	e.Emit(bytecode.OpLess, cond, i, n)
	done := e.NewLabel()
	e.EmitJump(bytecode.OpJumpIfFalse, done, cond)
	e.Emit(bytecode.OpAdd, r, r, i)
	e.Emit(bytecode.OpAdd, i, i, one)
	e.EmitJump(bytecode.OpJump, loop)
	e.DefineLabel(done)
	e.Emit(bytecode.OpReturn, r)

	chunk, err := e.Finish(true, 1, 0, 5)
	require.NoError(t, err)
	return chunk
}

func newCompiler(arch codegen.Arch) *baseline.Compiler {
	cache := codegen.NewCodeCache(0)
	return baseline.NewCompiler(arch, cache, baseline.DefaultTrampolines(), logging.Nop())
}

func TestCompileProducesNonEmptyCode(t *testing.T) {
	for _, arch := range []codegen.Arch{codegen.ArchAMD64, codegen.ArchARM64, codegen.ArchRISCV64} {
		t.Run(arch.String(), func(t *testing.T) {
			c := newCompiler(arch)
			cf, err := c.Compile(1, sumChunk(t))
			require.NoError(t, err)
			assert.NotNil(t, cf)
			assert.NotZero(t, cf.Entry)
			assert.Positive(t, cf.Size)
		})
	}
}

func TestCompileIsIdempotentPerFunctionID(t *testing.T) {
	c := newCompiler(codegen.ArchAMD64)
	chunk := sumChunk(t)

	first, err := c.Compile(7, chunk)
	require.NoError(t, err)
	second, err := c.Compile(7, chunk)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestCompileDistinctFunctionIDsDontCollide(t *testing.T) {
	c := newCompiler(codegen.ArchAMD64)
	chunk := sumChunk(t)

	a, err := c.Compile(1, chunk)
	require.NoError(t, err)
	b, err := c.Compile(2, chunk)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

// forcedSpillChunk uses more live registers at once than the baseline
// compiler's capped Int64 class (5), forcing at least one spill.
func forcedSpillChunk(t *testing.T) *bytecode.Chunk {
	t.Helper()
	e := bytecode.NewEncoder()
	const numRegs = 12
	for i := 0; i < numRegs; i++ {
		e.Emit(bytecode.OpLoadConst, uint32(i), uint32(e.AddConstant(value.Int32(int32(i)))))
	}
	acc := uint32(numRegs)
	e.Emit(bytecode.OpLoadConst, acc, uint32(e.AddConstant(value.Int32(0))))
	for i := 0; i < numRegs; i++ {
		e.Emit(bytecode.OpAdd, acc, acc, uint32(i))
	}
	e.Emit(bytecode.OpReturn, acc)

	chunk, err := e.Finish(true, 0, 0, numRegs+1)
	require.NoError(t, err)
	return chunk
}

func TestCompileHandlesSpilledRegisters(t *testing.T) {
	c := newCompiler(codegen.ArchAMD64)
	cf, err := c.Compile(1, forcedSpillChunk(t))
	require.NoError(t, err)
	assert.Positive(t, cf.Size)
}

func TestCompileGetPropAllocatesPropertySite(t *testing.T) {
	e := bytecode.NewEncoder()
	name := e.AddConstant(value.Int32(0)) // stand-in constant slot for the property name
	e.Emit(bytecode.OpLoadConst, 0, uint32(e.AddConstant(value.Int32(1))))
	e.Emit(bytecode.OpGetProp, 1, 0, uint32(name))
	e.Emit(bytecode.OpReturn, 1)
	chunk, err := e.Finish(true, 0, 0, 2)
	require.NoError(t, err)

	c := newCompiler(codegen.ArchAMD64)
	cf, err := c.Compile(1, chunk)
	require.NoError(t, err)
	require.Len(t, cf.Sites, 1)
	assert.Equal(t, baseline.SiteProperty, cf.Sites[0].Kind)
	assert.Equal(t, "uninitialized", cf.Sites[0].State())
}
