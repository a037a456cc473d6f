package tracing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/codegen"
	"github.com/aerojs/aerojs-core/internal/jit/tracing"
	"github.com/aerojs/aerojs-core/internal/rt/value"
	"github.com/aerojs/aerojs-core/pkg/logging"
)

// sumLoopChunk builds `r = 0; i = 0; while (i < n) { r = r + i; i = i + 1 }
// return r`, the same shape spec §8 scenario #1 promotes to a trace.
func sumLoopChunk(t *testing.T) *bytecode.Chunk {
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

func newTracer(cfg tracing.Config) *tracing.Tracer {
	cache := codegen.NewCodeCache(0)
	return tracing.NewTracer(codegen.ArchAMD64, cache, tracing.DefaultTrampolines(), cfg, logging.Nop())
}

// TestHotThresholdPromotesLocationToCompiledTrace exercises spec §8
// scenario #1's promotion property: a location is not traced before
// HotThreshold entries, and is compiled at/after it.
func TestHotThresholdPromotesLocationToCompiledTrace(t *testing.T) {
	cfg := tracing.DefaultConfig()
	cfg.HotThreshold = 5
	tr := newTracer(cfg)
	chunk := sumLoopChunk(t)
	loc := tracing.LocationOf(1, 0)

	for i := 0; i < cfg.HotThreshold-1; i++ {
		assert.Nil(t, tr.GetCompileTraceForLocation(loc, chunk, 1))
	}

	ct := tr.GetCompileTraceForLocation(loc, chunk, 1)
	require.NotNil(t, ct)
	assert.NotZero(t, ct.Entry)
	assert.Positive(t, ct.Size)
	assert.NotEmpty(t, ct.Guards)
	assert.NotEmpty(t, ct.SideExits)

	snap := tr.Statistics()
	assert.Equal(t, uint64(1), snap.Compilations)
}

// TestCompiledTraceHitsAreCountedAndStable covers the "calling the
// tracer's getCompileTraceForLocation(L) is idempotent" requirement:
// once compiled, repeated calls return the same trace and bump its
// execution count and the tracer's hit counter.
func TestCompiledTraceHitsAreCountedAndStable(t *testing.T) {
	cfg := tracing.DefaultConfig()
	cfg.HotThreshold = 3
	tr := newTracer(cfg)
	chunk := sumLoopChunk(t)
	loc := tracing.LocationOf(2, 0)

	for i := 0; i < cfg.HotThreshold; i++ {
		tr.GetCompileTraceForLocation(loc, chunk, 2)
	}
	first := tr.GetCompileTraceForLocation(loc, chunk, 2)
	require.NotNil(t, first)

	second := tr.GetCompileTraceForLocation(loc, chunk, 2)
	require.NotNil(t, second)
	assert.Same(t, first, second)
	assert.GreaterOrEqual(t, second.ExecutionCount, uint64(2))

	snap := tr.Statistics()
	assert.GreaterOrEqual(t, snap.Hits, uint64(1))
}

// TestHandleSideExitReportsGuardFailureKindAndResumeOffset covers spec
// §8 scenario #6: a compiled trace's recorded guard corresponds to a
// SideExit the tracer's handler reports a kind and resume point for.
func TestHandleSideExitReportsGuardFailureKindAndResumeOffset(t *testing.T) {
	cfg := tracing.DefaultConfig()
	cfg.HotThreshold = 2
	tr := newTracer(cfg)
	chunk := sumLoopChunk(t)
	loc := tracing.LocationOf(3, 0)

	var ct *tracing.CompiledTrace
	for i := 0; i < cfg.HotThreshold; i++ {
		ct = tr.GetCompileTraceForLocation(loc, chunk, 3)
	}
	require.NotNil(t, ct)
	require.NotEmpty(t, ct.SideExits)

	resume := tr.HandleSideExit(ct.ID, 0)
	assert.GreaterOrEqual(t, resume, 0)

	snap := tr.Statistics()
	assert.Equal(t, uint64(1), snap.SideExits["guard-failure"])
}

// TestEvictionReclaimsLeastExecutedTraces covers spec §4.9's memory
// reclamation: once the tracer's compiled-trace budget is exceeded, the
// least-executed traces are released first.
func TestEvictionReclaimsLeastExecutedTraces(t *testing.T) {
	cfg := tracing.DefaultConfig()
	cfg.HotThreshold = 2
	cfg.MaxCompiledTraces = 2
	tr := newTracer(cfg)
	chunk := sumLoopChunk(t)

	for fid := 1; fid <= 4; fid++ {
		loc := tracing.LocationOf(fid, 0)
		for i := 0; i < cfg.HotThreshold; i++ {
			tr.GetCompileTraceForLocation(loc, chunk, fid)
		}
	}

	snap := tr.Statistics()
	assert.Positive(t, snap.Evictions)
}

func TestDisabledTracerNeverCompiles(t *testing.T) {
	cfg := tracing.DefaultConfig()
	cfg.Enabled = false
	tr := newTracer(cfg)
	chunk := sumLoopChunk(t)
	loc := tracing.LocationOf(1, 0)

	for i := 0; i < 50; i++ {
		assert.Nil(t, tr.GetCompileTraceForLocation(loc, chunk, 1))
	}
}
