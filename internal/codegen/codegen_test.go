package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/codegen"
)

func emitAddReturn(t *testing.T, arch codegen.Arch) []byte {
	t.Helper()
	e := codegen.New(arch)
	require.Equal(t, arch, e.Arch())

	e.Prologue(0)
	e.LoadImm64(0, 2)
	e.LoadImm64(1, 3)
	e.Add(0, 0, 1)
	e.Epilogue()
	code := e.Finalize()
	require.NotEmpty(t, code)
	return code
}

func TestEmittersProduceNonEmptyCode(t *testing.T) {
	for _, arch := range []codegen.Arch{codegen.ArchAMD64, codegen.ArchARM64, codegen.ArchRISCV64} {
		t.Run(arch.String(), func(t *testing.T) {
			emitAddReturn(t, arch)
		})
	}
}

func TestBranchFixupResolvesForwardLabel(t *testing.T) {
	for _, arch := range []codegen.Arch{codegen.ArchAMD64, codegen.ArchARM64, codegen.ArchRISCV64} {
		t.Run(arch.String(), func(t *testing.T) {
			e := codegen.New(arch)
			e.LoadImm64(0, 1)
			e.LoadImm64(1, 1)
			e.Cmp(0, 1)
			target := e.ReserveLabel()
			e.JumpIfCond(codegen.CondEqual, target)
			e.LoadImm64(2, 0xDEAD)
			e.MarkLabel(target)
			e.Ret()
			code := e.Finalize()
			assert.NotEmpty(t, code)
		})
	}
}

func TestFrameSpillRoundTrip(t *testing.T) {
	for _, arch := range []codegen.Arch{codegen.ArchAMD64, codegen.ArchARM64, codegen.ArchRISCV64} {
		t.Run(arch.String(), func(t *testing.T) {
			e := codegen.New(arch)
			e.Prologue(32)
			e.LoadImm64(0, 7)
			e.StoreFrame(8, 0)
			e.LoadFrame(1, 8)
			e.Add(0, 0, 1)
			e.Epilogue()
			code := e.Finalize()
			assert.NotEmpty(t, code)
		})
	}
}

func TestCallHelperAndReturnMove(t *testing.T) {
	for _, arch := range []codegen.Arch{codegen.ArchAMD64, codegen.ArchARM64, codegen.ArchRISCV64} {
		t.Run(arch.String(), func(t *testing.T) {
			e := codegen.New(arch)
			e.Prologue(0)
			e.LoadImm64(0, 42)
			e.CallHelper(0x1000, []int{0})
			e.MoveFromReturn(1)
			e.MoveToReturn(1)
			e.Epilogue()
			code := e.Finalize()
			assert.NotEmpty(t, code)
		})
	}
}

func TestCodeCacheReserveProtectRelease(t *testing.T) {
	cache := codegen.NewCodeCache(0)
	region, err := cache.Reserve(16)
	require.NoError(t, err)
	require.NotNil(t, region)

	code := emitAddReturn(t, codegen.ArchAMD64)
	copy(region.Bytes(), code)

	require.NoError(t, cache.Protect(region))
	assert.NotZero(t, region.EntryPoint())
	assert.NoError(t, cache.Release(region))
}

func TestCodeCacheEnforcesBudget(t *testing.T) {
	cache := codegen.NewCodeCache(4096)
	_, err := cache.Reserve(16)
	require.NoError(t, err)
	_, err = cache.Reserve(1 << 20)
	assert.Error(t, err)
}
