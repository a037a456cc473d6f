package frame_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/frame"
	"github.com/aerojs/aerojs-core/internal/rt/value"
	"github.com/aerojs/aerojs-core/pkg/errors"
)

func chunk(t *testing.T, strict bool) *bytecode.Chunk {
	t.Helper()
	e := bytecode.NewEncoder()
	e.Emit(bytecode.OpReturnUndefined)
	c, err := e.Finish(strict, 1, 3, 4)
	require.NoError(t, err)
	return c
}

func TestNewGlobalFrameIsActiveAtOffsetZero(t *testing.T) {
	f := frame.NewGlobalFrame(chunk(t, false))
	assert.Equal(t, frame.Global, f.Type)
	assert.Equal(t, frame.Active, f.State)
	assert.Equal(t, 0, f.IP())
	assert.Len(t, f.Locals, 3)
}

func TestFunctionFrameInheritsStrictFromBlock(t *testing.T) {
	f := frame.NewFunctionFrame(chunk(t, true), 1, value.Undefined(), nil, nil)
	assert.True(t, f.Strict)
}

func TestFunctionFrameInheritsStrictFromParent(t *testing.T) {
	parent := frame.NewFunctionFrame(chunk(t, true), 0, value.Undefined(), nil, nil)
	child := frame.NewFunctionFrame(chunk(t, false), 1, value.Undefined(), nil, parent)
	assert.True(t, child.Strict)
}

func TestFunctionFrameNonStrictWhenNeitherBlockNorParentStrict(t *testing.T) {
	parent := frame.NewFunctionFrame(chunk(t, false), 0, value.Undefined(), nil, nil)
	child := frame.NewFunctionFrame(chunk(t, false), 1, value.Undefined(), nil, parent)
	assert.False(t, child.Strict)
}

func TestModuleFrameIsAlwaysStrict(t *testing.T) {
	f := frame.NewModuleFrame(chunk(t, false), 0)
	assert.True(t, f.Strict)
	assert.Equal(t, frame.Module, f.Type)
}

func TestEvalDirectFrameInheritsCallerStrict(t *testing.T) {
	parent := frame.NewFunctionFrame(chunk(t, true), 0, value.Undefined(), nil, nil)
	ev := frame.NewEvalDirectFrame(chunk(t, false), parent.Scope, value.Undefined(), parent)
	assert.True(t, ev.Strict)
	assert.True(t, ev.IsDirectEval)
	assert.Equal(t, frame.Eval, ev.Type)
}

func TestEvalIndirectFrameDoesNotInheritCallerStrict(t *testing.T) {
	parent := frame.NewFunctionFrame(chunk(t, true), 0, value.Undefined(), nil, nil)
	_ = parent
	ev := frame.NewEvalIndirectFrame(chunk(t, false), 0, value.Undefined())
	assert.False(t, ev.Strict)
	assert.False(t, ev.IsDirectEval)
}

func TestNativeFrameHasNoBlockAndInheritsParentStrict(t *testing.T) {
	parent := frame.NewFunctionFrame(chunk(t, true), 0, value.Undefined(), nil, nil)
	native := frame.NewNativeFrame(0xdeadbeef, value.Undefined(), nil, parent)
	assert.Equal(t, frame.Native, native.Type)
	assert.Nil(t, native.Block)
	assert.True(t, native.Strict)
}

func TestSeekValidatesAgainstBlockLength(t *testing.T) {
	c := chunk(t, false)
	f := frame.NewGlobalFrame(c)
	require.NoError(t, f.Seek(0))
	assert.Equal(t, 0, f.IP())

	err := f.Seek(len(c.Code) + 10)
	require.Error(t, err)
	aeroErr, ok := err.(errors.AeroError)
	require.True(t, ok)
	assert.Equal(t, errors.KindOutOfRange, aeroErr.Kind())
}

func TestSeekOnNativeFrameAlwaysFails(t *testing.T) {
	native := frame.NewNativeFrame(1, value.Undefined(), nil, nil)
	err := native.Seek(0)
	require.Error(t, err)
	aeroErr, ok := err.(errors.AeroError)
	require.True(t, ok)
	assert.Equal(t, errors.KindOutOfRange, aeroErr.Kind())
}

func TestSetLocalAutoGrowsOutOfRangeIndex(t *testing.T) {
	f := frame.NewGlobalFrame(chunk(t, false))
	require.Len(t, f.Locals, 3)

	f.SetLocal(5, value.Int32(42))
	require.Len(t, f.Locals, 6)
	assert.Equal(t, int32(42), f.GetLocal(5).AsInt32())
	assert.True(t, f.GetLocal(4).IsUndefined())
}

func TestGetLocalOutOfRangeReadDoesNotGrow(t *testing.T) {
	f := frame.NewGlobalFrame(chunk(t, false))
	v := f.GetLocal(100)
	assert.True(t, v.IsUndefined())
	assert.Len(t, f.Locals, 3)
}

func TestAdvanceMovesPastOneInstruction(t *testing.T) {
	e := bytecode.NewEncoder()
	e.Emit(bytecode.OpLoadUndefined, 0)
	e.Emit(bytecode.OpReturnUndefined)
	c, err := e.Finish(false, 0, 1, 1)
	require.NoError(t, err)

	f := frame.NewGlobalFrame(c)
	require.NoError(t, f.Advance())
	assert.Positive(t, f.IP())
}
