package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/rt/value"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e := bytecode.NewEncoder()
	idx := e.AddConstant(value.Int32(42))
	e.Emit(bytecode.OpLoadConst, 0, uint32(idx))
	e.Emit(bytecode.OpReturn, 0)

	chunk, err := e.Finish(false, 0, 1, 1)
	require.NoError(t, err)

	instrs, err := bytecode.DecodeAll(chunk.Code)
	require.NoError(t, err)
	require.Len(t, instrs, 2)
	assert.Equal(t, bytecode.OpLoadConst, instrs[0].Op)
	assert.Equal(t, uint32(0), instrs[0].Operands[0])
	assert.Equal(t, uint32(idx), instrs[0].Operands[1])
	assert.Equal(t, bytecode.OpReturn, instrs[1].Op)
}

func TestJumpFixupResolvesToAbsoluteOffset(t *testing.T) {
	e := bytecode.NewEncoder()
	label := e.NewLabel()
	e.EmitJump(bytecode.OpJump, label)
	e.Emit(bytecode.OpLoadUndefined, 0)
	e.DefineLabel(label)
	targetOffset := e.Offset()
	e.Emit(bytecode.OpReturnUndefined)

	chunk, err := e.Finish(false, 0, 0, 1)
	require.NoError(t, err)

	instrs, err := bytecode.DecodeAll(chunk.Code)
	require.NoError(t, err)
	assert.Equal(t, bytecode.OpJump, instrs[0].Op)
	assert.Equal(t, uint32(targetOffset), instrs[0].Operands[0])
}

func TestUnresolvedLabelFailsWithInvalidBytecode(t *testing.T) {
	e := bytecode.NewEncoder()
	label := e.NewLabel()
	e.EmitJump(bytecode.OpJump, label)
	_, err := e.Finish(false, 0, 0, 1)
	require.Error(t, err)
}

func TestDecodeTruncatedStream(t *testing.T) {
	_, err := bytecode.DecodeAll([]byte{byte(bytecode.OpLoadConst), 0})
	require.Error(t, err)
}

func TestDecodeInvalidOpcode(t *testing.T) {
	_, err := bytecode.DecodeAll([]byte{0xFF})
	require.Error(t, err)
}

func TestConstantPoolDeduplicates(t *testing.T) {
	c := bytecode.NewChunk()
	a := c.AddConstant(value.Int32(1))
	b := c.AddConstant(value.Int32(1))
	assert.Equal(t, a, b)
	assert.Len(t, c.Constants, 1)
}

func TestSeekTellReplay(t *testing.T) {
	e := bytecode.NewEncoder()
	e.Emit(bytecode.OpLoadUndefined, 0)
	mid := e.Offset()
	e.Emit(bytecode.OpLoadNull, 1)
	chunk, err := e.Finish(false, 0, 0, 2)
	require.NoError(t, err)

	d := bytecode.NewDecoder(chunk.Code)
	d.Seek(mid)
	instr, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, bytecode.OpLoadNull, instr.Op)
}

func TestDisassembleProducesReadableOutput(t *testing.T) {
	e := bytecode.NewEncoder()
	e.Emit(bytecode.OpLoadUndefined, 0)
	e.Emit(bytecode.OpReturn, 0)
	chunk, err := e.Finish(false, 0, 0, 1)
	require.NoError(t, err)

	out := bytecode.Disassemble(chunk, "test")
	assert.Contains(t, out, "LoadUndefined")
	assert.Contains(t, out, "Return")
}
