package tracing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aerojs/aerojs-core/internal/jit/tracing"
	"github.com/aerojs/aerojs-core/pkg/errors"
)

func TestRecorderStartsIdle(t *testing.T) {
	r := tracing.NewRecorder(2000, 64)
	assert.Equal(t, "idle", r.StateName())
}

func TestOnEntryMovesIdleToRecording(t *testing.T) {
	r := tracing.NewRecorder(2000, 64)
	r.OnEntry(tracing.LocationOf(1, 10))
	assert.Equal(t, "recording", r.StateName())
}

func TestOnEntryWhileRecordingIsIgnored(t *testing.T) {
	r := tracing.NewRecorder(2000, 64)
	r.OnEntry(tracing.LocationOf(1, 10))
	r.OnEntry(tracing.LocationOf(1, 99))
	assert.Equal(t, "recording", r.StateName())
}

func TestOnOpcodeExceedingMaxLengthAborts(t *testing.T) {
	r := tracing.NewRecorder(3, 64)
	r.OnEntry(tracing.LocationOf(1, 0))
	for i := 0; i < 4; i++ {
		r.OnOpcode()
	}
	assert.Equal(t, "aborting", r.StateName())
	reason, ok := r.AbortReason()
	assert.True(t, ok)
	assert.Equal(t, errors.KindTraceTooLong, reason)
}

func TestOnBranchExceedingMaxGuardsAborts(t *testing.T) {
	r := tracing.NewRecorder(2000, 2)
	r.OnEntry(tracing.LocationOf(1, 0))
	for i := 0; i < 3; i++ {
		r.OnBranch()
	}
	assert.Equal(t, "aborting", r.StateName())
	reason, ok := r.AbortReason()
	assert.True(t, ok)
	assert.Equal(t, errors.KindTooManyGuardFailures, reason)
}

func TestOnReturnClosesLoopAtMatchingOffset(t *testing.T) {
	r := tracing.NewRecorder(2000, 64)
	loc := tracing.LocationOf(1, 5)
	r.OnEntry(loc)
	r.OnOpcode()
	_, closed := r.OnReturn(5)
	assert.True(t, closed)
	assert.Equal(t, "committing", r.StateName())
}

func TestOnReturnAtMismatchedOffsetDoesNotClose(t *testing.T) {
	r := tracing.NewRecorder(2000, 64)
	r.OnEntry(tracing.LocationOf(1, 5))
	_, closed := r.OnReturn(9)
	assert.False(t, closed)
	assert.Equal(t, "recording", r.StateName())
}

func TestResetReturnsToIdle(t *testing.T) {
	r := tracing.NewRecorder(2000, 64)
	r.OnEntry(tracing.LocationOf(1, 0))
	r.Reset()
	assert.Equal(t, "idle", r.StateName())
}

func TestLocationRoundTrip(t *testing.T) {
	loc := tracing.LocationOf(3, 42)
	assert.Equal(t, 3, loc.FunctionID())
	assert.Equal(t, 42, loc.Offset())
}
