package errors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aeroerrors "github.com/aerojs/aerojs-core/pkg/errors"
)

func TestNewFormatsPositionless(t *testing.T) {
	err := aeroerrors.New(aeroerrors.KindInvalidOpcode, aeroerrors.Position{}, "opcode %d out of range", 200)
	assert.Equal(t, aeroerrors.KindInvalidOpcode, err.Kind())
	assert.Contains(t, err.Error(), "opcode 200 out of range")
}

func TestNewFormatsWithPosition(t *testing.T) {
	pos := aeroerrors.Position{Line: 3, Column: 7, File: "a.js"}
	err := aeroerrors.New(aeroerrors.KindTypeError, pos, "not a function")
	assert.Contains(t, err.Error(), "a.js:3:7")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := assert.AnError
	err := aeroerrors.Wrap(aeroerrors.KindTruncated, aeroerrors.Position{}, cause, "decode failed")
	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, aeroerrors.Cause(err))
}

func TestListFatal(t *testing.T) {
	var l aeroerrors.List
	assert.False(t, l.Fatal())

	l.Add(aeroerrors.New(aeroerrors.KindUnreachableCode, aeroerrors.Position{}, "dead block"))
	assert.False(t, l.Fatal(), "warnings alone must not be fatal")

	l.Add(aeroerrors.New(aeroerrors.KindUndefinedLabel, aeroerrors.Position{}, "label 3 unresolved"))
	assert.True(t, l.Fatal())
	assert.Len(t, l.Errors, 2)
}

func TestKindIsWarning(t *testing.T) {
	assert.True(t, aeroerrors.KindUnreachableCode.IsWarning())
	assert.False(t, aeroerrors.KindInvalidOpcode.IsWarning())
}
