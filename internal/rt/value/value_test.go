package value_test

import (
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/rt/bigint"
	rtstrings "github.com/aerojs/aerojs-core/internal/rt/strings"
	"github.com/aerojs/aerojs-core/internal/rt/symbol"
	"github.com/aerojs/aerojs-core/internal/rt/value"
)

func TestEncodeDecodeRoundTripPrimitives(t *testing.T) {
	cases := []value.Value{
		value.Undefined(),
		value.Null(),
		value.Bool(true),
		value.Bool(false),
		value.Int32(0),
		value.Int32(-1),
		value.Int32(math.MaxInt32),
		value.Float64(0),
		value.Float64(-0.0),
		value.Float64(3.14159),
		value.Float64(math.Inf(1)),
		value.Float64(math.Inf(-1)),
	}
	for _, v := range cases {
		rt := value.FromBits(v.Bits())
		assert.Equal(t, v.Bits(), rt.Bits())
	}
}

func TestNaNRoundTripsAsNaN(t *testing.T) {
	v := value.Float64(math.NaN())
	rt := value.FromBits(v.Bits())
	assert.True(t, math.IsNaN(rt.AsFloat64()))
	assert.True(t, rt.IsDouble())
}

func TestIsDoubleExclusiveWithTag(t *testing.T) {
	for _, v := range []value.Value{value.Undefined(), value.Null(), value.Bool(true), value.Int32(5)} {
		assert.False(t, v.IsDouble())
	}
	assert.True(t, value.Float64(1.5).IsDouble())
}

func TestRoundTripHeapVariants(t *testing.T) {
	s := rtstrings.New("hi")
	sv := value.StringVal(s)
	assert.True(t, sv.IsString())
	assert.Equal(t, "hi", sv.AsString().Bytes())

	reg := symbol.NewRegistry()
	sym := reg.Create("d")
	symv := value.SymbolVal(sym)
	assert.True(t, symv.IsSymbol())
	assert.Same(t, sym, symv.AsSymbol())

	b := bigint.FromInt64(42)
	bv := value.BigIntVal(b)
	assert.True(t, bv.IsBigInt())
	assert.Equal(t, "42", bv.AsBigInt().String())

	var dummy int
	ov := value.Object(unsafe.Pointer(&dummy))
	assert.True(t, ov.IsObject())
	assert.Equal(t, unsafe.Pointer(&dummy), ov.AsObject())
}

func TestObjectOfNilPointerIsNull(t *testing.T) {
	assert.True(t, value.Object(nil).IsNull())
}

func TestStrictEqualsNaNNeverEqual(t *testing.T) {
	nan := value.Float64(math.NaN())
	assert.False(t, nan.StrictEquals(nan))
}

func TestStrictEqualsPositiveNegativeZero(t *testing.T) {
	assert.True(t, value.Float64(0).StrictEquals(value.Float64(math.Copysign(0, -1))))
}

func TestStrictEqualsCrossTagAlwaysFalse(t *testing.T) {
	assert.False(t, value.Undefined().StrictEquals(value.Null()))
	assert.False(t, value.Int32(0).StrictEquals(value.Bool(false)))
}

func TestStrictEqualsInt32AndDoubleCompareNumerically(t *testing.T) {
	assert.True(t, value.Int32(2).StrictEquals(value.Float64(2)))
}

func TestToBoolean(t *testing.T) {
	assert.False(t, value.Undefined().ToBoolean())
	assert.False(t, value.Null().ToBoolean())
	assert.False(t, value.Float64(0).ToBoolean())
	assert.False(t, value.Float64(math.NaN()).ToBoolean())
	assert.True(t, value.Float64(1).ToBoolean())
	assert.False(t, value.StringVal(rtstrings.New("")).ToBoolean())
	assert.True(t, value.StringVal(rtstrings.New("x")).ToBoolean())
	assert.False(t, value.BigIntVal(bigint.Zero()).ToBoolean())
}

func TestToNumberPrimitives(t *testing.T) {
	n, err := value.Bool(true).ToNumber()
	require.NoError(t, err)
	assert.Equal(t, float64(1), n)

	n, err = value.Null().ToNumber()
	require.NoError(t, err)
	assert.Equal(t, float64(0), n)

	n, err = value.StringVal(rtstrings.New("  42  ")).ToNumber()
	require.NoError(t, err)
	assert.Equal(t, float64(42), n)
}

func TestToNumberBigIntThrowsTypeError(t *testing.T) {
	_, err := value.BigIntVal(bigint.FromInt64(1)).ToNumber()
	require.Error(t, err)
}

func TestToStringValuePrimitives(t *testing.T) {
	s, err := value.Float64(3).ToStringValue()
	require.NoError(t, err)
	assert.Equal(t, "3", s.Bytes())

	s, err = value.Undefined().ToStringValue()
	require.NoError(t, err)
	assert.Equal(t, "undefined", s.Bytes())
}

func TestToPrimitiveThrowsWithoutHookOnObject(t *testing.T) {
	value.ObjectPrimitiveHook = nil
	var dummy int
	_, err := value.Object(unsafe.Pointer(&dummy)).ToPrimitive(value.HintDefault)
	require.Error(t, err)
}

func TestToPrimitiveDelegatesToHook(t *testing.T) {
	value.ObjectPrimitiveHook = func(obj value.Value, hint value.Hint) (value.Value, bool, error) {
		return value.Int32(7), true, nil
	}
	defer func() { value.ObjectPrimitiveHook = nil }()

	var dummy int
	out, err := value.Object(unsafe.Pointer(&dummy)).ToPrimitive(value.HintNumber)
	require.NoError(t, err)
	assert.True(t, out.StrictEquals(value.Int32(7)))
}

func TestToPrimitiveOnNonObjectIsIdentity(t *testing.T) {
	v := value.Int32(9)
	out, err := v.ToPrimitive(value.HintDefault)
	require.NoError(t, err)
	assert.True(t, out.StrictEquals(v))
}
