package bigint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/rt/bigint"
)

func mustParse(t *testing.T, s string, radix int) *bigint.Int {
	t.Helper()
	v, err := bigint.Parse(s, radix)
	require.NoError(t, err)
	return v
}

func TestRoundTripAddSubMul(t *testing.T) {
	a := mustParse(t, "123456789012345678901234567890", 10)
	b := mustParse(t, "987654321098765432109876543210", 10)

	assert.Equal(t, a.String(), a.Add(b).Sub(b).String())

	quotient, err := a.Mul(b).Div(b)
	require.NoError(t, err)
	assert.Equal(t, a.String(), quotient.String())
}

func TestDivModSignRules(t *testing.T) {
	seven := bigint.FromInt64(7)
	three := bigint.FromInt64(3)
	negSeven := bigint.FromInt64(-7)

	q, r, err := seven.DivMod(three)
	require.NoError(t, err)
	assert.Equal(t, "2", q.String())
	assert.Equal(t, "1", r.String())

	q, r, err = negSeven.DivMod(three)
	require.NoError(t, err)
	assert.Equal(t, "-2", q.String())
	assert.Equal(t, "-1", r.String(), "remainder sign follows the dividend")
}

func TestDivisionByZero(t *testing.T) {
	_, err := bigint.FromInt64(1).Div(bigint.Zero())
	require.Error(t, err)
}

func TestZeroIsUniqueAndPositive(t *testing.T) {
	z1 := bigint.Zero()
	z2 := bigint.FromInt64(5).Sub(bigint.FromInt64(5))
	assert.True(t, z1.IsPositive())
	assert.True(t, z2.IsPositive())
	assert.Equal(t, "0", z1.String())
	assert.Equal(t, "0", z2.String())
}

func TestPowZeroZero(t *testing.T) {
	assert.Equal(t, "1", bigint.Zero().Pow(0).String())
}

func TestPowBinaryExponentiation(t *testing.T) {
	two := bigint.FromInt64(2)
	assert.Equal(t, "1024", two.Pow(10).String())
}

func TestStringRoundTripAnyRadix(t *testing.T) {
	for _, radix := range []int{2, 8, 10, 16, 36} {
		v := mustParse(t, "123456789", 10)
		s, err := v.StringRadix(radix)
		require.NoError(t, err)
		back, err := bigint.Parse(s, radix)
		require.NoError(t, err)
		assert.Equal(t, v.String(), back.String())
	}
}

func TestBigIntRoundTripFromSpecScenario(t *testing.T) {
	v := mustParse(t, "123456789012345678901234567890", 10)
	assert.Equal(t, "123456789012345678901234567890", v.String())

	negOne := bigint.FromInt64(-1)
	doubled := v.Mul(negOne).Mul(negOne)
	assert.Equal(t, v.String(), doubled.String())
}

func TestBitwiseTwosComplement(t *testing.T) {
	a := bigint.FromInt64(-1)
	b := bigint.FromInt64(1)
	assert.Equal(t, "-1", a.Or(b).String(), "-1 | 1 == -1 in two's complement")
	assert.Equal(t, "1", a.And(b).String(), "-1 & 1 == 1")
}

func TestNotIsNegNMinusOne(t *testing.T) {
	five := bigint.FromInt64(5)
	assert.Equal(t, "-6", five.Not().String())
}

func TestShifts(t *testing.T) {
	v := bigint.FromInt64(1)
	assert.Equal(t, "1024", v.Shl(10).String())
	assert.Equal(t, "1", v.Shl(10).Shr(10).String())

	neg := bigint.FromInt64(-8)
	assert.Equal(t, "-4", neg.Shr(1).String(), "arithmetic shift preserves sign")
}

func TestCmp(t *testing.T) {
	a := bigint.FromInt64(5)
	b := bigint.FromInt64(-5)
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(bigint.FromInt64(5)))
}
