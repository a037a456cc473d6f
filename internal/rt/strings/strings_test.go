package strings_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	rtstrings "github.com/aerojs/aerojs-core/internal/rt/strings"
)

func TestSmallVsNormalVariant(t *testing.T) {
	small := rtstrings.New("short")
	long := rtstrings.New("this string is definitely longer than fourteen bytes")
	assert.Equal(t, "short", small.Bytes())
	assert.Equal(t, 5, small.Len())
	assert.Equal(t, long.Bytes(), long.Bytes())
}

func TestSliceView(t *testing.T) {
	base := rtstrings.New("hello world")
	sub := rtstrings.Slice(base, 6, 5)
	assert.Equal(t, "world", sub.Bytes())
	assert.Equal(t, 5, sub.Len())
}

func TestSliceOfSliceStaysShallow(t *testing.T) {
	base := rtstrings.New("hello world")
	mid := rtstrings.Slice(base, 0, 5)
	leaf := rtstrings.Slice(mid, 1, 3)
	assert.Equal(t, "ell", leaf.Bytes())
}

func TestConcatRope(t *testing.T) {
	a := rtstrings.New("hello ")
	b := rtstrings.New("world")
	c := rtstrings.Concat(a, b)
	assert.Equal(t, "hello world", c.Bytes())
	assert.Equal(t, 11, c.Len())
}

func TestFlatten(t *testing.T) {
	a := rtstrings.New("hello ")
	b := rtstrings.New("world")
	c := rtstrings.Concat(a, b)
	c.Flatten()
	assert.Equal(t, "hello world", c.Bytes())
}

func TestCodePointLenCountsRunesNotBytes(t *testing.T) {
	s := rtstrings.New("héllo")
	assert.Equal(t, 5, s.CodePointLen())
	assert.Greater(t, s.Len(), 5)
}

func TestEqual(t *testing.T) {
	a := rtstrings.New("same")
	b := rtstrings.Concat(rtstrings.New("sa"), rtstrings.New("me"))
	assert.True(t, rtstrings.Equal(a, b))
}

func TestInternTableReturnsCanonicalInstance(t *testing.T) {
	table := rtstrings.NewInternTable()
	a := table.Intern("shared")
	b := table.Intern("shared")
	assert.Same(t, a, b)
	assert.Equal(t, 1, table.Len())
}
