package baseline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/jit/baseline"
	"github.com/aerojs/aerojs-core/internal/rt/shape"
)

func TestNewSiteStartsUninitialized(t *testing.T) {
	s := baseline.NewSite(1, 0, baseline.SiteProperty)
	assert.Equal(t, "uninitialized", s.State())
	assert.Equal(t, int64(10000), s.ID)
}

func TestMonomorphicSiteStaysMonomorphicOnRepeatedSameShapeHits(t *testing.T) {
	s := baseline.NewSite(1, 0, baseline.SiteProperty)
	sh := shape.Root.Transition("x")

	out := s.HandleNamedPropertyMiss(sh, "x")
	require.True(t, out.Found)
	require.NotNil(t, out.Handler)
	assert.Equal(t, "monomorphic", s.State())

	hits := 0
	for i := 0; i < 19; i++ {
		out := s.HandleNamedPropertyMiss(sh, "x")
		if out.Found {
			hits++
		}
	}
	assert.Equal(t, 19, hits)
	assert.Equal(t, "monomorphic", s.State())
}

func TestSiteTransitionsMonoToPolyOnSecondShape(t *testing.T) {
	s := baseline.NewSite(1, 0, baseline.SiteProperty)
	a := shape.Root.Transition("a")
	b := shape.Root.Transition("b")

	s.HandleNamedPropertyMiss(a, "a")
	assert.Equal(t, "monomorphic", s.State())

	s.HandleNamedPropertyMiss(b, "b")
	assert.Equal(t, "polymorphic", s.State())
}

func TestSiteGoesMegamorphicAfterExceedingPolyCapacity(t *testing.T) {
	s := baseline.NewSite(1, 0, baseline.SiteProperty)
	shapes := make([]*shape.Shape, 0, 10)
	for i := 0; i < 10; i++ {
		sh := shape.Root.Transition(string(rune('a' + i)))
		shapes = append(shapes, sh)
	}

	for i, sh := range shapes {
		name := string(rune('a' + i))
		out := s.HandleNamedPropertyMiss(sh, name)
		require.True(t, out.Found)
	}

	assert.Equal(t, "megamorphic", s.State())

	// The 11th-equivalent call (any further distinct shape) still routes
	// generic with no further allocation: Handler stays nil.
	extra := shape.Root.Transition("overflow")
	out := s.HandleNamedPropertyMiss(extra, "overflow")
	assert.True(t, out.Found)
	assert.Nil(t, out.Handler)
	assert.Equal(t, "megamorphic", s.State())
}

func TestHandleNamedPropertyMissMissingPropertyIsNotFound(t *testing.T) {
	s := baseline.NewSite(1, 0, baseline.SiteProperty)
	sh := shape.Root.Transition("x")
	out := s.HandleNamedPropertyMiss(sh, "nonexistent")
	assert.False(t, out.Found)
	assert.Nil(t, out.Handler)
}

func TestHandleNamedMethodMissDelegatesToPropertyMiss(t *testing.T) {
	s := baseline.NewSite(1, 0, baseline.SiteMethod)
	sh := shape.Root.Transition("m")
	out := s.HandleNamedMethodMiss(sh, "m")
	assert.True(t, out.Found)
	assert.Equal(t, "monomorphic", s.State())
}

func TestHandleTypeCheckMissReportsMatch(t *testing.T) {
	s := baseline.NewSite(1, 0, baseline.SiteTypeCheck)
	res := s.HandleTypeCheckMiss("number", "number")
	assert.True(t, res.Matched)
	assert.Equal(t, "number", res.ObservedType)

	res = s.HandleTypeCheckMiss("string", "number")
	assert.False(t, res.Matched)
}

func TestSiteIDEncodesFunctionAndOffsetIndex(t *testing.T) {
	s := baseline.NewSite(3, 7, baseline.SiteProperty)
	assert.Equal(t, int64(30007), s.ID)
}
