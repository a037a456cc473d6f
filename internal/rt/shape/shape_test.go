package shape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aerojs/aerojs-core/internal/rt/shape"
)

func TestRootStartsEmpty(t *testing.T) {
	assert.Equal(t, 0, shape.Root.NumFields())
	assert.Equal(t, uint64(0), shape.Root.ID())
	_, ok := shape.Root.Lookup("x")
	assert.False(t, ok)
}

func TestTransitionAddsFieldAtNextOffset(t *testing.T) {
	s := shape.Root.Transition("x")
	off, ok := s.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, 0, off)
	assert.Equal(t, 1, s.NumFields())

	s2 := s.Transition("y")
	off, ok = s2.Lookup("y")
	assert.True(t, ok)
	assert.Equal(t, 1, off)
	// The second shape still sees the first field it inherited.
	off, ok = s2.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, 0, off)
}

func TestTransitionIsDeduped(t *testing.T) {
	a := shape.Root.Transition("x")
	b := shape.Root.Transition("x")
	assert.Same(t, a, b)
}

func TestTransitionOfExistingFieldIsNoop(t *testing.T) {
	s := shape.Root.Transition("x")
	same := s.Transition("x")
	assert.Same(t, s, same)
}

func TestDivergentTransitionsProduceDistinctShapes(t *testing.T) {
	base := shape.Root.Transition("x")
	a := base.Transition("y")
	b := base.Transition("z")
	assert.NotSame(t, a, b)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestTransitionIsConcurrencySafe(t *testing.T) {
	base := shape.Root.Transition("shared")
	done := make(chan *shape.Shape, 32)
	for i := 0; i < 32; i++ {
		go func() { done <- base.Transition("concurrent") }()
	}
	first := <-done
	for i := 1; i < 32; i++ {
		assert.Same(t, first, <-done)
	}
}
