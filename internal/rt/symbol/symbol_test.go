package symbol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aerojs/aerojs-core/internal/rt/symbol"
)

func TestForRoundTrip(t *testing.T) {
	r := symbol.NewRegistry()
	a := r.For("k")
	b := r.For("k")
	assert.Same(t, a, b)

	key, ok := r.KeyFor(a)
	assert.True(t, ok)
	assert.Equal(t, "k", key)
}

func TestCreateIsAlwaysUnique(t *testing.T) {
	r := symbol.NewRegistry()
	a := r.Create("d")
	b := r.Create("d")
	assert.NotSame(t, a, b)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestKeyForUnregisteredSymbol(t *testing.T) {
	r := symbol.NewRegistry()
	s := r.Create("not registered")
	_, ok := r.KeyFor(s)
	assert.False(t, ok)
}

func TestWellKnownSymbolsLazyAndStable(t *testing.T) {
	r := symbol.NewRegistry()
	a := r.WellKnownSymbol(symbol.Iterator)
	b := r.WellKnownSymbol(symbol.Iterator)
	assert.Same(t, a, b)

	other := r.WellKnownSymbol(symbol.AsyncIterator)
	assert.NotSame(t, a, other)
}
