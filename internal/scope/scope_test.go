package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerojs/aerojs-core/internal/scope"
)

func TestVarHoistsToFunctionScope(t *testing.T) {
	r := scope.NewResolver()
	fn := r.OpenScope(0, scope.Function)
	block := r.OpenScope(fn, scope.Block)

	_, err := r.Declare(block, "x", nil, scope.Var)
	require.NoError(t, err)

	res, ok := r.Resolve(block, "x")
	require.True(t, ok)
	assert.Equal(t, "x", r.Symbol(res.SymbolIndex).Name)
	assert.Equal(t, fn, r.Symbol(res.SymbolIndex).OwnerScope)
}

func TestVarHoistsToGlobalWhenNoFunctionScope(t *testing.T) {
	r := scope.NewResolver()
	block := r.OpenScope(0, scope.Block)

	_, err := r.Declare(block, "g", nil, scope.Var)
	require.NoError(t, err)

	res, ok := r.Resolve(block, "g")
	require.True(t, ok)
	assert.Equal(t, 0, r.Symbol(res.SymbolIndex).OwnerScope)
}

func TestLetBindsExactlyAtBlockScope(t *testing.T) {
	r := scope.NewResolver()
	fn := r.OpenScope(0, scope.Function)
	block := r.OpenScope(fn, scope.Block)

	_, err := r.Declare(block, "y", nil, scope.Let)
	require.NoError(t, err)

	res, ok := r.Resolve(block, "y")
	require.True(t, ok)
	assert.Equal(t, block, r.Symbol(res.SymbolIndex).OwnerScope)

	_, ok = r.Resolve(fn, "y")
	assert.False(t, ok)
}

func TestResolveScenarioFromSpec(t *testing.T) {
	// let a=1; function f(){ let a=2; return a } f()
	r := scope.NewResolver()
	_, err := r.Declare(0, "a", "outer", scope.Let)
	require.NoError(t, err)

	fn := r.OpenScope(0, scope.Function)
	_, err = r.Declare(fn, "a", "inner", scope.Let)
	require.NoError(t, err)

	innerRes, ok := r.Resolve(fn, "a")
	require.True(t, ok)
	assert.Equal(t, 1, innerRes.Depth)
	assert.Equal(t, "inner", r.Symbol(innerRes.SymbolIndex).DefNode)

	outerRes, ok := r.Resolve(0, "a")
	require.True(t, ok)
	assert.Equal(t, 0, outerRes.Depth)
	assert.Equal(t, "outer", r.Symbol(outerRes.SymbolIndex).DefNode)
}

func TestRedeclarationInSameScopeFails(t *testing.T) {
	r := scope.NewResolver()
	_, err := r.Declare(0, "x", nil, scope.Let)
	require.NoError(t, err)
	_, err = r.Declare(0, "x", nil, scope.Let)
	assert.Error(t, err)
}

func TestResolveUnknownIdentifierFails(t *testing.T) {
	r := scope.NewResolver()
	_, ok := r.Resolve(0, "missing")
	assert.False(t, ok)
}

func TestExpandPatternDeclaresLeafIdentifiers(t *testing.T) {
	r := scope.NewResolver()
	pat := scope.Pattern{
		Elements: []scope.Pattern{
			{Identifier: "a"},
			{Elements: []scope.Pattern{
				{Identifier: "c"},
				{Identifier: "d", IsRest: true},
			}},
			{Identifier: "e", HasDefault: true},
		},
	}
	require.NoError(t, r.ExpandPattern(0, pat, scope.Let))

	for _, name := range []string{"a", "c", "d", "e"} {
		_, ok := r.Resolve(0, name)
		assert.True(t, ok, "expected %q to be declared", name)
	}
}

func TestScopeKindString(t *testing.T) {
	assert.Equal(t, "Global", scope.Global.String())
	assert.Equal(t, "Class", scope.Class.String())
}
