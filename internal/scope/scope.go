// Package scope implements resolution-time scope tracking (spec §3, §9
// Design Notes "Cyclic scope graphs"): a flat, append-only vector of
// scopes addressed by integer index, never by pointer, so the resolver
// can never build a cyclic or dangling scope graph.
//
// Grounded on paserati's pkg/checker.Environment (name→symbol map per
// scope, parent lookup walking outward) but deliberately restructured:
// Environment is a pointer-chained linked list (`outer *Environment`),
// exactly the shape the design note singles out to avoid. Resolver
// here instead owns one []Scope arena per compilation unit and threads
// ParentIndex integers through it.
package scope

import "github.com/aerojs/aerojs-core/pkg/errors"

// Kind is the kind of scope a node opens.
type Kind uint8

const (
	Global Kind = iota
	Function
	Block
	Class
)

func (k Kind) String() string {
	switch k {
	case Global:
		return "Global"
	case Function:
		return "Function"
	case Block:
		return "Block"
	case Class:
		return "Class"
	default:
		return "Unknown"
	}
}

// BindingKind is how a symbol was introduced.
type BindingKind uint8

const (
	Var BindingKind = iota
	Let
	Const
	Parameter
)

// NoParent marks a scope with no enclosing scope (the sole Global scope
// of a resolution unit).
const NoParent = -1

// Symbol records one name binding: its defining AST node (opaque to this
// package — the AST itself is an external collaborator, spec §1), its
// binding kind, and the scope that owns it.
type Symbol struct {
	Name       string
	DefNode    any
	Kind       BindingKind
	OwnerScope int
}

// Scope is one entry in the flat scope vector. ParentIndex is NoParent
// only for the root Global scope.
type Scope struct {
	Kind        Kind
	ParentIndex int
	symbols     map[string]int // name -> index into Resolver.symbols
}

// Resolver owns the append-only scope and symbol arenas for one
// compilation unit. Indices into Scopes/Symbols are the only references
// ever handed out; nothing here is a pointer into the other.
type Resolver struct {
	Scopes  []Scope
	Symbols []Symbol
}

// NewResolver creates a resolver seeded with a single Global scope at
// index 0.
func NewResolver() *Resolver {
	r := &Resolver{}
	r.Scopes = append(r.Scopes, Scope{Kind: Global, ParentIndex: NoParent, symbols: map[string]int{}})
	return r
}

// OpenScope appends a new scope as a child of parent and returns its
// index. The vector is append-only: scopes are never removed, matching
// the design note's "owned by the vector" contract.
func (r *Resolver) OpenScope(parent int, kind Kind) int {
	r.Scopes = append(r.Scopes, Scope{Kind: kind, ParentIndex: parent, symbols: map[string]int{}})
	return len(r.Scopes) - 1
}

// declareAt inserts a binding directly into the given scope index,
// without walking up for var-hoisting. Returns false if the name is
// already bound in that exact scope.
func (r *Resolver) declareAt(scopeIdx int, name string, defNode any, kind BindingKind) (int, bool) {
	s := &r.Scopes[scopeIdx]
	if _, exists := s.symbols[name]; exists {
		return 0, false
	}
	symIdx := len(r.Symbols)
	r.Symbols = append(r.Symbols, Symbol{Name: name, DefNode: defNode, Kind: kind, OwnerScope: scopeIdx})
	s.symbols[name] = symIdx
	return symIdx, true
}

// hoistTarget walks outward from scopeIdx to the nearest Function or
// Global scope (spec §3 invariant: "var declarations bind in the
// nearest enclosing Function or Global scope, never in a Block").
func (r *Resolver) hoistTarget(scopeIdx int) int {
	for {
		k := r.Scopes[scopeIdx].Kind
		if k == Function || k == Global {
			return scopeIdx
		}
		scopeIdx = r.Scopes[scopeIdx].ParentIndex
	}
}

// Declare binds name in scopeIdx according to kind's scoping rule: Var
// bindings hoist to the nearest Function/Global scope; Let/Const/
// Parameter bind exactly at scopeIdx.
func (r *Resolver) Declare(scopeIdx int, name string, defNode any, kind BindingKind) (int, error) {
	target := scopeIdx
	if kind == Var {
		target = r.hoistTarget(scopeIdx)
	}
	idx, ok := r.declareAt(target, name, defNode, kind)
	if !ok {
		return 0, errors.New(errors.KindReferenceError, errors.Position{}, "identifier %q already declared in this scope", name)
	}
	return idx, nil
}

// Resolution is the result of resolving an identifier reference: the
// symbol found plus the nesting depth of the symbol's owning scope (0
// for the root Global scope, 1 for a scope directly inside it, ...).
type Resolution struct {
	SymbolIndex int
	Depth       int
}

// Resolve walks outward from scopeIdx looking up name, returning its
// symbol index and the nesting depth of the scope it was found in.
func (r *Resolver) Resolve(scopeIdx int, name string) (Resolution, bool) {
	for scopeIdx != NoParent {
		if symIdx, ok := r.Scopes[scopeIdx].symbols[name]; ok {
			depth := 0
			for p := r.Scopes[scopeIdx].ParentIndex; p != NoParent; p = r.Scopes[p].ParentIndex {
				depth++
			}
			return Resolution{SymbolIndex: symIdx, Depth: depth}, true
		}
		scopeIdx = r.Scopes[scopeIdx].ParentIndex
	}
	return Resolution{}, false
}

// Symbol returns the symbol at the given index.
func (r *Resolver) Symbol(idx int) Symbol { return r.Symbols[idx] }

// Pattern is a (possibly nested) binding pattern: a leaf identifier, or
// an array/object pattern with sub-elements (spec §3: "recursively
// expanded into their leaf identifiers"). HasDefault only records that
// this slot carries a default-value expression; the default expression
// itself is never a binding target, so it is not expanded.
type Pattern struct {
	Identifier string // set when this is a leaf
	Elements   []Pattern
	IsRest     bool
	HasDefault bool
	DefNode    any
}

// ExpandPattern recursively declares every leaf identifier in pat into
// scopeIdx under the given binding kind, the way destructuring
// declarations (`let {a, b: [c, ...d] = []} = obj`) bind every named
// leaf independently.
func (r *Resolver) ExpandPattern(scopeIdx int, pat Pattern, kind BindingKind) error {
	if pat.Identifier != "" {
		_, err := r.Declare(scopeIdx, pat.Identifier, pat.DefNode, kind)
		return err
	}
	for _, el := range pat.Elements {
		if err := r.ExpandPattern(scopeIdx, el, kind); err != nil {
			return err
		}
	}
	return nil
}
