// Package symbol implements JavaScript Symbol identity and the global
// registry from spec §3: monotonically-increasing identity, optional
// description, Symbol.for/Symbol.keyFor round trip, and lazily-created
// well-known symbols.
//
// Grounded on paserati's pkg/values.SymbolObject (identity-only wrapper)
// and original_source/src/core/runtime/values/symbol.cpp +
// symbol_perfect.cpp for the well-known-symbol registry and the
// for/keyFor reverse-lookup contract.
package symbol

import "sync"

// Symbol is a unique, identity-compared value with an optional
// description. Two Symbols with the same description are never equal
// (spec §8 "Identity" property) unless they are the very same instance.
type Symbol struct {
	id   uint64
	desc string
}

// ID returns the monotonically increasing identity used for equality and
// for ordering symbols deterministically in debug output.
func (s *Symbol) ID() uint64 { return s.id }

// Description returns the symbol's optional description.
func (s *Symbol) Description() string { return s.desc }

func (s *Symbol) String() string {
	if s.desc == "" {
		return "Symbol()"
	}
	return "Symbol(" + s.desc + ")"
}

// WellKnown enumerates the fixed set of spec-mandated well-known symbols
// (spec §3), lazily created on first Registry access.
type WellKnown uint8

const (
	Iterator WellKnown = iota
	AsyncIterator
	HasInstance
	ToPrimitive
	ToStringTag
	IsConcatSpreadable
	Species
	Unscopables
	wellKnownCount
)

// Registry is the engine-scoped symbol table: an identity counter, a
// global-registry map (Symbol.for/keyFor) and the well-known symbols.
// Engine-scoped per spec §9 Design Notes ("do not use a hidden process
// singleton") — create one Registry per engine instance.
type Registry struct {
	mu sync.Mutex

	nextID uint64

	// byKey backs Symbol.for: the same key always yields the same Symbol.
	byKey map[string]*Symbol
	// keyOf backs Symbol.keyFor: the reverse lookup.
	keyOf map[*Symbol]string

	wellKnown [wellKnownCount]*Symbol
}

// NewRegistry constructs an empty registry. Call Teardown at context
// shutdown to release references (spec §5 "resource policy": intern/
// registry tables hold strong references until context shutdown).
func NewRegistry() *Registry {
	return &Registry{
		byKey: make(map[string]*Symbol),
		keyOf: make(map[*Symbol]string),
	}
}

// Create returns a brand-new Symbol with the given description. Distinct
// calls with the same description compare unequal (spec §8 "Identity").
func (r *Registry) Create(desc string) *Symbol {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return &Symbol{id: r.nextID, desc: desc}
}

// For implements Symbol.for(key): returns the same Symbol instance on
// every call with the same key (spec §8 "Round trip").
func (r *Registry) For(key string) *Symbol {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byKey[key]; ok {
		return s
	}
	r.nextID++
	s := &Symbol{id: r.nextID, desc: key}
	r.byKey[key] = s
	r.keyOf[s] = key
	return s
}

// KeyFor implements Symbol.keyFor(sym): the reverse lookup of For. The
// second return value is false for symbols never registered via For.
func (r *Registry) KeyFor(s *Symbol) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keyOf[s]
	return key, ok
}

var wellKnownNames = [wellKnownCount]string{
	Iterator:           "Symbol.iterator",
	AsyncIterator:      "Symbol.asyncIterator",
	HasInstance:        "Symbol.hasInstance",
	ToPrimitive:        "Symbol.toPrimitive",
	ToStringTag:        "Symbol.toStringTag",
	IsConcatSpreadable: "Symbol.isConcatSpreadable",
	Species:            "Symbol.species",
	Unscopables:        "Symbol.unscopables",
}

// WellKnownSymbol returns (lazily creating) the requested well-known
// symbol for this registry.
func (r *Registry) WellKnownSymbol(w WellKnown) *Symbol {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wellKnown[w] == nil {
		r.nextID++
		r.wellKnown[w] = &Symbol{id: r.nextID, desc: wellKnownNames[w]}
	}
	return r.wellKnown[w]
}

// Teardown drops all references held by the registry.
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey = make(map[string]*Symbol)
	r.keyOf = make(map[*Symbol]string)
	r.wellKnown = [wellKnownCount]*Symbol{}
}
