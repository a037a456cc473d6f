// Package baseline implements the first JIT tier: per-function
// bytecode-to-native lowering through internal/codegen, backed by
// internal/regalloc for register assignment and by this file's inline
// caches for property, method, and type-check sites (spec §4.8).
//
// Grounded on nooga-paserati's pkg/vm/cache.go (PropCacheState,
// PropCacheEntry, PropInlineCache, lookupInCache/updateCache's
// move-to-front and state-transition logic), but restructured per the
// spec's redesign flag: paserati represents a site as one struct with a
// state enum, a capacity mask, and a fixed [4]entry array all present
// at once; this package instead represents a site as a tagged variant
// (Uninit | Monomorphic | Polymorphic | Megamorphic), each carrying only
// the data its state needs, with transitions as explicit edges between
// the variants rather than field mutation on a shared struct.
package baseline

import "github.com/aerojs/aerojs-core/internal/rt/shape"

// SiteKind distinguishes the three call-site flavors spec §4.8's
// miss-handler dispatch names.
type SiteKind uint8

const (
	SiteProperty SiteKind = iota
	SiteMethod
	SiteTypeCheck
)

func (k SiteKind) String() string {
	switch k {
	case SiteProperty:
		return "property"
	case SiteMethod:
		return "method"
	case SiteTypeCheck:
		return "type-check"
	default:
		return "unknown"
	}
}

// polyCapacity is the entry count a polymorphic site holds before
// transitioning to megamorphic (paserati's PropInlineCache.entries is a
// fixed [4]PropCacheEntry array).
const polyCapacity = 4

// Handler is a specialized fast path installed into a cache entry on a
// hit. The baseline tier's emitted native code doesn't synthesize one
// machine-code routine per site; instead it calls a single runtime
// dispatch helper (via Emitter.CallHelper) that consults the Site and,
// on a cache hit, runs the matching Handler directly rather than
// re-deriving the shape lookup — the Go-level equivalent of "inlining
// the shape check and constant offset load" the spec describes for a
// JIT-synthesized handler.
type Handler func(receiverFields []int64) int64

// siteState is the tagged-variant cache state spec §9's redesign flag
// calls for: Uninit | Monomorphic(shape, offset, handler) |
// Polymorphic(entries) | Megamorphic, as explicit Go types rather than
// one struct with a state enum plus unused fields.
type siteState interface {
	isSiteState()
}

type uninitState struct{}

func (uninitState) isSiteState() {}

type monoEntry struct {
	shapeID uint64
	offset  int
	handler Handler
}
type monoState struct{ entry monoEntry }

func (monoState) isSiteState() {}

type polyState struct{ entries []monoEntry }

func (polyState) isSiteState() {}

type megaState struct{}

func (megaState) isSiteState() {}

// Site is one inline-cache call site, addressed by
// function_id*10000+offset_index per spec §4.8 point 2.
type Site struct {
	ID    int64
	Kind  SiteKind
	state siteState

	hits   uint64
	misses uint64
}

// NewSite allocates an uninitialized site for the given (functionID,
// offsetIndex) pair.
func NewSite(functionID, offsetIndex int, kind SiteKind) *Site {
	return &Site{ID: int64(functionID)*10000 + int64(offsetIndex), Kind: kind, state: uninitState{}}
}

// Lookup consults the site for shapeID, returning the cached offset and
// handler on a hit. A megamorphic site never hits (it always routes to
// the generic handler per spec).
func (s *Site) Lookup(shapeID uint64) (offset int, handler Handler, ok bool) {
	switch st := s.state.(type) {
	case monoState:
		if st.entry.shapeID == shapeID {
			s.hits++
			return st.entry.offset, st.entry.handler, true
		}
	case polyState:
		for i, e := range st.entries {
			if e.shapeID == shapeID {
				s.hits++
				// Move-to-front: paserati's lookupInCache reorders on a
				// polymorphic hit so the hottest shape stays cheapest
				// to find on the next lookup.
				if i > 0 {
					copy(st.entries[1:i+1], st.entries[:i])
					st.entries[0] = e
				}
				return e.offset, e.handler, true
			}
		}
	}
	s.misses++
	return 0, nil, false
}

// recordMiss installs a new (shapeID, offset, handler) association,
// driving the uninit→mono→poly→mega state machine.
func (s *Site) recordMiss(shapeID uint64, offset int, handler Handler) {
	entry := monoEntry{shapeID: shapeID, offset: offset, handler: handler}
	switch st := s.state.(type) {
	case uninitState:
		s.state = monoState{entry: entry}
	case monoState:
		if st.entry.shapeID == shapeID {
			s.state = monoState{entry: entry}
			return
		}
		s.state = polyState{entries: []monoEntry{st.entry, entry}}
	case polyState:
		for i, e := range st.entries {
			if e.shapeID == shapeID {
				st.entries[i] = entry
				return
			}
		}
		if len(st.entries) >= polyCapacity {
			s.state = megaState{}
			return
		}
		s.state = polyState{entries: append(st.entries, entry)}
	case megaState:
		// Sites never leave megamorphic (spec §8 scenario 3: "the 11th
		// call ... with no further entry allocation").
	}
}

// State names the site's current tagged variant, for tests and
// profiling (spec's ICacheStats equivalent lives in the VM layer this
// package's caller owns).
func (s *Site) State() string {
	switch s.state.(type) {
	case uninitState:
		return "uninitialized"
	case monoState:
		return "monomorphic"
	case polyState:
		return "polymorphic"
	case megaState:
		return "megamorphic"
	default:
		return "unknown"
	}
}

func defaultHandler(sh *shape.Shape, offset int) Handler {
	return func(fields []int64) int64 {
		if offset < 0 || offset >= len(fields) {
			return 0
		}
		return fields[offset]
	}
}

func megamorphic(s *Site) bool {
	_, ok := s.state.(megaState)
	return ok
}

// MissOutcome reports what a miss handler decided: Handler is nil when
// the caller must fall back to the generic property-lookup path (spec:
// "if not found or the entry array is full, return the generic handler
// pointer").
type MissOutcome struct {
	Offset  int
	Handler Handler
	Found   bool
}

// HandleNamedPropertyMiss is the callable form the baseline driver's
// emitted CallHelper target actually invokes, with the property name
// threaded through explicitly since Go closures over the emitted
// site_id are resolved at compile time, not reconstructed at runtime.
func (s *Site) HandleNamedPropertyMiss(receiverShape *shape.Shape, name string) MissOutcome {
	offset, found := receiverShape.Lookup(name)
	if !found {
		return MissOutcome{Found: false}
	}
	if cachedOffset, handler, hit := s.Lookup(receiverShape.ID()); hit {
		return MissOutcome{Offset: cachedOffset, Handler: handler, Found: true}
	}
	if megamorphic(s) {
		return MissOutcome{Offset: offset, Found: true}
	}
	handler := defaultHandler(receiverShape, offset)
	s.recordMiss(receiverShape.ID(), offset, handler)
	return MissOutcome{Offset: offset, Handler: handler, Found: true}
}

// HandleNamedMethodMiss mirrors HandleNamedPropertyMiss for method call
// sites (spec: "identical to property miss, but the looked-up slot must
// be callable"); callability is the caller's concern once it has the
// offset, since this trimmed shape model doesn't track value kinds.
func (s *Site) HandleNamedMethodMiss(receiverShape *shape.Shape, name string) MissOutcome {
	return s.HandleNamedPropertyMiss(receiverShape, name)
}

// TypeCheckResult is what a type-check site's miss handler records:
// whether the observed type matched what the site last saw.
type TypeCheckResult struct {
	Matched      bool
	ObservedType string
}

// HandleTypeCheckMiss records the observed type for a type-check site,
// transitioning mono→poly→mega exactly as a property site would, keyed
// by a synthetic shape id derived from the type name so the same
// state-machine code in recordMiss/Lookup serves both site kinds.
func (s *Site) HandleTypeCheckMiss(observedType string, expected string) TypeCheckResult {
	key := typeKey(observedType)
	if _, _, hit := s.Lookup(key); !hit && !megamorphic(s) {
		s.recordMiss(key, 0, func([]int64) int64 { return 0 })
	}
	return TypeCheckResult{Matched: observedType == expected, ObservedType: observedType}
}

func typeKey(name string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= 1099511628211
	}
	return h
}
