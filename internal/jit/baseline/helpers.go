package baseline

import "reflect"

// funcAddr resolves a Go function value's code pointer, the address
// CallHelper needs to splice a runtime trampoline into emitted native
// code. Mirrors how cgo-free FFI shims (e.g. the purego project) obtain
// a callable address for a Go func without cgo.
func funcAddr(fn any) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// Trampolines are the Go-implemented slow paths emitted native code
// calls into on an inline-cache miss or for an operation the baseline
// tier doesn't specialize inline (spec §4.8's handlePropertyCacheMiss /
// handleMethodCacheMiss / handleTypeCheckCacheMiss, plus the operations
// this trimmed driver always routes to the runtime: array/object
// creation, calls, typeof/instanceof/in).
type Trampolines struct {
	PropertyMiss  func(siteID int64, shapeID uint64) int64
	MethodMiss    func(siteID int64, shapeID uint64) int64
	TypeCheckMiss func(siteID int64, observed uint64) int64
	GenericCall   func(opcode int64, args int64) int64
}

// DefaultTrampolines wires each slot to a minimal, always-available
// implementation; an embedder normally overrides these with its own
// object-model and call-dispatch logic before compiling any function.
func DefaultTrampolines() Trampolines {
	return Trampolines{
		PropertyMiss:  func(int64, uint64) int64 { return 0 },
		MethodMiss:    func(int64, uint64) int64 { return 0 },
		TypeCheckMiss: func(int64, uint64) int64 { return 0 },
		GenericCall:   func(int64, int64) int64 { return 0 },
	}
}
