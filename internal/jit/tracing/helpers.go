package tracing

import "reflect"

// funcAddr resolves a Go function value's code pointer, mirroring
// internal/jit/baseline/helpers.go's funcAddr so both JIT tiers splice
// Go-implemented slow paths into emitted native code the same way.
func funcAddr(fn any) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// Trampolines are the Go-implemented slow paths a compiled trace's
// native code calls into: on every guard failure (spec §4.9 "Side
// exits": "a small trampoline that [...] jumps to a central side-exit
// handler") and for any operation the trace compiler doesn't specialize
// inline.
type Trampolines struct {
	SideExit    func(traceID int64, exitIndex int64) int64
	GenericCall func(opcode int64, args int64) int64
}

// DefaultTrampolines wires each slot to a minimal, always-available
// implementation; an embedder overrides SideExit with logic that
// actually transfers control back into the interpreter at the
// resume offset HandleSideExit reports.
func DefaultTrampolines() Trampolines {
	return Trampolines{
		SideExit:    func(int64, int64) int64 { return 0 },
		GenericCall: func(int64, int64) int64 { return 0 },
	}
}
