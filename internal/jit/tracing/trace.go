package tracing

import "github.com/aerojs/aerojs-core/internal/codegen"

// SideExitKind classifies why a guard failed at runtime (spec §4.9
// "Side exits": "the handler records the side-exit kind (GuardFailure,
// UnexpectedType, ExceptionThrown, Other)").
type SideExitKind uint8

const (
	SideExitGuardFailure SideExitKind = iota
	SideExitUnexpectedType
	SideExitExceptionThrown
	SideExitOther
)

func (k SideExitKind) String() string {
	switch k {
	case SideExitGuardFailure:
		return "guard-failure"
	case SideExitUnexpectedType:
		return "unexpected-type"
	case SideExitExceptionThrown:
		return "exception-thrown"
	default:
		return "other"
	}
}

// SideExit is one exit a compiled trace can leave through: a failing
// guard calls the SideExit trampoline with the trace id and this exit's
// Index, then returns from the trace.
type SideExit struct {
	Index    int
	ResumeAt int // bytecode offset execution resumes at in the interpreter
	Kind     SideExitKind
}

// Guard is one runtime condition recorded during tracing. A
// CompiledTrace's Guards[i] pairs with its SideExits[i]
// (buildTraceFunction appends them in lockstep); a failing guard leaves
// the trace through that exit.
type Guard struct {
	BytecodeOffset int
	Description    string
}

// ProfileInfo is a trace's compile/execution profile (spec §3 Trace:
// "profile stats (original/optimized instruction count, compile
// time)").
type ProfileInfo struct {
	OriginalInstructionCount  int
	OptimizedInstructionCount int
	CompileTimeNanos          int64
}

// CompiledTrace is one committed, natively-compiled trace (spec §3
// Trace + §4.9 emission). ExecutionCount is the counter
// GetCompileTraceForLocation increments on every cache hit and
// evictOldTracesLocked sorts by.
type CompiledTrace struct {
	ID             int
	Location       Location
	Region         *codegen.CodeRegion
	Entry          uintptr
	Size           int
	Guards         []Guard
	SideExits      []SideExit
	Profile        ProfileInfo
	ExecutionCount uint64
}

// codeSize reports the trace's native code size in bytes. Eviction does
// not call it: evictOldTracesLocked hands each evicted trace's region
// back to the code cache with Release.
func (t *CompiledTrace) codeSize() int { return t.Size }
