// Package codegen implements the per-architecture native code emitter
// from spec §4.8/§9 Design Notes ("model the emitter as an interface
// with three implementations: x86-64, ARM64, RISC-V; avoid conditional
// compilation at call sites; select the implementation at engine
// construction").
//
// Grounded directly on launix-de/memcp's scm/jit_writer.go +
// jit_amd64.go + jit_arm64.go: the label/fixup bookkeeping
// (DefineLabel/ReserveLabel/MarkLabel/AddFixup/ResolveFixups) is lifted
// near-verbatim from JITWriter, generalized from a single fixed-size
// array of opaque byte snippets into a shared unexported writer that
// each of the three Emitter implementations, one per architecture,
// holds in its w field, so the baseline and
// tracing JITs (§4.8/§4.9) can both depend on the Emitter interface
// without caring which one backs it.
package codegen

import "github.com/aerojs/aerojs-core/internal/ir"

// Arch names a target instruction set.
type Arch uint8

const (
	ArchAMD64 Arch = iota
	ArchARM64
	ArchRISCV64
)

func (a Arch) String() string {
	switch a {
	case ArchAMD64:
		return "amd64"
	case ArchARM64:
		return "arm64"
	case ArchRISCV64:
		return "riscv64"
	default:
		return "unknown"
	}
}

// Label is a not-yet-resolved branch target, analogous to JITWriter's
// label-id-into-fixed-array scheme but using a dynamically grown slice
// so the emitter isn't bounded by memcp's 64-label cap.
type Label int

// Cond is an architecture-neutral comparison condition for conditional
// branches, translated to each backend's native condition-code
// encoding (EFLAGS jcc, AArch64 b.cond, or an explicit compare-and-
// branch on RISC-V, which has no condition-code register).
type Cond uint8

const (
	CondEqual Cond = iota
	CondNotEqual
	CondLess
	CondLessEqual
	CondGreater
	CondGreaterEqual
)

// Emitter is the architecture-specific code generator the baseline and
// tracing JITs emit through, one bytecode/IR operation at a time (spec
// §4.8: "emit native instructions one bytecode op at a time"). Register
// operands are physical-register indices as assigned by
// internal/regalloc, scoped per RegisterClass; it is the caller's
// responsibility to pass indices valid for that architecture's file
// (see each backend's amd64GPR/arm64GPR/riscv64GPR table).
type Emitter interface {
	Arch() Arch

	// DefineLabel binds a label at the current write position;
	// ReserveLabel allocates an id to be placed later via MarkLabel.
	DefineLabel() Label
	ReserveLabel() Label
	MarkLabel(Label)

	Prologue(frameSize int)
	Epilogue()

	LoadImm64(dst int, imm int64)
	LoadImmFloat64(dst int, imm float64)
	MovReg(dst, src int)
	LoadMem(dst, base int, offset int32)
	StoreMem(base int, offset int32, src int)

	// LoadFrame/StoreFrame address a spill slot at a non-negative byte
	// offset from the frame's local-storage base (the stack pointer
	// immediately after Prologue's frameSize adjustment), matching
	// internal/regalloc's monotonically-increasing, always-nonnegative
	// Assignment.SpillSlot numbering directly — no sign translation is
	// needed at any call site.
	LoadFrame(dst int, offset int32)
	StoreFrame(offset int32, src int)

	Add(dst, a, b int)
	Sub(dst, a, b int)
	Mul(dst, a, b int)
	Div(dst, a, b int)
	And(dst, a, b int)
	Or(dst, a, b int)
	Xor(dst, a, b int)
	Shl(dst, a, b int)
	Shr(dst, a, b int) // arithmetic (sign-extending) right shift
	UShr(dst, a, b int) // logical (zero-filling) right shift
	Neg(dst, src int)

	Cmp(a, b int)
	JumpIfCond(cond Cond, target Label)
	Jump(target Label)

	// CallHelper emits a call to a fixed native helper address (e.g. an
	// inline-cache miss handler or a runtime slow path); args are
	// register indices in calling-convention argument order.
	CallHelper(addr uintptr, args []int)

	// MoveFromReturn copies the ABI return-value register (RAX, X0, a0)
	// into an allocatable GPR slot, needed because that register sits
	// outside the allocatable file on ARM64 and RISC-V (amd64's RAX
	// happens to be allocatable slot 0, so there this is a plain MovReg).
	MoveFromReturn(dst int)

	// MoveToReturn is MoveFromReturn's inverse, used right before Ret to
	// place a compiled function's result into the ABI return register.
	MoveToReturn(src int)
	Ret()

	// Finalize resolves every pending fixup against its label's
	// position and returns the emitted machine code.
	Finalize() []byte

	// Len reports the number of bytes written so far, used by the
	// baseline JIT's offset map (spec §4.8 step 4).
	Len() int
}

// New constructs the Emitter for arch.
func New(arch Arch) Emitter {
	switch arch {
	case ArchARM64:
		return newARM64Emitter()
	case ArchRISCV64:
		return newRISCV64Emitter()
	default:
		return newAMD64Emitter()
	}
}

// classToGPRWidth reports whether class occupies the general-purpose
// file (true) or the floating-point/vector file (false), used by
// callers deciding which Emitter method family to invoke.
func classToGPRWidth(class ir.RegisterClass) bool {
	switch class {
	case ir.ClassInt32, ir.ClassInt64:
		return true
	default:
		return false
	}
}
