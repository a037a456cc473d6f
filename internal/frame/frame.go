// Package frame implements the call-frame module from spec §4.10: one
// per-activation record per call, created by one of six factory
// operations, carrying the lexical scope, `this` binding, strict-mode
// flag, instruction pointer, argument and local-variable vectors, and
// optional JIT-compiled native code entry point.
//
// Grounded on original_source/src/core/vm/calling/call_frame.h for the
// FrameType/FrameState enums and the six factory operations
// (createGlobalFrame/createFunctionFrame/createEvalFrame with its
// isDirectEval flag/createModuleFrame/createNativeFrame), and on
// paserati's pkg/vm.CallFrame (vm.go) for the "one struct holding a
// register/local window plus this-binding plus call metadata" shape —
// generalized here from paserati's register-window design (closure +
// flat register slice) to the spec's explicit local-variable vector and
// instruction-pointer-into-a-bytecode-block model, since the execution
// core's internal/bytecode.Chunk addresses locals and code differently
// than paserati's register machine does.
package frame

import (
	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/rt/value"
	"github.com/aerojs/aerojs-core/internal/scope"
	"github.com/aerojs/aerojs-core/pkg/errors"
)

// Type is the kind of activation a frame represents (spec §3 Data
// Model's call frame entry).
type Type uint8

const (
	Global Type = iota
	Function
	Eval
	Module
	Native
	Generator
	Async
)

func (t Type) String() string {
	switch t {
	case Global:
		return "Global"
	case Function:
		return "Function"
	case Eval:
		return "Eval"
	case Module:
		return "Module"
	case Native:
		return "Native"
	case Generator:
		return "Generator"
	case Async:
		return "Async"
	default:
		return "Unknown"
	}
}

// State is a frame's lifecycle state (spec §3: "state ∈ {Active,
// Suspended, Completed, Aborted}").
type State uint8

const (
	Active State = iota
	Suspended
	Completed
	Aborted
)

func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case Suspended:
		return "Suspended"
	case Completed:
		return "Completed"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// CallFrame is one per-activation record (spec §3). Exactly one of
// Block or NativeEntry is non-zero: a bytecode-backed frame has Block
// set and NativeEntry zero, a Native frame has NativeEntry set and
// Block nil. JITEntry is independent of both — it is populated once the
// engine promotes this frame's function to compiled native code (either
// JIT tier), and is zero until then.
type CallFrame struct {
	Type         Type
	Block        *bytecode.Chunk
	NativeEntry  uintptr
	JITEntry     uintptr
	Scope        int // index into a scope.Resolver's Scopes vector, scope.NoParent if none
	This         value.Value
	ip           int
	Args         []value.Value
	Locals       []value.Value
	ReturnValue  value.Value
	State        State
	Strict       bool
	Parent       *CallFrame
	IsDirectEval bool
}

// IP reports the frame's current bytecode offset.
func (f *CallFrame) IP() int { return f.ip }

func localsFor(block *bytecode.Chunk) []value.Value {
	if block == nil {
		return nil
	}
	return make([]value.Value, block.NumLocals)
}

func inheritStrict(block *bytecode.Chunk, parent *CallFrame) bool {
	if block != nil && block.Strict {
		return true
	}
	return parent != nil && parent.Strict
}

// NewGlobalFrame creates the top-level frame for a script or module
// top-level chunk's enclosing global scope (spec §4.10 factory 1).
func NewGlobalFrame(block *bytecode.Chunk) *CallFrame {
	return &CallFrame{
		Type:   Global,
		Block:  block,
		Scope:  0,
		This:   value.Undefined(),
		Locals: localsFor(block),
		State:  Active,
		Strict: inheritStrict(block, nil),
	}
}

// NewFunctionFrame creates a frame for an ordinary function call (spec
// §4.10 factory 2). this and args come from the call site; scopeIdx is
// the function's own lexical scope, resolved ahead of time by
// internal/scope.
func NewFunctionFrame(block *bytecode.Chunk, scopeIdx int, this value.Value, args []value.Value, parent *CallFrame) *CallFrame {
	return &CallFrame{
		Type:    Function,
		Block:   block,
		Scope:   scopeIdx,
		This:    this,
		Args:    args,
		Locals:  localsFor(block),
		State:   Active,
		Strict:  inheritStrict(block, parent),
		Parent:  parent,
	}
}

// newEvalFrame is the shared implementation behind the direct/indirect
// eval factories, mirroring call_frame.h's single createEvalFrame plus
// isDirectEval flag.
func newEvalFrame(block *bytecode.Chunk, scopeIdx int, this value.Value, parent *CallFrame, isDirect bool) *CallFrame {
	f := &CallFrame{
		Type:         Eval,
		Block:        block,
		Scope:        scopeIdx,
		This:         this,
		Locals:       localsFor(block),
		State:        Active,
		Parent:       parent,
		IsDirectEval: isDirect,
	}
	if isDirect {
		// Direct eval runs in the calling scope: strict mode is
		// inherited from the caller even if the eval'd source itself
		// isn't marked strict (spec §4.10: "inherited from bytecode
		// block ∨ parent frame").
		f.Strict = inheritStrict(block, parent)
	} else {
		f.Strict = inheritStrict(block, nil)
	}
	return f
}

// NewEvalDirectFrame creates a frame for a direct `eval(...)` call
// (spec §4.10 factory 3): it executes in the calling frame's lexical
// scope.
func NewEvalDirectFrame(block *bytecode.Chunk, callerScope int, this value.Value, parent *CallFrame) *CallFrame {
	return newEvalFrame(block, callerScope, this, parent, true)
}

// NewEvalIndirectFrame creates a frame for an indirect eval call (spec
// §4.10 factory 4): it executes in the global scope, detached from the
// caller.
func NewEvalIndirectFrame(block *bytecode.Chunk, globalScope int, this value.Value) *CallFrame {
	return newEvalFrame(block, globalScope, this, nil, false)
}

// NewModuleFrame creates a module's top-level frame (spec §4.10 factory
// 5). Modules are always strict and have no `this` binding.
func NewModuleFrame(block *bytecode.Chunk, scopeIdx int) *CallFrame {
	return &CallFrame{
		Type:   Module,
		Block:  block,
		Scope:  scopeIdx,
		This:   value.Undefined(),
		Locals: localsFor(block),
		State:  Active,
		Strict: true,
	}
}

// NewNativeFrame creates a frame for a call into a Go-implemented
// builtin (spec §4.10 factory 6): it has no bytecode block, so IP is
// meaningless and Seek always fails, but it still carries a
// this-binding, argument vector, and parent link for stack traces.
func NewNativeFrame(entry uintptr, this value.Value, args []value.Value, parent *CallFrame) *CallFrame {
	return &CallFrame{
		Type:        Native,
		NativeEntry: entry,
		Scope:       scope.NoParent,
		This:        this,
		Args:        args,
		State:       Active,
		Strict:      parent != nil && parent.Strict,
		Parent:      parent,
	}
}

// Seek moves the frame's instruction pointer to offset, validating it
// against the bytecode block's code length (spec §4.10: "random-access
// seeks are validated against the block's instruction count and fail
// with OutOfRange otherwise").
func (f *CallFrame) Seek(offset int) error {
	if f.Block == nil {
		return errors.New(errors.KindOutOfRange, errors.Position{}, "frame has no bytecode block to seek into")
	}
	if offset < 0 || offset >= len(f.Block.Code) {
		return errors.New(errors.KindOutOfRange, errors.Position{}, "seek offset %d out of range [0,%d)", offset, len(f.Block.Code))
	}
	f.ip = offset
	return nil
}

// Advance steps the instruction pointer past the instruction currently
// at it, decoding just enough to know its width. Stepping past the
// block's last instruction fails with OutOfRange (Seek rejects the
// offset) and leaves the instruction pointer unchanged.
func (f *CallFrame) Advance() error {
	if f.Block == nil {
		return errors.New(errors.KindOutOfRange, errors.Position{}, "frame has no bytecode block to advance")
	}
	d := bytecode.NewDecoder(f.Block.Code[f.ip:])
	instr, err := d.Next()
	if err != nil {
		return errors.Wrap(errors.KindOutOfRange, errors.Position{}, err, "advance from offset %d", f.ip)
	}
	return f.Seek(f.ip + d.Tell() - instr.Offset)
}

// GetLocal reads the local-variable slot at idx, reporting Undefined
// for any index the vector hasn't grown to yet rather than erroring:
// only writes trigger growth (spec §4.10).
func (f *CallFrame) GetLocal(idx int) value.Value {
	if idx < 0 || idx >= len(f.Locals) {
		return value.Undefined()
	}
	return f.Locals[idx]
}

// SetLocal writes v to the local-variable slot at idx, growing the
// vector (padding new slots with Undefined) if idx is out of its
// current range (spec §4.10: "local-variable vector auto-grows on
// out-of-range write").
func (f *CallFrame) SetLocal(idx int, v value.Value) {
	if idx < 0 {
		return
	}
	if idx >= len(f.Locals) {
		grown := make([]value.Value, idx+1)
		copy(grown, f.Locals)
		for i := len(f.Locals); i < idx; i++ {
			grown[i] = value.Undefined()
		}
		f.Locals = grown
	}
	f.Locals[idx] = v
}
