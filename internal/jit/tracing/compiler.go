package tracing

import (
	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/codegen"
	"github.com/aerojs/aerojs-core/internal/ir"
	"github.com/aerojs/aerojs-core/internal/regalloc"
	"github.com/aerojs/aerojs-core/internal/rt/value"
)

// traceClassCaps mirrors internal/jit/baseline/driver.go's bsClassCaps:
// three Int64 slots reserved as compiler-owned scratch, the rest left
// for regalloc.
var traceClassCaps = regalloc.ClassCaps{ir.ClassInt64: 5}

const (
	tScratchA = 5
	tScratchB = 6
	tScratchC = 7
)

// buildTraceFunction flattens body's blocks into a single linear
// sequence (spec §3 Trace: "a linear sequence of IR"), rewriting the
// loop-continuation OpBranch into an OpGuard that side-exits back to
// the interpreter when the loop would otherwise have taken its exit
// edge, and dropping OpJump/OpPhi (the trace has no internal control
// flow left once flattened).
func buildTraceFunction(fn *ir.Function, body []ir.BlockID) (*ir.Function, []Guard, []SideExit) {
	trace := ir.NewFunction(fn.Name + ".trace")
	trace.Params = append([]ir.VReg(nil), fn.Params...)

	entry := trace.AddBlock()
	trace.Entry = entry

	var guards []Guard
	var exits []SideExit

	for _, bid := range body {
		b := fn.Block(bid)
		for _, idx := range b.Instrs {
			src := fn.Instr(idx)
			switch src.Op {
			case ir.OpJump:
				continue
			case ir.OpBranch:
				exitIndex := len(exits)
				guards = append(guards, Guard{
					BytecodeOffset: int(bid),
					Description:    "loop-continuation guard",
				})
				exits = append(exits, SideExit{
					Index:    exitIndex,
					ResumeAt: int(bid),
					Kind:     SideExitGuardFailure,
				})
				operands := append(append([]ir.Operand(nil), src.Operands...), ir.ImmOperand(int64(exitIndex)))
				trace.AddInstr(entry, ir.Instr{
					Op:       ir.OpGuard,
					Type:     ir.TypeBoolean,
					Operands: operands,
					Pos:      src.Pos,
				})
			default:
				cp := *src
				cp.Operands = append([]ir.Operand(nil), src.Operands...)
				trace.AddInstr(entry, cp)
			}
		}
	}

	return trace, guards, exits
}

// traceCompiler emits native code for one flattened trace function,
// operating directly on ir.VReg the way internal/jit/baseline's
// funcCompiler operates on bytecode register indices — there is no
// vregFor translation step here since the trace IR already speaks
// ir.VReg.
type traceCompiler struct {
	chunk       *bytecode.Chunk
	trampolines Trampolines
	traceID     int
	alloc       regalloc.Result
	e           codegen.Emitter
	guardFail   map[int]codegen.Label
}

func (tc *traceCompiler) loc(r ir.VReg) regalloc.Assignment {
	return tc.alloc.Assignments[r]
}

func (tc *traceCompiler) loadOperand(op ir.Operand, scratch int) int {
	switch op.Kind {
	case ir.OperandImmediate:
		tc.e.LoadImm64(scratch, op.Imm)
		return scratch
	case ir.OperandMemory:
		tc.e.LoadImm64(scratch, int64(tc.chunk.Constants[op.Memory].Bits()))
		return scratch
	default:
		a := tc.loc(op.VReg)
		if a.Spilled {
			tc.e.LoadFrame(scratch, int32(a.SpillSlot))
			return scratch
		}
		return int(a.Physical)
	}
}

func (tc *traceCompiler) destReg(r ir.VReg, scratch int) int {
	a := tc.loc(r)
	if a.Spilled {
		return scratch
	}
	return int(a.Physical)
}

func (tc *traceCompiler) storeIfSpilled(r ir.VReg, reg int) {
	a := tc.loc(r)
	if a.Spilled {
		tc.e.StoreFrame(int32(a.SpillSlot), reg)
	}
}

// run emits the prologue, every instruction of trace's single block,
// and the epilogue, returning only an error. Each guard's failure path
// is emitted inline by emitGuard; tc.guardFail is reset here and
// nothing fills it.
func (tc *traceCompiler) run(trace *ir.Function) error {
	tc.guardFail = make(map[int]codegen.Label)
	tc.e.Prologue(tc.alloc.NumSpillBytes)

	block := trace.Block(trace.Entry)
	for _, idx := range block.Instrs {
		instr := trace.Instr(idx)
		if err := tc.emit(instr); err != nil {
			return err
		}
	}

	tc.e.MoveToReturn(tScratchA)
	tc.e.Epilogue()
	return nil
}

func (tc *traceCompiler) emit(instr *ir.Instr) error {
	switch instr.Op {
	case ir.OpConst:
		dst := tc.destReg(instr.Result, tScratchA)
		tc.e.LoadImm64(dst, int64(tc.chunk.Constants[instr.Operands[0].Memory].Bits()))
		tc.storeIfSpilled(instr.Result, dst)

	case ir.OpAdd:
		tc.emitBinary(instr, tc.e.Add)
	case ir.OpSub:
		tc.emitBinary(instr, tc.e.Sub)
	case ir.OpMul:
		tc.emitBinary(instr, tc.e.Mul)
	case ir.OpDiv:
		tc.emitBinary(instr, tc.e.Div)
	case ir.OpBitAnd:
		tc.emitBinary(instr, tc.e.And)
	case ir.OpBitOr:
		tc.emitBinary(instr, tc.e.Or)
	case ir.OpBitXor:
		tc.emitBinary(instr, tc.e.Xor)
	case ir.OpShl:
		tc.emitBinary(instr, tc.e.Shl)
	case ir.OpShr:
		tc.emitBinary(instr, tc.e.Shr)
	case ir.OpUShr:
		tc.emitBinary(instr, tc.e.UShr)

	case ir.OpNeg:
		a := tc.loadOperand(instr.Operands[0], tScratchA)
		dst := tc.destReg(instr.Result, tScratchB)
		tc.e.Neg(dst, a)
		tc.storeIfSpilled(instr.Result, dst)

	case ir.OpEqual, ir.OpStrictEqual:
		tc.emitCompare(instr, codegen.CondEqual)
	case ir.OpNotEqual, ir.OpStrictNotEqual:
		tc.emitCompare(instr, codegen.CondNotEqual)
	case ir.OpLess:
		tc.emitCompare(instr, codegen.CondLess)
	case ir.OpLessEqual:
		tc.emitCompare(instr, codegen.CondLessEqual)
	case ir.OpGreater:
		tc.emitCompare(instr, codegen.CondGreater)
	case ir.OpGreaterEqual:
		tc.emitCompare(instr, codegen.CondGreaterEqual)

	case ir.OpGuard:
		tc.emitGuard(instr)

	default:
		tc.emitGeneric(instr)
	}
	return nil
}

func (tc *traceCompiler) emitBinary(instr *ir.Instr, op func(dst, a, b int)) {
	a := tc.loadOperand(instr.Operands[0], tScratchA)
	b := tc.loadOperand(instr.Operands[1], tScratchB)
	dst := tc.destReg(instr.Result, tScratchC)
	op(dst, a, b)
	tc.storeIfSpilled(instr.Result, dst)
}

// emitCompare mirrors internal/jit/baseline/driver.go's emitCompare:
// no backend exposes a SETcc-style byte-producing instruction, so the
// boolean result is built by branching around a pair of immediate
// loads.
func (tc *traceCompiler) emitCompare(instr *ir.Instr, cond codegen.Cond) {
	a := tc.loadOperand(instr.Operands[0], tScratchA)
	b := tc.loadOperand(instr.Operands[1], tScratchB)
	dst := tc.destReg(instr.Result, tScratchC)

	tc.e.Cmp(a, b)
	trueLabel := tc.e.ReserveLabel()
	doneLabel := tc.e.ReserveLabel()
	tc.e.JumpIfCond(cond, trueLabel)
	tc.e.LoadImm64(dst, int64(value.Bool(false).Bits()))
	tc.e.Jump(doneLabel)
	tc.e.MarkLabel(trueLabel)
	tc.e.LoadImm64(dst, int64(value.Bool(true).Bits()))
	tc.e.MarkLabel(doneLabel)

	tc.storeIfSpilled(instr.Result, dst)
}

// emitGuard lowers an OpGuard pseudo-instruction. On the failure path
// it loads the trace id and the exit index into scratch registers,
// calls the SideExit trampoline through CallHelper, and returns that
// trampoline's result from the trace through the epilogue; it is a call
// followed by a return, not a jump to a central handler. On the pass
// path execution simply continues. The guard's last
// operand is the exit index buildTraceFunction appended; the condition
// operand(s) precede it.
func (tc *traceCompiler) emitGuard(instr *ir.Instr) {
	exitOperand := instr.Operands[len(instr.Operands)-1]
	exitIndex := exitOperand.Imm

	cond := tc.loadOperand(instr.Operands[0], tScratchA)
	tc.e.LoadImm64(tScratchB, 0)
	tc.e.Cmp(cond, tScratchB)

	passLabel := tc.e.ReserveLabel()
	tc.e.JumpIfCond(codegen.CondNotEqual, passLabel)

	tc.e.LoadImm64(tScratchA, int64(tc.traceID))
	tc.e.LoadImm64(tScratchB, exitIndex)
	tc.e.CallHelper(funcAddr(tc.trampolines.SideExit), []int{tScratchA, tScratchB})
	tc.e.MoveFromReturn(tScratchA)
	tc.e.MoveToReturn(tScratchA)
	tc.e.Epilogue()

	tc.e.MarkLabel(passLabel)
}

// emitGeneric funnels any trace instruction the compiler doesn't
// specialize (property/element access, calls, object/array creation)
// to the generic trampoline, the same fallback internal/jit/baseline
// uses for its own unspecialized ops.
func (tc *traceCompiler) emitGeneric(instr *ir.Instr) {
	var first int
	if len(instr.Operands) > 0 {
		first = tc.loadOperand(instr.Operands[0], tScratchA)
	}
	tc.e.LoadImm64(tScratchB, int64(instr.Op))
	tc.e.CallHelper(funcAddr(tc.trampolines.GenericCall), []int{tScratchB, first})
	if instr.HasResult {
		dst := tc.destReg(instr.Result, tScratchC)
		tc.e.MoveFromReturn(dst)
		tc.storeIfSpilled(instr.Result, dst)
	}
}
