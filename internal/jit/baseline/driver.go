package baseline

import (
	"sync"

	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/codegen"
	"github.com/aerojs/aerojs-core/internal/ir"
	"github.com/aerojs/aerojs-core/internal/regalloc"
	"github.com/aerojs/aerojs-core/internal/rt/value"
	"github.com/aerojs/aerojs-core/pkg/errors"
	"github.com/aerojs/aerojs-core/pkg/logging"
)

// bsClassCaps reserves physical Int64 slots 5, 6 and 7 as compiler-owned
// scratch registers rather than handing regalloc the full eight-register
// file (spec §4.7's DefaultClassCaps). Every bytecode instruction has at
// most three register operands (two sources, one destination); worst
// case all three are spilled, so three scratch slots are enough to
// stage every operand through a LoadFrame/StoreFrame round trip without
// ever clobbering a register the allocator actually handed out. The
// flat register model (flatfunc.go) never distinguishes Int32/Float64
// from Int64, so only the Int64 class is capped here — liveness.go's
// classOf falls through to ClassInt64 for every unmapped VReg.
var bsClassCaps = regalloc.ClassCaps{ir.ClassInt64: 5}

const (
	scratchA = 5
	scratchB = 6
	scratchC = 7
)

// OffsetEntry pairs a bytecode offset with the native offset it lowered
// to, emitted only when a compiler is constructed with debug info
// enabled (spec §4.8 step 4: "an offset map from bytecode offset to
// native offset, built only when debug info is requested").
type OffsetEntry struct {
	BytecodeOffset int
	NativeOffset   int
}

// CompiledFunction is the result of compiling one function's bytecode to
// native code (spec §4.8 steps 1-5).
type CompiledFunction struct {
	FunctionID int
	Region     *codegen.CodeRegion
	Entry      uintptr
	Size       int
	OffsetMap  []OffsetEntry
	Sites      []*Site
}

// Compiler is the baseline JIT's per-engine compile pipeline: one
// Compiler serves every function the engine decides to promote (spec
// §4.6's hotness counter, tracked elsewhere), caching compiled output by
// function id so repeated promotion attempts are free (spec §4.8:
// "compile is idempotent per function id").
type Compiler struct {
	arch         codegen.Arch
	cache        *codegen.CodeCache
	trampolines  Trampolines
	debugOffsets bool
	log          logging.Logger

	mu       sync.Mutex
	compiled map[int]*CompiledFunction
	sites    map[int64]*Site
}

// NewCompiler constructs a baseline compiler targeting arch, reserving
// code regions from cache and dispatching runtime slow paths through
// trampolines.
func NewCompiler(arch codegen.Arch, cache *codegen.CodeCache, trampolines Trampolines, log logging.Logger) *Compiler {
	return &Compiler{
		arch:        arch,
		cache:       cache,
		trampolines: trampolines,
		log:         log.Tier("baseline"),
		compiled:    make(map[int]*CompiledFunction),
		sites:       make(map[int64]*Site),
	}
}

// EnableDebugOffsets turns on bytecode-to-native offset tracking for
// functions compiled after this call.
func (c *Compiler) EnableDebugOffsets(on bool) { c.debugOffsets = on }

// siteFor returns (allocating on first use) the inline-cache site for
// functionID's offsetIndex-th instruction, per spec §4.8's
// site_id = function_id*10000 + offset_index addressing.
func (c *Compiler) siteFor(functionID, offsetIndex int, kind SiteKind) *Site {
	id := int64(functionID)*10000 + int64(offsetIndex)
	if s, ok := c.sites[id]; ok {
		return s
	}
	s := NewSite(functionID, offsetIndex, kind)
	c.sites[id] = s
	return s
}

// Compile lowers chunk to native code for functionID, reusing a prior
// result if one exists.
func (c *Compiler) Compile(functionID int, chunk *bytecode.Chunk) (*CompiledFunction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cf, ok := c.compiled[functionID]; ok {
		return cf, nil
	}

	instrs, err := bytecode.DecodeAll(chunk.Code)
	if err != nil {
		return nil, errors.Wrap(errors.KindOther, errors.Position{}, err, "baseline compile: decode function %d", functionID)
	}

	fn := buildFlatRegisterFunction(chunk, instrs)
	result := regalloc.Allocate(fn, map[ir.VReg]ir.Type{}, regalloc.StrategyLinearScan, bsClassCaps)

	fc := &funcCompiler{
		c:          c,
		functionID: functionID,
		chunk:      chunk,
		instrs:     instrs,
		alloc:      result,
		e:          codegen.New(c.arch),
		labels:     make(map[int]codegen.Label),
	}

	if err := fc.run(); err != nil {
		return nil, err
	}

	code := fc.e.Finalize()
	region, err := c.cache.Reserve(len(chunk.Code))
	if err != nil {
		return nil, errors.Wrap(errors.KindOther, errors.Position{}, err, "baseline compile: reserve code region for function %d", functionID)
	}
	if len(code) > len(region.Bytes()) {
		_ = c.cache.Release(region)
		return nil, errors.New(errors.KindOther, errors.Position{}, "baseline compile: emitted %d bytes exceeds reserved region of %d", len(code), len(region.Bytes()))
	}
	copy(region.Bytes(), code)
	if err := c.cache.Protect(region); err != nil {
		_ = c.cache.Release(region)
		return nil, errors.Wrap(errors.KindOther, errors.Position{}, err, "baseline compile: protect code region for function %d", functionID)
	}

	cf := &CompiledFunction{
		FunctionID: functionID,
		Region:     region,
		Entry:      region.EntryPoint(),
		Size:       len(code),
		OffsetMap:  fc.offsets,
		Sites:      fc.sitesUsed,
	}
	c.compiled[functionID] = cf
	c.log.Info().Int("function_id", functionID).Int("bytes", len(code)).Str("arch", c.arch.String()).Msg("baseline compile")
	return cf, nil
}

// funcCompiler holds the per-compile state threaded through one
// function's instruction walk; it exists only for the duration of one
// Compile call.
type funcCompiler struct {
	c          *Compiler
	functionID int
	chunk      *bytecode.Chunk
	instrs     []bytecode.Instruction
	alloc      regalloc.Result
	e          codegen.Emitter
	labels     map[int]codegen.Label
	offsets    []OffsetEntry
	sitesUsed  []*Site
}

func (fc *funcCompiler) loc(bcReg uint32) regalloc.Assignment {
	return fc.alloc.Assignments[vregFor(bcReg)]
}

// loadOperand materializes bcReg's current value into a physical
// register, using scratch as staging if the value is spilled, and
// returns the register index to read from.
func (fc *funcCompiler) loadOperand(bcReg uint32, scratch int) int {
	a := fc.loc(bcReg)
	if a.Spilled {
		fc.e.LoadFrame(scratch, int32(a.SpillSlot))
		return scratch
	}
	return int(a.Physical)
}

// destReg returns the register index bcReg's result should be written
// to; spilled destinations write through scratch and must be flushed
// with storeIfSpilled once the value is produced.
func (fc *funcCompiler) destReg(bcReg uint32, scratch int) int {
	a := fc.loc(bcReg)
	if a.Spilled {
		return scratch
	}
	return int(a.Physical)
}

func (fc *funcCompiler) storeIfSpilled(bcReg uint32, reg int) {
	a := fc.loc(bcReg)
	if a.Spilled {
		fc.e.StoreFrame(int32(a.SpillSlot), reg)
	}
}

func (fc *funcCompiler) labelAt(bytecodeOffset int) codegen.Label {
	if l, ok := fc.labels[bytecodeOffset]; ok {
		return l
	}
	l := fc.e.ReserveLabel()
	fc.labels[bytecodeOffset] = l
	return l
}

// run emits the prologue, the instruction-by-instruction body and the
// epilogue, pre-scanning jump targets first so forward branches have a
// label to fix up against.
func (fc *funcCompiler) run() error {
	for _, instr := range fc.instrs {
		switch instr.Op {
		case bytecode.OpJump:
			fc.labelAt(int(instr.Operands[0]))
		case bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue:
			fc.labelAt(int(instr.Operands[1]))
		}
	}

	fc.e.Prologue(fc.alloc.NumSpillBytes)

	for _, instr := range fc.instrs {
		if fc.c.debugOffsets {
			fc.offsets = append(fc.offsets, OffsetEntry{BytecodeOffset: instr.Offset, NativeOffset: fc.e.Len()})
		}
		if l, ok := fc.labels[instr.Offset]; ok {
			fc.e.MarkLabel(l)
		}
		if err := fc.emit(instr); err != nil {
			return err
		}
	}

	fc.e.Epilogue()
	return nil
}

func (fc *funcCompiler) emit(instr bytecode.Instruction) error {
	switch instr.Op {
	case bytecode.OpLoadConst:
		dst := fc.destReg(instr.Operands[0], scratchA)
		fc.e.LoadImm64(dst, int64(fc.chunk.Constants[instr.Operands[1]].Bits()))
		fc.storeIfSpilled(instr.Operands[0], dst)

	case bytecode.OpLoadUndefined:
		fc.emitLoadImm(instr.Operands[0], value.Undefined().Bits())
	case bytecode.OpLoadNull:
		fc.emitLoadImm(instr.Operands[0], value.Null().Bits())
	case bytecode.OpLoadTrue:
		fc.emitLoadImm(instr.Operands[0], value.Bool(true).Bits())
	case bytecode.OpLoadFalse:
		fc.emitLoadImm(instr.Operands[0], value.Bool(false).Bits())

	case bytecode.OpMove:
		src := fc.loadOperand(instr.Operands[1], scratchA)
		dst := fc.destReg(instr.Operands[0], scratchB)
		fc.e.MovReg(dst, src)
		fc.storeIfSpilled(instr.Operands[0], dst)

	case bytecode.OpAdd:
		fc.emitBinary(instr, fc.e.Add)
	case bytecode.OpSub:
		fc.emitBinary(instr, fc.e.Sub)
	case bytecode.OpMul:
		fc.emitBinary(instr, fc.e.Mul)
	case bytecode.OpDiv:
		fc.emitBinary(instr, fc.e.Div)
	case bytecode.OpBitAnd:
		fc.emitBinary(instr, fc.e.And)
	case bytecode.OpBitOr:
		fc.emitBinary(instr, fc.e.Or)
	case bytecode.OpBitXor:
		fc.emitBinary(instr, fc.e.Xor)
	case bytecode.OpShl:
		fc.emitBinary(instr, fc.e.Shl)
	case bytecode.OpShr:
		fc.emitBinary(instr, fc.e.Shr)
	case bytecode.OpUShr:
		fc.emitBinary(instr, fc.e.UShr)

	case bytecode.OpMod:
		fc.emitMod(instr)
	case bytecode.OpPow:
		fc.emitHelperBinary(instr, fc.c.trampolines.GenericCall, int64(bytecode.OpPow))

	case bytecode.OpNeg:
		src := fc.loadOperand(instr.Operands[1], scratchA)
		dst := fc.destReg(instr.Operands[0], scratchB)
		fc.e.Neg(dst, src)
		fc.storeIfSpilled(instr.Operands[0], dst)

	case bytecode.OpBitNot:
		src := fc.loadOperand(instr.Operands[1], scratchA)
		dst := fc.destReg(instr.Operands[0], scratchB)
		fc.e.LoadImm64(scratchC, -1)
		fc.e.Xor(dst, src, scratchC)
		fc.storeIfSpilled(instr.Operands[0], dst)

	case bytecode.OpNot:
		fc.emitHelperUnary(instr, fc.c.trampolines.GenericCall, int64(bytecode.OpNot))

	case bytecode.OpEqual:
		fc.emitCompare(instr, codegen.CondEqual)
	case bytecode.OpNotEqual:
		fc.emitCompare(instr, codegen.CondNotEqual)
	case bytecode.OpStrictEqual:
		fc.emitCompare(instr, codegen.CondEqual)
	case bytecode.OpStrictNotEqual:
		fc.emitCompare(instr, codegen.CondNotEqual)
	case bytecode.OpLess:
		fc.emitCompare(instr, codegen.CondLess)
	case bytecode.OpLessEqual:
		fc.emitCompare(instr, codegen.CondLessEqual)
	case bytecode.OpGreater:
		fc.emitCompare(instr, codegen.CondGreater)
	case bytecode.OpGreaterEqual:
		fc.emitCompare(instr, codegen.CondGreaterEqual)

	case bytecode.OpJump:
		fc.e.Jump(fc.labelAt(int(instr.Operands[0])))

	case bytecode.OpJumpIfFalse:
		fc.emitBranchOnBoolean(instr.Operands[0], fc.labelAt(int(instr.Operands[1])), false)
	case bytecode.OpJumpIfTrue:
		fc.emitBranchOnBoolean(instr.Operands[0], fc.labelAt(int(instr.Operands[1])), true)

	case bytecode.OpReturn:
		src := fc.loadOperand(instr.Operands[0], scratchA)
		fc.e.MoveToReturn(src)
		fc.e.Epilogue()
	case bytecode.OpReturnUndefined:
		fc.e.LoadImm64(scratchA, int64(value.Undefined().Bits()))
		fc.e.MoveToReturn(scratchA)
		fc.e.Epilogue()

	case bytecode.OpThrow:
		src := fc.loadOperand(instr.Operands[0], scratchA)
		fc.e.CallHelper(funcAddr(fc.c.trampolines.GenericCall), []int{src})
		fc.e.MoveFromReturn(scratchA)
		fc.e.MoveToReturn(scratchA)
		fc.e.Epilogue()

	case bytecode.OpGetProp:
		fc.emitPropertySite(instr, SiteProperty)
	case bytecode.OpSetProp:
		fc.emitPropertySite(instr, SiteProperty)
	case bytecode.OpCallMethod:
		fc.emitPropertySite(instr, SiteMethod)
	case bytecode.OpTypeof, bytecode.OpInstanceof, bytecode.OpIn:
		fc.emitTypeCheckSite(instr)

	default:
		fc.emitGeneric(instr)
	}
	return nil
}

func (fc *funcCompiler) emitLoadImm(bcReg uint32, bits uint64) {
	dst := fc.destReg(bcReg, scratchA)
	fc.e.LoadImm64(dst, int64(bits))
	fc.storeIfSpilled(bcReg, dst)
}

func (fc *funcCompiler) emitBinary(instr bytecode.Instruction, op func(dst, a, b int)) {
	a := fc.loadOperand(instr.Operands[1], scratchA)
	b := fc.loadOperand(instr.Operands[2], scratchB)
	dst := fc.destReg(instr.Operands[0], scratchC)
	op(dst, a, b)
	fc.storeIfSpilled(instr.Operands[0], dst)
}

// emitMod computes a - (a/b)*b since no codegen backend exposes a
// native remainder instruction (amd64's idiv produces both quotient and
// remainder, but Emitter.Div's contract only returns the quotient).
func (fc *funcCompiler) emitMod(instr bytecode.Instruction) {
	a := fc.loadOperand(instr.Operands[1], scratchA)
	b := fc.loadOperand(instr.Operands[2], scratchB)
	dst := fc.destReg(instr.Operands[0], scratchC)
	fc.e.Div(dst, a, b)
	fc.e.Mul(dst, dst, b)
	fc.e.Sub(dst, a, dst)
	fc.storeIfSpilled(instr.Operands[0], dst)
}

// emitCompare materializes a boolean Value for a `cond` test between two
// operands: no backend exposes a SETcc-style byte-producing instruction,
// so the result is built by branching around a pair of immediate loads.
func (fc *funcCompiler) emitCompare(instr bytecode.Instruction, cond codegen.Cond) {
	a := fc.loadOperand(instr.Operands[1], scratchA)
	b := fc.loadOperand(instr.Operands[2], scratchB)
	dst := fc.destReg(instr.Operands[0], scratchC)

	fc.e.Cmp(a, b)
	trueLabel := fc.e.ReserveLabel()
	doneLabel := fc.e.ReserveLabel()
	fc.e.JumpIfCond(cond, trueLabel)
	fc.e.LoadImm64(dst, int64(value.Bool(false).Bits()))
	fc.e.Jump(doneLabel)
	fc.e.MarkLabel(trueLabel)
	fc.e.LoadImm64(dst, int64(value.Bool(true).Bits()))
	fc.e.MarkLabel(doneLabel)

	fc.storeIfSpilled(instr.Operands[0], dst)
}

// emitBranchOnBoolean routes through the ToBoolean/truthiness trampoline
// rather than decoding the tagged-value bit layout inline: that layout
// is internal/rt/value's to keep, not codegen's to assume.
func (fc *funcCompiler) emitBranchOnBoolean(bcReg uint32, target codegen.Label, jumpWhenTrue bool) {
	cond := fc.loadOperand(bcReg, scratchA)
	fc.e.CallHelper(funcAddr(fc.c.trampolines.GenericCall), []int{cond})
	fc.e.MoveFromReturn(scratchB)
	fc.e.LoadImm64(scratchC, 0)
	fc.e.Cmp(scratchB, scratchC)
	if jumpWhenTrue {
		fc.e.JumpIfCond(codegen.CondNotEqual, target)
	} else {
		fc.e.JumpIfCond(codegen.CondEqual, target)
	}
}

func (fc *funcCompiler) emitHelperUnary(instr bytecode.Instruction, helper func(int64, int64) int64, opcode int64) {
	a := fc.loadOperand(instr.Operands[1], scratchA)
	fc.e.LoadImm64(scratchC, opcode)
	fc.e.CallHelper(funcAddr(helper), []int{scratchC, a})
	dst := fc.destReg(instr.Operands[0], scratchB)
	fc.e.MoveFromReturn(dst)
	fc.storeIfSpilled(instr.Operands[0], dst)
}

func (fc *funcCompiler) emitHelperBinary(instr bytecode.Instruction, helper func(int64, int64) int64, opcode int64) {
	a := fc.loadOperand(instr.Operands[1], scratchA)
	_ = fc.loadOperand(instr.Operands[2], scratchB)
	fc.e.LoadImm64(scratchC, opcode)
	fc.e.CallHelper(funcAddr(helper), []int{scratchC, a})
	dst := fc.destReg(instr.Operands[0], scratchB)
	fc.e.MoveFromReturn(dst)
	fc.storeIfSpilled(instr.Operands[0], dst)
}

// emitGeneric funnels every operation this tier doesn't specialize
// (calls, closures, globals, locals, indexing, object/array creation,
// SIMD) to the engine's generic dispatch trampoline, keyed by opcode.
// The baseline tier's value is the hot arithmetic/comparison/control-
// flow path above; these ops are not where a first-tier JIT earns its
// keep, and the interpreter's own implementation of them is reused
// as-is rather than duplicated in native code.
func (fc *funcCompiler) emitGeneric(instr bytecode.Instruction) {
	var first int
	if instr.Arity > 0 {
		first = fc.loadOperand(instr.Operands[0], scratchA)
	}
	fc.e.LoadImm64(scratchB, int64(instr.Op))
	fc.e.CallHelper(funcAddr(fc.c.trampolines.GenericCall), []int{scratchB, first})
}

// emitPropertySite lowers a GetProp/SetProp/CallMethod instruction
// through its inline-cache site (spec §4.8's three miss-handler kinds):
// the site is allocated once per compile, keyed by function id and
// bytecode offset, and the emitted code calls the property- or
// method-miss trampoline with the site id and the receiver register.
func (fc *funcCompiler) emitPropertySite(instr bytecode.Instruction, kind SiteKind) {
	site := fc.c.siteFor(fc.functionID, instr.Offset, kind)
	fc.sitesUsed = append(fc.sitesUsed, site)

	helper := fc.c.trampolines.PropertyMiss
	if kind == SiteMethod {
		helper = fc.c.trampolines.MethodMiss
	}

	switch instr.Op {
	case bytecode.OpSetProp:
		// {object, nameIndex, value}: SetProp's first register operand
		// is the receiver being written to, not a destination. The
		// value register is left resident; the trampoline reads it off
		// the active call frame by site id, the same way it resolves
		// the property name and shape.
		receiver := fc.loadOperand(instr.Operands[0], scratchA)
		fc.e.LoadImm64(scratchB, site.ID)
		fc.e.CallHelper(funcAddr(helper), []int{scratchB, receiver})
	default:
		// GetProp {dst, object, nameIndex} / CallMethod {dst, object, ...}
		receiver := fc.loadOperand(instr.Operands[1], scratchA)
		fc.e.LoadImm64(scratchB, site.ID)
		fc.e.CallHelper(funcAddr(helper), []int{scratchB, receiver})
		dst := instr.Operands[0]
		out := fc.destReg(dst, scratchC)
		fc.e.MoveFromReturn(out)
		fc.storeIfSpilled(dst, out)
	}
}

// emitTypeCheckSite lowers Typeof/Instanceof/In through the type-check
// inline-cache site, keyed by the site's synthetic typeKey hash of the
// value it observes.
func (fc *funcCompiler) emitTypeCheckSite(instr bytecode.Instruction) {
	site := fc.c.siteFor(fc.functionID, instr.Offset, SiteTypeCheck)
	fc.sitesUsed = append(fc.sitesUsed, site)

	operandIdx := instr.Arity - 2
	if instr.Op == bytecode.OpTypeof {
		operandIdx = 1 // {dst, src}: no right-hand operand to skip
	}
	fc.e.LoadImm64(scratchA, site.ID)
	operand := fc.loadOperand(instr.Operands[operandIdx], scratchB)
	fc.e.CallHelper(funcAddr(fc.c.trampolines.TypeCheckMiss), []int{scratchA, operand})

	dst := fc.destReg(instr.Operands[0], scratchC)
	fc.e.MoveFromReturn(dst)
	fc.storeIfSpilled(instr.Operands[0], dst)
}
