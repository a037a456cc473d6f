package ir

import (
	"github.com/aerojs/aerojs-core/internal/bytecode"
)

// bytecodeToIROp translates a bytecode.Op that has a direct IR analog.
// Control flow and locals/globals are handled specially in Build since
// they need block-id or memory-operand translation the simple map can't
// express.
var bytecodeToIROp = map[bytecode.Op]Opcode{
	bytecode.OpAdd: OpAdd, bytecode.OpSub: OpSub, bytecode.OpMul: OpMul,
	bytecode.OpDiv: OpDiv, bytecode.OpMod: OpMod, bytecode.OpPow: OpPow,
	bytecode.OpNeg: OpNeg, bytecode.OpBitAnd: OpBitAnd, bytecode.OpBitOr: OpBitOr,
	bytecode.OpBitXor: OpBitXor, bytecode.OpBitNot: OpBitNot,
	bytecode.OpShl: OpShl, bytecode.OpShr: OpShr, bytecode.OpUShr: OpUShr,
	bytecode.OpEqual: OpEqual, bytecode.OpNotEqual: OpNotEqual,
	bytecode.OpStrictEqual: OpStrictEqual, bytecode.OpStrictNotEqual: OpStrictNotEqual,
	bytecode.OpLess: OpLess, bytecode.OpLessEqual: OpLessEqual,
	bytecode.OpGreater: OpGreater, bytecode.OpGreaterEqual: OpGreaterEqual,
	bytecode.OpGetIndex: OpLoadElement, bytecode.OpSetIndex: OpStoreElement,
	bytecode.OpGetProp: OpLoadProp, bytecode.OpSetProp: OpStoreProp,
	bytecode.OpGetGlobal: OpLoadGlobal, bytecode.OpSetGlobal: OpStoreGlobal,
	bytecode.OpGetLocal: OpLoadLocal, bytecode.OpSetLocal: OpStoreLocal,
	bytecode.OpMakeArray: OpMakeArray, bytecode.OpMakeObject: OpMakeObject,
	bytecode.OpTypeof: OpTypeof, bytecode.OpToNumber: OpToNumber,
	bytecode.OpInstanceof: OpInstanceof,
	bytecode.OpCall: OpCall, bytecode.OpCallMethod: OpCallMethod,
}

// Build lowers chunk into an IR function using the two-pass algorithm
// from spec §4.3: pass 1 discovers block boundaries by scanning the
// bytecode linearly; pass 2 creates one IRBlock per discovered start,
// lowers every bytecode instruction into it, and wires successor edges
// per terminator kind. No synthetic entry or exit block is created: the
// entry is the block starting at offset 0, and a block ending in a
// return or throw has no successor. Unreachable blocks
// are pruned, loop headers are detected by DFS back-edge, and phi nodes
// are inserted at merge points.
func Build(chunk *bytecode.Chunk, name string) (*Function, error) {
	instrs, err := bytecode.DecodeAll(chunk.Code)
	if err != nil {
		return nil, err
	}

	starts := discoverBlockStarts(instrs)
	fn := NewFunction(name)
	offsetToBlock := make(map[int]BlockID, len(starts))
	for _, off := range starts {
		offsetToBlock[off] = fn.AddBlock()
	}
	fn.Entry = offsetToBlock[0]

	ra := &regAlloc{fn: fn, byBcReg: make(map[uint32]VReg)}
	exitState := make(map[BlockID]map[uint32]VReg, len(starts))

	var cur BlockID = NoBlock
	for i, ins := range instrs {
		if blk, isStart := offsetToBlock[ins.Offset]; isStart {
			cur = blk
		}
		lowerInstruction(fn, cur, ins, chunk, ra)
		lastInStream := i+1 >= len(instrs)
		nextStartsBlock := false
		if !lastInStream {
			_, nextStartsBlock = offsetToBlock[instrs[i+1].Offset]
		}
		if lastInStream || nextStartsBlock {
			exitState[cur] = snapshotRegs(ra.byBcReg)
		}
	}

	wireSuccessors(fn, instrs, offsetToBlock)
	insertPhis(fn, exitState)
	pruneUnreachable(fn)
	detectLoopHeaders(fn)

	return fn, nil
}

func snapshotRegs(m map[uint32]VReg) map[uint32]VReg {
	out := make(map[uint32]VReg, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// discoverBlockStarts implements pass 1: a block starts at offset 0, at
// every jump target, and at the instruction after every
// jump/branch/return/throw.
func discoverBlockStarts(instrs []bytecode.Instruction) []int {
	starts := map[int]bool{0: true}
	for i, ins := range instrs {
		if ins.Op.IsBranch() {
			starts[int(ins.Operands[1])] = true
		} else if ins.Op == bytecode.OpJump {
			starts[int(ins.Operands[0])] = true
		}
		if ins.Op.IsTerminator() && i+1 < len(instrs) {
			starts[instrs[i+1].Offset] = true
		}
	}
	ordered := make([]int, 0, len(starts))
	for off := range starts {
		ordered = append(ordered, off)
	}
	// Simple insertion sort: block counts are small (one per function),
	// and keeping this allocation-free avoids pulling in sort for what
	// is, at steady state, a handful of elements.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1] > ordered[j]; j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	return ordered
}

// regAlloc maps bytecode register indices to IR virtual registers
// within one function's lowering pass. Every write to a bytecode
// register (a LoadConst or a lowered instruction's result) gets a fresh
// vreg, while a Move makes the destination register alias the source's
// current vreg (the interpreter's register file is mutable; SSA virtual
// registers are not, so each write needs its own identity).
type regAlloc struct {
	fn      *Function
	byBcReg map[uint32]VReg
}

func (r *regAlloc) get(bcReg uint32) VReg {
	if v, ok := r.byBcReg[bcReg]; ok {
		return v
	}
	v := r.fn.NewReg()
	r.byBcReg[bcReg] = v
	return v
}

func (r *regAlloc) alias(bcReg uint32, to VReg) { r.byBcReg[bcReg] = to }

func lowerInstruction(fn *Function, block BlockID, ins bytecode.Instruction, chunk *bytecode.Chunk, ra *regAlloc) {
	switch ins.Op {
	case bytecode.OpLoadConst:
		dst := ra.fn.NewReg()
		ra.alias(ins.Operands[0], dst)
		fn.AddInstr(block, Instr{Op: OpConst, Result: dst, HasResult: true, Type: TypeAny, Operands: []Operand{MemoryOperand(ins.Operands[1])}})
	case bytecode.OpMove:
		src := ra.get(ins.Operands[1])
		ra.alias(ins.Operands[0], src)
	case bytecode.OpJump:
		fn.AddInstr(block, Instr{Op: OpJump, Type: TypeUnknown})
	case bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue:
		cond := ra.get(ins.Operands[0])
		fn.AddInstr(block, Instr{Op: OpBranch, Type: TypeBoolean, Operands: []Operand{RegOperand(cond)}})
	case bytecode.OpReturn:
		v := ra.get(ins.Operands[0])
		fn.AddInstr(block, Instr{Op: OpReturn, Operands: []Operand{RegOperand(v)}})
	case bytecode.OpReturnUndefined:
		fn.AddInstr(block, Instr{Op: OpReturn})
	case bytecode.OpThrow:
		v := ra.get(ins.Operands[0])
		fn.AddInstr(block, Instr{Op: OpThrow, Operands: []Operand{RegOperand(v)}})
	default:
		if irOp, ok := bytecodeToIROp[ins.Op]; ok {
			lowerGeneric(fn, block, ins, irOp, ra)
		}
	}
}

func lowerGeneric(fn *Function, block BlockID, ins bytecode.Instruction, op Opcode, ra *regAlloc) {
	regFor := ra.get
	newDst := func(bcReg uint32) VReg {
		v := ra.fn.NewReg()
		ra.alias(bcReg, v)
		return v
	}
	switch op {
	case OpLoadGlobal, OpLoadLocal:
		dst := newDst(ins.Operands[0])
		fn.AddInstr(block, Instr{Op: op, Result: dst, HasResult: true, Type: TypeAny, Operands: []Operand{MemoryOperand(ins.Operands[1])}})
	case OpStoreGlobal, OpStoreLocal:
		src := regFor(ins.Operands[1])
		fn.AddInstr(block, Instr{Op: op, Operands: []Operand{MemoryOperand(ins.Operands[0]), RegOperand(src)}})
	case OpLoadProp:
		obj := regFor(ins.Operands[1])
		dst := newDst(ins.Operands[0])
		fn.AddInstr(block, Instr{Op: op, Result: dst, HasResult: true, Type: TypeAny, Operands: []Operand{RegOperand(obj), MemoryOperand(ins.Operands[2])}})
	case OpStoreProp:
		obj, src := regFor(ins.Operands[0]), regFor(ins.Operands[2])
		fn.AddInstr(block, Instr{Op: op, Operands: []Operand{RegOperand(obj), MemoryOperand(ins.Operands[1]), RegOperand(src)}})
	case OpLoadElement:
		arr, idx := regFor(ins.Operands[1]), regFor(ins.Operands[2])
		dst := newDst(ins.Operands[0])
		fn.AddInstr(block, Instr{Op: op, Result: dst, HasResult: true, Type: TypeAny, Operands: []Operand{RegOperand(arr), RegOperand(idx)}})
	case OpStoreElement:
		arr, idx, src := regFor(ins.Operands[0]), regFor(ins.Operands[1]), regFor(ins.Operands[2])
		fn.AddInstr(block, Instr{Op: op, Operands: []Operand{RegOperand(arr), RegOperand(idx), RegOperand(src)}})
	case OpCall, OpCallMethod:
		callee := regFor(ins.Operands[1])
		dst := newDst(ins.Operands[0])
		ops := []Operand{RegOperand(callee)}
		fn.AddInstr(block, Instr{Op: op, Result: dst, HasResult: true, Type: TypeAny, Operands: ops})
	default:
		// Arithmetic/comparison/unary: result + up to two source operands.
		ops := make([]Operand, 0, 2)
		for i := 1; i < ins.Arity; i++ {
			ops = append(ops, RegOperand(regFor(ins.Operands[i])))
		}
		dst := newDst(ins.Operands[0])
		fn.AddInstr(block, Instr{Op: op, Result: dst, HasResult: true, Type: classifyResultType(op), Operands: ops})
	}
}

func classifyResultType(op Opcode) Type {
	switch op {
	case OpEqual, OpNotEqual, OpStrictEqual, OpStrictNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return TypeBoolean
	case OpTypeof:
		return TypeString
	default:
		return TypeNumber
	}
}

// wireSuccessors walks blocks in offset order, connecting each to its
// terminator's target(s) or to the next block on fallthrough.
func wireSuccessors(fn *Function, instrs []bytecode.Instruction, offsetToBlock map[int]BlockID) {
	starts := sortedOffsets(offsetToBlock)
	for i, off := range starts {
		last := lastInstrOfBlock(instrs, off, starts, i)
		if last == nil {
			continue
		}
		from := offsetToBlock[off]
		switch {
		case last.Op == bytecode.OpJump:
			fn.addSucc(from, offsetToBlock[int(last.Operands[0])])
		case last.Op.IsBranch():
			fn.addSucc(from, offsetToBlock[int(last.Operands[1])])
			if i+1 < len(starts) {
				fn.addSucc(from, offsetToBlock[starts[i+1]])
			}
		case last.Op == bytecode.OpReturn, last.Op == bytecode.OpReturnUndefined, last.Op == bytecode.OpThrow:
			// No fallthrough successor.
		default:
			if i+1 < len(starts) {
				fn.addSucc(from, offsetToBlock[starts[i+1]])
			}
		}
	}
}

func sortedOffsets(m map[int]BlockID) []int {
	out := make([]int, 0, len(m))
	for off := range m {
		out = append(out, off)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func lastInstrOfBlock(instrs []bytecode.Instruction, start int, starts []int, idx int) *bytecode.Instruction {
	end := len(instrs)
	if idx+1 < len(starts) {
		boundary := starts[idx+1]
		for i, ins := range instrs {
			if ins.Offset >= boundary {
				end = i
				break
			}
		}
	}
	var last *bytecode.Instruction
	for i := range instrs {
		if instrs[i].Offset < start {
			continue
		}
		if i >= end {
			break
		}
		last = &instrs[i]
	}
	return last
}

// pruneUnreachable deletes blocks not reachable from the entry via
// forward reverse-reachability, preserving blocks explicitly marked as
// exception handlers (spec §4.3).
func pruneUnreachable(fn *Function) {
	reachable := make(map[BlockID]bool)
	var walk func(BlockID)
	walk = func(b BlockID) {
		if reachable[b] {
			return
		}
		reachable[b] = true
		for _, s := range fn.Blocks[b].Succs {
			walk(s)
		}
	}
	if fn.Entry != NoBlock {
		walk(fn.Entry)
	}
	kept := make([]Block, 0, len(fn.Blocks))
	remap := make(map[BlockID]BlockID, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if reachable[b.ID] || b.IsHandler {
			remap[b.ID] = BlockID(len(kept))
			kept = append(kept, b)
		}
	}
	for i := range kept {
		kept[i].ID = BlockID(i)
		kept[i].Preds = remapIDs(kept[i].Preds, remap)
		kept[i].Succs = remapIDs(kept[i].Succs, remap)
	}
	fn.Entry = remap[fn.Entry]
	fn.Blocks = kept
}

func remapIDs(ids []BlockID, remap map[BlockID]BlockID) []BlockID {
	out := make([]BlockID, 0, len(ids))
	for _, id := range ids {
		if nb, ok := remap[id]; ok {
			out = append(out, nb)
		}
	}
	return out
}

// detectLoopHeaders marks any block targeted by a back edge (a
// successor whose id precedes the current block's DFS-order id) as a
// loop header, per spec §4.3.
func detectLoopHeaders(fn *Function) {
	visited := make(map[BlockID]bool)
	var dfs func(BlockID)
	dfs = func(b BlockID) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range fn.Blocks[b].Succs {
			if s <= b {
				fn.Blocks[s].IsLoopHeader = true
			}
			dfs(s)
		}
	}
	if fn.Entry != NoBlock && int(fn.Entry) < len(fn.Blocks) {
		dfs(fn.Entry)
	}
}

// insertPhis inserts a phi at every merge block (>1 predecessor) for
// each bytecode-level register whose reaching definition differs across
// predecessors, using the per-block exit snapshots recorded during
// lowering. Any reference inside the merge block to one of those
// per-predecessor values is rewritten to the phi's fresh result.
func insertPhis(fn *Function, exitState map[BlockID]map[uint32]VReg) {
	for i := range fn.Blocks {
		b := &fn.Blocks[i]
		if len(b.Preds) < 2 {
			continue
		}

		bcRegs := map[uint32]bool{}
		for _, p := range b.Preds {
			for bcReg := range exitState[p] {
				bcRegs[bcReg] = true
			}
		}

		for bcReg := range bcRegs {
			incoming := make([]PhiOperand, 0, len(b.Preds))
			seen := map[VReg]bool{}
			differs := false
			for _, p := range b.Preds {
				src, ok := exitState[p][bcReg]
				if !ok {
					continue
				}
				incoming = append(incoming, PhiOperand{Pred: p, Src: src})
				if len(seen) > 0 && !seen[src] {
					differs = true
				}
				seen[src] = true
			}
			if !differs || len(incoming) < 2 {
				continue
			}
			result := fn.NewReg()
			b.Phis = append(b.Phis, Phi{Result: result, Type: TypeAny, Incoming: incoming})
			rewriteUses(fn, b, seen, result)
		}
	}
}

// rewriteUses replaces any operand in block b's own instructions that
// references one of the old vregs with the phi's new result register.
func rewriteUses(fn *Function, b *Block, old map[VReg]bool, to VReg) {
	for _, idx := range b.Instrs {
		instr := fn.Instr(idx)
		for oi := range instr.Operands {
			op := &instr.Operands[oi]
			if op.Kind == OperandVReg && old[op.VReg] {
				op.VReg = to
			}
		}
	}
}
