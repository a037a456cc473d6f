package baseline

import (
	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
)

// buildFlatRegisterFunction gives internal/regalloc something to run
// over without reconstructing the full SSA IR spec §4.3 defines for the
// optimizer and tracing tiers: the baseline tier, per spec §2's
// dependency diagram, branches "Bytecode → Baseline JIT → Register
// Alloc" directly, never through "Bytecode → IR". Every bytecode
// register becomes one non-SSA ir.VReg that lives for the whole
// function; every appearance of that register in any instruction
// (whether the bytecode semantically reads or writes it) touches the
// VReg's live interval, which is conservative but correct — the
// allocator only needs to know the span over which a register's value
// must stay resident, and a register's first and last appearance in the
// stream brackets that span regardless of direction.
func buildFlatRegisterFunction(chunk *bytecode.Chunk, instrs []bytecode.Instruction) *ir.Function {
	fn := ir.NewFunction("baseline")
	block := fn.AddBlock()
	fn.Entry = block

	regs := make([]ir.VReg, chunk.MaxRegs)
	for i := range regs {
		regs[i] = fn.NewReg()
	}
	for i := 0; i < chunk.NumParams && i < len(regs); i++ {
		fn.Params = append(fn.Params, regs[i])
	}

	for _, instr := range instrs {
		shape, ok := bytecode.Table[instr.Op]
		if !ok {
			continue
		}
		var operands []ir.Operand
		for i := 0; i < instr.Arity; i++ {
			if shape[i] != bytecode.OperandReg {
				continue
			}
			r := instr.Operands[i]
			if int(r) >= len(regs) {
				continue
			}
			operands = append(operands, ir.RegOperand(regs[r]))
		}
		if len(operands) == 0 {
			continue
		}
		idx := len(fn.Instrs)
		fn.Instrs = append(fn.Instrs, ir.Instr{Op: ir.OpNoOp, Operands: operands})
		fn.Blocks[block].Instrs = append(fn.Blocks[block].Instrs, idx)
	}
	return fn
}

// vregFor returns the flat VReg standing in for bytecode register r,
// matching buildFlatRegisterFunction's 1:1 NewReg() allocation order.
func vregFor(r uint32) ir.VReg { return ir.VReg(r) }
