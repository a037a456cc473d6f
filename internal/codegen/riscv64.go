package codegen

import "math"

// riscv64GPR is the allocatable RV64 integer register file (spec
// §4.8: "RISC-V LP64D on RISC-V"): the eight callee-saved "saved"
// registers s2-s9 (x18-x25), which this emitter never needs to
// preserve across calls since it owns the whole compiled-function body.
// x5/t0 and x6/t1 are withheld as emitter-internal scratch (address
// materialization, 64-bit immediate construction); x8/s0 (frame
// pointer), x1/ra, x2/sp are withheld for the frame.
var riscv64GPR = [8]byte{18, 19, 20, 21, 22, 23, 24, 25}

var riscv64ArgRegs = [8]byte{10, 11, 12, 13, 14, 15, 16, 17} // a0-a7

const riscv64Scratch0 byte = 5 // t0
const riscv64Scratch1 byte = 6 // t1
const riscv64SP byte = 2
const riscv64FP byte = 8 // s0
const riscv64RA byte = 1

type riscv64Emitter struct {
	w            writer
	cmpA, cmpB   int
}

func newRISCV64Emitter() *riscv64Emitter {
	return &riscv64Emitter{w: newWriter()}
}

func (e *riscv64Emitter) Arch() Arch { return ArchRISCV64 }

func (e *riscv64Emitter) DefineLabel() Label  { return e.w.defineLabel() }
func (e *riscv64Emitter) ReserveLabel() Label { return e.w.reserveLabel() }
func (e *riscv64Emitter) MarkLabel(l Label)   { e.w.markLabel(l) }

func (e *riscv64Emitter) word(v uint32) { e.w.u32(v) }

func rType(opcode, funct3, funct7, rd, rs1, rs2 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func iType(opcode, funct3, rd, rs1 uint32, imm12 int32) uint32 {
	return (uint32(imm12)&0xFFF)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func uType(opcode, rd uint32, imm20 uint32) uint32 {
	return (imm20&0xFFFFF)<<12 | rd<<7 | opcode
}

func sType(opcode, funct3, rs1, rs2 uint32, imm12 int32) uint32 {
	imm := uint32(imm12) & 0xFFF
	return ((imm>>5)&0x7F)<<25 | rs2<<20 | rs1<<15 | funct3<<12 | (imm&0x1F)<<7 | opcode
}

func bType(opcode, funct3, rs1, rs2 uint32, imm13 int32) uint32 {
	imm := uint32(imm13)
	return ((imm>>12)&1)<<31 | ((imm>>5)&0x3F)<<25 | rs2<<20 | rs1<<15 | funct3<<12 |
		((imm>>1)&0xF)<<8 | ((imm>>11)&1)<<7 | opcode
}

const (
	opLoad   = 0x03
	opOpImm  = 0x13
	opStore  = 0x23
	opOp     = 0x33
	opLui    = 0x37
	opBranch = 0x63
	opJalr   = 0x67
	opJal    = 0x6F
)

// addi emits ADDI rd, rs1, imm. iType keeps only the low 12 bits of imm
// (no clamping), so callers only pass values already known to fit.
func (e *riscv64Emitter) addi(rd, rs1 byte, imm int32) {
	e.word(iType(opOpImm, 0, uint32(rd), uint32(rs1), imm))
}

func (e *riscv64Emitter) Prologue(frameSize int) {
	e.addi(riscv64SP, riscv64SP, -16)
	e.word(sType(opStore, 3, uint32(riscv64SP), uint32(riscv64FP), 0)) // sd s0, 0(sp)
	e.word(sType(opStore, 3, uint32(riscv64SP), uint32(riscv64RA), 8)) // sd ra, 8(sp)
	e.addi(riscv64FP, riscv64SP, 16)                                   // s0 = old sp (sp+16, pre-decrement)
	if frameSize > 0 {
		e.addi(riscv64SP, riscv64SP, -int32(frameSize))
	}
}

func (e *riscv64Emitter) Epilogue() {
	e.addi(riscv64SP, riscv64FP, -16)
	e.word(iType(opLoad, 3, uint32(riscv64FP), uint32(riscv64SP), 0))
	e.word(iType(opLoad, 3, uint32(riscv64RA), uint32(riscv64SP), 8))
	e.addi(riscv64SP, riscv64SP, 16)
	e.Ret()
}

// loadImm32 materializes val (as a bit pattern, not necessarily a
// meaningful signed quantity) into rd via LUI+ADDI, rounding the LUI
// immediate to compensate for ADDI's 12-bit sign extension — the
// standard two-instruction RV64 32-bit "li" expansion.
func (e *riscv64Emitter) loadImm32(rd byte, val uint32) {
	upper := (val + 0x800) >> 12
	lower := int32(val) - int32(upper<<12)
	e.word(uType(opLui, uint32(rd), upper))
	e.addi(rd, rd, lower)
}

// movImm64 builds an arbitrary 64-bit bit pattern using two
// zero-extended 32-bit halves combined with shifts, since RV64 has no
// single-sequence canonical 64-bit immediate load.
func (e *riscv64Emitter) movImm64(rd byte, imm uint64) {
	hi32 := uint32(imm >> 32)
	lo32 := uint32(imm)
	e.loadImm32(rd, hi32)
	e.word(iType(opOpImm, 1, uint32(rd), uint32(rd), 32)) // slli rd, rd, 32
	e.loadImm32(riscv64Scratch1, lo32)
	e.word(iType(opOpImm, 1, uint32(riscv64Scratch1), uint32(riscv64Scratch1), 32)) // slli t1, t1, 32
	e.word(iType(opOpImm, 5, uint32(riscv64Scratch1), uint32(riscv64Scratch1), 32)) // srli t1, t1, 32
	e.word(rType(opOp, 6, 0, uint32(rd), uint32(rd), uint32(riscv64Scratch1)))      // or rd, rd, t1
}

func (e *riscv64Emitter) LoadImm64(dst int, imm int64) {
	e.movImm64(riscv64GPR[dst], uint64(imm))
}

func (e *riscv64Emitter) LoadImmFloat64(dst int, imm float64) {
	// The Emitter interface has no floating-point register operations,
	// so the float's bit pattern is materialized into an integer-class
	// destination register.
	e.movImm64(riscv64GPR[dst], math.Float64bits(imm))
}

func (e *riscv64Emitter) MovReg(dst, src int) {
	e.addi(riscv64GPR[dst], riscv64GPR[src], 0)
}

func (e *riscv64Emitter) LoadMem(dst, base int, offset int32) {
	e.word(iType(opLoad, 3, uint32(riscv64GPR[dst]), uint32(riscv64GPR[base]), offset))
}

func (e *riscv64Emitter) StoreMem(base int, offset int32, src int) {
	e.word(sType(opStore, 3, uint32(riscv64GPR[base]), uint32(riscv64GPR[src]), offset))
}

// LoadFrame/StoreFrame address [sp+offset], sp being the frame's
// local-storage base after Prologue's frame-size subtraction, so a
// regalloc SpillSlot offset needs no adjustment. RV64's 12-bit signed
// immediate caps a single function's spill area at 4KiB; larger frames
// are outside the baseline tier's expected working set.
func (e *riscv64Emitter) LoadFrame(dst int, offset int32) {
	e.word(iType(opLoad, 3, uint32(riscv64GPR[dst]), uint32(riscv64SP), offset))
}

func (e *riscv64Emitter) StoreFrame(offset int32, src int) {
	e.word(sType(opStore, 3, uint32(riscv64SP), uint32(riscv64GPR[src]), offset))
}

func (e *riscv64Emitter) Add(dst, a, b int) {
	e.word(rType(opOp, 0, 0, uint32(riscv64GPR[dst]), uint32(riscv64GPR[a]), uint32(riscv64GPR[b])))
}
func (e *riscv64Emitter) Sub(dst, a, b int) {
	e.word(rType(opOp, 0, 0x20, uint32(riscv64GPR[dst]), uint32(riscv64GPR[a]), uint32(riscv64GPR[b])))
}
func (e *riscv64Emitter) And(dst, a, b int) {
	e.word(rType(opOp, 7, 0, uint32(riscv64GPR[dst]), uint32(riscv64GPR[a]), uint32(riscv64GPR[b])))
}
func (e *riscv64Emitter) Or(dst, a, b int) {
	e.word(rType(opOp, 6, 0, uint32(riscv64GPR[dst]), uint32(riscv64GPR[a]), uint32(riscv64GPR[b])))
}
func (e *riscv64Emitter) Xor(dst, a, b int) {
	e.word(rType(opOp, 4, 0, uint32(riscv64GPR[dst]), uint32(riscv64GPR[a]), uint32(riscv64GPR[b])))
}
func (e *riscv64Emitter) Shl(dst, a, b int) {
	e.word(rType(opOp, 1, 0, uint32(riscv64GPR[dst]), uint32(riscv64GPR[a]), uint32(riscv64GPR[b])))
}
func (e *riscv64Emitter) Shr(dst, a, b int) { // sra
	e.word(rType(opOp, 5, 0x20, uint32(riscv64GPR[dst]), uint32(riscv64GPR[a]), uint32(riscv64GPR[b])))
}
func (e *riscv64Emitter) UShr(dst, a, b int) { // srl
	e.word(rType(opOp, 5, 0, uint32(riscv64GPR[dst]), uint32(riscv64GPR[a]), uint32(riscv64GPR[b])))
}
func (e *riscv64Emitter) Mul(dst, a, b int) {
	e.word(rType(opOp, 0, 1, uint32(riscv64GPR[dst]), uint32(riscv64GPR[a]), uint32(riscv64GPR[b])))
}
func (e *riscv64Emitter) Div(dst, a, b int) {
	e.word(rType(opOp, 4, 1, uint32(riscv64GPR[dst]), uint32(riscv64GPR[a]), uint32(riscv64GPR[b])))
}

func (e *riscv64Emitter) Neg(dst, src int) {
	e.word(rType(opOp, 0, 0x20, uint32(riscv64GPR[dst]), 0, uint32(riscv64GPR[src]))) // sub rd, x0, src
}

// Cmp has no direct RV64 equivalent (no flags register): it records the
// two operand registers so the following JumpIfCond can emit a single
// compare-and-branch instruction, mirroring how RISC-V assemblers
// synthesize BLE/BGT from BGE/BLT with swapped operands.
func (e *riscv64Emitter) Cmp(a, b int) {
	e.cmpA, e.cmpB = a, b
}

func (e *riscv64Emitter) JumpIfCond(cond Cond, target Label) {
	a, b := uint32(riscv64GPR[e.cmpA]), uint32(riscv64GPR[e.cmpB])
	var funct3 uint32
	switch cond {
	case CondEqual:
		funct3 = 0 // beq
	case CondNotEqual:
		funct3 = 1 // bne
	case CondLess:
		funct3 = 4 // blt a, b
	case CondGreaterEqual:
		funct3 = 5 // bge a, b
	case CondGreater:
		a, b, funct3 = b, a, 4 // blt b, a
	case CondLessEqual:
		a, b, funct3 = b, a, 5 // bge b, a
	}
	e.word(bType(opBranch, funct3, a, b, 0))
	e.w.addWordFixup(target, fixupRVBranch)
}

func (e *riscv64Emitter) Jump(target Label) {
	e.word(jalType(opJal, 0, 0))
	e.w.addWordFixup(target, fixupRVJal)
}

func jalType(opcode, rd uint32, imm21 int32) uint32 {
	imm := uint32(imm21)
	return ((imm>>20)&1)<<31 | ((imm>>1)&0x3FF)<<21 | ((imm>>11)&1)<<20 | ((imm>>12)&0xFF)<<12 | rd<<7 | opcode
}

func (e *riscv64Emitter) CallHelper(addr uintptr, args []int) {
	for i, reg := range args {
		if i >= len(riscv64ArgRegs) {
			break
		}
		e.addi(riscv64ArgRegs[i], riscv64GPR[reg], 0) // mv a_i, src
	}
	e.movImm64(riscv64Scratch0, uint64(addr))
	e.word(iType(opJalr, 0, uint32(riscv64RA), uint32(riscv64Scratch0), 0)) // jalr ra, t0, 0
}

// MoveFromReturn copies a0 (LP64D's return register, outside
// riscv64GPR's s2-s9 allocatable file) into an allocated slot.
func (e *riscv64Emitter) MoveFromReturn(dst int) {
	e.addi(riscv64GPR[dst], 10, 0) // mv rd, a0
}

func (e *riscv64Emitter) MoveToReturn(src int) {
	e.addi(10, riscv64GPR[src], 0) // mv a0, rsrc
}

func (e *riscv64Emitter) Ret() {
	e.word(iType(opJalr, 0, 0, uint32(riscv64RA), 0)) // jalr x0, ra, 0
}

func (e *riscv64Emitter) Finalize() []byte { return e.w.finalize() }
func (e *riscv64Emitter) Len() int         { return e.w.pos() }
