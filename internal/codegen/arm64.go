package codegen

import "math"

// arm64GPR is the allocatable AAPCS64 integer register file (spec
// §4.8: "AAPCS64 on ARM64"): the caller-saved temporaries X9-X15 plus
// the IP0 veneer register X16, which this emitter is free to use since
// it never calls through a PLT stub that would legitimately need it
// reserved. X29 (FP), X30 (LR) and SP are withheld for the frame; X17
// (IP1) is withheld as emitter-internal scratch, mirroring amd64's R11
// convention.
var arm64GPR = [8]byte{9, 10, 11, 12, 13, 14, 15, 16}

var arm64ArgRegs = [8]byte{0, 1, 2, 3, 4, 5, 6, 7}

const arm64Scratch byte = 17 // X17 / IP1
const arm64SP byte = 31
const arm64FP byte = 29
const arm64LR byte = 30

type arm64Emitter struct {
	w writer
}

func newARM64Emitter() *arm64Emitter {
	return &arm64Emitter{w: newWriter()}
}

func (e *arm64Emitter) Arch() Arch { return ArchARM64 }

func (e *arm64Emitter) DefineLabel() Label  { return e.w.defineLabel() }
func (e *arm64Emitter) ReserveLabel() Label { return e.w.reserveLabel() }
func (e *arm64Emitter) MarkLabel(l Label)   { e.w.markLabel(l) }

func (e *arm64Emitter) word(v uint32) { e.w.u32(v) }

// addSubImm encodes ADD/SUB (immediate), 64-bit, shift 0: spec's AAPCS64
// calling convention reserves SP (31) and this form is also the "MOV
// (to/from SP)" alias used by the prologue/epilogue when imm is 0.
func addSubImm(sub bool, rd, rn byte, imm uint32) uint32 {
	base := uint32(0x91000000)
	if sub {
		base = 0xD1000000
	}
	return base | ((imm & 0xFFF) << 10) | (uint32(rn) << 5) | uint32(rd)
}

func ldrImm(rt, rn byte, byteOffset int32) uint32 {
	imm12 := uint32(byteOffset/8) & 0xFFF
	return 0xF9400000 | (imm12 << 10) | (uint32(rn) << 5) | uint32(rt)
}

func strImm(rt, rn byte, byteOffset int32) uint32 {
	imm12 := uint32(byteOffset/8) & 0xFFF
	return 0xF9000000 | (imm12 << 10) | (uint32(rn) << 5) | uint32(rt)
}

func (e *arm64Emitter) Prologue(frameSize int) {
	e.word(addSubImm(true, arm64SP, arm64SP, 16))  // sub sp, sp, #16
	e.word(strImm(arm64FP, arm64SP, 0))            // str x29, [sp]
	e.word(strImm(arm64LR, arm64SP, 8))            // str x30, [sp, #8]
	e.word(addSubImm(false, arm64FP, arm64SP, 0))  // mov x29, sp
	if frameSize > 0 {
		e.word(addSubImm(true, arm64SP, arm64SP, uint32(frameSize)))
	}
}

func (e *arm64Emitter) Epilogue() {
	e.word(addSubImm(false, arm64SP, arm64FP, 0)) // mov sp, x29
	e.word(ldrImm(arm64FP, arm64SP, 0))
	e.word(ldrImm(arm64LR, arm64SP, 8))
	e.word(addSubImm(false, arm64SP, arm64SP, 16))
	e.word(0xD65F0000 | (uint32(arm64LR) << 5)) // ret
}

// movImm64 loads an arbitrary 64-bit value into rd via MOVZ followed
// by up to three MOVK instructions, one per non-zero 16-bit chunk (the
// "AAPCS64 has no single-instruction 64-bit load immediate" case every
// A64 assembler generates this same sequence for).
func (e *arm64Emitter) movImm64(rd byte, imm uint64) {
	e.word(0xD2800000 | (uint32(imm&0xFFFF) << 5) | uint32(rd)) // movz rd, #imm[0:16]
	for shift := uint(1); shift < 4; shift++ {
		chunk := uint32((imm >> (shift * 16)) & 0xFFFF)
		if chunk == 0 {
			continue
		}
		e.word(0xF2800000 | (uint32(shift) << 21) | (chunk << 5) | uint32(rd))
	}
}

func (e *arm64Emitter) LoadImm64(dst int, imm int64) {
	e.movImm64(arm64GPR[dst], uint64(imm))
}

func (e *arm64Emitter) LoadImmFloat64(dst int, imm float64) {
	e.movImm64(arm64Scratch, math.Float64bits(imm))
	e.word(0x9E670000 | (uint32(arm64Scratch) << 5) | uint32(dst)) // fmov dst(D), scratch(X)
}

func (e *arm64Emitter) MovReg(dst, src int) {
	d, s := arm64GPR[dst], arm64GPR[src]
	e.word(0xAA0003E0 | (uint32(s) << 16) | uint32(d)) // orr xd, xzr, xm
}

func (e *arm64Emitter) LoadMem(dst, base int, offset int32) {
	e.word(ldrImm(arm64GPR[dst], arm64GPR[base], offset))
}

func (e *arm64Emitter) StoreMem(base int, offset int32, src int) {
	e.word(strImm(arm64GPR[src], arm64GPR[base], offset))
}

// LoadFrame/StoreFrame address [sp, #offset]: the unsigned, scaled-by-8
// LDR/STR immediate form requires a non-negative offset, which is
// exactly what a regalloc SpillSlot always is, so sp (the frame's
// local-storage base after Prologue's frame-size subtraction) can be
// used as-is rather than x29/FP.
func (e *arm64Emitter) LoadFrame(dst int, offset int32) {
	e.word(ldrImm(arm64GPR[dst], arm64SP, offset))
}

func (e *arm64Emitter) StoreFrame(offset int32, src int) {
	e.word(strImm(arm64GPR[src], arm64SP, offset))
}

func (e *arm64Emitter) rrr(base uint32, dst, a, b int) {
	d, n, m := arm64GPR[dst], arm64GPR[a], arm64GPR[b]
	e.word(base | (uint32(m) << 16) | (uint32(n) << 5) | uint32(d))
}

func (e *arm64Emitter) Add(dst, a, b int) { e.rrr(0x8B000000, dst, a, b) }
func (e *arm64Emitter) Sub(dst, a, b int) { e.rrr(0xCB000000, dst, a, b) }
func (e *arm64Emitter) And(dst, a, b int) { e.rrr(0x8A000000, dst, a, b) }
func (e *arm64Emitter) Or(dst, a, b int)  { e.rrr(0xAA000000, dst, a, b) }
func (e *arm64Emitter) Xor(dst, a, b int) { e.rrr(0xCA000000, dst, a, b) }
func (e *arm64Emitter) Shl(dst, a, b int)  { e.rrr(0x9AC02000, dst, a, b) } // lslv
func (e *arm64Emitter) Shr(dst, a, b int)  { e.rrr(0x9AC02800, dst, a, b) } // asrv
func (e *arm64Emitter) UShr(dst, a, b int) { e.rrr(0x9AC02400, dst, a, b) } // lsrv

func (e *arm64Emitter) Mul(dst, a, b int) {
	d, n, m := arm64GPR[dst], arm64GPR[a], arm64GPR[b]
	e.word(0x9B007C00 | (uint32(m) << 16) | (uint32(n) << 5) | uint32(d)) // madd d, n, m, xzr
}

func (e *arm64Emitter) Div(dst, a, b int) { e.rrr(0x9AC00C00, dst, a, b) } // sdiv

func (e *arm64Emitter) Neg(dst, src int) {
	d, m := arm64GPR[dst], arm64GPR[src]
	e.word(0xCB0003E0 | (uint32(m) << 16) | uint32(d)) // sub d, xzr, m
}

func (e *arm64Emitter) Cmp(a, b int) {
	n, m := arm64GPR[a], arm64GPR[b]
	e.word(0xEB00001F | (uint32(m) << 16) | (uint32(n) << 5)) // subs xzr, n, m
}

var arm64CondCode = map[Cond]uint32{
	CondEqual:        0x0,
	CondNotEqual:     0x1,
	CondLess:         0xB,
	CondLessEqual:    0xD,
	CondGreater:      0xC,
	CondGreaterEqual: 0xA,
}

// JumpIfCond emits a B.cond with every field but the imm19 displacement
// populated, then registers a fixupARMBCond to OR that field in once
// target's position is known.
func (e *arm64Emitter) JumpIfCond(cond Cond, target Label) {
	e.word(0x54000000 | arm64CondCode[cond])
	e.w.addWordFixup(target, fixupARMBCond)
}

// Jump emits an unconditional B with the imm26 field left for the
// fixupARMBranch resolver to fill in.
func (e *arm64Emitter) Jump(target Label) {
	e.word(0x14000000)
	e.w.addWordFixup(target, fixupARMBranch)
}

func (e *arm64Emitter) CallHelper(addr uintptr, args []int) {
	for i, reg := range args {
		if i >= len(arm64ArgRegs) {
			break
		}
		e.word(0xAA0003E0 | (uint32(arm64GPR[reg]) << 16) | uint32(arm64ArgRegs[i])) // orr x_arg, xzr, x_src
	}
	e.movImm64(arm64Scratch, uint64(addr))
	e.word(0xD63F0000 | (uint32(arm64Scratch) << 5)) // blr x17
}

// MoveFromReturn copies X0 (AAPCS64's return register, outside
// arm64GPR's X9-X16 allocatable file) into an allocated slot.
func (e *arm64Emitter) MoveFromReturn(dst int) {
	d := arm64GPR[dst]
	e.word(0xAA0003E0 | uint32(d)) // orr xd, xzr, x0
}

func (e *arm64Emitter) MoveToReturn(src int) {
	s := arm64GPR[src]
	e.word(0xAA0003E0 | (uint32(s) << 16)) // orr x0, xzr, xs
}

func (e *arm64Emitter) Ret() {
	e.word(0xD65F0000 | (uint32(arm64LR) << 5))
}

func (e *arm64Emitter) Finalize() []byte { return e.w.finalize() }
func (e *arm64Emitter) Len() int         { return e.w.pos() }
