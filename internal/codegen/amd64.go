package codegen

import "math"

// amd64GPR is the allocatable System-V integer register file this
// emitter exposes through its int-register-index parameters (spec
// §4.8 calling convention: "RBX, R12-R15, RBP, RSP callee-saved; RSP
// reserved"). RSP and RBP are withheld entirely, matching
// DefaultClassCaps' 8-register Int64 class; RBX/R12-R15 are withheld
// too so this emitter never needs to save/restore callee-saved
// registers around a JIT-compiled function body.
var amd64GPR = [8]byte{
	0,  // RAX
	1,  // RCX
	2,  // RDX
	6,  // RSI
	7,  // RDI
	8,  // R8
	9,  // R9
	10, // R10
}

// amd64ArgRegs is the System-V integer argument-passing order.
var amd64ArgRegs = [6]byte{7, 6, 2, 1, 8, 9} // RDI, RSI, RDX, RCX, R8, R9

// amd64Scratch is reserved for this emitter's internal use (bit-pattern
// staging for float immediates) and is never handed out by
// internal/regalloc's Int64 class.
const amd64Scratch byte = 11 // R11

type amd64Emitter struct {
	w writer
}

func newAMD64Emitter() *amd64Emitter {
	w := newWriter()
	return &amd64Emitter{w: w}
}

func (e *amd64Emitter) Arch() Arch { return ArchAMD64 }

func (e *amd64Emitter) DefineLabel() Label { return e.w.defineLabel() }
func (e *amd64Emitter) ReserveLabel() Label { return e.w.reserveLabel() }
func (e *amd64Emitter) MarkLabel(l Label)  { e.w.markLabel(l) }

func (e *amd64Emitter) rex(w, r, x, b bool) byte {
	var rex byte = 0x40
	if w {
		rex |= 0x08
	}
	if r {
		rex |= 0x04
	}
	if x {
		rex |= 0x02
	}
	if b {
		rex |= 0x01
	}
	return rex
}

func modrm(mod, reg, rm byte) byte {
	return (mod << 6) | ((reg & 7) << 3) | (rm & 7)
}

func (e *amd64Emitter) Prologue(frameSize int) {
	e.w.byte(0x55)                            // push rbp
	e.w.bytes(0x48, 0x89, 0xE5)                // mov rbp, rsp
	if frameSize > 0 {
		e.w.bytes(0x48, 0x81, 0xEC) // sub rsp, imm32
		e.w.u32(uint32(frameSize))
	}
}

func (e *amd64Emitter) Epilogue() {
	e.w.bytes(0x48, 0x89, 0xEC) // mov rsp, rbp
	e.w.byte(0x5D)              // pop rbp
	e.w.byte(0xC3)              // ret
}

func (e *amd64Emitter) LoadImm64(dst int, imm int64) {
	reg := amd64GPR[dst]
	e.w.byte(e.rex(true, false, false, reg >= 8))
	e.w.byte(0xB8 + (reg & 7))
	e.w.u64(uint64(imm))
}

func (e *amd64Emitter) LoadImmFloat64(dst int, imm float64) {
	bits := math.Float64bits(imm)
	e.w.byte(e.rex(true, false, false, amd64Scratch >= 8))
	e.w.byte(0xB8 + (amd64Scratch & 7))
	e.w.u64(bits)
	// movq xmm(dst), r64(scratch)
	e.w.bytes(0x66)
	e.w.byte(e.rex(true, dst >= 8, false, amd64Scratch >= 8))
	e.w.bytes(0x0F, 0x6E)
	e.w.byte(modrm(3, byte(dst), amd64Scratch))
}

func (e *amd64Emitter) MovReg(dst, src int) {
	d, s := amd64GPR[dst], amd64GPR[src]
	e.w.byte(e.rex(true, s >= 8, false, d >= 8))
	e.w.byte(0x89) // mov r/m64, r64
	e.w.byte(modrm(3, s, d))
}

func (e *amd64Emitter) LoadMem(dst, base int, offset int32) {
	d, b := amd64GPR[dst], amd64GPR[base]
	e.w.byte(e.rex(true, d >= 8, false, b >= 8))
	e.w.byte(0x8B) // mov r64, r/m64
	e.emitMemOperand(d, b, offset)
}

func (e *amd64Emitter) StoreMem(base int, offset int32, src int) {
	s, b := amd64GPR[src], amd64GPR[base]
	e.w.byte(e.rex(true, s >= 8, false, b >= 8))
	e.w.byte(0x89) // mov r/m64, r64
	e.emitMemOperand(s, b, offset)
}

// emitMemOperand writes the ModRM/SIB/disp32 for [base+offset],
// inserting the SIB byte memcp's single-snippet encoder never needed:
// a base of RSP or R12 (whose low three bits alias the SIB escape)
// requires it, and LoadFrame/StoreFrame address spill slots off RSP, so
// every spill-slot access takes this path.
func (e *amd64Emitter) emitMemOperand(regField, base byte, offset int32) {
	mod := byte(2) // disp32 always, simplest encoding
	e.w.byte(modrm(mod, regField, base))
	if base&7 == 4 { // RSP/R12 need a SIB byte
		e.w.byte(0x24) // SIB: scale=1, index=none, base=base
	}
	e.w.u32(uint32(offset))
}

// LoadFrame/StoreFrame address [rsp+offset]: after Prologue's sub
// rsp,frameSize, rsp sits at the bottom of the frame's spill area, so a
// regalloc SpillSlot offset can be used directly with no adjustment.
func (e *amd64Emitter) LoadFrame(dst int, offset int32) {
	d := amd64GPR[dst]
	e.w.byte(e.rex(true, d >= 8, false, false))
	e.w.byte(0x8B)
	e.emitMemOperand(d, 4, offset) // rsp
}

func (e *amd64Emitter) StoreFrame(offset int32, src int) {
	s := amd64GPR[src]
	e.w.byte(e.rex(true, s >= 8, false, false))
	e.w.byte(0x89)
	e.emitMemOperand(s, 4, offset)
}

func (e *amd64Emitter) arith(opcode byte, dst, a, b int) {
	if dst != a {
		e.MovReg(dst, a)
	}
	d, s := amd64GPR[dst], amd64GPR[b]
	e.w.byte(e.rex(true, s >= 8, false, d >= 8))
	e.w.byte(opcode)
	e.w.byte(modrm(3, s, d))
}

func (e *amd64Emitter) Add(dst, a, b int) { e.arith(0x01, dst, a, b) }
func (e *amd64Emitter) Sub(dst, a, b int) { e.arith(0x29, dst, a, b) }
func (e *amd64Emitter) And(dst, a, b int) { e.arith(0x21, dst, a, b) }
func (e *amd64Emitter) Or(dst, a, b int)  { e.arith(0x09, dst, a, b) }
func (e *amd64Emitter) Xor(dst, a, b int) { e.arith(0x31, dst, a, b) }

func (e *amd64Emitter) Mul(dst, a, b int) {
	if dst != a {
		e.MovReg(dst, a)
	}
	d, s := amd64GPR[dst], amd64GPR[b]
	e.w.byte(e.rex(true, d >= 8, false, s >= 8))
	e.w.bytes(0x0F, 0xAF) // imul r64, r/m64
	e.w.byte(modrm(3, d, s))
}

func (e *amd64Emitter) Div(dst, a, b int) {
	// idiv implicitly operates on rdx:rax / src, quotient in rax.
	if amd64GPR[a] != 0 {
		e.MovReg(0, a) // mov rax, a  (index of RAX within amd64GPR is 0)
	}
	e.w.bytes(0x48, 0x99) // cqo: sign-extend rax into rdx:rax
	s := amd64GPR[b]
	e.w.byte(e.rex(true, false, false, s >= 8))
	e.w.byte(0xF7)
	e.w.byte(modrm(3, 7, s)) // /7 = idiv
	if amd64GPR[dst] != 0 {
		e.MovReg(dst, 0)
	}
}

func (e *amd64Emitter) Shl(dst, a, b int)  { e.shift(4, dst, a, b) } // /4 = shl
func (e *amd64Emitter) Shr(dst, a, b int)  { e.shift(7, dst, a, b) } // /7 = sar
func (e *amd64Emitter) UShr(dst, a, b int) { e.shift(5, dst, a, b) } // /5 = shr

// shift emits a D3 /digit shift-by-CL instruction. The shift count
// operand b is moved into RCX first since x86 only shifts by an
// immediate or CL; dst is set up from a exactly like the arith family.
func (e *amd64Emitter) shift(digit byte, dst, a, b int) {
	if dst != a {
		e.MovReg(dst, a)
	}
	if amd64GPR[b] != 1 { // index 1 == RCX in amd64GPR
		e.MovReg(1, b)
	}
	d := amd64GPR[dst]
	e.w.byte(e.rex(true, false, false, d >= 8))
	e.w.byte(0xD3) // shl/sar r/m64, cl
	e.w.byte(modrm(3, digit, d))
}

func (e *amd64Emitter) Neg(dst, src int) {
	if dst != src {
		e.MovReg(dst, src)
	}
	d := amd64GPR[dst]
	e.w.byte(e.rex(true, false, false, d >= 8))
	e.w.byte(0xF7)
	e.w.byte(modrm(3, 3, d)) // /3 = neg
}

func (e *amd64Emitter) Cmp(a, b int) {
	ra, rb := amd64GPR[a], amd64GPR[b]
	e.w.byte(e.rex(true, rb >= 8, false, ra >= 8))
	e.w.byte(0x39) // cmp r/m64, r64 -> computes a - b
	e.w.byte(modrm(3, rb, ra))
}

var amd64CondCode = map[Cond]byte{
	CondEqual:        0x84,
	CondNotEqual:     0x85,
	CondLess:         0x8C,
	CondLessEqual:    0x8E,
	CondGreater:      0x8F,
	CondGreaterEqual: 0x8D,
}

func (e *amd64Emitter) JumpIfCond(cond Cond, target Label) {
	e.w.bytes(0x0F, amd64CondCode[cond])
	e.w.addFixup(target, 4, true)
	e.w.u32(0)
}

func (e *amd64Emitter) Jump(target Label) {
	e.w.byte(0xE9)
	e.w.addFixup(target, 4, true)
	e.w.u32(0)
}

func (e *amd64Emitter) CallHelper(addr uintptr, args []int) {
	for i, reg := range args {
		if i >= len(amd64ArgRegs) {
			break
		}
		argIdx := gprIndexOf(amd64ArgRegs[i])
		if argIdx != reg {
			e.MovReg(argIdx, reg)
		}
	}
	e.w.byte(e.rex(true, false, false, amd64Scratch >= 8))
	e.w.byte(0xB8 + (amd64Scratch & 7))
	e.w.u64(uint64(addr))
	e.w.byte(e.rex(true, false, false, amd64Scratch >= 8))
	e.w.byte(0xFF)
	e.w.byte(modrm(3, 2, amd64Scratch)) // /2 = call r/m64
}

// MoveFromReturn is a plain MovReg since amd64GPR[0] is RAX, the
// System-V return register, by construction.
func (e *amd64Emitter) MoveFromReturn(dst int) {
	if dst != 0 {
		e.MovReg(dst, 0)
	}
}

func (e *amd64Emitter) MoveToReturn(src int) {
	if src != 0 {
		e.MovReg(0, src)
	}
}

func (e *amd64Emitter) Ret() { e.w.byte(0xC3) }

func (e *amd64Emitter) Finalize() []byte { return e.w.finalize() }
func (e *amd64Emitter) Len() int         { return e.w.pos() }

func gprIndexOf(machineReg byte) int {
	for i, r := range amd64GPR {
		if r == machineReg {
			return i
		}
	}
	return -1
}
