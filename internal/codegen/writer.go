package codegen

import "encoding/binary"

// fixupKind selects how resolveFixups computes and writes a pending
// branch displacement: memcp's JITFixup only ever needed a plain
// byte/word-sized placeholder (x86's rel32), but AArch64 branches embed
// their word-granular displacement inside otherwise-fixed instruction
// bits, so this emitter generalizes memcp's two-field (Size/Relative)
// scheme into an explicit kind per target encoding.
type fixupKind uint8

const (
	fixupAbsPlaceholder fixupKind = iota // overwrite size bytes with target pos
	fixupRelBytes                        // overwrite size bytes with (target - end-of-field), byte displacement
	fixupARMBCond                        // B.cond: imm19 at bits[23:5], word displacement
	fixupARMBranch                       // B/BL: imm26 at bits[25:0], word displacement
	fixupRVBranch                        // RV64 B-type: imm13 scattered per the standard branch encoding, byte displacement
	fixupRVJal                           // RV64 J-type: imm21 scattered per the standard JAL encoding, byte displacement
)

// fixup records a forward branch reference to patch once its label's
// position is known, mirroring memcp's JITFixup (CodePos/LabelID/
// Size/Relative) but keyed into a Go slice instead of a fixed C-style
// array, and tagged with a fixupKind so one resolver can serve every
// architecture's encoding instead of assuming x86's flat rel32.
type fixup struct {
	codePos int
	label   Label
	size    int
	kind    fixupKind
}

// writer is the shared label/fixup/byte-buffer machinery every
// architecture's Emitter embeds; only the actual instruction encoders
// differ between amd64.go, arm64.go and riscv64.go.
type writer struct {
	code   []byte
	labels []int // position per label id, -1 until defined
	fixups []fixup
}

func newWriter() writer {
	return writer{code: make([]byte, 0, 256)}
}

func (w *writer) pos() int { return len(w.code) }

func (w *writer) byte(b byte) { w.code = append(w.code, b) }

func (w *writer) bytes(bs ...byte) { w.code = append(w.code, bs...) }

func (w *writer) u16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	w.code = append(w.code, buf[:]...)
}

func (w *writer) u32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.code = append(w.code, buf[:]...)
}

func (w *writer) u64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.code = append(w.code, buf[:]...)
}

func (w *writer) defineLabel() Label {
	id := Label(len(w.labels))
	w.labels = append(w.labels, w.pos())
	return id
}

func (w *writer) reserveLabel() Label {
	id := Label(len(w.labels))
	w.labels = append(w.labels, -1)
	return id
}

func (w *writer) markLabel(id Label) {
	w.labels[id] = w.pos()
}

// addFixup records a size-byte placeholder at the current position
// that must be patched to target's resolved offset once known.
// relative selects PC-relative byte-displacement (branch displacement)
// vs an absolute position encoding, using the plain (non-ARM) kinds.
func (w *writer) addFixup(target Label, size int, relative bool) {
	kind := fixupAbsPlaceholder
	if relative {
		kind = fixupRelBytes
	}
	w.fixups = append(w.fixups, fixup{codePos: w.pos(), label: target, size: size, kind: kind})
}

// addWordFixup records a 4-byte instruction word already written with
// every field but the branch displacement populated (displacement bits
// all zero); resolveFixups will OR the computed displacement into the
// right bit positions in place, one scatter function per kind. Shared
// by the ARM64 and RISC-V backends, both of which embed a scattered
// immediate inside an otherwise-fixed instruction word rather than
// x86's flat trailing rel32.
func (w *writer) addWordFixup(target Label, kind fixupKind) {
	w.fixups = append(w.fixups, fixup{codePos: w.pos() - 4, label: target, kind: kind})
}

// resolveFixups patches every recorded fixup in place, panicking on an
// undefined label the way memcp's ResolveFixups does — a label that
// never got DefineLabel/MarkLabel called on it is an emitter bug, not
// a runtime condition to recover from.
func (w *writer) resolveFixups() {
	for _, f := range w.fixups {
		target := w.labels[f.label]
		if target < 0 {
			panic("codegen: undefined label")
		}
		switch f.kind {
		case fixupAbsPlaceholder, fixupRelBytes:
			var value int32
			if f.kind == fixupRelBytes {
				value = int32(target - (f.codePos + f.size))
			} else {
				value = int32(target)
			}
			switch f.size {
			case 1:
				w.code[f.codePos] = byte(value)
			case 2:
				binary.LittleEndian.PutUint16(w.code[f.codePos:], uint16(value))
			case 4:
				binary.LittleEndian.PutUint32(w.code[f.codePos:], uint32(value))
			default:
				panic("codegen: unsupported fixup size")
			}
		case fixupARMBCond:
			disp := int32(target-f.codePos) / 4
			word := binary.LittleEndian.Uint32(w.code[f.codePos:])
			word |= (uint32(disp) & 0x7FFFF) << 5
			binary.LittleEndian.PutUint32(w.code[f.codePos:], word)
		case fixupARMBranch:
			disp := int32(target-f.codePos) / 4
			word := binary.LittleEndian.Uint32(w.code[f.codePos:])
			word |= uint32(disp) & 0x3FFFFFF
			binary.LittleEndian.PutUint32(w.code[f.codePos:], word)
		case fixupRVBranch:
			disp := uint32(int32(target - f.codePos))
			word := binary.LittleEndian.Uint32(w.code[f.codePos:])
			word |= ((disp>>12)&1)<<31 | ((disp>>5)&0x3F)<<25 | ((disp>>1)&0xF)<<8 | ((disp>>11)&1)<<7
			binary.LittleEndian.PutUint32(w.code[f.codePos:], word)
		case fixupRVJal:
			disp := uint32(int32(target - f.codePos))
			word := binary.LittleEndian.Uint32(w.code[f.codePos:])
			word |= ((disp>>20)&1)<<31 | ((disp>>1)&0x3FF)<<21 | ((disp>>11)&1)<<20 | ((disp>>12)&0xFF)<<12
			binary.LittleEndian.PutUint32(w.code[f.codePos:], word)
		default:
			panic("codegen: unsupported fixup kind")
		}
	}
}

func (w *writer) finalize() []byte {
	w.resolveFixups()
	return w.code
}
