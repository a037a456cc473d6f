package bytecode

import (
	"encoding/binary"

	"github.com/aerojs/aerojs-core/internal/rt/value"
	"github.com/aerojs/aerojs-core/pkg/errors"
)

// fixup records a pending jump target: a 4-byte placeholder at
// sourceOffset that needs to be overwritten with the resolved absolute
// offset of targetLabel once it is defined (spec §4.2).
type fixup struct {
	sourceOffset int
	targetLabel  int
}

// LabelID identifies a jump target before its absolute offset is known.
type LabelID int

// Encoder builds a Chunk incrementally: a byte buffer, a jump-fixup
// list, and a label→offset map, the way paserati's compiler emits
// opcodes directly into a Chunk and patches jump offsets after the
// fact (pkg/compiler's PatchJump-style helpers), generalized here into
// an explicit fixup list drained once at the end instead of being
// patched ad hoc at each call site.
type Encoder struct {
	chunk       *Chunk
	labelOffset map[LabelID]int
	fixups      []fixup
	nextLabel   LabelID
	line        int
}

// NewEncoder creates an encoder writing into a fresh Chunk.
func NewEncoder() *Encoder {
	return &Encoder{chunk: NewChunk(), labelOffset: map[LabelID]int{}}
}

// SetLine sets the source line attributed to subsequently emitted
// instructions.
func (e *Encoder) SetLine(line int) { e.line = line }

// NewLabel allocates a fresh, as-yet-unresolved label id.
func (e *Encoder) NewLabel() LabelID {
	e.nextLabel++
	return e.nextLabel
}

// DefineLabel binds label to the current write offset.
func (e *Encoder) DefineLabel(label LabelID) {
	e.labelOffset[label] = len(e.chunk.Code)
}

// Offset returns the current write offset.
func (e *Encoder) Offset() int { return len(e.chunk.Code) }

func (e *Encoder) writeByte(b byte)  { e.chunk.Code = append(e.chunk.Code, b) }
func (e *Encoder) writeU16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	e.chunk.Code = append(e.chunk.Code, buf[:]...)
}
func (e *Encoder) writeU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	e.chunk.Code = append(e.chunk.Code, buf[:]...)
}

// Emit writes op followed by its operands (register, u8, u16 or u32, in
// order, each at the width the opcode table gives) at the current
// offset, attributing it to the current line.
// Use EmitJump for instructions with a label operand.
func (e *Encoder) Emit(op Op, operands ...uint32) {
	shape, ok := Table[op]
	if !ok {
		panic("bytecode: unknown opcode in encoder: " + op.String())
	}
	e.chunk.Code = append(e.chunk.Code, byte(op))
	e.chunk.Lines = append(e.chunk.Lines, e.line)
	arity := shape.arity()
	for i := 0; i < arity; i++ {
		switch shape[i] {
		case OperandReg, OperandU8:
			e.writeByte(byte(operands[i]))
		case OperandU16:
			e.writeU16(uint16(operands[i]))
		case OperandU32:
			e.writeU32(operands[i])
		default:
			panic("bytecode: EmitJump required for an offset operand")
		}
	}
}

// EmitJump writes a jump-family opcode with a 4-byte placeholder for its
// label operand, recording a fixup to drain later. leadingOperands are
// any register operands preceding the label (e.g. JumpIfFalse's Rx).
func (e *Encoder) EmitJump(op Op, target LabelID, leadingOperands ...uint32) {
	shape := Table[op]
	e.chunk.Code = append(e.chunk.Code, byte(op))
	e.chunk.Lines = append(e.chunk.Lines, e.line)
	li := 0
	for _, t := range shape {
		if t == OperandNone {
			break
		}
		if t == OperandOffset {
			e.fixups = append(e.fixups, fixup{sourceOffset: len(e.chunk.Code), targetLabel: int(target)})
			e.writeU32(0)
			continue
		}
		e.writeByte(byte(leadingOperands[li]))
		li++
	}
}

// AddConstant interns a constant value and returns its pool index.
func (e *Encoder) AddConstant(v value.Value) uint16 { return e.chunk.AddConstant(v) }

// AddExceptionHandler appends a try-block handler entry.
func (e *Encoder) AddExceptionHandler(h ExceptionHandler) {
	e.chunk.ExceptionTable = append(e.chunk.ExceptionTable, h)
}

// Finish drains the fixup list, overwriting each pending placeholder
// with its label's resolved absolute offset, and returns the completed
// chunk. An unresolved label fails with InvalidBytecode (spec §4.2).
func (e *Encoder) Finish(strict bool, numParams, numLocals, maxRegs int) (*Chunk, error) {
	for _, f := range e.fixups {
		target, ok := e.labelOffset[LabelID(f.targetLabel)]
		if !ok {
			return nil, errors.New(errors.KindInvalidBytecode, errors.Position{}, "unresolved label %d", f.targetLabel)
		}
		binary.LittleEndian.PutUint32(e.chunk.Code[f.sourceOffset:f.sourceOffset+4], uint32(target))
	}
	e.chunk.Strict = strict
	e.chunk.NumParams = numParams
	e.chunk.NumLocals = numLocals
	e.chunk.MaxRegs = maxRegs
	return e.chunk, nil
}
