package bytecode

import (
	"encoding/binary"

	"github.com/aerojs/aerojs-core/pkg/errors"
)

// Instruction is one decoded instruction: its opcode, the byte offset
// it started at, and its operands widened to uint32 regardless of their
// encoded width.
type Instruction struct {
	Op       Op
	Offset   int
	Operands [4]uint32
	Arity    int
}

// Decoder reads instructions one at a time from a Chunk's code stream
// (spec §4.2): it looks up the operand shape from the opcode table and
// reads each operand by its encoded width, failing with Truncated or
// InvalidOpcode as appropriate. Seek/Tell let consumers replay from a
// known offset, the way paserati's disassembler walks the same Code
// slice with an explicit offset cursor instead of an io.Reader.
type Decoder struct {
	code []byte
	pos  int
}

// NewDecoder creates a decoder over code starting at offset 0.
func NewDecoder(code []byte) *Decoder {
	return &Decoder{code: code}
}

// Tell returns the current read offset.
func (d *Decoder) Tell() int { return d.pos }

// Seek moves the read cursor to offset.
func (d *Decoder) Seek(offset int) { d.pos = offset }

// Done reports whether the stream is fully consumed.
func (d *Decoder) Done() bool { return d.pos >= len(d.code) }

// Next decodes the instruction at the current offset and advances past
// it.
func (d *Decoder) Next() (Instruction, error) {
	start := d.pos
	if d.pos >= len(d.code) {
		return Instruction{}, errors.New(errors.KindTruncated, errors.Position{}, "no more instructions at offset %d", start)
	}
	op := Op(d.code[d.pos])
	shape, ok := Table[op]
	if !ok {
		return Instruction{}, errors.New(errors.KindInvalidOpcode, errors.Position{}, "invalid opcode 0x%02x at offset %d", d.code[d.pos], start)
	}
	d.pos++

	var instr Instruction
	instr.Op = op
	instr.Offset = start
	instr.Arity = shape.arity()

	for i := 0; i < instr.Arity; i++ {
		width := shape[i].Width()
		if d.pos+width > len(d.code) {
			return Instruction{}, errors.New(errors.KindTruncated, errors.Position{}, "truncated operand for %s at offset %d", op, start)
		}
		switch shape[i] {
		case OperandReg, OperandU8:
			instr.Operands[i] = uint32(d.code[d.pos])
		case OperandU16:
			instr.Operands[i] = uint32(binary.LittleEndian.Uint16(d.code[d.pos : d.pos+2]))
		case OperandU32, OperandOffset:
			instr.Operands[i] = binary.LittleEndian.Uint32(d.code[d.pos : d.pos+4])
		}
		d.pos += width
	}
	return instr, nil
}

// DecodeAll decodes every instruction in code, stopping at the first
// decode error (InvalidOpcode/Truncated are both hard failures here —
// callers that want to collect warnings instead use the validator,
// spec §4.4).
func DecodeAll(code []byte) ([]Instruction, error) {
	d := NewDecoder(code)
	var out []Instruction
	for !d.Done() {
		instr, err := d.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
	}
	return out, nil
}
