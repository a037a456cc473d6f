package bytecode

import (
	"github.com/aerojs/aerojs-core/internal/rt/value"
)

// ExceptionHandler covers a try-block's byte range, grounded on
// paserati's vm.ExceptionHandler.
type ExceptionHandler struct {
	TryStart   uint32
	TryEnd     uint32
	HandlerPC  uint32
	IsFinally  bool
	FinallyReg uint8
}

// Chunk is one function's bytecode block: its code stream, constant
// pool, line table, exception table, and layout metadata (spec §3:
// "records its strictness, local-variable count, parameter count,
// constant pool references, and try-block exception table").
type Chunk struct {
	Code      []byte
	Constants []value.Value
	Lines     []int

	ExceptionTable []ExceptionHandler

	Strict     bool
	NumLocals  int
	NumParams  int
	MaxRegs    int
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Line returns the source line recorded for the instruction starting at
// offset, or 0 if offset is out of range.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// AddConstant interns v into the constant pool (deduplicating by bit
// pattern for primitives) and returns its 16-bit index.
func (c *Chunk) AddConstant(v value.Value) uint16 {
	for i, existing := range c.Constants {
		if existing.Bits() == v.Bits() {
			return uint16(i)
		}
	}
	c.Constants = append(c.Constants, v)
	return uint16(len(c.Constants) - 1)
}
