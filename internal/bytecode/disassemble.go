package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders chunk as human-readable text, table-driven off
// the opcode operand shapes rather than paserati's ~25 per-shape
// disassembleInstruction helper methods.
func Disassemble(c *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	d := NewDecoder(c.Code)
	for !d.Done() {
		instr, err := d.Next()
		if err != nil {
			fmt.Fprintf(&b, "%04d  <error: %s>\n", d.Tell(), err)
			break
		}
		fmt.Fprintf(&b, "%04d  %-16s", instr.Offset, instr.Op)
		for i := 0; i < instr.Arity; i++ {
			fmt.Fprintf(&b, " %d", instr.Operands[i])
		}
		fmt.Fprintln(&b)
	}
	if len(c.ExceptionTable) > 0 {
		fmt.Fprintln(&b, "-- exception table --")
		for i, h := range c.ExceptionTable {
			fmt.Fprintf(&b, "%d: try=[%d,%d) handler=%d finally=%t\n", i, h.TryStart, h.TryEnd, h.HandlerPC, h.IsFinally)
		}
	}
	return b.String()
}
