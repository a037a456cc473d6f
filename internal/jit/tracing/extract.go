package tracing

import "github.com/aerojs/aerojs-core/internal/ir"

// loopRange finds the body of the structured loop headed by header,
// matching internal/ir/optimize/licm.go's unexported loopShape exactly:
// the loop body is the contiguous block-id range [header, backEdgeSrc]
// where backEdgeSrc is the highest-numbered predecessor that reaches
// back into the header, valid for the structured for/while loops the
// bytecode compiler emits. loopShape can't be called directly since
// it's unexported to internal/ir/optimize, so this is reimplemented
// rather than duplicated blindly: same algorithm, this package's own
// copy.
func loopRange(fn *ir.Function, header ir.BlockID) (body []ir.BlockID, preheader ir.BlockID, ok bool) {
	h := fn.Block(header)
	backEdgeSrc := ir.NoBlock
	preheaderCount := 0

	for _, p := range h.Preds {
		if p >= header {
			if p > backEdgeSrc {
				backEdgeSrc = p
			}
		} else {
			preheader = p
			preheaderCount++
		}
	}

	if backEdgeSrc == ir.NoBlock || preheaderCount != 1 {
		return nil, ir.NoBlock, false
	}

	for id := header; id <= backEdgeSrc; id++ {
		body = append(body, id)
	}
	return body, preheader, true
}

// firstLoopHeader returns the lowest-numbered loop header block in fn,
// the trace recorder's entry point: spec §4.9 records one loop's body
// per trace attempt, so the first header found is the one traced.
func firstLoopHeader(fn *ir.Function) (ir.BlockID, bool) {
	for i := range fn.Blocks {
		if fn.Blocks[i].IsLoopHeader {
			return fn.Blocks[i].ID, true
		}
	}
	return ir.NoBlock, false
}
