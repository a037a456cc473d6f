package optimize

import (
	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/ir"
)

// PropagateCopies implements original_source's RunCopyPropagation: a phi
// every one of whose incoming edges carries the same source register
// is not really a merge at all (every predecessor reaches the block
// holding the same value already), so its result is just an alias for
// that register. Every use of the phi's result is rewritten to the
// shared source and the phi is dropped.
func PropagateCopies(fn *ir.Function, _ *bytecode.Chunk) bool {
	changed := false

	for bi := range fn.Blocks {
		b := &fn.Blocks[bi]
		kept := b.Phis[:0]
		for _, phi := range b.Phis {
			src, ok := trivialSource(phi)
			if !ok {
				kept = append(kept, phi)
				continue
			}
			rewriteOperands(fn, phi.Result, src)
			changed = true
		}
		b.Phis = kept
	}

	return changed
}

func trivialSource(phi ir.Phi) (ir.VReg, bool) {
	if len(phi.Incoming) == 0 {
		return 0, false
	}
	first := phi.Incoming[0].Src
	for _, inc := range phi.Incoming[1:] {
		if inc.Src != first {
			return 0, false
		}
	}
	return first, true
}
