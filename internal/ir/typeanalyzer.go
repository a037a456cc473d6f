package ir

// TypeInfo is the per-register abstract value the analyzer tracks
// (spec §4.5): a primary type, a bitset over every Type the register
// might hold at this program point, and an optional known constant.
type TypeInfo struct {
	Primary  Type
	Mask     uint32 // bit i set means Type(i) is possible
	HasConst bool
	Const    int64
}

func maskOf(t Type) uint32 { return 1 << uint(t) }

func (ti TypeInfo) withType(t Type) TypeInfo {
	return TypeInfo{Primary: t, Mask: maskOf(t)}
}

// widenPriority orders types from most to least specific for the join
// operator's tie-break rule (spec §4.5: "the mask's highest-priority bit
// (integer > number > string > boolean > object subtypes > null >
// undefined)").
var widenPriority = []Type{
	TypeInt32, TypeInt64, TypeFloat64, TypeNumber, TypeString, TypeBoolean,
	TypeBigInt, TypeSymbol, TypeArray, TypeFunction, TypeRegExp, TypeDate,
	TypeMap, TypeSet, TypeObject, TypeNull, TypeUndefined, TypeAny,
}

func highestPriority(mask uint32) Type {
	for _, t := range widenPriority {
		if mask&maskOf(t) != 0 {
			return t
		}
	}
	return TypeUnknown
}

// join implements the per-register join over predecessor TypeInfos: the
// union of possible-type masks, with the primary type resolved by
// subtype specificity, falling back to the mask's highest-priority bit.
func join(a, b TypeInfo) TypeInfo {
	merged := TypeInfo{Mask: a.Mask | b.Mask}
	switch {
	case a.Primary == b.Primary:
		merged.Primary = a.Primary
		if a.HasConst && b.HasConst && a.Const == b.Const {
			merged.HasConst, merged.Const = true, a.Const
		}
	case isSubtype(a.Primary, b.Primary):
		merged.Primary = b.Primary
	case isSubtype(b.Primary, a.Primary):
		merged.Primary = a.Primary
	default:
		merged.Primary = highestPriority(merged.Mask)
	}
	return merged
}

func isSubtype(a, b Type) bool {
	if a == TypeInt32 && (b == TypeInt64 || b == TypeFloat64 || b == TypeNumber) {
		return true
	}
	if a == TypeInt64 && (b == TypeFloat64 || b == TypeNumber) {
		return true
	}
	return false
}

// FunctionTypes holds one TypeInfo per block per virtual register, the
// analyzer's complete fixed-point result.
type FunctionTypes struct {
	PerBlock []map[VReg]TypeInfo
}

// AnalyzerConfig bounds the fixed-point iteration (spec §4.5:
// "capped at a configurable iteration ceiling").
type AnalyzerConfig struct {
	MaxIterations int
}

func DefaultAnalyzerConfig() AnalyzerConfig { return AnalyzerConfig{MaxIterations: 50} }

// Analyze runs the forward dataflow type analysis from spec §4.5 to a
// fixed point (or the configured iteration ceiling, beyond which
// remaining registers widen to Any).
func Analyze(fn *Function, cfg AnalyzerConfig) FunctionTypes {
	result := FunctionTypes{PerBlock: make([]map[VReg]TypeInfo, len(fn.Blocks))}
	for i := range result.PerBlock {
		result.PerBlock[i] = make(map[VReg]TypeInfo)
	}

	converged := false
	for iter := 0; iter < cfg.MaxIterations && !converged; iter++ {
		converged = true
		for bi := range fn.Blocks {
			b := &fn.Blocks[bi]
			in := joinPredecessors(fn, result, b)

			for _, phi := range b.Phis {
				prev := in[phi.Result]
				next := transferPhi(in, phi)
				if next != prev {
					in[phi.Result] = next
					converged = false
				}
			}

			for _, idx := range b.Instrs {
				instr := fn.Instr(idx)
				if !instr.HasResult {
					continue
				}
				prev := in[instr.Result]
				next := transfer(fn, in, instr)
				if next.Primary != prev.Primary || next.Mask != prev.Mask {
					converged = false
				}
				in[instr.Result] = next
			}

			if changed := !mapsEqual(result.PerBlock[bi], in); changed {
				converged = false
			}
			result.PerBlock[bi] = in
		}
	}

	if !converged {
		for _, m := range result.PerBlock {
			for reg := range m {
				m[reg] = TypeInfo{Primary: TypeAny, Mask: maskOf(TypeAny)}
			}
		}
	}

	return result
}

func mapsEqual(a, b map[VReg]TypeInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if ov, ok := b[k]; !ok || ov.Primary != v.Primary || ov.Mask != v.Mask {
			return false
		}
	}
	return true
}

func joinPredecessors(fn *Function, result FunctionTypes, b *Block) map[VReg]TypeInfo {
	out := make(map[VReg]TypeInfo)
	for _, pred := range b.Preds {
		for reg, ti := range result.PerBlock[pred] {
			if existing, ok := out[reg]; ok {
				out[reg] = join(existing, ti)
			} else {
				out[reg] = ti
			}
		}
	}
	return out
}

func transferPhi(in map[VReg]TypeInfo, phi Phi) TypeInfo {
	var acc TypeInfo
	first := true
	for _, op := range phi.Incoming {
		ti := in[op.Src]
		if first {
			acc = ti
			first = false
			continue
		}
		acc = join(acc, ti)
	}
	return acc
}

// transfer implements the opcode-directed transfer function (spec
// §4.5): LoadConst narrows to the constant's exact type; arithmetic
// promotes per ECMAScript; comparisons produce boolean; everything else
// widens to Any.
func transfer(fn *Function, in map[VReg]TypeInfo, instr *Instr) TypeInfo {
	switch instr.Op {
	case OpConst:
		return TypeInfo{Primary: instr.Type, Mask: maskOf(instr.Type)}
	case OpAdd:
		l, r := operandType(in, instr.Operands[0]), operandType(in, instr.Operands[1])
		if l.Primary == TypeString || r.Primary == TypeString {
			return TypeInfo{}.withType(TypeString)
		}
		if l.Primary == TypeInt32 && r.Primary == TypeInt32 {
			return TypeInfo{}.withType(TypeInt32)
		}
		return TypeInfo{}.withType(TypeNumber)
	case OpSub, OpMul, OpMod, OpPow, OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr, OpUShr, OpNeg, OpBitNot:
		if allInt32(in, instr.Operands) {
			return TypeInfo{}.withType(TypeInt32)
		}
		return TypeInfo{}.withType(TypeNumber)
	case OpDiv:
		return TypeInfo{}.withType(TypeNumber)
	case OpEqual, OpNotEqual, OpStrictEqual, OpStrictNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpInstanceof:
		return TypeInfo{}.withType(TypeBoolean)
	case OpTypeof:
		return TypeInfo{}.withType(TypeString)
	case OpLoadProp, OpLoadElement, OpCall, OpCallMethod:
		return TypeInfo{}.withType(TypeAny)
	default:
		return TypeInfo{}.withType(TypeAny)
	}
}

func operandType(in map[VReg]TypeInfo, op Operand) TypeInfo {
	if op.Kind != OperandVReg {
		return TypeInfo{}.withType(TypeAny)
	}
	return in[op.VReg]
}

func allInt32(in map[VReg]TypeInfo, ops []Operand) bool {
	for _, op := range ops {
		if operandType(in, op).Primary != TypeInt32 {
			return false
		}
	}
	return len(ops) > 0
}
