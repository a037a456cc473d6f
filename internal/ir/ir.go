// Package ir implements the SSA-lite intermediate representation from
// spec §3/§4.3-§4.6: an ordered list of basic blocks per function, each
// instruction carrying an opcode, a typed virtual-register result, typed
// operands, and a source-position annotation.
//
// Grounded on original_source/src/core/jit/ir/ir_builder.{h,cpp} for the
// opcode/type enumerations and two-pass construction algorithm, and on
// spec §9 Design Notes "Arenas for IR": instructions, blocks, and values
// belonging to one IRFunction live in that function's own slices
// (arenas) addressed by integer index, matching paserati's
// pkg/compiler.SymbolTable-style struct-of-slices rather than a
// pointer-per-node graph (original_source builds a raw std::shared_ptr
// graph; this module never does).
package ir

import "github.com/aerojs/aerojs-core/pkg/errors"

// Opcode is the IR-level operation. It is a superset of the bytecode
// opcode set in shape (spec §3's CFG-and-phi structure has no bytecode
// analog for Phi/Guard) but is translated 1:1 from bytecode ops that
// exist on both sides (see builder.go).
type Opcode uint8

const (
	OpNoOp Opcode = iota
	OpPhi

	OpConst
	OpLoadLocal
	OpStoreLocal
	OpLoadGlobal
	OpStoreGlobal
	OpLoadProp
	OpStoreProp
	OpLoadElement
	OpStoreElement

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShl
	OpShr
	OpUShr

	OpEqual
	OpNotEqual
	OpStrictEqual
	OpStrictNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual

	OpCall
	OpCallMethod
	OpMakeArray
	OpMakeObject
	OpTypeof
	OpToNumber
	OpInstanceof

	OpJump
	OpBranch
	OpReturn
	OpThrow

	// OpGuard is a tracing-JIT-only pseudo-instruction (spec §4.9):
	// asserts a runtime condition and side-exits when it fails.
	OpGuard
)

// Type is the 19-element ValueType lattice the type analyzer (§4.5)
// reasons over. widenPriority in typeanalyzer.go lists its own order
// explicitly rather than relying on the declaration order here.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeInt32
	TypeInt64
	TypeFloat64
	TypeNumber // int32|int64|float64, not yet narrowed
	TypeString
	TypeBoolean
	TypeBigInt
	TypeSymbol
	TypeObject
	TypeArray
	TypeFunction
	TypeRegExp
	TypeDate
	TypeMap
	TypeSet
	TypeNull
	TypeUndefined
	TypeAny
)

// RegisterClass groups virtual registers by the physical storage kind
// they need (spec §3 "Virtual register").
type RegisterClass uint8

const (
	ClassInt32 RegisterClass = iota
	ClassInt64
	ClassFloat32
	ClassFloat64
	ClassVector
)

// VReg is a dense virtual register id, unique within one IRFunction.
type VReg uint32

// OperandKind discriminates an instruction operand's storage.
type OperandKind uint8

const (
	OperandVReg OperandKind = iota
	OperandImmediate
	OperandLabel
	OperandMemory
)

// Operand is one typed operand of an instruction.
type Operand struct {
	Kind  OperandKind
	VReg  VReg
	Imm   int64
	Label BlockID
	// Memory addresses a constant-pool slot, global slot, or property
	// name index depending on the owning opcode.
	Memory uint32
}

func RegOperand(r VReg) Operand        { return Operand{Kind: OperandVReg, VReg: r} }
func ImmOperand(v int64) Operand       { return Operand{Kind: OperandImmediate, Imm: v} }
func LabelOperand(b BlockID) Operand   { return Operand{Kind: OperandLabel, Label: b} }
func MemoryOperand(idx uint32) Operand { return Operand{Kind: OperandMemory, Memory: idx} }

// Pos is a lightweight source position annotation threaded from the
// bytecode's line table.
type Pos struct {
	Line int
}

// Instr is one IR instruction, living at a fixed index inside its
// owning IRFunction.Instrs arena.
type Instr struct {
	Op       Opcode
	Result   VReg  // left at 0 (not VRegNone) when the instruction has no result; see HasResult
	HasResult bool
	Type     Type
	Operands []Operand
	Pos      Pos
}

// VRegNone marks "no result register".
const VRegNone VReg = 0xFFFFFFFF

// BlockID indexes into IRFunction.Blocks.
type BlockID int32

// NoBlock marks the absence of a block reference.
const NoBlock BlockID = -1

// PhiOperand is one incoming edge of a phi: the predecessor block it
// comes from and the reaching-definition register from that edge.
type PhiOperand struct {
	Pred BlockID
	Src  VReg
}

// Phi is a phi node at the head of a merge block (spec §3: "a set of
// phi values at the head").
type Phi struct {
	Result   VReg
	Type     Type
	Incoming []PhiOperand
}

// Block is one basic block: instruction indices into the owning
// function's Instrs arena, predecessor/successor block ids, and the
// phi set at its head.
type Block struct {
	ID           BlockID
	Instrs       []int // indices into Function.Instrs
	Preds, Succs []BlockID
	Phis         []Phi
	IsLoopHeader bool
	IsHandler    bool
}

// Function is one compiled function's IR: an arena of instructions and
// an ordered list of blocks referencing them by index (spec §9 Design
// Notes "Arenas for IR" — dropped atomically at the end of compilation
// simply by letting the Function go out of scope, since nothing outside
// it holds a pointer into the arena).
type Function struct {
	Name    string
	Params  []VReg
	Blocks  []Block
	Instrs  []Instr
	Entry   BlockID
	nextReg VReg
}

// NewFunction creates an empty function with a fresh register counter.
func NewFunction(name string) *Function {
	return &Function{Name: name, Entry: NoBlock}
}

// NewReg allocates a fresh virtual register.
func (f *Function) NewReg() VReg {
	r := f.nextReg
	f.nextReg++
	return r
}

// AddBlock appends a new, empty block and returns its id.
func (f *Function) AddBlock() BlockID {
	id := BlockID(len(f.Blocks))
	f.Blocks = append(f.Blocks, Block{ID: id})
	return id
}

// AddInstr appends instr to the function's arena and records its index
// in block's instruction list.
func (f *Function) AddInstr(block BlockID, instr Instr) int {
	idx := len(f.Instrs)
	f.Instrs = append(f.Instrs, instr)
	f.Blocks[block].Instrs = append(f.Blocks[block].Instrs, idx)
	return idx
}

// Instr returns the instruction at arena index idx.
func (f *Function) Instr(idx int) *Instr { return &f.Instrs[idx] }

// Block returns the block with the given id.
func (f *Function) Block(id BlockID) *Block { return &f.Blocks[id] }

func (f *Function) addSucc(from, to BlockID) {
	f.Blocks[from].Succs = append(f.Blocks[from].Succs, to)
	f.Blocks[to].Preds = append(f.Blocks[to].Preds, from)
}

// ErrMissingTerminator is a ready-made InvalidBytecode error for a block
// with no terminator. Nothing in this module returns it; Validate
// reports a missing terminator as a MissingTerminator ValidationError.
var ErrMissingTerminator = errors.New(errors.KindInvalidBytecode, errors.Position{}, "block has no terminator")
