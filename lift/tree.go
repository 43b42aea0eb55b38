// Package lift implements the stack-to-tree lifter: a per-function
// abstract interpreter over the WebAssembly operand stack that
// materializes expressions lazily and evicts them to an ordered
// statement list whenever their effect must be sequenced.
package lift

import "github.com/wasmtools/wasmdecompile/wasm"

// Node is a tagged expression-tree node. Some variants are pure and may
// live on the operand stack (Literal, VarRef, BinOp, UnOp, Load,
// MemSize, Cast, Select); others are statement-only and never appear on
// the stack (Store, MemGrow, Call in statement position, Assign, Return,
// Block, Loop, IfElse, Branch, BranchTable, Unreachable).
type Node interface {
	isNode()
}

// Literal is a constant value pushed by a *.const instruction.
type Literal struct {
	Type  wasm.ValType
	Value any // int32, int64, float32, or float64
}

// VarRef names a value: a function argument, a declared local, or a
// fresh variable introduced by eviction. LocalIdx is set for nodes
// that read a local (arguments count as locals); GlobalIdx is set for
// nodes that read a global. Both are nil for eviction-introduced
// variables, which read nothing.
type VarRef struct {
	Name      string
	Type      wasm.ValType
	LocalIdx  *uint32
	GlobalIdx *uint32
}

// BinOp is a binary arithmetic, bitwise, or comparison operation. Type
// records the operands' shared value type; Signed distinguishes the
// seven integer ops (div/rem/shr, lt/gt/le/ge) Wasm defines separately
// for signed and unsigned interpretation.
type BinOp struct {
	Op     string
	Type   wasm.ValType
	Signed bool
	Left   Node
	Right  Node
}

// UnOp is a unary numeric operation (clz, ctz, popcnt, neg, abs, the
// float rounding family, eqz, or a sign-extension op).
type UnOp struct {
	Op      string
	Type    wasm.ValType
	Signed  bool
	Operand Node
}

// Load reads Bits bits from linear memory at Base+Offset, optionally
// sign-extending a narrower-than-Type load.
type Load struct {
	Type       wasm.ValType
	Bits       int
	SignExtend bool
	Align      uint32
	Offset     uint64
	Base       Node
}

// Store writes Value's low Bits bits to linear memory at Base+Offset.
// Statement-only.
type Store struct {
	Type   wasm.ValType
	Bits   int
	Align  uint32
	Offset uint64
	Base   Node
	Value  Node
}

// Cast converts From to To: a wrap, extend, truncation, conversion,
// promotion, demotion, or bit-preserving reinterpretation, per Kind.
type Cast struct {
	Kind   string
	To     wasm.ValType
	From   Node
	Signed bool
}

// Call invokes Callee (nil for a direct call; an index-computing
// expression for call_indirect) against Type, binding each of Results
// on return. Statement-only: evicted immediately after the call.
type Call struct {
	Direct  bool
	FuncIdx uint32
	Callee  Node
	Type    wasm.FuncType
	Args    []Node
	Results []*VarRef
}

// MemSize represents memory.size.
type MemSize struct{}

// MemGrow represents memory.grow. Statement-only: growth is a side
// effect sequenced like a store.
type MemGrow struct {
	Delta  Node
	Result *VarRef
}

// Select picks True or False based on Cond, Wasm's single value-select
// instruction (no typed-select extension).
type Select struct {
	Cond  Node
	True  Node
	False Node
	Type  wasm.ValType
}

// Assign binds Value to Target. Statement-only.
type Assign struct {
	Target *VarRef
	Value  Node
}

// Return evicts the function's result values. Statement-only.
type Return struct {
	Values []Node
}

// Block is a structured region with no back-edge. Statement-only.
type Block struct {
	Results []*VarRef
	Body    []Node
}

// Loop is a structured region whose start is a branch target.
// Statement-only.
type Loop struct {
	Results []*VarRef
	Body    []Node
}

// IfElse is a structured two-armed conditional; Else is nil when the
// source had no else arm. Statement-only.
type IfElse struct {
	Cond    Node
	Then    []Node
	Else    []Node
	Results []*VarRef
}

// Branch is a br or br_if. Depth is the absolute nesting depth of the
// targeted context (its label is rendered as label_<Depth>), already
// resolved from the instruction's relative label index. Cond is nil for
// an unconditional br.
type Branch struct {
	Depth uint32
	Cond  Node
}

// BranchTable is a br_table. Labels and Default are resolved absolute
// depths, as for Branch.Depth.
type BranchTable struct {
	Index   Node
	Labels  []uint32
	Default uint32
}

// Unreachable marks an unreachable trap point. Statement-only.
type Unreachable struct{}

func (*Literal) isNode()     {}
func (*VarRef) isNode()      {}
func (*BinOp) isNode()       {}
func (*UnOp) isNode()        {}
func (*Load) isNode()        {}
func (*Store) isNode()       {}
func (*Cast) isNode()        {}
func (*Call) isNode()        {}
func (*MemSize) isNode()     {}
func (*MemGrow) isNode()     {}
func (*Select) isNode()      {}
func (*Assign) isNode()      {}
func (*Return) isNode()      {}
func (*Block) isNode()       {}
func (*Loop) isNode()        {}
func (*IfElse) isNode()      {}
func (*Branch) isNode()      {}
func (*BranchTable) isNode() {}
func (*Unreachable) isNode() {}
