package lift

import "github.com/wasmtools/wasmdecompile/wasm"

// opKind classifies how a numeric opcode's operands and result line up,
// so the walker can build the right node shape from one table lookup
// instead of a giant switch per instruction family.
type opKind int

const (
	kindUnary opKind = iota
	kindBinary
	kindCompare // binary, but Type records the operand type and the node's own result is always i32
	kindConvert // Cast: From's type differs from To
)

// numOp describes one numeric opcode: what kind of node it builds, the
// mnemonic to carry on that node, the operand value type, and whether
// the operation distinguishes signed/unsigned interpretation.
type numOp struct {
	kind   opKind
	name   string
	typ    wasm.ValType
	signed bool
	to     wasm.ValType // kindConvert only
}

// numericOps maps every MVP numeric opcode to its lifting shape. Built
// once; the walker looks up by wasm.Instruction.Opcode.
var numericOps = map[byte]numOp{
	wasm.OpI32Eqz: {kindUnary, "eqz", wasm.ValI32, false, 0},
	wasm.OpI32Eq:  {kindCompare, "eq", wasm.ValI32, false, 0},
	wasm.OpI32Ne:  {kindCompare, "ne", wasm.ValI32, false, 0},
	wasm.OpI32LtS: {kindCompare, "lt", wasm.ValI32, true, 0},
	wasm.OpI32LtU: {kindCompare, "lt", wasm.ValI32, false, 0},
	wasm.OpI32GtS: {kindCompare, "gt", wasm.ValI32, true, 0},
	wasm.OpI32GtU: {kindCompare, "gt", wasm.ValI32, false, 0},
	wasm.OpI32LeS: {kindCompare, "le", wasm.ValI32, true, 0},
	wasm.OpI32LeU: {kindCompare, "le", wasm.ValI32, false, 0},
	wasm.OpI32GeS: {kindCompare, "ge", wasm.ValI32, true, 0},
	wasm.OpI32GeU: {kindCompare, "ge", wasm.ValI32, false, 0},

	wasm.OpI64Eqz: {kindUnary, "eqz", wasm.ValI64, false, 0},
	wasm.OpI64Eq:  {kindCompare, "eq", wasm.ValI64, false, 0},
	wasm.OpI64Ne:  {kindCompare, "ne", wasm.ValI64, false, 0},
	wasm.OpI64LtS: {kindCompare, "lt", wasm.ValI64, true, 0},
	wasm.OpI64LtU: {kindCompare, "lt", wasm.ValI64, false, 0},
	wasm.OpI64GtS: {kindCompare, "gt", wasm.ValI64, true, 0},
	wasm.OpI64GtU: {kindCompare, "gt", wasm.ValI64, false, 0},
	wasm.OpI64LeS: {kindCompare, "le", wasm.ValI64, true, 0},
	wasm.OpI64LeU: {kindCompare, "le", wasm.ValI64, false, 0},
	wasm.OpI64GeS: {kindCompare, "ge", wasm.ValI64, true, 0},
	wasm.OpI64GeU: {kindCompare, "ge", wasm.ValI64, false, 0},

	wasm.OpF32Eq: {kindCompare, "eq", wasm.ValF32, false, 0},
	wasm.OpF32Ne: {kindCompare, "ne", wasm.ValF32, false, 0},
	wasm.OpF32Lt: {kindCompare, "lt", wasm.ValF32, false, 0},
	wasm.OpF32Gt: {kindCompare, "gt", wasm.ValF32, false, 0},
	wasm.OpF32Le: {kindCompare, "le", wasm.ValF32, false, 0},
	wasm.OpF32Ge: {kindCompare, "ge", wasm.ValF32, false, 0},

	wasm.OpF64Eq: {kindCompare, "eq", wasm.ValF64, false, 0},
	wasm.OpF64Ne: {kindCompare, "ne", wasm.ValF64, false, 0},
	wasm.OpF64Lt: {kindCompare, "lt", wasm.ValF64, false, 0},
	wasm.OpF64Gt: {kindCompare, "gt", wasm.ValF64, false, 0},
	wasm.OpF64Le: {kindCompare, "le", wasm.ValF64, false, 0},
	wasm.OpF64Ge: {kindCompare, "ge", wasm.ValF64, false, 0},

	wasm.OpI32Clz:    {kindUnary, "clz", wasm.ValI32, false, 0},
	wasm.OpI32Ctz:    {kindUnary, "ctz", wasm.ValI32, false, 0},
	wasm.OpI32Popcnt: {kindUnary, "popcnt", wasm.ValI32, false, 0},
	wasm.OpI32Add:    {kindBinary, "add", wasm.ValI32, false, 0},
	wasm.OpI32Sub:    {kindBinary, "sub", wasm.ValI32, false, 0},
	wasm.OpI32Mul:    {kindBinary, "mul", wasm.ValI32, false, 0},
	wasm.OpI32DivS:   {kindBinary, "div", wasm.ValI32, true, 0},
	wasm.OpI32DivU:   {kindBinary, "div", wasm.ValI32, false, 0},
	wasm.OpI32RemS:   {kindBinary, "rem", wasm.ValI32, true, 0},
	wasm.OpI32RemU:   {kindBinary, "rem", wasm.ValI32, false, 0},
	wasm.OpI32And:    {kindBinary, "and", wasm.ValI32, false, 0},
	wasm.OpI32Or:     {kindBinary, "or", wasm.ValI32, false, 0},
	wasm.OpI32Xor:    {kindBinary, "xor", wasm.ValI32, false, 0},
	wasm.OpI32Shl:    {kindBinary, "shl", wasm.ValI32, false, 0},
	wasm.OpI32ShrS:   {kindBinary, "shr", wasm.ValI32, true, 0},
	wasm.OpI32ShrU:   {kindBinary, "shr", wasm.ValI32, false, 0},
	wasm.OpI32Rotl:   {kindBinary, "rotl", wasm.ValI32, false, 0},
	wasm.OpI32Rotr:   {kindBinary, "rotr", wasm.ValI32, false, 0},

	wasm.OpI64Clz:    {kindUnary, "clz", wasm.ValI64, false, 0},
	wasm.OpI64Ctz:    {kindUnary, "ctz", wasm.ValI64, false, 0},
	wasm.OpI64Popcnt: {kindUnary, "popcnt", wasm.ValI64, false, 0},
	wasm.OpI64Add:    {kindBinary, "add", wasm.ValI64, false, 0},
	wasm.OpI64Sub:    {kindBinary, "sub", wasm.ValI64, false, 0},
	wasm.OpI64Mul:    {kindBinary, "mul", wasm.ValI64, false, 0},
	wasm.OpI64DivS:   {kindBinary, "div", wasm.ValI64, true, 0},
	wasm.OpI64DivU:   {kindBinary, "div", wasm.ValI64, false, 0},
	wasm.OpI64RemS:   {kindBinary, "rem", wasm.ValI64, true, 0},
	wasm.OpI64RemU:   {kindBinary, "rem", wasm.ValI64, false, 0},
	wasm.OpI64And:    {kindBinary, "and", wasm.ValI64, false, 0},
	wasm.OpI64Or:     {kindBinary, "or", wasm.ValI64, false, 0},
	wasm.OpI64Xor:    {kindBinary, "xor", wasm.ValI64, false, 0},
	wasm.OpI64Shl:    {kindBinary, "shl", wasm.ValI64, false, 0},
	wasm.OpI64ShrS:   {kindBinary, "shr", wasm.ValI64, true, 0},
	wasm.OpI64ShrU:   {kindBinary, "shr", wasm.ValI64, false, 0},
	wasm.OpI64Rotl:   {kindBinary, "rotl", wasm.ValI64, false, 0},
	wasm.OpI64Rotr:   {kindBinary, "rotr", wasm.ValI64, false, 0},

	wasm.OpF32Abs:      {kindUnary, "abs", wasm.ValF32, false, 0},
	wasm.OpF32Neg:      {kindUnary, "neg", wasm.ValF32, false, 0},
	wasm.OpF32Ceil:     {kindUnary, "ceil", wasm.ValF32, false, 0},
	wasm.OpF32Floor:    {kindUnary, "floor", wasm.ValF32, false, 0},
	wasm.OpF32Trunc:    {kindUnary, "trunc", wasm.ValF32, false, 0},
	wasm.OpF32Nearest:  {kindUnary, "nearest", wasm.ValF32, false, 0},
	wasm.OpF32Sqrt:     {kindUnary, "sqrt", wasm.ValF32, false, 0},
	wasm.OpF32Add:      {kindBinary, "add", wasm.ValF32, false, 0},
	wasm.OpF32Sub:      {kindBinary, "sub", wasm.ValF32, false, 0},
	wasm.OpF32Mul:      {kindBinary, "mul", wasm.ValF32, false, 0},
	wasm.OpF32Div:      {kindBinary, "div", wasm.ValF32, false, 0},
	wasm.OpF32Min:      {kindBinary, "min", wasm.ValF32, false, 0},
	wasm.OpF32Max:      {kindBinary, "max", wasm.ValF32, false, 0},
	wasm.OpF32Copysign: {kindBinary, "copysign", wasm.ValF32, false, 0},

	wasm.OpF64Abs:      {kindUnary, "abs", wasm.ValF64, false, 0},
	wasm.OpF64Neg:      {kindUnary, "neg", wasm.ValF64, false, 0},
	wasm.OpF64Ceil:     {kindUnary, "ceil", wasm.ValF64, false, 0},
	wasm.OpF64Floor:    {kindUnary, "floor", wasm.ValF64, false, 0},
	wasm.OpF64Trunc:    {kindUnary, "trunc", wasm.ValF64, false, 0},
	wasm.OpF64Nearest:  {kindUnary, "nearest", wasm.ValF64, false, 0},
	wasm.OpF64Sqrt:     {kindUnary, "sqrt", wasm.ValF64, false, 0},
	wasm.OpF64Add:      {kindBinary, "add", wasm.ValF64, false, 0},
	wasm.OpF64Sub:      {kindBinary, "sub", wasm.ValF64, false, 0},
	wasm.OpF64Mul:      {kindBinary, "mul", wasm.ValF64, false, 0},
	wasm.OpF64Div:      {kindBinary, "div", wasm.ValF64, false, 0},
	wasm.OpF64Min:      {kindBinary, "min", wasm.ValF64, false, 0},
	wasm.OpF64Max:      {kindBinary, "max", wasm.ValF64, false, 0},
	wasm.OpF64Copysign: {kindBinary, "copysign", wasm.ValF64, false, 0},

	wasm.OpI32WrapI64:        {kindConvert, "wrap", wasm.ValI64, false, wasm.ValI32},
	wasm.OpI32TruncF32S:      {kindConvert, "trunc", wasm.ValF32, true, wasm.ValI32},
	wasm.OpI32TruncF32U:      {kindConvert, "trunc", wasm.ValF32, false, wasm.ValI32},
	wasm.OpI32TruncF64S:      {kindConvert, "trunc", wasm.ValF64, true, wasm.ValI32},
	wasm.OpI32TruncF64U:      {kindConvert, "trunc", wasm.ValF64, false, wasm.ValI32},
	wasm.OpI64ExtendI32S:     {kindConvert, "extend", wasm.ValI32, true, wasm.ValI64},
	wasm.OpI64ExtendI32U:     {kindConvert, "extend", wasm.ValI32, false, wasm.ValI64},
	wasm.OpI64TruncF32S:      {kindConvert, "trunc", wasm.ValF32, true, wasm.ValI64},
	wasm.OpI64TruncF32U:      {kindConvert, "trunc", wasm.ValF32, false, wasm.ValI64},
	wasm.OpI64TruncF64S:      {kindConvert, "trunc", wasm.ValF64, true, wasm.ValI64},
	wasm.OpI64TruncF64U:      {kindConvert, "trunc", wasm.ValF64, false, wasm.ValI64},
	wasm.OpF32ConvertI32S:    {kindConvert, "convert", wasm.ValI32, true, wasm.ValF32},
	wasm.OpF32ConvertI32U:    {kindConvert, "convert", wasm.ValI32, false, wasm.ValF32},
	wasm.OpF32ConvertI64S:    {kindConvert, "convert", wasm.ValI64, true, wasm.ValF32},
	wasm.OpF32ConvertI64U:    {kindConvert, "convert", wasm.ValI64, false, wasm.ValF32},
	wasm.OpF32DemoteF64:      {kindConvert, "demote", wasm.ValF64, false, wasm.ValF32},
	wasm.OpF64ConvertI32S:    {kindConvert, "convert", wasm.ValI32, true, wasm.ValF64},
	wasm.OpF64ConvertI32U:    {kindConvert, "convert", wasm.ValI32, false, wasm.ValF64},
	wasm.OpF64ConvertI64S:    {kindConvert, "convert", wasm.ValI64, true, wasm.ValF64},
	wasm.OpF64ConvertI64U:    {kindConvert, "convert", wasm.ValI64, false, wasm.ValF64},
	wasm.OpF64PromoteF32:     {kindConvert, "promote", wasm.ValF32, false, wasm.ValF64},
	wasm.OpI32ReinterpretF32: {kindConvert, "reinterpret", wasm.ValF32, false, wasm.ValI32},
	wasm.OpI64ReinterpretF64: {kindConvert, "reinterpret", wasm.ValF64, false, wasm.ValI64},
	wasm.OpF32ReinterpretI32: {kindConvert, "reinterpret", wasm.ValI32, false, wasm.ValF32},
	wasm.OpF64ReinterpretI64: {kindConvert, "reinterpret", wasm.ValI64, false, wasm.ValF64},

	wasm.OpI32Extend8S:  {kindUnary, "extend8", wasm.ValI32, true, 0},
	wasm.OpI32Extend16S: {kindUnary, "extend16", wasm.ValI32, true, 0},
	wasm.OpI64Extend8S:  {kindUnary, "extend8", wasm.ValI64, true, 0},
	wasm.OpI64Extend16S: {kindUnary, "extend16", wasm.ValI64, true, 0},
	wasm.OpI64Extend32S: {kindUnary, "extend32", wasm.ValI64, true, 0},
}
