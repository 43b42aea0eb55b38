// Package render formats a lifted function's statement tree as readable
// pseudocode text, the way a disassembler formats decoded instructions.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wasmtools/wasmdecompile/lift"
	"github.com/wasmtools/wasmdecompile/wasm"
)

const indentUnit = "    "

// ModuleHeader renders a module's globals, memories, and tables, each
// with its initializer ranges, ahead of the per-function bodies.
func ModuleHeader(m *wasm.Module) string {
	var b strings.Builder
	writeGlobals(&b, m)
	writeMemories(&b, m)
	writeTables(&b, m)
	return b.String()
}

func writeGlobals(b *strings.Builder, m *wasm.Module) {
	numImported := m.NumImportedGlobals()
	idx := uint32(0)
	for _, imp := range m.Imports {
		if imp.Desc.Kind != wasm.KindGlobal {
			continue
		}
		fmt.Fprintf(b, "import global %d: %s %s.%s\n", idx, mutability(*imp.Desc.Global), imp.Module, imp.Name)
		idx++
	}
	for i, g := range m.Globals {
		idx := uint32(numImported + i)
		fmt.Fprintf(b, "global %d: %s %s = %s\n", idx, mutability(g.Type), g.Type.ValType, initExprString(g.Init))
	}
}

func mutability(t wasm.GlobalType) string {
	if t.Mutable {
		return "mut"
	}
	return "const"
}

func writeMemories(b *strings.Builder, m *wasm.Module) {
	numImported := m.NumImportedMemories()
	idx := uint32(0)
	for _, imp := range m.Imports {
		if imp.Desc.Kind != wasm.KindMemory {
			continue
		}
		fmt.Fprintf(b, "import memory %d: %s from %s.%s\n", idx, limitsString(imp.Desc.Memory.Limits), imp.Module, imp.Name)
		idx++
	}
	for i, mem := range m.Memories {
		idx := uint32(numImported + i)
		fmt.Fprintf(b, "memory %d: %s\n", idx, limitsString(mem.Limits))
	}
	for _, d := range m.Data {
		fmt.Fprintf(b, "  data[mem %d, offset=%s]: %d bytes\n", d.MemIdx, initExprString(d.Offset), len(d.Init))
	}
}

func writeTables(b *strings.Builder, m *wasm.Module) {
	numImported := m.NumImportedTables()
	idx := uint32(0)
	for _, imp := range m.Imports {
		if imp.Desc.Kind != wasm.KindTable {
			continue
		}
		fmt.Fprintf(b, "import table %d: %s from %s.%s\n", idx, limitsString(imp.Desc.Table.Limits), imp.Module, imp.Name)
		idx++
	}
	for i, t := range m.Tables {
		idx := uint32(numImported + i)
		fmt.Fprintf(b, "table %d: %s\n", idx, limitsString(t.Limits))
	}
	for _, e := range m.Elements {
		funcs := make([]string, len(e.FuncIdxs))
		for i, f := range e.FuncIdxs {
			funcs[i] = "func" + strconv.FormatUint(uint64(f), 10)
		}
		fmt.Fprintf(b, "  elem[table %d, offset=%s]: [%s]\n", e.TableIdx, initExprString(e.Offset), strings.Join(funcs, ", "))
	}
}

func limitsString(l wasm.Limits) string {
	if l.Max != nil {
		return fmt.Sprintf("min=%d max=%d", l.Min, *l.Max)
	}
	return fmt.Sprintf("min=%d", l.Min)
}

// initExprString renders a decoded constant-initializer expression
// (i32.const, i64.const, f32.const, f64.const, or global.get) the same
// way function bodies render literals and variable references.
func initExprString(raw []byte) string {
	instrs, err := wasm.DecodeInstructions(raw)
	if err != nil || len(instrs) == 0 {
		return "?"
	}
	in := instrs[0]
	switch in.Opcode {
	case wasm.OpI32Const:
		return strconv.FormatInt(int64(in.Imm.(wasm.I32Imm).Value), 10)
	case wasm.OpI64Const:
		return strconv.FormatInt(in.Imm.(wasm.I64Imm).Value, 10)
	case wasm.OpF32Const:
		return strconv.FormatFloat(float64(in.Imm.(wasm.F32Imm).Value), 'g', -1, 32)
	case wasm.OpF64Const:
		return strconv.FormatFloat(in.Imm.(wasm.F64Imm).Value, 'g', -1, 64)
	case wasm.OpGlobalGet:
		return globalName(in.Imm.(wasm.GlobalImm).GlobalIdx)
	default:
		return "?"
	}
}

func globalName(idx uint32) string { return "global" + strconv.FormatUint(uint64(idx), 10) }

// Function renders one lifted function as a C-like pseudocode listing:
// a signature line followed by an indented statement body.
func Function(fn *lift.Function) string {
	var b strings.Builder
	b.WriteString(signature(fn))
	if fn.Body == nil {
		b.WriteString(" ;\n") // imported — no body to show
		return b.String()
	}
	b.WriteString(" {\n")
	writeStmts(&b, fn.Body, 1)
	b.WriteString("}\n")
	return b.String()
}

func signature(fn *lift.Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s(", resultString(fn.Type.Results), fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", p.Type, p.Name)
	}
	b.WriteString(")")
	return b.String()
}

// resultString renders a function's result types: "void" for none, the
// bare type name for one, and a parenthesized comma list for the
// multi-value signatures the type model allows but MVP binaries never
// emit.
func resultString(results []wasm.ValType) string {
	switch len(results) {
	case 0:
		return "void"
	case 1:
		return results[0].String()
	default:
		names := make([]string, len(results))
		for i, r := range results {
			names[i] = r.String()
		}
		return "(" + strings.Join(names, ", ") + ")"
	}
}

func writeStmts(b *strings.Builder, stmts []lift.Node, depth int) {
	for _, s := range stmts {
		writeStmt(b, s, depth)
	}
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString(indentUnit)
	}
}

func writeStmt(b *strings.Builder, n lift.Node, depth int) {
	indent(b, depth)
	switch v := n.(type) {
	case *lift.Assign:
		fmt.Fprintf(b, "%s = %s;\n", v.Target.Name, expr(v.Value))

	case *lift.Store:
		fmt.Fprintf(b, "store%d(%s + %d, %s);\n", v.Bits, expr(v.Base), v.Offset, expr(v.Value))

	case *lift.Call:
		fmt.Fprintf(b, "%s;\n", callExpr(v))

	case *lift.MemGrow:
		fmt.Fprintf(b, "%s = memory.grow(%s);\n", v.Result.Name, expr(v.Delta))

	case *lift.Return:
		if len(v.Values) == 0 {
			b.WriteString("return;\n")
			break
		}
		parts := make([]string, len(v.Values))
		for i, val := range v.Values {
			parts[i] = expr(val)
		}
		fmt.Fprintf(b, "return %s;\n", strings.Join(parts, ", "))

	case *lift.Block:
		fmt.Fprintf(b, "label_%d: {\n", depth)
		writeStmts(b, v.Body, depth+1)
		indent(b, depth)
		b.WriteString("}\n")

	case *lift.Loop:
		fmt.Fprintf(b, "label_%d: loop {\n", depth)
		writeStmts(b, v.Body, depth+1)
		indent(b, depth)
		b.WriteString("}\n")

	case *lift.IfElse:
		fmt.Fprintf(b, "label_%d: if (%s) {\n", depth, expr(v.Cond))
		writeStmts(b, v.Then, depth+1)
		indent(b, depth)
		if v.Else != nil {
			b.WriteString("} else {\n")
			writeStmts(b, v.Else, depth+1)
			indent(b, depth)
		}
		b.WriteString("}\n")

	case *lift.Branch:
		if v.Cond != nil {
			fmt.Fprintf(b, "if (%s) goto label_%d;\n", expr(v.Cond), v.Depth)
		} else {
			fmt.Fprintf(b, "goto label_%d;\n", v.Depth)
		}

	case *lift.BranchTable:
		labels := make([]string, len(v.Labels))
		for i, l := range v.Labels {
			labels[i] = "label_" + strconv.FormatUint(uint64(l), 10)
		}
		fmt.Fprintf(b, "br_table(%s, [%s], default=label_%d);\n", expr(v.Index), strings.Join(labels, ", "), v.Default)

	case *lift.Unreachable:
		b.WriteString("unreachable;\n")

	default:
		fmt.Fprintf(b, "/* unrenderable statement %T */\n", n)
	}
}

func callExpr(c *lift.Call) string {
	var fn string
	if c.Direct {
		fn = fmt.Sprintf("func%d", c.FuncIdx)
	} else {
		fn = fmt.Sprintf("table[%s]", expr(c.Callee))
	}
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = expr(a)
	}
	call := fmt.Sprintf("%s(%s)", fn, strings.Join(args, ", "))
	if len(c.Results) == 0 {
		return call
	}
	names := make([]string, len(c.Results))
	for i, r := range c.Results {
		names[i] = r.Name
	}
	return fmt.Sprintf("%s = %s", strings.Join(names, ", "), call)
}

// expr renders a pure expression node inline. Statement-only node kinds
// never appear here — they are always evicted before they could be
// referenced from an expression position.
func expr(n lift.Node) string {
	switch v := n.(type) {
	case *lift.Literal:
		return literal(v)
	case *lift.VarRef:
		return v.Name
	case *lift.BinOp:
		return fmt.Sprintf("(%s %s %s)", expr(v.Left), binSymbol(v.Op), expr(v.Right))
	case *lift.UnOp:
		return fmt.Sprintf("%s.%s(%s)", v.Type, v.Op, expr(v.Operand))
	case *lift.Load:
		sign := ""
		if v.SignExtend {
			sign = "_s"
		}
		return fmt.Sprintf("load%d%s(%s + %d)", v.Bits, sign, expr(v.Base), v.Offset)
	case *lift.Cast:
		return fmt.Sprintf("%s.%s(%s)", v.To, v.Kind, expr(v.From))
	case *lift.Select:
		return fmt.Sprintf("(%s ? %s : %s)", expr(v.Cond), expr(v.True), expr(v.False))
	case *lift.MemSize:
		return "memory.size()"
	default:
		return fmt.Sprintf("/* unrenderable expr %T */", n)
	}
}

func literal(l *lift.Literal) string {
	return fmt.Sprintf("%v", l.Value)
}

func binSymbol(op string) string {
	switch op {
	case "add":
		return "+"
	case "sub":
		return "-"
	case "mul":
		return "*"
	case "div":
		return "/"
	case "rem":
		return "%"
	case "and":
		return "&"
	case "or":
		return "|"
	case "xor":
		return "^"
	case "shl":
		return "<<"
	case "shr":
		return ">>"
	case "eq":
		return "=="
	case "ne":
		return "!="
	case "lt":
		return "<"
	case "gt":
		return ">"
	case "le":
		return "<="
	case "ge":
		return ">="
	default:
		return op
	}
}
