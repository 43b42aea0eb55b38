package lift

import (
	"fmt"

	wasmerrors "github.com/wasmtools/wasmdecompile/errors"
	"github.com/wasmtools/wasmdecompile/wasm"
)

// walker holds the per-function state a single lifting pass threads
// through every instruction: the module (for index resolution), the
// function's local slots (params then declared locals), its id (for
// error paths), and its declared result count.
type walker struct {
	m       *wasm.Module
	locals  []wasm.ValType // params followed by declared locals
	fnID    uint32
	results int // declared result count, what an explicit return pops
}

func globalType(m *wasm.Module, idx uint32) wasm.ValType {
	n := uint32(0)
	for _, imp := range m.Imports {
		if imp.Desc.Kind != wasm.KindGlobal {
			continue
		}
		if n == idx {
			return imp.Desc.Global.ValType
		}
		n++
	}
	return m.Globals[idx-n].Type.ValType
}

// walk lifts a flat instruction sequence into ctx, stopping at the
// matching End for the region ctx was opened for (or at function end
// for the root context). It returns the index of the End or Else that
// stopped it (len(instrs) if none did) so the caller can resume after a
// nested region.
func (w *walker) walk(ctx *Context, instrs []wasm.Instruction, i int) (int, error) {
	for i < len(instrs) {
		in := instrs[i]
		switch in.Opcode {
		case wasm.OpEnd, wasm.OpElse:
			return i, nil

		case wasm.OpUnreachable:
			ctx.evict(&Unreachable{})
			i++

		case wasm.OpNop:
			i++

		case wasm.OpBlock, wasm.OpLoop:
			next, err := w.liftRegion(ctx, instrs, i)
			if err != nil {
				return i, err
			}
			i = next

		case wasm.OpIf:
			next, err := w.liftIf(ctx, instrs, i)
			if err != nil {
				return i, err
			}
			i = next

		case wasm.OpBr:
			imm := in.Imm.(wasm.BranchImm)
			ctx.evict(&Branch{Depth: w.resolveLabel(ctx, imm.LabelIdx)})
			i++

		case wasm.OpBrIf:
			imm := in.Imm.(wasm.BranchImm)
			cond, err := w.pop1(ctx, i)
			if err != nil {
				return i, err
			}
			ctx.evict(&Branch{Depth: w.resolveLabel(ctx, imm.LabelIdx), Cond: cond})
			i++

		case wasm.OpBrTable:
			imm := in.Imm.(wasm.BrTableImm)
			idx, err := w.pop1(ctx, i)
			if err != nil {
				return i, err
			}
			labels := make([]uint32, len(imm.Labels))
			for j, l := range imm.Labels {
				labels[j] = w.resolveLabel(ctx, l)
			}
			ctx.evict(&BranchTable{Index: idx, Labels: labels, Default: w.resolveLabel(ctx, imm.Default)})
			i++

		case wasm.OpReturn:
			vals, err := w.popN(ctx, w.results, i)
			if err != nil {
				return i, err
			}
			ctx.evict(&Return{Values: vals})
			i++

		case wasm.OpCall:
			imm := in.Imm.(wasm.CallImm)
			ft := w.m.GetFuncType(imm.FuncIdx)
			if ft == nil {
				return i, wasmerrors.New(wasmerrors.PhaseLift, wasmerrors.KindBadIndex).
					Path(fmt.Sprintf("func %d", w.fnID), fmt.Sprintf("instr %d", i)).
					Detail("call: no such function index %d", imm.FuncIdx).Build()
			}
			args, err := w.popN(ctx, len(ft.Params), i)
			if err != nil {
				return i, err
			}
			w.scrubForCall(ctx)
			call := &Call{Direct: true, FuncIdx: imm.FuncIdx, Type: *ft, Args: args}
			call.Results = w.bindResults(ctx, call, ft.Results)
			ctx.evict(call)
			i++

		case wasm.OpCallIndirect:
			imm := in.Imm.(wasm.CallIndirectImm)
			if int(imm.TypeIdx) >= len(w.m.Types) {
				return i, wasmerrors.New(wasmerrors.PhaseLift, wasmerrors.KindBadIndex).
					Path(fmt.Sprintf("func %d", w.fnID), fmt.Sprintf("instr %d", i)).
					Detail("call_indirect: no such type index %d", imm.TypeIdx).Build()
			}
			ft := w.m.Types[imm.TypeIdx]
			callee, err := w.pop1(ctx, i)
			if err != nil {
				return i, err
			}
			args, err := w.popN(ctx, len(ft.Params), i)
			if err != nil {
				return i, err
			}
			w.scrubForCall(ctx)
			call := &Call{Direct: false, Callee: callee, Type: ft, Args: args}
			call.Results = w.bindResults(ctx, call, ft.Results)
			ctx.evict(call)
			i++

		case wasm.OpDrop:
			if _, err := w.pop1(ctx, i); err != nil {
				return i, err
			}
			i++

		case wasm.OpSelect:
			cond, err := w.pop1(ctx, i)
			if err != nil {
				return i, err
			}
			f, err := w.pop1(ctx, i)
			if err != nil {
				return i, err
			}
			t, err := w.pop1(ctx, i)
			if err != nil {
				return i, err
			}
			ctx.push(&Select{Cond: cond, True: t, False: f, Type: nodeType(t)})
			i++

		case wasm.OpLocalGet:
			imm := in.Imm.(wasm.LocalImm)
			idx := imm.LocalIdx
			ctx.push(&VarRef{Name: localName(idx), Type: w.locals[idx], LocalIdx: &idx})
			i++

		case wasm.OpLocalSet, wasm.OpLocalTee:
			imm := in.Imm.(wasm.LocalImm)
			idx := imm.LocalIdx
			val, err := w.pop1(ctx, i)
			if err != nil {
				return i, err
			}
			ctx.scrub(func(n Node) bool { return readsLocal(n, idx) })
			target := &VarRef{Name: localName(idx), Type: w.locals[idx], LocalIdx: &idx}
			ctx.evict(&Assign{Target: target, Value: val})
			if in.Opcode == wasm.OpLocalTee {
				ctx.push(target)
			}
			i++

		case wasm.OpGlobalGet:
			imm := in.Imm.(wasm.GlobalImm)
			idx := imm.GlobalIdx
			ctx.push(&VarRef{Name: globalName(idx), Type: globalType(w.m, idx), GlobalIdx: &idx})
			i++

		case wasm.OpGlobalSet:
			imm := in.Imm.(wasm.GlobalImm)
			idx := imm.GlobalIdx
			val, err := w.pop1(ctx, i)
			if err != nil {
				return i, err
			}
			ctx.scrub(func(n Node) bool { return readsGlobal(n, idx) })
			target := &VarRef{Name: globalName(idx), Type: globalType(w.m, idx), GlobalIdx: &idx}
			ctx.evict(&Assign{Target: target, Value: val})
			i++

		case wasm.OpMemorySize:
			ctx.push(&MemSize{})
			i++

		case wasm.OpMemoryGrow:
			delta, err := w.pop1(ctx, i)
			if err != nil {
				return i, err
			}
			ctx.scrub(func(n Node) bool { return readsMemory(n) })
			result := &VarRef{Name: ctx.fresh(), Type: wasm.ValI32}
			ctx.evict(&MemGrow{Delta: delta, Result: result})
			ctx.push(result)
			i++

		case wasm.OpI32Const:
			ctx.push(&Literal{Type: wasm.ValI32, Value: in.Imm.(wasm.I32Imm).Value})
			i++
		case wasm.OpI64Const:
			ctx.push(&Literal{Type: wasm.ValI64, Value: in.Imm.(wasm.I64Imm).Value})
			i++
		case wasm.OpF32Const:
			ctx.push(&Literal{Type: wasm.ValF32, Value: in.Imm.(wasm.F32Imm).Value})
			i++
		case wasm.OpF64Const:
			ctx.push(&Literal{Type: wasm.ValF64, Value: in.Imm.(wasm.F64Imm).Value})
			i++

		default:
			if isLoad(in.Opcode) {
				if err := w.liftLoad(ctx, in, i); err != nil {
					return i, err
				}
				i++
				break
			}
			if isStore(in.Opcode) {
				if err := w.liftStore(ctx, in, i); err != nil {
					return i, err
				}
				i++
				break
			}
			op, ok := numericOps[in.Opcode]
			if !ok {
				return i, wasmerrors.UnexpectedInstruction(w.fnID, i, in.Opcode)
			}
			if err := w.liftNumeric(ctx, op, i); err != nil {
				return i, err
			}
			i++
		}
	}
	return i, nil
}

func (w *walker) liftNumeric(ctx *Context, op numOp, at int) error {
	switch op.kind {
	case kindUnary:
		v, err := w.pop1(ctx, at)
		if err != nil {
			return err
		}
		ctx.push(&UnOp{Op: op.name, Type: op.typ, Signed: op.signed, Operand: v})
	case kindBinary, kindCompare:
		rhs, err := w.pop1(ctx, at)
		if err != nil {
			return err
		}
		lhs, err := w.pop1(ctx, at)
		if err != nil {
			return err
		}
		ctx.push(&BinOp{Op: op.name, Type: op.typ, Signed: op.signed, Left: lhs, Right: rhs})
	case kindConvert:
		v, err := w.pop1(ctx, at)
		if err != nil {
			return err
		}
		ctx.push(&Cast{Kind: op.name, To: op.to, From: v, Signed: op.signed})
	}
	return nil
}

func (w *walker) liftLoad(ctx *Context, in wasm.Instruction, at int) error {
	base, err := w.pop1(ctx, at)
	if err != nil {
		return err
	}
	imm := in.Imm.(wasm.MemoryImm)
	typ, bits, signExtend := loadShape(in.Opcode)
	ctx.push(&Load{Type: typ, Bits: bits, SignExtend: signExtend, Align: imm.Align, Offset: imm.Offset, Base: base})
	return nil
}

func (w *walker) liftStore(ctx *Context, in wasm.Instruction, at int) error {
	val, err := w.pop1(ctx, at)
	if err != nil {
		return err
	}
	base, err := w.pop1(ctx, at)
	if err != nil {
		return err
	}
	imm := in.Imm.(wasm.MemoryImm)
	typ, bits := storeShape(in.Opcode)
	ctx.scrub(func(n Node) bool { return readsMemory(n) })
	ctx.evict(&Store{Type: typ, Bits: bits, Align: imm.Align, Offset: imm.Offset, Base: base, Value: val})
	return nil
}

// liftRegion lifts a block or loop starting at instrs[i], returning the
// index just past its matching End.
func (w *walker) liftRegion(ctx *Context, instrs []wasm.Instruction, i int) (int, error) {
	in := instrs[i]
	blockType := in.Imm.(wasm.BlockImm).Type
	resultTypes := w.blockResults(blockType)

	child := ctx.child()
	next, err := w.walk(child, instrs, i+1)
	if err != nil {
		return i, err
	}

	results := w.closeRegion(child, resultTypes, ctx)

	if in.Opcode == wasm.OpLoop {
		ctx.evict(&Loop{Results: results, Body: child.stmts})
	} else {
		ctx.evict(&Block{Results: results, Body: child.stmts})
	}
	return next + 1, nil // skip the End
}

func (w *walker) liftIf(ctx *Context, instrs []wasm.Instruction, i int) (int, error) {
	in := instrs[i]
	blockType := in.Imm.(wasm.BlockImm).Type
	resultTypes := w.blockResults(blockType)

	cond, err := w.pop1(ctx, i)
	if err != nil {
		return i, err
	}

	thenCtx := ctx.child()
	next, err := w.walk(thenCtx, instrs, i+1)
	if err != nil {
		return i, err
	}

	var elseCtx *Context
	if next < len(instrs) && instrs[next].Opcode == wasm.OpElse {
		elseCtx = ctx.child()
		next, err = w.walk(elseCtx, instrs, next+1)
		if err != nil {
			return i, err
		}
	}

	results := w.closeIfRegion(thenCtx, elseCtx, resultTypes, ctx)

	var elseStmts []Node
	if elseCtx != nil {
		elseStmts = elseCtx.stmts
	}
	ctx.evict(&IfElse{Cond: cond, Then: thenCtx.stmts, Else: elseStmts, Results: results})
	return next + 1, nil
}

// closeRegion evicts a block-return binding in child for each of the
// region's declared result types (the top len(resultTypes) values left
// on child's stack) and returns fresh VarRefs the parent pushes. A
// region that never falls through (its body ends in br, return, or
// unreachable) leaves fewer values than declared; the missing bindings
// are simply skipped.
func (w *walker) closeRegion(child *Context, resultTypes []wasm.ValType, parent *Context) []*VarRef {
	if len(resultTypes) == 0 {
		return nil
	}
	refs := make([]*VarRef, len(resultTypes))
	for j := range resultTypes {
		refs[j] = &VarRef{Name: parent.fresh(), Type: resultTypes[j]}
	}
	bindRegionResults(child, refs)
	for _, ref := range refs {
		parent.push(ref)
	}
	return refs
}

// closeIfRegion is closeRegion's two-armed counterpart: both then and
// (if present) else must bind the same fresh result variables, since
// control reaches the join point through either arm.
func (w *walker) closeIfRegion(then, els *Context, resultTypes []wasm.ValType, parent *Context) []*VarRef {
	if len(resultTypes) == 0 {
		return nil
	}
	refs := make([]*VarRef, len(resultTypes))
	for j := range resultTypes {
		refs[j] = &VarRef{Name: parent.fresh(), Type: resultTypes[j]}
	}
	bindRegionResults(then, refs)
	if els != nil {
		bindRegionResults(els, refs)
	}
	for _, ref := range refs {
		parent.push(ref)
	}
	return refs
}

// bindRegionResults pops a region's fall-through values and evicts an
// Assign binding each to its result variable. An arm holding fewer
// values than declared ended in a branch and binds only what it has.
func bindRegionResults(ctx *Context, refs []*VarRef) {
	n := len(refs)
	if len(ctx.stack) < n {
		n = len(ctx.stack)
	}
	vals := ctx.popN(n)
	for j, v := range vals {
		ctx.evict(&Assign{Target: refs[len(refs)-n+j], Value: v})
	}
}

func (w *walker) blockResults(blockType int32) []wasm.ValType {
	switch blockType {
	case wasm.BlockTypeVoid:
		return nil
	case wasm.BlockTypeI32:
		return []wasm.ValType{wasm.ValI32}
	case wasm.BlockTypeI64:
		return []wasm.ValType{wasm.ValI64}
	case wasm.BlockTypeF32:
		return []wasm.ValType{wasm.ValF32}
	case wasm.BlockTypeF64:
		return []wasm.ValType{wasm.ValF64}
	default:
		return w.m.Types[blockType].Results
	}
}

// scrubForCall evicts every stack node that reads any global or memory,
// since the call can mutate both through shared module state. Nodes
// that read only locals are left on the stack.
func (w *walker) scrubForCall(ctx *Context) {
	ctx.scrub(func(n Node) bool { return readsAnyGlobal(n) || readsMemory(n) })
}

func (w *walker) bindResults(ctx *Context, call *Call, results []wasm.ValType) []*VarRef {
	if len(results) == 0 {
		return nil
	}
	refs := make([]*VarRef, len(results))
	for j, t := range results {
		ref := &VarRef{Name: ctx.fresh(), Type: t}
		refs[j] = ref
		ctx.push(ref)
	}
	return refs
}

// resolveLabel turns a br/br_if/br_table label index — a relative count
// of enclosing structured regions, per the Wasm binary format — into the
// absolute nesting depth of the context it targets, which is what names
// the branch's label at render time.
func (w *walker) resolveLabel(ctx *Context, relative uint32) uint32 {
	return uint32(ctx.ancestor(relative).depth)
}

func (w *walker) pop1(ctx *Context, at int) (Node, error) {
	if len(ctx.stack) == 0 {
		return nil, wasmerrors.StackUnderflow(w.fnID, at)
	}
	return ctx.pop(), nil
}

func (w *walker) popN(ctx *Context, n, at int) ([]Node, error) {
	if len(ctx.stack) < n {
		err := wasmerrors.StackUnderflow(w.fnID, at)
		err.Detail = fmt.Sprintf("need %d operands, have %d", n, len(ctx.stack))
		return nil, err
	}
	return ctx.popN(n), nil
}

func localName(idx uint32) string  { return fmt.Sprintf("local%d", idx) }
func globalName(idx uint32) string { return fmt.Sprintf("global%d", idx) }

func isLoad(op byte) bool {
	return op >= wasm.OpI32Load && op <= wasm.OpI64Load32U
}

func isStore(op byte) bool {
	return op >= wasm.OpI32Store && op <= wasm.OpI64Store32
}

func loadShape(op byte) (typ wasm.ValType, bits int, signExtend bool) {
	switch op {
	case wasm.OpI32Load:
		return wasm.ValI32, 32, false
	case wasm.OpI64Load:
		return wasm.ValI64, 64, false
	case wasm.OpF32Load:
		return wasm.ValF32, 32, false
	case wasm.OpF64Load:
		return wasm.ValF64, 64, false
	case wasm.OpI32Load8S:
		return wasm.ValI32, 8, true
	case wasm.OpI32Load8U:
		return wasm.ValI32, 8, false
	case wasm.OpI32Load16S:
		return wasm.ValI32, 16, true
	case wasm.OpI32Load16U:
		return wasm.ValI32, 16, false
	case wasm.OpI64Load8S:
		return wasm.ValI64, 8, true
	case wasm.OpI64Load8U:
		return wasm.ValI64, 8, false
	case wasm.OpI64Load16S:
		return wasm.ValI64, 16, true
	case wasm.OpI64Load16U:
		return wasm.ValI64, 16, false
	case wasm.OpI64Load32S:
		return wasm.ValI64, 32, true
	case wasm.OpI64Load32U:
		return wasm.ValI64, 32, false
	default:
		return 0, 0, false
	}
}

func storeShape(op byte) (typ wasm.ValType, bits int) {
	switch op {
	case wasm.OpI32Store:
		return wasm.ValI32, 32
	case wasm.OpI64Store:
		return wasm.ValI64, 64
	case wasm.OpF32Store:
		return wasm.ValF32, 32
	case wasm.OpF64Store:
		return wasm.ValF64, 64
	case wasm.OpI32Store8:
		return wasm.ValI32, 8
	case wasm.OpI32Store16:
		return wasm.ValI32, 16
	case wasm.OpI64Store8:
		return wasm.ValI64, 8
	case wasm.OpI64Store16:
		return wasm.ValI64, 16
	case wasm.OpI64Store32:
		return wasm.ValI64, 32
	default:
		return 0, 0
	}
}
