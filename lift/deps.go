package lift

// readsLocal, readsGlobal, readsAnyGlobal and readsMemory report, for a
// single stack node, whether it transitively reads local idx, global
// idx, any global, or memory. Composite nodes answer by disjunction over
// their children; Load and MemSize read memory unconditionally.
// Statement-only nodes (MemGrow among them) never appear on the operand
// stack so they are not queried here.
func readsLocal(n Node, idx uint32) bool {
	switch v := n.(type) {
	case *VarRef:
		return v.LocalIdx != nil && *v.LocalIdx == idx
	case *BinOp:
		return readsLocal(v.Left, idx) || readsLocal(v.Right, idx)
	case *UnOp:
		return readsLocal(v.Operand, idx)
	case *Load:
		return readsLocal(v.Base, idx)
	case *Cast:
		return readsLocal(v.From, idx)
	case *Select:
		return readsLocal(v.Cond, idx) || readsLocal(v.True, idx) || readsLocal(v.False, idx)
	default:
		return false
	}
}

func readsGlobal(n Node, idx uint32) bool {
	switch v := n.(type) {
	case *VarRef:
		return v.GlobalIdx != nil && *v.GlobalIdx == idx
	case *BinOp:
		return readsGlobal(v.Left, idx) || readsGlobal(v.Right, idx)
	case *UnOp:
		return readsGlobal(v.Operand, idx)
	case *Load:
		return readsGlobal(v.Base, idx)
	case *Cast:
		return readsGlobal(v.From, idx)
	case *Select:
		return readsGlobal(v.Cond, idx) || readsGlobal(v.True, idx) || readsGlobal(v.False, idx)
	default:
		return false
	}
}

func readsAnyGlobal(n Node) bool {
	switch v := n.(type) {
	case *VarRef:
		return v.GlobalIdx != nil
	case *BinOp:
		return readsAnyGlobal(v.Left) || readsAnyGlobal(v.Right)
	case *UnOp:
		return readsAnyGlobal(v.Operand)
	case *Load:
		return readsAnyGlobal(v.Base)
	case *Cast:
		return readsAnyGlobal(v.From)
	case *Select:
		return readsAnyGlobal(v.Cond) || readsAnyGlobal(v.True) || readsAnyGlobal(v.False)
	default:
		return false
	}
}

func readsMemory(n Node) bool {
	switch v := n.(type) {
	case *Load:
		return true
	case *MemSize:
		return true
	case *BinOp:
		return readsMemory(v.Left) || readsMemory(v.Right)
	case *UnOp:
		return readsMemory(v.Operand)
	case *Cast:
		return readsMemory(v.From)
	case *Select:
		return readsMemory(v.Cond) || readsMemory(v.True) || readsMemory(v.False)
	default:
		return false
	}
}
