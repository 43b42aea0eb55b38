package lift

import (
	"strconv"

	"github.com/wasmtools/wasmdecompile/wasm"
)

// Context is a per-block lifting scope: an operand stack of
// unmaterialized expression nodes, an ordered statement list, and a
// parent link used both for branch-label resolution and for
// delegating fresh-variable name generation up to the root.
type Context struct {
	parent *Context
	depth  int
	stack  []Node
	stmts  []Node
	gen    *nameGen // non-nil only at the root
}

type nameGen struct {
	n int
}

func (g *nameGen) next() string {
	name := "var" + strconv.Itoa(g.n)
	g.n++
	return name
}

// newRootContext starts a function's top-level lifting scope.
func newRootContext() *Context {
	return &Context{depth: 0, gen: &nameGen{}}
}

// child opens a nested scope for a structured region (block/loop/if
// arm), linked to ctx as its parent.
func (c *Context) child() *Context {
	return &Context{parent: c, depth: c.depth + 1}
}

// ancestor walks up n parent links, resolving a branch's static depth
// to its target context.
func (c *Context) ancestor(n uint32) *Context {
	ctx := c
	for i := uint32(0); i < n; i++ {
		ctx = ctx.parent
	}
	return ctx
}

func (c *Context) fresh() string {
	if c.gen != nil {
		return c.gen.next()
	}
	return c.parent.fresh()
}

func (c *Context) push(n Node) {
	c.stack = append(c.stack, n)
}

func (c *Context) pop() Node {
	last := len(c.stack) - 1
	n := c.stack[last]
	c.stack = c.stack[:last]
	return n
}

// popN pops n values preserving source order (the first returned
// element is the deepest of the n popped).
func (c *Context) popN(n int) []Node {
	if n == 0 {
		return nil
	}
	start := len(c.stack) - n
	out := make([]Node, n)
	copy(out, c.stack[start:])
	c.stack = c.stack[:start]
	return out
}

func (c *Context) evict(n Node) {
	debugf("evict %T at depth %d", n, c.depth)
	c.stmts = append(c.stmts, n)
}

// scrub materializes every stack-resident node for which dependsOn
// returns true: each is bound to a fresh variable via an evicted
// Assign, and the stack slot is replaced by a VarRef to that variable.
// This implements the eviction policy ahead of an instruction that
// writes state the stack may depend on.
//
// The walk covers ancestor contexts too: a value pushed before a block
// and consumed after it lives on an enclosing stack, and a write inside
// the block invalidates it just the same. Each slot's Assign is evicted
// into the context that owns the slot, so the materialization lands
// before the enclosing region statement and executes unconditionally.
// Within one context, plain variable references to the same cell share
// a single materialization.
func (c *Context) scrub(dependsOn func(Node) bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		seen := make(map[string]*VarRef)
		for i, n := range ctx.stack {
			if !dependsOn(n) {
				continue
			}
			if ref, ok := n.(*VarRef); ok {
				if prev := seen[ref.Name]; prev != nil {
					ctx.stack[i] = prev
					continue
				}
			}
			fresh := &VarRef{Name: c.fresh(), Type: nodeType(n)}
			debugf("scrub: materializing %T into %s at depth %d", n, fresh.Name, ctx.depth)
			ctx.evict(&Assign{Target: fresh, Value: n})
			if ref, ok := n.(*VarRef); ok {
				seen[ref.Name] = fresh
			}
			ctx.stack[i] = fresh
		}
	}
}

// nodeType returns the value type carried by a stack-resident node, used
// to type the fresh variable a scrub introduces. Only node kinds that can
// live on the operand stack are handled.
func nodeType(n Node) wasm.ValType {
	switch v := n.(type) {
	case *Literal:
		return v.Type
	case *VarRef:
		return v.Type
	case *BinOp:
		return v.Type
	case *UnOp:
		return v.Type
	case *Load:
		return v.Type
	case *Cast:
		return v.To
	case *Select:
		return v.Type
	case *MemSize:
		return wasm.ValI32
	default:
		return 0
	}
}
