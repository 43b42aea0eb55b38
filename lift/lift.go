package lift

import (
	"errors"

	wasmerrors "github.com/wasmtools/wasmdecompile/errors"
	"github.com/wasmtools/wasmdecompile/wasm"
)

// Function is one lifted function: its stable identity plus the
// expression-tree statement list that replaces its bytecode body.
// Imported functions have a nil Body — there is nothing to lift.
type Function struct {
	ID     uint32
	Name   string
	Type   wasm.FuncType
	Params []*VarRef
	Locals []*VarRef
	Body   []Node
}

// Lift decompiles one function's instruction stream into a statement
// tree. fn must come from m.Functions() so its ID and Type line up with
// the module's index spaces.
func Lift(m *wasm.Module, fn wasm.Function) (*Function, error) {
	out := &Function{ID: fn.ID, Name: fn.Name, Type: fn.Type}
	for idx := range fn.Type.Params {
		i := uint32(idx)
		out.Params = append(out.Params, &VarRef{Name: localName(i), Type: fn.Type.Params[idx], LocalIdx: &i})
	}
	if fn.Imported {
		return out, nil
	}
	for j, lt := range fn.Locals {
		i := uint32(len(fn.Type.Params) + j)
		out.Locals = append(out.Locals, &VarRef{Name: localName(i), Type: lt, LocalIdx: &i})
	}

	instrs, err := wasm.DecodeInstructions(fn.Body)
	if err != nil {
		var werr *wasmerrors.Error
		if errors.As(err, &werr) {
			return nil, werr
		}
		return nil, wasmerrors.New(wasmerrors.PhaseLift, wasmerrors.KindUnexpectedInstruction).
			Detail("function %q: %v", fn.Name, err).Cause(err).Build()
	}

	locals := make([]wasm.ValType, 0, len(fn.Type.Params)+len(fn.Locals))
	locals = append(locals, fn.Type.Params...)
	locals = append(locals, fn.Locals...)

	w := &walker{m: m, locals: locals, fnID: fn.ID, results: len(fn.Type.Results)}
	root := newRootContext()
	if _, err := w.walk(root, instrs, 0); err != nil {
		var werr *wasmerrors.Error
		if errors.As(err, &werr) {
			return nil, werr
		}
		return nil, wasmerrors.New(wasmerrors.PhaseLift, wasmerrors.KindUnexpectedInstruction).
			Path(fn.Name).Cause(err).Build()
	}
	// A function body's final `end` falls through rather than branching;
	// any values still on the stack are its implicit return.
	if len(root.stack) > 0 {
		root.evict(&Return{Values: root.popN(len(root.stack))})
	}
	out.Body = root.stmts
	return out, nil
}

// LiftModule lifts every function in m, imports included (an imported
// function gets a nil Body), in function-index order.
func LiftModule(m *wasm.Module) ([]*Function, error) {
	var out []*Function
	for _, fn := range m.Functions() {
		lf, err := Lift(m, fn)
		if err != nil {
			return nil, err
		}
		out = append(out, lf)
	}
	return out, nil
}
