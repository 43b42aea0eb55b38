package wasm_test

import (
	"testing"

	"github.com/wasmtools/wasmdecompile/wasm"
)

func TestValTypeString(t *testing.T) {
	tests := []struct {
		vt   wasm.ValType
		want string
	}{
		{wasm.ValI32, "i32"},
		{wasm.ValI64, "i64"},
		{wasm.ValF32, "f32"},
		{wasm.ValF64, "f64"},
		{wasm.ValFuncRef, "funcref"},
		{wasm.ValExtern, "externref"},
		{wasm.ValType(0xFF), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.vt.String(); got != tt.want {
			t.Errorf("ValType(0x%02x).String(): got %q, want %q", byte(tt.vt), got, tt.want)
		}
	}
}

func TestModuleFunctionsImportedAndDeclared(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{{}, {Params: []wasm.ValType{wasm.ValI32}}},
		Imports: []wasm.Import{
			{Module: "env", Name: "host_fn", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
		},
		Funcs: []uint32{1},
		Code: []wasm.FuncBody{
			{Locals: []wasm.LocalEntry{{Count: 2, ValType: wasm.ValI64}}, Code: []byte{wasm.OpEnd}},
		},
		Exports: []wasm.Export{
			{Name: "run", Kind: wasm.KindFunc, Idx: 1},
		},
	}

	funcs := m.Functions()
	if len(funcs) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(funcs))
	}

	imported := funcs[0]
	if !imported.Imported || imported.Name != "host_fn" || imported.ID != 0 {
		t.Errorf("unexpected imported function: %+v", imported)
	}

	declared := funcs[1]
	if declared.Imported {
		t.Error("declared function should not be marked imported")
	}
	if !declared.Exported || declared.Name != "run" {
		t.Errorf("expected declared function to be exported as 'run', got %+v", declared)
	}
	if len(declared.Locals) != 2 || declared.Locals[0] != wasm.ValI64 {
		t.Errorf("unexpected locals: %+v", declared.Locals)
	}
}

func TestModuleFunctionsDefaultNaming(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{{}},
		Funcs: []uint32{0, 0},
		Code: []wasm.FuncBody{
			{Code: []byte{wasm.OpEnd}},
			{Code: []byte{wasm.OpEnd}},
		},
	}
	funcs := m.Functions()
	if funcs[0].Name != "func0" || funcs[1].Name != "func1" {
		t.Errorf("unexpected default names: %q, %q", funcs[0].Name, funcs[1].Name)
	}
}

func TestModuleIndexCounts(t *testing.T) {
	m := &wasm.Module{
		Imports: []wasm.Import{
			{Desc: wasm.ImportDesc{Kind: wasm.KindFunc}},
			{Desc: wasm.ImportDesc{Kind: wasm.KindTable}},
			{Desc: wasm.ImportDesc{Kind: wasm.KindMemory}},
			{Desc: wasm.ImportDesc{Kind: wasm.KindGlobal}},
			{Desc: wasm.ImportDesc{Kind: wasm.KindFunc}},
		},
	}
	if m.NumImportedFuncs() != 2 {
		t.Errorf("NumImportedFuncs: got %d, want 2", m.NumImportedFuncs())
	}
	if m.NumImportedTables() != 1 {
		t.Errorf("NumImportedTables: got %d, want 1", m.NumImportedTables())
	}
	if m.NumImportedMemories() != 1 {
		t.Errorf("NumImportedMemories: got %d, want 1", m.NumImportedMemories())
	}
	if m.NumImportedGlobals() != 1 {
		t.Errorf("NumImportedGlobals: got %d, want 1", m.NumImportedGlobals())
	}
}

func TestGetFuncTypeAcrossImportedAndDeclared(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Results: []wasm.ValType{wasm.ValI32}},
			{Results: []wasm.ValType{wasm.ValI64}},
		},
		Imports: []wasm.Import{
			{Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
		},
		Funcs: []uint32{1},
	}

	ft := m.GetFuncType(0)
	if ft == nil || ft.Results[0] != wasm.ValI32 {
		t.Fatalf("GetFuncType(0): got %+v", ft)
	}

	ft = m.GetFuncType(1)
	if ft == nil || ft.Results[0] != wasm.ValI64 {
		t.Fatalf("GetFuncType(1): got %+v", ft)
	}

	if m.GetFuncType(2) != nil {
		t.Error("GetFuncType(2) should be nil, out of range")
	}
}

func TestAddTypeDeduplicates(t *testing.T) {
	m := &wasm.Module{}
	ft := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}}

	idx1 := m.AddType(ft)
	idx2 := m.AddType(ft)
	if idx1 != idx2 {
		t.Errorf("expected AddType to dedupe: got %d and %d", idx1, idx2)
	}
	if len(m.Types) != 1 {
		t.Errorf("expected 1 type after dedup, got %d", len(m.Types))
	}

	other := wasm.FuncType{Params: []wasm.ValType{wasm.ValI64}}
	idx3 := m.AddType(other)
	if idx3 == idx1 {
		t.Error("expected distinct type to get a new index")
	}
}
