package wasm

import "strconv"

// Module represents a decoded WebAssembly module.
type Module struct {
	Types    []FuncType // Function types (the type section)
	Imports  []Import
	Funcs    []uint32 // Type indices for module-defined functions
	Tables   []TableType
	Memories []MemoryType
	Globals  []Global
	Exports  []Export
	Start    *uint32
	Elements []Element
	Code     []FuncBody
	Data     []DataSegment

	CustomSections []CustomSection
}

// FuncType represents a WebAssembly function signature with parameter and
// result types. Multi-result forms are representable even though
// version-1 binaries never emit more than one result.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// ValType represents a WebAssembly value type: i32, i64, f32, or f64.
// See constants.go for ValI32, ValI64, ValF32, ValF64.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	default:
		return "unknown"
	}
}

// Import represents an imported function, table, memory, or global.
type Import struct {
	Desc   ImportDesc
	Module string
	Name   string
}

// ImportDesc describes an imported item. Kind uses KindFunc, KindTable,
// KindMemory, or KindGlobal.
type ImportDesc struct {
	Table   *TableType
	Memory  *MemoryType
	Global  *GlobalType
	TypeIdx uint32
	Kind    byte
}

// TableType describes a table with element type and size limits.
type TableType struct {
	Limits   Limits
	ElemType byte
}

// MemoryType describes a linear memory with size limits.
type MemoryType struct {
	Limits Limits
}

// Limits describes size constraints for tables and memories.
type Limits struct {
	Max *uint64
	Min uint64
}

// GlobalType describes a global variable's type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// Global represents a global variable with type and initialization.
type Global struct {
	Type GlobalType
	Init []byte // raw initializer expression bytes
}

// Export describes an exported item. Kind uses KindFunc, KindTable,
// KindMemory, or KindGlobal.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Element represents an element segment attaching function indices to a
// table at a given offset. Only the active, funcref forms used by
// version-1 binaries are modeled.
type Element struct {
	Offset   []byte
	FuncIdxs []uint32
	Flags    uint32
	TableIdx uint32
}

// FuncBody represents a function's local declarations and bytecode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // raw code bytes including the trailing end opcode
}

// LocalEntry represents a run-length-encoded group of local variables
// sharing a value type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// DataSegment represents a data segment attaching bytes to a memory at a
// given offset. Only the active form used by version-1 binaries is
// modeled.
type DataSegment struct {
	Offset []byte
	Init   []byte
	Flags  uint32
	MemIdx uint32
}

// CustomSection holds a named custom section's data, preserved verbatim.
type CustomSection struct {
	Name string
	Data []byte
}

// Function aggregates everything known about one function: its stable
// index, name, signature, import/export flags, declared locals (not
// counting parameters), and — once the code section has been parsed —
// its raw body bytes.
type Function struct {
	Type     FuncType
	Name     string
	Locals   []ValType
	Body     []byte
	ID       uint32
	Imported bool
	Exported bool
}

// Functions assembles the module's function index space: imported
// functions first in import order, then module-defined functions, each
// resolved against its type, locals, code, and export name.
func (m *Module) Functions() []Function {
	exportNames := make(map[uint32]string)
	for _, e := range m.Exports {
		if e.Kind == KindFunc {
			exportNames[e.Idx] = e.Name
		}
	}

	var funcs []Function
	var idx uint32

	for _, imp := range m.Imports {
		if imp.Desc.Kind != KindFunc {
			continue
		}
		f := Function{
			ID:       idx,
			Name:     imp.Name,
			Type:     *m.getFuncTypeByIdx(imp.Desc.TypeIdx),
			Imported: true,
		}
		if name, ok := exportNames[idx]; ok {
			f.Exported = true
			f.Name = name
		}
		funcs = append(funcs, f)
		idx++
	}

	for i, typeIdx := range m.Funcs {
		f := Function{
			ID:   idx,
			Name: defaultFuncName(idx),
			Type: *m.getFuncTypeByIdx(typeIdx),
		}
		if name, ok := exportNames[idx]; ok {
			f.Exported = true
			f.Name = name
		}
		if i < len(m.Code) {
			for _, l := range m.Code[i].Locals {
				for n := uint32(0); n < l.Count; n++ {
					f.Locals = append(f.Locals, l.ValType)
				}
			}
			f.Body = m.Code[i].Code
		}
		funcs = append(funcs, f)
		idx++
	}

	return funcs
}

func defaultFuncName(idx uint32) string {
	return "func" + strconv.FormatUint(uint64(idx), 10)
}

// NumImportedFuncs returns the number of imported functions.
func (m *Module) NumImportedFuncs() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			count++
		}
	}
	return count
}

// NumImportedGlobals returns the number of imported globals.
func (m *Module) NumImportedGlobals() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindGlobal {
			count++
		}
	}
	return count
}

// NumImportedTables returns the number of imported tables.
func (m *Module) NumImportedTables() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindTable {
			count++
		}
	}
	return count
}

// NumImportedMemories returns the number of imported memories.
func (m *Module) NumImportedMemories() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindMemory {
			count++
		}
	}
	return count
}

// NumTypes returns the number of entries in the type section.
func (m *Module) NumTypes() int {
	return len(m.Types)
}

// GetFuncType returns the type of a function by its index in the
// combined import+declared function index space.
func (m *Module) GetFuncType(funcIdx uint32) *FuncType {
	numImported := uint32(m.NumImportedFuncs())
	if funcIdx < numImported {
		remaining := funcIdx
		for _, imp := range m.Imports {
			if imp.Desc.Kind != KindFunc {
				continue
			}
			if remaining == 0 {
				return m.getFuncTypeByIdx(imp.Desc.TypeIdx)
			}
			remaining--
		}
	}
	localIdx := funcIdx - numImported
	if int(localIdx) >= len(m.Funcs) {
		return nil
	}
	return m.getFuncTypeByIdx(m.Funcs[localIdx])
}

func (m *Module) getFuncTypeByIdx(typeIdx uint32) *FuncType {
	if int(typeIdx) >= len(m.Types) {
		return nil
	}
	return &m.Types[typeIdx]
}

// AddType adds a function type and returns its index, reusing an
// existing equal entry if one is present.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, t := range m.Types {
		if typesEqual(t, ft) {
			return uint32(i)
		}
	}
	idx := uint32(len(m.Types))
	m.Types = append(m.Types, ft)
	return idx
}

func typesEqual(a, b FuncType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}
