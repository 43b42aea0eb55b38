package wasm

import (
	"fmt"

	wasmerrors "github.com/wasmtools/wasmdecompile/errors"
)

// Validate checks the module for structural validity: every
// module-level index reference resolves within its space, export names
// are unique, the start function has signature [] -> [], and section
// entry counts agree with each other. Indices inside function bodies
// and initializer expressions are not checked.
func (m *Module) Validate() error {
	if err := m.validateTypeIndices(); err != nil {
		return err
	}
	if err := m.validateFunctionIndices(); err != nil {
		return err
	}
	if err := m.validateTableIndices(); err != nil {
		return err
	}
	if err := m.validateMemoryIndices(); err != nil {
		return err
	}
	if err := m.validateGlobalIndices(); err != nil {
		return err
	}
	if err := m.validateExports(); err != nil {
		return err
	}
	if err := m.validateStart(); err != nil {
		return err
	}
	if err := m.validateCodeCount(); err != nil {
		return err
	}
	if err := m.validateMemoryLimits(); err != nil {
		return err
	}
	return nil
}

// ParseModuleValidate parses a WebAssembly binary and validates it.
// This is a convenience function combining ParseModule and Validate.
func ParseModuleValidate(data []byte) (*Module, error) {
	m, err := ParseModule(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) validateTypeIndices() error {
	numTypes := uint32(m.NumTypes())

	for i, typeIdx := range m.Funcs {
		if typeIdx >= numTypes {
			return wasmerrors.New(wasmerrors.PhaseDecode, wasmerrors.KindBadIndex).
				Path("function", fmt.Sprintf("%d", i)).
				Detail("type index %d out of range (count %d)", typeIdx, numTypes).
				Build()
		}
	}

	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && imp.Desc.TypeIdx >= numTypes {
			return wasmerrors.New(wasmerrors.PhaseDecode, wasmerrors.KindBadIndex).
				Path("import", fmt.Sprintf("%d", i)).
				Detail("%s.%s references invalid type index %d", imp.Module, imp.Name, imp.Desc.TypeIdx).
				Build()
		}
	}

	return nil
}

func (m *Module) validateFunctionIndices() error {
	numFuncs := uint32(m.NumImportedFuncs() + len(m.Funcs))

	if m.Start != nil && *m.Start >= numFuncs {
		return wasmerrors.BadIndex(wasmerrors.PhaseDecode, "function", *m.Start, numFuncs)
	}

	for i, elem := range m.Elements {
		for j, funcIdx := range elem.FuncIdxs {
			if funcIdx >= numFuncs {
				return wasmerrors.New(wasmerrors.PhaseDecode, wasmerrors.KindBadIndex).
					Path("element", fmt.Sprintf("%d", i), fmt.Sprintf("entry %d", j)).
					Detail("function index %d out of range (count %d)", funcIdx, numFuncs).
					Build()
			}
		}
	}

	for i, exp := range m.Exports {
		if exp.Kind == KindFunc && exp.Idx >= numFuncs {
			return wasmerrors.New(wasmerrors.PhaseDecode, wasmerrors.KindBadIndex).
				Path("export", fmt.Sprintf("%d", i)).
				Detail("%s references invalid function index %d", exp.Name, exp.Idx).
				Build()
		}
	}

	return nil
}

func (m *Module) validateTableIndices() error {
	numTables := uint32(m.NumImportedTables() + len(m.Tables))

	for i, elem := range m.Elements {
		if elem.TableIdx >= numTables {
			return wasmerrors.New(wasmerrors.PhaseDecode, wasmerrors.KindBadIndex).
				Path("element", fmt.Sprintf("%d", i)).
				Detail("table index %d out of range (count %d)", elem.TableIdx, numTables).
				Build()
		}
	}

	for i, exp := range m.Exports {
		if exp.Kind == KindTable && exp.Idx >= numTables {
			return wasmerrors.New(wasmerrors.PhaseDecode, wasmerrors.KindBadIndex).
				Path("export", fmt.Sprintf("%d", i)).
				Detail("%s references invalid table index %d", exp.Name, exp.Idx).
				Build()
		}
	}

	return nil
}

func (m *Module) validateMemoryIndices() error {
	numMemories := uint32(m.NumImportedMemories() + len(m.Memories))

	for i, data := range m.Data {
		if data.MemIdx >= numMemories {
			return wasmerrors.New(wasmerrors.PhaseDecode, wasmerrors.KindBadIndex).
				Path("data", fmt.Sprintf("%d", i)).
				Detail("memory index %d out of range (count %d)", data.MemIdx, numMemories).
				Build()
		}
	}

	for i, exp := range m.Exports {
		if exp.Kind == KindMemory && exp.Idx >= numMemories {
			return wasmerrors.New(wasmerrors.PhaseDecode, wasmerrors.KindBadIndex).
				Path("export", fmt.Sprintf("%d", i)).
				Detail("%s references invalid memory index %d", exp.Name, exp.Idx).
				Build()
		}
	}

	return nil
}

func (m *Module) validateGlobalIndices() error {
	numGlobals := uint32(m.NumImportedGlobals() + len(m.Globals))

	for i, exp := range m.Exports {
		if exp.Kind == KindGlobal && exp.Idx >= numGlobals {
			return wasmerrors.New(wasmerrors.PhaseDecode, wasmerrors.KindBadIndex).
				Path("export", fmt.Sprintf("%d", i)).
				Detail("%s references invalid global index %d", exp.Name, exp.Idx).
				Build()
		}
	}

	return nil
}

func (m *Module) validateExports() error {
	seen := make(map[string]bool)
	for i, exp := range m.Exports {
		if seen[exp.Name] {
			return fmt.Errorf("duplicate export name %q at index %d", exp.Name, i)
		}
		seen[exp.Name] = true
	}
	return nil
}

func (m *Module) validateStart() error {
	if m.Start == nil {
		return nil
	}

	funcType := m.GetFuncType(*m.Start)
	if funcType == nil {
		return wasmerrors.BadIndex(wasmerrors.PhaseDecode, "function", *m.Start, uint32(m.NumImportedFuncs()+len(m.Funcs)))
	}

	if len(funcType.Params) != 0 || len(funcType.Results) != 0 {
		return fmt.Errorf("start function must have signature [] -> [], got [%d params] -> [%d results]",
			len(funcType.Params), len(funcType.Results))
	}

	return nil
}

func (m *Module) validateCodeCount() error {
	if len(m.Code) > 0 && len(m.Code) != len(m.Funcs) {
		return fmt.Errorf("code section has %d entries but function section has %d",
			len(m.Code), len(m.Funcs))
	}
	return nil
}

func (m *Module) validateMemoryLimits() error {
	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindMemory && imp.Desc.Memory != nil {
			if err := validateMemoryType(imp.Desc.Memory, i, true); err != nil {
				return err
			}
		}
	}
	for i := range m.Memories {
		if err := validateMemoryType(&m.Memories[i], i, false); err != nil {
			return err
		}
	}
	return nil
}

func validateMemoryType(mem *MemoryType, idx int, isImport bool) error {
	prefix := "memory"
	if isImport {
		prefix = "imported memory"
	}

	if mem.Limits.Min > MemoryMaxPages {
		return fmt.Errorf("%s %d: min pages %d exceeds maximum %d",
			prefix, idx, mem.Limits.Min, MemoryMaxPages)
	}
	if mem.Limits.Max != nil && *mem.Limits.Max > MemoryMaxPages {
		return fmt.Errorf("%s %d: max pages %d exceeds maximum %d",
			prefix, idx, *mem.Limits.Max, MemoryMaxPages)
	}
	return nil
}
