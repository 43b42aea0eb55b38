package wasm_test

import (
	"encoding/binary"
	"errors"
	"testing"

	wasmerrors "github.com/wasmtools/wasmdecompile/errors"
	"github.com/wasmtools/wasmdecompile/wasm"
)

// u32 encodes n as unsigned LEB128.
func u32(n uint32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7F)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			break
		}
	}
	return out
}

func header() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], wasm.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], wasm.Version)
	return buf
}

func section(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, u32(uint32(len(body)))...)
	out = append(out, body...)
	return out
}

func emptyModule() []byte {
	return header()
}

func TestParseModuleEmpty(t *testing.T) {
	m, err := wasm.ParseModule(emptyModule())
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(m.Types) != 0 || len(m.Funcs) != 0 {
		t.Errorf("expected empty module, got %+v", m)
	}
}

func TestParseModuleBadMagic(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}
	_, err := wasm.ParseModule(data)
	var werr *wasmerrors.Error
	if !errors.As(err, &werr) || werr.Kind != wasmerrors.KindBadMagic {
		t.Fatalf("expected bad-magic error, got %v", err)
	}
}

func TestParseModuleUnexpectedVersionWarnsNotErrors(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], wasm.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], 2)
	m, err := wasm.ParseModule(buf)
	if err != nil {
		t.Fatalf("expected version mismatch to only warn, got error: %v", err)
	}
	if m == nil {
		t.Fatal("expected non-nil module")
	}
}

func TestParseModuleTruncatedHeader(t *testing.T) {
	_, err := wasm.ParseModule([]byte{0x00, 0x61, 0x73})
	var werr *wasmerrors.Error
	if !errors.As(err, &werr) || werr.Kind != wasmerrors.KindTruncated {
		t.Fatalf("expected decode-truncated error, got %v", err)
	}
}

func TestParseModuleTypeSection(t *testing.T) {
	// One func type: (i32, i32) -> i32
	body := append(u32(1), wasm.FuncTypeByte)
	body = append(body, u32(2)...)
	body = append(body, byte(wasm.ValI32), byte(wasm.ValI32))
	body = append(body, u32(1)...)
	body = append(body, byte(wasm.ValI32))

	data := append(header(), section(wasm.SectionType, body)...)
	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(m.Types) != 1 {
		t.Fatalf("expected 1 type, got %d", len(m.Types))
	}
	ft := m.Types[0]
	if len(ft.Params) != 2 || len(ft.Results) != 1 {
		t.Errorf("unexpected type shape: %+v", ft)
	}
}

func TestParseModuleUnsupportedTypeForm(t *testing.T) {
	body := append(u32(1), 0x00) // not FuncTypeByte
	data := append(header(), section(wasm.SectionType, body)...)
	_, err := wasm.ParseModule(data)
	if err == nil {
		t.Fatal("expected error for unsupported type form")
	}
}

func TestParseModuleImportExport(t *testing.T) {
	// Type section: () -> ()
	typeBody := append(u32(1), wasm.FuncTypeByte)
	typeBody = append(typeBody, u32(0)...)
	typeBody = append(typeBody, u32(0)...)

	// Import: "env"."f" func type 0
	importBody := u32(1)
	importBody = append(importBody, name("env")...)
	importBody = append(importBody, name("f")...)
	importBody = append(importBody, wasm.KindFunc)
	importBody = append(importBody, u32(0)...)

	// Export: "f" func 0
	exportBody := u32(1)
	exportBody = append(exportBody, name("f")...)
	exportBody = append(exportBody, wasm.KindFunc)
	exportBody = append(exportBody, u32(0)...)

	data := append(header(), section(wasm.SectionType, typeBody)...)
	data = append(data, section(wasm.SectionImport, importBody)...)
	data = append(data, section(wasm.SectionExport, exportBody)...)

	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(m.Imports) != 1 || m.Imports[0].Module != "env" || m.Imports[0].Name != "f" {
		t.Fatalf("unexpected imports: %+v", m.Imports)
	}
	if len(m.Exports) != 1 || m.Exports[0].Name != "f" {
		t.Fatalf("unexpected exports: %+v", m.Exports)
	}

	funcs := m.Functions()
	if len(funcs) != 1 || !funcs[0].Imported || !funcs[0].Exported {
		t.Fatalf("unexpected function: %+v", funcs)
	}
}

func TestParseModuleBadImportKind(t *testing.T) {
	importBody := u32(1)
	importBody = append(importBody, name("env")...)
	importBody = append(importBody, name("f")...)
	importBody = append(importBody, 0x09) // invalid kind
	data := append(header(), section(wasm.SectionImport, importBody)...)
	_, err := wasm.ParseModule(data)
	if err == nil {
		t.Fatal("expected error for unknown import kind")
	}
}

func TestParseModuleTableMemoryGlobal(t *testing.T) {
	tableBody := u32(1)
	tableBody = append(tableBody, byte(wasm.ValFuncRef), wasm.LimitsNoMax)
	tableBody = append(tableBody, u32(1)...)

	memBody := u32(1)
	memBody = append(memBody, wasm.LimitsNoMax)
	memBody = append(memBody, u32(1)...)

	globalBody := u32(1)
	globalBody = append(globalBody, byte(wasm.ValI32), 0x01) // mutable i32
	globalBody = append(globalBody, wasm.OpI32Const)
	globalBody = append(globalBody, u32(42)...)
	globalBody = append(globalBody, wasm.OpEnd)

	data := append(header(), section(wasm.SectionTable, tableBody)...)
	data = append(data, section(wasm.SectionMemory, memBody)...)
	data = append(data, section(wasm.SectionGlobal, globalBody)...)

	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(m.Tables) != 1 || len(m.Memories) != 1 || len(m.Globals) != 1 {
		t.Fatalf("unexpected section lengths: tables=%d memories=%d globals=%d",
			len(m.Tables), len(m.Memories), len(m.Globals))
	}
	if !m.Globals[0].Type.Mutable {
		t.Error("expected global to be mutable")
	}
}

func TestParseModuleUnsupportedTableElemType(t *testing.T) {
	tableBody := u32(1)
	tableBody = append(tableBody, byte(wasm.ValI32), wasm.LimitsNoMax) // i32 is not a ref type
	tableBody = append(tableBody, u32(1)...)
	data := append(header(), section(wasm.SectionTable, tableBody)...)
	_, err := wasm.ParseModule(data)
	if err == nil {
		t.Fatal("expected error for non-reference table element type")
	}
}

func TestParseModuleLimitsMinExceedsMax(t *testing.T) {
	memBody := u32(1)
	memBody = append(memBody, wasm.LimitsHasMax)
	memBody = append(memBody, u32(5)...)
	memBody = append(memBody, u32(1)...)
	data := append(header(), section(wasm.SectionMemory, memBody)...)
	_, err := wasm.ParseModule(data)
	if err == nil {
		t.Fatal("expected error for min exceeding max")
	}
}

func TestParseModuleElementSectionActiveForm(t *testing.T) {
	elemBody := u32(1)
	elemBody = append(elemBody, u32(0)...) // flags = 0 (active)
	elemBody = append(elemBody, wasm.OpI32Const)
	elemBody = append(elemBody, u32(0)...)
	elemBody = append(elemBody, wasm.OpEnd)
	elemBody = append(elemBody, u32(2)...)
	elemBody = append(elemBody, u32(0)...)
	elemBody = append(elemBody, u32(1)...)

	data := append(header(), section(wasm.SectionElement, elemBody)...)
	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(m.Elements) != 1 || len(m.Elements[0].FuncIdxs) != 2 {
		t.Fatalf("unexpected elements: %+v", m.Elements)
	}
}

func TestParseModuleElementSectionRejectsNonActiveFlags(t *testing.T) {
	elemBody := u32(1)
	elemBody = append(elemBody, u32(1)...) // flags = 1 (passive, bulk-memory, out of scope)
	data := append(header(), section(wasm.SectionElement, elemBody)...)
	_, err := wasm.ParseModule(data)
	if err == nil {
		t.Fatal("expected error for non-active element segment")
	}
}

func TestParseModuleDataSectionRejectsNonActiveFlags(t *testing.T) {
	dataBody := u32(1)
	dataBody = append(dataBody, u32(2)...) // flags = 2 (active with explicit memidx, bulk-memory)
	data := append(header(), section(wasm.SectionData, dataBody)...)
	_, err := wasm.ParseModule(data)
	if err == nil {
		t.Fatal("expected error for non-active data segment")
	}
}

func TestParseModuleCodeSection(t *testing.T) {
	typeBody := append(u32(1), wasm.FuncTypeByte)
	typeBody = append(typeBody, u32(0)...)
	typeBody = append(typeBody, u32(0)...)

	funcBody := u32(1)
	funcBody = append(funcBody, u32(0)...)

	code := u32(1) // 1 local entry
	code = append(code, u32(2)...)
	code = append(code, byte(wasm.ValI32))
	code = append(code, wasm.OpEnd)

	codeBody := u32(1)
	codeBody = append(codeBody, u32(uint32(len(code)))...)
	codeBody = append(codeBody, code...)

	data := append(header(), section(wasm.SectionType, typeBody)...)
	data = append(data, section(wasm.SectionFunction, funcBody)...)
	data = append(data, section(wasm.SectionCode, codeBody)...)

	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(m.Code) != 1 || len(m.Code[0].Locals) != 1 || m.Code[0].Locals[0].Count != 2 {
		t.Fatalf("unexpected code: %+v", m.Code)
	}
}

func TestParseModuleSectionOutOfOrder(t *testing.T) {
	funcBody := u32(0)
	typeBody := u32(0)
	data := append(header(), section(wasm.SectionFunction, funcBody)...)
	data = append(data, section(wasm.SectionType, typeBody)...)
	_, err := wasm.ParseModule(data)
	if err == nil {
		t.Fatal("expected error for out-of-order sections")
	}
}

func TestParseModuleCustomSectionAnyOrder(t *testing.T) {
	customBody := name("producers")
	customBody = append(customBody, 0x01, 0x02, 0x03)
	data := append(header(), section(wasm.SectionCustom, customBody)...)
	data = append(data, section(wasm.SectionType, u32(0))...)
	data = append(data, section(wasm.SectionCustom, customBody)...)

	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(m.CustomSections) != 2 {
		t.Fatalf("expected 2 custom sections, got %d", len(m.CustomSections))
	}
}

func TestParseModuleSectionSizeMismatch(t *testing.T) {
	// Declare 5 bytes for the type section but only provide a valid
	// zero-count encoding (1 byte), leaving a residual.
	data := append(header(), wasm.SectionType)
	data = append(data, u32(5)...)
	data = append(data, u32(0)...)
	data = append(data, 0xFF, 0xFF, 0xFF, 0xFF)

	_, err := wasm.ParseModule(data)
	var werr *wasmerrors.Error
	if !errors.As(err, &werr) || werr.Kind != wasmerrors.KindSectionSizeMismatch {
		t.Fatalf("expected section-size-mismatch, got %v", err)
	}
}

func TestParseModuleStartSection(t *testing.T) {
	typeBody := append(u32(1), wasm.FuncTypeByte)
	typeBody = append(typeBody, u32(0)...)
	typeBody = append(typeBody, u32(0)...)
	funcBody := append(u32(1), u32(0)...)
	startBody := u32(0)

	data := append(header(), section(wasm.SectionType, typeBody)...)
	data = append(data, section(wasm.SectionFunction, funcBody)...)
	data = append(data, section(wasm.SectionStart, startBody)...)

	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if m.Start == nil || *m.Start != 0 {
		t.Fatalf("expected start function 0, got %+v", m.Start)
	}
}

func TestParseModuleInvalidInitExpr(t *testing.T) {
	globalBody := u32(1)
	globalBody = append(globalBody, byte(wasm.ValI32), 0x00)
	globalBody = append(globalBody, wasm.OpLocalGet) // not a valid init expr opcode
	globalBody = append(globalBody, u32(0)...)
	globalBody = append(globalBody, wasm.OpEnd)
	data := append(header(), section(wasm.SectionGlobal, globalBody)...)
	_, err := wasm.ParseModule(data)
	var werr *wasmerrors.Error
	if !errors.As(err, &werr) || werr.Kind != wasmerrors.KindBadInitExpr {
		t.Fatalf("expected bad-init-expr error, got %v", err)
	}
}

func TestParseModuleInitExprMissingEnd(t *testing.T) {
	globalBody := u32(1)
	globalBody = append(globalBody, byte(wasm.ValI32), 0x00)
	globalBody = append(globalBody, wasm.OpI32Const)
	globalBody = append(globalBody, u32(1)...)
	globalBody = append(globalBody, wasm.OpI32Const) // missing end, another opcode instead
	globalBody = append(globalBody, u32(1)...)
	globalBody = append(globalBody, wasm.OpEnd)
	data := append(header(), section(wasm.SectionGlobal, globalBody)...)
	_, err := wasm.ParseModule(data)
	var werr *wasmerrors.Error
	if !errors.As(err, &werr) || werr.Kind != wasmerrors.KindBadInitExpr {
		t.Fatalf("expected bad-init-expr error, got %v", err)
	}
}

func TestParseModuleValidateCatchesBadIndex(t *testing.T) {
	funcBody := append(u32(1), u32(0)...) // function section references type 0, but no types exist
	data := append(header(), section(wasm.SectionFunction, funcBody)...)
	_, err := wasm.ParseModuleValidate(data)
	var werr *wasmerrors.Error
	if !errors.As(err, &werr) || werr.Kind != wasmerrors.KindBadIndex {
		t.Fatalf("expected bad-index error, got %v", err)
	}
}

func TestParseModuleEncodeRoundTrip(t *testing.T) {
	typeBody := append(u32(1), wasm.FuncTypeByte)
	typeBody = append(typeBody, u32(1)...)
	typeBody = append(typeBody, byte(wasm.ValI32))
	typeBody = append(typeBody, u32(1)...)
	typeBody = append(typeBody, byte(wasm.ValI32))

	funcBody := append(u32(1), u32(0)...)

	code := u32(0)
	code = append(code, wasm.OpLocalGet)
	code = append(code, u32(0)...)
	code = append(code, wasm.OpEnd)
	codeBody := u32(1)
	codeBody = append(codeBody, u32(uint32(len(code)))...)
	codeBody = append(codeBody, code...)

	data := append(header(), section(wasm.SectionType, typeBody)...)
	data = append(data, section(wasm.SectionFunction, funcBody)...)
	data = append(data, section(wasm.SectionCode, codeBody)...)

	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}

	reencoded := m.Encode()
	m2, err := wasm.ParseModule(reencoded)
	if err != nil {
		t.Fatalf("re-parse of re-encoded module: %v", err)
	}
	if len(m2.Types) != len(m.Types) || len(m2.Code) != len(m.Code) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", m2, m)
	}
}

func name(s string) []byte {
	out := u32(uint32(len(s)))
	out = append(out, s...)
	return out
}
