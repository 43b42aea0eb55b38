package wasm

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	wasmerrors "github.com/wasmtools/wasmdecompile/errors"
	"github.com/wasmtools/wasmdecompile/wasm/internal/binary"
)

// ParseModule parses a WebAssembly binary module (version 1, MVP opcode
// and section set).
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(bytes.NewReader(data))
	debugf("decoding module (%d bytes)", len(data))

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapByteErr(r, err)
	}
	if magic != Magic {
		return nil, wasmerrors.BadMagic(magic)
	}

	version, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapByteErr(r, err)
	}
	if version != Version {
		Logger().Sugar().Warnf("unexpected wasm version 0x%08x, continuing", version)
	}

	m := &Module{}

	// Canonical section order; for the known sections it is their ID order.
	var lastSectionOrder int

	for {
		sectionID, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, wrapByteErr(r, err)
		}

		if sectionID != SectionCustom {
			order := sectionOrder(sectionID)
			if order <= lastSectionOrder {
				return nil, fmt.Errorf("section 0x%02x appears out of order", sectionID)
			}
			lastSectionOrder = order
		}

		sectionSize, err := r.ReadU32()
		if err != nil {
			return nil, wrapErr32(r, err)
		}

		sectionData, err := r.ReadBytes(int(sectionSize))
		if err != nil {
			return nil, wrapByteErr(r, err)
		}

		sr := binary.NewReader(bytes.NewReader(sectionData))
		debugf("section 0x%02x: %d bytes", sectionID, sectionSize)

		switch sectionID {
		case SectionCustom:
			err = parseCustomSection(sr, m)
		case SectionType:
			err = parseTypeSection(sr, m)
		case SectionImport:
			err = parseImportSection(sr, m)
		case SectionFunction:
			err = parseFunctionSection(sr, m)
		case SectionTable:
			err = parseTableSection(sr, m)
		case SectionMemory:
			err = parseMemorySection(sr, m)
		case SectionGlobal:
			err = parseGlobalSection(sr, m)
		case SectionExport:
			err = parseExportSection(sr, m)
		case SectionStart:
			err = parseStartSection(sr, m)
		case SectionElement:
			err = parseElementSection(sr, m)
		case SectionCode:
			err = parseCodeSection(sr, m)
		case SectionData:
			err = parseDataSection(sr, m)
		default:
			err = fmt.Errorf("unknown section ID: 0x%02x", sectionID)
		}
		if err != nil {
			return nil, err
		}

		if sr.Position() != len(sectionData) {
			return nil, wasmerrors.SectionSizeMismatch(sectionID, len(sectionData), sr.Position())
		}
	}

	return m, nil
}

// sectionOrder returns the canonical ordering for a section ID. Custom
// sections (handled separately by the caller) may appear anywhere.
func sectionOrder(id byte) int {
	switch id {
	case SectionType:
		return 1
	case SectionImport:
		return 2
	case SectionFunction:
		return 3
	case SectionTable:
		return 4
	case SectionMemory:
		return 5
	case SectionGlobal:
		return 6
	case SectionExport:
		return 7
	case SectionStart:
		return 8
	case SectionElement:
		return 9
	case SectionCode:
		return 10
	case SectionData:
		return 11
	default:
		return 100
	}
}

func parseCustomSection(r *binary.Reader, m *Module) error {
	name, err := r.ReadName()
	if err != nil {
		return wrapNameErr(r, err)
	}
	rest, err := r.ReadRemaining()
	if err != nil {
		return wrapByteErr(r, err)
	}
	m.CustomSections = append(m.CustomSections, CustomSection{
		Name: name,
		Data: rest,
	})
	return nil
}

func parseTypeSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return wrapErr32(r, err)
	}
	m.Types = make([]FuncType, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return wrapByteErr(r, err)
		}
		if form != FuncTypeByte {
			return fmt.Errorf("unsupported type form 0x%02x", form)
		}
		ft, err := readFuncType(r)
		if err != nil {
			return err
		}
		m.Types[i] = ft
	}
	return nil
}

func readFuncType(r *binary.Reader) (FuncType, error) {
	params, err := readValTypes(r)
	if err != nil {
		return FuncType{}, err
	}
	results, err := readValTypes(r)
	if err != nil {
		return FuncType{}, err
	}
	return FuncType{Params: params, Results: results}, nil
}

func readValTypes(r *binary.Reader) ([]ValType, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, wrapErr32(r, err)
	}
	types := make([]ValType, count)
	for i := uint32(0); i < count; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return nil, wrapByteErr(r, err)
		}
		types[i] = ValType(b)
	}
	return types, nil
}

func parseImportSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return wrapErr32(r, err)
	}
	m.Imports = make([]Import, count)
	for i := uint32(0); i < count; i++ {
		module, err := r.ReadName()
		if err != nil {
			return wrapNameErr(r, err)
		}
		name, err := r.ReadName()
		if err != nil {
			return wrapNameErr(r, err)
		}
		kind, err := r.ReadByte()
		if err != nil {
			return wrapByteErr(r, err)
		}

		imp := Import{Module: module, Name: name, Desc: ImportDesc{Kind: kind}}

		switch kind {
		case KindFunc:
			imp.Desc.TypeIdx, err = r.ReadU32()
			if err != nil {
				return wrapErr32(r, err)
			}
		case KindTable:
			table, err := readTableType(r)
			if err != nil {
				return err
			}
			imp.Desc.Table = &table
		case KindMemory:
			memory, err := readMemoryType(r)
			if err != nil {
				return err
			}
			imp.Desc.Memory = &memory
		case KindGlobal:
			global, err := readGlobalType(r)
			if err != nil {
				return err
			}
			imp.Desc.Global = &global
		default:
			return fmt.Errorf("unknown import kind: %d", kind)
		}

		m.Imports[i] = imp
	}
	return nil
}

func parseFunctionSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return wrapErr32(r, err)
	}
	m.Funcs = make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		m.Funcs[i], err = r.ReadU32()
		if err != nil {
			return wrapErr32(r, err)
		}
	}
	return nil
}

func parseTableSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return wrapErr32(r, err)
	}
	m.Tables = make([]TableType, count)
	for i := uint32(0); i < count; i++ {
		m.Tables[i], err = readTableType(r)
		if err != nil {
			return err
		}
	}
	return nil
}

func parseMemorySection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return wrapErr32(r, err)
	}
	m.Memories = make([]MemoryType, count)
	for i := uint32(0); i < count; i++ {
		m.Memories[i], err = readMemoryType(r)
		if err != nil {
			return err
		}
	}
	return nil
}

func parseGlobalSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return wrapErr32(r, err)
	}
	m.Globals = make([]Global, count)
	for i := uint32(0); i < count; i++ {
		globalType, err := readGlobalType(r)
		if err != nil {
			return err
		}
		init, err := readInitExpr(r)
		if err != nil {
			return err
		}
		m.Globals[i] = Global{
			Type: globalType,
			Init: init,
		}
	}
	return nil
}

func parseExportSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return wrapErr32(r, err)
	}
	m.Exports = make([]Export, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadName()
		if err != nil {
			return wrapNameErr(r, err)
		}
		kind, err := r.ReadByte()
		if err != nil {
			return wrapByteErr(r, err)
		}
		if kind > KindGlobal {
			return fmt.Errorf("invalid export kind: 0x%02x", kind)
		}
		idx, err := r.ReadU32()
		if err != nil {
			return wrapErr32(r, err)
		}
		m.Exports[i] = Export{Name: name, Kind: kind, Idx: idx}
	}
	return nil
}

func parseStartSection(r *binary.Reader, m *Module) error {
	idx, err := r.ReadU32()
	if err != nil {
		return wrapErr32(r, err)
	}
	m.Start = &idx
	return nil
}

// parseElementSection reads element segments. Only the active, funcref
// form used by version-1 binaries (flags == 0: table 0, offset
// expression, vector of function indices) is supported.
func parseElementSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return wrapErr32(r, err)
	}
	m.Elements = make([]Element, count)
	for i := uint32(0); i < count; i++ {
		flags, err := r.ReadU32()
		if err != nil {
			return wrapErr32(r, err)
		}
		if flags != 0 {
			return fmt.Errorf("unsupported element segment flags: %d", flags)
		}

		offset, err := readInitExpr(r)
		if err != nil {
			return err
		}

		vecCount, err := r.ReadU32()
		if err != nil {
			return wrapErr32(r, err)
		}
		funcIdxs := make([]uint32, vecCount)
		for j := uint32(0); j < vecCount; j++ {
			funcIdxs[j], err = r.ReadU32()
			if err != nil {
				return wrapErr32(r, err)
			}
		}

		m.Elements[i] = Element{Flags: flags, Offset: offset, FuncIdxs: funcIdxs}
	}
	return nil
}

func parseCodeSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return wrapErr32(r, err)
	}
	m.Code = make([]FuncBody, count)
	for i := uint32(0); i < count; i++ {
		bodySize, err := r.ReadU32()
		if err != nil {
			return wrapErr32(r, err)
		}
		bodyData, err := r.ReadBytes(int(bodySize))
		if err != nil {
			return wrapByteErr(r, err)
		}

		br := binary.NewReader(bytes.NewReader(bodyData))

		localCount, err := br.ReadU32()
		if err != nil {
			return wrapErr32(br, err)
		}
		var locals []LocalEntry
		for j := uint32(0); j < localCount; j++ {
			n, err := br.ReadU32()
			if err != nil {
				return wrapErr32(br, err)
			}
			t, err := br.ReadByte()
			if err != nil {
				return wrapByteErr(br, err)
			}
			locals = append(locals, LocalEntry{Count: n, ValType: ValType(t)})
		}

		code, err := br.ReadRemaining()
		if err != nil {
			return wrapByteErr(br, err)
		}

		m.Code[i] = FuncBody{Locals: locals, Code: code}
	}
	return nil
}

// parseDataSection reads data segments. Only the active form used by
// version-1 binaries (flags == 0: memory 0, offset expression, bytes)
// is supported.
func parseDataSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return wrapErr32(r, err)
	}
	m.Data = make([]DataSegment, count)
	for i := uint32(0); i < count; i++ {
		flags, err := r.ReadU32()
		if err != nil {
			return wrapErr32(r, err)
		}
		if flags != 0 {
			return fmt.Errorf("unsupported data segment flags: %d", flags)
		}

		offset, err := readInitExpr(r)
		if err != nil {
			return err
		}

		initLen, err := r.ReadU32()
		if err != nil {
			return wrapErr32(r, err)
		}
		init, err := r.ReadBytes(int(initLen))
		if err != nil {
			return wrapByteErr(r, err)
		}

		m.Data[i] = DataSegment{Flags: flags, Offset: offset, Init: init}
	}
	return nil
}

func readLimits(r *binary.Reader) (Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, wrapByteErr(r, err)
	}

	min, err := r.ReadU32()
	if err != nil {
		return Limits{}, wrapErr32(r, err)
	}
	l := Limits{Min: uint64(min)}

	if flags&LimitsHasMax != 0 {
		max, err := r.ReadU32()
		if err != nil {
			return Limits{}, wrapErr32(r, err)
		}
		max64 := uint64(max)
		l.Max = &max64
	}

	if l.Max != nil && l.Min > *l.Max {
		return Limits{}, fmt.Errorf("limits min (%d) exceeds max (%d)", l.Min, *l.Max)
	}

	return l, nil
}

func readTableType(r *binary.Reader) (TableType, error) {
	elemType, err := r.ReadByte()
	if err != nil {
		return TableType{}, wrapByteErr(r, err)
	}
	if ValType(elemType) != ValFuncRef && ValType(elemType) != ValExtern {
		return TableType{}, fmt.Errorf("unsupported table element type 0x%02x", elemType)
	}
	limits, err := readLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: elemType, Limits: limits}, nil
}

func readMemoryType(r *binary.Reader) (MemoryType, error) {
	limits, err := readLimits(r)
	if err != nil {
		return MemoryType{}, err
	}
	return MemoryType{Limits: limits}, nil
}

func readGlobalType(r *binary.Reader) (GlobalType, error) {
	valType, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, wrapByteErr(r, err)
	}
	mut, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, wrapByteErr(r, err)
	}
	return GlobalType{ValType: ValType(valType), Mutable: mut != 0}, nil
}

// readInitExpr reads a constant initializer expression: one of the
// recognized forms (i32.const, i64.const, f32.const, f64.const,
// global.get) followed by end.
func readInitExpr(r *binary.Reader) ([]byte, error) {
	startPos := r.Position()
	op, err := r.ReadByte()
	if err != nil {
		return nil, wrapByteErr(r, err)
	}

	var buf bytes.Buffer
	buf.WriteByte(op)

	switch op {
	case OpI32Const, OpI64Const, OpGlobalGet:
		if err := copyLEB128(r, &buf); err != nil {
			return nil, wrapErr64(r, err)
		}
	case OpF32Const:
		if err := copyBytes(r, &buf, 4); err != nil {
			return nil, wrapByteErr(r, err)
		}
	case OpF64Const:
		if err := copyBytes(r, &buf, 8); err != nil {
			return nil, wrapByteErr(r, err)
		}
	default:
		return nil, wasmerrors.BadInitExpr(startPos, fmt.Sprintf("opcode 0x%02x is not a recognized constant form", op))
	}

	end, err := r.ReadByte()
	if err != nil {
		return nil, wrapByteErr(r, err)
	}
	if end != OpEnd {
		return nil, wasmerrors.BadInitExpr(startPos, "missing terminating end opcode")
	}
	buf.WriteByte(end)

	return buf.Bytes(), nil
}

func copyLEB128(r *binary.Reader, buf *bytes.Buffer) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		buf.WriteByte(b)
		if b&0x80 == 0 {
			break
		}
	}
	return nil
}

func copyBytes(r *binary.Reader, buf *bytes.Buffer, n int) error {
	data, err := r.ReadBytes(n)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

// wrapByteErr wraps a single-byte (or fixed-width) read failure as a
// decode-truncated error at the reader's current position.
func wrapByteErr(r *binary.Reader, err error) error {
	if err == nil {
		return nil
	}
	return wasmerrors.Truncated(wasmerrors.PhaseDecode, r.Position())
}

// wrapErr32 wraps a 32-bit LEB128 read failure, distinguishing overflow
// from truncation.
func wrapErr32(r *binary.Reader, err error) error {
	return wrapLEBErr(r, err, 32)
}

// wrapErr64 wraps a 64-bit LEB128 read failure, distinguishing overflow
// from truncation.
func wrapErr64(r *binary.Reader, err error) error {
	return wrapLEBErr(r, err, 64)
}

func wrapLEBErr(r *binary.Reader, err error, bits int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, binary.ErrOverflow) {
		return wasmerrors.LEBOverflow(r.Position(), bits)
	}
	return wasmerrors.Truncated(wasmerrors.PhaseDecode, r.Position())
}

func wrapNameErr(r *binary.Reader, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, binary.ErrInvalidUTF8) {
		return wasmerrors.InvalidUTF8(r.Position())
	}
	return wrapErr32(r, err)
}
