package wasm

import (
	"bytes"
	"errors"
	"testing"

	wasmerrors "github.com/wasmtools/wasmdecompile/errors"
	"github.com/wasmtools/wasmdecompile/wasm/internal/binary"
)

func TestSectionOrderCanonical(t *testing.T) {
	order := []byte{
		SectionType, SectionImport, SectionFunction, SectionTable,
		SectionMemory, SectionGlobal, SectionExport, SectionStart,
		SectionElement, SectionCode, SectionData,
	}
	prev := -1
	for _, id := range order {
		got := sectionOrder(id)
		if got <= prev {
			t.Errorf("section 0x%02x: order %d did not increase past %d", id, got, prev)
		}
		prev = got
	}
}

func TestSectionOrderUnknownSortsLast(t *testing.T) {
	if sectionOrder(0xFE) <= sectionOrder(SectionData) {
		t.Error("unknown section ID should sort after every known section")
	}
}

func TestWrapByteErrTruncated(t *testing.T) {
	r := binary.NewReader(bytes.NewReader(nil))
	_, err := r.ReadByte()
	wrapped := wrapByteErr(r, err)
	var werr *wasmerrors.Error
	if !errors.As(wrapped, &werr) || werr.Kind != wasmerrors.KindTruncated {
		t.Fatalf("expected decode-truncated, got %v", wrapped)
	}
}

func TestWrapByteErrNilIsNil(t *testing.T) {
	r := binary.NewReader(bytes.NewReader(nil))
	if wrapByteErr(r, nil) != nil {
		t.Error("expected nil passthrough")
	}
}

func TestWrapLEBErrOverflowVsTruncation(t *testing.T) {
	r := binary.NewReader(bytes.NewReader(nil))

	overflow := wrapLEBErr(r, binary.ErrOverflow, 32)
	var werr *wasmerrors.Error
	if !errors.As(overflow, &werr) || werr.Kind != wasmerrors.KindLEBOverflow {
		t.Fatalf("expected leb128-overflow, got %v", overflow)
	}

	truncated := wrapLEBErr(r, errors.New("eof"), 32)
	if !errors.As(truncated, &werr) || werr.Kind != wasmerrors.KindTruncated {
		t.Fatalf("expected decode-truncated, got %v", truncated)
	}
}

func TestWrapNameErrInvalidUTF8(t *testing.T) {
	r := binary.NewReader(bytes.NewReader(nil))
	wrapped := wrapNameErr(r, binary.ErrInvalidUTF8)
	var werr *wasmerrors.Error
	if !errors.As(wrapped, &werr) || werr.Kind != wasmerrors.KindInvalidUTF8 {
		t.Fatalf("expected utf8-invalid, got %v", wrapped)
	}
}

func TestCopyLEB128StopsAtContinuationBitClear(t *testing.T) {
	r := binary.NewReader(bytes.NewReader([]byte{0x80, 0x80, 0x01, 0xFF}))
	var buf bytes.Buffer
	if err := copyLEB128(r, &buf); err != nil {
		t.Fatalf("copyLEB128: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0x80, 0x80, 0x01}) {
		t.Errorf("copyLEB128: got %v, want [0x80 0x80 0x01]", buf.Bytes())
	}
	if r.Position() != 3 {
		t.Errorf("position: got %d, want 3 (trailing byte untouched)", r.Position())
	}
}

func TestReadInitExprRecognizesAllConstForms(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"i32.const", append([]byte{OpI32Const}, append(leb(5), OpEnd)...)},
		{"i64.const", append([]byte{OpI64Const}, append(leb(5), OpEnd)...)},
		{"f32.const", append([]byte{OpF32Const}, append([]byte{0, 0, 0, 0}, OpEnd)...)},
		{"f64.const", append([]byte{OpF64Const}, append([]byte{0, 0, 0, 0, 0, 0, 0, 0}, OpEnd)...)},
		{"global.get", append([]byte{OpGlobalGet}, append(leb(0), OpEnd)...)},
	}
	for _, c := range cases {
		r := binary.NewReader(bytes.NewReader(c.data))
		if _, err := readInitExpr(r); err != nil {
			t.Errorf("%s: readInitExpr: %v", c.name, err)
		}
	}
}

func TestReadInitExprRejectsUnrecognizedOpcode(t *testing.T) {
	r := binary.NewReader(bytes.NewReader([]byte{OpNop, OpEnd}))
	_, err := readInitExpr(r)
	var werr *wasmerrors.Error
	if !errors.As(err, &werr) || werr.Kind != wasmerrors.KindBadInitExpr {
		t.Fatalf("expected bad-init-expr, got %v", err)
	}
}

func TestReadLimitsRejectsMinGreaterThanMax(t *testing.T) {
	data := append([]byte{LimitsHasMax}, append(leb(10), leb(2)...)...)
	r := binary.NewReader(bytes.NewReader(data))
	_, err := readLimits(r)
	if err == nil {
		t.Fatal("expected error when min exceeds max")
	}
}

func TestReadLimitsNoMax(t *testing.T) {
	data := append([]byte{LimitsNoMax}, leb(3)...)
	r := binary.NewReader(bytes.NewReader(data))
	l, err := readLimits(r)
	if err != nil {
		t.Fatalf("readLimits: %v", err)
	}
	if l.Min != 3 || l.Max != nil {
		t.Errorf("unexpected limits: %+v", l)
	}
}

func TestReadTableTypeRejectsNonRefElemType(t *testing.T) {
	data := append([]byte{byte(ValI32)}, append([]byte{LimitsNoMax}, leb(0)...)...)
	r := binary.NewReader(bytes.NewReader(data))
	_, err := readTableType(r)
	if err == nil {
		t.Fatal("expected error for non-reference table element type")
	}
}

func leb(n uint32) []byte {
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
