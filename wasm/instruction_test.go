package wasm_test

import (
	"errors"
	"testing"

	wasmerrors "github.com/wasmtools/wasmdecompile/errors"
	"github.com/wasmtools/wasmdecompile/wasm"
	"github.com/wasmtools/wasmdecompile/wasm/internal/binary"
)

func TestDecodeInstructionsControlFlow(t *testing.T) {
	code := []byte{
		wasm.OpBlock, 0x40, // void block type
		wasm.OpI32Const, 0x05,
		wasm.OpBrIf, 0x00,
		wasm.OpEnd,
		wasm.OpEnd,
	}
	instrs, err := wasm.DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(instrs) != 5 {
		t.Fatalf("expected 5 instructions, got %d", len(instrs))
	}
	if instrs[0].Opcode != wasm.OpBlock {
		t.Errorf("expected block first, got 0x%02x", instrs[0].Opcode)
	}
	bi, ok := instrs[0].Imm.(wasm.BlockImm)
	if !ok || bi.Type != wasm.BlockTypeVoid {
		t.Errorf("unexpected block imm: %+v", instrs[0].Imm)
	}
}

func TestDecodeInstructionsCall(t *testing.T) {
	code := []byte{wasm.OpCall, 0x07, wasm.OpEnd}
	instrs, err := wasm.DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	idx, ok := instrs[0].GetCallTarget()
	if !ok || idx != 7 {
		t.Errorf("GetCallTarget: got (%d, %v), want (7, true)", idx, ok)
	}
}

func TestDecodeInstructionsCallIndirectRejectsNonzeroTableIdx(t *testing.T) {
	code := []byte{wasm.OpCallIndirect, 0x00, 0x01}
	_, err := wasm.DecodeInstructions(code)
	var werr *wasmerrors.Error
	if !errors.As(err, &werr) || werr.Kind != wasmerrors.KindReservedNonzero {
		t.Fatalf("expected reserved-nonzero error, got %v", err)
	}
}

func TestDecodeInstructionsCallIndirectIsIndirectCall(t *testing.T) {
	code := []byte{wasm.OpCallIndirect, 0x00, 0x00}
	instrs, err := wasm.DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if !instrs[0].IsIndirectCall() {
		t.Error("expected IsIndirectCall to be true")
	}
}

func TestDecodeInstructionsMemoryOps(t *testing.T) {
	code := []byte{wasm.OpI32Load, 0x02, 0x04, wasm.OpMemoryGrow, 0x00}
	instrs, err := wasm.DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	mi, ok := instrs[0].Imm.(wasm.MemoryImm)
	if !ok || mi.Align != 2 || mi.Offset != 4 {
		t.Errorf("unexpected memory imm: %+v", instrs[0].Imm)
	}
}

func TestDecodeInstructionsConstants(t *testing.T) {
	code := []byte{wasm.OpI32Const, 0x7F} // -1 in signed LEB128
	instrs, err := wasm.DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	imm, ok := instrs[0].Imm.(wasm.I32Imm)
	if !ok || imm.Value != -1 {
		t.Errorf("unexpected i32.const imm: %+v", instrs[0].Imm)
	}
}

func TestDecodeInstructionsRejectsUnknownOpcode(t *testing.T) {
	code := []byte{0xFC} // out of MVP opcode space (bulk-memory/GC prefix)
	_, err := wasm.DecodeInstructions(code)
	var werr *wasmerrors.Error
	if !errors.As(err, &werr) || werr.Kind != wasmerrors.KindBadOpcode {
		t.Fatalf("expected bad-opcode error, got %v", err)
	}
}

func TestDecodeInstructionsSignExtension(t *testing.T) {
	code := []byte{wasm.OpI32Extend8S, wasm.OpI64Extend32S}
	instrs, err := wasm.DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(instrs) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(instrs))
	}
}

func TestEncodeInstructionsRoundTrip(t *testing.T) {
	orig := []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 42}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpEnd},
	}
	encoded := wasm.EncodeInstructions(orig)
	decoded, err := wasm.DecodeInstructions(encoded)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(decoded) != len(orig) {
		t.Fatalf("round trip length mismatch: got %d, want %d", len(decoded), len(orig))
	}
	for i := range orig {
		if decoded[i].Opcode != orig[i].Opcode {
			t.Errorf("instr %d: opcode got 0x%02x, want 0x%02x", i, decoded[i].Opcode, orig[i].Opcode)
		}
	}
}

func TestEncodeInstructionToBrTable(t *testing.T) {
	instr := wasm.Instruction{
		Opcode: wasm.OpBrTable,
		Imm:    wasm.BrTableImm{Labels: []uint32{1, 2, 3}, Default: 0},
	}
	w := binary.NewWriter()
	wasm.EncodeInstructionTo(w, &instr)

	decoded, err := wasm.DecodeInstructions(w.Bytes())
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	bt, ok := decoded[0].Imm.(wasm.BrTableImm)
	if !ok || len(bt.Labels) != 3 || bt.Default != 0 {
		t.Errorf("unexpected br_table imm: %+v", decoded[0].Imm)
	}
}
