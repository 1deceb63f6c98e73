package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	// Ensure every defined opcode has metadata
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", op)
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	if got := OpcodeCount(); got != 37 {
		t.Errorf("OpcodeCount() = %d, want 37", got)
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpHalt, "HALT"},
		{OpPush, "PUSH"},
		{OpDup, "DUP"},
		{OpAdd, "ADD"},
		{OpEq, "EQ"},
		{OpLoadVar, "LOAD_VAR"},
		{OpJmpIfNot, "JMP_IFNOT"},
		{OpCall, "CALL"},
		{OpOutput, "OUTPUT"},
		{OpDictSet, "DICT_SET"},
		{OpNop, "NOP"},
	}

	for _, tt := range tests {
		got := tt.op.String()
		if got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xAB)
	if got := op.String(); got != "UNKNOWN(0xAB)" {
		t.Errorf("unknown opcode String() = %q, want UNKNOWN(0xAB)", got)
	}
	if op.IsDefined() {
		t.Error("0xAB should not be defined")
	}
}

func TestLookupOpcode(t *testing.T) {
	for _, op := range AllOpcodes() {
		got, ok := LookupOpcode(op.String())
		if !ok || got != op {
			t.Errorf("LookupOpcode(%q) = %v, %v; want %v", op.String(), got, ok, op)
		}
	}
	if _, ok := LookupOpcode("FROB"); ok {
		t.Error("LookupOpcode(FROB) should fail")
	}
}

func TestOpcodeOperandLen(t *testing.T) {
	withOperand := []Opcode{OpPush, OpLoadVar, OpStoreVar, OpInitVar, OpJmp, OpJmpIf, OpJmpIfNot, OpCall}
	for _, op := range withOperand {
		if got := op.OperandLen(); got != OperandSize {
			t.Errorf("%s.OperandLen() = %d, want %d", op, got, OperandSize)
		}
		if got := op.InstructionLen(); got != 5 {
			t.Errorf("%s.InstructionLen() = %d, want 5", op, got)
		}
	}

	without := []Opcode{OpHalt, OpPop, OpDup, OpAdd, OpNot, OpRet, OpOutput, OpInput, OpMakeList, OpNop}
	for _, op := range without {
		if got := op.OperandLen(); got != 0 {
			t.Errorf("%s.OperandLen() = %d, want 0", op, got)
		}
	}
}

func TestOpcodeCategories(t *testing.T) {
	jumps := []Opcode{OpJmp, OpJmpIf, OpJmpIfNot}
	for _, op := range jumps {
		if !op.IsJump() {
			t.Errorf("%s.IsJump() = false, want true", op)
		}
	}
	for _, op := range []Opcode{OpCall, OpRet, OpAdd, OpNop} {
		if op.IsJump() {
			t.Errorf("%s.IsJump() = true, want false", op)
		}
	}

	for _, op := range []Opcode{OpLoadVar, OpStoreVar, OpInitVar} {
		if !op.IsVarOp() {
			t.Errorf("%s.IsVarOp() = false, want true", op)
		}
	}

	for _, op := range []Opcode{OpMakeList, OpMakeDict, OpListGet, OpListSet, OpDictGet, OpDictSet, OpListAppend} {
		if !op.IsCollectionOp() {
			t.Errorf("%s.IsCollectionOp() = false, want true", op)
		}
	}
}

func TestStackEffects(t *testing.T) {
	tests := []struct {
		op   Opcode
		pop  int
		push int
	}{
		{OpNop, 0, 0},
		{OpPop, 1, 0},
		{OpDup, 1, 2},
		{OpPush, 0, 1},
		{OpAdd, 2, 1},
		{OpEq, 2, 1},
		{OpNot, 1, 1},
		{OpStoreVar, 1, 0},
		{OpJmpIf, 1, 0},
		{OpListSet, 3, 1},
		{OpOutput, 1, 0},
	}

	for _, tt := range tests {
		info := GetOpcodeInfo(tt.op)
		if info.StackPop != tt.pop {
			t.Errorf("%s.StackPop = %d, want %d", tt.op, info.StackPop, tt.pop)
		}
		if info.StackPush != tt.push {
			t.Errorf("%s.StackPush = %d, want %d", tt.op, info.StackPush, tt.push)
		}
	}
}

func TestOpcodeValuesMatchWireFormat(t *testing.T) {
	// These byte values are the on-disk format and must never move.
	tests := []struct {
		op   Opcode
		want byte
	}{
		{OpHalt, 0x00}, {OpPush, 0x01}, {OpAdd, 0x10}, {OpEq, 0x20},
		{OpAnd, 0x30}, {OpLoadVar, 0x40}, {OpJmp, 0x50}, {OpOutput, 0x60},
		{OpMakeList, 0x70}, {OpDictSet, 0x75}, {OpNop, 0xFF},
	}
	for _, tt := range tests {
		if byte(tt.op) != tt.want {
			t.Errorf("%s = 0x%02X, want 0x%02X", tt.op, byte(tt.op), tt.want)
		}
	}
}
