package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleEmpty(t *testing.T) {
	p := NewProgram()

	output := p.Disassemble()

	if !strings.Contains(output, "Numium Bytecode, 0 bytes") {
		t.Error("Disassembly missing header")
	}
	if !strings.Contains(output, "; Code:") {
		t.Error("Disassembly missing code section")
	}
}

func TestDisassembleSimple(t *testing.T) {
	p := NewProgram()
	p.EmitPush(IntConst(2))
	p.EmitPush(IntConst(3))
	p.Emit(OpAdd)
	p.Emit(OpOutput)
	p.Emit(OpHalt)

	lines := p.DisassembleToLines()
	want := []string{
		"0000  PUSH 0 ; 2",
		"0005  PUSH 1 ; 3",
		"000A  ADD",
		"000B  OUTPUT",
		"000C  HALT",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), strings.Join(lines, "\n"))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestDisassembleWithConstants(t *testing.T) {
	p := NewProgram()
	p.EmitPush(StringConst("hello world"))
	p.Emit(OpOutput)

	output := p.Disassemble()

	if !strings.Contains(output, "Constants:") {
		t.Error("Missing Constants section")
	}
	if !strings.Contains(output, `"hello world"`) {
		t.Error("Missing constant value")
	}
	if !strings.Contains(output, "PUSH 0") {
		t.Error("Missing PUSH instruction")
	}
}

func TestDisassembleLiteralPush(t *testing.T) {
	p := NewProgram()
	p.EmitWithOperand(OpPush, 99)

	if got := p.DisassembleInstruction(0); got != "PUSH 99 ; literal" {
		t.Errorf("got %q", got)
	}
}

func TestDisassembleVariablesAndFunctions(t *testing.T) {
	p := NewProgram()
	slot := p.AddVariable("counter")
	p.AddFunction("main", 0)
	p.EmitWithOperand(OpLoadVar, slot)
	p.EmitWithOperand(OpCall, 0)
	p.EmitWithOperand(OpJmp, 0)

	output := p.Disassemble()

	if !strings.Contains(output, "LOAD_VAR 0 ; counter") {
		t.Error("LOAD_VAR should include var name comment")
	}
	if !strings.Contains(output, "CALL 0 ; main @ 0000") {
		t.Error("CALL should include function name")
	}
	if !strings.Contains(output, "JMP 0000") {
		t.Error("JMP should show target")
	}
	if !strings.Contains(output, "Functions:") || !strings.Contains(output, "Variables:") {
		t.Error("Missing table sections")
	}
}

func TestDisassembleTruncatedOperand(t *testing.T) {
	p := NewProgram()
	p.Code = []byte{byte(OpPush), 0x01, 0x02}

	lines := p.DisassembleToLines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "truncated") {
		t.Errorf("line = %q, want truncated marker", lines[0])
	}
	if p.InstructionCount() != 1 {
		t.Errorf("InstructionCount() = %d, want 1", p.InstructionCount())
	}
}

func TestDisassembleUnknownOpcode(t *testing.T) {
	p := NewProgram()
	p.Code = []byte{0xAB, byte(OpHalt)}

	lines := p.DisassembleToLines()
	if len(lines) != 2 || lines[0] != "0000  UNKNOWN(0xAB)" {
		t.Errorf("lines = %v", lines)
	}
}
