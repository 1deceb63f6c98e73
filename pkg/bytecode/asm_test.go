package bytecode

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestAssembleAddProgram(t *testing.T) {
	p, err := AssembleString(`
		; 2 + 3
		PUSH 2
		PUSH 3
		ADD
		OUTPUT
		HALT
	`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	want := []byte{
		byte(OpPush), 0, 0, 0, 0,
		byte(OpPush), 1, 0, 0, 0,
		byte(OpAdd),
		byte(OpOutput),
		byte(OpHalt),
	}
	if !bytes.Equal(p.Code, want) {
		t.Errorf("Code = % X, want % X", p.Code, want)
	}
	if p.Constants[0] != IntConst(2) || p.Constants[1] != IntConst(3) {
		t.Errorf("Constants = %v", p.Constants)
	}
}

func TestAssembleLiterals(t *testing.T) {
	p, err := AssembleString(`
		PUSH "a;b"   ; semicolon inside the string is kept
		PUSH 1.5
		PUSH true
		PUSH null
		PUSH -4
		push #300
	`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	wantConsts := []Constant{StringConst("a;b"), FloatConst(1.5), BoolConst(true), NullConst(), IntConst(-4)}
	if len(p.Constants) != len(wantConsts) {
		t.Fatalf("Constants = %v", p.Constants)
	}
	for i, c := range wantConsts {
		if p.Constants[i] != c {
			t.Errorf("constant %d = %v, want %v", i, p.Constants[i], c)
		}
	}

	raw, _ := ReadOperand(p.Code, 5*5+1)
	if raw != 300 {
		t.Errorf("raw operand = %d, want 300", raw)
	}
}

func TestAssembleLabelsAndVariables(t *testing.T) {
	p, err := AssembleString(`
		PUSH 0
		STORE_VAR i
	loop:
		LOAD_VAR i
		PUSH 3
		LT
		JMP_IFNOT done
		LOAD_VAR i
		PUSH 1
		ADD
		STORE_VAR i
		JMP loop
	done:
		HALT
	`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if p.VarName(0) != "i" {
		t.Errorf("VarName(0) = %q, want i", p.VarName(0))
	}

	lines := p.DisassembleToLines()
	if !strings.Contains(strings.Join(lines, "\n"), "JMP 000A") {
		t.Errorf("loop jump not resolved to 000A:\n%s", strings.Join(lines, "\n"))
	}
	last := lines[len(lines)-1]
	if !strings.HasSuffix(last, "HALT") {
		t.Fatalf("last line = %q", last)
	}
	doneOffset := last[:4]
	if !strings.Contains(strings.Join(lines, "\n"), "JMP_IFNOT "+doneOffset) {
		t.Errorf("JMP_IFNOT not resolved to %s", doneOffset)
	}
}

func TestAssembleForwardCall(t *testing.T) {
	p, err := AssembleString(`
		CALL double
		OUTPUT
		HALT
	.func double
		PUSH 21
		PUSH 2
		MUL
		RET
	`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	idx, ok := p.FunctionIndex("double")
	if !ok || idx != 0 {
		t.Fatalf("FunctionIndex(double) = %d, %v", idx, ok)
	}
	if p.Functions[0].Entry != 7 {
		t.Errorf("double entry = %d, want 7", p.Functions[0].Entry)
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"unknown mnemonic", "FROB", 1, "unknown mnemonic"},
		{"missing operand", "PUSH", 1, "needs an operand"},
		{"extra operand", "ADD 1", 1, "takes no operand"},
		{"undefined label", "NOP\nJMP nowhere", 2, "undefined label"},
		{"undefined function", "CALL ghost", 1, "undefined function"},
		{"duplicate label", "a:\na:", 2, "defined twice"},
		{"bad literal", "PUSH 1x", 1, "bad literal"},
		{"bad raw operand", "PUSH #-1", 1, "bad raw operand"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssembleString(tt.src)
			var asmErr *AsmError
			if !errors.As(err, &asmErr) {
				t.Fatalf("err = %v, want *AsmError", err)
			}
			if asmErr.Line != tt.line {
				t.Errorf("Line = %d, want %d", asmErr.Line, tt.line)
			}
			if !strings.Contains(asmErr.Msg, tt.msg) {
				t.Errorf("Msg = %q, want %q", asmErr.Msg, tt.msg)
			}
		})
	}
}
