package bytecode

import (
	"bytes"
	"math"
	"testing"
)

func TestNewProgram(t *testing.T) {
	p := NewProgram()

	if p.Code == nil {
		t.Error("Code is nil")
	}
	if p.Constants == nil {
		t.Error("Constants is nil")
	}
	if p.CodeLen() != 0 || p.ConstantCount() != 0 {
		t.Errorf("new program not empty: code=%d constants=%d", p.CodeLen(), p.ConstantCount())
	}
}

func TestProgramAddConstant(t *testing.T) {
	p := NewProgram()

	idx0 := p.AddConstant(StringConst("hello"))
	if idx0 != 0 {
		t.Errorf("First constant index = %d, want 0", idx0)
	}

	idx1 := p.AddConstant(IntConst(42))
	if idx1 != 1 {
		t.Errorf("Second constant index = %d, want 1", idx1)
	}

	// Add duplicate - should return existing index
	if idx := p.AddConstant(StringConst("hello")); idx != 0 {
		t.Errorf("Duplicate constant index = %d, want 0", idx)
	}

	// Same payload, different kind is a different constant
	if idx := p.AddConstant(StringConst("42")); idx != 2 {
		t.Errorf("String \"42\" index = %d, want 2", idx)
	}

	if p.ConstantCount() != 3 {
		t.Errorf("ConstantCount() = %d, want 3", p.ConstantCount())
	}
}

func TestProgramAddConstantSignedZero(t *testing.T) {
	p := NewProgram()

	pos := p.AddConstant(FloatConst(0.0))
	neg := p.AddConstant(FloatConst(math.Copysign(0, -1)))
	if pos == neg {
		t.Fatalf("-0.0 reused the 0.0 constant at index %d", pos)
	}
	if !math.Signbit(p.Constants[neg].Float) {
		t.Error("-0.0 lost its sign")
	}
	if idx := p.AddConstant(FloatConst(math.Copysign(0, -1))); idx != neg {
		t.Errorf("second -0.0 index = %d, want %d", idx, neg)
	}
	if idx := p.AddConstant(FloatConst(1.5)); p.AddConstant(FloatConst(1.5)) != idx {
		t.Error("equal floats should share a constant")
	}
}

func TestProgramAppendConstantKeepsDuplicates(t *testing.T) {
	p := NewProgram()
	p.AppendConstant(StringConst("a"))
	if idx := p.AppendConstant(StringConst("a")); idx != 1 {
		t.Errorf("AppendConstant index = %d, want 1", idx)
	}
}

func TestProgramEmit(t *testing.T) {
	p := NewProgram()

	if off := p.Emit(OpNop); off != 0 {
		t.Errorf("First emit offset = %d, want 0", off)
	}
	if off := p.Emit(OpHalt); off != 1 {
		t.Errorf("Second emit offset = %d, want 1", off)
	}
	if p.CodeLen() != 2 {
		t.Errorf("CodeLen() = %d, want 2", p.CodeLen())
	}
}

func TestProgramEmitWithOperandIsLittleEndian(t *testing.T) {
	p := NewProgram()
	p.EmitWithOperand(OpPush, 0x04030201)

	want := []byte{byte(OpPush), 0x01, 0x02, 0x03, 0x04}
	if !bytes.Equal(p.Code, want) {
		t.Errorf("Code = % X, want % X", p.Code, want)
	}
}

func TestProgramEmitPush(t *testing.T) {
	p := NewProgram()
	p.EmitPush(IntConst(2))
	p.EmitPush(IntConst(3))
	p.EmitPush(IntConst(2))

	want := []byte{
		byte(OpPush), 0, 0, 0, 0,
		byte(OpPush), 1, 0, 0, 0,
		byte(OpPush), 0, 0, 0, 0,
	}
	if !bytes.Equal(p.Code, want) {
		t.Errorf("Code = % X, want % X", p.Code, want)
	}
	if p.ConstantCount() != 2 {
		t.Errorf("ConstantCount() = %d, want 2", p.ConstantCount())
	}
}

func TestProgramJumpPatch(t *testing.T) {
	p := NewProgram()
	placeholder := p.EmitJump(OpJmpIfNot)
	p.Emit(OpNop)
	p.Emit(OpNop)
	p.PatchJump(placeholder)

	target, ok := ReadOperand(p.Code, placeholder)
	if !ok {
		t.Fatal("ReadOperand failed")
	}
	if target != 7 {
		t.Errorf("patched target = %d, want 7", target)
	}

	p.PatchJumpTo(placeholder, 0)
	if target, _ := ReadOperand(p.Code, placeholder); target != 0 {
		t.Errorf("PatchJumpTo target = %d, want 0", target)
	}
}

func TestProgramFunctions(t *testing.T) {
	p := NewProgram()
	if idx := p.AddFunction("main", 0); idx != 0 {
		t.Errorf("AddFunction(main) = %d, want 0", idx)
	}
	if idx := p.AddFunction("helper", 12); idx != 1 {
		t.Errorf("AddFunction(helper) = %d, want 1", idx)
	}
	if idx := p.AddFunction("main", 5); idx != 0 {
		t.Errorf("re-adding main = %d, want 0", idx)
	}
	if p.Functions[0].Entry != 5 {
		t.Errorf("main entry = %d, want 5", p.Functions[0].Entry)
	}
	if _, ok := p.FunctionIndex("missing"); ok {
		t.Error("FunctionIndex(missing) should fail")
	}
}

func TestProgramVariables(t *testing.T) {
	p := NewProgram()
	x := p.AddVariable("x")
	y := p.AddVariable("y")
	if x != 0 || y != 1 {
		t.Errorf("slots = %d, %d; want 0, 1", x, y)
	}
	if again := p.AddVariable("x"); again != 0 {
		t.Errorf("AddVariable(x) again = %d, want 0", again)
	}
	if p.VarName(1) != "y" || p.VarName(9) != "" {
		t.Errorf("VarName mismatch: %q %q", p.VarName(1), p.VarName(9))
	}
}

func TestReadOperand(t *testing.T) {
	tests := []struct {
		name   string
		code   []byte
		offset int
		want   uint32
		ok     bool
	}{
		{"full", []byte{0x01, 0x2A, 0, 0, 0}, 1, 42, true},
		{"three bytes left", []byte{0x01, 0x2A, 0, 0}, 1, 0, false},
		{"nothing left", []byte{0x01}, 1, 0, false},
		{"negative offset", []byte{0, 0, 0, 0}, -1, 0, false},
		{"max", []byte{0xFF, 0xFF, 0xFF, 0xFF}, 0, 0xFFFFFFFF, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReadOperand(tt.code, tt.offset)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ReadOperand = %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestConstantString(t *testing.T) {
	tests := []struct {
		c    Constant
		want string
	}{
		{StringConst("a\nb"), `"a\nb"`},
		{IntConst(-7), "-7"},
		{FloatConst(1.5), "1.5"},
		{BoolConst(true), "true"},
		{NullConst(), "null"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.c.Kind, got, tt.want)
		}
	}
}
