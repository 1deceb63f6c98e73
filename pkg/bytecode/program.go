package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// ConstKind tags the payload of a Constant.
type ConstKind uint8

const (
	ConstString ConstKind = iota
	ConstInt
	ConstFloat
	ConstBool
	ConstNull
)

// String returns a human-readable name for ConstKind.
func (k ConstKind) String() string {
	switch k {
	case ConstString:
		return "string"
	case ConstInt:
		return "int"
	case ConstFloat:
		return "float"
	case ConstBool:
		return "bool"
	case ConstNull:
		return "null"
	default:
		return fmt.Sprintf("ConstKind(%d)", k)
	}
}

// Constant is a scalar entry of the constant pool. Only the field selected
// by Kind is meaningful.
type Constant struct {
	Kind  ConstKind `cbor:"1,keyasint"`
	Int   int64     `cbor:"2,keyasint,omitempty"`
	Float float64   `cbor:"3,keyasint,omitempty"`
	Str   string    `cbor:"4,keyasint,omitempty"`
	Bool  bool      `cbor:"5,keyasint,omitempty"`
}

// StringConst returns a string constant.
func StringConst(s string) Constant { return Constant{Kind: ConstString, Str: s} }

// IntConst returns an integer constant.
func IntConst(i int64) Constant { return Constant{Kind: ConstInt, Int: i} }

// FloatConst returns a float constant.
func FloatConst(f float64) Constant { return Constant{Kind: ConstFloat, Float: f} }

// BoolConst returns a boolean constant.
func BoolConst(b bool) Constant { return Constant{Kind: ConstBool, Bool: b} }

// NullConst returns the null constant.
func NullConst() Constant { return Constant{Kind: ConstNull} }

// String renders the constant the way the disassembler shows it.
func (c Constant) String() string {
	switch c.Kind {
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	case ConstNull:
		return "null"
	default:
		return fmt.Sprintf("<%s>", c.Kind)
	}
}

// Function is an entry of the function table. All functions share the
// program's code buffer; Entry is an offset into it.
type Function struct {
	Name  string `cbor:"1,keyasint"`
	Entry uint32 `cbor:"2,keyasint"`
}

// Program is a loaded or assembled bytecode image: the code buffer plus the
// tables its operands index into.
type Program struct {
	// Code section
	Code []byte

	// Constant pool, indexed by OpPush operands
	Constants []Constant

	// Function table, indexed by OpCall operands
	Functions []Function

	// Variable names by slot (debug information only)
	VarNames []string
}

// NewProgram creates a new empty program.
func NewProgram() *Program {
	return &Program{
		Code:      make([]byte, 0, 64),
		Constants: make([]Constant, 0, 8),
	}
}

// AddConstant adds a constant to the pool and returns its index.
// If an identical constant already exists, returns the existing index.
func (p *Program) AddConstant(c Constant) uint32 {
	for i, existing := range p.Constants {
		if existing.identical(c) {
			return uint32(i)
		}
	}
	return p.AppendConstant(c)
}

// identical compares floats bit for bit so 0.0 and -0.0 stay distinct.
func (c Constant) identical(o Constant) bool {
	if c.Kind == ConstFloat && o.Kind == ConstFloat {
		return math.Float64bits(c.Float) == math.Float64bits(o.Float)
	}
	return c == o
}

// AppendConstant appends a constant without deduplication and returns its
// index. Loaders use this so that pool indices follow file order exactly.
func (p *Program) AppendConstant(c Constant) uint32 {
	idx := uint32(len(p.Constants))
	p.Constants = append(p.Constants, c)
	return idx
}

// AddFunction registers a function entry point and returns its table index.
// Registering an existing name moves its entry point.
func (p *Program) AddFunction(name string, entry uint32) uint32 {
	if idx, ok := p.FunctionIndex(name); ok {
		p.Functions[idx].Entry = entry
		return idx
	}
	idx := uint32(len(p.Functions))
	p.Functions = append(p.Functions, Function{Name: name, Entry: entry})
	return idx
}

// FunctionIndex returns the table index of the named function.
func (p *Program) FunctionIndex(name string) (uint32, bool) {
	for i, fn := range p.Functions {
		if fn.Name == name {
			return uint32(i), true
		}
	}
	return 0, false
}

// AddVariable returns the slot for a variable name, allocating the next free
// slot on first use.
func (p *Program) AddVariable(name string) uint32 {
	for i, v := range p.VarNames {
		if v == name {
			return uint32(i)
		}
	}
	p.VarNames = append(p.VarNames, name)
	return uint32(len(p.VarNames) - 1)
}

// VarName returns the debug name of a variable slot, or "".
func (p *Program) VarName(slot uint32) string {
	if int64(slot) < int64(len(p.VarNames)) {
		return p.VarNames[slot]
	}
	return ""
}

// Emit appends a single-byte opcode to the code section.
func (p *Program) Emit(op Opcode) int {
	offset := len(p.Code)
	p.Code = append(p.Code, byte(op))
	return offset
}

// EmitWithOperand appends an opcode followed by its little-endian operand.
func (p *Program) EmitWithOperand(op Opcode, operand uint32) int {
	offset := len(p.Code)
	p.Code = append(p.Code, byte(op))
	p.Code = binary.LittleEndian.AppendUint32(p.Code, operand)
	return offset
}

// EmitPush emits an OpPush for the given constant.
// Adds the constant to the pool if not already present.
func (p *Program) EmitPush(c Constant) int {
	return p.EmitWithOperand(OpPush, p.AddConstant(c))
}

// EmitJump emits a jump instruction with a placeholder target.
// Returns the offset of the placeholder for later patching.
func (p *Program) EmitJump(op Opcode) int {
	offset := p.EmitWithOperand(op, 0xFFFFFFFF)
	return offset + 1
}

// PatchJump patches a jump placeholder to target the current position.
func (p *Program) PatchJump(placeholderOffset int) {
	p.PatchJumpTo(placeholderOffset, len(p.Code))
}

// PatchJumpTo patches a jump placeholder to an absolute target offset.
func (p *Program) PatchJumpTo(placeholderOffset int, target int) {
	binary.LittleEndian.PutUint32(p.Code[placeholderOffset:], uint32(target))
}

// CurrentOffset returns the current offset in the code section.
func (p *Program) CurrentOffset() int {
	return len(p.Code)
}

// CodeLen returns the length of the code section.
func (p *Program) CodeLen() int {
	return len(p.Code)
}

// ConstantCount returns the number of constants in the pool.
func (p *Program) ConstantCount() int {
	return len(p.Constants)
}

// ReadOperand decodes the 4-byte little-endian operand starting at offset.
// ok is false when fewer than OperandSize bytes remain; the operand is then 0
// and nothing past the end of code is read.
func ReadOperand(code []byte, offset int) (operand uint32, ok bool) {
	if offset < 0 || len(code)-offset < OperandSize {
		return 0, false
	}
	return binary.LittleEndian.Uint32(code[offset:]), true
}
