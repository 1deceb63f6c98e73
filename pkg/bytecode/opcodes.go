package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

// OperandSize is the width of every instruction operand: a little-endian uint32.
const OperandSize = 4

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpHalt Opcode = 0x00 // Stop execution
	OpPush Opcode = 0x01 // Push constant or literal: OpPush <index:u32>
	OpPop  Opcode = 0x02 // Pop top of stack
	OpDup  Opcode = 0x03 // Duplicate top of stack

	// ========================================================================
	// Arithmetic (0x10-0x1F)
	// ========================================================================

	OpAdd Opcode = 0x10 // Pop two, push sum (or concatenation of two strings)
	OpSub Opcode = 0x11 // Pop two, push difference (a - b where b is TOS)
	OpMul Opcode = 0x12 // Pop two, push product
	OpDiv Opcode = 0x13 // Pop two, push quotient
	OpMod Opcode = 0x14 // Pop two, push remainder
	OpNeg Opcode = 0x15 // Negate top of stack

	// ========================================================================
	// Comparison (0x20-0x2F)
	// ========================================================================

	OpEq Opcode = 0x20 // Pop two, push true if equal
	OpNe Opcode = 0x21 // Pop two, push true if not equal
	OpLt Opcode = 0x22 // Pop two, push true if a < b
	OpLe Opcode = 0x23 // Pop two, push true if a <= b
	OpGt Opcode = 0x24 // Pop two, push true if a > b
	OpGe Opcode = 0x25 // Pop two, push true if a >= b

	// ========================================================================
	// Logical operations (0x30-0x3F)
	// ========================================================================

	OpAnd Opcode = 0x30 // Logical AND
	OpOr  Opcode = 0x31 // Logical OR
	OpNot Opcode = 0x32 // Logical NOT

	// ========================================================================
	// Variables (0x40-0x4F)
	// ========================================================================

	OpLoadVar  Opcode = 0x40 // Push variable: OpLoadVar <slot:u32>
	OpStoreVar Opcode = 0x41 // Pop and store to variable: OpStoreVar <slot:u32>
	OpInitVar  Opcode = 0x42 // Declare variable as null: OpInitVar <slot:u32>

	// ========================================================================
	// Control flow (0x50-0x5F)
	// ========================================================================

	OpJmp      Opcode = 0x50 // Unconditional jump: OpJmp <target:u32>
	OpJmpIf    Opcode = 0x51 // Pop, jump if truthy: OpJmpIf <target:u32>
	OpJmpIfNot Opcode = 0x52 // Pop, jump if falsy: OpJmpIfNot <target:u32>
	OpCall     Opcode = 0x53 // Call function: OpCall <function:u32>
	OpRet      Opcode = 0x54 // Return from function, halt at top level

	// ========================================================================
	// I/O (0x60-0x6F)
	// ========================================================================

	OpOutput Opcode = 0x60 // Pop and print
	OpInput  Opcode = 0x61 // Read a line, push as string

	// ========================================================================
	// Collections (0x70-0x7F)
	// ========================================================================

	OpMakeList   Opcode = 0x70 // Push new empty list
	OpMakeDict   Opcode = 0x71 // Push new empty dict
	OpListGet    Opcode = 0x72 // list index -> element
	OpListSet    Opcode = 0x73 // list index value -> list
	OpDictGet    Opcode = 0x74 // dict key -> value
	OpDictSet    Opcode = 0x75 // dict key value -> dict
	OpListAppend Opcode = 0x76 // list value -> list

	// ========================================================================
	// Special
	// ========================================================================

	OpNop Opcode = 0xFF // No operation
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack manipulation
	OpHalt: {"HALT", 0, 0, 0},
	OpPush: {"PUSH", 0, 1, OperandSize},
	OpPop:  {"POP", 1, 0, 0},
	OpDup:  {"DUP", 1, 2, 0},

	// Arithmetic
	OpAdd: {"ADD", 2, 1, 0},
	OpSub: {"SUB", 2, 1, 0},
	OpMul: {"MUL", 2, 1, 0},
	OpDiv: {"DIV", 2, 1, 0},
	OpMod: {"MOD", 2, 1, 0},
	OpNeg: {"NEG", 1, 1, 0},

	// Comparison
	OpEq: {"EQ", 2, 1, 0},
	OpNe: {"NE", 2, 1, 0},
	OpLt: {"LT", 2, 1, 0},
	OpLe: {"LE", 2, 1, 0},
	OpGt: {"GT", 2, 1, 0},
	OpGe: {"GE", 2, 1, 0},

	// Logical
	OpAnd: {"AND", 2, 1, 0},
	OpOr:  {"OR", 2, 1, 0},
	OpNot: {"NOT", 1, 1, 0},

	// Variables
	OpLoadVar:  {"LOAD_VAR", 0, 1, OperandSize},
	OpStoreVar: {"STORE_VAR", 1, 0, OperandSize},
	OpInitVar:  {"INIT_VAR", 0, 0, OperandSize},

	// Control flow
	OpJmp:      {"JMP", 0, 0, OperandSize},
	OpJmpIf:    {"JMP_IF", 1, 0, OperandSize},
	OpJmpIfNot: {"JMP_IFNOT", 1, 0, OperandSize},
	OpCall:     {"CALL", 0, 0, OperandSize},
	OpRet:      {"RET", 0, 0, 0},

	// I/O
	OpOutput: {"OUTPUT", 1, 0, 0},
	OpInput:  {"INPUT", 0, 1, 0},

	// Collections
	OpMakeList:   {"MAKE_LIST", 0, 1, 0},
	OpMakeDict:   {"MAKE_DICT", 0, 1, 0},
	OpListGet:    {"LIST_GET", 2, 1, 0},
	OpListSet:    {"LIST_SET", 3, 1, 0},
	OpDictGet:    {"DICT_GET", 2, 1, 0},
	OpDictSet:    {"DICT_SET", 3, 1, 0},
	OpListAppend: {"LIST_APPEND", 2, 1, 0},

	// Special
	OpNop: {"NOP", 0, 0, 0},
}

// opcodesByName is the reverse of opcodeInfoTable, used by the assembler.
var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), StackPop: 0, StackPush: 0, OperandLen: 0}
}

// LookupOpcode returns the opcode with the given mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// IsDefined reports whether op is part of the instruction set.
func (op Opcode) IsDefined() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true if this opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op >= OpJmp && op <= OpJmpIfNot
}

// IsVarOp returns true if this opcode addresses the variable store.
func (op Opcode) IsVarOp() bool {
	return op >= OpLoadVar && op <= OpInitVar
}

// IsCollectionOp returns true if this opcode operates on lists or dicts.
func (op Opcode) IsCollectionOp() bool {
	return op >= OpMakeList && op <= OpListAppend
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
