// Package bytecode defines the Numium instruction set and the in-memory
// form of a loaded program.
//
// The encoding is a flat byte stream. Each instruction is a one-byte opcode,
// optionally followed by a 4-byte little-endian unsigned operand:
//
//	PUSH 0      01 00 00 00 00
//	ADD         10
//	JMP 0x0C    50 0C 00 00 00
//
// # Architecture Overview
//
//   - Opcodes: the instruction table with per-opcode stack effects and
//     operand widths. Unknown bytes render as UNKNOWN(0xNN).
//
//   - Program: the code buffer plus the constant pool, function table and
//     variable debug names that operands index into. Emit helpers build code
//     programmatically and patch forward jumps.
//
//   - Assembler: a line-oriented text notation with labels and .func
//     directives, used for tests and for writing programs by hand.
//
//   - Disassembler: a listing with constants, variables and functions
//     resolved next to the instructions that reference them.
//
//   - Image: a self-contained binary form ("NUMI" magic followed by a CBOR
//     payload) that carries typed constants alongside the code, so a program
//     can be shipped without its .meta.json sidecar.
package bytecode
