package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Numium Bytecode, %d bytes\n", len(p.Code)))
	sb.WriteString("\n")

	// Constants
	if len(p.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, c := range p.Constants {
			display := c.String()
			// Truncate long strings for readability
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %-6s %s\n", i, c.Kind, display))
		}
		sb.WriteString("\n")
	}

	// Variables
	if len(p.VarNames) > 0 {
		sb.WriteString("; Variables:\n")
		for i, v := range p.VarNames {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, v))
		}
		sb.WriteString("\n")
	}

	// Functions
	if len(p.Functions) > 0 {
		sb.WriteString("; Functions:\n")
		for i, fn := range p.Functions {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s @ %04X\n", i, fn.Name, fn.Entry))
		}
		sb.WriteString("\n")
	}

	// Code section
	sb.WriteString("; Code:\n")
	offset := 0
	for offset < len(p.Code) {
		line, instrLen := p.disassembleInstruction(offset)
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		offset += instrLen
	}

	return sb.String()
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length. The length never
// runs past the end of the code.
func (p *Program) disassembleInstruction(offset int) (string, int) {
	if offset >= len(p.Code) {
		return "<end of code>", 0
	}

	op := Opcode(p.Code[offset])
	info := GetOpcodeInfo(op)

	if info.OperandLen == 0 {
		return info.Name, 1
	}

	operand, ok := ReadOperand(p.Code, offset+1)
	if !ok {
		return fmt.Sprintf("%s <truncated operand>", info.Name), len(p.Code) - offset
	}
	instrLen := 1 + info.OperandLen

	switch op {
	case OpPush:
		if int64(operand) < int64(len(p.Constants)) {
			return fmt.Sprintf("PUSH %d ; %s", operand, p.Constants[operand]), instrLen
		}
		return fmt.Sprintf("PUSH %d ; literal", operand), instrLen

	case OpLoadVar, OpStoreVar, OpInitVar:
		if name := p.VarName(operand); name != "" {
			return fmt.Sprintf("%s %d ; %s", info.Name, operand, name), instrLen
		}
		return fmt.Sprintf("%s %d", info.Name, operand), instrLen

	case OpJmp, OpJmpIf, OpJmpIfNot:
		return fmt.Sprintf("%s %04X", info.Name, operand), instrLen

	case OpCall:
		if int64(operand) < int64(len(p.Functions)) {
			fn := p.Functions[operand]
			return fmt.Sprintf("CALL %d ; %s @ %04X", operand, fn.Name, fn.Entry), instrLen
		}
		return fmt.Sprintf("CALL %d", operand), instrLen

	default:
		return fmt.Sprintf("%s %d", info.Name, operand), instrLen
	}
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (p *Program) DisassembleInstruction(offset int) string {
	line, _ := p.disassembleInstruction(offset)
	return line
}

// DisassembleToLines returns the disassembly as a slice of lines.
func (p *Program) DisassembleToLines() []string {
	var lines []string
	offset := 0
	for offset < len(p.Code) {
		line, instrLen := p.disassembleInstruction(offset)
		lines = append(lines, fmt.Sprintf("%04X  %s", offset, line))
		offset += instrLen
	}
	return lines
}

// InstructionCount returns the number of instructions in the program.
// Note: This iterates through all code, so it's O(n).
func (p *Program) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(p.Code) {
		_, instrLen := p.disassembleInstruction(offset)
		offset += instrLen
		count++
	}
	return count
}
