package bytecode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// AsmError reports a problem at a specific source line.
type AsmError struct {
	Line int
	Msg  string
}

func (e *AsmError) Error() string {
	return fmt.Sprintf("asm: line %d: %s", e.Line, e.Msg)
}

// fixup is an operand that names something defined later in the source.
type fixup struct {
	line   int
	offset int // offset of the operand bytes
	name   string
}

// assembler turns numium assembly into a Program.
//
// Notation, one statement per line:
//
//	; comment
//	.func name        function entry at the next instruction
//	name:             jump label
//	PUSH 42           integer, float, "string", true, false or null constant
//	PUSH #7           raw operand (pool index or literal fallback)
//	LOAD_VAR x        variable name or slot number
//	JMP name          label or absolute offset
//	CALL name         function name or table index
type assembler struct {
	prog *Program

	labels      map[string]int
	jumpFixups  []fixup
	definedFunc map[string]bool
	calledFunc  map[string]int // name -> first line referencing it
}

// Assemble parses assembly source into a Program.
func Assemble(r io.Reader) (*Program, error) {
	a := &assembler{
		prog:        NewProgram(),
		labels:      make(map[string]int),
		definedFunc: make(map[string]bool),
		calledFunc:  make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := a.statement(lineNo, scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("asm: %w", err)
	}

	for _, f := range a.jumpFixups {
		target, ok := a.labels[f.name]
		if !ok {
			return nil, &AsmError{Line: f.line, Msg: fmt.Sprintf("undefined label %q", f.name)}
		}
		a.prog.PatchJumpTo(f.offset, target)
	}
	for name, line := range a.calledFunc {
		if !a.definedFunc[name] {
			return nil, &AsmError{Line: line, Msg: fmt.Sprintf("undefined function %q", name)}
		}
	}

	return a.prog, nil
}

// AssembleString is Assemble over a string.
func AssembleString(src string) (*Program, error) {
	return Assemble(strings.NewReader(src))
}

func (a *assembler) statement(lineNo int, line string) error {
	line = strings.TrimSpace(stripComment(line))
	if line == "" {
		return nil
	}

	// Directive
	if rest, ok := strings.CutPrefix(line, ".func"); ok {
		name := strings.TrimSpace(rest)
		if !isIdent(name) {
			return &AsmError{Line: lineNo, Msg: fmt.Sprintf("bad function name %q", name)}
		}
		if a.definedFunc[name] {
			return &AsmError{Line: lineNo, Msg: fmt.Sprintf("function %q defined twice", name)}
		}
		a.definedFunc[name] = true
		a.prog.AddFunction(name, uint32(a.prog.CurrentOffset()))
		return nil
	}

	// Label
	if strings.HasSuffix(line, ":") {
		name := strings.TrimSuffix(line, ":")
		if !isIdent(name) {
			return &AsmError{Line: lineNo, Msg: fmt.Sprintf("bad label %q", name)}
		}
		if _, dup := a.labels[name]; dup {
			return &AsmError{Line: lineNo, Msg: fmt.Sprintf("label %q defined twice", name)}
		}
		a.labels[name] = a.prog.CurrentOffset()
		return nil
	}

	mnemonic, arg := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		mnemonic, arg = line[:i], strings.TrimSpace(line[i+1:])
	}
	op, ok := LookupOpcode(strings.ToUpper(mnemonic))
	if !ok {
		return &AsmError{Line: lineNo, Msg: fmt.Sprintf("unknown mnemonic %q", mnemonic)}
	}

	if op.OperandLen() == 0 {
		if arg != "" {
			return &AsmError{Line: lineNo, Msg: fmt.Sprintf("%s takes no operand", op)}
		}
		a.prog.Emit(op)
		return nil
	}
	if arg == "" {
		return &AsmError{Line: lineNo, Msg: fmt.Sprintf("%s needs an operand", op)}
	}

	switch {
	case op == OpPush:
		return a.push(lineNo, arg)
	case op.IsVarOp():
		if n, err := strconv.ParseUint(arg, 10, 32); err == nil {
			a.prog.EmitWithOperand(op, uint32(n))
			return nil
		}
		if !isIdent(arg) {
			return &AsmError{Line: lineNo, Msg: fmt.Sprintf("bad variable %q", arg)}
		}
		a.prog.EmitWithOperand(op, a.prog.AddVariable(arg))
		return nil
	case op.IsJump():
		if n, err := strconv.ParseUint(arg, 10, 32); err == nil {
			a.prog.EmitWithOperand(op, uint32(n))
			return nil
		}
		if !isIdent(arg) {
			return &AsmError{Line: lineNo, Msg: fmt.Sprintf("bad label %q", arg)}
		}
		a.jumpFixups = append(a.jumpFixups, fixup{line: lineNo, offset: a.prog.EmitJump(op), name: arg})
		return nil
	case op == OpCall:
		if n, err := strconv.ParseUint(arg, 10, 32); err == nil {
			a.prog.EmitWithOperand(op, uint32(n))
			return nil
		}
		if !isIdent(arg) {
			return &AsmError{Line: lineNo, Msg: fmt.Sprintf("bad function name %q", arg)}
		}
		idx, known := a.prog.FunctionIndex(arg)
		if !known {
			// Reserve the table slot; .func fills in the entry point.
			idx = a.prog.AddFunction(arg, 0)
		}
		if _, seen := a.calledFunc[arg]; !seen {
			a.calledFunc[arg] = lineNo
		}
		a.prog.EmitWithOperand(op, idx)
		return nil
	}

	return &AsmError{Line: lineNo, Msg: fmt.Sprintf("no operand syntax for %s", op)}
}

func (a *assembler) push(lineNo int, arg string) error {
	if raw, ok := strings.CutPrefix(arg, "#"); ok {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return &AsmError{Line: lineNo, Msg: fmt.Sprintf("bad raw operand %q", arg)}
		}
		a.prog.EmitWithOperand(OpPush, uint32(n))
		return nil
	}

	c, err := parseConstant(arg)
	if err != nil {
		return &AsmError{Line: lineNo, Msg: err.Error()}
	}
	a.prog.EmitPush(c)
	return nil
}

// parseConstant parses a PUSH literal.
func parseConstant(s string) (Constant, error) {
	switch s {
	case "true":
		return BoolConst(true), nil
	case "false":
		return BoolConst(false), nil
	case "null":
		return NullConst(), nil
	}
	if strings.HasPrefix(s, `"`) {
		str, err := strconv.Unquote(s)
		if err != nil {
			return Constant{}, fmt.Errorf("bad string literal %s", s)
		}
		return StringConst(str), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntConst(i), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FloatConst(f), nil
	}
	return Constant{}, fmt.Errorf("bad literal %q", s)
}

// stripComment removes a ';' comment that is not inside a string literal.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case ';':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
