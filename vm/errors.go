package vm

import (
	"errors"
	"fmt"

	"github.com/zraight/numium/pkg/bytecode"
)

// Fatal conditions. Each stops the run; Step returns it wrapped in a *Fault.
var (
	ErrStackOverflow    = errors.New("stack overflow")
	ErrStackUnderflow   = errors.New("stack underflow")
	ErrUnknownOpcode    = errors.New("unknown opcode")
	ErrStoreRange       = errors.New("variable slot out of range")
	ErrBadJump          = errors.New("jump target out of range")
	ErrBadFunction      = errors.New("function index out of range")
	ErrCallDepth        = errors.New("call depth exceeded")
	ErrTruncatedOperand = errors.New("truncated operand")
	ErrUnsupported      = errors.New("opcode not supported")
	ErrNoProgram        = errors.New("no program loaded")
)

// Degraded conditions. They are recorded as diagnostics and execution
// continues with a Null result or a skipped write.
var (
	ErrTypeMismatch = errors.New("type mismatch")
	ErrDivideByZero = errors.New("division by zero")
	ErrIndexRange   = errors.New("index out of range")
	ErrLoadRange    = errors.New("load from slot out of range")
)

// Load errors.
var (
	ErrFunctionTable = errors.New("function table capacity exceeded")
)

// Fault is a fatal execution error: the condition plus the opcode and the
// byte offset of the instruction that raised it.
type Fault struct {
	Err    error
	Op     bytecode.Opcode
	Offset int
	Detail string
}

func (f *Fault) Error() string {
	if errors.Is(f.Err, ErrNoProgram) {
		return f.Err.Error()
	}
	if errors.Is(f.Err, ErrUnknownOpcode) {
		return fmt.Sprintf("%v 0x%02X at offset %d", f.Err, byte(f.Op), f.Offset)
	}
	msg := f.Err.Error()
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	return fmt.Sprintf("%s in %s at offset %d", msg, f.Op, f.Offset)
}

func (f *Fault) Unwrap() error { return f.Err }

// Severity classifies a diagnostic.
type Severity uint8

const (
	Degraded Severity = iota
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "degraded"
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity
	Op       bytecode.Opcode
	Offset   int
	Err      error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %v (%s at offset %d)", d.Severity, d.Err, d.Op, d.Offset)
}
