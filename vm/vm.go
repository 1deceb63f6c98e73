package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/zraight/numium/pkg/bytecode"
)

// Default limits.
const (
	DefaultStackSize    = 1024
	DefaultMaxVariables = 256
	DefaultMaxFunctions = 64
	DefaultMaxCallDepth = 256
)

var log = commonlog.GetLogger("numium.vm")

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type config struct {
	stackSize    int
	maxVariables int
	maxFunctions int
	maxCallDepth int
	strict       bool
	stripNewline bool
	input        io.Reader
	output       io.Writer
	trace        io.Writer
	profiler     *Profiler
}

// Option configures a VM.
type Option func(*config)

// WithStackSize sets the operand stack capacity. Non-positive values keep
// the default.
func WithStackSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.stackSize = n
		}
	}
}

// WithMaxVariables sets the number of variable slots.
func WithMaxVariables(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxVariables = n
		}
	}
}

// WithMaxFunctions sets the function table capacity.
func WithMaxFunctions(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxFunctions = n
		}
	}
}

// WithMaxCallDepth sets the call-return stack capacity.
func WithMaxCallDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxCallDepth = n
		}
	}
}

// WithStrictOperands makes a truncated operand at the end of the code a
// fatal error instead of reading it as 0.
func WithStrictOperands(strict bool) Option {
	return func(c *config) { c.strict = strict }
}

// WithStripInputNewline removes the line terminator from INPUT results.
func WithStripInputNewline(strip bool) Option {
	return func(c *config) { c.stripNewline = strip }
}

// WithInput sets the reader INPUT reads from. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(c *config) { c.input = r }
}

// WithOutput sets the writer OUTPUT writes to. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) { c.output = w }
}

// WithTrace writes a disassembly line for every executed instruction to w.
func WithTrace(w io.Writer) Option {
	return func(c *config) { c.trace = w }
}

// WithProfiler counts executed opcodes in p.
func WithProfiler(p *Profiler) Option {
	return func(c *config) { c.profiler = p }
}

// ---------------------------------------------------------------------------
// VM
// ---------------------------------------------------------------------------

// VM executes one Numium program. A VM is not safe for concurrent use.
type VM struct {
	cfg config
	id  uuid.UUID

	// Program state, set by Load
	prog      *bytecode.Program
	code      []byte
	pool      []Value
	functions []bytecode.Function

	// Execution state
	stack  operandStack
	vars   varStore
	calls  callStack
	pc     int
	halted bool
	status int
	steps  uint64
	fault  *Fault

	diagnostics []Diagnostic

	in  *bufio.Reader
	out io.Writer
}

// New creates a VM with the given options. Load a program before stepping.
func New(opts ...Option) *VM {
	cfg := config{
		stackSize:    DefaultStackSize,
		maxVariables: DefaultMaxVariables,
		maxFunctions: DefaultMaxFunctions,
		maxCallDepth: DefaultMaxCallDepth,
		input:        os.Stdin,
		output:       os.Stdout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &VM{
		cfg:   cfg,
		id:    uuid.New(),
		stack: newOperandStack(cfg.stackSize),
		vars:  newVarStore(cfg.maxVariables),
		calls: callStack{limit: cfg.maxCallDepth},
		in:    bufio.NewReader(cfg.input),
		out:   cfg.output,
	}
}

// Load installs a program and resets execution state. Constants are
// converted to Values; the function table is copied and not modified
// afterwards.
func (m *VM) Load(p *bytecode.Program) error {
	if p == nil {
		return ErrNoProgram
	}
	if len(p.Functions) > m.cfg.maxFunctions {
		return fmt.Errorf("vm: %w: %d functions, capacity %d", ErrFunctionTable, len(p.Functions), m.cfg.maxFunctions)
	}

	pool := make([]Value, len(p.Constants))
	for i, c := range p.Constants {
		pool[i] = FromConstant(c)
	}
	functions := make([]bytecode.Function, len(p.Functions))
	copy(functions, p.Functions)

	m.prog = p
	m.code = p.Code
	m.pool = pool
	m.functions = functions

	m.stack = newOperandStack(m.cfg.stackSize)
	m.vars = newVarStore(m.cfg.maxVariables)
	m.calls = callStack{limit: m.cfg.maxCallDepth}
	m.pc = 0
	m.halted = false
	m.status = 0
	m.steps = 0
	m.fault = nil
	m.diagnostics = nil
	m.id = uuid.New()

	log.Debugf("loaded program: %d bytes, %d constants, %d functions (run %s)",
		len(m.code), len(m.pool), len(m.functions), m.id)
	return nil
}

// Close releases the program and all execution state, in the order constant
// pool, operand stack, variable store, code. Calling Close again is a no-op.
func (m *VM) Close() error {
	m.pool = nil
	m.stack.release()
	m.vars.release()
	m.code = nil
	m.functions = nil
	m.prog = nil
	m.halted = true
	return nil
}

// ID identifies the current run. It changes on every Load.
func (m *VM) ID() uuid.UUID { return m.id }

// PC returns the program counter.
func (m *VM) PC() int { return m.pc }

// Halted reports whether the VM has stopped.
func (m *VM) Halted() bool { return m.halted }

// Status returns the exit status: 0 after a normal halt, 1 after a fault.
func (m *VM) Status() int { return m.status }

// Steps returns the number of instructions executed.
func (m *VM) Steps() uint64 { return m.steps }

// Fault returns the fault that stopped the VM, or nil.
func (m *VM) Fault() *Fault { return m.fault }

// StackDepth returns the number of values on the operand stack.
func (m *VM) StackDepth() int { return m.stack.depth() }

// Stack returns a copy of the operand stack, bottom first.
func (m *VM) Stack() []Value { return m.stack.snapshot() }

// Peek returns the top of the operand stack.
func (m *VM) Peek() (Value, bool) {
	v, err := m.stack.peek()
	return v, err == nil
}

// Variable returns the value of a variable slot. Unwritten slots are Null.
func (m *VM) Variable(slot uint32) (Value, bool) { return m.vars.load(slot) }

// Constants returns the constant pool.
func (m *VM) Constants() []Value { return m.pool }

// Diagnostics returns every problem reported so far, in order.
func (m *VM) Diagnostics() []Diagnostic { return m.diagnostics }

// Profiler returns the attached profiler, or nil.
func (m *VM) Profiler() *Profiler { return m.cfg.profiler }

// report records a degraded diagnostic and logs it.
func (m *VM) report(op bytecode.Opcode, offset int, err error) {
	d := Diagnostic{Severity: Degraded, Op: op, Offset: offset, Err: err}
	m.diagnostics = append(m.diagnostics, d)
	log.Warningf("%s at offset %d: %v", op, offset, err)
}

// fail stops the VM with a fault, records it and logs it.
func (m *VM) fail(f *Fault) *Fault {
	m.halted = true
	m.status = 1
	m.fault = f
	m.diagnostics = append(m.diagnostics, Diagnostic{Severity: Fatal, Op: f.Op, Offset: f.Offset, Err: f})
	log.Errorf("%v", f)
	return f
}
