package vm

import (
	"context"
	"fmt"

	"github.com/zraight/numium/pkg/bytecode"
)

// Result is the outcome of a single Step.
type Result uint8

const (
	Continue Result = iota // more instructions to run
	Halted                 // stopped normally
	Faulted                // stopped on a fatal error
)

func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("Result(%d)", r)
	}
}

// instr is the instruction being executed: its opcode and the offset of
// the opcode byte.
type instr struct {
	op bytecode.Opcode
	at int
}

func (in instr) fault(err error) *Fault {
	return &Fault{Err: err, Op: in.op, Offset: in.at}
}

type handler func(m *VM, in instr) *Fault

// handlers is the dispatch table. A nil entry is either an unknown opcode
// or a declared one without an implementation.
var handlers = [256]handler{
	bytecode.OpHalt: (*VM).opHalt,
	bytecode.OpPush: (*VM).opPush,
	bytecode.OpPop:  (*VM).opPop,
	bytecode.OpDup:  (*VM).opDup,

	bytecode.OpAdd: binaryArith(Add),
	bytecode.OpSub: binaryArith(Sub),
	bytecode.OpMul: binaryArith(Mul),
	bytecode.OpDiv: binaryArith(Div),
	bytecode.OpMod: binaryArith(Mod),
	bytecode.OpNeg: (*VM).opNeg,

	bytecode.OpEq: compare(Equal),
	bytecode.OpNe: compare(func(a, b Value) bool { return !Equal(a, b) }),
	bytecode.OpLt: compare(Less),
	bytecode.OpLe: compare(LessEqual),
	bytecode.OpGt: compare(Greater),
	bytecode.OpGe: compare(GreaterEqual),

	bytecode.OpAnd: logic(And),
	bytecode.OpOr:  logic(Or),
	bytecode.OpNot: (*VM).opNot,

	bytecode.OpLoadVar:  (*VM).opLoadVar,
	bytecode.OpStoreVar: (*VM).opStoreVar,
	bytecode.OpInitVar:  (*VM).opInitVar,

	bytecode.OpJmp:      (*VM).opJmp,
	bytecode.OpJmpIf:    (*VM).opJmpIf,
	bytecode.OpJmpIfNot: (*VM).opJmpIfNot,
	bytecode.OpCall:     (*VM).opCall,
	bytecode.OpRet:      (*VM).opRet,

	bytecode.OpOutput: (*VM).opOutput,
	bytecode.OpInput:  (*VM).opInput,

	bytecode.OpMakeList:   (*VM).opMakeList,
	bytecode.OpMakeDict:   (*VM).opMakeDict,
	bytecode.OpListGet:    (*VM).opListGet,
	bytecode.OpListSet:    (*VM).opListSet,
	bytecode.OpDictGet:    (*VM).opDictGet,
	bytecode.OpDictSet:    (*VM).opDictSet,
	bytecode.OpListAppend: (*VM).opListAppend,

	bytecode.OpNop: func(*VM, instr) *Fault { return nil },
}

// ---------------------------------------------------------------------------
// Dispatch loop
// ---------------------------------------------------------------------------

// Step executes one instruction. The error is a *Fault exactly when the
// result is Faulted.
func (m *VM) Step() (Result, error) {
	if m.halted {
		if m.fault != nil {
			return Faulted, m.fault
		}
		return Halted, nil
	}
	if m.prog == nil {
		return Faulted, m.fail(&Fault{Err: ErrNoProgram})
	}
	if m.pc >= len(m.code) {
		m.halted = true
		return Halted, nil
	}

	in := instr{op: bytecode.Opcode(m.code[m.pc]), at: m.pc}
	m.pc++
	m.steps++

	if m.cfg.trace != nil {
		fmt.Fprintf(m.cfg.trace, "%04X  %-32s ; depth %d\n", in.at, m.prog.DisassembleInstruction(in.at), m.stack.depth())
	}
	if m.cfg.profiler != nil {
		m.cfg.profiler.Record(in.op)
	}

	h := handlers[in.op]
	if h == nil {
		if in.op.IsDefined() {
			return Faulted, m.fail(in.fault(ErrUnsupported))
		}
		return Faulted, m.fail(in.fault(ErrUnknownOpcode))
	}
	if f := h(m, in); f != nil {
		return Faulted, m.fail(f)
	}
	if m.halted {
		return Halted, nil
	}
	return Continue, nil
}

// Run steps until the program halts or faults. The context is checked
// between instructions; an instruction in flight always completes.
func (m *VM) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := m.Step()
		switch res {
		case Halted:
			log.Debugf("run %s halted after %d steps", m.id, m.steps)
			return nil
		case Faulted:
			return err
		}
	}
}

// operand decodes the 4-byte operand at pc. When the code ends early the
// operand reads as 0 and pc stays put, so the remaining bytes still decode
// as opcodes. Strict operands make this a fault instead.
func (m *VM) operand(in instr) (uint32, *Fault) {
	v, ok := bytecode.ReadOperand(m.code, m.pc)
	if !ok {
		if m.cfg.strict {
			return 0, in.fault(ErrTruncatedOperand)
		}
		return 0, nil
	}
	m.pc += bytecode.OperandSize
	return v, nil
}

func (m *VM) push(in instr, v Value) *Fault {
	if err := m.stack.push(v); err != nil {
		return in.fault(err)
	}
	return nil
}

func (m *VM) pop(in instr) (Value, *Fault) {
	v, err := m.stack.pop()
	if err != nil {
		return v, in.fault(err)
	}
	return v, nil
}

// pop2 pops b then a, returning them in push order.
func (m *VM) pop2(in instr) (a, b Value, f *Fault) {
	if b, f = m.pop(in); f != nil {
		return
	}
	a, f = m.pop(in)
	return
}

// pop3 pops c, b, a, returning them in push order.
func (m *VM) pop3(in instr) (a, b, c Value, f *Fault) {
	if c, f = m.pop(in); f != nil {
		return
	}
	a, b, f = m.pop2(in)
	return
}

// ---------------------------------------------------------------------------
// Stack
// ---------------------------------------------------------------------------

func (m *VM) opHalt(instr) *Fault {
	m.halted = true
	m.status = 0
	return nil
}

// opPush pushes a copy of the constant at the operand index, or the operand
// itself as an Integer when it is past the end of the pool.
func (m *VM) opPush(in instr) *Fault {
	idx, f := m.operand(in)
	if f != nil {
		return f
	}
	if int64(idx) < int64(len(m.pool)) {
		return m.push(in, m.pool[idx].Clone())
	}
	return m.push(in, Int(int64(idx)))
}

func (m *VM) opPop(in instr) *Fault {
	_, f := m.pop(in)
	return f
}

func (m *VM) opDup(in instr) *Fault {
	v, err := m.stack.peek()
	if err != nil {
		return in.fault(err)
	}
	return m.push(in, v)
}

// ---------------------------------------------------------------------------
// Arithmetic, comparison, logic
// ---------------------------------------------------------------------------

func binaryArith(fn func(a, b Value) (Value, error)) handler {
	return func(m *VM, in instr) *Fault {
		a, b, f := m.pop2(in)
		if f != nil {
			return f
		}
		r, err := fn(a, b)
		if err != nil {
			m.report(in.op, in.at, err)
		}
		return m.push(in, r)
	}
}

func compare(fn func(a, b Value) bool) handler {
	return func(m *VM, in instr) *Fault {
		a, b, f := m.pop2(in)
		if f != nil {
			return f
		}
		return m.push(in, Bool(fn(a, b)))
	}
}

func logic(fn func(a, b Value) Value) handler {
	return func(m *VM, in instr) *Fault {
		a, b, f := m.pop2(in)
		if f != nil {
			return f
		}
		return m.push(in, fn(a, b))
	}
}

func (m *VM) opNeg(in instr) *Fault {
	a, f := m.pop(in)
	if f != nil {
		return f
	}
	r, err := Neg(a)
	if err != nil {
		m.report(in.op, in.at, err)
	}
	return m.push(in, r)
}

func (m *VM) opNot(in instr) *Fault {
	a, f := m.pop(in)
	if f != nil {
		return f
	}
	return m.push(in, Not(a))
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

func (m *VM) opLoadVar(in instr) *Fault {
	slot, f := m.operand(in)
	if f != nil {
		return f
	}
	v, ok := m.vars.load(slot)
	if !ok {
		m.report(in.op, in.at, fmt.Errorf("%w: slot %d", ErrLoadRange, slot))
	}
	return m.push(in, v)
}

func (m *VM) opStoreVar(in instr) *Fault {
	slot, f := m.operand(in)
	if f != nil {
		return f
	}
	v, f := m.pop(in)
	if f != nil {
		return f
	}
	if !m.vars.store(slot, v) {
		f := in.fault(ErrStoreRange)
		f.Detail = fmt.Sprintf("slot %d", slot)
		return f
	}
	return nil
}

func (m *VM) opInitVar(in instr) *Fault {
	slot, f := m.operand(in)
	if f != nil {
		return f
	}
	if !m.vars.store(slot, Null()) {
		f := in.fault(ErrStoreRange)
		f.Detail = fmt.Sprintf("slot %d", slot)
		return f
	}
	return nil
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

// jump moves pc to target. A target equal to the code length ends the run
// on the next step.
func (m *VM) jump(in instr, target uint32) *Fault {
	if int64(target) > int64(len(m.code)) {
		f := in.fault(ErrBadJump)
		f.Detail = fmt.Sprintf("target %d, code length %d", target, len(m.code))
		return f
	}
	m.pc = int(target)
	return nil
}

// controlOperand reads the target of a control transfer. A truncated
// target transfers nowhere and execution falls through to the next byte.
func (m *VM) controlOperand(in instr) (uint32, bool, *Fault) {
	if _, ok := bytecode.ReadOperand(m.code, m.pc); !ok && !m.cfg.strict {
		return 0, false, nil
	}
	target, f := m.operand(in)
	return target, f == nil, f
}

func (m *VM) opJmp(in instr) *Fault {
	target, ok, f := m.controlOperand(in)
	if !ok {
		return f
	}
	return m.jump(in, target)
}

func (m *VM) opJmpIf(in instr) *Fault    { return m.condJump(in, true) }
func (m *VM) opJmpIfNot(in instr) *Fault { return m.condJump(in, false) }

func (m *VM) condJump(in instr, when bool) *Fault {
	target, ok, f := m.controlOperand(in)
	if !ok {
		return f
	}
	cond, f := m.pop(in)
	if f != nil {
		return f
	}
	if Truthy(cond) == when {
		return m.jump(in, target)
	}
	return nil
}

func (m *VM) opCall(in instr) *Fault {
	idx, ok, f := m.controlOperand(in)
	if !ok {
		return f
	}
	if int64(idx) >= int64(len(m.functions)) {
		f := in.fault(ErrBadFunction)
		f.Detail = fmt.Sprintf("index %d, table size %d", idx, len(m.functions))
		return f
	}
	if err := m.calls.push(m.pc); err != nil {
		return in.fault(err)
	}
	return m.jump(in, m.functions[idx].Entry)
}

// opRet returns to the caller. Returning with no caller ends the program.
func (m *VM) opRet(instr) *Fault {
	pc, ok := m.calls.pop()
	if !ok {
		m.halted = true
		m.status = 0
		return nil
	}
	m.pc = pc
	return nil
}

// ---------------------------------------------------------------------------
// I/O
// ---------------------------------------------------------------------------

func (m *VM) opOutput(in instr) *Fault {
	v, f := m.pop(in)
	if f != nil {
		return f
	}
	if err := m.writeOutput(v); err != nil {
		m.report(in.op, in.at, err)
	}
	return nil
}

func (m *VM) opInput(in instr) *Fault {
	v, err := m.readInput()
	if err != nil {
		m.report(in.op, in.at, err)
	}
	return m.push(in, v)
}

// ---------------------------------------------------------------------------
// Collections
// ---------------------------------------------------------------------------

func (m *VM) opMakeList(in instr) *Fault { return m.push(in, NewList()) }
func (m *VM) opMakeDict(in instr) *Fault { return m.push(in, NewDict()) }

func (m *VM) opListGet(in instr) *Fault {
	target, index, f := m.pop2(in)
	if f != nil {
		return f
	}
	list, ok := target.AsList()
	i, isInt := index.AsInt()
	if !ok || !isInt {
		m.report(in.op, in.at, fmt.Errorf("%w: %s[%s]", ErrTypeMismatch, target.Kind(), index.Kind()))
		return m.push(in, Null())
	}
	v, ok := list.Get(i)
	if !ok {
		m.report(in.op, in.at, fmt.Errorf("%w: index %d, length %d", ErrIndexRange, i, list.Len()))
	}
	return m.push(in, v)
}

func (m *VM) opListSet(in instr) *Fault {
	target, index, v, f := m.pop3(in)
	if f != nil {
		return f
	}
	list, ok := target.AsList()
	i, isInt := index.AsInt()
	switch {
	case !ok || !isInt:
		m.report(in.op, in.at, fmt.Errorf("%w: %s[%s]", ErrTypeMismatch, target.Kind(), index.Kind()))
	case !list.Set(i, v):
		m.report(in.op, in.at, fmt.Errorf("%w: index %d, length %d", ErrIndexRange, i, list.Len()))
	}
	return m.push(in, target)
}

func (m *VM) opListAppend(in instr) *Fault {
	target, v, f := m.pop2(in)
	if f != nil {
		return f
	}
	if list, ok := target.AsList(); ok {
		list.Append(v)
	} else {
		m.report(in.op, in.at, fmt.Errorf("%w: append to %s", ErrTypeMismatch, target.Kind()))
	}
	return m.push(in, target)
}

func (m *VM) opDictGet(in instr) *Fault {
	target, key, f := m.pop2(in)
	if f != nil {
		return f
	}
	dict, ok := target.AsDict()
	k, isStr := key.AsString()
	if !ok || !isStr {
		m.report(in.op, in.at, fmt.Errorf("%w: %s[%s]", ErrTypeMismatch, target.Kind(), key.Kind()))
		return m.push(in, Null())
	}
	v, _ := dict.Get(k)
	return m.push(in, v)
}

func (m *VM) opDictSet(in instr) *Fault {
	target, key, v, f := m.pop3(in)
	if f != nil {
		return f
	}
	dict, ok := target.AsDict()
	k, isStr := key.AsString()
	if !ok || !isStr {
		m.report(in.op, in.at, fmt.Errorf("%w: %s[%s]", ErrTypeMismatch, target.Kind(), key.Kind()))
	} else {
		dict.Set(k, v)
	}
	return m.push(in, target)
}
