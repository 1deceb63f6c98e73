package vm

// ---------------------------------------------------------------------------
// Operand stack
// ---------------------------------------------------------------------------

// operandStack is a LIFO of Values with a hard capacity.
type operandStack struct {
	items []Value
	limit int
}

func newOperandStack(limit int) operandStack {
	return operandStack{items: make([]Value, 0, min(limit, 64)), limit: limit}
}

// push fails with ErrStackOverflow at capacity, leaving the stack unchanged.
func (s *operandStack) push(v Value) error {
	if len(s.items) >= s.limit {
		return ErrStackOverflow
	}
	s.items = append(s.items, v)
	return nil
}

// pop fails with ErrStackUnderflow on an empty stack and returns Null.
func (s *operandStack) pop() (Value, error) {
	n := len(s.items)
	if n == 0 {
		return Null(), ErrStackUnderflow
	}
	v := s.items[n-1]
	s.items[n-1] = Value{} // drop the reference for the GC
	s.items = s.items[:n-1]
	return v, nil
}

func (s *operandStack) peek() (Value, error) {
	if len(s.items) == 0 {
		return Null(), ErrStackUnderflow
	}
	return s.items[len(s.items)-1], nil
}

func (s *operandStack) depth() int { return len(s.items) }

// snapshot returns the stack bottom first.
func (s *operandStack) snapshot() []Value {
	out := make([]Value, len(s.items))
	copy(out, s.items)
	return out
}

func (s *operandStack) release() { s.items = nil }

// ---------------------------------------------------------------------------
// Call-return stack
// ---------------------------------------------------------------------------

type callStack struct {
	returns []int
	limit   int
}

func (c *callStack) push(pc int) error {
	if len(c.returns) >= c.limit {
		return ErrCallDepth
	}
	c.returns = append(c.returns, pc)
	return nil
}

// pop reports false when the stack is empty.
func (c *callStack) pop() (int, bool) {
	n := len(c.returns)
	if n == 0 {
		return 0, false
	}
	pc := c.returns[n-1]
	c.returns = c.returns[:n-1]
	return pc, true
}

func (c *callStack) depth() int { return len(c.returns) }

// ---------------------------------------------------------------------------
// Variable store
// ---------------------------------------------------------------------------

// varStore is a fixed bank of slots. Slots start out Null; written tracks
// which ones a program has initialized.
type varStore struct {
	slots   []Value
	written []bool
}

func newVarStore(size int) varStore {
	return varStore{slots: make([]Value, size), written: make([]bool, size)}
}

func (s *varStore) inRange(slot uint32) bool {
	return int64(slot) < int64(len(s.slots))
}

// load returns Null for unwritten slots. ok is false when slot is out of
// range.
func (s *varStore) load(slot uint32) (Value, bool) {
	if !s.inRange(slot) {
		return Null(), false
	}
	return s.slots[slot], true
}

func (s *varStore) store(slot uint32, v Value) bool {
	if !s.inRange(slot) {
		return false
	}
	s.slots[slot] = v
	s.written[slot] = true
	return true
}

func (s *varStore) release() {
	s.slots = nil
	s.written = nil
}
