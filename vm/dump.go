package vm

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Snapshot is a plain-data view of the VM state, for --debug output.
type Snapshot struct {
	Run         string        `yaml:"run"`
	PC          int           `yaml:"pc"`
	Halted      bool          `yaml:"halted"`
	Status      int           `yaml:"status"`
	Steps       uint64        `yaml:"steps"`
	Fault       string        `yaml:"fault,omitempty"`
	Stack       []any         `yaml:"stack"`
	CallDepth   int           `yaml:"call_depth"`
	Variables   []VarSnapshot `yaml:"variables,omitempty"`
	Constants   []any         `yaml:"constants,omitempty"`
	Diagnostics []string      `yaml:"diagnostics,omitempty"`
}

// VarSnapshot is one written variable slot.
type VarSnapshot struct {
	Slot  int    `yaml:"slot"`
	Name  string `yaml:"name,omitempty"`
	Value any    `yaml:"value"`
}

// Snapshot captures the current state. The stack is listed bottom first.
func (m *VM) Snapshot() Snapshot {
	s := Snapshot{
		Run:       m.id.String(),
		PC:        m.pc,
		Halted:    m.halted,
		Status:    m.status,
		Steps:     m.steps,
		CallDepth: m.calls.depth(),
		Stack:     []any{},
	}
	if m.fault != nil {
		s.Fault = m.fault.Error()
	}
	for _, v := range m.stack.items {
		s.Stack = append(s.Stack, v.Interface())
	}
	for slot, written := range m.vars.written {
		if !written {
			continue
		}
		vs := VarSnapshot{Slot: slot, Value: m.vars.slots[slot].Interface()}
		if m.prog != nil {
			vs.Name = m.prog.VarName(uint32(slot))
		}
		s.Variables = append(s.Variables, vs)
	}
	for _, c := range m.pool {
		s.Constants = append(s.Constants, c.Interface())
	}
	for _, d := range m.diagnostics {
		s.Diagnostics = append(s.Diagnostics, d.String())
	}
	return s
}

// DumpState writes Snapshot as YAML to w.
func (m *VM) DumpState(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m.Snapshot()); err != nil {
		return fmt.Errorf("vm: dump state: %w", err)
	}
	return enc.Close()
}
