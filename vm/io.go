package vm

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// writeOutput prints v with no separator.
func (m *VM) writeOutput(v Value) error {
	if _, err := io.WriteString(m.out, v.String()); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

// readInput reads one line. The line terminator is kept unless the VM was
// configured to strip it. End of input with nothing read yields Null and no
// error.
func (m *VM) readInput() (Value, error) {
	line, err := m.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		if line == "" {
			return Null(), fmt.Errorf("input: %w", err)
		}
	}
	if line == "" {
		return Null(), nil
	}
	if m.cfg.stripNewline {
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
	}
	return Str(line), nil
}
