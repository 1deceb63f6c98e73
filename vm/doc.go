// Package vm implements the Numium virtual machine.
//
// This package contains:
//   - The tagged Value representation with List and Dict collections
//   - Coercion rules for arithmetic, comparison and logic
//   - The operand stack, variable store and call-return stack
//   - The fetch-decode-dispatch loop and its fault model
//   - An opcode profiler and YAML state snapshots
package vm
