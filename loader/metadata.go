package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/zraight/numium/pkg/bytecode"
)

// metadataVersion is written to the "version" key.
const metadataVersion = 1

// maxVarSlot bounds variable slots read from metadata.
const maxVarSlot = 1 << 16

// entry is one key of a JSON object, in document order.
type entry struct {
	key string
	raw json.RawMessage
}

// DecodeMetadata parses the compiler's JSON layout:
//
//	{"version": 1, "constants": [...], "variables": {name: slot}, "functions": {name: offset}}
//
// and installs constants, variable names and functions into p, in file
// order. p is left untouched when an error is returned.
func DecodeMetadata(data []byte, p *bytecode.Program) error {
	top, err := objectEntries(data)
	if err != nil {
		return err
	}

	var (
		constants []bytecode.Constant
		varNames  []string
		functions []bytecode.Function
	)
	for _, e := range top {
		switch e.key {
		case "constants":
			constants, err = decodeConstants(e.raw)
		case "variables":
			varNames, err = decodeVariables(e.raw)
		case "functions":
			functions, err = decodeFunctions(e.raw)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
	}

	for _, c := range constants {
		p.AppendConstant(c)
	}
	if varNames != nil {
		p.VarNames = varNames
	}
	for _, fn := range functions {
		p.AddFunction(fn.Name, fn.Entry)
	}
	return nil
}

// objectEntries splits a JSON object into its members, keeping order.
func objectEntries(data []byte) ([]entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected a JSON object")
	}

	var out []entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, entry{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeConstants(raw json.RawMessage) ([]bytecode.Constant, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}

	out := make([]bytecode.Constant, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, bytecode.StringConst(v))
		case bool:
			out = append(out, bytecode.BoolConst(v))
		case nil:
			out = append(out, bytecode.NullConst())
		case json.Number:
			if n, err := v.Int64(); err == nil && !strings.ContainsAny(v.String(), ".eE") {
				out = append(out, bytecode.IntConst(n))
				continue
			}
			f, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("constant %d: %w", i, err)
			}
			out = append(out, bytecode.FloatConst(f))
		default:
			return nil, fmt.Errorf("constant %d: unsupported type %T", i, item)
		}
	}
	return out, nil
}

func decodeVariables(raw json.RawMessage) ([]string, error) {
	entries, err := objectEntries(raw)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		var slot uint32
		if err := json.Unmarshal(e.raw, &slot); err != nil {
			return nil, fmt.Errorf("variable %q: %w", e.key, err)
		}
		if slot >= maxVarSlot {
			return nil, fmt.Errorf("variable %q: slot %d out of range", e.key, slot)
		}
		for int(slot) >= len(names) {
			names = append(names, "")
		}
		names[slot] = e.key
	}
	return names, nil
}

func decodeFunctions(raw json.RawMessage) ([]bytecode.Function, error) {
	entries, err := objectEntries(raw)
	if err != nil {
		return nil, err
	}
	out := make([]bytecode.Function, 0, len(entries))
	for _, e := range entries {
		var entryPoint uint32
		if err := json.Unmarshal(e.raw, &entryPoint); err != nil {
			return nil, fmt.Errorf("function %q: %w", e.key, err)
		}
		out = append(out, bytecode.Function{Name: e.key, Entry: entryPoint})
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// WriteMetadata writes p's tables in the layout DecodeMetadata reads, one
// member per line so that ScanMetadata also finds every string constant.
func WriteMetadata(w io.Writer, p *bytecode.Program) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "{\n  \"version\": %d,\n  \"constants\": [", metadataVersion)
	for i, c := range p.Constants {
		text, err := constantJSON(c)
		if err != nil {
			return fmt.Errorf("loader: constant %d: %w", i, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n    ")
		buf.WriteString(text)
	}
	if len(p.Constants) > 0 {
		buf.WriteString("\n  ")
	}
	buf.WriteString("],\n  \"variables\": {")
	first := true
	for slot, name := range p.VarNames {
		if name == "" {
			continue
		}
		writeMember(&buf, &first, name, strconv.Itoa(slot))
	}
	closeObject(&buf, first)
	buf.WriteString(",\n  \"functions\": {")
	first = true
	for _, fn := range p.Functions {
		writeMember(&buf, &first, fn.Name, strconv.FormatUint(uint64(fn.Entry), 10))
	}
	closeObject(&buf, first)
	buf.WriteString("\n}\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// WriteFiles writes p's code to path and its metadata next to it.
func WriteFiles(path string, p *bytecode.Program) error {
	if err := os.WriteFile(path, p.Code, 0644); err != nil {
		return fmt.Errorf("loader: %w", err)
	}
	f, err := os.Create(MetadataPath(path))
	if err != nil {
		return fmt.Errorf("loader: %w", err)
	}
	if err := WriteMetadata(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeMember(buf *bytes.Buffer, first *bool, key, value string) {
	if !*first {
		buf.WriteByte(',')
	}
	*first = false
	buf.WriteString("\n    ")
	buf.WriteString(jsonString(key))
	buf.WriteString(": ")
	buf.WriteString(value)
}

func closeObject(buf *bytes.Buffer, empty bool) {
	if !empty {
		buf.WriteString("\n  ")
	}
	buf.WriteByte('}')
}

func constantJSON(c bytecode.Constant) (string, error) {
	switch c.Kind {
	case bytecode.ConstString:
		return jsonString(c.Str), nil
	case bytecode.ConstInt:
		return strconv.FormatInt(c.Int, 10), nil
	case bytecode.ConstFloat:
		if math.IsNaN(c.Float) || math.IsInf(c.Float, 0) {
			return "", fmt.Errorf("float %v has no JSON form", c.Float)
		}
		s := strconv.FormatFloat(c.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s, nil
	case bytecode.ConstBool:
		return strconv.FormatBool(c.Bool), nil
	default:
		return "null", nil
	}
}

// jsonString quotes s without HTML escaping, so the scanner reads back the
// same text.
func jsonString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
