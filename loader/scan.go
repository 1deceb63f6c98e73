package loader

import (
	"bufio"
	"bytes"
	"strings"
)

// structuralKeys are the metadata layout's own keys, never constants.
var structuralKeys = map[string]bool{
	"version":   true,
	"constants": true,
	"variables": true,
	"functions": true,
}

// maxLine bounds a single metadata line.
const maxLine = 1 << 20

// ScanMetadata extracts constant strings from a metadata file, in file
// order. Every double-quoted substring on each line is taken, its escapes
// decoded, and structural keys dropped. This is a best-effort scanner, not
// a JSON parser: it reads whatever quoted text it finds.
func ScanMetadata(data []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), maxLine)
	for scanner.Scan() {
		for _, s := range ScanLine(scanner.Text()) {
			if !structuralKeys[s] {
				out = append(out, s)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debugf("metadata scan stopped early: %v", err)
	}
	return out
}

// ScanLine returns the decoded contents of every quoted substring in line.
// A backslash escapes the next character, so \" does not end a string.
// Empty strings and an unterminated trailing quote are ignored.
func ScanLine(line string) []string {
	var out []string
	for {
		start := strings.IndexByte(line, '"')
		if start < 0 {
			return out
		}
		rest := line[start+1:]

		end := -1
		for i := 0; i < len(rest); i++ {
			if rest[i] == '\\' {
				i++
				continue
			}
			if rest[i] == '"' {
				end = i
				break
			}
		}
		if end < 0 {
			return out
		}
		if end > 0 {
			out = append(out, decodeEscapes(rest[:end]))
		}
		line = rest[end+1:]
	}
}

// decodeEscapes decodes \n, \t and \\. Other escapes are kept verbatim.
func decodeEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				sb.WriteByte('\n')
				i++
				continue
			case 't':
				sb.WriteByte('\t')
				i++
				continue
			case '\\':
				sb.WriteByte('\\')
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
