package loader

import (
	"reflect"
	"testing"
)

func TestScanLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"key and value", `"version": "1.0"`, []string{"version", "1.0"}},
		{"escaped newline", `"hello\nworld"`, []string{"hello\nworld"}},
		{"tab and backslash", `"a\tb\\c"`, []string{"a\tb\\c"}},
		{"unknown escape kept", `"a\qb"`, []string{`a\qb`}},
		{"escaped quote stays inside", `"say \"hi\""`, []string{`say \"hi\"`}},
		{"several per line", `["x", "y", 3, "z"]`, []string{"x", "y", "z"}},
		{"empty string skipped", `"", "a"`, []string{"a"}},
		{"unterminated", `"abc`, nil},
		{"no quotes", `  1, 2.5,`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScanLine(tt.line); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ScanLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestScanMetadataSkipsStructuralKeys(t *testing.T) {
	data := []byte(`{
  "version": "1.0",
  "constants": [
    "hello\nworld",
    "second"
  ],
  "variables": {},
  "functions": {}
}`)

	got := ScanMetadata(data)
	want := []string{"1.0", "hello\nworld", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ScanMetadata = %q, want %q", got, want)
	}
}

func TestScanMetadataEmpty(t *testing.T) {
	if got := ScanMetadata(nil); len(got) != 0 {
		t.Errorf("ScanMetadata(nil) = %q", got)
	}
}
