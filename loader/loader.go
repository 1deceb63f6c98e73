// Package loader reads Numium programs from disk: raw bytecode with its
// .meta.json side file, or a self-contained program image.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/zraight/numium/pkg/bytecode"
)

var log = commonlog.GetLogger("numium.loader")

// MetadataSuffix replaces the bytecode file's extension to name its side
// file.
const MetadataSuffix = ".meta.json"

// Mode selects how the metadata side file is read.
type Mode uint8

const (
	// Scan extracts every quoted string, line by line, into the pool.
	Scan Mode = iota
	// JSON decodes the file as JSON, keeping constant types and reading the
	// function and variable tables. Falls back to Scan on decode errors.
	JSON
)

func (m Mode) String() string {
	if m == JSON {
		return "json"
	}
	return "scan"
}

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "scan":
		return Scan, nil
	case "json":
		return JSON, nil
	}
	return Scan, fmt.Errorf("loader: unknown metadata mode %q", s)
}

// LoadFile reads the program at path. Images are decoded whole; anything
// else is raw bytecode whose constant pool comes from the side file named
// by MetadataPath. A missing or unreadable side file leaves the pool empty.
func LoadFile(path string, mode Mode) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: cannot read %s: %w", path, err)
	}

	if bytecode.IsImage(data) {
		p, err := bytecode.DecodeImage(data)
		if err != nil {
			return nil, fmt.Errorf("loader: %s: %w", path, err)
		}
		log.Debugf("loaded image %s: %d bytes of code", path, len(p.Code))
		return p, nil
	}

	p := &bytecode.Program{Code: data}
	LoadMetadata(MetadataPath(path), p, mode)
	log.Debugf("loaded %s: %d bytes of code, %d constants", path, len(p.Code), len(p.Constants))
	return p, nil
}

// MetadataPath returns the side file for a bytecode path: the last
// extension of the file name is replaced by MetadataSuffix.
func MetadataPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + MetadataSuffix
}

// LoadMetadata fills p's tables from the side file at path. Failures are
// logged at debug level and otherwise ignored.
func LoadMetadata(path string, p *bytecode.Program, mode Mode) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Debugf("no metadata at %s: %v", path, err)
		return
	}

	if mode == JSON {
		err := DecodeMetadata(data, p)
		if err == nil {
			return
		}
		log.Debugf("metadata %s is not valid JSON, scanning instead: %v", path, err)
	}

	for _, s := range ScanMetadata(data) {
		p.AppendConstant(bytecode.StringConst(s))
	}
}
