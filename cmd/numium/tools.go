package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zraight/numium/loader"
	"github.com/zraight/numium/manifest"
	"github.com/zraight/numium/pkg/bytecode"
)

// ImageExt is the extension that selects image output.
const ImageExt = ".numi"

// loadForTool loads a bytecode file the way `run` would, honoring the
// manifest's metadata mode.
func loadForTool(path string) (*bytecode.Program, error) {
	m, err := manifest.FindOrDefault(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	mode, err := loader.ParseMode(m.Loader.Metadata)
	if err != nil {
		return nil, err
	}
	return loader.LoadFile(path, mode)
}

// handleDisasmCommand processes `numium disasm <file>`.
func handleDisasmCommand(args []string, e env) int {
	fs := newFlagSet("disasm", e)
	paths, err := parseArgs(fs, args)
	if err != nil {
		return parseFailed(err)
	}
	if len(paths) != 1 {
		errorf(e.stderr, "disasm takes exactly one bytecode file")
		return 1
	}

	prog, err := loadForTool(paths[0])
	if err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}
	fmt.Fprint(e.stdout, prog.DisassembleWithName(filepath.Base(paths[0])))
	return 0
}

// handleAsmCommand processes `numium asm`.
// Usage:
//
//	numium asm prog.nasm               # prog.numbc + prog.meta.json
//	numium asm prog.nasm -o prog.numi  # image
func handleAsmCommand(args []string, e env) int {
	fs := newFlagSet("asm", e)
	output := fs.String("o", "", "Output path (.numi writes an image)")
	paths, err := parseArgs(fs, args)
	if err != nil {
		return parseFailed(err)
	}
	if len(paths) != 1 {
		errorf(e.stderr, "asm takes exactly one source file")
		return 1
	}
	src := paths[0]

	f, err := os.Open(src)
	if err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}
	prog, err := bytecode.Assemble(f)
	f.Close()
	if err != nil {
		errorf(e.stderr, "%s: %v", src, err)
		return 1
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(src, filepath.Ext(src)) + ".numbc"
	}
	if err := writeProgram(out, prog); err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}
	return 0
}

// handlePackCommand processes `numium pack <file> [-o out.numi]`.
func handlePackCommand(args []string, e env) int {
	fs := newFlagSet("pack", e)
	output := fs.String("o", "", "Output image path")
	paths, err := parseArgs(fs, args)
	if err != nil {
		return parseFailed(err)
	}
	if len(paths) != 1 {
		errorf(e.stderr, "pack takes exactly one bytecode file")
		return 1
	}

	prog, err := loadForTool(paths[0])
	if err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(paths[0], filepath.Ext(paths[0])) + ImageExt
	}
	data, err := bytecode.EncodeImage(prog)
	if err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}
	return 0
}

// writeProgram writes an image when path ends in ImageExt and raw code plus
// a metadata side file otherwise.
func writeProgram(path string, p *bytecode.Program) error {
	if filepath.Ext(path) != ImageExt {
		return loader.WriteFiles(path, p)
	}
	data, err := bytecode.EncodeImage(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
