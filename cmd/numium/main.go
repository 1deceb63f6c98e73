// Numium CLI - runs, inspects and assembles Numium bytecode
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/zraight/numium/manifest"
)

// env carries the process streams so commands can be driven from tests.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}))
}

// run dispatches a command line and returns the process exit status.
func run(args []string, e env) int {
	if len(args) == 0 {
		usage(e.stderr)
		return 1
	}

	switch args[0] {
	case "-h", "--help", "help":
		usage(e.stdout)
		return 0
	case "run":
		return handleRunCommand(args[1:], e)
	case "disasm":
		return handleDisasmCommand(args[1:], e)
	case "asm":
		return handleAsmCommand(args[1:], e)
	case "pack":
		return handlePackCommand(args[1:], e)
	case "history":
		return handleHistoryCommand(args[1:], e)
	}

	// Bare file argument: numium prog.numbc [--debug]
	if !strings.HasPrefix(args[0], "-") {
		return handleRunCommand(args, e)
	}
	errorf(e.stderr, "unknown option %s", args[0])
	usage(e.stderr)
	return 1
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: numium <command> [options] <file>\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  run <bytecode-file>     Execute a program (the command name may be omitted)\n")
	fmt.Fprintf(w, "  disasm <bytecode-file>  Print a disassembly listing\n")
	fmt.Fprintf(w, "  asm <source.nasm>       Assemble source into bytecode\n")
	fmt.Fprintf(w, "  pack <bytecode-file>    Bundle bytecode and metadata into a .numi image\n")
	fmt.Fprintf(w, "  history                 List recorded runs\n")
	fmt.Fprintf(w, "\nRun options:\n")
	fmt.Fprintf(w, "  --debug          Print a YAML state snapshot after the run\n")
	fmt.Fprintf(w, "  --trace          Trace each instruction to stderr\n")
	fmt.Fprintf(w, "  --strict         Treat truncated operands as faults\n")
	fmt.Fprintf(w, "  --history <db>   Record the run in a SQLite database\n")
	fmt.Fprintf(w, "  --metadata <m>   Metadata mode: scan or json\n")
	fmt.Fprintf(w, "  -v               Increase log verbosity (repeatable)\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  numium run prog.numbc --debug\n")
	fmt.Fprintf(w, "  numium asm loop.nasm -o loop.numbc  # writes loop.numbc + loop.meta.json\n")
	fmt.Fprintf(w, "  numium asm loop.nasm -o loop.numi   # writes an image\n")
	fmt.Fprintf(w, "  numium history -n 5\n")
}

// errorf prints a user-facing error, coloured when stderr is a terminal.
func errorf(w io.Writer, format string, args ...any) {
	prefix := "Error:"
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		prefix = "\x1b[31mError:\x1b[0m"
	}
	fmt.Fprintf(w, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

// warnf prints a non-fatal problem.
func warnf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "Warning: %s\n", fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// Flag helpers
// ---------------------------------------------------------------------------

// countFlag counts repeated boolean flags (-v -v).
type countFlag int

func (c *countFlag) String() string { return strconv.Itoa(int(*c)) }

func (c *countFlag) Set(s string) error {
	if s == "true" {
		*c++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*c = countFlag(n)
	return nil
}

func (c *countFlag) IsBoolFlag() bool { return true }

// parseArgs parses flags that may appear before or after positional
// arguments and returns the positionals in order.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// parseFailed maps a flag parse error to an exit status.
func parseFailed(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 1
}

func newFlagSet(name string, e env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// configureLogging points commonlog at the manifest's log file. Flags raise
// the configured verbosity.
func configureLogging(m *manifest.Manifest, extra int) {
	verbosity := m.Log.Verbosity + extra
	if path := m.LogPath(); path != "" {
		commonlog.Configure(verbosity, &path)
		return
	}
	commonlog.Configure(verbosity, nil)
}
