package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/zraight/numium/history"
	"github.com/zraight/numium/loader"
	"github.com/zraight/numium/manifest"
	"github.com/zraight/numium/vm"
)

// handleRunCommand processes `numium run`.
// Usage:
//
//	numium run prog.numbc
//	numium run prog.numbc --debug --history runs.db
func handleRunCommand(args []string, e env) int {
	fs := newFlagSet("run", e)
	debug := fs.Bool("debug", false, "Print a YAML state snapshot after the run")
	trace := fs.Bool("trace", false, "Trace each instruction to stderr")
	strict := fs.Bool("strict", false, "Treat truncated operands as faults")
	historyPath := fs.String("history", "", "Record the run in this SQLite database")
	metadata := fs.String("metadata", "", "Metadata mode: scan or json (default from numium.toml)")
	var verbosity countFlag
	fs.Var(&verbosity, "v", "Increase log verbosity (repeatable)")

	paths, err := parseArgs(fs, args)
	if err != nil {
		return parseFailed(err)
	}
	if len(paths) != 1 {
		errorf(e.stderr, "run takes exactly one bytecode file")
		usage(e.stderr)
		return 1
	}
	path := paths[0]

	m, err := manifest.FindOrDefault(filepath.Dir(path))
	if err != nil {
		errorf(e.stderr, "loading manifest: %v", err)
		return 1
	}
	configureLogging(m, int(verbosity))

	modeName := m.Loader.Metadata
	if *metadata != "" {
		modeName = *metadata
	}
	mode, err := loader.ParseMode(modeName)
	if err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}

	prog, err := loader.LoadFile(path, mode)
	if err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}

	opts := vmOptions(m)
	opts = append(opts, vm.WithInput(e.stdin), vm.WithOutput(e.stdout))
	if *strict {
		opts = append(opts, vm.WithStrictOperands(true))
	}
	if *trace {
		opts = append(opts, vm.WithTrace(e.stderr))
	}

	dbPath := *historyPath
	if dbPath == "" {
		dbPath = m.HistoryPath()
	}
	var prof *vm.Profiler
	if dbPath != "" {
		prof = vm.NewProfiler()
		opts = append(opts, vm.WithProfiler(prof))
	}

	machine := vm.New(opts...)
	defer machine.Close()
	if err := machine.Load(prog); err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started := time.Now()
	runErr := machine.Run(ctx)
	finished := time.Now()

	status := machine.Status()
	if runErr != nil {
		errorf(e.stderr, "%v", runErr)
		if status == 0 {
			status = 1
		}
	}

	if *debug {
		// Program output has no trailing newline; start a fresh YAML document.
		fmt.Fprintln(e.stdout, "\n---")
		if err := machine.DumpState(e.stdout); err != nil {
			warnf(e.stderr, "writing state dump: %v", err)
		}
	}

	if prof != nil {
		if err := recordRun(dbPath, path, machine, prof, started, finished); err != nil {
			warnf(e.stderr, "recording run: %v", err)
		}
	}

	return status
}

// vmOptions maps the [vm] manifest section onto VM options. Zero limits
// were already replaced by defaults when the manifest loaded.
func vmOptions(m *manifest.Manifest) []vm.Option {
	return []vm.Option{
		vm.WithStackSize(m.VM.StackSize),
		vm.WithMaxVariables(m.VM.MaxVariables),
		vm.WithMaxFunctions(m.VM.MaxFunctions),
		vm.WithMaxCallDepth(m.VM.MaxCallDepth),
		vm.WithStrictOperands(m.VM.StrictOperands),
		vm.WithStripInputNewline(m.VM.StripInputNewline),
	}
}

func recordRun(dbPath, program string, machine *vm.VM, prof *vm.Profiler, started, finished time.Time) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	r := history.Run{
		ID:         machine.ID(),
		Program:    program,
		StartedAt:  started,
		FinishedAt: finished,
		Steps:      machine.Steps(),
		Status:     machine.Status(),
	}
	if f := machine.Fault(); f != nil {
		r.Fault = f.Error()
	}
	for _, c := range prof.Counts() {
		r.Profile = append(r.Profile, history.OpcodeCount{Op: c.Op, Count: c.Count})
	}

	_, err = store.Record(context.Background(), r)
	return err
}
