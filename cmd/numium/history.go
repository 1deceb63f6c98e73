package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/zraight/numium/history"
	"github.com/zraight/numium/manifest"
)

// handleHistoryCommand processes `numium history [--history db] [-n N]`.
func handleHistoryCommand(args []string, e env) int {
	fs := newFlagSet("history", e)
	dbFlag := fs.String("history", "", "History database (default from numium.toml)")
	limit := fs.Int("n", 20, "Number of runs to list")
	if _, err := parseArgs(fs, args); err != nil {
		return parseFailed(err)
	}

	dbPath := *dbFlag
	if dbPath == "" {
		m, err := manifest.FindOrDefault(".")
		if err != nil {
			errorf(e.stderr, "loading manifest: %v", err)
			return 1
		}
		dbPath = m.HistoryPath()
	}
	if dbPath == "" {
		errorf(e.stderr, "no history database: pass --history or set [history] path in %s", manifest.FileName)
		return 1
	}

	store, err := history.Open(dbPath)
	if err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), *limit)
	if err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Fprintln(e.stdout, "No runs recorded")
		return 0
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tSTEPS\tSTATUS\tPROGRAM")
	for _, r := range runs {
		status := fmt.Sprint(r.Status)
		if r.Fault != "" {
			status += " (" + r.Fault + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Duration(), r.Steps, status, r.Program)
	}
	return exitOnErr(e, tw.Flush())
}

func exitOnErr(e env, err error) int {
	if err != nil {
		errorf(e.stderr, "%v", err)
		return 1
	}
	return 0
}
