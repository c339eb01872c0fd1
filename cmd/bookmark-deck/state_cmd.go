package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/asheshgoplani/bookmark-deck/internal/statedb"
)

// handleState moves saved views and preferences in and out of the state
// database as a single JSON object, the shape a browser extension storage
// dump uses.
func (c *cli) handleState(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("state", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	quiet := fs.Bool("q", false, "Quiet mode")
	fs.Usage = func() {
		fmt.Fprintln(c.stderr, "Usage: bookmark-deck state export <file.json>")
		fmt.Fprintln(c.stderr, "       bookmark-deck state import <file.json>")
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	out := NewCLIOutput(c.stdout, c.stderr, *jsonOutput, *quiet)
	if fs.NArg() != 2 {
		fs.Usage()
		return exitUsage
	}
	sub, path := fs.Arg(0), fs.Arg(1)
	if sub != "export" && sub != "import" {
		out.Error(fmt.Sprintf("unknown state command %q", sub), ErrCodeInvalidArgs)
		return exitUsage
	}

	ws, ok := c.open(ctx, out, workspaceOptions{})
	if !ok {
		return exitError
	}
	defer ws.Close()

	if sub == "export" {
		n, err := statedb.ExportJSON(ctx, ws.db, path)
		if err != nil {
			out.Error(err.Error(), ErrCodeStateError)
			return exitError
		}
		out.Success(fmt.Sprintf("Exported %d record(s) to %s", n, path), map[string]any{"success": true, "records": n, "path": path})
		return exitOK
	}

	keys, err := statedb.ImportJSON(ctx, path, ws.db)
	if err != nil {
		out.Error(err.Error(), ErrCodeStateError)
		return exitError
	}
	if keys == nil {
		keys = []string{}
	}
	out.Success(fmt.Sprintf("Imported %d key(s): %s", len(keys), strings.Join(keys, ", ")),
		map[string]any{"success": true, "keys": keys})
	return exitOK
}
