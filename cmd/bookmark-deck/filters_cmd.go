package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/asheshgoplani/bookmark-deck/internal/clipboard"
	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/query"
	"github.com/asheshgoplani/bookmark-deck/internal/ui"
)

// filterJSON is one active filter in JSON output.
type filterJSON struct {
	Input string `json:"input"`
	filter.Capsule
}

func (c *cli) handleFilters(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("filters", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	quiet := fs.Bool("q", false, "Quiet mode")
	fs.Usage = func() {
		fmt.Fprint(c.stderr, heredoc.Doc(`
			Usage: bookmark-deck filters [show|add|remove|clear] [input...]

			Inputs:
			  #tag             titles carrying the tag
			  folder:ID        bookmarks in the folder or below it
			  strictfolder:ID  bookmarks directly in the folder
			  title:text       title contains text
			  url:text         URL contains text
			  text             title or URL contains text
			A leading "-" negates any input, e.g. -#draft.

			Options:
		`))
		fs.PrintDefaults()
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	out := NewCLIOutput(c.stdout, c.stderr, *jsonOutput, *quiet)

	sub, rest := "show", fs.Args()
	if len(rest) > 0 {
		sub, rest = rest[0], rest[1:]
	}

	ws, ok := c.open(ctx, out, workspaceOptions{})
	if !ok {
		return exitError
	}
	defer ws.Close()
	e := ws.deck.Engine

	switch sub {
	case "show", "list", "ls":
		return c.printFilters(out, ws)

	case "add":
		if len(rest) == 0 {
			out.Error("usage: bookmark-deck filters add <input>...", ErrCodeInvalidArgs)
			return exitUsage
		}
		var added []string
		for _, in := range rest {
			f, err := filter.ParseInput(in)
			if err != nil {
				out.Error(err.Error(), ErrCodeInvalidFilter)
				return exitUsage
			}
			ok, err := e.AddFilter(f)
			if err != nil {
				out.Error(err.Error(), ErrCodeInvalidFilter)
				return exitUsage
			}
			if ok {
				added = append(added, filter.FormatInput(f))
			}
		}
		ws.save(ctx, out)
		if len(added) == 0 {
			out.Success("Filters unchanged", map[string]any{"success": true, "added": []string{}})
			return exitOK
		}
		out.Success(fmt.Sprintf("Added %s", strings.Join(added, ", ")), map[string]any{"success": true, "added": added})
		return exitOK

	case "remove", "rm":
		if len(rest) != 1 {
			out.Error("usage: bookmark-deck filters remove <input>", ErrCodeInvalidArgs)
			return exitUsage
		}
		f, err := filter.ParseInput(rest[0])
		if err != nil {
			out.Error(err.Error(), ErrCodeInvalidFilter)
			return exitUsage
		}
		if !e.RemoveFilter(f) {
			out.Error(fmt.Sprintf("filter %q is not active", rest[0]), ErrCodeNotFound)
			return exitError
		}
		ws.save(ctx, out)
		out.Success(fmt.Sprintf("Removed %s", filter.FormatInput(f)), map[string]any{"success": true, "removed": filter.FormatInput(f)})
		return exitOK

	case "clear":
		cleared := e.ClearFilters()
		ws.save(ctx, out)
		out.Success("Cleared filters", map[string]any{"success": true, "changed": cleared})
		return exitOK
	}

	out.Error(fmt.Sprintf("unknown filters command %q", sub), ErrCodeInvalidArgs)
	return exitUsage
}

func (c *cli) printFilters(out *CLIOutput, ws *workspace) int {
	active := ws.deck.Engine.Filters()
	snap := ws.deck.Engine.Snapshot()
	list := make([]filterJSON, 0, len(active))
	caps := make([]filter.Capsule, 0, len(active))
	var b strings.Builder
	for _, f := range active {
		cp := filter.Describe(f, snap)
		caps = append(caps, cp)
		list = append(list, filterJSON{Input: filter.FormatInput(f), Capsule: cp})
		fmt.Fprintf(&b, "%s %-24s %s\n", bulletSymbol, filter.FormatInput(f), ui.DimStyle.Render(cp.Tooltip))
	}
	if len(active) == 0 {
		b.WriteString(ui.RenderChips(caps) + "\n")
	}
	out.Print(b.String(), map[string]any{"filters": list, "activeView": ws.deck.Views.ActiveID()})
	return exitOK
}

func (c *cli) handleSort(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("sort", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	quiet := fs.Bool("q", false, "Quiet mode")
	fs.Usage = func() {
		fmt.Fprintln(c.stderr, "Usage: bookmark-deck sort [id|title|dateAdded|dateLastUsed] [asc|desc]")
		fmt.Fprintln(c.stderr, "       bookmark-deck sort toggle")
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	out := NewCLIOutput(c.stdout, c.stderr, *jsonOutput, *quiet)
	if fs.NArg() > 2 {
		fs.Usage()
		return exitUsage
	}

	ws, ok := c.open(ctx, out, workspaceOptions{})
	if !ok {
		return exitError
	}
	defer ws.Close()
	e := ws.deck.Engine
	key, dir := e.Sort()

	switch {
	case fs.NArg() == 0:
		out.Print(fmt.Sprintf("%s %s\n", key, dir), map[string]any{"sort": key, "sortDirection": dir})
		return exitOK
	case fs.Arg(0) == "toggle":
		dir = e.ToggleDirection()
	default:
		k, err := query.ParseSortKey(fs.Arg(0))
		if err != nil {
			out.Error(err.Error(), ErrCodeInvalidArgs)
			return exitUsage
		}
		key = k
		if fs.NArg() == 2 {
			d, err := query.ParseDirection(fs.Arg(1))
			if err != nil {
				out.Error(err.Error(), ErrCodeInvalidArgs)
				return exitUsage
			}
			dir = d
		}
		e.SetSort(key, dir)
	}
	ws.save(ctx, out)
	out.Success(fmt.Sprintf("Sorting by %s %s", key, dir), map[string]any{"success": true, "sort": key, "sortDirection": dir})
	return exitOK
}

func (c *cli) handleRename(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	quiet := fs.Bool("q", false, "Quiet mode")
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	out := NewCLIOutput(c.stdout, c.stderr, *jsonOutput, *quiet)
	if fs.NArg() < 2 {
		out.Error("usage: bookmark-deck rename <id> <title>", ErrCodeInvalidArgs)
		return exitUsage
	}
	id := fs.Arg(0)
	title := strings.Join(fs.Args()[1:], " ")

	ws, ok := c.open(ctx, out, workspaceOptions{})
	if !ok {
		return exitError
	}
	defer ws.Close()
	if msg, code, ok := ws.requireTree(); !ok {
		out.Error(msg, code)
		return exitError
	}

	wrote, err := ws.deck.Engine.RenameBookmark(ctx, id, title)
	if err != nil {
		out.Error(err.Error(), errorCodeFor(err))
		return exitError
	}
	if !wrote {
		out.Success("Title unchanged", map[string]any{"success": true, "id": id, "updated": false})
		return exitOK
	}
	out.Success(fmt.Sprintf("Renamed %s to %q", id, title), map[string]any{"success": true, "id": id, "updated": true})
	return exitOK
}

// newCopier is swapped out in tests.
var newCopier = clipboard.Default

func (c *cli) handleCopy(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("copy", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	format := fs.String("format", "url", "What to copy: url, markdown or title")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	quiet := fs.Bool("q", false, "Quiet mode")
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	out := NewCLIOutput(c.stdout, c.stderr, *jsonOutput, *quiet)
	if fs.NArg() != 1 {
		out.Error("usage: bookmark-deck copy <id> [--format url|markdown|title]", ErrCodeInvalidArgs)
		return exitUsage
	}
	fmtKind, err := clipboard.ParseFormat(*format)
	if err != nil {
		out.Error(err.Error(), ErrCodeInvalidArgs)
		return exitUsage
	}

	ws, ok := c.open(ctx, out, workspaceOptions{})
	if !ok {
		return exitError
	}
	defer ws.Close()
	if msg, code, ok := ws.requireTree(); !ok {
		out.Error(msg, code)
		return exitError
	}

	n, found := ws.deck.Engine.Snapshot().Lookup(fs.Arg(0))
	if !found {
		out.Error(fmt.Sprintf("bookmark %q not found", fs.Arg(0)), ErrCodeNotFound)
		return exitError
	}
	text, err := clipboard.Text(n, fmtKind)
	if err != nil {
		out.Error(fmt.Sprintf("%s: %v", n.ID, err), ErrCodeInvalidOperation)
		return exitError
	}
	res, err := newCopier().Copy(text)
	if err != nil {
		out.Error(err.Error(), ErrCodeInvalidOperation)
		return exitError
	}
	out.Success(fmt.Sprintf("Copied %s (%s)", ui.Truncate(text, 60), res.Method),
		map[string]any{"success": true, "id": n.ID, "text": text, "method": res.Method})
	return exitOK
}
