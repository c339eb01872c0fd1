package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
	"github.com/asheshgoplani/bookmark-deck/internal/engine"
	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/query"
	"github.com/asheshgoplani/bookmark-deck/internal/tags"
	"github.com/asheshgoplani/bookmark-deck/internal/ui"
)

// listResult is the JSON shape of `list --json`.
type listResult struct {
	Bookmarks     []bookmark.Node  `json:"bookmarks"`
	Count         int              `json:"count"`
	Sort          query.SortKey    `json:"sort"`
	SortDirection query.Direction  `json:"sortDirection"`
	Filters       []filter.Capsule `json:"filters"`
	Query         string           `json:"query,omitempty"`
}

// handleList prints the bookmarks matching the saved query state, adjusted
// by flags for this run only.
func (c *cli) handleList(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	sortKey := fs.String("sort", "", "Sort key: id, title, dateAdded, dateLastUsed")
	direction := fs.String("dir", "", "Sort direction: asc or desc")
	viewID := fs.String("view", "", "Use a saved view's filters")
	rawQuery := fs.String("query", "", "Shareable query string (sort=...&sortDirection=...&filterTags=...)")
	since := fs.String("since", "", "Only bookmarks added on or after this date (e.g. 2024-01-31, \"Jan 2 2024\")")
	until := fs.String("until", "", "Only bookmarks added before this date")
	width := fs.Int("width", 0, "Output width (default: terminal width)")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	quiet := fs.Bool("q", false, "Quiet mode")
	var filters stringSlice
	fs.Var(&filters, "filter", "Extra filter input, repeatable (#tag, -#tag, folder:ID, title:x, url:x, text)")

	fs.Usage = func() {
		fmt.Fprintln(c.stderr, "Usage: bookmark-deck list [options] [filter...]")
		fmt.Fprintln(c.stderr)
		fmt.Fprintln(c.stderr, "List bookmarks. Extra filters and sort flags apply to this run only.")
		fmt.Fprintln(c.stderr)
		fmt.Fprintln(c.stderr, "Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	filters = append(filters, fs.Args()...)

	out := NewCLIOutput(c.stdout, c.stderr, *jsonOutput, *quiet)
	ws, ok := c.open(ctx, out, workspaceOptions{})
	if !ok {
		return exitError
	}
	defer ws.Close()
	if msg, code, ok := ws.requireTree(); !ok {
		out.Error(msg, code)
		return exitError
	}
	e := ws.deck.Engine

	p := e.Params()
	if *rawQuery != "" {
		values, err := url.ParseQuery(strings.TrimPrefix(*rawQuery, "?"))
		if err != nil {
			out.Error(fmt.Sprintf("invalid --query: %v", err), ErrCodeInvalidArgs)
			return exitUsage
		}
		decoded, err := engine.DecodeParams(values)
		if err != nil {
			out.Warn(fmt.Sprintf("query partly ignored: %v", err))
		}
		p = decoded
	}
	if *viewID != "" {
		v, err := ws.deck.Views.Get(*viewID)
		if err != nil {
			out.Error(fmt.Sprintf("view %q not found", *viewID), ErrCodeNotFound)
			return exitError
		}
		p.Filters = filter.Clone(v.Filters)
	}
	if len(filters) > 0 {
		extra, err := filter.ParseInputs(filters)
		if err != nil {
			out.Error(err.Error(), ErrCodeInvalidFilter)
			return exitUsage
		}
		set := filter.NewSet(p.Filters...)
		for _, f := range extra {
			if _, err := set.Add(f); err != nil {
				out.Error(err.Error(), ErrCodeInvalidFilter)
				return exitUsage
			}
		}
		p.Filters = set.List()
	}
	if *sortKey != "" {
		k, err := query.ParseSortKey(*sortKey)
		if err != nil {
			out.Error(err.Error(), ErrCodeInvalidArgs)
			return exitUsage
		}
		p.Key = k
	}
	if *direction != "" {
		d, err := query.ParseDirection(*direction)
		if err != nil {
			out.Error(err.Error(), ErrCodeInvalidArgs)
			return exitUsage
		}
		p.Direction = d
	}

	var from, to time.Time
	for _, b := range []struct {
		flag  string
		value string
		dst   *time.Time
	}{{"since", *since, &from}, {"until", *until, &to}} {
		if b.value == "" {
			continue
		}
		t, err := dateparse.ParseLocal(b.value)
		if err != nil {
			out.Error(fmt.Sprintf("invalid --%s: %v", b.flag, err), ErrCodeInvalidArgs)
			return exitUsage
		}
		*b.dst = t
	}

	nodes := addedBetween(e.Query(p), from, to)
	snap := e.Snapshot()
	caps := make([]filter.Capsule, 0, len(p.Filters))
	for _, f := range p.Filters {
		caps = append(caps, filter.Describe(f, snap))
	}

	if *jsonOutput {
		res := listResult{
			Bookmarks:     nodes,
			Count:         len(nodes),
			Sort:          p.Key,
			SortDirection: p.Direction,
			Filters:       caps,
		}
		if res.Bookmarks == nil {
			res.Bookmarks = []bookmark.Node{}
		}
		if values, err := engine.EncodeParams(p); err == nil {
			res.Query = values.Encode()
		}
		out.Print("", res)
		return exitOK
	}

	w := *width
	if w <= 0 {
		w = terminalWidth(c.stdout)
	}
	var b strings.Builder
	if len(caps) > 0 {
		fmt.Fprintf(&b, "%s %s\n\n", ui.DimStyle.Render("Filters:"), ui.RenderChips(caps))
	}
	if err := ui.RenderBookmarks(&b, nodes, w, c.now()); err != nil {
		out.Error(err.Error(), ErrCodeInvalidOperation)
		return exitError
	}
	fmt.Fprintf(&b, "\n%s\n", ui.DimStyle.Render(fmt.Sprintf("%d bookmark(s), sorted by %s %s", len(nodes), p.Key, p.Direction)))
	out.Print(b.String(), nil)
	return exitOK
}

// addedBetween keeps nodes added in [from, to). Zero bounds are open.
// Bookmarks without a creation date never match a bound.
func addedBetween(nodes []bookmark.Node, from, to time.Time) []bookmark.Node {
	if from.IsZero() && to.IsZero() {
		return nodes
	}
	out := make([]bookmark.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.DateAdded == 0 {
			continue
		}
		added := time.UnixMilli(n.DateAdded)
		if !from.IsZero() && added.Before(from) {
			continue
		}
		if !to.IsZero() && !added.Before(to) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// handleTags prints the tag sidebar.
func (c *cli) handleTags(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("tags", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	out := NewCLIOutput(c.stdout, c.stderr, *jsonOutput, false)
	ws, ok := c.open(ctx, out, workspaceOptions{})
	if !ok {
		return exitError
	}
	defer ws.Close()
	if msg, code, ok := ws.requireTree(); !ok {
		out.Error(msg, code)
		return exitError
	}

	entries := ws.deck.Engine.Sidebar()
	if entries == nil {
		entries = []tags.SidebarEntry{}
	}
	var b strings.Builder
	_ = ui.RenderTagList(&b, entries)
	out.Print(b.String(), map[string]any{"tags": entries})
	return exitOK
}

// handleFolders prints the folder tree.
func (c *cli) handleFolders(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("folders", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	out := NewCLIOutput(c.stdout, c.stderr, *jsonOutput, false)
	ws, ok := c.open(ctx, out, workspaceOptions{})
	if !ok {
		return exitError
	}
	defer ws.Close()
	if msg, code, ok := ws.requireTree(); !ok {
		out.Error(msg, code)
		return exitError
	}

	roots := ws.deck.Engine.FolderTree()
	if roots == nil {
		roots = []*bookmark.FolderNode{}
	}
	var b strings.Builder
	_ = ui.RenderFolderTree(&b, roots)
	out.Print(b.String(), map[string]any{"folders": roots})
	return exitOK
}

// handleSuggest completes a partial tag input.
func (c *cli) handleSuggest(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("suggest", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	out := NewCLIOutput(c.stdout, c.stderr, *jsonOutput, false)
	if fs.NArg() != 1 {
		out.Error("usage: bookmark-deck suggest <#partial>", ErrCodeInvalidArgs)
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

	suggestions := ws.deck.Engine.Suggest(fs.Arg(0))
	if suggestions == nil {
		suggestions = []tags.Suggestion{}
	}
	var b strings.Builder
	for _, s := range suggestions {
		fmt.Fprintf(&b, "%s %s\n", s.Text(), ui.DimStyle.Render(fmt.Sprintf("(%d)", s.Count)))
	}
	out.Print(b.String(), map[string]any{"suggestions": suggestions})
	return exitOK
}
