package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/ui"
	"github.com/asheshgoplani/bookmark-deck/internal/views"
)

// viewJSON is one saved view in JSON output.
type viewJSON struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Label   string      `json:"label"`
	Active  bool        `json:"active"`
	Filters filter.List `json:"filters"`
}

func (c *cli) handleViews(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("views", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	quiet := fs.Bool("q", false, "Quiet mode")
	fs.Usage = func() {
		fmt.Fprintln(c.stderr, "Usage: bookmark-deck views [list|save|load|delete|duplicate|rename|clear] [args]")
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
	out := NewCLIOutput(c.stdout, c.stderr, *jsonOutput, *quiet)

	sub, rest := "list", fs.Args()
	if len(rest) > 0 {
		sub, rest = rest[0], rest[1:]
	}
	need := map[string]int{"save": 1, "load": 1, "delete": 1, "rm": 1, "duplicate": 1, "dup": 1, "rename": 2}
	if n, ok := need[sub]; ok && len(rest) < n {
		out.Error(fmt.Sprintf("usage: bookmark-deck views %s %s", sub, viewArgsUsage(sub)), ErrCodeInvalidArgs)
		return exitUsage
	}

	ws, ok := c.open(ctx, out, workspaceOptions{})
	if !ok {
		return exitError
	}
	defer ws.Close()
	store := ws.deck.Views
	names := ws.deck.Engine.Snapshot()

	switch sub {
	case "list", "ls":
		list := store.List()
		activeID := store.ActiveID()
		items := make([]viewJSON, 0, len(list))
		for _, v := range list {
			items = append(items, viewJSON{ID: v.ID, Name: v.Name, Label: views.DisplayName(v, names), Active: v.ID == activeID, Filters: v.Filters})
		}
		var b strings.Builder
		_ = ui.RenderViews(&b, list, activeID, names)
		out.Print(b.String(), map[string]any{"views": items, "activeView": activeID})
		return exitOK

	case "save":
		v := store.Save(ctx, strings.Join(rest, " "))
		ws.save(ctx, out)
		out.Success(fmt.Sprintf("Saved view %q (%s)", views.DisplayName(v, names), v.ID),
			map[string]any{"success": true, "view": v})
		return exitOK

	case "load":
		if _, err := store.Get(rest[0]); err != nil {
			out.Error(fmt.Sprintf("view %q not found", rest[0]), ErrCodeNotFound)
			return exitError
		}
		if !store.Load(rest[0]) {
			out.Error(fmt.Sprintf("view %q has invalid filters", rest[0]), ErrCodeInvalidFilter)
			return exitError
		}
		ws.save(ctx, out)
		v, _ := store.Get(rest[0])
		out.Success(fmt.Sprintf("Loaded view %q", views.DisplayName(v, names)),
			map[string]any{"success": true, "view": v})
		return exitOK

	case "delete", "rm":
		if !store.Delete(ctx, rest[0]) {
			out.Error(fmt.Sprintf("view %q not found", rest[0]), ErrCodeNotFound)
			return exitError
		}
		ws.save(ctx, out)
		out.Success(fmt.Sprintf("Deleted view %s", rest[0]), map[string]any{"success": true, "id": rest[0]})
		return exitOK

	case "duplicate", "dup":
		v, ok := store.Duplicate(ctx, rest[0])
		if !ok {
			out.Error(fmt.Sprintf("view %q not found", rest[0]), ErrCodeNotFound)
			return exitError
		}
		out.Success(fmt.Sprintf("Duplicated as %q (%s)", views.DisplayName(v, names), v.ID),
			map[string]any{"success": true, "view": v})
		return exitOK

	case "rename":
		name := strings.Join(rest[1:], " ")
		if !store.Rename(ctx, rest[0], name) {
			out.Error(fmt.Sprintf("view %q not found", rest[0]), ErrCodeNotFound)
			return exitError
		}
		out.Success(fmt.Sprintf("Renamed view %s to %q", rest[0], name), map[string]any{"success": true, "id": rest[0], "name": name})
		return exitOK

	case "clear":
		store.ClearActive()
		ws.save(ctx, out)
		out.Success("No active view", map[string]any{"success": true})
		return exitOK
	}

	out.Error(fmt.Sprintf("unknown views command %q", sub), ErrCodeInvalidArgs)
	return exitUsage
}

func viewArgsUsage(sub string) string {
	switch sub {
	case "save":
		return "<name>"
	case "rename":
		return "<id> <name>"
	}
	return "<id>"
}
