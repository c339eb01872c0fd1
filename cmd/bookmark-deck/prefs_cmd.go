package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/asheshgoplani/bookmark-deck/internal/prefs"
	"github.com/asheshgoplani/bookmark-deck/internal/ui"
)

// handlePrefs shows or changes the stored preferences:
//
//	prefs [show]
//	prefs set theme light|dark|system
//	prefs set sidebar true|false
//	prefs set sidebar-mode tags|folders|views
func (c *cli) handlePrefs(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("prefs", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	quiet := fs.Bool("q", false, "Quiet mode")
	fs.Usage = func() {
		fmt.Fprint(c.stderr, heredoc.Doc(`
			Usage: bookmark-deck prefs [show]
			       bookmark-deck prefs set theme <light|dark|system>
			       bookmark-deck prefs set sidebar <true|false>
			       bookmark-deck prefs set sidebar-mode <tags|folders|views>
		`))
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	out := NewCLIOutput(c.stdout, c.stderr, *jsonOutput, *quiet)

	sub := "show"
	if fs.NArg() > 0 {
		sub = fs.Arg(0)
	}
	if sub != "show" && (sub != "set" || fs.NArg() != 3) {
		fs.Usage()
		return exitUsage
	}

	ws, ok := c.open(ctx, out, workspaceOptions{})
	if !ok {
		return exitError
	}
	defer ws.Close()
	p := ws.prefs

	if sub == "show" {
		human := fmt.Sprintf("theme:        %s (%s)\nsidebar:      %t\nsidebar-mode: %s\n",
			p.Theme, p.Resolve(), p.SidebarOpen, p.SidebarMode)
		out.Print(human, map[string]any{
			"theme":         p.Theme,
			"resolvedTheme": p.Resolve(),
			"sidebarOpen":   p.SidebarOpen,
			"sidebarMode":   p.SidebarMode,
		})
		return exitOK
	}

	key, value := fs.Arg(1), fs.Arg(2)
	switch key {
	case "theme":
		t, err := prefs.ParseTheme(value)
		if err != nil {
			out.Error(err.Error(), ErrCodeInvalidArgs)
			return exitUsage
		}
		p.Theme = t
	case "sidebar":
		open, err := strconv.ParseBool(value)
		if err != nil {
			out.Error(fmt.Sprintf("invalid sidebar value %q (want true or false)", value), ErrCodeInvalidArgs)
			return exitUsage
		}
		p.SidebarOpen = open
	case "sidebar-mode":
		m, err := prefs.ParseSidebarMode(value)
		if err != nil {
			out.Error(err.Error(), ErrCodeInvalidArgs)
			return exitUsage
		}
		p.SidebarMode = m
	default:
		out.Error(fmt.Sprintf("unknown preference %q", key), ErrCodeInvalidArgs)
		return exitUsage
	}

	if err := prefs.Save(ctx, ws.db, p); err != nil {
		out.Error(err.Error(), ErrCodeStateError)
		return exitError
	}
	ui.InitTheme(p.Resolve())
	out.Success(fmt.Sprintf("Set %s to %s", key, value), map[string]any{"success": true, key: value})
	return exitOK
}
