package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/asheshgoplani/bookmark-deck/internal/config"
	"github.com/asheshgoplani/bookmark-deck/internal/hoststore"
	"github.com/asheshgoplani/bookmark-deck/internal/prefs"
	"github.com/asheshgoplani/bookmark-deck/internal/web"
)

// webOptions are the parsed `web` flags.
type webOptions struct {
	listenAddr string
	readOnly   bool
	token      string
}

// parseWebFlags parses web-specific flags with config.toml values as the
// defaults.
func (c *cli) parseWebFlags(cfg *config.Config, args []string) (webOptions, error) {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	listenAddr := fs.String("listen", cfg.Web.ListenAddr, "Listen address for web server")
	readOnly := fs.Bool("read-only", false, "Run in read-only mode (changes rejected)")
	token := fs.String("token", cfg.Web.Token, "Bearer token for API/WS access")

	fs.Usage = func() {
		fmt.Fprintln(c.stderr, "Usage: bookmark-deck web [options]")
		fmt.Fprintln(c.stderr)
		fmt.Fprintln(c.stderr, "Serve the bookmark JSON API with live updates over SSE and WebSocket.")
		fmt.Fprintln(c.stderr)
		fmt.Fprintln(c.stderr, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(c.stderr)
		fmt.Fprintln(c.stderr, "Examples:")
		fmt.Fprintln(c.stderr, "  bookmark-deck web")
		fmt.Fprintln(c.stderr, "  bookmark-deck web --listen 127.0.0.1:9000")
		fmt.Fprintln(c.stderr, "  bookmark-deck web --read-only --token s3cret")
	}

	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		return webOptions{}, err
	}
	if fs.NArg() > 0 {
		return webOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return webOptions{listenAddr: *listenAddr, readOnly: *readOnly, token: *token}, nil
}

// watcherConfig converts the [watch] settings.
func watcherConfig(s config.WatchSettings) hoststore.WatcherConfig {
	return hoststore.WatcherConfig{
		Debounce:     time.Duration(s.DebounceMS) * time.Millisecond,
		MaxPerSecond: s.MaxReloadsPerSecond,
		PollInterval: time.Duration(s.PollIntervalMS) * time.Millisecond,
		ForcePoll:    s.ForcePoll,
	}
}

// handleWeb runs the web server until ctx is done. The bookmarks file and
// the state database are both watched so edits from the browser or another
// bookmark-deck process show up live.
func (c *cli) handleWeb(ctx context.Context, args []string) int {
	out := NewCLIOutput(c.stdout, c.stderr, false, false)
	cfg, _ := config.Load()
	opts, err := c.parseWebFlags(cfg, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		out.Error(err.Error(), ErrCodeInvalidArgs)
		return exitUsage
	}

	stopDump := installDumpHandler()
	defer stopDump()

	ws, ok := c.open(ctx, out, workspaceOptions{watchState: true})
	if !ok {
		return exitError
	}
	defer ws.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if ws.host != nil {
		hw, err := hoststore.NewWatcher(ws.hostPath, watcherConfig(cfg.Watch))
		if err != nil {
			out.Warn(fmt.Sprintf("live reload disabled: %v", err))
		} else {
			if warning := hw.Warning(); warning != "" {
				out.Warn(warning)
			}
			hw.Start()
			defer hw.Close()
			go ws.deck.Engine.Watch(runCtx, hw.Changes())
		}
	} else {
		msg, _, _ := ws.requireTree()
		out.Warn(msg)
	}

	ws.watcher.Start()
	go ws.deck.SyncViews(runCtx, ws.watcher.Changes())

	var themeChanges <-chan prefs.Theme
	if tw := prefs.NewThemeWatcher(runCtx); tw != nil {
		defer tw.Close()
		themeChanges = tw.Changes()
	}

	server := web.NewServer(web.Config{
		ListenAddr:   opts.listenAddr,
		ReadOnly:     opts.readOnly,
		Token:        opts.token,
		Deck:         ws.deck,
		ThemeChanges: themeChanges,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	mode := "read-write"
	if opts.readOnly {
		mode = "read-only"
	}
	out.Success(fmt.Sprintf("Serving %s on http://%s (%s)", ws.hostPath, server.Addr(), mode), nil)

	select {
	case err := <-errCh:
		if err != nil {
			out.Error(fmt.Sprintf("web server failed: %v", err), ErrCodeInvalidOperation)
			return exitError
		}
		return exitOK
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		cliLog.Warn("web_shutdown_failed", slog.String("error", err.Error()))
	}
	<-errCh
	return exitOK
}
