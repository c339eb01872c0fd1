package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/asheshgoplani/bookmark-deck/internal/config"
	"github.com/asheshgoplani/bookmark-deck/internal/deck"
	"github.com/asheshgoplani/bookmark-deck/internal/engine"
	"github.com/asheshgoplani/bookmark-deck/internal/hoststore"
	"github.com/asheshgoplani/bookmark-deck/internal/logging"
	"github.com/asheshgoplani/bookmark-deck/internal/prefs"
	"github.com/asheshgoplani/bookmark-deck/internal/profile"
	"github.com/asheshgoplani/bookmark-deck/internal/statedb"
	"github.com/asheshgoplani/bookmark-deck/internal/ui"
)

const Version = "0.1.0"

var cliLog = logging.ForComponent(logging.CompCLI)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// cli carries the output streams shared by every command.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr, now: time.Now}

	if len(args) == 0 {
		printHelp(stdout)
		return exitOK
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "Bookmark Deck v%s\n", Version)
		return exitOK
	case "help", "--help", "-h":
		printHelp(stdout)
		return exitOK
	}

	cleanup := c.setup(isTerminal(stdout))
	defer cleanup()

	switch args[0] {
	case "list", "ls":
		return c.handleList(ctx, args[1:])
	case "tags":
		return c.handleTags(ctx, args[1:])
	case "folders":
		return c.handleFolders(ctx, args[1:])
	case "suggest":
		return c.handleSuggest(ctx, args[1:])
	case "filters", "filter":
		return c.handleFilters(ctx, args[1:])
	case "sort":
		return c.handleSort(ctx, args[1:])
	case "views", "view":
		return c.handleViews(ctx, args[1:])
	case "rename":
		return c.handleRename(ctx, args[1:])
	case "copy", "cp":
		return c.handleCopy(ctx, args[1:])
	case "prefs":
		return c.handlePrefs(ctx, args[1:])
	case "state":
		return c.handleState(ctx, args[1:])
	case "web":
		return c.handleWeb(ctx, args[1:])
	}

	fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
	fmt.Fprintln(stderr, "Run 'bookmark-deck help' for usage.")
	return exitUsage
}

// setup initializes logging and terminal styling. The returned func flushes
// the logs.
func (c *cli) setup(tty bool) func() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(c.stderr, "Warning: %v (using defaults)\n", err)
	}
	debug := config.DebugEnabled()
	logging.Init(cfg.LoggingConfig(debug))
	if debug {
		cliLog.Info("instance_started", slog.Int("pid", os.Getpid()), slog.String("version", Version))
	}

	ui.InitColorProfile(os.Getenv, tty)
	return logging.Shutdown
}

// installDumpHandler makes SIGUSR1 dump the log ring buffer for post-mortem
// debugging. The returned func stops it.
func installDumpHandler() func() {
	dir, err := config.Dir()
	if err != nil {
		return func() {}
	}
	usr1Chan := make(chan os.Signal, 1)
	signal.Notify(usr1Chan, syscall.SIGUSR1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-usr1Chan:
				dumpPath := filepath.Join(dir, fmt.Sprintf("crash-dump-%d.jsonl", time.Now().Unix()))
				if err := logging.DumpRingBuffer(dumpPath); err != nil {
					cliLog.Error("crash_dump_failed", slog.String("error", err.Error()))
				} else {
					cliLog.Info("crash_dump_written", slog.String("path", dumpPath))
				}
			}
		}
	}()
	return func() {
		signal.Stop(usr1Chan)
		close(done)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w when it is a terminal, or
// ui.DefaultWidth.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return ui.DefaultWidth
}

// workspace is one opened state database plus the deck restored from it.
type workspace struct {
	cfg      *config.Config
	db       *statedb.StateDB
	host     *hoststore.File
	hostErr  error
	deck     *deck.Deck
	watcher  *statedb.Watcher
	prefs    prefs.Prefs
	hostPath string
}

type workspaceOptions struct {
	// watchState creates a statedb.Watcher and marks own writes with it.
	watchState bool
}

// openWorkspace loads config, opens the state database and restores the
// deck. A missing bookmarks file is not an error here; commands that need
// the tree call requireTree.
func openWorkspace(ctx context.Context, opts workspaceOptions) (*workspace, error) {
	cfg, _ := config.Load()
	statePath, err := config.StatePath()
	if err != nil {
		return nil, err
	}
	db, err := statedb.Open(statePath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	ws := &workspace{cfg: cfg, db: db}
	dopts := deck.Options{State: db, Locale: cfg.Locale()}
	dopts.Key, dopts.Direction = cfg.SortOrder()
	if opts.watchState {
		ws.watcher = statedb.NewWatcher(db, 0)
		dopts.PersistHook = ws.watcher.NotifySave
	}

	path, err := profile.DetectBookmarksFile(cfg.Bookmarks.File, cfg.Bookmarks.Profile)
	if err != nil {
		ws.hostErr = err
	} else {
		ws.hostPath = path
		ws.host = hoststore.NewFile(path)
		dopts.Host = ws.host
	}

	ws.deck = deck.New(dopts)
	if err := ws.deck.Restore(ctx); err != nil {
		cliLog.Warn("restore_incomplete", slog.String("error", err.Error()))
	}

	p, err := prefs.Load(ctx, db)
	if err != nil {
		cliLog.Warn("prefs_load_failed", slog.String("error", err.Error()))
	}
	ws.prefs = p
	ui.InitTheme(p.Resolve())
	return ws, nil
}

// requireTree reports why the bookmark tree is unavailable, if it is.
func (ws *workspace) requireTree() (string, string, bool) {
	if ws.host == nil {
		msg := "no bookmarks file found; set " + profile.EnvBookmarks + " or bookmarks.file in config.toml"
		if ws.hostErr != nil && !errors.Is(ws.hostErr, profile.ErrNotFound) {
			msg = ws.hostErr.Error()
		}
		return msg, ErrCodeNoHostStore, false
	}
	if err := ws.deck.Engine.LastError(); err != nil && ws.deck.Engine.Snapshot() == nil {
		return err.Error(), ErrCodeHostError, false
	}
	return "", "", true
}

// save persists the query state after a mutation.
func (ws *workspace) save(ctx context.Context, out *CLIOutput) {
	if err := ws.deck.SaveState(ctx); err != nil {
		out.Warn("state not saved: " + err.Error())
	}
}

func (ws *workspace) Close() {
	if ws.watcher != nil {
		ws.watcher.Close()
	}
	if err := ws.db.Close(); err != nil {
		cliLog.Warn("state_close_failed", slog.String("error", err.Error()))
	}
}

// open is the common preamble: open the workspace or report the failure.
func (c *cli) open(ctx context.Context, out *CLIOutput, opts workspaceOptions) (*workspace, bool) {
	ws, err := openWorkspace(ctx, opts)
	if err != nil {
		out.Error(fmt.Sprintf("failed to open state: %v", err), ErrCodeStateError)
		return nil, false
	}
	return ws, true
}

// errorCodeFor maps engine errors onto CLI error codes.
func errorCodeFor(err error) string {
	switch {
	case errors.Is(err, engine.ErrUnknownBookmark):
		return ErrCodeNotFound
	case errors.Is(err, engine.ErrNoHostStore):
		return ErrCodeNoHostStore
	}
	return ErrCodeHostError
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, "Bookmark Deck v%s\n", Version)
	fmt.Fprintln(w, "Tag-aware search and saved views for your browser bookmarks")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: bookmark-deck <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  list, ls         List bookmarks matching the active filters")
	fmt.Fprintln(w, "  tags             List tags with counts")
	fmt.Fprintln(w, "  folders          Show the folder tree")
	fmt.Fprintln(w, "  suggest <text>   Complete a partial #tag")
	fmt.Fprintln(w, "  filters          Show or change the active filters")
	fmt.Fprintln(w, "  sort             Show or change the sort order")
	fmt.Fprintln(w, "  views            Manage saved views")
	fmt.Fprintln(w, "  rename <id> <t>  Rename a bookmark")
	fmt.Fprintln(w, "  copy <id>        Copy a bookmark's URL to the clipboard")
	fmt.Fprintln(w, "  prefs            Show or change preferences")
	fmt.Fprintln(w, "  state            Import or export saved state")
	fmt.Fprintln(w, "  web              Serve the JSON API and live updates")
	fmt.Fprintln(w, "  version          Show version")
	fmt.Fprintln(w, "  help             Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Filter Commands:")
	fmt.Fprintln(w, "  filters show              List active filters")
	fmt.Fprintln(w, "  filters add <input>...    Add filters (#tag, -#tag, folder:ID, title:x, url:x, text)")
	fmt.Fprintln(w, "  filters remove <input>    Remove one filter")
	fmt.Fprintln(w, "  filters clear             Remove every filter")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sort Commands:")
	fmt.Fprintln(w, "  sort [key] [asc|desc]     Show or set (id, title, dateAdded, dateLastUsed)")
	fmt.Fprintln(w, "  sort toggle               Flip the direction")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "View Commands:")
	fmt.Fprintln(w, "  views list                List saved views")
	fmt.Fprintln(w, "  views save <name>         Save the active filters as a view")
	fmt.Fprintln(w, "  views load <id>           Replace the active filters with a view")
	fmt.Fprintln(w, "  views delete <id>         Delete a view")
	fmt.Fprintln(w, "  views duplicate <id>      Copy a view")
	fmt.Fprintln(w, "  views rename <id> <name>  Rename a view")
	fmt.Fprintln(w, "  views clear               Deactivate the active view")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  bookmark-deck ls --filter '#go' --filter '-#draft'")
	fmt.Fprintln(w, "  bookmark-deck filters add '#js' folder:12")
	fmt.Fprintln(w, "  bookmark-deck views save \"Frontend\"")
	fmt.Fprintln(w, "  bookmark-deck ls --query 'sort=title&sortDirection=asc' --json")
	fmt.Fprintln(w, "  bookmark-deck web --read-only")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  BOOKMARKDECK_HOME        Config and state directory (default ~/.bookmark-deck)")
	fmt.Fprintln(w, "  BOOKMARKDECK_BOOKMARKS   Path to the browser Bookmarks file")
	fmt.Fprintln(w, "  BOOKMARKDECK_COLOR       Force color profile (truecolor, 256, 16, none)")
	fmt.Fprintln(w, "  BOOKMARKDECK_DEBUG       Enable debug logging")
}
