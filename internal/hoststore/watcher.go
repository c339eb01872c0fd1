package hoststore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/asheshgoplani/bookmark-deck/internal/logging"
	"github.com/asheshgoplani/bookmark-deck/internal/platform"
)

var watchLog = logging.ForComponent(logging.CompWatch)

// WatcherConfig tunes change detection.
type WatcherConfig struct {
	// Debounce coalesces bursts of file events. Default 100ms.
	Debounce time.Duration
	// MaxPerSecond caps change signals. Default 2.
	MaxPerSecond float64
	// PollInterval is used when fsnotify is unreliable. Default 2s.
	PollInterval time.Duration
	// ForcePoll skips fsnotify entirely.
	ForcePoll bool
}

func (c WatcherConfig) withDefaults() WatcherConfig {
	if c.Debounce <= 0 {
		c.Debounce = 100 * time.Millisecond
	}
	if c.MaxPerSecond <= 0 {
		c.MaxPerSecond = 2
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	return c
}

// Watcher signals when the bookmarks file changes. Browsers replace the
// file by rename, so the containing directory is watched and events are
// filtered by name.
type Watcher struct {
	path    string
	cfg     WatcherConfig
	warning string
	watcher *fsnotify.Watcher
	limiter *rate.Limiter

	pending  chan struct{}
	changeCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	debounceMu sync.Mutex
	debounce   *time.Timer
}

// NewWatcher prepares a watcher for path. Call Start to begin.
func NewWatcher(path string, cfg WatcherConfig) (*Watcher, error) {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.MaxPerSecond), 1),
		pending:  make(chan struct{}, 1),
		changeCh: make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	if !cfg.ForcePoll {
		w.warning = platform.CheckFsnotifySupport(path)
	}
	if cfg.ForcePoll || w.warning != "" {
		return w, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		cancel()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	w.watcher = fw
	return w, nil
}

// Warning explains why the watcher fell back to polling, or "".
func (w *Watcher) Warning() string {
	return w.warning
}

// Changes signals once per coalesced change.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changeCh
}

// Start begins watching (non-blocking).
func (w *Watcher) Start() {
	w.wg.Add(2)
	go w.forwardLoop()
	if w.watcher != nil {
		go w.eventLoop()
	} else {
		go w.pollLoop()
	}
}

// Close stops the watcher. Safe to call multiple times.
func (w *Watcher) Close() error {
	w.cancel()
	w.debounceMu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounceMu.Unlock()
	var err error
	if w.watcher != nil {
		err = w.watcher.Close()
	}
	w.wg.Wait()
	return err
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	name := filepath.Clean(w.path)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			watchLog.Warn("host_watcher_error", slog.String("error", err.Error()))
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.cfg.Debounce, func() {
		select {
		case w.pending <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) pollLoop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	lastMod, lastSize := statFile(w.path)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			mod, size := statFile(w.path)
			if mod.Equal(lastMod) && size == lastSize {
				continue
			}
			lastMod, lastSize = mod, size
			select {
			case w.pending <- struct{}{}:
			default:
			}
		}
	}
}

// forwardLoop rate-limits pending changes onto changeCh.
func (w *Watcher) forwardLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.pending:
			if err := w.limiter.Wait(w.ctx); err != nil {
				return
			}
			select {
			case w.changeCh <- struct{}{}:
				logging.Aggregate(logging.CompWatch, "host_file_changed")
			default:
				watchLog.Debug("host_change_channel_full")
			}
		}
	}
}

func statFile(path string) (time.Time, int64) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, -1
	}
	return info.ModTime(), info.Size()
}
