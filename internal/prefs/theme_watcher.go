package prefs

import (
	"context"
	"log/slog"
	"sync"

	dark "github.com/thiagokokada/dark-mode-go"
)

// watchDarkMode is swapped out in tests.
var watchDarkMode = func(ctx context.Context) (<-chan bool, <-chan error, error) {
	return dark.WatchDarkMode(ctx)
}

// ThemeWatcher follows the OS dark mode setting so that a "system" theme
// can be re-resolved while a client is connected.
type ThemeWatcher struct {
	changeCh  chan Theme
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewThemeWatcher starts watching. It returns nil when the OS setting cannot
// be watched; callers then keep the theme resolved at startup.
func NewThemeWatcher(parentCtx context.Context) *ThemeWatcher {
	ctx, cancel := context.WithCancel(parentCtx)

	events, errs, err := watchDarkMode(ctx)
	if err != nil {
		cancel()
		prefsLog.Warn("theme_watcher_init_failed", slog.String("error", err.Error()))
		return nil
	}

	tw := &ThemeWatcher{
		changeCh: make(chan Theme, 1),
		closeCh:  make(chan struct{}),
	}
	go tw.watchLoop(ctx, cancel, events, errs)
	return tw
}

func (tw *ThemeWatcher) watchLoop(ctx context.Context, cancel context.CancelFunc, events <-chan bool, errs <-chan error) {
	defer cancel()
	for {
		select {
		case <-tw.closeCh:
			return
		case <-ctx.Done():
			return
		case isDark, ok := <-events:
			if !ok {
				return
			}
			t := ThemeLight
			if isDark {
				t = ThemeDark
			}
			// Keep only the latest value.
			select {
			case <-tw.changeCh:
			default:
			}
			select {
			case tw.changeCh <- t:
			default:
			}
			prefsLog.Debug("os_theme_changed", slog.String("theme", string(t)))
		case err, ok := <-errs:
			if ok && err != nil {
				prefsLog.Warn("theme_watcher_error", slog.String("error", err.Error()))
			}
		}
	}
}

// Changes delivers the resolved OS theme after each change.
func (tw *ThemeWatcher) Changes() <-chan Theme {
	return tw.changeCh
}

// Close stops the watcher. Safe to call multiple times.
func (tw *ThemeWatcher) Close() {
	tw.closeOnce.Do(func() {
		close(tw.closeCh)
	})
}
