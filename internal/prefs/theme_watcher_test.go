package prefs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestThemeWatcherForwardsChanges(t *testing.T) {
	events := make(chan bool)
	errs := make(chan error)
	orig := watchDarkMode
	watchDarkMode = func(ctx context.Context) (<-chan bool, <-chan error, error) {
		return events, errs, nil
	}
	t.Cleanup(func() { watchDarkMode = orig })

	tw := NewThemeWatcher(context.Background())
	if tw == nil {
		t.Fatal("expected a watcher")
	}
	defer tw.Close()

	events <- false
	events <- true
	errs <- errors.New("transient")

	select {
	case got := <-tw.Changes():
		if got != ThemeDark {
			t.Fatalf("theme = %q, want latest value dark", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no theme change delivered")
	}

	tw.Close()
	tw.Close()
}

func TestThemeWatcherInitFailure(t *testing.T) {
	orig := watchDarkMode
	watchDarkMode = func(ctx context.Context) (<-chan bool, <-chan error, error) {
		return nil, nil, errors.New("unsupported")
	}
	t.Cleanup(func() { watchDarkMode = orig })

	if tw := NewThemeWatcher(context.Background()); tw != nil {
		t.Fatal("expected nil watcher when the OS cannot be watched")
	}
}
