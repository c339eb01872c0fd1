package hoststore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func waitChange(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Changes():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestWatcherFsnotify(t *testing.T) {
	path := writeSample(t)
	w, err := NewWatcher(path, WatcherConfig{Debounce: 20 * time.Millisecond, MaxPerSecond: 100})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if w.Warning() != "" {
		t.Skipf("fsnotify unsupported here: %s", w.Warning())
	}
	w.Start()
	defer w.Close()

	// A burst of writes coalesces into one signal.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(sampleBookmarks), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if !waitChange(t, w, 2*time.Second) {
		t.Fatal("expected a change signal")
	}
	if waitChange(t, w, 200*time.Millisecond) {
		t.Fatal("burst should produce a single signal")
	}

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "Preferences"), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if waitChange(t, w, 200*time.Millisecond) {
		t.Fatal("unrelated file should not signal")
	}

	// Rename-into-place, as browsers do.
	tmp := filepath.Join(filepath.Dir(path), "Bookmarks.tmp")
	if err := os.WriteFile(tmp, []byte(sampleBookmarks), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	if !waitChange(t, w, 2*time.Second) {
		t.Fatal("expected a change signal after rename")
	}
}

func TestWatcherPolling(t *testing.T) {
	path := writeSample(t)
	w, err := NewWatcher(path, WatcherConfig{ForcePoll: true, PollInterval: 20 * time.Millisecond, MaxPerSecond: 100})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()
	defer w.Close()

	time.Sleep(50 * time.Millisecond)
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	if !waitChange(t, w, 2*time.Second) {
		t.Fatal("expected polling to detect the change")
	}
}

func TestWatcherCloseIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	w, err := NewWatcher(writeSample(t), WatcherConfig{ForcePoll: true})
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
