package statedb

import (
	"log/slog"
	"sync"
	"time"

	"github.com/asheshgoplani/bookmark-deck/internal/logging"
)

var watcherLog = logging.ForComponent(logging.CompWatch)

// DefaultPollInterval is how often a Watcher checks for external writes.
const DefaultPollInterval = 2 * time.Second

// Watcher detects writes made by other processes (a CLI invocation while the
// web server runs, or the other way round) by polling metadata.last_modified.
// Writes announced through NotifySave are ignored for one ignore window.
type Watcher struct {
	db       *StateDB
	interval time.Duration
	ignore   time.Duration

	changeCh  chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once

	modMu        sync.Mutex
	lastModified int64

	saveMu       sync.RWMutex
	lastSaveTime time.Time
}

// NewWatcher creates a watcher polling every interval. A zero interval uses
// DefaultPollInterval. The ignore window is kept above the interval so the
// first poll after an own save always falls inside it.
func NewWatcher(db *StateDB, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	lastMod, _ := db.LastModified()
	return &Watcher{
		db:           db,
		interval:     interval,
		ignore:       interval + interval/2,
		lastModified: lastMod,
		changeCh:     make(chan struct{}, 1),
		closeCh:      make(chan struct{}),
	}
}

// Start begins polling (non-blocking).
func (w *Watcher) Start() {
	go w.pollLoop()
}

func (w *Watcher) pollLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.closeCh:
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check compares the stored timestamp with the last one seen and signals
// Changes when it moved forward outside the ignore window. It reports
// whether a signal was sent.
func (w *Watcher) Check() bool {
	ts, err := w.db.LastModified()
	if err != nil {
		watcherLog.Debug("watcher_poll_failed", slog.String("error", err.Error()))
		return false
	}

	w.modMu.Lock()
	changed := ts > w.lastModified
	if changed {
		w.lastModified = ts
	}
	w.modMu.Unlock()
	if !changed {
		return false
	}

	w.saveMu.RLock()
	lastSave := w.lastSaveTime
	w.saveMu.RUnlock()
	if time.Since(lastSave) < w.ignore {
		watcherLog.Debug("watcher_ignoring_own_save")
		return false
	}

	watcherLog.Debug("watcher_db_changed", slog.Int64("timestamp", ts))
	select {
	case w.changeCh <- struct{}{}:
	default:
		watcherLog.Debug("watcher_change_channel_full")
	}
	return true
}

// Changes signals once per detected external write. Signals coalesce while
// the receiver is busy.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changeCh
}

// NotifySave must be called right before this process writes, so the
// resulting timestamp change is not reported as external.
func (w *Watcher) NotifySave() {
	w.saveMu.Lock()
	w.lastSaveTime = time.Now()
	w.saveMu.Unlock()
}

// Close stops polling. Safe to call multiple times.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.closeCh)
	})
	return nil
}
