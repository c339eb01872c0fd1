// Package engine owns the query state: the current host snapshot, the active
// filter list and the sort order. Every change recomputes the display set
// wholesale.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/logging"
	"github.com/asheshgoplani/bookmark-deck/internal/query"
	"github.com/asheshgoplani/bookmark-deck/internal/tags"
)

var engineLog = logging.ForComponent(logging.CompEngine)

var (
	// ErrNoHostStore is returned by operations that need the host store when
	// the engine was created without one.
	ErrNoHostStore = errors.New("no host bookmark store")
	// ErrUnknownBookmark is returned when an id is not in the snapshot.
	ErrUnknownBookmark = errors.New("unknown bookmark")
)

// HostStore is the external bookmark store. GetTree returns the root nodes
// with their children; UpdateTitle edits one title and nothing else.
type HostStore interface {
	GetTree(ctx context.Context) ([]bookmark.Node, error)
	UpdateTitle(ctx context.Context, id, title string) error
}

// Cause names what triggered a recompute.
type Cause string

const (
	TreeChanged    Cause = "TreeChanged"
	FiltersChanged Cause = "FiltersChanged"
	SortChanged    Cause = "SortChanged"
)

// Display is one completed recompute. Its slices are never modified after
// it is published.
type Display struct {
	Version   uint64           `json:"version"`
	Cause     Cause            `json:"cause"`
	Bookmarks []bookmark.Node  `json:"bookmarks"`
	Filters   []filter.Filter  `json:"-"`
	Capsules  []filter.Capsule `json:"filters"`
	Key       query.SortKey    `json:"sort"`
	Direction query.Direction  `json:"sortDirection"`
	Tags      []tags.Count     `json:"tags"`
	At        time.Time        `json:"at"`
}

// Engine is the single owner of query state. Mutations take the write lock
// and recompute before releasing it; readers see the last completed Display.
type Engine struct {
	host   HostStore
	locale language.Tag

	mu       sync.RWMutex
	snap     *bookmark.Snapshot
	filters  filter.Set
	key      query.SortKey
	dir      query.Direction
	display  Display
	tagIndex *tags.Index
	lastErr  error

	subscribersMu sync.Mutex
	subscribers   map[chan struct{}]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocale sets the collation locale for title sorting.
func WithLocale(tag language.Tag) Option {
	return func(e *Engine) { e.locale = tag }
}

// WithSort sets the initial sort order.
func WithSort(key query.SortKey, dir query.Direction) Option {
	return func(e *Engine) {
		if key != "" {
			e.key = key
		}
		if dir != "" {
			e.dir = dir
		}
	}
}

// New creates an engine with an empty snapshot. host may be nil for an
// engine fed only through SetTree.
func New(host HostStore, opts ...Option) *Engine {
	e := &Engine{
		host:        host,
		locale:      language.Und,
		key:         query.DefaultKey,
		dir:         query.DefaultDirection,
		subscribers: make(map[chan struct{}]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.mu.Lock()
	e.recomputeLocked(TreeChanged)
	e.mu.Unlock()
	return e
}

// Refresh reads the tree from the host store and installs it.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.host == nil {
		return ErrNoHostStore
	}
	start := time.Now()
	roots, err := e.host.GetTree(ctx)
	if err != nil {
		e.mu.Lock()
		e.lastErr = fmt.Errorf("read host tree: %w", err)
		e.mu.Unlock()
		engineLog.Warn("host_read_failed", slog.String("error", err.Error()))
		return err
	}
	if err := e.SetTree(roots); err != nil {
		return err
	}
	logging.Aggregate(logging.CompEngine, "tree_refreshed",
		slog.Duration("duration", time.Since(start)))
	return nil
}

// SetTree flattens roots and recomputes. A malformed tree leaves the last
// good snapshot and display in place; the *bookmark.StructuralError is
// returned and kept as LastError.
func (e *Engine) SetTree(roots []bookmark.Node) error {
	snap, err := bookmark.Flatten(roots)

	e.mu.Lock()
	if err != nil {
		e.lastErr = err
		e.mu.Unlock()
		engineLog.Error("tree_rejected", slog.String("error", err.Error()))
		return err
	}
	e.snap = snap
	e.lastErr = nil
	e.recomputeLocked(TreeChanged)
	e.mu.Unlock()

	e.notify()
	return nil
}

// LastError is the diagnostic of the last failed tree read, or nil.
func (e *Engine) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// Display returns the last completed recompute.
func (e *Engine) Display() Display {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.display
}

// Snapshot returns the current flattened tree. It may be nil before the
// first successful SetTree.
func (e *Engine) Snapshot() *bookmark.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// Filters returns the active filter list. Satisfies views.FilterTarget.
func (e *Engine) Filters() []filter.Filter {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.filters.List()
}

// AddFilter adds f to the active list (see filter.Set.Add) and recomputes
// when the list changed.
func (e *Engine) AddFilter(f filter.Filter) (bool, error) {
	return e.mutateFilters(func(s *filter.Set) (bool, error) { return s.Add(f) })
}

// RemoveFilter drops f by value.
func (e *Engine) RemoveFilter(f filter.Filter) bool {
	changed, _ := e.mutateFilters(func(s *filter.Set) (bool, error) { return s.Remove(f), nil })
	return changed
}

// ClearFilters empties the active list.
func (e *Engine) ClearFilters() bool {
	changed, _ := e.mutateFilters(func(s *filter.Set) (bool, error) { return s.Clear(), nil })
	return changed
}

// ReplaceFilters swaps in filters as a whole. Satisfies views.FilterTarget.
func (e *Engine) ReplaceFilters(filters []filter.Filter) error {
	_, err := e.mutateFilters(func(s *filter.Set) (bool, error) {
		if err := s.Replace(filters); err != nil {
			return false, err
		}
		return true, nil
	})
	return err
}

func (e *Engine) mutateFilters(fn func(*filter.Set) (bool, error)) (bool, error) {
	e.mu.Lock()
	changed, err := fn(&e.filters)
	if err != nil || !changed {
		e.mu.Unlock()
		return false, err
	}
	e.recomputeLocked(FiltersChanged)
	e.mu.Unlock()

	e.notify()
	return true, nil
}

// Sort returns the current sort order.
func (e *Engine) Sort() (query.SortKey, query.Direction) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.key, e.dir
}

// SetSort changes the sort order. Empty values keep the current setting.
func (e *Engine) SetSort(key query.SortKey, dir query.Direction) {
	e.mu.Lock()
	if key != "" {
		e.key = key
	}
	if dir != "" {
		e.dir = dir
	}
	e.recomputeLocked(SortChanged)
	e.mu.Unlock()

	e.notify()
}

// ToggleDirection flips the sort direction and returns the new one.
func (e *Engine) ToggleDirection() query.Direction {
	e.mu.Lock()
	e.dir = e.dir.Toggle()
	dir := e.dir
	e.recomputeLocked(SortChanged)
	e.mu.Unlock()

	e.notify()
	return dir
}

// Tags returns the tag index of the current display set.
func (e *Engine) Tags() *tags.Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tagIndex
}

// Suggest completes a "#tag" or "-#tag" input against the display set.
func (e *Engine) Suggest(input string) []tags.Suggestion {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tagIndex.Suggest(input, e.filters.List())
}

// Sidebar lists tags in sidebar order for the current filters.
func (e *Engine) Sidebar() []tags.SidebarEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tagIndex.Sidebar(e.filters.List())
}

// FolderTree returns the folder hierarchy of the current snapshot.
func (e *Engine) FolderTree() []*bookmark.FolderNode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snap == nil {
		return nil
	}
	return bookmark.FolderTree(e.snap.Folders())
}

// RenameBookmark writes a new title to the host store when it differs from
// the current one. It reports whether a write was issued. The snapshot is
// not updated here; the host's change notification brings the edit back.
func (e *Engine) RenameBookmark(ctx context.Context, id, title string) (bool, error) {
	if e.host == nil {
		return false, ErrNoHostStore
	}
	e.mu.RLock()
	n, ok := e.snap.Lookup(id)
	e.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownBookmark, id)
	}
	if n.Title == title {
		return false, nil
	}
	if err := e.host.UpdateTitle(ctx, id, title); err != nil {
		engineLog.Warn("title_update_failed", slog.String("bookmark_id", id), slog.String("error", err.Error()))
		return false, fmt.Errorf("update title of %s: %w", id, err)
	}
	engineLog.Info("title_updated", slog.String("bookmark_id", id))
	return true, nil
}

// Watch refreshes on every signal from changes until ctx is done or changes
// is closed. Failed refreshes are logged and the last good display kept.
func (e *Engine) Watch(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			logging.Aggregate(logging.CompEngine, "host_change_received")
			if err := e.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				engineLog.Warn("refresh_failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Subscribe returns a channel signalled after every recompute. Signals
// coalesce; read Display for the state. Call the returned func to stop.
func (e *Engine) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	e.subscribersMu.Lock()
	e.subscribers[ch] = struct{}{}
	e.subscribersMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subscribersMu.Lock()
			if _, ok := e.subscribers[ch]; ok {
				delete(e.subscribers, ch)
				close(ch)
			}
			e.subscribersMu.Unlock()
		})
	}
}

func (e *Engine) notify() {
	e.subscribersMu.Lock()
	for ch := range e.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	e.subscribersMu.Unlock()
}

func (e *Engine) recomputeLocked(cause Cause) {
	start := time.Now()
	active := e.filters.List()
	out := query.Run(query.Input{
		Snapshot:  e.snap,
		Filters:   active,
		Key:       e.key,
		Direction: e.dir,
		Locale:    e.locale,
	})
	if out == nil {
		out = []bookmark.Node{}
	}
	e.tagIndex = tags.Build(out)

	var names filter.FolderNamer
	if e.snap != nil {
		names = e.snap
	}
	capsules := make([]filter.Capsule, len(active))
	for i, f := range active {
		capsules[i] = filter.Describe(f, names)
	}

	e.display = Display{
		Version:   e.display.Version + 1,
		Cause:     cause,
		Bookmarks: out,
		Filters:   active,
		Key:       e.key,
		Direction: e.dir,
		Tags:      e.tagIndex.Counts(),
		At:        time.Now(),
		Capsules:  capsules,
	}
	logging.Aggregate(logging.CompEngine, "recompute",
		slog.String("cause", string(cause)),
		slog.Int("results", len(out)),
		slog.Duration("duration", time.Since(start)))
}
