// Package views keeps named snapshots of the active filter list.
package views

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/kv"
	"github.com/asheshgoplani/bookmark-deck/internal/logging"
)

var viewsLog = logging.ForComponent(logging.CompViews)

// ErrViewNotFound is returned by lookups for an unknown view id.
var ErrViewNotFound = errors.New("view not found")

// CopySuffix is appended to the name of a duplicated view.
const CopySuffix = " (copy)"

// View is a named, persisted snapshot of a filter list. Its Filters never
// alias the live active list.
type View struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Filters filter.List `json:"filters"`
}

// FilterTarget is the live active-filter list a view is saved from and
// loaded into.
type FilterTarget interface {
	Filters() []filter.Filter
	ReplaceFilters(filters []filter.Filter) error
}

// Store holds the saved views and the active view pointer. Every mutation
// swaps in a new views slice and then writes the whole list to the kv store
// under kv.KeySavedViews. Persistence failures are logged, not returned.
type Store struct {
	kv     kv.Store
	target FilterTarget
	newID  func() string

	mu       sync.RWMutex
	views    []View
	activeID string
	version  uint64

	persisted uint64 // last version written to kv

	persistMu sync.Mutex
	onPersist func()
}

// Option configures a Store.
type Option func(*Store)

// WithIDFunc overrides view id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithPersistHook registers fn to run right before each write to the kv
// store, e.g. so a change watcher can ignore the store's own writes.
func WithPersistHook(fn func()) Option {
	return func(s *Store) { s.onPersist = fn }
}

// NewStore creates an empty store. Call Restore to read persisted views.
func NewStore(store kv.Store, target FilterTarget, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		target: target,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore replaces the in-memory views with the persisted list. A missing
// record leaves the store empty. On failure the error is logged, the store
// keeps its current views, and the *kv.PersistenceError is returned.
//
// Local edits win over the record: while a mutation is not yet written, or
// when one lands during the read, Restore keeps the in-memory views.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.RLock()
	base, pending := s.version, s.version > s.persisted
	s.mu.RUnlock()
	if pending {
		viewsLog.Debug("views_restore_skipped", slog.String("reason", "unpersisted edits"))
		return nil
	}

	var raw []json.RawMessage
	found, err := kv.GetJSON(ctx, s.kv, kv.KeySavedViews, &raw)
	if err != nil {
		viewsLog.Warn("views_load_failed", slog.String("error", err.Error()))
		return err
	}
	if !found {
		return nil
	}

	loaded := decodeViews(raw)

	s.mu.Lock()
	if s.version != base {
		s.mu.Unlock()
		viewsLog.Debug("views_restore_skipped", slog.String("reason", "concurrent edit"))
		return nil
	}
	s.views = loaded
	if _, ok := find(loaded, s.activeID); !ok {
		s.activeID = ""
	}
	s.version++
	s.persisted = s.version
	s.mu.Unlock()

	viewsLog.Debug("views_loaded", slog.Int("count", len(loaded)))
	return nil
}

// decodeViews keeps every well-formed view, skipping the rest.
func decodeViews(raw []json.RawMessage) []View {
	out := make([]View, 0, len(raw))
	seen := make(map[string]bool)
	for i, r := range raw {
		var v View
		if err := json.Unmarshal(r, &v); err != nil {
			viewsLog.Warn("view_skipped", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		if v.ID == "" || seen[v.ID] {
			viewsLog.Warn("view_skipped", slog.Int("index", i), slog.String("error", "missing or duplicate id"))
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
	}
	return out
}

// List returns the views in creation order.
func (s *Store) List() []View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneViews(s.views)
}

// Get returns the view with id.
func (s *Store) Get(id string) (View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := find(s.views, id)
	if !ok {
		return View{}, ErrViewNotFound
	}
	return cloneView(v), nil
}

// ActiveID returns the active view id, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns the active view.
func (s *Store) Active() (View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := find(s.views, s.activeID)
	return cloneView(v), ok
}

// Save snapshots the current active filters into a new view and makes it
// active.
func (s *Store) Save(ctx context.Context, name string) View {
	v := View{
		ID:      s.newID(),
		Name:    name,
		Filters: filter.Clone(s.target.Filters()),
	}

	s.mu.Lock()
	next := make([]View, 0, len(s.views)+1)
	next = append(next, s.views...)
	s.views = append(next, v)
	s.activeID = v.ID
	snap := s.bumpLocked()
	s.mu.Unlock()

	viewsLog.Info("view_saved", slog.String("view_id", v.ID), slog.Int("filters", len(v.Filters)))
	s.persist(ctx, snap)
	return cloneView(v)
}

// Load replaces the active filters with a copy of the view's filters and
// makes it active. An unknown id is a no-op and reports false.
func (s *Store) Load(id string) bool {
	s.mu.RLock()
	v, ok := find(s.views, id)
	s.mu.RUnlock()
	if !ok {
		return false
	}

	if err := s.target.ReplaceFilters(filter.Clone(v.Filters)); err != nil {
		viewsLog.Warn("view_load_rejected", slog.String("view_id", id), slog.String("error", err.Error()))
		return false
	}

	s.mu.Lock()
	if indexOf(s.views, id) < 0 {
		s.mu.Unlock()
		viewsLog.Debug("view_load_raced_delete", slog.String("view_id", id))
		return false
	}
	s.activeID = id
	s.mu.Unlock()

	viewsLog.Debug("view_loaded", slog.String("view_id", id))
	return true
}

// Delete removes the view, clearing the active pointer if it pointed there.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	i := indexOf(s.views, id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	next := make([]View, 0, len(s.views)-1)
	next = append(next, s.views[:i]...)
	s.views = append(next, s.views[i+1:]...)
	if s.activeID == id {
		s.activeID = ""
	}
	snap := s.bumpLocked()
	s.mu.Unlock()

	viewsLog.Info("view_deleted", slog.String("view_id", id))
	s.persist(ctx, snap)
	return true
}

// Duplicate appends a copy of the view named "<name> (copy)" with a fresh
// id. The copy is not made active.
func (s *Store) Duplicate(ctx context.Context, id string) (View, bool) {
	s.mu.Lock()
	src, ok := find(s.views, id)
	if !ok {
		s.mu.Unlock()
		return View{}, false
	}
	dup := View{
		ID:      s.newID(),
		Name:    src.Name + CopySuffix,
		Filters: filter.Clone(src.Filters),
	}
	next := make([]View, 0, len(s.views)+1)
	next = append(next, s.views...)
	s.views = append(next, dup)
	snap := s.bumpLocked()
	s.mu.Unlock()

	viewsLog.Info("view_duplicated", slog.String("view_id", id), slog.String("copy_id", dup.ID))
	s.persist(ctx, snap)
	return cloneView(dup), true
}

// Rename sets the view's name. Empty names are allowed.
func (s *Store) Rename(ctx context.Context, id, name string) bool {
	s.mu.Lock()
	i := indexOf(s.views, id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	next := cloneViews(s.views)
	next[i].Name = name
	s.views = next
	snap := s.bumpLocked()
	s.mu.Unlock()

	viewsLog.Info("view_renamed", slog.String("view_id", id))
	s.persist(ctx, snap)
	return true
}

// SetActive points at an existing view without touching the filters. Used
// to restore the pointer alongside separately persisted filters.
func (s *Store) SetActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.views, id) < 0 {
		return false
	}
	s.activeID = id
	return true
}

// ClearActive clears the active pointer without touching the filters.
func (s *Store) ClearActive() {
	s.mu.Lock()
	s.activeID = ""
	s.mu.Unlock()
}

// bumpLocked advances the version and returns the list to persist.
func (s *Store) bumpLocked() versioned {
	s.version++
	return versioned{version: s.version, views: s.views}
}

type versioned struct {
	version uint64
	views   []View
}

// persist writes snap unless a newer list has already been written.
// persistMu orders the writes; persisted itself is guarded by mu.
func (s *Store) persist(ctx context.Context, snap versioned) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	stale := snap.version <= s.persisted
	s.mu.RUnlock()
	if stale {
		return
	}
	if s.onPersist != nil {
		s.onPersist()
	}
	views := snap.views
	if views == nil {
		views = []View{}
	}
	if err := kv.SetJSON(ctx, s.kv, kv.KeySavedViews, views); err != nil {
		viewsLog.Warn("views_persist_failed", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	if snap.version > s.persisted {
		s.persisted = snap.version
	}
	s.mu.Unlock()
	logging.Aggregate(logging.CompViews, "views_persisted", slog.Int("count", len(views)))
}

// DisplayName is the view's name, or a label derived from its filters when
// the name is blank: "Empty View" when there are none, otherwise the short
// filter labels joined with ", ".
func DisplayName(v View, names filter.FolderNamer) string {
	if strings.TrimSpace(v.Name) != "" {
		return v.Name
	}
	if len(v.Filters) == 0 {
		return "Empty View"
	}
	labels := make([]string, len(v.Filters))
	for i, f := range v.Filters {
		labels[i] = filter.ShortLabel(f, names)
	}
	return strings.Join(labels, ", ")
}

func find(views []View, id string) (View, bool) {
	if i := indexOf(views, id); i >= 0 {
		return views[i], true
	}
	return View{}, false
}

func indexOf(views []View, id string) int {
	if id == "" {
		return -1
	}
	for i, v := range views {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func cloneView(v View) View {
	v.Filters = filter.Clone(v.Filters)
	return v
}

func cloneViews(views []View) []View {
	out := make([]View, len(views))
	for i, v := range views {
		out[i] = cloneView(v)
	}
	return out
}
