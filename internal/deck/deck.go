// Package deck wires the query engine, saved views and persisted state into
// one unit shared by the CLI and the web server.
package deck

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/text/language"

	"github.com/asheshgoplani/bookmark-deck/internal/engine"
	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/kv"
	"github.com/asheshgoplani/bookmark-deck/internal/logging"
	"github.com/asheshgoplani/bookmark-deck/internal/query"
	"github.com/asheshgoplani/bookmark-deck/internal/views"
)

var deckLog = logging.ForComponent(logging.CompEngine)

// Options configures New.
type Options struct {
	Host      engine.HostStore
	State     kv.Store
	Locale    language.Tag
	Key       query.SortKey
	Direction query.Direction
	// PersistHook runs before every views or state write; see
	// views.WithPersistHook.
	PersistHook func()
	// IDFunc overrides view id generation.
	IDFunc func() string
}

// Deck is the engine plus its saved views and state store.
type Deck struct {
	Engine *engine.Engine
	Views  *views.Store
	State  kv.Store

	saveMu      sync.Mutex
	persistHook func()
}

// savedState is the record stored under kv.KeyQueryParams.
type savedState struct {
	engine.Params
	ActiveView string `json:"activeView,omitempty"`
}

// New builds a deck. State defaults to an in-memory store.
func New(opts Options) *Deck {
	if opts.State == nil {
		opts.State = &kv.Memory{}
	}
	e := engine.New(opts.Host,
		engine.WithLocale(opts.Locale),
		engine.WithSort(opts.Key, opts.Direction))

	var vopts []views.Option
	if opts.PersistHook != nil {
		vopts = append(vopts, views.WithPersistHook(opts.PersistHook))
	}
	if opts.IDFunc != nil {
		vopts = append(vopts, views.WithIDFunc(opts.IDFunc))
	}
	return &Deck{
		Engine:      e,
		Views:       views.NewStore(opts.State, e, vopts...),
		State:       opts.State,
		persistHook: opts.PersistHook,
	}
}

// Restore reads the host tree, the saved views and the last query state.
// Every step runs even when an earlier one fails; the failures are joined.
func (d *Deck) Restore(ctx context.Context) error {
	var errs []error
	if err := d.Engine.Refresh(ctx); err != nil && !errors.Is(err, engine.ErrNoHostStore) {
		errs = append(errs, err)
	}
	if err := d.Views.Restore(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := d.restoreQuery(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (d *Deck) restoreQuery(ctx context.Context) error {
	var st struct {
		ActiveView string `json:"activeView"`
	}
	found, err := kv.GetJSON(ctx, d.State, kv.KeyQueryParams, &st)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	p, err := engine.LoadParams(ctx, d.State, kv.KeyQueryParams)
	if applyErr := d.Engine.ApplyParams(p); applyErr != nil {
		return errors.Join(err, applyErr)
	}
	if st.ActiveView != "" && !d.Views.SetActive(st.ActiveView) {
		deckLog.Debug("active_view_gone", slog.String("view_id", st.ActiveView))
	}
	return err
}

// SaveState persists the sort order, active filters and active view id.
func (d *Deck) SaveState(ctx context.Context) error {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	st := savedState{Params: d.Engine.Params(), ActiveView: d.Views.ActiveID()}
	if st.Filters == nil {
		st.Filters = filter.List{}
	}
	if d.persistHook != nil {
		d.persistHook()
	}
	if err := kv.SetJSON(ctx, d.State, kv.KeyQueryParams, st); err != nil {
		deckLog.Warn("state_save_failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// SyncViews re-reads saved views whenever changes fires, so edits made by
// another process show up. It returns when ctx is done or changes closes.
func (d *Deck) SyncViews(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := d.Views.Restore(ctx); err != nil {
				deckLog.Warn("views_sync_failed", slog.String("error", err.Error()))
				continue
			}
			logging.Aggregate(logging.CompViews, "views_synced")
		}
	}
}
