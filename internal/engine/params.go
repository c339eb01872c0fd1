package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/kv"
	"github.com/asheshgoplani/bookmark-deck/internal/query"
)

// URL query parameter names.
const (
	ParamSort          = "sort"
	ParamSortDirection = "sortDirection"
	ParamFilterTags    = "filterTags"
)

// Params is the shareable query state: sort order plus active filters.
type Params struct {
	Key       query.SortKey   `json:"sort"`
	Direction query.Direction `json:"sortDirection"`
	Filters   filter.List     `json:"filterTags"`
}

// EncodeParams writes p as URL query values. filterTags is omitted when no
// filter is active.
func EncodeParams(p Params) (url.Values, error) {
	v := url.Values{}
	if p.Key != "" {
		v.Set(ParamSort, string(p.Key))
	}
	if p.Direction != "" {
		v.Set(ParamSortDirection, string(p.Direction))
	}
	if len(p.Filters) > 0 {
		data, err := filter.EncodeList(p.Filters)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", ParamFilterTags, err)
		}
		v.Set(ParamFilterTags, string(data))
	}
	return v, nil
}

// DecodeParams reads query values. Absent values take the defaults. Each bad
// value also takes its default and contributes to the returned error, so the
// Params are always usable; a malformed filterTags yields an empty filter
// list and a *filter.ParseError.
func DecodeParams(v url.Values) (Params, error) {
	p := Params{Key: query.DefaultKey, Direction: query.DefaultDirection}
	var errs []error

	if s := v.Get(ParamSort); s != "" {
		if k, err := query.ParseSortKey(s); err != nil {
			errs = append(errs, err)
		} else {
			p.Key = k
		}
	}
	if s := v.Get(ParamSortDirection); s != "" {
		if d, err := query.ParseDirection(s); err != nil {
			errs = append(errs, err)
		} else {
			p.Direction = d
		}
	}
	if s := v.Get(ParamFilterTags); s != "" {
		if fs, err := filter.DecodeList([]byte(s)); err != nil {
			errs = append(errs, err)
		} else {
			p.Filters = fs
		}
	}
	return p, errors.Join(errs...)
}

// Params returns the current sort order and active filters.
func (e *Engine) Params() Params {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Params{Key: e.key, Direction: e.dir, Filters: filter.Clone(e.filters.List())}
}

// ApplyParams installs p's sort order and filters in one recompute. The
// filters are validated before anything changes.
func (e *Engine) ApplyParams(p Params) error {
	e.mu.Lock()
	if err := e.filters.Replace(p.Filters); err != nil {
		e.mu.Unlock()
		return err
	}
	if p.Key != "" {
		e.key = p.Key
	}
	if p.Direction != "" {
		e.dir = p.Direction
	}
	e.recomputeLocked(FiltersChanged)
	e.mu.Unlock()

	e.notify()
	return nil
}

// Query runs p against the current snapshot without touching the engine's
// own filters or sort order.
func (e *Engine) Query(p Params) []bookmark.Node {
	e.mu.RLock()
	in := query.Input{
		Snapshot:  e.snap,
		Filters:   p.Filters,
		Key:       p.Key,
		Direction: p.Direction,
		Locale:    e.locale,
	}
	e.mu.RUnlock()
	out := query.Run(in)
	if out == nil {
		out = []bookmark.Node{}
	}
	return out
}

// LoadParams reads Params stored under key. A missing record returns the
// defaults. Unreadable records are logged and also return the defaults.
func LoadParams(ctx context.Context, store kv.Store, key string) (Params, error) {
	p := Params{Key: query.DefaultKey, Direction: query.DefaultDirection}
	var raw map[string]json.RawMessage
	found, err := kv.GetJSON(ctx, store, key, &raw)
	if err != nil {
		engineLog.Warn("params_load_failed", slog.String("error", err.Error()))
		return p, err
	}
	if !found {
		return p, nil
	}

	values := url.Values{}
	for _, name := range []string{ParamSort, ParamSortDirection} {
		var s string
		if r, ok := raw[name]; ok && json.Unmarshal(r, &s) == nil {
			values.Set(name, s)
		}
	}
	if r, ok := raw[ParamFilterTags]; ok {
		values.Set(ParamFilterTags, string(r))
	}
	p, err = DecodeParams(values)
	if err != nil {
		engineLog.Warn("params_decode_failed", slog.String("error", err.Error()))
	}
	return p, err
}

// StoreParams writes p under key.
func StoreParams(ctx context.Context, store kv.Store, key string, p Params) error {
	if p.Filters == nil {
		p.Filters = filter.List{}
	}
	return kv.SetJSON(ctx, store, key, p)
}
