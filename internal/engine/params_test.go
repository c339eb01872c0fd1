package engine

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/kv"
	"github.com/asheshgoplani/bookmark-deck/internal/query"
)

func TestEncodeDecodeParams(t *testing.T) {
	p := Params{
		Key:       query.SortTitle,
		Direction: query.Asc,
		Filters:   filter.List{filter.Tag{Tag: "js"}, filter.Folder{FolderID: "F1", Negative: true}},
	}
	v, err := EncodeParams(p)
	require.NoError(t, err)
	assert.Equal(t, "title", v.Get(ParamSort))
	assert.Equal(t, "asc", v.Get(ParamSortDirection))
	assert.JSONEq(t, `[{"type":"tag","tag":"js","negative":false},{"type":"folder","folderId":"F1","negative":true}]`,
		v.Get(ParamFilterTags))

	parsed, err := url.ParseQuery(v.Encode())
	require.NoError(t, err)
	got, err := DecodeParams(parsed)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeParamsDefaults(t *testing.T) {
	got, err := DecodeParams(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, query.DefaultKey, got.Key)
	assert.Equal(t, query.DefaultDirection, got.Direction)
	assert.Empty(t, got.Filters)

	v, err := EncodeParams(Params{})
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestDecodeParamsBadValuesFallBack(t *testing.T) {
	got, err := DecodeParams(url.Values{
		ParamSort:          {"popularity"},
		ParamSortDirection: {"asc"},
		ParamFilterTags:    {`[{"type":"tag"`},
	})
	require.Error(t, err)
	var pe *filter.ParseError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, query.DefaultKey, got.Key)
	assert.Equal(t, query.Asc, got.Direction)
	assert.Empty(t, got.Filters)
}

func TestApplyParams(t *testing.T) {
	e, _ := newScenarioEngine(t)
	require.NoError(t, e.ApplyParams(Params{
		Key:       query.SortID,
		Direction: query.Desc,
		Filters:   filter.List{filter.Tag{Tag: "js"}},
	}))
	assert.Equal(t, []string{"b2", "b1"}, ids(e.Display().Bookmarks))

	p := e.Params()
	assert.Equal(t, query.SortID, p.Key)
	assert.Equal(t, filter.List{filter.Tag{Tag: "js"}}, p.Filters)

	err := e.ApplyParams(Params{Filters: filter.List{filter.Any{}}})
	require.Error(t, err)
	assert.Equal(t, []filter.Filter{filter.Tag{Tag: "js"}}, e.Filters())
}

func TestStoreLoadParams(t *testing.T) {
	ctx := context.Background()
	mem := &kv.Memory{}

	got, err := LoadParams(ctx, mem, kv.KeyQueryParams)
	require.NoError(t, err)
	assert.Equal(t, query.DefaultKey, got.Key)

	want := Params{Key: query.SortDateLastUsed, Direction: query.Asc, Filters: filter.List{filter.URL{Text: "github"}}}
	require.NoError(t, StoreParams(ctx, mem, kv.KeyQueryParams, want))
	got, err = LoadParams(ctx, mem, kv.KeyQueryParams)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, mem.Set(ctx, map[string]json.RawMessage{
		kv.KeyQueryParams: json.RawMessage(`{"sort":"title","filterTags":[{"type":"bogus"}]}`),
	}))
	got, err = LoadParams(ctx, mem, kv.KeyQueryParams)
	assert.Error(t, err)
	assert.Equal(t, query.SortTitle, got.Key)
	assert.Empty(t, got.Filters)
}

func TestQueryLeavesEngineStateAlone(t *testing.T) {
	e, _ := newScenarioEngine(t)
	_, err := e.AddFilter(filter.Tag{Tag: "react"})
	require.NoError(t, err)
	before := e.Display().Version

	got := e.Query(Params{Key: query.SortDateAdded, Direction: query.Asc, Filters: filter.List{filter.Tag{Tag: "js"}}})
	assert.Equal(t, []string{"b2", "b1"}, ids(got))

	assert.Empty(t, e.Query(Params{Filters: filter.List{filter.Tag{Tag: "nope"}}}))
	assert.Equal(t, before, e.Display().Version, "no recompute")
	assert.Equal(t, []filter.Filter{filter.Tag{Tag: "react"}}, e.Filters())
}
