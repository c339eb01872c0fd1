package web

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/query"
)

func TestBookmarksIsStateless(t *testing.T) {
	env := newTestEnv(t, Config{})

	v := url.Values{}
	v.Set("sort", "dateAdded")
	v.Set("sortDirection", "asc")
	v.Set("filterTags", `[{"type":"tag","tag":"js","negative":false}]`)
	rr := env.do(t, http.MethodGet, "/api/bookmarks?"+v.Encode(), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp bookmarksResponse
	decodeBody(t, rr, &resp)
	assert.Equal(t, []string{"20", "11"}, bookmarkIDs(resp.Bookmarks))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, query.Asc, resp.SortDirection)
	require.Len(t, resp.Filters, 1)
	assert.Equal(t, "#js", resp.Filters[0].Text)
	assert.Empty(t, resp.Warning)

	assert.Empty(t, env.deck.Engine.Filters(), "shared filters untouched")
}

func TestBookmarksBadParamsFallBack(t *testing.T) {
	env := newTestEnv(t, Config{})
	rr := env.do(t, http.MethodGet, "/api/bookmarks?sort=popularity&filterTags=%5Bnot-json", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp bookmarksResponse
	decodeBody(t, rr, &resp)
	assert.NotEmpty(t, resp.Warning)
	assert.Equal(t, query.DefaultKey, resp.Sort)
	assert.Equal(t, []string{"10", "11", "20"}, bookmarkIDs(resp.Bookmarks))
	assert.Empty(t, resp.Filters)
}

func TestFilterLifecycle(t *testing.T) {
	env := newTestEnv(t, Config{})

	rr := env.do(t, http.MethodPost, "/api/filters", map[string]string{"input": "#js"})
	require.Equal(t, http.StatusOK, rr.Code)
	var added struct {
		Added bool           `json:"added"`
		State displayPayload `json:"state"`
	}
	decodeBody(t, rr, &added)
	assert.True(t, added.Added)
	assert.Equal(t, []string{"11", "20"}, bookmarkIDs(added.State.Bookmarks))
	assert.Contains(t, added.State.Query, "filterTags=")

	// Same filter again is a no-op.
	rr = env.do(t, http.MethodPost, "/api/filters", map[string]any{
		"filter": map[string]any{"type": "tag", "tag": "js", "negative": false},
	})
	decodeBody(t, rr, &added)
	assert.False(t, added.Added)

	rr = env.do(t, http.MethodPost, "/api/filters", map[string]string{"input": "-folder:2"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"11"}, bookmarkIDs(env.deck.Engine.Display().Bookmarks))

	rr = env.do(t, http.MethodDelete, "/api/filters?input="+url.QueryEscape("-folder:2"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []filter.Filter{filter.Tag{Tag: "js"}}, env.deck.Engine.Filters())

	rr = env.do(t, http.MethodDelete, "/api/filters?input="+url.QueryEscape("#nope"), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPut, "/api/filters", `{"filters":[{"type":"url","url":"vuejs","negative":false}]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []filter.Filter{filter.URL{Text: "vuejs"}}, env.deck.Engine.Filters())

	rr = env.do(t, http.MethodDelete, "/api/filters", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, env.deck.Engine.Filters())

	// Every change is persisted.
	vals, err := env.state.Get(t.Context(), "queryParams")
	require.NoError(t, err)
	assert.Contains(t, string(vals["queryParams"]), `"filterTags":[]`)
}

func TestInvalidFilters(t *testing.T) {
	env := newTestEnv(t, Config{})

	for _, body := range []string{
		`{"input":"#"}`,
		`{}`,
		`{"filter":{"type":"bogus"}}`,
	} {
		rr := env.do(t, http.MethodPost, "/api/filters", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		assert.Contains(t, rr.Body.String(), "INVALID_FILTER", body)
	}

	rr := env.do(t, http.MethodPut, "/api/filters", `{"filters":[{"type":"tag"}]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_FILTER")

	rr = env.do(t, http.MethodPost, "/api/filters", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_REQUEST")
}

func TestSortEndpoints(t *testing.T) {
	env := newTestEnv(t, Config{})

	rr := env.do(t, http.MethodPut, "/api/sort", map[string]string{"sort": "title", "sortDirection": "asc"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"sort":"title","sortDirection":"asc"}`, rr.Body.String())
	assert.Equal(t, []string{"10", "11", "20"}, bookmarkIDs(env.deck.Engine.Display().Bookmarks))

	rr = env.do(t, http.MethodPost, "/api/sort/toggle", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"sort":"title","sortDirection":"desc"}`, rr.Body.String())

	rr = env.do(t, http.MethodPut, "/api/sort", map[string]string{"sort": "popularity"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_SORT")
}

func TestTagsFoldersSuggest(t *testing.T) {
	env := newTestEnv(t, Config{})

	rr := env.do(t, http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var tagsResp struct {
		Tags []struct {
			Tag   string `json:"tag"`
			Count int    `json:"count"`
		} `json:"tags"`
	}
	decodeBody(t, rr, &tagsResp)
	require.NotEmpty(t, tagsResp.Tags)
	assert.Equal(t, "js", tagsResp.Tags[0].Tag)
	assert.Equal(t, 2, tagsResp.Tags[0].Count)

	rr = env.do(t, http.MethodGet, "/api/filters/suggest?input="+url.QueryEscape("-#j"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"text":"-#js"`)

	rr = env.do(t, http.MethodGet, "/api/folders", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"title":"Frontend"`)
}

func TestRenameBookmark(t *testing.T) {
	env := newTestEnv(t, Config{})

	rr := env.do(t, http.MethodPatch, "/api/bookmarks/10", map[string]string{"title": "Go #go #lang"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"10","updated":true}`, rr.Body.String())
	assert.Equal(t, "Go #go #lang", env.host.titles["10"])

	rr = env.do(t, http.MethodPatch, "/api/bookmarks/11", map[string]string{"title": "React #js"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"11","updated":false}`, rr.Body.String())

	rr = env.do(t, http.MethodPatch, "/api/bookmarks/999", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPatch, "/api/bookmarks/10", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/bookmarks/10", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
