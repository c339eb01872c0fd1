package web

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/bookmark-deck/internal/filter"
)

type viewsListResponse struct {
	Views      []viewResponse `json:"views"`
	ActiveView string         `json:"activeView"`
}

func TestViewLifecycle(t *testing.T) {
	env := newTestEnv(t, Config{})

	rr := env.do(t, http.MethodPost, "/api/filters", map[string]string{"input": "#js"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/views", map[string]string{"name": ""})
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		View viewResponse `json:"view"`
	}
	decodeBody(t, rr, &created)
	assert.Equal(t, "v1", created.View.ID)
	assert.Equal(t, "#js", created.View.Label, "unnamed views get a label from their filters")
	assert.True(t, created.View.Active)

	rr = env.do(t, http.MethodPost, "/api/views/v1/rename", map[string]string{"name": "JS"})
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &created)
	assert.Equal(t, "JS", created.View.Label)

	rr = env.do(t, http.MethodPost, "/api/views/v1/duplicate", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	decodeBody(t, rr, &created)
	assert.Equal(t, "v2", created.View.ID)
	assert.Equal(t, "JS (copy)", created.View.Name)
	assert.False(t, created.View.Active)

	// Change the live filters, then load the view back.
	rr = env.do(t, http.MethodDelete, "/api/filters", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodPost, "/api/views/v2/load", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []filter.Filter{filter.Tag{Tag: "js"}}, env.deck.Engine.Filters())
	assert.Equal(t, "v2", env.deck.Views.ActiveID())

	rr = env.do(t, http.MethodGet, "/api/views", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list viewsListResponse
	decodeBody(t, rr, &list)
	require.Len(t, list.Views, 2)
	assert.Equal(t, "v2", list.ActiveView)

	rr = env.do(t, http.MethodGet, "/api/views/v1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/views/v2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &list)
	assert.Len(t, list.Views, 1)
	assert.Empty(t, list.ActiveView, "deleting the active view clears the pointer")
	assert.Equal(t, []filter.Filter{filter.Tag{Tag: "js"}}, env.deck.Engine.Filters(), "filters stay")

	env.deck.Views.Load("v1")
	rr = env.do(t, http.MethodDelete, "/api/active-view", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"activeView":""}`, rr.Body.String())
}

func TestViewNotFound(t *testing.T) {
	env := newTestEnv(t, Config{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/views/nope"},
		{http.MethodDelete, "/api/views/nope"},
		{http.MethodPost, "/api/views/nope/load"},
		{http.MethodPost, "/api/views/nope/duplicate"},
		{http.MethodGet, "/api/views/nope/unknown"},
	} {
		rr := env.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, "%s %s", tc.method, tc.path)
	}

	rr := env.do(t, http.MethodPost, "/api/views/nope/rename", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPut, "/api/views/nope/load", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
