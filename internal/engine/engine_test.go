package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/kv"
	"github.com/asheshgoplani/bookmark-deck/internal/query"
	"github.com/asheshgoplani/bookmark-deck/internal/views"
)

var _ views.FilterTarget = (*Engine)(nil)

type fakeHost struct {
	mu      sync.Mutex
	tree    []bookmark.Node
	err     error
	updates map[string]string
}

func (h *fakeHost) GetTree(context.Context) ([]bookmark.Node, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tree, h.err
}

func (h *fakeHost) UpdateTitle(_ context.Context, id, title string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.updates == nil {
		h.updates = make(map[string]string)
	}
	h.updates[id] = title
	return nil
}

func scenarioTree() []bookmark.Node {
	return []bookmark.Node{{
		ID: bookmark.RootID,
		Children: []bookmark.Node{{
			ID:    "F1",
			Title: "A",
			Children: []bookmark.Node{
				{ID: "b1", Title: "Guide #react #js", URL: "http://x", DateAdded: 200},
				{ID: "F2", Title: "B", Children: []bookmark.Node{
					{ID: "b2", Title: "Deep #js", URL: "http://y", DateAdded: 100},
				}},
			},
		}},
	}}
}

func ids(nodes []bookmark.Node) []string {
	out := []string{}
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func newScenarioEngine(t *testing.T) (*Engine, *fakeHost) {
	t.Helper()
	host := &fakeHost{tree: scenarioTree()}
	e := New(host)
	require.NoError(t, e.Refresh(context.Background()))
	return e, host
}

func TestEngineScenario(t *testing.T) {
	e, _ := newScenarioEngine(t)

	assert.Equal(t, []string{"b1", "b2"}, ids(e.Display().Bookmarks), "default sort is dateAdded desc")

	_, err := e.AddFilter(filter.Folder{FolderID: "F1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, ids(e.Display().Bookmarks))

	require.NoError(t, e.ReplaceFilters([]filter.Filter{filter.StrictFolder{FolderID: "F1"}}))
	assert.Equal(t, []string{"b1"}, ids(e.Display().Bookmarks))

	require.NoError(t, e.ReplaceFilters([]filter.Filter{filter.Tag{Tag: "js"}, filter.Tag{Tag: "react", Negative: true}}))
	d := e.Display()
	assert.Equal(t, []string{"b2"}, ids(d.Bookmarks))
	assert.Equal(t, FiltersChanged, d.Cause)
	assert.Len(t, d.Capsules, 2)
	assert.Equal(t, "#react", d.Capsules[1].Text)
	assert.True(t, d.Capsules[1].Negative)
}

func TestEngineTagsFollowDisplay(t *testing.T) {
	e, _ := newScenarioEngine(t)
	assert.Equal(t, 2, e.Tags().Get("js"))
	assert.Equal(t, 1, e.Tags().Get("react"))

	_, err := e.AddFilter(filter.Tag{Tag: "react", Negative: true})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Tags().Get("js"))
	assert.Equal(t, 0, e.Tags().Get("react"))

	sidebar := e.Sidebar()
	require.NotEmpty(t, sidebar)
	assert.Equal(t, "react", sidebar[0].Tag, "active negative tag sorts ahead of unfiltered ones")
	assert.Equal(t, "negative", sidebar[0].State)

	sugg := e.Suggest("#j")
	require.Len(t, sugg, 1)
	assert.Equal(t, "js", sugg[0].Tag)
}

func TestEngineAddOpposite(t *testing.T) {
	e, _ := newScenarioEngine(t)
	changed, err := e.AddFilter(filter.Tag{Tag: "js"})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = e.AddFilter(filter.Tag{Tag: "js"})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = e.AddFilter(filter.Tag{Tag: "js", Negative: true})
	require.NoError(t, err)
	assert.Equal(t, []filter.Filter{filter.Tag{Tag: "js", Negative: true}}, e.Filters())
	assert.Empty(t, e.Display().Bookmarks)

	assert.True(t, e.RemoveFilter(filter.Tag{Tag: "js", Negative: true}))
	assert.False(t, e.RemoveFilter(filter.Tag{Tag: "js", Negative: true}))
	assert.False(t, e.ClearFilters())
}

func TestEngineRejectsInvalidFilter(t *testing.T) {
	e, _ := newScenarioEngine(t)
	before := e.Display().Version

	_, err := e.AddFilter(filter.Tag{Tag: ""})
	var ce *filter.ConstructionError
	require.ErrorAs(t, err, &ce)

	err = e.ReplaceFilters([]filter.Filter{filter.Tag{Tag: "js"}, filter.URL{}})
	require.ErrorAs(t, err, &ce)
	assert.Empty(t, e.Filters(), "a rejected replace changes nothing")
	assert.Equal(t, before, e.Display().Version)
}

func TestEngineSort(t *testing.T) {
	e, _ := newScenarioEngine(t)

	e.SetSort(query.SortID, query.Asc)
	assert.Equal(t, []string{"b1", "b2"}, ids(e.Display().Bookmarks))

	assert.Equal(t, query.Desc, e.ToggleDirection())
	d := e.Display()
	assert.Equal(t, []string{"b2", "b1"}, ids(d.Bookmarks))
	assert.Equal(t, SortChanged, d.Cause)

	e.SetSort("", query.Asc)
	key, dir := e.Sort()
	assert.Equal(t, query.SortID, key)
	assert.Equal(t, query.Asc, dir)
}

func TestEngineKeepsLastGoodOnStructuralError(t *testing.T) {
	e, host := newScenarioEngine(t)
	good := e.Display()

	host.mu.Lock()
	host.tree = []bookmark.Node{{ID: "0", Children: []bookmark.Node{
		{ID: "x", URL: "http://a"},
		{ID: "x", URL: "http://b"},
	}}}
	host.mu.Unlock()

	err := e.Refresh(context.Background())
	var se *bookmark.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, good.Version, e.Display().Version)
	assert.Equal(t, ids(good.Bookmarks), ids(e.Display().Bookmarks))
	require.ErrorAs(t, e.LastError(), &se)

	host.mu.Lock()
	host.tree = scenarioTree()
	host.mu.Unlock()
	require.NoError(t, e.Refresh(context.Background()))
	assert.NoError(t, e.LastError())
}

func TestEngineHostReadFailure(t *testing.T) {
	e, host := newScenarioEngine(t)
	host.mu.Lock()
	host.err = errors.New("gone")
	host.mu.Unlock()

	require.Error(t, e.Refresh(context.Background()))
	assert.Len(t, e.Display().Bookmarks, 2)
	assert.Error(t, e.LastError())
}

func TestEngineWithoutHost(t *testing.T) {
	e := New(nil)
	assert.Empty(t, e.Display().Bookmarks)
	assert.NotNil(t, e.Display().Bookmarks)
	assert.ErrorIs(t, e.Refresh(context.Background()), ErrNoHostStore)
	_, err := e.RenameBookmark(context.Background(), "b1", "x")
	assert.ErrorIs(t, err, ErrNoHostStore)

	require.NoError(t, e.SetTree(scenarioTree()))
	assert.Len(t, e.Display().Bookmarks, 2)
	assert.Len(t, e.FolderTree(), 1)
}

func TestRenameBookmark(t *testing.T) {
	ctx := context.Background()
	e, host := newScenarioEngine(t)

	wrote, err := e.RenameBookmark(ctx, "b1", "Guide #react #js")
	require.NoError(t, err)
	assert.False(t, wrote, "unchanged title is not written")
	assert.Empty(t, host.updates)

	wrote, err = e.RenameBookmark(ctx, "b1", "Guide #js")
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, "Guide #js", host.updates["b1"])
	assert.Equal(t, 1, e.Tags().Get("react"), "snapshot waits for the host notification")

	_, err = e.RenameBookmark(ctx, "nope", "x")
	assert.ErrorIs(t, err, ErrUnknownBookmark)
}

func TestSubscribeAndWatch(t *testing.T) {
	e, host := newScenarioEngine(t)
	ch, cancel := e.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	changes := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		e.Watch(ctx, changes)
		close(done)
	}()

	host.mu.Lock()
	host.tree = []bookmark.Node{{ID: "0", Children: []bookmark.Node{{ID: "only", URL: "http://o"}}}}
	host.mu.Unlock()
	changes <- struct{}{}

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recompute signal")
	}
	assert.Equal(t, []string{"only"}, ids(e.Display().Bookmarks))

	stop()
	<-done
	cancel()
	cancel()
}

func TestViewsRoundTripThroughEngine(t *testing.T) {
	ctx := context.Background()
	e, _ := newScenarioEngine(t)
	store := views.NewStore(&kv.Memory{}, e)

	_, err := e.AddFilter(filter.Tag{Tag: "js"})
	require.NoError(t, err)
	v := store.Save(ctx, "js")

	_, err = e.AddFilter(filter.Tag{Tag: "react", Negative: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, ids(e.Display().Bookmarks))

	require.True(t, store.Load(v.ID))
	assert.Equal(t, []string{"b1", "b2"}, ids(e.Display().Bookmarks))
}
