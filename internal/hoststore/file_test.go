package hoststore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
	"github.com/asheshgoplani/bookmark-deck/internal/engine"
)

var _ engine.HostStore = (*File)(nil)

const sampleBookmarks = `{
   "checksum": "0123456789abcdef",
   "roots": {
      "bookmark_bar": {
         "children": [ {
            "date_added": "13300000000000000",
            "date_last_used": "13300000001000000",
            "guid": "a",
            "id": "5",
            "name": "Go docs #go",
            "type": "url",
            "url": "https://go.dev/doc"
         }, {
            "children": [ {
               "date_added": "13300000002000000",
               "date_last_used": "0",
               "id": "7",
               "name": "React #js",
               "type": "url",
               "url": "https://react.dev"
            } ],
            "date_added": "13299999999000000",
            "id": "6",
            "name": "Frontend",
            "type": "folder"
         } ],
         "date_added": "13200000000000000",
         "id": "1",
         "name": "Bookmarks bar",
         "type": "folder"
      },
      "other": {
         "children": [ ],
         "date_added": "0",
         "id": "2",
         "name": "Other bookmarks",
         "type": "folder"
      },
      "synced": {
         "children": [ ],
         "id": "3",
         "name": "Mobile bookmarks",
         "type": "folder"
      }
   },
   "sync_metadata": "opaque",
   "version": 1
}`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Bookmarks")
	require.NoError(t, os.WriteFile(path, []byte(sampleBookmarks), 0o600))
	return path
}

func TestGetTree(t *testing.T) {
	f := NewFile(writeSample(t))
	roots, err := f.GetTree(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 1)

	root := roots[0]
	assert.Equal(t, bookmark.RootID, root.ID)
	require.Len(t, root.Children, 3)
	assert.Equal(t, "Bookmarks bar", root.Children[0].Title)
	assert.Equal(t, "Other bookmarks", root.Children[1].Title)
	assert.Equal(t, "Mobile bookmarks", root.Children[2].Title)

	snap, err := bookmark.Flatten(roots)
	require.NoError(t, err)
	assert.Len(t, snap.Leaves(), 2)

	goDocs, ok := snap.Lookup("5")
	require.True(t, ok)
	assert.Equal(t, "https://go.dev/doc", goDocs.URL)
	assert.Equal(t, "1", goDocs.ParentID)
	assert.Equal(t, int64((13300000000000000-webkitEpochOffsetMicros)/1000), goDocs.DateAdded)
	assert.Equal(t, goDocs.DateAdded+1000, goDocs.DateLastUsed)

	react, ok := snap.Lookup("7")
	require.True(t, ok)
	assert.Equal(t, int64(0), react.DateLastUsed)
	assert.ElementsMatch(t, []string{"0", "1", "6"}, snap.Index.Of("7").IDs())

	frontend, _ := snap.Lookup("6")
	assert.True(t, frontend.IsFolder())
}

func TestWebkitToMillis(t *testing.T) {
	assert.Equal(t, int64(0), webkitToMillis(""))
	assert.Equal(t, int64(0), webkitToMillis("0"))
	assert.Equal(t, int64(0), webkitToMillis("garbage"))
	assert.Equal(t, int64(0), webkitToMillis("1000"))
	assert.Equal(t, int64(0), webkitToMillis("13348540800000000abc"), "trailing junk is rejected")
	assert.Equal(t, int64(0), webkitToMillis(" 13348540800000000"))
	// 2024-01-01T00:00:00Z
	assert.Equal(t, int64(1704067200000), webkitToMillis("13348540800000000"))
}

func TestGetTreeErrors(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "missing")).GetTree(context.Background())
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "Bookmarks")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1}`), 0o600))
	_, err = NewFile(path).GetTree(context.Background())
	assert.ErrorContains(t, err, "missing roots")
}

func TestGetTreeConcurrent(t *testing.T) {
	f := NewFile(writeSample(t))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			roots, err := f.GetTree(context.Background())
			if err != nil {
				t.Errorf("GetTree: %v", err)
				return
			}
			if len(roots) != 1 {
				t.Errorf("roots = %d", len(roots))
			}
		}()
	}
	wg.Wait()
}

func TestUpdateTitle(t *testing.T) {
	ctx := context.Background()
	path := writeSample(t)
	f := NewFile(path)
	_, err := f.GetTree(ctx)
	require.NoError(t, err)

	require.NoError(t, f.UpdateTitle(ctx, "7", "React docs #js #ui"))

	roots, err := f.GetTree(ctx)
	require.NoError(t, err)
	snap, err := bookmark.Flatten(roots)
	require.NoError(t, err)
	n, _ := snap.Lookup("7")
	assert.Equal(t, "React docs #js #ui", n.Title, "cache is invalidated by the write")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotContains(t, doc, "checksum")
	assert.Equal(t, "opaque", doc["sync_metadata"])
	assert.EqualValues(t, 1, doc["version"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	err = f.UpdateTitle(ctx, "999", "x")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestUpdateTitleKeepsHTMLCharacters(t *testing.T) {
	ctx := context.Background()
	path := writeSample(t)
	f := NewFile(path)
	require.NoError(t, f.UpdateTitle(ctx, "5", "Q&A <go> #go"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Q&A <go> #go"`)
	assert.NotContains(t, string(data), `\u003c`)
	assert.NotContains(t, string(data), `\u0026`)

	roots, err := f.GetTree(ctx)
	require.NoError(t, err)
	snap, err := bookmark.Flatten(roots)
	require.NoError(t, err)
	n, _ := snap.Lookup("5")
	assert.Equal(t, "Q&A <go> #go", n.Title)
}

func TestUpdateTitleFolder(t *testing.T) {
	ctx := context.Background()
	f := NewFile(writeSample(t))
	require.NoError(t, f.UpdateTitle(ctx, "1", "Bar"))

	roots, err := f.GetTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bar", roots[0].Children[0].Title)
}

func TestEngineOverFile(t *testing.T) {
	ctx := context.Background()
	f := NewFile(writeSample(t))
	e := engine.New(f)
	require.NoError(t, e.Refresh(ctx))
	assert.Len(t, e.Display().Bookmarks, 2)

	wrote, err := e.RenameBookmark(ctx, "5", "Go docs #go #ref")
	require.NoError(t, err)
	assert.True(t, wrote)

	// Make sure the mtime moves on filesystems with coarse timestamps.
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(f.Path(), later, later))
	require.NoError(t, e.Refresh(ctx))
	assert.Equal(t, 1, e.Tags().Get("ref"))
}
