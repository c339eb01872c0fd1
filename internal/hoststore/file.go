// Package hoststore reads and edits a Chromium-family Bookmarks file and
// reports changes to it.
package hoststore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
	"github.com/asheshgoplani/bookmark-deck/internal/logging"
)

var hostLog = logging.ForComponent(logging.CompHost)

// ErrNodeNotFound is returned by UpdateTitle for an id not in the file.
var ErrNodeNotFound = errors.New("bookmark not found in host file")

// rootKeys are the top-level folders in display order.
var rootKeys = []string{"bookmark_bar", "other", "synced"}

// webkitEpochOffsetMicros is the distance from 1601-01-01 to 1970-01-01.
const webkitEpochOffsetMicros = 11644473600 * 1000 * 1000

// File is a host store backed by a Bookmarks JSON file. The tree is
// presented under a synthetic root with id "0" whose children are the
// bookmark bar, other and synced folders.
type File struct {
	path string

	sf singleflight.Group

	cacheMu    sync.RWMutex
	cacheRoots []bookmark.Node
	cacheMod   time.Time
	cacheSize  int64

	writeMu sync.Mutex
}

// NewFile returns a store for the Bookmarks file at path. The file is not
// read until GetTree.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the bookmarks file path.
func (f *File) Path() string {
	return f.path
}

type fileNode struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	URL          string     `json:"url"`
	DateAdded    string     `json:"date_added"`
	DateLastUsed string     `json:"date_last_used"`
	Children     []fileNode `json:"children"`
}

type fileDoc struct {
	Roots map[string]json.RawMessage `json:"roots"`
}

// GetTree returns the tree. Concurrent callers share one read, and an
// unchanged file (same size and mtime) is served from cache.
func (f *File) GetTree(ctx context.Context) ([]bookmark.Node, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, fmt.Errorf("stat bookmarks file: %w", err)
	}
	if roots, ok := f.cached(info); ok {
		return roots, nil
	}

	v, err, shared := f.sf.Do("tree", func() (interface{}, error) {
		// Double-check cache inside singleflight
		if roots, ok := f.cached(info); ok {
			return roots, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("read bookmarks file: %w", err)
		}
		roots, err := parseTree(data)
		if err != nil {
			return nil, err
		}
		f.cacheMu.Lock()
		f.cacheRoots, f.cacheMod, f.cacheSize = roots, info.ModTime(), info.Size()
		f.cacheMu.Unlock()
		hostLog.Debug("host_tree_read",
			slog.String("path", f.path),
			slog.Int("bytes", len(data)),
			slog.Duration("duration", time.Since(start)))
		return roots, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.Aggregate(logging.CompHost, "host_tree_read_shared")
	}
	return v.([]bookmark.Node), nil
}

func (f *File) cached(info os.FileInfo) ([]bookmark.Node, bool) {
	f.cacheMu.RLock()
	defer f.cacheMu.RUnlock()
	if f.cacheRoots == nil || !info.ModTime().Equal(f.cacheMod) || info.Size() != f.cacheSize {
		return nil, false
	}
	return f.cacheRoots, true
}

func (f *File) invalidate() {
	f.cacheMu.Lock()
	f.cacheRoots = nil
	f.cacheMu.Unlock()
}

// parseTree converts a Bookmarks document into the synthetic-root tree.
func parseTree(data []byte) ([]bookmark.Node, error) {
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse bookmarks file: %w", err)
	}
	if doc.Roots == nil {
		return nil, errors.New("parse bookmarks file: missing roots")
	}

	root := bookmark.Node{ID: bookmark.RootID}
	for _, key := range rootKeys {
		raw, ok := doc.Roots[key]
		if !ok {
			continue
		}
		var fn fileNode
		if err := json.Unmarshal(raw, &fn); err != nil {
			return nil, fmt.Errorf("parse bookmarks root %s: %w", key, err)
		}
		root.Children = append(root.Children, convert(fn, bookmark.RootID))
	}
	return []bookmark.Node{root}, nil
}

func convert(fn fileNode, parentID string) bookmark.Node {
	n := bookmark.Node{
		ID:           fn.ID,
		Title:        fn.Name,
		ParentID:     parentID,
		DateAdded:    webkitToMillis(fn.DateAdded),
		DateLastUsed: webkitToMillis(fn.DateLastUsed),
	}
	if fn.Type != "folder" {
		n.URL = fn.URL
	}
	for _, c := range fn.Children {
		n.Children = append(n.Children, convert(c, fn.ID))
	}
	return n
}

// webkitToMillis converts microseconds since 1601 (as a decimal string) to
// milliseconds since the Unix epoch. Zero, unparsable and pre-1970 values
// map to 0, the "absent" date.
func webkitToMillis(s string) int64 {
	if s == "" || s == "0" {
		return 0
	}
	us, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	if us <= webkitEpochOffsetMicros {
		return 0
	}
	return (us - webkitEpochOffsetMicros) / 1000
}

// UpdateTitle renames one node in the file. Every other field is kept; the
// checksum is dropped so the browser accepts the edited file. The write is
// atomic (temp file, fsync, rename).
func (f *File) UpdateTitle(ctx context.Context, id, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read bookmarks file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("parse bookmarks file: %w", err)
	}
	roots, _ := doc["roots"].(map[string]any)
	found := false
	for _, key := range rootKeys {
		if node, ok := roots[key].(map[string]any); ok && rename(node, id, title) {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	delete(doc, "checksum")

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "   ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode bookmarks file: %w", err)
	}
	if err := writeFileAtomic(f.path, out.Bytes()); err != nil {
		return err
	}
	f.invalidate()
	hostLog.Info("host_title_written", slog.String("bookmark_id", id))
	return nil
}

func rename(node map[string]any, id, title string) bool {
	if node["id"] == id {
		node["name"] = title
		return true
	}
	children, _ := node["children"].([]any)
	for _, c := range children {
		if child, ok := c.(map[string]any); ok && rename(child, id, title) {
			return true
		}
	}
	return false
}

// writeFileAtomic writes data next to path and renames it into place,
// keeping the original file mode.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		hostLog.Debug("host_fsync_failed", slog.String("error", err.Error()))
	}
	if err := tmp.Chmod(mode); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize bookmarks file: %w", err)
	}
	return nil
}
