// Package profile locates the browser's Bookmarks file.
package profile

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/asheshgoplani/bookmark-deck/internal/platform"
)

// EnvBookmarks overrides every other source of the bookmarks file path.
const EnvBookmarks = "BOOKMARKDECK_BOOKMARKS"

// DefaultProfile is the browser profile directory used when none is named.
const DefaultProfile = "Default"

// BookmarksFileName is the file Chromium-family browsers keep bookmarks in.
const BookmarksFileName = "Bookmarks"

// ErrNotFound is returned when no bookmarks file could be located.
var ErrNotFound = errors.New("no browser bookmarks file found")

// DetectBookmarksFile resolves the bookmarks file path.
// Priority order:
// 1. BOOKMARKDECK_BOOKMARKS environment variable
// 2. configured path from config.toml
// 3. <browser data dir>/<browserProfile>/Bookmarks for each known browser,
// first existing file wins
func DetectBookmarksFile(configured, browserProfile string) (string, error) {
	if p := os.Getenv(EnvBookmarks); p != "" {
		return p, nil
	}
	if configured != "" {
		return configured, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dirs := platform.BrowserDataDirs(platform.Detect(), home, os.Getenv("LOCALAPPDATA"))
	return findBookmarks(dirs, browserProfile, fileExists)
}

func findBookmarks(dirs []string, browserProfile string, exists func(string) bool) (string, error) {
	if browserProfile == "" {
		browserProfile = DefaultProfile
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, browserProfile, BookmarksFileName)
		if exists(candidate) {
			return candidate, nil
		}
	}
	return "", ErrNotFound
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
