package main

import (
	"os"
	"testing"
)

// TestMain keeps every command test away from the real ~/.bookmark-deck and
// the real browser profile.
func TestMain(m *testing.M) {
	home, err := os.MkdirTemp("", "bookmark-deck-test-*")
	if err != nil {
		panic(err)
	}
	os.Setenv("BOOKMARKDECK_HOME", home)
	os.Setenv("BOOKMARKDECK_BOOKMARKS", home+"/missing-Bookmarks")
	os.Setenv("BOOKMARKDECK_COLOR", "none")

	code := m.Run()

	os.RemoveAll(home)
	os.Exit(code)
}
