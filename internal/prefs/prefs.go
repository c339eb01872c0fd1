// Package prefs loads and saves the user's display preferences through the
// key-value store.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	dark "github.com/thiagokokada/dark-mode-go"

	"github.com/asheshgoplani/bookmark-deck/internal/kv"
	"github.com/asheshgoplani/bookmark-deck/internal/logging"
)

var prefsLog = logging.ForComponent(logging.CompConfig)

// Theme is the color scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// SidebarMode selects what the sidebar lists.
type SidebarMode string

const (
	SidebarTags    SidebarMode = "tags"
	SidebarFolders SidebarMode = "folders"
	SidebarViews   SidebarMode = "views"
)

// Prefs is the full preference record.
type Prefs struct {
	Theme       Theme       `json:"theme"`
	SidebarOpen bool        `json:"sidebarOpen"`
	SidebarMode SidebarMode `json:"sidebarMode"`
}

// Defaults returns the preferences used when nothing is stored.
func Defaults() Prefs {
	return Prefs{Theme: ThemeSystem, SidebarOpen: true, SidebarMode: SidebarTags}
}

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	}
	return "", fmt.Errorf("invalid theme %q (want light, dark or system)", s)
}

// ParseSidebarMode validates a sidebar mode.
func ParseSidebarMode(s string) (SidebarMode, error) {
	switch m := SidebarMode(s); m {
	case SidebarTags, SidebarFolders, SidebarViews:
		return m, nil
	}
	return "", fmt.Errorf("invalid sidebar mode %q (want tags, folders or views)", s)
}

// detectDark is swapped out in tests.
var detectDark = dark.IsDarkMode

// Resolve maps ThemeSystem onto light or dark using the OS setting. Dark is
// assumed when the OS cannot be queried.
func (p Prefs) Resolve() Theme {
	if p.Theme != ThemeSystem {
		return p.Theme
	}
	isDark, err := detectDark()
	if err != nil {
		prefsLog.Debug("dark_mode_detect_failed", slog.String("error", err.Error()))
		return ThemeDark
	}
	if isDark {
		return ThemeDark
	}
	return ThemeLight
}

// Load reads the stored preferences. Missing or malformed values fall back
// to Defaults field by field. A failed read returns the defaults together
// with the *kv.PersistenceError.
func Load(ctx context.Context, store kv.Store) (Prefs, error) {
	p := Defaults()
	vals, err := store.Get(ctx, kv.KeyTheme, kv.KeySidebarOpen, kv.KeySidebarMode, kv.KeyDarkMode)
	if err != nil {
		perr := &kv.PersistenceError{Op: "get", Keys: []string{kv.KeyTheme, kv.KeySidebarOpen, kv.KeySidebarMode}, Err: err}
		prefsLog.Warn("prefs_load_failed", slog.String("error", perr.Error()))
		return p, perr
	}

	var s string
	if raw, ok := vals[kv.KeyTheme]; ok && json.Unmarshal(raw, &s) == nil {
		if t, err := ParseTheme(s); err == nil {
			p.Theme = t
		}
	} else if raw, ok := vals[kv.KeyDarkMode]; ok {
		// Older records only stored a boolean.
		var d bool
		if json.Unmarshal(raw, &d) == nil {
			p.Theme = ThemeLight
			if d {
				p.Theme = ThemeDark
			}
		}
	}
	if raw, ok := vals[kv.KeySidebarOpen]; ok {
		var open bool
		if json.Unmarshal(raw, &open) == nil {
			p.SidebarOpen = open
		}
	}
	if raw, ok := vals[kv.KeySidebarMode]; ok && json.Unmarshal(raw, &s) == nil {
		if m, err := ParseSidebarMode(s); err == nil {
			p.SidebarMode = m
		}
	}
	return p, nil
}

// Save writes all preference keys in one Set.
func Save(ctx context.Context, store kv.Store, p Prefs) error {
	record := make(map[string]json.RawMessage, 3)
	for key, v := range map[string]any{
		kv.KeyTheme:       p.Theme,
		kv.KeySidebarOpen: p.SidebarOpen,
		kv.KeySidebarMode: p.SidebarMode,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return &kv.PersistenceError{Op: "encode", Keys: []string{key}, Err: err}
		}
		record[key] = data
	}
	if err := store.Set(ctx, record); err != nil {
		perr := &kv.PersistenceError{Op: "set", Keys: []string{kv.KeyTheme, kv.KeySidebarOpen, kv.KeySidebarMode}, Err: err}
		prefsLog.Warn("prefs_save_failed", slog.String("error", perr.Error()))
		return perr
	}
	prefsLog.Debug("prefs_saved", slog.String("theme", string(p.Theme)), slog.String("sidebar_mode", string(p.SidebarMode)))
	return nil
}
