// Package config loads and saves ~/.bookmark-deck/config.toml.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"github.com/asheshgoplani/bookmark-deck/internal/logging"
	"github.com/asheshgoplani/bookmark-deck/internal/query"
)

const (
	// ConfigFileName is the config file inside the home directory.
	ConfigFileName = "config.toml"
	// StateFileName is the sqlite database inside the home directory.
	StateFileName = "state.db"

	// EnvHome relocates the bookmark-deck directory.
	EnvHome = "BOOKMARKDECK_HOME"
	// EnvDebug enables debug logging when set to a true value.
	EnvDebug = "BOOKMARKDECK_DEBUG"
)

// Config is the user configuration.
type Config struct {
	Bookmarks BookmarksSettings `toml:"bookmarks"`
	Sort      SortSettings      `toml:"sort"`
	Web       WebSettings       `toml:"web"`
	Logs      LogSettings       `toml:"logs"`
	Watch     WatchSettings     `toml:"watch"`
}

// BookmarksSettings locates the host bookmarks file.
type BookmarksSettings struct {
	// File is an explicit path to a Bookmarks file. Empty means auto-detect.
	File string `toml:"file"`
	// Profile is the browser profile directory, e.g. "Default" or "Profile 1".
	Profile string `toml:"profile"`
}

// SortSettings holds the initial sort order and the title collation locale.
type SortSettings struct {
	// Key is one of id, title, dateAdded, dateLastUsed. Default: dateAdded
	Key string `toml:"key"`
	// Direction is asc or desc. Default: desc
	Direction string `toml:"direction"`
	// Locale is a BCP 47 tag for title collation, e.g. "de" or "sv-SE".
	// Empty uses the root collation.
	Locale string `toml:"locale"`
}

// WebSettings configures `bookmark-deck web`.
type WebSettings struct {
	// ListenAddr default: 127.0.0.1:8430
	ListenAddr string `toml:"listen_addr"`
	// Token, when set, is required as ?token= or a bearer header.
	Token string `toml:"token"`
}

// LogSettings configures structured logging.
type LogSettings struct {
	// Level: debug, info, warn, error. Default: info
	Level string `toml:"level"`
	// Format: json (default) or text
	Format string `toml:"format"`
	// MaxSizeMB before rotation. Default: 10
	MaxSizeMB int `toml:"max_size_mb"`
	// MaxBackups rotated files to keep. Default: 5
	MaxBackups int `toml:"max_backups"`
	// MaxAgeDays to keep rotated files. Default: 10
	MaxAgeDays int `toml:"max_age_days"`
	// Compress rotated files.
	Compress bool `toml:"compress"`
	// RingLines kept in memory for crash dumps. Default: 1000
	RingLines int `toml:"ring_lines"`
	// AggregateIntervalSecs for event_summary lines. Default: 30
	AggregateIntervalSecs int `toml:"aggregate_interval_secs"`
	// PprofAddr starts a pprof server when set (debug only).
	PprofAddr string `toml:"pprof_addr"`
}

// WatchSettings tunes host change detection.
type WatchSettings struct {
	// DebounceMS coalesces bursts of file events. Default: 100
	DebounceMS int `toml:"debounce_ms"`
	// MaxReloadsPerSecond caps refreshes. Default: 2
	MaxReloadsPerSecond float64 `toml:"max_reloads_per_second"`
	// PollIntervalMS when file events are unavailable. Default: 2000
	PollIntervalMS int `toml:"poll_interval_ms"`
	// ForcePoll disables file events.
	ForcePoll bool `toml:"force_poll"`
}

var defaultConfig = Config{
	Sort: SortSettings{Key: string(query.DefaultKey), Direction: string(query.DefaultDirection)},
	Web:  WebSettings{ListenAddr: "127.0.0.1:8430"},
}

var (
	cache   *Config
	cacheMu sync.RWMutex
)

// Dir returns the bookmark-deck directory: $BOOKMARKDECK_HOME or
// ~/.bookmark-deck.
func Dir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".bookmark-deck"), nil
}

// Path returns the config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// StatePath returns the sqlite state database path.
func StatePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, StateFileName), nil
}

// Load returns the configuration, cached after the first call. A missing
// file yields the defaults. A malformed file yields the defaults and the
// parse error so the caller can report it.
func Load() (*Config, error) {
	cacheMu.RLock()
	if cache != nil {
		defer cacheMu.RUnlock()
		return cache, nil
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if cache != nil {
		return cache, nil
	}

	def := defaultConfig
	path, err := Path()
	if err != nil {
		cache = &def
		return cache, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cache = &def
		return cache, nil
	}

	cfg := defaultConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		// Cache the defaults to prevent repeated parse attempts.
		cache = &def
		return cache, fmt.Errorf("config.toml parse error: %w", err)
	}
	cache = &cfg
	return cache, nil
}

// Reload drops the cache and loads again.
func Reload() (*Config, error) {
	ClearCache()
	return Load()
}

// ClearCache makes the next Load read from disk.
func ClearCache() {
	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
}

// Save writes cfg to config.toml atomically and clears the cache.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# bookmark-deck configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// Write to a temp file, fsync, then rename over the original.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := syncFile(tmpPath); err != nil {
		logging.ForComponent(logging.CompConfig).Debug("config_fsync_failed")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize config save: %w", err)
	}

	ClearCache()
	return nil
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// SortOrder returns the configured sort order, falling back to the defaults
// for invalid values.
func (c *Config) SortOrder() (query.SortKey, query.Direction) {
	key, err := query.ParseSortKey(c.Sort.Key)
	if err != nil {
		key = query.DefaultKey
	}
	dir, err := query.ParseDirection(c.Sort.Direction)
	if err != nil {
		dir = query.DefaultDirection
	}
	return key, dir
}

// Locale returns the collation locale, or language.Und when unset or
// invalid.
func (c *Config) Locale() language.Tag {
	if c.Sort.Locale == "" {
		return language.Und
	}
	tag, err := language.Parse(c.Sort.Locale)
	if err != nil {
		return language.Und
	}
	return tag
}

// DebugEnabled reports whether BOOKMARKDECK_DEBUG is set to a true value.
func DebugEnabled() bool {
	v := os.Getenv(EnvDebug)
	if v == "" {
		return false
	}
	on, err := strconv.ParseBool(v)
	return err != nil || on
}

// LoggingConfig builds the logging setup from the log settings. Unset values
// take the logging package defaults. The log file is written only in debug
// mode.
func (c *Config) LoggingConfig(debug bool) logging.Config {
	s := c.Logs
	lc := logging.Config{
		Level:                 s.Level,
		Format:                s.Format,
		MaxSizeMB:             s.MaxSizeMB,
		MaxBackups:            s.MaxBackups,
		MaxAgeDays:            s.MaxAgeDays,
		Compress:              s.Compress,
		RingLines:             s.RingLines,
		AggregateIntervalSecs: s.AggregateIntervalSecs,
		PprofAddr:             s.PprofAddr,
		Debug:                 debug,
	}
	if debug {
		if dir, err := Dir(); err == nil {
			lc.LogDir = dir
		}
	}
	return lc
}
