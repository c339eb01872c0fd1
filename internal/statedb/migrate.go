package statedb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/asheshgoplani/bookmark-deck/internal/kv"
)

// importableKeys are the extension storage keys carried over by ImportJSON.
// Anything else in an export (favicon caches, extension internals) is skipped.
var importableKeys = map[string]bool{
	kv.KeySavedViews:  true,
	kv.KeyTheme:       true,
	kv.KeySidebarOpen: true,
	kv.KeySidebarMode: true,
	kv.KeyDarkMode:    true,
}

// ImportJSON reads a browser extension storage export (a single JSON object
// of key to value, as produced by chrome.storage.local.get(null)) and writes
// the known keys into db. Returns the keys imported.
func ImportJSON(ctx context.Context, jsonPath string, db *StateDB) ([]string, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}

	var export map[string]json.RawMessage
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	record := make(map[string]json.RawMessage)
	var keys []string
	for key, value := range export {
		if !importableKeys[key] {
			continue
		}
		record[key] = value
		keys = append(keys, key)
	}
	if len(record) == 0 {
		return nil, nil
	}

	if err := db.Set(ctx, record); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return keys, nil
}

// ExportJSON writes every stored record to jsonPath in the same shape
// ImportJSON reads.
func ExportJSON(ctx context.Context, db *StateDB, jsonPath string) (int, error) {
	entries, err := db.Entries(ctx)
	if err != nil {
		return 0, err
	}
	export := make(map[string]json.RawMessage, len(entries))
	for _, e := range entries {
		export[e.Key] = e.Value
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o600); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	return len(entries), nil
}
