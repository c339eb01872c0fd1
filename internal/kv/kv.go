// Package kv defines the persistent key-value collaborator that stores saved
// views and preferences, plus an in-memory implementation.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Keys used by bookmark-deck.
const (
	KeySavedViews  = "savedViews"
	KeyTheme       = "theme"
	KeySidebarOpen = "sidebarOpen"
	KeySidebarMode = "sidebarMode"
	KeyDarkMode    = "darkMode"
	// KeyQueryParams holds the CLI's last sort and filter state.
	KeyQueryParams = "queryParams"
)

// Store reads and writes JSON values by key. Get returns only the keys that
// exist. Set writes every key of record in one step.
type Store interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, record map[string]json.RawMessage) error
}

// PersistenceError wraps a failed load or save. It is logged and never
// fatal: callers fall back to defaults.
type PersistenceError struct {
	Op   string
	Keys []string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("kv %s %s: %v", e.Op, strings.Join(e.Keys, ","), e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// GetJSON decodes key into v. It reports false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	vals, err := s.Get(ctx, key)
	if err != nil {
		return false, &PersistenceError{Op: "get", Keys: []string{key}, Err: err}
	}
	raw, ok := vals[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, &PersistenceError{Op: "decode", Keys: []string{key}, Err: err}
	}
	return true, nil
}

// SetJSON encodes v under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &PersistenceError{Op: "encode", Keys: []string{key}, Err: err}
	}
	if err := s.Set(ctx, map[string]json.RawMessage{key: raw}); err != nil {
		return &PersistenceError{Op: "set", Keys: []string{key}, Err: err}
	}
	return nil
}

// Memory is a Store backed by a map. The zero value is ready to use.
type Memory struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage

	// GetErr and SetErr, when set, are returned by every call.
	GetErr error
	SetErr error
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, keys ...string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, record map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.data == nil {
		m.data = make(map[string]json.RawMessage)
	}
	for k, v := range record {
		m.data[k] = append(json.RawMessage(nil), v...)
	}
	return nil
}
