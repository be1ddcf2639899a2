// Package kv is the small key-value store that remembers operator state
// between sessions (the last viewed queue position). Two backends are
// provided: SQLite for the default install and a JSON file for setups where
// a database file is unwanted.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is returned by Get when the key has never been set.
var ErrNotFound = errors.New("kv: key not found")

// CursorKey is where the triage cursor is stored.
const CursorKey = "triage.cursor"

// Store persists string values under string keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open picks a backend by name ("sqlite" or "file").
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		store, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "file", "json":
		return NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("kv: unknown backend %q", backend)
	}
}

// LoadInt reads an integer value. ok is false when the key is absent or
// does not hold an integer.
func LoadInt(ctx context.Context, s Store, key string) (value int, ok bool, err error) {
	if s == nil {
		return 0, false, nil
	}
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(raw))
	if convErr != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// SaveInt writes an integer value.
func SaveInt(ctx context.Context, s Store, key string, value int) error {
	if s == nil {
		return nil
	}
	return s.Set(ctx, key, strconv.Itoa(value))
}
