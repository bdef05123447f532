// Package store persists the watch-list snapshot between restarts.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/0xsamyy/fibwatch/internal/watchlist"
)

// Persister loads and saves the watch-list snapshot.
type Persister interface {
	Load(ctx context.Context) (watchlist.Snapshot, error)
	Save(ctx context.Context, snap watchlist.Snapshot) error
	Close() error
	Path() string
}

// PersistenceError is a failed read or write of the state file. Callers log
// it and keep running in memory.
type PersistenceError struct {
	Op   string // "open", "load", "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Open picks a backend from the file extension: .db and .bolt use bbolt,
// .json and .yaml/.yml use a text file. An empty path disables persistence.
func Open(path string) (Persister, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Memory{}, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".bolt":
		return NewBolt(path)
	case ".json":
		return NewFile(path, FormatJSON), nil
	case ".yaml", ".yml":
		return NewFile(path, FormatYAML), nil
	default:
		return nil, &PersistenceError{Op: "open", Path: path, Err: fmt.Errorf("unsupported extension %q (want .db, .bolt, .json, .yaml or .yml)", filepath.Ext(path))}
	}
}

// Memory is the no-op Persister used when persistence is disabled.
type Memory struct{}

func (Memory) Load(context.Context) (watchlist.Snapshot, error) { return watchlist.Snapshot{}, nil }
func (Memory) Save(context.Context, watchlist.Snapshot) error   { return nil }
func (Memory) Close() error                                     { return nil }
func (Memory) Path() string                                     { return "" }
