package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/0xsamyy/fibwatch/internal/alert"
	"github.com/0xsamyy/fibwatch/internal/watchlist"
)

// Format selects the text encoding of a File store.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// File keeps the whole snapshot in one human-readable file, rewritten
// atomically (temp file + rename) on every save.
type File struct {
	path   string
	format Format

	mu sync.Mutex
}

// NewFile returns a File store. The file is created on first save.
func NewFile(path string, format Format) *File {
	return &File{path: path, format: format}
}

func (f *File) Path() string { return f.path }

func (f *File) Close() error { return nil }

// Load reads the snapshot. A missing file is an empty snapshot.
func (f *File) Load(_ context.Context) (watchlist.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return watchlist.Snapshot{States: map[string]alert.TokenState{}}, nil
	}
	if err != nil {
		return watchlist.Snapshot{}, &PersistenceError{Op: "load", Path: f.path, Err: err}
	}

	var snap watchlist.Snapshot
	switch f.format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &snap)
	default:
		err = json.Unmarshal(data, &snap)
	}
	if err != nil {
		return watchlist.Snapshot{}, &PersistenceError{Op: "load", Path: f.path, Err: err}
	}
	if snap.States == nil {
		snap.States = map[string]alert.TokenState{}
	}
	return snap, nil
}

// Save writes snap to a temp file next to the target and renames it over.
func (f *File) Save(_ context.Context, snap watchlist.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var (
		data []byte
		err  error
	)
	switch f.format {
	case FormatYAML:
		data, err = yaml.Marshal(snap)
	default:
		data, err = json.MarshalIndent(snap, "", "  ")
	}
	if err != nil {
		return &PersistenceError{Op: "save", Path: f.path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return &PersistenceError{Op: "save", Path: f.path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &PersistenceError{Op: "save", Path: f.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Op: "save", Path: f.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return &PersistenceError{Op: "save", Path: f.path, Err: err}
	}
	return nil
}
