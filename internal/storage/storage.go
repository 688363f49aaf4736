// Package storage persists small values (learned words, user macros) behind
// a Backend chosen once at startup.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend is a flat key/value store.
type Backend interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Options selects and locates a backend.
type Options struct {
	Backend string
	// Path is the file or database location; unused by the memory backend.
	Path string
}

// Open creates the backend named in opts.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryBackend(), nil
	case BackendFile:
		return NewFileBackend(opts.Path)
	case BackendSQLite:
		return NewSQLiteBackend(ctx, opts.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// Storage namespaces keys by a version tag so incompatible layouts never
// read each other's data.
type Storage struct {
	backend Backend
	version string
}

// New wraps backend with version.
func New(backend Backend, version string) *Storage {
	return &Storage{backend: backend, version: version}
}

// Key returns the backend key for key.
func (s *Storage) Key(key string) string {
	return s.version + "$$" + key
}

// Version returns the version tag.
func (s *Storage) Version() string {
	return s.version
}

// Get reads the raw value stored under key.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.backend.Get(ctx, s.Key(key))
}

// Set writes the raw value for key.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	return s.backend.Set(ctx, s.Key(key), value)
}

// Close closes the backend.
func (s *Storage) Close() error {
	return s.backend.Close()
}

// Load decodes the JSON value stored under key.
func Load[T any](ctx context.Context, s *Storage, key string) (T, bool, error) {
	var value T
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return value, false, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return value, true, nil
}

// Save stores value under key as JSON.
func Save[T any](ctx context.Context, s *Storage, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}
	return nil
}
