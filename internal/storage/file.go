package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

type fileDocument struct {
	Entries map[string]string `toml:"entries"`
}

// FileBackend keeps every entry in one TOML document that is rewritten on
// each Set.
type FileBackend struct {
	path    string
	mu      sync.Mutex
	entries map[string]string
}

// NewFileBackend opens the document at path. A missing file is an empty
// store.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("file backend needs a path")
	}

	doc := fileDocument{}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode storage file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking storage file: %w", err)
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]string)
	}

	return &FileBackend{path: path, entries: doc.Entries}, nil
}

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.entries[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

func (f *FileBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = string(value)
	return f.write()
}

func (f *FileBackend) Close() error {
	return nil
}

// write must be called with f.mu held.
func (f *FileBackend) write() error {
	if err := ensureDir(f.path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp storage file: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint: errcheck

	writer := bufio.NewWriter(tmp)
	if err := toml.NewEncoder(writer).Encode(fileDocument{Entries: f.entries}); err != nil {
		tmp.Close() // nolint: errcheck
		return fmt.Errorf("encoding storage file: %w", err)
	}
	if err := writer.Flush(); err != nil {
		tmp.Close() // nolint: errcheck
		return fmt.Errorf("writing storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing storage file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing storage file: %w", err)
	}
	return nil
}
