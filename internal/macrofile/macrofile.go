// Package macrofile reads user macros from a TOML file and follows edits to
// it.
//
//	[macros]
//	brb = "be right back"
package macrofile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 100 * time.Millisecond

type document struct {
	Macros map[string]string `toml:"macros"`
}

// Load decodes the [macros] table of the file at path.
func Load(path string) (map[string]string, error) {
	var doc document
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode macro file: %w", err)
	}
	if doc.Macros == nil {
		doc.Macros = make(map[string]string)
	}
	return doc.Macros, nil
}

// Watcher reloads a macro file whenever it is written or replaced and hands
// the result to a callback. The callback runs on the watcher's goroutine.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(map[string]string)

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher prepares a watcher for path. Nothing is watched until Watch.
func NewWatcher(path string, debounce time.Duration, onChange func(map[string]string)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving macro file: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		watcher:  watcher,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts following the file. Its directory is watched rather than the
// file itself so that editors replacing the file by rename are seen too.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Close stops watching. A pending reload is dropped.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Macro file watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	if w.ctx.Err() != nil {
		return
	}

	if _, err := os.Stat(w.path); err != nil {
		return
	}
	macros, err := Load(w.path)
	if err != nil {
		slog.Warn("Failed to reload macro file", "path", w.path, "error", err)
		return
	}

	slog.Debug("Macro file reloaded", "path", w.path, "macros", len(macros))
	w.onChange(macros)
}
