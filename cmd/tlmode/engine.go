package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"

	"github.com/Hanaasagi/tlmode/internal/completion"
	"github.com/Hanaasagi/tlmode/internal/loop"
	"github.com/Hanaasagi/tlmode/internal/macrofile"
	"github.com/Hanaasagi/tlmode/internal/observable"
	"github.com/Hanaasagi/tlmode/internal/storage"
)

const drainTurns = 64

// engine is everything a command needs: the loop, the macro table and the
// persisted vocabulary.
type engine struct {
	loop    *loop.Loop
	storage *storage.Storage

	macros     *completion.MacroTable
	userMacros *storage.SyncStore[map[string]string]

	vocabulary *completion.WordIndex
	words      *storage.SyncStore[[]string]
	sync       *observable.Subscription

	watcher *macrofile.Watcher
}

func openEngine(ctx context.Context, cfg *Config) (*engine, error) {
	backend, err := storage.Open(ctx, storage.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.StoragePath(),
	})
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	st := storage.New(backend, cfg.Storage.Version)

	e := &engine{
		loop:    loop.New(),
		storage: st,
	}

	e.userMacros, err = storage.NewSyncStore(ctx, st, "macros", map[string]string{})
	if err != nil {
		st.Close() // nolint: errcheck
		return nil, err
	}
	e.words, err = storage.NewSyncStore(ctx, st, "words", []string{})
	if err != nil {
		st.Close() // nolint: errcheck
		return nil, err
	}

	var opts []completion.Option
	if cfg.Core.SkipEmptyWords {
		opts = append(opts, completion.SkipEmptyWords())
	}

	initial, err := initialMacros(cfg, e.userMacros.Get())
	if err != nil {
		st.Close() // nolint: errcheck
		return nil, err
	}
	e.macros = completion.NewMacroTable(e.loop, initial, opts...)
	e.vocabulary = completion.NewWordIndex(e.loop, nil, opts...)
	e.sync = e.vocabulary.SyncWith(e.words)

	slog.Debug("engine ready",
		"backend", cfg.Storage.Backend,
		"macros", e.macros.Len(),
		"words", e.vocabulary.Len())
	return e, nil
}

// initialMacros layers the config table, the macro file and the macros
// added with `macros add`, later layers winning.
func initialMacros(cfg *Config, user map[string]string) (map[string]string, error) {
	macros := maps.Clone(cfg.Macros)
	if macros == nil {
		macros = make(map[string]string)
	}

	if path := cfg.MacroFile.Path; path != "" {
		if _, err := os.Stat(path); err == nil {
			fromFile, err := macrofile.Load(path)
			if err != nil {
				return nil, err
			}
			maps.Copy(macros, fromFile)
		}
	}

	maps.Copy(macros, user)
	return macros, nil
}

// watchMacroFile follows edits to the macro file. New and changed entries
// are added on the loop; removed entries stay until the next start.
func (e *engine) watchMacroFile(cfg *Config) error {
	if cfg.MacroFile.Path == "" || !cfg.MacroFile.Watch {
		return nil
	}

	w, err := macrofile.NewWatcher(cfg.MacroFile.Path, macrofile.DefaultDebounce, func(m map[string]string) {
		e.loop.Defer(func() {
			for name, expansion := range m {
				e.macros.AddMacro(name, expansion)
			}
		})
	})
	if err != nil {
		return err
	}
	if err := w.Watch(); err != nil {
		w.Close() // nolint: errcheck
		return err
	}
	e.watcher = w
	return nil
}

// settle runs pending loop work, such as vocabulary flushes, to completion.
func (e *engine) settle() {
	e.loop.Drain(drainTurns)
}

func (e *engine) Close() error {
	e.settle()
	if e.watcher != nil {
		e.watcher.Close() // nolint: errcheck
	}
	e.sync.Cancel()
	e.vocabulary.Stop()
	e.macros.Stop()
	return e.storage.Close()
}
