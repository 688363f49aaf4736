package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hanaasagi/tlmode/internal/completion"
	"github.com/Hanaasagi/tlmode/internal/loop"
)

func TestSyncStoreStartsFromDefault(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), "v1")

	store, err := NewSyncStore(ctx, s, "words", []string{"seed"})
	require.NoError(t, err)
	assert.Equal(t, "words", store.Name())
	assert.Equal(t, []string{"seed"}, store.Get())
}

func TestSyncStoreLoadsSavedValue(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), "v1")
	require.NoError(t, Save(ctx, s, "words", []string{"saved"}))

	store, err := NewSyncStore(ctx, s, "words", []string{"seed"})
	require.NoError(t, err)
	assert.Equal(t, []string{"saved"}, store.Get())
}

func TestSyncStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), "v1")
	require.NoError(t, s.Set(ctx, "words", []byte("nope")))

	_, err := NewSyncStore(ctx, s, "words", []string{})
	assert.Error(t, err)
}

func TestSyncStoreSetPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.toml")
	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	s := New(backend, "v1")

	store, err := NewSyncStore(ctx, s, "macros", map[string]string{})
	require.NoError(t, err)

	var seen []map[string]string
	sub := store.Subscribe(func(v map[string]string) { seen = append(seen, v) })
	defer sub.Cancel()

	store.Set(map[string]string{"hi": "hello"})
	store.Update(func(m map[string]string) map[string]string {
		next := map[string]string{"bye": "goodbye"}
		for k, v := range m {
			next[k] = v
		}
		return next
	})

	require.Len(t, seen, 3)
	assert.Equal(t, map[string]string{}, seen[0])
	assert.Equal(t, map[string]string{"hi": "hello", "bye": "goodbye"}, seen[2])

	reopened, err := NewFileBackend(path)
	require.NoError(t, err)
	got, ok, err := Load[map[string]string](ctx, New(reopened, "v1"), "macros")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"hi": "hello", "bye": "goodbye"}, got)
}

func TestSyncStoreReset(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), "v1")

	store, err := NewSyncStore(ctx, s, "words", []string{"seed"})
	require.NoError(t, err)
	store.Set([]string{"a", "b"})
	store.Reset()

	assert.Equal(t, []string{"seed"}, store.Get())
	got, _, err := Load[[]string](ctx, s, "words")
	require.NoError(t, err)
	assert.Equal(t, []string{"seed"}, got)
}

func TestSyncStoreBacksWordIndex(t *testing.T) {
	ctx := context.Background()
	backend, err := NewSQLiteBackend(ctx, filepath.Join(t.TempDir(), "words.db"))
	require.NoError(t, err)
	defer backend.Close()
	s := New(backend, "v1")
	require.NoError(t, Save(ctx, s, "words", []string{"persisted"}))

	store, err := NewSyncStore(ctx, s, "words", []string{})
	require.NoError(t, err)

	l := loop.New()
	index := completion.NewWordIndex(l, nil)
	sub := index.SyncWith(store)
	defer sub.Cancel()
	l.Drain(10)

	assert.Equal(t, []string{"persisted"}, index.Words())

	index.AddSentence("hello world")
	l.Drain(10)

	got, ok, err := Load[[]string](ctx, s, "words")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"persisted", "hello", "world"}, got)
}
