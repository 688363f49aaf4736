package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]Backend {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	file, err := NewFileBackend(filepath.Join(dir, "state", "store.toml"))
	require.NoError(t, err)
	db, err := NewSQLiteBackend(ctx, filepath.Join(dir, "state", "store.db"))
	require.NoError(t, err)

	backends := map[string]Backend{
		BackendMemory: NewMemoryBackend(),
		BackendFile:   file,
		BackendSQLite: db,
	}
	t.Cleanup(func() {
		for _, b := range backends {
			_ = b.Close()
		}
	})
	return backends
}

func TestBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, backend := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := backend.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, backend.Set(ctx, "k", []byte(`["a","b"]`)))
			got, ok, err := backend.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `["a","b"]`, string(got))

			require.NoError(t, backend.Set(ctx, "k", []byte(`[]`)))
			got, _, err = backend.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))
		})
	}
}

func TestFileBackendReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.toml")

	first, err := NewFileBackend(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "v1$$words", []byte(`["hello"]`)))

	second, err := NewFileBackend(path)
	require.NoError(t, err)
	got, ok, err := second.Get(ctx, "v1$$words")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["hello"]`, string(got))
}

func TestSQLiteBackendReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	first, err := NewSQLiteBackend(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", []byte("v")))
	require.NoError(t, first.Close())

	second, err := NewSQLiteBackend(ctx, path)
	require.NoError(t, err)
	defer second.Close()
	got, ok, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(got))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	b, err = Open(ctx, Options{Backend: BackendFile, Path: filepath.Join(dir, "s.toml")})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	b, err = Open(ctx, Options{Backend: BackendSQLite, Path: filepath.Join(dir, "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, b)
	require.NoError(t, b.Close())

	_, err = Open(ctx, Options{Backend: "redis"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(ctx, Options{Backend: BackendFile})
	assert.Error(t, err)
}

func TestStorageVersionsKeys(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	v1 := New(backend, "v1")
	v2 := New(backend, "v2")

	assert.Equal(t, "v1$$words", v1.Key("words"))

	require.NoError(t, Save(ctx, v1, "words", []string{"old"}))

	_, ok, err := Load[[]string](ctx, v2, "words")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := Load[[]string](ctx, v1, "words")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"old"}, got)

	raw, ok, err := backend.Get(ctx, "v1$$words")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `["old"]`, string(raw))
}

func TestLoadRejectsCorruptValue(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), "v1")
	require.NoError(t, s.Set(ctx, "words", []byte("{not json")))

	_, ok, err := Load[[]string](ctx, s, "words")
	assert.Error(t, err)
	assert.False(t, ok)
}
