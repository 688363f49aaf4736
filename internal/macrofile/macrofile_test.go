package macrofile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macros.toml")
	writeFile(t, path, "[macros]\nbrb = \"be right back\"\nshrug = '¯\\_(ツ)_/¯'\n")

	macros, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"brb":   "be right back",
		"shrug": `¯\_(ツ)_/¯`,
	}, macros)
}

func TestLoadWithoutTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macros.toml")
	writeFile(t, path, "# nothing yet\n")

	macros, err := Load(path)
	require.NoError(t, err)
	assert.NotNil(t, macros)
	assert.Empty(t, macros)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "[macros\n")
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macros.toml")
	writeFile(t, path, "[macros]\na = \"1\"\n")

	got := make(chan map[string]string, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(m map[string]string) { got <- m })
	require.NoError(t, err)
	require.NoError(t, w.Watch())
	defer w.Close()

	writeFile(t, path, "[macros]\na = \"2\"\nb = \"3\"\n")

	select {
	case m := <-got:
		assert.Equal(t, map[string]string{"a": "2", "b": "3"}, m)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macros.toml")
	writeFile(t, path, "[macros]\n")

	got := make(chan map[string]string, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(m map[string]string) { got <- m })
	require.NoError(t, err)
	require.NoError(t, w.Watch())
	defer w.Close()

	writeFile(t, filepath.Join(dir, "other.toml"), "[macros]\nx = \"y\"\n")

	select {
	case m := <-got:
		t.Fatalf("unexpected reload: %v", m)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherCloseStopsDelivery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macros.toml")
	writeFile(t, path, "[macros]\n")

	got := make(chan map[string]string, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(m map[string]string) { got <- m })
	require.NoError(t, err)
	require.NoError(t, w.Watch())
	require.NoError(t, w.Close())

	writeFile(t, path, "[macros]\na = \"b\"\n")

	select {
	case m := <-got:
		t.Fatalf("reload after close: %v", m)
	case <-time.After(200 * time.Millisecond):
	}
}
