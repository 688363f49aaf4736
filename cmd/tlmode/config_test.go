package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hanaasagi/tlmode/internal/editor"
	"github.com/Hanaasagi/tlmode/internal/storage"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, path := range []string{disabledConfig, filepath.Join(t.TempDir(), "missing.toml")} {
		cfg, err := LoadConfigFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, NewDefaultConfig(), cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[core]
confirm_key = "Enter"
boundary_key = ","
skip_empty_words = true

[storage]
backend = "memory"
version = "v2"

[clipboard]
copy_on_send = true
tmux = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, editor.Config{ConfirmKey: "Enter", BoundaryKey: ","}, cfg.Core.EditorConfig())
	assert.True(t, cfg.Core.SkipEmptyWords)
	assert.Equal(t, "> ", cfg.Core.Prompt)
	assert.Equal(t, storage.BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "v2", cfg.Storage.Version)
	assert.True(t, cfg.Clipboard.CopyOnSend)
	assert.False(t, cfg.Clipboard.Tmux)
	assert.True(t, cfg.Clipboard.OSC52)
	assert.Equal(t, "pekora", cfg.Macros["peko"])
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[core\n"), 0o644))

	_, err := LoadConfigFromFile(path)
	assert.Error(t, err)
}

func TestLoadConfigKeyNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[core]\nconfirm_key = \"tab\"\nboundary_key = \"Space\"\n"), 0o644))

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, editor.DefaultConfig(), cfg.Core.EditorConfig())
}

func TestLoadConfigRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		core string
	}{
		{"empty confirm key", `confirm_key = ""`},
		{"empty boundary key", `boundary_key = ""`},
		{"boundary key name", `boundary_key = "Escape"`},
		{"boundary key word", `boundary_key = "ab"`},
		{"boundary key letter", `boundary_key = "x"`},
		{"boundary key trigger", `boundary_key = "/"`},
		{"boundary key control", `boundary_key = "\t"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte("[core]\n"+tt.core+"\n"), 0o644))

			_, err := LoadConfigFromFile(path)
			assert.Error(t, err)
		})
	}
}

func TestStoragePath(t *testing.T) {
	assert.Equal(t, "/tmp/x.db", StorageConfig{Backend: storage.BackendSQLite, Path: "/tmp/x.db"}.StoragePath())
	assert.Equal(t, "store.toml", filepath.Base(StorageConfig{Backend: storage.BackendFile}.StoragePath()))
	assert.Equal(t, appName+".db", filepath.Base(StorageConfig{Backend: storage.BackendSQLite}.StoragePath()))
}

func TestColorConfigParse(t *testing.T) {
	colors, err := NewDefaultConfig().Colors.Parse()
	require.NoError(t, err)
	assert.NotNil(t, colors.Selected)

	_, err = ColorConfig{Text: "default", Candidate: "#zzzzzz", Selected: "red"}.Parse()
	assert.Error(t, err)
}
