package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/Hanaasagi/tlmode/internal/editor"
	"github.com/Hanaasagi/tlmode/internal/storage"
	"github.com/Hanaasagi/tlmode/internal/tui"
)

// disabledConfig passed to --config skips the config file.
const disabledConfig = "NONE"

type Config struct {
	Core      CoreConfig        `toml:"core"`
	Storage   StorageConfig     `toml:"storage"`
	Macros    map[string]string `toml:"macros"`
	MacroFile MacroFileConfig   `toml:"macro_file"`
	Colors    ColorConfig       `toml:"colors"`
	Clipboard ClipboardConfig   `toml:"clipboard"`
}

type CoreConfig struct {
	Prompt         string `toml:"prompt"`
	ConfirmKey     string `toml:"confirm_key"`
	BoundaryKey    string `toml:"boundary_key"`
	SkipEmptyWords bool   `toml:"skip_empty_words"`
}

type StorageConfig struct {
	Backend string `toml:"backend"` // "memory", "file" or "sqlite"
	Version string `toml:"version"`
	Path    string `toml:"path"` // empty: under $XDG_DATA_HOME/tlmode
}

type MacroFileConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

type ColorConfig struct {
	Text      string `toml:"text"`
	Candidate string `toml:"candidate"`
	Selected  string `toml:"selected"`
}

type ClipboardConfig struct {
	CopyOnSend bool `toml:"copy_on_send"`
	System     bool `toml:"system"`
	OSC52      bool `toml:"osc52"`
	Tmux       bool `toml:"tmux"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			Prompt:         "> ",
			ConfirmKey:     editor.KeyTab,
			BoundaryKey:    editor.KeySpace,
			SkipEmptyWords: false,
		},
		Storage: StorageConfig{
			Backend: storage.BackendSQLite,
			Version: "v1",
		},
		Macros: map[string]string{
			"en":   "[en]",
			"peko": "pekora",
			"ero":  "erofi",
		},
		Colors: ColorConfig{
			Text:      "default",
			Candidate: "cyan",
			Selected:  "yellow",
		},
		Clipboard: ClipboardConfig{
			CopyOnSend: false,
			System:     true,
			OSC52:      true,
			Tmux:       true,
		},
	}
}

// LoadConfigFromFile overlays the file at path on the defaults. Inline
// macros are merged with the default ones.
func LoadConfigFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path == disabledConfig {
		return config, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil // no config file, return defaults
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode TOML config: %w", err)
	}

	config.Core.ConfirmKey = keyFromName(config.Core.ConfirmKey)
	config.Core.BoundaryKey = keyFromName(config.Core.BoundaryKey)
	if err := config.Core.EditorConfig().Validate(); err != nil {
		return nil, fmt.Errorf("invalid [core] keys: %w", err)
	}

	return config, nil
}

// keyNames lets key names be spelled the way the input box reports them or
// as a word, e.g. "Space".
var keyNames = map[string]string{
	"space": editor.KeySpace,
	"tab":   editor.KeyTab,
	"enter": editor.KeyEnter,
}

func keyFromName(name string) string {
	if key, ok := keyNames[strings.ToLower(name)]; ok {
		return key
	}
	return name
}

func defaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// StoragePath returns the configured location, or the per-backend default.
func (c StorageConfig) StoragePath() string {
	if c.Path != "" {
		return c.Path
	}
	switch c.Backend {
	case storage.BackendFile:
		return filepath.Join(xdg.DataHome, appName, "store.toml")
	default:
		return filepath.Join(xdg.DataHome, appName, appName+".db")
	}
}

func (c CoreConfig) EditorConfig() editor.Config {
	return editor.Config{
		ConfirmKey:  c.ConfirmKey,
		BoundaryKey: c.BoundaryKey,
	}
}

func (c ColorConfig) Parse() (tui.Colors, error) {
	text, err := tui.ParseColor(c.Text)
	if err != nil {
		return tui.Colors{}, fmt.Errorf("colors.text: %w", err)
	}
	candidate, err := tui.ParseColor(c.Candidate)
	if err != nil {
		return tui.Colors{}, fmt.Errorf("colors.candidate: %w", err)
	}
	selected, err := tui.ParseColor(c.Selected)
	if err != nil {
		return tui.Colors{}, fmt.Errorf("colors.selected: %w", err)
	}
	return tui.Colors{Text: text, Candidate: candidate, Selected: selected}, nil
}
