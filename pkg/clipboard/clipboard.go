// Package clipboard copies a sent message to every clipboard reachable from
// a terminal: the system clipboard, the tmux paste buffer and, through the
// OSC52 escape sequence, the clipboard of the terminal emulator itself.
package clipboard

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	sysclip "github.com/atotto/clipboard"
)

// Option configures a Clipboard
type Option func(*Clipboard)

// Clipboard writes to the enabled targets
type Clipboard struct {
	tmux   bool
	system bool
	osc52  bool
	output io.Writer

	// replaceable in tests
	writeSystem func(string) error
	loadTmux    func(string) error
}

// New creates a Clipboard with every target enabled and OSC52 written to
// stderr.
func New(opts ...Option) *Clipboard {
	c := &Clipboard{
		tmux:        true,
		system:      true,
		osc52:       true,
		output:      os.Stderr,
		writeSystem: sysclip.WriteAll,
		loadTmux:    loadTmuxBuffer,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTmux enables/disables tmux buffer copying
func WithTmux(enabled bool) Option {
	return func(c *Clipboard) {
		c.tmux = enabled
	}
}

// WithSystem enables/disables system clipboard copying
func WithSystem(enabled bool) Option {
	return func(c *Clipboard) {
		c.system = enabled
	}
}

// WithOSC52 enables/disables OSC52 terminal copying
func WithOSC52(enabled bool) Option {
	return func(c *Clipboard) {
		c.osc52 = enabled
	}
}

// WithOutput sets where OSC52 sequences are written
func WithOutput(w io.Writer) Option {
	return func(c *Clipboard) {
		c.output = w
	}
}

// Copy writes text to all enabled targets. Every target is tried; the
// failures are joined.
func (c *Clipboard) Copy(text string) error {
	var errs []error
	available := Available()

	if c.tmux && available["tmux"] {
		if err := c.loadTmux(text); err != nil {
			errs = append(errs, fmt.Errorf("tmux: %w", err))
		}
	}

	if c.system && available["system"] {
		if err := c.writeSystem(text); err != nil {
			errs = append(errs, fmt.Errorf("system clipboard: %w", err))
		}
	}

	if c.osc52 {
		if _, err := io.WriteString(c.output, OSC52Sequence(text, IsTmuxSession())); err != nil {
			errs = append(errs, fmt.Errorf("osc52: %w", err))
		}
	}

	return errors.Join(errs...)
}

func loadTmuxBuffer(text string) error {
	if text == "" {
		return exec.Command("tmux", "delete-buffer").Run()
	}

	cmd := exec.Command("tmux", "load-buffer", "-")
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}

// OSC52Sequence returns the escape sequence that sets the terminal clipboard
// to text. Inside tmux it is wrapped in a DCS passthrough.
func OSC52Sequence(text string, tmux bool) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	if tmux {
		return fmt.Sprintf("\033Ptmux;\033\033]52;c;%s\007\033\\", encoded)
	}
	return fmt.Sprintf("\033]52;c;%s\007", encoded)
}

// IsTmuxSession returns true if running inside tmux
func IsTmuxSession() bool {
	return os.Getenv("TMUX") != ""
}

// Available returns which targets can be used right now
func Available() map[string]bool {
	return map[string]bool{
		"tmux":   IsTmuxSession(),
		"system": !sysclip.Unsupported,
		"osc52":  true,
	}
}
