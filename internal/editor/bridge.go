// Package editor drives macro substitution and completion candidates from
// the key and change events of an editable surface.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Hanaasagi/tlmode/internal/completion"
	"github.com/Hanaasagi/tlmode/internal/loop"
	"github.com/Hanaasagi/tlmode/internal/observable"
)

// Marker is appended after a substituted text. It is invisible and keeps
// the surface from trimming the trailing boundary character.
const Marker = "\u200d"

// Config selects the keys the bridge reacts to.
type Config struct {
	// ConfirmKey substitutes when exactly one candidate is offered.
	ConfirmKey string
	// BoundaryKey finalizes the token before the caret. It is also the
	// character stripped before and appended after a substitution.
	BoundaryKey string
}

// DefaultConfig confirms with Tab and finalizes on space.
func DefaultConfig() Config {
	return Config{
		ConfirmKey:  KeyTab,
		BoundaryKey: KeySpace,
	}
}

// Validate checks that the boundary key is a single character the bridge can
// strip and append, and that a confirm key is set.
func (c Config) Validate() error {
	if c.ConfirmKey == "" {
		return errors.New("confirm key is empty")
	}
	r, size := utf8.DecodeRuneInString(c.BoundaryKey)
	if r == utf8.RuneError || size != len(c.BoundaryKey) {
		return fmt.Errorf("boundary key %q is not a single character", c.BoundaryKey)
	}
	if !unicode.IsPrint(r) || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) ||
		strings.ContainsRune(completion.Trigger, r) {
		return fmt.Errorf("boundary key %q cannot end a token", c.BoundaryKey)
	}
	return nil
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithConfig overrides the default keys.
func WithConfig(cfg Config) Option {
	return func(b *Bridge) {
		b.cfg = cfg
	}
}

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// Bridge connects one surface at a time to a macro table.
type Bridge struct {
	sched  loop.Scheduler
	macros *completion.MacroTable
	cfg    Config
	logger *slog.Logger

	recommendations observable.Store[[]string]
	content         observable.Store[string]
	focused         observable.Store[string]

	surface Surface
	last    KeyEvent
}

// NewBridge creates a detached bridge. recommendations receives the
// candidate list, content mirrors the surface text without markers, and
// focused is read to find the candidate the user selected ("" for none).
func NewBridge(
	sched loop.Scheduler,
	macros *completion.MacroTable,
	recommendations observable.Store[[]string],
	content observable.Store[string],
	focused observable.Store[string],
	opts ...Option,
) *Bridge {
	b := &Bridge{
		sched:           sched,
		macros:          macros,
		cfg:             DefaultConfig(),
		logger:          slog.Default(),
		recommendations: recommendations,
		content:         content,
		focused:         focused,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach wires the bridge to s. Whatever was attached to s before, this
// bridge included, is torn down first.
func (b *Bridge) Attach(s Surface) {
	b.Detach()

	var subs *observable.Subscription
	s.Wiring().Replace(func() {
		subs.Cancel()
		if b.surface == s {
			b.surface = nil
		}
	})
	subs = observable.Join(
		s.OnKeyDown(b.onKeyDown),
		s.OnChange(b.onChange),
	)
	b.surface = s
	b.last = KeyEvent{}
	b.logger.Debug("bridge attached")
}

// Detach stops listening to the current surface, if any.
func (b *Bridge) Detach() {
	if b.surface == nil {
		return
	}
	b.surface.Wiring().Release()
	b.logger.Debug("bridge detached")
}

// Attached reports whether the bridge currently drives a surface.
func (b *Bridge) Attached() bool {
	return b.surface != nil
}

func (b *Bridge) onKeyDown(e KeyEvent) {
	b.last = e
	if e.Key != b.cfg.ConfirmKey {
		return
	}
	if len(b.recommendations.Get()) == 1 {
		b.substitute()
	}
	// confirmation may change the text length once the substitution lands
	b.sched.Defer(func() {
		b.sched.Defer(b.caretToEnd)
	})
}

func (b *Bridge) onChange() {
	if b.last.Key == b.cfg.BoundaryKey {
		b.substitute()
	}
	b.updateRecommendations()
	b.updateContent()
}

func (b *Bridge) substitute() {
	b.sched.Defer(b.applySubstitution)
}

// applySubstitution runs outside the event that requested it and works on
// the text the surface holds by then.
func (b *Bridge) applySubstitution() {
	s := b.surface
	if s == nil {
		return
	}

	current := s.Text()
	body := strings.TrimSuffix(current, b.cfg.BoundaryKey)
	resolved := b.resolve(body)
	if resolved == body {
		return
	}

	next := resolved + b.cfg.BoundaryKey + Marker
	b.logger.Debug("substituting", "before", current, "after", next)
	s.SetText(next)
	s.CaretToEnd()
	b.updateRecommendations()
}

func (b *Bridge) resolve(text string) string {
	if name := b.focused.Get(); name != "" {
		if expansion, ok := b.macros.Macro(name); ok {
			return b.macros.CompleteEnd(text, expansion)
		}
	}
	return b.macros.ReplaceText(text)
}

func (b *Bridge) caretToEnd() {
	if b.surface != nil {
		b.surface.CaretToEnd()
	}
}

func (b *Bridge) updateRecommendations() {
	if b.surface == nil {
		return
	}
	b.recommendations.Set(b.macros.Complete(b.surface.Text()))
}

func (b *Bridge) updateContent() {
	if b.surface == nil {
		return
	}
	b.content.Set(StripMarkers(b.surface.Text()))
}

// StripMarkers removes every Marker from text.
func StripMarkers(text string) string {
	return strings.ReplaceAll(text, Marker, "")
}
