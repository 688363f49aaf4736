package tui

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/Hanaasagi/tlmode/internal/completion"
	"github.com/Hanaasagi/tlmode/internal/editor"
	"github.com/Hanaasagi/tlmode/internal/loop"
)

var testMacros = map[string]string{
	"en":   "[en]",
	"peko": "pekora",
	"ero":  "erofi",
}

type sessionHarness struct {
	t        *testing.T
	loop     *loop.Loop
	screen   tcell.SimulationScreen
	session  *session
	finished int
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()
	h := &sessionHarness{
		t:      t,
		loop:   loop.New(),
		screen: newScreen(t, 40, 8),
	}
	opts := Options{
		Loop:   h.loop,
		Macros: completion.NewMacroTable(h.loop, testMacros),
		Prompt: "> ",
	}
	h.session = newSession(h.screen, opts, func() { h.finished++ })
	t.Cleanup(h.session.close)
	h.settle()
	return h
}

func (h *sessionHarness) settle() {
	h.loop.Drain(50)
}

func (h *sessionHarness) typeText(text string) {
	for _, r := range text {
		h.session.handle(runeKey(r))
		h.settle()
	}
}

func (h *sessionHarness) press(k tcell.Key) {
	h.session.handle(specialKey(k))
	h.settle()
}

func TestSessionSubstitutesOnSpace(t *testing.T) {
	h := newSessionHarness(t)
	h.typeText("hi /peko ")

	if got := h.session.box.Text(); got != "hi pekora "+editor.Marker {
		t.Errorf("Expected substituted text, got %q", got)
	}
	if got := h.session.content.Get(); got != "hi pekora " {
		t.Errorf("Expected content mirror %q, got %q", "hi pekora ", got)
	}
	if got := screenRow(h.screen, 0); got != "> hi pekora" {
		t.Errorf("Expected rendered input, got %q", got)
	}
}

func TestSessionShowsCandidates(t *testing.T) {
	h := newSessionHarness(t)
	h.typeText("/e")

	if got := h.session.recommendations.Get(); !reflect.DeepEqual(got, []string{"en", "ero"}) {
		t.Errorf("Expected [en ero], got %v", got)
	}
	if got := screenRow(h.screen, 1); got != "en → [en]" {
		t.Errorf("Row 1: got %q", got)
	}
	if got := screenRow(h.screen, 2); got != "ero → erofi" {
		t.Errorf("Row 2: got %q", got)
	}

	h.typeText("r")
	if got := screenRow(h.screen, 2); got != "" {
		t.Errorf("Row 2 should be cleared, got %q", got)
	}
}

func TestSessionFocusCycles(t *testing.T) {
	h := newSessionHarness(t)
	h.typeText("/e")

	steps := []struct {
		key  tcell.Key
		want string
	}{
		{tcell.KeyDown, "en"},
		{tcell.KeyDown, "ero"},
		{tcell.KeyDown, "en"},
		{tcell.KeyUp, "ero"},
	}
	for _, step := range steps {
		h.press(step.key)
		if got := h.session.focused.Get(); got != step.want {
			t.Errorf("Expected focus %q, got %q", step.want, got)
		}
	}

	_, _, style, _ := h.screen.GetContent(0, 2)
	if style != h.session.opts.Colors.selectedStyle() {
		t.Errorf("Focused candidate should use the selected style")
	}
}

func TestSessionFocusWithoutCandidates(t *testing.T) {
	h := newSessionHarness(t)
	h.typeText("plain")
	h.press(tcell.KeyDown)

	if got := h.session.focused.Get(); got != "" {
		t.Errorf("Expected no focus, got %q", got)
	}
}

func TestSessionFocusedCandidateCompletes(t *testing.T) {
	h := newSessionHarness(t)
	h.typeText("ok /e")
	h.press(tcell.KeyDown)
	h.press(tcell.KeyDown)
	h.typeText(" ")

	if got := h.session.box.Text(); got != "ok erofi "+editor.Marker {
		t.Errorf("Expected focused completion, got %q", got)
	}
	if got := h.session.focused.Get(); got != "" {
		t.Errorf("Focus should be dropped once the candidates go away, got %q", got)
	}
}

func TestSessionFocusDroppedWhenCandidatesChange(t *testing.T) {
	h := newSessionHarness(t)
	h.typeText("/e")
	h.press(tcell.KeyDown)
	h.typeText("r")

	if got := h.session.focused.Get(); got != "" {
		t.Errorf("Expected focus on %q to be dropped, got %q", "en", got)
	}
}

func TestSessionTabConfirmsSingleCandidate(t *testing.T) {
	h := newSessionHarness(t)
	h.typeText("/pe")
	h.press(tcell.KeyTab)

	if got := h.session.box.Text(); got != "pekora "+editor.Marker {
		t.Errorf("Expected confirmation, got %q", got)
	}
	if got := h.session.box.Caret(); got != len([]rune("pekora "+editor.Marker)) {
		t.Errorf("Expected caret at end, got %d", got)
	}
}

func TestSessionSubmit(t *testing.T) {
	h := newSessionHarness(t)
	h.typeText("/en ok")
	h.press(tcell.KeyEnter)

	if h.finished != 1 {
		t.Fatalf("Expected session to finish once, got %d", h.finished)
	}
	if h.session.action != ActionSubmit {
		t.Errorf("Expected submit, got %d", h.session.action)
	}
	if h.session.result != "[en] ok" {
		t.Errorf("Expected %q, got %q", "[en] ok", h.session.result)
	}

	h.typeText("ignored")
	if h.session.box.Text() != "[en] "+editor.Marker+"ok" {
		t.Errorf("Keys after submit should be ignored, got %q", h.session.box.Text())
	}
}

func TestSessionCancel(t *testing.T) {
	h := newSessionHarness(t)
	h.typeText("draft")
	h.press(tcell.KeyEscape)

	if h.session.action != ActionCancel {
		t.Errorf("Expected cancel, got %d", h.session.action)
	}
}

func TestRunSubmit(t *testing.T) {
	screen := newScreen(t, 40, 8)
	l := loop.New()

	for _, r := range "hi" {
		screen.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := Run(ctx, Options{
		Loop:   l,
		Macros: completion.NewMacroTable(l, testMacros),
		Screen: screen,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "hi" {
		t.Errorf("Expected %q, got %q", "hi", got)
	}
}

func TestRunStopsReadingEvents(t *testing.T) {
	screen := newScreen(t, 40, 8)
	l := loop.New()
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := Run(ctx, Options{
		Loop:   l,
		Macros: completion.NewMacroTable(l, testMacros),
		Screen: screen,
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// the next key belongs to the caller now
	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	for {
		ev, ok := screen.PollEvent().(*tcell.EventKey)
		if !ok {
			continue
		}
		if ev.Rune() != 'x' {
			t.Errorf("Expected the injected key, got %q", ev.Rune())
		}
		return
	}
}

func TestRunCancel(t *testing.T) {
	screen := newScreen(t, 40, 8)
	l := loop.New()
	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Run(ctx, Options{
		Loop:   l,
		Macros: completion.NewMacroTable(l, testMacros),
		Screen: screen,
	})
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Expected ErrCancelled, got %v", err)
	}
}

func TestRunContextDone(t *testing.T) {
	screen := newScreen(t, 40, 8)
	l := loop.New()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, Options{
		Loop:   l,
		Macros: completion.NewMacroTable(l, testMacros),
		Screen: screen,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
}

func TestRunRequiresLoopAndMacros(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Errorf("Expected missing option error, got %v", err)
	}
}
