// Package tui runs the interactive chat input: an InputBox driven by the
// editor bridge, with a popup listing the macros that complete the token
// being typed.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/Hanaasagi/tlmode/internal/completion"
	"github.com/Hanaasagi/tlmode/internal/editor"
	"github.com/Hanaasagi/tlmode/internal/loop"
	"github.com/Hanaasagi/tlmode/internal/observable"
)

var ErrCancelled = errors.New("input cancelled")

const candidateSeparator = " → "

// Options configures Run.
type Options struct {
	Loop   *loop.Loop
	Macros *completion.MacroTable

	// Screen must already be initialized. When nil, Run opens the terminal
	// itself and restores it before returning. A caller-owned screen may hold
	// one leftover EventInterrupt after Run returns.
	Screen tcell.Screen

	Prompt        string
	Colors        Colors
	Logger        *slog.Logger
	BridgeOptions []editor.Option
}

type session struct {
	opts   Options
	logger *slog.Logger
	screen tcell.Screen
	buffer *TextBuffer
	box    *InputBox
	bridge *editor.Bridge

	recommendations *observable.Value[[]string]
	content         *observable.Value[string]
	focused         *observable.Value[string]
	subs            *observable.Subscription

	renderArmed bool
	done        bool
	action      Action
	result      string
	finish      context.CancelFunc
}

func newSession(screen tcell.Screen, opts Options, finish context.CancelFunc) *session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Colors.Text == nil {
		opts.Colors = DefaultColors()
	}

	logger := opts.Logger.With("session", uuid.NewString())
	width, height := screen.Size()

	s := &session{
		opts:            opts,
		logger:          logger,
		screen:          screen,
		buffer:          NewTextBuffer(width, height),
		box:             NewInputBox(),
		recommendations: observable.NewValue([]string{}),
		content:         observable.NewValue(""),
		focused:         observable.NewValue(""),
		finish:          finish,
	}

	bridgeOpts := append([]editor.Option{editor.WithLogger(logger)}, opts.BridgeOptions...)
	s.bridge = editor.NewBridge(opts.Loop, opts.Macros, s.recommendations, s.content, s.focused, bridgeOpts...)
	s.bridge.Attach(s.box)

	s.box.redraw = s.requestRender
	s.subs = observable.Join(
		s.recommendations.Subscribe(func([]string) {
			// the bridge may still read the focused name in a task it
			// deferred before the list changed
			opts.Loop.Defer(s.dropStaleFocus)
			s.requestRender()
		}),
		s.focused.Subscribe(func(string) { s.requestRender() }),
	)

	logger.Debug("input session started")
	return s
}

func (s *session) close() {
	s.subs.Cancel()
	s.bridge.Detach()
	s.box.redraw = nil
}

func (s *session) handle(ev tcell.Event) {
	if s.done {
		return
	}

	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch action := s.box.HandleKey(ev); action {
		case ActionSubmit, ActionCancel:
			s.end(action)
			return
		case ActionFocusPrev:
			s.moveFocus(-1)
		case ActionFocusNext:
			s.moveFocus(1)
		}
	case *tcell.EventResize:
		s.screen.Sync()
	case *tcell.EventError:
		s.logger.Error("Terminal error", "error", ev.Error())
		s.end(ActionCancel)
		return
	}
	s.requestRender()
}

func (s *session) end(action Action) {
	s.done = true
	s.action = action
	s.result = editor.StripMarkers(s.box.Text())
	s.bridge.Detach()
	s.logger.Info("input session ended", "submitted", action == ActionSubmit, "length", len(s.result))
	s.finish()
}

func (s *session) moveFocus(delta int) {
	recs := s.recommendations.Get()
	if len(recs) == 0 {
		s.focused.Set("")
		return
	}

	idx := slices.Index(recs, s.focused.Get())
	switch {
	case idx < 0 && delta > 0:
		idx = 0
	case idx < 0:
		idx = len(recs) - 1
	default:
		idx = (idx + delta + len(recs)) % len(recs)
	}
	s.focused.Set(recs[idx])
}

func (s *session) dropStaleFocus() {
	name := s.focused.Get()
	if name != "" && !slices.Contains(s.recommendations.Get(), name) {
		s.focused.Set("")
	}
}

func (s *session) requestRender() {
	if s.renderArmed || s.done {
		return
	}
	s.renderArmed = true
	s.opts.Loop.Defer(s.render)
}

func (s *session) render() {
	s.renderArmed = false
	if s.done {
		return
	}

	width, height := s.screen.Size()
	s.buffer.Resize(width, height)
	s.buffer.Clear()
	s.screen.Clear()

	colors := s.opts.Colors
	textStart := s.buffer.SetString(0, 0, s.opts.Prompt, colors.textStyle())
	s.buffer.SetString(textStart, 0, s.box.Text(), colors.textStyle())
	caretX := textStart + runewidth.StringWidth(string(s.box.text[:s.box.caret]))

	focused := s.focused.Get()
	for i, name := range s.recommendations.Get() {
		style := colors.candidateStyle()
		if name == focused {
			style = colors.selectedStyle()
		}
		expansion, _ := s.opts.Macros.Macro(name)
		s.buffer.SetString(0, i+1, name+candidateSeparator+expansion, style)
	}

	s.buffer.WriteToScreen(s.screen)
	if width > 0 {
		s.screen.ShowCursor(caretX%width, min(caretX/width, height-1))
	}
	s.screen.Show()
}

func (s *session) pump(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for {
		ev := s.screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return
		}
		s.opts.Loop.Defer(func() { s.handle(ev) })
	}
}

// Run shows the input box until the message is submitted with Enter, which
// returns the text without markers, or cancelled with Esc or Ctrl-C, which
// returns ErrCancelled. Every event is handled on opts.Loop; Run drives the
// loop until the session ends.
func Run(ctx context.Context, opts Options) (string, error) {
	if opts.Loop == nil || opts.Macros == nil {
		return "", fmt.Errorf("tui: loop and macros are required")
	}

	screen := opts.Screen
	if screen == nil {
		var err error
		screen, err = tcell.NewScreen()
		if err != nil {
			return "", fmt.Errorf("failed to create screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return "", fmt.Errorf("failed to initialize screen: %w", err)
		}
		defer screen.Fini()
		screen.SetStyle(tcell.StyleDefault)
		screen.Clear()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := newSession(screen, opts, cancel)
	defer s.close()

	pumped := make(chan struct{})
	go s.pump(ctx, pumped)
	s.requestRender()

	err := opts.Loop.Run(ctx)

	// PollEvent blocks until the next event, so wake the pump up
	cancel()
	if screen.PostEvent(tcell.NewEventInterrupt(nil)) == nil {
		<-pumped
	}
	switch {
	case s.action == ActionSubmit:
		return s.result, nil
	case s.action == ActionCancel:
		return "", ErrCancelled
	}
	return "", err
}
