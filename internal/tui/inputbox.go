package tui

import (
	"slices"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/Hanaasagi/tlmode/internal/editor"
	"github.com/Hanaasagi/tlmode/internal/observable"
)

var marker, _ = utf8.DecodeRuneInString(editor.Marker)

// Action is what the caller should do after a key was handled.
type Action int

const (
	ActionNone Action = iota
	ActionSubmit
	ActionCancel
	ActionFocusPrev
	ActionFocusNext
)

type keyListener struct {
	id uint64
	fn func(editor.KeyEvent)
}

type changeListener struct {
	id uint64
	fn func()
}

// InputBox is a single-line editable buffer with a caret. It implements
// editor.Surface; key events come in through HandleKey.
type InputBox struct {
	wiring editor.Wiring

	text  []rune
	caret int

	nextID  uint64
	keys    []keyListener
	changes []changeListener

	// called after the text or caret moved
	redraw func()
}

var _ editor.Surface = (*InputBox)(nil)

func NewInputBox() *InputBox {
	return &InputBox{}
}

func (b *InputBox) Text() string {
	return string(b.text)
}

func (b *InputBox) SetText(text string) {
	b.text = []rune(text)
	b.caret = min(b.caret, len(b.text))
	b.changed()
}

// Caret returns the rune offset of the caret.
func (b *InputBox) Caret() int {
	return b.caret
}

func (b *InputBox) SetCaret(offset int) {
	b.caret = max(0, min(offset, len(b.text)))
	b.moved()
}

func (b *InputBox) CaretToEnd() {
	b.SetCaret(len(b.text))
}

func (b *InputBox) Wiring() *editor.Wiring {
	return &b.wiring
}

func (b *InputBox) OnKeyDown(fn func(editor.KeyEvent)) *observable.Subscription {
	id := b.nextID
	b.nextID++
	b.keys = append(b.keys, keyListener{id: id, fn: fn})
	return observable.NewSubscription(func() {
		b.keys = slices.DeleteFunc(b.keys, func(l keyListener) bool { return l.id == id })
	})
}

func (b *InputBox) OnChange(fn func()) *observable.Subscription {
	id := b.nextID
	b.nextID++
	b.changes = append(b.changes, changeListener{id: id, fn: fn})
	return observable.NewSubscription(func() {
		b.changes = slices.DeleteFunc(b.changes, func(l changeListener) bool { return l.id == id })
	})
}

// KeyName maps a tcell key to the name reported to key-down listeners.
func KeyName(ev *tcell.EventKey) string {
	switch ev.Key() {
	case tcell.KeyRune:
		return string(ev.Rune())
	case tcell.KeyTab:
		return editor.KeyTab
	case tcell.KeyEnter:
		return editor.KeyEnter
	case tcell.KeyEscape:
		return editor.KeyEscape
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return editor.KeyBackspace
	default:
		return ev.Name()
	}
}

// HandleKey notifies key-down listeners, then applies the key's default
// action.
func (b *InputBox) HandleKey(ev *tcell.EventKey) Action {
	event := editor.KeyEvent{Key: KeyName(ev)}
	for _, l := range slices.Clone(b.keys) {
		l.fn(event)
	}

	switch ev.Key() {
	case tcell.KeyRune:
		b.insert(ev.Rune())
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		b.backspace()
	case tcell.KeyDelete:
		b.delete()
	case tcell.KeyLeft:
		b.SetCaret(b.caret - 1)
	case tcell.KeyRight:
		b.SetCaret(b.caret + 1)
	case tcell.KeyHome, tcell.KeyCtrlA:
		b.SetCaret(0)
	case tcell.KeyEnd, tcell.KeyCtrlE:
		b.CaretToEnd()
	case tcell.KeyUp:
		return ActionFocusPrev
	case tcell.KeyDown:
		return ActionFocusNext
	case tcell.KeyEnter:
		return ActionSubmit
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionCancel
	}
	return ActionNone
}

func (b *InputBox) insert(r rune) {
	b.text = slices.Insert(b.text, b.caret, r)
	b.caret++
	b.changed()
}

// backspace removes the rune before the caret, along with any markers
// between it and the caret.
func (b *InputBox) backspace() {
	start := b.caret
	for start > 0 && b.text[start-1] == marker {
		start--
	}
	if start == 0 {
		return
	}
	start--
	b.text = slices.Delete(b.text, start, b.caret)
	b.caret = start
	b.changed()
}

func (b *InputBox) delete() {
	if b.caret >= len(b.text) {
		return
	}
	b.text = slices.Delete(b.text, b.caret, b.caret+1)
	b.changed()
}

func (b *InputBox) changed() {
	for _, l := range slices.Clone(b.changes) {
		l.fn()
	}
	b.moved()
}

func (b *InputBox) moved() {
	if b.redraw != nil {
		b.redraw()
	}
}
