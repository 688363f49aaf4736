package editor

import "github.com/Hanaasagi/tlmode/internal/observable"

// Key names reported in KeyEvent.Key. Printable keys are reported as the
// character they type.
const (
	KeyTab       = "Tab"
	KeyEnter     = "Enter"
	KeyEscape    = "Escape"
	KeyBackspace = "Backspace"
	KeySpace     = " "
)

// KeyEvent is a key-down notification.
type KeyEvent struct {
	Key string
}

// Surface is an editable text area the bridge can drive.
//
// Key-down listeners run before the surface applies the key. Change
// listeners run after the text changed, whatever caused it, including
// SetText.
type Surface interface {
	Text() string
	SetText(text string)
	// SetCaret places the caret before the rune at offset.
	SetCaret(offset int)
	CaretToEnd()

	OnKeyDown(fn func(KeyEvent)) *observable.Subscription
	OnChange(fn func()) *observable.Subscription

	// Wiring is the slot where the bridge currently attached to the
	// surface keeps its teardown.
	Wiring() *Wiring
}

// Wiring records how to undo the current attachment of a surface. Surfaces
// embed one and return it from Wiring.
type Wiring struct {
	teardown func()
}

// Replace runs the recorded teardown, if any, then records teardown.
func (w *Wiring) Replace(teardown func()) {
	w.Release()
	w.teardown = teardown
}

// Release runs and forgets the recorded teardown.
func (w *Wiring) Release() {
	if w.teardown == nil {
		return
	}
	teardown := w.teardown
	w.teardown = nil
	teardown()
}

// Attached reports whether a teardown is recorded.
func (w *Wiring) Attached() bool {
	return w.teardown != nil
}
