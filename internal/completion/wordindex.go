// Package completion implements the vocabulary, the macro dictionary and the
// trigger-token substitution used while typing in a chat input.
//
// Nothing in this package is safe for concurrent use. Every call is expected
// to come from the event loop that also runs the deferred flushes.
package completion

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/Hanaasagi/tlmode/internal/loop"
	"github.com/Hanaasagi/tlmode/internal/observable"
)

// Option configures a WordIndex.
type Option func(*WordIndex)

// SkipEmptyWords makes AddSentence ignore the empty tokens produced by
// leading or trailing punctuation. By default they are registered.
func SkipEmptyWords() Option {
	return func(w *WordIndex) {
		w.skipEmpty = true
	}
}

// WithLogger sets the logger used for flush tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(w *WordIndex) {
		w.logger = logger
	}
}

type wordObserver struct {
	id uint64
	fn func([]string)
}

// WordIndex is a deduplicated vocabulary that answers prefix queries and
// notifies subscribers, coalesced, after it changes.
type WordIndex struct {
	sched  loop.Scheduler
	logger *slog.Logger

	words []string
	set   map[string]struct{}

	// mutations not yet flushed to observers
	pending int
	armed   bool
	stopped bool

	observers []wordObserver
	nextID    uint64

	skipEmpty bool
}

// NewWordIndex creates an index seeded with initial. Duplicates in initial
// are kept once, first occurrence wins.
func NewWordIndex(sched loop.Scheduler, initial []string, opts ...Option) *WordIndex {
	w := &WordIndex{
		sched:  sched,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.replace(initial)
	return w
}

// AddWord inserts word if it is not known yet and schedules a flush.
func (w *WordIndex) AddWord(word string) {
	if _, ok := w.set[word]; ok {
		return
	}
	w.words = append(w.words, word)
	w.set[word] = struct{}{}
	w.pending++
	w.arm()
}

// AddSentence registers every word of text.
func (w *WordIndex) AddSentence(text string) {
	for _, word := range SplitWords(text) {
		if word == "" && w.skipEmpty {
			continue
		}
		w.AddWord(word)
	}
}

// Complete returns the words starting with prefix, sorted ascending.
func (w *WordIndex) Complete(prefix string) []string {
	matches := make([]string, 0)
	for _, word := range w.words {
		if strings.HasPrefix(word, prefix) {
			matches = append(matches, word)
		}
	}
	slices.Sort(matches)
	return matches
}

// Words returns a copy of the vocabulary in insertion order.
func (w *WordIndex) Words() []string {
	return slices.Clone(w.words)
}

// Len returns the vocabulary size.
func (w *WordIndex) Len() int {
	return len(w.words)
}

// Contains reports whether word is in the vocabulary.
func (w *WordIndex) Contains(word string) bool {
	_, ok := w.set[word]
	return ok
}

// Subscribe registers fn to receive the full vocabulary after each flush.
func (w *WordIndex) Subscribe(fn func([]string)) *observable.Subscription {
	id := w.nextID
	w.nextID++
	w.observers = append(w.observers, wordObserver{id: id, fn: fn})

	return observable.NewSubscription(func() {
		w.observers = slices.DeleteFunc(w.observers, func(o wordObserver) bool {
			return o.id == id
		})
	})
}

// SyncWith mirrors the vocabulary with store in both directions: any value
// the store takes replaces the vocabulary wholesale, and every flush writes
// the full vocabulary back to the store. Since the store hands over its
// current value immediately, the store's content wins over the index's at
// the time of the call.
//
// Last write wins. Words added after the previous flush are dropped if the
// store is set externally before the next flush runs; that flush then
// publishes the external value unchanged. This race is known and left as is.
func (w *WordIndex) SyncWith(store observable.Store[[]string]) *observable.Subscription {
	in := store.Subscribe(w.replace)
	out := w.Subscribe(store.Set)
	return observable.Join(in, out)
}

// Stop ends change notification. An armed flush becomes a no-op and later
// mutations no longer schedule one.
func (w *WordIndex) Stop() {
	w.stopped = true
}

func (w *WordIndex) replace(words []string) {
	w.words = make([]string, 0, len(words))
	w.set = make(map[string]struct{}, len(words))
	for _, word := range words {
		if _, ok := w.set[word]; ok {
			continue
		}
		w.words = append(w.words, word)
		w.set[word] = struct{}{}
	}
}

func (w *WordIndex) arm() {
	if w.armed || w.stopped {
		return
	}
	w.armed = true
	w.sched.Defer(w.flush)
}

func (w *WordIndex) flush() {
	w.armed = false
	if w.stopped || w.pending == 0 {
		return
	}

	changes := w.pending
	w.pending = 0
	w.logger.Debug("flushing vocabulary", "changes", changes, "words", len(w.words))

	observers := slices.Clone(w.observers)
	for _, o := range observers {
		o.fn(w.Words())
	}
}
