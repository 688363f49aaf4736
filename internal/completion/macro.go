package completion

import (
	"maps"
	"slices"
	"strings"

	"github.com/Hanaasagi/tlmode/internal/loop"
)

// MacroTable maps macro names to expansions. Names are also kept in a
// WordIndex so a macro can be referenced by any unambiguous prefix.
type MacroTable struct {
	macros map[string]string
	names  *WordIndex
}

// NewMacroTable creates a table holding initial. Names are indexed in sorted
// order.
func NewMacroTable(sched loop.Scheduler, initial map[string]string, opts ...Option) *MacroTable {
	names := slices.Sorted(maps.Keys(initial))
	return &MacroTable{
		macros: maps.Clone(initial),
		names:  NewWordIndex(sched, names, opts...),
	}
}

// AddMacro stores or overwrites the expansion for name.
func (t *MacroTable) AddMacro(name, expansion string) {
	if t.macros == nil {
		t.macros = make(map[string]string)
	}
	t.macros[name] = expansion
	t.names.AddWord(name)
}

// Macro resolves name by exact match, then by prefix. A prefix shared by
// several names resolves to nothing.
func (t *MacroTable) Macro(name string) (string, bool) {
	if expansion, ok := t.macros[name]; ok {
		return expansion, true
	}
	candidates := t.names.Complete(name)
	if len(candidates) != 1 {
		return "", false
	}
	return t.macros[candidates[0]], true
}

// ReplaceText replaces every resolvable trigger token in text with its
// expansion. Tokens that do not resolve are left as typed.
func (t *MacroTable) ReplaceText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	last := 0
	for offset, token := range Triggers(text) {
		b.WriteString(text[last:offset])
		if expansion, ok := t.Macro(token[len(Trigger):]); ok {
			b.WriteString(expansion)
		} else {
			b.WriteString(token)
		}
		last = offset + len(token)
	}
	b.WriteString(text[last:])
	return b.String()
}

// CompleteEnd replaces the trigger token ending text with replacement.
func (t *MacroTable) CompleteEnd(text, replacement string) string {
	offset, _, ok := TrailingTrigger(text)
	if !ok {
		return text
	}
	return text[:offset] + replacement
}

// Complete returns the macro names completing the trigger token that ends
// text, or an empty slice.
func (t *MacroTable) Complete(text string) []string {
	_, name, ok := TrailingTrigger(text)
	if !ok {
		return []string{}
	}
	return t.names.Complete(name)
}

// Names returns the macro names in the order they were added.
func (t *MacroTable) Names() []string {
	return t.names.Words()
}

// Snapshot returns a copy of the name to expansion map.
func (t *MacroTable) Snapshot() map[string]string {
	return maps.Clone(t.macros)
}

// Len returns the number of macros.
func (t *MacroTable) Len() int {
	return len(t.macros)
}

// Index exposes the name index, e.g. to subscribe to new names.
func (t *MacroTable) Index() *WordIndex {
	return t.names
}

// Stop ends change notification on the name index.
func (t *MacroTable) Stop() {
	t.names.Stop()
}
