package completion

import (
	"iter"
	"regexp"
	"strings"
)

// Trigger marks the start of a macro reference in free text.
const Trigger = "/"

var (
	// a maximal run of word or slash characters; it is a trigger token only
	// when it starts with the trigger, so example.com/en is left alone
	runPattern = regexp.MustCompile(`[\w/]+`)
	// a trigger and word run that ends the text
	trailingPattern = regexp.MustCompile(`/(\w+)$`)
	nonWordPattern  = regexp.MustCompile(`\W+`)
)

// Triggers yields the byte offset and text of every trigger token in text,
// left to right. A trigger inside a word, as in a/peko or a URL path, does
// not start a token. The sequence is computed lazily and can be ranged over any
// number of times.
func Triggers(text string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		pos := 0
		for pos < len(text) {
			loc := runPattern.FindStringIndex(text[pos:])
			if loc == nil {
				return
			}
			start, end := pos+loc[0], pos+loc[1]
			pos = end

			run := text[start:end]
			if len(run) == len(Trigger) || !strings.HasPrefix(run, Trigger) {
				continue
			}
			if !yield(start, run) {
				return
			}
		}
	}
}

// TrailingTrigger reports the trigger token that ends text, if any. offset
// is where the trigger character starts and name is the word run after it.
func TrailingTrigger(text string) (offset int, name string, ok bool) {
	m := trailingPattern.FindStringSubmatchIndex(text)
	if m == nil {
		return 0, "", false
	}
	return m[0], text[m[2]:m[3]], true
}

// SplitWords splits text on runs of non-word characters. Leading or trailing
// separators produce empty strings at the ends, as strings.Split would.
func SplitWords(text string) []string {
	return nonWordPattern.Split(text, -1)
}
