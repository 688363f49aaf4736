// Package fuzzymatch ranks short identifiers, such as macro names, against
// a query whose characters must appear in order.
package fuzzymatch

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
)

// Result is one candidate that matched.
type Result struct {
	Text    string
	Score   int
	Indices []int // rune positions of matched characters
	Index   int   // position in the candidate slice
}

// Matcher scores candidates against a query.
type Matcher struct {
	caseSensitive bool
}

func NewMatcher(caseSensitive bool) *Matcher {
	return &Matcher{caseSensitive: caseSensitive}
}

// Match returns the candidates containing every rune of query in order,
// best first. Equal scores keep their input order. An empty query matches
// everything with score 0.
func (m *Matcher) Match(query string, candidates []string) []Result {
	results := make([]Result, 0, len(candidates))
	for i, candidate := range candidates {
		if r, ok := m.score(query, candidate); ok {
			r.Index = i
			results = append(results, r)
		}
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return results
}

func (m *Matcher) score(query, candidate string) (Result, bool) {
	if query == "" {
		return Result{Text: candidate, Indices: []int{}}, true
	}

	q, c := []rune(query), []rune(candidate)
	if !m.caseSensitive {
		q = []rune(strings.ToLower(query))
		c = []rune(strings.ToLower(candidate))
	}

	var indices []int
	score := 0
	for i, r := range c {
		if len(indices) == len(q) {
			break
		}
		if r != q[len(indices)] {
			continue
		}

		switch {
		case len(indices) == 0 && i == 0:
			score += 100
		case len(indices) == 0:
			score += 50
		case indices[len(indices)-1] == i-1:
			score += 50
		default:
			score += 20
		}
		indices = append(indices, i)
	}
	if len(indices) < len(q) {
		return Result{}, false
	}

	// shorter candidates win ties
	score += (1000 - len(c)) / 10
	score += boundaryBonus([]rune(candidate), indices)

	return Result{Text: candidate, Score: score, Indices: indices}, true
}

func boundaryBonus(candidate []rune, indices []int) int {
	bonus := 0
	for _, idx := range indices {
		if idx == 0 {
			bonus += 10
			continue
		}
		prev := candidate[idx-1]
		switch {
		case unicode.IsSpace(prev) || prev == '_' || prev == '-' || prev == '/' || prev == '.':
			bonus += 15
		case unicode.IsLower(prev) && unicode.IsUpper(candidate[idx]):
			bonus += 10
		}
	}
	return bonus
}

// Highlight renders r.Text run by run: matched runes go through matched, the
// rest through unmatched.
func Highlight(r Result, matched, unmatched func(string) string) string {
	if len(r.Indices) == 0 {
		return unmatched(r.Text)
	}

	hit := make(map[int]bool, len(r.Indices))
	for _, idx := range r.Indices {
		hit[idx] = true
	}

	var sb strings.Builder
	runes := []rune(r.Text)
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && hit[i] == hit[start] {
			continue
		}
		if hit[start] {
			sb.WriteString(matched(string(runes[start:i])))
		} else {
			sb.WriteString(unmatched(string(runes[start:i])))
		}
		start = i
	}
	return sb.String()
}
