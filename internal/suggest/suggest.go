// Package suggest offers "did you mean" hints for mistyped keys and values
// using edit distance.
package suggest

import (
	"sort"
	"strings"
)

// distance is the Levenshtein distance between a and b, comparing bytes.
func distance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Closest returns up to three candidates near input, best first. Matching
// ignores case. Candidates more than max(2, len(input)/3) edits away are
// dropped, except that a candidate containing input always qualifies.
func Closest(input string, candidates []string) []string {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return nil
	}
	limit := max(2, len(in)/3)

	type scored struct {
		value string
		dist  int
	}
	var hits []scored
	for _, c := range candidates {
		lc := strings.ToLower(c)
		d := distance(in, lc)
		if d <= limit || strings.Contains(lc, in) {
			hits = append(hits, scored{c, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	var out []string
	for i := 0; i < len(hits) && i < 3; i++ {
		out = append(out, hits[i].value)
	}
	return out
}

// Hint formats Closest as " (did you mean a or b?)", or "" when nothing is
// close.
func Hint(input string, candidates []string) string {
	matches := Closest(input, candidates)
	switch len(matches) {
	case 0:
		return ""
	case 1:
		return " (did you mean " + matches[0] + "?)"
	default:
		return " (did you mean " + strings.Join(matches[:len(matches)-1], ", ") + " or " + matches[len(matches)-1] + "?)"
	}
}
