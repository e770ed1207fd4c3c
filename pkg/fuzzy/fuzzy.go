package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// LevenshteinDistance calculates the edit distance between two strings:
// the number of single-character insertions, deletions or substitutions
// needed to turn one into the other.
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(normalizeString(s1))
	r2 := []rune(normalizeString(s2))
	m, n := len(r1), len(r2)

	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Two rolling rows instead of the full matrix.
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// Threshold returns the typo tolerance for a query of the given length.
func Threshold(query string) int {
	n := len([]rune(query))
	switch {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	default:
		return 2
	}
}

// FuzzyMatch checks if query fuzzy-matches text within a given threshold
// threshold is the maximum allowed edit distance
func FuzzyMatch(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)
	if query == "" {
		return false
	}

	if strings.Contains(text, query) {
		return true
	}

	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) {
			return true
		}
		if LevenshteinDistance(query, word) <= threshold {
			return true
		}
	}

	return false
}

// Field is one searchable piece of a document with its weight.
type Field struct {
	Text   string
	Weight float64
}

// CalculateRelevanceScore scores how relevant the fields are to query.
// Higher score = more relevant. A zero score means no match.
func CalculateRelevanceScore(query string, fields ...Field) float64 {
	query = normalizeString(query)
	if query == "" {
		return 0
	}
	terms := strings.Fields(query)

	score := 0.0
	for _, f := range fields {
		text := normalizeString(f.Text)
		if text == "" {
			continue
		}

		// Whole-phrase hit (highest weight)
		if strings.Contains(text, query) {
			score += 100 * f.Weight
			if containsWord(text, query) {
				score += 50 * f.Weight
			}
			continue
		}

		// Per-term fuzzy hits
		words := strings.Fields(text)
		for _, term := range terms {
			threshold := Threshold(term)
			best := 0.0
			for _, word := range words {
				var s float64
				switch {
				case word == term:
					s = 60
				case strings.HasPrefix(word, term):
					s = 40
				default:
					if dist := LevenshteinDistance(term, word); dist <= threshold {
						s = 50 - float64(dist)*15
					}
				}
				if s > best {
					best = s
				}
			}
			score += best * f.Weight
		}
	}

	return score
}

// normalizeString lowercases, strips accents and collapses whitespace.
func normalizeString(s string) string {
	s = removeAccents(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// containsWord checks if text contains query as a whole word
func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}

// removeAccents decomposes s and drops nonspacing marks, so "résumé"
// matches "resume". đ has no decomposition and is mapped by hand.
func removeAccents(s string) string {
	var result strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if r == 'đ' {
			r = 'd'
		}
		result.WriteRune(r)
	}
	return result.String()
}
