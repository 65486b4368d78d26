package fuzzy

import (
	"sort"
	"strings"
)

// Lexical relevance ranking over stored summaries. Used as the retrieval
// fallback for question answering when the vector store is not configured.

// Candidate is one rankable document.
type Candidate struct {
	ID      string
	Subject string
	Content string
}

// LevenshteinDistance calculates the edit distance between two strings
func LevenshteinDistance(s1, s2 string) int {
	s1 = normalizeString(s1)
	s2 = normalizeString(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}

	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			d[i][j] = min3(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}

	return d[m][n]
}

// CalculateRelevanceScore scores how relevant a document is to a query.
// Higher score = more relevant. Subject matches outweigh content matches.
func CalculateRelevanceScore(query, subject, content string) float64 {
	score := 0.0
	subjectNorm := normalizeString(subject)
	contentNorm := normalizeString(content)

	for _, term := range strings.Fields(normalizeString(query)) {
		if len(term) < 2 {
			continue
		}

		if containsWord(subjectNorm, term) {
			score += 100.0
		} else if strings.Contains(subjectNorm, term) {
			score += 60.0
		} else {
			// Fuzzy match against subject words for typo tolerance
			for _, word := range strings.Fields(subjectNorm) {
				dist := LevenshteinDistance(term, word)
				if dist <= typoThreshold(term) {
					score += 50.0 - float64(dist)*15
					break
				}
				if strings.HasPrefix(word, term) {
					score += 40.0
					break
				}
			}
		}

		if containsWord(contentNorm, term) {
			score += 30.0
		} else if strings.Contains(contentNorm, term) {
			score += 15.0
		}
	}

	return score
}

// RankByRelevance sorts candidates by relevance to the query and returns the
// top `limit` that scored above zero.
func RankByRelevance(query string, candidates []Candidate, limit int) []Candidate {
	type scored struct {
		candidate Candidate
		score     float64
	}

	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		s := CalculateRelevanceScore(query, c.Subject, c.Content)
		if s > 0 {
			ranked = append(ranked, scored{c, s})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := make([]Candidate, 0, len(ranked))
	for _, r := range ranked {
		result = append(result, r.candidate)
	}
	return result
}

// Helper functions

// typoThreshold scales tolerated edit distance with term length
func typoThreshold(term string) int {
	switch {
	case len(term) <= 3:
		return 1
	case len(term) >= 8:
		return 3
	default:
		return 2
	}
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// normalizeString converts to lowercase and collapses whitespace
func normalizeString(s string) string {
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	return s
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
