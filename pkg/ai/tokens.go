package ai

import "unicode/utf8"

// Token counting uses a characters-per-token ratio. This is a rough
// approximation, good enough for triggering truncation thresholds but not
// for exact billing.
const charsPerToken = 4

// TruncationMarker is inserted between the kept prefix and suffix of a
// truncated text so that dropped content is never silent.
const TruncationMarker = "\n\n[... truncated ...]\n\n"

// EstimateTokens estimates the token count of text.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}

// TruncateToBudget returns text unchanged while its estimated token count
// stays within 80% of budget. Otherwise it keeps a prefix and a suffix
// slice with TruncationMarker in between.
func TruncateToBudget(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	maxChars := budget * charsPerToken * 80 / 100
	if len(text) <= maxChars {
		return text
	}

	keep := maxChars - len(TruncationMarker)
	if keep < charsPerToken*2 {
		keep = charsPerToken * 2
	}
	// Keep more of the head than the tail: openings carry the intent,
	// closings carry signatures and deadlines.
	prefix := keep * 2 / 3
	suffix := keep - prefix

	// Back the cut points off to rune boundaries so the result stays valid
	// UTF-8.
	for prefix > 0 && !utf8.RuneStart(text[prefix]) {
		prefix--
	}
	suffixStart := len(text) - suffix
	for suffixStart < len(text) && !utf8.RuneStart(text[suffixStart]) {
		suffixStart++
	}
	return text[:prefix] + TruncationMarker + text[suffixStart:]
}
