package ai

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 1},
		{strings.Repeat("x", 400), 100},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.text); got != c.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(c.text), got, c.want)
		}
	}
}

func TestTruncateToBudgetShortTextUntouched(t *testing.T) {
	text := "short enough"
	if got := TruncateToBudget(text, 100); got != text {
		t.Errorf("text under budget must pass through unchanged, got %q", got)
	}
}

func TestTruncateToBudgetKeepsPrefixAndSuffix(t *testing.T) {
	prefix := strings.Repeat("a", 5000)
	suffix := strings.Repeat("b", 5000)
	text := prefix + suffix

	got := TruncateToBudget(text, 100) // budget 100 tokens -> 320 chars kept

	if !strings.Contains(got, TruncationMarker) {
		t.Fatal("truncated text must contain the marker")
	}
	if !strings.HasPrefix(got, "a") {
		t.Error("truncation must keep the start of the text")
	}
	if !strings.HasSuffix(got, "b") {
		t.Error("truncation must keep the end of the text")
	}
	if len(got) >= len(text) {
		t.Error("truncated text must be shorter than the input")
	}

	// Prefix gets roughly twice the suffix's share.
	aCount := strings.Count(got, "a")
	bCount := strings.Count(got, "b")
	if aCount <= bCount {
		t.Errorf("prefix share (%d) must exceed suffix share (%d)", aCount, bCount)
	}
}

func TestTruncateToBudgetKeepsValidUTF8(t *testing.T) {
	// Multi-byte runes throughout, so naive byte cuts would split a rune.
	text := strings.Repeat("日本語のメール本文です。", 500)

	for _, budget := range []int{10, 50, 100, 333} {
		got := TruncateToBudget(text, budget)
		if !utf8.ValidString(got) {
			t.Errorf("budget %d produced invalid UTF-8", budget)
		}
		if !strings.Contains(got, TruncationMarker) {
			t.Errorf("budget %d must truncate this input", budget)
		}
	}
}

func TestTruncateToBudgetStaysUnderBudget(t *testing.T) {
	text := strings.Repeat("x", 100000)
	budget := 500

	got := TruncateToBudget(text, budget)
	if est := EstimateTokens(got); est > budget {
		t.Errorf("estimated tokens after truncation = %d, exceeds budget %d", est, budget)
	}
}
