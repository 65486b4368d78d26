package usecase

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	digestdomain "maildigest-backend/internal/digest/domain"
)

// CouldNotSummarize is the sentinel content returned for empty model output.
const CouldNotSummarize = "Could not summarize this content."

// StructuredSummary is the normalized result of parsing a single-email
// summarization response.
type StructuredSummary struct {
	Content     string
	ActionItems []string
	Priority    digestdomain.Priority
	Category    string
	Sentiment   digestdomain.Sentiment
}

// StructuredDaily is the normalized result of parsing a daily-digest
// response.
type StructuredDaily struct {
	Content     string
	ActionItems []digestdomain.ActionItem
	Highlights  []string
}

// Model output is not guaranteed to respect the requested schema, so parsing
// is two-tier: structured JSON extraction first, line heuristics second.
// Both parse functions are total; for any string input they return a result
// with Content defined.

// ParseSummary extracts a structured email summary from raw model output.
func ParseSummary(raw string) StructuredSummary {
	result := StructuredSummary{
		Priority:  digestdomain.PriorityMedium,
		Category:  "general",
		Sentiment: digestdomain.SentimentNeutral,
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		result.Content = CouldNotSummarize
		return result
	}

	if obj := extractJSONObject(trimmed); obj != "" {
		var loose struct {
			Content     string            `json:"content"`
			Summary     string            `json:"summary"`
			ActionItems []json.RawMessage `json:"action_items"`
			ActionAlt   []json.RawMessage `json:"actionItems"`
			Priority    string            `json:"priority"`
			Category    string            `json:"category"`
			Sentiment   string            `json:"sentiment"`
		}
		if err := json.Unmarshal([]byte(obj), &loose); err == nil {
			content := loose.Content
			if content == "" {
				content = loose.Summary
			}
			if content == "" {
				content = CouldNotSummarize
			}
			result.Content = content

			items := loose.ActionItems
			if len(items) == 0 {
				items = loose.ActionAlt
			}
			for _, rawItem := range items {
				if text := actionItemText(rawItem); text != "" {
					result.ActionItems = append(result.ActionItems, text)
				}
			}

			result.Priority = digestdomain.NormalizePriority(loose.Priority)
			result.Sentiment = digestdomain.NormalizeSentiment(loose.Sentiment)
			if loose.Category != "" {
				result.Category = loose.Category
			}
			return result
		}
		log.Printf("[ResponseParser] JSON block found but not decodable, falling back to line heuristics")
	}

	// Heuristic tier: treat leading lines as content, scan the rest for
	// action indicators and tone keywords.
	lines := nonEmptyLines(trimmed)
	contentLines := lines
	if len(contentLines) > 3 {
		contentLines = contentLines[:3]
	}
	result.Content = strings.Join(contentLines, " ")

	for _, line := range lines {
		if isActionLine(line) {
			result.ActionItems = append(result.ActionItems, strings.TrimLeft(line, "-*0123456789. \t"))
		}
	}

	lower := strings.ToLower(trimmed)
	if containsAny(lower, urgencyWords) {
		result.Priority = digestdomain.PriorityHigh
	} else if containsAny(lower, lowStakesWords) {
		result.Priority = digestdomain.PriorityLow
	}
	if containsAny(lower, positiveWords) {
		result.Sentiment = digestdomain.SentimentPositive
	} else if containsAny(lower, negativeWords) {
		result.Sentiment = digestdomain.SentimentNegative
	}

	return result
}

// ParseDaily extracts a structured daily digest from raw model output.
func ParseDaily(raw string) StructuredDaily {
	var result StructuredDaily

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		result.Content = CouldNotSummarize
		return result
	}

	if obj := extractJSONObject(trimmed); obj != "" {
		var loose struct {
			Content     string   `json:"content"`
			Summary     string   `json:"summary"`
			Highlights  []string `json:"highlights"`
			ActionItems []struct {
				Text          string `json:"text"`
				Task          string `json:"task"`
				Priority      string `json:"priority"`
				DueDate       string `json:"due_date"`
				SourceEmailID string `json:"source_email_id"`
			} `json:"action_items"`
		}
		if err := json.Unmarshal([]byte(obj), &loose); err == nil {
			content := loose.Content
			if content == "" {
				content = loose.Summary
			}
			if content == "" {
				content = CouldNotSummarize
			}
			result.Content = content
			result.Highlights = loose.Highlights

			for _, item := range loose.ActionItems {
				text := item.Text
				if text == "" {
					text = item.Task
				}
				if text == "" {
					continue
				}
				action := digestdomain.ActionItem{
					Text:          text,
					Priority:      digestdomain.NormalizePriority(item.Priority),
					SourceEmailID: item.SourceEmailID,
				}
				if item.DueDate != "" {
					action.DueDate = parseDueDate(item.DueDate)
				}
				result.ActionItems = append(result.ActionItems, action)
			}
			return result
		}
		log.Printf("[ResponseParser] JSON block found but not decodable, falling back to line heuristics")
	}

	lines := nonEmptyLines(trimmed)
	var contentLines []string
	for _, line := range lines {
		if isActionLine(line) {
			result.ActionItems = append(result.ActionItems, digestdomain.ActionItem{
				Text:     strings.TrimLeft(line, "-*0123456789. \t"),
				Priority: digestdomain.PriorityMedium,
			})
			continue
		}
		if len(contentLines) < 5 {
			contentLines = append(contentLines, line)
		}
	}
	result.Content = strings.Join(contentLines, " ")
	if result.Content == "" {
		result.Content = CouldNotSummarize
	}

	return result
}

// extractJSONObject locates a fenced or bare JSON object inside text.
// Returns "" when no object-like region exists.
func extractJSONObject(text string) string {
	// Strip markdown code fences if present
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// actionItemText accepts both plain-string and object-shaped action items.
func actionItemText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Text string `json:"text"`
		Task string `json:"task"`
		Item string `json:"item"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, v := range []string{obj.Text, obj.Task, obj.Item} {
			if v != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func parseDueDate(v string) *time.Time {
	formats := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	for _, format := range formats {
		if t, err := time.Parse(format, v); err == nil {
			return &t
		}
	}
	return nil
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

var actionPrefixes = []string{"- ", "* ", "todo:", "action:", "action item", "need to ", "follow up", "remember to "}

func isActionLine(line string) bool {
	lower := strings.ToLower(line)
	for _, prefix := range actionPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	// Numbered list entries ("1. do the thing")
	if len(lower) > 2 && lower[0] >= '0' && lower[0] <= '9' && (lower[1] == '.' || lower[1] == ')') {
		return true
	}
	return false
}

var (
	urgencyWords   = []string{"urgent", "asap", "immediately", "critical", "deadline", "overdue"}
	lowStakesWords = []string{"fyi", "newsletter", "no action needed", "promotional"}
	positiveWords  = []string{"congratulations", "great news", "thank you", "well done", "approved", "excited"}
	negativeWords  = []string{"unfortunately", "problem", "failed", "complaint", "cancelled", "rejected", "issue"}
)

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
