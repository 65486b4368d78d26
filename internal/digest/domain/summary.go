package domain

import "time"

// Priority levels for summarized emails and action items
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Sentiment of a summarized email
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Summary types stored in daily_summaries
const (
	SummaryTypeDaily  = "daily"
	SummaryTypeManual = "manual"
)

// NormalizePriority clamps a free-form priority value to the allowed enum,
// substituting medium for anything invalid or missing.
func NormalizePriority(v string) Priority {
	switch Priority(v) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(v)
	default:
		return PriorityMedium
	}
}

// NormalizeSentiment clamps a free-form sentiment value to the allowed enum,
// substituting neutral for anything invalid or missing.
func NormalizeSentiment(v string) Sentiment {
	switch Sentiment(v) {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return Sentiment(v)
	default:
		return SentimentNeutral
	}
}

// EmailSummary stores the AI synthesis of a single email. Immutable once
// produced.
type EmailSummary struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"index:idx_summary_user_email;not null"`
	EmailID     string    `json:"email_id" gorm:"index:idx_summary_user_email;not null"`
	Subject     string    `json:"subject"`
	Content     string    `json:"content" gorm:"type:text"`
	ActionItems []string  `json:"action_items" gorm:"serializer:json"`
	Priority    Priority  `json:"priority" gorm:"default:medium"`
	Category    string    `json:"category"`
	Sentiment   Sentiment `json:"sentiment" gorm:"default:neutral"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (EmailSummary) TableName() string {
	return "email_summaries"
}

// ActionItem is one extracted to-do inside a daily digest.
type ActionItem struct {
	Text          string     `json:"text"`
	Priority      Priority   `json:"priority"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	SourceEmailID string     `json:"source_email_id,omitempty"`
}

// DailySummary is the aggregated digest of one user's prioritized emails for
// one cycle. Immutable once produced; at most one per user per dedup window.
type DailySummary struct {
	ID                 string         `json:"id" gorm:"primaryKey"`
	UserID             string         `json:"user_id" gorm:"index;not null"`
	SummaryType        string         `json:"summary_type" gorm:"default:daily"`
	Content            string         `json:"content" gorm:"type:text"`
	ActionItems        []ActionItem   `json:"action_items" gorm:"serializer:json"`
	Highlights         []string       `json:"highlights" gorm:"serializer:json"`
	CategoriesOverview map[string]int `json:"categories_overview" gorm:"serializer:json"`
	EmailCount         int            `json:"email_count"`
	GeneratedAt        time.Time      `json:"generated_at"`
}

// TableName specifies the table name for GORM
func (DailySummary) TableName() string {
	return "daily_summaries"
}

// CycleStats aggregates per-tick outcomes. Transient, never persisted.
type CycleStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
