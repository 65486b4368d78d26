package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FeedbackAction represents a user reaction to digest output
type FeedbackAction string

const (
	FeedbackLikedSummary     FeedbackAction = "liked_summary"
	FeedbackDislikedSummary  FeedbackAction = "disliked_summary"
	FeedbackChangedPriority  FeedbackAction = "changed_priority"
	FeedbackMarkedIrrelevant FeedbackAction = "marked_irrelevant"
	FeedbackMarkedImportant  FeedbackAction = "marked_important"
)

// SummaryStyle and SummaryLength control the tone and size of generated digests.
const (
	StyleConcise  = "concise"
	StyleDetailed = "detailed"
	StyleBullets  = "bullet_points"

	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

// FeedbackEntry is immutable once created. Category and Sender are captured
// at feedback time so the learner can adjust weights without refetching mail.
type FeedbackEntry struct {
	ID        string         `json:"id"`
	Action    FeedbackAction `json:"action"`
	EmailID   string         `json:"email_id,omitempty"`
	SummaryID string         `json:"summary_id,omitempty"`
	Category  string         `json:"category,omitempty"`
	Sender    string         `json:"sender,omitempty"`
	Comment   string         `json:"comment,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CategoryWeight configures one category of the persona's weight table.
type CategoryWeight struct {
	Priority int      `json:"priority"` // non-negative
	Keywords []string `json:"keywords"`
}

// Metrics tracks aggregate persona statistics.
type Metrics struct {
	TotalSummariesGenerated int        `json:"total_summaries_generated"`
	AverageRating           float64    `json:"average_rating"`
	LastOptimizedAt         *time.Time `json:"last_optimized_at,omitempty"`
}

// Persona is the per-user profile of what email content matters and how to
// summarize it. At most one persona exists per user. Code paths treat it as
// an immutable value: updates go through Clone and are persisted whole.
type Persona struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"uniqueIndex;not null"`

	Role              string                    `json:"role,omitempty"`
	ImportantContacts []string                  `json:"important_contacts" gorm:"serializer:json"`
	ImportantDomains  []string                  `json:"important_domains" gorm:"serializer:json"`
	Keywords          []string                  `json:"keywords" gorm:"serializer:json"`
	Interests         []string                  `json:"interests" gorm:"serializer:json"`
	ExcludePatterns   []string                  `json:"exclude_patterns" gorm:"serializer:json"`
	CategoryWeights   map[string]CategoryWeight `json:"category_weights" gorm:"serializer:json"`

	SummaryStyle  string   `json:"summary_style" gorm:"default:concise"`
	SummaryLength string   `json:"summary_length" gorm:"default:medium"`
	FocusAreas    []string `json:"focus_areas" gorm:"serializer:json"`

	MinimumEmailLength  int    `json:"minimum_email_length" gorm:"default:100"`
	MaxEmailsPerSummary int    `json:"max_emails_per_summary" gorm:"default:10"`
	DailySummaryTime    string `json:"daily_summary_time" gorm:"default:08:00"` // local HH:MM
	Timezone            string `json:"timezone" gorm:"default:UTC"`

	LearningEnabled bool            `json:"learning_enabled" gorm:"default:true"`
	FeedbackHistory []FeedbackEntry `json:"feedback_history" gorm:"serializer:json"`
	Metrics         Metrics         `json:"metrics" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Persona) TableName() string {
	return "personas"
}

var summaryTimeRe = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// SummaryHour parses DailySummaryTime ("HH:MM") and returns the local hour.
// Returns false for a malformed value.
func (p *Persona) SummaryHour() (int, bool) {
	if !summaryTimeRe.MatchString(p.DailySummaryTime) {
		return 0, false
	}
	parts := strings.SplitN(p.DailySummaryTime, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	return hour, true
}

// Clone returns a deep copy. Slices and maps are duplicated so the copy can
// be modified without touching the original.
func (p Persona) Clone() Persona {
	c := p
	c.ImportantContacts = append([]string(nil), p.ImportantContacts...)
	c.ImportantDomains = append([]string(nil), p.ImportantDomains...)
	c.Keywords = append([]string(nil), p.Keywords...)
	c.Interests = append([]string(nil), p.Interests...)
	c.ExcludePatterns = append([]string(nil), p.ExcludePatterns...)
	c.FocusAreas = append([]string(nil), p.FocusAreas...)
	c.FeedbackHistory = append([]FeedbackEntry(nil), p.FeedbackHistory...)
	if p.CategoryWeights != nil {
		c.CategoryWeights = make(map[string]CategoryWeight, len(p.CategoryWeights))
		for name, w := range p.CategoryWeights {
			w.Keywords = append([]string(nil), w.Keywords...)
			c.CategoryWeights[name] = w
		}
	}
	if p.Metrics.LastOptimizedAt != nil {
		t := *p.Metrics.LastOptimizedAt
		c.Metrics.LastOptimizedAt = &t
	}
	return c
}

// Default returns the persona created for users who never configured one.
func Default(userID string) Persona {
	return Persona{
		UserID: userID,
		CategoryWeights: map[string]CategoryWeight{
			"work":    {Priority: 5, Keywords: []string{"meeting", "project", "deadline", "report"}},
			"finance": {Priority: 4, Keywords: []string{"invoice", "payment", "receipt", "billing"}},
			"travel":  {Priority: 3, Keywords: []string{"flight", "booking", "itinerary", "reservation"}},
			"social":  {Priority: 1, Keywords: []string{"invitation", "event", "party"}},
		},
		SummaryStyle:        StyleConcise,
		SummaryLength:       LengthMedium,
		MinimumEmailLength:  100,
		MaxEmailsPerSummary: 10,
		DailySummaryTime:    "08:00",
		Timezone:            "UTC",
		LearningEnabled:     true,
	}
}
