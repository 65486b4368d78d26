package learner

import (
	"strings"
	"time"

	personadomain "maildigest-backend/internal/persona/domain"

	"github.com/google/uuid"
)

const (
	// New feedback entries required since the last optimization before
	// weights are adjusted again.
	optimizeThreshold = 5

	minPriority = 0
	maxPriority = 10
)

// AddFeedback appends an entry to the persona's feedback history and returns
// the updated copy. The input persona is not modified.
func AddFeedback(p personadomain.Persona, entry personadomain.FeedbackEntry) personadomain.Persona {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	updated := p.Clone()
	updated.FeedbackHistory = append(updated.FeedbackHistory, entry)
	return updated
}

// Optimize re-weights the persona from accumulated feedback. It is safe to
// call repeatedly: weights only change when learning is enabled and enough
// feedback arrived since Metrics.LastOptimizedAt. All adjustments are
// clamped to [0, 10] so repeated feedback can never run a weight away or
// flip its sign.
func Optimize(p personadomain.Persona) personadomain.Persona {
	if !p.LearningEnabled {
		return p
	}

	pending := pendingFeedback(&p)
	if len(pending) < optimizeThreshold {
		return p
	}

	updated := p.Clone()
	for _, fb := range pending {
		delta := 0
		switch fb.Action {
		case personadomain.FeedbackLikedSummary, personadomain.FeedbackMarkedImportant:
			delta = 1
		case personadomain.FeedbackDislikedSummary, personadomain.FeedbackMarkedIrrelevant:
			delta = -1
		default:
			continue
		}

		if fb.Category != "" && updated.CategoryWeights != nil {
			if w, ok := updated.CategoryWeights[fb.Category]; ok {
				w.Priority = clampPriority(w.Priority + delta)
				updated.CategoryWeights[fb.Category] = w
			}
		}

		switch fb.Action {
		case personadomain.FeedbackMarkedImportant:
			updated.ImportantContacts = addContact(updated.ImportantContacts, fb.Sender)
		case personadomain.FeedbackMarkedIrrelevant:
			updated.ImportantContacts = removeContact(updated.ImportantContacts, fb.Sender)
		}
	}

	now := time.Now()
	updated.Metrics.LastOptimizedAt = &now
	updated.Metrics.AverageRating = averageRating(updated.FeedbackHistory)
	return updated
}

// pendingFeedback returns entries newer than the last optimization.
func pendingFeedback(p *personadomain.Persona) []personadomain.FeedbackEntry {
	since := p.Metrics.LastOptimizedAt
	var pending []personadomain.FeedbackEntry
	for _, fb := range p.FeedbackHistory {
		if since == nil || fb.CreatedAt.After(*since) {
			pending = append(pending, fb)
		}
	}
	return pending
}

func clampPriority(v int) int {
	if v < minPriority {
		return minPriority
	}
	if v > maxPriority {
		return maxPriority
	}
	return v
}

func addContact(contacts []string, sender string) []string {
	sender = strings.ToLower(strings.TrimSpace(sender))
	if sender == "" {
		return contacts
	}
	for _, c := range contacts {
		if strings.ToLower(strings.TrimSpace(c)) == sender {
			return contacts
		}
	}
	return append(contacts, sender)
}

func removeContact(contacts []string, sender string) []string {
	sender = strings.ToLower(strings.TrimSpace(sender))
	if sender == "" {
		return contacts
	}
	out := contacts[:0]
	for _, c := range contacts {
		if strings.ToLower(strings.TrimSpace(c)) != sender {
			out = append(out, c)
		}
	}
	return out
}

// averageRating maps liked/disliked feedback to a 0-5 scale.
func averageRating(history []personadomain.FeedbackEntry) float64 {
	liked, rated := 0, 0
	for _, fb := range history {
		switch fb.Action {
		case personadomain.FeedbackLikedSummary:
			liked++
			rated++
		case personadomain.FeedbackDislikedSummary:
			rated++
		}
	}
	if rated == 0 {
		return 0
	}
	return float64(liked) / float64(rated) * 5
}
