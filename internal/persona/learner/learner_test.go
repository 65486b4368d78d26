package learner

import (
	"testing"
	"time"

	personadomain "maildigest-backend/internal/persona/domain"
)

func feedbackAt(action personadomain.FeedbackAction, category, sender string, at time.Time) personadomain.FeedbackEntry {
	return personadomain.FeedbackEntry{
		ID:        "fb-" + string(action) + at.String(),
		Action:    action,
		Category:  category,
		Sender:    sender,
		CreatedAt: at,
	}
}

func TestAddFeedbackDoesNotMutateInput(t *testing.T) {
	p := personadomain.Default("user-1")

	updated := AddFeedback(p, personadomain.FeedbackEntry{Action: personadomain.FeedbackLikedSummary})
	if len(p.FeedbackHistory) != 0 {
		t.Error("AddFeedback must not mutate the input persona")
	}
	if len(updated.FeedbackHistory) != 1 {
		t.Fatalf("updated history length = %d, want 1", len(updated.FeedbackHistory))
	}
	if updated.FeedbackHistory[0].ID == "" || updated.FeedbackHistory[0].CreatedAt.IsZero() {
		t.Error("AddFeedback must fill ID and CreatedAt")
	}
}

func TestOptimizeBelowThresholdIsNoop(t *testing.T) {
	p := personadomain.Default("user-1")
	now := time.Now()
	for i := 0; i < optimizeThreshold-1; i++ {
		p = AddFeedback(p, feedbackAt(personadomain.FeedbackLikedSummary, "work", "", now))
	}

	optimized := Optimize(p)
	if optimized.Metrics.LastOptimizedAt != nil {
		t.Error("below the threshold Optimize must not run")
	}
	if optimized.CategoryWeights["work"].Priority != p.CategoryWeights["work"].Priority {
		t.Error("below the threshold weights must not change")
	}
}

func TestOptimizeAdjustsCategoryWeights(t *testing.T) {
	p := personadomain.Default("user-1")
	now := time.Now()
	for i := 0; i < optimizeThreshold; i++ {
		p = AddFeedback(p, feedbackAt(personadomain.FeedbackDislikedSummary, "social", "", now))
	}

	before := p.CategoryWeights["social"].Priority
	optimized := Optimize(p)
	after := optimized.CategoryWeights["social"].Priority
	if after != clampPriority(before-optimizeThreshold) {
		t.Errorf("social priority = %d, want %d", after, clampPriority(before-optimizeThreshold))
	}
	if optimized.Metrics.LastOptimizedAt == nil {
		t.Error("Optimize must record the optimization time")
	}
}

func TestOptimizeClampsPriorities(t *testing.T) {
	p := personadomain.Default("user-1")
	p.CategoryWeights["social"] = personadomain.CategoryWeight{Priority: 1, Keywords: []string{"party"}}
	now := time.Now()
	// Far more negative feedback than the priority can absorb.
	for i := 0; i < 20; i++ {
		p = AddFeedback(p, feedbackAt(personadomain.FeedbackMarkedIrrelevant, "social", "", now))
	}

	optimized := Optimize(p)
	if got := optimized.CategoryWeights["social"].Priority; got != minPriority {
		t.Errorf("priority = %d, want clamp at %d", got, minPriority)
	}

	p2 := personadomain.Default("user-2")
	p2.CategoryWeights["work"] = personadomain.CategoryWeight{Priority: 9, Keywords: []string{"meeting"}}
	for i := 0; i < 20; i++ {
		p2 = AddFeedback(p2, feedbackAt(personadomain.FeedbackLikedSummary, "work", "", now))
	}
	optimized2 := Optimize(p2)
	if got := optimized2.CategoryWeights["work"].Priority; got != maxPriority {
		t.Errorf("priority = %d, want clamp at %d", got, maxPriority)
	}
}

func TestOptimizeManagesImportantContacts(t *testing.T) {
	p := personadomain.Default("user-1")
	now := time.Now()
	for i := 0; i < optimizeThreshold; i++ {
		p = AddFeedback(p, feedbackAt(personadomain.FeedbackMarkedImportant, "", "VIP@Example.com", now))
	}

	optimized := Optimize(p)
	if len(optimized.ImportantContacts) != 1 {
		t.Fatalf("contacts = %v, want exactly one entry despite repeats", optimized.ImportantContacts)
	}
	if optimized.ImportantContacts[0] != "vip@example.com" {
		t.Errorf("contact = %q, want normalized lowercase", optimized.ImportantContacts[0])
	}

	// Marking the same sender irrelevant removes it again.
	later := now.Add(time.Minute)
	for i := 0; i < optimizeThreshold; i++ {
		optimized = AddFeedback(optimized, feedbackAt(personadomain.FeedbackMarkedIrrelevant, "", "vip@example.com", later))
	}
	reoptimized := Optimize(optimized)
	if len(reoptimized.ImportantContacts) != 0 {
		t.Errorf("contacts = %v, want empty after removal", reoptimized.ImportantContacts)
	}
}

func TestOptimizeDisabledLearning(t *testing.T) {
	p := personadomain.Default("user-1")
	p.LearningEnabled = false
	now := time.Now()
	for i := 0; i < 10; i++ {
		p = AddFeedback(p, feedbackAt(personadomain.FeedbackLikedSummary, "work", "", now))
	}

	optimized := Optimize(p)
	if optimized.Metrics.LastOptimizedAt != nil {
		t.Error("Optimize must be a no-op when learning is disabled")
	}
}

func TestAverageRating(t *testing.T) {
	history := []personadomain.FeedbackEntry{
		{Action: personadomain.FeedbackLikedSummary},
		{Action: personadomain.FeedbackLikedSummary},
		{Action: personadomain.FeedbackDislikedSummary},
		{Action: personadomain.FeedbackChangedPriority}, // not rated
	}
	got := averageRating(history)
	want := 2.0 / 3.0 * 5
	if got != want {
		t.Errorf("averageRating = %v, want %v", got, want)
	}
	if averageRating(nil) != 0 {
		t.Error("averageRating of empty history must be 0")
	}
}
