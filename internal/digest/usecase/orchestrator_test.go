package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	digestdomain "maildigest-backend/internal/digest/domain"
	emaildomain "maildigest-backend/internal/email/domain"
	personadomain "maildigest-backend/internal/persona/domain"
	"maildigest-backend/pkg/ai"
)

// mockProvider returns canned responses and records what it was asked.
type mockProvider struct {
	response    string
	err         error
	lastRequest ai.CompletionRequest
	calls       int
}

func (m *mockProvider) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	m.lastRequest = req
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockProvider) Name() string { return "mock" }

func testEmail() *emaildomain.EmailRecord {
	return &emaildomain.EmailRecord{
		ID:         "msg-1",
		Subject:    "Quarterly numbers",
		From:       "cfo@company.com",
		Body:       "The quarterly numbers are attached. Please review before Friday.",
		ReceivedAt: time.Now(),
	}
}

func TestSummarizeEmailParsesProviderOutput(t *testing.T) {
	provider := &mockProvider{response: `{"content": "CFO shared Q numbers.", "priority": "high", "category": "finance", "sentiment": "neutral"}`}
	s := NewSummarizer(provider)
	persona := personadomain.Default("user-1")

	summary, err := s.SummarizeEmail(context.Background(), testEmail(), &persona)
	if err != nil {
		t.Fatalf("SummarizeEmail returned error: %v", err)
	}
	if summary.EmailID != "msg-1" || summary.Subject != "Quarterly numbers" {
		t.Errorf("summary identity = %q/%q", summary.EmailID, summary.Subject)
	}
	if summary.Content != "CFO shared Q numbers." {
		t.Errorf("Content = %q", summary.Content)
	}
	if summary.Priority != digestdomain.PriorityHigh {
		t.Errorf("Priority = %q, want high", summary.Priority)
	}
	if provider.lastRequest.System == "" {
		t.Error("provider must receive a system instruction")
	}
	if !strings.Contains(provider.lastRequest.Prompt, "Quarterly numbers") {
		t.Error("prompt must carry the email subject")
	}
}

func TestSummarizeEmailPropagatesProviderError(t *testing.T) {
	provErr := &ai.ProviderError{Provider: "mock", Kind: ai.ErrRateLimited, StatusCode: 429}
	s := NewSummarizer(&mockProvider{err: provErr})
	persona := personadomain.Default("user-1")

	_, err := s.SummarizeEmail(context.Background(), testEmail(), &persona)
	if err == nil {
		t.Fatal("expected error")
	}
	if ai.KindOf(err) != ai.ErrRateLimited {
		t.Errorf("KindOf = %q, want rate_limited", ai.KindOf(err))
	}
}

func TestSummarizeDailyEmptyInput(t *testing.T) {
	provider := &mockProvider{response: "should not be called"}
	s := NewSummarizer(provider)
	persona := personadomain.Default("user-1")

	daily, err := s.SummarizeDaily(context.Background(), nil, &persona)
	if err != nil {
		t.Fatalf("SummarizeDaily returned error: %v", err)
	}
	if daily.Content != NoEmailsContent {
		t.Errorf("Content = %q, want the no-emails sentinel", daily.Content)
	}
	if daily.EmailCount != 0 || len(daily.ActionItems) != 0 {
		t.Errorf("empty digest must have no emails and no actions, got %+v", daily)
	}
	if provider.calls != 0 {
		t.Error("empty input must not invoke the provider")
	}
}

func TestSummarizeDailyAggregatesCategories(t *testing.T) {
	provider := &mockProvider{response: `{"content": "Two work items, one invoice.", "highlights": ["Invoice due"]}`}
	s := NewSummarizer(provider)
	persona := personadomain.Default("user-1")

	summaries := []*digestdomain.EmailSummary{
		{EmailID: "a", Category: "work", Content: "standup moved"},
		{EmailID: "b", Category: "work", Content: "deck review"},
		{EmailID: "c", Category: "finance", Content: "invoice #42"},
	}

	daily, err := s.SummarizeDaily(context.Background(), summaries, &persona)
	if err != nil {
		t.Fatalf("SummarizeDaily returned error: %v", err)
	}
	if daily.EmailCount != 3 {
		t.Errorf("EmailCount = %d, want 3", daily.EmailCount)
	}
	if daily.CategoriesOverview["work"] != 2 || daily.CategoriesOverview["finance"] != 1 {
		t.Errorf("CategoriesOverview = %v", daily.CategoriesOverview)
	}
	if daily.SummaryType != digestdomain.SummaryTypeDaily {
		t.Errorf("SummaryType = %q, want daily", daily.SummaryType)
	}
}

func TestAnswerUsesContextItems(t *testing.T) {
	provider := &mockProvider{response: "The invoice is due on Friday."}
	s := NewSummarizer(provider)
	persona := personadomain.Default("user-1")

	answer, err := s.Answer(context.Background(), "When is the invoice due?", []string{"Subject: Invoice\n\nDue Friday."}, &persona)
	if err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}
	if answer != "The invoice is due on Friday." {
		t.Errorf("answer = %q", answer)
	}
	if !strings.Contains(provider.lastRequest.Prompt, "Due Friday.") {
		t.Error("prompt must include the retrieved context")
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	s := NewSummarizer(&mockProvider{response: "x"})
	persona := personadomain.Default("user-1")

	if _, err := s.Answer(context.Background(), "   ", nil, &persona); err == nil {
		t.Error("empty question must be rejected")
	}
}

func TestBuildInstructionBlockOptionalFields(t *testing.T) {
	if got := buildInstructionBlock(nil); got == "" {
		t.Error("nil persona must still produce a base instruction")
	}

	p := personadomain.Default("user-1")
	p.Role = "product manager"
	p.Interests = []string{"roadmaps"}
	p.SummaryStyle = personadomain.StyleBullets

	got := buildInstructionBlock(&p)
	if !strings.Contains(got, "product manager") || !strings.Contains(got, "roadmaps") {
		t.Errorf("instruction block missing persona fields: %q", got)
	}
	if !strings.Contains(got, "bullet") {
		t.Errorf("instruction block missing style hint: %q", got)
	}
}
