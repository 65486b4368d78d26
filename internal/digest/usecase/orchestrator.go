package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	digestdomain "maildigest-backend/internal/digest/domain"
	emaildomain "maildigest-backend/internal/email/domain"
	personadomain "maildigest-backend/internal/persona/domain"
	"maildigest-backend/pkg/ai"
)

// NoEmailsContent is the sentinel digest content for an empty cycle.
const NoEmailsContent = "No emails matched your preferences for this period."

// Per-call ceiling on provider latency. A hung provider call fails one unit
// of work instead of stalling the whole cycle.
const summarizeTimeout = 60 * time.Second

// Summarizer orchestrates prompt assembly, provider invocation and response
// parsing for the three summarization use cases. It does not retry; provider
// errors surface as one typed *ai.ProviderError.
type Summarizer interface {
	SummarizeEmail(ctx context.Context, email *emaildomain.EmailRecord, p *personadomain.Persona) (*digestdomain.EmailSummary, error)
	SummarizeDaily(ctx context.Context, summaries []*digestdomain.EmailSummary, p *personadomain.Persona) (*digestdomain.DailySummary, error)
	Answer(ctx context.Context, question string, contextItems []string, p *personadomain.Persona) (string, error)
}

type summarizer struct {
	provider ai.Provider
}

// NewSummarizer creates a new Summarizer backed by the given provider
func NewSummarizer(provider ai.Provider) Summarizer {
	return &summarizer{provider: provider}
}

func (s *summarizer) SummarizeEmail(ctx context.Context, email *emaildomain.EmailRecord, p *personadomain.Persona) (*digestdomain.EmailSummary, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("AI provider not configured")
	}

	profile := ai.ProfileFor(ai.UseCaseFast)

	body := email.Body
	if strings.TrimSpace(body) == "" {
		body = email.Snippet
	}
	body = ai.TruncateToBudget(body, profile.InputBudget)

	ctx, cancel := context.WithTimeout(ctx, summarizeTimeout)
	defer cancel()

	raw, err := s.provider.Complete(ctx, ai.CompletionRequest{
		System:      buildInstructionBlock(p),
		Prompt:      emailPrompt(email, body),
		MaxTokens:   profile.MaxOutputTokens,
		Temperature: profile.Temperature,
	})
	if err != nil {
		return nil, err
	}

	parsed := ParseSummary(raw)
	return &digestdomain.EmailSummary{
		EmailID:     email.ID,
		Subject:     email.Subject,
		Content:     parsed.Content,
		ActionItems: parsed.ActionItems,
		Priority:    parsed.Priority,
		Category:    parsed.Category,
		Sentiment:   parsed.Sentiment,
		CreatedAt:   time.Now(),
	}, nil
}

func (s *summarizer) SummarizeDaily(ctx context.Context, summaries []*digestdomain.EmailSummary, p *personadomain.Persona) (*digestdomain.DailySummary, error) {
	// Zero input is a defined outcome, not an error.
	if len(summaries) == 0 {
		return &digestdomain.DailySummary{
			SummaryType:        digestdomain.SummaryTypeDaily,
			Content:            NoEmailsContent,
			ActionItems:        []digestdomain.ActionItem{},
			CategoriesOverview: map[string]int{},
			EmailCount:         0,
			GeneratedAt:        time.Now(),
		}, nil
	}

	if s.provider == nil {
		return nil, fmt.Errorf("AI provider not configured")
	}

	// Category counts are aggregated here, independent of model output.
	categories := make(map[string]int, len(summaries))
	for _, es := range summaries {
		categories[es.Category]++
	}

	profile := ai.ProfileFor(ai.UseCaseDetailed)

	var sb strings.Builder
	for _, es := range summaries {
		fmt.Fprintf(&sb, "[%s] (%s, %s priority) %s\n", es.EmailID, es.Category, es.Priority, es.Content)
		for _, item := range es.ActionItems {
			fmt.Fprintf(&sb, "  action: %s\n", item)
		}
	}
	input := ai.TruncateToBudget(sb.String(), profile.InputBudget)

	ctx, cancel := context.WithTimeout(ctx, summarizeTimeout)
	defer cancel()

	raw, err := s.provider.Complete(ctx, ai.CompletionRequest{
		System:      buildInstructionBlock(p),
		Prompt:      dailyPrompt(summaries, input),
		MaxTokens:   profile.MaxOutputTokens,
		Temperature: profile.Temperature,
	})
	if err != nil {
		return nil, err
	}

	parsed := ParseDaily(raw)
	actionItems := parsed.ActionItems
	if actionItems == nil {
		actionItems = []digestdomain.ActionItem{}
	}

	return &digestdomain.DailySummary{
		SummaryType:        digestdomain.SummaryTypeDaily,
		Content:            parsed.Content,
		ActionItems:        actionItems,
		Highlights:         parsed.Highlights,
		CategoriesOverview: categories,
		EmailCount:         len(summaries),
		GeneratedAt:        time.Now(),
	}, nil
}

func (s *summarizer) Answer(ctx context.Context, question string, contextItems []string, p *personadomain.Persona) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("AI provider not configured")
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question is empty")
	}

	// Free-form prose in the persona's voice runs on the creative profile.
	profile := ai.ProfileFor(ai.UseCaseCreative)

	trimmedItems := make([]string, 0, len(contextItems))
	perItemBudget := profile.InputBudget
	if len(contextItems) > 0 {
		perItemBudget = profile.InputBudget / len(contextItems)
	}
	for _, item := range contextItems {
		trimmedItems = append(trimmedItems, ai.TruncateToBudget(item, perItemBudget))
	}

	ctx, cancel := context.WithTimeout(ctx, summarizeTimeout)
	defer cancel()

	raw, err := s.provider.Complete(ctx, ai.CompletionRequest{
		System:      buildInstructionBlock(p),
		Prompt:      answerPrompt(question, trimmedItems),
		MaxTokens:   profile.MaxOutputTokens,
		Temperature: profile.Temperature,
	})
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(raw)
	if answer == "" {
		return CouldNotSummarize, nil
	}
	return answer, nil
}
