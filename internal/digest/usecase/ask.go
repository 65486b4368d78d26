package usecase

import (
	"context"
	"fmt"
	"log"

	"maildigest-backend/internal/digest/repository"
	personausecase "maildigest-backend/internal/persona/usecase"
	"maildigest-backend/pkg/chroma"
	"maildigest-backend/pkg/fuzzy"
)

const askContextSize = 5

// AskUsecase answers free-form questions over a user's summarized mail.
// Retrieval uses the vector store when configured and falls back to lexical
// ranking of recent summaries otherwise.
type AskUsecase interface {
	Ask(ctx context.Context, userID, question string) (string, error)
}

type askUsecase struct {
	summaryRepo  repository.SummaryRepository
	personaUC    personausecase.PersonaUsecase
	summarizer   Summarizer
	chromaClient *chroma.ChromaClient // may be nil
}

// NewAskUsecase creates a new AskUsecase
func NewAskUsecase(summaryRepo repository.SummaryRepository, personaUC personausecase.PersonaUsecase, summarizer Summarizer, chromaClient *chroma.ChromaClient) AskUsecase {
	return &askUsecase{
		summaryRepo:  summaryRepo,
		personaUC:    personaUC,
		summarizer:   summarizer,
		chromaClient: chromaClient,
	}
}

func (u *askUsecase) Ask(ctx context.Context, userID, question string) (string, error) {
	persona, err := u.personaUC.GetPersona(userID)
	if err != nil {
		return "", err
	}

	contextItems, err := u.retrieveContext(ctx, userID, question)
	if err != nil {
		return "", err
	}
	if len(contextItems) == 0 {
		return "I don't have any summarized emails to answer from yet.", nil
	}

	return u.summarizer.Answer(ctx, question, contextItems, persona)
}

func (u *askUsecase) retrieveContext(ctx context.Context, userID, question string) ([]string, error) {
	if u.chromaClient != nil {
		docs, err := u.chromaClient.SemanticSearch(ctx, userID, question, askContextSize)
		if err != nil {
			log.Printf("[Ask] Semantic search failed for user %s, falling back to lexical ranking: %v", userID, err)
		} else if len(docs) > 0 {
			return docs, nil
		}
	}

	summaries, err := u.summaryRepo.GetRecentEmailSummaries(userID, 50)
	if err != nil {
		return nil, err
	}

	candidates := make([]fuzzy.Candidate, 0, len(summaries))
	for _, s := range summaries {
		candidates = append(candidates, fuzzy.Candidate{
			ID:      s.ID,
			Subject: s.Subject,
			Content: s.Content,
		})
	}

	ranked := fuzzy.RankByRelevance(question, candidates, askContextSize)
	items := make([]string, 0, len(ranked))
	for _, c := range ranked {
		items = append(items, fmt.Sprintf("Subject: %s\n\n%s", c.Subject, c.Content))
	}
	return items, nil
}
