package usecase

import (
	"fmt"
	"log"

	personadomain "maildigest-backend/internal/persona/domain"
	"maildigest-backend/internal/persona/learner"
	"maildigest-backend/internal/persona/repository"
)

// PersonaUsecase manages persona reads, edits and feedback ingestion
type PersonaUsecase interface {
	// GetPersona returns the user's persona, creating the default one on
	// first access.
	GetPersona(userID string) (*personadomain.Persona, error)
	// UpdatePersona validates and persists user edits as a whole record.
	UpdatePersona(userID string, updated personadomain.Persona) (*personadomain.Persona, error)
	// SubmitFeedback appends a feedback entry and triggers optimization in
	// the background.
	SubmitFeedback(userID string, entry personadomain.FeedbackEntry) error
	// RecordSummaryGenerated bumps the persona's generation counter after a
	// digest is produced.
	RecordSummaryGenerated(userID string) error
}

type personaUsecase struct {
	personaRepo repository.PersonaRepository
}

// NewPersonaUsecase creates a new instance of personaUsecase
func NewPersonaUsecase(personaRepo repository.PersonaRepository) PersonaUsecase {
	return &personaUsecase{
		personaRepo: personaRepo,
	}
}

func (u *personaUsecase) GetPersona(userID string) (*personadomain.Persona, error) {
	p, err := u.personaRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	// First access: create the default persona.
	def := personadomain.Default(userID)
	if err := u.personaRepo.Save(&def); err != nil {
		return nil, fmt.Errorf("failed to create default persona: %w", err)
	}
	return &def, nil
}

func (u *personaUsecase) UpdatePersona(userID string, updated personadomain.Persona) (*personadomain.Persona, error) {
	current, err := u.GetPersona(userID)
	if err != nil {
		return nil, err
	}

	// Identity and history are not editable through this path.
	updated.ID = current.ID
	updated.UserID = userID
	updated.FeedbackHistory = current.FeedbackHistory
	updated.Metrics = current.Metrics
	updated.CreatedAt = current.CreatedAt

	if err := normalize(&updated); err != nil {
		return nil, err
	}

	if err := u.personaRepo.Save(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (u *personaUsecase) SubmitFeedback(userID string, entry personadomain.FeedbackEntry) error {
	switch entry.Action {
	case personadomain.FeedbackLikedSummary, personadomain.FeedbackDislikedSummary,
		personadomain.FeedbackChangedPriority, personadomain.FeedbackMarkedIrrelevant,
		personadomain.FeedbackMarkedImportant:
	default:
		return fmt.Errorf("unknown feedback action %q", entry.Action)
	}

	current, err := u.GetPersona(userID)
	if err != nil {
		return err
	}

	updated := learner.AddFeedback(*current, entry)
	if err := u.personaRepo.Save(&updated); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	// Optimization runs off the request path. Its failure is logged, never
	// surfaced to the caller.
	go u.optimizeInBackground(userID)

	return nil
}

func (u *personaUsecase) RecordSummaryGenerated(userID string) error {
	p, err := u.GetPersona(userID)
	if err != nil {
		return err
	}
	p.Metrics.TotalSummariesGenerated++
	return u.personaRepo.Save(p)
}

func (u *personaUsecase) optimizeInBackground(userID string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PersonaLearner] Panic during optimization for user %s: %v", userID, r)
		}
	}()

	p, err := u.personaRepo.GetByUserID(userID)
	if err != nil || p == nil {
		if err != nil {
			log.Printf("[PersonaLearner] Failed to load persona for user %s: %v", userID, err)
		}
		return
	}

	optimized := learner.Optimize(*p)
	if optimized.Metrics.LastOptimizedAt == p.Metrics.LastOptimizedAt {
		// Below threshold or learning disabled, nothing to persist.
		return
	}

	if err := u.personaRepo.Save(&optimized); err != nil {
		log.Printf("[PersonaLearner] Failed to save optimized persona for user %s: %v", userID, err)
		return
	}
	log.Printf("[PersonaLearner] Re-weighted persona for user %s from %d feedback entries", userID, len(optimized.FeedbackHistory))
}

// normalize enforces persona invariants: non-negative weights, a valid
// HH:MM summary time and sane limits.
func normalize(p *personadomain.Persona) error {
	if _, ok := p.SummaryHour(); !ok {
		return fmt.Errorf("daily_summary_time must match HH:MM, got %q", p.DailySummaryTime)
	}
	for name, w := range p.CategoryWeights {
		if w.Priority < 0 {
			w.Priority = 0
			p.CategoryWeights[name] = w
		}
	}
	if p.MinimumEmailLength < 0 {
		p.MinimumEmailLength = 0
	}
	if p.MaxEmailsPerSummary <= 0 {
		p.MaxEmailsPerSummary = 10
	}
	switch p.SummaryStyle {
	case personadomain.StyleConcise, personadomain.StyleDetailed, personadomain.StyleBullets:
	default:
		p.SummaryStyle = personadomain.StyleConcise
	}
	switch p.SummaryLength {
	case personadomain.LengthShort, personadomain.LengthMedium, personadomain.LengthLong:
	default:
		p.SummaryLength = personadomain.LengthMedium
	}
	return nil
}
