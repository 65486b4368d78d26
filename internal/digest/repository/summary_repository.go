package repository

import (
	"errors"
	"time"

	digestdomain "maildigest-backend/internal/digest/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SummaryRepository defines the interface for digest persistence
type SummaryRepository interface {
	// SaveEmailSummary stores a per-email summary
	SaveEmailSummary(s *digestdomain.EmailSummary) error
	// SaveDailySummary stores an aggregated digest
	SaveDailySummary(s *digestdomain.DailySummary) error
	// DailySummaryExistsSince reports whether a digest of the given type was
	// generated for the user after sinceTs (the dedup check)
	DailySummaryExistsSince(userID, summaryType string, sinceTs time.Time) (bool, error)
	// GetLatestDailySummary returns the most recent digest for a user, or
	// nil if none exists
	GetLatestDailySummary(userID string) (*digestdomain.DailySummary, error)
	// GetRecentEmailSummaries returns the user's newest per-email summaries,
	// used as the retrieval corpus for question answering
	GetRecentEmailSummaries(userID string, limit int) ([]*digestdomain.EmailSummary, error)
}

// summaryRepository implements SummaryRepository interface
type summaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository creates a new instance of summaryRepository
func NewSummaryRepository(db *gorm.DB) SummaryRepository {
	return &summaryRepository{
		db: db,
	}
}

func (r *summaryRepository) SaveEmailSummary(s *digestdomain.EmailSummary) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	return r.db.Create(s).Error
}

func (r *summaryRepository) SaveDailySummary(s *digestdomain.DailySummary) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.GeneratedAt.IsZero() {
		s.GeneratedAt = time.Now()
	}
	return r.db.Create(s).Error
}

func (r *summaryRepository) DailySummaryExistsSince(userID, summaryType string, sinceTs time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&digestdomain.DailySummary{}).
		Where("user_id = ? AND summary_type = ? AND generated_at > ?", userID, summaryType, sinceTs).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *summaryRepository) GetRecentEmailSummaries(userID string, limit int) ([]*digestdomain.EmailSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var summaries []*digestdomain.EmailSummary
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *summaryRepository) GetLatestDailySummary(userID string) (*digestdomain.DailySummary, error) {
	var s digestdomain.DailySummary
	err := r.db.Where("user_id = ?", userID).Order("generated_at DESC").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
