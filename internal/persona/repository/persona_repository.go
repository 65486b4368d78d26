package repository

import (
	"errors"
	"time"

	personadomain "maildigest-backend/internal/persona/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PersonaRepository defines the interface for persona persistence
type PersonaRepository interface {
	// GetByUserID returns the user's persona, or nil if none exists
	GetByUserID(userID string) (*personadomain.Persona, error)
	// Save persists the persona as a whole record (create or update)
	Save(p *personadomain.Persona) error
}

// personaRepository implements PersonaRepository interface
type personaRepository struct {
	db *gorm.DB
}

// NewPersonaRepository creates a new instance of personaRepository
func NewPersonaRepository(db *gorm.DB) PersonaRepository {
	return &personaRepository{
		db: db,
	}
}

func (r *personaRepository) GetByUserID(userID string) (*personadomain.Persona, error) {
	var p personadomain.Persona
	err := r.db.Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *personaRepository) Save(p *personadomain.Persona) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()
	return r.db.Save(p).Error
}
