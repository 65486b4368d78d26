package delivery

import (
	"net/http"

	authdomain "maildigest-backend/internal/auth/domain"
	personadomain "maildigest-backend/internal/persona/domain"
	"maildigest-backend/internal/persona/usecase"

	"github.com/gin-gonic/gin"
)

type PersonaHandler struct {
	personaUsecase usecase.PersonaUsecase
}

func NewPersonaHandler(personaUsecase usecase.PersonaUsecase) *PersonaHandler {
	return &PersonaHandler{
		personaUsecase: personaUsecase,
	}
}

func currentUser(c *gin.Context) *authdomain.User {
	return c.MustGet("user").(*authdomain.User)
}

// Get returns the authenticated user's persona, creating the default on
// first access
func (h *PersonaHandler) Get(c *gin.Context) {
	user := currentUser(c)

	persona, err := h.personaUsecase.GetPersona(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, persona)
}

// Update replaces the editable persona fields
func (h *PersonaHandler) Update(c *gin.Context) {
	user := currentUser(c)

	var req personadomain.Persona
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	persona, err := h.personaUsecase.UpdatePersona(user.ID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, persona)
}

// SubmitFeedback records one feedback action against a summary or email
func (h *PersonaHandler) SubmitFeedback(c *gin.Context) {
	user := currentUser(c)

	var req struct {
		Action    string `json:"action" binding:"required"`
		EmailID   string `json:"email_id"`
		SummaryID string `json:"summary_id"`
		Category  string `json:"category"`
		Sender    string `json:"sender"`
		Comment   string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := personadomain.FeedbackEntry{
		Action:    personadomain.FeedbackAction(req.Action),
		EmailID:   req.EmailID,
		SummaryID: req.SummaryID,
		Category:  req.Category,
		Sender:    req.Sender,
		Comment:   req.Comment,
	}

	if err := h.personaUsecase.SubmitFeedback(user.ID, entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "feedback recorded"})
}
