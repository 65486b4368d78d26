package delivery

import (
	"net/http"

	authdomain "maildigest-backend/internal/auth/domain"
	"maildigest-backend/internal/digest/repository"
	"maildigest-backend/internal/digest/scheduler"
	"maildigest-backend/internal/digest/usecase"

	"github.com/gin-gonic/gin"
)

type DigestHandler struct {
	summaryRepo repository.SummaryRepository
	scheduler   *scheduler.DigestScheduler
	askUsecase  usecase.AskUsecase
}

func NewDigestHandler(summaryRepo repository.SummaryRepository, sched *scheduler.DigestScheduler, askUsecase usecase.AskUsecase) *DigestHandler {
	return &DigestHandler{
		summaryRepo: summaryRepo,
		scheduler:   sched,
		askUsecase:  askUsecase,
	}
}

func currentUser(c *gin.Context) *authdomain.User {
	return c.MustGet("user").(*authdomain.User)
}

// GetLatest returns the most recent digest for the authenticated user
func (h *DigestHandler) GetLatest(c *gin.Context) {
	user := currentUser(c)

	summary, err := h.summaryRepo.GetLatestDailySummary(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no digest generated yet"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Generate triggers an immediate digest for the authenticated user
func (h *DigestHandler) Generate(c *gin.Context) {
	user := currentUser(c)

	summary, err := h.scheduler.ProcessUserManually(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ProcessAll forces a cycle for every connected user
func (h *DigestHandler) ProcessAll(c *gin.Context) {
	stats := h.scheduler.ProcessAllUsers()
	c.JSON(http.StatusOK, stats)
}

// Status reports the scheduler state
func (h *DigestHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.GetStatus())
}

// Ask answers a question over the user's summarized mail
func (h *DigestHandler) Ask(c *gin.Context) {
	user := currentUser(c)

	var req struct {
		Question string `json:"question" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.askUsecase.Ask(c.Request.Context(), user.ID, req.Question)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
