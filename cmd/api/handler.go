package api

import (
	authRepo "maildigest-backend/internal/auth/repository"
	authUsecase "maildigest-backend/internal/auth/usecase"
	digestDelivery "maildigest-backend/internal/digest/delivery"
	digestRepo "maildigest-backend/internal/digest/repository"
	"maildigest-backend/internal/digest/scheduler"
	digestUsecase "maildigest-backend/internal/digest/usecase"
	personaDelivery "maildigest-backend/internal/persona/delivery"
	personaUsecase "maildigest-backend/internal/persona/usecase"
	"maildigest-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase    authUsecase.AuthUsecase
	fcmRepo        authRepo.FCMTokenRepository
	personaHandler *personaDelivery.PersonaHandler
	digestHandler  *digestDelivery.DigestHandler
	config         *config.Config
}

func NewHandler(
	authUC authUsecase.AuthUsecase,
	fcmRepo authRepo.FCMTokenRepository,
	personaUC personaUsecase.PersonaUsecase,
	summaryRepo digestRepo.SummaryRepository,
	digestScheduler *scheduler.DigestScheduler,
	askUC digestUsecase.AskUsecase,
	cfg *config.Config,
) *Handler {
	return &Handler{
		authUsecase:    authUC,
		fcmRepo:        fcmRepo,
		personaHandler: personaDelivery.NewPersonaHandler(personaUC),
		digestHandler:  digestDelivery.NewDigestHandler(summaryRepo, digestScheduler, askUC),
		config:         cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.fcmRepo, h.personaHandler, h.digestHandler)

	return r.Run(addr)
}
