package api

import (
	"net/http"

	"maildigest-backend/internal/auth/delivery"
	authRepo "maildigest-backend/internal/auth/repository"
	authUsecase "maildigest-backend/internal/auth/usecase"
	digestDelivery "maildigest-backend/internal/digest/delivery"
	personaDelivery "maildigest-backend/internal/persona/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	authUC authUsecase.AuthUsecase,
	fcmRepo authRepo.FCMTokenRepository,
	personaHandler *personaDelivery.PersonaHandler,
	digestHandler *digestDelivery.DigestHandler,
) {
	authHandler := delivery.NewAuthHandler(authUC, fcmRepo)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(authUC), authHandler.Me)
			auth.POST("/imap", delivery.AuthMiddleware(authUC), authHandler.ConnectIMAP)
			auth.DELETE("/mail", delivery.AuthMiddleware(authUC), authHandler.DisconnectMail)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUC))
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Persona routes (protected)
		persona := api.Group("/persona")
		persona.Use(delivery.AuthMiddleware(authUC))
		{
			persona.GET("", personaHandler.Get)
			persona.PUT("", personaHandler.Update)
			persona.POST("/feedback", personaHandler.SubmitFeedback)
		}

		// Digest routes (protected)
		digest := api.Group("/digest")
		digest.Use(delivery.AuthMiddleware(authUC))
		{
			digest.GET("/latest", digestHandler.GetLatest)
			digest.POST("/generate", digestHandler.Generate)
			digest.POST("/process-all", digestHandler.ProcessAll)
			digest.GET("/status", digestHandler.Status)
			digest.POST("/ask", digestHandler.Ask)
		}
	}
}
