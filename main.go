package main

import (
	"log"

	api "maildigest-backend/cmd/api"
	authdomain "maildigest-backend/internal/auth/domain"
	authRepo "maildigest-backend/internal/auth/repository"
	authUsecase "maildigest-backend/internal/auth/usecase"
	digestdomain "maildigest-backend/internal/digest/domain"
	digestRepo "maildigest-backend/internal/digest/repository"
	digestScheduler "maildigest-backend/internal/digest/scheduler"
	digestUsecase "maildigest-backend/internal/digest/usecase"
	emailUsecase "maildigest-backend/internal/email/usecase"
	personadomain "maildigest-backend/internal/persona/domain"
	personaRepo "maildigest-backend/internal/persona/repository"
	personaUsecase "maildigest-backend/internal/persona/usecase"
	"maildigest-backend/pkg/ai"
	"maildigest-backend/pkg/chroma"
	"maildigest-backend/pkg/config"
	"maildigest-backend/pkg/database"
	"maildigest-backend/pkg/fcm"
	"maildigest-backend/pkg/gmail"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&authdomain.FCMToken{},
		&personadomain.Persona{},
		&digestdomain.EmailSummary{},
		&digestdomain.DailySummary{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	personaRepository := personaRepo.NewPersonaRepository(db)
	summaryRepo := digestRepo.NewSummaryRepository(db)

	// Initialize AI provider
	provider, err := ai.NewProvider(ai.Config{
		Provider:          ai.ProviderType(cfg.AIProvider),
		GroqAPIKey:        cfg.GroqAPIKey,
		GroqModel:         cfg.GroqModel,
		OpenAIAPIKey:      cfg.OpenAIAPIKey,
		OpenAIModel:       cfg.OpenAIModel,
		AnthropicAPIKey:   cfg.AnthropicAPIKey,
		AnthropicModel:    cfg.AnthropicModel,
		HuggingFaceAPIKey: cfg.HuggingFaceAPIKey,
		HuggingFaceModel:  cfg.HuggingFaceModel,
	})
	if err != nil {
		log.Fatal("Failed to initialize AI provider:", err)
	}
	log.Printf("AI provider initialized: %s", provider.Name())

	// Initialize FCM client (optional)
	var fcmClient *fcm.Client
	if cfg.FirebaseCredentials != "" {
		fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
			fcmClient = nil
		}
	} else {
		log.Println("[WARN] No Firebase credentials configured, FCM disabled")
	}

	// Initialize Chroma client for semantic retrieval (optional)
	var chromaClient *chroma.ChromaClient
	if cfg.ChromaAPIKey != "" {
		chromaClient, err = chroma.NewChromaClient(cfg)
		if err != nil {
			log.Printf("[WARN] Failed to initialize Chroma client (semantic retrieval disabled): %v", err)
			chromaClient = nil
		}
	} else {
		log.Println("[WARN] CHROMA_API_KEY not set, semantic retrieval disabled")
	}

	// Initialize mail access
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	fetcher := emailUsecase.NewFetcher(gmailService, userRepo, cfg.EncryptionKey)

	// Initialize use cases (dependency injection)
	authUC := authUsecase.NewAuthUsecase(userRepo, cfg)
	personaUC := personaUsecase.NewPersonaUsecase(personaRepository)
	summarizer := digestUsecase.NewSummarizer(provider)
	askUC := digestUsecase.NewAskUsecase(summaryRepo, personaUC, summarizer, chromaClient)

	// Initialize and start the digest scheduler
	scheduler := digestScheduler.NewDigestScheduler(
		userRepo,
		fcmTokenRepo,
		summaryRepo,
		personaUC,
		fetcher,
		summarizer,
		fcmClient,
		chromaClient,
		cfg.DigestBatchSize,
		cfg.DigestBatchDelay,
		cfg.DigestDedupWindow,
	)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize HTTP handler
	handler := api.NewHandler(authUC, fcmTokenRepo, personaUC, summaryRepo, scheduler, askUC, cfg)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
