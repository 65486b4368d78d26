package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration
	EncryptionKey    string

	GoogleClientID     string
	GoogleClientSecret string

	// AI provider selection: "groq", "openai", "anthropic" or "huggingface"
	AIProvider        string
	GroqAPIKey        string
	GroqModel         string
	OpenAIAPIKey      string
	OpenAIModel       string
	AnthropicAPIKey   string
	AnthropicModel    string
	HuggingFaceAPIKey string
	HuggingFaceModel  string

	GeminiAPIKey   string
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	FirebaseCredentials string

	// Digest scheduler tuning
	DigestBatchSize   int
	DigestBatchDelay  time.Duration
	DigestDedupWindow time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	accessExpiry := 15 * time.Minute
	if exp := os.Getenv("JWT_ACCESS_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			accessExpiry = parsed
		}
	}

	refreshExpiry := 7 * 24 * time.Hour
	if exp := os.Getenv("JWT_REFRESH_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			refreshExpiry = parsed
		}
	}

	batchDelay := 2 * time.Second
	if d := os.Getenv("DIGEST_BATCH_DELAY"); d != "" {
		if parsed, err := time.ParseDuration(d); err == nil {
			batchDelay = parsed
		}
	}

	dedupWindow := 20 * time.Hour
	if d := os.Getenv("DIGEST_DEDUP_WINDOW"); d != "" {
		if parsed, err := time.ParseDuration(d); err == nil {
			dedupWindow = parsed
		}
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=maildigest port=5432 sslmode=disable"),
		JWTSecret:        getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:  accessExpiry,
		JWTRefreshExpiry: refreshExpiry,
		EncryptionKey:    getEnv("ENCRYPTION_KEY", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		AIProvider:        getEnv("AI_PROVIDER", "groq"),
		GroqAPIKey:        getEnv("GROQ_API_KEY", ""),
		GroqModel:         getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:    getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
		HuggingFaceAPIKey: getEnv("HUGGINGFACE_API_KEY", ""),
		HuggingFaceModel:  getEnv("HUGGINGFACE_MODEL", "mistralai/Mistral-7B-Instruct-v0.3"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),

		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		DigestBatchSize:   getEnvInt("DIGEST_BATCH_SIZE", 5),
		DigestBatchDelay:  batchDelay,
		DigestDedupWindow: dedupWindow,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
