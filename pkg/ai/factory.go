package ai

import (
	"fmt"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType

	GroqAPIKey        string
	GroqModel         string
	OpenAIAPIKey      string
	OpenAIModel       string
	AnthropicAPIKey   string
	AnthropicModel    string
	HuggingFaceAPIKey string
	HuggingFaceModel  string
}

// NewProvider creates a Provider based on the config. The provider is
// selected once at startup; callers never re-dispatch by name per call.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is required for the groq provider")
		}
		return NewGroqProvider(cfg.GroqAPIKey, cfg.GroqModel), nil

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil

	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil

	case ProviderHuggingFace:
		if cfg.HuggingFaceAPIKey == "" {
			return nil, fmt.Errorf("HUGGINGFACE_API_KEY is required for the huggingface provider")
		}
		return NewHuggingFaceProvider(cfg.HuggingFaceAPIKey, cfg.HuggingFaceModel), nil

	default:
		return nil, &ProviderError{
			Provider: string(cfg.Provider),
			Kind:     ErrUnsupportedProvider,
			Message:  fmt.Sprintf("unknown AI provider %q", cfg.Provider),
		}
	}
}
