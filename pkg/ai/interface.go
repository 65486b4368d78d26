package ai

import (
	"context"
)

// CompletionRequest is the provider-agnostic request shape. Each adapter
// translates it into its backend's wire format.
type CompletionRequest struct {
	System      string  // instruction block, may be empty
	Prompt      string  // user content
	MaxTokens   int     // output token budget
	Temperature float64
}

// Provider is the interface for AI completion backends.
// Implement this interface to add new providers (Groq, OpenAI, Anthropic, HuggingFace, etc.)
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Name() string
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGroq        ProviderType = "groq"
	ProviderOpenAI      ProviderType = "openai"
	ProviderAnthropic   ProviderType = "anthropic"
	ProviderHuggingFace ProviderType = "huggingface"
)

// UseCase selects a model/size profile for a summarization call.
type UseCase string

const (
	UseCaseFast     UseCase = "fast"
	UseCaseBalanced UseCase = "balanced"
	UseCaseDetailed UseCase = "detailed"
	UseCaseCreative UseCase = "creative"
)

// Profile holds the generation parameters for one use case.
type Profile struct {
	MaxOutputTokens int
	InputBudget     int // input token budget before truncation kicks in
	Temperature     float64
}

// ProfileFor returns the generation profile for a use case. Factual modes
// run at low temperature; creative mode runs hotter.
func ProfileFor(uc UseCase) Profile {
	switch uc {
	case UseCaseFast:
		return Profile{MaxOutputTokens: 512, InputBudget: 6000, Temperature: 0.1}
	case UseCaseDetailed:
		return Profile{MaxOutputTokens: 2048, InputBudget: 12000, Temperature: 0.1}
	case UseCaseCreative:
		return Profile{MaxOutputTokens: 1024, InputBudget: 8000, Temperature: 0.7}
	default: // balanced
		return Profile{MaxOutputTokens: 1024, InputBudget: 8000, Temperature: 0.1}
	}
}
