package ai

import (
	"context"
	"net/http"
)

// GroqProvider implements Provider using the Groq API. The wire format is
// OpenAI-compatible chat completions.
type GroqProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGroqProvider creates a new Groq provider
func NewGroqProvider(apiKey, model string) *GroqProvider {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.groq.com/openai/v1",
		client:  &http.Client{},
	}
}

func (p *GroqProvider) Name() string { return "groq" }

func (p *GroqProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return chatComplete(ctx, p.client, p.Name(), p.baseURL+"/chat/completions", p.apiKey, p.model, req)
}
