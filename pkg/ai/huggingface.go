package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HuggingFaceProvider implements Provider using the HuggingFace inference
// API. Responses come back as an array of dicts with a generated_text key.
type HuggingFaceProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewHuggingFaceProvider creates a new HuggingFace inference provider
func NewHuggingFaceProvider(apiKey, model string) *HuggingFaceProvider {
	if model == "" {
		model = "mistralai/Mistral-7B-Instruct-v0.3"
	}
	return &HuggingFaceProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api-inference.huggingface.co/models",
		client:  &http.Client{},
	}
}

func (p *HuggingFaceProvider) Name() string { return "huggingface" }

func (p *HuggingFaceProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	// The inference API has no system/user separation, so the instruction
	// block is prepended to the prompt.
	input := req.Prompt
	if req.System != "" {
		input = req.System + "\n\n" + req.Prompt
	}

	payload := map[string]interface{}{
		"inputs": input,
		"parameters": map[string]interface{}{
			"max_new_tokens":   req.MaxTokens,
			"temperature":      req.Temperature,
			"return_full_text": false,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/"+p.model, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", wrapTransportError(p.Name(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(p.Name(), resp.StatusCode, string(respBody))
	}

	var result []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result) == 0 {
		return "", fmt.Errorf("huggingface returned an empty result array")
	}

	return result[0].GeneratedText, nil
}
