// Package llm wraps the generative-text backend behind an opaque callable.
// The orchestrator and tests only ever see the Backend interface; the raw
// model response stays an uninterpreted string until the parser runs.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"google.golang.org/genai"

	"newsgate/internal/config"
)

// Backend is the opaque generative callable the orchestrator depends on.
// Call blocks until the model answers, the timeout on ctx fires, or the
// backend fails. An empty string with nil error never occurs.
type Backend interface {
	Call(ctx context.Context, prompt, model string) (string, error)
}

// GeminiBackend implements Backend on the Gemini API.
type GeminiBackend struct {
	client      *genai.Client
	temperature float32
	maxTokens   int32
}

// NewGeminiBackend creates a backend from configuration. The API key is read
// from GEMINI_API_KEY (and alternatives) or the config file.
func NewGeminiBackend(ctx context.Context, cfg config.GeminiConfig) (*GeminiBackend, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		if apiKey = os.Getenv("GEMINI_API_KEY"); apiKey == "" {
			apiKey = viper.GetString("ai.gemini.api_key")
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required: set GEMINI_API_KEY or ai.gemini.api_key in config")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiBackend{
		client:      client,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Call sends the prompt to the named model. ctx carries the per-attempt
// deadline; cancellation aborts the in-flight request.
func (b *GeminiBackend) Call(ctx context.Context, prompt, model string) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(b.temperature),
	}
	if b.maxTokens > 0 {
		cfg.MaxOutputTokens = b.maxTokens
	}

	resp, err := b.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// ErrEmptyResponse is returned when the model answers with no text at all.
var ErrEmptyResponse = fmt.Errorf("empty response from model")
