package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/jwebster45206/adventure-engine/pkg/chat"
)

// ErrEmptyResponse is returned when a provider answers without any
// completion at all. An empty completion is returned as empty content.
var ErrEmptyResponse = errors.New("provider returned an empty response")

// LLMService defines the interface for interacting with a model provider
type LLMService interface {
	// InitModel prepares the model on startup
	InitModel(ctx context.Context, modelName string) error

	// Generate runs one completion for an agent request
	Generate(ctx context.Context, req *chat.Request) (*chat.Response, error)
}

// NewLLMService builds the provider selected by cfg.
func NewLLMService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (LLMService, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAIService(cfg.APIKey(), cfg.LLMBaseURL, logger), nil
	case config.ProviderVenice:
		return NewVeniceService(cfg.APIKey(), cfg.LLMBaseURL, logger), nil
	case config.ProviderAnthropic:
		return NewAnthropicService(cfg.APIKey(), cfg.LLMBaseURL, logger), nil
	case config.ProviderOllama:
		baseURL := cfg.LLMBaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		return NewOllamaService(baseURL, logger), nil
	case config.ProviderGemini:
		return NewGeminiService(ctx, cfg.APIKey(), cfg.LLMBaseURL, logger)
	}
	return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
}

// withSystem returns the request messages with the system prompt first,
// for providers that take the system prompt as a message.
func withSystem(req *chat.Request) []chat.ChatMessage {
	if req.System == "" {
		return req.Messages
	}
	out := make([]chat.ChatMessage, 0, len(req.Messages)+1)
	out = append(out, chat.ChatMessage{Role: chat.ChatRoleSystem, Content: req.System})
	return append(out, req.Messages...)
}

// postJSON sends body to url and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
