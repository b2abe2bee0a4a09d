package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/chat"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaService implements the LLMService interface for Ollama API
type OllamaService struct {
	baseURL    string
	httpClient *http.Client
	pullClient *http.Client
	retryDelay time.Duration
	logger     *slog.Logger
}

type OllamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type OllamaChatRequest struct {
	Model    string             `json:"model"`
	Messages []chat.ChatMessage `json:"messages"`
	Stream   bool               `json:"stream"`
	Format   any                `json:"format,omitempty"` // "json" or a JSON schema
	Options  *OllamaOptions     `json:"options,omitempty"`
}

type OllamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// NewOllamaService creates a new Ollama service instance
func NewOllamaService(baseURL string, logger *slog.Logger) *OllamaService {
	return &OllamaService{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		// Pulling a model can take a while
		pullClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		retryDelay: 2 * time.Second,
		logger:     logger,
	}
}

// InitModel waits for Ollama and pulls the model when it is missing.
func (s *OllamaService) InitModel(ctx context.Context, modelName string) error {
	s.logger.Info("Initializing LLM model", "model", modelName)

	if err := s.waitForOllamaReady(ctx); err != nil {
		return fmt.Errorf("ollama service is not ready: %w", err)
	}

	ready, err := s.isModelReady(ctx, modelName)
	if err != nil {
		return fmt.Errorf("failed to check model readiness: %w", err)
	}

	if ready {
		s.logger.Info("Model already available", "model", modelName)
		return nil
	}

	s.logger.Info("Model not found, pulling it", "model", modelName)
	var pulled struct {
		Status string `json:"status"`
	}
	body := map[string]any{"name": modelName, "stream": false}
	if err := postJSON(ctx, s.pullClient, s.baseURL+"/api/pull", nil, body, &pulled); err != nil {
		return fmt.Errorf("failed to pull model: %w", err)
	}
	s.logger.Info("Model pulled successfully", "model", modelName, "status", pulled.Status)
	return nil
}

func (s *OllamaService) Generate(ctx context.Context, req *chat.Request) (*chat.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body := OllamaChatRequest{
		Model:    req.Model,
		Messages: withSystem(req),
		Stream:   false,
	}
	switch {
	case req.Schema != nil:
		body.Format = req.Schema.Schema
	case req.JSON:
		body.Format = "json"
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		body.Options = &OllamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}

	s.logger.Debug("Making Ollama chat request", "model", req.Model, "message_count", len(body.Messages))

	var resp OllamaChatResponse
	if err := postJSON(ctx, s.httpClient, s.baseURL+"/api/chat", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("API error: %s", resp.Error)
	}
	return &chat.Response{Content: resp.Message.Content, Model: resp.Model}, nil
}

// isModelReady checks if the specified model is available
func (s *OllamaService) isModelReady(ctx context.Context, modelName string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}

	var tagsResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, model := range tagsResp.Models {
		if model.Name == modelName || strings.TrimSuffix(model.Name, ":latest") == modelName {
			return true, nil
		}
	}
	return false, nil
}

// waitForOllamaReady waits for Ollama service to be ready with retries
func (s *OllamaService) waitForOllamaReady(ctx context.Context) error {
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.logger.Debug("Ollama not ready yet", "error", err, "attempt", i+1)
			continue
		}
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			s.logger.Info("Ollama service is ready")
			return nil
		}
		s.logger.Debug("Ollama returned non-200 status", "status", resp.StatusCode, "attempt", i+1)
	}

	return fmt.Errorf("ollama service did not become ready after %d attempts", maxRetries)
}
