package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/jwebster45206/adventure-engine/pkg/chat"
)

// GeminiService implements LLMService with the Google GenAI SDK.
type GeminiService struct {
	client *genai.Client
	logger *slog.Logger
}

// NewGeminiService creates a Gemini API client. A non-empty baseURL points
// the SDK at a proxy or test server.
func NewGeminiService(ctx context.Context, apiKey, baseURL string, logger *slog.Logger) (*GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiService{client: client, logger: logger}, nil
}

func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

func (g *GeminiService) Generate(ctx context.Context, req *chat.Request) (*chat.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	system, messages := splitChatMessages(req)
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == chat.ChatRoleAgent {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSON || req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Schema != nil {
		cfg.ResponseJsonSchema = req.Schema.Schema
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		g.logger.Warn("gemini returned no candidates", "model", req.Model)
	}
	text := resp.Text()
	return &chat.Response{Content: text, Model: req.Model}, nil
}
