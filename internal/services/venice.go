package services

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/chat"
)

const veniceBaseURL = "https://api.venice.ai/api/v1"

// VeniceService implements LLMService for Venice AI, an OpenAI-compatible
// API with its own parameter block.
type VeniceService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type VeniceParameters struct {
	IncludeVeniceSystemPrompt bool   `json:"include_venice_system_prompt"`
	EnableWebSearch           string `json:"enable_web_search"`
}

// VeniceChatRequest represents the request structure for Venice AI chat completions
type VeniceChatRequest struct {
	ChatCompletionRequest
	VeniceParameters VeniceParameters `json:"venice_parameters"`
}

// NewVeniceService creates a new Venice AI service
func NewVeniceService(apiKey, baseURL string, logger *slog.Logger) *VeniceService {
	if baseURL == "" {
		baseURL = veniceBaseURL
	}
	return &VeniceService{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// InitModel initializes the model (Venice AI doesn't require explicit model initialization)
func (v *VeniceService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

func (v *VeniceService) Generate(ctx context.Context, req *chat.Request) (*chat.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body := VeniceChatRequest{
		ChatCompletionRequest: newChatCompletionRequest(req),
		// Venice's own system prompt would override the agent contracts.
		VeniceParameters: VeniceParameters{
			IncludeVeniceSystemPrompt: false,
			EnableWebSearch:           "off",
		},
	}
	return completeChat(ctx, v.httpClient, v.baseURL+"/chat/completions", v.apiKey, body)
}
