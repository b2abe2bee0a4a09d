package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/chat"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIService implements LLMService for the OpenAI chat completions API and
// any gateway that speaks it.
type OpenAIService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ResponseFormat asks the model for a JSON object, optionally constrained by
// a schema.
type ResponseFormat struct {
	Type       string            `json:"type"` // "json_object" or "json_schema"
	JSONSchema *JSONSchemaFormat `json:"json_schema,omitempty"`
}

type JSONSchemaFormat struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// ChatCompletionRequest is the chat completions request body shared by
// OpenAI-compatible providers.
type ChatCompletionRequest struct {
	Model          string             `json:"model"`
	Messages       []chat.ChatMessage `json:"messages"`
	Temperature    *float64           `json:"temperature,omitempty"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Stream         bool               `json:"stream"`
	ResponseFormat *ResponseFormat    `json:"response_format,omitempty"`
}

type ChatCompletionChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewOpenAIService creates an OpenAI service. An empty baseURL uses the
// public API.
func NewOpenAIService(apiKey, baseURL string, logger *slog.Logger) *OpenAIService {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAIService{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		logger: logger,
	}
}

// InitModel is a no-op; hosted models need no initialization.
func (s *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

func (s *OpenAIService) Generate(ctx context.Context, req *chat.Request) (*chat.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body := newChatCompletionRequest(req)
	return completeChat(ctx, s.httpClient, s.baseURL+"/chat/completions", s.apiKey, body)
}

func newChatCompletionRequest(req *chat.Request) ChatCompletionRequest {
	return ChatCompletionRequest{
		Model:          req.Model,
		Messages:       withSystem(req),
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: responseFormatFor(req),
	}
}

func responseFormatFor(req *chat.Request) *ResponseFormat {
	switch {
	case req.Schema != nil:
		return &ResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchemaFormat{
				Name:   req.Schema.Name,
				Schema: req.Schema.Schema,
			},
		}
	case req.JSON:
		return &ResponseFormat{Type: "json_object"}
	}
	return nil
}

// completeChat posts an OpenAI-style body and returns the first choice.
func completeChat(ctx context.Context, client *http.Client, url, apiKey string, body any) (*chat.Response, error) {
	var resp ChatCompletionResponse
	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	if err := postJSON(ctx, client, url, headers, body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return &chat.Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}, nil
}
