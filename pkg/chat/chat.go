package chat

import "fmt"

const (
	ChatRoleUser   = "user"      // Player input or agent payload
	ChatRoleAgent  = "assistant" // Model output
	ChatRoleSystem = "system"    // Agent instructions
)

// ChatMessage represents a single message in a generation request.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Schema describes the structured output a provider should constrain the
// model to, for providers that support it.
type Schema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

// Request is a provider-neutral generation request.
// System is sent as the provider's system instruction.
type Request struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	JSON        bool          `json:"json,omitempty"` // ask for a JSON object response
	Schema      *Schema       `json:"schema,omitempty"`
}

// Response is the raw text returned by a provider.
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// Float returns a pointer to f, for Request.Temperature.
func Float(f float64) *float64 {
	return &f
}

func (r *Request) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("request needs at least one message")
	}
	return nil
}
