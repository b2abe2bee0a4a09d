package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/chat"
	"github.com/jwebster45206/adventure-engine/pkg/prompts"
)

const (
	repairPasses    = 2
	repairMaxTokens = 900
)

// ExtractJSONObject returns the text from the first '{' to the last '}'.
func ExtractJSONObject(text string) (string, bool) {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last == -1 || last <= first {
		return "", false
	}
	return text[first : last+1], true
}

// IsJSONObject reports whether text parses as a JSON object (not an array,
// not null).
func IsJSONObject(text string) bool {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return false
	}
	_, ok := v.(map[string]any)
	return ok
}

// Repairer turns malformed agent output into something decodable. It never
// fails: the worst case is the static fallback.
type Repairer struct {
	gen    Generator
	logger *slog.Logger
}

func NewRepairer(gen Generator, logger *slog.Logger) *Repairer {
	return &Repairer{gen: gen, logger: logger}
}

// RepairInput carries what the repairer needs to know about a failed decode.
type RepairInput struct {
	Agent    string
	Model    string
	Text     string // raw model output
	Cause    error  // decode failure
	Syntax   bool   // cause was a JSON syntax error
	Template string // JSON template the output should follow
	Fallback string // static fallback JSON
	// ExtractOnly skips the corrective generation passes.
	ExtractOnly bool
}

// Repair runs structural extraction, then up to two corrective passes, then
// falls back.
func (r *Repairer) Repair(ctx context.Context, in RepairInput) string {
	extracted, ok := ExtractJSONObject(in.Text)
	candidate := in.Text
	if ok {
		candidate = extracted
	}

	if in.ExtractOnly {
		if ok && json.Valid([]byte(extracted)) {
			return extracted
		}
		return in.Fallback
	}

	if in.Syntax && ok && IsJSONObject(extracted) {
		r.logger.Debug("repaired agent output by extraction", "agent", in.Agent)
		return extracted
	}

	payload := fmt.Sprintf("JSON template:\n%s\n\nError: %v\n\nOriginal text:\n%s", in.Template, in.Cause, candidate)

	for pass := 0; pass < repairPasses; pass++ {
		system := prompts.RepairSystemPrompt
		if pass > 0 {
			system += "\n\n" + prompts.RepairReminder
		}
		resp, err := r.gen.Generate(ctx, &chat.Request{
			Model:       in.Model,
			System:      system,
			Messages:    []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: payload}},
			Temperature: chat.Float(0),
			MaxTokens:   repairMaxTokens,
			JSON:        true,
		})
		if err != nil {
			r.logger.Warn("repair call failed", "agent", in.Agent, "pass", pass+1, "error", err)
			break
		}

		repaired := resp.Content
		if e, ok := ExtractJSONObject(resp.Content); ok {
			repaired = e
		}
		if IsJSONObject(repaired) {
			r.logger.Debug("repaired agent output by corrective pass", "agent", in.Agent, "pass", pass+1)
			return repaired
		}
	}

	r.logger.Warn("agent output could not be repaired, using fallback", "agent", in.Agent)
	return in.Fallback
}
