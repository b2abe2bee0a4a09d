package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/adventure-engine/pkg/chat"
	"github.com/jwebster45206/adventure-engine/pkg/prompts"
)

// Generator is a model provider.
type Generator interface {
	Generate(ctx context.Context, req *chat.Request) (*chat.Response, error)
}

// Validator is implemented by agent output types.
type Validator interface {
	Validate() error
}

// DecodeError describes why model output could not be used.
type DecodeError struct {
	Syntax bool // the text was not valid JSON
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Syntax {
		return "invalid JSON: " + e.Err.Error()
	}
	return "schema validation failed: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Call describes one structured agent invocation.
type Call struct {
	Agent       string // agent type, for model lookup and logs
	System      string
	Input       any
	Temperature float64
	MaxTokens   int
	Template    string // JSON template shown to the repairer
	Fallback    string // static fallback JSON, must decode cleanly
	Schema      *chat.Schema
	// ExtractOnly limits repair to structural extraction.
	ExtractOnly bool
}

// Invoker runs agent calls with retries, repair and fallbacks.
type Invoker struct {
	gen      Generator
	models   *ModelRegistry
	repairer *Repairer
	policy   RetryPolicy
	logger   *slog.Logger
}

// NewInvoker creates an invoker using DefaultRetryPolicy.
func NewInvoker(gen Generator, models *ModelRegistry, logger *slog.Logger) *Invoker {
	return &Invoker{
		gen:      gen,
		models:   models,
		repairer: NewRepairer(gen, logger),
		policy:   DefaultRetryPolicy,
		logger:   logger,
	}
}

// WithRetryPolicy replaces the retry policy. It returns the invoker.
func (inv *Invoker) WithRetryPolicy(p RetryPolicy) *Invoker {
	inv.policy = p
	return inv
}

// Models returns the model registry.
func (inv *Invoker) Models() *ModelRegistry {
	return inv.models
}

// Decode unmarshals text into a fresh T and validates it.
func Decode[T any, PT interface {
	*T
	Validator
}](text string) (*T, error) {
	out := new(T)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		var syn *json.SyntaxError
		return nil, &DecodeError{Syntax: errors.As(err, &syn), Err: err}
	}
	if err := PT(out).Validate(); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return out, nil
}

// Invoke runs a structured call and decodes the result into T. Generation
// errors are retried; decode failures are repaired, and output that still
// fails validation is replaced by the call's fallback. The returned error is
// the last generation error once retries are exhausted.
func Invoke[T any, PT interface {
	*T
	Validator
}](ctx context.Context, inv *Invoker, call Call) (*T, error) {
	model := inv.models.ModelFor(call.Agent)

	content, err := prompts.JSONOnlyUserContent(call.Input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", call.Agent, err)
	}

	req := &chat.Request{
		Model:       model,
		System:      call.System,
		Messages:    []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: content}},
		Temperature: chat.Float(call.Temperature),
		MaxTokens:   call.MaxTokens,
		JSON:        true,
		Schema:      call.Schema,
	}

	policy := inv.policy
	policy.OnFailure = func(attempt int, err error) {
		inv.logger.Warn("agent attempt failed", "agent", call.Agent, "attempt", attempt, "error", err)
		if inv.policy.OnFailure != nil {
			inv.policy.OnFailure(attempt, err)
		}
	}

	return Retry(ctx, policy, func(ctx context.Context) (*T, error) {
		resp, err := inv.gen.Generate(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s generation failed: %w", call.Agent, err)
		}

		out, err := Decode[T, PT](resp.Content)
		if err == nil {
			return out, nil
		}
		inv.logger.Debug("agent output needs repair", "agent", call.Agent, "error", err)

		var de *DecodeError
		syntax := errors.As(err, &de) && de.Syntax
		repaired := inv.repairer.Repair(ctx, RepairInput{
			Agent:       call.Agent,
			Model:       model,
			Text:        resp.Content,
			Cause:       err,
			Syntax:      syntax,
			Template:    call.Template,
			Fallback:    call.Fallback,
			ExtractOnly: call.ExtractOnly,
		})
		out, err = Decode[T, PT](repaired)
		if err == nil {
			return out, nil
		}
		inv.logger.Warn("repaired output failed validation, using fallback", "agent", call.Agent, "error", err)

		out, err = Decode[T, PT](call.Fallback)
		if err != nil {
			return nil, fmt.Errorf("%s fallback is invalid: %w", call.Agent, err)
		}
		return out, nil
	})
}

// TextCall describes a plain text generation.
type TextCall struct {
	Agent       string
	System      string
	User        string
	Temperature *float64
	MaxTokens   int
}

// Text runs a plain generation with retries and returns the raw text.
func (inv *Invoker) Text(ctx context.Context, call TextCall) (string, error) {
	req := &chat.Request{
		Model:       inv.models.ModelFor(call.Agent),
		System:      call.System,
		Messages:    []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: call.User}},
		Temperature: call.Temperature,
		MaxTokens:   call.MaxTokens,
	}
	policy := inv.policy
	policy.OnFailure = func(attempt int, err error) {
		inv.logger.Warn("agent attempt failed", "agent", call.Agent, "attempt", attempt, "error", err)
	}
	return Retry(ctx, policy, func(ctx context.Context) (string, error) {
		resp, err := inv.gen.Generate(ctx, req)
		if err != nil {
			return "", fmt.Errorf("%s generation failed: %w", call.Agent, err)
		}
		return resp.Content, nil
	})
}
