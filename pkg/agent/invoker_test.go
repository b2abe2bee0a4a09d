package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/jwebster45206/adventure-engine/pkg/chat"
	"github.com/jwebster45206/adventure-engine/pkg/prompts"
)

// scriptedGenerator replays responses in order. An entry with a non-nil err
// fails that call.
type scriptedGenerator struct {
	mu       sync.Mutex
	steps    []step
	requests []*chat.Request
}

type step struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(_ context.Context, req *chat.Request) (*chat.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if len(g.steps) == 0 {
		return nil, errors.New("script exhausted")
	}
	s := g.steps[0]
	g.steps = g.steps[1:]
	if s.err != nil {
		return nil, s.err
	}
	return &chat.Response{Content: s.text}, nil
}

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleCall() Call {
	return Call{
		Agent:       "world",
		System:      "SYSTEM",
		Input:       map[string]string{"k": "v"},
		Temperature: 0,
		MaxTokens:   350,
		Template:    `{ "name": "...", "count": 0 }`,
		Fallback:    `{ "name": "fallback", "count": 0 }`,
	}
}

func TestInvoke_ValidOutput(t *testing.T) {
	gen := &scriptedGenerator{steps: []step{{text: `{"name":"ok","count":2}`}}}
	inv := NewInvoker(gen, NewModelRegistry("", map[string]string{"world": "world-model"}), discardLogger())

	got, err := Invoke[sample](context.Background(), inv, sampleCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "ok" || got.Count != 2 {
		t.Errorf("got %+v", got)
	}

	req := gen.requests[0]
	if req.Model != "world-model" {
		t.Errorf("model = %q, want world-model", req.Model)
	}
	if req.MaxTokens != 350 || req.Temperature == nil || *req.Temperature != 0 {
		t.Errorf("unexpected sampling params: max=%d temp=%v", req.MaxTokens, req.Temperature)
	}
	content := req.Messages[0].Content
	if !strings.HasPrefix(content, prompts.ContractPrefix+"\n\nINPUT_JSON:\n") {
		t.Errorf("user content missing contract prefix: %q", content)
	}
}

func TestInvoke_ExtractsFencedJSON(t *testing.T) {
	gen := &scriptedGenerator{steps: []step{{text: "```json\n{\"name\":\"fenced\"}\n```"}}}
	inv := NewInvoker(gen, nil, discardLogger())

	got, err := Invoke[sample](context.Background(), inv, sampleCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "fenced" {
		t.Errorf("Name = %q, want fenced", got.Name)
	}
	if len(gen.requests) != 1 {
		t.Errorf("expected no corrective calls, got %d requests", len(gen.requests))
	}
}

func TestInvoke_CorrectivePass(t *testing.T) {
	gen := &scriptedGenerator{steps: []step{
		{text: `{"count": 3}`}, // fails validation
		{text: `Sure! {"name":"fixed","count":3}`},
	}}
	inv := NewInvoker(gen, nil, discardLogger())

	got, err := Invoke[sample](context.Background(), inv, sampleCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "fixed" {
		t.Errorf("Name = %q, want fixed", got.Name)
	}
	repair := gen.requests[1]
	if repair.System != prompts.RepairSystemPrompt {
		t.Error("first repair pass should use the base repair prompt")
	}
	if repair.MaxTokens != 900 {
		t.Errorf("repair MaxTokens = %d, want 900", repair.MaxTokens)
	}
	if !strings.Contains(repair.Messages[0].Content, "JSON template:\n{ \"name\": \"...\", \"count\": 0 }") {
		t.Errorf("repair payload missing template: %q", repair.Messages[0].Content)
	}
}

func TestInvoke_SecondPassRepeatsInstruction(t *testing.T) {
	gen := &scriptedGenerator{steps: []step{
		{text: `not json at all`},
		{text: `still not json`},
		{text: `{"name":"second"}`},
	}}
	inv := NewInvoker(gen, nil, discardLogger())

	got, err := Invoke[sample](context.Background(), inv, sampleCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "second" {
		t.Errorf("Name = %q, want second", got.Name)
	}
	if !strings.HasSuffix(gen.requests[2].System, prompts.RepairReminder) {
		t.Error("second repair pass should repeat the JSON-only instruction")
	}
}

func TestInvoke_FallbackAfterRepairFails(t *testing.T) {
	gen := &scriptedGenerator{steps: []step{
		{text: `garbage`},
		{err: errors.New("repair unavailable")},
	}}
	inv := NewInvoker(gen, nil, discardLogger())

	got, err := Invoke[sample](context.Background(), inv, sampleCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "fallback" {
		t.Errorf("Name = %q, want fallback", got.Name)
	}
	if len(gen.requests) != 2 {
		t.Errorf("a repair call error should stop the passes, got %d requests", len(gen.requests))
	}
}

func TestInvoke_EmptyCompletionUsesFallback(t *testing.T) {
	gen := &scriptedGenerator{steps: []step{{text: ""}, {text: ""}, {text: ""}}}
	inv := NewInvoker(gen, nil, discardLogger())

	got, err := Invoke[sample](context.Background(), inv, sampleCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "fallback" {
		t.Errorf("Name = %q, want fallback", got.Name)
	}
	if len(gen.requests) != 1+repairPasses {
		t.Errorf("empty output should go through repair once, got %d requests", len(gen.requests))
	}
}

func TestInvoke_RepairedButInvalidUsesFallback(t *testing.T) {
	gen := &scriptedGenerator{steps: []step{
		{text: `{"count": 1}`},
		{text: `{"count": 2}`}, // parses as object, still invalid
	}}
	inv := NewInvoker(gen, nil, discardLogger())

	got, err := Invoke[sample](context.Background(), inv, sampleCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "fallback" {
		t.Errorf("Name = %q, want fallback", got.Name)
	}
}

func TestInvoke_RetriesGenerationErrors(t *testing.T) {
	var failures []int
	gen := &scriptedGenerator{steps: []step{
		{err: errors.New("boom 1")},
		{err: errors.New("boom 2")},
		{text: `{"name":"third time"}`},
	}}
	inv := NewInvoker(gen, nil, discardLogger()).WithRetryPolicy(RetryPolicy{
		MaxRetries: 2,
		OnFailure:  func(attempt int, _ error) { failures = append(failures, attempt) },
	})

	got, err := Invoke[sample](context.Background(), inv, sampleCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "third time" {
		t.Errorf("Name = %q", got.Name)
	}
	if len(failures) != 2 || failures[0] != 1 || failures[1] != 2 {
		t.Errorf("failure hook calls = %v, want [1 2]", failures)
	}
}

func TestInvoke_ExhaustedReturnsLastError(t *testing.T) {
	gen := &scriptedGenerator{steps: []step{
		{err: errors.New("boom 1")},
		{err: errors.New("boom 2")},
		{err: errors.New("boom 3")},
	}}
	inv := NewInvoker(gen, nil, discardLogger())

	_, err := Invoke[sample](context.Background(), inv, sampleCall())
	if err == nil || !strings.Contains(err.Error(), "boom 3") {
		t.Fatalf("expected last error, got %v", err)
	}
	if len(gen.requests) != 3 {
		t.Errorf("requests = %d, want 3", len(gen.requests))
	}
}

func TestInvoke_ExtractOnly(t *testing.T) {
	gen := &scriptedGenerator{steps: []step{{text: `oops`}}}
	inv := NewInvoker(gen, nil, discardLogger())

	call := sampleCall()
	call.ExtractOnly = true
	got, err := Invoke[sample](context.Background(), inv, call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "fallback" {
		t.Errorf("Name = %q, want fallback", got.Name)
	}
	if len(gen.requests) != 1 {
		t.Errorf("extract-only repair must not call the model, got %d requests", len(gen.requests))
	}
}

func TestInvokerText(t *testing.T) {
	gen := &scriptedGenerator{steps: []step{{err: errors.New("flaky")}, {text: "plain words"}}}
	inv := NewInvoker(gen, NewModelRegistry("general", nil), discardLogger())

	got, err := inv.Text(context.Background(), TextCall{Agent: "archivist", System: "S", User: "U"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "plain words" {
		t.Errorf("Text() = %q", got)
	}
	if gen.requests[1].Model != "general" {
		t.Errorf("model = %q, want general", gen.requests[1].Model)
	}
}
