package services

import (
	"context"
	"strings"
	"sync"

	"github.com/jwebster45206/adventure-engine/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing. Responses
// are routed by a marker substring of the request's system prompt.
type MockLLMAPI struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	GenerateFunc  func(ctx context.Context, req *chat.Request) (*chat.Response, error)

	// Track calls for testing
	InitModelCalls []string
	GenerateCalls  []*chat.Request

	routes   []mockRoute
	fallback string
	mu       sync.Mutex // protects all fields above
}

type mockRoute struct {
	marker  string
	content string
	err     error
}

var _ LLMService = (*MockLLMAPI)(nil)

// NewMockLLMAPI creates a new mock LLM service. Unrouted requests get "{}".
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		InitModelCalls: make([]string, 0),
		GenerateCalls:  make([]*chat.Request, 0),
		fallback:       "{}",
	}
}

// On answers requests whose system prompt contains marker with content.
// Later routes win over earlier ones for the same marker.
func (m *MockLLMAPI) On(marker, content string) *MockLLMAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append([]mockRoute{{marker: marker, content: content}}, m.routes...)
	return m
}

// Fail makes requests whose system prompt contains marker return err.
func (m *MockLLMAPI) Fail(marker string, err error) *MockLLMAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append([]mockRoute{{marker: marker, err: err}}, m.routes...)
	return m
}

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	m.InitModelCalls = append(m.InitModelCalls, modelName)
	fn := m.InitModelFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, modelName)
	}
	return nil
}

// Generate mocks a completion
func (m *MockLLMAPI) Generate(ctx context.Context, req *chat.Request) (*chat.Response, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, req)
	fn := m.GenerateFunc
	routes := m.routes
	fallback := m.fallback
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, r := range routes {
		if strings.Contains(req.System, r.marker) {
			if r.err != nil {
				return nil, r.err
			}
			return &chat.Response{Content: r.content, Model: req.Model}, nil
		}
	}
	return &chat.Response{Content: fallback, Model: req.Model}, nil
}

// CallsMatching counts generate calls whose system prompt contains marker.
func (m *MockLLMAPI) CallsMatching(marker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.GenerateCalls {
		if strings.Contains(c.System, marker) {
			n++
		}
	}
	return n
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.GenerateCalls = make([]*chat.Request, 0)
}

// SetInitModelError sets up the mock to return an error on InitModel
func (m *MockLLMAPI) SetInitModelError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelFunc = func(ctx context.Context, modelName string) error {
		return err
	}
}

// SetGenerateError sets up the mock to return an error on every Generate
func (m *MockLLMAPI) SetGenerateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = func(ctx context.Context, req *chat.Request) (*chat.Response, error) {
		return nil, err
	}
}
