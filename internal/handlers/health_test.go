package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		setupStore     func() Pinger
		queue          Pinger
		expectedStatus int
		expectedHealth string
		expectedStore  string
		expectedQueue  string
	}{
		{
			name: "all healthy",
			setupStore: func() Pinger {
				return storage.NewMemoryStore()
			},
			queue:          pingFunc(func(context.Context) error { return nil }),
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedStore:  "healthy",
			expectedQueue:  "healthy",
		},
		{
			name: "unhealthy store",
			setupStore: func() Pinger {
				s := storage.NewMemoryStore()
				s.SetPingError(errors.New("connection failed"))
				return s
			},
			queue:          pingFunc(func(context.Context) error { return nil }),
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedStore:  "unhealthy",
			expectedQueue:  "healthy",
		},
		{
			name: "unhealthy queue",
			setupStore: func() Pinger {
				return storage.NewMemoryStore()
			},
			queue:          pingFunc(func(context.Context) error { return errors.New("redis down") }),
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedStore:  "healthy",
			expectedQueue:  "unhealthy",
		},
		{
			name: "no queue configured",
			setupStore: func() Pinger {
				return storage.NewMemoryStore()
			},
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedStore:  "healthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			components := map[string]Pinger{"store": tt.setupStore()}
			if tt.queue != nil {
				components["queue"] = tt.queue
			}
			handler := NewHealthHandler(components, testLogger())

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}

			var response HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Status != tt.expectedHealth {
				t.Errorf("expected status %s, got %s", tt.expectedHealth, response.Status)
			}
			if response.Service != "adventure-engine" {
				t.Errorf("expected service adventure-engine, got %s", response.Service)
			}
			if got := response.Components["store"]; got != tt.expectedStore {
				t.Errorf("expected store %s, got %s", tt.expectedStore, got)
			}
			if got, ok := response.Components["queue"]; tt.expectedQueue == "" && ok {
				t.Errorf("expected no queue component, got %s", got)
			} else if got != tt.expectedQueue {
				t.Errorf("expected queue %s, got %s", tt.expectedQueue, got)
			}
		})
	}
}

func TestNewHealthHandler_SkipsNil(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{"store": storage.NewMemoryStore(), "queue": nil}, testLogger())
	if len(h.components) != 1 {
		t.Errorf("expected 1 component, got %d", len(h.components))
	}
}
