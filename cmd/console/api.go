package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/internal/worker"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/settlement"
)

type ErrorResponse struct {
	ErrorMessage string `json:"error_message"`
}

type apiClient struct {
	baseURL string
	http    *http.Client
	// stream has no timeout; SSE connections stay open
	stream *http.Client
}

func newAPIClient(cfg *ConsoleConfig) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		stream:  &http.Client{},
	}
}

func (c *apiClient) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends body as JSON and decodes a 200 response into out.
func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.ErrorMessage == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.ErrorMessage)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) startGame(worldID string) (*worker.StartResponse, error) {
	var resp worker.StartResponse
	if err := c.do(http.MethodPost, "/v1/game/start", worker.StartRequest{WorldTemplateID: worldID}, &resp); err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}
	return &resp, nil
}

func (c *apiClient) playTurn(sessionID uuid.UUID, action game.PlayerAction) (*worker.TurnResponse, error) {
	var resp worker.TurnResponse
	req := worker.TurnRequest{SessionID: sessionID, PlayerAction: action}
	if err := c.do(http.MethodPost, "/v1/game/turn", req, &resp); err != nil {
		return nil, fmt.Errorf("turn failed: %w", err)
	}
	return &resp, nil
}

func (c *apiClient) settle(sessionID uuid.UUID, outcome settlement.Outcome, history []game.HistoryItem) (*worker.SettleResponse, error) {
	var resp worker.SettleResponse
	req := worker.SettleRequest{SessionID: sessionID, Outcome: outcome, GameHistory: history}
	if err := c.do(http.MethodPost, "/v1/game/settle", req, &resp); err != nil {
		return nil, fmt.Errorf("settlement failed: %w", err)
	}
	return &resp, nil
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type string
	Data json.RawMessage
}

// listenToSSE connects to the session's event stream and forwards events
// until ctx ends or the stream closes.
func (c *apiClient) listenToSSE(ctx context.Context, sessionID uuid.UUID, eventChan chan<- SSEEvent) error {
	url := fmt.Sprintf("%s/v1/events/session/%s", c.baseURL, sessionID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	return readSSE(ctx, resp.Body, eventChan)
}

func readSSE(ctx context.Context, r io.Reader, eventChan chan<- SSEEvent) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var current SSEEvent

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Empty line ends an event
			if current.Type != "" {
				select {
				case eventChan <- current:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			current = SSEEvent{}
		case strings.HasPrefix(line, "event: "):
			current.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.Data = json.RawMessage(strings.TrimPrefix(line, "data: "))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
