package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/internal/worker"
	"github.com/jwebster45206/adventure-engine/pkg/game"
)

// EventTimeout is max time to wait for a maintenance event after a turn
const EventTimeout = 60 * time.Second

// postJSON sends body to path and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// StartGame opens a new session in the given world.
func StartGame(ctx context.Context, client *http.Client, baseURL, world string, lore []string) (*worker.StartResponse, error) {
	var out worker.StartResponse
	req := worker.StartRequest{WorldTemplateID: world, KnownLore: lore}
	if err := postJSON(ctx, client, baseURL+"/v1/game/start", req, &out); err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}
	return &out, nil
}

// PlayTurn submits one action for the session.
func PlayTurn(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID, action game.PlayerAction, lore []string) (*worker.TurnResponse, error) {
	var out worker.TurnResponse
	req := worker.TurnRequest{SessionID: sessionID, PlayerAction: action, KnownLore: lore}
	if err := postJSON(ctx, client, baseURL+"/v1/game/turn", req, &out); err != nil {
		return nil, fmt.Errorf("failed to play turn: %w", err)
	}
	return &out, nil
}

// GetSession retrieves the player's view of a session
func GetSession(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) (*worker.SessionView, error) {
	url := fmt.Sprintf("%s/v1/game/session/%s", baseURL, sessionID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get session returned %d: %s", resp.StatusCode, string(body))
	}

	var view worker.SessionView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &view, nil
}

// EventStream is an open SSE connection for one session.
type EventStream struct {
	events chan string
	errc   chan error
	cancel context.CancelFunc
}

// OpenEventStream connects to the session's event stream and returns once
// the server has confirmed the subscription.
func OpenEventStream(ctx context.Context, baseURL string, sessionID uuid.UUID) (*EventStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	url := fmt.Sprintf("%s/v1/events/session/%s", baseURL, sessionID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create event request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout; the stream stays open until cancel
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("event stream returned %d: %s", resp.StatusCode, string(body))
	}

	s := &EventStream{
		events: make(chan string, 16),
		errc:   make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		defer func() { _ = resp.Body.Close() }()
		defer close(s.events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if eventType, ok := strings.CutPrefix(line, "event: "); ok {
				select {
				case s.events <- eventType:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			s.errc <- err
		}
	}()

	if _, err := s.Wait(ctx, "connected", EventTimeout); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Wait blocks until an event of the given type arrives. A task.failed event
// ends the wait with an error.
func (s *EventStream) Wait(ctx context.Context, eventType string, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case got, ok := <-s.events:
			if !ok {
				select {
				case err := <-s.errc:
					return "", fmt.Errorf("event stream failed: %w", err)
				default:
					return "", fmt.Errorf("event stream closed before %s", eventType)
				}
			}
			if got == eventType {
				return got, nil
			}
			if got == "task.failed" {
				return got, fmt.Errorf("maintenance task failed while waiting for %s", eventType)
			}
		case <-timer.C:
			return "", fmt.Errorf("timeout waiting for %s", eventType)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Close ends the stream.
func (s *EventStream) Close() {
	s.cancel()
}
