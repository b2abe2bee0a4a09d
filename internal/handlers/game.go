package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/internal/worker"
	"github.com/jwebster45206/adventure-engine/pkg/settlement"
)

// requestTimeout bounds a whole request, including every agent call of a
// turn.
const requestTimeout = 5 * time.Minute

// GameService is the set of use cases behind /v1/game.
type GameService interface {
	Start(ctx context.Context, req worker.StartRequest) (*worker.StartResponse, error)
	Turn(ctx context.Context, req worker.TurnRequest) (*worker.TurnResponse, error)
	Prefetch(ctx context.Context, req worker.PrefetchRequest) (map[string]worker.PrefetchResult, error)
	Sync(ctx context.Context, req worker.SyncRequest) (*worker.SyncResponse, error)
	Compress(ctx context.Context, req worker.CompressRequest) (*worker.CompressResponse, error)
	Settle(ctx context.Context, req worker.SettleRequest) (*worker.SettleResponse, error)
	Archive(ctx context.Context, req worker.ArchiveRequest) (*settlement.Archive, error)
	Atlas(ctx context.Context) (*worker.AtlasView, error)
	Session(ctx context.Context, id uuid.UUID) (*worker.SessionView, error)
}

var _ GameService = (*worker.GameService)(nil)

type GameHandler struct {
	svc     GameService
	logger  *slog.Logger
	timeout time.Duration
}

func NewGameHandler(svc GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{svc: svc, logger: logger, timeout: requestTimeout}
}

// ServeHTTP routes game requests
// Routes:
// POST /v1/game/start
// POST /v1/game/turn
// POST /v1/game/prefetch
// POST /v1/game/sync
// POST /v1/game/compress
// POST /v1/game/settle
// POST /v1/game/atlas          - extract lore from a history
// GET  /v1/game/atlas          - lore and runs recorded so far
// GET  /v1/game/session/{id}
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/game"), "/"), "/")

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	r = r.WithContext(ctx)

	route := parts[0]
	if route == "session" {
		h.handleSession(w, r, parts[1:])
		return
	}
	if route == "atlas" && r.Method == http.MethodGet {
		h.handleAtlasView(w, r)
		return
	}
	if len(parts) != 1 {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	switch route {
	case "start":
		h.handleStart(w, r)
	case "turn":
		h.handleTurn(w, r)
	case "prefetch":
		h.handlePrefetch(w, r)
	case "sync":
		h.handleSync(w, r)
	case "compress":
		h.handleCompress(w, r)
	case "settle":
		h.handleSettle(w, r)
	case "atlas":
		h.handleArchive(w, r)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *GameHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req worker.StartRequest
	if err := decodeBody(w, r, &req, true); err != nil && err != io.EOF {
		h.logger.Warn("Invalid start request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, err := h.svc.Start(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *GameHandler) handleTurn(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	req, err := worker.ParseTurnRequest(body)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	resp, err := h.svc.Turn(r.Context(), *req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *GameHandler) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	var req worker.PrefetchRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Missing session_id or options array")
		return
	}
	resp, err := h.svc.Prefetch(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *GameHandler) handleSync(w http.ResponseWriter, r *http.Request) {
	var req worker.SyncRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, err := h.svc.Sync(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *GameHandler) handleCompress(w http.ResponseWriter, r *http.Request) {
	var req worker.CompressRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, err := h.svc.Compress(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *GameHandler) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req worker.SettleRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	resp, err := h.svc.Settle(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *GameHandler) handleArchive(w http.ResponseWriter, r *http.Request) {
	var req worker.ArchiveRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, err := h.svc.Archive(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *GameHandler) handleAtlasView(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Atlas(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, view)
}

func (h *GameHandler) handleSession(w http.ResponseWriter, r *http.Request, rest []string) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}
	if len(rest) != 1 {
		writeError(w, h.logger, http.StatusBadRequest, "Session ID is required")
		return
	}
	id, err := uuid.Parse(rest[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", rest[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}
	view, err := h.svc.Session(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, view)
}
