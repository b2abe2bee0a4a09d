package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/adventure-engine/internal/catalog"
	"github.com/jwebster45206/adventure-engine/internal/worker"
)

// maxBodyBytes caps request bodies; histories are the largest payloads.
const maxBodyBytes = 4 << 20

type ErrorResponse struct {
	ErrorMessage string `json:"error_message"`
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, status int, message string) {
	writeJSON(w, log, status, ErrorResponse{ErrorMessage: message})
}

// writeServiceError maps use-case errors to status codes. Anything
// unrecognised is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, worker.ErrInvalidRequest), errors.Is(err, catalog.ErrUnknownWorld):
		log.Warn("Rejected request", "path", r.URL.Path, "error", err)
		writeError(w, log, http.StatusBadRequest, err.Error())
	case errors.Is(err, worker.ErrSessionNotFound):
		writeError(w, log, http.StatusNotFound, worker.ErrSessionNotFound.Error())
	case errors.Is(err, worker.ErrLootNotFound):
		writeError(w, log, http.StatusNotFound, worker.ErrLootNotFound.Error())
	case errors.Is(err, worker.ErrArchiveFailed):
		log.Error("Archive failed", "error", err)
		writeError(w, log, http.StatusInternalServerError, worker.ErrArchiveFailed.Error())
	default:
		log.Error("Request failed", "path", r.URL.Path, "error", err)
		writeError(w, log, http.StatusInternalServerError, "Internal Server Error")
	}
}

// decodeBody reads a JSON body into v. strict rejects unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(v)
}
