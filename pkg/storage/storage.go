package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/settlement"
)

// Store persists game sessions. Callers always read, modify and write
// whole sessions.
type Store interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Get returns nil, nil when the session does not exist.
	Get(ctx context.Context, id uuid.UUID) (*game.Session, error)
	// Create assigns a new id and timestamps, stores and returns the session.
	Create(ctx context.Context, s *game.Session) (*game.Session, error)
	// Save upserts the full session and bumps UpdatedAt.
	Save(ctx context.Context, s *game.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AtlasRecord is a lore entry as kept across runs.
type AtlasRecord struct {
	ID            string             `json:"id"`
	Topic         string             `json:"topic"`
	Category      game.AtlasCategory `json:"category"`
	Description   string             `json:"description"`
	SourceWorldID string             `json:"source_world_id"`
	UnlockedAt    time.Time          `json:"unlocked_at"`
}

// RunRecord is a settled run.
type RunRecord struct {
	ID            string                `json:"id"`
	WorldID       string                `json:"world_id"`
	Summary       string                `json:"summary"`
	Outcome       settlement.RunOutcome `json:"outcome"`
	TurnsSurvived int                   `json:"turns_survived"`
	RecordedAt    time.Time             `json:"recorded_at"`
}

// AtlasStore keeps cross-run knowledge. Topics are unique regardless of
// case; adding a known topic is a no-op.
type AtlasStore interface {
	AddEntries(ctx context.Context, worldID string, entries []settlement.AtlasEntry) (added int, err error)
	AddRunSummary(ctx context.Context, summary settlement.RunSummary) error
	Entries(ctx context.Context) ([]AtlasRecord, error)
	RunSummaries(ctx context.Context) ([]RunRecord, error)
	Topics(ctx context.Context) ([]string, error)
	Close() error
}
