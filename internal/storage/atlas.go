package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/settlement"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

// SQLiteAtlas keeps the cross-run atlas and run history.
type SQLiteAtlas struct {
	db *sql.DB
}

var _ storage.AtlasStore = (*SQLiteAtlas)(nil)

func NewSQLiteAtlas(ctx context.Context, path string) (*SQLiteAtlas, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	a := &SQLiteAtlas{db: db}
	if err := a.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return a, nil
}

func (a *SQLiteAtlas) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS atlas_entries (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL UNIQUE COLLATE NOCASE,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		source_world_id TEXT NOT NULL,
		unlocked_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_summaries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		world_id TEXT NOT NULL,
		summary TEXT NOT NULL,
		outcome TEXT NOT NULL,
		turns_survived INTEGER NOT NULL,
		recorded_at TEXT NOT NULL
	);`
	_, err := a.db.ExecContext(ctx, schema)
	return err
}

func (a *SQLiteAtlas) AddEntries(ctx context.Context, worldID string, entries []settlement.AtlasEntry) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	added := 0
	for _, e := range entries {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO atlas_entries (id, topic, category, description, source_world_id, unlocked_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(topic) DO NOTHING`,
			uuid.NewString(), e.Topic, string(e.Category), e.Description, worldID, now)
		if err != nil {
			return 0, fmt.Errorf("insert atlas entry %q: %w", e.Topic, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

func (a *SQLiteAtlas) AddRunSummary(ctx context.Context, s settlement.RunSummary) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO run_summaries (id, world_id, summary, outcome, turns_survived, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), s.WorldID, s.Summary, string(s.Outcome), s.TurnsSurvived,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

func (a *SQLiteAtlas) Entries(ctx context.Context) ([]storage.AtlasRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, topic, category, description, source_world_id, unlocked_at
		FROM atlas_entries ORDER BY unlocked_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query atlas: %w", err)
	}
	defer rows.Close()

	out := []storage.AtlasRecord{}
	for rows.Next() {
		var r storage.AtlasRecord
		var category, unlocked string
		if err := rows.Scan(&r.ID, &r.Topic, &category, &r.Description, &r.SourceWorldID, &unlocked); err != nil {
			return nil, fmt.Errorf("scan atlas entry: %w", err)
		}
		r.Category = game.AtlasCategory(category)
		r.UnlockedAt, _ = time.Parse(time.RFC3339Nano, unlocked)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunSummaries returns the newest run first.
func (a *SQLiteAtlas) RunSummaries(ctx context.Context) ([]storage.RunRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, world_id, summary, outcome, turns_survived, recorded_at
		FROM run_summaries ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []storage.RunRecord{}
	for rows.Next() {
		var r storage.RunRecord
		var outcome, recorded string
		if err := rows.Scan(&r.ID, &r.WorldID, &r.Summary, &outcome, &r.TurnsSurvived, &recorded); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Outcome = settlement.RunOutcome(outcome)
		r.RecordedAt, _ = time.Parse(time.RFC3339Nano, recorded)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (a *SQLiteAtlas) Topics(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT topic FROM atlas_entries ORDER BY unlocked_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	topics := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (a *SQLiteAtlas) Close() error {
	return a.db.Close()
}
