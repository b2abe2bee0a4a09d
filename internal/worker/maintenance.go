package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/internal/services/events"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/queue"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

// Runner executes one maintenance task.
type Runner interface {
	Run(ctx context.Context, task *queue.Task) error
}

// Maintenance holds the background jobs that keep a session compact and
// its sensory snapshot fresh. Both jobs re-read the session right before
// saving so turns played in the meantime are kept.
type Maintenance struct {
	store      storage.Store
	compressor *engine.Compressor
	envgen     *engine.EnvStateGenerator
	publisher  events.Publisher
	logger     *slog.Logger
}

var _ Runner = (*Maintenance)(nil)

func NewMaintenance(store storage.Store, compressor *engine.Compressor, envgen *engine.EnvStateGenerator, publisher events.Publisher, logger *slog.Logger) *Maintenance {
	return &Maintenance{
		store:      store,
		compressor: compressor,
		envgen:     envgen,
		publisher:  publisher,
		logger:     logger,
	}
}

func (m *Maintenance) Run(ctx context.Context, task *queue.Task) error {
	switch task.Type {
	case queue.TaskCompress:
		return m.CompressSession(ctx, task.SessionID, task.Turn)
	case queue.TaskEnvState:
		return m.RefreshEnvState(ctx, task.SessionID, task.Turn, task.Narrative, task.WorldState)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

func (m *Maintenance) get(ctx context.Context, id uuid.UUID) (*game.Session, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// CompressSession folds the oldest 40% of history into the summary. A task
// for a turn that is no longer due is a no-op.
func (m *Maintenance) CompressSession(ctx context.Context, id uuid.UUID, turn int) error {
	sess, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	if !engine.ShouldCompress(turn, sess.LastCompressionTurn) {
		m.logger.Debug("compression no longer due", "session_id", id.String(), "turn", turn)
		return nil
	}
	older, _ := engine.SplitHistory(sess.History)
	if len(older) == 0 {
		return nil
	}

	summary := m.compressor.Compress(ctx, older, sess.CompressedHistory)

	latest, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	latest.History = dropCompressed(latest.History, older)
	latest.CompressedHistory = summary
	latest.LastCompressionTurn = turn
	if err := m.store.Save(ctx, latest); err != nil {
		return fmt.Errorf("failed to save compressed session: %w", err)
	}
	m.logger.Info("history compressed", "session_id", id.String(), "turn", turn,
		"compressed", len(older), "remaining", len(latest.History))

	m.publish(ctx, id, events.CompressionCompleted(id, turn, summary))
	return nil
}

// dropCompressed removes the leading items of history that were folded into
// the summary. Items appended after the snapshot was taken survive.
func dropCompressed(history, compressed []game.HistoryItem) []game.HistoryItem {
	n := 0
	for n < len(compressed) && n < len(history) && history[n].Verdict.TurnID == compressed[n].Verdict.TurnID {
		n++
	}
	return append([]game.HistoryItem{}, history[n:]...)
}

// RefreshEnvState derives a new sensory snapshot from the narrative of the
// turn that triggered the task.
func (m *Maintenance) RefreshEnvState(ctx context.Context, id uuid.UUID, turn int, narrative string, world *game.WorldState) error {
	sess, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	if !engine.ShouldRefreshEnvState(turn, sess.LastEnvStateTurn) {
		m.logger.Debug("envstate refresh no longer due", "session_id", id.String(), "turn", turn)
		return nil
	}

	// Prefer the world the narrative was written against
	if world == nil {
		world = &sess.WorldState
	}
	env := m.envgen.Generate(ctx, narrative, *world)

	latest, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	if latest.LastEnvStateTurn != nil && *latest.LastEnvStateTurn >= turn {
		return nil
	}
	latest.EnvState = &env
	latest.LastEnvStateTurn = &turn
	if err := m.store.Save(ctx, latest); err != nil {
		return fmt.Errorf("failed to save envstate: %w", err)
	}
	m.logger.Info("envstate refreshed", "session_id", id.String(), "turn", turn, "senses", len(env.Senses))

	m.publish(ctx, id, events.EnvStateUpdated(id, turn, env))
	return nil
}

func (m *Maintenance) publish(ctx context.Context, id uuid.UUID, event events.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, id, event); err != nil {
		m.logger.Error("failed to publish event", "session_id", id.String(), "type", event.Type, "error", err)
	}
}
