package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/adventure-engine/internal/services/events"
	"github.com/jwebster45206/adventure-engine/pkg/queue"
)

// DefaultJobTimeout bounds a single maintenance job.
const DefaultJobTimeout = 2 * time.Minute

// publishTimeout bounds the failure event sent after a job ends.
const publishTimeout = 5 * time.Second

// LocalExecutor runs tasks on goroutines inside the API process. Jobs get a
// context detached from the request that submitted them.
type LocalExecutor struct {
	runner    Runner
	publisher events.Publisher
	logger    *slog.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

var _ Executor = (*LocalExecutor)(nil)

func NewLocalExecutor(runner Runner, publisher events.Publisher, logger *slog.Logger) *LocalExecutor {
	return &LocalExecutor{
		runner:    runner,
		publisher: publisher,
		logger:    logger,
		timeout:   DefaultJobTimeout,
	}
}

func (e *LocalExecutor) Submit(ctx context.Context, task *queue.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	jobCtx := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("maintenance task panicked", "task_id", task.TaskID, "type", task.Type, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(jobCtx, e.timeout)
		defer cancel()

		start := time.Now()
		if err := e.runner.Run(ctx, task); err != nil {
			e.logger.Error("maintenance task failed",
				"task_id", task.TaskID,
				"type", task.Type,
				"session_id", task.SessionID.String(),
				"error", err,
			)
			if e.publisher != nil {
				// The job context may already be expired
				pubCtx, pubCancel := context.WithTimeout(jobCtx, publishTimeout)
				defer pubCancel()
				if pubErr := e.publisher.Publish(pubCtx, task.SessionID, events.TaskFailed(task.SessionID, string(task.Type), err)); pubErr != nil {
					e.logger.Error("failed to publish task failure", "task_id", task.TaskID, "error", pubErr)
				}
			}
			return
		}
		e.logger.Debug("maintenance task done", "task_id", task.TaskID, "type", task.Type,
			"duration_ms", time.Since(start).Milliseconds())
	}()
	return nil
}

// Wait blocks until every submitted task has finished.
func (e *LocalExecutor) Wait() {
	e.wg.Wait()
}

// Enqueuer is the producing side of the task queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *queue.Task) error
}

// QueueExecutor hands tasks to the Redis queue for cmd/worker to run.
type QueueExecutor struct {
	queue Enqueuer
}

var _ Executor = (*QueueExecutor)(nil)

func NewQueueExecutor(q Enqueuer) *QueueExecutor {
	return &QueueExecutor{queue: q}
}

func (e *QueueExecutor) Submit(ctx context.Context, task *queue.Task) error {
	return e.queue.Enqueue(ctx, task)
}
