package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/adventure-engine/internal/services/events"
	"github.com/jwebster45206/adventure-engine/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 30 * time.Second
	requeueDelay  = 250 * time.Millisecond

	// jobTimeout must stay below lockTTL so a job never outlives its lock
	jobTimeout = 25 * time.Second

	// MaxAttempts is how many times a failing task runs before it is dropped
	MaxAttempts = 3
)

// TaskSource is the consuming side of the task queue.
type TaskSource interface {
	Enqueuer
	BlockingDequeue(ctx context.Context, timeout time.Duration) (*queue.Task, error)
}

// releaseScript deletes the lock only if we still own it
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Worker processes maintenance tasks from the queue
type Worker struct {
	id          string
	tasks       TaskSource
	runner      Runner
	publisher   events.Publisher
	redisClient *redis.Client
	log         *slog.Logger
	pollTimeout time.Duration
	jobTimeout  time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(tasks TaskSource, runner Runner, redisClient *redis.Client, publisher events.Publisher, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		tasks:       tasks,
		runner:      runner,
		publisher:   publisher,
		redisClient: redisClient,
		log:         log,
		pollTimeout: workerTimeout,
		jobTimeout:  jobTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker's lock owner id
func (w *Worker) ID() string {
	return w.id
}

// Start processes tasks until Stop is called
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextTask(); err != nil {
				w.log.Error("Error processing task", "error", err, "worker_id", w.id)
				w.sleep(time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.ctx.Done():
	case <-time.After(d):
	}
}

// processNextTask pulls the next task from the queue and runs it under the
// session lock
func (w *Worker) processNextTask() error {
	ctx, cancel := context.WithTimeout(w.ctx, w.pollTimeout+time.Second)
	defer cancel()

	task, err := w.tasks.BlockingDequeue(ctx, w.pollTimeout)
	if err != nil {
		if w.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to dequeue task: %w", err)
	}
	if task == nil {
		return nil
	}

	w.log.Info("Received task from queue",
		"worker_id", w.id,
		"task_id", task.TaskID,
		"type", task.Type,
		"session_id", task.SessionID.String(),
	)

	locked, err := w.acquireSessionLock(task.SessionID)
	if err != nil {
		return fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !locked {
		// Another worker holds this session; put the task at the back
		w.log.Info("Session locked, re-queueing task",
			"worker_id", w.id,
			"task_id", task.TaskID,
			"session_id", task.SessionID.String(),
		)
		if err := w.tasks.Enqueue(w.ctx, task); err != nil {
			return fmt.Errorf("failed to re-queue task: %w", err)
		}
		w.sleep(requeueDelay)
		return nil
	}

	defer w.releaseSessionLock(task.SessionID)
	w.runTask(task)
	return nil
}

func (w *Worker) runTask(task *queue.Task) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(w.ctx, w.jobTimeout)
	err := w.runner.Run(ctx, task)
	cancel()
	if err == nil {
		w.log.Info("Task processed successfully",
			"worker_id", w.id,
			"task_id", task.TaskID,
			"type", task.Type,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	task.Attempts++
	w.log.Error("Task failed",
		"worker_id", w.id,
		"task_id", task.TaskID,
		"attempts", task.Attempts,
		"error", err,
	)
	if task.Attempts < MaxAttempts && w.ctx.Err() == nil {
		qErr := w.tasks.Enqueue(w.ctx, task)
		if qErr == nil {
			return
		}
		w.log.Error("Failed to re-queue failed task", "task_id", task.TaskID, "error", qErr)
	}
	if w.publisher != nil {
		if pubErr := w.publisher.Publish(w.ctx, task.SessionID, events.TaskFailed(task.SessionID, string(task.Type), err)); pubErr != nil {
			w.log.Error("Failed to publish failure event", "error", pubErr)
		}
	}
}

func sessionLockKey(id uuid.UUID) string {
	return fmt.Sprintf("session-lock:%s", id.String())
}

// acquireSessionLock returns true if the lock was acquired, false if it is
// already held
func (w *Worker) acquireSessionLock(id uuid.UUID) (bool, error) {
	return w.redisClient.SetNX(w.ctx, sessionLockKey(id), w.id, lockTTL).Result()
}

func (w *Worker) releaseSessionLock(id uuid.UUID) {
	// Released with a fresh context so a stopping worker still frees its lock
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, w.redisClient, []string{sessionLockKey(id)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release session lock", "error", err, "session_id", id.String())
	}
}
