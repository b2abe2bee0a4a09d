package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/adventure-engine/pkg/queue"
)

// TasksKey is the Redis list holding pending maintenance tasks.
const TasksKey = "maintenance-tasks"

// TaskQueue is a FIFO of maintenance tasks shared by the API and workers.
type TaskQueue struct {
	client *Client
}

func NewTaskQueue(client *Client) *TaskQueue {
	return &TaskQueue{client: client}
}

// Enqueue appends a task to the end of the queue
func (q *TaskQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}
	data, err := task.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize task: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, TasksKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	q.client.logger.Debug("Enqueued task", "task_id", task.TaskID, "type", task.Type, "session_id", task.SessionID)
	return nil
}

// BlockingDequeue waits up to timeout for the next task. It returns nil, nil
// when the wait times out.
func (q *TaskQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*queue.Task, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, TasksKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue task: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	task, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse task: %w", err)
	}
	return task, nil
}

// Depth returns the number of queued tasks
func (q *TaskQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, TasksKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}
