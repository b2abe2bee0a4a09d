package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jwebster45206/adventure-engine/internal/services/events"
	queueSvc "github.com/jwebster45206/adventure-engine/internal/services/queue"
	"github.com/jwebster45206/adventure-engine/pkg/queue"
)

type testQueue struct {
	mr     *miniredis.Miniredis
	client *queueSvc.Client
	tasks  *queueSvc.TaskQueue
}

func setupQueue(t *testing.T) *testQueue {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client, err := queueSvc.NewClient(context.Background(), "redis://"+mr.Addr(), testLogger())
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create queue client: %v", err)
	}
	return &testQueue{mr: mr, client: client, tasks: queueSvc.NewTaskQueue(client)}
}

func (q *testQueue) close() {
	_ = q.client.Close()
	q.mr.Close()
}

func newTestWorker(q *testQueue, runner Runner, pub events.Publisher) *Worker {
	w := New(q.tasks, runner, q.client.GetRedisClient(), pub, testLogger(), "worker-test")
	w.pollTimeout = time.Second // BLPOP has one-second resolution
	return w
}

// runWorker starts w and returns a func that stops it and waits for Start
// to return.
func runWorker(t *testing.T, w *Worker) func() {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- w.Start() }()
	return func() {
		w.Stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
	}
}

type countingRunner struct {
	mu    sync.Mutex
	tasks []*queue.Task
	err   error
	ran   chan struct{}
}

func newCountingRunner(err error) *countingRunner {
	return &countingRunner{err: err, ran: make(chan struct{}, 16)}
}

func (r *countingRunner) Run(_ context.Context, task *queue.Task) error {
	r.mu.Lock()
	r.tasks = append(r.tasks, task)
	r.mu.Unlock()
	r.ran <- struct{}{}
	return r.err
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func waitFor(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out after %d of %d runs", i, n)
		}
	}
}

func TestWorker_ProcessesTasks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	q := setupQueue(t)
	defer q.close()

	runner := newCountingRunner(nil)
	w := newTestWorker(q, runner, nil)
	stop := runWorker(t, w)

	id := uuid.New()
	require.NoError(t, q.tasks.Enqueue(context.Background(), queue.NewTask(queue.TaskCompress, id, 10)))
	require.NoError(t, q.tasks.Enqueue(context.Background(), queue.NewTask(queue.TaskEnvState, id, 10)))
	waitFor(t, runner.ran, 2)
	stop()

	assert.Equal(t, 2, runner.count())
	assert.Equal(t, queue.TaskCompress, runner.tasks[0].Type)
	assert.False(t, q.mr.Exists(sessionLockKey(id)), "lock released after each task")
}

func TestWorker_RequeuesLockedSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	q := setupQueue(t)
	defer q.close()

	id := uuid.New()
	require.NoError(t, q.mr.Set(sessionLockKey(id), "someone-else"))

	runner := newCountingRunner(nil)
	w := newTestWorker(q, runner, nil)
	stop := runWorker(t, w)
	defer stop()

	require.NoError(t, q.tasks.Enqueue(context.Background(), queue.NewTask(queue.TaskCompress, id, 10)))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, runner.count(), "locked sessions are not processed")

	// The other owner finishes; the re-queued task now runs
	q.mr.Del(sessionLockKey(id))
	waitFor(t, runner.ran, 1)
	assert.Equal(t, 1, runner.count())
}

func TestWorker_DoesNotReleaseForeignLock(t *testing.T) {
	q := setupQueue(t)
	defer q.close()

	w := newTestWorker(q, newCountingRunner(nil), nil)
	id := uuid.New()

	ok, err := w.acquireSessionLock(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, lockTTL, q.mr.TTL(sessionLockKey(id)))

	ok, err = w.acquireSessionLock(id)
	require.NoError(t, err)
	assert.False(t, ok, "the lock is not reentrant")

	require.NoError(t, q.mr.Set(sessionLockKey(id), "other-worker"))
	w.releaseSessionLock(id)
	got, err := q.mr.Get(sessionLockKey(id))
	require.NoError(t, err)
	assert.Equal(t, "other-worker", got)
}

func TestWorker_RetriesThenReportsFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	q := setupQueue(t)
	defer q.close()

	pub := &recordingPublisher{}
	runner := newCountingRunner(errors.New("store down"))
	w := newTestWorker(q, runner, pub)
	stop := runWorker(t, w)

	id := uuid.New()
	require.NoError(t, q.tasks.Enqueue(context.Background(), queue.NewTask(queue.TaskEnvState, id, 10)))
	waitFor(t, runner.ran, MaxAttempts)
	require.Eventually(t, func() bool { return len(pub.published()) == 1 }, 3*time.Second, 20*time.Millisecond)
	stop()

	assert.Equal(t, MaxAttempts, runner.count())
	evs := pub.published()
	assert.Equal(t, events.EventTypeTaskFailed, evs[0].Type)
	assert.Equal(t, string(queue.TaskEnvState), evs[0].Data["type"])

	depth, err := q.tasks.Depth(context.Background())
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestWorker_JobDeadlineWithinLockTTL(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	q := setupQueue(t)
	defer q.close()

	type window struct {
		job, lock time.Duration
		ok        bool
	}
	seen := make(chan window, 1)
	runner := runnerFunc(func(ctx context.Context, task *queue.Task) error {
		d, ok := ctx.Deadline()
		seen <- window{job: time.Until(d), lock: q.mr.TTL(sessionLockKey(task.SessionID)), ok: ok}
		return nil
	})
	w := newTestWorker(q, runner, nil)
	stop := runWorker(t, w)

	require.NoError(t, q.tasks.Enqueue(context.Background(), queue.NewTask(queue.TaskCompress, uuid.New(), 10)))
	var got window
	select {
	case got = <-seen:
	case <-time.After(3 * time.Second):
		t.Fatal("task did not run")
	}

	// Past the TTL the lock is gone, so the job must already be over
	id := uuid.New()
	ok, err := w.acquireSessionLock(id)
	require.NoError(t, err)
	require.True(t, ok)
	q.mr.FastForward(lockTTL)
	assert.False(t, q.mr.Exists(sessionLockKey(id)))
	stop()

	require.True(t, got.ok, "jobs run with a deadline")
	assert.Equal(t, lockTTL, got.lock)
	assert.Less(t, got.job, got.lock, "the job deadline falls before the lock expires")
}

func TestWorker_SlowJobIsCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	q := setupQueue(t)
	defer q.close()

	ran := make(chan struct{}, MaxAttempts)
	runner := runnerFunc(func(ctx context.Context, _ *queue.Task) error {
		<-ctx.Done()
		ran <- struct{}{}
		return ctx.Err()
	})
	pub := &recordingPublisher{}
	w := newTestWorker(q, runner, pub)
	w.jobTimeout = 50 * time.Millisecond
	stop := runWorker(t, w)

	id := uuid.New()
	require.NoError(t, q.tasks.Enqueue(context.Background(), queue.NewTask(queue.TaskEnvState, id, 10)))
	waitFor(t, ran, MaxAttempts)
	require.Eventually(t, func() bool { return len(pub.published()) == 1 }, 3*time.Second, 20*time.Millisecond)
	stop()

	evs := pub.published()
	assert.Equal(t, events.EventTypeTaskFailed, evs[0].Type)
	assert.Contains(t, evs[0].Data["error"], "deadline exceeded")
	assert.False(t, q.mr.Exists(sessionLockKey(id)))
}

func TestWorker_DefaultID(t *testing.T) {
	q := setupQueue(t)
	defer q.close()

	w := New(q.tasks, newCountingRunner(nil), q.client.GetRedisClient(), nil, testLogger(), "")
	assert.Regexp(t, `^worker-[0-9a-f]{8}$`, w.ID())
}
