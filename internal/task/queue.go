package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Func is a callable submitted for background execution. The returned value
// becomes the task's result; a returned error (or a panic) marks the task
// failed. The context is the queue's run context and carries no deadline:
// callables that can hang must impose their own timeouts.
type Func func(ctx context.Context) (any, error)

// QueueConfig holds construction-time settings for a Queue.
type QueueConfig struct {
	// WorkerCount is the number of concurrent workers. Must be at least 1.
	WorkerCount int
}

// DefaultQueueConfig returns the queue defaults.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{WorkerCount: 4}
}

// Queue owns the authoritative task registry and drives the worker pool.
// State transitions for a single task are totally ordered by the registry
// lock; the lock is never held across a handoff into the pool or a call
// into a submitted callable.
type Queue struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
	order []uuid.UUID

	pool     *WorkerPool
	recorder Recorder
	logger   *slog.Logger

	runCtx    context.Context
	runCancel context.CancelFunc

	// now is injectable for deterministic timestamp and cleanup tests.
	now func() time.Time
}

// NewQueue creates a queue with its own worker pool. The recorder may be
// nil, in which case lifecycle events are discarded.
func NewQueue(cfg QueueConfig, recorder Recorder, logger *slog.Logger) (*Queue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = NoopRecorder{}
	}

	pool, err := NewWorkerPool(cfg.WorkerCount, logger)
	if err != nil {
		return nil, err
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	return &Queue{
		tasks:     make(map[uuid.UUID]*Task),
		pool:      pool,
		recorder:  recorder,
		logger:    logger,
		runCtx:    runCtx,
		runCancel: runCancel,
		now:       time.Now,
	}, nil
}

// Stop cancels the run context handed to callables and waits for workers to
// drain. Running callables are not interrupted beyond context cancellation.
func (q *Queue) Stop() {
	q.runCancel()
	q.pool.Stop()
}

// Create registers a new pending task and returns a snapshot of it.
func (q *Queue) Create(taskType, ownerID string) Task {
	t := &Task{
		ID:        uuid.New(),
		Type:      taskType,
		OwnerID:   ownerID,
		Status:    StatusPending,
		Details:   make(map[string]any),
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	q.tasks[t.ID] = t
	q.order = append(q.order, t.ID)
	snap := t.snapshot()
	q.mu.Unlock()

	q.logger.Debug("task created", "task_id", t.ID, "task_type", taskType, "owner_id", ownerID)
	q.recorder.RecordTaskEvent(q.runCtx, EventTaskCreated, snap)
	return snap
}

// Submit hands fn to the worker pool for the pending task id. The task
// stays pending while it sits in the pool backlog and transitions to
// running only when a worker actually begins execution. A second Submit
// for the same id fails with ErrInvalidState.
func (q *Queue) Submit(id uuid.UUID, fn Func) error {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if t.Status != StatusPending || t.submitted {
		status := t.Status
		q.mu.Unlock()
		return fmt.Errorf("%w: cannot submit task %s with status %s", ErrInvalidState, id, status)
	}
	t.submitted = true
	q.mu.Unlock()

	q.pool.Submit(func() {
		q.execute(id, fn)
	})

	q.logger.Info("task submitted", "task_id", id)
	return nil
}

// execute runs on a worker goroutine. Any error or panic from fn is
// contained here and recorded on the task; nothing propagates to the
// submitter or to other tasks.
func (q *Queue) execute(id uuid.UUID, fn Func) {
	if !q.begin(id) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			q.fail(id, ErrorKindPanic, fmt.Sprintf("%v", r))
		}
	}()

	result, err := fn(q.runCtx)
	if err != nil {
		q.fail(id, ErrorKindExecution, err.Error())
		return
	}
	q.complete(id, result)
}

// begin transitions pending -> running. It reports false when the task was
// canceled while waiting in the backlog, in which case the callable is
// skipped entirely.
func (q *Queue) begin(id uuid.UUID) bool {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok || t.Status != StatusPending {
		q.mu.Unlock()
		return false
	}
	started := q.now()
	t.Status = StatusRunning
	t.StartedAt = &started
	snap := t.snapshot()
	q.mu.Unlock()

	q.logger.Info("task started", "task_id", id, "task_type", snap.Type)
	q.recorder.RecordTaskEvent(q.runCtx, EventTaskStarted, snap)
	return true
}

// complete transitions running -> completed. Calling it for a task that is
// not running is a logic error; the transition is refused and logged rather
// than double-applied.
func (q *Queue) complete(id uuid.UUID, result any) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok || t.Status != StatusRunning {
		q.mu.Unlock()
		q.logger.Error("refusing completion of task not in running state", "task_id", id)
		return
	}
	completed := q.now()
	t.Status = StatusCompleted
	t.Result = result
	t.Progress = 100
	t.CompletedAt = &completed
	snap := t.snapshot()
	q.mu.Unlock()

	q.logger.Info("task completed", "task_id", id, "task_type", snap.Type)
	q.recorder.RecordTaskEvent(q.runCtx, EventTaskCompleted, snap)
}

// fail transitions running -> failed, storing the captured error.
func (q *Queue) fail(id uuid.UUID, kind, message string) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok || t.Status != StatusRunning {
		q.mu.Unlock()
		q.logger.Error("refusing failure of task not in running state", "task_id", id)
		return
	}
	completed := q.now()
	t.Status = StatusFailed
	t.Error = &Error{Kind: kind, Message: message}
	t.CompletedAt = &completed
	snap := t.snapshot()
	q.mu.Unlock()

	q.logger.Error("task failed", "task_id", id, "task_type", snap.Type, "error_kind", kind, "error", message)
	q.recorder.RecordTaskEvent(q.runCtx, EventTaskFailed, snap)
}

// Get returns a snapshot of the task with the given id.
func (q *Queue) Get(id uuid.UUID) (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.snapshot(), nil
}

// UpdateProgress sets the progress percentage and merges details for a
// running task. Progress is only meaningful, and only mutable, while the
// task is running.
func (q *Queue) UpdateProgress(id uuid.UUID, percent int, details map[string]any) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if t.Status != StatusRunning {
		return fmt.Errorf("%w: cannot update progress of task %s with status %s", ErrInvalidState, id, t.Status)
	}
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidProgress, percent)
	}

	t.Progress = percent
	for k, v := range details {
		t.Details[k] = v
	}
	return nil
}

// Cancel marks a pending task canceled and reports whether it did so. A
// task that has already started runs to completion; cancellation then
// returns false and changes nothing. Unknown ids return ErrTaskNotFound.
func (q *Queue) Cancel(id uuid.UUID) (bool, error) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if t.Status != StatusPending {
		q.mu.Unlock()
		return false, nil
	}
	completed := q.now()
	t.Status = StatusCanceled
	t.CompletedAt = &completed
	snap := t.snapshot()
	q.mu.Unlock()

	q.logger.Info("task canceled", "task_id", id, "task_type", snap.Type)
	q.recorder.RecordTaskEvent(q.runCtx, EventTaskCanceled, snap)
	return true, nil
}

// List returns snapshots of the given owner's tasks in insertion order. An
// empty ownerID matches all tasks. The sequence is recomputed on each call.
func (q *Queue) List(ownerID string) []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Task, 0, len(q.order))
	for _, id := range q.order {
		t, ok := q.tasks[id]
		if !ok {
			continue
		}
		if ownerID != "" && t.OwnerID != ownerID {
			continue
		}
		out = append(out, t.snapshot())
	}
	return out
}

// Cleanup removes terminal tasks whose completion time is before cutoff and
// returns the number removed. Pending and running tasks are never touched.
func (q *Queue) Cleanup(cutoff time.Time) int {
	q.mu.Lock()
	removed := 0
	kept := q.order[:0]
	for _, id := range q.order {
		t, ok := q.tasks[id]
		if !ok {
			continue
		}
		if t.Status.Terminal() && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			delete(q.tasks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
	q.mu.Unlock()

	if removed > 0 {
		q.logger.Info("cleaned up aged-out tasks", "removed", removed)
	}
	return removed
}
