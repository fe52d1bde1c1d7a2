package task

import "errors"

// Structural errors surfaced synchronously by the queue API. Errors raised
// inside submitted callables are never among these; they are captured into
// the task record instead.
var (
	// ErrTaskNotFound is returned when no task exists for the given id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidState is returned when an operation is illegal for the
	// task's current status, such as a double submit or a progress update
	// on a task that is not running.
	ErrInvalidState = errors.New("invalid task state")

	// ErrInvalidProgress is returned when a progress value falls outside
	// the accepted 0-100 range.
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")

	// ErrInvalidWorkerCount is returned when a worker pool is configured
	// with fewer than one worker.
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")
)
